package render

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

type suiteDoc struct {
	Name    string      `json:"name" yaml:"name"`
	Vectors []vectorDoc `json:"vectors" yaml:"vectors"`
}

type vectorDoc struct {
	Index  int      `json:"index" yaml:"index"`
	Length int      `json:"length" yaml:"length"`
	Tokens []string `json:"tokens" yaml:"tokens,flow"`
	Digest string   `json:"digest" yaml:"digest"`
}

type structuredDoc struct {
	Suites []suiteDoc `json:"suites" yaml:"suites"`
}

func toStructured(doc Document) structuredDoc {
	out := structuredDoc{Suites: make([]suiteDoc, 0, len(doc.Suites))}
	for _, s := range doc.Suites {
		sd := suiteDoc{Name: s.Name, Vectors: make([]vectorDoc, 0, len(s.Vectors))}
		for _, v := range s.Vectors {
			sd.Vectors = append(sd.Vectors, newVectorDoc(v))
		}
		out.Suites = append(out.Suites, sd)
	}
	return out
}

func newVectorDoc(v models.TestVector) vectorDoc {
	tokens := v.Tokens()
	if tokens == nil {
		tokens = []string{}
	}
	return vectorDoc{
		Index:  v.Index(),
		Length: v.DeclaredLength(),
		Tokens: tokens,
		Digest: v.ExpectedDigestHex(),
	}
}

// JSONRenderer emits {"suites":[{"name":..,"vectors":[..]}]}.
type JSONRenderer struct{}

// Render writes doc as indented JSON.
func (JSONRenderer) Render(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(toStructured(doc)); err != nil {
		return fmt.Errorf("render json: %w", err)
	}
	return nil
}

// YAMLRenderer emits the same document shape as JSONRenderer in YAML.
type YAMLRenderer struct{}

// Render writes doc as YAML.
func (YAMLRenderer) Render(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(toStructured(doc)); err != nil {
		return fmt.Errorf("render yaml: %w", err)
	}
	return enc.Close()
}
