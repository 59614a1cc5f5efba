package render

import (
	"fmt"
	"io"
	"strings"
	"text/template"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

const (
	defaultElmModule  = "CAVS"
	defaultHashModule = "SHA1"

	// Separator between vector expressions inside one suite list.
	elmVectorSeparator = "\n    ,"
)

var elmTemplate = template.Must(template.New("elm").Funcs(template.FuncMap{
	"vectors": elmVectors,
}).Parse(`module {{.Module}} exposing (suite)

import Bitwise
import Expect
import {{.HashModule}}
import Test exposing (describe, test)


suite =
    let
        toBytes =
            identity

        test{{.HashModule}} index hex bytes =
            test (String.fromInt index ++ " " ++ Debug.toString bytes) <|
                \_ ->
                    bytes 
                        |> {{.HashModule}}.fromByte
                        |> {{.HashModule}}.toHex
                        |> Expect.equal hex
    in
    describe "cavs test suite"
{{- if not .Suites}}
        []
{{- else}}
{{- range $i, $s := .Suites}}
        {{if $i}},{{else}}[{{end}} describe "{{$s.Name}}" [{{vectors $.HashModule $s.Vectors}} ]
{{- end}}
        ]
{{- end}}
`))

// ElmRenderer emits an elm-test module that checks every vector against the
// hash module's hex digest.
type ElmRenderer struct{}

// Render writes doc as an Elm module.
func (ElmRenderer) Render(w io.Writer, doc Document) error {
	if doc.Module == "" {
		doc.Module = defaultElmModule
	}
	if doc.HashModule == "" {
		doc.HashModule = defaultHashModule
	}

	if err := elmTemplate.Execute(w, doc); err != nil {
		return fmt.Errorf("render elm: %w", err)
	}
	return nil
}

// ElmVector formats a single vector as a call to the test helper.
func ElmVector(hashModule string, v models.TestVector) string {
	tokens := v.Tokens()
	literals := make([]string, len(tokens))
	for i, t := range tokens {
		literals[i] = "0x" + t
	}

	return fmt.Sprintf("test%s %d  %q (toBytes [%s]) ",
		hashModule, v.Index(), v.ExpectedDigestHex(), strings.Join(literals, ", "))
}

func elmVectors(hashModule string, vectors []models.TestVector) string {
	parts := make([]string, len(vectors))
	for i, v := range vectors {
		parts[i] = ElmVector(hashModule, v)
	}
	return strings.Join(parts, elmVectorSeparator)
}
