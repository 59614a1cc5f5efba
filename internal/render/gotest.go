package render

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"io"
	"text/template"
)

const defaultGoPackage = "cavs"

var goTemplate = template.Must(template.New("go").Parse(`// Code generated by cavsgen. DO NOT EDIT.

package {{.Package}}

// Vector is one known-answer test read from a response file.
type Vector struct {
	Index  int
	Length int    // Len field of the record
	Msg    string // Message hex as parsed, after any truncation
	Digest string // Expected MD
}

// Suite groups the vectors read from one response file.
type Suite struct {
	Name    string
	Vectors []Vector
}

// Suites lists every suite in generation order.
var Suites = []Suite{
{{- range .Suites}}
	{
		Name: {{printf "%q" .Name}},
		Vectors: []Vector{
		{{- range .Vectors}}
			{Index: {{.Index}}, Length: {{.DeclaredLength}}, Msg: {{printf "%q" .MessageHex}}, Digest: {{printf "%q" .ExpectedDigestHex}}},
		{{- end}}
		},
	},
{{- end}}
}
`))

// GoRenderer emits a gofmt'ed Go source file holding the vectors as a table.
type GoRenderer struct{}

// Render writes doc as Go source.
func (GoRenderer) Render(w io.Writer, doc Document) error {
	if doc.Package == "" {
		doc.Package = defaultGoPackage
	}
	if !token.IsIdentifier(doc.Package) {
		return fmt.Errorf("render go: invalid package name %q", doc.Package)
	}

	var buf bytes.Buffer
	if err := goTemplate.Execute(&buf, doc); err != nil {
		return fmt.Errorf("render go: %w", err)
	}

	src, err := format.Source(buf.Bytes())
	if err != nil {
		return fmt.Errorf("format go source: %w", err)
	}

	_, err = w.Write(src)
	return err
}
