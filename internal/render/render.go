// Package render serializes ordered suites of test vectors into generated
// test modules.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Renderer writes a document in one output format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
}

// Document is everything a renderer needs for one output artifact.
type Document struct {
	Module     string // Elm module name
	HashModule string // Elm module under test
	Package    string // Go package name
	Suites     []Suite
}

// Suite is a named, ordered group of vectors built from one input file.
type Suite struct {
	Name    string
	Vectors []models.TestVector
}

// VectorCount returns the number of vectors across all suites.
func (d Document) VectorCount() int {
	n := 0
	for _, s := range d.Suites {
		n += len(s.Vectors)
	}
	return n
}

// New returns the renderer for format.
func New(format string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "elm":
		return ElmRenderer{}, nil
	case "go":
		return GoRenderer{}, nil
	case "json":
		return JSONRenderer{}, nil
	case "yaml":
		return YAMLRenderer{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownFormat, format)
	}
}

// Formats lists the supported output formats.
func Formats() []string {
	return []string{"elm", "go", "json", "yaml"}
}
