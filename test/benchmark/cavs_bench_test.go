package benchmark

import (
	"fmt"
	"io"
	"testing"

	"github.com/TheMichaelB/cavsgen/internal/cavs"
	"github.com/TheMichaelB/cavsgen/internal/render"
	"github.com/TheMichaelB/cavsgen/test/testutil"
)

func BenchmarkBuild(b *testing.B) {
	files := []struct {
		name string
		text string
	}{
		{"short_65", testutil.ShortMsgFile(65)},
		{"long_64x64", testutil.LongMsgFile(64, 64)},
		{"long_16x1024", testutil.LongMsgFile(16, 1024)},
	}

	for _, f := range files {
		b.Run(f.name, func(b *testing.B) {
			opts := cavs.DefaultOptions()

			b.ReportAllocs()
			b.SetBytes(int64(len(f.text)))

			for i := 0; i < b.N; i++ {
				if _, err := cavs.Build(f.text, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkTokenWidth(b *testing.B) {
	text := testutil.LongMsgFile(16, 256)

	for _, width := range []int{2, 4, 8} {
		b.Run(fmt.Sprintf("width_%d", width), func(b *testing.B) {
			opts := cavs.DefaultOptions()
			opts.TokenWidth = width

			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if _, err := cavs.Build(text, opts); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkRender(b *testing.B) {
	long, err := cavs.BuildSequence(testutil.LongMsgFile(64, 64), cavs.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}
	short, err := cavs.BuildSequence(testutil.ShortMsgFile(65), cavs.DefaultOptions())
	if err != nil {
		b.Fatal(err)
	}

	doc := render.Document{
		Suites: []render.Suite{
			{Name: "long", Vectors: long},
			{Name: "short", Vectors: short},
		},
	}

	for _, format := range render.Formats() {
		b.Run(format, func(b *testing.B) {
			r, err := render.New(format)
			if err != nil {
				b.Fatal(err)
			}

			b.ReportAllocs()
			for i := 0; i < b.N; i++ {
				if err := r.Render(io.Discard, doc); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
