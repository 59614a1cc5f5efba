package cavs

import (
	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Result is the outcome of building one file's vector sequence.
type Result struct {
	Vectors []models.TestVector

	// Blocks is the number of blocks left after header blocks were dropped.
	Blocks int

	// Skipped lists the positions of blocks with fewer than three lines.
	Skipped []int
}

// Build turns the text of one response file into its ordered vectors. A
// malformed block aborts the whole file and no vectors are returned.
func Build(text string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	blocks := SplitBlocks(text, opts.HeaderBlocks)
	res := &Result{
		Vectors: make([]models.TestVector, 0, len(blocks)),
		Blocks:  len(blocks),
	}

	for pos, lines := range blocks {
		br := ClassifyBlock(lines)
		switch br.Status {
		case StatusSkip:
			res.Skipped = append(res.Skipped, pos)
			continue
		case StatusMalformed:
			return nil, atBlock(br.Err, pos)
		}

		v, err := Assemble(opts.IndexOrigin+pos, br.Fields, opts)
		if err != nil {
			return nil, atBlock(err, pos)
		}
		res.Vectors = append(res.Vectors, v)
	}

	return res, nil
}

// BuildSequence is Build without the bookkeeping.
func BuildSequence(text string, opts Options) ([]models.TestVector, error) {
	res, err := Build(text, opts)
	if err != nil {
		return nil, err
	}
	return res.Vectors, nil
}
