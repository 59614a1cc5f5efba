package cavs

import "strings"

const (
	blockSeparator = "\n\n"
	lineSeparator  = "\n"
)

// SplitBlocks splits a response file into blank-line separated blocks, drops the
// first headerBlocks of them and returns each remaining block as its lines.
// Blocks are not validated here.
func SplitBlocks(text string, headerBlocks int) [][]string {
	text = strings.ReplaceAll(text, "\r\n", lineSeparator)

	blocks := strings.Split(text, blockSeparator)
	if headerBlocks < 0 {
		headerBlocks = 0
	}
	if headerBlocks >= len(blocks) {
		return nil
	}
	blocks = blocks[headerBlocks:]

	out := make([][]string, len(blocks))
	for i, b := range blocks {
		out[i] = strings.Split(b, lineSeparator)
	}
	return out
}
