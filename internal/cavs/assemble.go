package cavs

import (
	"fmt"
	"strings"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Assemble builds the vector for one well-formed block.
func Assemble(index int, f Fields, opts Options) (models.TestVector, error) {
	if len(f.MsgHex)%2 != 0 {
		return models.TestVector{}, newError(KindHex, 2, fmt.Sprintf("message has odd length %d", len(f.MsgHex)))
	}

	tokens := PadTokens(SplitPairs(f.MsgHex), opts.TokenWidth)
	if opts.Truncate && f.DeclaredLength < len(tokens) {
		tokens = tokens[:f.DeclaredLength]
	}

	return models.NewTestVector(index, f.DeclaredLength, tokens, f.DigestHex), nil
}

// SplitPairs cuts s into consecutive two-character pieces. An odd trailing
// character becomes a one-character final piece.
func SplitPairs(s string) []string {
	pairs := make([]string, 0, (len(s)+1)/2)
	for i := 0; i < len(s); i += 2 {
		end := i + 2
		if end > len(s) {
			end = len(s)
		}
		pairs = append(pairs, s[i:end])
	}
	return pairs
}

// PadTokens left-pads each token with zeros to width.
func PadTokens(tokens []string, width int) []string {
	out := make([]string, len(tokens))
	for i, tok := range tokens {
		if n := width - len(tok); n > 0 {
			tok = strings.Repeat("0", n) + tok
		}
		out[i] = tok
	}
	return out
}
