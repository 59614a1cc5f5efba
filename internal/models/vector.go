package models

import (
	"encoding/json"
	"strings"
)

// TestVector is one parsed CAVS record: a message split into byte tokens and the
// digest it is expected to hash to. Values are immutable once built.
type TestVector struct {
	index          int
	declaredLength int
	tokens         []string
	digest         string
}

// NewTestVector copies tokens so later changes to the caller's slice are not observed.
func NewTestVector(index, declaredLength int, tokens []string, digestHex string) TestVector {
	own := make([]string, len(tokens))
	copy(own, tokens)
	return TestVector{
		index:          index,
		declaredLength: declaredLength,
		tokens:         own,
		digest:         digestHex,
	}
}

// Index is the record position within the file after header blocks are dropped.
func (v TestVector) Index() int { return v.index }

// DeclaredLength is the value of the record's Len field.
func (v TestVector) DeclaredLength() int { return v.declaredLength }

// Tokens returns a copy of the padded byte tokens.
func (v TestVector) Tokens() []string {
	out := make([]string, len(v.tokens))
	copy(out, v.tokens)
	return out
}

// TokenCount returns the number of byte tokens without copying them.
func (v TestVector) TokenCount() int { return len(v.tokens) }

// ExpectedDigestHex is the digest as written in the response file.
func (v TestVector) ExpectedDigestHex() string { return v.digest }

// MessageHex joins the tokens back into a hex string, dropping the zero padding
// so each token contributes its two significant digits.
func (v TestVector) MessageHex() string {
	var sb strings.Builder
	sb.Grow(len(v.tokens) * 2)
	for _, tok := range v.tokens {
		if len(tok) > 2 {
			tok = tok[len(tok)-2:]
		}
		sb.WriteString(tok)
	}
	return sb.String()
}

type testVectorJSON struct {
	Index  int      `json:"index"`
	Length int      `json:"length"`
	Tokens []string `json:"tokens"`
	Digest string   `json:"digest"`
}

// MarshalJSON implements json.Marshaler.
func (v TestVector) MarshalJSON() ([]byte, error) {
	tokens := v.tokens
	if tokens == nil {
		tokens = []string{}
	}
	return json.Marshal(testVectorJSON{
		Index:  v.index,
		Length: v.declaredLength,
		Tokens: tokens,
		Digest: v.digest,
	})
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *TestVector) UnmarshalJSON(data []byte) error {
	var raw testVectorJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*v = NewTestVector(raw.Index, raw.Length, raw.Tokens, raw.Digest)
	return nil
}
