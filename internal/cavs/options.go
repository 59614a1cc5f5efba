package cavs

import (
	"fmt"
	"strings"

	"github.com/TheMichaelB/cavsgen/internal/models"
)

// Variant names a CAVS response-file family.
type Variant int

const (
	VariantShort Variant = iota // SHA*ShortMsg.rsp
	VariantLong                 // SHA*LongMsg.rsp
)

func (v Variant) String() string {
	switch v {
	case VariantShort:
		return "short"
	case VariantLong:
		return "long"
	default:
		return fmt.Sprintf("variant(%d)", int(v))
	}
}

// ParseVariant accepts "short"/"long" and the ShortMsg/LongMsg spellings.
func ParseVariant(s string) (Variant, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "short", "shortmsg":
		return VariantShort, nil
	case "long", "longmsg":
		return VariantLong, nil
	default:
		return 0, fmt.Errorf("%w: %q", models.ErrUnknownVariant, s)
	}
}

const (
	// DefaultHeaderBlocks is the number of leading metadata blocks in NIST SHA
	// response files: the comment banner and the "[L = n]" line.
	DefaultHeaderBlocks = 2

	// DefaultTokenWidth is the width each two-digit byte token is zero-padded to.
	DefaultTokenWidth = 4

	minTokenWidth = 2
)

// Options controls how one response file is turned into vectors.
type Options struct {
	// HeaderBlocks leading blocks are discarded before records are read.
	HeaderBlocks int `json:"header_blocks"`

	// Truncate keeps only the first DeclaredLength tokens of each message.
	Truncate bool `json:"truncate"`

	// TokenWidth is the zero-padded width of each byte token.
	TokenWidth int `json:"token_width"`

	// IndexOrigin is added to each block position to form the vector index.
	IndexOrigin int `json:"index_origin"`
}

// DefaultOptions returns the options the generator has always used. They are
// the same for both variants: long-message files are truncated too for
// compatibility, so callers that want whole long messages turn Truncate off.
func DefaultOptions() Options {
	return Options{
		HeaderBlocks: DefaultHeaderBlocks,
		Truncate:     true,
		TokenWidth:   DefaultTokenWidth,
	}
}

// Validate checks option ranges.
func (o Options) Validate() error {
	if o.HeaderBlocks < 0 {
		return newError(KindOptions, 0, fmt.Sprintf("header block count must not be negative, got %d", o.HeaderBlocks))
	}
	if o.TokenWidth < minTokenWidth {
		return newError(KindOptions, 0, fmt.Sprintf("token width must be at least %d, got %d", minTokenWidth, o.TokenWidth))
	}
	if o.IndexOrigin < 0 {
		return newError(KindOptions, 0, fmt.Sprintf("index origin must not be negative, got %d", o.IndexOrigin))
	}
	return nil
}
