package cavs

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Record labels. Each is followed by labelSeparator and the value.
const (
	LabelLength = "Len"
	LabelMsg    = "Msg"
	LabelDigest = "MD"

	labelSeparator = " = "
)

// Status classifies a block.
type Status int

const (
	StatusWellFormed Status = iota
	StatusSkip
	StatusMalformed
)

func (s Status) String() string {
	switch s {
	case StatusWellFormed:
		return "well-formed"
	case StatusSkip:
		return "skip"
	case StatusMalformed:
		return "malformed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Fields are the three values read from a record block.
type Fields struct {
	DeclaredLength int
	MsgHex         string
	DigestHex      string
}

// BlockResult is the outcome of classifying one block. Fields is set only for
// StatusWellFormed and Err only for StatusMalformed.
type BlockResult struct {
	Status Status
	Fields Fields
	Err    error
}

// ClassifyBlock reads the Len, Msg and MD lines from the start of a block.
// Blocks with fewer than three lines are skipped; any other defect is fatal.
// Lines after the third are ignored.
func ClassifyBlock(lines []string) BlockResult {
	if len(lines) < 3 {
		return BlockResult{Status: StatusSkip}
	}

	fields, err := extractFields(lines[0], lines[1], lines[2])
	if err != nil {
		return BlockResult{Status: StatusMalformed, Err: err}
	}
	return BlockResult{Status: StatusWellFormed, Fields: fields}
}

func extractFields(lengthLine, msgLine, digestLine string) (Fields, error) {
	rawLen, err := consumeLabel(lengthLine, LabelLength, 1)
	if err != nil {
		return Fields{}, err
	}
	length, err := strconv.Atoi(rawLen)
	if err != nil {
		return Fields{}, wrapError(KindLength, 1, "length is not an integer", err)
	}
	if length < 0 {
		return Fields{}, newError(KindLength, 1, fmt.Sprintf("length must not be negative, got %d", length))
	}

	msg, err := consumeLabel(msgLine, LabelMsg, 2)
	if err != nil {
		return Fields{}, err
	}
	if err := checkHex(msg, 2, "message"); err != nil {
		return Fields{}, err
	}

	digest, err := consumeLabel(digestLine, LabelDigest, 3)
	if err != nil {
		return Fields{}, err
	}
	if digest == "" {
		return Fields{}, newError(KindHex, 3, "digest is empty")
	}
	if err := checkHex(digest, 3, "digest"); err != nil {
		return Fields{}, err
	}

	return Fields{DeclaredLength: length, MsgHex: msg, DigestHex: digest}, nil
}

// consumeLabel strips "<label> = " from the start of line and returns the rest.
func consumeLabel(line, label string, lineNo int) (string, error) {
	prefix := label + labelSeparator
	if !strings.HasPrefix(line, prefix) {
		return "", newError(KindFormat, lineNo, fmt.Sprintf("expected %q prefix, got %q", prefix, truncateForError(line)))
	}
	return strings.TrimRight(line[len(prefix):], " \t"), nil
}

func checkHex(s string, lineNo int, what string) error {
	if len(s)%2 != 0 {
		return newError(KindHex, lineNo, fmt.Sprintf("%s has odd length %d", what, len(s)))
	}
	if _, err := hex.DecodeString(s); err != nil {
		return wrapError(KindHex, lineNo, what+" is not valid hex", err)
	}
	return nil
}

func truncateForError(s string) string {
	const max = 32
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
