package testutil

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// Message is one record of a generated response file.
type Message struct {
	Data []byte
}

// LenBits is the record's Len field: the message length in bits.
func (m Message) LenBits() int {
	return len(m.Data) * 8
}

// MsgHex is the record's Msg field. Empty messages are written as "00".
func (m Message) MsgHex() string {
	if len(m.Data) == 0 {
		return "00"
	}
	return hex.EncodeToString(m.Data)
}

// Digest is the SHA-1 of the message.
func (m Message) Digest() string {
	sum := sha1.Sum(m.Data)
	return hex.EncodeToString(sum[:])
}

// ShortMessages returns n deterministic messages of 0..n-1 bytes.
func ShortMessages(n int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		msgs[i] = Message{Data: pattern(i, i)}
	}
	return msgs
}

// LongMessages returns n deterministic messages, the i-th being
// size*(i+1) bytes long.
func LongMessages(n, size int) []Message {
	msgs := make([]Message, n)
	for i := range msgs {
		msgs[i] = Message{Data: pattern(i+101, size*(i+1))}
	}
	return msgs
}

func pattern(seed, length int) []byte {
	data := make([]byte, length)
	for j := range data {
		data[j] = byte(seed*31 + j*7)
	}
	return data
}

// ResponseFile renders msgs in the CAVS response file layout: a comment
// header block, an [L = 20] block, then one Len/Msg/MD block per message.
func ResponseFile(title string, msgs []Message) string {
	var sb strings.Builder

	sb.WriteString("#  CAVS 11.0\n")
	fmt.Fprintf(&sb, "#  \"%s\" information \n", title)
	sb.WriteString("#  SHA-1 tests are configured for BYTE oriented implementations\n")
	sb.WriteString("#  Generated on Tue Mar 15 08:23:35 2011\n")
	sb.WriteString("\n[L = 20]\n")

	for _, m := range msgs {
		fmt.Fprintf(&sb, "\nLen = %d\nMsg = %s\nMD = %s\n", m.LenBits(), m.MsgHex(), m.Digest())
	}

	return sb.String()
}

// ShortMsgFile is a SHA1ShortMsg.rsp look-alike with n records.
func ShortMsgFile(n int) string {
	return ResponseFile("SHA-1 ShortMsg", ShortMessages(n))
}

// LongMsgFile is a SHA1LongMsg.rsp look-alike with n records of growing size.
func LongMsgFile(n, size int) string {
	return ResponseFile("SHA-1 LongMsg", LongMessages(n, size))
}
