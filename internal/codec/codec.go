// Package codec converts backup payloads to and from the transport-safe text
// encoding used for remote storage: UTF-8 bytes under standard base64.
package codec

import (
	"encoding/base64"
	"fmt"
	"unicode/utf8"
)

// Encode converts text to its transport-safe form. Go strings are already
// UTF-8 byte sequences, so arbitrary Unicode round-trips without a separate
// transform step, and no intermediate structure grows with input size.
func Encode(text string) string {
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// Decode reverses Encode. It rejects malformed base64 and payloads that are
// not valid UTF-8, since both indicate a corrupt or foreign object rather
// than a backup written by Encode.
func Decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode base64: %w", err)
	}
	if !utf8.Valid(raw) {
		return "", fmt.Errorf("decoded payload is not valid UTF-8")
	}
	return string(raw), nil
}
