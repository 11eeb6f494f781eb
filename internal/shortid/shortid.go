// Package shortid defines the identifier alphabet shared by generated and
// custom short identifiers, and the validation rules for the latter.
package shortid

import (
	"encoding/base32"
	"errors"
	"fmt"
	"strings"
)

// Alphabet is the canonical identifier alphabet: base32 restricted to
// characters that survive ambiguous-glyph confusion (no 0/O, 1/l/I).
// Identifiers are matched case-insensitively and stored lowercase.
const Alphabet = "abcdefghijklmnopqrstuvwxyz234567"

// ErrInvalidKey is returned when a custom key violates the identifier format rules.
var ErrInvalidKey = errors.New("invalid key format")

var encoding = base32.NewEncoding(Alphabet).WithPadding(base32.NoPadding)

// Encode maps arbitrary bytes onto the identifier alphabet with no padding.
func Encode(b []byte) string {
	return encoding.EncodeToString(b)
}

// Normalize lowercases an identifier into its canonical storage and lookup form.
func Normalize(id string) string {
	return strings.ToLower(id)
}

// Validate checks a caller-supplied key against the identifier format rules,
// in order: non-empty, length within [1, maxLen], every character in the
// alphabet (case-insensitive). The first violated rule wins.
func Validate(key string, maxLen int) error {
	if key == "" {
		return fmt.Errorf("%w: key is empty", ErrInvalidKey)
	}
	if len(key) > maxLen {
		return fmt.Errorf("%w: key exceeds %d characters", ErrInvalidKey, maxLen)
	}
	for _, r := range key {
		if !validRune(r) {
			return fmt.Errorf("%w: character %q is not allowed", ErrInvalidKey, r)
		}
	}

	return nil
}

func validRune(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '2' && r <= '7')
}
