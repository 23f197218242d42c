package password

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"
)

// maxBytesPerChar caps input bytes at MaxLength*maxBytesPerChar, so a few
// enormous grapheme clusters cannot get past the length check.
const maxBytesPerChar = 8

// Validate applies the provisioning policy to a new password.
// Length is counted in user-perceived characters, the way the operator
// typed it at the add-user prompt.
func (c Config) Validate(password string) error {
	if !utf8.ValidString(password) {
		return ErrPasswordEncoding
	}
	if strings.IndexFunc(password, unicode.IsControl) >= 0 {
		return ErrPasswordControlChar
	}
	if len(password) > c.Policy.MaxLength*maxBytesPerChar {
		return ErrPasswordTooLong
	}

	switch n := uniseg.GraphemeClusterCount(password); {
	case n < c.Policy.MinLength:
		return ErrPasswordTooShort
	case n > c.Policy.MaxLength:
		return ErrPasswordTooLong
	}
	return nil
}
