package otp

import (
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"unicode"
)

const base32Alpha string = "ABCDEFGHIJKLMNOPQRSTUVWXYZ234567"

var unpadded = base32.StdEncoding.WithPadding(base32.NoPadding)

// normalizeSecret strips whitespace and trailing padding and upper-cases the rest.
func normalizeSecret(secret string) string {
	var builder strings.Builder

	for _, r := range secret {
		if unicode.IsSpace(r) {
			continue
		}

		builder.WriteRune(unicode.ToUpper(r))
	}

	return strings.TrimRight(builder.String(), "=")
}

// Decode decodes a Base32 shared secret into raw key bytes.
//
// Symbols are packed 5 bits at a time; trailing bits that do not
// fill a whole byte are dropped.
func Decode(secret string) ([]byte, error) {
	var clean string = normalizeSecret(secret)

	if clean == "" {
		return nil, fmt.Errorf("%w: empty", ErrInvalidSecret)
	}

	var key []byte = make([]byte, 0, len(clean)*5/8)
	var buffer uint32
	var bits uint

	for i, r := range clean {
		var value int = strings.IndexRune(base32Alpha, r)
		if value < 0 {
			return nil, fmt.Errorf("%w: illegal character %q at offset %d", ErrInvalidSecret, r, i)
		}

		buffer = buffer<<5 | uint32(value)
		bits += 5

		if bits >= 8 {
			bits -= 8
			key = append(key, byte(buffer>>bits))
			buffer &= 1<<bits - 1
		}
	}

	if len(key) == 0 {
		return nil, fmt.Errorf("%w: too short", ErrInvalidSecret)
	}

	return key, nil
}

// ValidateSecret reports whether the secret decodes as Base32.
func ValidateSecret(secret string) bool {
	_, err := Decode(secret)

	return err == nil
}

// Encode returns the unpadded Base32 form of the key.
func Encode(key []byte) string {
	return unpadded.EncodeToString(key)
}

// ValidateMOTPSecret reports whether the secret is usable for mOTP.
// mOTP init-secrets are kept as their hex text.
func ValidateMOTPSecret(secret string) bool {
	var clean string = strings.TrimSpace(secret)
	if clean == "" {
		return false
	}

	_, err := hex.DecodeString(clean)

	return err == nil
}
