// Package otp provides functionality for generating and reading
// One-Time Passwords.
package otp

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/binary"
	"errors"
	"fmt"
	"hash"
)

// Type identifies the OTP variant of an account.
type Type string

const (
	TypeTOTP     Type = "TOTP"
	TypeHOTP     Type = "HOTP"
	TypeMOTP     Type = "mOTP"
	TypeSteam    Type = "Steam"
	TypeEmailOTP Type = "EMAIL_OTP"
)

// Algorithm is the keyed hash used by the HMAC based variants.
type Algorithm string

const (
	SHA1   Algorithm = "SHA1"
	SHA256 Algorithm = "SHA256"
	SHA512 Algorithm = "SHA512"
)

const (
	DefaultDigits int   = 6
	DefaultPeriod int64 = 30

	MinDigits int   = 4
	MaxDigits int   = 8
	MinPeriod int64 = 1
	MaxPeriod int64 = 300
)

var (
	ErrInvalidSecret    = errors.New("otp: invalid secret")
	ErrUnsupportedAlgo  = errors.New("otp: unsupported algorithm")
	ErrUnsupportedType  = errors.New("otp: unsupported type")
	ErrInvalidDigits    = errors.New("otp: invalid digit count")
	ErrInvalidPeriod    = errors.New("otp: invalid period")
	ErrCounterExhausted = errors.New("otp: counter exhausted")
	ErrExpired          = errors.New("otp: code expired")
)

// OTP is a generated code of one variant.
type OTP interface {
	Digits() int
	String() string
}

// ParseAlgorithm normalizes an algorithm name, defaulting to SHA1 when empty.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch Algorithm(name) {
	case "":
		return SHA1, nil
	case SHA1, SHA256, SHA512:
		return Algorithm(name), nil
	}

	return "", fmt.Errorf("%w %q", ErrUnsupportedAlgo, name)
}

// Valid reports whether t is one of the known variants.
func (t Type) Valid() bool {
	switch t {
	case TypeTOTP, TypeHOTP, TypeMOTP, TypeSteam, TypeEmailOTP:
		return true
	}

	return false
}

func hashFunc(algo Algorithm) (func() hash.Hash, error) {
	switch algo {
	case SHA1, "":
		return sha1.New, nil
	case SHA256:
		return sha256.New, nil
	case SHA512:
		return sha512.New, nil
	}

	return nil, fmt.Errorf("%w %q", ErrUnsupportedAlgo, algo)
}

// getHash hashes the counter using the key and specified algo
// then returns the hash.
func getHash(key []byte, algo Algorithm, counter uint64) ([]byte, error) {
	newHash, err := hashFunc(algo)
	if err != nil {
		return nil, err
	}

	var counterBytes [8]byte

	// Encode counter in big endian
	binary.BigEndian.PutUint64(counterBytes[:], counter)

	var mac hash.Hash = hmac.New(newHash, key)

	_, err = mac.Write(counterBytes[:])
	if err != nil {
		return nil, err
	}

	return mac.Sum(nil), nil
}

// truncate performs the dynamic truncation of an HMAC digest.
//
// https://tools.ietf.org/html/rfc4226#section-5.4
func truncate(digest []byte) uint32 {
	var offset byte = digest[len(digest)-1] & 0xf

	return binary.BigEndian.Uint32(digest[offset:offset+4]) & 0x7fffffff
}

// HOTPValue returns the truncated 31-bit value for the key and counter.
func HOTPValue(key []byte, counter uint64, algo Algorithm) (uint32, error) {
	digest, err := getHash(key, algo, counter)
	if err != nil {
		return 0, err
	}

	return truncate(digest), nil
}

// md5Digest hashes the data with MD5, as mOTP requires.
func md5Digest(data []byte) []byte {
	var sum [md5.Size]byte = md5.Sum(data)

	return sum[:]
}
