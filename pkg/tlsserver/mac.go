package tlsserver

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
)

// macHash is the narrow slice of hash.Hash the CBC record MAC needs.
type macHash interface {
	Write(p []byte) (int, error)
	Sum(b []byte) []byte
	Reset()
}

func newHMACSHA1(key []byte) macHash   { return hmac.New(sha1.New, key) }
func newHMACSHA256(key []byte) macHash { return hmac.New(sha256.New, key) }
