// Package wire implements component A of the handshake engine: explicit
// big-endian, bounds-checked decoding of the length-prefixed fields TLS
// handshake messages are built from. It is a thin domain-specific façade
// over golang.org/x/crypto/cryptobyte.String — the same primitive the Go
// standard library's own TLS stack uses for this — so every read reports
// remaining-length failures instead of relying on a caller having already
// validated the buffer, per spec.md §9's note on replacing hand-computed
// offsets with a reader abstraction.
package wire

import "golang.org/x/crypto/cryptobyte"

// Reader decodes from an untrusted byte slice. It never reads past the
// slice it was constructed with; every method reports false instead of
// panicking or returning partial data on underflow.
type Reader struct {
	s cryptobyte.String
}

// NewReader wraps buf for reading. buf is not copied; callers must not
// mutate it while the Reader is in use.
func NewReader(buf []byte) *Reader {
	return &Reader{s: cryptobyte.String(buf)}
}

// Len reports the number of unread bytes remaining.
func (r *Reader) Len() int { return len(r.s) }

// Empty reports whether every byte has been consumed.
func (r *Reader) Empty() bool { return len(r.s) == 0 }

// Uint8 reads one byte.
func (r *Reader) Uint8() (v byte, ok bool) { return v, r.s.ReadUint8(&v) }

// Uint16 reads a 2-byte big-endian integer.
func (r *Reader) Uint16() (v uint16, ok bool) { return v, r.s.ReadUint16(&v) }

// Uint24 reads a 3-byte big-endian integer, as used by the handshake
// message length field.
func (r *Reader) Uint24() (v uint32, ok bool) { return v, r.s.ReadUint24(&v) }

// Bytes reads exactly n raw bytes.
func (r *Reader) Bytes(n int) (v []byte, ok bool) {
	ok = r.s.ReadBytes(&v, n)
	return v, ok
}

// Skip discards exactly n bytes.
func (r *Reader) Skip(n int) bool { return r.s.Skip(n) }

// Uint8LengthPrefixed reads a 1-byte length prefix followed by that many
// bytes, e.g. a session id or a compression-method list.
func (r *Reader) Uint8LengthPrefixed() (v []byte, ok bool) {
	var s cryptobyte.String
	if !r.s.ReadUint8LengthPrefixed(&s) {
		return nil, false
	}
	return []byte(s), true
}

// Uint16LengthPrefixed reads a 2-byte length prefix followed by that many
// bytes, e.g. a ciphersuite list or an extensions block.
func (r *Reader) Uint16LengthPrefixed() (v []byte, ok bool) {
	var s cryptobyte.String
	if !r.s.ReadUint16LengthPrefixed(&s) {
		return nil, false
	}
	return []byte(s), true
}

// Uint24LengthPrefixed reads a 3-byte length prefix followed by that many
// bytes, e.g. a certificate_list or a single DER certificate entry.
func (r *Reader) Uint24LengthPrefixed() (v []byte, ok bool) {
	var s cryptobyte.String
	if !r.s.ReadUint24LengthPrefixed(&s) {
		return nil, false
	}
	return []byte(s), true
}

// Rest returns every remaining byte without consuming anything further.
func (r *Reader) Rest() []byte {
	return []byte(r.s)
}
