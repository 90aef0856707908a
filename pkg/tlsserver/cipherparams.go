package tlsserver

import "github.com/S10143806H/mbedtls/internal/handshake"

// recordCipherKind distinguishes the two bulk-cipher shapes the negotiable
// ciphersuites use on the wire; the handshake engine never needs to know
// this, it is purely a record-layer (out-of-scope, spec.md §1) concern.
type recordCipherKind int

const (
	recordCipherCBC recordCipherKind = iota
	recordCipherGCM
)

// recordCipherParams is the record layer's view of a ciphersuite: enough to
// size the key_block (RFC 5246 §6.3) and build the right cipher.AEAD or
// CBC+HMAC pair. Every suite internal/handshake/ciphersuites.go can
// negotiate has an entry here.
type recordCipherParams struct {
	kind    recordCipherKind
	keyLen  int // bulk cipher key length in bytes
	fixedIV int // GCM: 4-byte implicit salt. CBC: 0, IV is explicit per-record.
	macLen  int // CBC only: MAC key/output length. 0 for GCM (AEAD, no separate MAC).
	macNew  func(key []byte) macHash
}

func recordParamsFor(suite uint16) (recordCipherParams, bool) {
	switch suite {
	case handshake.TLSRSAWithAES128CBCSHA, handshake.TLSDHERSAWithAES128CBCSHA,
		handshake.TLSECDHERSAWithAES128CBCSHA, handshake.TLSPSKWithAES128CBCSHA,
		handshake.TLSDHEPSKWithAES128CBCSHA:
		return recordCipherParams{kind: recordCipherCBC, keyLen: 16, macLen: 20, macNew: newHMACSHA1}, true
	case handshake.TLSRSAWithAES256CBCSHA, handshake.TLSDHERSAWithAES256CBCSHA,
		handshake.TLSECDHERSAWithAES256CBCSHA, handshake.TLSPSKWithAES256CBCSHA,
		handshake.TLSDHEPSKWithAES256CBCSHA:
		return recordCipherParams{kind: recordCipherCBC, keyLen: 32, macLen: 20, macNew: newHMACSHA1}, true
	case handshake.TLSRSAWithAES128CBCSHA256:
		return recordCipherParams{kind: recordCipherCBC, keyLen: 16, macLen: 32, macNew: newHMACSHA256}, true
	case handshake.TLSDHERSAWithAES128GCMSHA256, handshake.TLSECDHERSAWithAES128GCMSHA256:
		return recordCipherParams{kind: recordCipherGCM, keyLen: 16, fixedIV: 4}, true
	case handshake.TLSECDHERSAWithAES256GCMSHA384:
		return recordCipherParams{kind: recordCipherGCM, keyLen: 32, fixedIV: 4}, true
	default:
		return recordCipherParams{}, false
	}
}

// keyBlockLen reports how many key_block bytes DeriveKeys must request,
// RFC 5246 §6.3: two MAC keys (CBC only) plus two bulk keys plus, for GCM,
// two fixed IVs. CBC's per-record explicit IV (TLS 1.1+, and used
// unconditionally here per DESIGN.md) is drawn from the record itself, not
// the key_block.
func (p recordCipherParams) keyBlockLen() int {
	return 2*p.macLen + 2*p.keyLen + 2*p.fixedIV
}
