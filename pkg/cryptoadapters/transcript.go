package cryptoadapters

import "github.com/S10143806H/mbedtls/internal/handshake"

// Transcript is the default handshake.TranscriptHash: it buffers every
// handshake byte written to it and hashes the buffer on demand. A running
// hash.Hash per algorithm would avoid re-hashing on every Sum call, but a
// TLS handshake transcript tops out at a few kilobytes, and buffering
// sidesteps needing to keep five separate hash.Hash states (MD5, SHA1,
// SHA256, SHA384, whichever SumHash ends up asked for) alive from the
// first ClientHello byte before the ciphersuite — and therefore which
// hash actually matters — is even known.
type Transcript struct {
	buf []byte
}

// NewTranscript matches handshake.ConnParams.NewTranscript's signature;
// cipherSuite and version are accepted but unused; the buffering strategy
// makes neither necessary to decide up front.
func NewTranscript(cipherSuite uint16, version uint16) handshake.TranscriptHash {
	return &Transcript{}
}

func (t *Transcript) Write(p []byte) (int, error) {
	t.buf = append(t.buf, p...)
	return len(p), nil
}

func (t *Transcript) Clone() handshake.TranscriptHash {
	return &Transcript{buf: append([]byte(nil), t.buf...)}
}

func (t *Transcript) SumLegacy() []byte {
	md5sum, _ := sumWith(handshake.HashMD5, t.buf)
	sha1sum, _ := sumWith(handshake.HashSHA1, t.buf)
	return append(md5sum, sha1sum...)
}

func (t *Transcript) SumHash(h handshake.HashAlgorithm) []byte {
	sum, err := sumWith(h, t.buf)
	if err != nil {
		sum, _ = sumWith(handshake.HashSHA256, t.buf)
	}
	return sum
}
