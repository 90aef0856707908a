package cryptoadapters

import (
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"hash"

	"github.com/S10143806H/mbedtls/internal/handshake"
)

// pHash implements RFC 5246 §5's P_hash(secret, seed) expansion function:
// HMAC_hash(secret, A(1) + seed) || HMAC_hash(secret, A(2) + seed) || ...
// truncated to length n. There is no third-party package in the example
// pack (or the wider ecosystem) that wraps this — it is TLS's own PRF
// construction on top of plain HMAC, not a general-purpose primitive a
// library would offer — so this is one of the few places this module
// reaches for crypto/hmac directly; see DESIGN.md.
func pHash(newHash func() hash.Hash, secret, seed []byte, n int) []byte {
	h := hmac.New(newHash, secret)
	h.Write(seed)
	a := h.Sum(nil)

	out := make([]byte, 0, n)
	for len(out) < n {
		h := hmac.New(newHash, secret)
		h.Write(a)
		h.Write(seed)
		out = append(out, h.Sum(nil)...)

		h = hmac.New(newHash, secret)
		h.Write(a)
		a = h.Sum(nil)
	}
	return out[:n]
}

// prfTLS12 is RFC 5246 §5's single-hash PRF, always SHA256 for the
// ciphersuites this engine negotiates (none of them specify a different
// PRF hash).
func prfTLS12(secret, label, seed []byte, n int) []byte {
	s := append(append([]byte(nil), label...), seed...)
	return pHash(sha256.New, secret, s, n)
}

// prfLegacy is RFC 2246 §5's TLS 1.0/1.1 and SSLv3-as-implemented-here PRF:
// split the secret in half (overlapping by one byte if odd), run P_MD5 and
// P_SHA1 independently, XOR the results.
func prfLegacy(secret, label, seed []byte, n int) []byte {
	s := append(append([]byte(nil), label...), seed...)

	half := (len(secret) + 1) / 2
	s1 := secret[:half]
	s2 := secret[len(secret)-half:]

	md5Part := pHash(md5.New, s1, s, n)
	sha1Part := pHash(sha1.New, s2, s, n)

	out := make([]byte, n)
	for i := range out {
		out[i] = md5Part[i] ^ sha1Part[i]
	}
	return out
}

// prf picks the legacy or TLS-1.2 construction by version, RFC 5246 §5's
// "In previous versions of TLS... different PRF" note.
func prf(version uint16, secret, label, seed []byte, n int) []byte {
	if version >= handshake.VersionTLS12 {
		return prfTLS12(secret, label, seed, n)
	}
	return prfLegacy(secret, label, seed, n)
}

// sessionVersion reads the wire version off a handshake.Session. It exists
// because the negotiated version isn't known until partway through the
// handshake (set on the session inside ClientHello processing), while the
// PRF-based collaborators below are wired into ConnParams before that
// point; binding them to the live *Session pointer instead of a version
// value lets construction happen early and still see the right version by
// the time ServerVerifyData/ClientVerifyData/MasterSecretDeriver actually
// run, since the engine always sets Session.Minor before any of them can
// be called.
func sessionVersion(s *handshake.Session) uint16 {
	return uint16(s.Major)<<8 | uint16(s.Minor)
}

// MasterSecretDeriver builds a handshake.MasterSecretDeriver bound to the
// negotiation's live session, RFC 5246 §8.1: master_secret = PRF(premaster,
// "master secret", client_random + server_random)[0..48].
func MasterSecretDeriver(session *handshake.Session) handshake.MasterSecretDeriver {
	return func(premaster []byte, clientRandom, serverRandom [32]byte) []byte {
		seed := append(append([]byte{}, clientRandom[:]...), serverRandom[:]...)
		return prf(sessionVersion(session), premaster, []byte("master secret"), seed, 48)
	}
}

// KeyExpansion builds the record layer's key_block, RFC 5246 §6.3:
// PRF(master_secret, "key expansion", server_random + client_random)[0..n].
// Note the random order is reversed from master-secret derivation. n is the
// caller's sum of every MAC key, bulk cipher key and (for block ciphers
// using an explicit rather than implicit IV scheme) IV length it needs; the
// caller slices the returned block itself.
func KeyExpansion(version uint16, masterSecret []byte, serverRandom, clientRandom [32]byte, n int) []byte {
	seed := append(append([]byte{}, serverRandom[:]...), clientRandom[:]...)
	return prf(version, masterSecret, []byte("key expansion"), seed, n)
}

// Finished adapts the PRF-based Finished verify_data computation to
// handshake.FinishedCollaborator, RFC 5246 §7.4.9: verify_data =
// PRF(master_secret, finished_label, Hash(handshake_messages))[0..12],
// using the fixed 36-byte MD5||SHA1 transcript digest instead of a single
// hash for versions below TLS 1.2. Session is read for its negotiated
// version only when a verify_data is actually computed, by which point
// ClientHello processing has already set it; see sessionVersion.
type Finished struct {
	Session *handshake.Session
}

func (f Finished) ServerVerifyData(transcript handshake.TranscriptHash, masterSecret []byte) []byte {
	return f.verifyData(transcript, masterSecret, "server finished")
}

func (f Finished) ClientVerifyData(transcript handshake.TranscriptHash, masterSecret []byte) []byte {
	return f.verifyData(transcript, masterSecret, "client finished")
}

func (f Finished) verifyData(transcript handshake.TranscriptHash, masterSecret []byte, label string) []byte {
	version := sessionVersion(f.Session)
	var seed []byte
	if version >= handshake.VersionTLS12 {
		seed = transcript.SumHash(handshake.HashSHA256)
	} else {
		seed = transcript.SumLegacy()
	}
	return prf(version, masterSecret, []byte(label), seed, 12)
}
