package handshake

import "github.com/S10143806H/mbedtls/internal/wire"

// parseCertificateVerify implements spec.md §4.E "CertificateVerify". The
// caller must not invoke this for PSK/DHE-PSK key exchange, for
// AuthModeNone, or when the client sent no certificate — those are the
// state machine's job to skip entirely. transcript must be a snapshot
// (TranscriptHash.Clone()) taken right after ClientKeyExchange's bytes
// were folded in, so they are the last bytes it holds, and before
// CertificateVerify's own bytes reach the live transcript; this function
// only reads from it, via SumLegacy/SumHash. expectedSigAlg
// is the hash CertificateRequest advertised (Scratch.VerifySigAlg); for
// TLS 1.2 the client must echo that exact (hash, SIG_RSA) pair, not just
// any one this engine happens to support.
func parseCertificateVerify(minor byte, expectedSigAlg HashAlgorithm, peerKey PeerRSAKey, transcript TranscriptHash, body []byte) *Error {
	r := wire.NewReader(body)
	msgType, ok := r.Uint8()
	if !ok || msgType != MsgCertificateVerify {
		return newErr(ErrBadCertificateVerify, "not a CertificateVerify")
	}
	length, ok := r.Uint24()
	if !ok || int(length) != len(body)-4 {
		return newErr(ErrBadCertificateVerify, "handshake length mismatch")
	}

	if minor >= 3 {
		hashID, ok1 := r.Uint8()
		sigID, ok2 := r.Uint8()
		if !ok1 || !ok2 || SignatureAlgorithm(sigID) != SignatureRSA {
			return newErr(ErrBadCertificateVerify, "unsupported signature algorithm")
		}
		alg := HashAlgorithm(hashID)
		if alg != expectedSigAlg {
			return newErr(ErrBadCertificateVerify, "signature_and_hash_algorithm does not match CertificateRequest")
		}
		sig, ok := r.Uint16LengthPrefixed()
		if !ok || !r.Empty() {
			return newErr(ErrBadCertificateVerify, "bad CertificateVerify framing")
		}
		if len(sig) != peerKey.ModulusSize() {
			return newErr(ErrBadCertificateVerify, "signature length does not match peer certificate's RSA modulus")
		}
		digest := transcript.SumHash(alg)
		if err := peerKey.VerifyPKCS1v15(alg, digest, sig); err != nil {
			return wrapErr(ErrBadCertificateVerify, "signature verification failed", err)
		}
		return nil
	}

	sig, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadCertificateVerify, "bad CertificateVerify framing")
	}
	if len(sig) != peerKey.ModulusSize() {
		return newErr(ErrBadCertificateVerify, "signature length does not match peer certificate's RSA modulus")
	}
	digest := transcript.SumLegacy()
	if err := peerKey.VerifyPKCS1v15(HashNone, digest, sig); err != nil {
		return wrapErr(ErrBadCertificateVerify, "signature verification failed", err)
	}
	return nil
}
