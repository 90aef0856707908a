package handshake

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"hash"

	"github.com/S10143806H/mbedtls/internal/wire"
)

// hashTranscriptBytes hashes client_random||server_random||params with the
// negotiated sig_alg, used by the TLS 1.2 ServerKeyExchange signature and
// shared with nothing else: signature hashing over wire fields (as opposed
// to the handshake transcript) is this package's job, not the out-of-scope
// TranscriptHash collaborator's.
func hashTranscriptBytes(alg HashAlgorithm, parts ...[]byte) []byte {
	var h hash.Hash
	switch alg {
	case HashSHA224:
		h = sha256.New224()
	case HashSHA256:
		h = sha256.New()
	case HashSHA384:
		h = sha512.New384()
	case HashSHA512:
		h = sha512.New()
	case HashSHA1:
		h = sha1.New()
	case HashMD5:
		h = md5.New()
	default:
		h = sha256.New()
	}
	for _, p := range parts {
		h.Write(p)
	}
	return h.Sum(nil)
}

// buildServerKeyExchange implements spec.md §4.D "ServerKeyExchange". It
// returns (nil, nil) for families that skip the message entirely
// (KeyExchangeFamily.HasServerKeyExchange() == false), which the caller
// must treat as "advance state without writing anything". minor is the
// negotiated (not merely offered) protocol version, since the signature
// format depends on what was actually agreed, not on the client's ceiling.
func buildServerKeyExchange(params *ConnParams, scratch *Scratch, minor byte, clientRandom, serverRandom []byte) ([]byte, *Error) {
	if !scratch.KeyExchange.HasServerKeyExchange() {
		return nil, nil
	}

	w := wire.NewWriter()
	w.Uint8(MsgServerKeyExchange)
	w.Uint24(0)

	needsSignature := scratch.KeyExchange == KeyExchangeDHERSA || scratch.KeyExchange == KeyExchangeECDHERSA
	var pw *wire.Writer
	if needsSignature {
		pw = wire.NewWriter()
	}

	switch scratch.KeyExchange {
	case KeyExchangeDHEPSK:
		writePSKIdentityHint(w)
		if err := writeDHParams(w, scratch); err != nil {
			return nil, err
		}
	case KeyExchangeDHERSA:
		if err := writeDHParams(w, scratch); err != nil {
			return nil, err
		}
		if err := writeDHParams(pw, scratch); err != nil {
			return nil, err
		}
	case KeyExchangeECDHERSA:
		if err := writeECParams(w, scratch); err != nil {
			return nil, err
		}
		if err := writeECParams(pw, scratch); err != nil {
			return nil, err
		}
	}

	if needsSignature {
		paramBytes, err := pw.Finish()
		if err != nil {
			return nil, wrapErr(ErrBadInputData, "failed to serialise ServerKeyExchange params", err)
		}
		sig, serr := signServerKeyExchange(params, scratch, minor, clientRandom, serverRandom, paramBytes)
		if serr != nil {
			return nil, serr
		}
		w.Bytes(sig)
	}

	body, err := w.Finish()
	if err != nil {
		return nil, wrapErr(ErrBadInputData, "failed to build ServerKeyExchange", err)
	}
	patchHandshakeLength(body)
	return body, nil
}

func writePSKIdentityHint(w *wire.Writer) {
	w.Uint16(0) // empty identity hint, spec.md §4.D
}

func writeMPI(w *wire.Writer, v []byte) {
	w.Uint16LengthPrefixed(func(w *wire.Writer) { w.Bytes(v) })
}

func writeDHParams(w *wire.Writer, scratch *Scratch) *Error {
	if len(scratch.DH.P) == 0 {
		return newErr(ErrFeatureUnavailable, "no DH group configured")
	}
	writeMPI(w, scratch.DH.P)
	writeMPI(w, scratch.DH.G)
	writeMPI(w, scratch.DH.GX)
	return nil
}

func writeECParams(w *wire.Writer, scratch *Scratch) *Error {
	if scratch.ECCurve == GroupNone || len(scratch.ECDH.Q) == 0 {
		return newErr(ErrFeatureUnavailable, "no EC curve negotiated")
	}
	w.Uint8(3) // ECCurveType named_curve, RFC 4492 §5.4
	w.Uint16(uint16(scratch.ECCurve))
	w.Uint8LengthPrefixed(func(w *wire.Writer) { w.Bytes(scratch.ECDH.Q) })
	return nil
}

// signServerKeyExchange computes the RSA signature over
// client_random||server_random||params, spec.md §4.D. For TLS <= 1.1 the
// digest is the fixed 36-byte MD5||SHA1 concatenation (with both hash
// contexts explicitly constructed, per spec.md §9's note against relying
// on zero-value initialisation); for TLS 1.2 it is the single negotiated
// sig_alg hash, emitted alongside (sig_alg, SIG_RSA, siglen, signature).
// minor is the negotiated version: a client offering 1.2 but negotiated
// down to 1.1 still gets the legacy signature shape.
func signServerKeyExchange(params *ConnParams, scratch *Scratch, minor byte, clientRandom, serverRandom, paramBytes []byte) ([]byte, *Error) {
	if params.RSAKey == nil {
		return nil, newErr(ErrPrivateKeyRequired, "server signing key required for this ciphersuite")
	}

	w := wire.NewWriter()

	if minor < 3 {
		md5h := md5.New()
		sha1h := sha1.New()
		md5h.Write(clientRandom)
		md5h.Write(serverRandom)
		md5h.Write(paramBytes)
		sha1h.Write(clientRandom)
		sha1h.Write(serverRandom)
		sha1h.Write(paramBytes)
		digest := append(md5h.Sum(nil), sha1h.Sum(nil)...)

		sig, err := params.RSAKey.SignPKCS1v15(params.RNG, HashNone, digest)
		if err != nil {
			return nil, wrapErr(ErrPrivateKeyRequired, "ServerKeyExchange signing failed", err)
		}
		w.Uint16(uint16(len(sig)))
		w.Bytes(sig)
		b, ferr := w.Finish()
		if ferr != nil {
			return nil, wrapErr(ErrBadInputData, "failed to build ServerKeyExchange signature", ferr)
		}
		return b, nil
	}

	digest := hashTranscriptBytes(scratch.SigAlg, clientRandom, serverRandom, paramBytes)
	sig, err := params.RSAKey.SignPKCS1v15(params.RNG, scratch.SigAlg, digest)
	if err != nil {
		return nil, wrapErr(ErrPrivateKeyRequired, "ServerKeyExchange signing failed", err)
	}
	w.Uint8(byte(scratch.SigAlg))
	w.Uint8(byte(SignatureRSA))
	w.Uint16(uint16(len(sig)))
	w.Bytes(sig)
	b, ferr := w.Finish()
	if ferr != nil {
		return nil, wrapErr(ErrBadInputData, "failed to build ServerKeyExchange signature", ferr)
	}
	return b, nil
}
