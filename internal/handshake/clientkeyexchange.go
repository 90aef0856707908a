package handshake

import (
	"io"

	"github.com/S10143806H/mbedtls/internal/wire"
)

// parseClientKeyExchange implements spec.md §4.E "ClientKeyExchange",
// dispatching on the negotiated key-exchange family. body is the full
// handshake-layer message (type + 3-byte length + content); framing of the
// outer header is validated the same way every parser in this package
// validates it.
func parseClientKeyExchange(params *ConnParams, scratch *Scratch) func(body []byte) *Error {
	return func(body []byte) *Error {
		r := wire.NewReader(body)
		msgType, ok := r.Uint8()
		if !ok || msgType != MsgClientKeyExchange {
			return newErr(ErrBadClientKeyExchange, "not a ClientKeyExchange")
		}
		length, ok := r.Uint24()
		if !ok || int(length) != len(body)-4 {
			return newErr(ErrBadClientKeyExchange, "handshake length mismatch")
		}

		switch scratch.KeyExchange {
		case KeyExchangeRSA:
			return parseClientKeyExchangeRSA(r, params, scratch)
		case KeyExchangeDHERSA:
			return parseClientKeyExchangeDHE(r, params, scratch)
		case KeyExchangeECDHERSA:
			return parseClientKeyExchangeECDHE(r, params, scratch, len(body))
		case KeyExchangePSK:
			return parseClientKeyExchangePSK(r, params, scratch)
		case KeyExchangeDHEPSK:
			return parseClientKeyExchangeDHEPSK(r, params, scratch)
		default:
			return newErr(ErrFeatureUnavailable, "unsupported key exchange family")
		}
	}
}

// parseClientKeyExchangeRSA implements the Bleichenbacher countermeasure of
// spec.md §4.E and §7: any failure (framing that still yields bytes to
// "decrypt", a decrypt error, wrong PMS length, or a PMS whose advertised
// version mismatches) is absorbed into a 48-byte random premaster instead
// of aborting, so the eventual Finished MAC — not this function — is where
// the failure becomes observable to the peer. Only a message so malformed
// that no ciphertext can even be extracted is a hard, immediate
// BadClientKeyExchange.
func parseClientKeyExchangeRSA(r *wire.Reader, params *ConnParams, scratch *Scratch) *Error {
	if params.RSAKey == nil {
		return newErr(ErrPrivateKeyRequired, "server decryption key required for RSA key exchange")
	}
	encPMS, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientKeyExchange, "bad RSA ClientKeyExchange framing")
	}

	scratch.Premaster = make([]byte, 48)

	failed := len(encPMS) != params.RSAKey.ModulusSize()
	var pms []byte
	if !failed {
		var err error
		pms, err = params.RSAKey.Decrypt(params.RNG, encPMS)
		if err != nil || len(pms) != 48 {
			failed = true
		} else if pms[0] != byte(scratch.PeerMaxVersion>>8) || pms[1] != byte(scratch.PeerMaxVersion) {
			failed = true
		}
	}

	if failed {
		if _, err := io.ReadFull(params.RNG, scratch.Premaster); err != nil {
			return wrapErr(ErrBadClientKeyExchange, "failed to generate substitute premaster", err)
		}
		return nil
	}
	copy(scratch.Premaster, pms)
	return nil
}

// parseClientKeyExchangeDHE implements spec.md §4.E "DHE-RSA".
func parseClientKeyExchangeDHE(r *wire.Reader, params *ConnParams, scratch *Scratch) *Error {
	gy, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientKeyExchange, "bad DHE ClientKeyExchange framing")
	}
	if len(gy) < 1 || len(gy) > len(scratch.DH.P) {
		return newErr(ErrBadClientKeyExchange, "DH public value out of range")
	}
	scratch.DH.GY = gy
	if err := params.DHProvider.ReadPublic(&scratch.DH, gy); err != nil {
		return wrapErr(ErrBadClientKeyExchangeReadPublic, "DH public value rejected", err)
	}
	if err := params.DHProvider.ComputeSecret(&scratch.DH); err != nil {
		return wrapErr(ErrBadClientKeyExchangeComputeSecret, "DH shared secret computation failed", err)
	}
	scratch.Premaster = scratch.DH.K
	return nil
}

// parseClientKeyExchangeECDHE implements spec.md §4.E "ECDHE-RSA".
func parseClientKeyExchangeECDHE(r *wire.Reader, params *ConnParams, scratch *Scratch, totalLen int) *Error {
	point, ok := r.Uint8LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientKeyExchange, "bad ECDHE ClientKeyExchange framing")
	}
	if len(point) > 2*len(scratch.DH.P)+2 && len(scratch.DH.P) > 0 {
		return newErr(ErrBadClientKeyExchange, "EC point too long")
	}
	if totalLen != len(point)+1+4 {
		return newErr(ErrBadClientKeyExchange, "ECDHE ClientKeyExchange length mismatch")
	}
	scratch.ECDH.Qp = point
	if err := params.ECDHProvider.ReadPublic(&scratch.ECDH, point); err != nil {
		return wrapErr(ErrBadClientKeyExchangeReadPublic, "EC public value rejected", err)
	}
	if err := params.ECDHProvider.ComputeSecret(&scratch.ECDH); err != nil {
		return wrapErr(ErrBadClientKeyExchangeComputeSecret, "ECDH shared secret computation failed", err)
	}
	scratch.Premaster = scratch.ECDH.Z
	return nil
}

// parseClientKeyExchangePSK implements spec.md §4.E "PSK".
func parseClientKeyExchangePSK(r *wire.Reader, params *ConnParams, scratch *Scratch) *Error {
	identity, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientKeyExchange, "bad PSK ClientKeyExchange framing")
	}
	if !bytesEqual(identity, params.PSKIdentity) {
		return newErr(ErrBadClientKeyExchange, "unknown PSK identity")
	}
	scratch.Premaster = buildPSKPremaster(nil, params.PSKKey)
	return nil
}

// parseClientKeyExchangeDHEPSK implements spec.md §4.E "DHE-PSK".
func parseClientKeyExchangeDHEPSK(r *wire.Reader, params *ConnParams, scratch *Scratch) *Error {
	identity, ok := r.Uint16LengthPrefixed()
	if !ok {
		return newErr(ErrBadClientKeyExchange, "bad DHE-PSK ClientKeyExchange framing")
	}
	if !bytesEqual(identity, params.PSKIdentity) {
		return newErr(ErrBadClientKeyExchange, "unknown PSK identity")
	}
	gy, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientKeyExchange, "bad DHE-PSK ClientKeyExchange framing")
	}
	if len(gy) < 1 || len(gy) > len(scratch.DH.P) {
		return newErr(ErrBadClientKeyExchange, "DH public value out of range")
	}
	scratch.DH.GY = gy
	if err := params.DHProvider.ReadPublic(&scratch.DH, gy); err != nil {
		return wrapErr(ErrBadClientKeyExchangeReadPublic, "DH public value rejected", err)
	}
	if err := params.DHProvider.ComputeSecret(&scratch.DH); err != nil {
		return wrapErr(ErrBadClientKeyExchangeComputeSecret, "DH shared secret computation failed", err)
	}
	scratch.Premaster = buildPSKPremaster(scratch.DH.K, params.PSKKey)
	return nil
}

// buildPSKPremaster implements spec.md §4.E's premaster construction for
// the PSK families: `(16-bit other_len, other, 16-bit psk_len, psk)` where
// `other` is psk_len zero bytes for plain PSK, or the DH shared secret Z
// for DHE-PSK.
func buildPSKPremaster(other, psk []byte) []byte {
	if other == nil {
		other = make([]byte, len(psk))
	}
	w := wire.NewWriter()
	w.Uint16LengthPrefixed(func(w *wire.Writer) { w.Bytes(other) })
	w.Uint16LengthPrefixed(func(w *wire.Writer) { w.Bytes(psk) })
	b, err := w.Finish()
	if err != nil {
		return nil
	}
	return b
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
