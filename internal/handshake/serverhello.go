package handshake

import (
	"encoding/binary"

	"github.com/S10143806H/mbedtls/internal/wire"
)

// buildServerHello implements spec.md §4.D "ServerHello" wire encoding.
// The resumption decision (cache lookup, session id generation) is made by
// the caller before this is invoked; this only serialises whatever Session
// the caller has already settled on. serverRandom must already carry the
// 4-byte Unix timestamp in its first 4 bytes per RFC 5246 §7.4.1.3 (the
// caller fills scratch.RandBytes[32:64] before calling this).
func buildServerHello(sess *Session, serverRandom []byte, secureReneg SecureRenegotiationState, ownVerifyData, peerVerifyData []byte) ([]byte, *Error) {
	if len(serverRandom) != 32 {
		return nil, newErr(ErrBadInputData, "server random must be 32 bytes")
	}

	w := wire.NewWriter()
	w.Uint8(MsgServerHello)
	w.Uint24(0) // length patched below
	w.Uint8(sess.Major)
	w.Uint8(sess.Minor)
	w.Bytes(serverRandom)
	w.Uint8LengthPrefixed(func(w *wire.Writer) { w.Bytes(sess.SessionID) })
	w.Uint16(sess.CipherSuite)
	w.Uint8(byte(sess.Compression))

	if secureReneg == RenegotiationSecure {
		verifyData := append(append([]byte{}, ownVerifyData...), peerVerifyData...)
		w.Uint16LengthPrefixed(func(w *wire.Writer) {
			w.Uint16(0xff01) // renegotiation_info extension id
			w.Uint16LengthPrefixed(func(w *wire.Writer) {
				w.Uint8LengthPrefixed(func(w *wire.Writer) { w.Bytes(verifyData) })
			})
		})
	}

	body, err := w.Finish()
	if err != nil {
		return nil, wrapErr(ErrBadInputData, "failed to build ServerHello", err)
	}
	patchHandshakeLength(body)
	return body, nil
}

// patchHandshakeLength fixes up the 3-byte length field at body[1:4] to
// len(body)-4, the way every builder in this package finalises its
// 1-byte-type + 3-byte-length header.
func patchHandshakeLength(body []byte) {
	n := len(body) - 4
	body[1] = byte(n >> 16)
	body[2] = byte(n >> 8)
	body[3] = byte(n)
}

// fillServerRandomTimestamp writes the 4-byte Unix timestamp into the
// first 4 bytes of a freshly RNG-filled 32-byte server random, RFC 5246
// §7.4.1.3.
func fillServerRandomTimestamp(random []byte, unixTime int64) {
	binary.BigEndian.PutUint32(random[:4], uint32(unixTime))
}
