package handshake

import "github.com/S10143806H/mbedtls/internal/wire"

// parseLegacyClientHello implements spec.md §4.C "Legacy SSLv2-compatible
// ClientHello" (RFC 5246 Appendix E.2). Unlike the source's
// ssl_parse_client_hello_v2, which mixes record-layer and message-layer
// length arithmetic (flagged in spec.md §9), this consolidates everything
// into one bounds-checked walk of body, where body is exactly the N bytes
// following the 2-byte record length field the record-layer collaborator
// already stripped.
func parseLegacyClientHello(body []byte) (*ClientHelloMsg, *Error) {
	if len(body) < 17 || len(body) > 512 {
		return nil, newErr(ErrBadClientHello, "legacy record length out of range")
	}

	r := wire.NewReader(body)

	msgType, ok := r.Uint8()
	if !ok || msgType != MsgClientHello {
		return nil, newErr(ErrBadClientHello, "legacy: not a ClientHello")
	}
	major, ok := r.Uint8()
	minor, _ := r.Uint8()
	if !ok || major != 3 {
		return nil, newErr(ErrBadClientHello, "legacy: unsupported version")
	}

	cipherLen, ok := r.Uint16()
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated cipherspec length")
	}
	sessIDLen, ok := r.Uint16()
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated session id length")
	}
	challengeLen, ok := r.Uint16()
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated challenge length")
	}

	if cipherLen == 0 || cipherLen%3 != 0 {
		return nil, newErr(ErrBadClientHello, "legacy: cipherspec length not a positive multiple of 3")
	}
	if sessIDLen > 32 {
		return nil, newErr(ErrBadClientHello, "legacy: session id too long")
	}
	if challengeLen < 8 || challengeLen > 32 {
		return nil, newErr(ErrBadClientHello, "legacy: challenge length out of range")
	}

	cipherBytes, ok := r.Bytes(int(cipherLen))
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated cipherspecs")
	}
	sessID, ok := r.Bytes(int(sessIDLen))
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated session id")
	}
	challenge, ok := r.Bytes(int(challengeLen))
	if !ok {
		return nil, newErr(ErrBadClientHello, "legacy: truncated challenge")
	}
	if !r.Empty() {
		return nil, newErr(ErrBadClientHello, "legacy: trailing bytes")
	}

	msg := &ClientHelloMsg{Major: major, Minor: minor, Legacy: true, SessionID: sessID, raw: body}

	// Right-align the challenge into randbytes[0..32]; the left remainder
	// stays zero, spec.md §4.C.
	copy(msg.Random[32-len(challenge):], challenge)

	for i := 0; i+3 <= len(cipherBytes); i += 3 {
		b0, b1, b2 := cipherBytes[i], cipherBytes[i+1], cipherBytes[i+2]
		if b0 == 0 && b1 == 0 && b2 == 0xFF {
			msg.SawEmptyRenegSCSV = true
			continue
		}
		if b0 != 0 {
			// A genuine SSLv2-class cipher kind; this engine never
			// negotiates those, so it is simply not added to
			// CipherSuites and will never be matched during selection.
			continue
		}
		msg.CipherSuites = append(msg.CipherSuites, uint16(b1)<<8|uint16(b2))
	}

	return msg, nil
}
