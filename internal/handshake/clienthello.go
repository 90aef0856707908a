package handshake

import "github.com/S10143806H/mbedtls/internal/wire"

// SigAndHash is a (hash, signature) pair as advertised in
// signature_algorithms (spec.md §4.B).
type SigAndHash struct {
	Hash HashAlgorithm
	Sig  SignatureAlgorithm
}

// ClientHelloMsg is the parsed result of spec.md §4.C, both shapes. Fields
// populated only by the extension walk (§4.B) are zero-valued when the
// relevant extension (or, for the legacy shape, the concept itself) was
// absent.
type ClientHelloMsg struct {
	Major, Minor byte // client's advertised (max) version
	Random       [32]byte
	SessionID    []byte
	CipherSuites []uint16
	Compressions []byte

	Legacy bool // parsed from the SSLv2-compatible shape

	ServerName          []byte
	SawEmptyRenegSCSV    bool
	SawFallbackSCSV      bool
	RenegotiationInfo    []byte // renegotiation_info extension body without its 1-byte length, if sent
	SawRenegotiationInfo bool
	SigAndHashes         []SigAndHash
	SupportedCurves      []NamedGroup
	SupportedPoints      []ECPointFormat

	raw []byte // exact bytes as received; the record layer, not this field, feeds the transcript
}

// parseModernClientHello implements spec.md §4.C "Modern ClientHello",
// steps 2-7 (the record-layer fetch of step 1 already happened in
// RecordLayer.ReadClientHello). body is the full handshake-layer message:
// 1-byte type, 3-byte length, then the content.
func parseModernClientHello(body []byte) (*ClientHelloMsg, *Error) {
	if len(body) < 45 || len(body) > 512 {
		return nil, newErr(ErrBadClientHello, "record length out of range")
	}

	r := wire.NewReader(body)

	msgType, ok := r.Uint8()
	if !ok || msgType != MsgClientHello {
		return nil, newErr(ErrBadClientHello, "not a ClientHello")
	}
	length, ok := r.Uint24()
	if !ok || int(length) != len(body)-4 {
		return nil, newErr(ErrBadClientHello, "handshake length mismatch")
	}

	major, ok := r.Uint8()
	if !ok {
		return nil, newErr(ErrBadClientHello, "truncated version")
	}
	minor, ok := r.Uint8()
	if !ok {
		return nil, newErr(ErrBadClientHello, "truncated version")
	}
	if major != 3 {
		return nil, newErr(ErrBadClientHello, "unsupported record major version")
	}

	msg := &ClientHelloMsg{Major: major, Minor: minor, raw: body}

	random, ok := r.Bytes(32)
	if !ok {
		return nil, newErr(ErrBadClientHello, "truncated client_random")
	}
	copy(msg.Random[:], random)

	sessID, ok := r.Uint8LengthPrefixed()
	if !ok || len(sessID) > 32 {
		return nil, newErr(ErrBadClientHello, "bad session id")
	}
	msg.SessionID = sessID

	cipherBytes, ok := r.Uint16LengthPrefixed()
	if !ok || len(cipherBytes) < 2 || len(cipherBytes) > 256 || len(cipherBytes)%2 != 0 {
		return nil, newErr(ErrBadClientHello, "bad ciphersuite list length")
	}
	cr := wire.NewReader(cipherBytes)
	for !cr.Empty() {
		id, ok := cr.Uint16()
		if !ok {
			return nil, newErr(ErrBadClientHello, "truncated ciphersuite list")
		}
		msg.CipherSuites = append(msg.CipherSuites, id)
		if id == TLSEmptyRenegotiationInfoSCSV {
			msg.SawEmptyRenegSCSV = true
		}
		if id == TLSFallbackSCSV {
			msg.SawFallbackSCSV = true
		}
	}

	compressions, ok := r.Uint8LengthPrefixed()
	if !ok || len(compressions) < 1 || len(compressions) > 16 {
		return nil, newErr(ErrBadClientHello, "bad compression list")
	}
	msg.Compressions = compressions

	if !r.Empty() {
		extBytes, ok := r.Uint16LengthPrefixed()
		if !ok {
			return nil, newErr(ErrBadClientHello, "bad extensions block")
		}
		if !r.Empty() {
			return nil, newErr(ErrBadClientHello, "trailing bytes after extensions")
		}
		if err := parseExtensions(extBytes, msg); err != nil {
			return nil, err
		}
	}

	return msg, nil
}
