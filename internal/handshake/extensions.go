package handshake

import "github.com/S10143806H/mbedtls/internal/wire"

// Extension type ids this engine recognises, spec.md §4.B. Anything else
// is walked over and skipped.
const (
	extServerName          uint16 = 0
	extSupportedGroups     uint16 = 10
	extECPointFormats      uint16 = 11
	extSignatureAlgorithms uint16 = 13
	extRenegotiationInfo   uint16 = 0xff01
)

// hashPreference is the ordered preference signature_algorithms walks,
// spec.md §4.B: "{SHA512, SHA384, SHA256, SHA224, SHA1, MD5}".
var hashPreference = []HashAlgorithm{HashSHA512, HashSHA384, HashSHA256, HashSHA224, HashSHA1, HashMD5}

// groupPreference is the set of named groups this server supports,
// {secp192r1, secp224r1, secp256r1, secp384r1, secp521r1}. SelectECCurve
// uses it only as a membership test; the client's order decides which
// group is chosen.
var groupPreference = []NamedGroup{GroupSecp192r1, GroupSecp224r1, GroupSecp256r1, GroupSecp384r1, GroupSecp521r1}

// parseExtensions walks every (id, length, body) triple in the ClientHello
// extensions block, spec.md §4.C step 7 / §4.B. Each extension header is 4
// bytes; the body length must consume exactly `length` bytes, and any
// slack left in extBytes after the last extension is a protocol error.
func parseExtensions(extBytes []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(extBytes)
	for !r.Empty() {
		id, ok := r.Uint16()
		if !ok {
			return newErr(ErrBadClientHello, "truncated extension header")
		}
		body, ok := r.Uint16LengthPrefixed()
		if !ok {
			return newErr(ErrBadClientHello, "truncated extension body")
		}
		switch id {
		case extServerName:
			if err := parseServerName(body, msg); err != nil {
				return err
			}
		case extRenegotiationInfo:
			if err := parseRenegotiationInfoExt(body, msg); err != nil {
				return err
			}
		case extSignatureAlgorithms:
			if err := parseSignatureAlgorithms(body, msg); err != nil {
				return err
			}
		case extSupportedGroups:
			if err := parseSupportedGroups(body, msg); err != nil {
				return err
			}
		case extECPointFormats:
			if err := parseECPointFormats(body, msg); err != nil {
				return err
			}
		default:
			// Unknown extensions are skipped, spec.md §4.B.
		}
	}
	return nil
}

// parseServerName implements spec.md §4.B "server_name". The SNI callback
// itself is invoked by the caller (it needs ConnParams and alert access
// this package-internal parser doesn't have); this only extracts the first
// host_name entry.
func parseServerName(body []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(body)
	list, ok := r.Uint16LengthPrefixed()
	if !ok {
		return newErr(ErrBadClientHello, "bad server_name list")
	}
	lr := wire.NewReader(list)
	for !lr.Empty() {
		nameType, ok := lr.Uint8()
		if !ok {
			return newErr(ErrBadClientHello, "truncated server_name entry")
		}
		name, ok := lr.Uint16LengthPrefixed()
		if !ok {
			return newErr(ErrBadClientHello, "truncated server_name value")
		}
		if nameType == 0 && msg.ServerName == nil {
			msg.ServerName = name
		}
	}
	return nil
}

// parseRenegotiationInfoExt only extracts the raw body; whether an empty
// single zero byte or a verify-data echo is required depends on whether
// this is an initial handshake or a renegotiation, which is Engine-level
// context (spec.md §4.G), so validation happens there.
func parseRenegotiationInfoExt(body []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(body)
	info, ok := r.Uint8LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientHello, "bad renegotiation_info extension")
	}
	msg.SawRenegotiationInfo = true
	msg.RenegotiationInfo = info
	return nil
}

// parseSignatureAlgorithms implements spec.md §4.B "signature_algorithms".
func parseSignatureAlgorithms(body []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(body)
	list, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() || len(list)%2 != 0 {
		return newErr(ErrBadClientHello, "bad signature_algorithms list")
	}
	lr := wire.NewReader(list)
	for !lr.Empty() {
		h, ok1 := lr.Uint8()
		s, ok2 := lr.Uint8()
		if !ok1 || !ok2 {
			return newErr(ErrBadClientHello, "truncated signature_algorithms pair")
		}
		msg.SigAndHashes = append(msg.SigAndHashes, SigAndHash{Hash: HashAlgorithm(h), Sig: SignatureAlgorithm(s)})
	}
	return nil
}

// SelectSigAlg walks the parsed signature_algorithms pairs in the fixed
// hash preference order restricted to RSA signatures, spec.md §4.B. It
// returns HashNone (and false) if no RSA pair matched.
func (msg *ClientHelloMsg) SelectSigAlg() (HashAlgorithm, bool) {
	for _, want := range hashPreference {
		for _, pair := range msg.SigAndHashes {
			if pair.Sig == SignatureRSA && pair.Hash == want {
				return want, true
			}
		}
	}
	return HashNone, false
}

// parseSupportedGroups implements spec.md §4.B "supported_groups".
func parseSupportedGroups(body []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(body)
	list, ok := r.Uint16LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientHello, "bad supported_groups list")
	}
	lr := wire.NewReader(list)
	for !lr.Empty() {
		id, ok := lr.Uint16()
		if !ok {
			return newErr(ErrBadClientHello, "truncated supported_groups entry")
		}
		msg.SupportedCurves = append(msg.SupportedCurves, NamedGroup(id))
	}
	return nil
}

// SelectECCurve picks the first curve the client advertised, in the
// client's own order, that this server also supports. spec.md §4.B's "first
// match wins" is ambiguous about whose order governs; resolved per
// DESIGN.md in favour of mbedtls's ssl_parse_supported_elliptic_curves
// behaviour (client order), not this server's groupPreference order.
func (msg *ClientHelloMsg) SelectECCurve() (NamedGroup, bool) {
	for _, have := range msg.SupportedCurves {
		for _, want := range groupPreference {
			if have == want {
				return want, true
			}
		}
	}
	return GroupNone, false
}

// parseECPointFormats implements spec.md §4.B "ec_point_formats". Unlike
// the suspicious source behaviour flagged in spec.md §9 (which advances
// from buf+2 instead of buf+1 after the length byte at offset 0), this
// reads the 1-byte length at offset 0 and the data starting at offset 1.
func parseECPointFormats(body []byte, msg *ClientHelloMsg) *Error {
	r := wire.NewReader(body)
	list, ok := r.Uint8LengthPrefixed()
	if !ok || !r.Empty() {
		return newErr(ErrBadClientHello, "bad ec_point_formats list")
	}
	for _, b := range list {
		msg.SupportedPoints = append(msg.SupportedPoints, ECPointFormat(b))
	}
	return nil
}

// SelectECPointFormat picks the first format the client advertised that
// this engine accepts (uncompressed or either ANSI X9.62 compressed form),
// spec.md §4.B.
func (msg *ClientHelloMsg) SelectECPointFormat() (ECPointFormat, bool) {
	for _, f := range msg.SupportedPoints {
		switch f {
		case PointFormatUncompressed, PointFormatANSIX962CompressedPrime, PointFormatANSIX962CompressedChar2:
			return f, true
		}
	}
	return PointFormatUncompressed, false
}
