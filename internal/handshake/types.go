package handshake

// Protocol version numbers as they appear on the wire: major.minor.
const (
	VersionSSL30 = 0x0300
	VersionTLS10 = 0x0301
	VersionTLS11 = 0x0302
	VersionTLS12 = 0x0303
)

// Compression method ids (RFC 5246 §6.2.1 plus the DEFLATE extension used
// by mbedtls when POLARSSL_ZLIB_SUPPORT is compiled in).
type CompressionMethod byte

const (
	CompressionNone    CompressionMethod = 0
	CompressionDeflate CompressionMethod = 1
)

// AuthMode mirrors the mbedtls ssl_set_authmode tri-state.
type AuthMode int

const (
	AuthModeNone AuthMode = iota
	AuthModeOptional
	AuthModeRequired
)

// RenegotiationPolicy is the caller-configured legacy-renegotiation
// behaviour, per spec.md §4.G.
type RenegotiationPolicy int

const (
	PolicyNoRenegotiation RenegotiationPolicy = iota
	PolicyAllowLegacy
	PolicyBreakHandshake
)

// SecureRenegotiationState tracks whether RFC 5746 signalling was observed
// on this connection.
type SecureRenegotiationState int

const (
	RenegotiationNotSupported SecureRenegotiationState = iota
	RenegotiationSecure
	RenegotiationLegacy
)

// HashAlgorithm identifies a signature-hash pair's hash half, using the
// TLS 1.2 SignatureAndHashAlgorithm registry values where they exist.
type HashAlgorithm byte

const (
	HashNone   HashAlgorithm = 0
	HashMD5    HashAlgorithm = 1
	HashSHA1   HashAlgorithm = 2
	HashSHA224 HashAlgorithm = 3
	HashSHA256 HashAlgorithm = 4
	HashSHA384 HashAlgorithm = 5
	HashSHA512 HashAlgorithm = 6
)

// SignatureAlgorithm identifies the signature half; this engine only ever
// requests/accepts RSA signatures (spec.md §4.D/§4.E never mention ECDSA
// client certs), so the constant exists mainly for wire fidelity.
type SignatureAlgorithm byte

const (
	SignatureRSA SignatureAlgorithm = 1
)

// NamedGroup is the subset of RFC 4492 curve ids this engine negotiates.
type NamedGroup uint16

const (
	GroupNone      NamedGroup = 0
	GroupSecp192r1 NamedGroup = 19
	GroupSecp224r1 NamedGroup = 21
	GroupSecp256r1 NamedGroup = 23
	GroupSecp384r1 NamedGroup = 24
	GroupSecp521r1 NamedGroup = 25
)

// ECPointFormat is the subset of RFC 4492 point-format ids this engine
// accepts.
type ECPointFormat byte

const (
	PointFormatUncompressed            ECPointFormat = 0
	PointFormatANSIX962CompressedPrime ECPointFormat = 1
	PointFormatANSIX962CompressedChar2 ECPointFormat = 2
)

// KeyExchangeFamily is the closed set of key-exchange families, used in
// place of the original's compile-time POLARSSL_*_ENABLED blocks.
// ServerKeyExchange generation, ClientKeyExchange parsing and premaster
// derivation switch over it. Go does not check those switches for
// exhaustiveness, so a new family compiles without being wired into all
// three; parseClientKeyExchange's default case reports
// ErrFeatureUnavailable for a family it does not handle.
type KeyExchangeFamily int

const (
	KeyExchangeRSA KeyExchangeFamily = iota
	KeyExchangeDHERSA
	KeyExchangeECDHERSA
	KeyExchangePSK
	KeyExchangeDHEPSK
)

// HasServerKeyExchange reports whether this family emits a
// ServerKeyExchange message (spec.md §4.D).
func (k KeyExchangeFamily) HasServerKeyExchange() bool {
	switch k {
	case KeyExchangeDHERSA, KeyExchangeECDHERSA, KeyExchangeDHEPSK:
		return true
	default:
		return false
	}
}

// IsPSK reports whether this family is one of the PSK variants, which skip
// CertificateRequest/CertificateVerify per spec.md §4.D/§4.E.
func (k KeyExchangeFamily) IsPSK() bool {
	return k == KeyExchangePSK || k == KeyExchangeDHEPSK
}

// IsEC reports whether this family requires a negotiated EC curve.
func (k KeyExchangeFamily) IsEC() bool {
	return k == KeyExchangeECDHERSA
}

// DHParams is the caller-configured (P, G) group used for every DHE
// negotiation on this connection, per spec.md §3 "Connection parameters".
type DHParams struct {
	P []byte
	G []byte
}

// Session is the negotiating-session data of spec.md §3, finalised into
// the caller's session cache on wrapup.
type Session struct {
	Major, Minor byte
	SessionID    []byte
	CipherSuite  uint16
	Compression  CompressionMethod
	Resume       bool
	PeerCert     []byte // leaf certificate, DER, if the peer authenticated
}

// DHContext is the per-negotiation Diffie-Hellman scratch of spec.md §3.
type DHContext struct {
	P, G   []byte
	X      []byte // server's ephemeral private exponent, collaborator-owned
	GX, GY []byte
	K      []byte // shared secret
	Len    int
}

// ECDHContext is the per-negotiation elliptic-curve scratch of spec.md §3.
type ECDHContext struct {
	Group NamedGroup
	D     []byte // server's ephemeral private scalar, collaborator-owned
	Q     []byte // server's ephemeral public point
	Qp    []byte // peer's public point
	Z     []byte // shared secret
}

// Scratch is the per-negotiation handshake state of spec.md §3. It is
// owned exclusively by the Engine that created it and is zeroised on every
// exit path via Scratch.Zero, including error paths.
type Scratch struct {
	RandBytes        [64]byte // client_random || server_random
	SigAlg           HashAlgorithm
	VerifySigAlg     HashAlgorithm
	ECCurve          NamedGroup
	ECPointFormat    ECPointFormat
	DH               DHContext
	ECDH             ECDHContext
	Premaster        []byte
	PeerMaxVersion   uint16
	KeyExchange      KeyExchangeFamily
	SecureRenegState SecureRenegotiationState
	SawSCSV          bool
	ClientVerifyData []byte
	ServerVerifyData []byte
}

// Zero overwrites the sensitive fields of the scratch. Called on every exit
// path per spec.md §3 "premaster is never exposed" and §5 "scoped
// resources... MUST be zeroised/released on every exit path".
func (s *Scratch) Zero() {
	for i := range s.Premaster {
		s.Premaster[i] = 0
	}
	s.Premaster = nil
	for i := range s.DH.X {
		s.DH.X[i] = 0
	}
	for i := range s.DH.K {
		s.DH.K[i] = 0
	}
	for i := range s.ECDH.Z {
		s.ECDH.Z[i] = 0
	}
	for i := range s.ECDH.D {
		s.ECDH.D[i] = 0
	}
	for i := range s.RandBytes {
		s.RandBytes[i] = 0
	}
}
