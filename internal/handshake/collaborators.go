package handshake

import (
	"errors"
	"io"
)

// AlertLevel and AlertDescription mirror RFC 5246 §7.2; the record layer
// collaborator is responsible for framing and sending them, the engine only
// picks the values.
type AlertLevel byte

const (
	AlertLevelWarning AlertLevel = 1
	AlertLevelFatal   AlertLevel = 2
)

type AlertDescription byte

const (
	AlertCloseNotify            AlertDescription = 0
	AlertUnexpectedMessage      AlertDescription = 10
	AlertBadRecordMAC           AlertDescription = 20
	AlertHandshakeFailure       AlertDescription = 40
	AlertBadCertificate         AlertDescription = 42
	AlertUnsupportedCertificate AlertDescription = 43
	AlertCertificateExpired     AlertDescription = 45
	AlertIllegalParameter       AlertDescription = 47
	AlertDecodeError            AlertDescription = 50
	AlertDecryptError           AlertDescription = 51
	AlertProtocolVersion        AlertDescription = 70
	AlertInsufficientSecurity   AlertDescription = 71
	AlertInternalError          AlertDescription = 80
	AlertInappropriateFallback  AlertDescription = 86
	AlertUnrecognizedName       AlertDescription = 112
)

// Handshake message type ids, RFC 5246 §7.4.
const (
	MsgHelloRequest       byte = 0
	MsgClientHello        byte = 1
	MsgServerHello        byte = 2
	MsgCertificate        byte = 11
	MsgServerKeyExchange  byte = 12
	MsgCertificateRequest byte = 13
	MsgServerHelloDone    byte = 14
	MsgCertificateVerify  byte = 15
	MsgClientKeyExchange  byte = 16
	MsgFinished           byte = 20
)

// ErrWantIO is returned by a RecordLayer (and propagated verbatim by the
// driver) when the transport would block. It is not a handshake.Error
// because it is not terminal: the caller re-invokes the driver once more
// input/output is possible, per spec.md §5 "Suspension".
var ErrWantIO = errors.New("tls: record layer would block")

// RecordLayer is the out-of-scope collaborator of spec.md §6: framing,
// encryption/MAC, fragmentation and alert I/O live entirely on the other
// side of this interface.
type RecordLayer interface {
	// ReadClientHello resolves the spec.md §4.C shape ambiguity (modern
	// record vs. legacy SSLv2-compatible ClientHello) and returns the raw
	// bytes of whichever shape arrived; legacy reports which. Only valid
	// as the very first read of a negotiation.
	ReadClientHello() (legacy bool, body []byte, err error)
	// ReadHandshake returns the next handshake message's type and body
	// (the body excludes the 4-byte handshake header) and folds the raw
	// bytes (header included) into the transcript hash supplied to
	// BindTranscript. Returns ErrWantIO if more input is needed.
	ReadHandshake() (msgType byte, body []byte, err error)
	// ReadChangeCipherSpec consumes a ChangeCipherSpec record.
	ReadChangeCipherSpec() error
	// WriteHandshake frames and queues a handshake message for output and
	// folds it into the transcript hash.
	WriteHandshake(msgType byte, body []byte) error
	// WriteChangeCipherSpec queues a ChangeCipherSpec record.
	WriteChangeCipherSpec() error
	// SendAlert sends a (possibly fatal) alert; callers still return the
	// corresponding handshake.Error after calling this.
	SendAlert(level AlertLevel, desc AlertDescription) error
	// Flush drains any buffered output.
	Flush() error
	// DeriveKeys invokes the out-of-scope PRF-based key schedule
	// (ssl_derive_keys) and installs the resulting read/write ciphers.
	DeriveKeys(masterSecret []byte, clientRandom, serverRandom [32]byte, cipherSuite uint16, isServer bool) error
	// BindTranscript tells the record layer which TranscriptHash to fold
	// every handshake byte into, in on-wire order, before any message is
	// read or written for this negotiation.
	BindTranscript(t TranscriptHash)
}

// TranscriptHash models the out-of-scope update_checksum/calc_verify
// collaborator: a running digest of every handshake byte observed, with the
// ability to snapshot (Clone) before it is consumed destructively for
// Finished generation, and to produce the two digest shapes this engine
// needs for CertificateVerify: the fixed 36-byte MD5||SHA1 concatenation
// for TLS <= 1.1 and a single hash for TLS 1.2.
type TranscriptHash interface {
	io.Writer
	Clone() TranscriptHash
	SumLegacy() []byte             // 16+20 byte MD5||SHA1, TLS <= 1.1
	SumHash(h HashAlgorithm) []byte // single hash, TLS 1.2
}

// FinishedCollaborator models the out-of-scope ChangeCipherSpec/Finished
// generation and verification of spec.md §1.
type FinishedCollaborator interface {
	ServerVerifyData(transcript TranscriptHash, masterSecret []byte) []byte
	ClientVerifyData(transcript TranscriptHash, masterSecret []byte) []byte
}

// RSAKeyHandle is the server's configured signing/decryption key,
// spec.md §3 "private signing/decryption key handle".
type RSAKeyHandle interface {
	ModulusSize() int
	Decrypt(rng io.Reader, ciphertext []byte) ([]byte, error)
	SignPKCS1v15(rng io.Reader, h HashAlgorithm, digest []byte) ([]byte, error)
}

// PeerRSAKey is the client certificate's public key, used by
// CertificateVerify (spec.md §4.E).
type PeerRSAKey interface {
	ModulusSize() int
	VerifyPKCS1v15(h HashAlgorithm, digest []byte, sig []byte) error
}

// DHGroupProvider performs the DH half of spec.md §6's crypto collaborator
// list: "DH parameter copy + make params + read public + compute secret".
type DHGroupProvider interface {
	MakeParams(rng io.Reader, group DHParams) (ctx DHContext, err error)
	ReadPublic(ctx *DHContext, peerGY []byte) error
	ComputeSecret(ctx *DHContext) error
}

// ECDHProvider performs the ECDH half: "init/use-known-dp/make params/read
// public/compute secret".
type ECDHProvider interface {
	SupportedGroups() []NamedGroup
	MakeParams(group NamedGroup, rng io.Reader) (ctx ECDHContext, err error)
	ReadPublic(ctx *ECDHContext, peerPoint []byte) error
	ComputeSecret(ctx *ECDHContext) error
}

// CertificateProvider is the out-of-scope "Certificate chain parsing and
// emission" collaborator of spec.md §1 (ssl_write_certificate /
// ssl_parse_certificate). The engine only decides *when* to call it (never
// for PSK/DHE-PSK suites) and folds the resulting bytes into the
// transcript via the normal WriteHandshake/ReadHandshake path.
type CertificateProvider interface {
	ServerCertificateBody() ([]byte, error)
	ParseClientCertificateBody(body []byte) (rawCerts [][]byte, peerKey PeerRSAKey, err error)
}

// SNICallback inspects the ClientHello host_name and may reject it,
// spec.md §4.B "server_name".
type SNICallback func(hostName []byte) error

// MasterSecretDeriver turns a premaster secret into the 48-byte TLS master
// secret, spec.md §1's out-of-scope "key derivation (PRF)" collaborator.
// The engine needs the result itself (not just installed ciphers) because
// FinishedCollaborator.ServerVerifyData/ClientVerifyData both take the
// master secret directly, so this is modelled as its own function
// collaborator rather than folded into RecordLayer.DeriveKeys.
type MasterSecretDeriver func(premaster []byte, clientRandom, serverRandom [32]byte) []byte

// SessionCache is the caller-supplied resumption store, spec.md §6
// "session-cache get callback". Its layout is opaque to this package; the
// engine only ever round-trips the *Session and master secret it is given.
type SessionCache interface {
	Get(sessionID []byte) (sess *Session, masterSecret []byte, hit bool)
	Put(sessionID []byte, sess *Session, masterSecret []byte)
}

// CipherSuitePreferences is the server's ordered ciphersuite list for one
// negotiated minor version, spec.md §3 "server preference list of
// ciphersuites per minor version".
type CipherSuitePreferences map[byte][]uint16

// ConnParams is the caller-supplied, read-only-for-the-core configuration
// of spec.md §3.
type ConnParams struct {
	MinMinor, MaxMinor byte
	CipherSuites       CipherSuitePreferences
	EnableDeflate      bool
	AllowSSLv2Hello    bool // legacy SSLv2-compatible ClientHello capability

	DH     DHParams
	RSAKey RSAKeyHandle
	CAChain [][]byte // subject DN bytes, one per configured CA, in order

	PSKIdentity []byte
	PSKKey      []byte

	AuthMode            AuthMode
	RenegotiationPolicy RenegotiationPolicy

	SNI          SNICallback
	SessionCache SessionCache
	RNG          io.Reader

	DHProvider    DHGroupProvider
	ECDHProvider  ECDHProvider
	Finished      FinishedCollaborator
	Cert          CertificateProvider
	MasterSecret  MasterSecretDeriver
	NewTranscript func(cipherSuite uint16, version uint16) TranscriptHash
}
