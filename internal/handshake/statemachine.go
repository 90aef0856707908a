package handshake

import (
	"errors"
	"io"
	"time"
)

// State is one node of spec.md §4.F's server handshake state list. The
// zero value is never a running state; every Engine starts at
// StateClientHello (or StateHelloRequest for a server-initiated
// renegotiation) and ends at StateHandshakeOver.
type State int

const (
	StateHelloRequest State = iota
	StateClientHello
	StateServerHello
	StateServerCertificate
	StateServerKeyExchange
	StateCertificateRequest
	StateServerHelloDone
	StateClientCertificate
	StateClientKeyExchange
	StateCertificateVerify
	StateClientChangeCipherSpec
	StateClientFinished
	StateServerChangeCipherSpec
	StateServerFinished
	StateFlushBuffers
	StateHandshakeWrapup
	StateHandshakeOver
)

func (s State) String() string {
	switch s {
	case StateHelloRequest:
		return "HelloRequest"
	case StateClientHello:
		return "ClientHello"
	case StateServerHello:
		return "ServerHello"
	case StateServerCertificate:
		return "ServerCertificate"
	case StateServerKeyExchange:
		return "ServerKeyExchange"
	case StateCertificateRequest:
		return "CertificateRequest"
	case StateServerHelloDone:
		return "ServerHelloDone"
	case StateClientCertificate:
		return "ClientCertificate"
	case StateClientKeyExchange:
		return "ClientKeyExchange"
	case StateCertificateVerify:
		return "CertificateVerify"
	case StateClientChangeCipherSpec:
		return "ClientChangeCipherSpec"
	case StateClientFinished:
		return "ClientFinished"
	case StateServerChangeCipherSpec:
		return "ServerChangeCipherSpec"
	case StateServerFinished:
		return "ServerFinished"
	case StateFlushBuffers:
		return "FlushBuffers"
	case StateHandshakeWrapup:
		return "HandshakeWrapup"
	case StateHandshakeOver:
		return "HandshakeOver"
	default:
		return "Unknown"
	}
}

// Engine drives one server-side handshake negotiation to completion one
// Step() at a time. It owns a Scratch for the lifetime of the negotiation
// and zeroises it on every exit path, success or failure, per spec.md §3
// and §5. An Engine is single-use: once Step() reports done, a new one
// must be created for the next negotiation (a renegotiation included).
type Engine struct {
	params *ConnParams
	rl     RecordLayer

	state State
	failed bool

	scratch *Scratch
	session *Session

	transcript       TranscriptHash
	verifyTranscript TranscriptHash // snapshot for CertificateVerify, taken after ClientKeyExchange

	masterSecret  []byte
	keysInstalled bool

	clientHello          *ClientHelloMsg
	suite                *CipherSuite
	resuming             bool
	requestedClientCert  bool
	peerKey              PeerRSAKey

	isRenegotiation  bool
	secureRenegState SecureRenegotiationState
	prevServerVD     []byte
	prevClientVD     []byte
}

// NewEngine creates an Engine for an initial handshake that waits
// passively for the client's ClientHello — the ordinary case. A
// client-initiated renegotiation is driven through NewRenegotiationEngine
// instead, which carries the prior negotiation's SecureRenegotiationState
// and verify_data.
func NewEngine(params *ConnParams, rl RecordLayer) *Engine {
	return &Engine{
		params:  params,
		rl:      rl,
		state:   StateClientHello,
		scratch: &Scratch{},
		session: &Session{},
	}
}

// NewRenegotiationEngine creates an Engine for a client-initiated
// renegotiation of an already-established connection; priorState,
// serverVD and clientVD come from the predecessor Engine's
// SecureRenegotiationState/OwnVerifyData/PeerVerifyData.
func NewRenegotiationEngine(params *ConnParams, rl RecordLayer, priorState SecureRenegotiationState, serverVD, clientVD []byte) *Engine {
	e := NewEngine(params, rl)
	e.isRenegotiation = true
	e.secureRenegState = priorState
	e.prevServerVD = serverVD
	e.prevClientVD = clientVD
	return e
}

// NewServerInitiatedRenegotiationEngine is NewRenegotiationEngine but also
// sends the initial HelloRequest (spec.md §4.F's HELLO_REQUEST state)
// rather than waiting for the client to initiate.
func NewServerInitiatedRenegotiationEngine(params *ConnParams, rl RecordLayer, priorState SecureRenegotiationState, serverVD, clientVD []byte) *Engine {
	e := NewRenegotiationEngine(params, rl, priorState, serverVD, clientVD)
	e.state = StateHelloRequest
	return e
}

// State reports the state the next Step() call will execute.
func (e *Engine) State() State { return e.state }

// Session exposes the negotiated session; only meaningful once Step() has
// reached StateServerHello or later.
func (e *Engine) Session() *Session { return e.session }

// SecureRenegotiationState, OwnVerifyData and PeerVerifyData are the three
// values a caller must carry forward into NewRenegotiationEngine for this
// connection's next negotiation.
func (e *Engine) SecureRenegotiationState() SecureRenegotiationState { return e.secureRenegState }
func (e *Engine) OwnVerifyData() []byte                              { return e.prevServerVD }
func (e *Engine) PeerVerifyData() []byte                             { return e.prevClientVD }

// Step executes exactly one state transition, per spec.md §4.F's driver
// contract:
//  1. Calling Step() again after it has reported done is itself an error
//     (BadInputData) rather than silently re-running anything.
//  2. Each call performs at most one state transition before returning.
//  3. If the record layer reports ErrWantIO, the state does not advance;
//     the caller re-invokes Step() once more I/O is possible.
//  4. Any other failure is terminal: the Engine zeroises its scratch,
//     moves to StateHandshakeOver internally, and returns the *Error; the
//     caller must not Step() this Engine again.
func (e *Engine) Step() (done bool, err error) {
	if e.state == StateHandshakeOver {
		if e.failed {
			return true, newErr(ErrBadInputData, "handshake already failed; this Engine is no longer usable")
		}
		return true, newErr(ErrBadInputData, "handshake already complete; this Engine is no longer usable")
	}

	var stepErr error
	switch e.state {
	case StateHelloRequest:
		stepErr = e.doHelloRequest()
	case StateClientHello:
		stepErr = e.doClientHello()
	case StateServerHello:
		stepErr = e.doServerHello()
	case StateServerCertificate:
		stepErr = e.doServerCertificate()
	case StateServerKeyExchange:
		stepErr = e.doServerKeyExchange()
	case StateCertificateRequest:
		stepErr = e.doCertificateRequest()
	case StateServerHelloDone:
		stepErr = e.doServerHelloDone()
	case StateClientCertificate:
		stepErr = e.doClientCertificate()
	case StateClientKeyExchange:
		stepErr = e.doClientKeyExchange()
	case StateCertificateVerify:
		stepErr = e.doCertificateVerify()
	case StateClientChangeCipherSpec:
		stepErr = e.doClientChangeCipherSpec()
	case StateClientFinished:
		stepErr = e.doClientFinished()
	case StateServerChangeCipherSpec:
		stepErr = e.doServerChangeCipherSpec()
	case StateServerFinished:
		stepErr = e.doServerFinished()
	case StateFlushBuffers:
		stepErr = e.doFlushBuffers()
	case StateHandshakeWrapup:
		stepErr = e.doWrapup()
	default:
		stepErr = newErr(ErrBadInputData, "unknown state")
	}

	if stepErr != nil {
		if errors.Is(stepErr, ErrWantIO) {
			return false, stepErr
		}
		return true, stepErr
	}
	return e.state == StateHandshakeOver, nil
}

// fatal marks the Engine permanently failed, zeroises sensitive scratch,
// and returns err for Step to propagate.
func (e *Engine) fatal(err *Error) error {
	e.failed = true
	e.state = StateHandshakeOver
	e.scratch.Zero()
	return err
}

// ioErr distinguishes a record layer's ErrWantIO (retry later, not fatal)
// from a genuine transport failure (fatal).
func (e *Engine) ioErr(err error) error {
	if errors.Is(err, ErrWantIO) {
		return ErrWantIO
	}
	return e.fatal(wrapErr(ErrBadInputData, "record layer I/O failed", err))
}

func (e *Engine) doHelloRequest() error {
	if err := e.rl.WriteHandshake(MsgHelloRequest, []byte{MsgHelloRequest, 0, 0, 0}); err != nil {
		return e.ioErr(err)
	}
	if err := e.rl.Flush(); err != nil {
		return e.ioErr(err)
	}
	e.state = StateClientHello
	return nil
}

func (e *Engine) doClientHello() error {
	if e.transcript == nil {
		e.transcript = e.params.NewTranscript(0, 0)
		e.rl.BindTranscript(e.transcript)
	}

	legacy, body, ioErr := e.rl.ReadClientHello()
	if ioErr != nil {
		if errors.Is(ioErr, ErrWantIO) {
			return ErrWantIO
		}
		return e.fatal(wrapErr(ErrBadClientHello, "record layer failed to read ClientHello", ioErr))
	}

	var msg *ClientHelloMsg
	var perr *Error
	if legacy {
		if !e.params.AllowSSLv2Hello {
			return e.fatal(newErr(ErrBadClientHello, "legacy SSLv2-compatible ClientHello shape disabled"))
		}
		msg, perr = parseLegacyClientHello(body)
	} else {
		msg, perr = parseModernClientHello(body)
	}
	if perr != nil {
		return e.fatal(perr)
	}

	negotiatedMinor := msg.Minor
	if negotiatedMinor > e.params.MaxMinor {
		negotiatedMinor = e.params.MaxMinor
	}
	if negotiatedMinor < e.params.MinMinor {
		e.rl.SendAlert(AlertLevelFatal, AlertProtocolVersion)
		return e.fatal(newErr(ErrBadHsProtocolVersion, "client's maximum version is below the configured floor"))
	}

	reneg := evaluateRenegotiation(e.params, e.isRenegotiation, e.secureRenegState, msg, e.prevServerVD, e.prevClientVD)
	if reneg.fatal {
		e.rl.SendAlert(AlertLevelFatal, AlertHandshakeFailure)
		return e.fatal(newErr(ErrBadClientHello, "renegotiation policy violation"))
	}
	e.secureRenegState = reneg.nextState

	if e.params.SNI != nil && msg.ServerName != nil {
		if err := e.params.SNI(msg.ServerName); err != nil {
			e.rl.SendAlert(AlertLevelFatal, AlertUnrecognizedName)
			return e.fatal(wrapErr(ErrBadClientHello, "server_name rejected", err))
		}
	}

	ecAvailable := !msg.Legacy && len(msg.SupportedCurves) > 0
	suite, ok := selectCipherSuite(e.params.CipherSuites, negotiatedMinor, msg.CipherSuites, ecAvailable, len(e.params.PSKIdentity) > 0, len(e.params.DH.P) > 0)
	if !ok {
		e.rl.SendAlert(AlertLevelFatal, AlertHandshakeFailure)
		return e.fatal(newErr(ErrNoCipherChosen, "no mutually acceptable ciphersuite"))
	}

	e.clientHello = msg
	e.suite = suite
	e.scratch.KeyExchange = suite.KeyExchange
	e.scratch.PeerMaxVersion = uint16(msg.Major)<<8 | uint16(msg.Minor)
	copy(e.scratch.RandBytes[:32], msg.Random[:])

	e.session.Major = 3
	e.session.Minor = negotiatedMinor
	e.session.CipherSuite = suite.ID

	if suite.KeyExchange == KeyExchangeECDHERSA {
		curve, ok := msg.SelectECCurve()
		if !ok {
			e.rl.SendAlert(AlertLevelFatal, AlertHandshakeFailure)
			return e.fatal(newErr(ErrNoCipherChosen, "no mutually acceptable EC curve"))
		}
		e.scratch.ECCurve = curve
		if pf, ok := msg.SelectECPointFormat(); ok {
			e.scratch.ECPointFormat = pf
		}
	}

	if negotiatedMinor >= 3 {
		if sigAlg, ok := msg.SelectSigAlg(); ok {
			e.scratch.SigAlg = sigAlg
		} else {
			e.scratch.SigAlg = HashSHA1
		}
	}

	e.resuming = false
	if len(msg.SessionID) > 0 && e.params.SessionCache != nil {
		if sess, ms, hit := e.params.SessionCache.Get(msg.SessionID); hit && sess.CipherSuite == suite.ID {
			e.session = sess
			e.session.Resume = true
			e.masterSecret = ms
			e.resuming = true
		}
	}
	if !e.resuming {
		sessionID := make([]byte, 32)
		if _, err := io.ReadFull(e.params.RNG, sessionID); err != nil {
			return e.fatal(wrapErr(ErrBadInputData, "failed to generate session id", err))
		}
		e.session.SessionID = sessionID
		e.session.Compression = CompressionNone
		if e.params.EnableDeflate {
			for _, c := range msg.Compressions {
				if CompressionMethod(c) == CompressionDeflate {
					e.session.Compression = CompressionDeflate
				}
			}
		}
	}

	e.state = StateServerHello
	return nil
}

func (e *Engine) doServerHello() error {
	serverRandom := e.scratch.RandBytes[32:64]
	fillServerRandomTimestamp(serverRandom, time.Now().Unix())
	if _, err := io.ReadFull(e.params.RNG, serverRandom[4:]); err != nil {
		return e.fatal(wrapErr(ErrBadInputData, "failed to generate server random", err))
	}

	var ownVD, peerVD []byte
	if e.secureRenegState == RenegotiationSecure {
		ownVD, peerVD = e.prevServerVD, e.prevClientVD
	}
	body, perr := buildServerHello(e.session, serverRandom, e.secureRenegState, ownVD, peerVD)
	if perr != nil {
		return e.fatal(perr)
	}
	if err := e.rl.WriteHandshake(MsgServerHello, body); err != nil {
		return e.ioErr(err)
	}

	if e.resuming {
		if perr := e.deriveKeysIfNeeded(); perr != nil {
			return e.fatal(perr)
		}
		e.state = StateServerChangeCipherSpec
		return nil
	}
	e.state = StateServerCertificate
	return nil
}

func (e *Engine) doServerCertificate() error {
	if !e.suite.NoCerts {
		if e.params.Cert == nil {
			return e.fatal(newErr(ErrPrivateKeyRequired, "no certificate provider configured"))
		}
		body, err := e.params.Cert.ServerCertificateBody()
		if err != nil {
			return e.fatal(wrapErr(ErrBadInputData, "failed to build server Certificate message", err))
		}
		if err := e.rl.WriteHandshake(MsgCertificate, body); err != nil {
			return e.ioErr(err)
		}
	}
	e.state = StateServerKeyExchange
	return nil
}

func (e *Engine) doServerKeyExchange() error {
	if perr := e.setupKeyExchangeParams(); perr != nil {
		return e.fatal(perr)
	}
	body, perr := buildServerKeyExchange(e.params, e.scratch, e.session.Minor, e.scratch.RandBytes[:32], e.scratch.RandBytes[32:64])
	if perr != nil {
		return e.fatal(perr)
	}
	if body != nil {
		if err := e.rl.WriteHandshake(MsgServerKeyExchange, body); err != nil {
			return e.ioErr(err)
		}
	}
	e.state = StateCertificateRequest
	return nil
}

func (e *Engine) setupKeyExchangeParams() *Error {
	switch e.scratch.KeyExchange {
	case KeyExchangeDHERSA, KeyExchangeDHEPSK:
		if e.params.DHProvider == nil || len(e.params.DH.P) == 0 {
			return newErr(ErrFeatureUnavailable, "no DH group configured")
		}
		ctx, err := e.params.DHProvider.MakeParams(e.params.RNG, e.params.DH)
		if err != nil {
			return wrapErr(ErrFeatureUnavailable, "DH parameter generation failed", err)
		}
		e.scratch.DH = ctx
	case KeyExchangeECDHERSA:
		if e.params.ECDHProvider == nil {
			return newErr(ErrFeatureUnavailable, "no ECDH provider configured")
		}
		ctx, err := e.params.ECDHProvider.MakeParams(e.scratch.ECCurve, e.params.RNG)
		if err != nil {
			return wrapErr(ErrFeatureUnavailable, "ECDH parameter generation failed", err)
		}
		e.scratch.ECDH = ctx
	}
	return nil
}

func (e *Engine) doCertificateRequest() error {
	if e.suite.NoCerts || e.params.AuthMode == AuthModeNone {
		e.state = StateServerHelloDone
		return nil
	}
	e.scratch.VerifySigAlg = verifySigAlgFor(e.suite)
	body, perr := buildCertificateRequest(e.params, e.session.Minor, e.scratch.VerifySigAlg)
	if perr != nil {
		return e.fatal(perr)
	}
	if err := e.rl.WriteHandshake(MsgCertificateRequest, body); err != nil {
		return e.ioErr(err)
	}
	e.requestedClientCert = true
	e.state = StateServerHelloDone
	return nil
}

func (e *Engine) doServerHelloDone() error {
	if err := e.rl.WriteHandshake(MsgServerHelloDone, buildServerHelloDone()); err != nil {
		return e.ioErr(err)
	}
	if err := e.rl.Flush(); err != nil {
		return e.ioErr(err)
	}
	if e.requestedClientCert {
		e.state = StateClientCertificate
	} else {
		e.state = StateClientKeyExchange
	}
	return nil
}

func (e *Engine) doClientCertificate() error {
	msgType, body, ioErr := e.rl.ReadHandshake()
	if ioErr != nil {
		return e.ioErr(ioErr)
	}
	if msgType != MsgCertificate {
		return e.fatal(newErr(ErrBadInputData, "expected client Certificate"))
	}
	rawCerts, peerKey, err := e.params.Cert.ParseClientCertificateBody(body)
	if err != nil {
		e.rl.SendAlert(AlertLevelFatal, AlertBadCertificate)
		return e.fatal(wrapErr(ErrBadInputData, "client certificate rejected", err))
	}
	if len(rawCerts) == 0 {
		if e.params.AuthMode == AuthModeRequired {
			e.rl.SendAlert(AlertLevelFatal, AlertHandshakeFailure)
			return e.fatal(newErr(ErrBadInputData, "client certificate required but not sent"))
		}
	} else {
		e.session.PeerCert = rawCerts[0]
		e.peerKey = peerKey
	}
	e.state = StateClientKeyExchange
	return nil
}

func (e *Engine) doClientKeyExchange() error {
	msgType, body, ioErr := e.rl.ReadHandshake()
	if ioErr != nil {
		return e.ioErr(ioErr)
	}
	if msgType != MsgClientKeyExchange {
		return e.fatal(newErr(ErrBadClientKeyExchange, "expected ClientKeyExchange"))
	}
	parser := parseClientKeyExchange(e.params, e.scratch)
	if perr := parser(reassembleHandshakeBody(msgType, body)); perr != nil {
		return e.fatal(perr)
	}
	if e.peerKey != nil {
		e.verifyTranscript = e.transcript.Clone()
		e.state = StateCertificateVerify
		return nil
	}
	e.state = StateClientChangeCipherSpec
	return nil
}

func (e *Engine) doCertificateVerify() error {
	msgType, body, ioErr := e.rl.ReadHandshake()
	if ioErr != nil {
		return e.ioErr(ioErr)
	}
	if msgType != MsgCertificateVerify {
		return e.fatal(newErr(ErrBadCertificateVerify, "expected CertificateVerify"))
	}
	if perr := parseCertificateVerify(e.session.Minor, e.scratch.VerifySigAlg, e.peerKey, e.verifyTranscript, reassembleHandshakeBody(msgType, body)); perr != nil {
		e.rl.SendAlert(AlertLevelFatal, AlertDecryptError)
		return e.fatal(perr)
	}
	e.state = StateClientChangeCipherSpec
	return nil
}

func (e *Engine) doClientChangeCipherSpec() error {
	if err := e.rl.ReadChangeCipherSpec(); err != nil {
		return e.ioErr(err)
	}
	if perr := e.deriveKeysIfNeeded(); perr != nil {
		return e.fatal(perr)
	}
	e.state = StateClientFinished
	return nil
}

func (e *Engine) doClientFinished() error {
	expected := e.params.Finished.ClientVerifyData(e.transcript, e.masterSecret)
	msgType, body, ioErr := e.rl.ReadHandshake()
	if ioErr != nil {
		return e.ioErr(ioErr)
	}
	if msgType != MsgFinished {
		return e.fatal(newErr(ErrBadInputData, "expected client Finished"))
	}
	if !bytesEqual(body, expected) {
		e.rl.SendAlert(AlertLevelFatal, AlertDecryptError)
		return e.fatal(newErr(ErrBadInputData, "Finished verify_data mismatch"))
	}
	e.scratch.ClientVerifyData = expected
	e.prevClientVD = expected

	if e.resuming {
		e.state = StateFlushBuffers
		return nil
	}
	e.state = StateServerChangeCipherSpec
	return nil
}

func (e *Engine) doServerChangeCipherSpec() error {
	if err := e.rl.WriteChangeCipherSpec(); err != nil {
		return e.ioErr(err)
	}
	e.state = StateServerFinished
	return nil
}

func (e *Engine) doServerFinished() error {
	vd := e.params.Finished.ServerVerifyData(e.transcript, e.masterSecret)
	if err := e.rl.WriteHandshake(MsgFinished, vd); err != nil {
		return e.ioErr(err)
	}
	e.scratch.ServerVerifyData = vd
	e.prevServerVD = vd

	if e.resuming {
		e.state = StateClientChangeCipherSpec
		return nil
	}
	e.state = StateFlushBuffers
	return nil
}

func (e *Engine) doFlushBuffers() error {
	if err := e.rl.Flush(); err != nil {
		return e.ioErr(err)
	}
	e.state = StateHandshakeWrapup
	return nil
}

func (e *Engine) doWrapup() error {
	if !e.resuming && e.params.SessionCache != nil {
		e.params.SessionCache.Put(e.session.SessionID, e.session, e.masterSecret)
	}
	e.scratch.Zero()
	e.state = StateHandshakeOver
	return nil
}

// deriveKeysIfNeeded computes the master secret (if this negotiation
// wasn't resumed from the session cache, where it was already known) and
// installs record-layer keys exactly once, spec.md §1's out-of-scope
// "key derivation (PRF)" / ssl_derive_keys collaborator.
func (e *Engine) deriveKeysIfNeeded() *Error {
	if e.keysInstalled {
		return nil
	}
	var cr, sr [32]byte
	copy(cr[:], e.scratch.RandBytes[:32])
	copy(sr[:], e.scratch.RandBytes[32:64])

	if e.masterSecret == nil {
		if e.params.MasterSecret == nil {
			return newErr(ErrFeatureUnavailable, "no master secret deriver configured")
		}
		e.masterSecret = e.params.MasterSecret(e.scratch.Premaster, cr, sr)
	}
	if err := e.rl.DeriveKeys(e.masterSecret, cr, sr, e.session.CipherSuite, true); err != nil {
		return wrapErr(ErrFeatureUnavailable, "key derivation failed", err)
	}
	e.keysInstalled = true
	return nil
}

// reassembleHandshakeBody restores the 4-byte type+length header that
// RecordLayer.ReadHandshake strips, so the parsers in this package (which
// validate their own header, matching parseModernClientHello's contract)
// have a single, consistent input shape regardless of which RecordLayer
// entry point produced it.
func reassembleHandshakeBody(msgType byte, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = msgType
	n := len(body)
	out[1] = byte(n >> 16)
	out[2] = byte(n >> 8)
	out[3] = byte(n)
	copy(out[4:], body)
	return out
}
