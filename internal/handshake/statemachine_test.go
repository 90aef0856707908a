package handshake

import (
	"bytes"
	"crypto/rand"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S10143806H/mbedtls/internal/wire"
)

// fakeTranscript is a minimal TranscriptHash: this package's tests only care
// that the engine drives the collaborator correctly, not that any real
// digest comes out the other end (that's pkg/cryptoadapters' concern).
type fakeTranscript struct {
	buf        bytes.Buffer
	legacySum  []byte
	hashSum    []byte
}

func newFakeTranscript() *fakeTranscript {
	return &fakeTranscript{legacySum: []byte("legacy-36-byte-digest"), hashSum: []byte("sha256-digest")}
}

func (f *fakeTranscript) Write(p []byte) (int, error) { return f.buf.Write(p) }
func (f *fakeTranscript) Clone() TranscriptHash {
	clone := &fakeTranscript{legacySum: f.legacySum, hashSum: f.hashSum}
	clone.buf.Write(f.buf.Bytes())
	return clone
}
func (f *fakeTranscript) SumLegacy() []byte                { return f.legacySum }
func (f *fakeTranscript) SumHash(HashAlgorithm) []byte      { return f.hashSum }

type readEntry struct {
	msgType byte
	body    []byte
}

// fakeRecordLayer is a wholly in-memory handshake.RecordLayer: the engine
// under test never touches real bytes on a wire, it only exercises the
// collaborator contract collaborators.go declares.
type fakeRecordLayer struct {
	clientHelloBody []byte
	clientHelloLegacy bool
	clientHelloCalled bool

	readQueue []readEntry
	readIdx   int

	written       []readEntry
	ccsWrites     int
	ccsReads      int
	flushes       int
	alertsSent    []AlertDescription
	derivedKeys   bool
	boundTranscript TranscriptHash
}

func (f *fakeRecordLayer) ReadClientHello() (bool, []byte, error) {
	f.clientHelloCalled = true
	return f.clientHelloLegacy, f.clientHelloBody, nil
}

func (f *fakeRecordLayer) ReadHandshake() (byte, []byte, error) {
	if f.readIdx >= len(f.readQueue) {
		return 0, nil, io.ErrUnexpectedEOF
	}
	e := f.readQueue[f.readIdx]
	f.readIdx++
	return e.msgType, e.body, nil
}

func (f *fakeRecordLayer) ReadChangeCipherSpec() error {
	f.ccsReads++
	return nil
}

func (f *fakeRecordLayer) WriteHandshake(msgType byte, body []byte) error {
	f.written = append(f.written, readEntry{msgType, body})
	return nil
}

func (f *fakeRecordLayer) WriteChangeCipherSpec() error {
	f.ccsWrites++
	return nil
}

func (f *fakeRecordLayer) SendAlert(level AlertLevel, desc AlertDescription) error {
	f.alertsSent = append(f.alertsSent, desc)
	return nil
}

func (f *fakeRecordLayer) Flush() error {
	f.flushes++
	return nil
}

func (f *fakeRecordLayer) DeriveKeys(masterSecret []byte, clientRandom, serverRandom [32]byte, cipherSuite uint16, isServer bool) error {
	f.derivedKeys = true
	return nil
}

func (f *fakeRecordLayer) BindTranscript(t TranscriptHash) { f.boundTranscript = t }

type fakeFinished struct {
	serverVD, clientVD []byte
}

func (f fakeFinished) ServerVerifyData(TranscriptHash, []byte) []byte { return f.serverVD }
func (f fakeFinished) ClientVerifyData(TranscriptHash, []byte) []byte { return f.clientVD }

func pskClientKeyExchangeBody(t *testing.T, identity []byte) []byte {
	t.Helper()
	w := wire.NewWriter()
	w.Uint16LengthPrefixed(func(c *wire.Writer) { c.Bytes(identity) })
	body, err := w.Finish()
	require.NoError(t, err)
	return body
}

// runPSKHandshake drives a full server handshake for a plain-PSK suite (no
// certificates, no CertificateRequest) to StateHandshakeOver and returns the
// Engine and its fakeRecordLayer for assertions.
func runPSKHandshake(t *testing.T, identity []byte, clientVD, serverVD []byte) (*Engine, *fakeRecordLayer) {
	t.Helper()

	pskIdentity := []byte("client-1")
	pskKey := []byte("shared-secret-key")

	clientHelloBody := buildClientHelloBody(t, 3, []uint16{TLSPSKWithAES128CBCSHA}, nil)

	rl := &fakeRecordLayer{
		clientHelloBody: clientHelloBody,
		readQueue: []readEntry{
			{MsgClientKeyExchange, pskClientKeyExchangeBody(t, identity)},
			{MsgFinished, clientVD},
		},
	}

	params := &ConnParams{
		MinMinor:     0,
		MaxMinor:     3,
		CipherSuites: CipherSuitePreferences{3: {TLSPSKWithAES128CBCSHA}},
		PSKIdentity:  pskIdentity,
		PSKKey:       pskKey,
		AuthMode:     AuthModeNone,
		RNG:          rand.Reader,
		Finished:     fakeFinished{serverVD: serverVD, clientVD: clientVD},
		MasterSecret: func(premaster []byte, clientRandom, serverRandom [32]byte) []byte {
			return []byte("48-byte-master-secret-placeholder-000000000000")
		},
		NewTranscript: func(uint16, uint16) TranscriptHash { return newFakeTranscript() },
	}

	engine := NewEngine(params, rl)
	for {
		done, err := engine.Step()
		require.NoError(t, err)
		if done {
			break
		}
	}
	return engine, rl
}

func TestEnginePSKHandshakeHappyPath(t *testing.T) {
	clientVD := []byte("client-verify-data-1")
	serverVD := []byte("server-verify-data-1")
	engine, rl := runPSKHandshake(t, []byte("client-1"), clientVD, serverVD)

	assert.Equal(t, StateHandshakeOver, engine.State())
	assert.True(t, rl.clientHelloCalled)
	assert.True(t, rl.derivedKeys)
	assert.Equal(t, 1, rl.ccsReads)
	assert.Equal(t, 1, rl.ccsWrites)
	assert.Equal(t, 2, rl.flushes) // after ServerHelloDone, then in FlushBuffers
	assert.Empty(t, rl.alertsSent)

	// ServerHello, ServerHelloDone and server Finished were written; no
	// Certificate/ServerKeyExchange/CertificateRequest for a no-certs PSK
	// suite with AuthModeNone.
	var msgTypes []byte
	for _, w := range rl.written {
		msgTypes = append(msgTypes, w.msgType)
	}
	assert.Equal(t, []byte{MsgServerHello, MsgServerHelloDone, MsgFinished}, msgTypes)
	assert.Equal(t, uint16(TLSPSKWithAES128CBCSHA), engine.Session().CipherSuite)
}

func TestEngineRejectsWrongPSKIdentity(t *testing.T) {
	clientVD := []byte("client-verify-data-1")
	serverVD := []byte("server-verify-data-1")

	pskIdentity := []byte("client-1")
	clientHelloBody := buildClientHelloBody(t, 3, []uint16{TLSPSKWithAES128CBCSHA}, nil)
	rl := &fakeRecordLayer{
		clientHelloBody: clientHelloBody,
		readQueue: []readEntry{
			{MsgClientKeyExchange, pskClientKeyExchangeBody(t, []byte("wrong-identity"))},
			{MsgFinished, clientVD},
		},
	}
	params := &ConnParams{
		MinMinor:     0,
		MaxMinor:     3,
		CipherSuites: CipherSuitePreferences{3: {TLSPSKWithAES128CBCSHA}},
		PSKIdentity:  pskIdentity,
		PSKKey:       []byte("shared-secret-key"),
		AuthMode:     AuthModeNone,
		RNG:          rand.Reader,
		Finished:     fakeFinished{serverVD: serverVD, clientVD: clientVD},
		MasterSecret: func([]byte, [32]byte, [32]byte) []byte { return make([]byte, 48) },
		NewTranscript: func(uint16, uint16) TranscriptHash { return newFakeTranscript() },
	}

	engine := NewEngine(params, rl)
	var lastErr error
	for {
		done, err := engine.Step()
		if err != nil {
			lastErr = err
		}
		if done {
			break
		}
	}
	require.Error(t, lastErr)
	var herr *Error
	require.ErrorAs(t, lastErr, &herr)
	assert.Equal(t, ErrBadClientKeyExchange, herr.Kind)
}

func TestEngineRejectsMismatchedFinishedVerifyData(t *testing.T) {
	serverVD := []byte("server-verify-data-1")
	_, rl := func() (*Engine, *fakeRecordLayer) {
		pskIdentity := []byte("client-1")
		clientHelloBody := buildClientHelloBody(t, 3, []uint16{TLSPSKWithAES128CBCSHA}, nil)
		rl := &fakeRecordLayer{
			clientHelloBody: clientHelloBody,
			readQueue: []readEntry{
				{MsgClientKeyExchange, pskClientKeyExchangeBody(t, pskIdentity)},
				{MsgFinished, []byte("totally-wrong-verify-data")},
			},
		}
		params := &ConnParams{
			MinMinor:     0,
			MaxMinor:     3,
			CipherSuites: CipherSuitePreferences{3: {TLSPSKWithAES128CBCSHA}},
			PSKIdentity:  pskIdentity,
			PSKKey:       []byte("shared-secret-key"),
			AuthMode:     AuthModeNone,
			RNG:          rand.Reader,
			Finished:     fakeFinished{serverVD: serverVD, clientVD: []byte("client-verify-data-1")},
			MasterSecret: func([]byte, [32]byte, [32]byte) []byte { return make([]byte, 48) },
			NewTranscript: func(uint16, uint16) TranscriptHash { return newFakeTranscript() },
		}
		engine := NewEngine(params, rl)
		var lastErr error
		for {
			done, err := engine.Step()
			if err != nil {
				lastErr = err
			}
			if done {
				break
			}
		}
		require.Error(t, lastErr)
		var herr *Error
		require.ErrorAs(t, lastErr, &herr)
		assert.Equal(t, ErrBadInputData, herr.Kind)
		return engine, rl
	}()
	assert.Contains(t, rl.alertsSent, AlertDecryptError)
}

func TestEngineRejectsNoMutualCipherSuite(t *testing.T) {
	clientHelloBody := buildClientHelloBody(t, 3, []uint16{TLSRSAWithAES256CBCSHA}, nil)
	rl := &fakeRecordLayer{clientHelloBody: clientHelloBody}
	params := &ConnParams{
		MinMinor:      0,
		MaxMinor:      3,
		CipherSuites:  CipherSuitePreferences{3: {TLSRSAWithAES128CBCSHA}},
		RNG:           rand.Reader,
		NewTranscript: func(uint16, uint16) TranscriptHash { return newFakeTranscript() },
	}
	engine := NewEngine(params, rl)
	done, err := engine.Step()
	require.True(t, done)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrNoCipherChosen, herr.Kind)
	assert.Contains(t, rl.alertsSent, AlertHandshakeFailure)
}

func TestEngineStepAfterFailureIsRejected(t *testing.T) {
	clientHelloBody := buildClientHelloBody(t, 3, []uint16{TLSRSAWithAES256CBCSHA}, nil)
	rl := &fakeRecordLayer{clientHelloBody: clientHelloBody}
	params := &ConnParams{
		MinMinor:      0,
		MaxMinor:      3,
		CipherSuites:  CipherSuitePreferences{3: {TLSRSAWithAES128CBCSHA}},
		RNG:           rand.Reader,
		NewTranscript: func(uint16, uint16) TranscriptHash { return newFakeTranscript() },
	}
	engine := NewEngine(params, rl)
	_, _ = engine.Step() // fails, state becomes StateHandshakeOver internally

	done, err := engine.Step()
	assert.True(t, done)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, ErrBadInputData, herr.Kind)
}
