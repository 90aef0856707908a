package tlsserver

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/pkg/cryptoadapters"
	"go.uber.org/zap"
)

// TLS record content types, RFC 5246 §6.2.1.
const (
	contentChangeCipherSpec byte = 20
	contentAlert            byte = 21
	contentHandshake        byte = 22
	contentApplicationData  byte = 23
)

const maxRecordPayload = 1 << 14 // RFC 5246 §6.2.1

// cipherState is one direction's (read or write) installed bulk cipher,
// nil until DeriveKeys has run.
type cipherState struct {
	seq uint64

	// CBC
	block  cipher.Block
	mac    func(key []byte) macHash
	macKey []byte
	macLen int

	// GCM
	aead    cipher.AEAD
	fixedIV []byte
}

func (c *cipherState) nextSeq() uint64 {
	v := c.seq
	c.seq++
	return v
}

// pendingRecord is one queued-but-unflushed outbound record. RecordLayer
// frames and (if a write cipher is installed) encrypts it only when Flush
// runs, the way a real record layer coalesces a handshake flight into as
// few TCP writes as practical.
type pendingRecord struct {
	contentType byte
	payload     []byte
}

// RecordLayer is the out-of-scope collaborator of spec.md §1/§6
// (handshake.RecordLayer): TLS record framing, fragmentation, the
// ChangeCipherSpec/alert content types, and bulk-cipher install after key
// derivation. It intentionally does not implement every defensive measure
// a production record layer needs (padding-oracle-hardened CBC decryption,
// out-of-order/duplicate record rejection windows) — full record-layer
// crypto is explicitly out of scope per spec.md §1; this exists to drive
// the handshake engine over a real net.Conn for the accompanying listener
// and tests, not to be a hardened TLS implementation.
type RecordLayer struct {
	conn    net.Conn
	logger  *zap.Logger
	version uint16 // record header framing version; cosmetic, see NewRecordLayer

	// session, once bound, lets DeriveKeys read the actually-negotiated
	// version for key_block PRF dispatch (TLS 1.2 vs legacy) instead of
	// the fixed framing version above; BindSession must be called before
	// the first Step() that could reach ClientHello processing.
	session *handshake.Session

	transcript handshake.TranscriptHash

	pending []pendingRecord

	readBuf []byte // undecoded bytes read from conn, not yet a full record
	hsBuf   []byte // decrypted handshake-content bytes, not yet a full message

	readCipher  *cipherState
	writeCipher *cipherState
	suite       uint16
}

// NewRecordLayer wraps conn. version is the record header's advertised
// version (the negotiated minor version becomes known only after
// ClientHello, so the listener starts this at the configured floor and the
// value is cosmetic: peers are not expected to reject it).
func NewRecordLayer(conn net.Conn, version uint16, logger *zap.Logger) *RecordLayer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordLayer{conn: conn, version: version, logger: logger}
}

func (r *RecordLayer) BindTranscript(t handshake.TranscriptHash) { r.transcript = t }

// BindSession lets this record layer see the negotiated version as soon as
// ClientHello processing sets it, for DeriveKeys' PRF dispatch. s is the
// *handshake.Session the owning Engine mutates in place.
func (r *RecordLayer) BindSession(s *handshake.Session) { r.session = s }

// negotiatedVersion reports the session's version once ClientHello
// processing has set it (Session.Major is 0 only before that point), and
// falls back to the cosmetic framing version otherwise.
func (r *RecordLayer) negotiatedVersion() uint16 {
	if r.session != nil && r.session.Major != 0 {
		return uint16(r.session.Major)<<8 | uint16(r.session.Minor)
	}
	return r.version
}

// ReadClientHello distinguishes the legacy SSLv2-compatible record shape
// (RFC 5246 Appendix E.2: top bit of the first length byte set, no content
// type or version field) from an ordinary TLS record carrying a ClientHello.
func (r *RecordLayer) ReadClientHello() (legacy bool, body []byte, err error) {
	first, err := r.peekByte()
	if err != nil {
		return false, nil, err
	}

	if first&0x80 != 0 {
		lenHi, err := r.readN(1)
		if err != nil {
			return false, nil, err
		}
		lenLo, err := r.readN(1)
		if err != nil {
			return false, nil, err
		}
		n := int(lenHi[0]&0x7f)<<8 | int(lenLo[0])
		content, err := r.readN(n)
		if err != nil {
			return false, nil, err
		}
		r.foldTranscript(reassembleLegacyHeader(content))
		return true, content, nil
	}

	msgType, body, err := r.ReadHandshake()
	if err != nil {
		return false, nil, err
	}
	if msgType != handshake.MsgClientHello {
		return false, nil, fmt.Errorf("tlsserver: expected ClientHello, got message type %d", msgType)
	}
	return false, reassembleHeader(msgType, body), nil
}

// ReadHandshake returns the next handshake message, reading and decrypting
// further TLS records as needed, and folds the header-included bytes into
// the bound transcript.
func (r *RecordLayer) ReadHandshake() (msgType byte, body []byte, err error) {
	for {
		if len(r.hsBuf) >= 4 {
			n := int(r.hsBuf[1])<<16 | int(r.hsBuf[2])<<8 | int(r.hsBuf[3])
			if len(r.hsBuf) >= 4+n {
				msg := r.hsBuf[:4+n]
				r.hsBuf = r.hsBuf[4+n:]
				r.foldTranscript(msg)
				return msg[0], msg[4:], nil
			}
		}
		ct, payload, err := r.readRecord()
		if err != nil {
			return 0, nil, err
		}
		if ct != contentHandshake {
			return 0, nil, fmt.Errorf("tlsserver: expected handshake record, got content type %d", ct)
		}
		r.hsBuf = append(r.hsBuf, payload...)
	}
}

func (r *RecordLayer) ReadChangeCipherSpec() error {
	ct, payload, err := r.readRecord()
	if err != nil {
		return err
	}
	if ct != contentChangeCipherSpec || len(payload) != 1 || payload[0] != 1 {
		return errors.New("tlsserver: expected ChangeCipherSpec record")
	}
	return nil
}

func (r *RecordLayer) WriteHandshake(msgType byte, body []byte) error {
	msg := reassembleHeader(msgType, body)
	r.foldTranscript(msg)
	r.pending = append(r.pending, pendingRecord{contentType: contentHandshake, payload: msg})
	return nil
}

func (r *RecordLayer) WriteChangeCipherSpec() error {
	r.pending = append(r.pending, pendingRecord{contentType: contentChangeCipherSpec, payload: []byte{1}})
	return nil
}

func (r *RecordLayer) SendAlert(level handshake.AlertLevel, desc handshake.AlertDescription) error {
	r.logger.Warn("sending alert", zap.Uint8("level", byte(level)), zap.Uint8("description", byte(desc)))
	rec, err := r.frameRecord(contentAlert, []byte{byte(level), byte(desc)})
	if err != nil {
		return err
	}
	_, err = r.conn.Write(rec)
	return err
}

func (r *RecordLayer) Flush() error {
	var out []byte
	for _, p := range r.pending {
		rec, err := r.frameRecord(p.contentType, p.payload)
		if err != nil {
			return err
		}
		out = append(out, rec...)
	}
	r.pending = nil
	if len(out) == 0 {
		return nil
	}
	_, err := r.conn.Write(out)
	return err
}

// DeriveKeys installs the record layer's bulk ciphers from the handshake's
// master secret, RFC 5246 §6.3's key_block expansion. Both directions are
// installed together regardless of isServer, since this record layer always
// plays the server role; the parameter exists for interface symmetry with a
// client-side record layer spec.md's Non-goals exclude building here.
func (r *RecordLayer) DeriveKeys(masterSecret []byte, clientRandom, serverRandom [32]byte, cipherSuite uint16, isServer bool) error {
	params, ok := recordParamsFor(cipherSuite)
	if !ok {
		return fmt.Errorf("tlsserver: no record cipher parameters for suite 0x%04x", cipherSuite)
	}
	r.suite = cipherSuite
	block := cryptoadapters.KeyExpansion(r.negotiatedVersion(), masterSecret, serverRandom, clientRandom, params.keyBlockLen())

	off := 0
	take := func(n int) []byte {
		b := block[off : off+n]
		off += n
		return b
	}

	var clientMACKey, serverMACKey []byte
	if params.macLen > 0 {
		clientMACKey = take(params.macLen)
		serverMACKey = take(params.macLen)
	}
	clientKey := take(params.keyLen)
	serverKey := take(params.keyLen)
	var clientFixedIV, serverFixedIV []byte
	if params.fixedIV > 0 {
		clientFixedIV = take(params.fixedIV)
		serverFixedIV = take(params.fixedIV)
	}

	readState, err := newCipherState(params, clientKey, clientMACKey, clientFixedIV)
	if err != nil {
		return err
	}
	writeState, err := newCipherState(params, serverKey, serverMACKey, serverFixedIV)
	if err != nil {
		return err
	}
	r.readCipher = readState
	r.writeCipher = writeState
	return nil
}

// newCipherState builds one direction's cipher. CBC records always carry an
// explicit per-record IV (the TLS 1.1+ scheme, RFC 4346 §6.2.3.2) even when
// the negotiated version is SSLv3/TLS 1.0, rather than the implicit
// key_block-derived chaining IV those versions specify — a deliberate
// simplification of an out-of-scope concern (spec.md §1) that keeps one
// code path instead of two for a record layer that exists to exercise the
// handshake engine, not to be wire-compatible with legacy CBC chaining.
func newCipherState(p recordCipherParams, key, macKey, fixedIV []byte) (*cipherState, error) {
	switch p.kind {
	case recordCipherGCM:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, err
		}
		return &cipherState{aead: aead, fixedIV: fixedIV}, nil
	default:
		block, err := aes.NewCipher(key)
		if err != nil {
			return nil, err
		}
		return &cipherState{block: block, mac: p.macNew, macKey: macKey, macLen: p.macLen}, nil
	}
}

// readRecord reads and, if a read cipher is installed, decrypts exactly one
// TLS record.
func (r *RecordLayer) readRecord() (contentType byte, payload []byte, err error) {
	hdr, err := r.readN(5)
	if err != nil {
		return 0, nil, err
	}
	contentType = hdr[0]
	n := int(binary.BigEndian.Uint16(hdr[3:5]))
	if n > maxRecordPayload+2048 {
		return 0, nil, errors.New("tlsserver: oversized record")
	}
	raw, err := r.readN(n)
	if err != nil {
		return 0, nil, err
	}
	if r.readCipher == nil {
		return contentType, raw, nil
	}
	plain, err := r.decrypt(contentType, raw)
	if err != nil {
		return 0, nil, err
	}
	return contentType, plain, nil
}

func (r *RecordLayer) frameRecord(contentType byte, payload []byte) ([]byte, error) {
	body := payload
	if r.writeCipher != nil {
		var err error
		body, err = r.encrypt(contentType, payload)
		if err != nil {
			return nil, err
		}
	}
	hdr := make([]byte, 5)
	hdr[0] = contentType
	binary.BigEndian.PutUint16(hdr[1:3], r.version)
	binary.BigEndian.PutUint16(hdr[3:5], uint16(len(body)))
	return append(hdr, body...), nil
}

func seqBytes(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func (r *RecordLayer) encrypt(contentType byte, payload []byte) ([]byte, error) {
	c := r.writeCipher
	if c.aead != nil {
		nonce := make([]byte, 8)
		if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
			return nil, err
		}
		iv := append(append([]byte(nil), c.fixedIV...), nonce...)
		additional := aeadAdditionalData(c.nextSeq(), contentType, r.version, len(payload))
		sealed := c.aead.Seal(nil, iv, payload, additional)
		return append(nonce, sealed...), nil
	}

	mac := c.mac(c.macKey)
	mac.Write(macAdditionalData(c.nextSeq(), contentType, r.version, len(payload)))
	mac.Write(payload)
	tag := mac.Sum(nil)

	plain := append(append([]byte(nil), payload...), tag...)
	blockSize := c.block.BlockSize()
	padLen := (blockSize - (len(plain)+1)%blockSize) % blockSize
	for i := 0; i <= padLen; i++ {
		plain = append(plain, byte(padLen))
	}

	iv := make([]byte, blockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	out := make([]byte, len(plain))
	cipher.NewCBCEncrypter(c.block, iv).CryptBlocks(out, plain)
	return append(iv, out...), nil
}

func (r *RecordLayer) decrypt(contentType byte, raw []byte) ([]byte, error) {
	c := r.readCipher
	if c.aead != nil {
		if len(raw) < 8 {
			return nil, errors.New("tlsserver: truncated GCM record")
		}
		nonce, sealed := raw[:8], raw[8:]
		iv := append(append([]byte(nil), c.fixedIV...), nonce...)
		plainLen := len(sealed) - c.aead.Overhead()
		if plainLen < 0 {
			return nil, errors.New("tlsserver: truncated GCM record")
		}
		additional := aeadAdditionalData(c.nextSeq(), contentType, r.version, plainLen)
		return c.aead.Open(nil, iv, sealed, additional)
	}

	blockSize := c.block.BlockSize()
	if len(raw) < blockSize+blockSize {
		return nil, errors.New("tlsserver: truncated CBC record")
	}
	iv, enc := raw[:blockSize], raw[blockSize:]
	if len(enc)%blockSize != 0 {
		return nil, errors.New("tlsserver: corrupt CBC record")
	}
	plain := make([]byte, len(enc))
	cipher.NewCBCDecrypter(c.block, iv).CryptBlocks(plain, enc)

	padLen := int(plain[len(plain)-1])
	if padLen+1+c.macLen > len(plain) {
		return nil, errors.New("tlsserver: bad record padding")
	}
	content := plain[:len(plain)-padLen-1-c.macLen]
	gotTag := plain[len(plain)-padLen-1-c.macLen : len(plain)-padLen-1]

	mac := c.mac(c.macKey)
	mac.Write(macAdditionalData(c.nextSeq(), contentType, r.version, len(content)))
	mac.Write(content)
	wantTag := mac.Sum(nil)
	if subtle.ConstantTimeCompare(gotTag, wantTag) != 1 {
		return nil, errors.New("tlsserver: record MAC mismatch")
	}
	return content, nil
}

func aeadAdditionalData(seq uint64, contentType byte, version uint16, plainLen int) []byte {
	ad := make([]byte, 13)
	copy(ad[0:8], seqBytes(seq))
	ad[8] = contentType
	binary.BigEndian.PutUint16(ad[9:11], version)
	binary.BigEndian.PutUint16(ad[11:13], uint16(plainLen))
	return ad
}

func macAdditionalData(seq uint64, contentType byte, version uint16, contentLen int) []byte {
	return aeadAdditionalData(seq, contentType, version, contentLen)
}

func (r *RecordLayer) foldTranscript(msg []byte) {
	if r.transcript != nil {
		r.transcript.Write(msg)
	}
}

func reassembleHeader(msgType byte, body []byte) []byte {
	out := make([]byte, 4+len(body))
	out[0] = msgType
	n := len(body)
	out[1] = byte(n >> 16)
	out[2] = byte(n >> 8)
	out[3] = byte(n)
	copy(out[4:], body)
	return out
}

// reassembleLegacyHeader normalizes a legacy SSLv2-shaped ClientHello body
// (which is its own framing: msg_type byte then content, no 3-byte length
// field) into the same 4-byte-header shape used for every other folded
// message, so the transcript's accounting does not need a special case.
// This departs from the historical SSLv3 behaviour of simply not hashing
// the v2-shaped hello at all; doing so here is a deliberate simplification,
// since record-layer transcript bookkeeping is out of scope (spec.md §1).
func reassembleLegacyHeader(body []byte) []byte {
	if len(body) == 0 {
		return body
	}
	return reassembleHeader(body[0], body[1:])
}

func (r *RecordLayer) peekByte() (byte, error) {
	b, err := r.readN(1)
	if err != nil {
		return 0, err
	}
	r.readBuf = append(b, r.readBuf...)
	return b[0], nil
}

func (r *RecordLayer) readN(n int) ([]byte, error) {
	for len(r.readBuf) < n {
		buf := make([]byte, 4096)
		m, err := r.conn.Read(buf)
		if m > 0 {
			r.readBuf = append(r.readBuf, buf[:m]...)
		}
		if err != nil {
			return nil, err
		}
	}
	out := r.readBuf[:n]
	r.readBuf = r.readBuf[n:]
	return out, nil
}
