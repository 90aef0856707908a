package cryptoadapters

import (
	"crypto/rsa"
	"errors"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/internal/wire"
	"github.com/zmap/zcrypto/x509"
)

// Certificates adapts a configured DER certificate chain and a peer-cert
// parser to handshake.CertificateProvider. It uses zcrypto/x509 (the same
// parser the rest of the example pack's TLS code reaches for) rather than
// the standard library's crypto/x509, since this module's domain stack
// already depends on zcrypto for ECDH and keeping certificate parsing on
// the same library avoids two redundant ASN.1 decoders.
type Certificates struct {
	// Chain is this server's certificate chain, leaf first, DER-encoded.
	Chain [][]byte
}

// ServerCertificateBody implements spec.md §1's out-of-scope "Certificate
// chain parsing and emission" for the server's own Certificate message:
// RFC 5246 §7.4.2, a 24-bit total length followed by each DER certificate
// as its own 24-bit-length-prefixed entry.
func (c *Certificates) ServerCertificateBody() ([]byte, error) {
	w := wire.NewWriter()
	w.Uint8(handshake.MsgCertificate)
	w.Uint24(0)
	total := 0
	for _, der := range c.Chain {
		total += 3 + len(der)
	}
	w.Uint24(uint32(total))
	for _, der := range c.Chain {
		w.Uint24(uint32(len(der)))
		w.Bytes(der)
	}
	body, err := w.Finish()
	if err != nil {
		return nil, err
	}
	n := len(body) - 4
	body[1] = byte(n >> 16)
	body[2] = byte(n >> 8)
	body[3] = byte(n)
	return body, nil
}

// ParseClientCertificateBody implements the client-certificate half: parse
// the certificate_list and, for the leaf, extract its RSA public key (the
// only signature scheme this engine's CertificateVerify/ServerKeyExchange
// ever uses).
func (c *Certificates) ParseClientCertificateBody(body []byte) (rawCerts [][]byte, peerKey handshake.PeerRSAKey, err error) {
	r := wire.NewReader(body)
	if _, ok := r.Uint8(); !ok {
		return nil, nil, errors.New("cryptoadapters: truncated Certificate message")
	}
	if _, ok := r.Uint24(); !ok {
		return nil, nil, errors.New("cryptoadapters: truncated Certificate message")
	}
	list, ok := r.Uint24LengthPrefixed()
	if !ok || !r.Empty() {
		return nil, nil, errors.New("cryptoadapters: malformed certificate_list")
	}

	lr := wire.NewReader(list)
	for !lr.Empty() {
		der, ok := lr.Uint24LengthPrefixed()
		if !ok {
			return nil, nil, errors.New("cryptoadapters: malformed certificate entry")
		}
		rawCerts = append(rawCerts, der)
	}
	if len(rawCerts) == 0 {
		return nil, nil, nil
	}

	leaf, err := x509.ParseCertificate(rawCerts[0])
	if err != nil {
		return nil, nil, err
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, nil, errors.New("cryptoadapters: client certificate is not an RSA key")
	}
	return rawCerts, &PeerRSAKey{Key: pub}, nil
}
