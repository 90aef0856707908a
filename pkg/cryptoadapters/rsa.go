// Package cryptoadapters provides the default, stdlib/zcrypto-backed
// implementations of the collaborator interfaces internal/handshake
// declares as out of scope: RSA decryption/signing, DH and ECDH key
// agreement, transcript hashing, Finished verify_data, and master-secret
// derivation. None of this is required by the core engine — callers may
// swap in an HSM-backed RSAKeyHandle or a hardware ECDH provider — but a
// connection needs something behind every interface, and this package is
// the batteries-included "something".
package cryptoadapters

import (
	"crypto"
	"crypto/md5"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"io"

	"github.com/S10143806H/mbedtls/internal/handshake"
)

// hashToCrypto maps the engine's closed HashAlgorithm set onto the
// standard library's crypto.Hash registry. HashNone maps to crypto.Hash(0),
// which rsa.SignPKCS1v15/VerifyPKCS1v15 treat specially: the digest is
// used exactly as given, with no ASN.1 DigestInfo prefix prepended — the
// shape TLS <= 1.1's fixed MD5||SHA1 CertificateVerify/ServerKeyExchange
// digest needs.
func hashToCrypto(h handshake.HashAlgorithm) crypto.Hash {
	switch h {
	case handshake.HashMD5:
		return crypto.MD5
	case handshake.HashSHA1:
		return crypto.SHA1
	case handshake.HashSHA224:
		return crypto.SHA224
	case handshake.HashSHA256:
		return crypto.SHA256
	case handshake.HashSHA384:
		return crypto.SHA384
	case handshake.HashSHA512:
		return crypto.SHA512
	default:
		return crypto.Hash(0)
	}
}

// ServerRSAKey adapts an *rsa.PrivateKey to handshake.RSAKeyHandle.
type ServerRSAKey struct {
	Key *rsa.PrivateKey
}

func (k *ServerRSAKey) ModulusSize() int { return k.Key.Size() }

// Decrypt implements the classic PKCS#1 v1.5 RSA decryption TLS's RSA key
// exchange has always used (never OAEP). rng is accepted for interface
// symmetry with SignPKCS1v15 and Bleichenbacher-hardened variants, but
// plain rsa.DecryptPKCS1v15 ignores it; the Bleichenbacher countermeasure
// itself lives in internal/handshake, not here.
func (k *ServerRSAKey) Decrypt(rng io.Reader, ciphertext []byte) ([]byte, error) {
	return rsa.DecryptPKCS1v15(rng, k.Key, ciphertext)
}

func (k *ServerRSAKey) SignPKCS1v15(rng io.Reader, h handshake.HashAlgorithm, digest []byte) ([]byte, error) {
	return rsa.SignPKCS1v15(rng, k.Key, hashToCrypto(h), digest)
}

// PeerRSAKey adapts an *rsa.PublicKey (extracted from the client's leaf
// certificate) to handshake.PeerRSAKey.
type PeerRSAKey struct {
	Key *rsa.PublicKey
}

func (k *PeerRSAKey) ModulusSize() int { return k.Key.Size() }

func (k *PeerRSAKey) VerifyPKCS1v15(h handshake.HashAlgorithm, digest []byte, sig []byte) error {
	return rsa.VerifyPKCS1v15(k.Key, hashToCrypto(h), digest, sig)
}

// RandReader is the default handshake.ConnParams.RNG: crypto/rand's global
// reader, the same source every RSA/DH/ECDH operation in this package
// ultimately draws from.
var RandReader io.Reader = rand.Reader

var errUnsupportedHash = errors.New("cryptoadapters: unsupported hash algorithm")

// sumWith hashes data with the stdlib hash constructor for alg, used by
// the transcript adapter in transcript.go.
func sumWith(alg handshake.HashAlgorithm, data ...[]byte) ([]byte, error) {
	var hh interface {
		io.Writer
		Sum([]byte) []byte
	}
	switch alg {
	case handshake.HashMD5:
		hh = md5.New()
	case handshake.HashSHA1:
		hh = sha1.New()
	case handshake.HashSHA256:
		hh = sha256.New()
	case handshake.HashSHA384:
		hh = sha512.New384()
	case handshake.HashSHA512:
		hh = sha512.New()
	default:
		return nil, errUnsupportedHash
	}
	for _, d := range data {
		hh.Write(d)
	}
	return hh.Sum(nil), nil
}
