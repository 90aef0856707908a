package handshake

import "github.com/S10143806H/mbedtls/internal/wire"

// certTypeRSASign is the only client certificate type this engine
// requests, spec.md §4.D.
const certTypeRSASign byte = 1

// maxCertificateRequestDNBytes caps the aggregate DN list the way
// spec.md §4.D requires ("stopping when the aggregate output would exceed
// 4096 bytes"). A DN that would push the list past the cap ends the list
// there; the connection does not fail, and nothing is logged.
const maxCertificateRequestDNBytes = 4096

// buildCertificateRequest implements spec.md §4.D "CertificateRequest".
// The caller must not invoke this for PSK/DHE-PSK key exchange or
// AuthModeNone; those are the state machine's job to skip entirely.
// verifySigAlg is the hash half of the single signature_and_hash_algorithm
// pair advertised (spec.md §4.D), chosen by verifySigAlgFor and recorded by
// the caller into Scratch.VerifySigAlg so CertificateVerify (spec.md §4.E)
// can reject a client that answers with a different one.
func buildCertificateRequest(params *ConnParams, minor byte, verifySigAlg HashAlgorithm) ([]byte, *Error) {
	w := wire.NewWriter()
	w.Uint8(MsgCertificateRequest)
	w.Uint24(0)

	w.Uint8LengthPrefixed(func(w *wire.Writer) { w.Uint8(certTypeRSASign) })

	if minor >= 3 {
		w.Uint16LengthPrefixed(func(w *wire.Writer) {
			w.Uint8(byte(verifySigAlg))
			w.Uint8(byte(SignatureRSA))
		})
	}

	w.Uint16LengthPrefixed(func(w *wire.Writer) {
		used := 0
		for _, dn := range params.CAChain {
			if used+2+len(dn) > maxCertificateRequestDNBytes {
				break
			}
			w.Uint16LengthPrefixed(func(w *wire.Writer) { w.Bytes(dn) })
			used += 2 + len(dn)
		}
	})

	body, err := w.Finish()
	if err != nil {
		return nil, wrapErr(ErrBadInputData, "failed to build CertificateRequest", err)
	}
	patchHandshakeLength(body)
	return body, nil
}

// verifySigAlgFor picks SHA384 over SHA256 per spec.md §4.D: "SHA384 if the
// ciphersuite's MAC is SHA384 else SHA256".
func verifySigAlgFor(suite *CipherSuite) HashAlgorithm {
	if suite.MAC == macSHA384 {
		return HashSHA384
	}
	return HashSHA256
}
