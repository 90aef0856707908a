package handshake

// Ciphersuite ids this engine recognises. Bulk cipher and MAC selection is
// a record-layer concern (spec.md §1); the core only needs the key-exchange
// family, the minimum minor version and the MAC's hash width (for
// CertificateRequest's signature_algorithms choice, spec.md §4.D).
const (
	TLSRSAWithAES128CBCSHA        uint16 = 0x002F
	TLSRSAWithAES256CBCSHA        uint16 = 0x0035
	TLSRSAWithAES128CBCSHA256     uint16 = 0x003C
	TLSDHERSAWithAES128CBCSHA     uint16 = 0x0033
	TLSDHERSAWithAES256CBCSHA     uint16 = 0x0039
	TLSDHERSAWithAES128GCMSHA256  uint16 = 0x009E
	TLSECDHERSAWithAES128CBCSHA   uint16 = 0xC013
	TLSECDHERSAWithAES256CBCSHA   uint16 = 0xC014
	TLSECDHERSAWithAES128GCMSHA256 uint16 = 0xC02F
	TLSECDHERSAWithAES256GCMSHA384 uint16 = 0xC030
	TLSPSKWithAES128CBCSHA        uint16 = 0x008C
	TLSPSKWithAES256CBCSHA        uint16 = 0x008D
	TLSDHEPSKWithAES128CBCSHA     uint16 = 0x0090
	TLSDHEPSKWithAES256CBCSHA     uint16 = 0x0091

	// TLSEmptyRenegotiationInfoSCSV is the RFC 5746 signalling value,
	// spec.md §4.C step 6.
	TLSEmptyRenegotiationInfoSCSV uint16 = 0x00FF
	// TLSFallbackSCSV is RFC 7507's inappropriate-fallback signal, a
	// supplemented feature of SPEC_FULL.md §4.
	TLSFallbackSCSV uint16 = 0x5600
)

// macDigest identifies a suite's MAC hash, used only to pick SHA384 vs
// SHA256 in CertificateRequest's signature_algorithms (spec.md §4.D).
type macDigest int

const (
	macSHA1 macDigest = iota
	macSHA256
	macSHA384
)

// CipherSuite is this engine's view of a suite: everything the state
// machine needs to route to the right builder/parser. Bulk cipher and MAC
// implementations are the record layer's business.
type CipherSuite struct {
	ID          uint16
	MinMinor    byte // lowest minor version this suite may be negotiated with
	MaxMinor    byte
	KeyExchange KeyExchangeFamily
	MAC         macDigest
	NoCerts     bool // PSK family: no Certificate/CertificateRequest/CertificateVerify flight
}

// cipherSuites is the full catalogue; DefaultServerPreferences below orders
// a subset of it per minor version the way spec.md §3 describes
// "server preference list of ciphersuites per minor version".
var cipherSuites = []*CipherSuite{
	{ID: TLSECDHERSAWithAES128GCMSHA256, MinMinor: 3, MaxMinor: 3, KeyExchange: KeyExchangeECDHERSA, MAC: macSHA256},
	{ID: TLSECDHERSAWithAES256GCMSHA384, MinMinor: 3, MaxMinor: 3, KeyExchange: KeyExchangeECDHERSA, MAC: macSHA384},
	{ID: TLSECDHERSAWithAES128CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeECDHERSA, MAC: macSHA1},
	{ID: TLSECDHERSAWithAES256CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeECDHERSA, MAC: macSHA1},
	{ID: TLSDHERSAWithAES128GCMSHA256, MinMinor: 3, MaxMinor: 3, KeyExchange: KeyExchangeDHERSA, MAC: macSHA256},
	{ID: TLSDHERSAWithAES128CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeDHERSA, MAC: macSHA1},
	{ID: TLSDHERSAWithAES256CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeDHERSA, MAC: macSHA1},
	{ID: TLSRSAWithAES128CBCSHA256, MinMinor: 3, MaxMinor: 3, KeyExchange: KeyExchangeRSA, MAC: macSHA256},
	{ID: TLSRSAWithAES128CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeRSA, MAC: macSHA1},
	{ID: TLSRSAWithAES256CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeRSA, MAC: macSHA1},
	{ID: TLSDHEPSKWithAES128CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeDHEPSK, MAC: macSHA1, NoCerts: true},
	{ID: TLSDHEPSKWithAES256CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangeDHEPSK, MAC: macSHA1, NoCerts: true},
	{ID: TLSPSKWithAES128CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangePSK, MAC: macSHA1, NoCerts: true},
	{ID: TLSPSKWithAES256CBCSHA, MinMinor: 0, MaxMinor: 3, KeyExchange: KeyExchangePSK, MAC: macSHA1, NoCerts: true},
}

func lookupCipherSuite(id uint16) *CipherSuite {
	for _, s := range cipherSuites {
		if s.ID == id {
			return s
		}
	}
	return nil
}

// DefaultServerPreferences returns a reasonable server-preference ordering
// for every supported minor version: ECDHE before DHE before plain RSA,
// PSK families last, newest minor version's TLS-1.2-only suites included
// only for minor 3. Callers are free to build their own
// CipherSuitePreferences; this is offered as the batteries-included
// default, the way the teacher's cipherSuites slice is itself the only
// ordering crypto/tls ships.
func DefaultServerPreferences() CipherSuitePreferences {
	prefs := make(CipherSuitePreferences)
	for minor := byte(0); minor <= 3; minor++ {
		var list []uint16
		for _, s := range cipherSuites {
			if s.MinMinor <= minor && minor <= s.MaxMinor {
				list = append(list, s.ID)
			}
		}
		prefs[minor] = list
	}
	return prefs
}
