package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectCipherSuiteServerPreferenceOrder(t *testing.T) {
	prefs := CipherSuitePreferences{
		3: {TLSECDHERSAWithAES128GCMSHA256, TLSRSAWithAES128CBCSHA},
	}
	clientList := []uint16{TLSRSAWithAES128CBCSHA, TLSECDHERSAWithAES128GCMSHA256}

	suite, ok := selectCipherSuite(prefs, 3, clientList, true, false, false)
	require.True(t, ok)
	assert.Equal(t, TLSECDHERSAWithAES128GCMSHA256, suite.ID, "server preference order wins over client list order")
}

func TestSelectCipherSuiteSkipsECWhenUnavailable(t *testing.T) {
	prefs := CipherSuitePreferences{
		3: {TLSECDHERSAWithAES128GCMSHA256, TLSRSAWithAES128CBCSHA},
	}
	clientList := []uint16{TLSRSAWithAES128CBCSHA, TLSECDHERSAWithAES128GCMSHA256}

	suite, ok := selectCipherSuite(prefs, 3, clientList, false, false, false)
	require.True(t, ok)
	assert.Equal(t, TLSRSAWithAES128CBCSHA, suite.ID)
}

func TestSelectCipherSuiteSkipsPSKWhenNotConfigured(t *testing.T) {
	prefs := CipherSuitePreferences{
		3: {TLSPSKWithAES128CBCSHA, TLSRSAWithAES128CBCSHA},
	}
	clientList := []uint16{TLSPSKWithAES128CBCSHA, TLSRSAWithAES128CBCSHA}

	suite, ok := selectCipherSuite(prefs, 3, clientList, false, false, false)
	require.True(t, ok)
	assert.Equal(t, TLSRSAWithAES128CBCSHA, suite.ID)
}

func TestSelectCipherSuiteSkipsDHEWhenNoGroupConfigured(t *testing.T) {
	prefs := CipherSuitePreferences{
		3: {TLSDHERSAWithAES128CBCSHA, TLSRSAWithAES128CBCSHA},
	}
	clientList := []uint16{TLSDHERSAWithAES128CBCSHA, TLSRSAWithAES128CBCSHA}

	suite, ok := selectCipherSuite(prefs, 3, clientList, false, false, false)
	require.True(t, ok)
	assert.Equal(t, TLSRSAWithAES128CBCSHA, suite.ID)
}

func TestSelectCipherSuiteNoMutualSuite(t *testing.T) {
	prefs := CipherSuitePreferences{
		3: {TLSRSAWithAES128CBCSHA},
	}
	clientList := []uint16{TLSRSAWithAES256CBCSHA}

	_, ok := selectCipherSuite(prefs, 3, clientList, false, false, false)
	assert.False(t, ok)
}

func TestSelectCipherSuiteRespectsVersionBounds(t *testing.T) {
	prefs := CipherSuitePreferences{
		0: {TLSRSAWithAES128CBCSHA256},
	}
	clientList := []uint16{TLSRSAWithAES128CBCSHA256}

	_, ok := selectCipherSuite(prefs, 0, clientList, false, false, false)
	assert.False(t, ok, "TLSRSAWithAES128CBCSHA256 requires minor>=3")
}

func TestDefaultServerPreferencesCoversEveryMinorVersion(t *testing.T) {
	prefs := DefaultServerPreferences()
	for minor := byte(0); minor <= 3; minor++ {
		assert.NotEmpty(t, prefs[minor], "minor version %d should have at least one suite", minor)
	}
	assert.Contains(t, prefs[3], TLSECDHERSAWithAES128GCMSHA256)
	assert.NotContains(t, prefs[0], TLSRSAWithAES128CBCSHA256, "TLS1.2-only suite must not appear for SSLv3")
}
