package tlsserver

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/pkg/cryptoadapters"
)

func testRSAHandle(t *testing.T) handshake.RSAKeyHandle {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return &cryptoadapters.ServerRSAKey{Key: key}
}

func TestNewConfigDefaults(t *testing.T) {
	rsaKey := testRSAHandle(t)
	cert := &cryptoadapters.Certificates{}

	cfg := NewConfig(rsaKey, cert)
	params := cfg.connParams()

	assert.Equal(t, byte(handshake.VersionTLS10&0xff), params.MinMinor)
	assert.Equal(t, byte(handshake.VersionTLS12&0xff), params.MaxMinor)
	assert.Equal(t, handshake.DefaultServerPreferences(), params.CipherSuites)
	assert.Equal(t, handshake.AuthModeNone, params.AuthMode)
	assert.Equal(t, handshake.PolicyNoRenegotiation, params.RenegotiationPolicy)
	assert.False(t, params.AllowSSLv2Hello)
	assert.False(t, params.EnableDeflate)
	assert.Same(t, rsaKey, params.RSAKey)
	assert.Same(t, cert, params.Cert)
	assert.NotNil(t, params.RNG)
	assert.NotNil(t, params.DHProvider)
	assert.NotNil(t, params.ECDHProvider)
	assert.NotNil(t, params.NewTranscript)
	assert.Nil(t, params.Finished, "Finished is bound later by the Listener once the version is known")
	assert.Nil(t, params.MasterSecret)
}

func TestWithVersionRangeOverridesDefaults(t *testing.T) {
	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{}, WithVersionRange(0, 1))
	params := cfg.connParams()
	assert.Equal(t, byte(0), params.MinMinor)
	assert.Equal(t, byte(1), params.MaxMinor)
}

func TestWithPSKSetsIdentityAndKey(t *testing.T) {
	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{}, WithPSK([]byte("id"), []byte("key")))
	params := cfg.connParams()
	assert.Equal(t, []byte("id"), params.PSKIdentity)
	assert.Equal(t, []byte("key"), params.PSKKey)
}

func TestWithDHParamsSetsGroup(t *testing.T) {
	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{}, WithDHParams([]byte{23}, []byte{5}))
	params := cfg.connParams()
	assert.Equal(t, []byte{23}, params.DH.P)
	assert.Equal(t, []byte{5}, params.DH.G)
}

func TestWithAuthModeAndRenegotiationPolicy(t *testing.T) {
	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{},
		WithAuthMode(handshake.AuthModeRequired),
		WithRenegotiationPolicy(handshake.PolicyAllowLegacy))
	params := cfg.connParams()
	assert.Equal(t, handshake.AuthModeRequired, params.AuthMode)
	assert.Equal(t, handshake.PolicyAllowLegacy, params.RenegotiationPolicy)
}

func TestWithAllowSSLv2HelloAndDeflate(t *testing.T) {
	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{}, WithAllowSSLv2Hello(true), WithDeflate(true))
	params := cfg.connParams()
	assert.True(t, params.AllowSSLv2Hello)
	assert.True(t, params.EnableDeflate)
}

func TestWithSessionCacheAndSNI(t *testing.T) {
	cache := fakeSessionCache{}
	called := false
	sni := func(hostName []byte) error { called = true; return nil }

	cfg := NewConfig(testRSAHandle(t), &cryptoadapters.Certificates{}, WithSessionCache(cache), WithSNI(sni))
	params := cfg.connParams()
	require.NotNil(t, params.SNI)
	params.SNI([]byte("example.test"))
	assert.True(t, called)
	assert.Equal(t, handshake.SessionCache(cache), params.SessionCache)
}

type fakeSessionCache struct{}

func (fakeSessionCache) Get(sessionID []byte) (*handshake.Session, []byte, bool) { return nil, nil, false }
func (fakeSessionCache) Put(sessionID []byte, sess *handshake.Session, masterSecret []byte)    {}
