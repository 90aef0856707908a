package tlsserver

import (
	"crypto/rand"
	"io"

	"go.uber.org/zap"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/pkg/cryptoadapters"
)

// Config is the caller-facing assembly of a handshake.ConnParams, built
// with functional options the way SSHTunnelOption builds an *SSHTunnel.
// Listener binds one Config to every accepted connection; nothing here is
// per-connection state.
type Config struct {
	minMinor, maxMinor byte
	cipherSuites       handshake.CipherSuitePreferences
	dh                 handshake.DHParams
	rsaKey             handshake.RSAKeyHandle
	cert               handshake.CertificateProvider
	pskIdentity, pskKey []byte
	authMode           handshake.AuthMode
	renegPolicy        handshake.RenegotiationPolicy
	sni                handshake.SNICallback
	sessionCache       handshake.SessionCache
	rng                io.Reader
	allowSSLv2Hello    bool
	enableDeflate      bool
	logger             *zap.Logger
}

// Option configures a Config.
type Option func(*Config)

// NewConfig builds a Config with spec.md §3's conservative defaults: TLS
// 1.0 through 1.2, the batteries-included ciphersuite preference table, no
// client-certificate request, legacy renegotiation disallowed, SSLv2-shaped
// ClientHello rejected, DEFLATE disabled.
func NewConfig(rsaKey handshake.RSAKeyHandle, cert handshake.CertificateProvider, opts ...Option) *Config {
	c := &Config{
		minMinor:     handshake.VersionTLS10 & 0xff,
		maxMinor:     handshake.VersionTLS12 & 0xff,
		cipherSuites: handshake.DefaultServerPreferences(),
		rsaKey:       rsaKey,
		cert:         cert,
		authMode:     handshake.AuthModeNone,
		renegPolicy:  handshake.PolicyNoRenegotiation,
		rng:          rand.Reader,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Config) { c.logger = log }
}

func WithVersionRange(minMinor, maxMinor byte) Option {
	return func(c *Config) { c.minMinor, c.maxMinor = minMinor, maxMinor }
}

func WithCipherSuites(prefs handshake.CipherSuitePreferences) Option {
	return func(c *Config) { c.cipherSuites = prefs }
}

func WithDHParams(p, g []byte) Option {
	return func(c *Config) { c.dh = handshake.DHParams{P: p, G: g} }
}

func WithPSK(identity, key []byte) Option {
	return func(c *Config) { c.pskIdentity, c.pskKey = identity, key }
}

func WithAuthMode(mode handshake.AuthMode) Option {
	return func(c *Config) { c.authMode = mode }
}

func WithRenegotiationPolicy(p handshake.RenegotiationPolicy) Option {
	return func(c *Config) { c.renegPolicy = p }
}

func WithSNI(cb handshake.SNICallback) Option {
	return func(c *Config) { c.sni = cb }
}

func WithSessionCache(cache handshake.SessionCache) Option {
	return func(c *Config) { c.sessionCache = cache }
}

func WithRNG(rng io.Reader) Option {
	return func(c *Config) { c.rng = rng }
}

func WithAllowSSLv2Hello(allow bool) Option {
	return func(c *Config) { c.allowSSLv2Hello = allow }
}

func WithDeflate(enable bool) Option {
	return func(c *Config) { c.enableDeflate = enable }
}

// connParams builds the per-negotiation collaborator bundle a new
// handshake.Engine needs, binding this Config's long-lived collaborators
// (RSA key, certificate provider, DH group, session cache) to the
// cryptoadapters defaults for the pieces a Config never configures
// directly: ECDH groups, transcript hashing. Finished and MasterSecret are
// deliberately left nil: they depend on the negotiated version, which isn't
// known until the Engine this ConnParams is handed to starts running, so
// Listener fills them in once it can bind them to that Engine's *Session.
func (c *Config) connParams() *handshake.ConnParams {
	return &handshake.ConnParams{
		MinMinor:            c.minMinor,
		MaxMinor:            c.maxMinor,
		CipherSuites:        c.cipherSuites,
		DH:                  c.dh,
		DHProvider:          cryptoadapters.DHGroup{},
		ECDHProvider:        cryptoadapters.ECDHGroups{},
		RSAKey:              c.rsaKey,
		Cert:                c.cert,
		PSKIdentity:         c.pskIdentity,
		PSKKey:              c.pskKey,
		AuthMode:            c.authMode,
		RenegotiationPolicy: c.renegPolicy,
		SNI:                 c.sni,
		SessionCache:        c.sessionCache,
		RNG:                 c.rng,
		AllowSSLv2Hello:     c.allowSSLv2Hello,
		EnableDeflate:       c.enableDeflate,
		NewTranscript:       cryptoadapters.NewTranscript,
	}
}
