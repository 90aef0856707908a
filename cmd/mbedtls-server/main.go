// Command mbedtls-server runs a minimal demonstration server driving the
// internal/handshake engine over real TCP connections, the way a small CLI
// wraps a SSHTunnel in the teacher pack: flags assemble a pkg/tlsserver.Config,
// a cobra command starts the listener.
package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/pkg/cryptoadapters"
	"github.com/S10143806H/mbedtls/pkg/tlsserver"
)

func main() {
	var (
		addr       string
		certPath   string
		keyPath    string
		authMode   string
		allowSSLv2 bool
	)

	root := &cobra.Command{
		Use:   "mbedtls-server",
		Short: "demonstration server for the SSLv3/TLS1.0-1.2 handshake engine",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer logger.Sync()

			rsaKey, certDER, err := loadOrGenerateIdentity(certPath, keyPath, logger)
			if err != nil {
				return fmt.Errorf("loading server identity: %w", err)
			}

			var mode handshake.AuthMode
			switch authMode {
			case "none":
				mode = handshake.AuthModeNone
			case "optional":
				mode = handshake.AuthModeOptional
			case "required":
				mode = handshake.AuthModeRequired
			default:
				return fmt.Errorf("unknown --auth-mode %q", authMode)
			}

			cfg := tlsserver.NewConfig(
				&cryptoadapters.ServerRSAKey{Key: rsaKey},
				&cryptoadapters.Certificates{Chain: [][]byte{certDER}},
				tlsserver.WithLogger(logger),
				tlsserver.WithAuthMode(mode),
				tlsserver.WithAllowSSLv2Hello(allowSSLv2),
			)

			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return err
			}
			logger.Info("listening", zap.String("addr", addr))

			server := tlsserver.NewListener(ln, cfg,
				tlsserver.ListenerWithLogger(logger),
				tlsserver.ListenerWithConnHandler(func(c *tlsserver.Conn) {
					logger.Info("negotiated connection",
						zap.String("remote", c.RemoteAddr().String()),
						zap.Uint16("cipher_suite", c.Session().CipherSuite))
				}),
			)
			return server.Serve()
		},
	}

	root.Flags().StringVar(&addr, "addr", ":8443", "listen address")
	root.Flags().StringVar(&certPath, "cert", "", "PEM certificate path (generates a self-signed one if empty)")
	root.Flags().StringVar(&keyPath, "key", "", "PEM RSA private key path (generates one if empty)")
	root.Flags().StringVar(&authMode, "auth-mode", "none", "client certificate policy: none, optional, required")
	root.Flags().BoolVar(&allowSSLv2, "allow-sslv2-hello", false, "accept the legacy SSLv2-compatible ClientHello shape")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadOrGenerateIdentity reads a PEM key/cert pair from disk, or generates a
// throwaway self-signed RSA identity when either path is empty — enough to
// bring the listener up for a demo without requiring external provisioning.
func loadOrGenerateIdentity(certPath, keyPath string, logger *zap.Logger) (*rsa.PrivateKey, []byte, error) {
	if certPath != "" && keyPath != "" {
		keyPEM, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, nil, err
		}
		certPEM, err := os.ReadFile(certPath)
		if err != nil {
			return nil, nil, err
		}
		keyBlock, _ := pem.Decode(keyPEM)
		if keyBlock == nil {
			return nil, nil, fmt.Errorf("no PEM block found in %s", keyPath)
		}
		key, err := x509.ParsePKCS1PrivateKey(keyBlock.Bytes)
		if err != nil {
			return nil, nil, err
		}
		certBlock, _ := pem.Decode(certPEM)
		if certBlock == nil {
			return nil, nil, fmt.Errorf("no PEM block found in %s", certPath)
		}
		return key, certBlock.Bytes, nil
	}

	logger.Warn("no --cert/--key given, generating a throwaway self-signed identity")
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, err
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}
	template := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: "mbedtls-server demo"},
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}
	return key, der, nil
}
