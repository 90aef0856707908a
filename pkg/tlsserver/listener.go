package tlsserver

import (
	"context"
	"errors"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/S10143806H/mbedtls/internal/handshake"
	"github.com/S10143806H/mbedtls/pkg/cryptoadapters"
)

// Listener accepts plain TCP connections and drives a handshake.Engine to
// completion on each one, the TLS-server counterpart to how SSHTunnel
// drives an SSH connection: a long-lived object wrapping one transport,
// configured with functional options, logging accepted connections and
// handshake outcomes through a zap.Logger, fanning each accepted connection out to its own goroutine
// and joining them on Close via errgroup.
type Listener struct {
	inner  net.Listener
	config *Config
	logger *zap.Logger

	mu      sync.Mutex
	closed  bool
	wg      *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	onConn  func(*Conn)
}

// ListenerOption configures a Listener.
type ListenerOption func(*Listener)

func ListenerWithLogger(log *zap.Logger) ListenerOption {
	return func(l *Listener) { l.logger = log }
}

// ListenerWithConnHandler installs a callback run after a successful
// handshake, with access to the negotiated Conn (its Session, cipher
// suite, peer certificate if any). Default: none.
func ListenerWithConnHandler(fn func(*Conn)) ListenerOption {
	return func(l *Listener) { l.onConn = fn }
}

// NewListener wraps inner, accepting and TLS-handshaking every connection
// per config.
func NewListener(inner net.Listener, config *Config, opts ...ListenerOption) *Listener {
	ctx, cancel := context.WithCancel(context.Background())
	wg, ctx := errgroup.WithContext(ctx)
	l := &Listener{
		inner:  inner,
		config: config,
		logger: zap.NewNop(),
		wg:     wg,
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Serve accepts connections until Close is called or inner.Accept fails.
func (l *Listener) Serve() error {
	for {
		conn, err := l.inner.Accept()
		if err != nil {
			l.mu.Lock()
			closed := l.closed
			l.mu.Unlock()
			if closed {
				return nil
			}
			return err
		}
		l.wg.Go(func() error {
			l.handle(conn)
			return nil
		})
	}
}

// Close stops accepting new connections and waits for in-flight
// handshakes/handlers to finish.
func (l *Listener) Close() error {
	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	l.cancel()
	err := l.inner.Close()
	_ = l.wg.Wait()
	return err
}

func (l *Listener) handle(netConn net.Conn) {
	defer netConn.Close()

	rl := NewRecordLayer(netConn, handshake.VersionTLS10, l.logger)
	params := l.config.connParams()

	engine := handshake.NewEngine(params, rl)
	session := engine.Session()
	rl.BindSession(session)
	params.Finished = cryptoadapters.Finished{Session: session}
	params.MasterSecret = cryptoadapters.MasterSecretDeriver(session)

	l.logger.Debug("accepted connection", zap.String("remote", netConn.RemoteAddr().String()))

	for {
		done, err := engine.Step()
		if err != nil {
			if errors.Is(err, handshake.ErrWantIO) {
				continue
			}
			l.logger.Warn("handshake failed",
				zap.String("remote", netConn.RemoteAddr().String()),
				zap.String("state", engine.State().String()),
				zap.Error(err))
			return
		}
		if done {
			break
		}
	}

	l.logger.Debug("handshake complete",
		zap.String("remote", netConn.RemoteAddr().String()),
		zap.Uint16("cipher_suite", session.CipherSuite),
		zap.Bool("resumed", session.Resume))

	if l.onConn != nil {
		l.onConn(&Conn{netConn: netConn, rl: rl, session: session})
	}
}

// Conn is the negotiated connection handed to a Listener's onConn
// callback: a plaintext net.Conn is deliberately not exposed here, since
// application-data framing through RecordLayer is explicitly out of scope
// (spec.md §1) — callers needing encrypted request/response traffic own
// that layer themselves, same as the record layer's own cipher code is
// this package's addition, not the core's.
type Conn struct {
	netConn net.Conn
	rl      *RecordLayer
	session *handshake.Session
}

func (c *Conn) Session() *handshake.Session { return c.session }
func (c *Conn) RemoteAddr() net.Addr        { return c.netConn.RemoteAddr() }
