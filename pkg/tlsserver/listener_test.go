package tlsserver

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S10143806H/mbedtls/internal/handshake"
)

func TestListenerServeReturnsNilAfterClose(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := NewConfig(testRSAHandle(t), nil)
	l := NewListener(inner, cfg)

	serveErr := make(chan error, 1)
	go func() { serveErr <- l.Serve() }()

	require.NoError(t, l.Close())
	select {
	case err := <-serveErr:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestListenerHandlesAndRecoversFromBadClientHello(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg := NewConfig(testRSAHandle(t), nil)
	var gotCallback bool
	l := NewListener(inner, cfg, ListenerWithConnHandler(func(c *Conn) { gotCallback = true }))

	go l.Serve()
	defer l.Close()

	conn, err := net.Dial("tcp", inner.Addr().String())
	require.NoError(t, err)

	// a record claiming to carry a huge handshake body; handle() must
	// recover by returning (and closing the connection) rather than hanging
	// the whole Listener.
	conn.Write([]byte{22, 3, 1, 0xff, 0xff})
	conn.Close()

	// give the per-connection goroutine a moment to run and return.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, l.Close())
	assert.False(t, gotCallback, "onConn must not fire for a failed handshake")
}

func TestListenerCloseStopsAcceptingBeforeNewDial(t *testing.T) {
	inner, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := inner.Addr().String()

	cfg := NewConfig(testRSAHandle(t), nil)
	l := NewListener(inner, cfg)
	go l.Serve()

	require.NoError(t, l.Close())

	_, err = net.DialTimeout("tcp", addr, 200*time.Millisecond)
	assert.Error(t, err, "dialing a closed listener's address must fail")
}

func TestConnSessionAndRemoteAddr(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	session := &handshake.Session{CipherSuite: handshake.TLSPSKWithAES128CBCSHA}
	c := &Conn{netConn: server, rl: NewRecordLayer(server, handshake.VersionTLS12, nil), session: session}

	assert.Same(t, session, c.Session())
	assert.NotNil(t, c.RemoteAddr())
}
