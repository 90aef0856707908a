package handshake

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateRenegotiationInitialHandshake(t *testing.T) {
	params := &ConnParams{}

	t.Run("modern with empty SCSV", func(t *testing.T) {
		msg := &ClientHelloMsg{SawEmptyRenegSCSV: true}
		out := evaluateRenegotiation(params, false, RenegotiationNotSupported, msg, nil, nil)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationSecure, out.nextState)
	})

	t.Run("modern with valid empty renegotiation_info", func(t *testing.T) {
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: []byte{}}
		out := evaluateRenegotiation(params, false, RenegotiationNotSupported, msg, nil, nil)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationSecure, out.nextState)
	})

	t.Run("modern with non-empty renegotiation_info is fatal", func(t *testing.T) {
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: []byte{1, 2}}
		out := evaluateRenegotiation(params, false, RenegotiationNotSupported, msg, nil, nil)
		assert.True(t, out.fatal)
	})

	t.Run("no signalling at all", func(t *testing.T) {
		msg := &ClientHelloMsg{}
		out := evaluateRenegotiation(params, false, RenegotiationNotSupported, msg, nil, nil)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationNotSupported, out.nextState)
	})

	t.Run("legacy shape with SCSV", func(t *testing.T) {
		msg := &ClientHelloMsg{Legacy: true, SawEmptyRenegSCSV: true}
		out := evaluateRenegotiation(params, false, RenegotiationNotSupported, msg, nil, nil)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationSecure, out.nextState)
	})
}

func TestEvaluateRenegotiationOnRenegotiation(t *testing.T) {
	serverVD := []byte("server-verify-data")
	clientVD := []byte("client-verify-data")

	t.Run("SCSV during renegotiation is always fatal", func(t *testing.T) {
		params := &ConnParams{RenegotiationPolicy: PolicyAllowLegacy}
		msg := &ClientHelloMsg{SawEmptyRenegSCSV: true}
		out := evaluateRenegotiation(params, true, RenegotiationSecure, msg, serverVD, clientVD)
		assert.True(t, out.fatal)
	})

	t.Run("secure renegotiation with correct verify data", func(t *testing.T) {
		params := &ConnParams{}
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: append([]byte{}, clientVD...)}
		out := evaluateRenegotiation(params, true, RenegotiationSecure, msg, serverVD, clientVD)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationSecure, out.nextState)
	})

	t.Run("secure renegotiation with server's own concatenated value is fatal", func(t *testing.T) {
		params := &ConnParams{}
		concatenated := append(append([]byte{}, serverVD...), clientVD...)
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: concatenated}
		out := evaluateRenegotiation(params, true, RenegotiationSecure, msg, serverVD, clientVD)
		assert.True(t, out.fatal)
	})

	t.Run("secure renegotiation with wrong verify data is fatal", func(t *testing.T) {
		params := &ConnParams{}
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: []byte("wrong")}
		out := evaluateRenegotiation(params, true, RenegotiationSecure, msg, serverVD, clientVD)
		assert.True(t, out.fatal)
	})

	t.Run("secure downgrade attempt is fatal", func(t *testing.T) {
		params := &ConnParams{}
		msg := &ClientHelloMsg{}
		out := evaluateRenegotiation(params, true, RenegotiationSecure, msg, serverVD, clientVD)
		assert.True(t, out.fatal)
	})

	t.Run("legacy renegotiation blocked by policy", func(t *testing.T) {
		params := &ConnParams{RenegotiationPolicy: PolicyNoRenegotiation}
		msg := &ClientHelloMsg{}
		out := evaluateRenegotiation(params, true, RenegotiationLegacy, msg, nil, nil)
		assert.True(t, out.fatal)
	})

	t.Run("legacy renegotiation allowed by policy", func(t *testing.T) {
		params := &ConnParams{RenegotiationPolicy: PolicyAllowLegacy}
		msg := &ClientHelloMsg{}
		out := evaluateRenegotiation(params, true, RenegotiationLegacy, msg, nil, nil)
		assert.False(t, out.fatal)
		assert.Equal(t, RenegotiationLegacy, out.nextState)
	})

	t.Run("legacy connection suddenly claiming secure support is fatal", func(t *testing.T) {
		params := &ConnParams{RenegotiationPolicy: PolicyAllowLegacy}
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: []byte{0}}
		out := evaluateRenegotiation(params, true, RenegotiationLegacy, msg, nil, nil)
		assert.True(t, out.fatal)
	})

	t.Run("not-supported state rejects a sudden renegotiation_info claim", func(t *testing.T) {
		params := &ConnParams{}
		msg := &ClientHelloMsg{SawRenegotiationInfo: true, RenegotiationInfo: []byte{0}}
		out := evaluateRenegotiation(params, true, RenegotiationNotSupported, msg, nil, nil)
		assert.True(t, out.fatal)
	})
}
