package cryptoadapters

import (
	"crypto/rand"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/S10143806H/mbedtls/internal/handshake"
)

// a small known-safe prime so the exponentiations in the test stay cheap;
// the DH math itself doesn't care about modulus size.
var testDHParams = handshake.DHParams{
	P: big.NewInt(23).Bytes(),
	G: big.NewInt(5).Bytes(),
}

func TestDHGroupRoundTripsSharedSecret(t *testing.T) {
	var dh DHGroup

	server, err := dh.MakeParams(rand.Reader, testDHParams)
	require.NoError(t, err)
	client, err := dh.MakeParams(rand.Reader, testDHParams)
	require.NoError(t, err)

	require.NoError(t, dh.ReadPublic(&server, client.GX))
	require.NoError(t, dh.ReadPublic(&client, server.GX))

	require.NoError(t, dh.ComputeSecret(&server))
	require.NoError(t, dh.ComputeSecret(&client))

	assert.NotEmpty(t, server.K)
	assert.Equal(t, server.K, client.K, "both sides must derive the same shared secret")
}

func TestDHGroupMakeParamsRejectsUnconfiguredGroup(t *testing.T) {
	var dh DHGroup
	_, err := dh.MakeParams(rand.Reader, handshake.DHParams{})
	assert.Error(t, err)
}

func TestDHGroupReadPublicRejectsOutOfRangeValue(t *testing.T) {
	var dh DHGroup
	server, err := dh.MakeParams(rand.Reader, testDHParams)
	require.NoError(t, err)

	p := new(big.Int).SetBytes(testDHParams.P)
	tooLarge := new(big.Int).Add(p, big.NewInt(1)).Bytes()
	err = dh.ReadPublic(&server, tooLarge)
	assert.Error(t, err)

	err = dh.ReadPublic(&server, big.NewInt(0).Bytes())
	assert.Error(t, err, "zero is not a valid DH public value")
}
