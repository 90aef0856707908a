package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderScalars(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06})

	u8, ok := r.Uint8()
	require.True(t, ok)
	assert.Equal(t, byte(0x01), u8)

	u16, ok := r.Uint16()
	require.True(t, ok)
	assert.Equal(t, uint16(0x0203), u16)

	u24, ok := r.Uint24()
	require.True(t, ok)
	assert.Equal(t, uint32(0x040506), u24)

	assert.True(t, r.Empty())
	assert.Equal(t, 0, r.Len())
}

func TestReaderScalarsUnderflow(t *testing.T) {
	r := NewReader([]byte{0x01})

	_, ok := r.Uint16()
	assert.False(t, ok, "Uint16 must fail rather than return partial data")

	_, ok = r.Uint24()
	assert.False(t, ok)
}

func TestReaderBytesAndSkip(t *testing.T) {
	r := NewReader([]byte{1, 2, 3, 4, 5})

	skipped := r.Skip(2)
	require.True(t, skipped)

	b, ok := r.Bytes(3)
	require.True(t, ok)
	assert.Equal(t, []byte{3, 4, 5}, b)
	assert.True(t, r.Empty())

	assert.False(t, r.Skip(1), "skipping past the end must fail")
}

func TestReaderLengthPrefixed(t *testing.T) {
	t.Run("uint8 prefix", func(t *testing.T) {
		r := NewReader([]byte{0x02, 0xAA, 0xBB, 0xFF})
		body, ok := r.Uint8LengthPrefixed()
		require.True(t, ok)
		assert.Equal(t, []byte{0xAA, 0xBB}, body)
		rest := r.Rest()
		assert.Equal(t, []byte{0xFF}, rest)
	})

	t.Run("uint16 prefix", func(t *testing.T) {
		r := NewReader([]byte{0x00, 0x02, 0xAA, 0xBB})
		body, ok := r.Uint16LengthPrefixed()
		require.True(t, ok)
		assert.Equal(t, []byte{0xAA, 0xBB}, body)
		assert.True(t, r.Empty())
	})

	t.Run("uint24 prefix", func(t *testing.T) {
		r := NewReader([]byte{0x00, 0x00, 0x03, 0xAA, 0xBB, 0xCC})
		body, ok := r.Uint24LengthPrefixed()
		require.True(t, ok)
		assert.Equal(t, []byte{0xAA, 0xBB, 0xCC}, body)
		assert.True(t, r.Empty())
	})

	t.Run("uint24 prefix declares more than available", func(t *testing.T) {
		r := NewReader([]byte{0x00, 0x00, 0x05, 0xAA, 0xBB})
		_, ok := r.Uint24LengthPrefixed()
		assert.False(t, ok)
	})
}
