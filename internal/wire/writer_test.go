package wire

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRoundTripsReader(t *testing.T) {
	w := NewWriter()
	w.Uint8(0x01)
	w.Uint16(0x0203)
	w.Uint24(0x040506)
	w.Uint8LengthPrefixed(func(c *Writer) {
		c.Bytes([]byte{0xAA, 0xBB})
	})
	w.Uint16LengthPrefixed(func(c *Writer) {
		c.Bytes([]byte{0xCC})
	})

	out, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(out)
	u8, ok := r.Uint8()
	require.True(t, ok)
	assert.Equal(t, byte(0x01), u8)

	u16, ok := r.Uint16()
	require.True(t, ok)
	assert.Equal(t, uint16(0x0203), u16)

	u24, ok := r.Uint24()
	require.True(t, ok)
	assert.Equal(t, uint32(0x040506), u24)

	body8, ok := r.Uint8LengthPrefixed()
	require.True(t, ok)
	assert.Equal(t, []byte{0xAA, 0xBB}, body8)

	body16, ok := r.Uint16LengthPrefixed()
	require.True(t, ok)
	assert.Equal(t, []byte{0xCC}, body16)

	assert.True(t, r.Empty())
}

func TestWriterNestedLengthPrefix(t *testing.T) {
	w := NewWriter()
	w.Uint16LengthPrefixed(func(c *Writer) {
		c.Uint8LengthPrefixed(func(inner *Writer) {
			inner.Bytes([]byte{0x01, 0x02, 0x03})
		})
	})
	out, err := w.Finish()
	require.NoError(t, err)

	r := NewReader(out)
	outer, ok := r.Uint16LengthPrefixed()
	require.True(t, ok)
	assert.True(t, r.Empty())

	or := NewReader(outer)
	inner, ok := or.Uint8LengthPrefixed()
	require.True(t, ok)
	assert.Equal(t, []byte{0x01, 0x02, 0x03}, inner)
	assert.True(t, or.Empty())
}
