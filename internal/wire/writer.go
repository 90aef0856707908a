package wire

import "golang.org/x/crypto/cryptobyte"

// Writer builds a length-prefixed handshake message body. It is the
// write-side counterpart to Reader, backed by the same cryptobyte primitive
// so framing bugs (miscounted length prefixes) can't diverge between the
// two directions.
type Writer struct {
	b *cryptobyte.Builder
}

func NewWriter() *Writer { return &Writer{b: &cryptobyte.Builder{}} }

func (w *Writer) Uint8(v byte)    { w.b.AddUint8(v) }
func (w *Writer) Uint16(v uint16) { w.b.AddUint16(v) }
func (w *Writer) Uint24(v uint32) { w.b.AddUint24(v) }
func (w *Writer) Bytes(p []byte)  { w.b.AddBytes(p) }

// Uint8LengthPrefixed appends a 1-byte length prefix around whatever fn
// writes.
func (w *Writer) Uint8LengthPrefixed(fn func(*Writer)) {
	w.b.AddUint8LengthPrefixed(func(child *cryptobyte.Builder) {
		fn(&Writer{b: child})
	})
}

// Uint16LengthPrefixed appends a 2-byte length prefix around whatever fn
// writes.
func (w *Writer) Uint16LengthPrefixed(fn func(*Writer)) {
	w.b.AddUint16LengthPrefixed(func(child *cryptobyte.Builder) {
		fn(&Writer{b: child})
	})
}

// Finish returns the built byte string. The Writer must not be used
// afterwards.
func (w *Writer) Finish() ([]byte, error) { return w.b.Bytes() }
