// Package codec implements the deterministic, length-prefixed binary
// encoding shared by every on-wire and hashable type in the node: fixed-width
// integers and hashes, and a uvarint-prefixed count for variable-length
// sequences.
package codec

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/prism-labs/prismd/internal/crypto"
)

// Writer accumulates a canonical encoding. It never returns an error itself;
// errors are only possible on the Reader side (truncated input).
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer with the given capacity hint.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteUint8 appends a single byte.
func (w *Writer) WriteUint8(v uint8) { w.buf = append(w.buf, v) }

// WriteUint32 appends a big-endian uint32.
func (w *Writer) WriteUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteUint64 appends a big-endian uint64.
func (w *Writer) WriteUint64(v uint64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteInt64 appends a big-endian int64.
func (w *Writer) WriteInt64(v int64) { w.WriteUint64(uint64(v)) }

// WriteHash256 appends a fixed-size 32-byte hash with no length prefix.
func (w *Writer) WriteHash256(h crypto.H256) { w.buf = append(w.buf, h[:]...) }

// WriteHash160 appends a fixed-size 20-byte address with no length prefix.
func (w *Writer) WriteHash160(h crypto.H160) { w.buf = append(w.buf, h[:]...) }

// WriteRaw appends b verbatim, with no length prefix. Used to splice an
// already-encoded sub-message (e.g. a transaction body) into a larger one.
func (w *Writer) WriteRaw(b []byte) { w.buf = append(w.buf, b...) }

// WriteVarBytes appends a uvarint length prefix followed by the raw bytes.
func (w *Writer) WriteVarBytes(b []byte) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(b)))
	w.buf = append(w.buf, lenBuf[:n]...)
	w.buf = append(w.buf, b...)
}

// WriteCount appends a uvarint count, used ahead of a homogeneous sequence
// whose elements are written individually by the caller.
func (w *Writer) WriteCount(n int) {
	var lenBuf [binary.MaxVarintLen64]byte
	k := binary.PutUvarint(lenBuf[:], uint64(n))
	w.buf = append(w.buf, lenBuf[:k]...)
}

// Reader decodes a canonical encoding previously produced by Writer.
type Reader struct {
	r io.ByteReader
	// full also supports bulk fixed-size reads without going through
	// ByteReader one byte at a time.
	full io.Reader
}

// NewReader wraps r for canonical decoding.
func NewReader(r io.Reader) *Reader {
	br, ok := r.(io.ByteReader)
	if !ok {
		br = &byteReaderAdapter{r}
	}
	return &Reader{r: br, full: r}
}

type byteReaderAdapter struct{ io.Reader }

func (b *byteReaderAdapter) ReadByte() (byte, error) {
	var buf [1]byte
	_, err := io.ReadFull(b.Reader, buf[:])
	return buf[0], err
}

// ReadUint8 reads a single byte.
func (r *Reader) ReadUint8() (uint8, error) {
	return r.r.ReadByte()
}

// ReadUint32 reads a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r.full, b[:]); err != nil {
		return 0, fmt.Errorf("read uint32: %w", err)
	}
	return binary.BigEndian.Uint32(b[:]), nil
}

// ReadUint64 reads a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r.full, b[:]); err != nil {
		return 0, fmt.Errorf("read uint64: %w", err)
	}
	return binary.BigEndian.Uint64(b[:]), nil
}

// ReadInt64 reads a big-endian int64.
func (r *Reader) ReadInt64() (int64, error) {
	v, err := r.ReadUint64()
	return int64(v), err
}

// ReadHash256 reads a fixed-size 32-byte hash.
func (r *Reader) ReadHash256() (crypto.H256, error) {
	var h crypto.H256
	if _, err := io.ReadFull(r.full, h[:]); err != nil {
		return h, fmt.Errorf("read hash256: %w", err)
	}
	return h, nil
}

// ReadHash160 reads a fixed-size 20-byte address.
func (r *Reader) ReadHash160() (crypto.H160, error) {
	var h crypto.H160
	if _, err := io.ReadFull(r.full, h[:]); err != nil {
		return h, fmt.Errorf("read hash160: %w", err)
	}
	return h, nil
}

// ReadCount reads a uvarint count, rejecting implausibly large values so a
// corrupt or adversarial stream cannot force a huge allocation.
func (r *Reader) ReadCount(max int) (int, error) {
	v, err := binary.ReadUvarint(r.r)
	if err != nil {
		return 0, fmt.Errorf("read count: %w", err)
	}
	if v > uint64(max) {
		return 0, fmt.Errorf("count %d exceeds limit %d", v, max)
	}
	return int(v), nil
}

// ReadVarBytes reads a uvarint-prefixed byte slice.
func (r *Reader) ReadVarBytes(max int) ([]byte, error) {
	n, err := r.ReadCount(max)
	if err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r.full, b); err != nil {
		return nil, fmt.Errorf("read var bytes: %w", err)
	}
	return b, nil
}

// MaxSequenceLen bounds any uvarint-prefixed sequence decoded off the wire.
const MaxSequenceLen = 1 << 20
