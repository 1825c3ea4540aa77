// Package tpm2 implements a byte-exact encoder/decoder for the TCG TPM
// 2.0 wire protocol, an authorization-session engine, and a command
// executor that submits encoded commands through a pluggable transport.
//
// The marshalling style here is adapted from the canonical/go-tpm2
// lineage (types_structures.go's TaggedHash.Marshal/Unmarshal), but
// trades that package's reflection-and-struct-tag driven generic
// marshaller for direct Reader/Writer calls on concrete command and
// response types, per this package's narrower protocol-framework scope.
package tpm2

import (
	"encoding/binary"
	"fmt"
)

// ErrInsufficientBytes is returned when a read would consume more bytes
// than remain in the buffer.
type ErrInsufficientBytes struct {
	Wanted    int
	Remaining int
}

func (e *ErrInsufficientBytes) Error() string {
	return fmt.Sprintf("tpm2: insufficient bytes: wanted %d, have %d", e.Wanted, e.Remaining)
}

// ErrLengthOverflow is returned when a TPM2B length prefix claims more
// bytes than remain in the buffer being read.
type ErrLengthOverflow struct {
	Declared  int
	Remaining int
}

func (e *ErrLengthOverflow) Error() string {
	return fmt.Sprintf("tpm2: tpm2b length %d exceeds remaining %d bytes", e.Declared, e.Remaining)
}

// Reader consumes big-endian values from a fixed byte slice. The zero
// value is not usable; use NewReader.
type Reader struct {
	buf []byte
	pos int
}

// NewReader wraps buf for sequential big-endian reads. The reader does
// not copy buf; returned byte views alias it.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Consumed returns the number of bytes read so far.
func (r *Reader) Consumed() int { return r.pos }

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int { return len(r.buf) - r.pos }

func (r *Reader) require(n int) error {
	if n > r.Remaining() {
		return &ErrInsufficientBytes{Wanted: n, Remaining: r.Remaining()}
	}
	return nil
}

// ReadU8 reads a single byte.
func (r *Reader) ReadU8() (uint8, error) {
	if err := r.require(1); err != nil {
		return 0, err
	}
	v := r.buf[r.pos]
	r.pos++
	return v, nil
}

// ReadU16 reads a big-endian uint16.
func (r *Reader) ReadU16() (uint16, error) {
	if err := r.require(2); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint16(r.buf[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadU32 reads a big-endian uint32.
func (r *Reader) ReadU32() (uint32, error) {
	if err := r.require(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(r.buf[r.pos:])
	r.pos += 4
	return v, nil
}

// ReadU64 reads a big-endian uint64.
func (r *Reader) ReadU64() (uint64, error) {
	if err := r.require(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(r.buf[r.pos:])
	r.pos += 8
	return v, nil
}

// ReadBytes returns a zero-copy view of the next n bytes and advances
// the cursor past them.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	v := r.buf[r.pos : r.pos+n]
	r.pos += n
	return v, nil
}

// PeekBytes returns a zero-copy view of the next n bytes without
// advancing the cursor.
func (r *Reader) PeekBytes(n int) ([]byte, error) {
	if err := r.require(n); err != nil {
		return nil, err
	}
	return r.buf[r.pos : r.pos+n], nil
}

// Skip advances the cursor by n bytes without returning them.
func (r *Reader) Skip(n int) error {
	if err := r.require(n); err != nil {
		return err
	}
	r.pos += n
	return nil
}

// ReadTPM2B reads a uint16 length prefix followed by that many bytes, the
// TPM2B wire convention (spec §3, §4.1).
func (r *Reader) ReadTPM2B() ([]byte, error) {
	n, err := r.ReadU16()
	if err != nil {
		return nil, err
	}
	if int(n) > r.Remaining() {
		return nil, &ErrLengthOverflow{Declared: int(n), Remaining: r.Remaining()}
	}
	return r.ReadBytes(int(n))
}

// Writer accumulates big-endian values into a growable byte slice. The
// zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty Writer, optionally pre-sized.
func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

// Written returns the number of bytes written so far.
func (w *Writer) Written() int { return len(w.buf) }

// Bytes returns the accumulated buffer. The caller must not mutate it if
// the Writer is still in use.
func (w *Writer) Bytes() []byte { return w.buf }

// WriteU8 appends a single byte.
func (w *Writer) WriteU8(v uint8) { w.buf = append(w.buf, v) }

// WriteU16 appends a big-endian uint16.
func (w *Writer) WriteU16(v uint16) {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteU32 appends a big-endian uint32.
func (w *Writer) WriteU32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteU64 appends a big-endian uint64.
func (w *Writer) WriteU64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	w.buf = append(w.buf, tmp[:]...)
}

// WriteBytes appends raw bytes with no length prefix.
func (w *Writer) WriteBytes(b []byte) { w.buf = append(w.buf, b...) }

// WriteTPM2B writes a uint16 length followed by the payload, the TPM2B
// wire convention. len(b) == 0 is valid and encodes an empty TPM2B.
//
// This intentionally always writes big-endian regardless of host
// endianness. One source lineage of this codec (a legacy
// Tpm2bMaxBuffer serializer using BitConverter.GetBytes(ushort).Reverse())
// depended on host byte order; that behavior is not reproduced here.
func (w *Writer) WriteTPM2B(b []byte) error {
	if len(b) > 0xFFFF {
		return fmt.Errorf("tpm2: tpm2b payload too large: %d bytes", len(b))
	}
	w.WriteU16(uint16(len(b)))
	w.WriteBytes(b)
	return nil
}
