// Package format encodes and decodes the filepack header.
//
// The header is a fixed 12-byte prefix (magic, version, header size) followed
// by one variable-length record per entry. All integers are little-endian.
// Strings are length-prefixed; the length includes a trailing NUL.
package format

import (
	"encoding/binary"
	"errors"
)

// PrefixSize is the size of the fixed magic/version/header-size prefix.
const PrefixSize = 12

// recordFixedSize is the size of a record without its name and path bytes:
// type, name length, path length, content size and content offset.
const recordFixedSize = 4 + 4 + 4 + 8 + 8

// ByteOrder is the byte order of every integer in the header.
var ByteOrder = binary.LittleEndian

var (
	// ErrShortBuffer is returned when a field extends past the header.
	ErrShortBuffer = errors.New("field extends past end of header")

	// ErrMissingTerminator is returned when a string does not end in NUL.
	ErrMissingTerminator = errors.New("string is not NUL-terminated")
)

// Prefix is the fixed start of every archive.
type Prefix struct {
	Magic      uint32
	Version    uint32
	HeaderSize uint32
}

// Record is one entry of the header table.
type Record struct {
	Type   uint32
	Name   string
	Path   string
	Size   uint64
	Offset uint64
}

// StringSize returns the encoded length of s, including its terminator.
func StringSize(s string) uint64 {
	return uint64(len(s)) + 1
}

// RecordSize returns the encoded size of a record for the given name and path.
func RecordSize(name, path string) uint64 {
	return recordFixedSize + StringSize(name) + StringSize(path)
}

// ReadPrefix decodes the fixed prefix from the start of buf.
func ReadPrefix(buf []byte) (Prefix, error) {
	if len(buf) < PrefixSize {
		return Prefix{}, ErrShortBuffer
	}
	return Prefix{
		Magic:      ByteOrder.Uint32(buf[0:4]),
		Version:    ByteOrder.Uint32(buf[4:8]),
		HeaderSize: ByteOrder.Uint32(buf[8:12]),
	}, nil
}

// Encoder writes a header into a preallocated buffer.
// The caller sizes the buffer; Encoder panics on overrun like any slice write.
type Encoder struct {
	buf []byte
	off int
}

// NewEncoder returns an Encoder that writes from the start of buf.
func NewEncoder(buf []byte) *Encoder {
	return &Encoder{buf: buf}
}

// Offset returns the number of bytes written so far.
func (e *Encoder) Offset() int {
	return e.off
}

// PutPrefix writes the fixed prefix.
func (e *Encoder) PutPrefix(p Prefix) {
	e.putUint32(p.Magic)
	e.putUint32(p.Version)
	e.putUint32(p.HeaderSize)
}

// PutRecord writes one entry record in wire order:
// type, name length, name, path length, path, size, offset.
func (e *Encoder) PutRecord(r Record) {
	e.putUint32(r.Type)
	e.putString(r.Name)
	e.putString(r.Path)
	e.putUint64(r.Size)
	e.putUint64(r.Offset)
}

func (e *Encoder) putUint32(v uint32) {
	ByteOrder.PutUint32(e.buf[e.off:], v)
	e.off += 4
}

func (e *Encoder) putUint64(v uint64) {
	ByteOrder.PutUint64(e.buf[e.off:], v)
	e.off += 8
}

func (e *Encoder) putString(s string) {
	e.putUint32(uint32(StringSize(s))) //nolint:gosec // header size is checked against u32 before encoding
	e.off += copy(e.buf[e.off:], s)
	e.buf[e.off] = 0
	e.off++
}

// Decoder reads entry records from a header.
type Decoder struct {
	buf []byte
	off int
}

// NewDecoder returns a Decoder over header, which must hold exactly the
// header bytes. Decoding starts after the fixed prefix.
func NewDecoder(header []byte) *Decoder {
	return &Decoder{buf: header, off: PrefixSize}
}

// Offset returns the cursor position from the start of the header.
func (d *Decoder) Offset() int {
	return d.off
}

// More reports whether the cursor has not reached the end of the header.
func (d *Decoder) More() bool {
	return d.off < len(d.buf)
}

// Record decodes the record at the cursor and advances past it.
func (d *Decoder) Record() (Record, error) {
	var (
		r   Record
		err error
	)
	if r.Type, err = d.uint32(); err != nil {
		return Record{}, err
	}
	if r.Name, err = d.string(); err != nil {
		return Record{}, err
	}
	if r.Path, err = d.string(); err != nil {
		return Record{}, err
	}
	if r.Size, err = d.uint64(); err != nil {
		return Record{}, err
	}
	if r.Offset, err = d.uint64(); err != nil {
		return Record{}, err
	}
	return r, nil
}

func (d *Decoder) take(n uint64) ([]byte, error) {
	if n > uint64(len(d.buf)-d.off) { //nolint:gosec // off never exceeds len
		return nil, ErrShortBuffer
	}
	b := d.buf[d.off : d.off+int(n)] //nolint:gosec // bounded by len above
	d.off += int(n)                  //nolint:gosec // bounded by len above
	return b, nil
}

func (d *Decoder) uint32() (uint32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint32(b), nil
}

func (d *Decoder) uint64() (uint64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return ByteOrder.Uint64(b), nil
}

func (d *Decoder) string() (string, error) {
	n, err := d.uint32()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", ErrMissingTerminator
	}
	b, err := d.take(uint64(n))
	if err != nil {
		return "", err
	}
	if b[n-1] != 0 {
		return "", ErrMissingTerminator
	}
	return string(b[:n-1]), nil
}
