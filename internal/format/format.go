// Package format holds the little-endian header and record primitives shared
// by every binary asset the compiler emits.
//
// Each asset family is described by a Spec value. Specs are plain values passed
// into each codec call; nothing in this package keeps process-wide state.
package format

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrIncompatible is returned when a header carries an unknown magic or
	// version for the expected asset family.
	ErrIncompatible = errors.New("format: incompatible asset")
	// ErrTruncated is returned when fewer bytes remain than the header promises.
	ErrTruncated = errors.New("format: truncated asset")
)

// Spec identifies one asset family.
type Spec struct {
	Name    string
	Magic   uint32
	Version uint32
}

// NGram describes the vocabulary and bigram files ("NGRM").
var NGram = Spec{Name: "ngram", Magic: 0x4E47524D, Version: 1}

// LSTM describes the recurrent-network weight file ("LSTM").
var LSTM = Spec{Name: "lstm", Magic: 0x4C53544D, Version: 1}

// Known lists the specs Sniff recognizes.
func Known() []Spec {
	return []Spec{NGram, LSTM}
}

// HeaderSize returns the size of a header with n u32 fields after magic and version.
func HeaderSize(n int) int {
	return 8 + 4*n
}

func (s Spec) String() string {
	return fmt.Sprintf("%s (magic=0x%08X version=%d)", s.Name, s.Magic, s.Version)
}

// Sniff identifies the asset family of data by its magic.
// The version is validated too.
func Sniff(data []byte) (Spec, error) {
	if len(data) < 8 {
		return Spec{}, fmt.Errorf("%w: need 8 header bytes, got %d", ErrTruncated, len(data))
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	version := binary.LittleEndian.Uint32(data[4:8])

	for _, s := range Known() {
		if s.Magic != magic {
			continue
		}

		if s.Version != version {
			return Spec{}, fmt.Errorf("%w: %s version %d, want %d", ErrIncompatible, s.Name, version, s.Version)
		}

		return s, nil
	}

	return Spec{}, fmt.Errorf("%w: unknown magic 0x%08X", ErrIncompatible, magic)
}

// Encoder appends little-endian values to an in-memory buffer.
// Assets are always fully buffered before they touch disk.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an encoder with capacity for sizeHint bytes.
func NewEncoder(sizeHint int) *Encoder {
	if sizeHint < 0 {
		sizeHint = 0
	}

	return &Encoder{buf: make([]byte, 0, sizeHint)}
}

// Header writes magic, version and the given u32 fields.
func (e *Encoder) Header(s Spec, fields ...uint32) {
	e.Uint32(s.Magic)
	e.Uint32(s.Version)

	for _, f := range fields {
		e.Uint32(f)
	}
}

func (e *Encoder) Uint16(v uint16) {
	e.buf = binary.LittleEndian.AppendUint16(e.buf, v)
}

func (e *Encoder) Uint32(v uint32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, v)
}

func (e *Encoder) Bytes(b []byte) {
	e.buf = append(e.buf, b...)
}

// Float32s writes values as IEEE-754 single precision, in order.
func (e *Encoder) Float32s(values []float32) {
	start := len(e.buf)

	e.buf = append(e.buf, make([]byte, len(values)*4)...)
	for i, v := range values {
		binary.LittleEndian.PutUint32(e.buf[start+i*4:], math.Float32bits(v))
	}
}

func (e *Encoder) Len() int {
	return len(e.buf)
}

// Data returns the encoded bytes. The encoder must not be used afterwards.
func (e *Encoder) Data() []byte {
	return e.buf
}

// Decoder reads little-endian values with bounds checks.
type Decoder struct {
	data []byte
	off  int
}

func NewDecoder(data []byte) *Decoder {
	return &Decoder{data: data}
}

// Header validates magic then version against s and reads n u32 fields.
func (d *Decoder) Header(s Spec, n int) ([]uint32, error) {
	magic, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	if magic != s.Magic {
		return nil, fmt.Errorf("%w: magic 0x%08X, want 0x%08X (%s)", ErrIncompatible, magic, s.Magic, s.Name)
	}

	version, err := d.Uint32()
	if err != nil {
		return nil, err
	}

	if version != s.Version {
		return nil, fmt.Errorf("%w: %s version %d, want %d", ErrIncompatible, s.Name, version, s.Version)
	}

	fields := make([]uint32, n)
	for i := range fields {
		fields[i], err = d.Uint32()
		if err != nil {
			return nil, err
		}
	}

	return fields, nil
}

func (d *Decoder) need(n int) error {
	if n < 0 || d.Remaining() < n {
		return fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, d.off, d.Remaining())
	}

	return nil
}

func (d *Decoder) Uint16() (uint16, error) {
	if err := d.need(2); err != nil {
		return 0, err
	}

	v := binary.LittleEndian.Uint16(d.data[d.off:])
	d.off += 2

	return v, nil
}

func (d *Decoder) Uint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}

	v := binary.LittleEndian.Uint32(d.data[d.off:])
	d.off += 4

	return v, nil
}

// Bytes returns the next n bytes without copying.
func (d *Decoder) Bytes(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}

	b := d.data[d.off : d.off+n]
	d.off += n

	return b, nil
}

// Float32s reads n single-precision values.
func (d *Decoder) Float32s(n int) ([]float32, error) {
	if n > math.MaxInt/4 {
		return nil, fmt.Errorf("%w: %d floats overflow", ErrTruncated, n)
	}

	if err := d.need(n * 4); err != nil {
		return nil, err
	}

	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(d.data[d.off+i*4:]))
	}

	d.off += n * 4

	return out, nil
}

func (d *Decoder) Offset() int {
	return d.off
}

func (d *Decoder) Remaining() int {
	return len(d.data) - d.off
}
