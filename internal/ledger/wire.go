package ledger

import (
	"encoding/binary"
	"fmt"
)

// Record wire layout: a leading type tag byte, then fixed-width little-endian
// fields in declaration order, strings u32-length-prefixed, optional values
// preceded by a one-byte presence flag. The layout is frozen: client SDKs
// decode these bytes without linking the protocol packages, so field order
// and widths must never change within a tag.

// RecordTag distinguishes record kinds sharing the ledger namespace.
type RecordTag byte

const (
	TagAsset            RecordTag = 1
	TagMintConfig       RecordTag = 2
	TagWhitelistEntry   RecordTag = 3
	TagBlacklistEntry   RecordTag = 4
	TagJurisdictionRule RecordTag = 5
	TagComplianceConfig RecordTag = 6
	TagEscrow           RecordTag = 7
	TagAuction          RecordTag = 8
	TagBid              RecordTag = 9
	TagRegistryConfig   RecordTag = 10
)

// Encoder appends wire-format fields to a buffer.
type Encoder struct {
	buf []byte
}

// NewEncoder starts a record with its type tag.
func NewEncoder(tag RecordTag) *Encoder {
	return &Encoder{buf: []byte{byte(tag)}}
}

func (e *Encoder) U8(v uint8)   { e.buf = append(e.buf, v) }
func (e *Encoder) Bool(v bool)  { e.buf = append(e.buf, b2u(v)) }
func (e *Encoder) U64(v uint64) { e.buf = binary.LittleEndian.AppendUint64(e.buf, v) }
func (e *Encoder) I64(v int64)  { e.U64(uint64(v)) }

// Str writes a u32-length-prefixed string.
func (e *Encoder) Str(s string) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(len(s)))
	e.buf = append(e.buf, s...)
}

// Addr writes an address as a length-prefixed string.
func (e *Encoder) Addr(a Address) { e.Str(string(a)) }

// FixedBytes writes raw bytes with no prefix; the width is part of the layout.
func (e *Encoder) FixedBytes(b []byte) { e.buf = append(e.buf, b...) }

// OptU64 writes a presence flag then the value when present.
func (e *Encoder) OptU64(v *uint64) {
	if v == nil {
		e.buf = append(e.buf, 0)
		return
	}
	e.buf = append(e.buf, 1)
	e.U64(*v)
}

// OptAddr writes a presence flag then the address when present.
func (e *Encoder) OptAddr(a Address) {
	if a.IsZero() {
		e.buf = append(e.buf, 0)
		return
	}
	e.buf = append(e.buf, 1)
	e.Addr(a)
}

// Bytes returns the encoded record.
func (e *Encoder) Bytes() []byte { return e.buf }

func b2u(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// Decoder reads wire-format fields. The first read error sticks; callers
// check Err once after decoding all fields.
type Decoder struct {
	buf []byte
	off int
	err error
}

// NewDecoder validates the leading tag and positions after it.
func NewDecoder(tag RecordTag, data []byte) (*Decoder, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty record")
	}
	if RecordTag(data[0]) != tag {
		return nil, fmt.Errorf("record tag mismatch: got %d, want %d", data[0], tag)
	}
	return &Decoder{buf: data, off: 1}, nil
}

// PeekTag reports the record tag without consuming bytes.
func PeekTag(data []byte) (RecordTag, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty record")
	}
	return RecordTag(data[0]), nil
}

func (d *Decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.buf) {
		d.err = fmt.Errorf("record truncated at offset %d", d.off)
		return nil
	}
	b := d.buf[d.off : d.off+n]
	d.off += n
	return b
}

func (d *Decoder) U8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *Decoder) Bool() bool { return d.U8() == 1 }

func (d *Decoder) U64() uint64 {
	b := d.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (d *Decoder) I64() int64 { return int64(d.U64()) }

func (d *Decoder) Str() string {
	lb := d.take(4)
	if lb == nil {
		return ""
	}
	n := binary.LittleEndian.Uint32(lb)
	b := d.take(int(n))
	if b == nil {
		return ""
	}
	return string(b)
}

func (d *Decoder) Addr() Address { return Address(d.Str()) }

func (d *Decoder) FixedBytes(n int) []byte {
	b := d.take(n)
	if b == nil {
		return make([]byte, n)
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (d *Decoder) OptU64() *uint64 {
	if d.U8() == 0 {
		return nil
	}
	v := d.U64()
	return &v
}

func (d *Decoder) OptAddr() Address {
	if d.U8() == 0 {
		return Zero
	}
	return d.Addr()
}

// Err returns the first decode error, plus a trailing-bytes check.
func (d *Decoder) Err() error {
	if d.err != nil {
		return d.err
	}
	if d.off != len(d.buf) {
		return fmt.Errorf("record has %d trailing bytes", len(d.buf)-d.off)
	}
	return nil
}
