package mavlink

import (
	"encoding/binary"
	"fmt"
	"math"
)

// encoder appends little-endian fields in MAVLink payload order (fields
// sorted by decreasing type size, as the dialect generator does).
type encoder struct {
	b []byte
}

func newEncoder(size int) *encoder {
	return &encoder{b: make([]byte, 0, size)}
}

func (e *encoder) u8(v uint8) { e.b = append(e.b, v) }
func (e *encoder) i8(v int8) { e.b = append(e.b, byte(v)) }
func (e *encoder) u16(v uint16) {
	e.b = binary.LittleEndian.AppendUint16(e.b, v)
}
func (e *encoder) i16(v int16) { e.u16(uint16(v)) }
func (e *encoder) u32(v uint32) {
	e.b = binary.LittleEndian.AppendUint32(e.b, v)
}
func (e *encoder) i32(v int32) { e.u32(uint32(v)) }
func (e *encoder) u64(v uint64) {
	e.b = binary.LittleEndian.AppendUint64(e.b, v)
}
func (e *encoder) f32(v float64) {
	e.u32(math.Float32bits(float32(v)))
}

// decoder reads little-endian fields from a payload, tracking a single
// error for short reads.
type decoder struct {
	b   []byte
	off int
	err error
}

func newDecoder(payload []byte) *decoder { return &decoder{b: payload} }

func (d *decoder) take(n int) []byte {
	if d.err != nil {
		return nil
	}
	if d.off+n > len(d.b) {
		d.err = fmt.Errorf("payload too short: need %d have %d", d.off+n, len(d.b))
		return nil
	}
	out := d.b[d.off : d.off+n]
	d.off += n
	return out
}

func (d *decoder) u8() uint8 {
	b := d.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (d *decoder) u16() uint16 {
	b := d.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (d *decoder) i16() int16 { return int16(d.u16()) }

func (d *decoder) u32() uint32 {
	b := d.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (d *decoder) i32() int32 { return int32(d.u32()) }

func (d *decoder) f32() float64 {
	return float64(math.Float32frombits(d.u32()))
}
