package gltf

import (
	"encoding/binary"
	"fmt"
	"math"
)

// ComponentType is the scalar encoding of one element channel.
// The zero value is not a valid type.
type ComponentType uint8

const (
	Int8 ComponentType = iota + 1
	Uint8
	Int16
	Uint16
	Uint32
	Float32
)

// glTF accessor.componentType codes.
const (
	CodeByte          = 5120
	CodeUnsignedByte  = 5121
	CodeShort         = 5122
	CodeUnsignedShort = 5123
	CodeUnsignedInt   = 5125
	CodeFloat         = 5126
)

// ComponentTypeFromCode maps a glTF componentType code to its ComponentType.
// 5124 (signed 32-bit int) is not a glTF 2.0 accessor type and is rejected
// with every other code.
func ComponentTypeFromCode(code int) (ComponentType, error) {
	switch code {
	case CodeByte:
		return Int8, nil
	case CodeUnsignedByte:
		return Uint8, nil
	case CodeShort:
		return Int16, nil
	case CodeUnsignedShort:
		return Uint16, nil
	case CodeUnsignedInt:
		return Uint32, nil
	case CodeFloat:
		return Float32, nil
	}
	return 0, &DecodeError{
		Kind:  UnknownComponentType,
		Stage: ResolveAccessors,
		Index: -1,
		Msg:   fmt.Sprintf("componentType %d", code),
	}
}

// Size returns the byte width of one component.
func (c ComponentType) Size() int {
	switch c {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Uint32, Float32:
		return 4
	}
	return 0
}

// Code returns the glTF componentType code.
func (c ComponentType) Code() int {
	switch c {
	case Int8:
		return CodeByte
	case Uint8:
		return CodeUnsignedByte
	case Int16:
		return CodeShort
	case Uint16:
		return CodeUnsignedShort
	case Uint32:
		return CodeUnsignedInt
	case Float32:
		return CodeFloat
	}
	return 0
}

// Unsigned reports whether c is an unsigned integer type.
func (c ComponentType) Unsigned() bool {
	return c == Uint8 || c == Uint16 || c == Uint32
}

func (c ComponentType) String() string {
	switch c {
	case Int8:
		return "INT8"
	case Uint8:
		return "UINT8"
	case Int16:
		return "INT16"
	case Uint16:
		return "UINT16"
	case Uint32:
		return "UINT32"
	case Float32:
		return "FLOAT32"
	}
	return fmt.Sprintf("ComponentType(%d)", uint8(c))
}

// View is a strided, typed, read-only window onto a byte buffer.
// It aliases the buffer it was built from and never copies or mutates it.
// Values are little-endian.
type View struct {
	typ      ComponentType
	data     []byte // starts at element 0
	stride   int    // bytes between element starts
	elemSize int
	count    int
}

// NewView builds a view of count elements of elemComponents components each,
// starting at byteOffset within buf. A stride of 0 means tightly packed.
func NewView(typ ComponentType, elemComponents int, buf []byte, byteOffset, count, stride int) (View, error) {
	if typ.Size() == 0 {
		return View{}, fmt.Errorf("%w: %v", UnknownComponentType, typ)
	}
	if elemComponents <= 0 {
		return View{}, fmt.Errorf("%w: component count %d", InvalidDocument, elemComponents)
	}
	elemSize := typ.Size() * elemComponents
	if stride == 0 {
		stride = elemSize
	}
	switch {
	case stride < elemSize:
		return View{}, fmt.Errorf("%w: stride %d smaller than element size %d", InvalidDocument, stride, elemSize)
	case byteOffset < 0 || count < 0:
		return View{}, fmt.Errorf("%w: negative offset %d or count %d", InvalidDocument, byteOffset, count)
	case byteOffset > len(buf):
		return View{}, fmt.Errorf("%w: offset %d beyond buffer of %d bytes", OutOfRangeReference, byteOffset, len(buf))
	}

	avail := len(buf) - byteOffset
	n := 0
	if count > 0 {
		// (count-1)*stride + elemSize <= avail, written to avoid overflow.
		if avail < elemSize || count-1 > (avail-elemSize)/stride {
			return View{}, fmt.Errorf("%w: %d elements of %d bytes (stride %d) at offset %d exceed buffer of %d bytes",
				OutOfRangeReference, count, elemSize, stride, byteOffset, len(buf))
		}
		n = (count-1)*stride + elemSize
	}

	return View{
		typ:      typ,
		data:     buf[byteOffset : byteOffset+n : byteOffset+n],
		stride:   stride,
		elemSize: elemSize,
		count:    count,
	}, nil
}

// ComponentType returns the component encoding.
func (v View) ComponentType() ComponentType { return v.typ }

// Count returns the number of elements.
func (v View) Count() int { return v.count }

// Stride returns the distance in bytes between element starts.
// Tightly packed views report the element size.
func (v View) Stride() int { return v.stride }

// ElementSize returns the byte size of one element.
func (v View) ElementSize() int { return v.elemSize }

// Interleaved reports whether elements are separated by other data.
func (v View) Interleaved() bool { return v.stride != v.elemSize }

// Bytes returns the aliased byte range from the first byte of element 0 to
// the last byte of the last element.
func (v View) Bytes() []byte { return v.data }

func (v View) offset(i, c int) int {
	return i*v.stride + c*v.typ.Size()
}

// Raw returns component c of element i as a float64 without normalization.
func (v View) Raw(i, c int) float64 {
	p := v.data[v.offset(i, c):]
	switch v.typ {
	case Int8:
		return float64(int8(p[0]))
	case Uint8:
		return float64(p[0])
	case Int16:
		return float64(int16(binary.LittleEndian.Uint16(p)))
	case Uint16:
		return float64(binary.LittleEndian.Uint16(p))
	case Uint32:
		return float64(binary.LittleEndian.Uint32(p))
	case Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	}
	return 0
}

// Uint returns component c of element i as an unsigned integer. Signed
// values are converted with Go integer conversion rules and floats are
// truncated.
func (v View) Uint(i, c int) uint32 {
	p := v.data[v.offset(i, c):]
	switch v.typ {
	case Int8:
		return uint32(int8(p[0]))
	case Uint8:
		return uint32(p[0])
	case Int16:
		return uint32(int16(binary.LittleEndian.Uint16(p)))
	case Uint16:
		return uint32(binary.LittleEndian.Uint16(p))
	case Uint32:
		return binary.LittleEndian.Uint32(p)
	case Float32:
		return uint32(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	}
	return 0
}

// packed returns a tightly packed copy of the viewed elements.
func (v View) packed() []byte {
	out := make([]byte, 0, v.count*v.elemSize)
	for i := 0; i < v.count; i++ {
		off := i * v.stride
		out = append(out, v.data[off:off+v.elemSize]...)
	}
	return out
}
