package gltf

import (
	"errors"
	"fmt"
)

// Attribute is a View bound to an element shape: Components values per
// element, optional normalization of integer components, and optional
// per-component bounds taken from the accessor.
type Attribute struct {
	View
	Components int
	Normalized bool
	Min, Max   []float32
}

var validComponents = map[int]bool{1: true, 2: true, 3: true, 4: true, 9: true, 16: true}

// Resolve builds an Attribute over buf without copying it.
//
// code is the glTF componentType code. components is the number of values per
// element (1 to 4 for SCALAR..VEC4, 4/9/16 for the matrix types). stride 0
// means tightly packed. min and max are optional; when present their length
// must equal components.
//
// Failures are returned as *DecodeError; no partial Attribute is produced.
func Resolve(code, components int, buf []byte, byteOffset, count, stride int, normalized bool, min, max []float32) (Attribute, error) {
	typ, err := ComponentTypeFromCode(code)
	if err != nil {
		return Attribute{}, err
	}
	if !validComponents[components] {
		return Attribute{}, newError(InvalidDocument, ResolveAccessors, -1, "component count %d", components)
	}
	if normalized && (typ == Float32 || typ == Uint32) {
		return Attribute{}, newError(InvalidDocument, ResolveAccessors, -1, "normalized %v components", typ)
	}
	if (min != nil && len(min) != components) || (max != nil && len(max) != components) {
		return Attribute{}, newError(InvalidDocument, ResolveAccessors, -1,
			"min/max length %d/%d, want %d", len(min), len(max), components)
	}

	v, err := NewView(typ, components, buf, byteOffset, count, stride)
	if err != nil {
		return Attribute{}, toDecodeError(err, ResolveAccessors, -1)
	}
	return Attribute{
		View:       v,
		Components: components,
		Normalized: normalized,
		Min:        min,
		Max:        max,
	}, nil
}

// toDecodeError converts an error wrapping a Kind into a *DecodeError.
// Errors that already are a *DecodeError only get their stage and index set.
func toDecodeError(err error, stage Stage, index int) *DecodeError {
	var de *DecodeError
	if errors.As(err, &de) {
		out := *de
		out.Stage, out.Index = stage, index
		return &out
	}
	kind := InvalidDocument
	errors.As(err, &kind)
	return &DecodeError{Kind: kind, Stage: stage, Index: index, Err: err}
}

// Float returns component c of element i as a float32. When the attribute is
// normalized, integers are mapped to [0, 1] (unsigned) or [-1, 1] (signed).
func (a Attribute) Float(i, c int) float32 {
	raw := a.Raw(i, c)
	if !a.Normalized {
		return float32(raw)
	}
	switch a.typ {
	case Int8:
		return float32(max(raw/127, -1))
	case Uint8:
		return float32(raw / 255)
	case Int16:
		return float32(max(raw/32767, -1))
	case Uint16:
		return float32(raw / 65535)
	}
	return float32(raw)
}

// Vec2 reads element i as two floats.
func (a Attribute) Vec2(i int) [2]float32 {
	return [2]float32{a.Float(i, 0), a.Float(i, 1)}
}

// Vec3 reads element i as three floats.
func (a Attribute) Vec3(i int) [3]float32 {
	return [3]float32{a.Float(i, 0), a.Float(i, 1), a.Float(i, 2)}
}

// Vec4 reads element i as four floats.
func (a Attribute) Vec4(i int) [4]float32 {
	return [4]float32{a.Float(i, 0), a.Float(i, 1), a.Float(i, 2), a.Float(i, 3)}
}

// Mat4 reads element i of a MAT4 attribute in column-major order.
func (a Attribute) Mat4(i int) [16]float32 {
	var m [16]float32
	for c := range m {
		m[c] = a.Float(i, c)
	}
	return m
}

// Floats copies every component of every element into a flat slice.
func (a Attribute) Floats() []float32 {
	out := make([]float32, 0, a.count*a.Components)
	for i := 0; i < a.count; i++ {
		for c := 0; c < a.Components; c++ {
			out = append(out, a.Float(i, c))
		}
	}
	return out
}

// Uints copies every component of every element as unsigned integers.
// Used for indices and joint lists.
func (a Attribute) Uints() []uint32 {
	out := make([]uint32, 0, a.count*a.Components)
	for i := 0; i < a.count; i++ {
		for c := 0; c < a.Components; c++ {
			out = append(out, a.Uint(i, c))
		}
	}
	return out
}

func (a Attribute) String() string {
	return fmt.Sprintf("%v x%d [%d] stride %d", a.typ, a.Components, a.count, a.stride)
}
