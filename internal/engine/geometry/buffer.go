// Package geometry hands decoded primitives to a host geometry buffer.
//
// The decoder never talks to a graphics API. Bind walks a primitive's
// attributes and passes each aliased byte range, with its layout, to a
// Buffer. GLBuffer is the implementation for hosts with an OpenGL 4.1
// context.
package geometry

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// ErrNoPositions is returned by Bind for a primitive without POSITION.
var ErrNoPositions = errors.New("geometry: primitive has no positions")

// Buffer receives vertex data. data aliases the decoded document and must
// not be modified; stride is the byte distance between elements.
type Buffer interface {
	SetAttribute(name string, data []byte, typ gltf.ComponentType, components int, normalized bool, stride int) error
	SetIndices(data []byte, typ gltf.ComponentType, count int) error
}

// Bind uploads every attribute of p, then its indices if it has any.
// Attributes are named with their glTF semantic, sets suffixed "_n".
func Bind(buf Buffer, p *gltf.Primitive) error {
	if p.Positions == nil {
		return ErrNoPositions
	}

	for _, a := range attributes(p) {
		if err := buf.SetAttribute(a.name, a.attr.Bytes(), a.attr.ComponentType(),
			a.attr.Components, a.attr.Normalized, a.attr.Stride()); err != nil {
			return fmt.Errorf("geometry: %s: %w", a.name, err)
		}
	}

	if p.Indices == nil {
		return nil
	}
	data, typ := indexBytes(p.Indices)
	if err := buf.SetIndices(data, typ, p.Indices.Count()); err != nil {
		return fmt.Errorf("geometry: indices: %w", err)
	}
	return nil
}

type namedAttribute struct {
	name string
	attr *gltf.Attribute
}

// attributes lists p's attributes in a fixed order.
func attributes(p *gltf.Primitive) []namedAttribute {
	out := []namedAttribute{{"POSITION", p.Positions}}
	if p.Normals != nil {
		out = append(out, namedAttribute{"NORMAL", p.Normals})
	}
	if p.Tangents != nil {
		out = append(out, namedAttribute{"TANGENT", p.Tangents})
	}
	sets := []struct {
		semantic string
		attrs    []gltf.Attribute
	}{
		{"TEXCOORD", p.UVs},
		{"COLOR", p.Colors},
		{"JOINTS", p.Joints},
		{"WEIGHTS", p.WeightSets},
	}
	for _, s := range sets {
		for i := range s.attrs {
			out = append(out, namedAttribute{s.semantic + "_" + strconv.Itoa(i), &s.attrs[i]})
		}
	}
	return out
}

// indexBytes returns tightly packed index data. Strided index views are
// repacked as 32-bit values.
func indexBytes(a *gltf.Attribute) ([]byte, gltf.ComponentType) {
	if !a.Interleaved() {
		return a.Bytes(), a.ComponentType()
	}
	data := make([]byte, 0, a.Count()*4)
	for _, v := range a.Uints() {
		data = binary.LittleEndian.AppendUint32(data, v)
	}
	return data, gltf.Uint32
}
