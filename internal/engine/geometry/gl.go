package geometry

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
)

// Shader attribute locations used by GLBuffer.
var attribLocations = map[string]uint32{
	"POSITION":   0,
	"NORMAL":     1,
	"TEXCOORD_0": 2,
	"TANGENT":    3,
	"COLOR_0":    4,
	"JOINTS_0":   5,
	"WEIGHTS_0":  6,
	"TEXCOORD_1": 7,
}

// GLType returns the OpenGL enum for a component type.
func GLType(t gltf.ComponentType) uint32 {
	switch t {
	case gltf.Int8:
		return gl.BYTE
	case gltf.Uint8:
		return gl.UNSIGNED_BYTE
	case gltf.Int16:
		return gl.SHORT
	case gltf.Uint16:
		return gl.UNSIGNED_SHORT
	case gltf.Uint32:
		return gl.UNSIGNED_INT
	case gltf.Float32:
		return gl.FLOAT
	}
	return 0
}

// GLBuffer is a vertex array with one VBO per attribute. It needs a current
// OpenGL 4.1 context for every call.
type GLBuffer struct {
	vao        uint32
	vbos       []uint32
	ebo        uint32
	indexType  uint32
	indexCount int32
	vertices   int32
	log        *zap.Logger
}

// NewGLBuffer creates an empty vertex array.
func NewGLBuffer(log *zap.Logger) *GLBuffer {
	if log == nil {
		log = zap.NewNop()
	}
	b := &GLBuffer{log: log}
	gl.GenVertexArrays(1, &b.vao)
	return b
}

// SetAttribute uploads data to a new VBO and points its shader location at
// it. Attributes without a location are skipped.
func (b *GLBuffer) SetAttribute(name string, data []byte, typ gltf.ComponentType, components int, normalized bool, stride int) error {
	loc, ok := attribLocations[name]
	if !ok {
		b.log.Debug("attribute has no location", zap.String("name", name))
		return nil
	}
	if len(data) == 0 {
		return fmt.Errorf("empty attribute data")
	}

	gl.BindVertexArray(b.vao)
	defer gl.BindVertexArray(0)

	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	b.vbos = append(b.vbos, vbo)

	if name == "JOINTS_0" {
		// Joint indices stay integers in the shader.
		gl.VertexAttribIPointer(loc, int32(components), GLType(typ), int32(stride), nil)
	} else {
		gl.VertexAttribPointerWithOffset(loc, int32(components), GLType(typ), normalized, int32(stride), 0)
	}
	gl.EnableVertexAttribArray(loc)

	if name == "POSITION" {
		b.vertices = int32((len(data)-typ.Size()*components)/stride + 1)
	}
	return nil
}

// SetIndices uploads the element buffer.
func (b *GLBuffer) SetIndices(data []byte, typ gltf.ComponentType, count int) error {
	if count == 0 {
		return nil
	}
	gl.BindVertexArray(b.vao)
	defer gl.BindVertexArray(0)

	gl.GenBuffers(1, &b.ebo)
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, b.ebo)
	gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)

	b.indexType = GLType(typ)
	b.indexCount = int32(count)
	return nil
}

// Draw issues one draw call with the given primitive mode.
func (b *GLBuffer) Draw(mode gltf.Mode) {
	gl.BindVertexArray(b.vao)
	if b.ebo != 0 {
		gl.DrawElementsWithOffset(uint32(mode), b.indexCount, b.indexType, 0)
	} else {
		gl.DrawArrays(uint32(mode), 0, b.vertices)
	}
	gl.BindVertexArray(0)
}

// Destroy releases the GPU objects.
func (b *GLBuffer) Destroy() {
	if len(b.vbos) > 0 {
		gl.DeleteBuffers(int32(len(b.vbos)), &b.vbos[0])
		b.vbos = nil
	}
	if b.ebo != 0 {
		gl.DeleteBuffers(1, &b.ebo)
		b.ebo = 0
	}
	if b.vao != 0 {
		gl.DeleteVertexArrays(1, &b.vao)
		b.vao = 0
	}
}
