package gltf

import (
	"bytes"
	"encoding/base64"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	qgltf "github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

// fixture buffer layout:
//
//	[0, 36)   positions: (0,0,0) (1,0,0) (0,1,0)
//	[36, 72)  normals: 3 x (0,0,1)
//	[72, 76)  ubyte indices 0 1 2, pad
//	[76, 80)  ubyte indices 0 1 5, pad
//	[80, 144) MAT4 identity
//	[144, 152) float keyframe times 0, 1
var fixture = le(
	float32(0), float32(0), float32(0),
	float32(1), float32(0), float32(0),
	float32(0), float32(1), float32(0),
	float32(0), float32(0), float32(1),
	float32(0), float32(0), float32(1),
	float32(0), float32(0), float32(1),
	uint8(0), uint8(1), uint8(2), uint8(0),
	uint8(0), uint8(1), uint8(5), uint8(0),
	[16]float32(math.Identity()),
	float32(0), float32(1),
)

func dataURI(b []byte) string {
	return "data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString(b)
}

// doc expands $BUF to the fixture buffer declaration.
func doc(s string) []byte {
	buf := `{"uri":"` + dataURI(fixture) + `","byteLength":152}`
	return []byte(strings.ReplaceAll(s, "$BUF", buf))
}

const triangleDoc = `{
	"asset": {"version": "2.0"},
	"buffers": [$BUF],
	"bufferViews": [{"buffer": 0, "byteLength": 36}],
	"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3",
		"min": [0, 0, 0], "max": [1, 1, 0]}],
	"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
	"nodes": [{"mesh": 0}],
	"scenes": [{"nodes": [0]}],
	"scene": 0
}`

var triangle = [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}

func checkTriangle(t *testing.T, m *Model) {
	t.Helper()
	if len(m.Meshes) != 1 || len(m.Meshes[0].Primitives) != 1 {
		t.Fatalf("meshes = %+v", m.Meshes)
	}
	p := m.Meshes[0].Primitives[0]
	if p.Positions == nil {
		t.Fatal("no positions")
	}
	if p.Positions.Count() != 3 {
		t.Fatalf("positions count = %d, want 3", p.Positions.Count())
	}
	for i, want := range triangle {
		if got := p.Positions.Vec3(i); got != want {
			t.Errorf("position %d = %v, want %v", i, got, want)
		}
	}
}

func TestDecodeTriangle(t *testing.T) {
	m, err := Decode(doc(triangleDoc), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	checkTriangle(t, m)

	p := m.Meshes[0].Primitives[0]
	if p.Mode != Triangles || p.Material != -1 || p.Indices != nil {
		t.Errorf("defaults: mode %v material %d indices %v", p.Mode, p.Material, p.Indices)
	}
	if m.Scene != 0 || len(m.Scenes) != 1 {
		t.Errorf("scene = %d, scenes = %v", m.Scene, m.Scenes)
	}
	if m.Nodes[0].Mesh != 0 || m.Nodes[0].Skin != -1 {
		t.Errorf("node = %+v", m.Nodes[0])
	}
	if m.Graph.World(m.Nodes[0].ID) != math.Identity() {
		t.Errorf("node world = %v, want identity", m.Graph.World(m.Nodes[0].ID))
	}
}

func TestDecodeTriangleGLB(t *testing.T) {
	js := strings.Replace(triangleDoc, "$BUF", `{"byteLength": 36}`, 1)
	data := buildGLB(2, chunk{chunkJSON, []byte(js)}, chunk{chunkBIN, fixture[:36]})

	m, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	checkTriangle(t, m)

	// Attributes alias the container bytes.
	if &m.Meshes[0].Primitives[0].Positions.Bytes()[0] != &data[len(data)-36] {
		t.Error("positions do not alias the BIN chunk")
	}
}

func TestDecodeGLBShortBIN(t *testing.T) {
	js := strings.Replace(triangleDoc, "$BUF", `{"byteLength": 40}`, 1)
	data := buildGLB(2, chunk{chunkJSON, []byte(js)}, chunk{chunkBIN, fixture[:36]})

	_, err := Decode(data, nil)
	if !errors.Is(err, MalformedContainer) {
		t.Errorf("Decode() error = %v, want MalformedContainer", err)
	}
}

func TestDecodeMissingBIN(t *testing.T) {
	js := strings.Replace(triangleDoc, "$BUF", `{"byteLength": 36}`, 1)

	tests := []struct {
		name string
		data []byte
		want Kind
	}{
		{"glb without BIN chunk", buildGLB(2, chunk{chunkJSON, []byte(js)}), MalformedContainer},
		{"json without uri", []byte(js), InvalidDocument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("Decode() error = %v, want %v", err, tt.want)
			}
			var de *DecodeError
			if !errors.As(err, &de) || de.Stage != ResolveBuffers || de.Index != 0 {
				t.Errorf("Decode() error = %#v, want ResolveBuffers at buffer 0", err)
			}
		})
	}
}

func TestDecodeQmuntalGLB(t *testing.T) {
	qdoc := qgltf.NewDocument()
	idx := modeler.WritePosition(qdoc, triangle)

	var buf bytes.Buffer
	enc := qgltf.NewEncoder(&buf)
	enc.AsBinary = true
	if err := enc.Encode(qdoc); err != nil {
		t.Fatalf("encode: %v", err)
	}

	m, err := Decode(buf.Bytes(), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	a := m.Accessors[int(idx)]
	if a.Count() != len(triangle) || a.Components != 3 {
		t.Fatalf("accessor = %v", a)
	}
	for i, want := range triangle {
		if got := a.Vec3(i); got != want {
			t.Errorf("position %d = %v, want %v", i, got, want)
		}
	}
	if len(a.Min) != 3 || a.Max[0] != 1 {
		t.Errorf("min/max = %v/%v", a.Min, a.Max)
	}
}

func TestDecodeOutOfRangeAccessor(t *testing.T) {
	src := `{
		"asset": {"version": "2.0"},
		"buffers": [$BUF],
		"bufferViews": [{"buffer": 0, "byteLength": 36}],
		"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}],
		"meshes": [
			{"primitives": [{"attributes": {"POSITION": 0}}]},
			{"primitives": [{"attributes": {"POSITION": 1}}]}
		]
	}`
	m, err := Decode(doc(src), nil)
	if m != nil {
		t.Errorf("Decode() returned a model: %+v", m)
	}
	if !errors.Is(err, OutOfRangeReference) {
		t.Fatalf("Decode() error = %v, want OutOfRangeReference", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("error %T is not *DecodeError", err)
	}
	if de.Stage != BuildMeshes || de.Index != 1 {
		t.Errorf("stage %v index %d, want %v 1", de.Stage, de.Index, BuildMeshes)
	}
}

func TestDecodeHierarchyErrors(t *testing.T) {
	tests := []struct {
		name  string
		nodes string
		want  Kind
	}{
		{"cycle", `[{"children": [1]}, {"children": [2]}, {"children": [0]}]`, InvalidHierarchy},
		{"cycle below root", `[{"children": [1]}, {}, {"children": [3]}, {"children": [2]}]`, InvalidHierarchy},
		{"self", `[{"children": [0]}]`, InvalidHierarchy},
		{"two parents", `[{"children": [2]}, {"children": [2]}, {}]`, InvalidHierarchy},
		{"listed twice", `[{"children": [1, 1]}, {}]`, InvalidHierarchy},
		{"child out of range", `[{"children": [4]}]`, OutOfRangeReference},
		{"mesh out of range", `[{"mesh": 0}]`, OutOfRangeReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `{"asset": {"version": "2.0"}, "nodes": ` + tt.nodes + `}`
			m, err := Decode([]byte(src), nil)
			if m != nil {
				t.Error("Decode() returned a model")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if de.Kind != tt.want || de.Stage != BuildNodeHierarchy {
				t.Errorf("got %v at %v, want %v at %v", de.Kind, de.Stage, tt.want, BuildNodeHierarchy)
			}
		})
	}
}

func TestDecodeErrors(t *testing.T) {
	const views = `"bufferViews": [
		{"buffer": 0, "byteLength": 36},
		{"buffer": 0, "byteOffset": 36, "byteLength": 36},
		{"buffer": 0, "byteOffset": 72, "byteLength": 4},
		{"buffer": 0, "byteOffset": 76, "byteLength": 4}
	]`
	const pos = `{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"}`

	tests := []struct {
		name  string
		src   string
		kind  Kind
		stage Stage
		index int
	}{
		{"not json", `{"asset": `, InvalidDocument, ParseJSON, -1},
		{"no asset", `{}`, InvalidDocument, ParseJSON, -1},
		{"version 1", `{"asset": {"version": "1.0"}}`, InvalidDocument, ParseJSON, -1},
		{"minVersion 2.1", `{"asset": {"version": "2.1", "minVersion": "2.1"}}`, InvalidDocument, ParseJSON, -1},
		{"required extension", `{"asset": {"version": "2.0"}, "extensionsRequired": ["KHR_draco_mesh_compression"]}`,
			InvalidDocument, ParseJSON, -1},
		{"external buffer", `{"asset": {"version": "2.0"}, "buffers": [{"uri": "mesh.bin", "byteLength": 4}]}`,
			InvalidDocument, ResolveBuffers, 0},
		{"not base64", `{"asset": {"version": "2.0"}, "buffers": [{"uri": "data:text/plain,abc", "byteLength": 3}]}`,
			InvalidDocument, ResolveBuffers, 0},
		{"buffer too short", `{"asset": {"version": "2.0"}, "buffers": [$BUF, {"uri": "data:;base64,AAAA", "byteLength": 4}]}`,
			InvalidDocument, ResolveBuffers, 1},
		{"view buffer index", `{"asset": {"version": "2.0"}, "buffers": [$BUF], "bufferViews": [{"buffer": 1, "byteLength": 4}]}`,
			OutOfRangeReference, ResolveBufferViews, 0},
		{"view past buffer", `{"asset": {"version": "2.0"}, "buffers": [$BUF], "bufferViews": [{"buffer": 0, "byteOffset": 150, "byteLength": 4}]}`,
			OutOfRangeReference, ResolveBufferViews, 0},
		{"view stride", `{"asset": {"version": "2.0"}, "buffers": [$BUF], "bufferViews": [{"buffer": 0, "byteLength": 36, "byteStride": 14}]}`,
			InvalidDocument, ResolveBufferViews, 0},
		{"unknown component type", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `, {"bufferView": 0, "componentType": 5124, "count": 3, "type": "VEC3"}]}`,
			UnknownComponentType, ResolveAccessors, 1},
		{"accessor view index", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [{"bufferView": 9, "componentType": 5126, "count": 3, "type": "VEC3"}]}`,
			OutOfRangeReference, ResolveAccessors, 0},
		{"accessor past view", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [{"bufferView": 0, "componentType": 5126, "count": 4, "type": "VEC3"}]}`,
			OutOfRangeReference, ResolveAccessors, 0},
		{"accessor type", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC5"}]}`,
			InvalidDocument, ResolveAccessors, 0},
		{"vertex count mismatch", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `, {"bufferView": 1, "componentType": 5126, "count": 2, "type": "VEC3"}],
			"meshes": [{"primitives": [{"attributes": {"POSITION": 0, "NORMAL": 1}}]}]}`,
			InvalidDocument, BuildMeshes, 0},
		{"index out of range", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `, {"bufferView": 3, "componentType": 5121, "count": 3, "type": "SCALAR"}],
			"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 1}]}]}`,
			OutOfRangeReference, BuildMeshes, 0},
		{"float indices", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `],
			"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "indices": 0}]}]}`,
			InvalidDocument, BuildMeshes, 0},
		{"texcoord gap", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `, {"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC2", "byteOffset": 0}],
			"meshes": [{"primitives": [{"attributes": {"POSITION": 0, "TEXCOORD_1": 1}}]}]}`,
			InvalidDocument, BuildMeshes, 0},
		{"material out of range", `{"asset": {"version": "2.0"}, "buffers": [$BUF], ` + views + `,
			"accessors": [` + pos + `],
			"meshes": [{"primitives": [{"attributes": {"POSITION": 0}, "material": 0}]}]}`,
			OutOfRangeReference, BuildMeshes, 0},
		{"matrix with trs", `{"asset": {"version": "2.0"},
			"nodes": [{"matrix": [1,0,0,0, 0,1,0,0, 0,0,1,0, 0,0,0,1], "translation": [1, 0, 0]}]}`,
			InvalidDocument, BuildNodeHierarchy, 0},
		{"scene root has parent", `{"asset": {"version": "2.0"}, "nodes": [{"children": [1]}, {}], "scenes": [{"nodes": [1]}]}`,
			InvalidHierarchy, BuildNodeHierarchy, 0},
		{"default scene", `{"asset": {"version": "2.0"}, "scenes": [], "scene": 0}`,
			OutOfRangeReference, BuildNodeHierarchy, -1},
		{"skin joint", `{"asset": {"version": "2.0"}, "nodes": [{}], "skins": [{"joints": [3]}]}`,
			OutOfRangeReference, BuildSkinsAndAnimations, 0},
		{"animation sampler", `{"asset": {"version": "2.0"}, "nodes": [{}],
			"animations": [{"channels": [{"sampler": 0, "target": {"node": 0, "path": "translation"}}], "samplers": []}]}`,
			OutOfRangeReference, BuildSkinsAndAnimations, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(doc(tt.src), nil)
			if m != nil {
				t.Error("Decode() returned a model")
			}
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if de.Kind != tt.kind || de.Stage != tt.stage || de.Index != tt.index {
				t.Errorf("got %v at %v [%d], want %v at %v [%d] (%v)",
					de.Kind, de.Stage, de.Index, tt.kind, tt.stage, tt.index, err)
			}
			if !errors.Is(err, tt.kind) {
				t.Errorf("errors.Is(err, %v) = false", tt.kind)
			}
		})
	}
}

func TestDecodeMeshAttributes(t *testing.T) {
	src := `{
		"asset": {"version": "2.0"},
		"buffers": [$BUF],
		"bufferViews": [
			{"buffer": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 36, "byteLength": 36},
			{"buffer": 0, "byteOffset": 72, "byteLength": 4}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 2, "componentType": 5121, "count": 3, "type": "SCALAR"},
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC2"},
			{"bufferView": 1, "componentType": 5126, "count": 3, "type": "VEC2"}
		],
		"materials": [{"name": "m"}],
		"meshes": [{
			"name": "tri",
			"primitives": [{
				"attributes": {"POSITION": 0, "NORMAL": 1, "TEXCOORD_1": 4, "TEXCOORD_0": 3, "_CUSTOM": 2},
				"indices": 2,
				"material": 0,
				"mode": 4,
				"targets": [{"POSITION": 1}, {"NORMAL": 0}]
			}],
			"weights": [0.25, 0.75]
		}]
	}`
	m, err := Decode(doc(src), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	mesh := m.Meshes[0]
	if mesh.Name != "tri" || len(mesh.MorphWeights) != 2 {
		t.Errorf("mesh = %q weights %v", mesh.Name, mesh.MorphWeights)
	}
	p := mesh.Primitives[0]
	if p.Material != 0 || p.Mode != Triangles {
		t.Errorf("material %d mode %v", p.Material, p.Mode)
	}
	if got := p.Normals.Vec3(2); got != [3]float32{0, 0, 1} {
		t.Errorf("normal 2 = %v", got)
	}
	if len(p.UVs) != 2 {
		t.Fatalf("UV sets = %d, want 2", len(p.UVs))
	}
	if got := p.UVs[0].Vec2(1); got != [2]float32{0, 1} {
		t.Errorf("TEXCOORD_0[1] = %v, want [0 1]", got)
	}
	if got := p.UVs[1].Vec2(0); got != [2]float32{0, 0} {
		t.Errorf("TEXCOORD_1[0] = %v", got)
	}
	if got := p.Indices.Uints(); len(got) != 3 || got[2] != 2 {
		t.Errorf("indices = %v", got)
	}
	if len(p.Targets) != 2 || p.Targets[0].Positions == nil || p.Targets[1].Normals == nil {
		t.Errorf("targets = %+v", p.Targets)
	}
	if p.VertexCount() != 3 {
		t.Errorf("VertexCount() = %d", p.VertexCount())
	}
}

func TestDecodeInterleavedView(t *testing.T) {
	inter := le(
		float32(0), float32(0), float32(0), float32(0), float32(0), float32(1),
		float32(1), float32(0), float32(0), float32(0), float32(1), float32(0),
		float32(0), float32(1), float32(0), float32(1), float32(0), float32(0),
	)
	src := `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "` + dataURI(inter) + `", "byteLength": 72}],
		"bufferViews": [{"buffer": 0, "byteLength": 72, "byteStride": 24}],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 0, "byteOffset": 12, "componentType": 5126, "count": 3, "type": "VEC3"}
		],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0, "NORMAL": 1}}]}]
	}`
	m, err := Decode([]byte(src), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	p := m.Meshes[0].Primitives[0]
	if p.Positions.Stride() != 24 || p.Normals.Stride() != 24 {
		t.Errorf("strides %d/%d, want 24", p.Positions.Stride(), p.Normals.Stride())
	}
	if got := p.Positions.Vec3(2); got != [3]float32{0, 1, 0} {
		t.Errorf("position 2 = %v", got)
	}
	if got := p.Normals.Vec3(2); got != [3]float32{1, 0, 0} {
		t.Errorf("normal 2 = %v", got)
	}
}

func TestDecodeSparse(t *testing.T) {
	sparse := le(
		float32(1), float32(2), float32(3), float32(4), // base
		uint8(1), uint8(3), uint8(0), uint8(0), // indices, padded
		float32(20), float32(40), // values
	)
	src := `{
		"asset": {"version": "2.0"},
		"buffers": [{"uri": "` + dataURI(sparse) + `", "byteLength": 28}],
		"bufferViews": [
			{"buffer": 0, "byteLength": 16},
			{"buffer": 0, "byteOffset": 16, "byteLength": 4},
			{"buffer": 0, "byteOffset": 20, "byteLength": 8}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 4, "type": "SCALAR",
				"sparse": {"count": 2, "indices": {"bufferView": 1, "componentType": 5121}, "values": {"bufferView": 2}}},
			{"componentType": 5126, "count": 4, "type": "SCALAR",
				"sparse": {"count": 2, "indices": {"bufferView": 1, "componentType": 5121}, "values": {"bufferView": 2}}},
			{"componentType": 5126, "count": 2, "type": "SCALAR"}
		]
	}`
	m, err := Decode([]byte(src), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	tests := []struct {
		accessor int
		want     []float32
	}{
		{0, []float32{1, 20, 3, 40}},
		{1, []float32{0, 20, 0, 40}},
		{2, []float32{0, 0}},
	}
	for _, tt := range tests {
		got := m.Accessors[tt.accessor].Floats()
		if len(got) != len(tt.want) {
			t.Errorf("accessor %d = %v, want %v", tt.accessor, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("accessor %d = %v, want %v", tt.accessor, got, tt.want)
				break
			}
		}
	}
	// The base view is not patched in place.
	if got := m.BufferViews[0].Data[4:8]; !bytes.Equal(got, le(float32(2))) {
		t.Errorf("base buffer modified: %v", got)
	}
}

func TestDecodeSparseErrors(t *testing.T) {
	tests := []struct {
		name    string
		indices []byte
		code    int
		want    Kind
	}{
		{"not increasing", le(uint8(3), uint8(1), uint8(0), uint8(0)), 5121, InvalidDocument},
		{"duplicate", le(uint8(1), uint8(1), uint8(0), uint8(0)), 5121, InvalidDocument},
		{"past count", le(uint8(1), uint8(9), uint8(0), uint8(0)), 5121, OutOfRangeReference},
		{"signed", le(uint8(1), uint8(2), uint8(0), uint8(0)), 5120, InvalidDocument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := append(append([]byte(nil), tt.indices...), le(float32(20), float32(40))...)
			src := `{
				"asset": {"version": "2.0"},
				"buffers": [{"uri": "` + dataURI(data) + `", "byteLength": 12}],
				"bufferViews": [{"buffer": 0, "byteLength": 4}, {"buffer": 0, "byteOffset": 4, "byteLength": 8}],
				"accessors": [{"componentType": 5126, "count": 4, "type": "SCALAR",
					"sparse": {"count": 2, "indices": {"bufferView": 0, "componentType": ` + strconv.Itoa(tt.code) + `}, "values": {"bufferView": 1}}}]
			}`
			_, err := Decode([]byte(src), nil)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeNodes(t *testing.T) {
	src := `{
		"asset": {"version": "2.0"},
		"nodes": [
			{"name": "root", "children": [2, 1], "translation": [1, 0, 0]},
			{"name": "matrix", "matrix": [2,0,0,0, 0,2,0,0, 0,0,2,0, 0,3,0,1]},
			{"name": "rotated", "rotation": [0, 0.7071068, 0, 0.7071068], "scale": [2, 2, 2]}
		],
		"scenes": [{"name": "main", "nodes": [0]}]
	}`
	m, err := Decode([]byte(src), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	g := m.Graph
	root, mat, rot := m.Nodes[0].ID, m.Nodes[1].ID, m.Nodes[2].ID

	if kids := g.Children(root); len(kids) != 2 || kids[0] != rot || kids[1] != mat {
		t.Errorf("Children(root) = %v, want [%d %d]", kids, rot, mat)
	}
	if g.Parent(mat) != root || g.Name(mat) != "matrix" {
		t.Errorf("matrix node parent %d name %q", g.Parent(mat), g.Name(mat))
	}
	if got := g.Scale(mat); got != (math.Vec3{X: 2, Y: 2, Z: 2}) {
		t.Errorf("decomposed scale = %v", got)
	}
	if got := g.Position(mat); got != (math.Vec3{Y: 3}) {
		t.Errorf("decomposed translation = %v", got)
	}
	if w := g.World(mat); w.Column(3) != (math.Vec3{X: 1, Y: 3}) {
		t.Errorf("World(matrix) translation = %v", w.Column(3))
	}

	// Rotation values come through unchanged.
	if got := g.Rotation(rot); got != (math.Quat{Y: 0.7071068, W: 0.7071068}) {
		t.Errorf("rotation = %v", got)
	}
	if m.Scenes[0].Name != "main" || m.Scene != -1 {
		t.Errorf("scenes %+v default %d", m.Scenes, m.Scene)
	}
}

func TestDecodeSkinAndAnimation(t *testing.T) {
	src := `{
		"asset": {"version": "2.0"},
		"buffers": [$BUF],
		"bufferViews": [
			{"buffer": 0, "byteLength": 36},
			{"buffer": 0, "byteOffset": 80, "byteLength": 64},
			{"buffer": 0, "byteOffset": 144, "byteLength": 8}
		],
		"accessors": [
			{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
			{"bufferView": 1, "componentType": 5126, "count": 1, "type": "MAT4"},
			{"bufferView": 2, "componentType": 5126, "count": 2, "type": "SCALAR"},
			{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"}
		],
		"meshes": [{"primitives": [{"attributes": {"POSITION": 0}}]}],
		"nodes": [{"name": "joint"}, {"mesh": 0, "skin": 0}],
		"skins": [{"joints": [0], "inverseBindMatrices": 1, "skeleton": 0}],
		"animations": [{
			"name": "move",
			"samplers": [{"input": 2, "output": 3}, {"input": 2, "output": 3, "interpolation": "STEP"}],
			"channels": [
				{"sampler": 0, "target": {"node": 0, "path": "translation"}},
				{"sampler": 1, "target": {"path": "scale"}}
			]
		}]
	}`
	m, err := Decode(doc(src), nil)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	skin := m.Skins[0]
	if len(skin.Joints) != 1 || skin.Skeleton != 0 {
		t.Errorf("skin = %+v", skin)
	}
	if got := skin.InverseBind(0); got != [16]float32(math.Identity()) {
		t.Errorf("InverseBind(0) = %v", got)
	}
	if m.Nodes[1].Skin != 0 {
		t.Errorf("node skin = %d", m.Nodes[1].Skin)
	}

	anim := m.Animations[0]
	if anim.Name != "move" || len(anim.Channels) != 2 || len(anim.Samplers) != 2 {
		t.Fatalf("animation = %+v", anim)
	}
	if anim.Samplers[0].Interpolation != Linear || anim.Samplers[1].Interpolation != Step {
		t.Errorf("interpolation %v/%v", anim.Samplers[0].Interpolation, anim.Samplers[1].Interpolation)
	}
	if got := anim.Samplers[0].Input.Floats(); len(got) != 2 || got[1] != 1 {
		t.Errorf("keyframes = %v", got)
	}
	if ch := anim.Channels[0]; ch.Node != 0 || ch.Path != PathTranslation {
		t.Errorf("channel 0 = %+v", ch)
	}
	if ch := anim.Channels[1]; ch.Node != -1 || ch.Path != PathScale {
		t.Errorf("channel 1 = %+v", ch)
	}
}

func TestDecodeAnimationErrors(t *testing.T) {
	tests := []struct {
		name     string
		samplers string
		channels string
		want     Kind
	}{
		{"bad path", `[{"input": 2, "output": 1}]`, `[{"sampler": 0, "target": {"node": 0, "path": "color"}}]`, InvalidDocument},
		{"rotation needs vec4", `[{"input": 2, "output": 1}]`, `[{"sampler": 0, "target": {"node": 0, "path": "rotation"}}]`, InvalidDocument},
		{"vec3 input", `[{"input": 0, "output": 0}]`, `[]`, InvalidDocument},
		{"interpolation", `[{"input": 2, "output": 1, "interpolation": "SMOOTH"}]`, `[]`, InvalidDocument},
		{"cubic count", `[{"input": 2, "output": 1, "interpolation": "CUBICSPLINE"}]`, `[]`, InvalidDocument},
		{"output range", `[{"input": 2, "output": 7}]`, `[]`, OutOfRangeReference},
		{"target node", `[{"input": 2, "output": 1}]`, `[{"sampler": 0, "target": {"node": 5, "path": "translation"}}]`, OutOfRangeReference},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := `{
				"asset": {"version": "2.0"},
				"buffers": [$BUF],
				"bufferViews": [{"buffer": 0, "byteLength": 36}, {"buffer": 0, "byteOffset": 144, "byteLength": 8}],
				"accessors": [
					{"bufferView": 0, "componentType": 5126, "count": 3, "type": "VEC3"},
					{"bufferView": 0, "componentType": 5126, "count": 2, "type": "VEC3"},
					{"bufferView": 1, "componentType": 5126, "count": 2, "type": "SCALAR"}
				],
				"nodes": [{}],
				"animations": [{"samplers": ` + tt.samplers + `, "channels": ` + tt.channels + `}]
			}`
			_, err := Decode(doc(src), nil)
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("Decode() error = %v, want *DecodeError", err)
			}
			if de.Kind != tt.want || de.Stage != BuildSkinsAndAnimations {
				t.Errorf("got %v at %v, want %v (%v)", de.Kind, de.Stage, tt.want, err)
			}
		})
	}
}

func TestDecodeReaderLimit(t *testing.T) {
	data := doc(triangleDoc)

	m, err := DecodeReader(bytes.NewReader(data), &Options{MaxDocumentBytes: int64(len(data))})
	if err != nil {
		t.Fatalf("DecodeReader at limit: %v", err)
	}
	checkTriangle(t, m)

	_, err = DecodeReader(bytes.NewReader(data), &Options{MaxDocumentBytes: int64(len(data) - 1)})
	if !errors.Is(err, InvalidDocument) {
		t.Errorf("DecodeReader over limit error = %v, want InvalidDocument", err)
	}
}

func TestDecodeExternalBuffer(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "tri angle.bin"), fixture[:36], 0o644); err != nil {
		t.Fatal(err)
	}
	src := strings.Replace(triangleDoc, "$BUF", `{"uri": "tri%20angle.bin", "byteLength": 36}`, 1)

	m, err := Decode([]byte(src), &Options{BufferLoader: DirLoader(dir)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	checkTriangle(t, m)

	for _, uri := range []string{"../tri.bin", "/etc/passwd", "http://example.com/a.bin"} {
		bad := strings.Replace(triangleDoc, "$BUF", `{"uri": "`+uri+`", "byteLength": 36}`, 1)
		if _, err := Decode([]byte(bad), &Options{BufferLoader: DirLoader(dir)}); !errors.Is(err, InvalidDocument) {
			t.Errorf("uri %q: error = %v, want InvalidDocument", uri, err)
		}
	}

	_, err = Decode([]byte(src), nil)
	if !errors.Is(err, ErrExternalBuffer) {
		t.Errorf("without loader: error = %v, want ErrExternalBuffer", err)
	}
}

func TestDecodeLogsStages(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	_, err := Decode(doc(triangleDoc), &Options{Logger: zap.New(core)})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n := logs.FilterMessage("stage complete").Len(); n != 7 {
		t.Errorf("logged %d stages, want 7", n)
	}
	if logs.FilterMessage("decoded").Len() != 1 {
		t.Error("missing summary entry")
	}
}

func TestDecodeErrorMessage(t *testing.T) {
	err := &DecodeError{Kind: OutOfRangeReference, Stage: BuildMeshes, Index: 2, Msg: "accessor 9 of 3"}
	want := "gltf: build meshes [2]: out of range reference: accessor 9 of 3"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
