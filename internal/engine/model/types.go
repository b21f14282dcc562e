// Package model turns decoded glTF meshes into flat, upload-ready vertex
// arrays.
package model

// Vertex represents a model mesh vertex with position, normal, and texture coordinates.
type Vertex struct {
	Position [3]float32
	Normal   [3]float32
	TexCoord [2]float32
}

// MaterialGroup is a run of indices drawn with one material.
type MaterialGroup struct {
	Material   int // -1 for the default material
	StartIndex int32
	IndexCount int32
}

// Mesh holds the complete model mesh data ready for GPU upload.
type Mesh struct {
	Vertices []Vertex
	Indices  []uint32
	Groups   []MaterialGroup
	Bounds   Bounds
}

// Bounds holds the axis-aligned bounding box of the model.
type Bounds struct {
	Min [3]float32
	Max [3]float32
}

// Center returns the midpoint of the box.
func (b Bounds) Center() [3]float32 {
	return [3]float32{
		(b.Min[0] + b.Max[0]) / 2,
		(b.Min[1] + b.Max[1]) / 2,
		(b.Min[2] + b.Max[2]) / 2,
	}
}

// BuildOptions contains options for mesh building.
type BuildOptions struct {
	// Scene selects the scene to flatten; -1 uses the document's default
	// scene, or every root node when it has none.
	Scene int
	// ReverseWinding flips every triangle.
	ReverseWinding bool
	// SmoothNormals averages normals of vertices sharing a position.
	SmoothNormals bool
}
