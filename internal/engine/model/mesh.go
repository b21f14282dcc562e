package model

import (
	gomath "math"
	"sort"

	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// BuildMesh flattens every triangle primitive reachable from the selected
// scene into one vertex array, positions and normals in world space.
// Returns nil when the scene holds no triangles.
func BuildMesh(m *gltf.Model, opts BuildOptions) *Mesh {
	nodeIndex := make(map[scene.NodeID]int, len(m.Nodes))
	for i, n := range m.Nodes {
		nodeIndex[n.ID] = i
	}

	b := meshBuilder{
		groups:  make(map[int][]uint32),
		reverse: opts.ReverseWinding,
		bounds: Bounds{
			Min: [3]float32{gomath.MaxFloat32, gomath.MaxFloat32, gomath.MaxFloat32},
			Max: [3]float32{-gomath.MaxFloat32, -gomath.MaxFloat32, -gomath.MaxFloat32},
		},
	}
	visit := func(id scene.NodeID, world math.Mat4) {
		n := &m.Nodes[nodeIndex[id]]
		if n.Mesh < 0 {
			return
		}
		prims := m.Meshes[n.Mesh].Primitives
		for i := range prims {
			b.addPrimitive(&prims[i], world)
		}
	}

	sceneIdx := opts.Scene
	if sceneIdx < 0 {
		sceneIdx = m.Scene
	}
	if sceneIdx >= 0 && sceneIdx < len(m.Scenes) {
		for _, root := range m.Scenes[sceneIdx].Nodes {
			walkFrom(m.Graph, m.Nodes[root].ID, visit)
		}
	} else {
		m.Graph.Walk(visit)
	}

	if len(b.vertices) == 0 {
		return nil
	}

	if opts.SmoothNormals {
		SmoothNormals(b.vertices)
	}
	return b.finish()
}

// walkFrom visits root and its descendants depth-first in child order.
func walkFrom(g *scene.Graph, root scene.NodeID, fn func(scene.NodeID, math.Mat4)) {
	stack := []scene.NodeID{root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		fn(id, g.World(id))
		children := g.Children(id)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

type meshBuilder struct {
	vertices []Vertex
	groups   map[int][]uint32
	bounds   Bounds
	reverse  bool
}

func (b *meshBuilder) addPrimitive(p *gltf.Primitive, world math.Mat4) {
	if p.Positions == nil {
		return
	}
	tris := Triangles(p)
	if len(tris) == 0 {
		return
	}

	base := uint32(len(b.vertices))
	normals := normalMatrix(world)
	n := p.Positions.Count()
	for i := 0; i < n; i++ {
		pos := world.TransformPoint(p.Positions.Vec3(i))
		updateBounds(&b.bounds, pos)

		v := Vertex{Position: pos}
		if p.Normals != nil {
			v.Normal = normals.TransformDirection(p.Normals.Vec3(i))
			v.Normal = math.V3(v.Normal).Normalize().Array()
		}
		if len(p.UVs) > 0 {
			v.TexCoord = p.UVs[0].Vec2(i)
		}
		b.vertices = append(b.vertices, v)
	}

	// A mirroring transform turns front faces around.
	flip := b.reverse != (world.Determinant3() < 0)
	out := b.groups[p.Material]
	for i := 0; i+2 < len(tris); i += 3 {
		a, c1, c2 := base+tris[i], base+tris[i+1], base+tris[i+2]
		if flip {
			c1, c2 = c2, c1
		}
		out = append(out, a, c1, c2)
	}
	b.groups[p.Material] = out

	if p.Normals == nil {
		faceNormals(b.vertices[base:], out[len(out)-len(tris):], base)
	}
}

// finish concatenates the material groups in material order.
func (b *meshBuilder) finish() *Mesh {
	materials := make([]int, 0, len(b.groups))
	for mat := range b.groups {
		materials = append(materials, mat)
	}
	sort.Ints(materials)

	var indices []uint32
	groups := make([]MaterialGroup, 0, len(materials))
	for _, mat := range materials {
		idxs := b.groups[mat]
		groups = append(groups, MaterialGroup{
			Material:   mat,
			StartIndex: int32(len(indices)),
			IndexCount: int32(len(idxs)),
		})
		indices = append(indices, idxs...)
	}

	return &Mesh{
		Vertices: b.vertices,
		Indices:  indices,
		Groups:   groups,
		Bounds:   b.bounds,
	}
}

// Triangles returns p as a triangle list of vertex indices. Strips and fans
// are unrolled; points and lines yield nil.
func Triangles(p *gltf.Primitive) []uint32 {
	var idx []uint32
	if p.Indices != nil {
		idx = p.Indices.Uints()
	} else {
		n := p.VertexCount()
		idx = make([]uint32, n)
		for i := range idx {
			idx[i] = uint32(i)
		}
	}

	switch p.Mode {
	case gltf.Triangles:
		return idx[:len(idx)-len(idx)%3]
	case gltf.TriangleStrip:
		var out []uint32
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				out = append(out, idx[i], idx[i+1], idx[i+2])
			} else {
				out = append(out, idx[i], idx[i+2], idx[i+1])
			}
		}
		return out
	case gltf.TriangleFan:
		var out []uint32
		for i := 1; i+1 < len(idx); i++ {
			out = append(out, idx[i], idx[i+1], idx[0])
		}
		return out
	}
	return nil
}

// normalMatrix returns the cofactor of world's 3x3 block: the inverse
// transpose scaled by the determinant, with the sign folded back in.
// Results need normalizing.
func normalMatrix(m math.Mat4) math.Mat4 {
	c0, c1, c2 := m.Column(0), m.Column(1), m.Column(2)
	n0, n1, n2 := c1.Cross(c2), c2.Cross(c0), c0.Cross(c1)
	if m.Determinant3() < 0 {
		n0, n1, n2 = n0.Scale(-1), n1.Scale(-1), n2.Scale(-1)
	}
	return math.Mat4{
		n0.X, n0.Y, n0.Z, 0,
		n1.X, n1.Y, n1.Z, 0,
		n2.X, n2.Y, n2.Z, 0,
		0, 0, 0, 1,
	}
}

// faceNormals fills vertex normals with the area-weighted average of the
// adjacent face normals. tris holds indices offset by base.
func faceNormals(vertices []Vertex, tris []uint32, base uint32) {
	sums := make([]math.Vec3, len(vertices))
	for i := 0; i+2 < len(tris); i += 3 {
		a, b, c := tris[i]-base, tris[i+1]-base, tris[i+2]-base
		p0 := math.V3(vertices[a].Position)
		e1 := math.V3(vertices[b].Position).Sub(p0)
		e2 := math.V3(vertices[c].Position).Sub(p0)
		n := e1.Cross(e2)
		sums[a], sums[b], sums[c] = sums[a].Add(n), sums[b].Add(n), sums[c].Add(n)
	}
	for i := range vertices {
		vertices[i].Normal = sums[i].Normalize().Array()
	}
}

// CenterMeshXZ centers the mesh horizontally (X/Z) but preserves Y offset.
// Returns the centering offset applied.
func CenterMeshXZ(vertices []Vertex, bounds *Bounds) (centerX, centerZ float32) {
	center := bounds.Center()
	centerX, centerZ = center[0], center[2]

	for i := range vertices {
		vertices[i].Position[0] -= centerX
		vertices[i].Position[2] -= centerZ
	}

	bounds.Min[0] -= centerX
	bounds.Max[0] -= centerX
	bounds.Min[2] -= centerZ
	bounds.Max[2] -= centerZ

	return centerX, centerZ
}

// SmoothNormals averages normals at shared vertex positions.
func SmoothNormals(vertices []Vertex) {
	const epsilon float32 = 0.001

	// Group vertices by quantized position for O(n) lookup
	posMap := make(map[[3]int32][]int)
	for i := range vertices {
		key := [3]int32{
			int32(vertices[i].Position[0] / epsilon),
			int32(vertices[i].Position[1] / epsilon),
			int32(vertices[i].Position[2] / epsilon),
		}
		posMap[key] = append(posMap[key], i)
	}

	for _, idxs := range posMap {
		if len(idxs) < 2 {
			continue
		}

		var sum math.Vec3
		for _, idx := range idxs {
			sum = sum.Add(math.V3(vertices[idx].Normal))
		}
		avg := sum.Normalize().Array()

		for _, idx := range idxs {
			vertices[idx].Normal = avg
		}
	}
}

func updateBounds(b *Bounds, p [3]float32) {
	b.Min = math.V3(b.Min).Min(math.V3(p)).Array()
	b.Max = math.V3(b.Max).Max(math.V3(p)).Array()
}
