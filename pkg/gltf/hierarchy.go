package gltf

import (
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Node is a document node. ID is its handle in Model.Graph.
type Node struct {
	Name     string
	ID       scene.NodeID
	Mesh     int // -1 when absent
	Skin     int
	Camera   int
	Children []int
	Weights  []float32
}

// Scene lists the root nodes of one scene.
type Scene struct {
	Name  string
	Nodes []int
}

// buildNodeHierarchy validates the children graph before creating any
// transform node: every child index in range, no self reference, at most one
// parent per node, and every node reachable from a parentless node.
func (d *decoder) buildNodeHierarchy() error {
	nodes := d.doc.Nodes
	parent := make([]int, len(nodes))
	for i := range parent {
		parent[i] = -1
	}

	for i, n := range nodes {
		if err := d.checkNodeRefs(i, n); err != nil {
			return err
		}
		for _, c := range n.Children {
			switch {
			case c < 0 || c >= len(nodes):
				return d.fail(OutOfRangeReference, i, "child %d of %d nodes", c, len(nodes))
			case c == i:
				return d.fail(InvalidHierarchy, i, "node lists itself as a child")
			case parent[c] != -1:
				return d.fail(InvalidHierarchy, i, "node %d already has parent %d", c, parent[c])
			}
			parent[c] = i
		}
	}

	// With at most one parent each, a node unreachable from the roots sits on
	// or below a cycle.
	reached := make([]bool, len(nodes))
	var stack []int
	for i := range nodes {
		if parent[i] == -1 {
			stack = append(stack, i)
		}
	}
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		reached[i] = true
		stack = append(stack, nodes[i].Children...)
	}
	for i, ok := range reached {
		if !ok {
			return d.fail(InvalidHierarchy, i, "node is part of a cycle")
		}
	}

	g := scene.New()
	d.model.Nodes = make([]Node, len(nodes))
	for i, n := range nodes {
		id := g.Add(n.Name)
		t, r, s, err := d.nodeTRS(i, n)
		if err != nil {
			return err
		}
		g.SetTRS(id, t, r, s)
		d.model.Nodes[i] = Node{
			Name:     n.Name,
			ID:       id,
			Mesh:     optional(n.Mesh),
			Skin:     optional(n.Skin),
			Camera:   optional(n.Camera),
			Children: n.Children,
			Weights:  n.Weights,
		}
	}
	for i, n := range nodes {
		for _, c := range n.Children {
			if err := g.SetParent(d.model.Nodes[c].ID, d.model.Nodes[i].ID); err != nil {
				return d.wrap(InvalidHierarchy, i, err)
			}
		}
	}
	d.model.Graph = g

	return d.buildScenes(parent)
}

func (d *decoder) checkNodeRefs(i int, n jsonNode) error {
	refs := []struct {
		what  string
		index *int
		count int
	}{
		{"mesh", n.Mesh, len(d.doc.Meshes)},
		{"skin", n.Skin, len(d.doc.Skins)},
		{"camera", n.Camera, len(d.doc.Cameras)},
	}
	for _, r := range refs {
		if r.index != nil && (*r.index < 0 || *r.index >= r.count) {
			return d.fail(OutOfRangeReference, i, "%s %d of %d", r.what, *r.index, r.count)
		}
	}
	if n.Skin != nil && n.Mesh == nil {
		return d.fail(InvalidDocument, i, "skin without mesh")
	}
	return nil
}

// nodeTRS returns the local transform of a node. A matrix is decomposed with
// math.Decompose; it may not be combined with TRS properties.
func (d *decoder) nodeTRS(i int, n jsonNode) (math.Vec3, math.Quat, math.Vec3, error) {
	t, r, s := math.Vec3{}, math.QuatIdentity(), math.Vec3One
	if n.Matrix != nil {
		if n.Translation != nil || n.Rotation != nil || n.Scale != nil {
			return t, r, s, d.fail(InvalidDocument, i, "matrix combined with translation/rotation/scale")
		}
		t, r, s = math.Decompose(math.Mat4(*n.Matrix))
		return t, r, s, nil
	}
	if n.Translation != nil {
		t = math.V3(*n.Translation)
	}
	if n.Rotation != nil {
		r = math.Q(*n.Rotation)
	}
	if n.Scale != nil {
		s = math.V3(*n.Scale)
	}
	return t, r, s, nil
}

func (d *decoder) buildScenes(parent []int) error {
	d.model.Scenes = make([]Scene, len(d.doc.Scenes))
	for i, sc := range d.doc.Scenes {
		for _, n := range sc.Nodes {
			if n < 0 || n >= len(parent) {
				return d.fail(OutOfRangeReference, i, "scene node %d of %d", n, len(parent))
			}
			if parent[n] != -1 {
				return d.fail(InvalidHierarchy, i, "scene root %d has parent %d", n, parent[n])
			}
		}
		d.model.Scenes[i] = Scene{Name: sc.Name, Nodes: sc.Nodes}
	}
	if d.doc.Scene != nil {
		if *d.doc.Scene < 0 || *d.doc.Scene >= len(d.model.Scenes) {
			return d.fail(OutOfRangeReference, -1, "scene %d of %d", *d.doc.Scene, len(d.model.Scenes))
		}
		d.model.Scene = *d.doc.Scene
	}
	return nil
}

func optional(p *int) int {
	if p == nil {
		return -1
	}
	return *p
}
