package scene

import "github.com/Faultbox/midgard-gltf/pkg/math"

// Transform is one entry of a Snapshot.
type Transform struct {
	ID    NodeID
	World [16]float32 // column-major
}

// World returns the world matrix of id. Stale ancestors are brought up to
// date from the root down; nodes whose key is unchanged are not recomputed.
func (g *Graph) World(id NodeID) math.Mat4 {
	g.get(id)

	g.chain = g.chain[:0]
	for p := id; p != None; p = g.nodes[p].parent {
		g.chain = append(g.chain, p)
	}
	for i := len(g.chain) - 1; i >= 0; i-- {
		g.refresh(g.chain[i])
	}
	return g.nodes[id].world
}

// refresh recomputes the world matrix of id if it is stale. The parent must
// already be fresh.
func (g *Graph) refresh(id NodeID) {
	n := &g.nodes[id]
	var (
		parentWorld   math.Mat4
		parentVersion uint64
	)
	if n.parent != None {
		p := &g.nodes[n.parent]
		parentWorld, parentVersion = p.world, p.worldVersion
	}
	if n.worldValid && n.keyLocal == n.localVersion && n.keyParent == n.parent && n.keyParentVersion == parentVersion {
		return
	}

	local := g.localOf(n)
	if n.parent != None {
		n.world = parentWorld.Mul(local)
	} else {
		n.world = local
	}
	n.worldValid = true
	n.worldVersion = g.tick()
	n.keyLocal, n.keyParent, n.keyParentVersion = n.localVersion, n.parent, parentVersion
	g.recomputations++
}

// Walk calls fn for every node, parents before children, roots and children
// in insertion order. World matrices are refreshed as the walk reaches them.
func (g *Graph) Walk(fn func(id NodeID, world math.Mat4)) {
	stack := make([]NodeID, 0, len(g.roots))
	for i := len(g.roots) - 1; i >= 0; i-- {
		stack = append(stack, g.roots[i])
	}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		g.refresh(id)
		fn(id, g.nodes[id].world)

		children := g.nodes[id].children
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// Snapshot returns the world matrix of every node in Walk order, ready to be
// uploaded as shader uniforms.
func (g *Graph) Snapshot() []Transform {
	out := make([]Transform, 0, g.live)
	g.Walk(func(id NodeID, world math.Mat4) {
		out = append(out, Transform{ID: id, World: world})
	})
	return out
}
