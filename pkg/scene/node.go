package scene

import "github.com/Faultbox/midgard-gltf/pkg/math"

type node struct {
	name  string
	alive bool

	position math.Vec3
	rotation math.Quat
	scale    math.Vec3

	parent   NodeID
	children []NodeID

	// localVersion changes on every TRS write; local is valid while
	// localCached equals it.
	localVersion uint64
	localCached  uint64
	local        math.Mat4

	// world is valid while worldValid is set and the key it was computed
	// under still matches: own localVersion, parent id and parent
	// worldVersion. worldVersion changes whenever world is recomputed.
	world            math.Mat4
	worldValid       bool
	worldVersion     uint64
	keyLocal         uint64
	keyParent        NodeID
	keyParentVersion uint64
}

// SetPosition sets the local translation. Matrices are recomputed on the next
// read.
func (g *Graph) SetPosition(id NodeID, p math.Vec3) {
	n := g.get(id)
	n.position = p
	n.localVersion = g.tick()
}

// SetRotation sets the local rotation. q is used as given and never
// renormalized: a non-unit quaternion produces a non-rigid transform.
func (g *Graph) SetRotation(id NodeID, q math.Quat) {
	n := g.get(id)
	n.rotation = q
	n.localVersion = g.tick()
}

// SetScale sets the local scale.
func (g *Graph) SetScale(id NodeID, s math.Vec3) {
	n := g.get(id)
	n.scale = s
	n.localVersion = g.tick()
}

// SetTRS sets translation, rotation and scale in one step.
func (g *Graph) SetTRS(id NodeID, t math.Vec3, r math.Quat, s math.Vec3) {
	n := g.get(id)
	n.position, n.rotation, n.scale = t, r, s
	n.localVersion = g.tick()
}

// Position returns the local translation.
func (g *Graph) Position(id NodeID) math.Vec3 { return g.get(id).position }

// Rotation returns the local rotation.
func (g *Graph) Rotation(id NodeID) math.Quat { return g.get(id).rotation }

// Scale returns the local scale.
func (g *Graph) Scale(id NodeID) math.Vec3 { return g.get(id).scale }

// Local returns the local matrix T * R * S.
func (g *Graph) Local(id NodeID) math.Mat4 {
	return g.localOf(g.get(id))
}

func (g *Graph) localOf(n *node) math.Mat4 {
	if n.localCached != n.localVersion {
		n.local = math.Compose(n.position, n.rotation, n.scale)
		n.localCached = n.localVersion
	}
	return n.local
}
