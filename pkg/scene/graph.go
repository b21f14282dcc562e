// Package scene holds a tree of transform nodes and computes their world
// matrices lazily.
//
// Nodes live in an arena owned by a Graph and are addressed by NodeID.
// Each node's local matrix is T * R * S built from its position, rotation
// and scale; its world matrix is parent world * local. Both are cached and
// recomputed only when a version counter shows that the node or its ancestor
// chain changed.
//
// A Graph is not safe for concurrent use.
package scene

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-gltf/pkg/math"
)

var (
	// ErrInvalidNode is returned for IDs that do not name a live node.
	ErrInvalidNode = errors.New("scene: invalid node")
	// ErrCycle is returned when a parent link would make a node its own ancestor.
	ErrCycle = errors.New("scene: cycle")
)

// NodeID addresses a node within its Graph. IDs of removed nodes are not
// reused.
type NodeID int32

// None is the parent of a root node.
const None NodeID = -1

// Graph is an arena of transform nodes.
type Graph struct {
	nodes []node
	roots []NodeID
	live  int

	clock          uint64
	recomputations int

	chain []NodeID // scratch for World
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{}
}

func (g *Graph) tick() uint64 {
	g.clock++
	return g.clock
}

// Add creates a root node with identity transform.
func (g *Graph) Add(name string) NodeID {
	id := NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{
		name:         name,
		alive:        true,
		rotation:     math.QuatIdentity(),
		scale:        math.Vec3One,
		parent:       None,
		localVersion: g.tick(),
	})
	g.roots = append(g.roots, id)
	g.live++
	return id
}

// Len returns the number of live nodes.
func (g *Graph) Len() int { return g.live }

// Valid reports whether id names a live node.
func (g *Graph) Valid(id NodeID) bool {
	return id >= 0 && int(id) < len(g.nodes) && g.nodes[id].alive
}

func (g *Graph) check(id NodeID) error {
	if !g.Valid(id) {
		return fmt.Errorf("%w: %d", ErrInvalidNode, id)
	}
	return nil
}

// get panics on an invalid id, like an out-of-range slice index.
func (g *Graph) get(id NodeID) *node {
	if err := g.check(id); err != nil {
		panic(err)
	}
	return &g.nodes[id]
}

// Name returns the name given to Add.
func (g *Graph) Name(id NodeID) string { return g.get(id).name }

// Parent returns the parent of id, or None for a root.
func (g *Graph) Parent(id NodeID) NodeID { return g.get(id).parent }

// Children returns the children of id in insertion order.
func (g *Graph) Children(id NodeID) []NodeID {
	return append([]NodeID(nil), g.get(id).children...)
}

// Roots returns the parentless nodes in the order they became roots.
func (g *Graph) Roots() []NodeID {
	return append([]NodeID(nil), g.roots...)
}

// SetParent makes child the last child of parent. A parent of None detaches
// child. The child's cached world matrix is invalidated immediately.
func (g *Graph) SetParent(child, parent NodeID) error {
	if parent == None {
		return g.Detach(child)
	}
	if err := g.check(child); err != nil {
		return err
	}
	if err := g.check(parent); err != nil {
		return err
	}
	for p := parent; p != None; p = g.nodes[p].parent {
		if p == child {
			return fmt.Errorf("%w: %d is an ancestor of %d", ErrCycle, child, parent)
		}
	}
	if g.nodes[child].parent == parent {
		return nil
	}
	g.unlink(child)
	n := &g.nodes[child]
	n.parent = parent
	n.worldValid = false
	g.nodes[parent].children = append(g.nodes[parent].children, child)
	return nil
}

// Detach makes id a root. Its descendants move with it.
func (g *Graph) Detach(id NodeID) error {
	if err := g.check(id); err != nil {
		return err
	}
	if g.nodes[id].parent == None {
		return nil
	}
	g.unlink(id)
	n := &g.nodes[id]
	n.parent = None
	n.worldValid = false
	g.roots = append(g.roots, id)
	return nil
}

// Remove deletes id and its whole subtree.
func (g *Graph) Remove(id NodeID) error {
	if err := g.check(id); err != nil {
		return err
	}
	g.unlink(id)
	stack := []NodeID{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &g.nodes[cur]
		stack = append(stack, n.children...)
		*n = node{parent: None}
		g.live--
	}
	return nil
}

// unlink removes id from its parent's children or from the root list.
func (g *Graph) unlink(id NodeID) {
	if p := g.nodes[id].parent; p != None {
		g.nodes[p].children = without(g.nodes[p].children, id)
	} else {
		g.roots = without(g.roots, id)
	}
}

func without(ids []NodeID, id NodeID) []NodeID {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Recomputations returns how many world matrices have been computed since the
// graph was created.
func (g *Graph) Recomputations() int { return g.recomputations }
