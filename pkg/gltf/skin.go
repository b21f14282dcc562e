package gltf

import "github.com/Faultbox/midgard-gltf/pkg/math"

// Skin binds a mesh to a set of joint nodes.
type Skin struct {
	Name     string
	Joints   []int // node indices
	Skeleton int   // -1 when absent

	// InverseBindMatrices holds one MAT4 per joint, or nil when every
	// inverse bind matrix is the identity.
	InverseBindMatrices *Attribute
}

// InverseBind returns the inverse bind matrix of joint j in column-major order.
func (s *Skin) InverseBind(j int) [16]float32 {
	if s.InverseBindMatrices == nil {
		return math.Identity()
	}
	return s.InverseBindMatrices.Mat4(j)
}

func (d *decoder) buildSkinsAndAnimations() error {
	if err := d.buildSkins(); err != nil {
		return err
	}
	return d.buildAnimations()
}

func (d *decoder) buildSkins() error {
	nodes := len(d.model.Nodes)
	d.model.Skins = make([]Skin, len(d.doc.Skins))
	for i, js := range d.doc.Skins {
		if len(js.Joints) == 0 {
			return d.fail(InvalidDocument, i, "skin has no joints")
		}
		seen := make(map[int]bool, len(js.Joints))
		for _, j := range js.Joints {
			if j < 0 || j >= nodes {
				return d.fail(OutOfRangeReference, i, "joint node %d of %d", j, nodes)
			}
			if seen[j] {
				return d.fail(InvalidDocument, i, "joint node %d listed twice", j)
			}
			seen[j] = true
		}

		skin := Skin{Name: js.Name, Joints: js.Joints, Skeleton: optional(js.Skeleton)}
		if skin.Skeleton < -1 || skin.Skeleton >= nodes {
			return d.fail(OutOfRangeReference, i, "skeleton node %d of %d", skin.Skeleton, nodes)
		}

		if js.InverseBindMatrices != nil {
			idx := *js.InverseBindMatrices
			if idx < 0 || idx >= len(d.model.Accessors) {
				return d.fail(OutOfRangeReference, i, "inverseBindMatrices accessor %d of %d", idx, len(d.model.Accessors))
			}
			a := d.model.Accessors[idx]
			if a.Components != 16 || a.ComponentType() != Float32 {
				return d.fail(InvalidDocument, i, "inverseBindMatrices must be float MAT4, got %v x%d", a.ComponentType(), a.Components)
			}
			if a.Count() < len(js.Joints) {
				return d.fail(InvalidDocument, i, "%d inverse bind matrices for %d joints", a.Count(), len(js.Joints))
			}
			skin.InverseBindMatrices = &a
		}
		d.model.Skins[i] = skin
	}
	return nil
}
