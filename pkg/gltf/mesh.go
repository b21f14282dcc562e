package gltf

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Mode is a primitive topology.
type Mode int

const (
	Points Mode = iota
	Lines
	LineLoop
	LineStrip
	Triangles
	TriangleStrip
	TriangleFan
)

func (m Mode) String() string {
	switch m {
	case Points:
		return "POINTS"
	case Lines:
		return "LINES"
	case LineLoop:
		return "LINE_LOOP"
	case LineStrip:
		return "LINE_STRIP"
	case Triangles:
		return "TRIANGLES"
	case TriangleStrip:
		return "TRIANGLE_STRIP"
	case TriangleFan:
		return "TRIANGLE_FAN"
	}
	return "Mode(" + strconv.Itoa(int(m)) + ")"
}

// MorphTarget holds the per-vertex displacements of one morph target.
type MorphTarget struct {
	Positions *Attribute
	Normals   *Attribute
	Tangents  *Attribute
}

// Primitive is the vertex data of one draw call. All present attributes,
// morph target attributes included, have the same element count.
type Primitive struct {
	Mode     Mode
	Material int // -1 when absent
	Indices  *Attribute

	Positions *Attribute
	Normals   *Attribute
	Tangents  *Attribute

	// Indexed by set number: UVs[0] is TEXCOORD_0.
	UVs        []Attribute
	Colors     []Attribute
	Joints     []Attribute
	WeightSets []Attribute

	// Weights is WEIGHTS_0 flattened to floats.
	Weights []float32

	Targets []MorphTarget
}

// Mesh is a named list of primitives.
type Mesh struct {
	Name         string
	Primitives   []Primitive
	MorphWeights []float32
}

// VertexCount returns the shared element count of the vertex attributes.
func (p *Primitive) VertexCount() int {
	if p.Positions != nil {
		return p.Positions.Count()
	}
	for _, set := range [][]Attribute{p.UVs, p.Colors, p.Joints, p.WeightSets} {
		if len(set) > 0 {
			return set[0].Count()
		}
	}
	for _, a := range []*Attribute{p.Normals, p.Tangents} {
		if a != nil {
			return a.Count()
		}
	}
	return 0
}

// Expected component counts per semantic. COLOR accepts 3 or 4.
var semanticComponents = map[string][]int{
	"POSITION": {3},
	"NORMAL":   {3},
	"TANGENT":  {4},
	"TEXCOORD": {2},
	"COLOR":    {3, 4},
	"JOINTS":   {4},
	"WEIGHTS":  {4},
}

func (d *decoder) buildMeshes() error {
	d.model.Meshes = make([]Mesh, len(d.doc.Meshes))
	for i, jm := range d.doc.Meshes {
		mesh := Mesh{Name: jm.Name, MorphWeights: jm.Weights}
		if len(jm.Primitives) == 0 {
			return d.fail(InvalidDocument, i, "mesh has no primitives")
		}
		for j, jp := range jm.Primitives {
			p, err := d.buildPrimitive(jp)
			if err != nil {
				return d.wrap(kindOf(err), i, fmt.Errorf("primitive %d: %w", j, err))
			}
			if jm.Weights != nil && len(jm.Weights) != len(p.Targets) {
				return d.fail(InvalidDocument, i, "primitive %d: %d morph targets for %d weights", j, len(p.Targets), len(jm.Weights))
			}
			if j > 0 && len(p.Targets) != len(mesh.Primitives[0].Targets) {
				return d.fail(InvalidDocument, i, "primitive %d: morph target count differs from primitive 0", j)
			}
			mesh.Primitives = append(mesh.Primitives, p)
		}
		d.model.Meshes[i] = mesh
	}
	return nil
}

// elementError carries a Kind out of a nested element (primitive, sampler,
// channel) so the caller can report it against the parent's index.
type elementError struct {
	kind Kind
	msg  string
}

func (e *elementError) Error() string { return e.msg }
func (e *elementError) Unwrap() error { return e.kind }

func elemErr(kind Kind, format string, args ...any) error {
	return &elementError{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func kindOf(err error) Kind {
	var ee *elementError
	if errors.As(err, &ee) {
		return ee.kind
	}
	return InvalidDocument
}

func (d *decoder) accessor(semantic string, idx int) (Attribute, error) {
	if idx < 0 || idx >= len(d.model.Accessors) {
		return Attribute{}, elemErr(OutOfRangeReference, "%s: accessor %d of %d", semantic, idx, len(d.model.Accessors))
	}
	return d.model.Accessors[idx], nil
}

func (d *decoder) buildPrimitive(jp jsonPrimitive) (Primitive, error) {
	p := Primitive{Mode: Triangles, Material: -1}
	if jp.Mode != nil {
		if *jp.Mode < int(Points) || *jp.Mode > int(TriangleFan) {
			return p, elemErr(InvalidDocument, "mode %d", *jp.Mode)
		}
		p.Mode = Mode(*jp.Mode)
	}
	if jp.Material != nil {
		if *jp.Material < 0 || *jp.Material >= len(d.doc.Materials) {
			return p, elemErr(OutOfRangeReference, "material %d of %d", *jp.Material, len(d.doc.Materials))
		}
		p.Material = *jp.Material
	}
	if len(jp.Attributes) == 0 {
		return p, elemErr(InvalidDocument, "no attributes")
	}

	sets := map[string]map[int]Attribute{}
	for _, name := range sortedKeys(jp.Attributes) {
		a, err := d.accessor(name, jp.Attributes[name])
		if err != nil {
			return p, err
		}
		if strings.HasPrefix(name, "_") {
			continue
		}
		semantic, set, indexed := splitSemantic(name)
		want, known := semanticComponents[semantic]
		if !known {
			d.log.Debug("ignoring attribute", zap.String("semantic", name))
			continue
		}
		if !componentsIn(a.Components, want) {
			return p, elemErr(InvalidDocument, "%s has %d components", name, a.Components)
		}
		switch semantic {
		case "POSITION":
			p.Positions = &a
		case "NORMAL":
			p.Normals = &a
		case "TANGENT":
			p.Tangents = &a
		default:
			if !indexed {
				return p, elemErr(InvalidDocument, "attribute %s needs a set index", name)
			}
			if sets[semantic] == nil {
				sets[semantic] = map[int]Attribute{}
			}
			sets[semantic][set] = a
		}
	}

	var err error
	if p.UVs, err = orderedSet("TEXCOORD", sets["TEXCOORD"]); err != nil {
		return p, err
	}
	if p.Colors, err = orderedSet("COLOR", sets["COLOR"]); err != nil {
		return p, err
	}
	if p.Joints, err = orderedSet("JOINTS", sets["JOINTS"]); err != nil {
		return p, err
	}
	if p.WeightSets, err = orderedSet("WEIGHTS", sets["WEIGHTS"]); err != nil {
		return p, err
	}
	if len(p.Joints) != len(p.WeightSets) {
		return p, elemErr(InvalidDocument, "%d JOINTS sets for %d WEIGHTS sets", len(p.Joints), len(p.WeightSets))
	}
	if len(p.WeightSets) > 0 {
		p.Weights = p.WeightSets[0].Floats()
	}

	for t, target := range jp.Targets {
		var mt MorphTarget
		for _, name := range sortedKeys(target) {
			a, err := d.accessor(fmt.Sprintf("target %d %s", t, name), target[name])
			if err != nil {
				return p, err
			}
			switch name {
			case "POSITION":
				mt.Positions = &a
			case "NORMAL":
				mt.Normals = &a
			case "TANGENT":
				if a.Components != 3 {
					return p, elemErr(InvalidDocument, "target %d TANGENT has %d components", t, a.Components)
				}
				mt.Tangents = &a
			}
		}
		p.Targets = append(p.Targets, mt)
	}

	if err := checkVertexCounts(&p); err != nil {
		return p, err
	}

	if jp.Indices != nil {
		a, err := d.accessor("indices", *jp.Indices)
		if err != nil {
			return p, err
		}
		if a.Components != 1 || !a.ComponentType().Unsigned() {
			return p, elemErr(InvalidDocument, "indices must be unsigned SCALAR, got %v x%d", a.ComponentType(), a.Components)
		}
		if n := p.VertexCount(); n > 0 {
			for k := 0; k < a.Count(); k++ {
				if v := a.Uint(k, 0); int64(v) >= int64(n) {
					return p, elemErr(OutOfRangeReference, "index %d at %d references %d vertices", v, k, n)
				}
			}
		}
		p.Indices = &a
	}
	return p, nil
}

type namedAttr struct {
	name string
	a    *Attribute
}

func checkVertexCounts(p *Primitive) error {
	n := p.VertexCount()
	attrs := []namedAttr{{"POSITION", p.Positions}, {"NORMAL", p.Normals}, {"TANGENT", p.Tangents}}
	semantics := []string{"TEXCOORD", "COLOR", "JOINTS", "WEIGHTS"}
	for i, set := range [][]Attribute{p.UVs, p.Colors, p.Joints, p.WeightSets} {
		for k := range set {
			attrs = append(attrs, namedAttr{fmt.Sprintf("%s_%d", semantics[i], k), &set[k]})
		}
	}
	for t, mt := range p.Targets {
		attrs = append(attrs,
			namedAttr{fmt.Sprintf("target %d POSITION", t), mt.Positions},
			namedAttr{fmt.Sprintf("target %d NORMAL", t), mt.Normals},
			namedAttr{fmt.Sprintf("target %d TANGENT", t), mt.Tangents},
		)
	}
	for _, e := range attrs {
		if e.a != nil && e.a.Count() != n {
			return elemErr(InvalidDocument, "%s has %d elements, want %d", e.name, e.a.Count(), n)
		}
	}
	return nil
}

// splitSemantic splits "TEXCOORD_1" into ("TEXCOORD", 1, true).
func splitSemantic(name string) (semantic string, set int, indexed bool) {
	i := strings.LastIndexByte(name, '_')
	if i < 0 {
		return name, 0, false
	}
	n, err := strconv.Atoi(name[i+1:])
	if err != nil || n < 0 {
		return name, 0, false
	}
	return name[:i], n, true
}

// orderedSet turns set-number keyed attributes into a slice, rejecting gaps.
func orderedSet(semantic string, m map[int]Attribute) ([]Attribute, error) {
	if len(m) == 0 {
		return nil, nil
	}
	out := make([]Attribute, len(m))
	for set, a := range m {
		if set >= len(m) {
			return nil, elemErr(InvalidDocument, "%s sets are not contiguous from 0", semantic)
		}
		out[set] = a
	}
	return out, nil
}

func componentsIn(n int, allowed []int) bool {
	for _, a := range allowed {
		if n == a {
			return true
		}
	}
	return false
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
