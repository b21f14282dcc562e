package gltf

import "fmt"

// Path is the node property an animation channel drives.
type Path string

const (
	PathTranslation Path = "translation"
	PathRotation    Path = "rotation"
	PathScale       Path = "scale"
	PathWeights     Path = "weights"
)

// Output components per path.
var pathComponents = map[Path]int{
	PathTranslation: 3,
	PathRotation:    4,
	PathScale:       3,
	PathWeights:     1,
}

// Interpolation is a sampler's keyframe interpolation mode.
type Interpolation string

const (
	Linear      Interpolation = "LINEAR"
	Step        Interpolation = "STEP"
	CubicSpline Interpolation = "CUBICSPLINE"
)

// Channel connects a sampler to a node property. Node is -1 when the
// document leaves the target node undefined.
type Channel struct {
	Sampler int
	Node    int
	Path    Path
}

// Sampler pairs keyframe times with output values. Input is a float SCALAR
// attribute; Output holds one value per keyframe (three for CUBICSPLINE:
// in-tangent, value, out-tangent) and, for weights, one per morph target.
type Sampler struct {
	Input         Attribute
	Output        Attribute
	Interpolation Interpolation
}

// Animation is a set of channels and the samplers they read.
type Animation struct {
	Name     string
	Channels []Channel
	Samplers []Sampler
}

func (d *decoder) buildAnimations() error {
	d.model.Animations = make([]Animation, len(d.doc.Animations))
	for i, ja := range d.doc.Animations {
		anim := Animation{Name: ja.Name}
		for s, js := range ja.Samplers {
			sampler, err := d.buildSampler(js)
			if err != nil {
				return d.wrap(kindOf(err), i, fmt.Errorf("sampler %d: %w", s, err))
			}
			anim.Samplers = append(anim.Samplers, sampler)
		}
		for c, jc := range ja.Channels {
			ch, err := d.buildChannel(jc, anim.Samplers)
			if err != nil {
				return d.wrap(kindOf(err), i, fmt.Errorf("channel %d: %w", c, err))
			}
			anim.Channels = append(anim.Channels, ch)
		}
		d.model.Animations[i] = anim
	}
	return nil
}

func (d *decoder) buildSampler(js jsonSampler) (Sampler, error) {
	input, err := d.accessor("input", js.Input)
	if err != nil {
		return Sampler{}, err
	}
	output, err := d.accessor("output", js.Output)
	if err != nil {
		return Sampler{}, err
	}
	if input.Components != 1 || input.ComponentType() != Float32 {
		return Sampler{}, elemErr(InvalidDocument, "input must be float SCALAR, got %v x%d", input.ComponentType(), input.Components)
	}
	if input.Count() == 0 {
		return Sampler{}, elemErr(InvalidDocument, "no keyframes")
	}

	interp := Interpolation(js.Interpolation)
	switch interp {
	case "":
		interp = Linear
	case Linear, Step, CubicSpline:
	default:
		return Sampler{}, elemErr(InvalidDocument, "interpolation %q", js.Interpolation)
	}

	per := input.Count()
	if interp == CubicSpline {
		per *= 3
	}
	if output.Count() == 0 || output.Count()%per != 0 {
		return Sampler{}, elemErr(InvalidDocument, "%d outputs for %d keyframes (%s)", output.Count(), input.Count(), interp)
	}
	return Sampler{Input: input, Output: output, Interpolation: interp}, nil
}

func (d *decoder) buildChannel(jc jsonChannel, samplers []Sampler) (Channel, error) {
	if jc.Sampler < 0 || jc.Sampler >= len(samplers) {
		return Channel{}, elemErr(OutOfRangeReference, "sampler %d of %d", jc.Sampler, len(samplers))
	}
	path := Path(jc.Target.Path)
	want, ok := pathComponents[path]
	if !ok {
		return Channel{}, elemErr(InvalidDocument, "target path %q", jc.Target.Path)
	}
	if got := samplers[jc.Sampler].Output.Components; got != want {
		return Channel{}, elemErr(InvalidDocument, "%s output has %d components, want %d", path, got, want)
	}
	node := optional(jc.Target.Node)
	if node < -1 || node >= len(d.model.Nodes) {
		return Channel{}, elemErr(OutOfRangeReference, "target node %d of %d", node, len(d.model.Nodes))
	}
	return Channel{Sampler: jc.Sampler, Node: node, Path: path}, nil
}
