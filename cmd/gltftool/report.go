package main

import (
	"errors"
	"fmt"
	"io"
	gomath "math"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/midgard-gltf/internal/config"
	"github.com/Faultbox/midgard-gltf/internal/engine/geometry"
	"github.com/Faultbox/midgard-gltf/internal/engine/model"
	"github.com/Faultbox/midgard-gltf/pkg/gltf"
	"github.com/Faultbox/midgard-gltf/pkg/math"
	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// report is a command result that can print itself as text. YAML output
// marshals the struct directly.
type report interface {
	text(w io.Writer, prec int) error
}

func write(w io.Writer, out config.OutputConfig, r report) error {
	if out.Format == config.FormatYAML {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	return r.text(w, out.Precision)
}

// round trims f to prec decimal places for YAML output.
func round(f float32, prec int) float64 {
	p := gomath.Pow10(prec)
	return gomath.Round(float64(f)*p) / p
}

func roundAll(v []float32, prec int) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = round(f, prec)
	}
	return out
}

func vec(v []float64, prec int) string {
	parts := make([]string, len(v))
	for i, f := range v {
		parts[i] = fmt.Sprintf("%.*f", prec, f)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// info

type counts struct {
	Buffers     int `yaml:"buffers"`
	BufferViews int `yaml:"buffer_views"`
	Accessors   int `yaml:"accessors"`
	Meshes      int `yaml:"meshes"`
	Nodes       int `yaml:"nodes"`
	Scenes      int `yaml:"scenes"`
	Skins       int `yaml:"skins"`
	Animations  int `yaml:"animations"`
}

type boundsReport struct {
	Min []float64 `yaml:"min"`
	Max []float64 `yaml:"max"`
}

type infoReport struct {
	File         string        `yaml:"file"`
	Version      string        `yaml:"version"`
	Generator    string        `yaml:"generator,omitempty"`
	Extensions   []string      `yaml:"extensions_used,omitempty"`
	DefaultScene int           `yaml:"default_scene"`
	Counts       counts        `yaml:"counts"`
	Vertices     int           `yaml:"vertices"`
	Triangles    int           `yaml:"triangles"`
	Bounds       *boundsReport `yaml:"bounds,omitempty"`
}

func newInfo(path string, m *gltf.Model, prec int) *infoReport {
	r := &infoReport{
		File:         path,
		Version:      m.Asset.Version,
		Generator:    m.Asset.Generator,
		Extensions:   m.ExtensionsUsed,
		DefaultScene: m.Scene,
		Counts: counts{
			Buffers:     len(m.Buffers),
			BufferViews: len(m.BufferViews),
			Accessors:   len(m.Accessors),
			Meshes:      len(m.Meshes),
			Nodes:       len(m.Nodes),
			Scenes:      len(m.Scenes),
			Skins:       len(m.Skins),
			Animations:  len(m.Animations),
		},
	}
	if mesh := model.BuildMesh(m, model.BuildOptions{Scene: -1}); mesh != nil {
		r.Vertices = len(mesh.Vertices)
		r.Triangles = len(mesh.Indices) / 3
		r.Bounds = &boundsReport{
			Min: roundAll(mesh.Bounds.Min[:], prec),
			Max: roundAll(mesh.Bounds.Max[:], prec),
		}
	}
	return r
}

func (r *infoReport) text(w io.Writer, prec int) error {
	fmt.Fprintf(w, "File:       %s\n", r.File)
	fmt.Fprintf(w, "Version:    %s\n", r.Version)
	if r.Generator != "" {
		fmt.Fprintf(w, "Generator:  %s\n", r.Generator)
	}
	if len(r.Extensions) > 0 {
		fmt.Fprintf(w, "Extensions: %s\n", strings.Join(r.Extensions, ", "))
	}
	fmt.Fprintln(w)
	c := r.Counts
	fmt.Fprintf(w, "  %-12s %d\n", "buffers", c.Buffers)
	fmt.Fprintf(w, "  %-12s %d\n", "bufferViews", c.BufferViews)
	fmt.Fprintf(w, "  %-12s %d\n", "accessors", c.Accessors)
	fmt.Fprintf(w, "  %-12s %d\n", "meshes", c.Meshes)
	fmt.Fprintf(w, "  %-12s %d\n", "nodes", c.Nodes)
	fmt.Fprintf(w, "  %-12s %d (default %d)\n", "scenes", c.Scenes, r.DefaultScene)
	fmt.Fprintf(w, "  %-12s %d\n", "skins", c.Skins)
	fmt.Fprintf(w, "  %-12s %d\n", "animations", c.Animations)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Scene geometry: %d vertices, %d triangles\n", r.Vertices, r.Triangles)
	if r.Bounds != nil {
		_, err := fmt.Fprintf(w, "Bounds: %s - %s\n", vec(r.Bounds.Min, prec), vec(r.Bounds.Max, prec))
		return err
	}
	return nil
}

// meshes

type attributeReport struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Components int    `yaml:"components"`
	Normalized bool   `yaml:"normalized,omitempty"`
	Stride     int    `yaml:"stride"`
	Bytes      int    `yaml:"bytes"`
}

type primitiveReport struct {
	Mode       string            `yaml:"mode"`
	Material   int               `yaml:"material"`
	Vertices   int               `yaml:"vertices"`
	Indices    int               `yaml:"indices"`
	Targets    int               `yaml:"morph_targets,omitempty"`
	Attributes []attributeReport `yaml:"attributes"`
	// UploadBytes is what a host buffer receives, indices included.
	UploadBytes int `yaml:"upload_bytes"`
}

type meshReport struct {
	Index      int               `yaml:"index"`
	Name       string            `yaml:"name,omitempty"`
	Primitives []primitiveReport `yaml:"primitives"`
}

type meshesReport struct {
	Meshes []meshReport `yaml:"meshes"`
}

// layoutBuffer is a geometry.Buffer that records attribute layouts instead
// of uploading them.
type layoutBuffer struct {
	attrs []attributeReport
	bytes int
}

func (b *layoutBuffer) SetAttribute(name string, data []byte, typ gltf.ComponentType, components int, normalized bool, stride int) error {
	b.attrs = append(b.attrs, attributeReport{
		Name:       name,
		Type:       typ.String(),
		Components: components,
		Normalized: normalized,
		Stride:     stride,
		Bytes:      len(data),
	})
	b.bytes += len(data)
	return nil
}

func (b *layoutBuffer) SetIndices(data []byte, _ gltf.ComponentType, _ int) error {
	b.bytes += len(data)
	return nil
}

func newMeshes(m *gltf.Model) (*meshesReport, error) {
	r := &meshesReport{Meshes: make([]meshReport, 0, len(m.Meshes))}
	for i := range m.Meshes {
		mesh := &m.Meshes[i]
		mr := meshReport{Index: i, Name: mesh.Name}
		for j := range mesh.Primitives {
			p := &mesh.Primitives[j]
			var buf layoutBuffer
			if err := geometry.Bind(&buf, p); err != nil && !errors.Is(err, geometry.ErrNoPositions) {
				return nil, fmt.Errorf("mesh %d primitive %d: %w", i, j, err)
			}
			pr := primitiveReport{
				Mode:        p.Mode.String(),
				Material:    p.Material,
				Vertices:    p.VertexCount(),
				Targets:     len(p.Targets),
				Attributes:  buf.attrs,
				UploadBytes: buf.bytes,
			}
			if p.Indices != nil {
				pr.Indices = p.Indices.Count()
			}
			mr.Primitives = append(mr.Primitives, pr)
		}
		r.Meshes = append(r.Meshes, mr)
	}
	return r, nil
}

func (r *meshesReport) text(w io.Writer, _ int) error {
	for _, m := range r.Meshes {
		name := m.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "Mesh %d: %s\n", m.Index, name)
		for j, p := range m.Primitives {
			fmt.Fprintf(w, "  Primitive %d: %s, material %d, %d vertices, %d indices, %d bytes\n",
				j, p.Mode, p.Material, p.Vertices, p.Indices, p.UploadBytes)
			if p.Targets > 0 {
				fmt.Fprintf(w, "    morph targets: %d\n", p.Targets)
			}
			for _, a := range p.Attributes {
				norm := ""
				if a.Normalized {
					norm = " normalized"
				}
				fmt.Fprintf(w, "    %-12s %s x%d%s stride %d\n", a.Name, a.Type, a.Components, norm, a.Stride)
			}
		}
	}
	return nil
}

// nodes

type nodeReport struct {
	Index       int       `yaml:"index"`
	Name        string    `yaml:"name,omitempty"`
	Depth       int       `yaml:"depth"`
	Mesh        int       `yaml:"mesh"`
	Translation []float64 `yaml:"translation,flow"`
	Rotation    []float64 `yaml:"rotation,flow"`
	Scale       []float64 `yaml:"scale,flow"`
	World       []float64 `yaml:"world,flow"`
}

type nodesReport struct {
	Nodes []nodeReport `yaml:"nodes"`
}

// newNodes lists nodes in hierarchy order with their world transforms split
// back into translation, rotation and scale.
func newNodes(m *gltf.Model, prec int) *nodesReport {
	index := make(map[scene.NodeID]int, len(m.Nodes))
	for i, n := range m.Nodes {
		index[n.ID] = i
	}

	depth := make(map[scene.NodeID]int, len(m.Nodes))
	r := &nodesReport{Nodes: make([]nodeReport, 0, len(m.Nodes))}
	m.Graph.Walk(func(id scene.NodeID, world math.Mat4) {
		if p := m.Graph.Parent(id); p != scene.None {
			depth[id] = depth[p] + 1
		}
		i := index[id]
		t, q, s := math.Decompose(world)
		ta, qa, sa := t.Array(), q.Array(), s.Array()
		r.Nodes = append(r.Nodes, nodeReport{
			Index:       i,
			Name:        m.Nodes[i].Name,
			Depth:       depth[id],
			Mesh:        m.Nodes[i].Mesh,
			Translation: roundAll(ta[:], prec),
			Rotation:    roundAll(qa[:], prec),
			Scale:       roundAll(sa[:], prec),
			World:       roundAll(world[:], prec),
		})
	})
	return r
}

func (r *nodesReport) text(w io.Writer, prec int) error {
	for _, n := range r.Nodes {
		name := n.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "%s[%d] %s", strings.Repeat("  ", n.Depth), n.Index, name)
		if n.Mesh >= 0 {
			fmt.Fprintf(w, " mesh=%d", n.Mesh)
		}
		fmt.Fprintf(w, " t=%s r=%s s=%s\n", vec(n.Translation, prec), vec(n.Rotation, prec), vec(n.Scale, prec))
	}
	return nil
}

// animations

type channelReport struct {
	Node          int    `yaml:"node"`
	Path          string `yaml:"path"`
	Interpolation string `yaml:"interpolation"`
	Keyframes     int    `yaml:"keyframes"`
}

type animationReport struct {
	Index    int             `yaml:"index"`
	Name     string          `yaml:"name,omitempty"`
	Duration float64         `yaml:"duration"`
	Channels []channelReport `yaml:"channels"`
}

type animationsReport struct {
	Animations []animationReport `yaml:"animations"`
}

func newAnimations(m *gltf.Model) *animationsReport {
	r := &animationsReport{Animations: make([]animationReport, 0, len(m.Animations))}
	for i := range m.Animations {
		a := &m.Animations[i]
		ar := animationReport{Index: i, Name: a.Name, Duration: float64(model.Duration(a))}
		for _, ch := range a.Channels {
			s := a.Samplers[ch.Sampler]
			ar.Channels = append(ar.Channels, channelReport{
				Node:          ch.Node,
				Path:          string(ch.Path),
				Interpolation: string(s.Interpolation),
				Keyframes:     s.Input.Count(),
			})
		}
		r.Animations = append(r.Animations, ar)
	}
	return r
}

func (r *animationsReport) text(w io.Writer, prec int) error {
	for _, a := range r.Animations {
		name := a.Name
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Fprintf(w, "Animation %d: %s, %.*fs\n", a.Index, name, prec, a.Duration)
		for _, ch := range a.Channels {
			fmt.Fprintf(w, "  node %-4d %-12s %-12s %d keys\n", ch.Node, ch.Path, ch.Interpolation, ch.Keyframes)
		}
	}
	return nil
}

// validate

type validation struct {
	File    string `yaml:"file"`
	Valid   bool   `yaml:"valid"`
	Kind    string `yaml:"kind,omitempty"`
	Stage   string `yaml:"stage,omitempty"`
	Index   *int   `yaml:"index,omitempty"`
	Message string `yaml:"message,omitempty"`
	Nodes   int    `yaml:"nodes,omitempty"`
	Meshes  int    `yaml:"meshes,omitempty"`
}

func newValidation(path string, m *gltf.Model, err error) *validation {
	v := &validation{File: path, Valid: err == nil}
	if err == nil {
		v.Nodes, v.Meshes = len(m.Nodes), len(m.Meshes)
		return v
	}
	v.Message = err.Error()
	var de *gltf.DecodeError
	if errors.As(err, &de) {
		v.Kind = de.Kind.String()
		v.Stage = de.Stage.String()
		if de.Index >= 0 {
			idx := de.Index
			v.Index = &idx
		}
	}
	return v
}

func (v *validation) text(w io.Writer, _ int) error {
	if v.Valid {
		_, err := fmt.Fprintf(w, "%s: ok (%d meshes, %d nodes)\n", v.File, v.Meshes, v.Nodes)
		return err
	}
	where := v.Stage
	if v.Index != nil {
		where = fmt.Sprintf("%s [%d]", v.Stage, *v.Index)
	}
	fmt.Fprintf(w, "%s: invalid: %s during %s\n", v.File, v.Kind, where)
	_, err := fmt.Fprintf(w, "  %s\n", v.Message)
	return err
}
