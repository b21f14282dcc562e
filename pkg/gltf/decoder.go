// Package gltf decodes glTF 2.0 documents (JSON or GLB) into typed, strided
// vertex attributes and a transform hierarchy.
//
// Decoding runs as a fixed sequence of stages. The first failure aborts the
// whole document: Decode returns a *DecodeError and no Model.
package gltf

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-gltf/pkg/scene"
)

// Options configures a decode. The zero value decodes self-contained
// documents (GLB or data: URIs) without logging.
type Options struct {
	// BufferLoader resolves external buffer URIs. Nil refuses them.
	BufferLoader BufferLoader
	// Logger receives per-stage debug output. Nil disables logging.
	Logger *zap.Logger
	// MaxDocumentBytes caps what DecodeReader will read. 0 means no limit.
	MaxDocumentBytes int64
}

// Extensions that may appear in extensionsRequired. None of them change how
// buffers, accessors or node transforms are interpreted by this package.
var supportedExtensions = map[string]bool{
	"KHR_mesh_quantization":           true,
	"KHR_texture_transform":           true,
	"KHR_materials_unlit":             true,
	"KHR_materials_emissive_strength": true,
	"KHR_lights_punctual":             true,
}

// Asset is the document's asset block.
type Asset struct {
	Version    string
	MinVersion string
	Generator  string
	Copyright  string
}

// BufferView is a byte range of a buffer. The component type is bound later
// by each accessor that reads it.
type BufferView struct {
	Name       string
	Buffer     int
	Data       []byte
	ByteStride int
	Target     int
}

// Model is a fully decoded document. Every index field refers into the
// corresponding Model slice; -1 means absent.
type Model struct {
	Asset          Asset
	ExtensionsUsed []string

	Buffers     [][]byte
	BufferViews []BufferView
	Accessors   []Attribute
	Meshes      []Mesh
	Nodes       []Node
	Scenes      []Scene
	Scene       int
	Skins       []Skin
	Animations  []Animation

	// Graph holds one transform node per document node, linked as in the
	// document. Nodes[i].ID is the handle of node i.
	Graph *scene.Graph
}

type decoder struct {
	opts  Options
	log   *zap.Logger
	stage Stage
	doc   *document
	bin   []byte
	glb   bool
	model *Model
}

// Decode decodes a glTF JSON document or a GLB container.
// opts may be nil.
func Decode(data []byte, opts *Options) (*Model, error) {
	d := &decoder{model: &Model{Scene: -1}}
	if opts != nil {
		d.opts = *opts
	}
	d.log = d.opts.Logger
	if d.log == nil {
		d.log = zap.NewNop()
	}

	if err := d.run(data); err != nil {
		d.log.Debug("decode failed", zap.Stringer("stage", d.stage), zap.Error(err))
		return nil, err
	}
	return d.model, nil
}

// DecodeReader reads r to the end and decodes it.
func DecodeReader(r io.Reader, opts *Options) (*Model, error) {
	var limit int64
	if opts != nil {
		limit = opts.MaxDocumentBytes
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, fmt.Errorf("gltf: read document: %w", err)
	}
	if limit > 0 && int64(buf.Len()) > limit {
		return nil, newError(InvalidDocument, ParseJSON, -1, "document exceeds %d bytes", limit)
	}
	return Decode(buf.Bytes(), opts)
}

func (d *decoder) run(data []byte) error {
	steps := []struct {
		stage Stage
		fn    func() error
	}{
		{ParseJSON, func() error { return d.parse(data) }},
		{ResolveBuffers, d.resolveBuffers},
		{ResolveBufferViews, d.resolveBufferViews},
		{ResolveAccessors, d.resolveAccessors},
		{BuildMeshes, d.buildMeshes},
		{BuildNodeHierarchy, d.buildNodeHierarchy},
		{BuildSkinsAndAnimations, d.buildSkinsAndAnimations},
	}
	for _, s := range steps {
		d.stage = s.stage
		start := time.Now()
		if err := s.fn(); err != nil {
			return err
		}
		d.log.Debug("stage complete", zap.Stringer("stage", s.stage), zap.Duration("took", time.Since(start)))
	}
	d.stage = Done

	m := d.model
	d.log.Debug("decoded",
		zap.Int("buffers", len(m.Buffers)),
		zap.Int("accessors", len(m.Accessors)),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("nodes", len(m.Nodes)),
		zap.Int("skins", len(m.Skins)),
		zap.Int("animations", len(m.Animations)),
	)
	return nil
}

func (d *decoder) fail(kind Kind, index int, format string, args ...any) error {
	return newError(kind, d.stage, index, format, args...)
}

func (d *decoder) wrap(kind Kind, index int, err error) error {
	return &DecodeError{Kind: kind, Stage: d.stage, Index: index, Err: err}
}

func (d *decoder) parse(data []byte) error {
	jsonData := data
	if IsGLB(data) {
		d.glb = true
		var err error
		jsonData, d.bin, err = SplitGLB(data)
		if err != nil {
			return err
		}
		d.log.Debug("glb container", zap.Int("json", len(jsonData)), zap.Int("bin", len(d.bin)))
	}

	doc, err := parseDocument(jsonData)
	if err != nil {
		return d.wrap(InvalidDocument, -1, err)
	}
	if doc.Asset == nil {
		return d.fail(InvalidDocument, -1, "missing asset")
	}
	if major, _, ok := parseVersion(doc.Asset.Version); !ok || major != 2 {
		return d.fail(InvalidDocument, -1, "unsupported asset version %q", doc.Asset.Version)
	}
	if doc.Asset.MinVersion != "" {
		major, minor, ok := parseVersion(doc.Asset.MinVersion)
		if !ok || major != 2 || minor != 0 {
			return d.fail(InvalidDocument, -1, "unsupported minVersion %q", doc.Asset.MinVersion)
		}
	}
	for _, ext := range doc.ExtensionsRequired {
		if !supportedExtensions[ext] {
			return d.fail(InvalidDocument, -1, "required extension %s is not supported", ext)
		}
	}

	d.doc = doc
	d.model.Asset = Asset{
		Version:    doc.Asset.Version,
		MinVersion: doc.Asset.MinVersion,
		Generator:  doc.Asset.Generator,
		Copyright:  doc.Asset.Copyright,
	}
	d.model.ExtensionsUsed = doc.ExtensionsUsed
	return nil
}

// parseVersion parses "<major>.<minor>".
func parseVersion(s string) (major, minor int, ok bool) {
	a, b, found := strings.Cut(s, ".")
	if !found {
		return 0, 0, false
	}
	major, err1 := strconv.Atoi(a)
	minor, err2 := strconv.Atoi(b)
	return major, minor, err1 == nil && err2 == nil
}

func (d *decoder) resolveBufferViews() error {
	d.model.BufferViews = make([]BufferView, len(d.doc.BufferViews))
	for i, v := range d.doc.BufferViews {
		if v.Buffer < 0 || v.Buffer >= len(d.model.Buffers) {
			return d.fail(OutOfRangeReference, i, "buffer %d of %d", v.Buffer, len(d.model.Buffers))
		}
		if v.ByteOffset < 0 || v.ByteLength < 0 {
			return d.fail(InvalidDocument, i, "negative byteOffset %d or byteLength %d", v.ByteOffset, v.ByteLength)
		}
		buf := d.model.Buffers[v.Buffer]
		if v.ByteOffset > len(buf) || v.ByteLength > len(buf)-v.ByteOffset {
			return d.fail(OutOfRangeReference, i, "range [%d, +%d) exceeds buffer %d of %d bytes",
				v.ByteOffset, v.ByteLength, v.Buffer, len(buf))
		}
		if v.ByteStride != 0 && (v.ByteStride < 4 || v.ByteStride > 252 || v.ByteStride%4 != 0) {
			return d.fail(InvalidDocument, i, "byteStride %d", v.ByteStride)
		}
		end := v.ByteOffset + v.ByteLength
		d.model.BufferViews[i] = BufferView{
			Name:       v.Name,
			Buffer:     v.Buffer,
			Data:       buf[v.ByteOffset:end:end],
			ByteStride: v.ByteStride,
			Target:     v.Target,
		}
	}
	return nil
}
