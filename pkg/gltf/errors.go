package gltf

import (
	"fmt"
	"strings"
)

// Kind classifies a decode failure. Kind implements error so callers can
// test for a class of failure with errors.Is(err, gltf.OutOfRangeReference).
type Kind int

const (
	// UnknownComponentType is an accessor componentType code outside the
	// six glTF numeric types.
	UnknownComponentType Kind = iota + 1
	// InvalidHierarchy is a node listed as a child more than once, a node
	// listing itself, or a cycle in the children graph.
	InvalidHierarchy
	// OutOfRangeReference is an index (buffer, bufferView, accessor, mesh,
	// node, ...) beyond the bounds of the array it points into, or a byte
	// range beyond the end of its buffer.
	OutOfRangeReference
	// MalformedContainer is a GLB header or chunk layout violation.
	MalformedContainer
	// InvalidDocument is any other schema violation.
	InvalidDocument
)

var kindNames = map[Kind]string{
	UnknownComponentType: "unknown component type",
	InvalidHierarchy:     "invalid hierarchy",
	OutOfRangeReference:  "out of range reference",
	MalformedContainer:   "malformed container",
	InvalidDocument:      "invalid document",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

func (k Kind) Error() string {
	return "gltf: " + k.String()
}

// Stage is a step of the decode pipeline. Stages run strictly in order.
type Stage int

const (
	ParseJSON Stage = iota
	ResolveBuffers
	ResolveBufferViews
	ResolveAccessors
	BuildMeshes
	BuildNodeHierarchy
	BuildSkinsAndAnimations
	Done
)

var stageNames = [...]string{
	ParseJSON:               "parse json",
	ResolveBuffers:          "resolve buffers",
	ResolveBufferViews:      "resolve buffer views",
	ResolveAccessors:        "resolve accessors",
	BuildMeshes:             "build meshes",
	BuildNodeHierarchy:      "build node hierarchy",
	BuildSkinsAndAnimations: "build skins and animations",
	Done:                    "done",
}

func (s Stage) String() string {
	if s >= 0 && int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// DecodeError reports why a document was rejected. Index is the offending
// index within the array being processed by Stage (buffer, accessor, mesh,
// node, ...), or -1 when the failure is not tied to one element.
type DecodeError struct {
	Kind  Kind
	Stage Stage
	Index int
	Msg   string
	Err   error
}

func (e *DecodeError) Error() string {
	var b strings.Builder
	b.WriteString("gltf: ")
	b.WriteString(e.Stage.String())
	if e.Index >= 0 {
		fmt.Fprintf(&b, " [%d]", e.Index)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Msg != "" {
		b.WriteString(": ")
		b.WriteString(e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind Kind, stage Stage, index int, format string, args ...any) *DecodeError {
	return &DecodeError{Kind: kind, Stage: stage, Index: index, Msg: fmt.Sprintf(format, args...)}
}
