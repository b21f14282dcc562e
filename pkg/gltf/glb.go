package gltf

import (
	"bytes"
	"encoding/binary"
	"io"
)

// GLB container constants.
const (
	glbMagic      = 0x46546C67 // "glTF"
	glbVersion    = 2
	glbHeaderSize = 12
	chunkHeader   = 8
	chunkJSON     = 0x4E4F534A
	chunkBIN      = 0x004E4942
)

// IsGLB reports whether data starts with the GLB magic.
func IsGLB(data []byte) bool {
	return len(data) >= 4 && binary.LittleEndian.Uint32(data) == glbMagic
}

// SplitGLB separates a GLB container into its JSON chunk and its optional
// BIN chunk. Both slices alias data. Chunks of unknown type after the JSON
// chunk are skipped; a second JSON or BIN chunk is rejected.
func SplitGLB(data []byte) (jsonChunk, bin []byte, err error) {
	if len(data) < glbHeaderSize {
		return nil, nil, newError(MalformedContainer, ParseJSON, -1, "%d bytes is shorter than the GLB header", len(data))
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != glbMagic {
		return nil, nil, newError(MalformedContainer, ParseJSON, -1, "bad magic 0x%08X", magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != glbVersion {
		return nil, nil, newError(MalformedContainer, ParseJSON, -1, "unsupported container version %d", v)
	}
	total := binary.LittleEndian.Uint32(data[8:12])
	if total < glbHeaderSize || uint64(total) > uint64(len(data)) {
		return nil, nil, newError(MalformedContainer, ParseJSON, -1, "declared length %d, have %d bytes", total, len(data))
	}

	r := bytes.NewReader(data[glbHeaderSize:total])
	chunk := 0
	for r.Len() > 0 {
		var hdr struct {
			Length uint32
			Type   uint32
		}
		if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
			return nil, nil, newError(MalformedContainer, ParseJSON, chunk, "truncated chunk header")
		}
		if uint64(hdr.Length) > uint64(r.Len()) {
			return nil, nil, newError(MalformedContainer, ParseJSON, chunk,
				"chunk length %d exceeds remaining %d bytes", hdr.Length, r.Len())
		}
		start := int(total) - r.Len()
		body := data[start : start+int(hdr.Length) : start+int(hdr.Length)]
		if _, err := r.Seek(int64(hdr.Length), io.SeekCurrent); err != nil {
			return nil, nil, newError(MalformedContainer, ParseJSON, chunk, "seek: %v", err)
		}

		switch {
		case chunk == 0 && hdr.Type != chunkJSON:
			return nil, nil, newError(MalformedContainer, ParseJSON, chunk, "first chunk is 0x%08X, want JSON", hdr.Type)
		case chunk == 0:
			jsonChunk = body
		case hdr.Type == chunkJSON:
			return nil, nil, newError(MalformedContainer, ParseJSON, chunk, "duplicate JSON chunk")
		case hdr.Type == chunkBIN:
			if chunk != 1 {
				return nil, nil, newError(MalformedContainer, ParseJSON, chunk, "BIN chunk must follow the JSON chunk")
			}
			bin = body
		}
		chunk++
	}
	if jsonChunk == nil {
		return nil, nil, newError(MalformedContainer, ParseJSON, -1, "missing JSON chunk")
	}
	return jsonChunk, bin, nil
}
