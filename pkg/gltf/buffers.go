package gltf

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// ErrExternalBuffer is returned when a document references an external
// buffer and no BufferLoader was configured.
var ErrExternalBuffer = errors.New("external buffer without loader")

// BufferLoader fetches the bytes of a buffer referenced by a relative URI.
type BufferLoader interface {
	LoadBuffer(uri string) ([]byte, error)
}

// BufferLoaderFunc adapts a function to BufferLoader.
type BufferLoaderFunc func(uri string) ([]byte, error)

func (f BufferLoaderFunc) LoadBuffer(uri string) ([]byte, error) { return f(uri) }

// DirLoader resolves buffer URIs as paths relative to dir. URIs that are
// absolute or climb out of dir are refused.
func DirLoader(dir string) BufferLoader {
	return BufferLoaderFunc(func(uri string) ([]byte, error) {
		name, err := url.PathUnescape(uri)
		if err != nil {
			return nil, fmt.Errorf("bad uri %q: %w", uri, err)
		}
		if strings.Contains(name, "://") || !filepath.IsLocal(filepath.FromSlash(name)) {
			return nil, fmt.Errorf("uri %q is not a relative path", uri)
		}
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(name)))
	})
}

// decodeDataURI decodes data:[<mediatype>][;base64],<data>.
func decodeDataURI(uri string) ([]byte, error) {
	header, payload, ok := strings.Cut(strings.TrimPrefix(uri, "data:"), ",")
	if !ok {
		return nil, errors.New("data uri without payload")
	}
	if !strings.HasSuffix(header, ";base64") {
		return nil, fmt.Errorf("data uri %q is not base64", header)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return data, nil
}

// resolveBuffers produces one byte slice per declared buffer. Each slice is
// cut to byteLength.
func (d *decoder) resolveBuffers() error {
	d.model.Buffers = make([][]byte, len(d.doc.Buffers))
	for i, b := range d.doc.Buffers {
		if b.ByteLength < 0 {
			return d.fail(InvalidDocument, i, "negative byteLength %d", b.ByteLength)
		}

		var data []byte
		switch {
		case b.URI == "":
			if i == 0 && d.bin == nil && d.glb {
				return d.fail(MalformedContainer, i, "buffer 0 has no uri and the GLB has no BIN chunk")
			}
			if i != 0 || d.bin == nil {
				return d.fail(InvalidDocument, i, "buffer without uri and no GLB BIN chunk")
			}
			if len(d.bin) < b.ByteLength {
				return d.fail(MalformedContainer, i, "BIN chunk holds %d bytes, buffer declares %d", len(d.bin), b.ByteLength)
			}
			data = d.bin
		case strings.HasPrefix(b.URI, "data:"):
			decoded, err := decodeDataURI(b.URI)
			if err != nil {
				return d.wrap(InvalidDocument, i, err)
			}
			data = decoded
		default:
			if d.opts.BufferLoader == nil {
				return d.wrap(InvalidDocument, i, fmt.Errorf("%w: %q", ErrExternalBuffer, b.URI))
			}
			loaded, err := d.opts.BufferLoader.LoadBuffer(b.URI)
			if err != nil {
				return d.wrap(InvalidDocument, i, err)
			}
			data = loaded
		}

		if len(data) < b.ByteLength {
			return d.fail(InvalidDocument, i, "buffer holds %d bytes, declares %d", len(data), b.ByteLength)
		}
		d.model.Buffers[i] = data[:b.ByteLength:b.ByteLength]
	}
	return nil
}
