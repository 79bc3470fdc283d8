package codec

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/vk/evalgraph/internal/scene"
)

// SceneReader loads 3D scenes.
type SceneReader interface {
	ReadScene(ctx context.Context, path string) (*scene.Scene, error)
}

// GLTF reads triangle meshes from .gltf and .glb files. Only positions,
// normals and indices of triangle primitives are loaded.
type GLTF struct{}

// NewGLTF creates a glTF reader.
func NewGLTF() *GLTF {
	return &GLTF{}
}

const (
	glbMagic     = 0x46546C67 // "glTF"
	glbChunkJSON = 0x4E4F534A
	glbChunkBIN  = 0x004E4942

	componentUByte  = 5121
	componentUShort = 5123
	componentUInt   = 5125
	componentFloat  = 5126

	modeTriangles = 4
)

type gltfDoc struct {
	Buffers []struct {
		URI        string `json:"uri"`
		ByteLength int    `json:"byteLength"`
	} `json:"buffers"`
	BufferViews []struct {
		Buffer     int `json:"buffer"`
		ByteOffset int `json:"byteOffset"`
		ByteLength int `json:"byteLength"`
		ByteStride int `json:"byteStride"`
	} `json:"bufferViews"`
	Accessors []struct {
		BufferView    *int   `json:"bufferView"`
		ByteOffset    int    `json:"byteOffset"`
		ComponentType int    `json:"componentType"`
		Count         int    `json:"count"`
		Type          string `json:"type"`
	} `json:"accessors"`
	Meshes []struct {
		Name       string `json:"name"`
		Primitives []struct {
			Attributes map[string]int `json:"attributes"`
			Indices    *int           `json:"indices"`
			Mode       *int           `json:"mode"`
		} `json:"primitives"`
	} `json:"meshes"`
}

// ReadScene parses path and returns its meshes.
func (r *GLTF) ReadScene(ctx context.Context, path string) (*scene.Scene, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene: %w", err)
	}
	s, err := r.Decode(raw, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %q: %w", path, err)
	}
	s.Name = path
	return s, nil
}

// Decode parses a .gltf document or a .glb container. External buffers are
// resolved relative to dir.
func (r *GLTF) Decode(raw []byte, dir string) (*scene.Scene, error) {
	var bin []byte
	if len(raw) >= 12 && binary.LittleEndian.Uint32(raw) == glbMagic {
		var err error
		raw, bin, err = splitGLB(raw)
		if err != nil {
			return nil, err
		}
	}

	var doc gltfDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("invalid gltf json: %w", err)
	}

	buffers := make([][]byte, len(doc.Buffers))
	for i, b := range doc.Buffers {
		data, err := loadBuffer(b.URI, dir, bin)
		if err != nil {
			return nil, fmt.Errorf("buffer %d: %w", i, err)
		}
		if len(data) < b.ByteLength {
			return nil, fmt.Errorf("buffer %d: expected %d bytes, got %d", i, b.ByteLength, len(data))
		}
		buffers[i] = data
	}

	out := &scene.Scene{}
	for mi, m := range doc.Meshes {
		for pi, p := range m.Primitives {
			if p.Mode != nil && *p.Mode != modeTriangles {
				continue
			}
			posIdx, ok := p.Attributes["POSITION"]
			if !ok {
				return nil, fmt.Errorf("mesh %d primitive %d: missing POSITION", mi, pi)
			}
			mesh := &scene.Mesh{Name: m.Name}
			var err error
			if mesh.Positions, err = readVec3(&doc, buffers, posIdx); err != nil {
				return nil, fmt.Errorf("mesh %d positions: %w", mi, err)
			}
			if nIdx, ok := p.Attributes["NORMAL"]; ok {
				if mesh.Normals, err = readVec3(&doc, buffers, nIdx); err != nil {
					return nil, fmt.Errorf("mesh %d normals: %w", mi, err)
				}
			}
			if p.Indices != nil {
				if mesh.Indices, err = readIndices(&doc, buffers, *p.Indices); err != nil {
					return nil, fmt.Errorf("mesh %d indices: %w", mi, err)
				}
			}
			out.Meshes = append(out.Meshes, mesh)
		}
	}
	return out, nil
}

func splitGLB(raw []byte) (jsonChunk, bin []byte, err error) {
	total := int(binary.LittleEndian.Uint32(raw[8:]))
	if total > len(raw) {
		return nil, nil, errors.New("truncated glb container")
	}
	off := 12
	for off+8 <= total {
		length := int(binary.LittleEndian.Uint32(raw[off:]))
		kind := binary.LittleEndian.Uint32(raw[off+4:])
		start := off + 8
		if start+length > total {
			return nil, nil, errors.New("truncated glb chunk")
		}
		switch kind {
		case glbChunkJSON:
			jsonChunk = raw[start : start+length]
		case glbChunkBIN:
			bin = raw[start : start+length]
		}
		off = start + length
	}
	if jsonChunk == nil {
		return nil, nil, errors.New("glb container has no json chunk")
	}
	return jsonChunk, bin, nil
}

func loadBuffer(uri, dir string, bin []byte) ([]byte, error) {
	switch {
	case uri == "":
		if bin == nil {
			return nil, errors.New("no uri and no binary chunk")
		}
		return bin, nil
	case strings.HasPrefix(uri, "data:"):
		comma := strings.IndexByte(uri, ',')
		if comma < 0 || !strings.Contains(uri[:comma], ";base64") {
			return nil, errors.New("only base64 data uris are supported")
		}
		return base64.StdEncoding.DecodeString(uri[comma+1:])
	default:
		return os.ReadFile(filepath.Join(dir, filepath.FromSlash(uri)))
	}
}

func accessorBytes(doc *gltfDoc, buffers [][]byte, idx, elemSize int) ([]byte, int, int, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, 0, 0, fmt.Errorf("accessor %d out of range", idx)
	}
	a := doc.Accessors[idx]
	if a.BufferView == nil {
		return nil, 0, 0, fmt.Errorf("accessor %d: sparse or empty accessors are not supported", idx)
	}
	if *a.BufferView < 0 || *a.BufferView >= len(doc.BufferViews) {
		return nil, 0, 0, fmt.Errorf("accessor %d: buffer view out of range", idx)
	}
	v := doc.BufferViews[*a.BufferView]
	if v.Buffer < 0 || v.Buffer >= len(buffers) {
		return nil, 0, 0, fmt.Errorf("accessor %d: buffer out of range", idx)
	}
	stride := v.ByteStride
	if stride == 0 {
		stride = elemSize
	}
	start := v.ByteOffset + a.ByteOffset
	need := start
	if a.Count > 0 {
		need += (a.Count-1)*stride + elemSize
	}
	buf := buffers[v.Buffer]
	if need > len(buf) || need > v.ByteOffset+v.ByteLength {
		return nil, 0, 0, fmt.Errorf("accessor %d: out of bounds", idx)
	}
	return buf[start:need], a.Count, stride, nil
}

func readVec3(doc *gltfDoc, buffers [][]byte, idx int) ([][3]float32, error) {
	if idx >= 0 && idx < len(doc.Accessors) {
		a := doc.Accessors[idx]
		if a.Type != "VEC3" || a.ComponentType != componentFloat {
			return nil, fmt.Errorf("accessor %d: expected float VEC3, got %d %s", idx, a.ComponentType, a.Type)
		}
	}
	data, count, stride, err := accessorBytes(doc, buffers, idx, 12)
	if err != nil {
		return nil, err
	}
	out := make([][3]float32, count)
	for i := range out {
		off := i * stride
		for c := 0; c < 3; c++ {
			bits := binary.LittleEndian.Uint32(data[off+4*c:])
			out[i][c] = math.Float32frombits(bits)
		}
	}
	return out, nil
}

func readIndices(doc *gltfDoc, buffers [][]byte, idx int) ([]uint32, error) {
	if idx < 0 || idx >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", idx)
	}
	var size int
	switch doc.Accessors[idx].ComponentType {
	case componentUByte:
		size = 1
	case componentUShort:
		size = 2
	case componentUInt:
		size = 4
	default:
		return nil, fmt.Errorf("accessor %d: unsupported index type %d", idx, doc.Accessors[idx].ComponentType)
	}
	data, count, stride, err := accessorBytes(doc, buffers, idx, size)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, count)
	rd := bytes.NewReader(data)
	for i := range out {
		if _, err := rd.Seek(int64(i*stride), 0); err != nil {
			return nil, err
		}
		switch size {
		case 1:
			b, _ := rd.ReadByte()
			out[i] = uint32(b)
		case 2:
			var v uint16
			if err := binary.Read(rd, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			out[i] = uint32(v)
		case 4:
			var v uint32
			if err := binary.Read(rd, binary.LittleEndian, &v); err != nil {
				return nil, err
			}
			out[i] = v
		}
	}
	return out, nil
}
