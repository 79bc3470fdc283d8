package pathtrace

import (
	"errors"
	"fmt"
	"math"

	"github.com/vk/evalgraph/internal/scene"
)

// ErrEmptyScene is returned when a scene has no triangles to trace.
var ErrEmptyScene = errors.New("scene has no triangles")

type triangle struct {
	v0, e1, e2 vec3
	normal     vec3
}

// Scene is a scene compiled for ray casting.
type Scene struct {
	Name      string
	triangles []triangle
	lo, hi    vec3
}

// Compile flattens every mesh of s into world-space triangles.
func Compile(s *scene.Scene) (*Scene, error) {
	if s == nil {
		return nil, ErrEmptyScene
	}
	out := &Scene{Name: s.Name}
	for mi, m := range s.Meshes {
		n := len(m.Positions)
		vertex := func(k int) (vec3, error) {
			idx := k
			if len(m.Indices) > 0 {
				idx = int(m.Indices[k])
			}
			if idx < 0 || idx >= n {
				return vec3{}, fmt.Errorf("mesh %d: index %d out of range", mi, idx)
			}
			return fromF32(m.Positions[idx]), nil
		}
		count := m.Triangles()
		for t := 0; t < count; t++ {
			var v [3]vec3
			for c := 0; c < 3; c++ {
				p, err := vertex(3*t + c)
				if err != nil {
					return nil, err
				}
				v[c] = p
			}
			e1, e2 := v[1].sub(v[0]), v[2].sub(v[0])
			normal := e1.cross(e2)
			if normal.length() == 0 {
				continue
			}
			out.triangles = append(out.triangles, triangle{v0: v[0], e1: e1, e2: e2, normal: normal.normalize()})
		}
	}
	if len(out.triangles) == 0 {
		return nil, ErrEmptyScene
	}

	lo, hi := s.Bounds()
	out.lo, out.hi = fromF32(lo), fromF32(hi)
	return out, nil
}

// Triangles returns the number of non-degenerate triangles.
func (s *Scene) Triangles() int {
	return len(s.triangles)
}

// intersect returns the nearest hit along the ray, Möller-Trumbore.
func (s *Scene) intersect(origin, dir vec3) (float64, *triangle) {
	const eps = 1e-9
	best := math.Inf(1)
	var hit *triangle
	for i := range s.triangles {
		tri := &s.triangles[i]
		p := dir.cross(tri.e2)
		det := tri.e1.dot(p)
		if math.Abs(det) < eps {
			continue
		}
		inv := 1 / det
		tv := origin.sub(tri.v0)
		u := tv.dot(p) * inv
		if u < 0 || u > 1 {
			continue
		}
		q := tv.cross(tri.e1)
		v := dir.dot(q) * inv
		if v < 0 || u+v > 1 {
			continue
		}
		t := tri.e2.dot(q) * inv
		if t > eps && t < best {
			best, hit = t, tri
		}
	}
	return best, hit
}
