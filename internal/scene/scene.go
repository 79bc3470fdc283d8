// Package scene holds the mesh data loaded by GLTFRead nodes and the
// reference-counted handle through which nodes share it.
package scene

import "math"

// Mesh is an indexed triangle list.
type Mesh struct {
	Name      string
	Positions [][3]float32
	Normals   [][3]float32
	Indices   []uint32
}

// Triangles returns the number of triangles in m.
func (m *Mesh) Triangles() int {
	if len(m.Indices) > 0 {
		return len(m.Indices) / 3
	}
	return len(m.Positions) / 3
}

// Scene is an immutable, loaded 3D scene.
type Scene struct {
	// Name is the source the scene was read from.
	Name   string
	Meshes []*Mesh
}

// Triangles returns the total triangle count.
func (s *Scene) Triangles() int {
	n := 0
	for _, m := range s.Meshes {
		n += m.Triangles()
	}
	return n
}

// Bounds returns the axis-aligned bounding box of every vertex.
func (s *Scene) Bounds() (lo, hi [3]float32) {
	lo = [3]float32{math.MaxFloat32, math.MaxFloat32, math.MaxFloat32}
	hi = [3]float32{-math.MaxFloat32, -math.MaxFloat32, -math.MaxFloat32}
	for _, m := range s.Meshes {
		for _, p := range m.Positions {
			for i := range p {
				lo[i] = min(lo[i], p[i])
				hi[i] = max(hi[i], p[i])
			}
		}
	}
	return lo, hi
}
