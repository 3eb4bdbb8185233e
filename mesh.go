package mesh3mf

import (
	"math"
	"runtime"
	"sync"
)

// Triangle defines a face of a mesh. The orientation is defined by
// the order of its indices. PID zero means the triangle carries no
// property group of its own; resource IDs start at 1.
type Triangle struct {
	Indices     [3]uint32
	PID         uint32
	PIndices    [3]uint32
	HasPIndices bool
}

// A Mesh is an in-memory representation of the 3MF mesh object.
type Mesh struct {
	Vertices    []Point3D
	Triangles   []Triangle
	BeamLattice *BeamLattice
}

func (*Mesh) isGeometry() {}

// Box is an axis-aligned bounding box.
type Box struct {
	Min Point3D
	Max Point3D
}

// Extend grows the box to contain other.
func (b Box) Extend(other Box) Box {
	for i := 0; i < 3; i++ {
		if other.Min[i] < b.Min[i] {
			b.Min[i] = other.Min[i]
		}
		if other.Max[i] > b.Max[i] {
			b.Max[i] = other.Max[i]
		}
	}
	return b
}

// parallelMinVertices is the size at or above which the pure fold loops
// fan out over the available CPUs.
const parallelMinVertices = 1 << 16

// AABB returns the bounding box of the mesh vertices, or ok=false for
// an empty mesh.
func (m *Mesh) AABB() (Box, bool) {
	if len(m.Vertices) == 0 {
		return Box{}, false
	}
	if len(m.Vertices) >= parallelMinVertices {
		return m.aabbParallel(), true
	}
	return aabbFold(m.Vertices), true
}

func aabbFold(vs []Point3D) Box {
	box := Box{Min: vs[0], Max: vs[0]}
	for _, v := range vs[1:] {
		for i := 0; i < 3; i++ {
			if v[i] < box.Min[i] {
				box.Min[i] = v[i]
			}
			if v[i] > box.Max[i] {
				box.Max[i] = v[i]
			}
		}
	}
	return box
}

func (m *Mesh) aabbParallel() Box {
	workers := runtime.NumCPU()
	chunk := (len(m.Vertices) + workers - 1) / workers
	boxes := make([]Box, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > len(m.Vertices) {
			hi = len(m.Vertices)
		}
		if lo >= hi {
			boxes[w] = Box{Min: m.Vertices[0], Max: m.Vertices[0]}
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			boxes[w] = aabbFold(m.Vertices[lo:hi])
		}(w, lo, hi)
	}
	wg.Wait()
	box := boxes[0]
	for _, b := range boxes[1:] {
		box = box.Extend(b)
	}
	return box
}

// AreaVolume integrates the surface area and the signed volume of the
// mesh. Volume is the sum of signed tetrahedra against the origin, so
// it is meaningful only for closed, consistently oriented meshes.
func (m *Mesh) AreaVolume() (area, volume float64) {
	if len(m.Triangles) == 0 {
		return 0, 0
	}
	if len(m.Triangles) >= parallelMinVertices {
		return m.areaVolumeParallel()
	}
	return m.areaVolumeRange(0, len(m.Triangles))
}

func (m *Mesh) areaVolumeRange(lo, hi int) (area, volume float64) {
	for i := lo; i < hi; i++ {
		a, v := m.triangleStats(&m.Triangles[i])
		area += a
		volume += v
	}
	return
}

func (m *Mesh) areaVolumeParallel() (float64, float64) {
	workers := runtime.NumCPU()
	chunk := (len(m.Triangles) + workers - 1) / workers
	areas := make([]float64, workers)
	volumes := make([]float64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo, hi := w*chunk, (w+1)*chunk
		if hi > len(m.Triangles) {
			hi = len(m.Triangles)
		}
		if lo >= hi {
			continue
		}
		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()
			areas[w], volumes[w] = m.areaVolumeRange(lo, hi)
		}(w, lo, hi)
	}
	wg.Wait()
	var area, volume float64
	for w := 0; w < workers; w++ {
		area += areas[w]
		volume += volumes[w]
	}
	return area, volume
}

func (m *Mesh) triangleStats(t *Triangle) (area, volume float64) {
	v1 := vec3(m.Vertices[t.Indices[0]])
	v2 := vec3(m.Vertices[t.Indices[1]])
	v3 := vec3(m.Vertices[t.Indices[2]])
	area = triangleArea(v1, v2, v3)
	volume = dot(v1, cross(v2, v3)) / 6
	return
}

// TriangleArea returns the area of the i-th triangle.
func (m *Mesh) TriangleArea(i int) float64 {
	t := &m.Triangles[i]
	return triangleArea(
		vec3(m.Vertices[t.Indices[0]]),
		vec3(m.Vertices[t.Indices[1]]),
		vec3(m.Vertices[t.Indices[2]]),
	)
}

func vec3(p Point3D) [3]float64 {
	return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
}

func triangleArea(v1, v2, v3 [3]float64) float64 {
	c := cross(sub(v2, v1), sub(v3, v1))
	return 0.5 * math.Sqrt(dot(c, c))
}

func sub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
