package mesh3mf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepairDegenerateTriangles(t *testing.T) {
	m := &Mesh{
		Vertices: []Point3D{
			{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {2, 0, 0},
		},
		Triangles: []Triangle{
			{Indices: [3]uint32{0, 1, 2}},
			{Indices: [3]uint32{0, 1, 0}}, // repeated index
			{Indices: [3]uint32{0, 1, 3}}, // collinear, zero area
		},
	}
	stats := m.Repair(DefaultRepairOptions())
	assert.Equal(t, 2, stats.TrianglesRemoved)
	assert.Len(t, m.Triangles, 1)
	assert.Equal(t, [3]uint32{0, 1, 2}, m.Triangles[0].Indices)
}

func TestRepairVertexStitching(t *testing.T) {
	m := &Mesh{
		Vertices: []Point3D{
			{0, 0, 0}, {10, 0, 0}, {10, 10, 0},
			{0, 0, 1e-6}, {0, 10, 0}, // first is within epsilon of vertex 0
		},
		Triangles: []Triangle{
			{Indices: [3]uint32{0, 1, 2}},
			{Indices: [3]uint32{3, 2, 4}},
		},
	}
	stats := m.Repair(RepairOptions{StitchEpsilon: 1e-4})
	assert.Equal(t, 1, stats.VerticesRemoved)
	assert.Len(t, m.Vertices, 4)
	assert.Equal(t, [3]uint32{0, 2, 3}, m.Triangles[1].Indices)
}

func TestRepairDuplicateFaces(t *testing.T) {
	m := &Mesh{
		Vertices: []Point3D{{0, 0, 0}, {10, 0, 0}, {10, 10, 0}},
		Triangles: []Triangle{
			{Indices: [3]uint32{0, 1, 2}},
			{Indices: [3]uint32{2, 0, 1}},
			{Indices: [3]uint32{0, 2, 1}},
		},
	}
	stats := m.Repair(RepairOptions{RemoveDuplicateFaces: true})
	assert.Equal(t, 2, stats.TrianglesRemoved)
	assert.Len(t, m.Triangles, 1)
}

func TestRepairOrientationHarmonization(t *testing.T) {
	// Two triangles over a shared edge; the second traverses the
	// shared edge (1,2) in the same direction, so it must flip.
	m := &Mesh{
		Vertices: []Point3D{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}, {10, 10, 0}},
		Triangles: []Triangle{
			{Indices: [3]uint32{0, 1, 2}},
			{Indices: [3]uint32{1, 2, 3}},
		},
	}
	stats := m.Repair(RepairOptions{HarmonizeOrientations: true})
	assert.Equal(t, 1, stats.TrianglesFlipped)
	assert.Equal(t, [3]uint32{1, 3, 2}, m.Triangles[1].Indices)
}

func TestRepairIslandRemoval(t *testing.T) {
	m := cubeMesh(10)
	// A far-away floating triangle is its own component.
	base := uint32(len(m.Vertices))
	m.Vertices = append(m.Vertices, Point3D{100, 100, 100}, Point3D{110, 100, 100}, Point3D{100, 110, 100})
	m.Triangles = append(m.Triangles, Triangle{Indices: [3]uint32{base, base + 1, base + 2}})

	stats := m.Repair(RepairOptions{RemoveIslands: true})
	assert.Equal(t, 1, stats.TrianglesRemoved)
	assert.Equal(t, 3, stats.VerticesRemoved)
	assert.Len(t, m.Triangles, 12)
}

func TestRepairHoleFilling(t *testing.T) {
	m := cubeMesh(10)
	// Remove the two top faces, leaving a square hole.
	m.Triangles = append(m.Triangles[:2], m.Triangles[4:]...)
	stats := m.Repair(RepairOptions{FillHoles: true})
	assert.Equal(t, 2, stats.TrianglesAdded)
	assert.Len(t, m.Triangles, 12)

	// The filled mesh has no boundary edges left.
	use := map[[2]uint32]int{}
	for i := range m.Triangles {
		tr := &m.Triangles[i]
		for _, e := range [][2]uint32{
			{tr.Indices[0], tr.Indices[1]},
			{tr.Indices[1], tr.Indices[2]},
			{tr.Indices[2], tr.Indices[0]},
		} {
			if e[0] > e[1] {
				e[0], e[1] = e[1], e[0]
			}
			use[e]++
		}
	}
	for e, n := range use {
		assert.Equal(t, 2, n, "edge %v", e)
	}
}

func TestRepairIdempotent(t *testing.T) {
	m := &Mesh{
		Vertices: []Point3D{
			{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 0, 1e-6}, {0, 10, 0}, {5, 5, 9},
		},
		Triangles: []Triangle{
			{Indices: [3]uint32{0, 1, 2}},
			{Indices: [3]uint32{3, 2, 4}},
			{Indices: [3]uint32{1, 1, 2}},
			{Indices: [3]uint32{0, 2, 5}},
		},
	}
	opts := DefaultRepairOptions()
	m.Repair(opts)
	second := m.Repair(opts)
	assert.Zero(t, second.VerticesRemoved)
	assert.Zero(t, second.TrianglesRemoved)
	assert.Zero(t, second.TrianglesAdded)
}

func TestRepairCompactsUnusedVertices(t *testing.T) {
	m := &Mesh{
		Vertices: []Point3D{
			{0, 0, 0}, {5, 5, 5}, {10, 0, 0}, {10, 10, 0},
		},
		Triangles: []Triangle{{Indices: [3]uint32{0, 2, 3}}},
	}
	stats := m.Repair(RepairOptions{})
	assert.Equal(t, 1, stats.VerticesRemoved)
	require.Len(t, m.Vertices, 3)
	for i := range m.Triangles {
		for _, idx := range m.Triangles[i].Indices {
			assert.Less(t, int(idx), len(m.Vertices))
		}
	}
}
