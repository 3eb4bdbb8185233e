package mesh3mf

import "math"

// RepairOptions configure Mesh.Repair. The zero value disables every
// optional pass; removal of unused vertices always runs.
// DefaultRepairOptions matches what most consumers want.
type RepairOptions struct {
	// StitchEpsilon is the lattice spacing per axis: each coordinate is
	// rounded to a multiple of it and vertices landing in the same
	// lattice cell are merged. Zero disables stitching.
	StitchEpsilon float32
	// RemoveDegenerate drops triangles with repeated indices or with
	// near-zero area.
	RemoveDegenerate bool
	// RemoveDuplicateFaces drops triangles sharing the same sorted
	// index triple.
	RemoveDuplicateFaces bool
	// HarmonizeOrientations flips triangles so that shared edges are
	// traversed in opposite directions.
	HarmonizeOrientations bool
	// RemoveIslands keeps only the largest edge-connected component.
	RemoveIslands bool
	// FillHoles fan-triangulates closed boundary loops.
	FillHoles bool
}

// DefaultRepairOptions returns the standard repair configuration:
// stitching at 1e-4 plus degenerate and duplicate removal.
func DefaultRepairOptions() RepairOptions {
	return RepairOptions{
		StitchEpsilon:        1e-4,
		RemoveDegenerate:     true,
		RemoveDuplicateFaces: true,
	}
}

// RepairStats reports what a repair pass did.
type RepairStats struct {
	VerticesRemoved  int
	TrianglesRemoved int
	TrianglesFlipped int
	TrianglesAdded   int
}

const degenerateAreaEpsilon = 1e-9

// Repair fixes the mesh in place according to opts and reports the
// changes. Repair cannot fail; running it twice with the same options
// is a no-op the second time.
func (m *Mesh) Repair(opts RepairOptions) RepairStats {
	var stats RepairStats

	if opts.StitchEpsilon > 0 {
		stats.VerticesRemoved += m.stitchVertices(opts.StitchEpsilon)
	}
	if opts.RemoveDegenerate || opts.RemoveDuplicateFaces {
		stats.TrianglesRemoved += m.cleanTriangles(opts.RemoveDegenerate, opts.RemoveDuplicateFaces)
	}
	if opts.HarmonizeOrientations {
		stats.TrianglesFlipped += m.harmonizeOrientations()
	}
	if opts.RemoveIslands {
		stats.TrianglesRemoved += m.removeIslands()
	}
	if opts.FillHoles {
		stats.TrianglesAdded += m.fillHoles()
	}
	stats.VerticesRemoved += m.removeUnusedVertices()
	return stats
}

// stitchVertices quantizes each coordinate to an integer lattice and
// maps every lattice cell to the first vertex placed in it.
func (m *Mesh) stitchVertices(epsilon float32) int {
	if len(m.Vertices) == 0 {
		return 0
	}
	initial := len(m.Vertices)
	invEps := 1 / float64(epsilon)
	type cell [3]int64
	newVertices := make([]Point3D, 0, initial)
	cells := make(map[cell]uint32, initial)
	remap := make([]uint32, initial)
	for old, v := range m.Vertices {
		key := cell{
			int64(math.Round(float64(v[0]) * invEps)),
			int64(math.Round(float64(v[1]) * invEps)),
			int64(math.Round(float64(v[2]) * invEps)),
		}
		if idx, ok := cells[key]; ok {
			remap[old] = idx
			continue
		}
		idx := uint32(len(newVertices))
		newVertices = append(newVertices, v)
		cells[key] = idx
		remap[old] = idx
	}
	m.Vertices = newVertices
	for i := range m.Triangles {
		t := &m.Triangles[i]
		t.Indices[0] = remap[t.Indices[0]]
		t.Indices[1] = remap[t.Indices[1]]
		t.Indices[2] = remap[t.Indices[2]]
	}
	return initial - len(newVertices)
}

func (m *Mesh) cleanTriangles(removeDegenerate, removeDuplicates bool) int {
	initial := len(m.Triangles)
	valid := m.Triangles[:0]
	seen := make(map[[3]uint32]struct{}, initial)
	for i := range m.Triangles {
		t := m.Triangles[i]
		if removeDegenerate {
			if t.Indices[0] == t.Indices[1] || t.Indices[1] == t.Indices[2] || t.Indices[2] == t.Indices[0] {
				continue
			}
			area := triangleArea(
				vec3(m.Vertices[t.Indices[0]]),
				vec3(m.Vertices[t.Indices[1]]),
				vec3(m.Vertices[t.Indices[2]]),
			)
			if area <= degenerateAreaEpsilon {
				continue
			}
		}
		if removeDuplicates {
			key := sortedIndices(t.Indices)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
		}
		valid = append(valid, t)
	}
	m.Triangles = valid
	return initial - len(valid)
}

func sortedIndices(idx [3]uint32) [3]uint32 {
	if idx[0] > idx[1] {
		idx[0], idx[1] = idx[1], idx[0]
	}
	if idx[1] > idx[2] {
		idx[1], idx[2] = idx[2], idx[1]
	}
	if idx[0] > idx[1] {
		idx[0], idx[1] = idx[1], idx[0]
	}
	return idx
}

func (m *Mesh) removeUnusedVertices() int {
	initial := len(m.Vertices)
	if initial == 0 {
		return 0
	}
	used := make([]bool, initial)
	for i := range m.Triangles {
		t := &m.Triangles[i]
		used[t.Indices[0]] = true
		used[t.Indices[1]] = true
		used[t.Indices[2]] = true
	}
	remap := make([]uint32, initial)
	newVertices := m.Vertices[:0]
	for old, ok := range used {
		if !ok {
			continue
		}
		remap[old] = uint32(len(newVertices))
		newVertices = append(newVertices, m.Vertices[old])
	}
	removed := initial - len(newVertices)
	if removed == 0 {
		return 0
	}
	m.Vertices = newVertices
	for i := range m.Triangles {
		t := &m.Triangles[i]
		t.Indices[0] = remap[t.Indices[0]]
		t.Indices[1] = remap[t.Indices[1]]
		t.Indices[2] = remap[t.Indices[2]]
	}
	return removed
}

type edgeKey struct{ a, b uint32 }

func undirected(a, b uint32) edgeKey {
	if a > b {
		a, b = b, a
	}
	return edgeKey{a, b}
}

// harmonizeOrientations BFS-walks the edge adjacency, flipping each
// neighbor whose shared edge is traversed in the same direction as
// the triangle already visited.
func (m *Mesh) harmonizeOrientations() int {
	if len(m.Triangles) == 0 {
		return 0
	}
	edges := make(map[edgeKey][]int, len(m.Triangles)*3/2)
	for i := range m.Triangles {
		for _, e := range triangleEdges(&m.Triangles[i]) {
			k := undirected(e[0], e[1])
			edges[k] = append(edges[k], i)
		}
	}
	flipped := 0
	visited := make([]bool, len(m.Triangles))
	for seed := range m.Triangles {
		if visited[seed] {
			continue
		}
		visited[seed] = true
		queue := []int{seed}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			for _, e := range triangleEdges(&m.Triangles[cur]) {
				for _, next := range edges[undirected(e[0], e[1])] {
					if next == cur || visited[next] {
						continue
					}
					if hasDirectedEdge(&m.Triangles[next], e[0], e[1]) {
						flipTriangle(&m.Triangles[next])
						flipped++
					}
					visited[next] = true
					queue = append(queue, next)
				}
			}
		}
	}
	return flipped
}

func triangleEdges(t *Triangle) [3][2]uint32 {
	return [3][2]uint32{
		{t.Indices[0], t.Indices[1]},
		{t.Indices[1], t.Indices[2]},
		{t.Indices[2], t.Indices[0]},
	}
}

func hasDirectedEdge(t *Triangle, a, b uint32) bool {
	for _, e := range triangleEdges(t) {
		if e[0] == a && e[1] == b {
			return true
		}
	}
	return false
}

func flipTriangle(t *Triangle) {
	t.Indices[1], t.Indices[2] = t.Indices[2], t.Indices[1]
	if t.HasPIndices {
		t.PIndices[1], t.PIndices[2] = t.PIndices[2], t.PIndices[1]
	}
}

// removeIslands keeps only the edge-connected component with the most
// triangles.
func (m *Mesh) removeIslands() int {
	n := len(m.Triangles)
	if n == 0 {
		return 0
	}
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}
	owners := make(map[edgeKey]int, n*3/2)
	for i := range m.Triangles {
		for _, e := range triangleEdges(&m.Triangles[i]) {
			k := undirected(e[0], e[1])
			if first, ok := owners[k]; ok {
				union(first, i)
			} else {
				owners[k] = i
			}
		}
	}
	counts := make(map[int]int, 4)
	for i := 0; i < n; i++ {
		counts[find(i)]++
	}
	best, bestCount := 0, -1
	for root, c := range counts {
		if c > bestCount {
			best, bestCount = root, c
		}
	}
	kept := m.Triangles[:0]
	for i := range m.Triangles {
		if find(i) == best {
			kept = append(kept, m.Triangles[i])
		}
	}
	removed := n - len(kept)
	m.Triangles = kept
	return removed
}

// fillHoles links boundary edges into closed loops and triangulates
// each loop with a fan from its first vertex. If any boundary vertex
// has other than exactly two boundary edges, no hole is filled.
func (m *Mesh) fillHoles() int {
	use := make(map[edgeKey]int, len(m.Triangles)*3/2)
	for i := range m.Triangles {
		for _, e := range triangleEdges(&m.Triangles[i]) {
			use[undirected(e[0], e[1])]++
		}
	}
	// A boundary edge belongs to exactly one triangle. Keep its
	// direction as seen from that triangle so the fill triangles end
	// up opposing the existing winding.
	next := make(map[uint32]uint32)
	degree := make(map[uint32]int)
	for i := range m.Triangles {
		for _, e := range triangleEdges(&m.Triangles[i]) {
			if use[undirected(e[0], e[1])] != 1 {
				continue
			}
			next[e[1]] = e[0]
			degree[e[0]]++
			degree[e[1]]++
		}
	}
	for _, d := range degree {
		if d != 2 {
			return 0
		}
	}
	added := 0
	visited := make(map[uint32]bool, len(next))
	for start := range next {
		if visited[start] {
			continue
		}
		loop := []uint32{start}
		visited[start] = true
		for v := next[start]; v != start; v = next[v] {
			if visited[v] {
				loop = nil
				break
			}
			visited[v] = true
			loop = append(loop, v)
		}
		if len(loop) < 3 {
			continue
		}
		for i := 1; i < len(loop)-1; i++ {
			m.Triangles = append(m.Triangles, Triangle{
				Indices: [3]uint32{loop[0], loop[i], loop[i+1]},
			})
			added++
		}
	}
	return added
}
