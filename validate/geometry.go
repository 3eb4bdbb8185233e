package validate

import (
	"fmt"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// triangleAreaEpsilon is the Paranoid degenerate-area threshold, in
// squared model units.
const triangleAreaEpsilon = 1e-9

// validateGeometry runs the Paranoid mesh analysis on every object
// whose type requires a manifold volume.
func validateGeometry(m *mesh3mf.Model, r *Report) {
	for _, o := range m.Resources.Objects {
		mesh, ok := o.Geometry.(*mesh3mf.Mesh)
		if !ok || !o.ObjectType.RequiresManifold() {
			continue
		}
		if !trianglesInBounds(mesh) {
			// Standard already reported the broken indices; the deep
			// analysis would only panic on them.
			continue
		}
		validateMeshGeometry(o.ID, mesh, r)
	}
}

func trianglesInBounds(mesh *mesh3mf.Mesh) bool {
	nv := uint32(len(mesh.Vertices))
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		if t.Indices[0] >= nv || t.Indices[1] >= nv || t.Indices[2] >= nv {
			return false
		}
	}
	return true
}

type meshEdge struct{ a, b uint32 }

func orient(a, b uint32) (meshEdge, bool) {
	if a < b {
		return meshEdge{a, b}, true
	}
	return meshEdge{b, a}, false
}

func validateMeshGeometry(objectID uint32, mesh *mesh3mf.Mesh, r *Report) {
	for i := range mesh.Triangles {
		if mesh.TriangleArea(i) <= triangleAreaEpsilon {
			r.AddError(CodeDegenerateTriangle,
				fmt.Sprintf("triangle %d in object %d is degenerate", i, objectID))
		}
	}

	// Edge manifoldness: each undirected edge must appear exactly
	// twice, once per direction.
	type edgeUse struct{ forward, backward, total int }
	edges := make(map[meshEdge]*edgeUse, len(mesh.Triangles)*3/2)
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		for _, e := range [3][2]uint32{
			{t.Indices[0], t.Indices[1]},
			{t.Indices[1], t.Indices[2]},
			{t.Indices[2], t.Indices[0]},
		} {
			key, fwd := orient(e[0], e[1])
			use := edges[key]
			if use == nil {
				use = new(edgeUse)
				edges[key] = use
			}
			use.total++
			if fwd {
				use.forward++
			} else {
				use.backward++
			}
		}
	}
	manifold := true
	for key, use := range edges {
		if use.total != 2 {
			manifold = false
			r.AddError(CodeNonManifoldEdge,
				fmt.Sprintf("edge (%d,%d) in object %d is shared by %d triangles", key.a, key.b, objectID, use.total))
		} else if use.forward != 1 || use.backward != 1 {
			r.AddError(CodeInconsistentWinding,
				fmt.Sprintf("edge (%d,%d) in object %d is traversed twice in the same direction", key.a, key.b, objectID))
		}
	}

	if manifold {
		validateVertexFans(objectID, mesh, r)
	}

	if n := componentCount(mesh); n > 1 {
		r.AddWarning(CodeMultipleComponents,
			fmt.Sprintf("object %d mesh has %d connected components", objectID, n))
	}

	findSelfIntersections(objectID, mesh, r)
}

// validateVertexFans checks that the triangles around every vertex
// form a single connected fan.
func validateVertexFans(objectID uint32, mesh *mesh3mf.Mesh, r *Report) {
	incident := make(map[uint32][]int)
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		for _, v := range t.Indices {
			incident[v] = append(incident[v], i)
		}
	}
	for v, tris := range incident {
		if len(tris) <= 1 {
			continue
		}
		// Union triangles sharing an edge through v.
		parent := make(map[int]int, len(tris))
		for _, t := range tris {
			parent[t] = t
		}
		var find func(int) int
		find = func(x int) int {
			if parent[x] != x {
				parent[x] = find(parent[x])
			}
			return parent[x]
		}
		edgeOwner := make(map[meshEdge]int)
		for _, ti := range tris {
			t := &mesh.Triangles[ti]
			for _, e := range [3][2]uint32{
				{t.Indices[0], t.Indices[1]},
				{t.Indices[1], t.Indices[2]},
				{t.Indices[2], t.Indices[0]},
			} {
				if e[0] != v && e[1] != v {
					continue
				}
				key, _ := orient(e[0], e[1])
				if first, ok := edgeOwner[key]; ok {
					parent[find(first)] = find(ti)
				} else {
					edgeOwner[key] = ti
				}
			}
		}
		roots := map[int]bool{}
		for _, t := range tris {
			roots[find(t)] = true
		}
		if len(roots) > 1 {
			r.AddError(CodeNonManifoldVertex,
				fmt.Sprintf("vertex %d in object %d joins %d disconnected fans", v, objectID, len(roots)))
		}
	}
}

func componentCount(mesh *mesh3mf.Mesh) int {
	n := len(mesh.Triangles)
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
	owners := make(map[meshEdge]int, n*3/2)
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		for _, e := range [3][2]uint32{
			{t.Indices[0], t.Indices[1]},
			{t.Indices[1], t.Indices[2]},
			{t.Indices[2], t.Indices[0]},
		} {
			key, _ := orient(e[0], e[1])
			if first, ok := owners[key]; ok {
				ra, rb := find(first), find(i)
				if ra != rb {
					parent[ra] = rb
				}
			} else {
				owners[key] = i
			}
		}
	}
	roots := map[int]bool{}
	for i := 0; i < n; i++ {
		roots[find(i)] = true
	}
	return len(roots)
}
