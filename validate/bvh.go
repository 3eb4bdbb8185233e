package validate

import (
	"fmt"
	"math"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// Epsilons of the intersection test.
const (
	planeDistanceEpsilon   = 1e-6
	intervalOverlapEpsilon = 1e-6
	degenerateNormalSq     = 1e-12
)

// bvhLeafSize is the triangle count at or below which a node stays a leaf.
const bvhLeafSize = 8

type bvhAABB struct {
	min, max [3]float64
}

func (b bvhAABB) intersects(o bvhAABB) bool {
	return b.min[0] <= o.max[0] && b.max[0] >= o.min[0] &&
		b.min[1] <= o.max[1] && b.max[1] >= o.min[1] &&
		b.min[2] <= o.max[2] && b.max[2] >= o.min[2]
}

func triangleAABB(mesh *mesh3mf.Mesh, i int) bvhAABB {
	t := &mesh.Triangles[i]
	v1 := mesh.Vertices[t.Indices[0]]
	v2 := mesh.Vertices[t.Indices[1]]
	v3 := mesh.Vertices[t.Indices[2]]
	var box bvhAABB
	for axis := 0; axis < 3; axis++ {
		box.min[axis] = math.Min(float64(v1[axis]), math.Min(float64(v2[axis]), float64(v3[axis])))
		box.max[axis] = math.Max(float64(v1[axis]), math.Max(float64(v2[axis]), float64(v3[axis])))
	}
	return box
}

type bvhNode struct {
	box         bvhAABB
	tris        []int
	left, right *bvhNode
}

// buildBVH splits along the largest axis at the midpoint, falling
// back to a leaf when the split fails to partition.
func buildBVH(mesh *mesh3mf.Mesh, tris []int) *bvhNode {
	boxes := make([]bvhAABB, len(tris))
	node := &bvhNode{box: bvhAABB{
		min: [3]float64{math.Inf(1), math.Inf(1), math.Inf(1)},
		max: [3]float64{math.Inf(-1), math.Inf(-1), math.Inf(-1)},
	}}
	for i, ti := range tris {
		boxes[i] = triangleAABB(mesh, ti)
		for axis := 0; axis < 3; axis++ {
			node.box.min[axis] = math.Min(node.box.min[axis], boxes[i].min[axis])
			node.box.max[axis] = math.Max(node.box.max[axis], boxes[i].max[axis])
		}
	}
	if len(tris) <= bvhLeafSize {
		node.tris = tris
		return node
	}
	axis := 0
	size := [3]float64{
		node.box.max[0] - node.box.min[0],
		node.box.max[1] - node.box.min[1],
		node.box.max[2] - node.box.min[2],
	}
	if size[1] > size[axis] {
		axis = 1
	}
	if size[2] > size[axis] {
		axis = 2
	}
	mid := (node.box.min[axis] + node.box.max[axis]) / 2
	var left, right []int
	for i, ti := range tris {
		center := (boxes[i].min[axis] + boxes[i].max[axis]) / 2
		if center < mid {
			left = append(left, ti)
		} else {
			right = append(right, ti)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		node.tris = tris
		return node
	}
	node.left = buildBVH(mesh, left)
	node.right = buildBVH(mesh, right)
	return node
}

func (n *bvhNode) query(mesh *mesh3mf.Mesh, tri int, box bvhAABB, hits *[]int) {
	if !n.box.intersects(box) {
		return
	}
	if n.left != nil {
		n.left.query(mesh, tri, box, hits)
		n.right.query(mesh, tri, box, hits)
		return
	}
	for _, other := range n.tris {
		if other <= tri {
			continue
		}
		if !box.intersects(triangleAABB(mesh, other)) {
			continue
		}
		if trianglesIntersect(mesh, tri, other) {
			*hits = append(*hits, other)
		}
	}
}

// findSelfIntersections reports every triangle pair that overlaps
// while sharing at most one vertex.
func findSelfIntersections(objectID uint32, mesh *mesh3mf.Mesh, r *Report) {
	if len(mesh.Triangles) < 2 {
		return
	}
	all := make([]int, len(mesh.Triangles))
	for i := range all {
		all[i] = i
	}
	root := buildBVH(mesh, all)
	var hits []int
	for i := range mesh.Triangles {
		hits = hits[:0]
		root.query(mesh, i, triangleAABB(mesh, i), &hits)
		for _, j := range hits {
			r.AddError(CodeSelfIntersection,
				fmt.Sprintf("triangles %d and %d in object %d intersect", i, j, objectID))
		}
	}
}

func sharedVertexCount(a, b *mesh3mf.Triangle) int {
	count := 0
	for _, va := range a.Indices {
		for _, vb := range b.Indices {
			if va == vb {
				count++
			}
		}
	}
	return count
}

// trianglesIntersect is a plane-separation triangle-triangle overlap
// test. Pairs sharing an edge or being identical are excluded: the
// format permits contact along shared edges.
func trianglesIntersect(mesh *mesh3mf.Mesh, i, j int) bool {
	t1, t2 := &mesh.Triangles[i], &mesh.Triangles[j]
	if sharedVertexCount(t1, t2) >= 2 {
		return false
	}
	p1 := dvec(mesh.Vertices[t1.Indices[0]])
	p2 := dvec(mesh.Vertices[t1.Indices[1]])
	p3 := dvec(mesh.Vertices[t1.Indices[2]])
	q1 := dvec(mesh.Vertices[t2.Indices[0]])
	q2 := dvec(mesh.Vertices[t2.Indices[1]])
	q3 := dvec(mesh.Vertices[t2.Indices[2]])

	n2 := dcross(dsub(q2, q1), dsub(q3, q1))
	if ddot(n2, n2) < degenerateNormalSq {
		return false
	}
	d2 := -ddot(n2, q1)
	du0 := ddot(n2, p1) + d2
	du1 := ddot(n2, p2) + d2
	du2 := ddot(n2, p3) + d2
	if allAbove(du0, du1, du2) {
		return false
	}

	n1 := dcross(dsub(p2, p1), dsub(p3, p1))
	if ddot(n1, n1) < degenerateNormalSq {
		return false
	}
	d1 := -ddot(n1, p1)
	dv0 := ddot(n1, q1) + d1
	dv1 := ddot(n1, q2) + d1
	dv2 := ddot(n1, q3) + d1
	if allAbove(dv0, dv1, dv2) {
		return false
	}

	ld := dcross(n1, n2)
	axis := 0
	if math.Abs(ld[1]) > math.Abs(ld[axis]) {
		axis = 1
	}
	if math.Abs(ld[2]) > math.Abs(ld[axis]) {
		axis = 2
	}

	i1, ok1 := interval(p1, p2, p3, du0, du1, du2, axis)
	i2, ok2 := interval(q1, q2, q3, dv0, dv1, dv2, axis)
	if !ok1 || !ok2 {
		return false
	}
	return i1[0]+intervalOverlapEpsilon < i2[1] && i2[0]+intervalOverlapEpsilon < i1[1]
}

func allAbove(d0, d1, d2 float64) bool {
	if math.Abs(d0) <= planeDistanceEpsilon || math.Abs(d1) <= planeDistanceEpsilon || math.Abs(d2) <= planeDistanceEpsilon {
		return false
	}
	return (d0 > 0 && d1 > 0 && d2 > 0) || (d0 < 0 && d1 < 0 && d2 < 0)
}

// interval projects the plane-crossing points of one triangle onto
// the chosen axis of the intersection line.
func interval(v1, v2, v3 [3]float64, d1, d2, d3 float64, axis int) ([2]float64, bool) {
	if (d1 > 0 && d2 > 0 && d3 > 0) || (d1 < 0 && d2 < 0 && d3 < 0) {
		return [2]float64{}, false
	}
	var pts []float64
	type edge struct {
		a, b   [3]float64
		da, db float64
	}
	for _, e := range []edge{{v1, v2, d1, d2}, {v2, v3, d2, d3}, {v3, v1, d3, d1}} {
		if (e.da >= 0) != (e.db >= 0) {
			t := e.da / (e.da - e.db)
			pts = append(pts, e.a[axis]+(e.b[axis]-e.a[axis])*t)
		} else if math.Abs(e.da) < 1e-7 {
			pts = append(pts, e.a[axis])
		}
	}
	if len(pts) < 2 {
		return [2]float64{}, false
	}
	lo, hi := pts[0], pts[0]
	for _, p := range pts {
		lo = math.Min(lo, p)
		hi = math.Max(hi, p)
	}
	return [2]float64{lo, hi}, true
}

func dvec(p mesh3mf.Point3D) [3]float64 {
	return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])}
}

func dsub(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func dcross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func ddot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}
