// Package stats rolls up geometry and resource statistics over the
// build graph of a model, following component and boolean references
// across parts.
package stats

import (
	"math"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
	"github.com/solidforge/mesh3mf/io3mf"
)

// GeometryStats aggregates mesh data over every placed instance.
type GeometryStats struct {
	ObjectCount   int
	InstanceCount int
	VertexCount   uint64
	TriangleCount uint64
	SurfaceArea   float64
	Volume        float64
	BoundingBox   *mesh3mf.Box
	ByType        map[mesh3mf.ObjectType]int
}

// MaterialsStats counts the property resources of the root model.
type MaterialsStats struct {
	BaseMaterialGroups int
	ColorGroups        int
	Texture2DGroups    int
	CompositeMaterials int
	MultiProperties    int
}

// ModelStats is the full rollup returned by Compute.
type ModelStats struct {
	Units     mesh3mf.Units
	Generator string
	Geometry  GeometryStats
	Materials MaterialsStats
}

// Compute walks the build items of m, resolving cross-part references
// through archive, and accumulates counts, surface area, volume and
// the global bounding box under the cumulative transforms.
func Compute(m *mesh3mf.Model, archive container.ArchiveReader) (*ModelStats, error) {
	resolver := io3mf.NewPartResolver(archive, m, m.PathOrDefault())
	st := &ModelStats{Units: m.Units}
	st.Generator, _ = m.FindMetadata("Application")
	st.Geometry.ByType = map[mesh3mf.ObjectType]int{}

	for _, item := range m.Build.Items {
		st.Geometry.InstanceCount++
		if err := accumulate(m, resolver, item.ObjectID, item.Path, item.Transform, &st.Geometry); err != nil {
			return nil, err
		}
	}

	for _, a := range m.Resources.Assets {
		switch a.(type) {
		case *mesh3mf.BaseMaterials:
			st.Materials.BaseMaterialGroups++
		case *mesh3mf.ColorGroup:
			st.Materials.ColorGroups++
		case *mesh3mf.Texture2DGroup:
			st.Materials.Texture2DGroups++
		case *mesh3mf.CompositeMaterials:
			st.Materials.CompositeMaterials++
		case *mesh3mf.MultiProperties:
			st.Materials.MultiProperties++
		}
	}
	return st, nil
}

func accumulate(root *mesh3mf.Model, resolver *io3mf.PartResolver, id uint32, path string, transform mesh3mf.Matrix, g *GeometryStats) error {
	_, obj, ok, err := resolver.ResolveObject(id, path)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	g.ByType[obj.ObjectType]++

	// Children inherit the part of their parent unless they name one
	// themselves; the root part resets the inheritance.
	inherited := path
	if inherited == io3mf.RootPath || inherited == root.PathOrDefault() ||
		inherited == root.PathOrDefault()[1:] {
		inherited = ""
	}

	switch geom := obj.Geometry.(type) {
	case *mesh3mf.Mesh:
		accumulateMesh(geom, transform, g)
	case *mesh3mf.Components:
		for _, c := range geom.Components {
			next := c.Path
			if next == "" {
				next = inherited
			}
			if err := accumulate(root, resolver, c.ObjectID, next, transform.Mul(c.Transform), g); err != nil {
				return err
			}
		}
	case *mesh3mf.BooleanShape:
		next := geom.Path
		if next == "" {
			next = inherited
		}
		if err := accumulate(root, resolver, geom.BaseObjectID, next, transform.Mul(geom.Transform), g); err != nil {
			return err
		}
		for _, op := range geom.Operations {
			opPath := op.Path
			if opPath == "" {
				opPath = inherited
			}
			if err := accumulate(root, resolver, op.ObjectID, opPath, transform.Mul(op.Transform), g); err != nil {
				return err
			}
		}
	}
	return nil
}

func accumulateMesh(mesh *mesh3mf.Mesh, transform mesh3mf.Matrix, g *GeometryStats) {
	g.ObjectCount++
	g.VertexCount += uint64(len(mesh.Vertices))
	g.TriangleCount += uint64(len(mesh.Triangles))

	if box, ok := mesh.AABB(); ok {
		tb := transformBox(box, transform)
		if g.BoundingBox == nil {
			g.BoundingBox = &tb
		} else {
			*g.BoundingBox = g.BoundingBox.Extend(tb)
		}
	}

	area, volume := mesh.AreaVolume()
	det := math.Abs(transform.Determinant())
	g.SurfaceArea += area * math.Pow(det, 2.0/3.0)
	g.Volume += volume * det
}

// transformBox maps the eight corners through the transform and
// re-wraps them in an axis-aligned box.
func transformBox(box mesh3mf.Box, m mesh3mf.Matrix) mesh3mf.Box {
	var out mesh3mf.Box
	first := true
	for i := 0; i < 8; i++ {
		corner := mesh3mf.Point3D{box.Min[0], box.Min[1], box.Min[2]}
		if i&1 != 0 {
			corner[0] = box.Max[0]
		}
		if i&2 != 0 {
			corner[1] = box.Max[1]
		}
		if i&4 != 0 {
			corner[2] = box.Max[2]
		}
		p := m.MulPoint(corner)
		if first {
			out = mesh3mf.Box{Min: p, Max: p}
			first = false
			continue
		}
		for axis := 0; axis < 3; axis++ {
			if p[axis] < out.Min[axis] {
				out.Min[axis] = p[axis]
			}
			if p[axis] > out.Max[axis] {
				out.Max[axis] = p[axis]
			}
		}
	}
	return out
}
