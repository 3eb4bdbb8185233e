package validate

import (
	"fmt"
	"math"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// normalUnitTolerance bounds how far a displacement normal may
// deviate from unit length.
const normalUnitTolerance = 1e-4

// validateDisplacement checks displacement meshes: the normal count
// must equal the vertex count, gradients must match too, and normals
// must be unit length. Gradient orthogonality is only surfaced as an
// informational note; the extension text leaves it underspecified.
func validateDisplacement(m *mesh3mf.Model, r *Report) {
	for _, o := range m.Resources.Objects {
		dm, ok := o.Geometry.(*mesh3mf.DisplacementMesh)
		if !ok {
			continue
		}
		if len(dm.Normals) != len(dm.Vertices) {
			r.AddError(CodeDisplacementNormalCount,
				fmt.Sprintf("object %d has %d normals for %d vertices", o.ID, len(dm.Normals), len(dm.Vertices)))
		}
		if len(dm.Gradients) > 0 {
			if len(dm.Gradients) != len(dm.Vertices) {
				r.AddError(CodeDisplacementGradientCount,
					fmt.Sprintf("object %d has %d gradients for %d vertices", o.ID, len(dm.Gradients), len(dm.Vertices)))
			}
			r.AddInfo(CodeDisplacementGradientInfo,
				fmt.Sprintf("object %d carries gradient vectors; orthogonality is not checked", o.ID))
		}
		for i, n := range dm.Normals {
			length := math.Sqrt(float64(n[0])*float64(n[0]) + float64(n[1])*float64(n[1]) + float64(n[2])*float64(n[2]))
			if math.Abs(length-1) > normalUnitTolerance {
				r.AddError(CodeDisplacementNormalLength,
					fmt.Sprintf("normal %d in object %d has length %g", i, o.ID, length))
			}
		}
		nv := uint32(len(dm.Vertices))
		for i := range dm.Triangles {
			t := &dm.Triangles[i]
			if t.Indices[0] >= nv || t.Indices[1] >= nv || t.Indices[2] >= nv {
				r.AddError(CodeTriangleOutOfBounds,
					fmt.Sprintf("triangle %d in object %d references an out-of-bounds vertex", i, o.ID))
			}
		}
	}
}
