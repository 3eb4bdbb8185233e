package validate

import (
	"fmt"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// validateSchema runs the Minimal structural checks: IDs present,
// enumerations in range, groups non-empty, objects with content.
func validateSchema(m *mesh3mf.Model, r *Report) {
	for _, o := range m.Resources.Objects {
		if o.ID == 0 {
			r.AddError(CodeMissingID, "object has no id")
		}
		if o.ObjectType < mesh3mf.ObjectTypeModel || o.ObjectType > mesh3mf.ObjectTypeSurface {
			r.AddError(CodeInvalidObjectType, fmt.Sprintf("object %d has invalid type", o.ID))
		}
		if o.Geometry == nil {
			r.AddWarning(CodeObjectWithoutContent, fmt.Sprintf("object %d has no geometry", o.ID))
		}
		if mesh, ok := o.Geometry.(*mesh3mf.Mesh); ok && mesh.BeamLattice != nil {
			for i, b := range mesh.BeamLattice.Beams {
				if b.Indices[0] == b.Indices[1] {
					r.AddError(CodeBeamSameVertex,
						fmt.Sprintf("beam %d in object %d joins a vertex to itself", i, o.ID))
				}
			}
		}
	}
	for _, a := range m.Resources.Assets {
		if a.Identify() == 0 {
			r.AddError(CodeMissingID, "resource has no id")
		}
		switch g := a.(type) {
		case *mesh3mf.BaseMaterials:
			if len(g.Materials) == 0 {
				r.AddError(CodeEmptyPropertyGroup, fmt.Sprintf("basematerials %d is empty", g.ID))
			}
		case *mesh3mf.ColorGroup:
			if len(g.Colors) == 0 {
				r.AddError(CodeEmptyPropertyGroup, fmt.Sprintf("colorgroup %d is empty", g.ID))
			}
		case *mesh3mf.Texture2DGroup:
			if len(g.Coords) == 0 {
				r.AddError(CodeEmptyPropertyGroup, fmt.Sprintf("texture2dgroup %d is empty", g.ID))
			}
		case *mesh3mf.CompositeMaterials:
			if len(g.Composites) == 0 {
				r.AddError(CodeEmptyPropertyGroup, fmt.Sprintf("compositematerials %d is empty", g.ID))
			}
		case *mesh3mf.MultiProperties:
			if len(g.Multis) == 0 {
				r.AddError(CodeEmptyPropertyGroup, fmt.Sprintf("multiproperties %d is empty", g.ID))
			}
		}
	}
}
