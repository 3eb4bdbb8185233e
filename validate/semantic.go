package validate

import (
	"fmt"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// validateSemantic runs the Standard reference-integrity checks.
// Components and items addressing another part by path are skipped:
// existence across parts needs an archive, which a pure model
// validation does not have.
func validateSemantic(m *mesh3mf.Model, r *Report) {
	validateBuild(m, r)
	for _, o := range m.Resources.Objects {
		if o.PID != 0 && !propertyGroupExists(m, o.PID) {
			r.AddError(CodeUnknownPropertyGroup,
				fmt.Sprintf("object %d references unknown property group %d", o.ID, o.PID))
		}
		switch g := o.Geometry.(type) {
		case *mesh3mf.Mesh:
			validateMeshRefs(m, o, g, r)
		case *mesh3mf.Components:
			for _, c := range g.Components {
				if c.Path != "" {
					continue
				}
				if _, ok := m.Resources.FindObject(c.ObjectID); !ok {
					r.AddError(CodeComponentUnknown,
						fmt.Sprintf("component in object %d references unknown object %d", o.ID, c.ObjectID))
				}
			}
		case mesh3mf.SliceStackRef:
			if _, ok := findSliceStack(m, uint32(g)); !ok {
				r.AddError(CodeSliceStackUnknown,
					fmt.Sprintf("object %d references unknown slicestack %d", o.ID, uint32(g)))
			}
		case mesh3mf.VolumetricStackRef:
			if _, ok := findVolumetricStack(m, uint32(g)); !ok {
				r.AddError(CodeVolumetricStackUnknown,
					fmt.Sprintf("object %d references unknown volumetricstack %d", o.ID, uint32(g)))
			}
		case *mesh3mf.BooleanShape:
			validateBooleanShape(m, o, g, r)
		}
	}
	validateAssetRefs(m, r)
	validateCycles(m, r)
}

func validateBuild(m *mesh3mf.Model, r *Report) {
	for i, item := range m.Build.Items {
		if item.Path != "" {
			continue
		}
		obj, ok := m.Resources.FindObject(item.ObjectID)
		if !ok {
			r.AddError(CodeBuildItemUnknown,
				fmt.Sprintf("build item %d references unknown object %d", i, item.ObjectID))
			continue
		}
		if !obj.ObjectType.CanBeInBuild() {
			r.AddError(CodeBuildItemOtherType,
				fmt.Sprintf("build item %d references object %d of type %q, which cannot be built",
					i, item.ObjectID, obj.ObjectType))
		}
	}
}

func validateMeshRefs(m *mesh3mf.Model, o *mesh3mf.Object, mesh *mesh3mf.Mesh, r *Report) {
	nv := uint32(len(mesh.Vertices))
	for i := range mesh.Triangles {
		t := &mesh.Triangles[i]
		if t.Indices[0] >= nv || t.Indices[1] >= nv || t.Indices[2] >= nv {
			r.AddError(CodeTriangleOutOfBounds,
				fmt.Sprintf("triangle %d in object %d references an out-of-bounds vertex", i, o.ID))
		}
		if t.PID != 0 && !propertyGroupExists(m, t.PID) {
			r.AddError(CodeTrianglePIDUnknown,
				fmt.Sprintf("triangle %d in object %d references unknown property group %d", i, o.ID, t.PID))
		}
	}
	if bl := mesh.BeamLattice; bl != nil {
		for i, b := range bl.Beams {
			if b.Indices[0] >= nv || b.Indices[1] >= nv {
				r.AddError(CodeBeamOutOfBounds,
					fmt.Sprintf("beam %d in object %d references an out-of-bounds vertex", i, o.ID))
			}
		}
	}
}

func validateBooleanShape(m *mesh3mf.Model, o *mesh3mf.Object, bs *mesh3mf.BooleanShape, r *Report) {
	if bs.Path == "" {
		if base, ok := m.Resources.FindObject(bs.BaseObjectID); !ok {
			r.AddError(CodeBooleanBaseUnknown,
				fmt.Sprintf("booleanshape %d references unknown base object %d", o.ID, bs.BaseObjectID))
		} else {
			switch base.Geometry.(type) {
			case *mesh3mf.Mesh, *mesh3mf.BooleanShape:
			default:
				r.AddError(CodeBooleanBaseInvalid,
					fmt.Sprintf("booleanshape %d base object %d must be a mesh or another booleanshape",
						o.ID, bs.BaseObjectID))
			}
		}
	}
	for i, op := range bs.Operations {
		if op.Path != "" {
			continue
		}
		opObj, ok := m.Resources.FindObject(op.ObjectID)
		if !ok {
			r.AddError(CodeBooleanOperandUnknown,
				fmt.Sprintf("booleanshape %d operation %d references unknown object %d", o.ID, i, op.ObjectID))
			continue
		}
		if _, isMesh := opObj.Geometry.(*mesh3mf.Mesh); !isMesh {
			r.AddError(CodeBooleanOperandInvalid,
				fmt.Sprintf("booleanshape %d operation %d references object %d, which is not a mesh",
					o.ID, i, op.ObjectID))
		}
	}
}

func validateAssetRefs(m *mesh3mf.Model, r *Report) {
	for _, a := range m.Resources.Assets {
		switch g := a.(type) {
		case *mesh3mf.Texture2DGroup:
			if _, ok := findTexture2D(m, g.TextureID); !ok {
				r.AddError(CodeTextureUnknown,
					fmt.Sprintf("texture2dgroup %d references unknown texture %d", g.ID, g.TextureID))
			}
		case *mesh3mf.CompositeMaterials:
			if _, ok := findBaseMaterials(m, g.MaterialID); !ok {
				r.AddError(CodeCompositeBaseUnknown,
					fmt.Sprintf("compositematerials %d references unknown basematerials %d", g.ID, g.MaterialID))
			}
			for i, c := range g.Composites {
				if len(c.Values) != len(g.Indices) {
					r.AddError(CodeCompositeWidthMismatch,
						fmt.Sprintf("composite %d in group %d has %d values for %d indices",
							i, g.ID, len(c.Values), len(g.Indices)))
				}
			}
		case *mesh3mf.MultiProperties:
			for _, pid := range g.PIDs {
				if !propertyGroupExists(m, pid) {
					r.AddError(CodeUnknownPropertyGroup,
						fmt.Sprintf("multiproperties %d references unknown property group %d", g.ID, pid))
				}
			}
			for i, mu := range g.Multis {
				if len(mu.PIndices) != len(g.PIDs) {
					r.AddError(CodeMultiWidthMismatch,
						fmt.Sprintf("multi %d in group %d has %d indices for %d property groups",
							i, g.ID, len(mu.PIndices), len(g.PIDs)))
				}
			}
		case *mesh3mf.SliceStack:
			for _, ref := range g.Refs {
				if ref.Path != "" {
					continue
				}
				if _, ok := findSliceStack(m, ref.SliceStackID); !ok {
					r.AddError(CodeSliceStackUnknown,
						fmt.Sprintf("slicestack %d references unknown slicestack %d", g.ID, ref.SliceStackID))
				}
			}
		case *mesh3mf.VolumetricStack:
			for _, ref := range g.Refs {
				if ref.Path != "" {
					continue
				}
				if _, ok := findVolumetricStack(m, ref.StackID); !ok {
					r.AddError(CodeVolumetricStackUnknown,
						fmt.Sprintf("volumetricstack %d references unknown volumetricstack %d", g.ID, ref.StackID))
				}
			}
		}
	}
}

// validateCycles walks the same-part object-reference edges of
// components and boolean operations, reporting every back edge.
func validateCycles(m *mesh3mf.Model, r *Report) {
	const (
		white = iota
		gray
		black
	)
	state := make(map[uint32]int, len(m.Resources.Objects))
	var visit func(o *mesh3mf.Object)
	visit = func(o *mesh3mf.Object) {
		state[o.ID] = gray
		for _, next := range objectEdges(o) {
			target, ok := m.Resources.FindObject(next)
			if !ok {
				continue
			}
			switch state[target.ID] {
			case gray:
				r.AddError(CodeReferenceCycle,
					fmt.Sprintf("object %d participates in a reference cycle through object %d", o.ID, target.ID))
			case white:
				visit(target)
			}
		}
		state[o.ID] = black
	}
	for _, o := range m.Resources.Objects {
		if state[o.ID] == white {
			visit(o)
		}
	}
}

// objectEdges lists the same-part objects referenced by o's geometry.
func objectEdges(o *mesh3mf.Object) []uint32 {
	var edges []uint32
	switch g := o.Geometry.(type) {
	case *mesh3mf.Components:
		for _, c := range g.Components {
			if c.Path == "" {
				edges = append(edges, c.ObjectID)
			}
		}
	case *mesh3mf.BooleanShape:
		if g.Path == "" {
			edges = append(edges, g.BaseObjectID)
		}
		for _, op := range g.Operations {
			if op.Path == "" {
				edges = append(edges, op.ObjectID)
			}
		}
	}
	return edges
}

func propertyGroupExists(m *mesh3mf.Model, id uint32) bool {
	a, ok := m.Resources.FindAsset(id)
	if !ok {
		return false
	}
	switch a.(type) {
	case *mesh3mf.BaseMaterials, *mesh3mf.ColorGroup, *mesh3mf.Texture2DGroup,
		*mesh3mf.CompositeMaterials, *mesh3mf.MultiProperties:
		return true
	}
	return false
}

func findSliceStack(m *mesh3mf.Model, id uint32) (*mesh3mf.SliceStack, bool) {
	if a, ok := m.Resources.FindAsset(id); ok {
		if s, ok := a.(*mesh3mf.SliceStack); ok {
			return s, true
		}
	}
	return nil, false
}

func findVolumetricStack(m *mesh3mf.Model, id uint32) (*mesh3mf.VolumetricStack, bool) {
	if a, ok := m.Resources.FindAsset(id); ok {
		if s, ok := a.(*mesh3mf.VolumetricStack); ok {
			return s, true
		}
	}
	return nil, false
}

func findTexture2D(m *mesh3mf.Model, id uint32) (*mesh3mf.Texture2D, bool) {
	if a, ok := m.Resources.FindAsset(id); ok {
		if t, ok := a.(*mesh3mf.Texture2D); ok {
			return t, true
		}
	}
	return nil, false
}

func findBaseMaterials(m *mesh3mf.Model, id uint32) (*mesh3mf.BaseMaterials, bool) {
	if a, ok := m.Resources.FindAsset(id); ok {
		if b, ok := a.(*mesh3mf.BaseMaterials); ok {
			return b, true
		}
	}
	return nil, false
}
