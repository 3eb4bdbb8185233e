package io3mf

import (
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	mesh3mf "github.com/solidforge/mesh3mf"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// ParseModel decodes a model XML document into a Model. Parsing is
// fail-fast: the first structural or validation error aborts.
func ParseModel(data []byte) (*mesh3mf.Model, error) {
	return parseModelReader(bytes.NewReader(data))
}

func parseModelReader(r io.Reader) (*mesh3mf.Model, error) {
	d := xml.NewDecoder(r)
	m := &mesh3mf.Model{Units: mesh3mf.UnitMillimeter}
	for {
		tok, err := next(d)
		if err == io.EOF {
			return m, nil
		}
		if err != nil {
			return nil, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "model" {
			if err := skip(d); err != nil {
				return nil, err
			}
			continue
		}
		if err := parseModelElement(d, &se, m); err != nil {
			return nil, err
		}
	}
}

func parseModelElement(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	if raw, ok := findAttr(se, "unit"); ok {
		if u, known := mesh3mf.NewUnits(raw); known {
			m.Units = u
		}
	}
	if lang, ok := findAttr(se, "lang"); ok {
		m.Language = lang
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in model")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "metadata":
				name, err := reqAttr(&t, "name")
				if err != nil {
					return err
				}
				value, err := readTextContent(d)
				if err != nil {
					return err
				}
				m.Metadata = append(m.Metadata, mesh3mf.Metadata{Name: name, Value: value})
			case "resources":
				if err := parseResources(d, m); err != nil {
					return err
				}
			case "build":
				if err := parseBuild(d, m); err != nil {
					return err
				}
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "model" {
				return nil
			}
		}
	}
}

func parseResources(d *xml.Decoder, m *mesh3mf.Model) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in resources")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			var perr error
			switch t.Name.Local {
			case "object":
				perr = parseObject(d, &t, m)
			case "basematerials":
				perr = parseBaseMaterials(d, &t, m)
			case "colorgroup":
				perr = parseColorGroup(d, &t, m)
			case "texture2d":
				perr = parseTexture2D(d, &t, m)
			case "texture2dgroup":
				perr = parseTexture2DGroup(d, &t, m)
			case "compositematerials":
				perr = parseCompositeMaterials(d, &t, m)
			case "multiproperties":
				perr = parseMultiProperties(d, &t, m)
			case "slicestack":
				perr = parseSliceStack(d, &t, m)
			case "volumetricstack":
				perr = parseVolumetricStack(d, &t, m)
			case "displacement2d":
				perr = parseDisplacement2D(d, &t, m)
			default:
				perr = skip(d)
			}
			if perr != nil {
				return perr
			}
		case xml.EndElement:
			if t.Name.Local == "resources" {
				return nil
			}
		}
	}
}

func parseObject(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	obj := &mesh3mf.Object{ID: id}
	if raw, ok := findAttr(se, "type"); ok {
		if ot, known := mesh3mf.NewObjectType(raw); known {
			obj.ObjectType = ot
		}
	}
	obj.Name, _ = findAttr(se, "name")
	obj.PartNumber, _ = findAttr(se, "partnumber")
	obj.Thumbnail, _ = findAttr(se, "thumbnail")
	if obj.UUID, err = optUUID(se, "uuid"); err != nil {
		return err
	}
	if pid, ok, err := optU32(se, "pid"); err != nil {
		return err
	} else if ok {
		obj.PID = pid
	}
	if pindex, ok, err := optU32(se, "pindex"); err != nil {
		return err
	} else if ok {
		obj.PIndex = pindex
	}
	sliceStackID, hasSliceStack, err := optU32(se, "slicestackid")
	if err != nil {
		return err
	}
	volStackID, hasVolStack, err := optU32(se, "volumetricstackid")
	if err != nil {
		return err
	}

	geometry, err := parseObjectBody(d, se)
	if err != nil {
		return err
	}
	// Stack references on the object element win over body content;
	// any parsed mesh body is dropped.
	switch {
	case hasSliceStack:
		obj.Geometry = mesh3mf.SliceStackRef(sliceStackID)
	case hasVolStack:
		obj.Geometry = mesh3mf.VolumetricStackRef(volStackID)
	default:
		obj.Geometry = geometry
	}
	return m.Resources.AddObject(obj)
}

func parseObjectBody(d *xml.Decoder, se *xml.StartElement) (mesh3mf.Geometry, error) {
	var geometry mesh3mf.Geometry
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in object")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "mesh":
				mesh, err := parseMesh(d)
				if err != nil {
					return nil, err
				}
				geometry = mesh
			case "components":
				comps, err := parseComponents(d)
				if err != nil {
					return nil, err
				}
				geometry = comps
			case "displacementmesh":
				dm, err := parseDisplacementMesh(d)
				if err != nil {
					return nil, err
				}
				geometry = dm
			case "booleanshape":
				bs, err := parseBooleanShape(d, &t)
				if err != nil {
					return nil, err
				}
				geometry = bs
			default:
				if err := skip(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "object" {
				return geometry, nil
			}
		}
	}
}

func parseMesh(d *xml.Decoder) (*mesh3mf.Mesh, error) {
	mesh := new(mesh3mf.Mesh)
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in mesh")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "vertices":
				if err := parseVertices(d, mesh); err != nil {
					return nil, err
				}
			case "triangles":
				if err := parseTriangles(d, mesh); err != nil {
					return nil, err
				}
			case "beamlattice":
				lattice, err := parseBeamLattice(d, &t)
				if err != nil {
					return nil, err
				}
				mesh.BeamLattice = lattice
			default:
				if err := skip(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "mesh" {
				return mesh, nil
			}
		}
	}
}

func parseVertices(d *xml.Decoder, mesh *mesh3mf.Mesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in vertices")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "vertex" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			x, err := reqF32(&t, "x")
			if err != nil {
				return err
			}
			y, err := reqF32(&t, "y")
			if err != nil {
				return err
			}
			z, err := reqF32(&t, "z")
			if err != nil {
				return err
			}
			mesh.Vertices = append(mesh.Vertices, mesh3mf.Point3D{x, y, z})
		case xml.EndElement:
			if t.Name.Local == "vertices" {
				return nil
			}
		}
	}
}

func parseTriangles(d *xml.Decoder, mesh *mesh3mf.Mesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in triangles")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "triangle" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			tri, err := parseTriangleAttrs(&t)
			if err != nil {
				return err
			}
			mesh.Triangles = append(mesh.Triangles, tri)
		case xml.EndElement:
			if t.Name.Local == "triangles" {
				return nil
			}
		}
	}
}

func parseTriangleAttrs(se *xml.StartElement) (mesh3mf.Triangle, error) {
	var tri mesh3mf.Triangle
	for i, name := range [3]string{"v1", "v2", "v3"} {
		v, err := reqU32(se, name)
		if err != nil {
			return tri, err
		}
		tri.Indices[i] = v
	}
	if pid, ok, err := optU32(se, "pid"); err != nil {
		return tri, err
	} else if ok {
		tri.PID = pid
	}
	p1, hasP1, err := optU32(se, "p1")
	if err != nil {
		return tri, err
	}
	if hasP1 {
		tri.HasPIndices = true
		tri.PIndices = [3]uint32{p1, p1, p1}
		if p2, ok, err := optU32(se, "p2"); err != nil {
			return tri, err
		} else if ok {
			tri.PIndices[1] = p2
		}
		if p3, ok, err := optU32(se, "p3"); err != nil {
			return tri, err
		} else if ok {
			tri.PIndices[2] = p3
		}
	}
	return tri, nil
}

func parseBeamLattice(d *xml.Decoder, se *xml.StartElement) (*mesh3mf.BeamLattice, error) {
	lattice := new(mesh3mf.BeamLattice)
	var err error
	if lattice.MinLength, _, err = optF32(se, "minlength"); err != nil {
		return nil, err
	}
	if lattice.Precision, _, err = optF32(se, "precision"); err != nil {
		return nil, err
	}
	if raw, ok := findAttr(se, "clippingmode"); ok {
		if cm, known := mesh3mf.NewClipMode(raw); known {
			lattice.ClipMode = cm
		}
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in beamlattice")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "beams":
				if err := parseBeams(d, lattice); err != nil {
					return nil, err
				}
			case "beamsets":
				if err := parseBeamSets(d, lattice); err != nil {
					return nil, err
				}
			default:
				if err := skip(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "beamlattice" {
				return lattice, nil
			}
		}
	}
}

func parseBeams(d *xml.Decoder, lattice *mesh3mf.BeamLattice) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in beams")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "beam" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			var beam mesh3mf.Beam
			if beam.Indices[0], err = reqU32(&t, "v1"); err != nil {
				return err
			}
			if beam.Indices[1], err = reqU32(&t, "v2"); err != nil {
				return err
			}
			if beam.Radius[0], err = reqF32(&t, "r1"); err != nil {
				return err
			}
			beam.Radius[1] = beam.Radius[0]
			if r2, ok, err := optF32(&t, "r2"); err != nil {
				return err
			} else if ok {
				beam.Radius[1] = r2
			}
			if p1, ok, err := optU32(&t, "p1"); err != nil {
				return err
			} else if ok {
				beam.P1, beam.P2, beam.HasP = p1, p1, true
			}
			if p2, ok, err := optU32(&t, "p2"); err != nil {
				return err
			} else if ok {
				beam.P2 = p2
			}
			if raw, ok := findAttr(&t, "cap"); ok {
				if cm, known := mesh3mf.NewCapMode(raw); known {
					beam.CapMode = cm
				}
			}
			lattice.Beams = append(lattice.Beams, beam)
		case xml.EndElement:
			if t.Name.Local == "beams" {
				return nil
			}
		}
	}
}

func parseBeamSets(d *xml.Decoder, lattice *mesh3mf.BeamLattice) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in beamsets")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "beamset" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			set := mesh3mf.BeamSet{}
			set.Name, _ = findAttr(&t, "name")
			set.Identifier, _ = findAttr(&t, "identifier")
			if err := parseBeamSetRefs(d, &set); err != nil {
				return err
			}
			lattice.BeamSets = append(lattice.BeamSets, set)
		case xml.EndElement:
			if t.Name.Local == "beamsets" {
				return nil
			}
		}
	}
}

func parseBeamSetRefs(d *xml.Decoder, set *mesh3mf.BeamSet) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in beamset")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "ref" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			idx, err := reqU32(&t, "index")
			if err != nil {
				return err
			}
			set.Refs = append(set.Refs, idx)
		case xml.EndElement:
			if t.Name.Local == "beamset" {
				return nil
			}
		}
	}
}

func parseComponents(d *xml.Decoder) (*mesh3mf.Components, error) {
	comps := new(mesh3mf.Components)
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in components")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "component" {
				if err := skip(d); err != nil {
					return nil, err
				}
				continue
			}
			comp := &mesh3mf.Component{Transform: mesh3mf.Identity()}
			if comp.ObjectID, err = reqU32(&t, "objectid"); err != nil {
				return nil, err
			}
			if comp.UUID, err = optUUID(&t, "uuid"); err != nil {
				return nil, err
			}
			comp.Path, _ = findAttr(&t, "path")
			if raw, ok := findAttr(&t, "transform"); ok {
				if comp.Transform, err = ParseMatrix(raw); err != nil {
					return nil, err
				}
			}
			comps.Components = append(comps.Components, comp)
		case xml.EndElement:
			if t.Name.Local == "components" {
				return comps, nil
			}
		}
	}
}

func parseBooleanShape(d *xml.Decoder, se *xml.StartElement) (*mesh3mf.BooleanShape, error) {
	bs := &mesh3mf.BooleanShape{Transform: mesh3mf.Identity()}
	var err error
	if bs.BaseObjectID, err = reqU32(se, "objectid"); err != nil {
		return nil, err
	}
	bs.Path, _ = findAttr(se, "path")
	if raw, ok := findAttr(se, "transform"); ok {
		if bs.Transform, err = ParseMatrix(raw); err != nil {
			return nil, err
		}
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in booleanshape")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "boolean" {
				if err := skip(d); err != nil {
					return nil, err
				}
				continue
			}
			op := mesh3mf.BooleanOperation{Transform: mesh3mf.Identity()}
			if op.ObjectID, err = reqU32(&t, "objectid"); err != nil {
				return nil, err
			}
			if raw, ok := findAttr(&t, "operation"); ok {
				if o, known := mesh3mf.NewBooleanOp(raw); known {
					op.Operation = o
				}
			}
			op.Path, _ = findAttr(&t, "path")
			if raw, ok := findAttr(&t, "transform"); ok {
				if op.Transform, err = ParseMatrix(raw); err != nil {
					return nil, err
				}
			}
			if err := skip(d); err != nil {
				return nil, err
			}
			bs.Operations = append(bs.Operations, op)
		case xml.EndElement:
			if t.Name.Local == "booleanshape" {
				return bs, nil
			}
		}
	}
}

func parseDisplacementMesh(d *xml.Decoder) (*mesh3mf.DisplacementMesh, error) {
	dm := new(mesh3mf.DisplacementMesh)
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in displacementmesh")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "vertices":
				if err := parseDisplacementVertices(d, dm); err != nil {
					return nil, err
				}
			case "triangles":
				if err := parseDisplacementTriangles(d, dm); err != nil {
					return nil, err
				}
			case "normvectors":
				if err := parseNormVectors(d, dm); err != nil {
					return nil, err
				}
			case "disp2dgroups":
				if err := parseDisp2DGroups(d, dm); err != nil {
					return nil, err
				}
			default:
				if err := skip(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "displacementmesh" {
				return dm, nil
			}
		}
	}
}

func parseDisplacementVertices(d *xml.Decoder, dm *mesh3mf.DisplacementMesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in vertices")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "vertex" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			x, err := reqF32(&t, "x")
			if err != nil {
				return err
			}
			y, err := reqF32(&t, "y")
			if err != nil {
				return err
			}
			z, err := reqF32(&t, "z")
			if err != nil {
				return err
			}
			dm.Vertices = append(dm.Vertices, mesh3mf.Point3D{x, y, z})
		case xml.EndElement:
			if t.Name.Local == "vertices" {
				return nil
			}
		}
	}
}

func parseDisplacementTriangles(d *xml.Decoder, dm *mesh3mf.DisplacementMesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in triangles")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "triangle" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			var tri mesh3mf.DisplacementTriangle
			base, err := parseTriangleAttrs(&t)
			if err != nil {
				return err
			}
			tri.Indices = base.Indices
			tri.PID = base.PID
			tri.PIndices = base.PIndices
			tri.HasPIndices = base.HasPIndices
			d1, hasD1, err := optU32(&t, "d1")
			if err != nil {
				return err
			}
			if hasD1 {
				tri.HasDIndices = true
				tri.DIndices = [3]uint32{d1, d1, d1}
				if d2, ok, err := optU32(&t, "d2"); err != nil {
					return err
				} else if ok {
					tri.DIndices[1] = d2
				}
				if d3, ok, err := optU32(&t, "d3"); err != nil {
					return err
				} else if ok {
					tri.DIndices[2] = d3
				}
			}
			dm.Triangles = append(dm.Triangles, tri)
		case xml.EndElement:
			if t.Name.Local == "triangles" {
				return nil
			}
		}
	}
}

func parseNormVectors(d *xml.Decoder, dm *mesh3mf.DisplacementMesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in normvectors")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "normvector" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			nx, err := reqF32(&t, "nx")
			if err != nil {
				return err
			}
			ny, err := reqF32(&t, "ny")
			if err != nil {
				return err
			}
			nz, err := reqF32(&t, "nz")
			if err != nil {
				return err
			}
			dm.Normals = append(dm.Normals, mesh3mf.NormVector{nx, ny, nz})
		case xml.EndElement:
			if t.Name.Local == "normvectors" {
				return nil
			}
		}
	}
}

func parseDisp2DGroups(d *xml.Decoder, dm *mesh3mf.DisplacementMesh) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in disp2dgroups")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "disp2dgroup":
				// gradients live inside the group
			case "gradient":
				gu, err := reqF32(&t, "gu")
				if err != nil {
					return err
				}
				gv, err := reqF32(&t, "gv")
				if err != nil {
					return err
				}
				dm.Gradients = append(dm.Gradients, mesh3mf.GradientVector{gu, gv})
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "disp2dgroups" {
				return nil
			}
		}
	}
}

func parseBaseMaterials(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	group := &mesh3mf.BaseMaterials{ID: id}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in basematerials")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "base" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			name, err := reqAttr(&t, "name")
			if err != nil {
				return err
			}
			raw, err := reqAttr(&t, "displaycolor")
			if err != nil {
				return err
			}
			c, err := mesh3mf.ParseColor(raw)
			if err != nil {
				return err
			}
			group.Materials = append(group.Materials, mesh3mf.Base{Name: name, Color: c})
		case xml.EndElement:
			if t.Name.Local == "basematerials" {
				return m.Resources.AddAsset(group)
			}
		}
	}
}

func parseColorGroup(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	group := &mesh3mf.ColorGroup{ID: id}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in colorgroup")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "color" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			raw, err := reqAttr(&t, "color")
			if err != nil {
				return err
			}
			c, err := mesh3mf.ParseColor(raw)
			if err != nil {
				return err
			}
			group.Colors = append(group.Colors, c)
		case xml.EndElement:
			if t.Name.Local == "colorgroup" {
				return m.Resources.AddAsset(group)
			}
		}
	}
}

func parseTexture2D(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	tex := &mesh3mf.Texture2D{ID: id}
	if tex.Path, err = reqAttr(se, "path"); err != nil {
		return err
	}
	tex.ContentType, _ = findAttr(se, "contenttype")
	if err := skip(d); err != nil {
		return err
	}
	return m.Resources.AddAsset(tex)
}

func parseTexture2DGroup(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	group := &mesh3mf.Texture2DGroup{ID: id}
	if group.TextureID, err = reqU32(se, "texid"); err != nil {
		return err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in texture2dgroup")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "tex2coord" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			u, err := reqF32(&t, "u")
			if err != nil {
				return err
			}
			v, err := reqF32(&t, "v")
			if err != nil {
				return err
			}
			group.Coords = append(group.Coords, mesh3mf.TextureCoord{u, v})
		case xml.EndElement:
			if t.Name.Local == "texture2dgroup" {
				return m.Resources.AddAsset(group)
			}
		}
	}
}

func parseCompositeMaterials(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	group := &mesh3mf.CompositeMaterials{ID: id}
	if group.MaterialID, err = reqU32(se, "matid"); err != nil {
		return err
	}
	if group.Indices, err = optU32List(se, "matindices"); err != nil {
		return err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in compositematerials")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "composite" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			values, err := optF32List(&t, "values")
			if err != nil {
				return err
			}
			group.Composites = append(group.Composites, mesh3mf.Composite{Values: values})
		case xml.EndElement:
			if t.Name.Local == "compositematerials" {
				return m.Resources.AddAsset(group)
			}
		}
	}
}

func parseMultiProperties(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	group := &mesh3mf.MultiProperties{ID: id}
	if group.PIDs, err = optU32List(se, "pids"); err != nil {
		return err
	}
	if raw, ok := findAttr(se, "blendmethods"); ok {
		for _, f := range strings.Fields(raw) {
			bm, known := mesh3mf.NewBlendMethod(f)
			if !known {
				return specerr.ParseAttr("blendmethods", raw)
			}
			group.BlendMethods = append(group.BlendMethods, bm)
		}
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in multiproperties")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "multi" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			pindices, err := optU32List(&t, "pindices")
			if err != nil {
				return err
			}
			group.Multis = append(group.Multis, mesh3mf.Multi{PIndices: pindices})
		case xml.EndElement:
			if t.Name.Local == "multiproperties" {
				return m.Resources.AddAsset(group)
			}
		}
	}
}

func parseSliceStack(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	stack := &mesh3mf.SliceStack{ID: id}
	if stack.BottomZ, _, err = optF32(se, "zbottom"); err != nil {
		return err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in slicestack")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "slice":
				slice, err := parseSlice(d, &t)
				if err != nil {
					return err
				}
				stack.Slices = append(stack.Slices, slice)
			case "sliceref":
				ref := mesh3mf.SliceRef{}
				if ref.SliceStackID, err = reqU32(&t, "slicestackid"); err != nil {
					return err
				}
				ref.Path, _ = findAttr(&t, "slicepath")
				stack.Refs = append(stack.Refs, ref)
				if err := skip(d); err != nil {
					return err
				}
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "slicestack" {
				return m.Resources.AddAsset(stack)
			}
		}
	}
}

func parseSlice(d *xml.Decoder, se *xml.StartElement) (*mesh3mf.Slice, error) {
	slice := new(mesh3mf.Slice)
	var err error
	if slice.TopZ, err = reqF32(se, "ztop"); err != nil {
		return nil, err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in slice")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "vertices":
				if err := parseSliceVertices(d, slice); err != nil {
					return nil, err
				}
			case "polygon":
				poly, err := parsePolygon(d, &t)
				if err != nil {
					return nil, err
				}
				slice.Polygons = append(slice.Polygons, *poly)
			default:
				if err := skip(d); err != nil {
					return nil, err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "slice" {
				return slice, nil
			}
		}
	}
}

func parseSliceVertices(d *xml.Decoder, slice *mesh3mf.Slice) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in vertices")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "vertex" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			x, err := reqF32(&t, "x")
			if err != nil {
				return err
			}
			y, err := reqF32(&t, "y")
			if err != nil {
				return err
			}
			slice.Vertices = append(slice.Vertices, mesh3mf.Point2D{x, y})
		case xml.EndElement:
			if t.Name.Local == "vertices" {
				return nil
			}
		}
	}
}

func parsePolygon(d *xml.Decoder, se *xml.StartElement) (*mesh3mf.Polygon, error) {
	poly := new(mesh3mf.Polygon)
	var err error
	if poly.StartV, err = reqU32(se, "start"); err != nil {
		return nil, err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return nil, specerr.Validationf("unexpected EOF in polygon")
			}
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "segment" {
				if err := skip(d); err != nil {
					return nil, err
				}
				continue
			}
			var seg mesh3mf.Segment
			if seg.V2, err = reqU32(&t, "v2"); err != nil {
				return nil, err
			}
			if pid, ok, err := optU32(&t, "pid"); err != nil {
				return nil, err
			} else if ok {
				seg.PID = pid
			}
			p1, hasP1, err := optU32(&t, "p1")
			if err != nil {
				return nil, err
			}
			if hasP1 {
				seg.HasP = true
				seg.P1, seg.P2 = p1, p1
				if p2, ok, err := optU32(&t, "p2"); err != nil {
					return nil, err
				} else if ok {
					seg.P2 = p2
				}
			}
			poly.Segments = append(poly.Segments, seg)
		case xml.EndElement:
			if t.Name.Local == "polygon" {
				return poly, nil
			}
		}
	}
}

func parseVolumetricStack(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	stack := &mesh3mf.VolumetricStack{ID: id}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in volumetricstack")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "layer":
				var layer mesh3mf.VolumetricLayer
				if layer.Z, err = reqF32(&t, "z"); err != nil {
					return err
				}
				layer.Path, _ = findAttr(&t, "path")
				stack.Layers = append(stack.Layers, layer)
				if err := skip(d); err != nil {
					return err
				}
			case "volumetricref":
				var ref mesh3mf.VolumetricRef
				if ref.StackID, err = reqU32(&t, "volumetricstackid"); err != nil {
					return err
				}
				ref.Path, _ = findAttr(&t, "path")
				stack.Refs = append(stack.Refs, ref)
				if err := skip(d); err != nil {
					return err
				}
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "volumetricstack" {
				return m.Resources.AddAsset(stack)
			}
		}
	}
}

func parseDisplacement2D(d *xml.Decoder, se *xml.StartElement, m *mesh3mf.Model) error {
	id, err := reqU32(se, "id")
	if err != nil {
		return err
	}
	res := &mesh3mf.Displacement2D{ID: id}
	if res.Path, err = reqAttr(se, "path"); err != nil {
		return err
	}
	if raw, ok := findAttr(se, "channel"); ok {
		if c, known := mesh3mf.NewDisplacementChannel(raw); known {
			res.Channel = c
		}
	}
	if raw, ok := findAttr(se, "tilestyle"); ok {
		if ts, known := mesh3mf.NewTileStyle(raw); known {
			res.TileStyle = ts
		}
	}
	if raw, ok := findAttr(se, "filter"); ok {
		if f, known := mesh3mf.NewFilterMode(raw); known {
			res.Filter = f
		}
	}
	if res.Height, _, err = optF32(se, "height"); err != nil {
		return err
	}
	if res.Offset, _, err = optF32(se, "offset"); err != nil {
		return err
	}
	if err := skip(d); err != nil {
		return err
	}
	return m.Resources.AddAsset(res)
}

func parseBuild(d *xml.Decoder, m *mesh3mf.Model) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in build")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "item" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			item := &mesh3mf.Item{Transform: mesh3mf.Identity()}
			if item.ObjectID, err = reqU32(&t, "objectid"); err != nil {
				return err
			}
			if raw, ok := findAttr(&t, "transform"); ok {
				if item.Transform, err = ParseMatrix(raw); err != nil {
					return err
				}
			}
			item.PartNumber, _ = findAttr(&t, "partnumber")
			if item.UUID, err = optUUID(&t, "uuid"); err != nil {
				return err
			}
			item.Path, _ = findAttr(&t, "path")
			m.Build.Items = append(m.Build.Items, item)
			if err := skip(d); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "build" {
				return nil
			}
		}
	}
}

// ParseMatrix parses the 12 whitespace-separated floats of a 3MF
// transform into the 4x4 column-major form.
func ParseMatrix(s string) (mesh3mf.Matrix, error) {
	fields := strings.Fields(s)
	if len(fields) != 12 {
		return mesh3mf.Matrix{}, specerr.Validationf(
			"transform must have 12 values, got %d", len(fields))
	}
	var v [12]float32
	for i, f := range fields {
		val, err := parseFloat32(f)
		if err != nil {
			return mesh3mf.Matrix{}, specerr.ParseAttr("transform", s)
		}
		v[i] = val
	}
	return mesh3mf.NewMatrix(v), nil
}
