package io3mf

import (
	"bytes"
	"encoding/xml"
	"io"

	mesh3mf "github.com/solidforge/mesh3mf"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// Visitor receives callbacks while a model document streams through
// the parser. Events arrive in document order; the parser aborts with
// the first error a callback returns. Memory stays proportional to
// the element depth, never to the mesh size.
type Visitor interface {
	ModelStart(units mesh3mf.Units, language string) error
	ModelEnd() error
	MetadataEntry(name, value string) error
	ResourcesStart() error
	ResourcesEnd() error
	BaseMaterialsGroup(group *mesh3mf.BaseMaterials) error
	ColorGroupEntry(group *mesh3mf.ColorGroup) error
	MeshStart(objectID uint32) error
	Vertex(x, y, z float32) error
	TriangleEntry(t mesh3mf.Triangle) error
	MeshEnd() error
	BuildStart() error
	BuildEnd() error
	BuildItemEntry(item *mesh3mf.Item) error
}

// BaseVisitor is a Visitor whose callbacks all succeed without doing
// anything. Embed it to implement only the events of interest.
type BaseVisitor struct{}

// ModelStart implements Visitor.
func (BaseVisitor) ModelStart(mesh3mf.Units, string) error { return nil }

// ModelEnd implements Visitor.
func (BaseVisitor) ModelEnd() error { return nil }

// MetadataEntry implements Visitor.
func (BaseVisitor) MetadataEntry(string, string) error { return nil }

// ResourcesStart implements Visitor.
func (BaseVisitor) ResourcesStart() error { return nil }

// ResourcesEnd implements Visitor.
func (BaseVisitor) ResourcesEnd() error { return nil }

// BaseMaterialsGroup implements Visitor.
func (BaseVisitor) BaseMaterialsGroup(*mesh3mf.BaseMaterials) error { return nil }

// ColorGroupEntry implements Visitor.
func (BaseVisitor) ColorGroupEntry(*mesh3mf.ColorGroup) error { return nil }

// MeshStart implements Visitor.
func (BaseVisitor) MeshStart(uint32) error { return nil }

// Vertex implements Visitor.
func (BaseVisitor) Vertex(float32, float32, float32) error { return nil }

// TriangleEntry implements Visitor.
func (BaseVisitor) TriangleEntry(mesh3mf.Triangle) error { return nil }

// MeshEnd implements Visitor.
func (BaseVisitor) MeshEnd() error { return nil }

// BuildStart implements Visitor.
func (BaseVisitor) BuildStart() error { return nil }

// BuildEnd implements Visitor.
func (BaseVisitor) BuildEnd() error { return nil }

// BuildItemEntry implements Visitor.
func (BaseVisitor) BuildItemEntry(*mesh3mf.Item) error { return nil }

// ParseModelStreaming walks a model document emitting visitor
// callbacks instead of building a Model.
func ParseModelStreaming(data []byte, v Visitor) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	started := false
	for {
		tok, err := next(d)
		if err == io.EOF {
			if started {
				return v.ModelEnd()
			}
			return specerr.Validationf("document has no model element")
		}
		if err != nil {
			return err
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "model" {
			if err := skip(d); err != nil {
				return err
			}
			continue
		}
		started = true
		if err := streamModel(d, &se, v); err != nil {
			return err
		}
		return v.ModelEnd()
	}
}

func streamModel(d *xml.Decoder, se *xml.StartElement, v Visitor) error {
	units := mesh3mf.UnitMillimeter
	if raw, ok := findAttr(se, "unit"); ok {
		if u, known := mesh3mf.NewUnits(raw); known {
			units = u
		}
	}
	language, _ := findAttr(se, "lang")
	if err := v.ModelStart(units, language); err != nil {
		return err
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
				if err := v.MetadataEntry(name, value); err != nil {
					return err
				}
			case "resources":
				if err := streamResources(d, v); err != nil {
					return err
				}
			case "build":
				if err := streamBuild(d, v); err != nil {
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

func streamResources(d *xml.Decoder, v Visitor) error {
	if err := v.ResourcesStart(); err != nil {
		return err
	}
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
			switch t.Name.Local {
			case "object":
				id, err := reqU32(&t, "id")
				if err != nil {
					return err
				}
				if err := streamObject(d, id, v); err != nil {
					return err
				}
			case "basematerials":
				var holder mesh3mf.Model
				if err := parseBaseMaterials(d, &t, &holder); err != nil {
					return err
				}
				group := holder.Resources.Assets[0].(*mesh3mf.BaseMaterials)
				if err := v.BaseMaterialsGroup(group); err != nil {
					return err
				}
			case "colorgroup":
				var holder mesh3mf.Model
				if err := parseColorGroup(d, &t, &holder); err != nil {
					return err
				}
				group := holder.Resources.Assets[0].(*mesh3mf.ColorGroup)
				if err := v.ColorGroupEntry(group); err != nil {
					return err
				}
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "resources" {
				return v.ResourcesEnd()
			}
		}
	}
}

func streamObject(d *xml.Decoder, id uint32, v Visitor) error {
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in object")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "mesh" {
				if err := skip(d); err != nil {
					return err
				}
				continue
			}
			if err := streamMesh(d, id, v); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "object" {
				return nil
			}
		}
	}
}

func streamMesh(d *xml.Decoder, id uint32, v Visitor) error {
	if err := v.MeshStart(id); err != nil {
		return err
	}
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return specerr.Validationf("unexpected EOF in mesh")
			}
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "vertices":
				if err := streamVertices(d, v); err != nil {
					return err
				}
			case "triangles":
				if err := streamTriangles(d, v); err != nil {
					return err
				}
			default:
				if err := skip(d); err != nil {
					return err
				}
			}
		case xml.EndElement:
			if t.Name.Local == "mesh" {
				return v.MeshEnd()
			}
		}
	}
}

func streamVertices(d *xml.Decoder, v Visitor) error {
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
			if err := v.Vertex(x, y, z); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "vertices" {
				return nil
			}
		}
	}
}

func streamTriangles(d *xml.Decoder, v Visitor) error {
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
			if err := v.TriangleEntry(tri); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "triangles" {
				return nil
			}
		}
	}
}

func streamBuild(d *xml.Decoder, v Visitor) error {
	if err := v.BuildStart(); err != nil {
		return err
	}
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
			item.Path, _ = findAttr(&t, "path")
			if item.UUID, err = optUUID(&t, "uuid"); err != nil {
				return err
			}
			if err := v.BuildItemEntry(item); err != nil {
				return err
			}
			if err := skip(d); err != nil {
				return err
			}
		case xml.EndElement:
			if t.Name.Local == "build" {
				return v.BuildEnd()
			}
		}
	}
}
