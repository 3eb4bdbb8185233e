package io3mf

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	mesh3mf "github.com/solidforge/mesh3mf"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// attr is a single attribute; emission order is insertion order.
type attr struct {
	name  string
	value string
}

// xmlWriter emits indented XML with two-space indentation. The first
// sink error sticks and short-circuits everything after it.
type xmlWriter struct {
	w     *bufio.Writer
	depth int
	err   error
}

func newXMLWriter(w io.Writer) *xmlWriter {
	return &xmlWriter{w: bufio.NewWriter(w)}
}

func (x *xmlWriter) raw(s string) {
	if x.err == nil {
		_, x.err = x.w.WriteString(s)
	}
}

func (x *xmlWriter) indent() {
	for i := 0; i < x.depth; i++ {
		x.raw("  ")
	}
}

func (x *xmlWriter) decl() {
	x.raw("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
}

func (x *xmlWriter) openTag(name string, attrs []attr) {
	x.raw("<")
	x.raw(name)
	for _, a := range attrs {
		x.raw(" ")
		x.raw(a.name)
		x.raw("=\"")
		x.raw(escapeAttr(a.value))
		x.raw("\"")
	}
}

func (x *xmlWriter) start(name string, attrs ...attr) {
	x.indent()
	x.openTag(name, attrs)
	x.raw(">\n")
	x.depth++
}

func (x *xmlWriter) empty(name string, attrs ...attr) {
	x.indent()
	x.openTag(name, attrs)
	x.raw("/>\n")
}

func (x *xmlWriter) end(name string) {
	x.depth--
	x.indent()
	x.raw("</")
	x.raw(name)
	x.raw(">\n")
}

// textElement writes a one-line element with character content.
func (x *xmlWriter) textElement(name, value string, attrs ...attr) {
	x.indent()
	x.openTag(name, attrs)
	x.raw(">")
	x.raw(escapeText(value))
	x.raw("</")
	x.raw(name)
	x.raw(">\n")
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return specerr.Iof(x.err, "write model XML")
	}
	if err := x.w.Flush(); err != nil {
		return specerr.Iof(err, "write model XML")
	}
	return nil
}

var attrEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", "\"", "&quot;")

var textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

func escapeAttr(s string) string { return attrEscaper.Replace(s) }

func escapeText(s string) string { return textEscaper.Replace(s) }

// fmtFloat renders the shortest decimal that round-trips the value.
func fmtFloat(f float32) string {
	return strconv.FormatFloat(float64(f), 'f', -1, 32)
}

func fmtUint(v uint32) string {
	return strconv.FormatUint(uint64(v), 10)
}

// FormatMatrix renders the 12 wire values of a transform.
func FormatMatrix(m mesh3mf.Matrix) string {
	v := m.Values()
	parts := make([]string, 12)
	for i, f := range v {
		parts[i] = fmtFloat(f)
	}
	return strings.Join(parts, " ")
}

// WriteModelXML serializes the model to XML. Element and attribute
// order is deterministic: metadata, assets, objects, build, each in
// insertion order.
func WriteModelXML(w io.Writer, m *mesh3mf.Model) error {
	x := newXMLWriter(w)
	x.decl()
	x.start("model", modelAttrs(m)...)

	for _, md := range m.Metadata {
		x.textElement("metadata", md.Value, attr{"name", md.Name})
	}

	x.start("resources")
	for _, a := range m.Resources.Assets {
		writeAsset(x, a)
	}
	for _, o := range m.Resources.Objects {
		writeObject(x, o)
	}
	x.end("resources")

	x.start("build")
	for _, item := range m.Build.Items {
		attrs := []attr{{"objectid", fmtUint(item.ObjectID)}}
		if item.HasTransform() {
			attrs = append(attrs, attr{"transform", FormatMatrix(item.Transform)})
		}
		if item.PartNumber != "" {
			attrs = append(attrs, attr{"partnumber", item.PartNumber})
		}
		if item.UUID != "" {
			attrs = append(attrs, attr{"uuid", item.UUID})
		}
		if item.Path != "" {
			attrs = append(attrs, attr{"path", item.Path})
		}
		x.empty("item", attrs...)
	}
	x.end("build")

	x.end("model")
	return x.flush()
}

func modelAttrs(m *mesh3mf.Model) []attr {
	attrs := []attr{
		{"unit", m.Units.String()},
	}
	if m.Language != "" {
		attrs = append(attrs, attr{"xml:lang", m.Language})
	}
	attrs = append(attrs, attr{"xmlns", mesh3mf.Namespace})
	for _, ns := range usedNamespaces(m) {
		attrs = append(attrs, ns)
	}
	return attrs
}

// usedNamespaces declares the extension namespaces exercised by the
// model so consumers can see which specs are in play.
func usedNamespaces(m *mesh3mf.Model) []attr {
	var (
		material, slice, volumetric, lattice, boolean, displacement, production bool
	)
	for _, a := range m.Resources.Assets {
		switch a.(type) {
		case *mesh3mf.BaseMaterials:
			// base materials are core
		case *mesh3mf.SliceStack:
			slice = true
		case *mesh3mf.VolumetricStack:
			volumetric = true
		case *mesh3mf.Displacement2D:
			displacement = true
		default:
			material = true
		}
	}
	for _, o := range m.Resources.Objects {
		if o.UUID != "" {
			production = true
		}
		switch g := o.Geometry.(type) {
		case *mesh3mf.Mesh:
			if g.BeamLattice != nil {
				lattice = true
			}
		case *mesh3mf.Components:
			for _, c := range g.Components {
				if c.Path != "" || c.UUID != "" {
					production = true
				}
			}
		case mesh3mf.SliceStackRef:
			slice = true
		case mesh3mf.VolumetricStackRef:
			volumetric = true
		case *mesh3mf.BooleanShape:
			boolean = true
		case *mesh3mf.DisplacementMesh:
			displacement = true
		}
	}
	for _, it := range m.Build.Items {
		if it.UUID != "" || it.Path != "" {
			production = true
		}
	}
	var attrs []attr
	if material {
		attrs = append(attrs, attr{"xmlns:m", mesh3mf.NamespaceMaterial})
	}
	if production {
		attrs = append(attrs, attr{"xmlns:p", mesh3mf.NamespaceProduction})
	}
	if slice {
		attrs = append(attrs, attr{"xmlns:s", mesh3mf.NamespaceSlice})
	}
	if lattice {
		attrs = append(attrs, attr{"xmlns:b", mesh3mf.NamespaceBeamLattice})
	}
	if volumetric {
		attrs = append(attrs, attr{"xmlns:v", mesh3mf.NamespaceVolumetric})
	}
	if boolean {
		attrs = append(attrs, attr{"xmlns:bo", mesh3mf.NamespaceBoolean})
	}
	if displacement {
		attrs = append(attrs, attr{"xmlns:d", mesh3mf.NamespaceDisplacement})
	}
	return attrs
}

func writeAsset(x *xmlWriter, a mesh3mf.Asset) {
	switch r := a.(type) {
	case *mesh3mf.BaseMaterials:
		x.start("basematerials", attr{"id", fmtUint(r.ID)})
		for _, b := range r.Materials {
			x.empty("base", attr{"name", b.Name}, attr{"displaycolor", mesh3mf.FormatColor(b.Color)})
		}
		x.end("basematerials")
	case *mesh3mf.ColorGroup:
		x.start("colorgroup", attr{"id", fmtUint(r.ID)})
		for _, c := range r.Colors {
			x.empty("color", attr{"color", mesh3mf.FormatColor(c)})
		}
		x.end("colorgroup")
	case *mesh3mf.Texture2D:
		attrs := []attr{{"id", fmtUint(r.ID)}, {"path", r.Path}}
		if r.ContentType != "" {
			attrs = append(attrs, attr{"contenttype", r.ContentType})
		}
		x.empty("texture2d", attrs...)
	case *mesh3mf.Texture2DGroup:
		x.start("texture2dgroup", attr{"id", fmtUint(r.ID)}, attr{"texid", fmtUint(r.TextureID)})
		for _, c := range r.Coords {
			x.empty("tex2coord", attr{"u", fmtFloat(c[0])}, attr{"v", fmtFloat(c[1])})
		}
		x.end("texture2dgroup")
	case *mesh3mf.CompositeMaterials:
		attrs := []attr{{"id", fmtUint(r.ID)}, {"matid", fmtUint(r.MaterialID)}}
		if len(r.Indices) > 0 {
			attrs = append(attrs, attr{"matindices", joinUints(r.Indices)})
		}
		x.start("compositematerials", attrs...)
		for _, c := range r.Composites {
			x.empty("composite", attr{"values", joinFloats(c.Values)})
		}
		x.end("compositematerials")
	case *mesh3mf.MultiProperties:
		attrs := []attr{{"id", fmtUint(r.ID)}}
		if len(r.PIDs) > 0 {
			attrs = append(attrs, attr{"pids", joinUints(r.PIDs)})
		}
		if len(r.BlendMethods) > 0 {
			methods := make([]string, len(r.BlendMethods))
			for i, bm := range r.BlendMethods {
				methods[i] = bm.String()
			}
			attrs = append(attrs, attr{"blendmethods", strings.Join(methods, " ")})
		}
		x.start("multiproperties", attrs...)
		for _, mu := range r.Multis {
			x.empty("multi", attr{"pindices", joinUints(mu.PIndices)})
		}
		x.end("multiproperties")
	case *mesh3mf.SliceStack:
		attrs := []attr{{"id", fmtUint(r.ID)}}
		if r.BottomZ != 0 {
			attrs = append(attrs, attr{"zbottom", fmtFloat(r.BottomZ)})
		}
		x.start("slicestack", attrs...)
		for _, s := range r.Slices {
			writeSlice(x, s)
		}
		for _, ref := range r.Refs {
			refAttrs := []attr{{"slicestackid", fmtUint(ref.SliceStackID)}}
			if ref.Path != "" {
				refAttrs = append(refAttrs, attr{"slicepath", ref.Path})
			}
			x.empty("sliceref", refAttrs...)
		}
		x.end("slicestack")
	case *mesh3mf.VolumetricStack:
		x.start("volumetricstack", attr{"id", fmtUint(r.ID)})
		for _, layer := range r.Layers {
			attrs := []attr{{"z", fmtFloat(layer.Z)}}
			if layer.Path != "" {
				attrs = append(attrs, attr{"path", layer.Path})
			}
			x.empty("layer", attrs...)
		}
		for _, ref := range r.Refs {
			attrs := []attr{{"volumetricstackid", fmtUint(ref.StackID)}}
			if ref.Path != "" {
				attrs = append(attrs, attr{"path", ref.Path})
			}
			x.empty("volumetricref", attrs...)
		}
		x.end("volumetricstack")
	case *mesh3mf.Displacement2D:
		attrs := []attr{{"id", fmtUint(r.ID)}, {"path", r.Path}}
		if r.Channel != mesh3mf.ChannelG {
			attrs = append(attrs, attr{"channel", r.Channel.String()})
		}
		if r.TileStyle != mesh3mf.TileWrap {
			attrs = append(attrs, attr{"tilestyle", r.TileStyle.String()})
		}
		if r.Filter != mesh3mf.FilterLinear {
			attrs = append(attrs, attr{"filter", r.Filter.String()})
		}
		attrs = append(attrs, attr{"height", fmtFloat(r.Height)})
		if r.Offset != 0 {
			attrs = append(attrs, attr{"offset", fmtFloat(r.Offset)})
		}
		x.empty("displacement2d", attrs...)
	}
}

func writeSlice(x *xmlWriter, s *mesh3mf.Slice) {
	x.start("slice", attr{"ztop", fmtFloat(s.TopZ)})
	if len(s.Vertices) > 0 {
		x.start("vertices")
		for _, v := range s.Vertices {
			x.empty("vertex", attr{"x", fmtFloat(v[0])}, attr{"y", fmtFloat(v[1])})
		}
		x.end("vertices")
	}
	for _, p := range s.Polygons {
		x.start("polygon", attr{"start", fmtUint(p.StartV)})
		for _, seg := range p.Segments {
			attrs := []attr{{"v2", fmtUint(seg.V2)}}
			if seg.PID != 0 {
				attrs = append(attrs, attr{"pid", fmtUint(seg.PID)})
			}
			if seg.HasP {
				attrs = append(attrs, attr{"p1", fmtUint(seg.P1)})
				if seg.P2 != seg.P1 {
					attrs = append(attrs, attr{"p2", fmtUint(seg.P2)})
				}
			}
			x.empty("segment", attrs...)
		}
		x.end("polygon")
	}
	x.end("slice")
}

func writeObject(x *xmlWriter, o *mesh3mf.Object) {
	attrs := []attr{{"id", fmtUint(o.ID)}}
	if o.ObjectType != mesh3mf.ObjectTypeModel {
		attrs = append(attrs, attr{"type", o.ObjectType.String()})
	}
	if o.Name != "" {
		attrs = append(attrs, attr{"name", o.Name})
	}
	if o.PartNumber != "" {
		attrs = append(attrs, attr{"partnumber", o.PartNumber})
	}
	if o.Thumbnail != "" {
		attrs = append(attrs, attr{"thumbnail", o.Thumbnail})
	}
	if o.UUID != "" {
		attrs = append(attrs, attr{"uuid", o.UUID})
	}
	if o.PID != 0 {
		attrs = append(attrs, attr{"pid", fmtUint(o.PID)})
		attrs = append(attrs, attr{"pindex", fmtUint(o.PIndex)})
	}
	switch g := o.Geometry.(type) {
	case mesh3mf.SliceStackRef:
		attrs = append(attrs, attr{"slicestackid", fmtUint(uint32(g))})
		x.empty("object", attrs...)
		return
	case mesh3mf.VolumetricStackRef:
		attrs = append(attrs, attr{"volumetricstackid", fmtUint(uint32(g))})
		x.empty("object", attrs...)
		return
	case nil:
		x.empty("object", attrs...)
		return
	}
	x.start("object", attrs...)
	switch g := o.Geometry.(type) {
	case *mesh3mf.Mesh:
		writeMesh(x, g)
	case *mesh3mf.Components:
		x.start("components")
		for _, c := range g.Components {
			cattrs := []attr{{"objectid", fmtUint(c.ObjectID)}}
			if c.HasTransform() {
				cattrs = append(cattrs, attr{"transform", FormatMatrix(c.Transform)})
			}
			if c.Path != "" {
				cattrs = append(cattrs, attr{"path", c.Path})
			}
			if c.UUID != "" {
				cattrs = append(cattrs, attr{"uuid", c.UUID})
			}
			x.empty("component", cattrs...)
		}
		x.end("components")
	case *mesh3mf.BooleanShape:
		writeBooleanShape(x, g)
	case *mesh3mf.DisplacementMesh:
		writeDisplacementMesh(x, g)
	}
	x.end("object")
}

func writeMesh(x *xmlWriter, m *mesh3mf.Mesh) {
	x.start("mesh")
	x.start("vertices")
	for _, v := range m.Vertices {
		x.empty("vertex",
			attr{"x", fmtFloat(v[0])},
			attr{"y", fmtFloat(v[1])},
			attr{"z", fmtFloat(v[2])})
	}
	x.end("vertices")
	x.start("triangles")
	for i := range m.Triangles {
		t := &m.Triangles[i]
		attrs := []attr{
			{"v1", fmtUint(t.Indices[0])},
			{"v2", fmtUint(t.Indices[1])},
			{"v3", fmtUint(t.Indices[2])},
		}
		if t.PID != 0 {
			attrs = append(attrs, attr{"pid", fmtUint(t.PID)})
		}
		if t.HasPIndices {
			attrs = append(attrs, attr{"p1", fmtUint(t.PIndices[0])})
			if t.PIndices[1] != t.PIndices[0] || t.PIndices[2] != t.PIndices[0] {
				attrs = append(attrs, attr{"p2", fmtUint(t.PIndices[1])})
				attrs = append(attrs, attr{"p3", fmtUint(t.PIndices[2])})
			}
		}
		x.empty("triangle", attrs...)
	}
	x.end("triangles")
	if m.BeamLattice != nil {
		writeBeamLattice(x, m.BeamLattice)
	}
	x.end("mesh")
}

func writeBeamLattice(x *xmlWriter, bl *mesh3mf.BeamLattice) {
	attrs := []attr{
		{"minlength", fmtFloat(bl.MinLength)},
		{"precision", fmtFloat(bl.Precision)},
	}
	if bl.ClipMode != mesh3mf.ClipNone {
		attrs = append(attrs, attr{"clippingmode", bl.ClipMode.String()})
	}
	x.start("beamlattice", attrs...)
	if len(bl.Beams) > 0 {
		x.start("beams")
		for _, b := range bl.Beams {
			battrs := []attr{
				{"v1", fmtUint(b.Indices[0])},
				{"v2", fmtUint(b.Indices[1])},
				{"r1", fmtFloat(b.Radius[0])},
			}
			if b.Radius[1] != b.Radius[0] {
				battrs = append(battrs, attr{"r2", fmtFloat(b.Radius[1])})
			}
			if b.HasP {
				battrs = append(battrs, attr{"p1", fmtUint(b.P1)})
				if b.P2 != b.P1 {
					battrs = append(battrs, attr{"p2", fmtUint(b.P2)})
				}
			}
			if b.CapMode != mesh3mf.CapModeSphere {
				battrs = append(battrs, attr{"cap", b.CapMode.String()})
			}
			x.empty("beam", battrs...)
		}
		x.end("beams")
	}
	if len(bl.BeamSets) > 0 {
		x.start("beamsets")
		for _, set := range bl.BeamSets {
			var sattrs []attr
			if set.Name != "" {
				sattrs = append(sattrs, attr{"name", set.Name})
			}
			if set.Identifier != "" {
				sattrs = append(sattrs, attr{"identifier", set.Identifier})
			}
			x.start("beamset", sattrs...)
			for _, ref := range set.Refs {
				x.empty("ref", attr{"index", fmtUint(ref)})
			}
			x.end("beamset")
		}
		x.end("beamsets")
	}
	x.end("beamlattice")
}

func writeBooleanShape(x *xmlWriter, bs *mesh3mf.BooleanShape) {
	attrs := []attr{{"objectid", fmtUint(bs.BaseObjectID)}}
	if bs.Transform != (mesh3mf.Matrix{}) && bs.Transform != mesh3mf.Identity() {
		attrs = append(attrs, attr{"transform", FormatMatrix(bs.Transform)})
	}
	if bs.Path != "" {
		attrs = append(attrs, attr{"path", bs.Path})
	}
	x.start("booleanshape", attrs...)
	for _, op := range bs.Operations {
		oattrs := []attr{{"operation", op.Operation.String()}, {"objectid", fmtUint(op.ObjectID)}}
		if op.Transform != (mesh3mf.Matrix{}) && op.Transform != mesh3mf.Identity() {
			oattrs = append(oattrs, attr{"transform", FormatMatrix(op.Transform)})
		}
		if op.Path != "" {
			oattrs = append(oattrs, attr{"path", op.Path})
		}
		x.empty("boolean", oattrs...)
	}
	x.end("booleanshape")
}

func writeDisplacementMesh(x *xmlWriter, dm *mesh3mf.DisplacementMesh) {
	x.start("displacementmesh")
	x.start("vertices")
	for _, v := range dm.Vertices {
		x.empty("vertex",
			attr{"x", fmtFloat(v[0])},
			attr{"y", fmtFloat(v[1])},
			attr{"z", fmtFloat(v[2])})
	}
	x.end("vertices")
	x.start("triangles")
	for i := range dm.Triangles {
		t := &dm.Triangles[i]
		attrs := []attr{
			{"v1", fmtUint(t.Indices[0])},
			{"v2", fmtUint(t.Indices[1])},
			{"v3", fmtUint(t.Indices[2])},
		}
		if t.HasDIndices {
			attrs = append(attrs, attr{"d1", fmtUint(t.DIndices[0])})
			if t.DIndices[1] != t.DIndices[0] || t.DIndices[2] != t.DIndices[0] {
				attrs = append(attrs, attr{"d2", fmtUint(t.DIndices[1])})
				attrs = append(attrs, attr{"d3", fmtUint(t.DIndices[2])})
			}
		}
		if t.PID != 0 {
			attrs = append(attrs, attr{"pid", fmtUint(t.PID)})
		}
		if t.HasPIndices {
			attrs = append(attrs, attr{"p1", fmtUint(t.PIndices[0])})
			if t.PIndices[1] != t.PIndices[0] || t.PIndices[2] != t.PIndices[0] {
				attrs = append(attrs, attr{"p2", fmtUint(t.PIndices[1])})
				attrs = append(attrs, attr{"p3", fmtUint(t.PIndices[2])})
			}
		}
		x.empty("triangle", attrs...)
	}
	x.end("triangles")
	x.start("normvectors")
	for _, n := range dm.Normals {
		x.empty("normvector",
			attr{"nx", fmtFloat(n[0])},
			attr{"ny", fmtFloat(n[1])},
			attr{"nz", fmtFloat(n[2])})
	}
	x.end("normvectors")
	if len(dm.Gradients) > 0 {
		x.start("disp2dgroups")
		x.start("disp2dgroup")
		for _, g := range dm.Gradients {
			x.empty("gradient", attr{"gu", fmtFloat(g[0])}, attr{"gv", fmtFloat(g[1])})
		}
		x.end("disp2dgroup")
		x.end("disp2dgroups")
	}
	x.end("displacementmesh")
}

func joinUints(vs []uint32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmtUint(v)
	}
	return strings.Join(parts, " ")
}

func joinFloats(vs []float32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = fmtFloat(v)
	}
	return strings.Join(parts, " ")
}
