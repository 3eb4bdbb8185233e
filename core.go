// Package mesh3mf holds the in-memory representation of a 3MF document:
// the model root, its resource graph, build instructions and geometry.
package mesh3mf

import (
	"sort"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Units define the allowed model units.
type Units uint8

// Supported units.
const (
	UnitMillimeter Units = iota
	UnitMicrometer
	UnitCentimeter
	UnitInch
	UnitFoot
	UnitMeter
)

func (u Units) String() string {
	return map[Units]string{
		UnitMillimeter: "millimeter",
		UnitMicrometer: "micron",
		UnitCentimeter: "centimeter",
		UnitInch:       "inch",
		UnitFoot:       "foot",
		UnitMeter:      "meter",
	}[u]
}

// ScaleFactor returns the factor converting this unit to meters.
func (u Units) ScaleFactor() float64 {
	return map[Units]float64{
		UnitMillimeter: 1e-3,
		UnitMicrometer: 1e-6,
		UnitCentimeter: 1e-2,
		UnitInch:       0.0254,
		UnitFoot:       0.3048,
		UnitMeter:      1,
	}[u]
}

// Convert converts a value expressed in u to the target unit.
func (u Units) Convert(value float64, target Units) float64 {
	if u == target {
		return value
	}
	return value * u.ScaleFactor() / target.ScaleFactor()
}

// NewUnits maps the XML attribute value to a unit. Unknown names
// report ok=false; callers fall back to millimeter.
func NewUnits(s string) (u Units, ok bool) {
	u, ok = map[string]Units{
		"millimeter": UnitMillimeter,
		"micron":     UnitMicrometer,
		"centimeter": UnitCentimeter,
		"inch":       UnitInch,
		"foot":       UnitFoot,
		"meter":      UnitMeter,
	}[s]
	return
}

// ObjectType defines the allowed object types.
type ObjectType int8

// Supported object types.
const (
	ObjectTypeModel ObjectType = iota
	ObjectTypeOther
	ObjectTypeSupport
	ObjectTypeSolidSupport
	ObjectTypeSurface
)

func (o ObjectType) String() string {
	return map[ObjectType]string{
		ObjectTypeModel:        "model",
		ObjectTypeOther:        "other",
		ObjectTypeSupport:      "support",
		ObjectTypeSolidSupport: "solidsupport",
		ObjectTypeSurface:      "surface",
	}[o]
}

// NewObjectType maps the XML attribute value to an object type.
func NewObjectType(s string) (o ObjectType, ok bool) {
	o, ok = map[string]ObjectType{
		"model":        ObjectTypeModel,
		"other":        ObjectTypeOther,
		"support":      ObjectTypeSupport,
		"solidsupport": ObjectTypeSolidSupport,
		"surface":      ObjectTypeSurface,
	}[s]
	return
}

// RequiresManifold reports whether geometry of this type must be a
// closed manifold volume.
func (o ObjectType) RequiresManifold() bool {
	return o == ObjectTypeModel || o == ObjectTypeSolidSupport
}

// CanBeInBuild reports whether build items may reference this type.
func (o ObjectType) CanBeInBuild() bool {
	return o != ObjectTypeOther
}

// Asset is a non-object resource stored in a Resources collection.
type Asset interface {
	Identify() uint32
}

// Metadata is a single name/value entry of the model metadata.
// Entries keep document order.
type Metadata struct {
	Name  string
	Value string
}

// Relationship is an OPC relationship record. Target keeps its
// leading slash so a write cycle is byte-faithful.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// Build contains the ordered items to manufacture.
type Build struct {
	Items []*Item
}

// Item is a build item referencing an object resource.
type Item struct {
	ObjectID   uint32
	Transform  Matrix
	PartNumber string
	UUID       string
	Path       string
	Metadata   []Metadata
}

// HasTransform reports whether the transform differs from the identity.
func (it *Item) HasTransform() bool {
	return it.Transform != Matrix{} && it.Transform != Identity()
}

// Resources is the library of constituent pieces of the model.
// Objects and Assets each keep insertion order; resource IDs share a
// single namespace across both.
type Resources struct {
	Objects []*Object
	Assets  []Asset
}

// Exists reports whether id is taken by any object or asset.
func (rs *Resources) Exists(id uint32) bool {
	if _, ok := rs.FindObject(id); ok {
		return true
	}
	_, ok := rs.FindAsset(id)
	return ok
}

// FindObject returns the object with the target ID.
func (rs *Resources) FindObject(id uint32) (*Object, bool) {
	for _, o := range rs.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return nil, false
}

// FindAsset returns the asset with the target ID.
func (rs *Resources) FindAsset(id uint32) (Asset, bool) {
	for _, a := range rs.Assets {
		if a.Identify() == id {
			return a, true
		}
	}
	return nil, false
}

// AddObject appends an object, enforcing ID uniqueness across the
// whole collection.
func (rs *Resources) AddObject(o *Object) error {
	if rs.Exists(o.ID) {
		return specerr.Validationf("duplicate resource id %d", o.ID)
	}
	rs.Objects = append(rs.Objects, o)
	return nil
}

// AddAsset appends an asset, enforcing ID uniqueness across the
// whole collection.
func (rs *Resources) AddAsset(a Asset) error {
	if rs.Exists(a.Identify()) {
		return specerr.Validationf("duplicate resource id %d", a.Identify())
	}
	rs.Assets = append(rs.Assets, a)
	return nil
}

// UnusedID returns the lowest unused resource ID.
func (rs *Resources) UnusedID() uint32 {
	if len(rs.Assets) == 0 && len(rs.Objects) == 0 {
		return 1
	}
	ids := make([]int, len(rs.Assets)+len(rs.Objects)+1)
	ids[0] = 0
	for i, r := range rs.Assets {
		ids[i+1] = int(r.Identify())
	}
	for i, o := range rs.Objects {
		ids[len(rs.Assets)+i+1] = int(o.ID)
	}
	sort.Ints(ids)
	lowest := 0
	for i, id := range ids {
		if id != i {
			lowest = i
			break
		}
	}
	if lowest == 0 {
		lowest = ids[len(ids)-1] + 1
	}
	return uint32(lowest)
}

// A Model is an in-memory representation of a 3MF document.
//
// Attachments map archive paths to binary blobs; they are carried by
// the package, never serialized into the model XML. Childs hold the
// models of additional .model parts keyed by archive path.
// ExistingRelationships preserve per-part relationship files of parts
// this library does not manage, so a write cycle does not strip them.
type Model struct {
	Path                  string
	Language              string
	Units                 Units
	Thumbnail             string
	Metadata              []Metadata
	Resources             Resources
	Build                 Build
	Attachments           map[string][]byte
	Childs                map[string]*Model
	RootRelationships     []Relationship
	ExistingRelationships map[string][]Relationship
}

// PathOrDefault returns Path if not empty, else DefaultModelPath.
func (m *Model) PathOrDefault() string {
	if m.Path == "" {
		return DefaultModelPath
	}
	return m.Path
}

// FindResources returns the resource collection associated with path.
// An empty path addresses the root model.
func (m *Model) FindResources(path string) (*Resources, bool) {
	if path == "" || path == m.Path || (m.Path == "" && path == DefaultModelPath) {
		return &m.Resources, true
	}
	if child, ok := m.Childs[path]; ok {
		return &child.Resources, true
	}
	return nil, false
}

// FindObject returns the object with the target path and ID.
func (m *Model) FindObject(path string, id uint32) (*Object, bool) {
	if rs, ok := m.FindResources(path); ok {
		return rs.FindObject(id)
	}
	return nil, false
}

// FindMetadata returns the first metadata entry with the given name.
func (m *Model) FindMetadata(name string) (string, bool) {
	for _, md := range m.Metadata {
		if md.Name == name {
			return md.Value, true
		}
	}
	return "", false
}

// An Object is a reusable resource defining geometry.
type Object struct {
	ID         uint32
	Name       string
	PartNumber string
	UUID       string
	Thumbnail  string
	PID        uint32
	PIndex     uint32
	ObjectType ObjectType
	Geometry   Geometry
}

// Identify returns the unique ID of the resource.
func (o *Object) Identify() uint32 { return o.ID }

// Geometry is the content of an object. Exactly one concrete kind is
// present; consumers dispatch with a type switch.
type Geometry interface {
	isGeometry()
}

// Components is an assembly of other objects.
type Components struct {
	Components []*Component
}

func (*Components) isGeometry() {}

// A Component is a placed instance of another object.
type Component struct {
	ObjectID  uint32
	Path      string
	UUID      string
	Transform Matrix
}

// HasTransform reports whether the transform differs from the identity.
func (c *Component) HasTransform() bool {
	return c.Transform != Matrix{} && c.Transform != Identity()
}

// SliceStackRef makes an object's geometry a slice stack resource.
type SliceStackRef uint32

func (SliceStackRef) isGeometry() {}

// VolumetricStackRef makes an object's geometry a volumetric stack
// resource.
type VolumetricStackRef uint32

func (VolumetricStackRef) isGeometry() {}

const (
	// Namespace is the canonical 3MF core namespace.
	Namespace = "http://schemas.microsoft.com/3dmanufacturing/core/2015/02"
	// NamespaceMaterial is the materials and properties extension namespace.
	NamespaceMaterial = "http://schemas.microsoft.com/3dmanufacturing/material/2015/02"
	// NamespaceProduction is the production extension namespace.
	NamespaceProduction = "http://schemas.microsoft.com/3dmanufacturing/production/2015/06"
	// NamespaceSlice is the slice extension namespace.
	NamespaceSlice = "http://schemas.microsoft.com/3dmanufacturing/slice/2015/07"
	// NamespaceBeamLattice is the beam lattice extension namespace.
	NamespaceBeamLattice = "http://schemas.microsoft.com/3dmanufacturing/beamlattice/2017/02"
	// NamespaceVolumetric is the volumetric extension namespace.
	NamespaceVolumetric = "http://schemas.microsoft.com/3dmanufacturing/volumetric/2022/01"
	// NamespaceBoolean is the boolean operations extension namespace.
	NamespaceBoolean = "http://schemas.microsoft.com/3dmanufacturing/booleanoperations/2023/07"
	// NamespaceDisplacement is the displacement extension namespace.
	NamespaceDisplacement = "http://schemas.microsoft.com/3dmanufacturing/displacement/2023/10"
	// NamespaceSecureContent is the secure content extension namespace.
	NamespaceSecureContent = "http://schemas.microsoft.com/3dmanufacturing/securecontent/2019/04"

	// RelType3DModel is the canonical 3D model relationship type.
	RelType3DModel = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
	// RelTypeThumbnail is the canonical thumbnail relationship type.
	RelTypeThumbnail = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	// RelTypePrintTicket is the canonical print ticket relationship type.
	RelTypePrintTicket = "http://schemas.microsoft.com/3dmanufacturing/2013/01/printticket"
	// RelTypeTexture is the canonical 3D texture relationship type.
	RelTypeTexture = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dtexture"

	// DefaultModelPath is the recommended root model part name.
	DefaultModelPath = "/3D/3dmodel.model"
	// Default3DTexturesDir is the recommended directory for 3D textures.
	Default3DTexturesDir = "/3D/Textures/"
	// DefaultThumbnailPath is the recommended package thumbnail part name.
	DefaultThumbnailPath = "/Metadata/thumbnail.png"
	// DefaultKeyStorePath is the recommended keystore part name.
	DefaultKeyStorePath = "/Metadata/keystore.xml"

	// ContentType3DModel is the 3D model content type.
	ContentType3DModel = "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	// ContentTypeRels is the OPC relationships content type.
	ContentTypeRels = "application/vnd.openxmlformats-package.relationships+xml"
	// ContentTypePNG is the PNG content type.
	ContentTypePNG = "image/png"
)
