package io3mf

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/go-test/deep"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mesh3mf "github.com/solidforge/mesh3mf"
)

// richModel exercises every resource kind the writer knows.
func richModel() *mesh3mf.Model {
	m := &mesh3mf.Model{
		Units:    mesh3mf.UnitCentimeter,
		Language: "en-US",
		Metadata: []mesh3mf.Metadata{
			{Name: "Title", Value: "sample"},
			{Name: "Application", Value: "mesh3mf tests"},
		},
	}
	m.Resources.Assets = []mesh3mf.Asset{
		&mesh3mf.BaseMaterials{ID: 5, Materials: []mesh3mf.Base{
			{Name: "Red", Color: rgba(0xff, 0, 0, 0xff)},
			{Name: "Glass", Color: rgba(0x10, 0x20, 0x30, 0x80)},
		}},
		&mesh3mf.ColorGroup{ID: 6, Colors: []rgbaT{rgba(0, 0xff, 0, 0xff)}},
		&mesh3mf.Texture2D{ID: 7, Path: "/3D/Textures/logo.png", ContentType: "image/png"},
		&mesh3mf.Texture2DGroup{ID: 8, TextureID: 7, Coords: []mesh3mf.TextureCoord{{0.25, 0.75}}},
		&mesh3mf.CompositeMaterials{ID: 9, MaterialID: 5, Indices: []uint32{0, 1},
			Composites: []mesh3mf.Composite{{Values: []float32{0.5, 0.5}}}},
		&mesh3mf.MultiProperties{ID: 10, PIDs: []uint32{5, 6},
			BlendMethods: []mesh3mf.BlendMethod{mesh3mf.BlendMultiply},
			Multis:       []mesh3mf.Multi{{PIndices: []uint32{0, 0}}}},
		&mesh3mf.SliceStack{ID: 11, BottomZ: 0.1, Slices: []*mesh3mf.Slice{{
			TopZ:     0.2,
			Vertices: []mesh3mf.Point2D{{0, 0}, {5, 0}, {5, 5}},
			Polygons: []mesh3mf.Polygon{{StartV: 0, Segments: []mesh3mf.Segment{
				{V2: 1}, {V2: 2}, {V2: 0},
			}}},
		}}},
		&mesh3mf.VolumetricStack{ID: 12, Layers: []mesh3mf.VolumetricLayer{
			{Z: 0.5, Path: "/3D/volume/a.png"},
		}},
		&mesh3mf.Displacement2D{ID: 13, Path: "/3D/Textures/h.png",
			Channel: mesh3mf.ChannelR, Height: 1.5, Offset: 0.25},
	}
	lattice := &mesh3mf.BeamLattice{
		MinLength: 0.1,
		Precision: 0.001,
		ClipMode:  mesh3mf.ClipInside,
		Beams: []mesh3mf.Beam{
			{Indices: [2]uint32{0, 1}, Radius: [2]float32{1, 1}},
			{Indices: [2]uint32{1, 2}, Radius: [2]float32{1, 2}, CapMode: mesh3mf.CapModeButt},
		},
		BeamSets: []mesh3mf.BeamSet{{Name: "struts", Refs: []uint32{0, 1}}},
	}
	m.Resources.Objects = []*mesh3mf.Object{
		{
			ID: 1, Name: "plate", PID: 5, PIndex: 1,
			UUID: "9d19b587-4f73-4546-9b72-0ee1f0f7ae51",
			Geometry: &mesh3mf.Mesh{
				Vertices: []mesh3mf.Point3D{{0, 0, 0}, {10, 0, 0}, {10, 10, 0}, {0, 10, 0}},
				Triangles: []mesh3mf.Triangle{
					{Indices: [3]uint32{0, 1, 2}, PID: 5, PIndices: [3]uint32{0, 0, 0}, HasPIndices: true},
					{Indices: [3]uint32{0, 2, 3}},
				},
				BeamLattice: lattice,
			},
		},
		{
			ID: 2, ObjectType: mesh3mf.ObjectTypeSupport,
			Geometry: &mesh3mf.Components{Components: []*mesh3mf.Component{{
				ObjectID:  1,
				Transform: mesh3mf.Matrix{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 30, 40, 50, 1},
			}}},
		},
		{ID: 3, Geometry: mesh3mf.SliceStackRef(11)},
		{ID: 4, Geometry: &mesh3mf.BooleanShape{
			BaseObjectID: 1,
			Transform:    mesh3mf.Identity(),
			Operations: []mesh3mf.BooleanOperation{{
				Operation: mesh3mf.BooleanDifference,
				ObjectID:  1,
				Transform: mesh3mf.Matrix{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 5, 0, 0, 1},
			}},
		}},
		{ID: 14, Geometry: &mesh3mf.DisplacementMesh{
			Vertices:  []mesh3mf.Point3D{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
			Triangles: []mesh3mf.DisplacementTriangle{{Indices: [3]uint32{0, 1, 2}, DIndices: [3]uint32{0, 1, 2}, HasDIndices: true}},
			Normals:   []mesh3mf.NormVector{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
			Gradients: []mesh3mf.GradientVector{{1, 0}, {0, 1}, {1, 1}},
		}},
	}
	m.Build.Items = []*mesh3mf.Item{
		{ObjectID: 1, Transform: mesh3mf.Identity()},
		{
			ObjectID:   2,
			Transform:  mesh3mf.Matrix{0, 1, 0, 0, -1, 0, 0, 0, 0, 0, 1, 0, 1, 2, 3, 1},
			PartNumber: "pn-7",
			UUID:       "e22b88c2-bc27-4040-ab39-4b9d74e15e1c",
		},
	}
	return m
}

func TestWriteParseRoundTrip(t *testing.T) {
	want := richModel()
	var buf bytes.Buffer
	require.NoError(t, WriteModelXML(&buf, want))

	got, err := ParseModel(buf.Bytes())
	require.NoError(t, err)
	if diff := deep.Equal(got, want); diff != nil {
		t.Errorf("round trip diff: %v", diff)
	}
}

func TestWriteStableOutput(t *testing.T) {
	m := richModel()
	var a, b bytes.Buffer
	require.NoError(t, WriteModelXML(&a, m))
	require.NoError(t, WriteModelXML(&b, m))
	assert.Equal(t, a.String(), b.String())
}

func TestWriteElidesDefaults(t *testing.T) {
	m := minimalModel()
	var buf bytes.Buffer
	require.NoError(t, WriteModelXML(&buf, m))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n"))
	assert.NotContains(t, out, "transform=")
	assert.NotContains(t, out, `type="model"`)
	assert.Contains(t, out, `unit="millimeter"`)
	assert.Contains(t, out, "  <resources>\n")
}

func TestFormatMatrix(t *testing.T) {
	assert.Equal(t, "1 0 0 0 1 0 0 0 1 0 0 0", FormatMatrix(mesh3mf.Identity()))
	m := mesh3mf.NewMatrix([12]float32{1, 0, 0, 0, 1, 0, 0, 0, 1, 30.5, -4, 0.125})
	assert.Equal(t, "1 0 0 0 1 0 0 0 1 30.5 -4 0.125", FormatMatrix(m))

	parsed, err := ParseMatrix(FormatMatrix(m))
	require.NoError(t, err)
	assert.Equal(t, m, parsed)
}

type rgbaT = color.RGBA

func rgba(r, g, b, a uint8) rgbaT { return rgbaT{R: r, G: g, B: b, A: a} }
