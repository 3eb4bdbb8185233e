package mesh3mf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffEqualModels(t *testing.T) {
	a := &Model{}
	a.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(10)})
	a.Build.Items = []*Item{{ObjectID: 1}}
	b := &Model{}
	b.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(10)})
	b.Build.Items = []*Item{{ObjectID: 1}}
	assert.Empty(t, Diff(a, b))
}

func TestDiffDetectsMeshContentChange(t *testing.T) {
	a := &Model{}
	a.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(10)})
	b := &Model{}
	b.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(11)})
	diffs := Diff(a, b)
	require.Len(t, diffs, 1)
	assert.Equal(t, "resource", diffs[0].Kind)
	assert.Contains(t, diffs[0].Detail, "mesh content")
}

func TestDiffMetadataAndBuild(t *testing.T) {
	a := &Model{
		Metadata: []Metadata{{Name: "Title", Value: "one"}, {Name: "Gone", Value: "x"}},
	}
	a.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(10)})
	a.Build.Items = []*Item{{ObjectID: 1}}

	b := &Model{
		Metadata: []Metadata{{Name: "Title", Value: "two"}, {Name: "New", Value: "y"}},
	}
	b.Resources.AddObject(&Object{ID: 1, Geometry: cubeMesh(10)})
	b.Resources.AddObject(&Object{ID: 2, Geometry: SliceStackRef(9)})
	b.Build.Items = []*Item{{ObjectID: 1}, {ObjectID: 1}}

	diffs := Diff(a, b)
	kinds := map[string]int{}
	for _, d := range diffs {
		kinds[d.Kind]++
	}
	assert.Equal(t, 3, kinds["metadata"], "%v", diffs)
	assert.Equal(t, 1, kinds["resource"], "%v", diffs)
	assert.Equal(t, 1, kinds["build"], "%v", diffs)
}

func TestMeshDigestSensitivity(t *testing.T) {
	a, b := cubeMesh(10), cubeMesh(10)
	assert.Equal(t, MeshDigest(a), MeshDigest(b))
	b.Vertices[0][2] = 0.001
	assert.NotEqual(t, MeshDigest(a), MeshDigest(b))

	c := cubeMesh(10)
	c.Triangles[3].PID = 7
	assert.NotEqual(t, MeshDigest(a), MeshDigest(c))
}
