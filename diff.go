package mesh3mf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// MeshDigest returns a content hash of the mesh geometry: vertices,
// triangle indices and property references in order. Equal digests
// mean byte-identical geometry.
func MeshDigest(m *Mesh) uint64 {
	d := xxhash.New()
	var buf [12]byte
	for _, v := range m.Vertices {
		binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(v[0]))
		binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(v[1]))
		binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(v[2]))
		d.Write(buf[:])
	}
	for i := range m.Triangles {
		t := &m.Triangles[i]
		binary.LittleEndian.PutUint32(buf[0:], t.Indices[0])
		binary.LittleEndian.PutUint32(buf[4:], t.Indices[1])
		binary.LittleEndian.PutUint32(buf[8:], t.Indices[2])
		d.Write(buf[:])
		if t.PID != 0 || t.HasPIndices {
			binary.LittleEndian.PutUint32(buf[0:], t.PID)
			binary.LittleEndian.PutUint32(buf[4:], t.PIndices[0])
			binary.LittleEndian.PutUint32(buf[8:], t.PIndices[1])
			d.Write(buf[:])
			binary.LittleEndian.PutUint32(buf[0:], t.PIndices[2])
			d.Write(buf[:4])
		}
	}
	return d.Sum64()
}

// Difference is one entry of a model comparison.
type Difference struct {
	Kind    string // "metadata", "resource" or "build"
	Subject string
	Detail  string
}

func (d Difference) String() string {
	return fmt.Sprintf("%s %s: %s", d.Kind, d.Subject, d.Detail)
}

// Diff compares two models by resource ID and reports metadata,
// resource and build differences. Mesh changes are detected through
// content digests, so two meshes with equal counts but different
// coordinates still show up.
func Diff(a, b *Model) []Difference {
	var diffs []Difference

	seen := map[string]bool{}
	for _, md := range a.Metadata {
		seen[md.Name] = true
		if bv, ok := b.FindMetadata(md.Name); !ok {
			diffs = append(diffs, Difference{"metadata", md.Name, "removed"})
		} else if bv != md.Value {
			diffs = append(diffs, Difference{"metadata", md.Name, fmt.Sprintf("%q -> %q", md.Value, bv)})
		}
	}
	for _, md := range b.Metadata {
		if !seen[md.Name] {
			diffs = append(diffs, Difference{"metadata", md.Name, "added"})
		}
	}

	for _, oa := range a.Resources.Objects {
		ob, ok := b.Resources.FindObject(oa.ID)
		subject := fmt.Sprintf("object %d", oa.ID)
		if !ok {
			diffs = append(diffs, Difference{"resource", subject, "removed"})
			continue
		}
		ta, tb := geometryKind(oa.Geometry), geometryKind(ob.Geometry)
		if ta != tb {
			diffs = append(diffs, Difference{"resource", subject, fmt.Sprintf("geometry changed: %s -> %s", ta, tb)})
			continue
		}
		ma, aok := oa.Geometry.(*Mesh)
		mb, bok := ob.Geometry.(*Mesh)
		if aok && bok && MeshDigest(ma) != MeshDigest(mb) {
			diffs = append(diffs, Difference{"resource", subject, "mesh content changed"})
		}
	}
	for _, ob := range b.Resources.Objects {
		if _, ok := a.Resources.FindObject(ob.ID); !ok {
			diffs = append(diffs, Difference{"resource", fmt.Sprintf("object %d", ob.ID), "added"})
		}
	}

	counts := func(m *Model) map[uint32]int {
		c := make(map[uint32]int)
		for _, it := range m.Build.Items {
			c[it.ObjectID]++
		}
		return c
	}
	ca, cb := counts(a), counts(b)
	for id, n := range ca {
		switch {
		case cb[id] == 0:
			diffs = append(diffs, Difference{"build", fmt.Sprintf("object %d", id), "removed"})
		case cb[id] != n:
			diffs = append(diffs, Difference{"build", fmt.Sprintf("object %d", id), fmt.Sprintf("instances %d -> %d", n, cb[id])})
		}
	}
	for id := range cb {
		if ca[id] == 0 {
			diffs = append(diffs, Difference{"build", fmt.Sprintf("object %d", id), "added"})
		}
	}
	return diffs
}

func geometryKind(g Geometry) string {
	switch g.(type) {
	case *Mesh:
		return "mesh"
	case *Components:
		return "components"
	case SliceStackRef:
		return "slicestack"
	case VolumetricStackRef:
		return "volumetricstack"
	case *BooleanShape:
		return "booleanshape"
	case *DisplacementMesh:
		return "displacementmesh"
	default:
		return "none"
	}
}
