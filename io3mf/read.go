package io3mf

import (
	"io"
	"os"
	"path"
	"strings"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
)

// Reader decodes a full 3MF package into a Model.
type Reader struct {
	cr *container.Reader
}

// NewReader returns a Reader over a seekable byte source.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	cr, err := container.NewReader(r, size)
	if err != nil {
		return nil, err
	}
	return &Reader{cr: cr}, nil
}

// ReadCloser wraps a Reader that owns its file handle.
type ReadCloser struct {
	f *os.File
	*Reader
}

// OpenReader opens the 3MF file specified by name.
func OpenReader(name string) (*ReadCloser, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	r, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	return &ReadCloser{f: f, Reader: r}, nil
}

// Close closes the underlying file.
func (r *ReadCloser) Close() error { return r.f.Close() }

// Container exposes the underlying archive for stats computation and
// part resolution.
func (r *Reader) Container() *container.Reader { return r.cr }

// Decode locates the start part, parses it and every child model
// part, and populates attachments, the thumbnail path and preserved
// relationships.
func (r *Reader) Decode() (*mesh3mf.Model, error) {
	modelPath, err := container.FindModelPath(r.cr)
	if err != nil {
		return nil, err
	}
	data, err := r.cr.ReadEntry(modelPath)
	if err != nil {
		return nil, err
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, err
	}
	m.Path = "/" + modelPath
	m.RootRelationships = toModelRels(r.cr.Relationships())
	for _, rel := range m.RootRelationships {
		if rel.Type == mesh3mf.RelTypeThumbnail {
			m.Thumbnail = rel.Target
		}
	}

	for _, name := range r.cr.ListEntries() {
		switch {
		case name == modelPath || name == "[Content_Types].xml":
			continue
		case strings.HasSuffix(name, ".rels"):
			part := partOfRels(name)
			if part == "" {
				continue
			}
			if rels := r.cr.PartRelationships(part); len(rels) > 0 {
				if m.ExistingRelationships == nil {
					m.ExistingRelationships = map[string][]mesh3mf.Relationship{}
				}
				m.ExistingRelationships[part] = toModelRels(rels)
			}
		case strings.HasSuffix(name, ".model"):
			childData, err := r.cr.ReadEntry(name)
			if err != nil {
				return nil, err
			}
			child, err := ParseModel(childData)
			if err != nil {
				return nil, err
			}
			child.Path = "/" + name
			if m.Childs == nil {
				m.Childs = map[string]*mesh3mf.Model{}
			}
			m.Childs["/"+name] = child
		default:
			blob, err := r.cr.ReadEntry(name)
			if err != nil {
				return nil, err
			}
			if m.Attachments == nil {
				m.Attachments = map[string][]byte{}
			}
			m.Attachments[name] = blob
		}
	}
	return m, nil
}

// partOfRels maps "3D/_rels/3dmodel.model.rels" to "3D/3dmodel.model".
// The package root relationships file maps to no part.
func partOfRels(name string) string {
	dir, file := path.Split(name)
	if !strings.HasSuffix(dir, "_rels/") || !strings.HasSuffix(file, ".rels") {
		return ""
	}
	base := strings.TrimSuffix(file, ".rels")
	if base == "" {
		return ""
	}
	parent := strings.TrimSuffix(dir, "_rels/")
	return parent + base
}

func toModelRels(rels []container.Relationship) []mesh3mf.Relationship {
	out := make([]mesh3mf.Relationship, 0, len(rels))
	for _, rel := range rels {
		out = append(out, mesh3mf.Relationship{
			ID: rel.ID, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode,
		})
	}
	return out
}

// ExistingRelationships on Model use the mesh3mf.Relationship type;
// WritePackage needs them as container values.
func toContainerRels(rels []mesh3mf.Relationship) []container.Relationship {
	out := make([]container.Relationship, 0, len(rels))
	for _, rel := range rels {
		out = append(out, container.Relationship{
			ID: rel.ID, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode,
		})
	}
	return out
}
