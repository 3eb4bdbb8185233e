package io3mf

import (
	"strings"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// RootPath is the sentinel resolver path denoting the already-parsed
// start part.
const RootPath = "ROOT"

// PartResolver lazily loads and caches the models of sub-parts
// referenced by component and build-item paths. Cache entries are
// immutable once inserted and never evicted.
type PartResolver struct {
	archive  container.ArchiveReader
	rootPath string
	models   map[string]*mesh3mf.Model
}

// NewPartResolver builds a resolver over an archive whose start part
// is already parsed. rootPath may be empty when unknown; the default
// model path is then assumed.
func NewPartResolver(archive container.ArchiveReader, root *mesh3mf.Model, rootPath string) *PartResolver {
	if rootPath == "" {
		rootPath = strings.TrimPrefix(mesh3mf.DefaultModelPath, "/")
	}
	return &PartResolver{
		archive:  archive,
		rootPath: strings.TrimPrefix(rootPath, "/"),
		models:   map[string]*mesh3mf.Model{RootPath: root},
	}
}

// normalize maps the many spellings of the root part to the sentinel.
func (r *PartResolver) normalize(path string) string {
	p := strings.TrimPrefix(path, "/")
	if p == "" || p == RootPath || strings.EqualFold(p, r.rootPath) {
		return RootPath
	}
	return p
}

// Root returns the start-part model.
func (r *PartResolver) Root() *mesh3mf.Model {
	return r.models[RootPath]
}

// ResolveObject returns the object with the given ID from the part at
// path, parsing the part on first request. ok is false when the part
// parses but holds no such object.
func (r *PartResolver) ResolveObject(id uint32, path string) (*mesh3mf.Model, *mesh3mf.Object, bool, error) {
	part := r.normalize(path)
	model, cached := r.models[part]
	if !cached {
		if !r.archive.EntryExists(part) {
			return nil, nil, false, specerr.InvalidStructuref("model part %s not in package", part)
		}
		data, err := r.archive.ReadEntry(part)
		if err != nil {
			return nil, nil, false, err
		}
		if model, err = ParseModel(data); err != nil {
			return nil, nil, false, err
		}
		model.Path = "/" + part
		r.models[part] = model
	}
	obj, ok := model.Resources.FindObject(id)
	if !ok {
		return model, nil, false, nil
	}
	return model, obj, true, nil
}
