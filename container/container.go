// Package container reads and writes the OPC (Open Packaging
// Convention) archive that carries a 3MF document: a ZIP file plus
// relationship and content-type metadata parts.
package container

import (
	"archive/zip"
	"io"
	"path"
	"strings"

	"github.com/qmuntal/opc"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// ArchiveReader is the capability the rest of the module consumes to
// read raw package entries.
type ArchiveReader interface {
	ReadEntry(name string) ([]byte, error)
	EntryExists(name string) bool
	ListEntries() []string
}

// ArchiveWriter is the capability used to add parts to a package
// under construction.
type ArchiveWriter interface {
	WriteEntry(name string, data []byte) error
}

// Relationship is an OPC relationship. Target keeps its leading
// slash; TargetMode is empty for internal targets.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// A Reader exposes a 3MF package: raw ZIP entries plus the parsed
// relationship graph.
type Reader struct {
	zr  *zip.Reader
	pkg *opc.Reader
}

// NewReader opens a package from a seekable byte source.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, specerr.Iof(err, "not a ZIP archive")
	}
	pkg, err := opc.NewReader(r, size)
	if err != nil {
		return nil, specerr.InvalidStructuref("not a valid OPC package: %v", err)
	}
	return &Reader{zr: zr, pkg: pkg}, nil
}

// canonical strips the leading slash so lookups accept both forms.
func canonical(name string) string {
	return strings.TrimPrefix(name, "/")
}

// ReadEntry returns the raw bytes of the named entry.
func (r *Reader) ReadEntry(name string) ([]byte, error) {
	name = canonical(name)
	for _, f := range r.zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil, specerr.Iof(err, "open entry %s", name)
			}
			defer rc.Close()
			data, err := io.ReadAll(rc)
			if err != nil {
				return nil, specerr.Iof(err, "read entry %s", name)
			}
			return data, nil
		}
	}
	return nil, specerr.NotFoundf("entry %s not in package", name)
}

// EntryExists reports whether the named entry is present.
func (r *Reader) EntryExists(name string) bool {
	name = canonical(name)
	for _, f := range r.zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// ListEntries returns every entry name, without leading slashes.
func (r *Reader) ListEntries() []string {
	names := make([]string, 0, len(r.zr.File))
	for _, f := range r.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Relationships returns the package root relationships.
func (r *Reader) Relationships() []Relationship {
	return fromOPCRels(r.pkg.Relationships)
}

// PartRelationships returns the relationships attached to the named
// part, or nil when the part has none.
func (r *Reader) PartRelationships(name string) []Relationship {
	want := "/" + canonical(name)
	for _, f := range r.pkg.Files {
		if f.Name == want {
			return fromOPCRels(f.Relationships)
		}
	}
	return nil
}

func fromOPCRels(rels []*opc.Relationship) []Relationship {
	if len(rels) == 0 {
		return nil
	}
	out := make([]Relationship, 0, len(rels))
	for _, rel := range rels {
		cr := Relationship{ID: rel.ID, Type: rel.Type, Target: rel.TargetURI}
		if rel.TargetMode == opc.ModeExternal {
			cr.TargetMode = "External"
		}
		out = append(out, cr)
	}
	return out
}

func toOPCRels(rels []Relationship) []*opc.Relationship {
	out := make([]*opc.Relationship, 0, len(rels))
	for _, rel := range rels {
		or := &opc.Relationship{ID: rel.ID, Type: rel.Type, TargetURI: rel.Target}
		if strings.EqualFold(rel.TargetMode, "External") {
			or.TargetMode = opc.ModeExternal
		}
		out = append(out, or)
	}
	return out
}

// A Writer assembles a package. Parts are written in call order with
// deflate compression; content-type defaults and overrides plus every
// relationship file are emitted when Close is called.
type Writer struct {
	w *opc.Writer
}

// NewWriter returns a package writer emitting to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: opc.NewWriter(w)}
}

// SetRootRelationships replaces the package root relationships.
func (w *Writer) SetRootRelationships(rels []Relationship) {
	w.w.Relationships = toOPCRels(rels)
}

// WritePart adds a part with an explicit content type and optional
// part-level relationships.
func (w *Writer) WritePart(name, contentType string, data []byte, rels []Relationship) error {
	part := &opc.Part{
		Name:          "/" + canonical(name),
		ContentType:   contentType,
		Relationships: toOPCRels(rels),
	}
	pw, err := w.w.CreatePart(part, opc.CompressionNormal)
	if err != nil {
		return specerr.Iof(err, "create part %s", name)
	}
	if _, err := pw.Write(data); err != nil {
		return specerr.Iof(err, "write part %s", name)
	}
	return nil
}

// WriteEntry adds a part inferring its content type from the file
// extension. Unknown extensions get the generic byte-stream type,
// which the container records as a content-type override.
func (w *Writer) WriteEntry(name string, data []byte) error {
	return w.WritePart(name, ContentTypeOf(name), data, nil)
}

// Close finalizes the content types, relationship parts and the ZIP
// central directory.
func (w *Writer) Close() error {
	if err := w.w.Close(); err != nil {
		return specerr.Iof(err, "finalize package")
	}
	return nil
}

// ContentTypeOf maps a part name to its content type by extension.
func ContentTypeOf(name string) string {
	switch strings.ToLower(strings.TrimPrefix(path.Ext(name), ".")) {
	case "rels":
		return "application/vnd.openxmlformats-package.relationships+xml"
	case "model":
		return "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	case "png":
		return "image/png"
	case "xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}
