package container

import (
	"strings"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Relationship type URIs enforced by the locator.
const (
	relType3DModel     = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
	relTypeThumbnail   = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	relTypePrintTicket = "http://schemas.microsoft.com/3dmanufacturing/2013/01/printticket"
)

// FindModelPath locates the start part from the package root
// relationships and enforces the containment rules: exactly one 3D
// model relationship, no external targets, at most one print ticket,
// and every referenced thumbnail part present. The returned path has
// no leading slash.
func FindModelPath(r *Reader) (string, error) {
	if !r.EntryExists("_rels/.rels") {
		return "", specerr.InvalidStructuref("missing _rels/.rels")
	}

	var (
		modelPath        string
		modelCount       int
		printTicketCount int
	)
	for _, rel := range r.Relationships() {
		if strings.EqualFold(rel.TargetMode, "External") {
			return "", specerr.Validationf(
				"external relationships are not allowed at the package root, target %q", rel.Target)
		}
		switch rel.Type {
		case relType3DModel:
			modelCount++
			if modelCount > 1 {
				return "", specerr.Validationf(
					"multiple 3D model relationships found, only one start part is allowed")
			}
			modelPath = canonical(rel.Target)
		case relTypeThumbnail:
			thumb := canonical(rel.Target)
			if !r.EntryExists(thumb) {
				return "", specerr.Validationf(
					"thumbnail part %q referenced in relationships does not exist", thumb)
			}
		case relTypePrintTicket:
			printTicketCount++
			if printTicketCount > 1 {
				return "", specerr.Validationf(
					"multiple print ticket relationships found, only one is allowed")
			}
		}
	}
	if modelPath == "" {
		return "", specerr.InvalidStructuref("package has no 3D model relationship")
	}
	return modelPath, nil
}
