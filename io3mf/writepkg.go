package io3mf

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	mesh3mf "github.com/solidforge/mesh3mf"
	"github.com/solidforge/mesh3mf/container"
)

// WritePackage assembles a complete 3MF package: attachments, the
// root model part, child model parts, relationships and content
// types, in that order.
func WritePackage(w io.Writer, m *mesh3mf.Model) error {
	cw := container.NewWriter(w)
	modelPath := strings.TrimPrefix(m.PathOrDefault(), "/")

	attachmentPaths := make([]string, 0, len(m.Attachments))
	for p := range m.Attachments {
		attachmentPaths = append(attachmentPaths, p)
	}
	sort.Strings(attachmentPaths)
	for _, p := range attachmentPaths {
		name := strings.TrimPrefix(p, "/")
		if err := cw.WritePart(name, container.ContentTypeOf(name), m.Attachments[p], toContainerRels(m.ExistingRelationships[name])); err != nil {
			return err
		}
	}

	var xmlBuf bytes.Buffer
	if err := WriteModelXML(&xmlBuf, m); err != nil {
		return err
	}
	if err := cw.WritePart(modelPath, mesh3mf.ContentType3DModel, xmlBuf.Bytes(), modelRelationships(m, modelPath)); err != nil {
		return err
	}

	childPaths := make([]string, 0, len(m.Childs))
	for p := range m.Childs {
		childPaths = append(childPaths, p)
	}
	sort.Strings(childPaths)
	for _, p := range childPaths {
		name := strings.TrimPrefix(p, "/")
		var childBuf bytes.Buffer
		if err := WriteModelXML(&childBuf, m.Childs[p]); err != nil {
			return err
		}
		if err := cw.WritePart(name, mesh3mf.ContentType3DModel, childBuf.Bytes(), toContainerRels(m.ExistingRelationships[name])); err != nil {
			return err
		}
	}

	cw.SetRootRelationships(rootRelationships(m, modelPath))
	return cw.Close()
}

// rootRelationships synthesizes the single start-part relationship, a
// thumbnail relationship when the part is present, and carries over
// preserved root relationships of other types.
func rootRelationships(m *mesh3mf.Model, modelPath string) []container.Relationship {
	rels := []container.Relationship{{
		ID:     "rel0",
		Type:   mesh3mf.RelType3DModel,
		Target: "/" + modelPath,
	}}
	thumb := m.Thumbnail
	if thumb == "" {
		if _, ok := attachment(m, mesh3mf.DefaultThumbnailPath); ok {
			thumb = mesh3mf.DefaultThumbnailPath
		}
	}
	if thumb != "" {
		rels = append(rels, container.Relationship{
			ID:     "rel1",
			Type:   mesh3mf.RelTypeThumbnail,
			Target: thumb,
		})
	}
	for _, rel := range m.RootRelationships {
		if rel.Type == mesh3mf.RelType3DModel || rel.Type == mesh3mf.RelTypeThumbnail {
			continue
		}
		rels = append(rels, container.Relationship{
			ID: rel.ID, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode,
		})
	}
	return rels
}

// modelRelationships synthesizes texture relationships for
// attachments under 3D/Textures/ and re-emits preserved ones.
func modelRelationships(m *mesh3mf.Model, modelPath string) []container.Relationship {
	var rels []container.Relationship
	targets := map[string]bool{}
	for _, rel := range m.ExistingRelationships[modelPath] {
		rels = append(rels, container.Relationship{
			ID: rel.ID, Type: rel.Type, Target: rel.Target, TargetMode: rel.TargetMode,
		})
		targets[strings.TrimPrefix(rel.Target, "/")] = true
	}
	paths := make([]string, 0, len(m.Attachments))
	for p := range m.Attachments {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		name := strings.TrimPrefix(p, "/")
		if !strings.HasPrefix(name, strings.TrimPrefix(mesh3mf.Default3DTexturesDir, "/")) {
			continue
		}
		if targets[name] {
			continue
		}
		rels = append(rels, container.Relationship{
			ID:     fmt.Sprintf("rel-tex-%d", len(rels)),
			Type:   mesh3mf.RelTypeTexture,
			Target: "/" + name,
		})
	}
	return rels
}

func attachment(m *mesh3mf.Model, path string) ([]byte, bool) {
	if data, ok := m.Attachments[path]; ok {
		return data, true
	}
	data, ok := m.Attachments[strings.TrimPrefix(path, "/")]
	return data, ok
}
