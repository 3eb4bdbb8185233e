package validate

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	mesh3mf "github.com/solidforge/mesh3mf"
)

// ratioSumEpsilon bounds how far composite mixing ratios may drift
// from summing to one.
const ratioSumEpsilon = 1e-4

// validateStrict runs the Strict-level checks: nested-part unit
// consistency, metadata name uniqueness, UUID formats and composite
// ratio sums.
func validateStrict(m *mesh3mf.Model, r *Report) {
	seen := map[string]bool{}
	for _, md := range m.Metadata {
		if seen[md.Name] {
			r.AddError(CodeDuplicateMetadata, fmt.Sprintf("duplicate metadata name %q", md.Name))
		}
		seen[md.Name] = true
	}

	// The parser refuses duplicate IDs, but programmatically built
	// collections can still carry them.
	ids := map[uint32]bool{}
	flag := func(id uint32) {
		if ids[id] {
			r.AddError(CodeDuplicateResources, fmt.Sprintf("resource id %d is used more than once", id))
		}
		ids[id] = true
	}
	for _, o := range m.Resources.Objects {
		flag(o.ID)
	}
	for _, a := range m.Resources.Assets {
		flag(a.Identify())
	}

	for path, child := range m.Childs {
		if child.Units != m.Units {
			r.AddError(CodeUnitMismatch,
				fmt.Sprintf("part %s uses unit %q, root uses %q", path, child.Units, m.Units))
		}
	}

	for _, o := range m.Resources.Objects {
		checkUUID(r, o.UUID, fmt.Sprintf("object %d", o.ID))
		if comps, ok := o.Geometry.(*mesh3mf.Components); ok {
			for i, c := range comps.Components {
				checkUUID(r, c.UUID, fmt.Sprintf("component %d of object %d", i, o.ID))
			}
		}
	}
	for i, item := range m.Build.Items {
		checkUUID(r, item.UUID, fmt.Sprintf("build item %d", i))
	}

	for _, a := range m.Resources.Assets {
		if g, ok := a.(*mesh3mf.CompositeMaterials); ok {
			for i, c := range g.Composites {
				var sum float64
				for _, v := range c.Values {
					sum += float64(v)
				}
				if len(c.Values) > 0 && math.Abs(sum-1) > ratioSumEpsilon {
					r.AddError(CodeCompositeRatioSum,
						fmt.Sprintf("composite %d in group %d has ratios summing to %g", i, g.ID, sum))
				}
			}
		}
	}
}

func checkUUID(r *Report, value, context string) {
	if value == "" {
		return
	}
	if _, err := uuid.Parse(value); err != nil {
		r.AddError(CodeInvalidUUID, fmt.Sprintf("%s has malformed uuid %q", context, value))
	}
}
