package mesh3mf

import (
	"image/color"
	"strconv"
	"strings"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Base defines a single base material: a name plus a display color.
type Base struct {
	Name  string
	Color color.RGBA
}

// BaseMaterials is the base-material group resource.
type BaseMaterials struct {
	ID        uint32
	Materials []Base
}

// Len returns the materials count.
func (r *BaseMaterials) Len() int { return len(r.Materials) }

// Identify returns the unique ID of the resource.
func (r *BaseMaterials) Identify() uint32 { return r.ID }

// ColorGroup is the color group resource.
type ColorGroup struct {
	ID     uint32
	Colors []color.RGBA
}

// Len returns the color count.
func (r *ColorGroup) Len() int { return len(r.Colors) }

// Identify returns the unique ID of the resource.
func (r *ColorGroup) Identify() uint32 { return r.ID }

// Texture2D references a texture image part inside the package.
type Texture2D struct {
	ID          uint32
	Path        string
	ContentType string
}

// Identify returns the unique ID of the resource.
func (r *Texture2D) Identify() uint32 { return r.ID }

// TextureCoord is a UV coordinate into a texture.
type TextureCoord [2]float32

// U returns the u coordinate.
func (t TextureCoord) U() float32 { return t[0] }

// V returns the v coordinate.
func (t TextureCoord) V() float32 { return t[1] }

// Texture2DGroup is the texture coordinate group resource.
type Texture2DGroup struct {
	ID        uint32
	TextureID uint32
	Coords    []TextureCoord
}

// Len returns the coordinate count.
func (r *Texture2DGroup) Len() int { return len(r.Coords) }

// Identify returns the unique ID of the resource.
func (r *Texture2DGroup) Identify() uint32 { return r.ID }

// Composite is one mixing row of a composite materials resource.
// Values must sum to 1 and match the group's Indices length.
type Composite struct {
	Values []float32
}

// CompositeMaterials mixes base materials by ratio.
type CompositeMaterials struct {
	ID         uint32
	MaterialID uint32
	Indices    []uint32
	Composites []Composite
}

// Len returns the composite row count.
func (r *CompositeMaterials) Len() int { return len(r.Composites) }

// Identify returns the unique ID of the resource.
func (r *CompositeMaterials) Identify() uint32 { return r.ID }

// BlendMethod defines how two property layers combine.
type BlendMethod uint8

// Supported blend methods.
const (
	BlendMix BlendMethod = iota
	BlendMultiply
)

func (b BlendMethod) String() string {
	return map[BlendMethod]string{
		BlendMix:      "mix",
		BlendMultiply: "multiply",
	}[b]
}

// NewBlendMethod maps the XML attribute value to a blend method.
func NewBlendMethod(s string) (b BlendMethod, ok bool) {
	b, ok = map[string]BlendMethod{
		"mix":      BlendMix,
		"multiply": BlendMultiply,
	}[s]
	return
}

// Multi is one row of a multi-properties resource; one index per
// referenced property group.
type Multi struct {
	PIndices []uint32
}

// MultiProperties layers several property resources.
type MultiProperties struct {
	ID           uint32
	PIDs         []uint32
	BlendMethods []BlendMethod
	Multis       []Multi
}

// Len returns the multi row count.
func (r *MultiProperties) Len() int { return len(r.Multis) }

// Identify returns the unique ID of the resource.
func (r *MultiProperties) Identify() uint32 { return r.ID }

// ParseColor parses a #RRGGBB or #RRGGBBAA hex color.
func ParseColor(s string) (color.RGBA, error) {
	var c color.RGBA
	if len(s) == 0 || s[0] != '#' {
		return c, specerr.Validationf("invalid hex color %q", s)
	}
	hex := s[1:]
	if len(hex) != 6 && len(hex) != 8 {
		return c, specerr.Validationf("invalid hex color %q", s)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return c, specerr.Validationf("invalid hex color %q", s)
	}
	if len(hex) == 6 {
		val = val<<8 | 0xff
	}
	c.R = uint8(val >> 24)
	c.G = uint8(val >> 16)
	c.B = uint8(val >> 8)
	c.A = uint8(val)
	return c, nil
}

// FormatColor formats a color as #RRGGBB, or #RRGGBBAA when the alpha
// channel is not opaque.
func FormatColor(c color.RGBA) string {
	var sb strings.Builder
	sb.WriteByte('#')
	const digits = "0123456789ABCDEF"
	push := func(b uint8) {
		sb.WriteByte(digits[b>>4])
		sb.WriteByte(digits[b&0xf])
	}
	push(c.R)
	push(c.G)
	push(c.B)
	if c.A != 0xff {
		push(c.A)
	}
	return sb.String()
}
