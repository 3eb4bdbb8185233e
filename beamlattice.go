package mesh3mf

// ClipMode defines the clipping modes for beam lattices.
type ClipMode uint8

// Supported clip modes.
const (
	ClipNone ClipMode = iota
	ClipInside
	ClipOutside
)

func (c ClipMode) String() string {
	return map[ClipMode]string{
		ClipNone:    "none",
		ClipInside:  "inside",
		ClipOutside: "outside",
	}[c]
}

// NewClipMode maps the XML attribute value to a clip mode.
func NewClipMode(s string) (c ClipMode, ok bool) {
	c, ok = map[string]ClipMode{
		"none":    ClipNone,
		"inside":  ClipInside,
		"outside": ClipOutside,
	}[s]
	return
}

// CapMode is an enumerable for the beam capping modes.
type CapMode uint8

// Supported cap modes.
const (
	CapModeSphere CapMode = iota
	CapModeHemisphere
	CapModeButt
)

func (b CapMode) String() string {
	return map[CapMode]string{
		CapModeSphere:     "sphere",
		CapModeHemisphere: "hemisphere",
		CapModeButt:       "butt",
	}[b]
}

// NewCapMode maps the XML attribute value to a cap mode.
func NewCapMode(s string) (t CapMode, ok bool) {
	t, ok = map[string]CapMode{
		"sphere":     CapModeSphere,
		"hemisphere": CapModeHemisphere,
		"butt":       CapModeButt,
	}[s]
	return
}

// BeamLattice holds the beam lattice data attached to a mesh.
type BeamLattice struct {
	MinLength float32
	Precision float32
	ClipMode  ClipMode
	Beams     []Beam
	BeamSets  []BeamSet
}

// Beam defines a single beam. R2 equals R1 when the wire form omits it.
type Beam struct {
	Indices [2]uint32
	Radius  [2]float32
	P1, P2  uint32
	HasP    bool
	CapMode CapMode
}

// BeamSet defines a named set of beams by index references.
type BeamSet struct {
	Name       string
	Identifier string
	Refs       []uint32
}
