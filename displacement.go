package mesh3mf

// DisplacementTriangle is a face of a displacement mesh; D indices
// point into displacement coordinate groups.
type DisplacementTriangle struct {
	Indices     [3]uint32
	DIndices    [3]uint32
	HasDIndices bool
	PID         uint32
	PIndices    [3]uint32
	HasPIndices bool
}

// NormVector is a per-vertex unit normal of a displacement mesh.
type NormVector [3]float32

// GradientVector is a per-vertex displacement gradient.
type GradientVector [2]float32

// DisplacementMesh is a mesh whose surface is displaced along
// per-vertex normals. Normals must match the vertex count; gradients,
// when present, must too.
type DisplacementMesh struct {
	Vertices  []Point3D
	Triangles []DisplacementTriangle
	Normals   []NormVector
	Gradients []GradientVector
}

func (*DisplacementMesh) isGeometry() {}

// DisplacementChannel selects the texture channel sampled for
// displacement heights.
type DisplacementChannel uint8

// Supported channels. G is the wire default.
const (
	ChannelG DisplacementChannel = iota
	ChannelR
	ChannelB
	ChannelA
)

func (c DisplacementChannel) String() string {
	return map[DisplacementChannel]string{
		ChannelG: "g",
		ChannelR: "r",
		ChannelB: "b",
		ChannelA: "a",
	}[c]
}

// NewDisplacementChannel maps the XML attribute value to a channel.
func NewDisplacementChannel(s string) (c DisplacementChannel, ok bool) {
	c, ok = map[string]DisplacementChannel{
		"g": ChannelG,
		"r": ChannelR,
		"b": ChannelB,
		"a": ChannelA,
	}[s]
	return
}

// TileStyle defines how a displacement texture repeats.
type TileStyle uint8

// Supported tile styles. Wrap is the wire default.
const (
	TileWrap TileStyle = iota
	TileMirror
	TileClamp
	TileNone
)

func (t TileStyle) String() string {
	return map[TileStyle]string{
		TileWrap:   "wrap",
		TileMirror: "mirror",
		TileClamp:  "clamp",
		TileNone:   "none",
	}[t]
}

// NewTileStyle maps the XML attribute value to a tile style.
func NewTileStyle(s string) (t TileStyle, ok bool) {
	t, ok = map[string]TileStyle{
		"wrap":   TileWrap,
		"mirror": TileMirror,
		"clamp":  TileClamp,
		"none":   TileNone,
	}[s]
	return
}

// FilterMode defines how a displacement texture is sampled.
type FilterMode uint8

// Supported filter modes. Linear is the wire default.
const (
	FilterLinear FilterMode = iota
	FilterNearest
)

func (f FilterMode) String() string {
	return map[FilterMode]string{
		FilterLinear:  "linear",
		FilterNearest: "nearest",
	}[f]
}

// NewFilterMode maps the XML attribute value to a filter mode.
func NewFilterMode(s string) (f FilterMode, ok bool) {
	f, ok = map[string]FilterMode{
		"linear":  FilterLinear,
		"nearest": FilterNearest,
	}[s]
	return
}

// Displacement2D is the displacement texture resource.
type Displacement2D struct {
	ID        uint32
	Path      string
	Channel   DisplacementChannel
	TileStyle TileStyle
	Filter    FilterMode
	Height    float32
	Offset    float32
}

// Identify returns the unique ID of the resource.
func (r *Displacement2D) Identify() uint32 { return r.ID }
