package mesh3mf

// Segment connects the previous polygon vertex to V2. P2 defaults to
// P1 when the wire form omits it.
type Segment struct {
	V2     uint32
	PID    uint32
	P1, P2 uint32
	HasP   bool
}

// Polygon is a closed 2D contour starting at StartV.
type Polygon struct {
	StartV   uint32
	Segments []Segment
}

// Slice is a single z-layer of a slice stack.
type Slice struct {
	TopZ     float32
	Vertices []Point2D
	Polygons []Polygon
}

// SliceRef references slices stored in another slice stack, possibly
// in another model part.
type SliceRef struct {
	SliceStackID uint32
	Path         string
}

// SliceStack is the slice stack resource: ordered z-layers of 2D
// polygons.
type SliceStack struct {
	ID      uint32
	BottomZ float32
	Slices  []*Slice
	Refs    []SliceRef
}

// Identify returns the unique ID of the resource.
func (s *SliceStack) Identify() uint32 { return s.ID }
