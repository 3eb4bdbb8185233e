package mesh3mf

// VolumetricLayer is one z-layer of a volumetric stack; Path points
// at the part holding the layer content.
type VolumetricLayer struct {
	Z    float32
	Path string
}

// VolumetricRef references a volumetric stack in another model part.
type VolumetricRef struct {
	StackID uint32
	Path    string
}

// VolumetricStack is the volumetric stack resource.
type VolumetricStack struct {
	ID     uint32
	Layers []VolumetricLayer
	Refs   []VolumetricRef
}

// Identify returns the unique ID of the resource.
func (s *VolumetricStack) Identify() uint32 { return s.ID }
