package node

import "fmt"

// Kind is the closed set of node callback families compiled into the binary.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindImageRead
	KindImageWrite
	KindThumbnail
	KindCrop
	KindCubeRadiance
	KindEquirectConverter
	KindPhysicalSky
	KindReactionDiffusion
	KindDistance
	KindPaint3D
	KindGLTFRead
	KindPathTracer
	KindSVG
)

// Descriptor is the static shape of a kind.
type Descriptor struct {
	Name string
	// Inputs is the fixed arity.
	Inputs int
	// Required is the number of leading slots that must be connected before
	// the node is evaluated at all.
	Required int
}

var descriptors = map[Kind]Descriptor{
	KindImageRead:         {Name: "ImageRead"},
	KindImageWrite:        {Name: "ImageWrite", Inputs: 1, Required: 1},
	KindThumbnail:         {Name: "Thumbnail", Inputs: 1, Required: 1},
	KindCrop:              {Name: "Crop", Inputs: 1},
	KindCubeRadiance:      {Name: "CubeRadiance", Inputs: 1},
	KindEquirectConverter: {Name: "EquirectConverter", Inputs: 1, Required: 1},
	KindPhysicalSky:       {Name: "PhysicalSky"},
	KindReactionDiffusion: {Name: "ReactionDiffusion"},
	KindDistance:          {Name: "Distance", Inputs: 1},
	KindPaint3D:           {Name: "Paint3D", Inputs: 1},
	KindGLTFRead:          {Name: "GLTFRead"},
	KindPathTracer:        {Name: "PathTracer", Inputs: 1},
	KindSVG:               {Name: "SVG"},
}

// Kinds returns every valid kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(descriptors))
	for k := KindImageRead; k <= KindSVG; k++ {
		out = append(out, k)
	}
	return out
}

// ParseKind resolves a kind by the name used in graph files.
func ParseKind(name string) (Kind, error) {
	for k, d := range descriptors {
		if d.Name == name {
			return k, nil
		}
	}
	return KindInvalid, fmt.Errorf("unknown node kind %q", name)
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	_, ok := descriptors[k]
	return ok
}

// Descriptor returns the static shape of k.
func (k Kind) Descriptor() Descriptor {
	return descriptors[k]
}

// Arity is the number of input slots.
func (k Kind) Arity() int {
	return descriptors[k].Inputs
}

// Required is the number of leading slots that must be connected.
func (k Kind) Required() int {
	return descriptors[k].Required
}

func (k Kind) String() string {
	if d, ok := descriptors[k]; ok {
		return d.Name
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}
