package gpu

import "fmt"

// ShapeKind distinguishes flat images from cube maps.
type ShapeKind uint8

const (
	ShapeNone ShapeKind = iota
	ShapeFlat
	ShapeCube
)

// Shape is the declared geometry of an evaluation target.
type Shape struct {
	Kind   ShapeKind
	Width  int
	Height int
	// Mips is the number of mip levels; flat targets always carry one.
	Mips int
}

// Flat returns a 2D shape.
func Flat(width, height int) Shape {
	return Shape{Kind: ShapeFlat, Width: width, Height: height, Mips: 1}
}

// Cube returns a cube map shape with square faces of the given size.
func Cube(size, mips int) Shape {
	if mips < 1 {
		mips = 1
	}
	return Shape{Kind: ShapeCube, Width: size, Height: size, Mips: mips}
}

// IsZero reports whether the shape has not been declared.
func (s Shape) IsZero() bool {
	return s.Kind == ShapeNone
}

// Faces is 6 for cube maps, 1 for flat images and 0 otherwise.
func (s Shape) Faces() int {
	switch s.Kind {
	case ShapeFlat:
		return 1
	case ShapeCube:
		return 6
	default:
		return 0
	}
}

func (s Shape) String() string {
	switch s.Kind {
	case ShapeFlat:
		return fmt.Sprintf("flat(%dx%d)", s.Width, s.Height)
	case ShapeCube:
		return fmt.Sprintf("cube(%d, mips=%d)", s.Width, s.Mips)
	default:
		return "none"
	}
}

// Cube face order used by loaders and devices.
const (
	FacePosX = iota
	FaceNegX
	FaceNegY
	FacePosY
	FacePosZ
	FaceNegZ
)

// Format is the pixel format of a target.
type Format uint8

const (
	FormatBGR8 Format = iota
	FormatRGB8
	FormatRGB16
	FormatRGB16F
	FormatRGB32F
	FormatRGBE
	FormatBGRA8
	FormatRGBA8
	FormatRGBA16
	FormatRGBA16F
	FormatRGBA32F
	FormatRGBM
)

var formatNames = [...]string{
	"BGR8", "RGB8", "RGB16", "RGB16F", "RGB32F", "RGBE",
	"BGRA8", "RGBA8", "RGBA16", "RGBA16F", "RGBA32F", "RGBM",
}

func (f Format) String() string {
	if int(f) < len(formatNames) {
		return formatNames[f]
	}
	return fmt.Sprintf("Format(%d)", uint8(f))
}

// VertexSpace selects how geometry is projected while drawing into a target.
type VertexSpace uint8

const (
	VertexSpaceUV VertexSpace = iota
	VertexSpaceWorld
)

func (v VertexSpace) String() string {
	if v == VertexSpaceWorld {
		return "world"
	}
	return "uv"
}

// Region is a normalized source rectangle. The zero value selects the whole image.
type Region struct {
	X0, Y0, X1, Y1 float64
}

// IsFull reports whether r covers the entire source.
func (r Region) IsFull() bool {
	return r == Region{} || r == Region{X0: 0, Y0: 0, X1: 1, Y1: 1}
}

// DrawState is the render state a kernel draws with.
type DrawState struct {
	Blend       Blend
	DepthBuffer bool
	FrameClear  bool
	VertexSpace VertexSpace
	Region      Region
}

// Texture is a device allocation backing one evaluation target.
type Texture interface {
	Shape() Shape
	Format() Format
}
