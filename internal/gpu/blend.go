package gpu

import "fmt"

// BlendFactor is one operand of the fixed-function blend equation.
type BlendFactor uint8

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcColor
	BlendOneMinusSrcColor
	BlendDstColor
	BlendOneMinusDstColor
	BlendSrcAlpha
	BlendOneMinusSrcAlpha
	BlendDstAlpha
	BlendOneMinusDstAlpha
	BlendConstantColor
	BlendOneMinusConstantColor
	BlendConstantAlpha
	BlendOneMinusConstantAlpha
	BlendSrcAlphaSaturate
)

var blendNames = [...]string{
	"ZERO", "ONE", "SRC_COLOR", "ONE_MINUS_SRC_COLOR", "DST_COLOR",
	"ONE_MINUS_DST_COLOR", "SRC_ALPHA", "ONE_MINUS_SRC_ALPHA", "DST_ALPHA",
	"ONE_MINUS_DST_ALPHA", "CONSTANT_COLOR", "ONE_MINUS_CONSTANT_COLOR",
	"CONSTANT_ALPHA", "ONE_MINUS_CONSTANT_ALPHA", "SRC_ALPHA_SATURATE",
}

func (f BlendFactor) String() string {
	if int(f) < len(blendNames) {
		return blendNames[f]
	}
	return fmt.Sprintf("BlendFactor(%d)", uint8(f))
}

// Valid reports whether f is a known factor.
func (f BlendFactor) Valid() bool {
	return int(f) < len(blendNames)
}

// ParseBlendFactor resolves a factor by its canonical name.
func ParseBlendFactor(name string) (BlendFactor, error) {
	for i, n := range blendNames {
		if n == name {
			return BlendFactor(i), nil
		}
	}
	return 0, fmt.Errorf("unknown blend factor %q", name)
}

// Blend is the (source, destination) factor pair of a target.
type Blend struct {
	Src BlendFactor
	Dst BlendFactor
}

// BlendReplace overwrites the destination. It is the default for new targets.
var BlendReplace = Blend{Src: BlendOne, Dst: BlendZero}

// BlendPremultipliedOver composites premultiplied color over the destination.
var BlendPremultipliedOver = Blend{Src: BlendOne, Dst: BlendOneMinusSrcAlpha}

// The constant blend color is opaque white.
var constantColor = [4]float64{1, 1, 1, 1}

// weight returns the per-channel multiplier of factor f for premultiplied
// source s and destination d.
func weight(f BlendFactor, s, d [4]float64) [4]float64 {
	switch f {
	case BlendZero:
		return [4]float64{}
	case BlendOne:
		return [4]float64{1, 1, 1, 1}
	case BlendSrcColor:
		return s
	case BlendOneMinusSrcColor:
		return [4]float64{1 - s[0], 1 - s[1], 1 - s[2], 1 - s[3]}
	case BlendDstColor:
		return d
	case BlendOneMinusDstColor:
		return [4]float64{1 - d[0], 1 - d[1], 1 - d[2], 1 - d[3]}
	case BlendSrcAlpha:
		return splat(s[3])
	case BlendOneMinusSrcAlpha:
		return splat(1 - s[3])
	case BlendDstAlpha:
		return splat(d[3])
	case BlendOneMinusDstAlpha:
		return splat(1 - d[3])
	case BlendConstantColor:
		return constantColor
	case BlendOneMinusConstantColor:
		return [4]float64{1 - constantColor[0], 1 - constantColor[1], 1 - constantColor[2], 1 - constantColor[3]}
	case BlendConstantAlpha:
		return splat(constantColor[3])
	case BlendOneMinusConstantAlpha:
		return splat(1 - constantColor[3])
	case BlendSrcAlphaSaturate:
		a := min(s[3], 1-d[3])
		return [4]float64{a, a, a, 1}
	default:
		return [4]float64{1, 1, 1, 1}
	}
}

func splat(v float64) [4]float64 {
	return [4]float64{v, v, v, v}
}

// Apply evaluates the blend equation src*Src + dst*Dst, clamped to [0,1].
func (b Blend) Apply(s, d [4]float64) [4]float64 {
	sf := weight(b.Src, s, d)
	df := weight(b.Dst, s, d)
	var out [4]float64
	for i := range out {
		v := s[i]*sf[i] + d[i]*df[i]
		out[i] = max(0, min(1, v))
	}
	return out
}
