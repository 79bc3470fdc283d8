package ebitengpu

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/vk/evalgraph/internal/gpu"
)

// factors maps engine blend factors onto ebiten's. Constant-color factors
// resolve against opaque white, matching the host-memory device.
var factors = map[gpu.BlendFactor]ebiten.BlendFactor{
	gpu.BlendZero:                  ebiten.BlendFactorZero,
	gpu.BlendOne:                   ebiten.BlendFactorOne,
	gpu.BlendSrcColor:              ebiten.BlendFactorSourceColor,
	gpu.BlendOneMinusSrcColor:      ebiten.BlendFactorOneMinusSourceColor,
	gpu.BlendDstColor:              ebiten.BlendFactorDestinationColor,
	gpu.BlendOneMinusDstColor:      ebiten.BlendFactorOneMinusDestinationColor,
	gpu.BlendSrcAlpha:              ebiten.BlendFactorSourceAlpha,
	gpu.BlendOneMinusSrcAlpha:      ebiten.BlendFactorOneMinusSourceAlpha,
	gpu.BlendDstAlpha:              ebiten.BlendFactorDestinationAlpha,
	gpu.BlendOneMinusDstAlpha:      ebiten.BlendFactorOneMinusDestinationAlpha,
	gpu.BlendConstantColor:         ebiten.BlendFactorOne,
	gpu.BlendOneMinusConstantColor: ebiten.BlendFactorZero,
	gpu.BlendConstantAlpha:         ebiten.BlendFactorOne,
	gpu.BlendOneMinusConstantAlpha: ebiten.BlendFactorZero,
	// ebiten has no saturate factor; source alpha is the closest match.
	gpu.BlendSrcAlphaSaturate: ebiten.BlendFactorSourceAlpha,
}

// Factor returns the ebiten equivalent of f.
func Factor(f gpu.BlendFactor) ebiten.BlendFactor {
	if ef, ok := factors[f]; ok {
		return ef
	}
	return ebiten.BlendFactorOne
}

// Blend converts an engine blend pair into an ebiten.Blend with additive operations.
func Blend(b gpu.Blend) ebiten.Blend {
	return ebiten.Blend{
		BlendFactorSourceRGB:        Factor(b.Src),
		BlendFactorSourceAlpha:      Factor(b.Src),
		BlendFactorDestinationRGB:   Factor(b.Dst),
		BlendFactorDestinationAlpha: Factor(b.Dst),
		BlendOperationRGB:           ebiten.BlendOperationAdd,
		BlendOperationAlpha:         ebiten.BlendOperationAdd,
	}
}
