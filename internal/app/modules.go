package app

import (
	"github.com/vk/evalgraph/internal/registry"
	"github.com/vk/evalgraph/modules/crop"
	"github.com/vk/evalgraph/modules/cuberadiance"
	"github.com/vk/evalgraph/modules/distance"
	"github.com/vk/evalgraph/modules/equirect"
	"github.com/vk/evalgraph/modules/gltfread"
	"github.com/vk/evalgraph/modules/imageread"
	"github.com/vk/evalgraph/modules/imagewrite"
	"github.com/vk/evalgraph/modules/paint3d"
	"github.com/vk/evalgraph/modules/pathtracer"
	"github.com/vk/evalgraph/modules/physicalsky"
	"github.com/vk/evalgraph/modules/reactiondiffusion"
	"github.com/vk/evalgraph/modules/svg"
	"github.com/vk/evalgraph/modules/thumbnail"
)

// coreModules is the definitive list of all node kinds that are compiled
// into the evalgraph binary.
var coreModules = []registry.Module{
	&imageread.Module{},
	&imagewrite.Module{},
	&thumbnail.Module{},
	&crop.Module{},
	&cuberadiance.Module{},
	&equirect.Module{},
	&physicalsky.Module{},
	&reactiondiffusion.Module{},
	&distance.Module{},
	&paint3d.Module{},
	&gltfread.Module{},
	&pathtracer.Module{},
	&svg.Module{},
}
