package app

import (
	"github.com/vk/ifgrid/internal/registry"
	"github.com/vk/ifgrid/modules/coefficient"
	"github.com/vk/ifgrid/modules/copyparam"
	"github.com/vk/ifgrid/modules/multiply"
	"github.com/vk/ifgrid/modules/sum"
)

// coreModules is the definitive list of all plugin modules that are compiled
// into the ifgrid binary and reachable via `path: builtin`.
var coreModules = []registry.Module{
	&sum.Module{},
	&coefficient.Module{},
	&multiply.Module{},
	&copyparam.Module{},
}
