package core

import (
	"github.com/cockroachdb/errors"
)

var (
	ErrSwapchainOutOfDate      = errors.New("swapchain out of date")
	ErrDeviceLost              = errors.New("vulkan device lost")
	ErrNoSuitableDevice        = errors.New("no physical device meets the requirements")
	ErrNoMemoryType            = errors.New("no suitable memory type")
	ErrDescriptorPoolExhausted = errors.New("descriptor pool exhausted")
	ErrAssetNotFound           = errors.New("asset not found")
	ErrInvalidMaterialIndex    = errors.New("material index out of range")
	ErrModelNotFound           = errors.New("model not found")
	ErrInvalidConfig           = errors.New("invalid configuration")
	ErrMalformedMesh           = errors.New("malformed mesh file")
)
