package core

import (
	"errors"
)

var (
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")

	// Tier 3 invariant-violation sentinels (spec.md §7), returned to the
	// caller of admission operations; nothing is partially admitted.
	ErrMaterialIndexOutOfRange = errors.New("material index out of range on object admission")
	ErrNoFreeSlots             = errors.New("resident GPU table has no free slots")
	ErrInvalidQuantizationScale = errors.New("quantization_scale must be non-zero")
	ErrObjectNotFound          = errors.New("object not found in scene")
	ErrLightNotFound           = errors.New("light not found in grid")
)
