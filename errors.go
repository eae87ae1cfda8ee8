package lai

import "errors"

var (
	// ErrNoPhysicalDevice is returned when the instance enumerates no GPUs.
	ErrNoPhysicalDevice = errors.New("no physical device found")

	// ErrNoSuitableDevice is returned when no GPU meets the requirements.
	ErrNoSuitableDevice = errors.New("no physical device meets the requirements")

	ErrNoDepthFormat = errors.New("no supported depth format")

	// ErrInvalidSize is returned for zero framebuffer dimensions.
	ErrInvalidSize = errors.New("invalid framebuffer size")
)
