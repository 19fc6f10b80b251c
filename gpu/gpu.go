//go:build !nogpu

// Package gpu registers the wgpu line accelerator.
//
// Import this package to render line frames on the GPU through wgpu/hal.
// Frames the accelerator cannot draw (push parameters, lines wider than one
// pixel, custom falloff) and all frames on machines without a usable GPU
// are rendered by the CPU pipeline instead.
//
// Usage:
//
//	import _ "github.com/gogpu/aaline/gpu" // enable GPU acceleration
package gpu

import (
	"github.com/gogpu/aaline"
	gpuimpl "github.com/gogpu/aaline/internal/gpu"
)

func init() {
	if err := aaline.RegisterAccelerator(gpuimpl.NewLineAccelerator()); err != nil {
		aaline.Logger().Warn("GPU accelerator not available", "err", err)
	}
}

// SetDeviceProvider configures the GPU accelerator to use a shared GPU device
// from an external provider (e.g., gogpu). This avoids creating a separate
// GPU instance.
//
// The provider should be a gpucontext.DeviceProvider that also exposes
// HalDevice() any and HalQueue() any for direct HAL access.
func SetDeviceProvider(provider any) error {
	return aaline.SetAcceleratorDeviceProvider(provider)
}
