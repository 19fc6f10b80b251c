//go:build !nogpu

package gpu

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gogpu/aaline"
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	// Import Vulkan backend so it registers via init().
	_ "github.com/gogpu/wgpu/hal/vulkan"
)

// supportedOps is everything LineAccelerator renders itself. Push data has
// no hal entry point, WebGPU rasterizes lines one pixel wide and the shader
// bakes in the default falloff, so frames needing any of those stay on the
// CPU.
const supportedOps = aaline.AccelUniformParams | aaline.AccelMultisample

// LineAccelerator renders line frames on a wgpu/hal device. It implements
// aaline.GPUAccelerator.
//
// If no GPU is available Init still succeeds; DrawLines then returns
// aaline.ErrFallbackToCPU and the CPU pipeline takes over.
type LineAccelerator struct {
	mu sync.Mutex

	instance hal.Instance
	device   hal.Device
	queue    hal.Queue
	pipeline *LinePipeline

	gpuReady       bool
	externalDevice bool // shared device, not destroyed on Close
}

var _ aaline.GPUAccelerator = (*LineAccelerator)(nil)

// NewLineAccelerator returns an uninitialized accelerator.
func NewLineAccelerator() *LineAccelerator {
	return &LineAccelerator{}
}

func (a *LineAccelerator) Name() string { return "wgpu-line" }

func (a *LineAccelerator) CanAccelerate(ops aaline.AcceleratedOp) bool {
	return ops&^supportedOps == 0
}

// SetLogger routes internal/gpu logging to l.
func (a *LineAccelerator) SetLogger(l *slog.Logger) {
	setLogger(l)
}

func (a *LineAccelerator) Init() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.initGPU(); err != nil {
		slogger().Warn("gpu-line: GPU init failed, using CPU fallback", "err", err)
		a.releaseDevice()
	}
	return nil
}

// Ready reports whether a device is open and the pipeline can render.
func (a *LineAccelerator) Ready() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.gpuReady
}

func (a *LineAccelerator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.releaseDevice()
}

// releaseDevice destroys the pipeline and, unless the device is shared, the
// device and instance.
func (a *LineAccelerator) releaseDevice() {
	if a.pipeline != nil {
		a.pipeline.Destroy()
		a.pipeline = nil
	}
	if !a.externalDevice {
		if a.device != nil {
			a.device.Destroy()
		}
		if a.instance != nil {
			a.instance.Destroy()
		}
	}
	a.device = nil
	a.instance = nil
	a.queue = nil
	a.gpuReady = false
	a.externalDevice = false
}

// DrawLines renders frame into target on the GPU.
func (a *LineAccelerator) DrawLines(target aaline.GPURenderTarget, frame *aaline.LineFrame) error {
	if frame == nil {
		return errors.New("gpu-line: nil frame")
	}
	if !a.CanAccelerate(frame.Ops()) {
		return aaline.ErrFallbackToCPU
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.gpuReady {
		return aaline.ErrFallbackToCPU
	}
	if err := a.pipeline.Render(target, frame); err != nil {
		if !errors.Is(err, aaline.ErrFallbackToCPU) {
			slogger().Warn("gpu-line: render failed", "err", err)
		}
		return err
	}
	slogger().Debug("gpu-line: frame rendered",
		"width", target.Width, "height", target.Height, "batches", len(frame.Batches))
	return nil
}

// SetDeviceProvider switches the accelerator to a shared GPU device from an
// external provider (e.g., a gogpu window). The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue.
func (a *LineAccelerator) SetDeviceProvider(provider any) error {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return fmt.Errorf("gpu-line: provider does not expose HAL types")
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return fmt.Errorf("gpu-line: provider HalDevice is not hal.Device")
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return fmt.Errorf("gpu-line: provider HalQueue is not hal.Queue")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.releaseDevice()
	a.device = device
	a.queue = queue
	a.externalDevice = true
	a.pipeline = NewLinePipeline(device, queue)
	a.gpuReady = true

	if dp, ok := provider.(gpucontext.DeviceProvider); ok {
		slogger().Info("gpu-line: switched to shared GPU device", "surface_format", dp.SurfaceFormat())
	} else {
		slogger().Info("gpu-line: switched to shared GPU device")
	}
	return nil
}

func (a *LineAccelerator) initGPU() error {
	backend, ok := hal.GetBackend(gputypes.BackendVulkan)
	if !ok {
		return fmt.Errorf("vulkan backend not available")
	}
	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{Flags: 0})
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	a.instance = instance
	return a.openAdapter(instance.EnumerateAdapters(nil))
}

// openAdapter opens the first discrete or integrated GPU, or the first
// adapter when there is neither.
func (a *LineAccelerator) openAdapter(adapters []hal.ExposedAdapter) error {
	if len(adapters) == 0 {
		return fmt.Errorf("no GPU adapters found")
	}
	var selected *hal.ExposedAdapter
	for i := range adapters {
		if adapters[i].Info.DeviceType == gputypes.DeviceTypeDiscreteGPU ||
			adapters[i].Info.DeviceType == gputypes.DeviceTypeIntegratedGPU {
			selected = &adapters[i]
			break
		}
	}
	if selected == nil {
		selected = &adapters[0]
	}
	openDev, err := selected.Adapter.Open(gputypes.Features(0), gputypes.DefaultLimits())
	if err != nil {
		return fmt.Errorf("open device: %w", err)
	}
	a.device = openDev.Device
	a.queue = openDev.Queue
	a.pipeline = NewLinePipeline(a.device, a.queue)
	a.gpuReady = true
	slogger().Info("gpu-line: GPU accelerator initialized", "adapter", selected.Info.Name)
	return nil
}
