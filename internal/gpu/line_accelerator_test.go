//go:build !nogpu

package gpu

import (
	"errors"
	"testing"

	"github.com/gogpu/aaline"
	"github.com/gogpu/wgpu/hal"
)

func TestLineAcceleratorCanAccelerate(t *testing.T) {
	a := NewLineAccelerator()

	tests := []struct {
		name string
		ops  aaline.AcceleratedOp
		want bool
	}{
		{"uniform", aaline.AccelUniformParams, true},
		{"uniform msaa", aaline.AccelUniformParams | aaline.AccelMultisample, true},
		{"push", aaline.AccelPushParams, false},
		{"wide lines", aaline.AccelUniformParams | aaline.AccelWideLines, false},
		{"custom falloff", aaline.AccelUniformParams | aaline.AccelCustomFalloff, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.CanAccelerate(tt.ops); got != tt.want {
				t.Errorf("CanAccelerate(%b) = %v, want %v", tt.ops, got, tt.want)
			}
		})
	}
}

func TestLineAcceleratorNotReady(t *testing.T) {
	a := NewLineAccelerator()
	if a.Ready() {
		t.Fatal("new accelerator reports ready")
	}
	frame := testFrame(t, aaline.TransportUniform, 4, 4, 4)
	target := aaline.GPURenderTarget{Data: make([]byte, 4*4*4), Width: 4, Height: 4}
	if err := a.DrawLines(target, frame); !errors.Is(err, aaline.ErrFallbackToCPU) {
		t.Errorf("DrawLines without device = %v, want ErrFallbackToCPU", err)
	}
	if err := a.DrawLines(target, nil); err == nil {
		t.Error("expected error for nil frame")
	}
}

func TestLineAcceleratorDeclinesWideFrame(t *testing.T) {
	a := NewLineAccelerator()
	frame := testFrame(t, aaline.TransportUniform, 4, 4, 4)
	frame.LineWidth = aaline.DefaultLineWidth
	target := aaline.GPURenderTarget{Data: make([]byte, 4*4*4), Width: 4, Height: 4}
	if err := a.DrawLines(target, frame); !errors.Is(err, aaline.ErrFallbackToCPU) {
		t.Errorf("DrawLines(wide) = %v, want ErrFallbackToCPU", err)
	}
}

type noopProvider struct {
	device hal.Device
	queue  hal.Queue
}

func (p noopProvider) HalDevice() any { return p.device }
func (p noopProvider) HalQueue() any  { return p.queue }

func TestLineAcceleratorSharedDevice(t *testing.T) {
	_, err := CompileLineShader(aaline.TransportUniform)
	skipIfNagaUnsupported(t, err)

	device, queue, cleanup := createNoopDevice(t)
	defer cleanup()

	a := NewLineAccelerator()
	if err := a.SetDeviceProvider(noopProvider{device: device, queue: queue}); err != nil {
		t.Fatalf("SetDeviceProvider: %v", err)
	}
	if !a.Ready() {
		t.Fatal("accelerator not ready after SetDeviceProvider")
	}

	target := aaline.GPURenderTarget{Data: make([]byte, 32*16*4), Width: 32, Height: 16, Stride: 32 * 4}
	if err := a.DrawLines(target, testFrame(t, aaline.TransportUniform, 32, 16, 4)); err != nil {
		t.Fatalf("DrawLines: %v", err)
	}

	a.Close()
	if a.Ready() {
		t.Error("accelerator ready after Close")
	}
	// The shared device stays usable after Close.
	if _, err := device.CreateFence(); err != nil {
		t.Errorf("shared device unusable after Close: %v", err)
	}
}

func TestLineAcceleratorBadProvider(t *testing.T) {
	a := NewLineAccelerator()
	if err := a.SetDeviceProvider(struct{}{}); err == nil {
		t.Error("expected error for provider without HAL types")
	}
	if err := a.SetDeviceProvider(noopProvider{}); err == nil {
		t.Error("expected error for nil HAL device")
	}
	if a.Ready() {
		t.Error("failed SetDeviceProvider left the accelerator ready")
	}
}
