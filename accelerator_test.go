package aaline

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
)

// mockAccelerator implements GPUAccelerator for testing.
type mockAccelerator struct {
	name     string
	initErr  error
	drawErr  error
	canAccel AcceleratedOp
	fill     [4]uint8

	mu     sync.Mutex
	closed bool
	frames []*LineFrame
	logger *slog.Logger
}

func (m *mockAccelerator) Name() string { return m.name }

func (m *mockAccelerator) Init() error { return m.initErr }

func (m *mockAccelerator) Close() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
}

func (m *mockAccelerator) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *mockAccelerator) CanAccelerate(ops AcceleratedOp) bool {
	return m.canAccel&ops == ops
}

func (m *mockAccelerator) DrawLines(target GPURenderTarget, frame *LineFrame) error {
	m.mu.Lock()
	m.frames = append(m.frames, frame)
	m.mu.Unlock()
	if m.drawErr != nil {
		return m.drawErr
	}
	for y := range target.Height {
		row := target.Data[y*target.Stride:]
		for x := range target.Width {
			copy(row[x*4:x*4+4], m.fill[:])
		}
	}
	return nil
}

func (m *mockAccelerator) SetLogger(l *slog.Logger) {
	m.mu.Lock()
	m.logger = l
	m.mu.Unlock()
}

func (m *mockAccelerator) frameCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}

// resetAccelerator clears the global accelerator state between tests.
func resetAccelerator() {
	accelMu.Lock()
	accel = nil
	accelMu.Unlock()
}

func TestRegisterAcceleratorNil(t *testing.T) {
	resetAccelerator()

	err := RegisterAccelerator(nil)
	if err == nil {
		t.Fatal("expected error when registering nil accelerator")
	}
	if err.Error() != "aaline: accelerator must not be nil" {
		t.Errorf("unexpected error message: %s", err.Error())
	}
	if Accelerator() != nil {
		t.Error("accelerator should remain nil after failed registration")
	}
}

func TestRegisterAcceleratorInitError(t *testing.T) {
	resetAccelerator()

	initErr := errors.New("GPU init failed")
	mock := &mockAccelerator{name: "failing", initErr: initErr}

	err := RegisterAccelerator(mock)
	if !errors.Is(err, initErr) {
		t.Errorf("expected init error, got: %v", err)
	}
	if Accelerator() != nil {
		t.Error("accelerator should remain nil after Init failure")
	}
}

func TestRegisterAcceleratorReplacesOld(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	first := &mockAccelerator{name: "first"}
	second := &mockAccelerator{name: "second"}

	if err := RegisterAccelerator(first); err != nil {
		t.Fatalf("unexpected error registering first: %v", err)
	}
	if err := RegisterAccelerator(second); err != nil {
		t.Fatalf("unexpected error registering second: %v", err)
	}

	if !first.isClosed() {
		t.Error("expected first accelerator to be closed after replacement")
	}
	if a := Accelerator(); a == nil || a.Name() != "second" {
		t.Errorf("Accelerator() = %v, want second", a)
	}
	if second.isClosed() {
		t.Error("second accelerator should not be closed")
	}
}

func TestCloseAccelerator(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	mock := &mockAccelerator{name: "closing"}
	if err := RegisterAccelerator(mock); err != nil {
		t.Fatal(err)
	}
	CloseAccelerator()
	if !mock.isClosed() {
		t.Error("accelerator was not closed")
	}
	if Accelerator() != nil {
		t.Error("accelerator still registered after CloseAccelerator")
	}
	CloseAccelerator() // no accelerator: no-op
}

func TestSetAcceleratorDeviceProviderNoop(t *testing.T) {
	resetAccelerator()
	defer resetAccelerator()

	if err := SetAcceleratorDeviceProvider(struct{}{}); err != nil {
		t.Errorf("without accelerator: %v", err)
	}

	if err := RegisterAccelerator(&mockAccelerator{name: "plain"}); err != nil {
		t.Fatal(err)
	}
	if err := SetAcceleratorDeviceProvider(struct{}{}); err != nil {
		t.Errorf("accelerator without device sharing: %v", err)
	}
}

func TestLineFrameOps(t *testing.T) {
	params := NewDrawParams(AspectView(8, 8), 8, 8)

	tests := []struct {
		name  string
		frame LineFrame
		want  AcceleratedOp
	}{
		{
			name: "uniform thin single sample",
			frame: LineFrame{
				Source:    NewUniformBuffer(params),
				Fragment:  DefaultFragmentStage(),
				LineWidth: 1,
				Samples:   1,
			},
			want: AccelUniformParams,
		},
		{
			name: "defaults",
			frame: LineFrame{
				Source:    NewUniformBuffer(params),
				Fragment:  DefaultFragmentStage(),
				LineWidth: DefaultLineWidth,
				Samples:   DefaultSamples,
			},
			want: AccelUniformParams | AccelWideLines | AccelMultisample,
		},
		{
			name: "push with custom falloff",
			frame: LineFrame{
				Source:    NewPushConstants(params),
				Fragment:  NewFragmentStage(5, 2),
				LineWidth: 1,
				Samples:   1,
			},
			want: AccelPushParams | AccelCustomFalloff,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.frame.Ops(); got != tt.want {
				t.Errorf("Ops() = %b, want %b", got, tt.want)
			}
		})
	}
}

func TestAcceleratedOpValues(t *testing.T) {
	ops := []AcceleratedOp{AccelUniformParams, AccelPushParams, AccelWideLines, AccelCustomFalloff, AccelMultisample}
	seen := make(map[AcceleratedOp]bool)
	for _, op := range ops {
		if op == 0 || op&(op-1) != 0 {
			t.Errorf("op %d is not a power of two", op)
		}
		if seen[op] {
			t.Errorf("duplicate op value: %d", op)
		}
		seen[op] = true
	}
}

func TestErrFallbackToCPU(t *testing.T) {
	wrappedErr := errors.Join(ErrFallbackToCPU, errors.New("detail"))
	if !errors.Is(wrappedErr, ErrFallbackToCPU) {
		t.Error("wrapped ErrFallbackToCPU should be detectable with errors.Is")
	}
}

func BenchmarkAcceleratorNilCheck(b *testing.B) {
	resetAccelerator()

	b.ReportAllocs()
	for b.Loop() {
		if Accelerator() != nil {
			b.Fatal("should be nil")
		}
	}
}
