package main

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/aaline/internal/scene"
)

func TestSpinnerAdvance(t *testing.T) {
	s := spinner{speed: 90}
	t0 := time.Unix(0, 0)

	if got := s.advance(t0); got != 0 {
		t.Errorf("first frame angle = %v, want 0", got)
	}
	if got := s.advance(t0.Add(time.Second)); got != 90 {
		t.Errorf("angle after 1s = %v, want 90", got)
	}
	// Wraps at a full turn.
	if got := s.advance(t0.Add(4 * time.Second)); got != 0 {
		t.Errorf("angle after 4s = %v, want 0", got)
	}
}

func TestSpinnerPause(t *testing.T) {
	s := spinner{speed: 10}
	t0 := time.Unix(0, 0)
	s.advance(t0)

	s.toggle(t0.Add(time.Second))
	if got := s.advance(t0.Add(5 * time.Second)); got != 0 {
		t.Errorf("paused angle = %v, want 0", got)
	}

	// Resuming must not count the paused interval.
	s.toggle(t0.Add(10 * time.Second))
	if got := s.advance(t0.Add(11 * time.Second)); got != 10 {
		t.Errorf("resumed angle = %v, want 10", got)
	}
}

func TestFrameTransform(t *testing.T) {
	sc := scene.Scene{Transform: scene.Transform{Scale: 0.5}}

	got := frameTransform(sc, 90).Mul4x1(mgl32.Vec4{1, 0, 0, 1})
	if !got.ApproxEqualThreshold(mgl32.Vec4{0, 0.5, 0, 1}, 1e-6) {
		t.Errorf("rotated x axis = %v, want (0, 0.5, 0, 1)", got)
	}
	if m := frameTransform(scene.Scene{}, 0); !m.ApproxEqual(mgl32.Ident4()) {
		t.Errorf("zero angle = %v, want identity", m)
	}
}
