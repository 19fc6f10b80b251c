package main

import (
	"testing"

	"github.com/gogpu/aaline"
)

func TestZoomImage(t *testing.T) {
	pm := aaline.NewPixmap(40, 20)
	pm.Clear(aaline.Red)
	img := zoomImage(pm, 4)
	if b := img.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Errorf("zoom bounds = %v, want 40x20", b)
	}
	if got := img.NRGBAAt(0, 0); got.R != 255 || got.A != 255 {
		t.Errorf("zoom pixel = %v", got)
	}
}

func TestParseTransport(t *testing.T) {
	if tr, err := parseTransport("push"); err != nil || tr != aaline.TransportPush {
		t.Errorf("parseTransport(push) = %v, %v", tr, err)
	}
	if _, err := parseTransport("ssbo"); err == nil {
		t.Error("expected error for unknown transport")
	}
}
