// Package scene loads the YAML line scenes used by the demo commands.
package scene

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/gogpu/aaline"
	"gopkg.in/yaml.v3"
)

// Scene is a scene file.
//
//	width: 800
//	height: 600
//	clear: "#0d0d0d"
//	transform:
//	  rotate: 30      # degrees around z
//	  scale: 0.8
//	  translate: [0.1, 0, 0]
//	lines:
//	  - color: "#ff3333"
//	    polyline: true
//	    points: [[-0.5, 0, 0], [0, 0.4, 0], [0.5, 0, 0]]
type Scene struct {
	Width     int       `yaml:"width"`
	Height    int       `yaml:"height"`
	Clear     string    `yaml:"clear"`
	Transform Transform `yaml:"transform"`
	Lines     []Line    `yaml:"lines"`
}

// Transform is applied to every line before the aspect-correcting view.
type Transform struct {
	Rotate    float32    `yaml:"rotate"`
	Scale     float32    `yaml:"scale"`
	Translate [3]float32 `yaml:"translate"`
}

// Line is one batch. Without polyline, points are consumed in pairs.
type Line struct {
	Color    string       `yaml:"color"`
	Polyline bool         `yaml:"polyline"`
	Points   [][3]float32 `yaml:"points"`
}

// Matrix returns translate * rotate * scale.
func (t Transform) Matrix() mgl32.Mat4 {
	scale := t.Scale
	if scale == 0 {
		scale = 1
	}
	return mgl32.Translate3D(t.Translate[0], t.Translate[1], t.Translate[2]).
		Mul4(mgl32.HomogRotate3DZ(mgl32.DegToRad(t.Rotate))).
		Mul4(mgl32.Scale3D(scale, scale, scale))
}

// Load reads and parses a scene file.
func Load(path string) (Scene, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return Scene{}, fmt.Errorf("read scene: %w", err)
	}
	return Parse(data)
}

// Parse parses scene YAML and validates it.
func Parse(data []byte) (Scene, error) {
	var s Scene
	if err := yaml.Unmarshal(data, &s); err != nil {
		return Scene{}, fmt.Errorf("parse scene: %w", err)
	}
	if s.Width < 0 || s.Height < 0 {
		return Scene{}, errors.New("scene size must not be negative")
	}
	for i, l := range s.Lines {
		if _, err := l.RGBA(); err != nil {
			return Scene{}, fmt.Errorf("line %d: %w", i, err)
		}
	}
	if _, err := s.ClearColor(); err != nil {
		return Scene{}, fmt.Errorf("clear: %w", err)
	}
	return s, nil
}

// RGBA returns the line color. An empty color is white.
func (l Line) RGBA() (aaline.RGBA, error) {
	if l.Color == "" {
		return aaline.White, nil
	}
	return aaline.ParseHex(l.Color)
}

// ClearColor returns the background color. An empty value selects
// aaline.DefaultClearColor.
func (s Scene) ClearColor() (aaline.RGBA, error) {
	if s.Clear == "" {
		return aaline.DefaultClearColor, nil
	}
	return aaline.ParseHex(s.Clear)
}

// Queue submits every line of the scene to r.
func (s Scene) Queue(r *aaline.LineRenderer) {
	for _, l := range s.Lines {
		c, _ := l.RGBA() // validated by Parse
		path := make([]mgl32.Vec3, len(l.Points))
		for i, p := range l.Points {
			path[i] = mgl32.Vec3(p)
		}
		if l.Polyline {
			r.DrawPolyline(path, c)
		} else {
			r.DrawLine(path, c)
		}
	}
}

// Default is a star of spokes with a polyline ring, drawn when no scene
// file is given.
func Default() Scene {
	s := Scene{Width: 800, Height: 600}
	const spokes = 24
	ring := Line{Color: "#ffcc33", Polyline: true}
	for i := range spokes {
		a := float64(i) / spokes * 2 * math.Pi
		x, y := float32(0.8*math.Cos(a)), float32(0.8*math.Sin(a))
		hue := float64(i) / spokes
		s.Lines = append(s.Lines, Line{
			Color:  hexColor(aaline.RGB(0.5+0.5*hue, 0.3, 1-hue)),
			Points: [][3]float32{{0, 0, 0}, {x, y, 0}},
		})
		ring.Points = append(ring.Points, [3]float32{x * 0.6, y * 0.6, 0})
	}
	ring.Points = append(ring.Points, ring.Points[0])
	s.Lines = append(s.Lines, ring)
	return s
}

func hexColor(c aaline.RGBA) string {
	r, g, b := c.R*255+0.5, c.G*255+0.5, c.B*255+0.5
	return fmt.Sprintf("#%02x%02x%02x", uint8(r), uint8(g), uint8(b))
}
