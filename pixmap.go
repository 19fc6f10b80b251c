package aaline

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// Pixmap is a resolved RGBA8 render target, 4 bytes per pixel. Data, GetPixel
// and SetPixel use window coordinates: row 0 is window y = 0, the bottom of
// the image. The image.Image methods, ToImage and SavePNG present the usual
// top-down orientation.
type Pixmap struct {
	width  int
	height int
	data   []uint8
}

// NewPixmap creates a zeroed pixmap.
func NewPixmap(width, height int) *Pixmap {
	return &Pixmap{
		width:  width,
		height: height,
		data:   make([]uint8, width*height*4),
	}
}

// Width returns the width of the pixmap.
func (p *Pixmap) Width() int {
	return p.width
}

// Height returns the height of the pixmap.
func (p *Pixmap) Height() int {
	return p.height
}

// Data returns the raw pixel data.
func (p *Pixmap) Data() []uint8 {
	return p.data
}

// Stride returns the row stride in bytes.
func (p *Pixmap) Stride() int {
	return p.width * 4
}

// SetPixel sets the color of a single pixel.
func (p *Pixmap) SetPixel(x, y int, c RGBA) {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return
	}
	i := (y*p.width + x) * 4
	p.data[i+0] = unorm8(c.R)
	p.data[i+1] = unorm8(c.G)
	p.data[i+2] = unorm8(c.B)
	p.data[i+3] = unorm8(c.A)
}

// GetPixel returns the color of a single pixel.
func (p *Pixmap) GetPixel(x, y int) RGBA {
	if x < 0 || x >= p.width || y < 0 || y >= p.height {
		return Transparent
	}
	i := (y*p.width + x) * 4
	return RGBA{
		R: float64(p.data[i+0]) / 255,
		G: float64(p.data[i+1]) / 255,
		B: float64(p.data[i+2]) / 255,
		A: float64(p.data[i+3]) / 255,
	}
}

// Clear fills the entire pixmap with a color.
func (p *Pixmap) Clear(c RGBA) {
	r, g, b, a := unorm8(c.R), unorm8(c.G), unorm8(c.B), unorm8(c.A)
	for i := 0; i < len(p.data); i += 4 {
		p.data[i+0] = r
		p.data[i+1] = g
		p.data[i+2] = b
		p.data[i+3] = a
	}
}

// GPURenderTarget exposes the pixmap to an accelerator.
func (p *Pixmap) GPURenderTarget() GPURenderTarget {
	return GPURenderTarget{
		Data:   p.data,
		Width:  p.width,
		Height: p.height,
		Stride: p.Stride(),
	}
}

// ToImage converts the pixmap to a top-down image.NRGBA. Pixels are stored
// unpremultiplied, matching the blend equation the pipeline uses.
func (p *Pixmap) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, p.width, p.height))
	stride := p.Stride()
	for y := range p.height {
		src := p.data[(p.height-1-y)*stride : (p.height-y)*stride]
		copy(img.Pix[y*img.Stride:], src)
	}
	return img
}

// SavePNG saves the pixmap to a PNG file.
func (p *Pixmap) SavePNG(path string) error {
	f, err := os.Create(path) //nolint:gosec // path is user-provided intentionally
	if err != nil {
		return err
	}
	defer func() {
		_ = f.Close()
	}()

	return png.Encode(f, p.ToImage())
}

// At implements the image.Image interface. y grows downward.
func (p *Pixmap) At(x, y int) color.Color {
	return p.GetPixel(x, p.height-1-y).Color()
}

// Bounds implements the image.Image interface.
func (p *Pixmap) Bounds() image.Rectangle {
	return image.Rect(0, 0, p.width, p.height)
}

// ColorModel implements the image.Image interface.
func (p *Pixmap) ColorModel() color.Model {
	return color.NRGBAModel
}
