// Package display implements the CHIP-8 64x32 monochrome framebuffer.
// Cells only change through Clear and SetPixel. Rendering into an image
// happens once per frame on Refresh, and only when something asked for it.
package display

import (
	"image"
	"image/color"
	"strings"

	"github.com/jmchacon/chip8/io"
	"golang.org/x/image/draw"
)

const (
	Width  = io.DisplayWidth
	Height = io.DisplayHeight
)

var (
	kOn  = &color.NRGBA{0xFF, 0xFF, 0xFF, 0xFF}
	kOff = &color.NRGBA{0x00, 0x00, 0x00, 0xFF}
)

var _ = io.Display(&Framebuffer{})

// Framebuffer is the cell grid plus the rendered picture of it.
type Framebuffer struct {
	cells     [Width * Height]bool
	dirty     bool
	picture   *image.NRGBA // The in memory representation of a single frame.
	frameDone func(*image.NRGBA)
	frames    int
}

// New returns a cleared framebuffer. frameDone (which may be nil) is called
// from Refresh with the rendered frame. The image is reused between frames so
// callers that need to keep it must copy it.
func New(frameDone func(*image.NRGBA)) *Framebuffer {
	fb := &Framebuffer{
		picture:   image.NewNRGBA(image.Rect(0, 0, Width, Height)),
		frameDone: frameDone,
	}
	fb.render()
	return fb
}

// Clear implements io.Display.
func (fb *Framebuffer) Clear() {
	fb.cells = [Width * Height]bool{}
	fb.dirty = true
}

// Pixel implements io.Display. Coordinates off the grid read as off.
func (fb *Framebuffer) Pixel(x, y int) bool {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return false
	}
	return fb.cells[y*Width+x]
}

// SetPixel implements io.Display. Coordinates off the grid are ignored.
func (fb *Framebuffer) SetPixel(x, y int, on bool) {
	if x < 0 || x >= Width || y < 0 || y >= Height {
		return
	}
	fb.cells[y*Width+x] = on
}

// RequestRedraw implements io.Display.
func (fb *Framebuffer) RequestRedraw() {
	fb.dirty = true
}

// Dirty implements io.Display.
func (fb *Framebuffer) Dirty() bool {
	return fb.dirty
}

// Refresh implements io.Display.
func (fb *Framebuffer) Refresh() {
	fb.render()
	fb.dirty = false
	fb.frames++
	if fb.frameDone != nil {
		fb.frameDone(fb.picture)
	}
}

// Frames returns how many times Refresh has rendered.
func (fb *Framebuffer) Frames() int {
	return fb.frames
}

// Image returns the most recently rendered picture.
func (fb *Framebuffer) Image() *image.NRGBA {
	return fb.picture
}

func (fb *Framebuffer) render() {
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			c := kOff
			if fb.cells[y*Width+x] {
				c = kOn
			}
			fb.picture.SetNRGBA(x, y, *c)
		}
	}
}

// String renders the grid as rows of '#' (on) and '.' (off).
func (fb *Framebuffer) String() string {
	var b strings.Builder
	b.Grow((Width + 1) * Height)
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if fb.cells[y*Width+x] {
				b.WriteByte('#')
			} else {
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Scale draws src over all of dst using nearest neighbour scaling so the
// cells stay crisp at any window size.
func Scale(dst draw.Image, src image.Image) {
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
}
