package display

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/go-test/deep"
)

var (
	testImageDir    = flag.String("test_image_dir", "", "If set will generate images from tests to this directory")
	testImageScaler = flag.Int("test_image_scaler", 8, "The amount to rescale the output PNGs")
)

// generateImage returns a frameDone callback which counts frames and
// optionally writes each one out as a PNG.
func generateImage(t *testing.T, name string, cnt *int) func(i *image.NRGBA) {
	return func(i *image.NRGBA) {
		defer func() { *cnt++ }()
		if *testImageDir == "" {
			return
		}
		d := image.NewNRGBA(image.Rect(0, 0, Width**testImageScaler, Height**testImageScaler))
		Scale(d, i)
		o, err := os.Create(filepath.Join(*testImageDir, fmt.Sprintf("%s%.6d.png", name, *cnt)))
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		defer o.Close()
		if err := png.Encode(o, d); err != nil {
			t.Fatalf("%s: %v", name, err)
		}
	}
}

func TestNew(t *testing.T) {
	fb := New(nil)
	if fb.Dirty() {
		t.Errorf("new framebuffer is dirty")
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			if fb.Pixel(x, y) {
				t.Fatalf("pixel %d,%d on at start", x, y)
			}
			if got, want := fb.Image().NRGBAAt(x, y), *kOff; got != want {
				t.Fatalf("image %d,%d got %v want %v", x, y, got, want)
			}
		}
	}
	// Refresh with no callback is fine.
	fb.Refresh()
	if got, want := fb.Frames(), 1; got != want {
		t.Errorf("Frames got %d want %d", got, want)
	}
}

func TestPixels(t *testing.T) {
	fb := New(nil)
	fb.SetPixel(0, 0, true)
	fb.SetPixel(63, 31, true)
	fb.SetPixel(-1, 0, true)
	fb.SetPixel(64, 0, true)
	fb.SetPixel(0, 32, true)
	if !fb.Pixel(0, 0) || !fb.Pixel(63, 31) {
		t.Errorf("corner pixels not set:\n%s", fb)
	}
	for _, p := range [][2]int{{-1, 0}, {64, 0}, {0, 32}, {0, -1}} {
		if fb.Pixel(p[0], p[1]) {
			t.Errorf("pixel %d,%d off the grid reads on", p[0], p[1])
		}
	}
	// SetPixel alone doesn't ask for a redraw, that's up to the caller.
	if fb.Dirty() {
		t.Errorf("SetPixel marked the display dirty")
	}
	fb.RequestRedraw()
	if !fb.Dirty() {
		t.Errorf("RequestRedraw didn't mark the display dirty")
	}
	fb.Refresh()
	if fb.Dirty() {
		t.Errorf("Refresh left the display dirty")
	}
	fb.Clear()
	if fb.Pixel(0, 0) || fb.Pixel(63, 31) {
		t.Errorf("Clear left pixels on:\n%s", fb)
	}
	if !fb.Dirty() {
		t.Errorf("Clear didn't mark the display dirty")
	}
}

func TestRefresh(t *testing.T) {
	cnt := 0
	fb := New(generateImage(t, t.Name(), &cnt))
	// A checkerboard so every cell is exercised both ways.
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			fb.SetPixel(x, y, (x+y)%2 == 0)
		}
	}
	// Image doesn't change until Refresh.
	if got, want := fb.Image().NRGBAAt(0, 0), *kOff; got != want {
		t.Errorf("image updated before Refresh: got %v want %v", got, want)
	}
	fb.RequestRedraw()
	fb.Refresh()
	if got, want := cnt, 1; got != want {
		t.Fatalf("frameDone called %d times want %d", got, want)
	}
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			want := *kOff
			if (x+y)%2 == 0 {
				want = *kOn
			}
			if got := fb.Image().NRGBAAt(x, y); got != want {
				t.Fatalf("image %d,%d got %v want %v", x, y, got, want)
			}
		}
	}
	fb.Clear()
	fb.Refresh()
	if got, want := fb.Frames(), 2; got != want {
		t.Errorf("Frames got %d want %d", got, want)
	}
}

func TestString(t *testing.T) {
	fb := New(nil)
	fb.SetPixel(1, 0, true)
	fb.SetPixel(0, 1, true)
	rows := strings.Split(fb.String(), "\n")
	// Trailing newline leaves an empty last element.
	if got, want := len(rows), Height+1; got != want {
		t.Fatalf("got %d rows want %d", got, want)
	}
	want := []string{
		"." + "#" + strings.Repeat(".", Width-2),
		"#" + strings.Repeat(".", Width-1),
		strings.Repeat(".", Width),
	}
	if diff := deep.Equal(rows[:3], want); diff != nil {
		t.Errorf("String() rows differ: %v\n%s", diff, spew.Sdump(rows[:3]))
	}
}

func TestScale(t *testing.T) {
	fb := New(nil)
	fb.SetPixel(1, 1, true)
	fb.Refresh()
	d := image.NewNRGBA(image.Rect(0, 0, Width*4, Height*4))
	Scale(d, fb.Image())
	tests := []struct {
		x, y int
		want color.NRGBA
	}{
		{0, 0, *kOff},
		{3, 3, *kOff},
		{4, 4, *kOn},
		{7, 7, *kOn},
		{8, 8, *kOff},
		{Width*4 - 1, Height*4 - 1, *kOff},
	}
	for _, test := range tests {
		if got := d.NRGBAAt(test.x, test.y); got != test.want {
			t.Errorf("scaled %d,%d got %v want %v", test.x, test.y, got, test.want)
		}
	}
}
