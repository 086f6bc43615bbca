// Package sdlio connects a CHIP-8 machine to SDL: a scaled window for the
// display, the keyboard for the hex keypad and a square wave for the beeper.
//
// Everything here expects to be running under sdl.Main and funnels SDL calls
// through sdl.Do so the VM can live on any goroutine.
package sdlio

import (
	"errors"
	"image"

	"github.com/jmchacon/chip8/display"
	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/translate"
	"github.com/veandco/go-sdl2/sdl"
)

var f = translate.From

// The usual mapping of the COSMAC VIP keypad onto the left of a QWERTY keyboard.
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var keymap = map[sdl.Scancode]uint8{
	sdl.SCANCODE_1: 0x1, sdl.SCANCODE_2: 0x2, sdl.SCANCODE_3: 0x3, sdl.SCANCODE_4: 0xC,
	sdl.SCANCODE_Q: 0x4, sdl.SCANCODE_W: 0x5, sdl.SCANCODE_E: 0x6, sdl.SCANCODE_R: 0xD,
	sdl.SCANCODE_A: 0x7, sdl.SCANCODE_S: 0x8, sdl.SCANCODE_D: 0x9, sdl.SCANCODE_F: 0xE,
	sdl.SCANCODE_Z: 0xA, sdl.SCANCODE_X: 0x0, sdl.SCANCODE_C: 0xB, sdl.SCANCODE_V: 0xF,
}

// Window is an SDL window the display is scaled into.
type Window struct {
	window  *sdl.Window
	surface *sdl.Surface
}

// Open initializes SDL and creates a window scale times the size of the display.
func Open(title string, scale int) (*Window, error) {
	if scale < 1 {
		return nil, errors.New(f("invalid scale %v", scale))
	}
	w := &Window{}
	var err error
	sdl.Do(func() {
		if err = sdl.Init(sdl.INIT_VIDEO | sdl.INIT_AUDIO | sdl.INIT_EVENTS); err != nil {
			return
		}
		w.window, err = sdl.CreateWindow(title, sdl.WINDOWPOS_UNDEFINED, sdl.WINDOWPOS_UNDEFINED, int32(display.Width*scale), int32(display.Height*scale), sdl.WINDOW_SHOWN)
		if err != nil {
			return
		}
		w.surface, err = w.window.GetSurface()
	})
	if err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

// FrameDone is handed to display.New. It scales the frame over the whole
// window and shows it.
func (w *Window) FrameDone(img *image.NRGBA) {
	sdl.Do(func() {
		display.Scale(w.surface, img)
		w.window.UpdateSurface()
	})
}

// Close tears down the window and SDL.
func (w *Window) Close() {
	sdl.Do(func() {
		if w.window != nil {
			w.window.Destroy()
		}
		sdl.Quit()
	})
}

var _ = io.Input(&Keyboard{})

// Keyboard turns SDL events into keypad events. Escape or closing the
// window is a quit.
type Keyboard struct{}

// Poll implements io.Input.
func (k *Keyboard) Poll() io.Event {
	var out io.Event
	sdl.Do(func() {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			if e, ok := translateEvent(ev); ok {
				out = e
				return
			}
		}
	})
	return out
}

func translateEvent(ev sdl.Event) (io.Event, bool) {
	switch e := ev.(type) {
	case *sdl.QuitEvent:
		return io.Event{Kind: io.EventQuit}, true
	case *sdl.KeyboardEvent:
		if e.Repeat != 0 {
			return io.Event{}, false
		}
		if e.Keysym.Scancode == sdl.SCANCODE_ESCAPE {
			return io.Event{Kind: io.EventQuit}, true
		}
		key, ok := keymap[e.Keysym.Scancode]
		if !ok {
			return io.Event{}, false
		}
		return io.Event{Kind: io.EventKey, Key: key, Pressed: e.State == sdl.PRESSED}, true
	}
	return io.Event{}, false
}

const (
	kSampleRate = 44100
	kToneHz     = 440
	kVolume     = 0x20
)

var _ = io.Beeper(&Beeper{})

// Beeper queues a square wave on an SDL audio device while playing.
type Beeper struct {
	dev     sdl.AudioDeviceID
	tone    []byte // One second of the wave.
	playing bool
}

// OpenBeeper opens the default audio device. Open must have been called first.
func OpenBeeper() (*Beeper, error) {
	b := &Beeper{}
	var err error
	sdl.Do(func() {
		spec := &sdl.AudioSpec{
			Freq:     kSampleRate,
			Format:   sdl.AUDIO_U8,
			Channels: 1,
			Samples:  1024,
		}
		b.dev, err = sdl.OpenAudioDevice("", false, spec, nil, 0)
	})
	if err != nil {
		return nil, err
	}
	b.tone = make([]byte, kSampleRate)
	period := kSampleRate / kToneHz
	for i := range b.tone {
		b.tone[i] = 0x80 - kVolume
		if i%period < period/2 {
			b.tone[i] = 0x80 + kVolume
		}
	}
	return b, nil
}

// Play implements io.Beeper. Called every frame while the sound timer runs
// so it also keeps the queue topped up.
func (b *Beeper) Play() {
	sdl.Do(func() {
		if sdl.GetQueuedAudioSize(b.dev) < uint32(len(b.tone)/4) {
			sdl.QueueAudio(b.dev, b.tone)
		}
		if !b.playing {
			sdl.PauseAudioDevice(b.dev, false)
			b.playing = true
		}
	})
}

// Pause implements io.Beeper.
func (b *Beeper) Pause() {
	sdl.Do(func() {
		if b.playing {
			sdl.PauseAudioDevice(b.dev, true)
			sdl.ClearQueuedAudio(b.dev)
			b.playing = false
		}
	})
}

// Close releases the audio device.
func (b *Beeper) Close() {
	sdl.Do(func() {
		sdl.CloseAudioDevice(b.dev)
	})
}
