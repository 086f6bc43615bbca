// Package termio runs a CHIP-8 machine inside a plain terminal. The display is
// drawn with half block characters (two pixel rows per text row), the keyboard
// is read in raw mode and the beeper rings the terminal bell.
//
// Terminals only report key presses so every press is held for a few frames
// and then released automatically.
package termio

import (
	"errors"
	"image"
	"os"
	"strings"

	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/translate"
	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

var f = translate.From

// DefaultHold is how many frames a key stays down after the terminal reports it.
const DefaultHold = 6

const (
	kEsc   = 0x1B
	kCtrlC = 0x03
)

// Same layout as the SDL frontend: 1234/QWER/ASDF/ZXCV.
var keymap = map[byte]uint8{
	'1': 0x1, '2': 0x2, '3': 0x3, '4': 0xC,
	'q': 0x4, 'w': 0x5, 'e': 0x6, 'r': 0xD,
	'a': 0x7, 's': 0x8, 'd': 0x9, 'f': 0xE,
	'z': 0xA, 'x': 0x0, 'c': 0xB, 'v': 0xF,
}

// KeyFor maps a byte read from the terminal to an event. Esc and Ctrl-C quit.
func KeyFor(b byte) (io.Event, bool) {
	switch b {
	case kEsc, kCtrlC:
		return io.Event{Kind: io.EventQuit}, true
	}
	if b >= 'A' && b <= 'Z' {
		b += 'a' - 'A'
	}
	k, ok := keymap[b]
	if !ok {
		return io.Event{}, false
	}
	return io.Event{Kind: io.EventKey, Key: k, Pressed: true}, true
}

// Terminal owns the tty while the machine runs.
type Terminal struct {
	input   *os.File
	output  *os.File
	canAttr unix.Termios
	rawAttr unix.Termios

	bytes   chan byte
	hold    int
	held    [io.NumKeys]int // Frames left before a release, 0 == up.
	pending []io.Event
	aged    bool // Held keys already aged during this drain.
	ringing bool
}

var (
	_ = io.Input(&Terminal{})
	_ = io.Beeper(&Terminal{})
)

// Open puts input into raw mode and starts reading it. hold is the number of
// frames a key stays pressed (DefaultHold if <= 0). Close must be called to
// give the terminal back.
func Open(input, output *os.File, hold int) (*Terminal, error) {
	if input == nil || output == nil {
		return nil, errors.New(f("termio needs both an input and an output file"))
	}
	t := newTerminal(make(chan byte, 64), hold)
	t.input = input
	t.output = output
	if err := termios.Tcgetattr(t.input.Fd(), &t.canAttr); err != nil {
		return nil, err
	}
	t.rawAttr = t.canAttr
	termios.Cfmakeraw(&t.rawAttr)
	if err := termios.Tcsetattr(t.input.Fd(), termios.TCSANOW, &t.rawAttr); err != nil {
		return nil, err
	}
	// Hide the cursor and clear the screen.
	t.output.WriteString("\x1b[?25l\x1b[2J")

	go func() {
		buf := make([]byte, 16)
		for {
			n, err := t.input.Read(buf)
			if err != nil {
				close(t.bytes)
				return
			}
			for _, b := range buf[:n] {
				t.bytes <- b
			}
		}
	}()
	return t, nil
}

func newTerminal(bytes chan byte, hold int) *Terminal {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Terminal{
		bytes: bytes,
		hold:  hold,
	}
}

// Close restores the terminal to the state Open found it in.
func (t *Terminal) Close() {
	t.output.WriteString("\x1b[?25h\r\n")
	termios.Tcsetattr(t.input.Fd(), termios.TCSANOW, &t.canAttr)
}

// Poll implements io.Input. Each full drain (ending in EventNone) counts as
// one frame for releasing held keys.
func (t *Terminal) Poll() io.Event {
	for {
		if len(t.pending) > 0 {
			ev := t.pending[0]
			t.pending = t.pending[1:]
			return ev
		}
		select {
		case b, ok := <-t.bytes:
			if !ok {
				// Input went away, nothing else will ever arrive.
				t.bytes = nil
				return io.Event{Kind: io.EventQuit}
			}
			ev, ok := KeyFor(b)
			if !ok {
				continue
			}
			if ev.Kind == io.EventKey {
				already := t.held[ev.Key] > 0
				// +1 since this drain will age it once already.
				t.held[ev.Key] = t.hold + 1
				if already {
					continue
				}
			}
			return ev
		default:
		}
		if t.aged {
			t.aged = false
			return io.Event{}
		}
		t.aged = true
		for k := range t.held {
			if t.held[k] == 0 {
				continue
			}
			t.held[k]--
			if t.held[k] == 0 {
				t.pending = append(t.pending, io.Event{Kind: io.EventKey, Key: uint8(k), Pressed: false})
			}
		}
	}
}

// Play implements io.Beeper. The bell rings once per tone.
func (t *Terminal) Play() {
	if !t.ringing {
		t.output.WriteString("\a")
		t.ringing = true
	}
}

// Pause implements io.Beeper.
func (t *Terminal) Pause() {
	t.ringing = false
}

// FrameDone is handed to display.New and redraws the whole screen.
func (t *Terminal) FrameDone(img *image.NRGBA) {
	t.output.WriteString("\x1b[H" + Render(img))
}

// Render converts img into rows of half blocks. Any pixel with a bright red
// channel counts as on. Rows end in \r\n since raw mode has no output processing.
func Render(img image.Image) string {
	b := img.Bounds()
	on := func(x, y int) bool {
		if y >= b.Max.Y {
			return false
		}
		r, _, _, _ := img.At(x, y).RGBA()
		return r > 0x8000
	}
	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top, bottom := on(x, y), on(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteByte(' ')
			}
		}
		sb.WriteString("\r\n")
	}
	return sb.String()
}
