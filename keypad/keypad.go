// Package keypad holds the state of the 16 key CHIP-8 hex keypad
// as folded from input events:
//
//	1 2 3 C
//	4 5 6 D
//	7 8 9 E
//	A 0 B F
package keypad

import (
	"github.com/jmchacon/chip8/io"
)

var _ = io.Keypad(&State{})

// State tracks which keys are currently held.
type State struct {
	keys [io.NumKeys]bool
}

// Apply folds a key event into the state. Other event kinds and keys
// outside 0x0-0xF are ignored.
func (s *State) Apply(ev io.Event) {
	if ev.Kind != io.EventKey || int(ev.Key) >= io.NumKeys {
		return
	}
	s.keys[ev.Key] = ev.Pressed
}

// IsPressed implements io.Keypad.
func (s *State) IsPressed(key uint8) bool {
	if int(key) >= io.NumKeys {
		return false
	}
	return s.keys[key]
}

// AnyPressed implements io.Keypad.
func (s *State) AnyPressed() (uint8, bool) {
	for k := range s.keys {
		if s.keys[k] {
			return uint8(k), true
		}
	}
	return 0, false
}

// Reset releases every key.
func (s *State) Reset() {
	s.keys = [io.NumKeys]bool{}
}
