// Package io defines the narrow contracts between the CHIP-8
// interpreter and the outside world: a 64x32 monochrome display,
// a 16 key hex keypad and a beeper. The interpreter only flips
// cell state and reads key state, how those map onto a real
// window, keyboard or speaker is up to the implementor.
package io

const (
	DisplayWidth  = 64
	DisplayHeight = 32
	NumKeys       = 16
)

// Display is the logical cell grid sprites are drawn onto.
type Display interface {
	// Clear turns every cell off and marks the display dirty.
	Clear()
	// Pixel returns the state of the cell at x,y.
	Pixel(x, y int) bool
	// SetPixel sets the cell at x,y.
	SetPixel(x, y int, on bool)
	// RequestRedraw marks the display dirty. The grid is only rendered
	// at the end of a frame.
	RequestRedraw()
	// Dirty reports whether a redraw was requested since the last Refresh.
	Dirty() bool
	// Refresh renders the grid and clears the dirty mark.
	Refresh()
}

// Keypad is the view of the hex keypad the CPU uses.
type Keypad interface {
	// IsPressed returns true if key is currently held. Keys past 0xF are never held.
	IsPressed(key uint8) bool
	// AnyPressed returns the lowest held key if there is one.
	AnyPressed() (uint8, bool)
}

// EventKind enumerates what Poll can return.
type EventKind int

const (
	EventNone EventKind = iota // Nothing pending.
	EventKey                   // A key changed state.
	EventQuit                  // The user asked to stop.
)

// Event is a single input event.
type Event struct {
	Kind    EventKind
	Key     uint8 // Logical key 0x0-0xF for EventKey.
	Pressed bool  // true == pressed, false == released.
}

// Input is a source of keypad and quit events.
type Input interface {
	// Poll returns the next pending event without blocking, or an EventNone
	// event once drained.
	Poll() Event
}

// Beeper plays a tone while the sound timer is non-zero.
// Both calls are idempotent.
type Beeper interface {
	Play()
	Pause()
}
