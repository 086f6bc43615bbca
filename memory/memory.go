// Package memory defines the basic interfaces for working
// with the CHIP-8 4KiB address space along with the flat
// RAM implementation used by the VM. Unlike the original
// interpreters nothing wraps here: every access is bounds
// checked and an address past the end is an error.
package memory

import (
	"github.com/jmchacon/chip8/translate"
)

var f = translate.From

const (
	Size         = 4096   // Total addressable bytes.
	FontStart    = 0x0050 // First byte of the built-in hex font.
	ProgramStart = 0x0200 // Load address (and reset PC) for programs.
	GlyphSize    = 5      // Bytes per font glyph.

	// MaxProgram is the largest ROM that fits between ProgramStart and the end of RAM.
	MaxProgram = Size - ProgramStart
)

// Font holds the 16 hexadecimal glyphs (0-F), 5 rows of 8 pixels each
// of which only the upper nibble is used.
var Font = [16 * GlyphSize]uint8{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

type Bank interface {
	// Read returns the data byte stored at addr or an OutOfBounds error.
	Read(addr uint16) (uint8, error)
	// Write updates addr with the new value or returns an OutOfBounds error
	// leaving memory untouched.
	Write(addr uint16, val uint8) error
	// PowerOn performs power on reset of the memory. For CHIP-8 that means
	// all zeros except the font.
	PowerOn()
}

// OutOfBounds represents an access past the end of the address space.
type OutOfBounds struct {
	Addr uint16
}

// Error implements the interface for error types.
func (e OutOfBounds) Error() string {
	return f("address 0x%.4X out of bounds", e.Addr)
}

// RomTooLarge is returned by Load when the program can't fit in RAM.
type RomTooLarge struct {
	Size int
}

// Error implements the interface for error types.
func (e RomTooLarge) Error() string {
	return f("ROM of %v bytes exceeds the %v bytes available", e.Size, MaxProgram)
}

var _ = Bank(&Ram{})

// Ram is the flat 4KiB CHIP-8 memory.
type Ram struct {
	addr [Size]uint8
}

// Read implements the Bank interface.
func (r *Ram) Read(addr uint16) (uint8, error) {
	if int(addr) >= Size {
		return 0, OutOfBounds{addr}
	}
	return r.addr[addr], nil
}

// Write implements the Bank interface.
func (r *Ram) Write(addr uint16, val uint8) error {
	if int(addr) >= Size {
		return OutOfBounds{addr}
	}
	r.addr[addr] = val
	return nil
}

// PowerOn implements the Bank interface. RAM is zeroed and the font reloaded.
func (r *Ram) PowerOn() {
	for i := range r.addr {
		r.addr[i] = 0x00
	}
	copy(r.addr[FontStart:], Font[:])
}

// Load copies rom verbatim starting at ProgramStart.
func (r *Ram) Load(rom []uint8) error {
	if len(rom) > MaxProgram {
		return RomTooLarge{len(rom)}
	}
	copy(r.addr[ProgramStart:], rom)
	return nil
}

// Glyph returns the address of the font glyph for the low nibble of digit.
func Glyph(digit uint8) uint16 {
	return FontStart + uint16(digit&0x0F)*GlyphSize
}

// CheckRange verifies addr through addr+n-1 are all addressable so multi byte
// operations can fail before changing anything.
func CheckRange(addr uint16, n int) error {
	if n <= 0 {
		return nil
	}
	if end := int(addr) + n - 1; end >= Size {
		if int(addr) >= Size {
			return OutOfBounds{addr}
		}
		return OutOfBounds{uint16(end)}
	}
	return nil
}
