// Package cpu defines the CHIP-8 architecture and provides
// the methods needed to run the interpreter and interface with it
// for emulation.
package cpu

import (
	"errors"
	"log"
	"math/rand"
	"time"

	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/memory"
	"github.com/jmchacon/chip8/timer"
	"github.com/jmchacon/chip8/translate"
)

var f = translate.From

const (
	StackDepth = 16             // Max nested subroutine calls.
	FlagReg    = 0xF            // VF doubles as the carry/borrow/collision flag.
	IndexLimit = uint16(0x1000) // Fx1E sets VF once I reaches this.
)

// Quirks selects between the historical interpreter behaviors. The zero value
// is the CHIP-48 behavior most modern programs expect.
type Quirks struct {
	// ShiftUsesVY makes 8xy6/8xyE shift Vy and store into Vx (original COSMAC VIP)
	// instead of shifting Vx in place.
	ShiftUsesVY bool
	// LoadStoreIncrementsIndex makes Fx55/Fx65 leave I pointing past the
	// last byte transferred (I += x + 1) instead of leaving it alone.
	LoadStoreIncrementsIndex bool
	// WrapSprites makes Dxyn wrap pixels around the screen edges instead of clipping.
	WrapSprites bool
	// JumpUsesVX makes Bxnn jump to xnn + Vx instead of nnn + V0.
	JumpUsesVX bool
	// LogicResetsFlag makes 8xy1/8xy2/8xy3 clear VF.
	LogicResetsFlag bool
}

// A few custom error types to distinguish why the CPU stopped

// UnimplementedOpcode represents an instruction word outside the instruction set.
// It's not fatal: the PC has already moved past the word and stepping may continue.
type UnimplementedOpcode struct {
	Opcode uint16
	PC     uint16 // Address the word was fetched from.
}

// Error implements the interface for error types.
func (e UnimplementedOpcode) Error() string {
	return f("0x%.4X at 0x%.4X is an unimplemented opcode", e.Opcode, e.PC)
}

// StackOverflow is returned when a CALL would exceed StackDepth.
type StackOverflow struct {
	PC uint16
}

// Error implements the interface for error types.
func (e StackOverflow) Error() string {
	return f("stack overflow at 0x%.4X", e.PC)
}

// StackUnderflow is returned on a RET with nothing on the stack.
type StackUnderflow struct {
	PC uint16
}

// Error implements the interface for error types.
func (e StackUnderflow) Error() string {
	return f("stack underflow at 0x%.4X", e.PC)
}

// MemoryFault wraps a memory error hit while executing the instruction at PC.
type MemoryFault struct {
	PC  uint16
	Err error
}

// Error implements the interface for error types.
func (e MemoryFault) Error() string {
	return f("memory fault at 0x%.4X: %v", e.PC, e.Err)
}

// Unwrap returns the underlying memory error.
func (e MemoryFault) Unwrap() error {
	return e.Err
}

// IsFatal returns true for errors which halt the CPU. Unimplemented opcodes
// are left to the caller to decide.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var u UnimplementedOpcode
	return !errors.As(err, &u)
}

// Chip is the complete register file plus the collaborators the
// instructions reach out to.
type Chip struct {
	V     [16]uint8          // General purpose registers, VF is the flag.
	I     uint16             // Index register.
	PC    uint16             // Program counter.
	Stack [StackDepth]uint16 // Return addresses.
	SP    uint8              // Number of entries on Stack.
	Delay timer.Countdown    // Delay timer.
	Sound timer.Countdown    // Sound timer, a tone plays while non-zero.

	Ram     memory.Bank
	display io.Display
	keys    io.Keypad
	quirks  Quirks
	rand    *rand.Rand
	debug   bool
	halted  bool  // If stopped due to a fatal error.
	haltErr error // Error that caused the halt.
}

// ChipDef defines the pieces needed to setup a CHIP-8 CPU.
type ChipDef struct {
	// Ram is the memory the CPU executes from. Must be non-nil.
	Ram memory.Bank
	// Display receives sprite draws and clears. Must be non-nil.
	Display io.Display
	// Keys is consulted by the key skip/wait instructions. Must be non-nil.
	Keys io.Keypad
	// Quirks selects historical behavior variants.
	Quirks Quirks
	// Rand is the source for Cxnn. If nil a time seeded source is used.
	Rand *rand.Rand
	// Debug logs every executed instruction.
	Debug bool
}

// Init will create a new CPU and return it in powered on state.
// The memory passed in will also be powered on.
func Init(def *ChipDef) (*Chip, error) {
	if def.Ram == nil {
		return nil, errors.New(f("Ram must be non-nil"))
	}
	if def.Display == nil {
		return nil, errors.New(f("Display must be non-nil"))
	}
	if def.Keys == nil {
		return nil, errors.New(f("Keys must be non-nil"))
	}
	r := def.Rand
	if r == nil {
		r = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	c := &Chip{
		Ram:     def.Ram,
		display: def.Display,
		keys:    def.Keys,
		quirks:  def.Quirks,
		rand:    r,
		debug:   def.Debug,
	}
	c.Ram.PowerOn()
	c.PowerOn()
	return c, nil
}

// PowerOn resets the CPU to its power on state. Registers, stack and timers
// are zero and the PC points at the start of the program. Memory is left alone.
func (c *Chip) PowerOn() {
	c.V = [16]uint8{}
	c.I = 0
	c.PC = memory.ProgramStart
	c.Stack = [StackDepth]uint16{}
	c.SP = 0
	c.Delay.Set(0)
	c.Sound.Set(0)
	c.halted = false
	c.haltErr = nil
}

// Halted returns true once a fatal error stopped the CPU.
func (c *Chip) Halted() bool {
	return c.halted
}

// TickTimers decrements the delay and sound timers. Call at 60Hz.
func (c *Chip) TickTimers() {
	c.Delay.Tick()
	c.Sound.Tick()
}

// Step executes exactly one instruction. A nil return means keep going.
// Fatal errors (see IsFatal) halt the CPU and every later Step returns the same
// error without doing anything.
func (c *Chip) Step() error {
	// Fast path if halted. The PC won't advance. i.e. we just keep returning the same error.
	if c.halted {
		return c.haltErr
	}

	pc := c.PC
	word, err := c.fetch(pc)
	if err != nil {
		return c.halt(MemoryFault{pc, err})
	}
	// PC always moves past the instruction before anything else looks at it.
	c.PC += 2

	in := Decode(word)
	if c.debug {
		log.Printf("%.4X %.4X  %-18s V:% X I:%.4X SP:%d DT:%.2X ST:%.2X", pc, word, in, c.V, c.I, c.SP, c.Delay.Value(), c.Sound.Value())
	}

	if err := c.execute(pc, in); err != nil {
		if IsFatal(err) {
			return c.halt(err)
		}
		return err
	}
	return nil
}

func (c *Chip) halt(err error) error {
	c.halted = true
	c.haltErr = err
	return err
}

func (c *Chip) fetch(addr uint16) (uint16, error) {
	hi, err := c.Ram.Read(addr)
	if err != nil {
		return 0, err
	}
	lo, err := c.Ram.Read(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

func (c *Chip) skipIf(cond bool) {
	if cond {
		c.PC += 2
	}
}

func bit(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// execute dispatches one decoded instruction. pc is the address it was fetched
// from (c.PC has already moved on).
func (c *Chip) execute(pc uint16, in Instruction) error {
	x, y := in.X, in.Y

	switch in.Op {
	case OpCLS:
		c.display.Clear()
		c.display.RequestRedraw()
	case OpRET:
		if c.SP == 0 {
			return StackUnderflow{pc}
		}
		c.SP--
		c.PC = c.Stack[c.SP]
	case OpJP:
		c.PC = in.NNN
	case OpCALL:
		if int(c.SP) >= StackDepth {
			return StackOverflow{pc}
		}
		c.Stack[c.SP] = c.PC
		c.SP++
		c.PC = in.NNN
	case OpSEI:
		c.skipIf(c.V[x] == in.NN)
	case OpSNEI:
		c.skipIf(c.V[x] != in.NN)
	case OpSE:
		c.skipIf(c.V[x] == c.V[y])
	case OpLDI:
		c.V[x] = in.NN
	case OpADDI:
		c.V[x] += in.NN
	case OpLD, OpOR, OpAND, OpXOR, OpADD, OpSUB, OpSHR, OpSUBN, OpSHL:
		c.alu(in)
	case OpSNE:
		c.skipIf(c.V[x] != c.V[y])
	case OpLDIDX:
		c.I = in.NNN
	case OpJPV0:
		if c.quirks.JumpUsesVX {
			c.PC = in.NNN + uint16(c.V[x])
			break
		}
		c.PC = in.NNN + uint16(c.V[0])
	case OpRND:
		c.V[x] = uint8(c.rand.Intn(256)) & in.NN
	case OpDRW:
		return c.draw(pc, in)
	case OpSKP:
		c.skipIf(c.keys.IsPressed(c.V[x]))
	case OpSKNP:
		c.skipIf(!c.keys.IsPressed(c.V[x]))
	case OpLDVDT:
		c.V[x] = c.Delay.Value()
	case OpLDK:
		k, ok := c.keys.AnyPressed()
		if !ok {
			// Run this instruction again next time so timers and input keep moving.
			c.PC -= 2
			break
		}
		c.V[x] = k
	case OpLDDT:
		c.Delay.Set(c.V[x])
	case OpLDST:
		c.Sound.Set(c.V[x])
	case OpADDIDX:
		i := c.I + uint16(c.V[x])
		c.I = i
		c.V[FlagReg] = bit(i >= IndexLimit)
	case OpLDF:
		c.I = memory.Glyph(c.V[x])
	case OpBCD:
		return c.bcd(pc, c.V[x])
	case OpSTORE:
		return c.store(pc, x)
	case OpLOAD:
		return c.load(pc, x)
	default:
		return UnimplementedOpcode{in.Word, pc}
	}
	return nil
}

// alu runs the 8xyN group. Every case computes the result and flag from the
// original operands before writing either, and the flag is always written last
// so x == 0xF ends up holding the flag.
func (c *Chip) alu(in Instruction) {
	vx, vy := c.V[in.X], c.V[in.Y]
	var res, flag uint8
	setFlag := true

	switch in.Op {
	case OpLD:
		res, setFlag = vy, false
	case OpOR, OpAND, OpXOR:
		switch in.Op {
		case OpOR:
			res = vx | vy
		case OpAND:
			res = vx & vy
		case OpXOR:
			res = vx ^ vy
		}
		// flag stays 0 for the COSMAC behavior.
		setFlag = c.quirks.LogicResetsFlag
	case OpADD:
		sum := uint16(vx) + uint16(vy)
		res, flag = uint8(sum), bit(sum > 0xFF)
	case OpSUB:
		res, flag = vx-vy, bit(vx >= vy)
	case OpSUBN:
		res, flag = vy-vx, bit(vy >= vx)
	case OpSHR:
		src := vx
		if c.quirks.ShiftUsesVY {
			src = vy
		}
		res, flag = src>>1, src&0x01
	case OpSHL:
		src := vx
		if c.quirks.ShiftUsesVY {
			src = vy
		}
		res, flag = src<<1, src>>7
	}

	c.V[in.X] = res
	if setFlag {
		c.V[FlagReg] = flag
	}
}

// draw implements Dxyn. Sprite rows are all read before the display is touched
// so a fault leaves the screen as it was.
func (c *Chip) draw(pc uint16, in Instruction) error {
	n := int(in.N)
	if err := memory.CheckRange(c.I, n); err != nil {
		return MemoryFault{pc, err}
	}
	sprite := make([]uint8, n)
	for i := range sprite {
		b, err := c.Ram.Read(c.I + uint16(i))
		if err != nil {
			return MemoryFault{pc, err}
		}
		sprite[i] = b
	}

	x0 := int(c.V[in.X]) % io.DisplayWidth
	y0 := int(c.V[in.Y]) % io.DisplayHeight
	collision := false
	for row, line := range sprite {
		y := y0 + row
		if y >= io.DisplayHeight {
			if !c.quirks.WrapSprites {
				break
			}
			y %= io.DisplayHeight
		}
		for col := 0; col < 8; col++ {
			x := x0 + col
			if x >= io.DisplayWidth {
				if !c.quirks.WrapSprites {
					break
				}
				x %= io.DisplayWidth
			}
			if line&(0x80>>col) == 0 {
				continue
			}
			if c.display.Pixel(x, y) {
				c.display.SetPixel(x, y, false)
				collision = true
			} else {
				c.display.SetPixel(x, y, true)
			}
		}
	}
	c.V[FlagReg] = bit(collision)
	c.display.RequestRedraw()
	return nil
}

func (c *Chip) bcd(pc uint16, v uint8) error {
	if err := memory.CheckRange(c.I, 3); err != nil {
		return MemoryFault{pc, err}
	}
	digits := [3]uint8{v / 100, (v / 10) % 10, v % 10}
	for i, d := range digits {
		if err := c.Ram.Write(c.I+uint16(i), d); err != nil {
			return MemoryFault{pc, err}
		}
	}
	return nil
}

func (c *Chip) store(pc uint16, x uint8) error {
	if err := memory.CheckRange(c.I, int(x)+1); err != nil {
		return MemoryFault{pc, err}
	}
	for r := uint8(0); r <= x; r++ {
		if err := c.Ram.Write(c.I+uint16(r), c.V[r]); err != nil {
			return MemoryFault{pc, err}
		}
	}
	if c.quirks.LoadStoreIncrementsIndex {
		c.I += uint16(x) + 1
	}
	return nil
}

func (c *Chip) load(pc uint16, x uint8) error {
	if err := memory.CheckRange(c.I, int(x)+1); err != nil {
		return MemoryFault{pc, err}
	}
	var vals [16]uint8
	for r := uint8(0); r <= x; r++ {
		b, err := c.Ram.Read(c.I + uint16(r))
		if err != nil {
			return MemoryFault{pc, err}
		}
		vals[r] = b
	}
	copy(c.V[:x+1], vals[:x+1])
	if c.quirks.LoadStoreIncrementsIndex {
		c.I += uint16(x) + 1
	}
	return nil
}
