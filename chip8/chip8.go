// Package chip8 is the main logic for pulling together a CHIP-8 virtual machine.
// The CPU, memory and display are implemented in other packages and most of the
// logic here is the frame scheduler that drives them: poll input, run a batch of
// instructions, tick the timers, drive the beeper and present the display.
package chip8

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/jmchacon/chip8/cpu"
	"github.com/jmchacon/chip8/disassemble"
	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/keypad"
	"github.com/jmchacon/chip8/memory"
	"github.com/jmchacon/chip8/translate"
)

var f = translate.From

const (
	FrameHz        = 60  // Timer and display rate.
	DefaultClockHz = 700 // Instructions per second when VMDef.ClockHz is 0.
)

// State is the scheduler state. Halted is terminal.
type State int

const (
	Running State = iota
	Halted
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Halted:
		return "Halted"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ErrQuit is returned once the input source asks to stop.
var ErrQuit = errors.New(f("quit requested"))

// VM is a complete CHIP-8 machine.
type VM struct {
	cpu       *cpu.Chip
	ram       *memory.Ram
	keys      *keypad.State
	display   io.Display
	input     io.Input
	beeper    io.Beeper
	perFrame  int
	ignoreBad bool
	state     State
	err       error // Why we halted.
	frames    uint64
}

// VMDef defines the pieces needed to setup a CHIP-8 machine.
type VMDef struct {
	// Rom is the program image loaded at 0x200. Must fit in the remaining memory.
	Rom []uint8
	// Display receives draw calls and is refreshed at most once per frame. Must be non-nil.
	Display io.Display
	// Input is drained at the start of every frame. Must be non-nil.
	Input io.Input
	// Beeper is played while the sound timer is non-zero. Must be non-nil.
	Beeper io.Beeper
	// Quirks selects historical instruction variants.
	Quirks cpu.Quirks
	// ClockHz is the instruction rate. 0 means DefaultClockHz.
	ClockHz int
	// IgnoreUnknownOpcodes keeps running past words outside the instruction set
	// (they're still logged). The default is to halt on them.
	IgnoreUnknownOpcodes bool
	// Rand is the source for the random instruction. If nil one is seeded from the clock.
	Rand *rand.Rand
	// Debug logs every instruction executed.
	Debug bool
}

// Init returns an initialized and powered on CHIP-8 machine with the ROM loaded.
func Init(def *VMDef) (*VM, error) {
	if def.Display == nil {
		return nil, errors.New(f("Display must be non-nil in def"))
	}
	if def.Input == nil {
		return nil, errors.New(f("Input must be non-nil in def"))
	}
	if def.Beeper == nil {
		return nil, errors.New(f("Beeper must be non-nil in def"))
	}
	if def.ClockHz < 0 {
		return nil, errors.New(f("invalid clock rate %v", def.ClockHz))
	}
	hz := def.ClockHz
	if hz == 0 {
		hz = DefaultClockHz
	}
	perFrame := hz / FrameHz
	if perFrame < 1 {
		perFrame = 1
	}

	vm := &VM{
		ram:       &memory.Ram{},
		keys:      &keypad.State{},
		display:   def.Display,
		input:     def.Input,
		beeper:    def.Beeper,
		perFrame:  perFrame,
		ignoreBad: def.IgnoreUnknownOpcodes,
		state:     Running,
	}
	c, err := cpu.Init(&cpu.ChipDef{
		Ram:     vm.ram,
		Display: def.Display,
		Keys:    vm.keys,
		Quirks:  def.Quirks,
		Rand:    def.Rand,
		Debug:   def.Debug,
	})
	if err != nil {
		return nil, errors.New(f("can't initialize cpu: %v", err))
	}
	vm.cpu = c
	// cpu.Init powered on memory so the program goes in afterwards.
	if err := vm.ram.Load(def.Rom); err != nil {
		return nil, err
	}
	return vm, nil
}

// Frame runs exactly one 60Hz frame. It returns nil while the machine should
// keep going, ErrQuit if the user asked to stop or the error which halted
// the machine. Once halted every later call returns the same error.
func (vm *VM) Frame() error {
	if vm.state == Halted {
		return vm.err
	}

	for {
		ev := vm.input.Poll()
		if ev.Kind == io.EventNone {
			break
		}
		if ev.Kind == io.EventQuit {
			return vm.halt(ErrQuit)
		}
		vm.keys.Apply(ev)
	}

	for i := 0; i < vm.perFrame; i++ {
		pc := vm.cpu.PC
		err := vm.cpu.Step()
		if err == nil {
			continue
		}
		if cpu.IsFatal(err) {
			return vm.halt(err)
		}
		word := uint16(0)
		var u cpu.UnimplementedOpcode
		if errors.As(err, &u) {
			word = u.Opcode
		}
		log.Printf("%s: %v", disassemble.Word(pc, word), err)
		if !vm.ignoreBad {
			return vm.halt(err)
		}
	}

	vm.cpu.TickTimers()
	if vm.cpu.Sound.Active() {
		vm.beeper.Play()
	} else {
		vm.beeper.Pause()
	}
	if vm.display.Dirty() {
		vm.display.Refresh()
	}
	vm.frames++
	return nil
}

func (vm *VM) halt(err error) error {
	vm.state = Halted
	vm.err = err
	// Don't leave a tone playing on the way out.
	vm.beeper.Pause()
	return err
}

// Run executes frames at FrameHz until the machine halts or ctx is done.
// A quit request returns nil, a fault returns the error that caused it.
func (vm *VM) Run(ctx context.Context) error {
	t := time.NewTicker(time.Second / FrameHz)
	defer t.Stop()
	for {
		if err := vm.Frame(); err != nil {
			if errors.Is(err, ErrQuit) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			vm.beeper.Pause()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// Cpu returns the underlying CPU.
func (vm *VM) Cpu() *cpu.Chip {
	return vm.cpu
}

// Memory returns the machine RAM.
func (vm *VM) Memory() *memory.Ram {
	return vm.ram
}

// Keys returns the current keypad state.
func (vm *VM) Keys() *keypad.State {
	return vm.keys
}

// State returns the scheduler state.
func (vm *VM) State() State {
	return vm.state
}

// Err returns the reason the machine halted (nil while running).
func (vm *VM) Err() error {
	return vm.err
}

// Frames returns the number of frames completed.
func (vm *VM) Frames() uint64 {
	return vm.frames
}

// InstructionsPerFrame returns the batch size derived from the clock rate.
func (vm *VM) InstructionsPerFrame() int {
	return vm.perFrame
}
