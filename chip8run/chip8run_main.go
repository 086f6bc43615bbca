// chip8run loads a CHIP-8 ROM and runs it in an SDL window (or the terminal
// with -term) until it halts or the user quits.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bradleyjkemp/memviz"
	"github.com/davecgh/go-spew/spew"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/jmchacon/chip8/chip8"
	"github.com/jmchacon/chip8/cpu"
	"github.com/jmchacon/chip8/display"
	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/sdlio"
	"github.com/jmchacon/chip8/termio"
	"github.com/veandco/go-sdl2/sdl"
)

var (
	debug          = flag.Bool("debug", false, "If true will log every instruction and dump the machine state when it stops")
	term           = flag.Bool("term", false, "If true runs in the terminal instead of an SDL window")
	scale          = flag.Int("scale", 10, "Window pixels per CHIP-8 pixel")
	clock          = flag.Int("clock", chip8.DefaultClockHz, "Instructions executed per second")
	hold           = flag.Int("hold", termio.DefaultHold, "Frames a key stays pressed in terminal mode")
	shiftVY        = flag.Bool("shift_vy", false, "8xy6/8xyE shift VY into VX (COSMAC VIP)")
	indexIncrement = flag.Bool("index_increment", false, "Fx55/Fx65 advance I past the last register (COSMAC VIP)")
	wrap           = flag.Bool("wrap", false, "Sprites wrap around the screen edges instead of clipping")
	jumpVX         = flag.Bool("jump_vx", false, "Bxnn jumps to xnn + VX (CHIP-48)")
	logicVF        = flag.Bool("logic_vf", false, "8xy1/8xy2/8xy3 reset VF (COSMAC VIP)")
	ignoreUnknown  = flag.Bool("ignore_unknown", false, "Log and skip unknown opcodes instead of halting")
	stats          = flag.String("statsview", "", "If set (i.e. localhost:12600) serves runtime stats at /debug/statsview on this address")
	memvizOut      = flag.String("memviz", "", "If set writes a graphviz dot file of the machine to this path when it stops")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] <rom>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	// Luckily ROMs are so tiny by modern standards we just read it in.
	// Size is checked on load.
	rom, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Fatalf("Can't load rom: %v from path: %s", err, flag.Arg(0))
	}

	if *stats != "" {
		go func() {
			viewer.SetConfiguration(viewer.WithAddr(*stats))
			statsview.New().Start()
		}()
		log.Printf("stats server available at http://%s/debug/statsview", *stats)
	}

	if *term {
		os.Exit(runTerm(rom))
	}
	code := 0
	sdl.Main(func() {
		code = runSDL(rom)
	})
	os.Exit(code)
}

func runTerm(rom []uint8) int {
	t, err := termio.Open(os.Stdin, os.Stdout, *hold)
	if err != nil {
		log.Fatalf("Can't setup terminal: %v", err)
	}
	code := run(rom, display.New(t.FrameDone), t, t)
	t.Close()
	return code
}

func runSDL(rom []uint8) int {
	w, err := sdlio.Open("chip8", *scale)
	if err != nil {
		log.Fatalf("Can't init SDL: %v", err)
	}
	defer w.Close()
	b, err := sdlio.OpenBeeper()
	if err != nil {
		log.Fatalf("Can't open audio: %v", err)
	}
	defer b.Close()
	return run(rom, display.New(w.FrameDone), &sdlio.Keyboard{}, b)
}

// run executes the VM to completion and returns the exit code.
func run(rom []uint8, fb *display.Framebuffer, in io.Input, b io.Beeper) int {
	vm, err := chip8.Init(&chip8.VMDef{
		Rom:     rom,
		Display: fb,
		Input:   in,
		Beeper:  b,
		Quirks: cpu.Quirks{
			ShiftUsesVY:              *shiftVY,
			LoadStoreIncrementsIndex: *indexIncrement,
			WrapSprites:              *wrap,
			JumpUsesVX:               *jumpVX,
			LogicResetsFlag:          *logicVF,
		},
		ClockHz:              *clock,
		IgnoreUnknownOpcodes: *ignoreUnknown,
		Debug:                *debug,
	})
	if err != nil {
		log.Printf("Can't init VM: %v", err)
		return 1
	}

	err = vm.Run(context.Background())
	if *debug {
		log.Printf("Final state after %d frames:\n%s", vm.Frames(), spew.Sdump(vm.Cpu()))
	}
	if *memvizOut != "" {
		if err := writeMemviz(*memvizOut, vm); err != nil {
			log.Printf("Can't write memviz output: %v", err)
		}
	}
	if err != nil {
		log.Printf("Halted after %d frames: %v", vm.Frames(), err)
		return 2
	}
	return 0
}

func writeMemviz(path string, vm *chip8.VM) error {
	o, err := os.Create(path)
	if err != nil {
		return err
	}
	defer o.Close()
	memviz.Map(o, vm.Cpu())
	return nil
}
