package chip8_test

import (
	"context"
	"errors"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jmchacon/chip8/chip8"
	"github.com/jmchacon/chip8/cpu"
	"github.com/jmchacon/chip8/display"
	"github.com/jmchacon/chip8/io"
	"github.com/jmchacon/chip8/memory"
)

// scriptedInput hands back queued events then EventNone.
type scriptedInput struct {
	events []io.Event
}

func (s *scriptedInput) Poll() io.Event {
	if len(s.events) == 0 {
		return io.Event{}
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev
}

func (s *scriptedInput) push(ev ...io.Event) {
	s.events = append(s.events, ev...)
}

type countingBeeper struct {
	playing bool
	plays   int
	pauses  int
}

func (b *countingBeeper) Play() {
	b.playing = true
	b.plays++
}

func (b *countingBeeper) Pause() {
	b.playing = false
	b.pauses++
}

func words(w ...uint16) []uint8 {
	var out []uint8
	for _, v := range w {
		out = append(out, uint8(v>>8), uint8(v))
	}
	return out
}

var _ = Describe("VM", func() {
	var (
		fb     *display.Framebuffer
		input  *scriptedInput
		beeper *countingBeeper
		def    *chip8.VMDef
	)

	BeforeEach(func() {
		fb = display.New(nil)
		input = &scriptedInput{}
		beeper = &countingBeeper{}
		def = &chip8.VMDef{
			Display: fb,
			Input:   input,
			Beeper:  beeper,
			Rand:    rand.New(rand.NewSource(1)),
		}
	})

	newVM := func(rom ...uint16) *chip8.VM {
		def.Rom = words(rom...)
		vm, err := chip8.Init(def)
		Expect(err).NotTo(HaveOccurred())
		return vm
	}

	Describe("Init", func() {
		It("should reject missing collaborators", func() {
			_, err := chip8.Init(&chip8.VMDef{Input: input, Beeper: beeper})
			Expect(err).To(HaveOccurred())
			_, err = chip8.Init(&chip8.VMDef{Display: fb, Beeper: beeper})
			Expect(err).To(HaveOccurred())
			_, err = chip8.Init(&chip8.VMDef{Display: fb, Input: input})
			Expect(err).To(HaveOccurred())
		})

		It("should reject a negative clock", func() {
			def.ClockHz = -1
			_, err := chip8.Init(def)
			Expect(err).To(HaveOccurred())
		})

		It("should reject a ROM that doesn't fit", func() {
			def.Rom = make([]uint8, memory.MaxProgram+1)
			_, err := chip8.Init(def)
			var tl memory.RomTooLarge
			Expect(errors.As(err, &tl)).To(BeTrue())
			Expect(tl.Size).To(Equal(memory.MaxProgram + 1))
		})

		It("should load the ROM after the font", func() {
			vm := newVM(0x1234)
			b, err := vm.Memory().Read(memory.ProgramStart)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(uint8(0x12)))
			b, err = vm.Memory().Read(memory.FontStart)
			Expect(err).NotTo(HaveOccurred())
			Expect(b).To(Equal(memory.Font[0]))
			Expect(vm.Cpu().PC).To(Equal(uint16(memory.ProgramStart)))
			Expect(vm.State()).To(Equal(chip8.Running))
		})

		It("should derive the batch size from the clock", func() {
			Expect(newVM(0x1200).InstructionsPerFrame()).To(Equal(11))
			def.ClockHz = 1200
			Expect(newVM(0x1200).InstructionsPerFrame()).To(Equal(20))
			def.ClockHz = 30
			Expect(newVM(0x1200).InstructionsPerFrame()).To(Equal(1))
		})
	})

	Describe("Frame", func() {
		It("should run one batch of instructions per frame", func() {
			rom := make([]uint16, 0, 32)
			for i := 0; i < 30; i++ {
				rom = append(rom, 0x7001) // ADD V0, 1
			}
			vm := newVM(rom...)
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().V[0]).To(Equal(uint8(11)))
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().V[0]).To(Equal(uint8(22)))
			Expect(vm.Frames()).To(Equal(uint64(2)))
		})

		It("should count timers down once per frame and stop at zero", func() {
			// LD V0, 60 ; LD DT, V0 ; LD ST, V0 ; JP self
			vm := newVM(0x603C, 0xF015, 0xF018, 0x1206)
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().Delay.Value()).To(Equal(uint8(59)))
			Expect(beeper.playing).To(BeTrue())
			for i := 1; i < 59; i++ {
				Expect(vm.Frame()).To(Succeed())
			}
			Expect(vm.Cpu().Sound.Value()).To(Equal(uint8(1)))
			Expect(beeper.playing).To(BeTrue())
			Expect(beeper.plays).To(Equal(59))

			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().Delay.Value()).To(BeZero())
			Expect(vm.Cpu().Sound.Value()).To(BeZero())
			Expect(beeper.playing).To(BeFalse())

			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().Delay.Value()).To(BeZero())
		})

		It("should fold key events before running the batch", func() {
			// LD V3, K ; JP self
			vm := newVM(0xF30A, 0x1202)
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().PC).To(Equal(uint16(0x0200)))

			input.push(io.Event{Kind: io.EventKey, Key: 0x7, Pressed: true})
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Cpu().V[3]).To(Equal(uint8(0x7)))
			Expect(vm.Cpu().PC).To(Equal(uint16(0x0202)))
			Expect(vm.Keys().IsPressed(0x7)).To(BeTrue())

			input.push(io.Event{Kind: io.EventKey, Key: 0x7, Pressed: false})
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.Keys().IsPressed(0x7)).To(BeFalse())
		})

		It("should halt on quit and stay halted", func() {
			vm := newVM(0x1200)
			input.push(io.Event{Kind: io.EventQuit})
			Expect(vm.Frame()).To(MatchError(chip8.ErrQuit))
			Expect(vm.State()).To(Equal(chip8.Halted))
			Expect(vm.Err()).To(MatchError(chip8.ErrQuit))
			Expect(vm.Frame()).To(MatchError(chip8.ErrQuit))
			Expect(vm.Frames()).To(BeZero())
		})

		It("should halt on a fault", func() {
			// RET with nothing on the stack.
			vm := newVM(0x00EE)
			err := vm.Frame()
			var su cpu.StackUnderflow
			Expect(errors.As(err, &su)).To(BeTrue())
			Expect(su.PC).To(Equal(uint16(0x0200)))
			Expect(vm.State()).To(Equal(chip8.Halted))
			Expect(vm.Cpu().Halted()).To(BeTrue())
			Expect(vm.Frame()).To(Equal(err))
		})

		It("should silence the beeper when halting", func() {
			// LD V0, 60 ; LD ST, V0 ; JP self
			vm := newVM(0x603C, 0xF018, 0x1204)
			Expect(vm.Frame()).To(Succeed())
			Expect(beeper.playing).To(BeTrue())
			input.push(io.Event{Kind: io.EventQuit})
			Expect(vm.Frame()).To(MatchError(chip8.ErrQuit))
			Expect(beeper.playing).To(BeFalse())
		})

		It("should halt on an unknown opcode by default", func() {
			vm := newVM(0x6001, 0xFFFF, 0x6002)
			err := vm.Frame()
			var u cpu.UnimplementedOpcode
			Expect(errors.As(err, &u)).To(BeTrue())
			Expect(u.Opcode).To(Equal(uint16(0xFFFF)))
			Expect(u.PC).To(Equal(uint16(0x0202)))
			Expect(vm.State()).To(Equal(chip8.Halted))
			Expect(vm.Cpu().V[0]).To(Equal(uint8(1)))
		})

		It("should skip unknown opcodes when asked to", func() {
			def.IgnoreUnknownOpcodes = true
			vm := newVM(0x6001, 0xFFFF, 0x6002, 0x1206)
			Expect(vm.Frame()).To(Succeed())
			Expect(vm.State()).To(Equal(chip8.Running))
			Expect(vm.Cpu().V[0]).To(Equal(uint8(2)))
		})

		It("should only refresh the display when something changed", func() {
			// CLS ; JP self
			vm := newVM(0x00E0, 0x1202)
			Expect(vm.Frame()).To(Succeed())
			Expect(fb.Frames()).To(Equal(1))
			Expect(fb.Dirty()).To(BeFalse())
			Expect(vm.Frame()).To(Succeed())
			Expect(fb.Frames()).To(Equal(1))
		})

		It("should present a frame with the drawn sprite", func() {
			// LD V0, 5 ; LD F, V0 ; LD V1, 0 ; DRW V1, V1, 5 ; JP self
			vm := newVM(0x6005, 0xF029, 0x6100, 0xD115, 0x1208)
			Expect(vm.Frame()).To(Succeed())
			Expect(fb.Frames()).To(Equal(1))
			Expect(vm.Cpu().V[0xF]).To(BeZero())
			// Top row of the 5 glyph is 0xF0.
			for x := 0; x < 4; x++ {
				Expect(fb.Pixel(x, 0)).To(BeTrue())
			}
			Expect(fb.Pixel(4, 0)).To(BeFalse())
			Expect(fb.Image().NRGBAAt(0, 0).R).To(Equal(uint8(0xFF)))
		})
	})

	Describe("Run", func() {
		It("should return nil on quit", func() {
			vm := newVM(0x1200)
			input.push(io.Event{Kind: io.EventQuit})
			Expect(vm.Run(context.Background())).To(Succeed())
			Expect(vm.State()).To(Equal(chip8.Halted))
		})

		It("should return the fault that stopped it", func() {
			vm := newVM(0x00EE)
			err := vm.Run(context.Background())
			var su cpu.StackUnderflow
			Expect(errors.As(err, &su)).To(BeTrue())
		})

		It("should stop when the context is done", func() {
			vm := newVM(0x1200)
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			Expect(vm.Run(ctx)).To(MatchError(context.DeadlineExceeded))
			Expect(vm.Frames()).To(BeNumerically(">", 0))
			Expect(vm.State()).To(Equal(chip8.Running))
		})
	})
})
