// disassembler takes a filename, loads it as a CHIP-8 ROM and then
// disassembles it to stdout starting at the first instruction.
// Every word is listed, so data mixed in with code shows up as
// whatever instruction it happens to decode to (or ??? if none).
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/jmchacon/chip8/disassemble"
	"github.com/jmchacon/chip8/memory"
)

var (
	startPC = flag.Int("start_pc", memory.ProgramStart, "PC value to start disassembling. Use an odd value to realign on data bytes.")
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 1 {
		log.Fatalf("Invalid command: %s [-start_pc <PC>] <filename>", os.Args[0])
	}
	fn := flag.Args()[0]

	b, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("Can't open %s - %v", fn, err)
	}
	r := &memory.Ram{}
	r.PowerOn()
	if err := r.Load(b); err != nil {
		log.Fatalf("Can't load %s - %v", fn, err)
	}
	end := memory.ProgramStart + len(b)
	if *startPC < 0 || *startPC >= end {
		log.Fatalf("start_pc 0x%.4X outside of the program (0x%.4X-0x%.4X)", *startPC, memory.ProgramStart, end-1)
	}

	pc := uint16(*startPC)
	fmt.Printf("0x%.2X bytes at pc: %.4X\n", len(b), pc)
	for int(pc) < end {
		dis, off := disassemble.Step(pc, r)
		pc += uint16(off)
		fmt.Printf("%s\n", dis)
	}
}
