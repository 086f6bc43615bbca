// Package disassemble implements a disassembler for CHIP-8 opcodes
package disassemble

import (
	"fmt"

	"github.com/jmchacon/chip8/cpu"
	"github.com/jmchacon/chip8/memory"
)

// Word returns the disassembly line for an instruction word fetched from pc.
// Lines look like:
//
//	0200 6005  LD V0, #05
func Word(pc uint16, word uint16) string {
	return fmt.Sprintf("%.4X %.4X  %s", pc, word, cpu.Decode(word))
}

// Step will take the given PC value and disassemble the instruction at that location
// returning a string for the disassembly and the bytes forward the PC should move to get to
// the next instruction. This does not interpret the instructions so LD, JP, LD in memory
// will disassemble as that sequence and not follow the JP.
// If the word runs off the end of memory whatever can be read is printed as a data byte.
func Step(pc uint16, r memory.Bank) (string, int) {
	hi, err := r.Read(pc)
	if err != nil {
		return fmt.Sprintf("%.4X ????  ; %v", pc, err), 2
	}
	lo, err := r.Read(pc + 1)
	if err != nil {
		return fmt.Sprintf("%.4X %.2X    DB #%.2X", pc, hi, hi), 1
	}
	return Word(pc, uint16(hi)<<8|uint16(lo)), 2
}
