package cpu

import "fmt"

// Op is the tagged opcode a raw instruction word decodes to.
type Op int

const (
	OpUnknown Op = iota // Anything not in the instruction set.
	OpCLS               // 00E0 clear display
	OpRET               // 00EE return from subroutine
	OpJP                // 1nnn jump
	OpCALL              // 2nnn call subroutine
	OpSEI               // 3xnn skip if Vx == nn
	OpSNEI              // 4xnn skip if Vx != nn
	OpSE                // 5xy0 skip if Vx == Vy
	OpLDI               // 6xnn Vx = nn
	OpADDI              // 7xnn Vx += nn, no flag
	OpLD                // 8xy0 Vx = Vy
	OpOR                // 8xy1 Vx |= Vy
	OpAND               // 8xy2 Vx &= Vy
	OpXOR               // 8xy3 Vx ^= Vy
	OpADD               // 8xy4 Vx += Vy, VF = carry
	OpSUB               // 8xy5 Vx -= Vy, VF = no borrow
	OpSHR               // 8xy6 Vx >>= 1, VF = bit shifted out
	OpSUBN              // 8xy7 Vx = Vy - Vx, VF = no borrow
	OpSHL               // 8xyE Vx <<= 1, VF = bit shifted out
	OpSNE               // 9xy0 skip if Vx != Vy
	OpLDIDX             // Annn I = nnn
	OpJPV0              // Bnnn jump to nnn + V0
	OpRND               // Cxnn Vx = rand & nn
	OpDRW               // Dxyn draw sprite
	OpSKP               // Ex9E skip if key Vx held
	OpSKNP              // ExA1 skip if key Vx not held
	OpLDVDT             // Fx07 Vx = delay
	OpLDK               // Fx0A wait for key into Vx
	OpLDDT              // Fx15 delay = Vx
	OpLDST              // Fx18 sound = Vx
	OpADDIDX            // Fx1E I += Vx, VF = I >= 0x1000
	OpLDF               // Fx29 I = glyph for Vx
	OpBCD               // Fx33 BCD of Vx at I..I+2
	OpSTORE             // Fx55 mem[I..I+x] = V0..Vx
	OpLOAD              // Fx65 V0..Vx = mem[I..I+x]
	OpMax               // End of opcode enumerations.
)

var mnemonics = [OpMax]string{
	OpUnknown: "???",
	OpCLS:     "CLS",
	OpRET:     "RET",
	OpJP:      "JP",
	OpCALL:    "CALL",
	OpSEI:     "SE",
	OpSNEI:    "SNE",
	OpSE:      "SE",
	OpLDI:     "LD",
	OpADDI:    "ADD",
	OpLD:      "LD",
	OpOR:      "OR",
	OpAND:     "AND",
	OpXOR:     "XOR",
	OpADD:     "ADD",
	OpSUB:     "SUB",
	OpSHR:     "SHR",
	OpSUBN:    "SUBN",
	OpSHL:     "SHL",
	OpSNE:     "SNE",
	OpLDIDX:   "LD",
	OpJPV0:    "JP",
	OpRND:     "RND",
	OpDRW:     "DRW",
	OpSKP:     "SKP",
	OpSKNP:    "SKNP",
	OpLDVDT:   "LD",
	OpLDK:     "LD",
	OpLDDT:    "LD",
	OpLDST:    "LD",
	OpADDIDX:  "ADD",
	OpLDF:     "LD",
	OpBCD:     "LD",
	OpSTORE:   "LD",
	OpLOAD:    "LD",
}

// String returns the assembler mnemonic.
func (o Op) String() string {
	if o < OpUnknown || o >= OpMax {
		return mnemonics[OpUnknown]
	}
	return mnemonics[o]
}

// Instruction is a decoded instruction word. Every field is always filled in,
// which of them matter depends on Op.
type Instruction struct {
	Word   uint16 // Raw big endian word.
	Op     Op
	Family uint8  // Bits 12-15.
	X      uint8  // Bits 8-11, usually a register.
	Y      uint8  // Bits 4-7, usually a register.
	N      uint8  // Bits 0-3.
	NN     uint8  // Bits 0-7.
	NNN    uint16 // Bits 0-11.
}

// Sub-opcode tables for the families that share a nibble.
var (
	kALU = [16]Op{
		0x0: OpLD,
		0x1: OpOR,
		0x2: OpAND,
		0x3: OpXOR,
		0x4: OpADD,
		0x5: OpSUB,
		0x6: OpSHR,
		0x7: OpSUBN,
		0xE: OpSHL,
	}
	kMisc = map[uint8]Op{
		0x07: OpLDVDT,
		0x0A: OpLDK,
		0x15: OpLDDT,
		0x18: OpLDST,
		0x1E: OpADDIDX,
		0x29: OpLDF,
		0x33: OpBCD,
		0x55: OpSTORE,
		0x65: OpLOAD,
	}
)

// Decode splits a raw instruction word into its fields and determines the
// opcode. It never fails, unknown words decode to OpUnknown.
func Decode(word uint16) Instruction {
	in := Instruction{
		Word:   word,
		Family: uint8(word >> 12),
		X:      uint8((word >> 8) & 0x0F),
		Y:      uint8((word >> 4) & 0x0F),
		N:      uint8(word & 0x000F),
		NN:     uint8(word & 0x00FF),
		NNN:    word & 0x0FFF,
	}

	// Each family maps to exactly one case. No fallthrough.
	switch in.Family {
	case 0x0:
		switch word {
		case 0x00E0:
			in.Op = OpCLS
		case 0x00EE:
			in.Op = OpRET
		}
	case 0x1:
		in.Op = OpJP
	case 0x2:
		in.Op = OpCALL
	case 0x3:
		in.Op = OpSEI
	case 0x4:
		in.Op = OpSNEI
	case 0x5:
		if in.N == 0x0 {
			in.Op = OpSE
		}
	case 0x6:
		in.Op = OpLDI
	case 0x7:
		in.Op = OpADDI
	case 0x8:
		// Unused slots are the zero value which is OpUnknown.
		in.Op = kALU[in.N]
	case 0x9:
		if in.N == 0x0 {
			in.Op = OpSNE
		}
	case 0xA:
		in.Op = OpLDIDX
	case 0xB:
		in.Op = OpJPV0
	case 0xC:
		in.Op = OpRND
	case 0xD:
		in.Op = OpDRW
	case 0xE:
		switch in.NN {
		case 0x9E:
			in.Op = OpSKP
		case 0xA1:
			in.Op = OpSKNP
		}
	case 0xF:
		in.Op = kMisc[in.NN]
	}
	return in
}

// String renders the instruction in the usual CHIP-8 assembler syntax.
func (in Instruction) String() string {
	m := in.Op.String()
	switch in.Op {
	case OpCLS, OpRET:
		return m
	case OpJP, OpCALL:
		return fmt.Sprintf("%s #%.3X", m, in.NNN)
	case OpJPV0:
		return fmt.Sprintf("%s V0, #%.3X", m, in.NNN)
	case OpSEI, OpSNEI, OpLDI, OpADDI, OpRND:
		return fmt.Sprintf("%s V%X, #%.2X", m, in.X, in.NN)
	case OpSE, OpSNE, OpLD, OpOR, OpAND, OpXOR, OpADD, OpSUB, OpSUBN:
		return fmt.Sprintf("%s V%X, V%X", m, in.X, in.Y)
	case OpSHR, OpSHL:
		return fmt.Sprintf("%s V%X {, V%X}", m, in.X, in.Y)
	case OpLDIDX:
		return fmt.Sprintf("%s I, #%.3X", m, in.NNN)
	case OpDRW:
		return fmt.Sprintf("%s V%X, V%X, %d", m, in.X, in.Y, in.N)
	case OpSKP, OpSKNP:
		return fmt.Sprintf("%s V%X", m, in.X)
	case OpLDVDT:
		return fmt.Sprintf("%s V%X, DT", m, in.X)
	case OpLDK:
		return fmt.Sprintf("%s V%X, K", m, in.X)
	case OpLDDT:
		return fmt.Sprintf("%s DT, V%X", m, in.X)
	case OpLDST:
		return fmt.Sprintf("%s ST, V%X", m, in.X)
	case OpADDIDX:
		return fmt.Sprintf("%s I, V%X", m, in.X)
	case OpLDF:
		return fmt.Sprintf("%s F, V%X", m, in.X)
	case OpBCD:
		return fmt.Sprintf("%s B, V%X", m, in.X)
	case OpSTORE:
		return fmt.Sprintf("%s [I], V%X", m, in.X)
	case OpLOAD:
		return fmt.Sprintf("%s V%X, [I]", m, in.X)
	}
	return fmt.Sprintf("%s #%.4X", m, in.Word)
}
