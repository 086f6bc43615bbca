// hand_asm takes a filename and produces a ROM image
// from parsing the output as a hand assembled file
// of the form:
//
//	XXXX HHHH  anything else
//
// Where XXXX is the address field and HHHH is the instruction
// word (or data) in hex. Anything after the word is a comment.
// Lines which don't start with an address are skipped entirely.
// The image starts at the program load address (0x200) and gaps
// between addresses are zero filled.
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/jmchacon/chip8/memory"
)

func main() {
	flag.Parse()
	if len(flag.Args()) != 2 {
		log.Fatalf("Invalid command: %s <input> <output>", os.Args[0])
	}
	fn := flag.Args()[0]
	out := flag.Args()[1]

	in, err := os.Open(fn)
	if err != nil {
		log.Fatalf("Can't open %q for input - %v", fn, err)
	}
	defer in.Close()
	output, err := assemble(in)
	if err != nil {
		log.Fatalf("Can't process %q - %v", fn, err)
	}

	of, err := os.Create(out)
	if err != nil {
		log.Fatalf("Can't open output %q - %v", out, err)
	}
	n, err := of.Write(output)
	if got, want := n, len(output); got != want {
		log.Fatalf("Short write to %q. Got %d and want %d", out, got, want)
	}
	if err != nil {
		log.Fatalf("Got error writing to %q - %v", out, err)
	}
	if err := of.Close(); err != nil {
		log.Fatalf("Error closing %q - %v", out, err)
	}
}

// isHex4 is true for exactly 4 hex digits.
func isHex4(s string) bool {
	if len(s) != 4 {
		return false
	}
	_, err := strconv.ParseUint(s, 16, 16)
	return err == nil
}

func assemble(r io.Reader) ([]byte, error) {
	var output []byte
	scanner := bufio.NewScanner(r)
	l := 0
	for scanner.Scan() {
		t := scanner.Text()
		l++
		toks := strings.Fields(t)
		if len(toks) == 0 || !isHex4(toks[0]) {
			continue
		}
		if len(toks) < 2 || !isHex4(toks[1]) {
			return nil, fmt.Errorf("invalid line %d - %q", l, t)
		}
		addr, _ := strconv.ParseUint(toks[0], 16, 16)
		word, _ := strconv.ParseUint(toks[1], 16, 16)
		if addr < memory.ProgramStart || addr+2 > memory.Size {
			return nil, fmt.Errorf("line %d: address 0x%.4X outside of 0x%.4X-0x%.4X", l, addr, memory.ProgramStart, memory.Size-2)
		}
		off := int(addr) - memory.ProgramStart
		for len(output) < off+2 {
			output = append(output, 0x00)
		}
		output[off] = byte(word >> 8)
		output[off+1] = byte(word)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(output) == 0 {
		return nil, errors.New("no instructions found")
	}
	return output, nil
}
