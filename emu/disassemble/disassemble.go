/*
 * PDP11 - Disassembler.
 *
 * Copyright 2025, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package disassembler walks a raw binary and renders one line per
// instruction: address, raw words, and the decoded mnemonic with PC
// relative operands resolved to absolute addresses.
package disassembler

import (
	"fmt"
	"strings"

	"github.com/rcornwell/PDP11/isa"
)

// Disassembled is one decoded location. Ins is nil for words no family
// recognizes; they still occupy one line of output.
type Disassembled struct {
	Addr uint16
	Repr []uint16
	Ins  isa.Ins
}

func (d *Disassembled) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%#08o\t", d.Addr)
	for i := 0; i < isa.MaxInsWords; i++ {
		if i < len(d.Repr) {
			fmt.Fprintf(&b, "%#08o ", d.Repr[i])
		} else {
			b.WriteString("         ")
		}
	}
	b.WriteByte('\t')
	if d.Ins != nil {
		b.WriteString(d.Ins.StringPC(d.Addr))
	}
	return b.String()
}

func wordAt(bin []byte, addr int) uint16 {
	lo := uint16(bin[addr])
	hi := uint16(0)
	if addr+1 < len(bin) {
		hi = uint16(bin[addr+1])
	}
	return lo | hi<<8
}

// Disassemble decodes the whole binary from address zero. Each decode
// consumes the instruction's full size, so extras are never misread as
// opcodes.
func Disassemble(bin []byte) []Disassembled {
	if len(bin) > 0x10000 {
		panic("binary exceeds the address space")
	}
	var out []Disassembled
	addr := 0
	for addr < len(bin) {
		words := make([]uint16, 0, isa.MaxInsWords)
		for i := 0; i < isa.MaxInsWords && addr+i*isa.WordSize < len(bin); i++ {
			words = append(words, wordAt(bin, addr+i*isa.WordSize))
		}
		ins := isa.Decode(words)
		size := isa.WordSize
		if ins != nil {
			size = int(ins.Size())
		}
		out = append(out, Disassembled{
			Addr: uint16(addr),
			Repr: words[:size/isa.WordSize],
			Ins:  ins,
		})
		addr += size
	}
	return out
}

// CollapseZeroRuns drops the middle of long runs of zero words, leaving
// the first and last so the printer can put an ellipsis between them.
func CollapseZeroRuns(dis []Disassembled) []Disassembled {
	const thresh = 8

	type span struct{ start, end int }
	var runs []span
	start := -1
	for i := range dis {
		zero := len(dis[i].Repr) == 1 && dis[i].Repr[0] == 0
		if zero {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			runs = append(runs, span{start, i})
			start = -1
		}
	}
	if start >= 0 {
		runs = append(runs, span{start, len(dis)})
	}

	for i := len(runs) - 1; i >= 0; i-- {
		run := runs[i]
		if run.end-run.start > thresh {
			dis = append(dis[:run.start+1], dis[run.end-1:]...)
		}
	}
	return dis
}

// Print renders the listing, inserting an ellipsis wherever addresses
// are discontiguous.
func Print(w *strings.Builder, dis []Disassembled) {
	var prev *Disassembled
	for i := range dis {
		d := &dis[i]
		if prev != nil && int(prev.Addr)+len(prev.Repr)*isa.WordSize != int(d.Addr) {
			w.WriteString("...\n")
		}
		w.WriteString(d.String())
		w.WriteByte('\n')
		prev = d
	}
}
