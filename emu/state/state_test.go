/*
 * PDP11 - Machine state tests.
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

package state

import (
	"testing"

	"github.com/rcornwell/PDP11/isa"
)

func expectPanic(t *testing.T, name string, f func()) {
	t.Helper()
	defer func() {
		if recover() == nil {
			t.Errorf("%s should panic", name)
		}
	}()
	f()
}

func TestMemWord(t *testing.T) {
	s := New()
	s.MemWriteWord(0o1000, 0o123456)
	if got := s.MemReadWord(0o1000); got != 0o123456 {
		t.Errorf("word read not correct got: %o expected: %o", got, 0o123456)
	}
	// Little endian byte order.
	if got := s.MemReadByte(0o1000); got != 0o56 {
		t.Errorf("low byte not correct got: %o expected: %o", got, 0o56)
	}
	if got := s.MemReadByte(0o1001); got != 0o247 {
		t.Errorf("high byte not correct got: %o expected: %o", got, 0o247)
	}
}

func TestAlignment(t *testing.T) {
	s := New()
	expectPanic(t, "odd word read", func() { s.MemReadWord(0o1001) })
	expectPanic(t, "odd word write", func() { s.MemWriteWord(0o1001, 0) })
}

func TestRegisterBytes(t *testing.T) {
	s := New()
	s.RegWriteWord(isa.R1, 0o123456)
	if got := s.RegReadByte(isa.R1); got != 0o56 {
		t.Errorf("register byte read not correct got: %o expected: %o", got, 0o56)
	}
	s.RegWriteByte(isa.R1, 0o77)
	if got := s.RegReadWord(isa.R1); got != 0o123477 {
		t.Errorf("register byte write not correct got: %o expected: %o", got, 0o123477)
	}
}

func TestStackOverflow(t *testing.T) {
	s := New()
	s.RegWriteWord(isa.SP, 0o400)
	expectPanic(t, "sp below 0400", func() { s.RegWriteWord(isa.SP, 0o376) })
	// Other registers may hold small values.
	s.RegWriteWord(isa.R0, 0o2)
}

func TestNextIns(t *testing.T) {
	s := New()
	s.MemWriteWord(0o1000, 0o012700)
	s.MemWriteWord(0o1002, 0o37)
	s.MemWriteWord(0o1004, 0)
	s.RegWriteWord(isa.PC, 0o1000)

	words := s.NextIns()
	if len(words) != isa.MaxInsWords {
		t.Fatalf("next ins length not correct got: %d expected: %d", len(words), isa.MaxInsWords)
	}
	if words[0] != 0o012700 || words[1] != 0o37 || words[2] != 0 {
		t.Errorf("next ins not correct got: %o", words)
	}

	s.RegWriteWord(isa.PC, 0o1001)
	expectPanic(t, "odd pc fetch", func() { s.NextIns() })
}

func TestStatusBits(t *testing.T) {
	var ps Status
	ps.SetCarry(true)
	ps.SetNegative(true)
	if uint16(ps) != 0o11 {
		t.Errorf("status bits not correct got: %o expected: %o", uint16(ps), 0o11)
	}
	z, n, carry, v := ps.Flags()
	if z || !n || !carry || v {
		t.Errorf("flags not correct got: %v %v %v %v", z, n, carry, v)
	}

	ps.SetPrio(6)
	if ps.Prio() != 6 {
		t.Errorf("priority not correct got: %d expected: 6", ps.Prio())
	}

	ps.ClearFlags(0o17)
	if ps.Carry() || ps.Negative() {
		t.Errorf("clear flags did not clear")
	}
	if ps.Prio() != 6 {
		t.Errorf("clear flags touched the priority")
	}
}
