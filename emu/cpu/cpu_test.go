/*
 * PDP11 - CPU test cases.
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

package cpu_test

import (
	"testing"

	"github.com/rcornwell/PDP11/emu/cpu"
	"github.com/rcornwell/PDP11/emu/state"
	"github.com/rcornwell/PDP11/isa"
)

const dataStart = state.DataStart

func loadWords(c *cpu.CPU, start uint16, words []uint16) {
	bin := make([]byte, 2*len(words))
	for i, w := range words {
		bin[2*i] = byte(w)
		bin[2*i+1] = byte(w >> 8)
	}
	c.LoadImage(bin, start)
}

func newMachine(words []uint16) *cpu.CPU {
	c := cpu.New()
	loadWords(c, dataStart, words)
	c.State().RegWriteWord(isa.SP, 2*dataStart)
	return c
}

func TestHaltLeavesPCAfterImage(t *testing.T) {
	c := newMachine([]uint16{
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().PC(); got != dataStart+2 {
		t.Errorf("pc not correct got: %o expected: %o", got, dataStart+2)
	}
}

func TestStraightLinePC(t *testing.T) {
	// A straight line image of length L leaves PC at start + L.
	words := []uint16{
		0o012700, 0o1, // mov #1, r0
		0o005001,      // clr r1
		0o062700, 0o2, // add #2, r0
		0, // halt
	}
	c := newMachine(words)
	c.RunAt(dataStart)
	if got := c.State().PC(); got != dataStart+uint16(2*len(words)) {
		t.Errorf("pc not correct got: %o expected: %o", got, dataStart+uint16(2*len(words)))
	}
}

func TestMovRegReg(t *testing.T) {
	c := newMachine([]uint16{
		0o10001, // mov r0, r1
		0,       // halt
	})
	c.State().RegWriteWord(isa.R0, 0xabcd)
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R1); got != 0xabcd {
		t.Errorf("r1 not correct got: %x expected: abcd", got)
	}
}

func TestMovImm(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 0xabcd, // mov #0xabcd, r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0xabcd {
		t.Errorf("r0 not correct got: %x expected: abcd", got)
	}
}

func TestMovbSignExtends(t *testing.T) {
	c := newMachine([]uint16{
		0o112700, 0o377, // movb #0xff, r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0xffff {
		t.Errorf("movb sign extension not correct got: %x expected: ffff", got)
	}
}

func TestMovbToMemoryWritesOneByte(t *testing.T) {
	target := uint16(dataStart + 0o10)
	c := newMachine([]uint16{
		0o112737, 0o377, target, // movb #0xff, @#target
		0,          // halt
		0o125252,   // .word 0125252
	})
	c.RunAt(dataStart)
	want := uint16(0o125252)&0xff00 | 0xff
	if got := c.MemReadWord(target); got != want {
		t.Errorf("movb to memory not correct got: %o expected: %o", got, want)
	}
}

func TestAutoInc(t *testing.T) {
	arr := uint16(dataStart + 18)
	c := newMachine([]uint16{
		0o12700, arr, // mov #arr, r0
		0o62720, 0o1, // add #1, (r0)+
		0o62720, 0o1, // add #1, (r0)+
		0o62720, 0o1, // add #1, (r0)+
		0o0, // halt

		// arr:
		0o1, 0o2, 0o3, // .word 1 2 3
	})
	c.RunAt(dataStart)
	if got := c.MemReadWord(arr); got != 2 {
		t.Errorf("arr[0] not correct got: %o expected: 2", got)
	}
	if got := c.MemReadWord(arr + 2); got != 3 {
		t.Errorf("arr[1] not correct got: %o expected: 3", got)
	}
	if got := c.MemReadWord(arr + 4); got != 4 {
		t.Errorf("arr[2] not correct got: %o expected: 4", got)
	}
}

func TestLoop(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 0, // mov #0, r0
		0o12701, 10, // mov #10., r1

		0o62700, 1, // add #1, r0
		0o162701, 1, // sub #1, r1
		0o1373, // bne .-10

		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 10 {
		t.Errorf("r0 not correct got: %d expected: 10", got)
	}
}

func TestCountLoop(t *testing.T) {
	// clr r0 / loop: inc r0 / cmp #12, r0 / bne loop / halt
	words := []uint16{
		0o005000,       // clr r0
		0o005200,       // loop: inc r0
		0o022700, 0o12, // cmp #12, r0
		0o001374, // bne loop
		0,        // halt
	}
	c := newMachine(words)
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0o12 {
		t.Errorf("r0 not correct got: %o expected: 12", got)
	}
	if got := c.State().PC(); got != dataStart+uint16(2*len(words)) {
		t.Errorf("pc not correct got: %o expected: %o", got, dataStart+uint16(2*len(words)))
	}
}

func TestCall(t *testing.T) {
	c := newMachine([]uint16{
		0o12701, 0o0, // mov #0, r1
		0o12702, 0o0, // mov #0, r2
		0o407, // br start

		0o12702, 0o2, // mov #2, r2 ; skipped

		// fun:
		0o12701, 0o1, // mov #1, r1
		0o207, // rts pc

		0o12702, 0o2, // mov #2, r2 ; skipped

		// start:
		0o4737, dataStart + 0o16, // jsr pc, @#fun
		0o0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R1); got != 1 {
		t.Errorf("r1 not correct got: %o expected: 1", got)
	}
	if got := c.State().RegReadWord(isa.R2); got != 0 {
		t.Errorf("r2 not correct got: %o expected: 0", got)
	}
}

func TestJsrRtsStackDiscipline(t *testing.T) {
	c := newMachine([]uint16{
		0o4737, dataStart + 0o10, // jsr pc, @#fun
		0o0, // halt
		0o0, // pad
		0o207, // fun: rts pc
	})
	spBefore := c.State().RegReadWord(isa.SP)
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.SP); got != spBefore {
		t.Errorf("sp not preserved got: %o expected: %o", got, spBefore)
	}
}

func TestBranchConditions(t *testing.T) {
	// sub #1, r0 with r0=1 sets Z; beq taken skips the inc.
	c := newMachine([]uint16{
		0o12700, 1, // mov #1, r0
		0o162700, 1, // sub #1, r0
		0o001401, // beq +1
		0o005202, // inc r2 (skipped)
		0o0,      // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R2); got != 0 {
		t.Errorf("r2 not correct got: %o expected: 0", got)
	}
}

func TestCmpFlags(t *testing.T) {
	// cmp #2, #1 -> src > dst: Z clear, C clear.
	c := newMachine([]uint16{
		0o022727, 2, 1, // cmp #2, #1
		0, // halt
	})
	c.RunAt(dataStart)
	ps := c.State().Status()
	if ps.Zero() || ps.Carry() || ps.Negative() {
		t.Errorf("cmp flags not correct: %o", uint16(ps))
	}

	// cmp #1, #2 -> borrow: C set, N set.
	c = newMachine([]uint16{
		0o022727, 1, 2, // cmp #1, #2
		0, // halt
	})
	c.RunAt(dataStart)
	ps = c.State().Status()
	if !ps.Carry() || !ps.Negative() {
		t.Errorf("cmp borrow flags not correct: %o", uint16(ps))
	}
}

func TestAddCarryOverflow(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 0xffff, // mov #0xffff, r0
		0o62700, 1, // add #1, r0
		0, // halt
	})
	c.RunAt(dataStart)
	ps := c.State().Status()
	if !ps.Zero() || !ps.Carry() || ps.Overflow() {
		t.Errorf("add carry flags not correct: %o", uint16(ps))
	}

	c = newMachine([]uint16{
		0o12700, 0x7fff, // mov #0x7fff, r0
		0o62700, 1, // add #1, r0
		0, // halt
	})
	c.RunAt(dataStart)
	ps = c.State().Status()
	if !ps.Overflow() || !ps.Negative() || ps.Carry() {
		t.Errorf("add overflow flags not correct: %o", uint16(ps))
	}
}

func TestMulDiv(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 1000, // mov #1000., r0
		0o12701, 100, // mov #100., r1
		0o070001, // mul r1, r0
		0, // halt
	})
	c.RunAt(dataStart)
	// 100000 = 0x186a0: low in r0, high in r1.
	if got := c.State().RegReadWord(isa.R0); got != 0x86a0 {
		t.Errorf("mul low not correct got: %x expected: 86a0", got)
	}
	if got := c.State().RegReadWord(isa.R1); got != 0x1 {
		t.Errorf("mul high not correct got: %x expected: 1", got)
	}
	if !c.State().Status().Carry() {
		t.Errorf("mul carry should be set for a wide product")
	}

	c = newMachine([]uint16{
		0o12700, 100, // mov #100., r0 (low half)
		0o12701, 0, // mov #0, r1 (high half)
		0o12702, 7, // mov #7, r2
		0o071002, // div r2, r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 14 {
		t.Errorf("div quotient not correct got: %d expected: 14", got)
	}
	if got := c.State().RegReadWord(isa.R1); got != 2 {
		t.Errorf("div remainder not correct got: %d expected: 2", got)
	}
}

func TestDivByZero(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 10, // mov #10., r0
		0o005001,    // clr r1
		0o005002,    // clr r2
		0o071002,    // div r2, r0
		0,           // halt
	})
	c.RunAt(dataStart)
	ps := c.State().Status()
	if !ps.Overflow() || !ps.Carry() {
		t.Errorf("div by zero flags not correct: %o", uint16(ps))
	}
	if got := c.State().RegReadWord(isa.R0); got != 10 {
		t.Errorf("div by zero clobbered r0: %d", got)
	}
}

func TestAsh(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 1, // mov #1, r0
		0o072027, 3, // ash #3, r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 8 {
		t.Errorf("ash left not correct got: %d expected: 8", got)
	}

	c = newMachine([]uint16{
		0o12700, 0x8000, // mov #0x8000, r0
		0o072027, 0o77, // ash #-1, r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0xc000 {
		t.Errorf("ash right not correct got: %x expected: c000", got)
	}
}

func TestXor(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 0o170017, // mov #0o170017, r0
		0o12701, 0o177777, // mov #0o177777, r1
		0o074001, // xor r0, r1
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R1); got != 0o007760 {
		t.Errorf("xor not correct got: %o expected: 7760", got)
	}
}

func TestSwab(t *testing.T) {
	c := newMachine([]uint16{
		0o12700, 0x1234, // mov #0x1234, r0
		0o000300, // swab r0
		0, // halt
	})
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0x3412 {
		t.Errorf("swab not correct got: %x expected: 3412", got)
	}
}

func TestConditionCodeOps(t *testing.T) {
	c := newMachine([]uint16{
		0o000261, // sec
		0o000270, // sen
		0, // halt
	})
	c.RunAt(dataStart)
	ps := c.State().Status()
	if !ps.Carry() || !ps.Negative() {
		t.Errorf("set flags not correct: %o", uint16(ps))
	}

	c = newMachine([]uint16{
		0o000261, // sec
		0o000241, // clc
		0, // halt
	})
	c.RunAt(dataStart)
	if c.State().Status().Carry() {
		t.Errorf("clc did not clear carry")
	}
}

func TestRor(t *testing.T) {
	c := newMachine([]uint16{
		0o000261, // sec
		0o12700, 2, // mov #2, r0
		0o006000, // ror r0
		0, // halt
	})
	c.RunAt(dataStart)
	// Carry rotates into bit 15.
	if got := c.State().RegReadWord(isa.R0); got != 0x8001 {
		t.Errorf("ror not correct got: %x expected: 8001", got)
	}
	if c.State().Status().Carry() {
		t.Errorf("ror carry should be clear")
	}
}

func TestTrapDispatch(t *testing.T) {
	handler := uint16(dataStart + 0o20)
	c := newMachine([]uint16{
		0o104412, // trap 12
		0,        // halt (returned to by rti)
		0, 0, 0, 0, 0, 0,
		// handler:
		0o012700, 0o123, // mov #123, r0
		0o000002, // rti
	})
	c.MemWriteWord(state.TrapVector, handler)
	c.MemWriteWord(state.TrapVector+2, 0)
	c.RunAt(dataStart)
	if got := c.State().RegReadWord(isa.R0); got != 0o123 {
		t.Errorf("trap handler did not run: r0 = %o", got)
	}
	if got := c.State().PC(); got != dataStart+4 {
		t.Errorf("rti return not correct got: %o expected: %o", got, dataStart+4)
	}
}

func TestReset(t *testing.T) {
	c := newMachine([]uint16{
		0o000005, // reset
		0,        // halt
	})
	c.RunAt(dataStart)
}

func TestInvalidInstructionPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("undecodable word should panic")
		}
	}()
	c := newMachine([]uint16{0o000007})
	c.RunAt(dataStart)
}

func TestJmpToRegisterPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("jmp to a register should panic")
		}
	}()
	c := newMachine([]uint16{0o000100}) // jmp r0
	c.RunAt(dataStart)
}
