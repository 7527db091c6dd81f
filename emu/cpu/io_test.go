/*
 * PDP11 - CPU and device interaction tests.
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

	"github.com/rcornwell/PDP11/asm/assembler"
	"github.com/rcornwell/PDP11/emu/clock"
	"github.com/rcornwell/PDP11/emu/cpu"
	"github.com/rcornwell/PDP11/emu/teletype"
	"github.com/rcornwell/PDP11/isa"
)

func assembleAndLoad(t *testing.T, c *cpu.CPU, src string) uint16 {
	t.Helper()
	img, err := assembler.Assemble(src)
	if err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	c.LoadImage(img.Text, 0)
	c.State().RegWriteWord(isa.SP, 0o20000)
	return img.EntryPoint
}

func TestHelloWorldTeletype(t *testing.T) {
	pipe := teletype.NewPipeTty()
	c := cpu.New()
	tt := teletype.New(pipe)
	tt.SetDelay(5)
	c.SetMMIOHandler(tt)

	entry := assembleAndLoad(t, c, `
_start:	mov #msg, r1
loop:	movb (r1)+, r0
	beq done
1:	tstb @#177564
	bpl 1b
	movb r0, @#177566
	br loop
done:	halt
msg:	.asciz "hello, world!\n"
`)
	c.RunAt(entry)

	if got := string(pipe.TakeOutput()); got != "hello, world!\n" {
		t.Errorf("teletype output not correct got: %q", got)
	}
}

func TestTeletypeEcho(t *testing.T) {
	pipe := teletype.NewPipeTty()
	pipe.PushInput('h', 'i')
	c := cpu.New()
	tt := teletype.New(pipe)
	tt.SetDelay(3)
	c.SetMMIOHandler(tt)

	// Read two characters by polling the done bit, echo them back.
	entry := assembleAndLoad(t, c, `
_start:	mov #2, r2
loop:
1:	tstb @#177560
	bpl 1b
	movb @#177562, r0
2:	tstb @#177564
	bpl 2b
	movb r0, @#177566
	dec r2
	bne loop
	halt
`)
	c.RunAt(entry)

	if got := string(pipe.TakeOutput()); got != "hi" {
		t.Errorf("echoed output not correct got: %q", got)
	}
}

func TestClockStrikerInterrupts(t *testing.T) {
	fake := clock.NewFake()
	striker := fake.GetStriker()

	c := cpu.New()
	c.SetMMIOHandler(fake)

	// ISR reads LKS to clear the strike, counts in r5, returns. The vector
	// PS raises the priority so a still pending strike cannot re-enter.
	entry := assembleAndLoad(t, c, `
	. = 100
	.word isr, 340
	. = 400
_start:	mov #100, @#177546	; enable clock interrupts
1:	br 1b
isr:	tst @#177546
	inc r5
	rti
`)
	c.State().RegWriteWord(isa.PC, entry)

	const strikes = 3
	for i := 0; i < strikes; i++ {
		striker.Strike()
		for j := 0; j < 20; j++ {
			c.Step()
		}
	}
	if got := c.State().RegReadWord(isa.R5); got != strikes {
		t.Errorf("interrupt count not correct got: %d expected: %d", got, strikes)
	}
}

func TestClockInterruptHeldOffByPriority(t *testing.T) {
	fake := clock.NewFake()
	striker := fake.GetStriker()

	c := cpu.New()
	c.SetMMIOHandler(fake)

	entry := assembleAndLoad(t, c, `
	. = 100
	.word isr, 340
	. = 400
_start:	mov #340, @#177776	; priority 7
	mov #100, @#177546	; enable clock interrupts
1:	br 1b
isr:	tst @#177546
	inc r5
	rti
`)
	c.State().RegWriteWord(isa.PC, entry)

	striker.Strike()
	for j := 0; j < 50; j++ {
		c.Step()
	}
	if got := c.State().RegReadWord(isa.R5); got != 0 {
		t.Errorf("interrupt taken despite priority: count %d", got)
	}
}

func TestWaitParksUntilInterrupt(t *testing.T) {
	fake := clock.NewFake()
	striker := fake.GetStriker()

	c := cpu.New()
	c.SetMMIOHandler(fake)

	entry := assembleAndLoad(t, c, `
	. = 100
	.word isr, 340
	. = 400
_start:	mov #100, @#177546	; enable clock interrupts
	wait
	halt
isr:	tst @#177546
	inc r5
	rti
`)
	c.State().RegWriteWord(isa.PC, entry)

	// Run into the wait state.
	for c.Step() != cpu.Waiting {
	}
	for i := 0; i < 5; i++ {
		if c.Step() != cpu.Waiting {
			t.Fatal("machine should stay parked without an interrupt")
		}
	}

	striker.Strike()
	halted := false
	for i := 0; i < 20; i++ {
		if c.Step() == cpu.Halted {
			halted = true
			break
		}
	}
	if got := c.State().RegReadWord(isa.R5); got != 1 {
		t.Errorf("wait interrupt count not correct got: %d expected: 1", got)
	}
	if !halted {
		t.Errorf("machine should have halted after the wait")
	}
}
