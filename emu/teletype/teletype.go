/*
 * PDP11 - Teletype console device.
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

// Package teletype is the console: keyboard status and buffer at TKS/TKB,
// printer status and buffer at TPS/TPB. The actual terminal hides behind
// the device.Tty contract, so the same device serves stdio, telnet, or the
// in-memory pipe the tests use.
package teletype

import (
	"log/slog"

	"github.com/rcornwell/PDP11/emu/device"
	"github.com/rcornwell/PDP11/emu/state"
)

// MMIO cells.
const (
	TKS = 0o177560 // Keyboard status
	TKB = 0o177562 // Keyboard buffer
	TPS = 0o177564 // Printer status
	TPB = 0o177566 // Printer buffer
)

const (
	tpsMaintShift  = 2
	tpsMaintMask   = 1 << tpsMaintShift
	intEnableShift = 6
	intEnableMask  = 1 << intEnableShift
	readyShift     = 7 // TPS ready, TKS done

	// Both keyboard and printer interrupt at bus request level 4.
	prio      = 0o4
	keyVector = 0o60
	prtVector = 0o64
)

// PrintDelayTicks approximates the 100 ms a real teleprinter takes per
// character, at a notional 5 us per instruction.
const PrintDelayTicks = 20_000

// Teletype is the device. Not safe for concurrent use; the Tty behind it
// carries any cross goroutine traffic.
type Teletype struct {
	tty device.Tty

	tpsMaint           bool
	tpsIntEnabled      bool
	tpsReady           bool
	tpsTicksUntilReady int
	printerInterrupted bool
	printerIntAccepted bool

	tksIntEnabled        bool
	keyboardInterrupted  bool

	delayTicks int
}

func New(tty device.Tty) *Teletype {
	return &Teletype{
		tty:        tty,
		tpsReady:   true,
		delayTicks: PrintDelayTicks,
	}
}

// SetDelay overrides the print delay, for configuration and tests.
func (t *Teletype) SetDelay(ticks int) {
	t.delayTicks = ticks
}

func (t *Teletype) Reset(*state.State) {
	t.tpsMaint = false
	t.tpsIntEnabled = false
	t.tpsReady = true
	t.tpsTicksUntilReady = 0
	t.printerInterrupted = false
	t.printerIntAccepted = false
	t.tksIntEnabled = false
	t.keyboardInterrupted = false
}

func (t *Teletype) Tick(*state.State) *device.Interrupt {
	if t.tpsTicksUntilReady == 1 {
		t.printerIntAccepted = false
	}
	if t.tpsTicksUntilReady > 0 {
		t.tpsTicksUntilReady--
	}
	if t.tpsTicksUntilReady == 0 {
		t.tpsReady = true
	}

	// Keyboard gets priority over the printer within the same tick.
	if t.tty.InputAvailable() && t.tksIntEnabled {
		t.keyboardInterrupted = true
		return &device.Interrupt{Prio: prio, Vector: keyVector}
	}

	if t.tpsReady && t.tpsIntEnabled && !t.printerIntAccepted {
		t.printerInterrupted = true
		return &device.Interrupt{Prio: prio, Vector: prtVector}
	}

	return nil
}

func (t *Teletype) InterruptAccepted() {
	switch {
	case t.keyboardInterrupted:
		t.keyboardInterrupted = false
	case t.printerInterrupted:
		t.printerInterrupted = false
		t.printerIntAccepted = true
	default:
		panic("teletype interrupt accepted without a pending interrupt")
	}
}

func (t *Teletype) DefaultAddrs() []uint16 {
	return []uint16{TKS, TKB, TPS, TPB}
}

func (t *Teletype) tpsWrite(val uint8) {
	t.tpsMaint = val&tpsMaintMask != 0
	wereEnabled := t.tpsIntEnabled
	t.tpsIntEnabled = val&intEnableMask != 0
	if wereEnabled && !t.tpsIntEnabled {
		// Disabling printer interrupts while ready clears the delivered
		// latch, so reenabling fires a fresh interrupt.
		t.printerIntAccepted = false
	}
	// Writes to the ready bit are ignored.
}

func (t *Teletype) tpsRead() uint8 {
	var val uint8
	if t.tpsMaint {
		val |= tpsMaintMask
	}
	if t.tpsIntEnabled {
		val |= intEnableMask
	}
	if t.tpsReady {
		val |= 1 << readyShift
	}
	return val
}

func (t *Teletype) tpbWrite(val uint8) {
	if !t.tpsReady {
		slog.Error("teletype: write to TPB while not ready", "val", val)
		return
	}
	t.tty.HandleOutput(val)
	t.tpsTicksUntilReady = t.delayTicks
	t.tpsReady = false
}

func (t *Teletype) tksWrite(val uint8) {
	t.tksIntEnabled = val&intEnableMask != 0
}

func (t *Teletype) tksRead() uint8 {
	var val uint8
	if t.tksIntEnabled {
		val |= intEnableMask
	}
	if t.tty.InputAvailable() {
		val |= 1 << readyShift
	}
	return val
}

func (t *Teletype) tkbRead() uint8 {
	if ch, ok := t.tty.PollInput(); ok {
		return ch
	}
	slog.Error("teletype: read of TKB with no character available")
	return 0
}

func (t *Teletype) ReadByte(_ *state.State, addr uint16) uint8 {
	switch addr {
	case TKS:
		return t.tksRead()
	case TKB:
		return t.tkbRead()
	case TPS:
		return t.tpsRead()
	case TPB, TKS + 1, TKB + 1, TPS + 1, TPB + 1:
		return 0
	}
	panic("teletype does not handle the address")
}

func (t *Teletype) ReadWord(s *state.State, addr uint16) uint16 {
	return uint16(t.ReadByte(s, addr))
}

func (t *Teletype) WriteByte(_ *state.State, addr uint16, val uint8) {
	switch addr {
	case TKS:
		t.tksWrite(val)
	case TPS:
		t.tpsWrite(val)
	case TPB:
		t.tpbWrite(val)
	case TKB, TKS + 1, TKB + 1, TPS + 1, TPB + 1:
	default:
		panic("teletype does not handle the address")
	}
}

func (t *Teletype) WriteWord(s *state.State, addr uint16, val uint16) {
	t.WriteByte(s, addr, uint8(val))
}
