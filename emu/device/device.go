/*
 * PDP11 - Device handler interface.
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

// Package device defines what the emulator expects from a memory mapped
// device. Several MMIO cells may alias to one handler; registration is
// keyed by address, so devices are shared handles rather than unique
// owners. Handlers receive the machine state but never the device map,
// which keeps their callbacks from reentering the dispatcher.
package device

import "github.com/rcornwell/PDP11/emu/state"

// Interrupt is a device's request for service.
type Interrupt struct {
	Prio   uint8 // 0 through 7
	Vector uint16
}

// Handler is one memory mapped device.
type Handler interface {
	// Reset returns the device to power-on state; run by the RESET
	// instruction and at device registration.
	Reset(s *state.State)

	// Tick runs once per emulated instruction, before fetch. A non-nil
	// return requests an interrupt; the dispatcher services the highest
	// priority request that exceeds the processor priority.
	Tick(s *state.State) *Interrupt

	// InterruptAccepted tells the device its pending interrupt was taken.
	InterruptAccepted()

	// DefaultAddrs lists the MMIO cells the device claims when registered
	// without an explicit address set.
	DefaultAddrs() []uint16

	ReadByte(s *state.State, addr uint16) uint8
	ReadWord(s *state.State, addr uint16) uint16
	WriteByte(s *state.State, addr uint16, val uint8)
	WriteWord(s *state.State, addr uint16, val uint16)
}

// Tty is the console the teletype device talks to. Implementations may be
// driven from another goroutine (a terminal reader, a telnet connection);
// all cross thread sharing in the emulator is confined behind this
// interface and the clock striker.
type Tty interface {
	// HandleOutput sinks one printed byte.
	HandleOutput(val uint8)

	// InputAvailable reports whether PollInput would succeed.
	InputAvailable() bool

	// PollInput consumes one byte of keyboard input.
	PollInput() (uint8, bool)
}
