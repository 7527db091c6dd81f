/*
 * PDP11 - Line frequency clock.
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

// Package clock is the KW11-L line frequency clock at LKS. A free running
// counter sets the clock bit every DelayTicks instructions; with interrupt
// enable set it interrupts at priority 6.
package clock

import (
	"sync/atomic"

	"github.com/rcornwell/PDP11/emu/device"
	"github.com/rcornwell/PDP11/emu/state"
)

// LKS is the clock status register address.
const LKS = 0o177546

const (
	intEnableShift = 6
	intEnableMask  = 1 << intEnableShift
	clockShift     = 7

	prio   = 0o6
	vector = 0o100
)

// DelayTicks approximates the 16.6 ms line period at a notional 5 us per
// instruction.
const DelayTicks = 3_320

type Clock struct {
	intEnable       bool
	clock           bool
	ticksUntilReady int
	delayTicks      int
}

func New() *Clock {
	return &Clock{ticksUntilReady: DelayTicks, delayTicks: DelayTicks}
}

// SetDelay overrides the tick period, for configuration and tests.
func (c *Clock) SetDelay(ticks int) {
	c.delayTicks = ticks
	c.ticksUntilReady = ticks
}

func (c *Clock) Reset(*state.State) {
	c.intEnable = false
	c.clock = false
	c.ticksUntilReady = c.delayTicks
}

func (c *Clock) Tick(*state.State) *device.Interrupt {
	c.ticksUntilReady--
	if c.ticksUntilReady == 0 {
		c.clock = true
		c.ticksUntilReady = c.delayTicks
	}

	if c.clock && c.intEnable {
		return &device.Interrupt{Prio: prio, Vector: vector}
	}
	return nil
}

func (c *Clock) InterruptAccepted() {}

func (c *Clock) DefaultAddrs() []uint16 {
	return []uint16{LKS}
}

func (c *Clock) lksWrite(val uint8) {
	c.intEnable = val&intEnableMask != 0
}

// lksRead returns the status bits and clears the clock bit.
func (c *Clock) lksRead() uint8 {
	var val uint8
	if c.intEnable {
		val |= intEnableMask
	}
	if c.clock {
		val |= 1 << clockShift
	}
	c.clock = false
	return val
}

func (c *Clock) ReadByte(_ *state.State, addr uint16) uint8 {
	switch addr {
	case LKS:
		return c.lksRead()
	case LKS + 1:
		return 0
	}
	panic("clock does not handle the address")
}

func (c *Clock) ReadWord(s *state.State, addr uint16) uint16 {
	return uint16(c.ReadByte(s, addr))
}

func (c *Clock) WriteByte(_ *state.State, addr uint16, val uint8) {
	switch addr {
	case LKS:
		c.lksWrite(val)
	case LKS + 1:
	default:
		panic("clock does not handle the address")
	}
}

func (c *Clock) WriteWord(s *state.State, addr uint16, val uint16) {
	c.WriteByte(s, addr, uint8(val))
}

////////////////////////////////////////////////////////////////////////////////

// Striker lets another goroutine, or a test, set the clock bit out of band.
type Striker struct {
	clock atomic.Bool
}

// Strike raises the clock bit.
func (s *Striker) Strike() {
	s.clock.Store(true)
}

// WasRead reports whether the last strike has been consumed by a read of
// LKS; it is also true before the first strike.
func (s *Striker) WasRead() bool {
	return !s.clock.Load()
}

// FakeClock is a clock whose bit is driven by a Striker instead of an
// instruction counter. It serves the interrupt tests and any host driven
// time source.
type FakeClock struct {
	intEnable bool
	striker   *Striker
}

func NewFake() *FakeClock {
	return &FakeClock{striker: &Striker{}}
}

func (f *FakeClock) GetStriker() *Striker {
	return f.striker
}

func (f *FakeClock) Reset(*state.State) {
	f.intEnable = false
}

func (f *FakeClock) Tick(*state.State) *device.Interrupt {
	if f.striker.clock.Load() && f.intEnable {
		return &device.Interrupt{Prio: prio, Vector: vector}
	}
	return nil
}

func (f *FakeClock) InterruptAccepted() {}

func (f *FakeClock) DefaultAddrs() []uint16 {
	return []uint16{LKS}
}

func (f *FakeClock) ReadByte(_ *state.State, addr uint16) uint8 {
	switch addr {
	case LKS:
		var val uint8
		if f.intEnable {
			val |= intEnableMask
		}
		if f.striker.clock.Swap(false) {
			val |= 1 << clockShift
		}
		return val
	case LKS + 1:
		return 0
	}
	panic("clock does not handle the address")
}

func (f *FakeClock) ReadWord(s *state.State, addr uint16) uint16 {
	return uint16(f.ReadByte(s, addr))
}

func (f *FakeClock) WriteByte(_ *state.State, addr uint16, val uint8) {
	switch addr {
	case LKS:
		f.intEnable = val&intEnableMask != 0
	case LKS + 1:
	default:
		panic("clock does not handle the address")
	}
}

func (f *FakeClock) WriteWord(s *state.State, addr uint16, val uint16) {
	f.WriteByte(s, addr, uint8(val))
}
