/*
 * PDP11 - Emulator core: fetch, decode, dispatch.
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

// Package cpu is the emulator proper: a single threaded fetch, decode,
// execute loop over the machine state, with a per-instruction device tick
// and priority based interrupt dispatch. One Step is indivisible from the
// machine's perspective; interrupts are taken only between instructions.
package cpu

import (
	"fmt"
	"log/slog"

	"github.com/rcornwell/PDP11/emu/device"
	"github.com/rcornwell/PDP11/emu/psw"
	"github.com/rcornwell/PDP11/emu/state"
	"github.com/rcornwell/PDP11/isa"
)

// ExecRet reports what one Step did.
type ExecRet int

const (
	Ok ExecRet = iota
	Halted
	Waiting
)

// CPU ties the machine state to its memory mapped devices.
type CPU struct {
	state    *state.State
	handlers map[uint16]device.Handler
	devices  []device.Handler // registration order, gives ticks a stable order
	waiting  bool
}

// New builds a machine with zeroed memory and the PSW access register
// already mapped at its fixed address.
func New() *CPU {
	c := &CPU{
		state:    state.New(),
		handlers: make(map[uint16]device.Handler),
	}
	c.SetMMIOHandler(psw.New())
	return c
}

// State exposes the raw machine for tests and the monitor.
func (c *CPU) State() *state.State {
	return c.state
}

// SetMMIOHandler registers a device on its default addresses.
func (c *CPU) SetMMIOHandler(handler device.Handler) {
	c.SetMMIOHandlerFor(handler, handler.DefaultAddrs())
}

// SetMMIOHandlerFor registers a device on an explicit set of cells. Cells
// must be even, inside the MMIO page, and not yet claimed.
func (c *CPU) SetMMIOHandlerFor(handler device.Handler, addrs []uint16) {
	for _, addr := range addrs {
		if addr < state.MMIOStart {
			panic(fmt.Sprintf("mmio handler address %#o below mmio page", addr))
		}
		if addr&1 != 0 {
			panic(fmt.Sprintf("mmio handler address %#o not aligned", addr))
		}
		if _, ok := c.handlers[addr]; ok {
			panic(fmt.Sprintf("duplicate mmio handler for %#o", addr))
		}
		c.handlers[addr] = handler
	}
	c.devices = append(c.devices, handler)
	handler.Reset(c.state)
}

// LoadImage copies a binary into memory at start.
func (c *CPU) LoadImage(data []byte, start uint16) {
	for i, b := range data {
		c.memWriteByte(start+uint16(i), b)
	}
}

// Run executes until a HALT.
func (c *CPU) Run() {
	for c.Step() != Halted {
	}
}

// RunAt sets PC and runs until a HALT.
func (c *CPU) RunAt(pc uint16) {
	c.state.RegWriteWord(isa.PC, pc)
	c.Run()
}

// Step runs the machine for one instruction: devices tick, at most one
// interrupt is dispatched, then one instruction is fetched and executed.
// Undecodable words and emulator contract violations are fatal: Step
// panics on them.
func (c *CPU) Step() ExecRet {
	c.state.IncIns()

	if dev, inter := c.tickDevices(); inter != nil {
		if inter.Prio > c.state.Status().Prio() {
			c.waiting = false
			dev.InterruptAccepted()
			c.interrupt(inter.Vector)
		}
	}

	if c.waiting {
		return Waiting
	}

	words := c.state.NextIns()
	ins := isa.Decode(words)
	if ins == nil {
		panic(fmt.Sprintf("invalid instruction %#o at pc %#o", words[0], c.state.PC()))
	}
	slog.Debug("step", "pc", fmt.Sprintf("%#o", c.state.PC()), "ins", ins.StringPC(c.state.PC()))
	c.state.RegWriteWord(isa.PC, c.state.PC()+2)

	if misc, ok := ins.(*isa.MiscIns); ok && misc.Op == isa.Wait {
		c.waiting = true
		return Waiting
	}

	return c.exec(ins)
}

// tickDevices gives every device its time slice and keeps the highest
// priority interrupt request. Ties go to the earlier registered device.
func (c *CPU) tickDevices() (device.Handler, *device.Interrupt) {
	var bestDev device.Handler
	var best *device.Interrupt
	for _, dev := range c.devices {
		if inter := dev.Tick(c.state); inter != nil {
			if best == nil || inter.Prio > best.Prio {
				bestDev, best = dev, inter
			}
		}
	}
	return bestDev, best
}

// interrupt pushes PS then PC and loads the new pair from the vector.
func (c *CPU) interrupt(vector uint16) {
	oldPS := uint16(c.state.Status())
	oldPC := c.state.PC()
	c.pushWord(oldPS)
	c.pushWord(oldPC)

	newPC := c.memReadWord(vector)
	newPS := c.memReadWord(vector + 2)
	slog.Debug("interrupt", "vector", fmt.Sprintf("%#o", vector),
		"oldpc", fmt.Sprintf("%#o", oldPC), "newpc", fmt.Sprintf("%#o", newPC))
	c.state.RegWriteWord(isa.PC, newPC)
	c.state.SetStatus(state.Status(newPS))
}

///////////////////////////////////////////////////////////////////////////
// Memory access with MMIO routing.

func (c *CPU) memReadByte(addr uint16) uint8 {
	if addr >= state.MMIOStart {
		if handler, ok := c.handlers[addr&^1]; ok {
			return handler.ReadByte(c.state, addr)
		}
		panic(fmt.Sprintf("invalid mmio register %#o", addr))
	}
	return c.state.MemReadByte(addr)
}

func (c *CPU) memWriteByte(addr uint16, val uint8) {
	if addr >= state.MMIOStart {
		if handler, ok := c.handlers[addr&^1]; ok {
			handler.WriteByte(c.state, addr, val)
			return
		}
		panic(fmt.Sprintf("invalid mmio register %#o", addr))
	}
	c.state.MemWriteByte(addr, val)
}

func (c *CPU) memReadWord(addr uint16) uint16 {
	if addr&1 != 0 {
		panic(fmt.Sprintf("unaligned word read of %#o", addr))
	}
	if addr >= state.MMIOStart {
		if handler, ok := c.handlers[addr]; ok {
			return handler.ReadWord(c.state, addr)
		}
		panic(fmt.Sprintf("invalid mmio register %#o", addr))
	}
	return c.state.MemReadWord(addr)
}

func (c *CPU) memWriteWord(addr uint16, val uint16) {
	if addr&1 != 0 {
		panic(fmt.Sprintf("unaligned word write of %#o", addr))
	}
	if addr >= state.MMIOStart {
		if handler, ok := c.handlers[addr]; ok {
			handler.WriteWord(c.state, addr, val)
			return
		}
		panic(fmt.Sprintf("invalid mmio register %#o", addr))
	}
	c.state.MemWriteWord(addr, val)
}

// MemReadWord is the monitor's window into the machine, MMIO included.
func (c *CPU) MemReadWord(addr uint16) uint16 {
	return c.memReadWord(addr)
}

// MemWriteWord is the monitor's deposit path, MMIO included.
func (c *CPU) MemWriteWord(addr uint16, val uint16) {
	c.memWriteWord(addr, val)
}

func (c *CPU) pushWord(val uint16) {
	sp := c.state.RegReadWord(isa.SP) - 2
	c.state.RegWriteWord(isa.SP, sp)
	c.memWriteWord(sp, val)
}

func (c *CPU) popWord() uint16 {
	sp := c.state.RegReadWord(isa.SP)
	val := c.memReadWord(sp)
	c.state.RegWriteWord(isa.SP, sp+2)
	return val
}
