/*
 * PDP11 - Emulator machine state.
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

// Package state holds the raw machine: 64 KiB of byte addressable memory,
// the eight register file, and the processor status word. Contract
// violations such as misaligned word access or pushing the stack below the
// interrupt vectors are fatal, matching the error taxonomy of a machine
// with no recovery story of its own.
package state

import (
	"fmt"

	"github.com/rcornwell/PDP11/isa"
)

// Memory layout constants.
const (
	// MemSize is the full byte addressable address space.
	MemSize = 1 << 16

	// VectorStart through DataStart hold the interrupt vectors.
	VectorStart = 0o0

	// DataStart is where programs conventionally load; writing SP below it
	// is treated as stack overflow.
	DataStart = 0o400

	// MMIOStart is the base of the memory mapped device page.
	MMIOStart = 0o160000
)

// Trap and interrupt vector addresses.
const (
	IotVector  = 0o20
	EmtVector  = 0o30
	TrapVector = 0o34
)

// Status is the processor status word: condition codes in the low four
// bits, the trace bit, and a three bit interrupt priority.
type Status uint16

const (
	carryShift    = 0
	overflowShift = 1
	zeroShift     = 2
	negativeShift = 3
	traceShift    = 4
	prioShift     = 5

	flagC = 1 << carryShift
	flagV = 1 << overflowShift
	flagZ = 1 << zeroShift
	flagN = 1 << negativeShift

	flagsMask = 0xf
	prioMask  = 0x7
)

func (s Status) Carry() bool    { return s&flagC != 0 }
func (s Status) Overflow() bool { return s&flagV != 0 }
func (s Status) Zero() bool     { return s&flagZ != 0 }
func (s Status) Negative() bool { return s&flagN != 0 }
func (s Status) Trace() bool    { return s&(1<<traceShift) != 0 }

// Prio is the processor priority; interrupts at or below it are held off.
func (s Status) Prio() uint8 {
	return uint8((s >> prioShift) & prioMask)
}

func (s *Status) setBit(bit Status, val bool) {
	*s &^= bit
	if val {
		*s |= bit
	}
}

func (s *Status) SetCarry(val bool)    { s.setBit(flagC, val) }
func (s *Status) SetOverflow(val bool) { s.setBit(flagV, val) }
func (s *Status) SetZero(val bool)     { s.setBit(flagZ, val) }
func (s *Status) SetNegative(val bool) { s.setBit(flagN, val) }

func (s *Status) SetPrio(prio uint8) {
	*s &^= prioMask << prioShift
	*s |= Status(prio&prioMask) << prioShift
}

// SetFlags sets the condition code bits given in mask.
func (s *Status) SetFlags(mask uint16) {
	*s |= Status(mask & flagsMask)
}

// ClearFlags clears the condition code bits given in mask.
func (s *Status) ClearFlags(mask uint16) {
	*s &^= Status(mask & flagsMask)
}

// Flags returns (z, n, c, v).
func (s Status) Flags() (bool, bool, bool, bool) {
	return s.Zero(), s.Negative(), s.Carry(), s.Overflow()
}

// State is the raw machine state. It carries no device knowledge; the cpu
// package routes high addresses to MMIO handlers before touching it.
type State struct {
	mem    [MemSize]byte
	regs   [isa.NumRegs]uint16
	status Status
	numIns uint64
}

func New() *State {
	return &State{}
}

// IncIns counts one executed instruction.
func (s *State) IncIns() {
	s.numIns++
}

// NumIns returns the instruction counter.
func (s *State) NumIns() uint64 {
	return s.numIns
}

func (s *State) MemReadByte(addr uint16) uint8 {
	return s.mem[addr]
}

func (s *State) MemWriteByte(addr uint16, val uint8) {
	s.mem[addr] = val
}

func checkAligned(addr uint16, op string) {
	if addr&1 != 0 {
		panic(fmt.Sprintf("unaligned word %s of %#o", op, addr))
	}
}

func (s *State) MemReadWord(addr uint16) uint16 {
	checkAligned(addr, "read")
	return uint16(s.mem[addr]) | uint16(s.mem[addr+1])<<8
}

func (s *State) MemWriteWord(addr uint16, val uint16) {
	checkAligned(addr, "write")
	s.mem[addr] = byte(val)
	s.mem[addr+1] = byte(val >> 8)
}

func (s *State) RegReadWord(reg isa.Reg) uint16 {
	return s.regs[reg]
}

func (s *State) RegWriteWord(reg isa.Reg, val uint16) {
	if reg == isa.SP && val < DataStart {
		panic(fmt.Sprintf("stack overflow: sp set to %#o", val))
	}
	s.regs[reg] = val
}

// RegReadByte returns the low byte of the register.
func (s *State) RegReadByte(reg isa.Reg) uint8 {
	return uint8(s.regs[reg])
}

// RegWriteByte stores into the low byte only. MOVB to a register instead
// sign extends; that lives in the cpu package, not here.
func (s *State) RegWriteByte(reg isa.Reg, val uint8) {
	s.RegWriteWord(reg, s.regs[reg]&^0xff|uint16(val))
}

func (s *State) PC() uint16 {
	return s.regs[isa.PC]
}

// NextIns returns the opcode word at PC and the two words after it, enough
// for the longest instruction. The fetch bypasses MMIO on purpose;
// executing out of device registers is not a thing this machine does.
func (s *State) NextIns() []uint16 {
	pc := s.PC()
	if pc&1 != 0 {
		panic(fmt.Sprintf("pc %#o not aligned", pc))
	}
	words := make([]uint16, isa.MaxInsWords)
	for i := range words {
		addr := pc + uint16(i)*isa.WordSize
		words[i] = uint16(s.mem[addr]) | uint16(s.mem[addr+1])<<8
	}
	return words
}

func (s *State) Status() Status {
	return s.status
}

func (s *State) SetStatus(status Status) {
	s.status = status
}

// StatusRef exposes the status word for in place flag updates.
func (s *State) StatusRef() *Status {
	return &s.status
}
