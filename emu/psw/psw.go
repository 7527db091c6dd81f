/*
 * PDP11 - Processor status word MMIO register.
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

// Package psw exposes the processor status word at its fixed MMIO address
// so programs can read and set priority and condition codes directly.
package psw

import (
	"fmt"

	"github.com/rcornwell/PDP11/emu/device"
	"github.com/rcornwell/PDP11/emu/state"
)

// Addr is the PSW register address.
const Addr = 0o177776

// Access is the handler; it is stateless, everything lives in the PSW.
type Access struct{}

func New() *Access {
	return &Access{}
}

func (a *Access) Reset(*state.State)                   {}
func (a *Access) Tick(*state.State) *device.Interrupt  { return nil }
func (a *Access) InterruptAccepted()                   {}
func (a *Access) DefaultAddrs() []uint16               { return []uint16{Addr} }

func (a *Access) ReadWord(s *state.State, addr uint16) uint16 {
	if addr != Addr {
		panic(fmt.Sprintf("psw access does not handle %#o", addr))
	}
	return uint16(s.Status())
}

func (a *Access) ReadByte(s *state.State, addr uint16) uint8 {
	switch addr {
	case Addr:
		return uint8(s.Status())
	case Addr + 1:
		return uint8(uint16(s.Status()) >> 8)
	}
	panic(fmt.Sprintf("psw access does not handle %#o", addr))
}

func (a *Access) WriteWord(s *state.State, addr uint16, val uint16) {
	if addr != Addr {
		panic(fmt.Sprintf("psw access does not handle %#o", addr))
	}
	s.SetStatus(state.Status(val))
}

func (a *Access) WriteByte(s *state.State, addr uint16, val uint8) {
	switch addr {
	case Addr:
		s.SetStatus(state.Status(uint16(s.Status())&0xff00 | uint16(val)))
	case Addr + 1:
	default:
		panic(fmt.Sprintf("psw access does not handle %#o", addr))
	}
}
