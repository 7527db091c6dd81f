/*
 * PDP11 - Relocation modes and evaluated values.
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

package assembler

import (
	"errors"
	"fmt"

	"github.com/rcornwell/PDP11/isa"
)

// Mode is the relocation mode of an evaluated value, what the Unix v6
// manual calls a "type".
type Mode int

const (
	Undef Mode = iota
	UndefExt
	Abs
	Text
	Data
	Bss
	Ext // External absolute, text, data or bss
	RegMode
)

var modeNames = map[Mode]string{
	Undef: "undefined", UndefExt: "undefined external", Abs: "absolute",
	Text: "text", Data: "data", Bss: "bss", Ext: "external", RegMode: "register",
}

func (m Mode) String() string {
	return modeNames[m]
}

// opMode gives the mode of lhs op rhs, or false for an illegal combination.
// Undef operands propagate, absolute arithmetic is unrestricted, and a
// relocatable value admits only absolute adjustment or subtraction of a
// value from the same segment.
func opMode(lhs Mode, op isa.Op, rhs Mode) (Mode, bool) {
	if lhs == Undef || rhs == Undef {
		return Undef, true
	}
	if lhs == Abs && rhs == Abs {
		return Abs, true
	}
	if op == isa.OpAdd && rhs == Abs {
		switch lhs {
		case UndefExt, Text, Data, Bss:
			return lhs, true
		}
	}
	if op == isa.OpSub {
		if rhs == Abs {
			switch lhs {
			case Text, Data, Bss:
				return lhs, true
			}
		}
		if lhs == rhs {
			switch lhs {
			case Text, Data, Bss:
				return Abs, true
			}
		}
	}
	return Undef, false
}

// Value is an evaluated expression: a sixteen bit quantity and its mode.
type Value struct {
	Val  uint16
	Mode Mode
}

// errUnresolved is the sentinel for a symbol that has no value yet this
// pass. It is swallowed by the evaluator and retried on the next pass.
var errUnresolved = errors.New("unresolved symbol")

// apply combines two values under the relocation algebra.
func (v Value) apply(op isa.Op, rhs Value) (Value, error) {
	mode, ok := opMode(v.Mode, op, rhs.Mode)
	if !ok {
		return Value{}, fmt.Errorf("illegal expression: %v value %v %v value", v.Mode, op, rhs.Mode)
	}
	var val uint16
	switch op {
	case isa.OpAdd:
		val = v.Val + rhs.Val
	case isa.OpSub:
		val = v.Val - rhs.Val
	case isa.OpAnd:
		val = v.Val & rhs.Val
	case isa.OpOr:
		val = v.Val | rhs.Val
	}
	return Value{Val: val, Mode: mode}, nil
}
