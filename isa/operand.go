/*
 * PDP11 - Instruction set model, operands and addressing modes.
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

package isa

import "fmt"

// Addressing mode of an operand, low three bits of the mode field.
type AddrMode uint16

const (
	Gen        AddrMode = iota // Rn
	Def                        // (Rn)
	AutoInc                    // (Rn)+
	AutoIncDef                 // @(Rn)+
	AutoDec                    // -(Rn)
	AutoDecDef                 // @-(Rn)
	Index                      // X(Rn)
	IndexDef                   // @X(Rn)
)

const (
	modeBits = 3
	modeMask = (1 << modeBits) - 1
)

// General purpose register number.
type Reg uint16

const (
	R0 Reg = iota
	R1
	R2
	R3
	R4
	R5
	SP
	PC
)

// NumRegs is the size of the register file.
const NumRegs = 8

const (
	regBits = 3
	regMask = (1 << regBits) - 1
)

var regNames = [NumRegs]string{"r0", "r1", "r2", "r3", "r4", "r5", "sp", "pc"}

func (r Reg) String() string {
	return regNames[r&regMask]
}

// Kind of extra word attached to an operand by the assembler.
type ExtraKind int

const (
	ExtraNone ExtraKind = iota
	ExtraImm            // Literal extra word
	ExtraRel            // PC relative, converted to an offset during assembly
)

// Extra holds the expression for the extra word an operand consumes.
// Only the assembler populates it with anything but literals.
type Extra struct {
	Kind ExtraKind
	Expr Expr
}

// Operand is a six bit mode/register field plus any attached extra word.
type Operand struct {
	Mode  AddrMode
	Reg   Reg
	Extra Extra
}

const (
	// OperandBits is the width of an encoded operand field.
	OperandBits = modeBits + regBits
	operandMask = (1 << OperandBits) - 1
)

func NewOperand(mode AddrMode, reg Reg, extra Extra) Operand {
	op := Operand{Mode: mode, Reg: reg, Extra: extra}
	if op.NeedsExtra() && extra.Kind == ExtraNone {
		panic(fmt.Sprintf("operand %v %v requires an extra word", mode, reg))
	}
	return op
}

// RegOperand is shorthand for a register in general mode.
func RegOperand(reg Reg) Operand {
	return Operand{Mode: Gen, Reg: reg}
}

// NeedsExtra reports whether this operand consumes a word of instruction
// stream: index modes always do, and PC auto increment holds an immediate.
func (o *Operand) NeedsExtra() bool {
	switch o.Mode {
	case Index, IndexDef:
		return true
	case AutoInc, AutoIncDef:
		return o.Reg == PC
	}
	return false
}

func (o *Operand) HasExtra() bool {
	return o.Extra.Kind != ExtraNone
}

// NumExtra returns how many extra words the operand occupies, 0 or 1.
func (o *Operand) NumExtra() uint16 {
	if o.HasExtra() {
		return 1
	}
	return 0
}

// AddExtra attaches a decoded literal extra word. PC relative index words
// are tagged Rel so the disassembler can render them as absolute addresses.
func (o *Operand) AddExtra(val uint16) {
	expr := Word(val)
	switch {
	case (o.Mode == AutoInc || o.Mode == AutoIncDef) && o.Reg == PC:
		o.Extra = Extra{Kind: ExtraImm, Expr: expr}
	case (o.Mode == Index || o.Mode == IndexDef) && o.Reg == PC:
		o.Extra = Extra{Kind: ExtraRel, Expr: expr}
	case o.Mode == Index || o.Mode == IndexDef:
		o.Extra = Extra{Kind: ExtraImm, Expr: expr}
	default:
		panic(fmt.Sprintf("operand with mode %v and reg %v takes no extra", o.Mode, o.Reg))
	}
}

// ExtraVal returns the resolved extra word. Valid only after assembly or
// decode has reduced the extra expression to a literal.
func (o *Operand) ExtraVal() uint16 {
	return MustVal(o.Extra.Expr)
}

// Encode packs mode and register into the six bit operand field. Encoding
// an operand that needs an extra word but carries none is a programmer
// error.
func (o *Operand) Encode() uint16 {
	if o.NeedsExtra() && !o.HasExtra() {
		panic(fmt.Sprintf("operand %v %v encoded without its extra word", o.Mode, o.Reg))
	}
	return uint16(o.Reg)&regMask | (uint16(o.Mode)&modeMask)<<regBits
}

// CheckResolved reports an error if the extra still references a symbol.
func (o *Operand) CheckResolved() error {
	if o.Extra.Kind == ExtraNone {
		return nil
	}
	return o.Extra.Expr.CheckResolved()
}

func (o Operand) String() string {
	switch {
	case o.Mode == Index && o.Reg == PC:
		return fmt.Sprintf(". + %#o", 2+o.ExtraVal())
	case o.Mode == IndexDef && o.Reg == PC:
		return fmt.Sprintf("@ . + %#o", 2+o.ExtraVal())
	case o.Mode == AutoInc && o.Reg == PC:
		return fmt.Sprintf("#%#o", o.ExtraVal())
	case o.Mode == AutoIncDef && o.Reg == PC:
		return fmt.Sprintf("@#%#o", o.ExtraVal())
	}
	switch o.Mode {
	case Gen:
		return o.Reg.String()
	case Def:
		return fmt.Sprintf("(%v)", o.Reg)
	case AutoInc:
		return fmt.Sprintf("(%v)+", o.Reg)
	case AutoIncDef:
		return fmt.Sprintf("@(%v)+", o.Reg)
	case AutoDec:
		return fmt.Sprintf("-(%v)", o.Reg)
	case AutoDecDef:
		return fmt.Sprintf("@-(%v)", o.Reg)
	case Index:
		return fmt.Sprintf("%#o(%v)", o.ExtraVal(), o.Reg)
	case IndexDef:
		return fmt.Sprintf("@%#o(%v)", o.ExtraVal(), o.Reg)
	}
	return "?"
}

// stringWithAddr renders the operand with PC relative modes resolved to
// absolute addresses. addr is the address of the extra word, should one
// exist; index words are relative to the word after it.
func (o *Operand) stringWithAddr(addr uint16) string {
	base := addr + 2
	switch {
	case o.Mode == Index && o.Reg == PC:
		return fmt.Sprintf("%#o", base+o.ExtraVal())
	case o.Mode == IndexDef && o.Reg == PC:
		return fmt.Sprintf("@%#o", base+o.ExtraVal())
	}
	return o.String()
}

// decodeOperand recovers an operand from the low six bits of arg, pulling
// the extra word from words[extraIdx] when one is required. Reports failure
// when the instruction stream is too short.
func decodeOperand(arg uint16, words []uint16, extraIdx int) (Operand, bool) {
	op := Operand{
		Mode: AddrMode((arg >> regBits) & modeMask),
		Reg:  Reg(arg & regMask),
	}
	if op.NeedsExtra() {
		if extraIdx >= len(words) {
			return op, false
		}
		op.AddExtra(words[extraIdx])
	}
	return op, true
}

// Branch targets. The assembler carries symbolic targets; the emulator and
// disassembler only ever see resolved offsets.
type TargetKind int

const (
	TargetOffset TargetKind = iota
	TargetLabel
	TargetTmpF
	TargetTmpB
)

type Target struct {
	Kind   TargetKind
	Label  string // TargetLabel
	Tmp    uint16 // TargetTmpF, TargetTmpB
	Offset uint8  // TargetOffset, signed word count
}

func LabelTarget(name string) Target {
	return Target{Kind: TargetLabel, Label: name}
}

func OffsetTarget(off uint8) Target {
	return Target{Kind: TargetOffset, Offset: off}
}

func TmpFTarget(n uint16) Target {
	return Target{Kind: TargetTmpF, Tmp: n}
}

func TmpBTarget(n uint16) Target {
	return Target{Kind: TargetTmpB, Tmp: n}
}

// MustOffset returns the resolved branch offset.
func (t *Target) MustOffset() uint8 {
	if t.Kind != TargetOffset {
		panic("branch target not resolved to an offset")
	}
	return t.Offset
}

func (t *Target) CheckResolved() error {
	switch t.Kind {
	case TargetOffset:
		return nil
	case TargetLabel:
		return fmt.Errorf("unresolved symbol %q", t.Label)
	case TargetTmpF:
		return fmt.Errorf("unresolved temporary label %df", t.Tmp)
	case TargetTmpB:
		return fmt.Errorf("unresolved temporary label %db", t.Tmp)
	}
	return nil
}

func (t Target) String() string {
	switch t.Kind {
	case TargetLabel:
		return t.Label
	case TargetTmpF:
		return fmt.Sprintf("%df", t.Tmp)
	case TargetTmpB:
		return fmt.Sprintf("%db", t.Tmp)
	}
	return fmt.Sprintf(". + %#o", 2+uint16(int16(int8(t.Offset))*2))
}

// stringWithPC renders the target as an absolute address.
func (t *Target) stringWithPC(pc uint16) string {
	if t.Kind != TargetOffset {
		return t.String()
	}
	dest := pc + 2 + uint16(int16(int8(t.Offset))*2)
	return fmt.Sprintf("%#o", dest)
}
