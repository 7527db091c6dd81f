/*
 * PDP11 - Instruction families, encode and decode.
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

// Package isa models the PDP-11 instruction set: a tagged representation of
// every instruction family with bit exact encode and decode, operand mode
// semantics, and formatted disassembly. The assembler, disassembler and
// emulator all share this model.
//
// Each family owns a slice of the sixteen bit opcode space; decoding tries
// the families in a fixed order, from double operand down to trap, and the
// first family whose opcode table recognizes the word wins.
package isa

import (
	"fmt"
	"strings"
)

const (
	// WordSize is the size of a machine word in bytes.
	WordSize = 2

	// MaxInsWords is the longest instruction: opcode plus two extras.
	MaxInsWords = 3
)

// Ins is one decoded or assembled instruction of any family.
type Ins interface {
	// NumExtra counts the extra words attached to the operands.
	NumExtra() uint16

	// Size is the encoded size in bytes.
	Size() uint16

	// Encode renders the instruction as the opcode word followed by the
	// extra words in source then destination order.
	Encode() []uint16

	// CheckResolved reports the first unresolved symbol reference.
	CheckResolved() error

	// StringPC renders disassembly with PC relative operands resolved to
	// absolute addresses; pc is the instruction's own address.
	StringPC(pc uint16) string

	fmt.Stringer
}

func insSize(ins Ins) uint16 {
	return WordSize + WordSize*ins.NumExtra()
}

func mnemonic(name string, operands ...string) string {
	if len(operands) == 0 {
		return name
	}
	return name + "\t\t" + strings.Join(operands, ", ")
}

////////////////////////////////////////////////////////////////////////////////

// Double operand instructions: opcode(4) | src(6) | dst(6). Byte variants
// overlay the top nibble with 1; SUB takes MOVB's would-be word slot.
type DoubleOperandOpcode uint16

const (
	Mov  DoubleOperandOpcode = 0o01
	Cmp  DoubleOperandOpcode = 0o02
	Bit  DoubleOperandOpcode = 0o03
	Bic  DoubleOperandOpcode = 0o04
	Bis  DoubleOperandOpcode = 0o05
	Add  DoubleOperandOpcode = 0o06
	MovB DoubleOperandOpcode = 0o11
	CmpB DoubleOperandOpcode = 0o12
	BitB DoubleOperandOpcode = 0o13
	BicB DoubleOperandOpcode = 0o14
	BisB DoubleOperandOpcode = 0o15
	Sub  DoubleOperandOpcode = 0o16
)

var doubleOperandNames = map[DoubleOperandOpcode]string{
	Mov: "mov", Cmp: "cmp", Bit: "bit", Bic: "bic", Bis: "bis", Add: "add",
	MovB: "movb", CmpB: "cmpb", BitB: "bitb", BicB: "bicb", BisB: "bisb", Sub: "sub",
}

func (op DoubleOperandOpcode) String() string {
	return doubleOperandNames[op]
}

// IsByte reports whether the opcode is one of the byte variants.
func (op DoubleOperandOpcode) IsByte() bool {
	return op >= MovB && op != Sub
}

type DoubleOperandIns struct {
	Op  DoubleOperandOpcode
	Src Operand
	Dst Operand
}

const doubleOperandShift = 16 - 4

func (i *DoubleOperandIns) NumExtra() uint16 {
	return i.Src.NumExtra() + i.Dst.NumExtra()
}

func (i *DoubleOperandIns) Size() uint16 { return insSize(i) }

func (i *DoubleOperandIns) Encode() []uint16 {
	out := []uint16{uint16(i.Op)<<doubleOperandShift |
		i.Src.Encode()<<OperandBits | i.Dst.Encode()}
	if i.Src.HasExtra() {
		out = append(out, i.Src.ExtraVal())
	}
	if i.Dst.HasExtra() {
		out = append(out, i.Dst.ExtraVal())
	}
	return out
}

func (i *DoubleOperandIns) CheckResolved() error {
	if err := i.Src.CheckResolved(); err != nil {
		return err
	}
	return i.Dst.CheckResolved()
}

func (i *DoubleOperandIns) String() string {
	return mnemonic(i.Op.String(), i.Src.String(), i.Dst.String())
}

func (i *DoubleOperandIns) StringPC(pc uint16) string {
	src := i.Src.stringWithAddr(pc + 2)
	dst := i.Dst.stringWithAddr(pc + 2 + 2*i.Src.NumExtra())
	return mnemonic(i.Op.String(), src, dst)
}

func decodeDoubleOperand(words []uint16) Ins {
	op := DoubleOperandOpcode(words[0] >> doubleOperandShift)
	if _, ok := doubleOperandNames[op]; !ok {
		return nil
	}
	src, ok := decodeOperand(words[0]>>OperandBits, words, 1)
	if !ok {
		return nil
	}
	dst, ok := decodeOperand(words[0], words, int(src.NumExtra())+1)
	if !ok {
		return nil
	}
	return &DoubleOperandIns{Op: op, Src: src, Dst: dst}
}

////////////////////////////////////////////////////////////////////////////////

// Branch instructions: opcode(8) | signed offset(8) in words.
type BranchOpcode uint16

const (
	Br  BranchOpcode = 0o001
	Bne BranchOpcode = 0o002
	Beq BranchOpcode = 0o003
	Bge BranchOpcode = 0o004
	Blt BranchOpcode = 0o005
	Bgt BranchOpcode = 0o006
	Ble BranchOpcode = 0o007

	Bpl  BranchOpcode = 0o200
	Bmi  BranchOpcode = 0o201
	Bhi  BranchOpcode = 0o202
	Blos BranchOpcode = 0o203
	Bvc  BranchOpcode = 0o204
	Bvs  BranchOpcode = 0o205
	Bcc  BranchOpcode = 0o206
	Bcs  BranchOpcode = 0o207
)

var branchNames = map[BranchOpcode]string{
	Br: "br", Bne: "bne", Beq: "beq", Bge: "bge", Blt: "blt", Bgt: "bgt",
	Ble: "ble", Bpl: "bpl", Bmi: "bmi", Bhi: "bhi", Blos: "blos",
	Bvc: "bvc", Bvs: "bvs", Bcc: "bcc", Bcs: "bcs",
}

func (op BranchOpcode) String() string {
	return branchNames[op]
}

type BranchIns struct {
	Op     BranchOpcode
	Target Target
}

const (
	branchShift      = 16 - 8
	BranchOffsetMask = (1 << 8) - 1
)

func (i *BranchIns) NumExtra() uint16 { return 0 }
func (i *BranchIns) Size() uint16     { return insSize(i) }

func (i *BranchIns) Encode() []uint16 {
	return []uint16{uint16(i.Op)<<branchShift | uint16(i.Target.MustOffset())}
}

func (i *BranchIns) CheckResolved() error {
	return i.Target.CheckResolved()
}

func (i *BranchIns) String() string {
	return mnemonic(i.Op.String(), i.Target.String())
}

func (i *BranchIns) StringPC(pc uint16) string {
	return mnemonic(i.Op.String(), i.Target.stringWithPC(pc))
}

func decodeBranch(words []uint16) Ins {
	op := BranchOpcode(words[0] >> branchShift)
	if _, ok := branchNames[op]; !ok {
		return nil
	}
	return &BranchIns{Op: op, Target: OffsetTarget(uint8(words[0] & BranchOffsetMask))}
}

////////////////////////////////////////////////////////////////////////////////

// JMP: opcode(10) | dst(6).
type JmpIns struct {
	Dst Operand
}

const (
	jmpShift  = 16 - 10
	jmpOpcode = 0o1
)

func (i *JmpIns) NumExtra() uint16 { return i.Dst.NumExtra() }
func (i *JmpIns) Size() uint16     { return insSize(i) }

func (i *JmpIns) Encode() []uint16 {
	out := []uint16{jmpOpcode<<jmpShift | i.Dst.Encode()}
	if i.Dst.HasExtra() {
		out = append(out, i.Dst.ExtraVal())
	}
	return out
}

func (i *JmpIns) CheckResolved() error {
	return i.Dst.CheckResolved()
}

func (i *JmpIns) String() string {
	return mnemonic("jmp", i.Dst.String())
}

func (i *JmpIns) StringPC(pc uint16) string {
	return mnemonic("jmp", i.Dst.stringWithAddr(pc+2))
}

func decodeJmp(words []uint16) Ins {
	if words[0]>>jmpShift != jmpOpcode {
		return nil
	}
	dst, ok := decodeOperand(words[0], words, 1)
	if !ok {
		return nil
	}
	return &JmpIns{Dst: dst}
}

////////////////////////////////////////////////////////////////////////////////

// JSR: opcode(7) | link reg(3) | dst(6).
type JsrIns struct {
	Reg Reg
	Dst Operand
}

const (
	jsrShift  = 16 - 7
	jsrOpcode = 0o4
)

func (i *JsrIns) NumExtra() uint16 { return i.Dst.NumExtra() }
func (i *JsrIns) Size() uint16     { return insSize(i) }

func (i *JsrIns) Encode() []uint16 {
	out := []uint16{jsrOpcode<<jsrShift | uint16(i.Reg)<<OperandBits | i.Dst.Encode()}
	if i.Dst.HasExtra() {
		out = append(out, i.Dst.ExtraVal())
	}
	return out
}

func (i *JsrIns) CheckResolved() error {
	return i.Dst.CheckResolved()
}

func (i *JsrIns) String() string {
	return mnemonic("jsr", i.Reg.String(), i.Dst.String())
}

func (i *JsrIns) StringPC(pc uint16) string {
	return mnemonic("jsr", i.Reg.String(), i.Dst.stringWithAddr(pc+2))
}

func decodeJsr(words []uint16) Ins {
	if words[0]>>jsrShift != jsrOpcode {
		return nil
	}
	dst, ok := decodeOperand(words[0], words, 1)
	if !ok {
		return nil
	}
	reg := Reg((words[0] >> OperandBits) & regMask)
	return &JsrIns{Reg: reg, Dst: dst}
}

////////////////////////////////////////////////////////////////////////////////

// RTS: opcode(13) | link reg(3).
type RtsIns struct {
	Reg Reg
}

const (
	rtsShift  = 16 - 13
	rtsOpcode = 0o20
)

func (i *RtsIns) NumExtra() uint16 { return 0 }
func (i *RtsIns) Size() uint16     { return insSize(i) }

func (i *RtsIns) Encode() []uint16 {
	return []uint16{rtsOpcode<<rtsShift | uint16(i.Reg)}
}

func (i *RtsIns) CheckResolved() error { return nil }

func (i *RtsIns) String() string {
	return mnemonic("rts", i.Reg.String())
}

func (i *RtsIns) StringPC(uint16) string { return i.String() }

func decodeRts(words []uint16) Ins {
	if words[0]>>rtsShift != rtsOpcode {
		return nil
	}
	return &RtsIns{Reg: Reg(words[0] & regMask)}
}

////////////////////////////////////////////////////////////////////////////////

// Single operand instructions: opcode(10) | dst(6).
type SingleOperandOpcode uint16

const (
	Swab SingleOperandOpcode = 0o0003

	Clr SingleOperandOpcode = 0o0050
	Com SingleOperandOpcode = 0o0051
	Inc SingleOperandOpcode = 0o0052
	Dec SingleOperandOpcode = 0o0053
	Neg SingleOperandOpcode = 0o0054
	Adc SingleOperandOpcode = 0o0055
	Sbc SingleOperandOpcode = 0o0056
	Tst SingleOperandOpcode = 0o0057
	Ror SingleOperandOpcode = 0o0060
	Rol SingleOperandOpcode = 0o0061
	Asr SingleOperandOpcode = 0o0062
	Asl SingleOperandOpcode = 0o0063

	ClrB SingleOperandOpcode = 0o1050
	ComB SingleOperandOpcode = 0o1051
	IncB SingleOperandOpcode = 0o1052
	DecB SingleOperandOpcode = 0o1053
	NegB SingleOperandOpcode = 0o1054
	AdcB SingleOperandOpcode = 0o1055
	SbcB SingleOperandOpcode = 0o1056
	TstB SingleOperandOpcode = 0o1057
	RorB SingleOperandOpcode = 0o1060
	RolB SingleOperandOpcode = 0o1061
	AsrB SingleOperandOpcode = 0o1062
	AslB SingleOperandOpcode = 0o1063
)

var singleOperandNames = map[SingleOperandOpcode]string{
	Swab: "swab",
	Clr:  "clr", Com: "com", Inc: "inc", Dec: "dec", Neg: "neg",
	Adc: "adc", Sbc: "sbc", Tst: "tst", Ror: "ror", Rol: "rol",
	Asr: "asr", Asl: "asl",
	ClrB: "clrb", ComB: "comb", IncB: "incb", DecB: "decb", NegB: "negb",
	AdcB: "adcb", SbcB: "sbcb", TstB: "tstb", RorB: "rorb", RolB: "rolb",
	AsrB: "asrb", AslB: "aslb",
}

func (op SingleOperandOpcode) String() string {
	return singleOperandNames[op]
}

// IsByte reports whether the opcode is one of the byte variants.
func (op SingleOperandOpcode) IsByte() bool {
	return op >= ClrB
}

type SingleOperandIns struct {
	Op  SingleOperandOpcode
	Dst Operand
}

const singleOperandShift = 16 - 10

func (i *SingleOperandIns) NumExtra() uint16 { return i.Dst.NumExtra() }
func (i *SingleOperandIns) Size() uint16     { return insSize(i) }

func (i *SingleOperandIns) Encode() []uint16 {
	out := []uint16{uint16(i.Op)<<singleOperandShift | i.Dst.Encode()}
	if i.Dst.HasExtra() {
		out = append(out, i.Dst.ExtraVal())
	}
	return out
}

func (i *SingleOperandIns) CheckResolved() error {
	return i.Dst.CheckResolved()
}

func (i *SingleOperandIns) String() string {
	return mnemonic(i.Op.String(), i.Dst.String())
}

func (i *SingleOperandIns) StringPC(pc uint16) string {
	return mnemonic(i.Op.String(), i.Dst.stringWithAddr(pc+2))
}

func decodeSingleOperand(words []uint16) Ins {
	op := SingleOperandOpcode(words[0] >> singleOperandShift)
	if _, ok := singleOperandNames[op]; !ok {
		return nil
	}
	dst, ok := decodeOperand(words[0], words, 1)
	if !ok {
		return nil
	}
	return &SingleOperandIns{Op: op, Dst: dst}
}

////////////////////////////////////////////////////////////////////////////////

// KE11-E extended instruction set: opcode(7) | reg(3) | operand(6).
// XOR is not strictly EIS but shares the format, with the operand as the
// destination.
type EisOpcode uint16

const (
	Mul  EisOpcode = 0o70
	Div  EisOpcode = 0o71
	Ash  EisOpcode = 0o72
	Ashc EisOpcode = 0o73
	Xor  EisOpcode = 0o74
)

var eisNames = map[EisOpcode]string{
	Mul: "mul", Div: "div", Ash: "ash", Ashc: "ashc", Xor: "xor",
}

func (op EisOpcode) String() string {
	return eisNames[op]
}

type EisIns struct {
	Op      EisOpcode
	Reg     Reg
	Operand Operand
}

const eisShift = 16 - 7

func (i *EisIns) NumExtra() uint16 { return i.Operand.NumExtra() }
func (i *EisIns) Size() uint16     { return insSize(i) }

func (i *EisIns) Encode() []uint16 {
	if i.Op == Div && uint16(i.Reg)&1 != 0 {
		panic("div register must be even")
	}
	out := []uint16{uint16(i.Op)<<eisShift | uint16(i.Reg)<<OperandBits | i.Operand.Encode()}
	if i.Operand.HasExtra() {
		out = append(out, i.Operand.ExtraVal())
	}
	return out
}

func (i *EisIns) CheckResolved() error {
	return i.Operand.CheckResolved()
}

func (i *EisIns) String() string {
	return mnemonic(i.Op.String(), i.Operand.String(), i.Reg.String())
}

func (i *EisIns) StringPC(pc uint16) string {
	return mnemonic(i.Op.String(), i.Operand.stringWithAddr(pc+2), i.Reg.String())
}

func decodeEis(words []uint16) Ins {
	op := EisOpcode(words[0] >> eisShift)
	if _, ok := eisNames[op]; !ok {
		return nil
	}
	operand, ok := decodeOperand(words[0], words, 1)
	if !ok {
		return nil
	}
	reg := Reg((words[0] >> OperandBits) & regMask)
	return &EisIns{Op: op, Reg: reg, Operand: operand}
}

////////////////////////////////////////////////////////////////////////////////

// Condition code operates: full sixteen bit literals. Bit 4 selects set or
// clear, the low four bits select which of N, Z, V, C to touch.
type CCOpcode uint16

const (
	Nop CCOpcode = 0o240
	Clc CCOpcode = 0o241
	Clv CCOpcode = 0o242
	Clz CCOpcode = 0o244
	Cln CCOpcode = 0o250
	Sec CCOpcode = 0o261
	Sev CCOpcode = 0o262
	Sez CCOpcode = 0o264
	Sen CCOpcode = 0o270
)

var ccNames = map[CCOpcode]string{
	Nop: "nop", Clc: "clc", Clv: "clv", Clz: "clz", Cln: "cln",
	Sec: "sec", Sev: "sev", Sez: "sez", Sen: "sen",
}

func (op CCOpcode) String() string {
	return ccNames[op]
}

type CCIns struct {
	Op CCOpcode
}

func (i *CCIns) NumExtra() uint16 { return 0 }
func (i *CCIns) Size() uint16     { return insSize(i) }

func (i *CCIns) Encode() []uint16 {
	return []uint16{uint16(i.Op)}
}

func (i *CCIns) CheckResolved() error { return nil }

func (i *CCIns) String() string { return i.Op.String() }

func (i *CCIns) StringPC(uint16) string { return i.String() }

func decodeCC(words []uint16) Ins {
	op := CCOpcode(words[0])
	if _, ok := ccNames[op]; !ok {
		return nil
	}
	return &CCIns{Op: op}
}

////////////////////////////////////////////////////////////////////////////////

// Miscellaneous zero operand instructions, full sixteen bit literals.
type MiscOpcode uint16

const (
	Halt  MiscOpcode = 0o0
	Wait  MiscOpcode = 0o1
	Rti   MiscOpcode = 0o2
	Iox   MiscOpcode = 0o3 // I/O executive routine, no defined mnemonic
	Iot   MiscOpcode = 0o4
	Reset MiscOpcode = 0o5
)

var miscNames = map[MiscOpcode]string{
	Halt: "halt", Wait: "wait", Rti: "rti", Iox: "iox", Iot: "iot", Reset: "reset",
}

func (op MiscOpcode) String() string {
	return miscNames[op]
}

type MiscIns struct {
	Op MiscOpcode
}

func (i *MiscIns) NumExtra() uint16 { return 0 }
func (i *MiscIns) Size() uint16     { return insSize(i) }

func (i *MiscIns) Encode() []uint16 {
	return []uint16{uint16(i.Op)}
}

func (i *MiscIns) CheckResolved() error { return nil }

func (i *MiscIns) String() string { return i.Op.String() }

func (i *MiscIns) StringPC(uint16) string { return i.String() }

func decodeMisc(words []uint16) Ins {
	op := MiscOpcode(words[0])
	if _, ok := miscNames[op]; !ok {
		return nil
	}
	return &MiscIns{Op: op}
}

////////////////////////////////////////////////////////////////////////////////

// Trap instructions: opcode(8) | payload(8).
type TrapOpcode uint16

const (
	Emt  TrapOpcode = 0o210
	Trap TrapOpcode = 0o211
)

var trapNames = map[TrapOpcode]string{
	Emt: "emt", Trap: "trap",
}

func (op TrapOpcode) String() string {
	return trapNames[op]
}

type TrapIns struct {
	Op   TrapOpcode
	Data Expr
}

const (
	trapShift    = 16 - 8
	trapDataMask = (1 << 8) - 1
)

func (i *TrapIns) NumExtra() uint16 { return 0 }
func (i *TrapIns) Size() uint16     { return insSize(i) }

func (i *TrapIns) Encode() []uint16 {
	data := MustVal(i.Data)
	if data&^uint16(trapDataMask) != 0 {
		panic(fmt.Sprintf("trap payload %#o exceeds eight bits", data))
	}
	return []uint16{uint16(i.Op)<<trapShift | data}
}

func (i *TrapIns) CheckResolved() error {
	return i.Data.CheckResolved()
}

func (i *TrapIns) String() string {
	return mnemonic(i.Op.String(), fmt.Sprintf("%#o", MustVal(i.Data)))
}

func (i *TrapIns) StringPC(uint16) string { return i.String() }

func decodeTrap(words []uint16) Ins {
	op := TrapOpcode(words[0] >> trapShift)
	if _, ok := trapNames[op]; !ok {
		return nil
	}
	return &TrapIns{Op: op, Data: Word(words[0] & trapDataMask)}
}

////////////////////////////////////////////////////////////////////////////////

type decoder func([]uint16) Ins

// Family order matters: several short opcodes live inside the holes of the
// wider fields, so each family only claims words its opcode table lists,
// and the first hit wins.
var decoders = []decoder{
	decodeDoubleOperand,
	decodeBranch,
	decodeJmp,
	decodeJsr,
	decodeRts,
	decodeSingleOperand,
	decodeEis,
	decodeCC,
	decodeMisc,
	decodeTrap,
}

// Decode recovers an instruction from the word stream, consuming as many
// words as the operand mode fields require. Returns nil if no family
// recognizes the first word or the stream is too short for its extras.
func Decode(words []uint16) Ins {
	if len(words) == 0 {
		return nil
	}
	for _, dec := range decoders {
		if ins := dec(words); ins != nil {
			return ins
		}
	}
	return nil
}
