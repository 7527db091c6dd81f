/*
 * PDP11 - Instruction execution.
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

package cpu

import (
	"fmt"

	"github.com/rcornwell/PDP11/emu/state"
	"github.com/rcornwell/PDP11/isa"
)

// opSize selects byte or word semantics. Arithmetic widens to uint32 so the
// carry out of bit 15 (or bit 7) is observable.
type opSize int

const (
	sizeByte opSize = iota
	sizeWord
)

func (s opSize) bytes() uint16 {
	if s == sizeByte {
		return 1
	}
	return 2
}

func (s opSize) bits() uint16 {
	return s.bytes() * 8
}

func (s opSize) mask() uint32 {
	if s == sizeByte {
		return 0xff
	}
	return 0xffff
}

func (s opSize) smallestSigned() uint32 {
	return 1 << (s.bits() - 1)
}

func (s opSize) largestSigned() uint32 {
	return s.smallestSigned() - 1
}

func (s opSize) signBit(val uint32) uint32 {
	return (val >> (s.bits() - 1)) & 1
}

// resolved is an operand reduced to a register or a memory address.
type resolved struct {
	isReg bool
	reg   isa.Reg
	addr  uint16
}

func regRes(reg isa.Reg) resolved {
	return resolved{isReg: true, reg: reg}
}

func memRes(addr uint16) resolved {
	return resolved{addr: addr}
}

// execAuto performs the auto increment or decrement of reg and returns the
// address the operand uses. PC always steps by a full word, so immediates
// stay aligned even for byte instructions.
func (c *CPU) execAuto(reg isa.Reg, inc bool, size opSize) uint16 {
	if reg == isa.PC {
		size = sizeWord
	}
	val := c.state.RegReadWord(reg)
	if !inc {
		val -= size.bytes()
	}
	ret := val
	if inc {
		val += size.bytes()
	}
	c.state.RegWriteWord(reg, val)
	return ret
}

// resolve converts an operand to a register or a memory address. This is
// separate from read and write because an operand may get both in one
// instruction while the side effects here, the auto increment and
// decrement and the PC stepping over extras, must happen exactly once.
func (c *CPU) resolve(arg *isa.Operand, size opSize) resolved {
	switch arg.Mode {
	case isa.Gen:
		return regRes(arg.Reg)
	case isa.Def:
		return memRes(c.state.RegReadWord(arg.Reg))
	case isa.AutoInc:
		return memRes(c.execAuto(arg.Reg, true, size))
	case isa.AutoIncDef:
		addr := c.execAuto(arg.Reg, true, sizeWord)
		return memRes(c.memReadWord(addr))
	case isa.AutoDec:
		return memRes(c.execAuto(arg.Reg, false, size))
	case isa.AutoDecDef:
		addr := c.execAuto(arg.Reg, false, sizeWord)
		return memRes(c.memReadWord(addr))
	case isa.Index:
		// The index word is consumed before the base register is read, so
		// X(PC) is relative to the word after the index.
		index := c.memReadWord(c.execAuto(isa.PC, true, sizeWord))
		return memRes(c.state.RegReadWord(arg.Reg) + index)
	case isa.IndexDef:
		index := c.memReadWord(c.execAuto(isa.PC, true, sizeWord))
		return memRes(c.memReadWord(c.state.RegReadWord(arg.Reg) + index))
	}
	panic(fmt.Sprintf("unknown addressing mode %v", arg.Mode))
}

func (c *CPU) readResolvedWord(res resolved) uint16 {
	if res.isReg {
		return c.state.RegReadWord(res.reg)
	}
	return c.memReadWord(res.addr)
}

func (c *CPU) writeResolvedWord(res resolved, val uint16) {
	if res.isReg {
		c.state.RegWriteWord(res.reg, val)
		return
	}
	c.memWriteWord(res.addr, val)
}

func (c *CPU) readResolvedByte(res resolved) uint8 {
	if res.isReg {
		return c.state.RegReadByte(res.reg)
	}
	return c.memReadByte(res.addr)
}

func (c *CPU) writeResolvedByte(res resolved, val uint8) {
	if res.isReg {
		c.state.RegWriteByte(res.reg, val)
		return
	}
	c.memWriteByte(res.addr, val)
}

func (c *CPU) readWiden(res resolved, size opSize) uint32 {
	if size == sizeWord {
		return uint32(c.readResolvedWord(res))
	}
	return uint32(c.readResolvedByte(res))
}

func (c *CPU) writeNarrow(res resolved, val uint32, size opSize) {
	if size == sizeWord {
		c.writeResolvedWord(res, uint16(val))
		return
	}
	c.writeResolvedByte(res, uint8(val))
}

func (c *CPU) exec(ins isa.Ins) ExecRet {
	switch i := ins.(type) {
	case *isa.DoubleOperandIns:
		c.execDoubleOperand(i)
	case *isa.BranchIns:
		c.execBranch(i)
	case *isa.JmpIns:
		c.execJmp(i)
	case *isa.JsrIns:
		c.execJsr(i)
	case *isa.RtsIns:
		c.execRts(i)
	case *isa.SingleOperandIns:
		c.execSingleOperand(i)
	case *isa.EisIns:
		c.execEis(i)
	case *isa.CCIns:
		c.execCC(i)
	case *isa.MiscIns:
		return c.execMisc(i)
	case *isa.TrapIns:
		c.execTrap(i)
	}
	return Ok
}

///////////////////////////////////////////////////////////////////////////
// Double operand.

func (c *CPU) execDoubleOperand(ins *isa.DoubleOperandIns) {
	switch ins.Op {
	case isa.Mov:
		c.doMov(&ins.Src, &ins.Dst, sizeWord)
	case isa.MovB:
		c.doMov(&ins.Src, &ins.Dst, sizeByte)
	case isa.Cmp:
		c.doCmp(&ins.Src, &ins.Dst, sizeWord)
	case isa.CmpB:
		c.doCmp(&ins.Src, &ins.Dst, sizeByte)
	case isa.Bis:
		c.doBitwise(&ins.Src, &ins.Dst, sizeWord, bitOr, false)
	case isa.BisB:
		c.doBitwise(&ins.Src, &ins.Dst, sizeByte, bitOr, false)
	case isa.Bic:
		c.doBitwise(&ins.Src, &ins.Dst, sizeWord, bitClear, false)
	case isa.BicB:
		c.doBitwise(&ins.Src, &ins.Dst, sizeByte, bitClear, false)
	case isa.Bit:
		c.doBitwise(&ins.Src, &ins.Dst, sizeWord, bitAnd, true)
	case isa.BitB:
		c.doBitwise(&ins.Src, &ins.Dst, sizeByte, bitAnd, true)
	case isa.Add:
		c.doAdd(&ins.Src, &ins.Dst)
	case isa.Sub:
		c.doSub(&ins.Src, &ins.Dst)
	}
}

// doMov moves src to dst. A byte move to a register sign extends into the
// full sixteen bits; a byte move to memory touches one byte only.
func (c *CPU) doMov(src, dst *isa.Operand, size opSize) {
	srcRes := c.resolve(src, size)
	val := c.readWiden(srcRes, size)
	dstRes := c.resolve(dst, size)

	if size == sizeByte {
		if dstRes.isReg {
			c.writeResolvedWord(dstRes, uint16(int16(int8(uint8(val)))))
		} else {
			c.writeNarrow(dstRes, val, size)
		}
	} else {
		c.writeResolvedWord(dstRes, uint16(val))
	}

	status := c.state.StatusRef()
	status.SetZero(val == 0)
	status.SetNegative(size.signBit(val) != 0)
	status.SetOverflow(false)
}

func bitOr(src, dst uint32) uint32    { return src | dst }
func bitAnd(src, dst uint32) uint32   { return src & dst }
func bitClear(src, dst uint32) uint32 { return ^src & dst }

func (c *CPU) doBitwise(src, dst *isa.Operand, size opSize, op func(uint32, uint32) uint32, discard bool) {
	srcRes := c.resolve(src, size)
	srcVal := c.readWiden(srcRes, size)
	dstRes := c.resolve(dst, size)
	dstVal := c.readWiden(dstRes, size)
	res := op(srcVal, dstVal)

	status := c.state.StatusRef()
	status.SetZero(res == 0)
	status.SetNegative(size.signBit(res) != 0)
	// Carry not affected.
	status.SetOverflow(false)

	if !discard {
		c.writeNarrow(dstRes, res, size)
	}
}

func (c *CPU) doAdd(src, dst *isa.Operand) {
	const size = sizeWord
	srcRes := c.resolve(src, size)
	srcVal := c.readWiden(srcRes, size)
	srcSign := size.signBit(srcVal)
	dstRes := c.resolve(dst, size)
	dstVal := c.readWiden(dstRes, size)
	dstSign := size.signBit(dstVal)
	res := srcVal + dstVal
	resSign := size.signBit(res)

	status := c.state.StatusRef()
	status.SetZero(res&size.mask() == 0)
	status.SetNegative(resSign != 0)
	status.SetCarry(res>>size.bits() != 0)
	status.SetOverflow(srcSign == dstSign && dstSign != resSign)
	c.writeNarrow(dstRes, res, size)
}

func (c *CPU) doSub(src, dst *isa.Operand) {
	const size = sizeWord
	srcRes := c.resolve(src, size)
	srcVal := c.readWiden(srcRes, size)
	srcSign := size.signBit(srcVal)
	dstRes := c.resolve(dst, size)
	dstVal := c.readWiden(dstRes, size)
	dstSign := size.signBit(dstVal)
	res := dstVal + (^srcVal+1)&size.mask()
	resSign := size.signBit(res)

	status := c.state.StatusRef()
	status.SetZero(res&size.mask() == 0)
	status.SetNegative(resSign != 0)
	status.SetCarry(dstVal < srcVal)
	status.SetOverflow(srcSign != dstSign && srcSign == resSign)
	c.writeNarrow(dstRes, res, size)
}

// doCmp computes src - dst and sets flags without writing.
func (c *CPU) doCmp(src, dst *isa.Operand, size opSize) {
	srcRes := c.resolve(src, size)
	srcVal := c.readWiden(srcRes, size)
	srcSign := size.signBit(srcVal)
	dstRes := c.resolve(dst, size)
	dstVal := c.readWiden(dstRes, size)
	dstSign := size.signBit(dstVal)
	res := srcVal + (^dstVal+1)&size.mask()
	resSign := size.signBit(res)

	status := c.state.StatusRef()
	status.SetZero(res&size.mask() == 0)
	status.SetNegative(resSign != 0)
	status.SetCarry(srcVal < dstVal)
	status.SetOverflow(srcSign != dstSign && dstSign == resSign)
}

///////////////////////////////////////////////////////////////////////////
// Branches and transfers.

func (c *CPU) execBranch(ins *isa.BranchIns) {
	z, n, carry, v := c.state.Status().Flags()
	var taken bool
	switch ins.Op {
	case isa.Br:
		taken = true
	case isa.Bne:
		taken = !z
	case isa.Beq:
		taken = z
	case isa.Bmi:
		taken = n
	case isa.Bpl:
		taken = !n
	case isa.Bcs:
		taken = carry
	case isa.Bcc:
		taken = !carry
	case isa.Bvs:
		taken = v
	case isa.Bvc:
		taken = !v
	case isa.Blt:
		taken = n != v
	case isa.Bge:
		taken = n == v
	case isa.Ble:
		taken = z || n != v
	case isa.Bgt:
		taken = !(z || n != v)
	case isa.Bhi:
		taken = !carry && !z
	case isa.Blos:
		taken = carry || z
	}

	if taken {
		off := int16(int8(ins.Target.MustOffset())) * 2
		c.state.RegWriteWord(isa.PC, c.state.PC()+uint16(off))
	}
}

// transferDest resolves a jump destination; register destinations are a
// contract violation, odd ones a range error.
func (c *CPU) transferDest(name string, dst *isa.Operand) uint16 {
	res := c.resolve(dst, sizeWord)
	if res.isReg {
		panic(fmt.Sprintf("%s to register destination", name))
	}
	if res.addr&1 != 0 {
		panic(fmt.Sprintf("%s to odd address %#o", name, res.addr))
	}
	return res.addr
}

func (c *CPU) execJmp(ins *isa.JmpIns) {
	c.state.RegWriteWord(isa.PC, c.transferDest("jmp", &ins.Dst))
}

func (c *CPU) execJsr(ins *isa.JsrIns) {
	newPC := c.transferDest("jsr", &ins.Dst)
	c.pushWord(c.state.RegReadWord(ins.Reg))
	c.state.RegWriteWord(ins.Reg, c.state.PC())
	c.state.RegWriteWord(isa.PC, newPC)
}

func (c *CPU) execRts(ins *isa.RtsIns) {
	c.state.RegWriteWord(isa.PC, c.state.RegReadWord(ins.Reg))
	c.state.RegWriteWord(ins.Reg, c.popWord())
}

///////////////////////////////////////////////////////////////////////////
// Single operand.

func (c *CPU) execSingleOperand(ins *isa.SingleOperandIns) {
	size := sizeWord
	if ins.Op.IsByte() {
		size = sizeByte
	}
	dst := c.resolve(&ins.Dst, size)
	status := c.state.StatusRef()

	switch ins.Op {
	case isa.Swab:
		val := c.readResolvedWord(dst)
		res := val>>8 | val<<8
		c.writeResolvedWord(dst, res)
		status.SetZero(res&0xff == 0)
		status.SetNegative((res>>7)&1 == 1)
		status.SetCarry(false)
		status.SetOverflow(false)

	case isa.Clr, isa.ClrB:
		c.writeNarrow(dst, 0, size)
		status.SetZero(true)
		status.SetNegative(false)
		status.SetCarry(false)
		status.SetOverflow(false)

	case isa.Inc, isa.IncB:
		val := c.readWiden(dst, size)
		res := val + 1
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		// Carry not affected.
		status.SetOverflow(val == size.largestSigned())

	case isa.Dec, isa.DecB:
		val := c.readWiden(dst, size)
		res := val - 1
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		// Carry not affected.
		status.SetOverflow(val == size.smallestSigned())

	case isa.Neg, isa.NegB:
		val := c.readWiden(dst, size)
		res := ^val + 1
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(res&size.mask() != 0)
		status.SetOverflow(val == size.smallestSigned())

	case isa.Tst, isa.TstB:
		val := c.readWiden(dst, size)
		res := -val
		status.SetZero(res == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(false)
		status.SetOverflow(false)

	case isa.Com, isa.ComB:
		val := c.readWiden(dst, size)
		res := ^val
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(true)
		status.SetOverflow(false)

	case isa.Adc, isa.AdcB:
		carry := status.Carry()
		val := c.readWiden(dst, size)
		res := val
		if carry {
			res++
		}
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(val == size.mask() && carry)
		status.SetOverflow(val == size.largestSigned() && carry)

	case isa.Sbc, isa.SbcB:
		carry := status.Carry()
		val := c.readWiden(dst, size)
		res := val
		if carry {
			res--
		}
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(!(res&size.mask() == 0 && carry))
		status.SetOverflow(res == size.smallestSigned())

	case isa.Ror, isa.RorB:
		val := c.readWiden(dst, size)
		oldCarry := uint32(0)
		if status.Carry() {
			oldCarry = 1
		}
		newCarry := val & 1
		res := val>>1 | oldCarry<<(size.bits()-1)
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(newCarry != 0)
		status.SetOverflow(size.signBit(res)^newCarry != 0)

	case isa.Rol, isa.RolB:
		val := c.readWiden(dst, size)
		oldCarry := uint32(0)
		if status.Carry() {
			oldCarry = 1
		}
		newCarry := size.signBit(val)
		res := val<<1 | oldCarry
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(newCarry != 0)
		status.SetOverflow(size.signBit(res)^newCarry != 0)

	case isa.Asr:
		val := c.readResolvedWord(dst)
		newCarry := uint32(val & 1)
		res := uint16(int16(val) >> 1)
		c.writeResolvedWord(dst, res)
		status.SetZero(res == 0)
		status.SetNegative(res>>15 != 0)
		status.SetCarry(newCarry != 0)
		status.SetOverflow(uint32(res>>15)^newCarry != 0)

	case isa.AsrB:
		val := c.readResolvedByte(dst)
		newCarry := uint32(val & 1)
		res := uint8(int8(val) >> 1)
		c.writeResolvedByte(dst, res)
		status.SetZero(res == 0)
		status.SetNegative(res>>7 != 0)
		status.SetCarry(newCarry != 0)
		status.SetOverflow(uint32(res>>7)^newCarry != 0)

	case isa.Asl, isa.AslB:
		val := c.readWiden(dst, size)
		newCarry := size.signBit(val)
		res := val << 1
		c.writeNarrow(dst, res, size)
		status.SetZero(res&size.mask() == 0)
		status.SetNegative(size.signBit(res) != 0)
		status.SetCarry(newCarry != 0)
		status.SetOverflow(size.signBit(res)^newCarry != 0)
	}
}

///////////////////////////////////////////////////////////////////////////
// Extended instruction set.

func (c *CPU) execEis(ins *isa.EisIns) {
	operand := c.resolve(&ins.Operand, sizeWord)
	operandVal := c.readResolvedWord(operand)
	status := c.state.StatusRef()

	if ins.Op == isa.Xor {
		res := operandVal ^ c.state.RegReadWord(ins.Reg)
		c.writeResolvedWord(operand, res)
		status.SetNegative(res>>15 != 0)
		status.SetZero(res == 0)
		status.SetOverflow(false)
		// Carry unaffected.
		return
	}

	regVal := c.state.RegReadWord(ins.Reg)

	switch ins.Op {
	case isa.Mul:
		res := int32(int16(operandVal)) * int32(int16(regVal))
		status.SetNegative(res < 0)
		status.SetZero(res == 0)
		status.SetOverflow(false)
		status.SetCarry(res < -0x8000 || res > 0x7fff)
		c.state.RegWriteWord(ins.Reg, uint16(res))
		if uint16(ins.Reg)&1 == 0 {
			c.state.RegWriteWord(ins.Reg+1, uint16(uint32(res)>>16))
		}

	case isa.Div:
		if uint16(ins.Reg)&1 != 0 {
			panic("div register must be even")
		}
		upperReg := ins.Reg + 1
		upper := c.state.RegReadWord(upperReg)
		dividend := int32(upper)<<16 | int32(regVal)
		divisor := int32(int16(operandVal))

		if divisor == 0 {
			status.SetOverflow(true)
			status.SetCarry(true)
			return
		}
		quot := dividend / divisor
		rem := dividend % divisor
		status.SetNegative(quot < 0)
		status.SetZero(quot == 0)
		status.SetOverflow(quot < -0x8000 || quot > 0x7fff)
		status.SetCarry(false)
		if quot >= -0x8000 && quot <= 0x7fff {
			c.state.RegWriteWord(ins.Reg, uint16(quot))
			c.state.RegWriteWord(upperReg, uint16(rem))
		}

	case isa.Ash:
		shift := clampShift(operandVal)
		var newVal uint16
		var carry bool
		switch {
		case shift > 0:
			if shift < 16 {
				carry = (regVal>>(16-uint(shift)))&1 != 0
			} else {
				carry = regVal&1 != 0
			}
			newVal = regVal << uint(shift)
		case shift < 0:
			carry = (regVal>>uint(-shift-1))&1 != 0
			newVal = uint16(int16(regVal) >> uint(-shift))
		default:
			newVal = regVal
		}
		c.state.RegWriteWord(ins.Reg, newVal)
		status.SetNegative(newVal>>15 != 0)
		status.SetZero(newVal == 0)
		status.SetOverflow(regVal>>15 != newVal>>15)
		status.SetCarry(carry)

	case isa.Ashc:
		upperReg := ins.Reg + 1
		val := uint32(c.state.RegReadWord(upperReg))<<16 | uint32(regVal)
		shift := clampShift(operandVal)
		var newVal uint32
		var carry bool
		switch {
		case shift > 0:
			carry = (val>>(32-uint(shift)))&1 != 0
			newVal = val << uint(shift)
		case shift < 0:
			carry = (val>>uint(-shift-1))&1 != 0
			newVal = uint32(int32(val) >> uint(-shift))
		default:
			newVal = val
		}
		c.state.RegWriteWord(ins.Reg, uint16(newVal))
		c.state.RegWriteWord(upperReg, uint16(newVal>>16))
		status.SetNegative(newVal>>31 != 0)
		status.SetZero(newVal == 0)
		status.SetOverflow(val>>31 != newVal>>31)
		status.SetCarry(carry)
	}
}

// clampShift sign extends the low six bits of the shift operand and clamps
// to one full register width either way.
func clampShift(val uint16) int16 {
	shift := int16(val<<10) >> 10
	if shift > 16 {
		shift = 16
	}
	if shift < -16 {
		shift = -16
	}
	return shift
}

///////////////////////////////////////////////////////////////////////////
// Condition codes, misc and traps.

func (c *CPU) execCC(ins *isa.CCIns) {
	op := uint16(ins.Op)
	bits := op & 0xf
	status := c.state.StatusRef()
	if (op>>4)&1 != 0 {
		status.SetFlags(bits)
	} else {
		status.ClearFlags(bits)
	}
}

func (c *CPU) execMisc(ins *isa.MiscIns) ExecRet {
	switch ins.Op {
	case isa.Halt:
		return Halted
	case isa.Rti:
		newPC := c.popWord()
		newPS := c.popWord()
		c.state.RegWriteWord(isa.PC, newPC)
		c.state.SetStatus(state.Status(newPS))
	case isa.Iot:
		c.interrupt(state.IotVector)
	case isa.Reset:
		for _, dev := range c.devices {
			dev.Reset(c.state)
		}
	default:
		panic(fmt.Sprintf("instruction %v (%#o) at pc %#o not implemented",
			ins, uint16(ins.Op), c.state.PC()))
	}
	return Ok
}

func (c *CPU) execTrap(ins *isa.TrapIns) {
	switch ins.Op {
	case isa.Emt:
		c.interrupt(state.EmtVector)
	case isa.Trap:
		c.interrupt(state.TrapVector)
	}
}
