/*
 * PDP11 - Decoder tests.
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

package isa_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/rcornwell/PDP11/isa"
)

var _ = Describe("Decode", func() {
	Describe("Double operand", func() {
		It("decodes mov r0, r1", func() {
			ins := isa.Decode([]uint16{0o010001})

			do, ok := ins.(*isa.DoubleOperandIns)
			Expect(ok).To(BeTrue())
			Expect(do.Op).To(Equal(isa.Mov))
			Expect(do.Src.Mode).To(Equal(isa.Gen))
			Expect(do.Src.Reg).To(Equal(isa.R0))
			Expect(do.Dst.Mode).To(Equal(isa.Gen))
			Expect(do.Dst.Reg).To(Equal(isa.R1))
			Expect(ins.Size()).To(Equal(uint16(2)))
		})

		It("decodes mov (r0)+, -(r1)", func() {
			ins := isa.Decode([]uint16{0o012041})

			do := ins.(*isa.DoubleOperandIns)
			Expect(do.Op).To(Equal(isa.Mov))
			Expect(do.Src.Mode).To(Equal(isa.AutoInc))
			Expect(do.Src.Reg).To(Equal(isa.R0))
			Expect(do.Dst.Mode).To(Equal(isa.AutoDec))
			Expect(do.Dst.Reg).To(Equal(isa.R1))
		})

		It("decodes mov #37, r0 with an immediate extra", func() {
			ins := isa.Decode([]uint16{0o012700, 0o37})

			do := ins.(*isa.DoubleOperandIns)
			Expect(do.Src.Mode).To(Equal(isa.AutoInc))
			Expect(do.Src.Reg).To(Equal(isa.PC))
			Expect(do.Src.Extra.Kind).To(Equal(isa.ExtraImm))
			Expect(do.Src.ExtraVal()).To(Equal(uint16(0o37)))
			Expect(ins.Size()).To(Equal(uint16(4)))
		})

		It("decodes both extras in source then destination order", func() {
			ins := isa.Decode([]uint16{0o012763, 0o1, 0o2})

			do := ins.(*isa.DoubleOperandIns)
			Expect(do.Src.ExtraVal()).To(Equal(uint16(0o1)))
			Expect(do.Dst.Mode).To(Equal(isa.Index))
			Expect(do.Dst.Reg).To(Equal(isa.R3))
			Expect(do.Dst.ExtraVal()).To(Equal(uint16(0o2)))
			Expect(ins.Size()).To(Equal(uint16(6)))
		})

		It("decodes the byte variants", func() {
			ins := isa.Decode([]uint16{0o112700, 0o377})

			do := ins.(*isa.DoubleOperandIns)
			Expect(do.Op).To(Equal(isa.MovB))
			Expect(do.Op.IsByte()).To(BeTrue())
		})

		It("decodes sub as a word instruction", func() {
			ins := isa.Decode([]uint16{0o162701, 0o1})

			do := ins.(*isa.DoubleOperandIns)
			Expect(do.Op).To(Equal(isa.Sub))
			Expect(do.Op.IsByte()).To(BeFalse())
		})
	})

	Describe("Branches", func() {
		It("decodes br with its offset", func() {
			ins := isa.Decode([]uint16{0o000777})

			br := ins.(*isa.BranchIns)
			Expect(br.Op).To(Equal(isa.Br))
			Expect(br.Target.Kind).To(Equal(isa.TargetOffset))
			Expect(br.Target.Offset).To(Equal(uint8(0o377)))
		})

		It("decodes bne", func() {
			ins := isa.Decode([]uint16{0o001373})

			br := ins.(*isa.BranchIns)
			Expect(br.Op).To(Equal(isa.Bne))
			Expect(br.Target.Offset).To(Equal(uint8(0o373)))
		})

		It("decodes the high branch page", func() {
			ins := isa.Decode([]uint16{0o100001})

			br := ins.(*isa.BranchIns)
			Expect(br.Op).To(Equal(isa.Bpl))
		})
	})

	Describe("Jumps and subroutines", func() {
		It("decodes jmp (r1)", func() {
			ins := isa.Decode([]uint16{0o000111})

			jmp := ins.(*isa.JmpIns)
			Expect(jmp.Dst.Mode).To(Equal(isa.Def))
			Expect(jmp.Dst.Reg).To(Equal(isa.R1))
		})

		It("decodes jsr pc, @#addr", func() {
			ins := isa.Decode([]uint16{0o004737, 0o420})

			jsr := ins.(*isa.JsrIns)
			Expect(jsr.Reg).To(Equal(isa.PC))
			Expect(jsr.Dst.Mode).To(Equal(isa.AutoIncDef))
			Expect(jsr.Dst.Reg).To(Equal(isa.PC))
			Expect(jsr.Dst.ExtraVal()).To(Equal(uint16(0o420)))
		})

		It("decodes rts pc", func() {
			ins := isa.Decode([]uint16{0o000207})

			rts := ins.(*isa.RtsIns)
			Expect(rts.Reg).To(Equal(isa.PC))
		})
	})

	Describe("Single operand", func() {
		It("decodes clr r0", func() {
			ins := isa.Decode([]uint16{0o005000})

			so := ins.(*isa.SingleOperandIns)
			Expect(so.Op).To(Equal(isa.Clr))
			Expect(so.Dst.Reg).To(Equal(isa.R0))
		})

		It("decodes swab ahead of the wider families", func() {
			ins := isa.Decode([]uint16{0o000301})

			so := ins.(*isa.SingleOperandIns)
			Expect(so.Op).To(Equal(isa.Swab))
			Expect(so.Dst.Reg).To(Equal(isa.R1))
		})

		It("decodes tstb @#addr", func() {
			ins := isa.Decode([]uint16{0o105737, 0o177564})

			so := ins.(*isa.SingleOperandIns)
			Expect(so.Op).To(Equal(isa.TstB))
			Expect(so.Op.IsByte()).To(BeTrue())
			Expect(so.Dst.ExtraVal()).To(Equal(uint16(0o177564)))
		})
	})

	Describe("EIS", func() {
		It("decodes mul r1, r0", func() {
			ins := isa.Decode([]uint16{0o070001})

			eis := ins.(*isa.EisIns)
			Expect(eis.Op).To(Equal(isa.Mul))
			Expect(eis.Reg).To(Equal(isa.R0))
			Expect(eis.Operand.Reg).To(Equal(isa.R1))
		})

		It("decodes div @(r2)+, r4", func() {
			ins := isa.Decode([]uint16{0o071432})

			eis := ins.(*isa.EisIns)
			Expect(eis.Op).To(Equal(isa.Div))
			Expect(eis.Reg).To(Equal(isa.R4))
			Expect(eis.Operand.Mode).To(Equal(isa.AutoIncDef))
			Expect(eis.Operand.Reg).To(Equal(isa.R2))
		})
	})

	Describe("Condition codes and misc", func() {
		It("decodes the sixteen bit literals", func() {
			Expect(isa.Decode([]uint16{0o240}).(*isa.CCIns).Op).To(Equal(isa.Nop))
			Expect(isa.Decode([]uint16{0o261}).(*isa.CCIns).Op).To(Equal(isa.Sec))
			Expect(isa.Decode([]uint16{0o0}).(*isa.MiscIns).Op).To(Equal(isa.Halt))
			Expect(isa.Decode([]uint16{0o1}).(*isa.MiscIns).Op).To(Equal(isa.Wait))
			Expect(isa.Decode([]uint16{0o2}).(*isa.MiscIns).Op).To(Equal(isa.Rti))
			Expect(isa.Decode([]uint16{0o5}).(*isa.MiscIns).Op).To(Equal(isa.Reset))
		})
	})

	Describe("Traps", func() {
		It("decodes emt with its payload", func() {
			ins := isa.Decode([]uint16{0o104004})

			trap := ins.(*isa.TrapIns)
			Expect(trap.Op).To(Equal(isa.Emt))
			Expect(isa.MustVal(trap.Data)).To(Equal(uint16(4)))
		})

		It("decodes trap", func() {
			ins := isa.Decode([]uint16{0o104567})

			trap := ins.(*isa.TrapIns)
			Expect(trap.Op).To(Equal(isa.Trap))
			Expect(isa.MustVal(trap.Data)).To(Equal(uint16(0o167)))
		})
	})

	Describe("Invalid words", func() {
		It("rejects words no family claims", func() {
			Expect(isa.Decode([]uint16{0o000007})).To(BeNil())
			Expect(isa.Decode([]uint16{0o000077})).To(BeNil())
			Expect(isa.Decode([]uint16{0o107777})).To(BeNil())
		})

		It("rejects a stream too short for the extras", func() {
			Expect(isa.Decode([]uint16{0o012700})).To(BeNil())
		})
	})

	Describe("Disassembly with PC context", func() {
		It("resolves a pc relative index to an absolute address", func() {
			ins := isa.Decode([]uint16{0o016700, 0o74})
			Expect(ins.StringPC(0o1000)).To(Equal("mov\t\t01100, r0"))
		})

		It("renders immediates", func() {
			ins := isa.Decode([]uint16{0o012700, 0o37})
			Expect(ins.StringPC(0o1000)).To(Equal("mov\t\t#037, r0"))
		})

		It("resolves branch targets", func() {
			ins := isa.Decode([]uint16{0o000777})
			Expect(ins.StringPC(0o1000)).To(Equal("br\t\t01000"))
		})
	})
})
