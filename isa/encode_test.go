/*
 * PDP11 - Encoder tests.
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

func indexOp(reg isa.Reg, val uint16) isa.Operand {
	op := isa.Operand{Mode: isa.Index, Reg: reg}
	op.AddExtra(val)
	return op
}

func immOp(val uint16) isa.Operand {
	op := isa.Operand{Mode: isa.AutoInc, Reg: isa.PC}
	op.AddExtra(val)
	return op
}

var _ = Describe("Encode", func() {
	It("encodes mov r0, r1", func() {
		ins := &isa.DoubleOperandIns{
			Op:  isa.Mov,
			Src: isa.RegOperand(isa.R0),
			Dst: isa.RegOperand(isa.R1),
		}
		Expect(ins.Encode()).To(Equal([]uint16{0o010001}))
	})

	It("encodes extras in source then destination order", func() {
		ins := &isa.DoubleOperandIns{
			Op:  isa.Mov,
			Src: immOp(0o1),
			Dst: indexOp(isa.R3, 0o2),
		}
		Expect(ins.Encode()).To(Equal([]uint16{0o012763, 0o1, 0o2}))
	})

	It("encodes eis instructions", func() {
		mul := &isa.EisIns{Op: isa.Mul, Reg: isa.R0, Operand: isa.RegOperand(isa.R1)}
		Expect(mul.Encode()).To(Equal([]uint16{0o070001}))

		div := &isa.EisIns{Op: isa.Div, Reg: isa.R4,
			Operand: isa.Operand{Mode: isa.AutoIncDef, Reg: isa.R2}}
		Expect(div.Encode()).To(Equal([]uint16{0o071432}))

		ash := &isa.EisIns{Op: isa.Ash, Reg: isa.R5, Operand: immOp(0o23)}
		Expect(ash.Encode()).To(Equal([]uint16{0o072527, 0o23}))
	})

	It("encodes branches from resolved offsets", func() {
		br := &isa.BranchIns{Op: isa.Br, Target: isa.OffsetTarget(0o377)}
		Expect(br.Encode()).To(Equal([]uint16{0o000777}))
	})

	It("encodes traps with their payload", func() {
		emt := &isa.TrapIns{Op: isa.Emt, Data: isa.Word(4)}
		Expect(emt.Encode()).To(Equal([]uint16{0o104004}))
	})

	Describe("Round trips", func() {
		pcRel := func(val uint16) isa.Operand {
			op := isa.Operand{Mode: isa.Index, Reg: isa.PC}
			op.AddExtra(val)
			return op
		}

		cases := []isa.Ins{
			&isa.DoubleOperandIns{Op: isa.Mov, Src: isa.RegOperand(isa.R2), Dst: isa.RegOperand(isa.R3)},
			&isa.DoubleOperandIns{Op: isa.CmpB, Src: immOp(0o12), Dst: isa.RegOperand(isa.R0)},
			&isa.DoubleOperandIns{Op: isa.Add, Src: pcRel(0o100), Dst: indexOp(isa.R1, 0o4)},
			&isa.DoubleOperandIns{Op: isa.Sub, Src: isa.RegOperand(isa.R1),
				Dst: isa.Operand{Mode: isa.AutoDecDef, Reg: isa.R5}},
			&isa.BranchIns{Op: isa.Blos, Target: isa.OffsetTarget(0o177)},
			&isa.JmpIns{Dst: indexOp(isa.R4, 0o20)},
			&isa.JsrIns{Reg: isa.R5, Dst: isa.Operand{Mode: isa.Def, Reg: isa.R1}},
			&isa.RtsIns{Reg: isa.R5},
			&isa.SingleOperandIns{Op: isa.Neg, Dst: isa.Operand{Mode: isa.AutoInc, Reg: isa.R2}},
			&isa.SingleOperandIns{Op: isa.RolB, Dst: indexOp(isa.SP, 0o6)},
			&isa.EisIns{Op: isa.Ashc, Reg: isa.R2, Operand: isa.RegOperand(isa.R3)},
			&isa.EisIns{Op: isa.Xor, Reg: isa.R1, Operand: isa.Operand{Mode: isa.Def, Reg: isa.R0}},
			&isa.CCIns{Op: isa.Sev},
			&isa.MiscIns{Op: isa.Iot},
			&isa.TrapIns{Op: isa.Trap, Data: isa.Word(0o77)},
		}

		It("decodes every encoding back to itself", func() {
			for _, ins := range cases {
				words := ins.Encode()
				Expect(isa.Decode(words)).To(Equal(ins))
				Expect(ins.Size()).To(Equal(uint16(2 * len(words))))
			}
		})
	})

	Describe("Operand extras", func() {
		It("needs an extra exactly when one word is consumed", func() {
			for mode := isa.Gen; mode <= isa.IndexDef; mode++ {
				for reg := isa.R0; reg <= isa.PC; reg++ {
					op := isa.Operand{Mode: mode, Reg: reg}
					if op.NeedsExtra() {
						op.AddExtra(0o123)
					}
					ins := &isa.SingleOperandIns{Op: isa.Tst, Dst: op}
					words := ins.Encode()
					Expect(len(words) == 2).To(Equal(op.NeedsExtra()))
					Expect(isa.Decode(words)).To(Equal(ins))
				}
			}
		})
	})
})
