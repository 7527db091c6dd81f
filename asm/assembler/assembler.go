/*
 * PDP11 - Two pass symbolic assembler.
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

// Package assembler resolves parsed statements to bytes. It walks the
// program a fixed two passes: operand sizes on the PDP-11 never depend on
// resolved values, so every forward reference is pinned by the end of the
// second pass. Any extension with span dependent instructions would have to
// iterate to a fixed point instead.
package assembler

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/rcornwell/PDP11/aout"
	"github.com/rcornwell/PDP11/asm/ast"
	"github.com/rcornwell/PDP11/asm/parser"
	"github.com/rcornwell/PDP11/isa"
)

// maxPasses is the fixed point bound; see the package comment.
const maxPasses = 2

// SymbolKind separates labels, which may not be redefined, from regular
// symbols, which may.
type SymbolKind int

const (
	Regular SymbolKind = iota
	LabelSym
)

// SymbolValue is a symbol table entry.
type SymbolValue struct {
	Val  uint16
	Mode Mode
	Kind SymbolKind
	Line int
}

// Program is the output of assembly before it is wrapped in an a.out.
type Program struct {
	Text    []byte
	Symbols map[string]SymbolValue
}

type assembler struct {
	symbols    map[string]SymbolValue
	tmpSymbols map[uint16]SymbolValue
	sect       Mode
	tracker    *tmpFTracker
	line       int

	// loc is the value of the period operator: the address of the current
	// statement's first word, stepped to each element in turn inside a
	// .byte or .word list. addr is the address of the next byte to be
	// emitted; it may run ahead of loc inside a statement.
	loc  uint16
	addr uint16
}

func newAssembler() *assembler {
	return &assembler{
		symbols:    make(map[string]SymbolValue),
		tmpSymbols: make(map[uint16]SymbolValue),
		sect:       Text,
		tracker:    newTmpFTracker(),
	}
}

func (a *assembler) evalAtom(atom isa.Atom) (Value, error) {
	switch at := atom.(type) {
	case isa.Loc:
		return Value{Val: a.loc, Mode: a.sect}, nil
	case isa.Word:
		return Value{Val: uint16(at), Mode: Abs}, nil
	case isa.SymbolRef:
		sym, ok := a.symbols[string(at)]
		if !ok {
			return Value{}, errUnresolved
		}
		return Value{Val: sym.Val, Mode: sym.Mode}, nil
	case isa.TmpFRef:
		if val, ok := a.tracker.get(a.line, uint16(at)); ok {
			return val, nil
		}
		a.tracker.needLabel(a.line, uint16(at))
		return Value{}, errUnresolved
	case isa.TmpBRef:
		sym, ok := a.tmpSymbols[uint16(at)]
		if !ok {
			return Value{}, errUnresolved
		}
		return Value{Val: sym.Val, Mode: sym.Mode}, nil
	}
	return Value{}, fmt.Errorf("unknown atom %T", atom)
}

func (a *assembler) evalExpr(expr isa.Expr) (Value, error) {
	switch e := expr.(type) {
	case isa.Atom:
		return a.evalAtom(e)
	case *isa.BinExpr:
		lhs, err := a.evalExpr(e.LHS)
		if err != nil {
			return Value{}, err
		}
		rhs, err := a.evalAtom(e.RHS)
		if err != nil {
			return Value{}, err
		}
		return lhs.apply(e.Op, rhs)
	}
	return Value{}, fmt.Errorf("unknown expression %T", expr)
}

// evalOperand resolves an operand's extra word and accounts for the word of
// instruction stream it occupies. Immediates keep their value; PC relative
// extras become the offset from the word that follows them.
func (a *assembler) evalOperand(op *isa.Operand) error {
	if op.Extra.Kind == isa.ExtraNone {
		return nil
	}

	val, err := a.evalExpr(op.Extra.Expr)
	if err == nil && op.Extra.Kind == isa.ExtraRel {
		if val.Mode != Abs && val.Mode != a.sect {
			err = fmt.Errorf("pc relative reference to %v value", val.Mode)
		} else {
			val = Value{Val: val.Val - a.addr - 2, Mode: a.sect}
		}
	}

	a.addr += isa.WordSize

	switch {
	case err == nil:
		op.Extra = isa.Extra{Kind: isa.ExtraImm, Expr: isa.Word(val.Val)}
	case err == errUnresolved:
		// Retried next pass.
	default:
		return err
	}
	return nil
}

// evalTarget resolves a branch target to a signed word offset from the
// word after the branch instruction.
func (a *assembler) evalTarget(target *isa.Target) error {
	var targetAddr uint16
	switch target.Kind {
	case isa.TargetOffset:
		return nil
	case isa.TargetLabel:
		sym, ok := a.symbols[target.Label]
		if !ok {
			return nil
		}
		targetAddr = sym.Val
	case isa.TargetTmpF:
		val, ok := a.tracker.get(a.line, target.Tmp)
		if !ok {
			a.tracker.needLabel(a.line, target.Tmp)
			return nil
		}
		targetAddr = val.Val
	case isa.TargetTmpB:
		sym, ok := a.tmpSymbols[target.Tmp]
		if !ok {
			return nil
		}
		targetAddr = sym.Val
	}

	diff := (int32(targetAddr) - int32(a.loc) - 2) / 2
	if diff < -128 || diff > 127 {
		return fmt.Errorf("branch target %d words away, out of range", diff)
	}
	*target = isa.OffsetTarget(uint8(int8(diff)))
	return nil
}

func (a *assembler) evalIns(ins isa.Ins) error {
	a.addr += isa.WordSize
	switch i := ins.(type) {
	case *isa.BranchIns:
		return a.evalTarget(&i.Target)
	case *isa.DoubleOperandIns:
		if err := a.evalOperand(&i.Src); err != nil {
			return err
		}
		return a.evalOperand(&i.Dst)
	case *isa.JmpIns:
		return a.evalOperand(&i.Dst)
	case *isa.JsrIns:
		return a.evalOperand(&i.Dst)
	case *isa.SingleOperandIns:
		return a.evalOperand(&i.Dst)
	case *isa.EisIns:
		return a.evalOperand(&i.Operand)
	case *isa.TrapIns:
		val, err := a.evalExpr(i.Data)
		if err == errUnresolved {
			return nil
		}
		if err != nil {
			return err
		}
		if val.Val > 0xff {
			return fmt.Errorf("trap payload %#o exceeds eight bits", val.Val)
		}
		i.Data = isa.Word(val.Val)
	}
	return nil
}

func (a *assembler) evalCmd(cmd ast.Cmd) error {
	switch c := cmd.(type) {
	case *ast.SymbolDef:
		val, err := a.evalExpr(c.Expr)
		if err == errUnresolved {
			return nil
		}
		if err != nil {
			return err
		}
		if existing, ok := a.symbols[c.Name]; ok && existing.Kind == LabelSym {
			return fmt.Errorf("symbol %q conflicts with label on line %d", c.Name, existing.Line)
		}
		a.symbols[c.Name] = SymbolValue{Val: val.Val, Mode: val.Mode, Kind: Regular, Line: a.line}

	case *ast.InsCmd:
		return a.evalIns(c.Ins)

	case *ast.Bytes:
		for i, e := range c.Exprs {
			val, err := a.evalExpr(e)
			switch {
			case err == nil:
				c.Exprs[i] = isa.Word(val.Val)
			case err == errUnresolved:
			default:
				return err
			}
			a.addr++
			a.loc++
		}

	case *ast.Words:
		for i, e := range c.Exprs {
			val, err := a.evalExpr(e)
			switch {
			case err == nil:
				c.Exprs[i] = isa.Word(val.Val)
			case err == errUnresolved:
			default:
				return err
			}
			a.addr += isa.WordSize
			a.loc += isa.WordSize
		}

	case *ast.LocDef:
		val, err := a.evalExpr(c.Expr)
		if err == errUnresolved {
			return nil
		}
		if err != nil {
			return err
		}
		if val.Val < a.addr {
			return fmt.Errorf("location counter moved backwards from %#o to %#o", a.addr, val.Val)
		}
		a.addr = val.Val
		c.Expr = isa.Word(val.Val)

	case ast.Even:
		a.addr += a.addr & 1

	case *ast.Ascii:
		if len(c.Data) > 0xffff {
			return fmt.Errorf("ascii data of %d bytes too long", len(c.Data))
		}
		a.addr += uint16(len(c.Data))
	}
	return nil
}

func (a *assembler) evalPass(prog []ast.Stmt) error {
	clear(a.tmpSymbols)
	a.addr = 0
	for i := range prog {
		stmt := &prog[i]
		a.line = i + 1

		switch stmt.Label.Kind {
		case ast.LabelNamed:
			existing, ok := a.symbols[stmt.Label.Name]
			if ok && existing.Line != a.line {
				return fmt.Errorf("line %d: label %q conflicts with definition on line %d",
					a.line, stmt.Label.Name, existing.Line)
			}
			a.symbols[stmt.Label.Name] = SymbolValue{
				Val: a.addr, Mode: a.sect, Kind: LabelSym, Line: a.line,
			}
		case ast.LabelTemp:
			a.tmpSymbols[stmt.Label.Tmp] = SymbolValue{
				Val: a.addr, Mode: a.sect, Kind: LabelSym, Line: a.line,
			}
			a.tracker.foundLabel(stmt.Label.Tmp, Value{Val: a.addr, Mode: a.sect})
		}

		a.loc = a.addr
		if stmt.Cmd != nil {
			if err := a.evalCmd(stmt.Cmd); err != nil {
				return fmt.Errorf("line %d: %w", a.line, err)
			}
		}
	}
	return nil
}

func (a *assembler) assemble(src string) (*Program, error) {
	prog, err := parser.Parse(src)
	if err != nil {
		return nil, err
	}

	for pass := 1; pass <= maxPasses; pass++ {
		if err := a.evalPass(prog); err != nil {
			return nil, err
		}
	}

	for i := range prog {
		if err := prog[i].CheckResolved(); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	for i := range prog {
		if err := prog[i].Emit(&buf); err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
	}
	slog.Debug("assembly complete", "bytes", buf.Len(), "symbols", len(a.symbols))
	return &Program{Text: buf.Bytes(), Symbols: a.symbols}, nil
}

// AssembleRaw assembles source to a bare text segment and symbol table.
func AssembleRaw(src string) (*Program, error) {
	return newAssembler().assemble(src)
}

// Assemble assembles source into an a.out image whose entry point is the
// value of the _start symbol.
func Assemble(src string) (*aout.Aout, error) {
	prog, err := AssembleRaw(src)
	if err != nil {
		return nil, err
	}
	start, ok := prog.Symbols["_start"]
	if !ok {
		return nil, fmt.Errorf("_start not defined")
	}
	return &aout.Aout{Text: prog.Text, EntryPoint: start.Val}, nil
}
