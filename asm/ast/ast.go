/*
 * PDP11 - Assembler statement IR.
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

// Package ast holds the statement form the parser produces and the
// assembler evaluates: one Stmt per source line, with an optional label and
// an optional command.
package ast

import (
	"bytes"
	"fmt"

	"github.com/rcornwell/PDP11/isa"
)

// Label definition kinds.
type LabelKind int

const (
	LabelNone LabelKind = iota
	LabelNamed
	LabelTemp
)

type Label struct {
	Kind LabelKind
	Name string // LabelNamed
	Tmp  uint16 // LabelTemp
}

// Cmd is the command part of a statement.
type Cmd interface {
	cmdNode()
}

// Bytes is ".byte expr, ...".
type Bytes struct {
	Exprs []isa.Expr
}

// Words is ".word expr, ...".
type Words struct {
	Exprs []isa.Expr
}

// Ascii is ".ascii" or ".asciz" (the parser appends the NUL).
type Ascii struct {
	Data []byte
}

// Even is ".even".
type Even struct{}

// InsCmd is an instruction statement.
type InsCmd struct {
	Ins isa.Ins
}

// SymbolDef is "sym = expr".
type SymbolDef struct {
	Name string
	Expr isa.Expr
}

// LocDef is ". = expr".
type LocDef struct {
	Expr isa.Expr
}

func (*Bytes) cmdNode()     {}
func (*Words) cmdNode()     {}
func (*Ascii) cmdNode()     {}
func (Even) cmdNode()       {}
func (*InsCmd) cmdNode()    {}
func (*SymbolDef) cmdNode() {}
func (*LocDef) cmdNode()    {}

// Stmt is one parsed source line. Cmd is nil for label-only or blank lines.
type Stmt struct {
	Label Label
	Cmd   Cmd
}

func (s *Stmt) IsEmpty() bool {
	return s.Label.Kind == LabelNone && s.Cmd == nil
}

// Emit appends the statement's bytes to buf. Every expression must already
// be resolved to a literal. Byte values out of range are an error rather
// than a truncation.
func (s *Stmt) Emit(buf *bytes.Buffer) error {
	switch cmd := s.Cmd.(type) {
	case nil:
	case *Bytes:
		for _, e := range cmd.Exprs {
			val := isa.MustVal(e)
			// Negative byte values are stored as their low byte; anything
			// else over 255 is out of range.
			if val > 0xff && val < 0xff80 {
				return fmt.Errorf("byte value %#o out of range", val)
			}
			buf.WriteByte(byte(val))
		}
	case *Words:
		for _, e := range cmd.Exprs {
			val := isa.MustVal(e)
			buf.WriteByte(byte(val))
			buf.WriteByte(byte(val >> 8))
		}
	case *Ascii:
		buf.Write(cmd.Data)
	case *InsCmd:
		for _, word := range cmd.Ins.Encode() {
			buf.WriteByte(byte(word))
			buf.WriteByte(byte(word >> 8))
		}
	case *SymbolDef:
	case *LocDef:
		addr := int(isa.MustVal(cmd.Expr))
		if addr < buf.Len() {
			return fmt.Errorf("location counter moved backwards to %#o", addr)
		}
		buf.Write(make([]byte, addr-buf.Len()))
	case Even:
		if buf.Len()&1 == 1 {
			buf.WriteByte(0)
		}
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}

// CheckResolved reports the first remaining symbol or temporary label
// reference in the statement.
func (s *Stmt) CheckResolved() error {
	switch cmd := s.Cmd.(type) {
	case *InsCmd:
		return cmd.Ins.CheckResolved()
	case *Bytes:
		return checkExprs(cmd.Exprs)
	case *Words:
		return checkExprs(cmd.Exprs)
	case *LocDef:
		return cmd.Expr.CheckResolved()
	}
	return nil
}

func checkExprs(exprs []isa.Expr) error {
	for _, e := range exprs {
		if err := e.CheckResolved(); err != nil {
			return err
		}
	}
	return nil
}
