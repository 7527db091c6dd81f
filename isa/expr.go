/*
 * PDP11 - Assembler expressions.
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

// Expression operator. PAL-11 expressions are left associative with no
// precedence, so an Expr is a left spine of operators over atoms.
type Op int

const (
	OpAdd Op = iota
	OpSub
	OpAnd
	OpOr
)

func (op Op) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpAnd:
		return "&"
	case OpOr:
		return "!"
	}
	return "?"
}

// Expr is an assembler expression: an atom, or an operator applied to an
// expression and an atom.
type Expr interface {
	// CheckResolved reports an error naming the first symbol or temporary
	// label reference remaining in the expression.
	CheckResolved() error
	exprNode()
}

// Atom is the subset of expressions a binary operator's right side may be.
type Atom interface {
	Expr
	atomNode()
}

// Loc is the location counter, spelled "." in source.
type Loc struct{}

// Word is a resolved sixteen bit literal.
type Word uint16

// SymbolRef names a regular symbol or label.
type SymbolRef string

// TmpFRef is a forward reference "Nf" to the next temporary label N.
type TmpFRef uint16

// TmpBRef is a back reference "Nb" to the latest temporary label N.
type TmpBRef uint16

// BinExpr applies Op to LHS and RHS.
type BinExpr struct {
	LHS Expr
	Op  Op
	RHS Atom
}

func (Loc) exprNode()       {}
func (Word) exprNode()      {}
func (SymbolRef) exprNode() {}
func (TmpFRef) exprNode()   {}
func (TmpBRef) exprNode()   {}
func (*BinExpr) exprNode()  {}

func (Loc) atomNode()       {}
func (Word) atomNode()      {}
func (SymbolRef) atomNode() {}
func (TmpFRef) atomNode()   {}
func (TmpBRef) atomNode()   {}

func (Loc) CheckResolved() error  { return nil }
func (Word) CheckResolved() error { return nil }

func (s SymbolRef) CheckResolved() error {
	return fmt.Errorf("unresolved symbol %q", string(s))
}

func (t TmpFRef) CheckResolved() error {
	return fmt.Errorf("unresolved temporary label %df", uint16(t))
}

func (t TmpBRef) CheckResolved() error {
	return fmt.Errorf("unresolved temporary label %db", uint16(t))
}

func (e *BinExpr) CheckResolved() error {
	if err := e.LHS.CheckResolved(); err != nil {
		return err
	}
	return e.RHS.CheckResolved()
}

// MustVal unwraps a fully resolved expression to its literal value.
func MustVal(e Expr) uint16 {
	w, ok := e.(Word)
	if !ok {
		panic(fmt.Sprintf("expression %v not resolved to a literal", e))
	}
	return uint16(w)
}
