/*
 * PDP11 - Assembly source parser.
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

// Package parser turns assembly source into ast statements, one per line.
// A line is "[label:] [command] [; comment]". Integer literals default to
// octal; a trailing "." makes them decimal. Expressions are left associative
// with no precedence, the PAL-11 convention.
package parser

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/rcornwell/PDP11/asm/ast"
	"github.com/rcornwell/PDP11/isa"
)

var doubleOps = map[string]isa.DoubleOperandOpcode{
	"mov": isa.Mov, "cmp": isa.Cmp, "bit": isa.Bit, "bic": isa.Bic,
	"bis": isa.Bis, "add": isa.Add, "movb": isa.MovB, "cmpb": isa.CmpB,
	"bitb": isa.BitB, "bicb": isa.BicB, "bisb": isa.BisB, "sub": isa.Sub,
}

var singleOps = map[string]isa.SingleOperandOpcode{
	"swab": isa.Swab,
	"clr":  isa.Clr, "com": isa.Com, "inc": isa.Inc, "dec": isa.Dec,
	"neg": isa.Neg, "adc": isa.Adc, "sbc": isa.Sbc, "tst": isa.Tst,
	"ror": isa.Ror, "rol": isa.Rol, "asr": isa.Asr, "asl": isa.Asl,
	"clrb": isa.ClrB, "comb": isa.ComB, "incb": isa.IncB, "decb": isa.DecB,
	"negb": isa.NegB, "adcb": isa.AdcB, "sbcb": isa.SbcB, "tstb": isa.TstB,
	"rorb": isa.RorB, "rolb": isa.RolB, "asrb": isa.AsrB, "aslb": isa.AslB,
}

var branchOps = map[string]isa.BranchOpcode{
	"br": isa.Br, "bne": isa.Bne, "beq": isa.Beq, "bge": isa.Bge,
	"blt": isa.Blt, "bgt": isa.Bgt, "ble": isa.Ble, "bpl": isa.Bpl,
	"bmi": isa.Bmi, "bhi": isa.Bhi, "blos": isa.Blos, "bvc": isa.Bvc,
	"bvs": isa.Bvs, "bcc": isa.Bcc, "bcs": isa.Bcs,
	// Aliases from the processor handbook.
	"bhis": isa.Bcc, "blo": isa.Bcs,
}

var eisOps = map[string]isa.EisOpcode{
	"mul": isa.Mul, "div": isa.Div, "ash": isa.Ash, "ashc": isa.Ashc,
	"xor": isa.Xor,
}

var ccOps = map[string]isa.CCOpcode{
	"nop": isa.Nop, "clc": isa.Clc, "clv": isa.Clv, "clz": isa.Clz,
	"cln": isa.Cln, "sec": isa.Sec, "sev": isa.Sev, "sez": isa.Sez,
	"sen": isa.Sen,
}

var miscOps = map[string]isa.MiscOpcode{
	"halt": isa.Halt, "wait": isa.Wait, "rti": isa.Rti, "iot": isa.Iot,
	"reset": isa.Reset,
}

var trapOps = map[string]isa.TrapOpcode{
	"emt": isa.Emt, "trap": isa.Trap,
}

var registers = map[string]isa.Reg{
	"r0": isa.R0, "r1": isa.R1, "r2": isa.R2, "r3": isa.R3,
	"r4": isa.R4, "r5": isa.R5, "r6": isa.SP, "r7": isa.PC,
	"sp": isa.SP, "pc": isa.PC,
}

// Parse parses a whole program. Parse errors are accumulated so every bad
// line is reported; the returned statements are only meaningful when the
// error is nil.
func Parse(src string) ([]ast.Stmt, error) {
	var stmts []ast.Stmt
	var errs []error
	for i, line := range strings.Split(src, "\n") {
		stmt, err := ParseLine(line)
		if err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", i+1, err))
			continue
		}
		stmts = append(stmts, stmt)
	}
	return stmts, errors.Join(errs...)
}

// ParseLine parses a single source line.
func ParseLine(line string) (ast.Stmt, error) {
	p := &lineParser{src: line}
	stmt, err := p.stmt()
	if err != nil {
		return ast.Stmt{}, err
	}
	p.skipSpace()
	if !p.atEnd() {
		return ast.Stmt{}, fmt.Errorf("trailing input %q", p.rest())
	}
	return stmt, nil
}

type lineParser struct {
	src string
	pos int
}

func (p *lineParser) atEnd() bool {
	p.skipSpace()
	return p.pos >= len(p.src) || p.src[p.pos] == ';'
}

func (p *lineParser) rest() string {
	return p.src[p.pos:]
}

func (p *lineParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t' || p.src[p.pos] == '\r') {
		p.pos++
	}
}

func (p *lineParser) peek() byte {
	if p.pos < len(p.src) {
		return p.src[p.pos]
	}
	return 0
}

func (p *lineParser) accept(ch byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == ch {
		p.pos++
		return true
	}
	return false
}

func (p *lineParser) expect(ch byte) error {
	if !p.accept(ch) {
		return fmt.Errorf("expected %q", string(ch))
	}
	return nil
}

func isIdentStart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch))
}

func isIdentPart(ch byte) bool {
	return ch == '_' || unicode.IsLetter(rune(ch)) || unicode.IsDigit(rune(ch))
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// ident consumes an identifier, or returns "".
func (p *lineParser) ident() string {
	if p.pos >= len(p.src) || !isIdentStart(p.src[p.pos]) {
		return ""
	}
	start := p.pos
	for p.pos < len(p.src) && isIdentPart(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *lineParser) digits() string {
	start := p.pos
	for p.pos < len(p.src) && isDigit(p.src[p.pos]) {
		p.pos++
	}
	return p.src[start:p.pos]
}

func (p *lineParser) stmt() (ast.Stmt, error) {
	var stmt ast.Stmt
	if p.atEnd() {
		return stmt, nil
	}

	label, ok, err := p.label()
	if err != nil {
		return stmt, err
	}
	if ok {
		stmt.Label = label
	}
	if p.atEnd() {
		return stmt, nil
	}

	cmd, err := p.command()
	if err != nil {
		return stmt, err
	}
	stmt.Cmd = cmd
	return stmt, nil
}

// label recognizes "name:" or "digits:" without consuming anything else.
func (p *lineParser) label() (ast.Label, bool, error) {
	p.skipSpace()
	save := p.pos

	if isDigit(p.peek()) {
		digits := p.digits()
		if p.accept(':') {
			// Temporary labels are plain decimal names.
			val, err := parseNumber(digits, true)
			if err != nil {
				return ast.Label{}, false, fmt.Errorf("temporary label: %w", err)
			}
			return ast.Label{Kind: ast.LabelTemp, Tmp: val}, true, nil
		}
		p.pos = save
		return ast.Label{}, false, nil
	}

	if name := p.ident(); name != "" {
		if p.accept(':') {
			return ast.Label{Kind: ast.LabelNamed, Name: name}, true, nil
		}
	}
	p.pos = save
	return ast.Label{}, false, nil
}

func (p *lineParser) command() (ast.Cmd, error) {
	p.skipSpace()

	if p.peek() == '.' {
		// Directive, or a location assignment ". = expr".
		if p.pos+1 < len(p.src) && isIdentStart(p.src[p.pos+1]) {
			return p.directive()
		}
		p.pos++
		p.skipSpace()
		if err := p.expect('='); err != nil {
			return nil, fmt.Errorf("location assignment: %w", err)
		}
		expr, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.LocDef{Expr: expr}, nil
	}

	name := p.ident()
	if name == "" {
		return nil, fmt.Errorf("expected command at %q", p.rest())
	}

	p.skipSpace()
	if p.accept('=') {
		expr, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.SymbolDef{Name: name, Expr: expr}, nil
	}

	return p.instruction(strings.ToLower(name))
}

func (p *lineParser) directive() (ast.Cmd, error) {
	p.pos++ // leading '.'
	name := strings.ToLower(p.ident())
	switch name {
	case "byte":
		exprs, err := p.exprList()
		if err != nil {
			return nil, err
		}
		return &ast.Bytes{Exprs: exprs}, nil
	case "word":
		exprs, err := p.exprList()
		if err != nil {
			return nil, err
		}
		return &ast.Words{Exprs: exprs}, nil
	case "ascii":
		data, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return &ast.Ascii{Data: data}, nil
	case "asciz":
		data, err := p.stringLit()
		if err != nil {
			return nil, err
		}
		return &ast.Ascii{Data: append(data, 0)}, nil
	case "even":
		return ast.Even{}, nil
	}
	return nil, fmt.Errorf("unknown directive .%s", name)
}

func (p *lineParser) instruction(name string) (ast.Cmd, error) {
	if op, ok := doubleOps[name]; ok {
		src, err := p.operand()
		if err != nil {
			return nil, err
		}
		if err := p.comma(); err != nil {
			return nil, err
		}
		dst, err := p.operand()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.DoubleOperandIns{Op: op, Src: src, Dst: dst}}, nil
	}

	if op, ok := singleOps[name]; ok {
		dst, err := p.operand()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.SingleOperandIns{Op: op, Dst: dst}}, nil
	}

	if op, ok := branchOps[name]; ok {
		target, err := p.target()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.BranchIns{Op: op, Target: target}}, nil
	}

	if op, ok := eisOps[name]; ok {
		operand, err := p.operand()
		if err != nil {
			return nil, err
		}
		if err := p.comma(); err != nil {
			return nil, err
		}
		reg, err := p.register()
		if err != nil {
			return nil, err
		}
		if op == isa.Div && uint16(reg)&1 != 0 {
			return nil, fmt.Errorf("div register %v must be even", reg)
		}
		return &ast.InsCmd{Ins: &isa.EisIns{Op: op, Reg: reg, Operand: operand}}, nil
	}

	if op, ok := ccOps[name]; ok {
		return &ast.InsCmd{Ins: &isa.CCIns{Op: op}}, nil
	}

	if op, ok := miscOps[name]; ok {
		return &ast.InsCmd{Ins: &isa.MiscIns{Op: op}}, nil
	}

	if op, ok := trapOps[name]; ok {
		expr, err := p.expr()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.TrapIns{Op: op, Data: expr}}, nil
	}

	switch name {
	case "jmp":
		dst, err := p.operand()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.JmpIns{Dst: dst}}, nil
	case "jsr":
		reg, err := p.register()
		if err != nil {
			return nil, err
		}
		if err := p.comma(); err != nil {
			return nil, err
		}
		dst, err := p.operand()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.JsrIns{Reg: reg, Dst: dst}}, nil
	case "rts":
		reg, err := p.register()
		if err != nil {
			return nil, err
		}
		return &ast.InsCmd{Ins: &isa.RtsIns{Reg: reg}}, nil
	}

	return nil, fmt.Errorf("unknown instruction %q", name)
}

func (p *lineParser) comma() error {
	p.skipSpace()
	if err := p.expect(','); err != nil {
		return err
	}
	return nil
}

func (p *lineParser) register() (isa.Reg, error) {
	p.skipSpace()
	name := strings.ToLower(p.ident())
	reg, ok := registers[name]
	if !ok {
		return 0, fmt.Errorf("expected register, got %q", name)
	}
	return reg, nil
}

// tryRegister consumes a register name if the next token is one.
func (p *lineParser) tryRegister() (isa.Reg, bool) {
	p.skipSpace()
	save := p.pos
	name := strings.ToLower(p.ident())
	if reg, ok := registers[name]; ok {
		return reg, true
	}
	p.pos = save
	return 0, false
}

// operand parses any of the eight addressing modes plus the immediate,
// absolute and PC relative sugar.
func (p *lineParser) operand() (isa.Operand, error) {
	p.skipSpace()

	switch {
	case p.accept('#'):
		expr, err := p.expr()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.AutoInc, Reg: isa.PC,
			Extra: isa.Extra{Kind: isa.ExtraImm, Expr: expr}}, nil

	case p.accept('@'):
		return p.deferredOperand()
	}

	// -(Rn)
	if p.peek() == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '(' {
		p.pos++
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.AutoDec, Reg: reg}, nil
	}

	// (Rn) or (Rn)+
	if p.peek() == '(' {
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		if p.accept('+') {
			return isa.Operand{Mode: isa.AutoInc, Reg: reg}, nil
		}
		return isa.Operand{Mode: isa.Def, Reg: reg}, nil
	}

	if reg, ok := p.tryRegister(); ok {
		return isa.Operand{Mode: isa.Gen, Reg: reg}, nil
	}

	// X(Rn), or a bare expression meaning PC relative.
	expr, err := p.expr()
	if err != nil {
		return isa.Operand{}, err
	}
	if p.peek() == '(' {
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.Index, Reg: reg,
			Extra: isa.Extra{Kind: isa.ExtraImm, Expr: expr}}, nil
	}
	return isa.Operand{Mode: isa.Index, Reg: isa.PC,
		Extra: isa.Extra{Kind: isa.ExtraRel, Expr: expr}}, nil
}

// deferredOperand handles everything after a leading "@".
func (p *lineParser) deferredOperand() (isa.Operand, error) {
	if p.accept('#') {
		expr, err := p.expr()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.AutoIncDef, Reg: isa.PC,
			Extra: isa.Extra{Kind: isa.ExtraImm, Expr: expr}}, nil
	}

	// @-(Rn)
	if p.peek() == '-' && p.pos+1 < len(p.src) && p.src[p.pos+1] == '(' {
		p.pos++
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.AutoDecDef, Reg: reg}, nil
	}

	// @(Rn)+
	if p.peek() == '(' {
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		if err := p.expect('+'); err != nil {
			return isa.Operand{}, fmt.Errorf("deferred auto increment: %w", err)
		}
		return isa.Operand{Mode: isa.AutoIncDef, Reg: reg}, nil
	}

	// @Rn
	if reg, ok := p.tryRegister(); ok {
		return isa.Operand{Mode: isa.Def, Reg: reg}, nil
	}

	// @X(Rn), or @expr meaning PC relative deferred.
	expr, err := p.expr()
	if err != nil {
		return isa.Operand{}, err
	}
	if p.peek() == '(' {
		reg, err := p.parenReg()
		if err != nil {
			return isa.Operand{}, err
		}
		return isa.Operand{Mode: isa.IndexDef, Reg: reg,
			Extra: isa.Extra{Kind: isa.ExtraImm, Expr: expr}}, nil
	}
	return isa.Operand{Mode: isa.IndexDef, Reg: isa.PC,
		Extra: isa.Extra{Kind: isa.ExtraRel, Expr: expr}}, nil
}

func (p *lineParser) parenReg() (isa.Reg, error) {
	if err := p.expect('('); err != nil {
		return 0, err
	}
	reg, err := p.register()
	if err != nil {
		return 0, err
	}
	p.skipSpace()
	if err := p.expect(')'); err != nil {
		return 0, err
	}
	return reg, nil
}

// target parses a branch destination: a label or a temporary reference.
func (p *lineParser) target() (isa.Target, error) {
	p.skipSpace()
	if isDigit(p.peek()) {
		digits := p.digits()
		val, err := parseNumber(digits, true)
		if err != nil {
			return isa.Target{}, err
		}
		switch {
		case p.accept('f'):
			return isa.TmpFTarget(val), nil
		case p.accept('b'):
			return isa.TmpBTarget(val), nil
		}
		return isa.Target{}, fmt.Errorf("branch target %q must be a label or temporary reference", digits)
	}
	name := p.ident()
	if name == "" {
		return isa.Target{}, fmt.Errorf("expected branch target at %q", p.rest())
	}
	return isa.LabelTarget(name), nil
}

func (p *lineParser) exprList() ([]isa.Expr, error) {
	var exprs []isa.Expr
	for {
		expr, err := p.expr()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, expr)
		p.skipSpace()
		if !p.accept(',') {
			return exprs, nil
		}
	}
}

// expr parses "atom (op atom)*", left associative, no precedence.
func (p *lineParser) expr() (isa.Expr, error) {
	lhs, err := p.atom()
	if err != nil {
		return nil, err
	}
	expr := isa.Expr(lhs)
	for {
		p.skipSpace()
		var op isa.Op
		switch p.peek() {
		case '+':
			op = isa.OpAdd
		case '-':
			op = isa.OpSub
		case '&':
			op = isa.OpAnd
		case '!':
			op = isa.OpOr
		default:
			return expr, nil
		}
		p.pos++
		rhs, err := p.atom()
		if err != nil {
			return nil, err
		}
		expr = &isa.BinExpr{LHS: expr, Op: op, RHS: rhs}
	}
}

func (p *lineParser) atom() (isa.Atom, error) {
	p.skipSpace()

	// Unary minus folds to subtraction from zero.
	if p.accept('-') {
		atom, err := p.atom()
		if err != nil {
			return nil, err
		}
		if val, ok := atom.(isa.Word); ok {
			return isa.Word(-uint16(val)), nil
		}
		return nil, errors.New("unary minus applies only to numbers")
	}

	ch := p.peek()
	switch {
	case ch == '.':
		// The location counter, unless it starts an identifier-ish thing.
		if p.pos+1 >= len(p.src) || !isIdentPart(p.src[p.pos+1]) {
			p.pos++
			return isa.Loc{}, nil
		}

	case ch == '\'':
		p.pos++
		if p.pos >= len(p.src) {
			return nil, errors.New("empty character literal")
		}
		val := p.src[p.pos]
		p.pos++
		return isa.Word(val), nil

	case isDigit(ch):
		digits := p.digits()
		// Temporary label references, e.g. "1f" / "1b", but not "1fred".
		if p.peek() == 'f' || p.peek() == 'b' {
			next := byte(0)
			if p.pos+1 < len(p.src) {
				next = p.src[p.pos+1]
			}
			if !isIdentPart(next) {
				val, err := parseNumber(digits, true)
				if err != nil {
					return nil, err
				}
				if p.src[p.pos] == 'f' {
					p.pos++
					return isa.TmpFRef(val), nil
				}
				p.pos++
				return isa.TmpBRef(val), nil
			}
		}
		decimal := p.accept('.')
		val, err := parseNumber(digits, decimal)
		if err != nil {
			return nil, err
		}
		return isa.Word(val), nil
	}

	if name := p.ident(); name != "" {
		return isa.SymbolRef(name), nil
	}
	return nil, fmt.Errorf("expected expression at %q", p.rest())
}

func parseNumber(digits string, decimal bool) (uint16, error) {
	if digits == "" {
		return 0, errors.New("empty number")
	}
	base := uint16(8)
	if decimal {
		base = 10
	}
	var val uint32
	for _, ch := range []byte(digits) {
		d := uint16(ch - '0')
		if d >= base {
			return 0, fmt.Errorf("digit %q not valid in base %d literal %q", string(ch), base, digits)
		}
		val = val*uint32(base) + uint32(d)
		if val > 0xffff {
			return 0, fmt.Errorf("literal %q exceeds sixteen bits", digits)
		}
	}
	return uint16(val), nil
}

func (p *lineParser) stringLit() ([]byte, error) {
	p.skipSpace()
	if err := p.expect('"'); err != nil {
		return nil, err
	}
	var out []byte
	for {
		if p.pos >= len(p.src) {
			return nil, errors.New("unterminated string")
		}
		ch := p.src[p.pos]
		p.pos++
		switch ch {
		case '"':
			return out, nil
		case '\\':
			if p.pos >= len(p.src) {
				return nil, errors.New("unterminated escape")
			}
			esc := p.src[p.pos]
			p.pos++
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'r':
				out = append(out, '\r')
			case '0':
				out = append(out, 0)
			case '\\', '"':
				out = append(out, esc)
			default:
				return nil, fmt.Errorf("unknown escape \\%s", string(esc))
			}
		default:
			out = append(out, ch)
		}
	}
}
