/*
 * PDP11 - Assembler test routines.
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
	"testing"
)

func toWords(t *testing.T, text []byte) []uint16 {
	t.Helper()
	if len(text)%2 != 0 {
		t.Fatalf("text of %d bytes is not a whole number of words", len(text))
	}
	words := make([]uint16, len(text)/2)
	for i := range words {
		words[i] = uint16(text[2*i]) | uint16(text[2*i+1])<<8
	}
	return words
}

func assembleWords(t *testing.T, src string) []uint16 {
	t.Helper()
	prog, err := AssembleRaw(src)
	if err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	return toWords(t, prog.Text)
}

func assembleBytes(t *testing.T, src string) []byte {
	t.Helper()
	prog, err := AssembleRaw(src)
	if err != nil {
		t.Fatalf("assembly failed: %v", err)
	}
	return prog.Text
}

func expectWords(t *testing.T, src string, want ...uint16) {
	t.Helper()
	got := assembleWords(t, src)
	if len(got) != len(want) {
		t.Fatalf("assembly of %q not correct got: %o expected: %o", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("assembly of %q word %d not correct got: %o expected: %o",
				src, i, got[i], want[i])
		}
	}
}

func expectError(t *testing.T, src string) {
	t.Helper()
	if _, err := AssembleRaw(src); err == nil {
		t.Errorf("assembly of %q should fail", src)
	}
}

func TestBasicInstructions(t *testing.T) {
	expectWords(t, "halt", 0)
	expectWords(t, "mov r0, r1", 0o10001)
	expectWords(t, "mov (r0)+, -(r1)", 0o12041)
}

func TestBranchBackward(t *testing.T) {
	expectWords(t, "label:\n\tbr label", 0o000777)
	expectWords(t, "label: br label", 0o000777)
	expectWords(t, "1:\n\tbr 1b", 0o000777)
	expectWords(t, "1: br 1b", 0o000777)
}

func TestBranchForward(t *testing.T) {
	expectWords(t, "\tbr 34f\n34:", 0o400)
}

func TestTmpBackValue(t *testing.T) {
	src := "1:\n\t.word 0\nmov 1b, r0"
	expectWords(t, src, 0, 0o016700, 0o177772)
}

func TestTmpNeverDefined(t *testing.T) {
	expectError(t, "\tbr 1b")
	expectError(t, "\tmov 23b, r0")
	expectError(t, "\tbr 1f")
	expectError(t, "\tmov 534f, r0")
}

func TestBranchOutOfRange(t *testing.T) {
	src := "label: . = 1000\nbr label"
	expectError(t, src)
}

func TestNumbers(t *testing.T) {
	expectWords(t, ".word 0", 0)
	expectWords(t, ".word 7", 0o7)
	expectWords(t, ".word 17", 0o17)
	expectWords(t, ".word 0.", 0)
	expectWords(t, ".word 7.", 7)
	expectWords(t, ".word 17.", 17)
	expectWords(t, ".word -7", 0o177771)
	expectWords(t, ".word -1.", 0xffff)
}

func TestByteOverflow(t *testing.T) {
	expectError(t, ".byte 400")
	// Deliberate deviation from the v6 manual: overflow is rejected, not
	// truncated.
	expectError(t, ".byte 377 + 1")
}

func TestWordOverflow(t *testing.T) {
	expectError(t, ".word 200000")
}

func TestCharLiteral(t *testing.T) {
	text := assembleBytes(t, ".byte 'A")
	if len(text) != 1 || text[0] != 0x41 {
		t.Errorf("char literal not correct got: %v", text)
	}
}

func TestSymbols(t *testing.T) {
	expectWords(t, "SYM = 37\nmov #SYM, r0", 0o12700, 0o37)
	expectWords(t, "a = 37\nb = a\nmov #b, r0", 0o12700, 0o37)
	// One level of forward definition resolves on the second pass.
	expectWords(t, "a = b\nb = 37\nmov #a, r0", 0o12700, 0o37)
}

func TestSymbolsTooForward(t *testing.T) {
	expectError(t, "a = b\nb = c\nc = 37\nmov #a, r0")
	expectError(t, "a = b\nmov #a, r0")
}

func TestSymbolData(t *testing.T) {
	text := assembleBytes(t, "a = 37\n.byte a")
	if len(text) != 1 || text[0] != 0o37 {
		t.Errorf("symbol byte not correct got: %v", text)
	}
	expectWords(t, "a = 777\n.word a", 0o777)
}

func TestExprs(t *testing.T) {
	expectWords(t, ".word 2 + 1", 0o3)
	// Left associative, no precedence.
	expectWords(t, ".word 1 + 1 ! 2", 0o2)
	expectWords(t, ".word 1 ! 2 + 1", 0o4)
	expectWords(t, ".word 7 & 3", 0o3)

	text := assembleBytes(t, ".byte 2 + 1")
	if len(text) != 1 || text[0] != 3 {
		t.Errorf("byte expression not correct got: %v", text)
	}
}

func TestExprIndex(t *testing.T) {
	expectWords(t, "FIELD_A = 2 + 2\nmov FIELD_A(r0), r1", 0o016001, 0o4)
	expectWords(t, "FIELD_A = 4\nmov FIELD_A + 2(r0), r1", 0o016001, 0o6)
}

func TestPeriodExpr(t *testing.T) {
	expectWords(t, ".word .", 0)
	expectWords(t, ".word ., .", 0, 2)
	expectWords(t, "clr r0\nmov #., r0", 0o5000, 0o12700, 2)
	expectWords(t, ".word 0, 0\nloc = .\n.word loc", 0, 0, 4)
	expectWords(t, ".word 0, 0\n.word loc\nloc = .", 0, 0, 6)
}

func TestPeriodAssign(t *testing.T) {
	text := assembleBytes(t, ". = 12")
	if len(text) != 10 {
		t.Errorf("location assignment pad not correct got: %d expected: 10", len(text))
	}
	expectWords(t, ". = 2\nmov #., r0", 0, 0o12700, 2)
}

func TestPeriodBackwards(t *testing.T) {
	expectError(t, ".word 1, 2, 3\n. = 2")
}

func TestEven(t *testing.T) {
	if text := assembleBytes(t, ".byte 0"); len(text) != 1 {
		t.Errorf("odd byte count not correct got: %d", len(text))
	}
	if text := assembleBytes(t, ".byte 0\n.even"); len(text) != 2 {
		t.Errorf("even pad not correct got: %d", len(text))
	}
	if text := assembleBytes(t, ". = 11"); len(text) != 9 {
		t.Errorf("odd location not correct got: %d", len(text))
	}
	if text := assembleBytes(t, ". = 11\n.even"); len(text) != 10 {
		t.Errorf("even location not correct got: %d", len(text))
	}
}

func TestAscii(t *testing.T) {
	text := assembleBytes(t, ".ascii \"AB\"")
	if string(text) != "AB" {
		t.Errorf("ascii not correct got: %q", text)
	}
	text = assembleBytes(t, ".asciz \"AB\"")
	if string(text) != "AB\x00" {
		t.Errorf("asciz not correct got: %q", text)
	}
}

func TestEis(t *testing.T) {
	expectWords(t, "mul r1, r0", 0o070001)
	expectWords(t, "div @(r2)+, r4", 0o071432)
	expectWords(t, "ash #23, r5", 0o072527, 0o23)
	expectWords(t, "label: ashc label, r5", 0o073567, 0o177774)
	expectWords(t, "label: xor label, r5", 0o074567, 0o177774)
}

func TestLabelRedef(t *testing.T) {
	expectError(t, "label:\nlabel:")
	expectError(t, "label:\nlabel = 1")
	expectError(t, "label = 1\nlabel:")

	prog, err := AssembleRaw("label = 1\nlabel = 2")
	if err != nil {
		t.Fatalf("regular symbol redefinition failed: %v", err)
	}
	if prog.Symbols["label"].Val != 2 {
		t.Errorf("redefined symbol not correct got: %o expected: 2", prog.Symbols["label"].Val)
	}
}

func TestModeAlgebra(t *testing.T) {
	// Subtracting two text addresses is absolute.
	expectWords(t, "a:\n.word 0\nb:\n.word b - a", 0, 2)
	// Adding two text addresses is illegal.
	expectError(t, "a:\n.word 0\nb:\n.word b + a")
	// Text plus absolute stays text.
	expectWords(t, "a:\n.word 0\n.word a + 2", 0, 2)
}

func TestRelIsPCRelative(t *testing.T) {
	// mov label, r0 assembles as label(pc) with the offset measured from
	// the word after the extra.
	expectWords(t, "label:\nmov label, r0", 0o016700, 0o177774)
}

func TestEntryPoint(t *testing.T) {
	img, err := Assemble("_start: halt")
	if err != nil {
		t.Fatalf("assemble failed: %v", err)
	}
	if img.EntryPoint != 0 {
		t.Errorf("entry point not correct got: %o expected: 0", img.EntryPoint)
	}

	if _, err := Assemble("halt"); err == nil {
		t.Error("missing _start should fail")
	}
}

func TestTrapPayload(t *testing.T) {
	expectWords(t, "emt 4", 0o104004)
	expectWords(t, "trap 77", 0o104477)
	expectError(t, "emt 400")
}
