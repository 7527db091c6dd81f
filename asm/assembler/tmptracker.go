/*
 * PDP11 - Forward references to temporary labels.
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

// A forward reference "nf" binds to the next definition of "n:" after the
// referencing line. The first pass records which lines need which labels;
// each definition then fulfills the outstanding needs, memoized per line so
// the second pass reads the answer back directly.
type tmpFTracker struct {
	// Label -> lines holding an outstanding forward reference to it.
	need map[uint16]map[int]struct{}

	// Line -> label -> value of the next definition after that line.
	found map[int]map[uint16]Value
}

func newTmpFTracker() *tmpFTracker {
	return &tmpFTracker{
		need:  make(map[uint16]map[int]struct{}),
		found: make(map[int]map[uint16]Value),
	}
}

func (t *tmpFTracker) get(line int, label uint16) (Value, bool) {
	val, ok := t.found[line][label]
	return val, ok
}

func (t *tmpFTracker) needLabel(line int, label uint16) {
	lines := t.need[label]
	if lines == nil {
		lines = make(map[int]struct{})
		t.need[label] = lines
	}
	lines[line] = struct{}{}
}

func (t *tmpFTracker) foundLabel(label uint16, val Value) {
	lines, ok := t.need[label]
	if !ok {
		return
	}
	delete(t.need, label)
	for line := range lines {
		if t.found[line] == nil {
			t.found[line] = make(map[uint16]Value)
		}
		t.found[line][label] = val
	}
}
