/*
 * PDP11 - Tty implementations.
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

package teletype

import (
	"os"
	"sync"
)

// PipeTty is an in-memory Tty for tests: output accumulates in a buffer,
// input is queued by the test. Safe for use from a second goroutine.
type PipeTty struct {
	mu  sync.Mutex
	out []byte
	in  []byte
}

func NewPipeTty() *PipeTty {
	return &PipeTty{}
}

func (p *PipeTty) HandleOutput(val uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.out = append(p.out, val)
}

func (p *PipeTty) InputAvailable() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.in) > 0
}

func (p *PipeTty) PollInput() (uint8, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.in) == 0 {
		return 0, false
	}
	ch := p.in[0]
	p.in = p.in[1:]
	return ch, true
}

// PushInput queues keyboard bytes.
func (p *PipeTty) PushInput(vals ...uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = append(p.in, vals...)
}

// TakeOutput returns and clears the accumulated printer output.
func (p *PipeTty) TakeOutput() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := p.out
	p.out = nil
	return out
}

// StdTty writes printer output to stdout and reads keyboard input from a
// goroutine draining stdin. The raw mode plumbing, if any, belongs to the
// caller; this just moves bytes.
type StdTty struct {
	mu sync.Mutex
	in []byte
}

func NewStdTty() *StdTty {
	t := &StdTty{}
	go t.reader()
	return t
}

func (t *StdTty) reader() {
	buf := make([]byte, 256)
	for {
		n, err := os.Stdin.Read(buf)
		if err != nil {
			return
		}
		t.mu.Lock()
		t.in = append(t.in, buf[:n]...)
		t.mu.Unlock()
	}
}

func (t *StdTty) HandleOutput(val uint8) {
	os.Stdout.Write([]byte{val})
}

func (t *StdTty) InputAvailable() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.in) > 0
}

func (t *StdTty) PollInput() (uint8, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.in) == 0 {
		return 0, false
	}
	ch := t.in[0]
	t.in = t.in[1:]
	return ch, true
}
