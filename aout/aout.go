/*
 * PDP11 - a.out object file container.
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

// Package aout reads and writes the UNIX style a.out image the assembler
// produces and the emulator loads: a fixed sixteen byte header of little
// endian words followed by the text segment. Only single segment images are
// supported; data, bss and the on-disk symbol table are always empty.
package aout

import (
	"errors"
	"fmt"
	"io"
)

// Magic is the a.out magic number, "normal" non-relocatable text.
const Magic = 0o407

const headerWords = 8

// Aout is a loaded single segment image.
type Aout struct {
	Text       []byte
	EntryPoint uint16
}

func readWord(r io.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return uint16(buf[0]) | uint16(buf[1])<<8, nil
}

func writeWord(w io.Writer, val uint16) error {
	_, err := w.Write([]byte{byte(val), byte(val >> 8)})
	return err
}

// Read parses and validates an image. Everything the header promises is
// checked: magic, empty data/bss/symbol segments, an even entry point inside
// text, and no trailing bytes after the text segment.
func Read(r io.Reader) (*Aout, error) {
	var hdr [headerWords]uint16
	for i := range hdr {
		w, err := readWord(r)
		if err != nil {
			return nil, fmt.Errorf("a.out: short header: %w", err)
		}
		hdr[i] = w
	}

	magic, textSize := hdr[0], hdr[1]
	dataSize, bssSize, symSize := hdr[2], hdr[3], hdr[4]
	entry := hdr[5]

	if magic != Magic {
		return nil, fmt.Errorf("a.out: bad magic %#o", magic)
	}
	if dataSize != 0 || bssSize != 0 {
		return nil, fmt.Errorf("a.out: nonzero data (%d) or bss (%d) segment", dataSize, bssSize)
	}
	if symSize != 0 {
		return nil, fmt.Errorf("a.out: nonzero symbol table size %d", symSize)
	}
	if err := checkEntry(entry, textSize); err != nil {
		return nil, err
	}

	text := make([]byte, textSize)
	if _, err := io.ReadFull(r, text); err != nil {
		return nil, fmt.Errorf("a.out: short text segment: %w", err)
	}

	// Nothing may follow the text segment.
	var one [1]byte
	if _, err := r.Read(one[:]); !errors.Is(err, io.EOF) {
		return nil, errors.New("a.out: trailing bytes after text segment")
	}

	return &Aout{Text: text, EntryPoint: entry}, nil
}

// Write emits the image, mirroring the checks Read performs.
func (a *Aout) Write(w io.Writer) error {
	if len(a.Text) > 0x10000 {
		return fmt.Errorf("a.out: text segment of %d bytes exceeds the address space", len(a.Text))
	}
	textSize := uint16(len(a.Text))
	if err := checkEntry(a.EntryPoint, textSize); err != nil {
		return err
	}

	words := [headerWords]uint16{
		Magic,
		textSize,
		0, // data
		0, // bss
		0, // symbol table
		a.EntryPoint,
		0, // unused
		0, // relocation bits suppressed flag, not implemented
	}
	for _, word := range words {
		if err := writeWord(w, word); err != nil {
			return err
		}
	}
	_, err := w.Write(a.Text)
	return err
}

func checkEntry(entry, textSize uint16) error {
	if entry&1 != 0 {
		return fmt.Errorf("a.out: odd entry point %#o", entry)
	}
	if entry >= textSize {
		return fmt.Errorf("a.out: entry point %#o outside text segment of %d bytes", entry, textSize)
	}
	return nil
}
