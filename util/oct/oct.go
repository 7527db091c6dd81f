/*
 * PDP11 - Octal formatting helpers.
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

// Package oct formats machine quantities the way the front panel would
// show them, six octal digits to the word.
package oct

import "strings"

const octMap = "01234567"

// FormatWord appends each word as six octal digits with a trailing space.
func FormatWord(str *strings.Builder, words []uint16) {
	for _, word := range words {
		shift := 15
		for i := 0; i < 6; i++ {
			str.WriteByte(octMap[(word>>shift)&0x7])
			shift -= 3
		}
		str.WriteByte(' ')
	}
}

// FormatAddr appends an address as six octal digits.
func FormatAddr(str *strings.Builder, addr uint16) {
	shift := 15
	for i := 0; i < 6; i++ {
		str.WriteByte(octMap[(addr>>shift)&0x7])
		shift -= 3
	}
}

// FormatByte appends a byte as three octal digits.
func FormatByte(str *strings.Builder, data uint8) {
	str.WriteByte(octMap[(data>>6)&0x3])
	str.WriteByte(octMap[(data>>3)&0x7])
	str.WriteByte(octMap[data&0x7])
}
