/*
 * PDP11 - Emulator configuration file parser.
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

// Package configparser reads the emulator configuration file. Each line
// names a device followed by options:
//
//	# comment
//	teletype port=2323 delay=20000
//	clock delay=3320
//	log file=pdp11.log debug
//
// Option values are decimal. Device and option names are not checked
// against any list here; every well-formed name is accepted.
package configparser

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
)

// Option is one name or name=value pair.
type Option struct {
	Name  string
	Value string
}

// Int parses the option value as a decimal integer.
func (o *Option) Int() (int, error) {
	val, err := strconv.Atoi(o.Value)
	if err != nil {
		return 0, fmt.Errorf("option %s: value %q not a number", o.Name, o.Value)
	}
	return val, nil
}

// Stanza is one configured device line.
type Stanza struct {
	Device  string
	Options []Option
}

// Find returns the named option if present.
func (s *Stanza) Find(name string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}

// Load reads and parses a configuration file.
func Load(fileName string) ([]Stanza, error) {
	file, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var stanzas []Stanza
	scanner := bufio.NewScanner(file)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		stanza, ok, err := parseLine(scanner.Text())
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w", fileName, lineNum, err)
		}
		if ok {
			stanzas = append(stanzas, stanza)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return stanzas, nil
}

func parseLine(line string) (Stanza, bool, error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Stanza{}, false, nil
	}

	device := strings.ToLower(fields[0])
	if !validName(device) {
		return Stanza{}, false, fmt.Errorf("bad device name %q", fields[0])
	}

	stanza := Stanza{Device: device}
	for _, field := range fields[1:] {
		name, value, _ := strings.Cut(field, "=")
		name = strings.ToLower(name)
		if !validName(name) {
			return Stanza{}, false, fmt.Errorf("bad option name %q", name)
		}
		stanza.Options = append(stanza.Options, Option{Name: name, Value: value})
	}
	return stanza, true, nil
}

func validName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
