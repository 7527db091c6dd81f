/*
 * PDP11 - Interactive monitor commands.
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

// Package command is the front panel: a small monitor for poking at a
// machine from the terminal. Numbers are octal, like everything else on
// this machine.
package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcornwell/PDP11/emu/cpu"
	disassembler "github.com/rcornwell/PDP11/emu/disassemble"
	"github.com/rcornwell/PDP11/emu/state"
	"github.com/rcornwell/PDP11/isa"
	"github.com/rcornwell/PDP11/util/oct"
)

var commands = []string{
	"deposit", "disasm", "examine", "go", "help", "quit", "registers", "step",
}

const helpText = `commands (addresses and values in octal):
  examine addr [count]    print words of memory
  deposit addr val ...    write words to memory
  registers               print the register file and PSW
  step [n]                execute n instructions (default 1)
  go [addr]               run until halt, optionally from addr
  disasm addr [count]     disassemble from addr
  quit                    leave the monitor
`

// Complete offers command name completion for the line editor.
func Complete(line string) []string {
	var out []string
	for _, cmd := range commands {
		if strings.HasPrefix(cmd, strings.ToLower(line)) {
			out = append(out, cmd)
		}
	}
	return out
}

// Process runs one monitor command. The returned flag asks the caller to
// leave the monitor loop.
func Process(c *cpu.CPU, line string) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false, nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch {
	case matches(cmd, "examine"):
		return false, examine(c, args)
	case matches(cmd, "deposit"):
		return false, deposit(c, args)
	case matches(cmd, "registers"):
		registers(c)
		return false, nil
	case matches(cmd, "step"):
		return false, step(c, args)
	case matches(cmd, "go"):
		return false, run(c, args)
	case matches(cmd, "disasm"):
		return false, disasm(c, args)
	case matches(cmd, "help"), cmd == "?":
		fmt.Print(helpText)
		return false, nil
	case matches(cmd, "quit"):
		return true, nil
	}
	return false, fmt.Errorf("unknown command %q, try help", cmd)
}

// matches accepts any prefix of a command name. Process tries the commands
// in order and the first match wins, so an ambiguous prefix is not rejected.
func matches(input, cmd string) bool {
	return strings.HasPrefix(cmd, input)
}

func parseOctal(arg string) (uint16, error) {
	val, err := strconv.ParseUint(arg, 8, 16)
	if err != nil {
		return 0, fmt.Errorf("bad octal number %q", arg)
	}
	return uint16(val), nil
}

func examine(c *cpu.CPU, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: examine addr [count]")
	}
	addr, err := parseOctal(args[0])
	if err != nil {
		return err
	}
	count := uint16(8)
	if len(args) > 1 {
		if count, err = parseOctal(args[1]); err != nil {
			return err
		}
	}
	addr &^= 1

	for count > 0 {
		var b strings.Builder
		oct.FormatAddr(&b, addr)
		b.WriteString(": ")
		for i := 0; i < 4 && count > 0; i++ {
			oct.FormatWord(&b, []uint16{c.MemReadWord(addr)})
			addr += 2
			count--
		}
		fmt.Println(b.String())
	}
	return nil
}

func deposit(c *cpu.CPU, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: deposit addr val ...")
	}
	addr, err := parseOctal(args[0])
	if err != nil {
		return err
	}
	addr &^= 1
	for _, arg := range args[1:] {
		val, err := parseOctal(arg)
		if err != nil {
			return err
		}
		c.MemWriteWord(addr, val)
		addr += 2
	}
	return nil
}

func registers(c *cpu.CPU) {
	s := c.State()
	var b strings.Builder
	for reg := isa.R0; reg <= isa.PC; reg++ {
		b.WriteString(reg.String())
		b.WriteByte('=')
		oct.FormatWord(&b, []uint16{s.RegReadWord(reg)})
	}
	b.WriteString("ps=")
	oct.FormatWord(&b, []uint16{uint16(s.Status())})
	fmt.Println(b.String())
}

func step(c *cpu.CPU, args []string) error {
	count := uint16(1)
	var err error
	if len(args) > 0 {
		if count, err = parseOctal(args[0]); err != nil {
			return err
		}
	}
	for ; count > 0; count-- {
		pc := c.State().PC()
		words := c.State().NextIns()
		if ins := isa.Decode(words); ins != nil {
			fmt.Printf("%#08o\t%s\n", pc, ins.StringPC(pc))
		}
		if c.Step() == cpu.Halted {
			fmt.Println("halted")
			return nil
		}
	}
	registers(c)
	return nil
}

func run(c *cpu.CPU, args []string) error {
	if len(args) > 0 {
		addr, err := parseOctal(args[0])
		if err != nil {
			return err
		}
		c.State().RegWriteWord(isa.PC, addr)
	}
	c.Run()
	fmt.Printf("halted at %#o after %d instructions\n", c.State().PC(), c.State().NumIns())
	return nil
}

func disasm(c *cpu.CPU, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: disasm addr [count]")
	}
	addr, err := parseOctal(args[0])
	if err != nil {
		return err
	}
	count := uint16(8)
	if len(args) > 1 {
		if count, err = parseOctal(args[1]); err != nil {
			return err
		}
	}
	addr &^= 1

	s := c.State()
	end := int(addr) + int(count)*isa.WordSize
	if end > state.MemSize {
		end = state.MemSize
	}
	bin := make([]byte, end-int(addr))
	for i := range bin {
		bin[i] = s.MemReadByte(addr + uint16(i))
	}
	for _, d := range disassembler.Disassemble(bin) {
		d.Addr += addr
		fmt.Println(d.String())
	}
	return nil
}
