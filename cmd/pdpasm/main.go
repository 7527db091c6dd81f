/*
 * PDP11 - Assembler main process.
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

package main

import (
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/PDP11/aout"
	"github.com/rcornwell/PDP11/asm/assembler"
	logger "github.com/rcornwell/PDP11/util/logger"
	"github.com/rcornwell/PDP11/util/oct"
)

func main() {
	optOutput := getopt.StringLong("output", 'o', "a.out", "Output file")
	optSymbols := getopt.BoolLong("symbols", 's', "Dump symbol table")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optDebug := getopt.BoolLong("debug", 'd', "Debug output")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("source.s")
	getopt.Parse()

	if *optHelp {
		getopt.Usage()
		os.Exit(0)
	}

	var file *os.File
	if *optLogFile != "" {
		file, _ = os.Create(*optLogFile)
	}
	level := new(slog.LevelVar)
	level.Set(slog.LevelDebug)
	slog.SetDefault(slog.New(logger.NewHandler(file,
		&slog.HandlerOptions{Level: level}, *optDebug)))

	args := getopt.Args()
	if len(args) != 1 {
		getopt.Usage()
		os.Exit(1)
	}

	src, err := os.ReadFile(args[0])
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	prog, err := assembler.AssembleRaw(string(src))
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
	start, ok := prog.Symbols["_start"]
	if !ok {
		fmt.Fprintln(os.Stderr, "_start not defined")
		os.Exit(1)
	}
	image := &aout.Aout{Text: prog.Text, EntryPoint: start.Val}

	out, err := os.Create(*optOutput)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer out.Close()
	if err := image.Write(out); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if *optSymbols {
		printSymbols(prog)
	}
}

func printSymbols(prog *assembler.Program) {
	names := make([]string, 0, len(prog.Symbols))
	for name := range prog.Symbols {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sym := prog.Symbols[name]
		var b strings.Builder
		oct.FormatAddr(&b, sym.Val)
		fmt.Printf("%-16s %s %v\n", name, b.String(), sym.Mode)
	}
}
