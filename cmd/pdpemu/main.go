/*
 * PDP11 - Emulator main process.
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

	getopt "github.com/pborman/getopt/v2"

	"github.com/rcornwell/PDP11/aout"
	"github.com/rcornwell/PDP11/asm/assembler"
	"github.com/rcornwell/PDP11/command"
	config "github.com/rcornwell/PDP11/config/configparser"
	"github.com/rcornwell/PDP11/emu/clock"
	"github.com/rcornwell/PDP11/emu/cpu"
	"github.com/rcornwell/PDP11/emu/device"
	"github.com/rcornwell/PDP11/emu/teletype"
	"github.com/rcornwell/PDP11/isa"
	"github.com/rcornwell/PDP11/telnet"
	logger "github.com/rcornwell/PDP11/util/logger"
)

func main() {
	optConfig := getopt.StringLong("config", 'c', "", "Configuration file")
	optLogFile := getopt.StringLong("log", 'l', "", "Log file")
	optPort := getopt.IntLong("port", 'p', 0, "Serve the console over telnet on this port")
	optMonitor := getopt.BoolLong("monitor", 'm', "Start the interactive monitor instead of running")
	optInterp := getopt.BoolLong("interpret", 'i', "Treat the input as assembly source and run it")
	optDebug := getopt.BoolLong("debug", 'd', "Debug output")
	optHelp := getopt.BoolLong("help", 'h', "Help")
	getopt.SetParameters("a.out")
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

	image, err := loadImage(args[0], *optInterp)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	cfg := machineConfig{
		teletypeDelay: teletype.PrintDelayTicks,
		clockDelay:    clock.DelayTicks,
		port:          *optPort,
	}
	if *optConfig != "" {
		if err := cfg.load(*optConfig); err != nil {
			slog.Error(err.Error())
			os.Exit(1)
		}
	}

	machine, cleanup, err := buildMachine(&cfg)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer cleanup()

	machine.LoadImage(image.Text, 0)
	slog.Info("PDP11 started", "text", len(image.Text), "entry", image.EntryPoint)

	if *optMonitor {
		machine.State().RegWriteWord(isa.PC, image.EntryPoint)
		command.ConsoleReader(machine)
		return
	}

	machine.RunAt(image.EntryPoint)
	slog.Info("PDP11 halted", "instructions", machine.State().NumIns())
}

func loadImage(path string, interpret bool) (*aout.Aout, error) {
	if interpret {
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return assembler.Assemble(string(src))
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return aout.Read(file)
}

type machineConfig struct {
	teletypeDelay int
	clockDelay    int
	port          int
}

func (cfg *machineConfig) load(path string) error {
	stanzas, err := config.Load(path)
	if err != nil {
		return err
	}
	for _, stanza := range stanzas {
		switch stanza.Device {
		case "teletype":
			if opt, ok := stanza.Find("delay"); ok {
				if cfg.teletypeDelay, err = opt.Int(); err != nil {
					return err
				}
			}
			if opt, ok := stanza.Find("port"); ok {
				if cfg.port, err = opt.Int(); err != nil {
					return err
				}
			}
		case "clock":
			if opt, ok := stanza.Find("delay"); ok {
				if cfg.clockDelay, err = opt.Int(); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("%s: unknown device %q", path, stanza.Device)
		}
	}
	return nil
}

// buildMachine wires a CPU with teletype and clock on their default
// addresses, the console going to the terminal or a telnet client.
func buildMachine(cfg *machineConfig) (*cpu.CPU, func(), error) {
	cleanup := func() {}

	var tty device.Tty
	if cfg.port != 0 {
		server, err := telnet.Start(cfg.port)
		if err != nil {
			return nil, cleanup, err
		}
		tty = server
		cleanup = server.Stop
	} else {
		tty = teletype.NewStdTty()
	}

	machine := cpu.New()
	tt := teletype.New(tty)
	tt.SetDelay(cfg.teletypeDelay)
	machine.SetMMIOHandler(tt)

	clk := clock.New()
	clk.SetDelay(cfg.clockDelay)
	machine.SetMMIOHandler(clk)

	return machine, cleanup, nil
}
