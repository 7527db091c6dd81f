/*
 * PDP11 - Wrapper for slog.
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

// Package logger is the slog handler the toolchain installs: timestamped
// text lines to an optional log file, mirrored to stderr for anything above
// debug level, or for everything when debug output is enabled.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type LogHandler struct {
	out   io.Writer
	inner slog.Handler
	mu    *sync.Mutex
	debug bool
}

// NewHandler builds a handler writing to file, which may be nil for stderr
// only operation.
func NewHandler(file io.Writer, opts *slog.HandlerOptions, debug bool) *LogHandler {
	if opts == nil {
		opts = &slog.HandlerOptions{}
	}
	var inner io.Writer = io.Discard
	if file != nil {
		inner = file
	}
	return &LogHandler{
		out:   file,
		inner: slog.NewTextHandler(inner, opts),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}

func (h *LogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *LogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &LogHandler{out: h.out, inner: h.inner.WithAttrs(attrs), mu: h.mu, debug: h.debug}
}

func (h *LogHandler) WithGroup(name string) slog.Handler {
	return &LogHandler{out: h.out, inner: h.inner.WithGroup(name), mu: h.mu, debug: h.debug}
}

func (h *LogHandler) Handle(_ context.Context, r slog.Record) error {
	parts := []string{
		r.Time.Format("2006/01/02 15:04:05"),
		r.Level.String() + ":",
		r.Message,
	}
	r.Attrs(func(a slog.Attr) bool {
		parts = append(parts, a.Key+"="+a.Value.String())
		return true
	})
	line := []byte(strings.Join(parts, " ") + "\n")

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(line)
	}
	if h.debug || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(line)
	}
	return err
}

// SetDebug turns the stderr mirror for debug records on or off.
func (h *LogHandler) SetDebug(debug bool) {
	h.debug = debug
}
