/*
 * PDP11 - Telnet console server.
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

// Package telnet serves the teletype console over a TCP socket. One client
// at a time owns the console; its keystrokes feed the keyboard queue and
// printer output is echoed back. Just enough of the telnet protocol is
// spoken to put the far end into character mode.
package telnet

import (
	"log/slog"
	"net"
	"strconv"
	"sync"
)

// Telnet protocol bytes.
const (
	optEcho     = 1
	optSGA      = 3
	optLineMode = 34

	tnWILL = 251
	tnWONT = 252
	tnDO   = 253
	tnDONT = 254
	tnIAC  = 255
)

// Server listens for console connections and implements device.Tty.
type Server struct {
	listener net.Listener

	mu   sync.Mutex
	conn net.Conn
	in   []byte
}

// Start listens on the port and begins accepting connections.
func Start(port int) (*Server, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(port))
	if err != nil {
		return nil, err
	}
	srv := &Server{listener: listener}
	go srv.accept()
	slog.Info("telnet console listening", "port", port)
	return srv, nil
}

// Stop closes the listener and any connected client.
func (s *Server) Stop() {
	s.listener.Close()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

func (s *Server) accept() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			return
		}
		s.mu.Lock()
		if s.conn != nil {
			// Console is single user.
			conn.Write([]byte("console busy\r\n"))
			conn.Close()
			s.mu.Unlock()
			continue
		}
		s.conn = conn
		s.mu.Unlock()

		// Ask for character at a time, no local echo.
		conn.Write([]byte{
			tnIAC, tnWILL, optEcho,
			tnIAC, tnWILL, optSGA,
			tnIAC, tnDONT, optLineMode,
		})
		slog.Info("console connected", "remote", conn.RemoteAddr().String())
		go s.reader(conn)
	}
}

func (s *Server) reader(conn net.Conn) {
	buf := make([]byte, 256)
	iacSkip := 0
	for {
		n, err := conn.Read(buf)
		if err != nil {
			s.mu.Lock()
			if s.conn == conn {
				s.conn = nil
			}
			s.mu.Unlock()
			slog.Info("console disconnected")
			return
		}
		s.mu.Lock()
		for _, ch := range buf[:n] {
			// Strip telnet option negotiation.
			if iacSkip > 0 {
				iacSkip--
				continue
			}
			if ch == tnIAC {
				iacSkip = 2
				continue
			}
			if ch == '\r' {
				ch = '\n'
			}
			if ch == 0 {
				continue
			}
			s.in = append(s.in, ch)
		}
		s.mu.Unlock()
	}
}

func (s *Server) HandleOutput(val uint8) {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return
	}
	if val == '\n' {
		conn.Write([]byte{'\r', '\n'})
		return
	}
	conn.Write([]byte{val})
}

func (s *Server) InputAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.in) > 0
}

func (s *Server) PollInput() (uint8, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.in) == 0 {
		return 0, false
	}
	ch := s.in[0]
	s.in = s.in[1:]
	return ch, true
}
