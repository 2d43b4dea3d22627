// Package host provides the real terminal implementation of vm.Console,
// used by cmd/qbi's "run"/"repl" commands whether or not stdin/stdout are
// an interactive terminal.
package host

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

// qbColors is the CGA 16-color palette QBASIC's COLOR statement indexes
// into, mapped to the nearest ANSI SGR attribute fatih/color exposes. The
// pack carries no terminal/TUI library at all (no tcell/termbox/x-term
// analogue anywhere in the example set), so this leans on fatih/color —
// already part of the stack for the CLI's own status coloring — rather
// than hand-rolling raw ANSI escapes for the whole console.
var qbColors = [16]color.Attribute{
	color.FgBlack, color.FgBlue, color.FgGreen, color.FgCyan,
	color.FgRed, color.FgMagenta, color.FgYellow, color.FgWhite,
	color.FgHiBlack, color.FgHiBlue, color.FgHiGreen, color.FgHiCyan,
	color.FgHiRed, color.FgHiMagenta, color.FgHiYellow, color.FgHiWhite,
}

var qbBgColors = [8]color.Attribute{
	color.BgBlack, color.BgBlue, color.BgGreen, color.BgCyan,
	color.BgRed, color.BgMagenta, color.BgYellow, color.BgWhite,
}

// TermConsole drives a real terminal via ANSI escape sequences for cursor
// positioning and fatih/color for COLOR/palette handling, with buffered
// line-oriented reads for INPUT/LINE INPUT and a best-effort non-blocking
// KeyHit built on a background reader goroutine.
type TermConsole struct {
	out    io.Writer
	in     *bufio.Reader
	keys   chan byte
	fg, bg int
}

// NewTermConsole wires stdout/stdin as the console's I/O, starting with
// foreground 7 on background 0.
func NewTermConsole() *TermConsole {
	c := &TermConsole{
		out:  os.Stdout,
		in:   bufio.NewReader(os.Stdin),
		keys: make(chan byte, 256),
		fg:   7,
		bg:   0,
	}
	go c.pump()
	return c
}

// pump feeds raw input bytes into a channel so KeyHit can be non-blocking;
// ReadLine bypasses it entirely and reads the buffered reader directly,
// since line input and key-polling are never interleaved within a single
// INPUT/INKEY$ call in practice.
func (c *TermConsole) pump() {
	buf := make([]byte, 1)
	for {
		n, err := os.Stdin.Read(buf)
		if n > 0 {
			c.keys <- buf[0]
		}
		if err != nil {
			close(c.keys)
			return
		}
	}
}

func (c *TermConsole) Print(s string) { fmt.Fprint(c.out, s) }

func (c *TermConsole) ReadLine() (string, error) {
	line, err := c.in.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line, nil
}

func (c *TermConsole) KeyHit() (string, bool) {
	select {
	case b, ok := <-c.keys:
		if !ok {
			return "", false
		}
		return string(b), true
	default:
		return "", false
	}
}

func (c *TermConsole) Cls() { fmt.Fprint(c.out, "\x1b[2J\x1b[H") }

func (c *TermConsole) Locate(row, col int) {
	fmt.Fprintf(c.out, "\x1b[%d;%dH", row, col)
}

// Color sets the foreground/background that every subsequent Print uses,
// until the next Color call (Cls leaves it in place) — QBASIC's COLOR has no per-call scope,
// it changes the current text attribute outright. fatih/color is built
// around per-call Sprint/Fprint wrapping rather than a persistent "set and
// leave on" mode, so the SGR codes are emitted directly here instead.
func (c *TermConsole) Color(fg, bg int) {
	c.fg, c.bg = fg, bg
	attrs := []color.Attribute{color.Reset}
	if fg >= 0 && fg < len(qbColors) {
		attrs = append(attrs, qbColors[fg])
	}
	if bg >= 0 && bg < len(qbBgColors) {
		attrs = append(attrs, qbBgColors[bg])
	}
	for _, a := range attrs {
		fmt.Fprintf(c.out, "\x1b[%dm", a)
	}
}

func (c *TermConsole) Beep() { fmt.Fprint(c.out, "\a") }

func (c *TermConsole) ViewPrint(top, bottom int) {
	fmt.Fprintf(c.out, "\x1b[%d;%dr", top, bottom)
}

func (c *TermConsole) Width(cols int) {}
