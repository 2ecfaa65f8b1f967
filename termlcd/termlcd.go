// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package termlcd implements a character display that outputs to terminal
// (stdout) using ANSI color codes.
//
// Useful while you are waiting for your 16x2 LCD and shift register to come
// by mail: it accepts the same TextDisplay calls as the hd44780 driver, so
// application code runs unmodified against a terminal.
package termlcd

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

const cmdByte byte = 0xfe

// Opts represents the options available for this display.
type Opts struct {
	// Rows and Cols of the emulated panel. The zero value means 2x16.
	Rows, Cols int
	// Palette used to render the backlight swatch. Nil selects the default.
	Palette *ansi256.Palette
	// W receives the rendered panel. Nil selects a colorable stdout.
	W io.Writer

	_ struct{}
}

// Dev is a rows x cols character LCD emulator that outputs to the console.
type Dev struct {
	w       io.Writer
	rows    int
	cols    int
	palette ansi256.Palette

	cells     []byte
	row, col  int
	on        bool
	cursor    bool
	backlight display.Intensity
	rendered  bool
	buf       bytes.Buffer
}

// New returns a Dev that displays at the console.
//
// Permits local testing of display output without hardware.
func New(opts *Opts) *Dev {
	if opts == nil {
		opts = &Opts{}
	}
	rows, cols := opts.Rows, opts.Cols
	if rows == 0 {
		rows = 2
	}
	if cols == 0 {
		cols = 16
	}
	p := opts.Palette
	if p == nil {
		p = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	d := &Dev{
		w:         w,
		rows:      rows,
		cols:      cols,
		palette:   *p,
		cells:     make([]byte, rows*cols),
		on:        true,
		backlight: 0xff,
	}
	d.clearCells()
	return d
}

func (d *Dev) clearCells() {
	for ix := range d.cells {
		d.cells[ix] = ' '
	}
	d.row, d.col = 0, 0
}

// Not supported by this device. Returns display.ErrNotImplemented
func (d *Dev) AutoScroll(enabled bool) error {
	return display.ErrNotImplemented
}

// Clears the screen and moves the cursor to the first position.
func (d *Dev) Clear() error {
	d.clearCells()
	return d.refresh()
}

// Return the number of columns the display supports
func (d *Dev) Cols() int {
	return d.cols
}

// Set the cursor mode.
func (d *Dev) Cursor(modes ...display.CursorMode) error {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			d.cursor = false
		case display.CursorUnderline, display.CursorBlink, display.CursorBlock:
			d.cursor = true
		default:
			return fmt.Errorf("termlcd: unexpected cursor mode: %d", mode)
		}
	}
	return d.refresh()
}

// Move the cursor home (MinRow(),MinCol())
func (d *Dev) Home() error {
	d.row, d.col = 0, 0
	return d.refresh()
}

// Return the min column position.
func (d *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (d *Dev) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (d *Dev) Move(dir display.CursorDirection) error {
	switch dir {
	case display.Backward:
		if d.col > 0 {
			d.col--
		}
	case display.Forward:
		if d.col < d.cols-1 {
			d.col++
		}
	case display.Down, display.Up:
		fallthrough
	default:
		return fmt.Errorf("termlcd: %w", display.ErrNotImplemented)
	}
	return d.refresh()
}

// Move the cursor to arbitrary position.
func (d *Dev) MoveTo(row, col int) error {
	if row < d.MinRow() || row > d.rows || col < d.MinCol() || col > d.cols {
		return fmt.Errorf("termlcd: MoveTo(%d,%d) value out of range", row, col)
	}
	d.row, d.col = row-1, col-1
	return d.refresh()
}

// Return the number of rows the display supports.
func (d *Dev) Rows() int {
	return d.rows
}

func (d *Dev) String() string {
	return fmt.Sprintf("TermLCD - Rows: %d, Cols: %d", d.rows, d.cols)
}

// Turn the display on / off
func (d *Dev) Display(on bool) error {
	d.on = on
	return d.refresh()
}

// Write a set of bytes to the display. The same 0xfe command-prefix
// convention as the hardware driver is honored, so recorded command streams
// replay correctly: clear, home and set-cursor-position are emulated, other
// instructions are ignored.
func (d *Dev) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}
	if p[0] == cmdByte {
		for _, command := range p[1:] {
			d.command(command)
			n++
		}
		err = d.refresh()
		return
	}
	for _, c := range p {
		d.put(c)
		n++
	}
	err = d.refresh()
	return
}

// Write a string output to the display.
func (d *Dev) WriteString(text string) (int, error) {
	return d.Write([]byte(text))
}

// Turn the emulated backlight on or off; it renders as the color swatch
// next to each row.
func (d *Dev) Backlight(intensity display.Intensity) error {
	d.backlight = intensity
	return d.refresh()
}

// Halt implements conn.Resource.
//
// It resets the terminal attributes so the console is not corrupted.
func (d *Dev) Halt() error {
	_, err := d.w.Write([]byte("\n\033[0m"))
	return err
}

func (d *Dev) command(command byte) {
	switch {
	case command == 0x01:
		d.clearCells()
	case command == 0x02:
		d.row, d.col = 0, 0
	case command >= 0x80:
		addr := int(command & 0x7f)
		for row := range d.rows {
			offset := rowAddress(row, d.cols)
			if addr >= offset && addr < offset+d.cols {
				d.row, d.col = row, addr-offset
				return
			}
		}
	}
}

// rowAddress mirrors the HD44780 DDRAM layout so set-position commands from
// the hardware driver land on the same cell.
func rowAddress(row, cols int) int {
	base := []int{0, 64, 20, 84}
	if cols == 16 {
		base = []int{0, 64}
	}
	return base[row%len(base)]
}

func (d *Dev) put(c byte) {
	if c < 0x20 || c > 0x7e {
		c = ' '
	}
	d.cells[d.row*d.cols+d.col] = c
	d.col++
	if d.col >= d.cols {
		d.col = 0
		d.row = (d.row + 1) % d.rows
	}
}

func (d *Dev) refresh() error {
	// This code is designed to minimize the amount of memory allocated per
	// call.
	d.buf.Reset()
	if d.rendered {
		// Redraw in place.
		fmt.Fprintf(&d.buf, "\033[%dF", d.rows)
	}
	swatch := d.palette.Block(color.NRGBA{0, uint8(d.backlight), 0, 255})
	for row := range d.rows {
		_, _ = d.buf.WriteString("\r\033[0m")
		_, _ = io.WriteString(&d.buf, swatch)
		_, _ = d.buf.WriteString("\033[0m|")
		if d.on {
			line := make([]byte, d.cols)
			copy(line, d.cells[row*d.cols:(row+1)*d.cols])
			if d.cursor && row == d.row && line[d.col] == ' ' {
				line[d.col] = '_'
			}
			_, _ = d.buf.Write(line)
		} else {
			_, _ = d.buf.WriteString(strings.Repeat(" ", d.cols))
		}
		_, _ = d.buf.WriteString("|\033[0m\n")
	}
	d.rendered = true
	_, err := d.buf.WriteTo(d.w)
	return err
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
