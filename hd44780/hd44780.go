// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 in 4-bit
// mode through a serial-in/parallel-out shift register, so the whole display
// needs only three GPIO lines.
//
// The register's parallel outputs carry the four data lines plus RS, RW and
// EN. The mapping from the driver's logical control byte to the physical
// output positions is a Wiring table, so a board with different wiring only
// needs a different table.
//
// The display's R/W line is tied low by the wiring: the interface is
// write-only and the busy flag can never be read back. All controller timing
// is therefore satisfied with fixed worst-case delays. The delays are a hard
// protocol contract; shortening them produces a garbled or blank display
// with no error at the software level.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
)

// ShiftRegister is the serial transport the display hangs off. Send must
// shift a full byte and latch it onto the parallel outputs atomically.
// Implemented by sn74hc595.Dev.
type ShiftRegister interface {
	Send(value byte) error
}

type writeMode bool

const (
	modeCommand writeMode = false
	modeData    writeMode = true

	cmdByte byte = 0xfe
)

// Logical control byte layout. The data nibble sits in the low four bits
// (D4..D7), the control lines above it. Wiring permutes this into the
// physical frame.
const (
	rsBit byte = 1 << 4
	rwBit byte = 1 << 5
	enBit byte = 1 << 6
	blBit byte = 1 << 7
)

// Fixed settle delays. The HD44780 has no readable busy flag on this wiring,
// so every delay is the datasheet worst case.
const (
	delayPowerOn   = 20 * time.Millisecond
	delayInitStep  = 5 * time.Millisecond
	delayCommand   = 2000 * time.Microsecond
	delayCharacter = 200 * time.Microsecond
	delayNibble    = 50 * time.Microsecond
)

type devState int

const (
	stateUninitialized devState = iota
	stateInitializing
	stateReady
)

// ErrNotReady is returned by write operations invoked before Init has
// completed. The device only understands writes once the power-on sequence
// has run.
var ErrNotReady = errors.New("hd44780: display not initialized")

var rowConstants = [][]byte{{0, 0, 64}, {0, 0, 64, 20, 84}}
var clearScreen = []byte{cmdByte, 0x01}
var goHome = []byte{cmdByte, 0x02}
var setCursorPosition = []byte{cmdByte, 0x80}

// Return the row offset value
func getRowConstant(row, maxcols int) byte {
	var offset int
	if maxcols != 16 {
		offset = 1
	}
	return rowConstants[offset][row]
}

// Opts holds the configuration of the display.
type Opts struct {
	// Rows and Cols of the display. The zero value means a 2x16 display.
	Rows, Cols int
	// Wiring between the shift register outputs and the display pins. Nil
	// selects DefaultWiring.
	Wiring *Wiring
	// Delay is the blocking sleep used to satisfy the controller's settle
	// times. Nil selects time.Sleep. A replacement must sleep at least the
	// requested duration; sleeping longer is harmless.
	Delay func(time.Duration)
}

// Dev drives an HD44780 behind a shift register.
//
// Implements periph.io/conn/x/display/TextDisplay and
// display.DisplayBacklight.
//
// A Dev is the exclusive owner of its shift register and must be used from a
// single goroutine: the device protocol has observable intermediate states
// and no recovery from interleaved writes.
type Dev struct {
	sr     ShiftRegister
	wiring Wiring
	rows   int
	cols   int
	sleep  func(time.Duration)

	state devState
	// control is the persistent logical control byte. The low nibble holds
	// the last nibble sent; RS/RW/EN/backlight ride in the high bits.
	control   byte
	on        bool
	cursor    bool
	blink     bool
	backlight bool
}

// New returns a Dev in the Uninitialized state. Call Init before any write
// operation; the display does not understand its 4-bit protocol until the
// power-on sequence has run.
func New(sr ShiftRegister, opts *Opts) (*Dev, error) {
	if sr == nil {
		return nil, errors.New("hd44780: a shift register is required")
	}
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
	wiring := DefaultWiring
	if opts.Wiring != nil {
		wiring = *opts.Wiring
	}
	if err := wiring.Validate(); err != nil {
		return nil, err
	}
	sleep := opts.Delay
	if sleep == nil {
		sleep = time.Sleep
	}
	return &Dev{
		sr:     sr,
		wiring: wiring,
		rows:   rows,
		cols:   cols,
		sleep:  sleep,
		on:     true,
	}, nil
}

// Init runs the mandatory power-on initialization sequence for 4-bit mode as
// per the HD44780 datasheet: a power-on settle, three "8-bit interface"
// resets, the switch to 4-bit mode, function set, display control, entry
// mode, and a clear. Every step is followed by its worst-case settle delay.
//
// On success the device is Ready and all write operations become available.
func (lcd *Dev) Init() error {
	lcd.state = stateInitializing
	lcd.sleep(delayPowerOn)

	// Reset to the 8-bit interface three times. The controller may be in
	// either half of a 4-bit transfer after power glitches; this resyncs it.
	for range 3 {
		if err := lcd.writeByte(0x30, modeCommand, delayInitStep); err != nil {
			return err
		}
	}
	// Switch to the 4-bit interface.
	if err := lcd.writeByte(0x20, modeCommand, delayInitStep); err != nil {
		return err
	}
	// Function set: 4-bit, line count, 5x7 font.
	lineMode := byte(0x20)
	if lcd.rows > 1 {
		lineMode |= 0x08
	}
	if err := lcd.writeByte(lineMode, modeCommand, delayInitStep); err != nil {
		return err
	}
	if err := lcd.writeByte(lcd.displayControl(), modeCommand, delayInitStep); err != nil {
		return err
	}
	// Entry mode: auto-increment, no display shift.
	if err := lcd.writeByte(0x06, modeCommand, delayInitStep); err != nil {
		return err
	}
	if err := lcd.writeByte(0x01, modeCommand, delayInitStep); err != nil {
		return err
	}
	lcd.state = stateReady
	return nil
}

// WriteCommand sends a raw instruction byte to the display as two 4-bit
// transfers, high nibble first.
func (lcd *Dev) WriteCommand(command byte) error {
	if lcd.state != stateReady {
		return ErrNotReady
	}
	return lcd.writeByte(command, modeCommand, delayCommand)
}

// WriteData sends a character (CGRAM/DDRAM data) byte to the display as two
// 4-bit transfers, high nibble first.
func (lcd *Dev) WriteData(value byte) error {
	if lcd.state != stateReady {
		return ErrNotReady
	}
	return lcd.writeByte(value, modeData, delayCharacter)
}

// writeByte splits value into nibbles and sends each wrapped in an EN
// strobe, then sleeps the byte's settle time.
func (lcd *Dev) writeByte(value byte, mode writeMode, settle time.Duration) error {
	if err := lcd.sendNibble(value>>4, mode); err != nil {
		return err
	}
	if err := lcd.sendNibble(value&0x0f, mode); err != nil {
		return err
	}
	lcd.sleep(settle)
	return nil
}

// sendNibble performs one 4-bit transfer: the nibble goes out with EN high,
// then again with EN low. The controller latches the data on EN's falling
// edge, so every nibble costs exactly two frames on the wire.
func (lcd *Dev) sendNibble(nibble byte, mode writeMode) error {
	lcd.control = (lcd.control &^ 0x0f) | (nibble & 0x0f)
	if mode == modeData {
		lcd.control |= rsBit
	} else {
		lcd.control &^= rsBit
	}
	lcd.control &^= rwBit
	if lcd.backlight {
		lcd.control |= blBit
	} else {
		lcd.control &^= blBit
	}
	lcd.control |= enBit
	if err := lcd.sr.Send(lcd.wiring.Remap(lcd.control)); err != nil {
		return err
	}
	lcd.control &^= enBit
	if err := lcd.sr.Send(lcd.wiring.Remap(lcd.control)); err != nil {
		return err
	}
	lcd.sleep(delayNibble)
	return nil
}

// displayControl assembles the display on/off control instruction from the
// cached on/cursor/blink state.
func (lcd *Dev) displayControl() byte {
	val := byte(0x08)
	if lcd.on {
		val |= 0x04
	}
	if lcd.cursor {
		val |= 0x02
	}
	if lcd.blink {
		val |= 0x01
	}
	return val
}

// Not supported by this device. Returns display.ErrNotImplemented
func (lcd *Dev) AutoScroll(enabled bool) error {
	return display.ErrNotImplemented
}

// Clears the screen and moves the cursor to the first position.
func (lcd *Dev) Clear() error {
	_, err := lcd.Write(clearScreen)
	return err
}

// Return the number of columns the display supports
func (lcd *Dev) Cols() int {
	return lcd.cols
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (lcd *Dev) Cursor(modes ...display.CursorMode) error {
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			lcd.cursor = false
			lcd.blink = false
		case display.CursorUnderline:
			lcd.cursor = true
		case display.CursorBlink:
			lcd.blink = true
		case display.CursorBlock:
			lcd.cursor = true
			lcd.blink = true
		default:
			return fmt.Errorf("hd44780: unexpected cursor mode: %d", mode)
		}
	}
	return lcd.WriteCommand(lcd.displayControl())
}

// Move the cursor home (MinRow(),MinCol())
func (lcd *Dev) Home() error {
	_, err := lcd.Write(goHome)
	return err
}

// Return the min column position.
func (lcd *Dev) MinCol() int {
	return 1
}

// Return the min row position.
func (lcd *Dev) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (lcd *Dev) Move(dir display.CursorDirection) error {
	var val byte = 0x10
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= 0x04
	case display.Down, display.Up:
		fallthrough
	default:
		return fmt.Errorf("hd44780: %w", display.ErrNotImplemented)
	}
	_, err := lcd.Write([]byte{cmdByte, val})
	return err
}

// Move the cursor to arbitrary position.
func (lcd *Dev) MoveTo(row, col int) error {
	if row < lcd.MinRow() || row > lcd.rows || col < lcd.MinCol() || col > lcd.cols {
		return fmt.Errorf("hd44780: MoveTo(%d,%d) value out of range", row, col)
	}
	cmd := []byte{cmdByte, setCursorPosition[1]}
	cmd[1] |= getRowConstant(row, lcd.cols) + byte(col-1)
	_, err := lcd.Write(cmd)
	return err
}

// Return the number of rows the display supports.
func (lcd *Dev) Rows() int {
	return lcd.rows
}

// Return info about the display.
func (lcd *Dev) String() string {
	return fmt.Sprintf("HD44780/74HC595 - Rows: %d, Cols: %d", lcd.rows, lcd.cols)
}

// Turn the display on / off
func (lcd *Dev) Display(on bool) error {
	lcd.on = on
	return lcd.WriteCommand(lcd.displayControl())
}

// Write a set of bytes to the display. A leading 0xfe byte marks the rest of
// the buffer as commands, otherwise every byte is character data.
func (lcd *Dev) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return
	}
	if p[0] == cmdByte {
		for _, command := range p[1:] {
			if err = lcd.WriteCommand(command); err != nil {
				return
			}
			n++
		}
		return
	}
	for _, value := range p {
		if err = lcd.WriteData(value); err != nil {
			return
		}
		n++
	}
	return
}

// Write a string output to the display. Characters appear one at a time in
// sequence order; the call is not atomic.
func (lcd *Dev) WriteString(text string) (int, error) {
	return lcd.Write([]byte(text))
}

// Halt clears the display and turns it and the backlight off.
func (lcd *Dev) Halt() error {
	if lcd.state != stateReady {
		return nil
	}
	_ = lcd.Clear()
	_ = lcd.Backlight(0)
	return lcd.Display(false)
}

var _ display.TextDisplay = &Dev{}
var _ display.DisplayBacklight = &Dev{}
var _ conn.Resource = &Dev{}
