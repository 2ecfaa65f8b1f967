// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import "fmt"

// Wiring describes how the shift register's parallel outputs are wired to
// the display's pins: logical bit i of a control byte lands on physical
// output Wiring[i]. It is a pure permutation fixed by the board layout; a
// different board only needs a different table, the protocol code is
// untouched.
//
// Logical bit order: D4, D5, D6, D7, RS, RW, EN, backlight.
type Wiring [8]uint8

// DefaultWiring is the reference board layout: the data nibble is wired in
// reverse order onto Q3..Q0, the control lines sit on the high outputs
// (RS=Q7, RW=Q6, EN=Q5) and the spare Q4 drives the backlight transistor.
var DefaultWiring = Wiring{3, 2, 1, 0, 7, 6, 5, 4}

// Validate reports whether the table is a permutation of the 8 bit
// positions. An invalid table is a board description error; it can never
// arise at runtime.
func (w Wiring) Validate() error {
	var seen [8]bool
	for ix, target := range w {
		if target > 7 {
			return fmt.Errorf("hd44780: wiring maps bit %d to invalid output %d", ix, target)
		}
		if seen[target] {
			return fmt.Errorf("hd44780: wiring maps two bits to output %d", target)
		}
		seen[target] = true
	}
	return nil
}

// Remap permutes a logical control byte into the physical frame shifted onto
// the wire. It is total over all byte values and, for a valid table, a
// bijection.
func (w Wiring) Remap(value byte) byte {
	var frame byte
	for ix := range w {
		if value&(1<<ix) != 0 {
			frame |= 1 << w[ix]
		}
	}
	return frame
}

// Inverse returns the table mapping physical outputs back to logical bits,
// so frames captured on the wire can be decoded.
func (w Wiring) Inverse() Wiring {
	var inv Wiring
	for ix, target := range w {
		inv[target] = uint8(ix)
	}
	return inv
}
