// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import "periph.io/x/conn/v3/display"

// Turn the display's backlight on or off. The backlight rides on the shift
// register's spare output (see Wiring), so the change goes out with a
// re-send of the current control byte. The output is a plain on/off line;
// any non-zero intensity turns it on.
func (lcd *Dev) Backlight(intensity display.Intensity) error {
	lcd.backlight = intensity > 0
	if lcd.backlight {
		lcd.control |= blBit
	} else {
		lcd.control &^= blBit
	}
	// EN is low between transfers, so re-sending the control byte only
	// changes the backlight line.
	return lcd.sr.Send(lcd.wiring.Remap(lcd.control))
}
