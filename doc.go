// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package shiftlcd is a container for drivers that put parallel-interface
// peripherals behind a 3-wire serial-in/parallel-out shift register.
//
// Package sn74hc595 bit-bangs the shift register itself, package hd44780
// speaks the 4-bit character LCD protocol on top of it, and package termlcd
// is a terminal-backed stand-in for the LCD.
package shiftlcd
