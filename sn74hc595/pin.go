// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sn74hc595

import (
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Pin is one of the register's parallel outputs viewed as a gpio.PinOut.
// Writing a pin re-shifts the whole cached byte, so a single Out costs one
// full 8-bit transfer on the wire.
type Pin struct {
	dev    *Dev
	name   string
	number int
}

// Halt implements conn.Resource.
func (p *Pin) Halt() error {
	return nil
}

// Name returns the name of the GPIO pin.
func (p *Pin) Name() string {
	return p.name
}

// Number returns the number of the GPIO pin.
func (p *Pin) Number() int {
	return p.number
}

// Deprecated: returns "Out"
func (p *Pin) Function() string {
	return "Out"
}

// Write the specified gpio.Level to the pin.
func (p *Pin) Out(l gpio.Level) error {
	mask := gpio.GPIOValue(1 << p.number)
	v := gpio.GPIOValue(0)
	if l {
		v = mask
	}
	return p.dev.write(v, mask)
}

// Not implemented.
func (p *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return ErrNotImplemented
}

func (p *Pin) String() string {
	return p.name
}

// Group implements gpio.Group and provides a way to write to multiple GPO
// pins in a single transaction.
type Group struct {
	dev  *Dev
	pins []Pin
}

// Return the set of GPO Pins that are associated with this group.
func (gr *Group) Pins() []pin.Pin {
	result := make([]pin.Pin, len(gr.pins))
	for ix, p := range gr.pins {
		result[ix] = &p
	}
	return result
}

// Given an offset of a pin into the group, return that pin.
func (gr *Group) ByOffset(offset int) pin.Pin {
	return &gr.pins[offset]
}

// Given a name of a pin in the group, return that pin.
func (gr *Group) ByName(name string) pin.Pin {
	for _, p := range gr.pins {
		if p.name == name {
			return &p
		}
	}
	return nil
}

// Given the pin number of a pin within the group, return that pin.
func (gr *Group) ByNumber(number int) pin.Pin {
	for _, p := range gr.pins {
		if p.number == number {
			return &p
		}
	}
	return nil
}

// Out writes the value to the device. Only pins identified by mask are
// modified.
func (gr *Group) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = gpio.GPIOValue(1<<len(gr.pins)) - 1
	}
	wrMask := gpio.GPIOValue(0)
	wrValue := gpio.GPIOValue(0)
	for ix := range len(gr.pins) {
		currentBit := gpio.GPIOValue(1 << ix)
		if (mask & currentBit) == currentBit {
			wrMask |= gpio.GPIOValue(1 << gr.pins[ix].number)
		}
		if (value & currentBit) == currentBit {
			wrValue |= gpio.GPIOValue(1 << gr.pins[ix].number)
		}
	}
	return gr.dev.write(wrValue, wrMask)
}

// Read is not available for this device.
func (gr *Group) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	return 0, ErrNotImplemented
}

// WaitForEdge is not available for this device.
func (gr *Group) WaitForEdge(timeout time.Duration) (int, gpio.Edge, error) {
	return 0, gpio.NoEdge, ErrNotImplemented
}

// Halt frees the group's resources and prevents it from being used again.
func (gr *Group) Halt() error {
	gr.pins = nil
	return nil
}

func (gr *Group) String() string {
	s := gr.dev.String() + "[ "
	for ix := range len(gr.pins) {
		s += fmt.Sprintf("%d ", gr.pins[ix].number)
	}
	s += "]"
	return s
}

var _ gpio.PinOut = &Pin{}
var _ gpio.Group = &Group{}
