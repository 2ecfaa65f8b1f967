// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// The 74HC595 is a serial shift register. It converts a serial stream to a
// parallel output. This package drives it over three raw GPIO lines (serial
// data, shift clock, and storage/latch clock), so a full 8-bit parallel
// peripheral costs only three microcontroller pins.
//
// # Datasheet
//
// https://www.nexperia.com/product/74HC595D
//
// There's a nice tutorial on the device here:
//
// https://docs.arduino.cc/tutorials/communication/guide-to-shift-out/
package sn74hc595

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

const (
	devMask = 0xff
	devName = "74HC595"
	numPins = 8

	// Half period of the shift clock. The 74HC595 clocks at tens of MHz;
	// this is well inside its margins on any host slow enough to need one.
	halfClock = time.Microsecond
)

var (
	ErrNotImplemented = errors.New("sn74hc595: not implemented")
)

// Dev represents a 74hc595 driven bit-by-bit over GPIO. The three lines are
// exclusively owned by the Dev: nothing else may write them while the device
// is in use, or the register contents become undefined.
type Dev struct {
	Pins []gpio.PinOut

	data  gpio.PinOut
	clock gpio.PinOut
	latch gpio.PinOut
	sleep func(time.Duration)

	mu    sync.Mutex
	value gpio.GPIOValue
}

// New accepts the three GPIO output lines wired to the register's SER (serial
// data), SRCLK (shift clock) and RCLK (storage/latch clock) inputs and
// returns a new 74HC595 device.
func New(data, clock, latch gpio.PinOut) (*Dev, error) {
	if data == nil || clock == nil || latch == nil {
		return nil, errors.New("sn74hc595: data, clock and latch pins are all required")
	}
	// setting value to an invalid initial state forces the first write to
	// happen, even if it's 0.
	dev := Dev{
		data:  data,
		clock: clock,
		latch: latch,
		sleep: time.Sleep,
		value: gpio.GPIOValue(1 << 9),
		Pins:  make([]gpio.PinOut, numPins),
	}
	for ix := range numPins {
		dev.Pins[ix] = &Pin{number: ix, name: fmt.Sprintf("%s_GPO%d", devName, ix), dev: &dev}
	}
	return &dev, nil
}

// Transmit shifts the 8 bits of value into the register, bit 0 first. Each
// bit is presented on the data line and clocked in on the shift clock's
// rising edge. The register's parallel outputs do not change until Latch is
// called; use Send unless you are daisy-chaining transfers yourself.
func (dev *Dev) Transmit(value byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.transmit(value)
}

func (dev *Dev) transmit(value byte) error {
	for ix := range numPins {
		if err := dev.clock.Out(gpio.Low); err != nil {
			return err
		}
		if err := dev.data.Out(value&(1<<ix) != 0); err != nil {
			return err
		}
		dev.sleep(halfClock)
		if err := dev.clock.Out(gpio.High); err != nil {
			return err
		}
		dev.sleep(halfClock)
	}
	return nil
}

// Latch pulses the storage clock low then high. On the rising edge the
// register copies its shift stage to the parallel outputs, making the last
// transmitted byte visible downstream in a single step.
func (dev *Dev) Latch() error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	return dev.latchOut()
}

func (dev *Dev) latchOut() error {
	if err := dev.latch.Out(gpio.Low); err != nil {
		return err
	}
	dev.sleep(halfClock)
	return dev.latch.Out(gpio.High)
}

// Send shifts value into the register and latches it onto the parallel
// outputs as one operation. Callers never observe a partially shifted byte
// on the outputs: the latch happens exactly once, after all 8 bits.
func (dev *Dev) Send(value byte) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	if err := dev.transmit(value); err != nil {
		return err
	}
	if err := dev.latchOut(); err != nil {
		return err
	}
	dev.value = gpio.GPIOValue(value)
	return nil
}

// write does the low-level read-modify-write for the Pin and Group views.
func (dev *Dev) write(value, mask gpio.GPIOValue) error {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	newValue := (dev.value & (devMask ^ mask)) | (value & mask)
	if dev.value == newValue {
		return nil
	}
	if err := dev.transmit(byte(newValue)); err != nil {
		return err
	}
	if err := dev.latchOut(); err != nil {
		return err
	}
	dev.value = newValue
	return nil
}

// Group returns a subset of pins on the device as a gpio.Group. A Group
// allows you to write to multiple pins in a single transaction.
func (dev *Dev) Group(pins ...int) (gpio.Group, error) {
	gr := Group{dev: dev, pins: make([]Pin, len(pins))}
	for ix, pinNumber := range pins {
		if pinNumber < 0 || pinNumber >= numPins {
			return nil, fmt.Errorf("sn74hc595: pin number %d out of range", pinNumber)
		}
		if p, ok := dev.Pins[pinNumber].(*Pin); ok {
			gr.pins[ix] = *p
		}
	}
	return &gr, nil
}

// Halt disables the device
func (dev *Dev) Halt() (err error) {
	dev.mu.Lock()
	defer dev.mu.Unlock()
	dev.Pins = make([]gpio.PinOut, 0)
	dev.data = nil
	dev.clock = nil
	dev.latch = nil
	return
}

func (dev *Dev) String() string {
	return devName
}

var _ conn.Resource = &Dev{}
