// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"testing"
	"time"

	"periph.io/x/conn/v3/display"
)

// frameRecorder captures every frame handed to the shift register.
type frameRecorder struct {
	frames []byte
}

func (r *frameRecorder) Send(value byte) error {
	r.frames = append(r.frames, value)
	return nil
}

func (r *frameRecorder) reset() {
	r.frames = nil
}

func getLCD(t *testing.T) (*Dev, *frameRecorder) {
	t.Helper()
	rec := &frameRecorder{}
	dev, err := New(rec, &Opts{Delay: func(time.Duration) {}})
	if err != nil {
		t.Fatal(err)
	}
	return dev, rec
}

// A transfer is one logical byte reassembled from four frames on the wire.
type transfer struct {
	value byte
	data  bool
}

// decodeTransfers undoes the wiring remap and checks the strobe discipline:
// every nibble goes out twice, EN high then EN low, with RW low and the
// nibble and RS stable across the edge.
func decodeTransfers(t *testing.T, frames []byte) []transfer {
	t.Helper()
	if len(frames)%4 != 0 {
		t.Fatalf("got %d frames, a logical byte is always 4", len(frames))
	}
	inv := DefaultWiring.Inverse()
	var out []transfer
	for i := 0; i < len(frames); i += 4 {
		var nibbles [2]byte
		var rs bool
		for half := range 2 {
			hi := inv.Remap(frames[i+2*half])
			lo := inv.Remap(frames[i+2*half+1])
			if hi&enBit == 0 {
				t.Fatalf("frame %d: EN low on strobe's leading frame", i+2*half)
			}
			if lo&enBit != 0 {
				t.Fatalf("frame %d: EN high on strobe's trailing frame", i+2*half+1)
			}
			if hi&rwBit != 0 || lo&rwBit != 0 {
				t.Fatalf("frame %d: RW raised on a write-only interface", i+2*half)
			}
			if hi&^(enBit|blBit) != lo&^(enBit|blBit) {
				t.Fatalf("frame %d: nibble or RS changed across the EN edge", i+2*half)
			}
			nibbles[half] = hi & 0x0f
			rs = hi&rsBit != 0
		}
		out = append(out, transfer{value: nibbles[0]<<4 | nibbles[1], data: rs})
	}
	return out
}

func TestWriteBeforeInit(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.WriteCommand(0x01); !errors.Is(err, ErrNotReady) {
		t.Errorf("WriteCommand before Init: got %v, want ErrNotReady", err)
	}
	if err := dev.WriteData('A'); !errors.Is(err, ErrNotReady) {
		t.Errorf("WriteData before Init: got %v, want ErrNotReady", err)
	}
	if len(rec.frames) != 0 {
		t.Errorf("wrote %d frames before initialization", len(rec.frames))
	}
}

func TestInitSequence(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	got := decodeTransfers(t, rec.frames)
	want := []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x0c, 0x06, 0x01}
	if len(got) != len(want) {
		t.Fatalf("init produced %d transfers, want %d", len(got), len(want))
	}
	for ix, tr := range got {
		if tr.data {
			t.Errorf("init transfer %d sent with RS high", ix)
		}
		if tr.value != want[ix] {
			t.Errorf("init transfer %d: got %#02x, want %#02x", ix, tr.value, want[ix])
		}
	}
}

func TestWriteStringFrames(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	n, err := dev.WriteString("HI")
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Errorf("WriteString: n=%d, want 2", n)
	}
	// 'H'=0x48 and 'I'=0x49 through the reference wiring, high nibble
	// first, each wrapped in an EN high/low frame pair.
	want := []byte{0xa2, 0x82, 0xa1, 0x81, 0xa2, 0x82, 0xa9, 0x89}
	if len(rec.frames) != len(want) {
		t.Fatalf("got %d frames, want %d", len(rec.frames), len(want))
	}
	for ix, frame := range rec.frames {
		if frame != want[ix] {
			t.Errorf("frame %d: got %#02x, want %#02x", ix, frame, want[ix])
		}
	}
	got := decodeTransfers(t, rec.frames)
	for ix, c := range []byte("HI") {
		if !got[ix].data {
			t.Errorf("character %q sent with RS low", c)
		}
		if got[ix].value != c {
			t.Errorf("transfer %d: got %#02x, want %q", ix, got[ix].value, c)
		}
	}
}

func TestFourFramesPerByte(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	for _, value := range []byte{0x00, 0x0f, 0x5a, 0xff} {
		rec.reset()
		if err := dev.WriteData(value); err != nil {
			t.Fatal(err)
		}
		if len(rec.frames) != 4 {
			t.Fatalf("WriteData(%#02x): %d frames, want 4", value, len(rec.frames))
		}
		if got := decodeTransfers(t, rec.frames)[0].value; got != value {
			t.Errorf("WriteData(%#02x) decoded as %#02x", value, got)
		}
	}
}

func TestClearTwiceNotDeduplicated(t *testing.T) {
	var slept []time.Duration
	rec := &frameRecorder{}
	dev, err := New(rec, &Opts{Delay: func(d time.Duration) { slept = append(slept, d) }})
	if err != nil {
		t.Fatal(err)
	}
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	slept = nil
	if err := dev.WriteCommand(0x01); err != nil {
		t.Fatal(err)
	}
	if err := dev.WriteCommand(0x01); err != nil {
		t.Fatal(err)
	}
	got := decodeTransfers(t, rec.frames)
	if len(got) != 2 || got[0].value != 0x01 || got[1].value != 0x01 {
		t.Fatalf("expected two independent clear transfers, got %+v", got)
	}
	// Each clear must carry its full settle time, repeated or not.
	var commands int
	for _, d := range slept {
		if d == delayCommand {
			commands++
		}
	}
	if commands != 2 {
		t.Errorf("got %d command settle delays, want 2", commands)
	}
}

func TestMoveTo(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	if err := dev.MoveTo(0, 1); err == nil {
		t.Error("MoveTo(0,1) should be out of range")
	}
	if err := dev.MoveTo(3, 1); err == nil {
		t.Error("MoveTo(3,1) should be out of range on a 2 row display")
	}
	rec.reset()
	if err := dev.MoveTo(2, 3); err != nil {
		t.Fatal(err)
	}
	got := decodeTransfers(t, rec.frames)
	if len(got) != 1 || got[0].data || got[0].value != 0xc2 {
		t.Errorf("MoveTo(2,3): got %+v, want command 0xc2", got)
	}
}

func TestDisplayAndCursor(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	if err := dev.Display(false); err != nil {
		t.Fatal(err)
	}
	if err := dev.Cursor(display.CursorUnderline); err != nil {
		t.Fatal(err)
	}
	got := decodeTransfers(t, rec.frames)
	if len(got) != 2 || got[0].value != 0x08 || got[1].value != 0x0a {
		t.Errorf("display control transfers: got %+v, want 0x08 then 0x0a", got)
	}
	if err := dev.Cursor(display.CursorMode(42)); err == nil {
		t.Error("unknown cursor mode should error")
	}
}

func TestBacklight(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Init(); err != nil {
		t.Fatal(err)
	}
	rec.reset()
	if err := dev.Backlight(0xff); err != nil {
		t.Fatal(err)
	}
	if len(rec.frames) != 1 {
		t.Fatalf("Backlight: %d frames, want 1", len(rec.frames))
	}
	inv := DefaultWiring.Inverse()
	if inv.Remap(rec.frames[0])&blBit == 0 {
		t.Error("backlight bit not raised on the wire")
	}
	rec.reset()
	if err := dev.WriteData('A'); err != nil {
		t.Fatal(err)
	}
	for ix, frame := range rec.frames {
		if inv.Remap(frame)&blBit == 0 {
			t.Errorf("frame %d dropped the backlight while writing", ix)
		}
	}
}

func TestHaltBeforeInit(t *testing.T) {
	dev, rec := getLCD(t)
	if err := dev.Halt(); err != nil {
		t.Fatal(err)
	}
	if len(rec.frames) != 0 {
		t.Errorf("Halt before Init wrote %d frames", len(rec.frames))
	}
}
