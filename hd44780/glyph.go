// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Glyph is a custom 5x8 character. Each byte is one pixel row, top first;
// bit 4 is the leftmost column, bit 0 the rightmost. The top three bits of
// each row are ignored by the controller.
type Glyph [8]byte

const (
	glyphWidth  = 5
	glyphHeight = 8

	setCGRAMAddress = 0x40
	setDDRAMAddress = 0x80
)

// SetGlyph stores a custom character in one of the controller's eight CGRAM
// slots. The glyph is then displayed by writing the slot number as character
// data. The cursor is returned to the first display position afterwards,
// since programming CGRAM moves the address pointer.
func (lcd *Dev) SetGlyph(slot int, g Glyph) error {
	if slot < 0 || slot > 7 {
		return fmt.Errorf("hd44780: glyph slot %d out of range", slot)
	}
	if err := lcd.WriteCommand(setCGRAMAddress | byte(slot)<<3); err != nil {
		return err
	}
	for _, row := range g {
		if err := lcd.WriteData(row & 0x1f); err != nil {
			return err
		}
	}
	return lcd.WriteCommand(setDDRAMAddress)
}

// GlyphFromImage renders an image into a Glyph. The image is scaled to the
// 5x8 character cell and thresholded: pixels brighter than half scale are
// lit. Any image size works; a pre-sized 5x8 image is copied as-is.
func GlyphFromImage(img image.Image) Glyph {
	cell := image.NewGray(image.Rect(0, 0, glyphWidth, glyphHeight))
	xdraw.NearestNeighbor.Scale(cell, cell.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	var g Glyph
	for y := range glyphHeight {
		for x := range glyphWidth {
			if cell.GrayAt(x, y).Y > 0x7f {
				g[y] |= 1 << (glyphWidth - 1 - x)
			}
		}
	}
	return g
}
