// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"errors"
	"fmt"
)

var (
	// ErrPaletteIndex reports an indexed image whose samples point
	// past the end of the palette (malformed or truncated lookup).
	ErrPaletteIndex = errors.New("palette index out of range")

	// ErrPaletteBase reports an indexed image whose base color space
	// is neither DeviceRGB nor DeviceGray.
	ErrPaletteBase = errors.New("unsupported indexed base color space")
)

// cmykToRGB converts packed 8-bit CMYK samples to packed 8-bit RGB
// using the uncalibrated approximation R = (1-C)·(1-K) (and the
// analogous formulas for G/M and B/Y). No ICC transform and no
// under-color removal — adequate for recompression and preview use,
// not for color-managed output. The input length must be a multiple
// of 4; a ragged tail is ignored.
func cmykToRGB(cmyk []byte) []byte {
	n := len(cmyk) / 4
	rgb := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		c := float64(cmyk[i*4]) / 255
		m := float64(cmyk[i*4+1]) / 255
		y := float64(cmyk[i*4+2]) / 255
		k := float64(cmyk[i*4+3]) / 255
		rgb = append(rgb,
			byte((1-c)*(1-k)*255),
			byte((1-m)*(1-k)*255),
			byte((1-y)*(1-k)*255),
		)
	}
	return rgb
}

// expandIndexed maps palette indices to packed RGB samples. For an
// RGB base the palette holds 3 bytes per entry; for a Gray base it
// holds 1 byte per entry, replicated into all three channels.
func expandIndexed(indices []byte, base colorModel, palette []byte) ([]byte, error) {
	var stride int
	switch base {
	case modelRGB:
		stride = 3
	case modelGray:
		stride = 1
	default:
		return nil, fmt.Errorf("%w: %v", ErrPaletteBase, base)
	}
	rgb := make([]byte, 0, len(indices)*3)
	for _, idx := range indices {
		off := int(idx) * stride
		if off+stride > len(palette) {
			return nil, fmt.Errorf("%w: index %d with %d-byte palette", ErrPaletteIndex, idx, len(palette))
		}
		if stride == 3 {
			rgb = append(rgb, palette[off], palette[off+1], palette[off+2])
		} else {
			g := palette[off]
			rgb = append(rgb, g, g, g)
		}
	}
	return rgb, nil
}
