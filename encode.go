// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
)

// encodeJPEG compresses flat samples to a JPEG payload at the given
// quality. Grayscale stays single-channel so the encoder emits a
// one-component scan.
func encodeJPEG(img *flatImage, quality int) ([]byte, error) {
	var src image.Image
	switch img.model {
	case pixGray:
		g := image.NewGray(image.Rect(0, 0, img.width, img.height))
		copy(g.Pix, img.pixels)
		src = g
	case pixRGB:
		rgba := image.NewNRGBA(image.Rect(0, 0, img.width, img.height))
		for i := 0; i < img.width*img.height; i++ {
			rgba.Pix[i*4+0] = img.pixels[i*3+0]
			rgba.Pix[i*4+1] = img.pixels[i*3+1]
			rgba.Pix[i*4+2] = img.pixels[i*3+2]
			rgba.Pix[i*4+3] = 0xff
		}
		src = rgba
	default:
		return nil, fmt.Errorf("cannot encode pixel model %d", img.model)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding JPEG: %w", err)
	}
	return buf.Bytes(), nil
}

// thresholdRatio is the maximum newSize/oldSize ratio at which a
// re-encoded payload replaces the original. Recompressing an existing
// JPEG always loses some quality, so the gate demands real savings
// that scale with how aggressive the quality setting is; for lossless
// sources any strict shrink is a win.
func (c *Config) thresholdRatio(src sourceEncoding) float64 {
	if src != encJPEG {
		return 1.0
	}
	switch {
	case c.Quality < 50:
		return c.JPEGThresholdLow
	case c.Quality < 70:
		return c.JPEGThresholdMid
	default:
		return c.JPEGThresholdHigh
	}
}

// worthReplacing reports whether a re-encoded payload of newSize bytes
// should replace the original of oldSize bytes, given the source
// encoding. JPEG sources must clear their threshold inclusively;
// non-JPEG sources must strictly shrink.
func (c *Config) worthReplacing(newSize, oldSize int, src sourceEncoding) bool {
	if oldSize <= 0 {
		return false
	}
	ratio := float64(newSize) / float64(oldSize)
	limit := c.thresholdRatio(src)
	if src == encJPEG {
		return ratio <= limit
	}
	return ratio < limit
}
