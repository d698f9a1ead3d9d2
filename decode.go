// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// sourceEncoding is the wire encoding of an image stream payload.
type sourceEncoding int

const (
	encRaw sourceEncoding = iota
	encFlate
	encJPEG
)

func (e sourceEncoding) String() string {
	switch e {
	case encRaw:
		return "raw"
	case encFlate:
		return "flate"
	case encJPEG:
		return "jpeg"
	}
	return "unknown"
}

// pixelModel is the normalized sample layout after decoding: every
// image leaves the decoder as either 8-bit grayscale or interleaved
// 8-bit RGB, regardless of its source color space.
type pixelModel int

const (
	pixGray pixelModel = iota
	pixRGB
)

func (p pixelModel) channels() int {
	if p == pixGray {
		return 1
	}
	return 3
}

// flatImage is a decoded image in its normalized form. pixels holds
// width*height samples for pixGray and 3*width*height for pixRGB.
type flatImage struct {
	model  pixelModel
	width  int
	height int
	pixels []byte
}

// decodeImage turns an eligible image stream into flat 8-bit samples.
// inflateLimit bounds the size a FlateDecode payload may expand to,
// guarding against decompression bombs.
func (d *Document) decodeImage(strm *streamObj, c classification, inflateLimit int64) (*flatImage, error) {
	w, ok := d.resolveInt(strm.hdr["Width"])
	if !ok || w <= 0 {
		return nil, fmt.Errorf("image has no usable /Width")
	}
	h, ok := d.resolveInt(strm.hdr["Height"])
	if !ok || h <= 0 {
		return nil, fmt.Errorf("image has no usable /Height")
	}

	if c.encoding == encJPEG {
		return decodeJPEG(strm.data)
	}

	samples := strm.data
	if c.encoding == encFlate {
		var err error
		samples, err = inflate(samples, inflateLimit)
		if err != nil {
			return nil, fmt.Errorf("inflating image samples: %w", err)
		}
	}
	return normalizeSamples(samples, c.cs, int(w), int(h))
}

// normalizeSamples converts decoded sample bytes into the flat Gray8
// or RGB8 layout the encoder consumes. The sample count must match
// the declared geometry exactly.
func normalizeSamples(samples []byte, cs colorSpace, w, h int) (*flatImage, error) {
	n := w * h
	out := &flatImage{width: w, height: h}

	switch cs.model {
	case modelGray:
		if len(samples) != n {
			return nil, sampleCountErr(cs.model, len(samples), n)
		}
		out.model = pixGray
		out.pixels = samples

	case modelRGB:
		if len(samples) != 3*n {
			return nil, sampleCountErr(cs.model, len(samples), 3*n)
		}
		out.model = pixRGB
		out.pixels = samples

	case modelCMYK:
		if len(samples) != 4*n {
			return nil, sampleCountErr(cs.model, len(samples), 4*n)
		}
		out.model = pixRGB
		out.pixels = cmykToRGB(samples)

	case modelIndexed:
		if len(samples) != n {
			return nil, sampleCountErr(cs.model, len(samples), n)
		}
		rgb, err := expandIndexed(samples, cs.base, cs.palette)
		if err != nil {
			return nil, err
		}
		out.model = pixRGB
		out.pixels = rgb

	case modelICC:
		// ICC profiles are not interpreted; the channel count is
		// inferred from the decoded length and the samples are
		// treated as device values.
		if n == 0 || len(samples)%n != 0 {
			return nil, fmt.Errorf("ICC image: %d bytes do not divide %d pixels", len(samples), n)
		}
		switch len(samples) / n {
		case 1:
			out.model = pixGray
			out.pixels = samples
		case 3:
			out.model = pixRGB
			out.pixels = samples
		case 4:
			out.model = pixRGB
			out.pixels = cmykToRGB(samples)
		default:
			return nil, fmt.Errorf("ICC image: unsupported channel count %d", len(samples)/n)
		}

	default:
		return nil, fmt.Errorf("cannot normalize color model %v", cs.model)
	}
	return out, nil
}

func sampleCountErr(m colorModel, got, want int) error {
	return fmt.Errorf("%v image: %d sample bytes, want %d", m, got, want)
}

// decodeJPEG re-decodes a DCT payload to flat samples. Grayscale
// sources stay grayscale; everything else (YCbCr, CMYK-in-JPEG) is
// rendered to RGB. The JPEG's own geometry wins over the dictionary
// when they disagree, since that is what the pixels actually are.
func decodeJPEG(data []byte) (*flatImage, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding JPEG image: %w", err)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := &flatImage{width: w, height: h}

	if g, ok := img.(*image.Gray); ok {
		out.model = pixGray
		out.pixels = make([]byte, w*h)
		for y := 0; y < h; y++ {
			copy(out.pixels[y*w:(y+1)*w], g.Pix[y*g.Stride:y*g.Stride+w])
		}
		return out, nil
	}

	rgba := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	out.model = pixRGB
	out.pixels = make([]byte, 3*w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src := rgba.PixOffset(x, y)
			dst := (y*w + x) * 3
			out.pixels[dst+0] = rgba.Pix[src+0]
			out.pixels[dst+1] = rgba.Pix[src+1]
			out.pixels[dst+2] = rgba.Pix[src+2]
		}
	}
	return out, nil
}
