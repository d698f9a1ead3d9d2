// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"image"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testInflateLimit = 64 << 20

func TestDecodeImage_FlateGray(t *testing.T) {
	d := NewDocument("1.7")
	samples := noiseBytes(16 * 8)
	strm := imageStream(16, 8, name("DeviceGray"), name("FlateDecode"),
		flateCompress(t, samples), nil)

	img, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelGray}, encoding: encFlate}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, pixGray, img.model)
	assert.Equal(t, 16, img.width)
	assert.Equal(t, 8, img.height)
	assert.Equal(t, samples, img.pixels)
}

func TestDecodeImage_RawRGB(t *testing.T) {
	d := NewDocument("1.7")
	samples := noiseBytes(3 * 16 * 8)
	strm := imageStream(16, 8, name("DeviceRGB"), nil, samples, nil)

	img, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelRGB}, encoding: encRaw}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, pixRGB, img.model)
	assert.Equal(t, samples, img.pixels)
}

func TestDecodeImage_FlateCMYK(t *testing.T) {
	d := NewDocument("1.7")
	// Two pixels: no ink, then solid black ink.
	samples := []byte{0, 0, 0, 0, 0, 0, 0, 255}
	strm := imageStream(2, 1, name("DeviceCMYK"), name("FlateDecode"),
		flateCompress(t, samples), nil)

	img, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelCMYK}, encoding: encFlate}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, pixRGB, img.model)
	assert.Equal(t, []byte{255, 255, 255, 0, 0, 0}, img.pixels)
}

func TestDecodeImage_Indexed(t *testing.T) {
	d := NewDocument("1.7")
	cs := colorSpace{model: modelIndexed, base: modelRGB, palette: []byte{255, 0, 0, 0, 255, 0}}
	strm := imageStream(3, 1, nil, name("FlateDecode"),
		flateCompress(t, []byte{0, 1, 0}), nil)

	img, err := d.decodeImage(strm, classification{cs: cs, encoding: encFlate}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, []byte{255, 0, 0, 0, 255, 0, 255, 0, 0}, img.pixels)
}

func TestDecodeImage_IndexedPaletteMissing(t *testing.T) {
	d := NewDocument("1.7")
	cs := colorSpace{model: modelIndexed, base: modelRGB}
	strm := imageStream(1, 1, nil, name("FlateDecode"), flateCompress(t, []byte{0}), nil)

	_, err := d.decodeImage(strm, classification{cs: cs, encoding: encFlate}, testInflateLimit)
	assert.ErrorIs(t, err, ErrPaletteIndex)
}

func TestDecodeImage_ICCChannelInference(t *testing.T) {
	d := NewDocument("1.7")
	cs := colorSpace{model: modelICC}

	tests := []struct {
		name      string
		bytesPer  int
		wantModel pixelModel
		wantErr   bool
	}{
		{name: "one channel decodes as gray", bytesPer: 1, wantModel: pixGray},
		{name: "three channels decode as rgb", bytesPer: 3, wantModel: pixRGB},
		{name: "four channels decode as cmyk", bytesPer: 4, wantModel: pixRGB},
		{name: "two channels are rejected", bytesPer: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			samples := noiseBytes(tt.bytesPer * 4 * 4)
			strm := imageStream(4, 4, nil, nil, samples, nil)
			img, err := d.decodeImage(strm, classification{cs: cs, encoding: encRaw}, testInflateLimit)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantModel, img.model)
		})
	}
}

func TestDecodeImage_SampleCountMismatch(t *testing.T) {
	d := NewDocument("1.7")
	strm := imageStream(16, 16, nil, nil, noiseBytes(100), nil)
	_, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelRGB}, encoding: encRaw}, testInflateLimit)
	assert.Error(t, err)
}

func TestDecodeImage_MissingGeometry(t *testing.T) {
	d := NewDocument("1.7")
	strm := imageStream(16, 16, nil, nil, noiseBytes(16*16), dict{"Width": nil})
	_, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelGray}, encoding: encRaw}, testInflateLimit)
	assert.Error(t, err)
}

func TestDecodeImage_InflateBomb(t *testing.T) {
	d := NewDocument("1.7")
	big := make([]byte, 1<<20) // highly compressible megabyte
	strm := imageStream(1024, 1024, nil, name("FlateDecode"), flateCompress(t, big), nil)
	_, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelGray}, encoding: encFlate}, 1024)
	assert.Error(t, err)
}

func TestDecodeImage_JPEG(t *testing.T) {
	d := NewDocument("1.7")

	src := image.NewNRGBA(image.Rect(0, 0, 20, 10))
	for i := range src.Pix {
		src.Pix[i] = 0xff
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}))

	strm := imageStream(20, 10, name("DeviceRGB"), name("DCTDecode"), buf.Bytes(), nil)
	img, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelRGB}, encoding: encJPEG}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, pixRGB, img.model)
	assert.Equal(t, 20, img.width)
	assert.Equal(t, 10, img.height)
	assert.Len(t, img.pixels, 3*20*10)
	// Solid white survives the DCT roundtrip almost exactly.
	for _, v := range img.pixels {
		assert.GreaterOrEqual(t, int(v), 250)
	}
}

func TestDecodeImage_JPEGGrayStaysGray(t *testing.T) {
	d := NewDocument("1.7")
	src := image.NewGray(image.Rect(0, 0, 8, 8))
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90}))

	strm := imageStream(8, 8, name("DeviceGray"), name("DCTDecode"), buf.Bytes(), nil)
	img, err := d.decodeImage(strm, classification{cs: colorSpace{model: modelGray}, encoding: encJPEG}, testInflateLimit)
	require.NoError(t, err)
	assert.Equal(t, pixGray, img.model)
	assert.Len(t, img.pixels, 8*8)
}
