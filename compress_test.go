// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"image/jpeg"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findImage(t *testing.T, d *Document) *streamObj {
	t.Helper()
	for _, obj := range d.objects {
		if s, ok := obj.(*streamObj); ok {
			if sub, _ := d.resolveName(s.hdr["Subtype"]); sub == "Image" {
				return s
			}
		}
	}
	t.Fatal("no image stream in document")
	return nil
}

func TestCompressImages_FlateRGB(t *testing.T) {
	raw := noiseBytes(3 * 200 * 200)
	img := imageStream(200, 200, name("DeviceRGB"), name("FlateDecode"),
		flateCompress(t, raw), dict{"DecodeParms": dict{"Colors": int64(3)}})
	d := testDoc(map[name]*streamObj{"Im0": img})

	cfg := NewDefaultConfig()
	stats := newStats()
	d.compressImages(cfg, stats)

	assert.Equal(t, 1, stats.ImagesFound)
	assert.Equal(t, 1, stats.ImagesEligible)
	assert.Equal(t, 1, stats.ImagesRecompressed)
	assert.Equal(t, 0, stats.ImagesFailed)

	strm := findImage(t, d)
	assert.Equal(t, name("DCTDecode"), strm.hdr["Filter"])
	assert.Equal(t, name("DeviceRGB"), strm.hdr["ColorSpace"])
	assert.NotContains(t, strm.hdr, name("DecodeParms"))

	decoded, err := jpeg.Decode(bytes.NewReader(strm.data))
	require.NoError(t, err)
	assert.Equal(t, 200, decoded.Bounds().Dx())
	assert.Equal(t, 200, decoded.Bounds().Dy())
}

func TestCompressImages_GrayKeepsGraySpace(t *testing.T) {
	raw := noiseBytes(120 * 120)
	img := imageStream(120, 120, name("DeviceGray"), name("FlateDecode"),
		flateCompress(t, raw), nil)
	d := testDoc(map[name]*streamObj{"Im0": img})

	stats := newStats()
	d.compressImages(NewDefaultConfig(), stats)

	require.Equal(t, 1, stats.ImagesRecompressed)
	strm := findImage(t, d)
	assert.Equal(t, name("DeviceGray"), strm.hdr["ColorSpace"])
}

func TestCompressImages_CMYKBecomesRGB(t *testing.T) {
	raw := noiseBytes(4 * 100 * 100)
	img := imageStream(100, 100, name("DeviceCMYK"), name("FlateDecode"),
		flateCompress(t, raw), nil)
	d := testDoc(map[name]*streamObj{"Im0": img})

	stats := newStats()
	d.compressImages(NewDefaultConfig(), stats)

	require.Equal(t, 1, stats.ImagesRecompressed)
	strm := findImage(t, d)
	assert.Equal(t, name("DeviceRGB"), strm.hdr["ColorSpace"])
}

func TestCompressImages_FailureLeavesStreamUntouched(t *testing.T) {
	// Declared geometry disagrees with the payload, so decoding fails.
	raw := noiseBytes(5000)
	img := imageStream(300, 300, name("DeviceRGB"), nil, raw, nil)
	d := testDoc(map[name]*streamObj{"Im0": img})

	stats := newStats()
	d.compressImages(NewDefaultConfig(), stats)

	assert.Equal(t, 1, stats.ImagesEligible)
	assert.Equal(t, 1, stats.ImagesFailed)
	assert.Equal(t, 0, stats.ImagesRecompressed)
	strm := findImage(t, d)
	assert.Equal(t, raw, strm.data)
	assert.NotContains(t, strm.hdr, name("Filter"))
}

func TestCompressImages_SkipHistogram(t *testing.T) {
	imgs := map[name]*streamObj{
		"Masked": imageStream(32, 32, name("DeviceRGB"), name("FlateDecode"),
			noiseBytes(4096), dict{"SMask": objptr{id: 50}}),
		"Deep": imageStream(32, 32, name("DeviceRGB"), name("FlateDecode"),
			noiseBytes(4096), dict{"BitsPerComponent": int64(16)}),
		"Exotic": imageStream(32, 32, name("Pattern"), name("FlateDecode"),
			noiseBytes(4096), nil),
	}
	d := testDoc(imgs)

	stats := newStats()
	d.compressImages(NewDefaultConfig(), stats)

	assert.Equal(t, 3, stats.ImagesFound)
	assert.Equal(t, 0, stats.ImagesEligible)
	assert.Equal(t, 0, stats.ImagesRecompressed)
	assert.Equal(t, 1, stats.ImagesSkipped[SkipTransparency])
	assert.Equal(t, 1, stats.ImagesSkipped[SkipBitsPerComponent])
	assert.Equal(t, 1, stats.ImagesSkipped[SkipColorSpace])
}

func TestPrune(t *testing.T) {
	d := testDoc(nil)
	live := d.NumObjects()
	d.addObject(dict{"Orphan": int64(1)})
	d.addObject(&streamObj{hdr: dict{"Length": int64(0)}})

	stats := newStats()
	d.prune(stats)

	assert.Equal(t, 2, stats.ObjectsPruned)
	assert.Equal(t, live, d.NumObjects())
}

func TestPrune_KeepsReferencedChain(t *testing.T) {
	d := testDoc(nil)
	inner := d.addObject(dict{"Leaf": int64(1)})
	outer := d.addObject(array{inner})
	root := d.resolve(d.trailer["Root"]).(dict)
	root["Chain"] = outer

	stats := newStats()
	d.prune(stats)

	assert.Equal(t, 0, stats.ObjectsPruned)
	assert.NotNil(t, d.objects[inner])
	assert.NotNil(t, d.objects[outer])
}

func TestPrune_ZeroLengthStreamEvenWhenReferenced(t *testing.T) {
	d := testDoc(nil)
	empty := d.addObject(&streamObj{hdr: dict{"Length": int64(0)}})
	root := d.resolve(d.trailer["Root"]).(dict)
	root["Empty"] = empty

	stats := newStats()
	d.prune(stats)

	assert.Equal(t, 1, stats.ObjectsPruned)
	_, present := d.objects[empty]
	assert.False(t, present)
}
