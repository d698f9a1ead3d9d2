// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProcessor_PanicsOnInvalidConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxConcurrentDocs = 0
	assert.Panics(t, func() { NewProcessor(cfg) })
}

func TestProcessor_Compress(t *testing.T) {
	raw := noiseBytes(3 * 200 * 200)
	img := imageStream(200, 200, name("DeviceRGB"), name("FlateDecode"),
		flateCompress(t, raw), nil)
	data := serialized(t, map[name]*streamObj{"Im0": img})

	proc := NewProcessor(NewDefaultConfig())
	out, stats, err := proc.Compress(context.Background(), data)
	require.NoError(t, err)
	require.NotNil(t, stats)

	assert.Equal(t, len(data), stats.OriginalSize)
	assert.Equal(t, len(out), stats.CompressedSize)
	assert.Equal(t, 1, stats.ImagesFound)
	assert.Equal(t, 1, stats.ImagesEligible)
	assert.Equal(t, 1, stats.ImagesRecompressed)
	assert.Less(t, len(out), len(data), "noise recompresses to a smaller file")
	assert.Greater(t, stats.ReductionPct, 0.0)

	// The output must itself be a valid document with the image now
	// stored as JPEG.
	doc, err := Parse(out)
	require.NoError(t, err)
	strm := findImage(t, doc)
	assert.Equal(t, name("DCTDecode"), strm.hdr["Filter"])
}

func TestProcessor_CompressInvalidInput(t *testing.T) {
	proc := NewProcessor(NewDefaultConfig())
	_, _, err := proc.Compress(context.Background(), []byte("not a pdf"))
	assert.ErrorIs(t, err, ErrInvalidPDF)
}

func TestProcessor_CompressNoImages(t *testing.T) {
	data := serialized(t, nil)
	proc := NewProcessor(NewDefaultConfig())
	out, stats, err := proc.Compress(context.Background(), data)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ImagesFound)
	_, err = Parse(out)
	assert.NoError(t, err)
}

func TestProcessor_CancelledWhileWaitingForSlot(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.MaxConcurrentDocs = 1
	proc := NewProcessor(cfg)

	// Hold the only slot so Compress has to wait, then cancel.
	require.NoError(t, proc.sem.Acquire(context.Background(), 1))
	defer proc.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := proc.Compress(ctx, serialized(t, nil))
	assert.ErrorIs(t, err, context.Canceled)
}
