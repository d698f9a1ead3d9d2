// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"fmt"

	"github.com/rudi-q/pdfsqueeze/logger"
)

// compressImages walks every stream object in ascending object-number
// order and recompresses the eligible images in place. Each image is
// handled independently: a decode or encode failure is counted in
// stats and the original stream is left untouched.
func (d *Document) compressImages(cfg *Config, stats *Stats) {
	for _, ptr := range d.sortedIDs() {
		strm, ok := d.objects[ptr].(*streamObj)
		if !ok {
			continue
		}
		c := d.classify(strm, cfg.MinImageBytes)
		switch c.kind {
		case classNotImage:
			continue
		case classSkipped:
			stats.ImagesFound++
			stats.recordSkip(c.reason)
			logger.Debug(fmt.Sprintf("Image skipped: obj=%d reason=%s detail=%s", ptr.id, c.reason, c.detail), true)
			continue
		}
		stats.ImagesFound++
		stats.ImagesEligible++

		img, err := d.decodeImage(strm, c, cfg.MaxDecompressedBytes)
		if err != nil {
			stats.ImagesFailed++
			logger.Debug(fmt.Sprintf("Image decode failed: obj=%d err=%v", ptr.id, err), true)
			continue
		}
		payload, err := encodeJPEG(img, cfg.Quality)
		if err != nil {
			stats.ImagesFailed++
			logger.Debug(fmt.Sprintf("Image encode failed: obj=%d err=%v", ptr.id, err), true)
			continue
		}
		oldSize := len(strm.data)
		if !cfg.worthReplacing(len(payload), oldSize, c.encoding) {
			stats.ImagesThresholded++
			logger.Debug(fmt.Sprintf("Image below threshold: obj=%d old=%d new=%d", ptr.id, oldSize, len(payload)), true)
			continue
		}

		replaceImageStream(strm, img, payload)
		stats.ImagesRecompressed++
		logger.Debug(fmt.Sprintf("Image recompressed: obj=%d old=%d new=%d", ptr.id, oldSize, len(payload)), true)
	}
}

// replaceImageStream commits a re-encoded payload into the stream
// object. All fields change together, after every fallible step has
// already succeeded, so a stream is never left half-rewritten.
func replaceImageStream(strm *streamObj, img *flatImage, payload []byte) {
	strm.data = payload
	strm.hdr["Filter"] = name("DCTDecode")
	delete(strm.hdr, "DecodeParms")
	delete(strm.hdr, "Decode")
	strm.hdr["BitsPerComponent"] = int64(8)
	strm.hdr["Width"] = int64(img.width)
	strm.hdr["Height"] = int64(img.height)
	if img.model == pixGray {
		strm.hdr["ColorSpace"] = name("DeviceGray")
	} else {
		strm.hdr["ColorSpace"] = name("DeviceRGB")
	}
}

// prune drops zero-length streams and then removes every object not
// reachable from the trailer. References into removed objects resolve
// to null afterwards, which the serializer records as free entries.
func (d *Document) prune(stats *Stats) {
	for ptr, obj := range d.objects {
		if strm, ok := obj.(*streamObj); ok && len(strm.data) == 0 {
			delete(d.objects, ptr)
			stats.ObjectsPruned++
			logger.Debug(fmt.Sprintf("Pruned empty stream: obj=%d", ptr.id), true)
		}
	}

	live := make(map[objptr]bool)
	d.mark(d.trailer, live)
	for ptr := range d.objects {
		if !live[ptr] {
			delete(d.objects, ptr)
			stats.ObjectsPruned++
			logger.Debug(fmt.Sprintf("Pruned unreferenced object: obj=%d", ptr.id), true)
		}
	}
}

func (d *Document) mark(x object, live map[objptr]bool) {
	switch v := x.(type) {
	case objptr:
		if live[v] {
			return
		}
		live[v] = true
		if obj, ok := d.objects[v]; ok {
			d.mark(obj, live)
		}
	case dict:
		for _, val := range v {
			d.mark(val, live)
		}
	case array:
		for _, val := range v {
			d.mark(val, live)
		}
	case *streamObj:
		d.mark(v.hdr, live)
	}
}
