// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

// SkipReason explains why an image stream was left alone. The values
// feed the per-run skip histogram surfaced through Stats.
type SkipReason string

const (
	SkipTransparency     SkipReason = "has_transparency"
	SkipTooSmall         SkipReason = "too_small"
	SkipBitsPerComponent SkipReason = "unsupported_bits_per_component"
	SkipColorSpace       SkipReason = "unsupported_color_space"
	SkipFilter           SkipReason = "unsupported_filter"
	SkipPredictor        SkipReason = "has_predictor"
)

type classKind int

const (
	classNotImage classKind = iota
	classEligible
	classSkipped
)

// classification is the outcome of inspecting one stream dictionary.
// For eligible images it carries the resolved color space and source
// encoding the decoder dispatches on; for skips it carries the reason
// and, for color-space and filter skips, the offending name.
type classification struct {
	kind     classKind
	reason   SkipReason
	detail   string
	cs       colorSpace
	encoding sourceEncoding
}

func skipped(reason SkipReason, detail string) classification {
	return classification{kind: classSkipped, reason: reason, detail: detail}
}

// classify decides whether strm is an image the pipeline can safely
// recompress. It is a read-only dictionary inspection — no payload is
// decoded — so it runs cheaply over every object before any decode
// work is committed. The rules apply in order; the first match wins:
//
//  1. not /Subtype /Image → not an image (not counted as a skip)
//  2. /SMask present → transparency (JPEG has no alpha channel)
//  3. payload under minBytes → too small to be worth re-encoding
//  4. /BitsPerComponent other than 8 → unsupported depth
//  5. /ColorSpace outside the supported matrix → unsupported space
//  6. /Filter other than a single FlateDecode or DCTDecode →
//     unsupported encoding (multi-element chains included)
//  7. /DecodeParms with /Predictor > 1 → predictor-filtered samples
func (d *Document) classify(strm *streamObj, minBytes int) classification {
	hdr := strm.hdr
	if sub, _ := d.resolveName(hdr["Subtype"]); sub != "Image" {
		return classification{kind: classNotImage}
	}
	if _, ok := hdr["SMask"]; ok {
		return skipped(SkipTransparency, "")
	}
	if len(strm.data) < minBytes {
		return skipped(SkipTooSmall, "")
	}
	if bpc, ok := d.resolveInt(hdr["BitsPerComponent"]); !ok || bpc != 8 {
		return skipped(SkipBitsPerComponent, "")
	}
	cs, ok := d.resolveColorSpace(hdr["ColorSpace"])
	if !ok {
		return skipped(SkipColorSpace, cs.label)
	}
	enc, ok, badFilter := d.resolveEncoding(hdr["Filter"])
	if !ok {
		return skipped(SkipFilter, badFilter)
	}
	if parms, ok := d.resolve(hdr["DecodeParms"]).(dict); ok {
		if pred, _ := d.resolveInt(parms["Predictor"]); pred > 1 {
			return skipped(SkipPredictor, "")
		}
	}
	return classification{kind: classEligible, cs: cs, encoding: enc}
}

// resolveEncoding interprets the /Filter entry: absent means raw
// samples, and a single name (bare or as a one-element array) must be
// FlateDecode or DCTDecode. Everything else — including multi-stage
// filter chains — is out of the supported matrix.
func (d *Document) resolveEncoding(x object) (enc sourceEncoding, ok bool, bad string) {
	switch f := d.resolve(x).(type) {
	case nil:
		return encRaw, true, ""
	case name:
		return encodingForFilter(f)
	case array:
		if len(f) == 1 {
			if n, ok := d.resolveName(f[0]); ok {
				return encodingForFilter(n)
			}
			return 0, false, "<malformed filter>"
		}
		return 0, false, "<filter chain>"
	default:
		return 0, false, "<malformed filter>"
	}
}

func encodingForFilter(f name) (sourceEncoding, bool, string) {
	switch f {
	case "FlateDecode":
		return encFlate, true, ""
	case "DCTDecode":
		return encJPEG, true, ""
	}
	return 0, false, string(f)
}
