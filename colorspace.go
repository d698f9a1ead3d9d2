// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

// colorModel is the sample interpretation a /ColorSpace entry
// resolves to, reduced to the set the compressor can handle. Keeping
// the classifier and decoder switching on this enum (rather than on
// raw dictionary strings) keeps their branching exhaustive.
type colorModel int

const (
	modelInvalid colorModel = iota
	modelGray
	modelRGB
	modelCMYK
	modelIndexed
	modelICC // channel count inferred at decode time
)

func (m colorModel) String() string {
	switch m {
	case modelGray:
		return "Gray"
	case modelRGB:
		return "RGB"
	case modelCMYK:
		return "CMYK"
	case modelIndexed:
		return "Indexed"
	case modelICC:
		return "ICC"
	}
	return "Invalid"
}

// colorSpace is the structured view of a stream's /ColorSpace entry.
type colorSpace struct {
	model colorModel
	label string // original name, for diagnostics

	// Indexed only.
	base    colorModel
	palette []byte
}

// resolveColorSpace interprets the /ColorSpace entry x. The second
// return value is false when the entry names a space outside the
// supported matrix; label then carries the offending name (or a
// placeholder for malformed forms) for the skip histogram.
//
// An ambiguous channel count rejects the space rather than guessing:
// the only deferred case is ICCBased, whose count is inferred from
// the decoded payload length.
func (d *Document) resolveColorSpace(x object) (colorSpace, bool) {
	switch cs := d.resolve(x).(type) {
	case name:
		// Only the Device spaces may appear as bare names; the
		// calibrated families are always written in array form.
		switch cs {
		case "DeviceRGB":
			return colorSpace{model: modelRGB, label: string(cs)}, true
		case "DeviceGray":
			return colorSpace{model: modelGray, label: string(cs)}, true
		case "DeviceCMYK":
			return colorSpace{model: modelCMYK, label: string(cs)}, true
		}
		return colorSpace{label: string(cs)}, false
	case array:
		if len(cs) == 0 {
			return colorSpace{label: "<empty array>"}, false
		}
		family, ok := d.resolveName(cs[0])
		if !ok {
			return colorSpace{label: "<malformed array>"}, false
		}
		switch family {
		case "Indexed":
			return d.resolveIndexed(cs)
		case "ICCBased":
			return colorSpace{model: modelICC, label: "ICCBased"}, true
		case "CalRGB":
			return colorSpace{model: modelRGB, label: "CalRGB"}, true
		case "CalGray":
			return colorSpace{model: modelGray, label: "CalGray"}, true
		}
		return colorSpace{label: string(family)}, false
	default:
		return colorSpace{label: "<non-name>"}, false
	}
}

// resolveIndexed interprets [/Indexed base hival lookup]. The base
// must itself resolve, and the lookup must be an inline string: a
// palette held in a separate stream object is left to the decoder to
// reject (the classifier accepts the well-formed array shape).
func (d *Document) resolveIndexed(cs array) (colorSpace, bool) {
	if len(cs) != 4 {
		return colorSpace{label: "<malformed Indexed>"}, false
	}
	base, ok := d.resolveColorSpace(cs[1])
	if !ok {
		return colorSpace{label: "Indexed/" + base.label}, false
	}
	out := colorSpace{model: modelIndexed, label: "Indexed", base: base.model}
	if lookup, ok := d.resolve(cs[3]).(string); ok {
		out.palette = []byte(lookup)
	}
	return out, true
}
