// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

// Package squeeze recompresses raster images embedded in PDF documents.
//
// # Overview
//
// A PDF document is a graph of objects: numbers, strings, names
// (as in /DCTDecode), dictionaries, arrays, and streams — a stream
// being a dictionary paired with an opaque byte payload. Images live
// in stream objects whose dictionary carries /Subtype /Image plus the
// geometry (/Width, /Height, /BitsPerComponent), the sample
// interpretation (/ColorSpace) and the payload encoding (/Filter).
//
// The package parses a whole document into an in-memory object table,
// classifies every stream, decodes the images it knows how to handle
// into flat 8-bit Gray or RGB sample buffers, re-encodes them as JPEG
// at a caller-chosen quality, and keeps the result only when it is
// genuinely smaller than the original payload. Streams that cannot be
// handled — or whose recompressed form would not shrink the file —
// are left byte-for-byte untouched. The mutated table is then pruned
// of unreferenced objects and serialized back to a fresh PDF file.
//
// Use a Processor for the whole pipeline:
//
//	proc := squeeze.NewProcessor(squeeze.NewDefaultConfig())
//	out, stats, err := proc.Compress(ctx, pdfBytes)
//
// The lower-level Parse / Document.Serialize pair is exported for
// callers that need to inspect or build documents directly.
package squeeze

import (
	"fmt"
	"sort"
	"strconv"
)

// A name is a PDF name constant, stored without the leading slash.
type name string

// A keyword is a bare token such as obj, stream, R, or a structural
// delimiter the tokenizer reports verbatim (">>", "]").
type keyword string

// An objptr identifies an indirect object: object number plus
// generation. It is stable for the lifetime of one Document.
type objptr struct {
	id  uint32
	gen uint16
}

func (p objptr) String() string {
	return fmt.Sprintf("%d %d R", p.id, p.gen)
}

// An objdef is an indirect object definition as it appears in the
// file body: "id gen obj ... endobj".
type objdef struct {
	ptr objptr
	obj object
}

// object is one node of the document graph. The dynamic type is one
// of: nil, bool, int64, float64, string, name, dict, array, objptr,
// or *streamObj.
type object interface{}

// dict is a PDF dictionary. Keys are names without the slash.
type dict map[name]object

// array is a PDF array.
type array []object

// streamObj pairs a stream's header dictionary with its raw — still
// encoded — payload. Payloads are held in memory so the compressor
// can rewrite them in place.
type streamObj struct {
	hdr  dict
	data []byte
}

// Document is a fully parsed PDF held in memory: the object table,
// the trailer dictionary, and the header version. It is owned by a
// single compression call and never shared.
type Document struct {
	objects map[objptr]object
	trailer dict
	version string
	maxID   uint32
}

// NewDocument returns an empty document with the given header
// version ("1.4", "1.7", ...).
func NewDocument(version string) *Document {
	return &Document{
		objects: make(map[objptr]object),
		trailer: dict{},
		version: version,
	}
}

// Version reports the document's header version.
func (d *Document) Version() string { return d.version }

// NumObjects reports the number of live indirect objects.
func (d *Document) NumObjects() int { return len(d.objects) }

// add registers obj under ptr, growing the id watermark as needed.
func (d *Document) add(ptr objptr, obj object) {
	d.objects[ptr] = obj
	if ptr.id > d.maxID {
		d.maxID = ptr.id
	}
}

// addObject appends obj with a fresh object number and returns its
// pointer.
func (d *Document) addObject(obj object) objptr {
	d.maxID++
	ptr := objptr{id: d.maxID}
	d.objects[ptr] = obj
	return ptr
}

// resolve follows indirect references until a direct object is
// reached. A dangling or cyclic reference resolves to nil.
func (d *Document) resolve(x object) object {
	for depth := 0; depth < 32; depth++ {
		ptr, ok := x.(objptr)
		if !ok {
			return x
		}
		x, ok = d.objects[ptr]
		if !ok {
			return nil
		}
	}
	return nil
}

// resolveInt resolves x and returns its integer value.
func (d *Document) resolveInt(x object) (int64, bool) {
	n, ok := d.resolve(x).(int64)
	return n, ok
}

// resolveName resolves x and returns its name value.
func (d *Document) resolveName(x object) (name, bool) {
	n, ok := d.resolve(x).(name)
	return n, ok
}

// sortedIDs returns the live object pointers in ascending object
// number order. Document iteration uses this so a single run visits
// every image exactly once in a deterministic order.
func (d *Document) sortedIDs() []objptr {
	ids := make([]objptr, 0, len(d.objects))
	for ptr := range d.objects {
		ids = append(ids, ptr)
	}
	sort.Slice(ids, func(i, j int) bool {
		if ids[i].id != ids[j].id {
			return ids[i].id < ids[j].id
		}
		return ids[i].gen < ids[j].gen
	})
	return ids
}

func objfmt(x object) string {
	switch x := x.(type) {
	default:
		return fmt.Sprint(x)
	case nil:
		return "null"
	case string:
		return strconv.Quote(x)
	case name:
		return "/" + string(x)
	case dict:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		s := "<<"
		for i, k := range keys {
			if i > 0 {
				s += " "
			}
			s += "/" + k + " " + objfmt(x[name(k)])
		}
		return s + ">>"
	case array:
		s := "["
		for i, elem := range x {
			if i > 0 {
				s += " "
			}
			s += objfmt(elem)
		}
		return s + "]"
	case *streamObj:
		return fmt.Sprintf("%s stream(%d bytes)", objfmt(x.hdr), len(x.data))
	case objptr:
		return x.String()
	case objdef:
		return fmt.Sprintf("{%d %d obj} %s", x.ptr.id, x.ptr.gen, objfmt(x.obj))
	}
}
