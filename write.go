// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rudi-q/pdfsqueeze/logger"
)

// ErrSerialization is returned when a mutated Document cannot be
// written back out. Fatal; the original bytes are never silently
// substituted.
var ErrSerialization = errors.New("PDF serialization failed")

// Serialize writes the document as a fresh PDF file: header, body
// objects in ascending numeric order, a classic cross-reference
// table with free entries for pruned object numbers, trailer, and
// startxref. Stream /Length entries are rewritten from the actual
// payload before serialization.
func (d *Document) Serialize() ([]byte, error) {
	var buf bytes.Buffer
	version := d.version
	if version == "" {
		version = "1.7"
	}
	buf.WriteString("%PDF-" + version + "\n")
	// Binary marker comment so transfer tools treat the file as binary.
	buf.WriteString("%\xe2\xe3\xcf\xd3\n")

	offsets := make(map[uint32]int64, len(d.objects))
	gens := make(map[uint32]uint16, len(d.objects))
	for _, ptr := range d.sortedIDs() {
		obj := d.objects[ptr]
		if strm, ok := obj.(*streamObj); ok {
			strm.hdr["Length"] = int64(len(strm.data))
		}
		offsets[ptr.id] = int64(buf.Len())
		gens[ptr.id] = ptr.gen
		fmt.Fprintf(&buf, "%d %d obj\n", ptr.id, ptr.gen)
		if err := writeObject(&buf, obj); err != nil {
			return nil, fmt.Errorf("%w: object %d: %v", ErrSerialization, ptr.id, err)
		}
		buf.WriteString("\nendobj\n")
	}

	xrefOff := int64(buf.Len())
	size := d.maxID + 1
	fmt.Fprintf(&buf, "xref\n0 %d\n", size)
	buf.WriteString("0000000000 65535 f \n")
	for id := uint32(1); id < size; id++ {
		if off, ok := offsets[id]; ok {
			fmt.Fprintf(&buf, "%010d %05d n \n", off, gens[id])
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}

	trailer := dict{}
	for k, v := range d.trailer {
		trailer[k] = v
	}
	trailer["Size"] = int64(size)
	if _, ok := trailer["Root"]; !ok {
		return nil, fmt.Errorf("%w: trailer has no Root", ErrSerialization)
	}
	buf.WriteString("trailer\n")
	if err := writeObject(&buf, trailer); err != nil {
		return nil, fmt.Errorf("%w: trailer: %v", ErrSerialization, err)
	}
	fmt.Fprintf(&buf, "\nstartxref\n%d\n%%%%EOF\n", xrefOff)

	logger.Debug(fmt.Sprintf("serialize: objects=%d bytes=%d", len(d.objects), buf.Len()), true)
	return buf.Bytes(), nil
}

func writeObject(buf *bytes.Buffer, obj object) error {
	switch x := obj.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		buf.WriteString(strconv.FormatBool(x))
	case int64:
		buf.WriteString(strconv.FormatInt(x, 10))
	case float64:
		buf.WriteString(strconv.FormatFloat(x, 'f', -1, 64))
	case string:
		writeString(buf, x)
	case name:
		writeName(buf, x)
	case objptr:
		fmt.Fprintf(buf, "%d %d R", x.id, x.gen)
	case array:
		buf.WriteByte('[')
		for i, elem := range x {
			if i > 0 {
				buf.WriteByte(' ')
			}
			if err := writeObject(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case dict:
		return writeDict(buf, x)
	case *streamObj:
		if err := writeDict(buf, x.hdr); err != nil {
			return err
		}
		buf.WriteString("\nstream\n")
		buf.Write(x.data)
		buf.WriteString("\nendstream")
	default:
		return fmt.Errorf("unserializable object type %T", obj)
	}
	return nil
}

func writeDict(buf *bytes.Buffer, d dict) error {
	buf.WriteString("<<")
	for _, k := range sortedKeys(d) {
		writeName(buf, k)
		v := d[k]
		// Names and delimiters self-terminate; other values need a
		// separator after the key.
		switch v.(type) {
		case dict, array, string, name:
		default:
			buf.WriteByte(' ')
		}
		if err := writeObject(buf, v); err != nil {
			return err
		}
	}
	buf.WriteString(">>")
	return nil
}

func sortedKeys(d dict) []name {
	keys := make([]name, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// writeName emits /Name with #xx escapes for delimiters, whitespace,
// and non-ASCII bytes.
func writeName(buf *bytes.Buffer, n name) {
	buf.WriteByte('/')
	for i := 0; i < len(n); i++ {
		c := n[i]
		if c <= ' ' || c > '~' || isDelim(c) || c == '#' {
			fmt.Fprintf(buf, "#%02X", c)
			continue
		}
		buf.WriteByte(c)
	}
}

// writeString emits s as a literal string when it is mostly
// printable, falling back to hex form for binary payloads such as
// file identifiers.
func writeString(buf *bytes.Buffer, s string) {
	binary := 0
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < ' ' || c > '~' {
			binary++
		}
	}
	if binary > len(s)/4 {
		buf.WriteByte('<')
		for i := 0; i < len(s); i++ {
			fmt.Fprintf(buf, "%02X", s[i])
		}
		buf.WriteByte('>')
		return
	}
	buf.WriteByte('(')
	for i := 0; i < len(s); i++ {
		switch c := s[i]; c {
		case '(', ')', '\\':
			buf.WriteByte('\\')
			buf.WriteByte(c)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		default:
			if c < ' ' || c > '~' {
				fmt.Fprintf(buf, `\%03o`, c)
			} else {
				buf.WriteByte(c)
			}
		}
	}
	buf.WriteByte(')')
}
