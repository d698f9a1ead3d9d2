// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

// buffer tokenizes a byte slice holding PDF syntax. It produces the
// token vocabulary of ISO 32000-1 §7.2–7.3: names, numbers, strings,
// dictionaries, arrays, and bare keywords. Stream payloads are read
// by readObject using the declared /Length, resolved through the
// optional length callback when the value is an indirect reference.
type buffer struct {
	data []byte
	pos  int

	// resolveLength maps an indirect /Length reference to its value.
	// Set by the reader once the xref table is known; nil before.
	resolveLength func(objptr) (int64, bool)

	unread []interface{}
}

var errCorrupt = errors.New("malformed PDF syntax")

func newBuffer(data []byte, pos int) *buffer {
	return &buffer{data: data, pos: pos}
}

var wsBits [4]uint64 // 256 bits = 4 * 64

func init() {
	for _, b := range []byte{0x00, 0x09, 0x0A, 0x0C, 0x0D, 0x20} {
		wsBits[b>>6] |= 1 << (b & 63)
	}
}

// isWhitespace reports whether b is one of the six whitespace
// characters defined by ISO 32000-1 §7.2.2 for PDF syntax.
func isWhitespace(b byte) bool {
	return (wsBits[b>>6] & (1 << (b & 63))) != 0
}

func isDelim(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (b *buffer) eof() bool { return b.pos >= len(b.data) }

func (b *buffer) byteAt(i int) byte {
	if i < 0 || i >= len(b.data) {
		return 0
	}
	return b.data[i]
}

// skipSpace advances past whitespace and %-comments.
func (b *buffer) skipSpace() {
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if isWhitespace(c) {
			b.pos++
			continue
		}
		if c == '%' {
			for b.pos < len(b.data) && b.data[b.pos] != '\n' && b.data[b.pos] != '\r' {
				b.pos++
			}
			continue
		}
		return
	}
}

func (b *buffer) unreadToken(tok interface{}) {
	b.unread = append(b.unread, tok)
}

// readToken returns the next lexical token: int64, float64, string
// (for both literal and hex strings), name, or keyword. Returns nil
// at end of input.
func (b *buffer) readToken() interface{} {
	if n := len(b.unread); n > 0 {
		tok := b.unread[n-1]
		b.unread = b.unread[:n-1]
		return tok
	}
	b.skipSpace()
	if b.eof() {
		return nil
	}
	c := b.data[b.pos]
	switch {
	case c == '<':
		if b.byteAt(b.pos+1) == '<' {
			b.pos += 2
			return keyword("<<")
		}
		return b.readHexString()
	case c == '>':
		if b.byteAt(b.pos+1) == '>' {
			b.pos += 2
			return keyword(">>")
		}
		b.pos++
		return keyword(">")
	case c == '(':
		return b.readLiteralString()
	case c == '/':
		return b.readName()
	case c == '[' || c == ']' || c == '{' || c == '}':
		b.pos++
		return keyword(string(rune(c)))
	case c == '+' || c == '-' || c == '.' || ('0' <= c && c <= '9'):
		return b.readNumber()
	default:
		return b.readKeyword()
	}
}

func (b *buffer) readName() interface{} {
	b.pos++ // consume '/'
	start := b.pos
	var buf []byte
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if isWhitespace(c) || isDelim(c) {
			break
		}
		if c == '#' && b.pos+2 < len(b.data) {
			hi := unhex(b.data[b.pos+1])
			lo := unhex(b.data[b.pos+2])
			if hi >= 0 && lo >= 0 {
				if buf == nil {
					buf = append(buf, b.data[start:b.pos]...)
				}
				buf = append(buf, byte(hi<<4|lo))
				b.pos += 3
				continue
			}
		}
		if buf != nil {
			buf = append(buf, c)
		}
		b.pos++
	}
	if buf != nil {
		return name(buf)
	}
	return name(b.data[start:b.pos])
}

func (b *buffer) readKeyword() interface{} {
	start := b.pos
	for b.pos < len(b.data) && !isWhitespace(b.data[b.pos]) && !isDelim(b.data[b.pos]) {
		b.pos++
	}
	kw := keyword(b.data[start:b.pos])
	switch kw {
	case "true":
		return true
	case "false":
		return false
	case "null":
		return nil
	}
	return kw
}

func (b *buffer) readNumber() interface{} {
	start := b.pos
	real := false
	if c := b.data[b.pos]; c == '+' || c == '-' {
		b.pos++
	}
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		if c == '.' {
			real = true
			b.pos++
			continue
		}
		if c < '0' || c > '9' {
			break
		}
		b.pos++
	}
	text := string(b.data[start:b.pos])
	if real {
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return keyword(text)
		}
		return f
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return keyword(text)
	}
	return n
}

func unhex(c byte) int {
	switch {
	case '0' <= c && c <= '9':
		return int(c - '0')
	case 'a' <= c && c <= 'f':
		return int(c-'a') + 10
	case 'A' <= c && c <= 'F':
		return int(c-'A') + 10
	}
	return -1
}

func (b *buffer) readHexString() interface{} {
	b.pos++ // consume '<'
	var out []byte
	hi := -1
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		b.pos++
		if c == '>' {
			break
		}
		if isWhitespace(c) {
			continue
		}
		v := unhex(c)
		if v < 0 {
			continue
		}
		if hi < 0 {
			hi = v
		} else {
			out = append(out, byte(hi<<4|v))
			hi = -1
		}
	}
	if hi >= 0 {
		out = append(out, byte(hi<<4)) // odd digit count: pad with 0
	}
	return string(out)
}

func (b *buffer) readLiteralString() interface{} {
	b.pos++ // consume '('
	var out []byte
	depth := 1
	for b.pos < len(b.data) {
		c := b.data[b.pos]
		b.pos++
		switch c {
		case '(':
			depth++
			out = append(out, c)
		case ')':
			depth--
			if depth == 0 {
				return string(out)
			}
			out = append(out, c)
		case '\\':
			if b.pos >= len(b.data) {
				return string(out)
			}
			e := b.data[b.pos]
			b.pos++
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				if b.byteAt(b.pos) == '\n' {
					b.pos++
				}
				// line continuation: emit nothing
			case '\n':
				// line continuation: emit nothing
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2 && b.pos < len(b.data); i++ {
						o := b.data[b.pos]
						if o < '0' || o > '7' {
							break
						}
						v = v<<3 | int(o-'0')
						b.pos++
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, c)
		}
	}
	return string(out)
}

// readObject parses a complete object at the current position:
// a direct value, an indirect reference ("n g R"), or an indirect
// definition ("n g obj ... endobj"), including the stream payload of
// stream objects.
func (b *buffer) readObject() object {
	tok := b.readToken()
	return b.readObjectAfter(tok)
}

func (b *buffer) readObjectAfter(tok interface{}) object {
	switch t := tok.(type) {
	case nil, bool, float64, string, name:
		return t
	case keyword:
		switch t {
		case "<<":
			return b.readDict()
		case "[":
			return b.readArray()
		}
		return t
	case int64:
		// "n g R" or "n g obj" both start with two integers.
		tok2 := b.readToken()
		n2, ok := tok2.(int64)
		if !ok {
			b.unreadToken(tok2)
			return t
		}
		tok3 := b.readToken()
		switch tok3 {
		case keyword("R"):
			return objptr{id: uint32(t), gen: uint16(n2)}
		case keyword("obj"):
			ptr := objptr{id: uint32(t), gen: uint16(n2)}
			inner := b.readObject()
			if d, ok := inner.(dict); ok {
				if strm, ok := b.maybeReadStream(d); ok {
					inner = strm
				}
			}
			if kw := b.readToken(); kw != keyword("endobj") {
				b.unreadToken(kw)
			}
			return objdef{ptr: ptr, obj: inner}
		default:
			b.unreadToken(tok3)
			b.unreadToken(tok2)
			return t
		}
	}
	return tok
}

func (b *buffer) readDict() dict {
	d := dict{}
	for {
		tok := b.readToken()
		if tok == nil || tok == keyword(">>") {
			return d
		}
		key, ok := tok.(name)
		if !ok {
			// skip a malformed entry rather than losing the dict
			continue
		}
		d[key] = b.readObject()
	}
}

func (b *buffer) readArray() array {
	var a array
	for {
		tok := b.readToken()
		if tok == nil || tok == keyword("]") {
			return a
		}
		a = append(a, b.readObjectAfter(tok))
	}
}

// maybeReadStream consumes a stream payload if the "stream" keyword
// follows the header dictionary d. The payload length comes from the
// /Length entry; an indirect length is resolved through the length
// callback, and as a last resort the payload is delimited by scanning
// for "endstream".
func (b *buffer) maybeReadStream(d dict) (*streamObj, bool) {
	tok := b.readToken()
	if tok != keyword("stream") {
		b.unreadToken(tok)
		return nil, false
	}
	// The keyword is followed by CRLF or LF (a lone CR is tolerated).
	if b.byteAt(b.pos) == '\r' {
		b.pos++
	}
	if b.byteAt(b.pos) == '\n' {
		b.pos++
	}

	n := int64(-1)
	switch v := d["Length"].(type) {
	case int64:
		n = v
	case objptr:
		if b.resolveLength != nil {
			if got, ok := b.resolveLength(v); ok {
				n = got
			}
		}
	}
	start := b.pos
	if n >= 0 && start+int(n) <= len(b.data) {
		end := start + int(n)
		// Guard against a lying /Length: endstream must follow.
		tail := b.data[end:]
		if ws := bytes.TrimLeft(tail, "\r\n \t\x00"); bytes.HasPrefix(ws, []byte("endstream")) {
			b.pos = end
			b.skipKeyword("endstream")
			return &streamObj{hdr: d, data: b.data[start:end]}, true
		}
	}
	// Fallback: scan for the endstream marker.
	idx := bytes.Index(b.data[start:], []byte("endstream"))
	if idx < 0 {
		b.pos = len(b.data)
		return &streamObj{hdr: d, data: b.data[start:]}, true
	}
	end := start + idx
	for end > start && (b.data[end-1] == '\n' || b.data[end-1] == '\r') {
		end--
	}
	b.pos = start + idx
	b.skipKeyword("endstream")
	return &streamObj{hdr: d, data: b.data[start:end]}, true
}

func (b *buffer) skipKeyword(kw keyword) {
	tok := b.readToken()
	if tok != kw {
		b.unreadToken(tok)
	}
}

// readObjectDefAt parses the indirect object definition beginning at
// offset off.
func (b *buffer) readObjectDefAt(off int64) (objdef, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return objdef{}, fmt.Errorf("%w: object offset %d out of range", errCorrupt, off)
	}
	b.pos = int(off)
	b.unread = b.unread[:0]
	obj := b.readObject()
	def, ok := obj.(objdef)
	if !ok {
		return objdef{}, fmt.Errorf("%w: expected indirect object at offset %d, found %T", errCorrupt, off, obj)
	}
	return def, nil
}
