// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"io"

	"github.com/rudi-q/pdfsqueeze/logger"
)

// ErrInvalidPDF is returned when the input bytes cannot be parsed
// into a Document. It is fatal for the whole compression call.
var ErrInvalidPDF = errors.New("invalid PDF")

// maxStructureInflateBytes caps how far xref and object-stream
// payloads may decompress. These are metadata streams, orders of
// magnitude smaller than image data, and they are read before any
// Config exists, so the cap is a package constant rather than a
// Config field.
const maxStructureInflateBytes = 64 << 20

type xrefEntry struct {
	ptr      objptr
	inStream bool
	stream   objptr
	offset   int64
}

// Parse reads a complete PDF from data into a mutable in-memory
// Document: header version, cross-reference information (classic
// tables and xref streams, including /Prev chains), and every
// indirect object — stream payloads included. Encrypted documents
// are rejected: rewriting their streams without the file key would
// corrupt them.
func Parse(data []byte) (doc *Document, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(fmt.Sprintf("parse: recovered: %v", r))
			doc, err = nil, fmt.Errorf("%w: %v", ErrInvalidPDF, r)
		}
	}()

	version, err := checkHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if err := validateEOFMarker(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	startxref, err := findStartXref(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	logger.Debug(fmt.Sprintf("parse: header=PDF-%s startxref=%d", version, startxref), true)

	b := newBuffer(data, int(startxref))
	table, trailer, err := readXref(b, data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	if _, encrypted := trailer["Encrypt"]; encrypted {
		return nil, fmt.Errorf("%w: encrypted document", ErrInvalidPDF)
	}

	doc = NewDocument(version)
	for k, v := range trailer {
		switch k {
		case "Prev", "XRefStm", "Size", "Type", "W", "Index", "Length", "Filter", "DecodeParms":
			// regenerated (or meaningless) after rewriting
		default:
			doc.trailer[k] = v
		}
	}

	if err := loadObjects(doc, data, table); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPDF, err)
	}
	logger.Debug(fmt.Sprintf("parse: loaded objects=%d", len(doc.objects)), true)
	return doc, nil
}

// checkHeader validates the "%PDF-x.y" header, tolerating a BOM or
// other junk before the marker, and returns the version string.
// Versions 1.0–1.7 and 2.0 are accepted.
func checkHeader(data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("not a PDF file: empty")
	}
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	p := bytes.Index(head, []byte("%PDF-"))
	if p < 0 {
		return "", errors.New("not a PDF file: missing %PDF- header")
	}
	line := head[p:]
	if i := bytes.IndexAny(line, "\r\n"); i >= 0 {
		line = line[:i]
	}
	line = bytes.TrimRight(line, " \t\x00")
	var major, minor int
	if _, err := fmt.Sscanf(string(line), "%%PDF-%d.%d", &major, &minor); err != nil {
		return "", errors.New("not a PDF file: malformed version")
	}
	if !((major == 1 && minor >= 0 && minor <= 7) || (major == 2 && minor == 0)) {
		return "", fmt.Errorf("unsupported PDF version %d.%d", major, minor)
	}
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// validateEOFMarker checks the last chunk of the file for "%%EOF".
func validateEOFMarker(data []byte) error {
	const endChunk = 128
	tail := data
	if len(tail) > endChunk {
		tail = tail[len(tail)-endChunk:]
	}
	tail = bytes.TrimRight(tail, "\r\n\t \x00")
	if !bytes.HasSuffix(tail, []byte("%%EOF")) {
		return errors.New("not a PDF file: missing %%EOF")
	}
	return nil
}

// findStartXref locates the final startxref pointer near the end of
// the file and returns the cross-reference offset it names.
func findStartXref(data []byte) (int64, error) {
	const endChunk = 512
	off := 0
	tail := data
	if len(tail) > endChunk {
		off = len(tail) - endChunk
		tail = tail[off:]
	}
	i := findLastLine(tail, "startxref")
	if i < 0 {
		return 0, errors.New("malformed PDF: missing final startxref")
	}
	b := newBuffer(data, off+i)
	if tok := b.readToken(); tok != keyword("startxref") {
		return 0, fmt.Errorf("malformed PDF: missing startxref, found %v", tok)
	}
	startxref, ok := b.readToken().(int64)
	if !ok || startxref < 0 || startxref >= int64(len(data)) {
		return 0, errors.New("malformed PDF: startxref offset out of range")
	}
	return startxref, nil
}

// findLastLine searches backwards in buf for the last occurrence of
// the keyword s that is terminated by PDF whitespace including a
// proper EOL. Producers often pad "startxref" with spaces, tabs, or
// NULs before the newline, so any run of PDF whitespace containing a
// CR or LF is accepted.
func findLastLine(buf []byte, s string) int {
	bs := []byte(s)
	var indices []int
	for i := 0; ; {
		j := bytes.Index(buf[i:], bs)
		if j < 0 {
			break
		}
		indices = append(indices, i+j)
		i += j + 1
	}
	for k := len(indices) - 1; k >= 0; k-- {
		i := indices[k]
		j := i + len(bs)
		sawEOL := false
		for j < len(buf) && isWhitespace(buf[j]) {
			if buf[j] == '\n' || buf[j] == '\r' {
				sawEOL = true
			}
			j++
		}
		if sawEOL {
			return i
		}
	}
	return -1
}

func readXref(b *buffer, data []byte) ([]xrefEntry, dict, error) {
	tok := b.readToken()
	if tok == keyword("xref") {
		logger.Debug("xref: classic table", true)
		return readXrefTable(b, data)
	}
	if _, ok := tok.(int64); ok {
		b.unreadToken(tok)
		logger.Debug("xref: stream", true)
		return readXrefStream(b, data)
	}
	return nil, nil, fmt.Errorf("malformed PDF: no xref table or stream: %v", tok)
}

// ensureLen grows s to at least n entries.
func ensureLen(s []xrefEntry, n int) []xrefEntry {
	if n <= len(s) {
		return s
	}
	if cap(s) < n {
		ns := make([]xrefEntry, n)
		copy(ns, s)
		return ns
	}
	return s[:n]
}

// setIfEmpty records val at slot x only if the slot is empty; in a
// Prev chain the newest section wins.
func setIfEmpty(table *[]xrefEntry, x int, val xrefEntry) {
	if x < 0 {
		return
	}
	*table = ensureLen(*table, x+1)
	if (*table)[x].ptr == (objptr{}) {
		(*table)[x] = val
	}
}

func readXrefTable(b *buffer, data []byte) ([]xrefEntry, dict, error) {
	var table []xrefEntry
	var trailer dict

	for {
		if err := readXrefTableData(b, &table); err != nil {
			return nil, nil, err
		}
		trailerDict, ok := b.readObject().(dict)
		if !ok {
			return nil, nil, errors.New("malformed PDF: xref table not followed by trailer")
		}
		if trailer == nil {
			trailer = trailerDict
		}

		// A hybrid file points at an xref stream carrying entries the
		// ASCII table lacks (typically compressed objects).
		if stmOff, ok := trailerDict["XRefStm"].(int64); ok {
			sb := newBuffer(data, int(stmOff))
			stmTable, _, err := readXrefStream(sb, data)
			if err == nil {
				for i, e := range stmTable {
					if e.ptr != (objptr{}) {
						setIfEmpty(&table, i, e)
					}
				}
			} else {
				logger.Debug(fmt.Sprintf("xref: ignoring bad XRefStm at %d: %v", stmOff, err))
			}
		}

		prev, ok := trailerDict["Prev"].(int64)
		if !ok {
			break
		}
		b = newBuffer(data, int(prev))
		if tok := b.readToken(); tok != keyword("xref") {
			return nil, nil, errors.New("malformed PDF: Prev does not point at xref")
		}
	}
	return table, trailer, nil
}

func readXrefTableData(b *buffer, table *[]xrefEntry) error {
	for {
		tok := b.readToken()
		if tok == keyword("trailer") {
			return nil
		}
		start, ok1 := tok.(int64)
		n, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 {
			return errors.New("malformed xref table subsection header")
		}
		for i := int64(0); i < n; i++ {
			off, okOff := b.readToken().(int64)
			gen, okGen := b.readToken().(int64)
			alloc, okAlloc := b.readToken().(keyword)
			if !okOff || !okGen || !okAlloc {
				return fmt.Errorf("malformed xref entry in subsection at %d", start)
			}
			idx := int(start + i)
			switch alloc {
			case "n":
				setIfEmpty(table, idx, xrefEntry{ptr: objptr{uint32(idx), uint16(gen)}, offset: off})
			case "f":
				*table = ensureLen(*table, idx+1)
			default:
				return fmt.Errorf("malformed xref table: alloc token %v", alloc)
			}
		}
	}
}

func readXrefStream(b *buffer, data []byte) ([]xrefEntry, dict, error) {
	var table []xrefEntry
	var trailer dict
	for {
		def, ok := b.readObject().(objdef)
		if !ok {
			return nil, nil, errors.New("malformed PDF: xref stream object not found")
		}
		strm, ok := def.obj.(*streamObj)
		if !ok || strm.hdr["Type"] != name("XRef") {
			return nil, nil, errors.New("malformed PDF: object is not an XRef stream")
		}
		if trailer == nil {
			trailer = strm.hdr
		}
		if err := readXrefStreamData(strm, &table); err != nil {
			return nil, nil, err
		}
		prev, ok := strm.hdr["Prev"].(int64)
		if !ok {
			break
		}
		b = newBuffer(data, int(prev))
	}
	return table, trailer, nil
}

func readXrefStreamData(strm *streamObj, table *[]xrefEntry) error {
	size, ok := strm.hdr["Size"].(int64)
	if !ok {
		return errors.New("xref stream missing Size")
	}
	ww, ok := strm.hdr["W"].(array)
	if !ok || len(ww) < 3 {
		return errors.New("xref stream missing W array")
	}
	var w [3]int
	wtotal := 0
	for i := 0; i < 3; i++ {
		n, ok := ww[i].(int64)
		if !ok || n < 0 || n > 8 {
			return fmt.Errorf("invalid W array %v", objfmt(ww))
		}
		w[i] = int(n)
		wtotal += int(n)
	}
	index, _ := strm.hdr["Index"].(array)
	if index == nil {
		index = array{int64(0), size}
	}
	if len(index)%2 != 0 {
		return fmt.Errorf("invalid Index array %v", objfmt(index))
	}

	payload, err := decodeXrefPayload(strm)
	if err != nil {
		return err
	}

	pos := 0
	for len(index) > 0 {
		start, ok1 := index[0].(int64)
		n, ok2 := index[1].(int64)
		if !ok1 || !ok2 || start < 0 || n < 0 {
			return errors.New("malformed Index pair")
		}
		index = index[2:]
		for i := int64(0); i < n; i++ {
			if pos+wtotal > len(payload) {
				return errors.New("xref stream payload truncated")
			}
			row := payload[pos : pos+wtotal]
			pos += wtotal
			v1 := decodeInt(row[0:w[0]])
			if w[0] == 0 {
				v1 = 1
			}
			v2 := decodeInt(row[w[0] : w[0]+w[1]])
			v3 := decodeInt(row[w[0]+w[1]:])
			x := int(start + i)
			switch v1 {
			case 0:
				*table = ensureLen(*table, x+1)
			case 1:
				setIfEmpty(table, x, xrefEntry{ptr: objptr{uint32(x), uint16(v3)}, offset: int64(v2)})
			case 2:
				setIfEmpty(table, x, xrefEntry{ptr: objptr{uint32(x), 0}, inStream: true, stream: objptr{uint32(v2), 0}})
			default:
				logger.Debug(fmt.Sprintf("xref: ignoring entry type %d", v1))
			}
		}
	}
	return nil
}

// decodeXrefPayload inflates an xref stream's payload and reverses
// its row predictor when one is declared.
func decodeXrefPayload(strm *streamObj) ([]byte, error) {
	data := strm.data
	switch f := strm.hdr["Filter"].(type) {
	case nil:
	case name:
		if f != "FlateDecode" {
			return nil, fmt.Errorf("unsupported xref stream filter /%s", f)
		}
		var err error
		data, err = inflate(data, maxStructureInflateBytes)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported xref stream filter %v", objfmt(f))
	}

	parms, _ := strm.hdr["DecodeParms"].(dict)
	pred, _ := parms["Predictor"].(int64)
	if pred <= 1 {
		return data, nil
	}
	columns, _ := parms["Columns"].(int64)
	if columns <= 0 {
		return nil, errors.New("predictor without Columns")
	}
	return undoPNGPredictor(data, int(columns))
}

// undoPNGPredictor reverses PNG row filtering for the None and Up row
// tags, the combinations producers emit for xref streams. Image
// streams carrying a predictor are never decoded here; the classifier
// skips them.
func undoPNGPredictor(data []byte, columns int) ([]byte, error) {
	rowLen := columns + 1
	if len(data)%rowLen != 0 {
		return nil, errors.New("predictor data not a whole number of rows")
	}
	rows := len(data) / rowLen
	out := make([]byte, 0, rows*columns)
	hist := make([]byte, columns)
	for r := 0; r < rows; r++ {
		row := data[r*rowLen : (r+1)*rowLen]
		switch row[0] {
		case 0:
			copy(hist, row[1:])
		case 2:
			for i := 0; i < columns; i++ {
				hist[i] += row[1+i]
			}
		default:
			return nil, fmt.Errorf("unsupported PNG row filter %d", row[0])
		}
		out = append(out, hist...)
	}
	return out, nil
}

func decodeInt(b []byte) int {
	x := 0
	for _, c := range b {
		x = x<<8 | int(c)
	}
	return x
}

// inflate decompresses a zlib/FlateDecode payload. A positive limit
// caps the decompressed size so a hostile stream cannot exhaust
// memory; exceeding it reports an error.
func inflate(data []byte, limit int64) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	defer zr.Close()
	var out bytes.Buffer
	if limit > 0 {
		n, err := io.Copy(&out, io.LimitReader(zr, limit+1))
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("inflate: %w", err)
		}
		if n > limit {
			return nil, fmt.Errorf("inflate: decompressed size exceeds %d byte limit", limit)
		}
		return out.Bytes(), nil
	}
	if _, err := io.Copy(&out, zr); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out.Bytes(), nil
}

// loadObjects materializes every xref entry into doc: plain entries
// are parsed at their byte offset, compressed entries are pulled out
// of their /ObjStm container.
func loadObjects(doc *Document, data []byte, table []xrefEntry) error {
	b := newBuffer(data, 0)
	b.resolveLength = func(ptr objptr) (int64, bool) {
		if int(ptr.id) >= len(table) {
			return 0, false
		}
		e := table[ptr.id]
		if e.ptr.id != ptr.id || e.inStream || e.offset <= 0 {
			return 0, false
		}
		lb := newBuffer(data, 0)
		def, err := lb.readObjectDefAt(e.offset)
		if err != nil {
			return 0, false
		}
		n, ok := def.obj.(int64)
		return n, ok
	}

	// containers maps an object-stream pointer to the ids packed in it.
	containers := make(map[objptr][]uint32)

	for i, e := range table {
		if e.ptr == (objptr{}) || i == 0 {
			continue
		}
		if e.inStream {
			containers[e.stream] = append(containers[e.stream], e.ptr.id)
			continue
		}
		def, err := b.readObjectDefAt(e.offset)
		if err != nil {
			return fmt.Errorf("object %d: %w", e.ptr.id, err)
		}
		if def.ptr.id != e.ptr.id {
			return fmt.Errorf("object %d: found %d at its offset", e.ptr.id, def.ptr.id)
		}
		doc.add(def.ptr, def.obj)
	}

	for stmPtr, ids := range containers {
		if err := loadObjectStream(doc, stmPtr, ids); err != nil {
			return err
		}
	}

	// Container streams are an artifact of the input file layout; the
	// writer emits plain objects, so drop the emptied containers.
	for stmPtr := range containers {
		delete(doc.objects, stmPtr)
	}
	return nil
}

// loadObjectStream unpacks the wanted ids out of one /ObjStm
// container: the payload holds N (id, offset) integer pairs followed
// by the concatenated direct objects starting at /First.
func loadObjectStream(doc *Document, stmPtr objptr, wanted []uint32) error {
	strm, ok := doc.objects[stmPtr].(*streamObj)
	if !ok {
		return fmt.Errorf("object stream %d missing", stmPtr.id)
	}
	if t, _ := strm.hdr["Type"].(name); t != "ObjStm" {
		return fmt.Errorf("object %d is not an ObjStm", stmPtr.id)
	}
	n, _ := strm.hdr["N"].(int64)
	first, _ := strm.hdr["First"].(int64)
	if n <= 0 || first <= 0 {
		return fmt.Errorf("object stream %d missing N or First", stmPtr.id)
	}

	payload := strm.data
	if f, _ := strm.hdr["Filter"].(name); f == "FlateDecode" {
		var err error
		payload, err = inflate(payload, maxStructureInflateBytes)
		if err != nil {
			return fmt.Errorf("object stream %d: %w", stmPtr.id, err)
		}
	}

	b := newBuffer(payload, 0)
	type slot struct {
		id  uint32
		off int64
	}
	slots := make([]slot, 0, n)
	for i := int64(0); i < n; i++ {
		id, ok1 := b.readToken().(int64)
		off, ok2 := b.readToken().(int64)
		if !ok1 || !ok2 {
			return fmt.Errorf("object stream %d: malformed pair table", stmPtr.id)
		}
		slots = append(slots, slot{uint32(id), off})
	}

	want := make(map[uint32]bool, len(wanted))
	for _, id := range wanted {
		want[id] = true
	}
	for _, s := range slots {
		if !want[s.id] {
			continue
		}
		pos := first + s.off
		if pos < 0 || pos > int64(len(payload)) {
			return fmt.Errorf("object stream %d: offset %d out of range", stmPtr.id, pos)
		}
		b.pos = int(pos)
		b.unread = b.unread[:0]
		doc.add(objptr{id: s.id}, b.readObject())
	}
	return nil
}
