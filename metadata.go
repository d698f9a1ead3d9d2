// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"encoding/json"
	"io"
	"strings"
	"unicode/utf16"

	"github.com/rudi-q/pdfsqueeze/logger"
)

// Meta holds the document information dictionary fields. The CLI
// prints it alongside compression stats so users can confirm they
// are squeezing the file they think they are.
type Meta struct {
	Title        string `json:"title,omitempty"`
	Author       string `json:"author,omitempty"`
	Subject      string `json:"subject,omitempty"`
	Keywords     string `json:"keywords,omitempty"`
	Creator      string `json:"creator,omitempty"`
	Producer     string `json:"producer,omitempty"`
	CreationDate string `json:"creationDate,omitempty"`
	ModDate      string `json:"modDate,omitempty"`
}

// Metadata extracts the /Info dictionary. Missing entries come back
// empty; a document without /Info yields the zero Meta.
func (d *Document) Metadata() Meta {
	logger.Debug("reading Info dictionary")
	info, _ := d.resolve(d.trailer["Info"]).(dict)
	text := func(key name) string {
		s, _ := d.resolve(info[key]).(string)
		return decodeText(s)
	}
	return Meta{
		Title:        text("Title"),
		Author:       text("Author"),
		Subject:      text("Subject"),
		Keywords:     text("Keywords"),
		Creator:      text("Creator"),
		Producer:     text("Producer"),
		CreationDate: text("CreationDate"),
		ModDate:      text("ModDate"),
	}
}

// MetadataJSON writes the metadata as pretty JSON to the provided writer.
func (d *Document) MetadataJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d.Metadata())
}

// decodeText interprets a PDF text string: UTF-16BE when it carries
// the BOM, raw bytes otherwise.
func decodeText(s string) string {
	if !strings.HasPrefix(s, "\xfe\xff") {
		return strings.TrimSpace(s)
	}
	b := []byte(s[2:])
	u := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
	}
	return strings.TrimSpace(string(utf16.Decode(u)))
}
