// Copyright © 2026, the pdfsqueeze authors.  All Rights Reserved.
// SPDX-License-Identifier: BSD-3-Clause

package squeeze

import (
	"bytes"
	"compress/zlib"
	"testing"

	"github.com/stretchr/testify/require"
)

// flateCompress compresses data the way a PDF FlateDecode stream
// stores it.
func flateCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// noiseBytes returns n deterministic, poorly compressible bytes.
func noiseBytes(n int) []byte {
	out := make([]byte, n)
	state := uint32(0x2545f491)
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		out[i] = byte(state)
	}
	return out
}

// imageStream builds an image XObject stream. extra entries override
// the defaults, and a nil value deletes the key.
func imageStream(w, h int, colorSpace object, filter object, payload []byte, extra dict) *streamObj {
	hdr := dict{
		"Type":             name("XObject"),
		"Subtype":          name("Image"),
		"Width":            int64(w),
		"Height":           int64(h),
		"BitsPerComponent": int64(8),
		"ColorSpace":       colorSpace,
		"Length":           int64(len(payload)),
	}
	if filter != nil {
		hdr["Filter"] = filter
	}
	for k, v := range extra {
		if v == nil {
			delete(hdr, k)
		} else {
			hdr[k] = v
		}
	}
	return &streamObj{hdr: hdr, data: payload}
}

// testDoc builds a one-page document whose page references the given
// images as XObject resources.
func testDoc(imgs map[name]*streamObj) *Document {
	d := NewDocument("1.7")
	xobjs := dict{}
	for n, s := range imgs {
		xobjs[n] = d.addObject(s)
	}
	content := &streamObj{hdr: dict{"Length": int64(0)}, data: []byte("q Q")}
	content.hdr["Length"] = int64(len(content.data))
	contentPtr := d.addObject(content)
	pagePtr := d.addObject(dict{
		"Type":      name("Page"),
		"MediaBox":  array{int64(0), int64(0), int64(612), int64(792)},
		"Resources": dict{"XObject": xobjs},
		"Contents":  contentPtr,
	})
	pagesPtr := d.addObject(dict{
		"Type":  name("Pages"),
		"Kids":  array{pagePtr},
		"Count": int64(1),
	})
	if page, ok := d.objects[pagePtr].(dict); ok {
		page["Parent"] = pagesPtr
	}
	rootPtr := d.addObject(dict{"Type": name("Catalog"), "Pages": pagesPtr})
	d.trailer["Root"] = rootPtr
	return d
}

// serialized builds a document and returns its on-disk bytes.
func serialized(t *testing.T, imgs map[name]*streamObj) []byte {
	t.Helper()
	data, err := testDoc(imgs).Serialize()
	require.NoError(t, err)
	return data
}
