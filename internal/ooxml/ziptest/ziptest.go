// Package ziptest builds in-memory OOXML archives for tests.
package ziptest

import (
	"archive/zip"
	"bytes"
	"testing"
)

// Entry is one archive member.
type Entry struct {
	Name string
	Data []byte
}

// File is a shorthand for a text entry.
func File(name, content string) Entry {
	return Entry{Name: name, Data: []byte(content)}
}

// Build writes the entries, in order, into a ZIP archive.
func Build(t testing.TB, entries ...Entry) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range entries {
		w, err := zw.Create(e.Name)
		if err != nil {
			t.Fatalf("creating %s in zip: %v", e.Name, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			t.Fatalf("writing %s: %v", e.Name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
	return buf.Bytes()
}

// PNG is a minimal PNG signature followed by an IHDR chunk header, enough
// for content sniffing.
var PNG = []byte{
	0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 'I', 'H', 'D', 'R',
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde,
}

// GIF is a minimal GIF89a header.
var GIF = []byte("GIF89a\x01\x00\x01\x00\x00\x00\x00;")
