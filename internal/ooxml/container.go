// Package ooxml reads the ZIP container shared by word-processing and
// presentation documents: media payloads, relationship parts and the
// primary XML entries.
package ooxml

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"

	"github.com/zh1zunbao/makritup/internal/errs"
)

// Media directory prefixes per document family.
const (
	WordMedia  = "word/media/"
	SlideMedia = "ppt/media/"

	WordDocument = "word/document.xml"
	slidePrefix  = "ppt/slides/slide"
)

// Container is an opened OOXML archive held in memory.
type Container struct {
	zr    *zip.Reader
	files map[string]*zip.File
}

// Open reads the archive directory from data. Bytes that are not a ZIP
// archive yield an *errs.ContainerError.
func Open(data []byte) (*Container, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &errs.ContainerError{Op: "open", Err: err}
	}

	c := &Container{
		zr:    zr,
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		c.files[f.Name] = f
	}
	return c, nil
}

// Names returns the entry names in archive order.
func (c *Container) Names() []string {
	names := make([]string, 0, len(c.zr.File))
	for _, f := range c.zr.File {
		names = append(names, f.Name)
	}
	return names
}

// Has reports whether the archive holds an entry with the given name.
func (c *Container) Has(name string) bool {
	_, ok := c.files[name]
	return ok
}

// ReadEntry returns the decompressed content of one entry.
func (c *Container) ReadEntry(name string) ([]byte, error) {
	f, ok := c.files[name]
	if !ok {
		return nil, &errs.ContainerError{Op: "missing", Entry: name, Err: fmt.Errorf("entry not found")}
	}
	rc, err := f.Open()
	if err != nil {
		return nil, &errs.ContainerError{Op: "read", Entry: name, Err: err}
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, &errs.ContainerError{Op: "read", Entry: name, Err: err}
	}
	return data, nil
}

// Media collects every non-directory entry under prefix into a MediaTable.
func (c *Container) Media(prefix string) (*MediaTable, error) {
	m := &MediaTable{entries: make(map[string][]byte)}
	for _, f := range c.zr.File {
		if !strings.HasPrefix(f.Name, prefix) || strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := c.ReadEntry(f.Name)
		if err != nil {
			return nil, err
		}
		m.entries[f.Name] = data
	}
	m.seal()
	return m, nil
}

// Slides returns the slide entries (ppt/slides/slideN.xml) ordered by N.
// Entries whose suffix is not a number sort after numbered ones by name.
func (c *Container) Slides() []string {
	var slides []string
	for _, f := range c.zr.File {
		name := f.Name
		if !strings.HasPrefix(name, slidePrefix) || !strings.HasSuffix(name, ".xml") {
			continue
		}
		slides = append(slides, name)
	}

	sort.SliceStable(slides, func(i, j int) bool {
		ni, oki := slideNumber(slides[i])
		nj, okj := slideNumber(slides[j])
		switch {
		case oki && okj:
			return ni < nj
		case oki != okj:
			return oki
		default:
			return slides[i] < slides[j]
		}
	})
	return slides
}

// slideNumber extracts N from "ppt/slides/slideN.xml".
func slideNumber(name string) (int, bool) {
	s := strings.TrimSuffix(strings.TrimPrefix(name, slidePrefix), ".xml")
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// relsPath returns the relationship part that belongs to part, e.g.
// "word/document.xml" -> "word/_rels/document.xml.rels".
func relsPath(part string) string {
	return path.Join(path.Dir(part), "_rels", path.Base(part)+".rels")
}
