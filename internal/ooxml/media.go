package ooxml

import (
	"path"
	"sort"
	"strings"
)

// ImageExtensions are the media extensions treated as embeddable images
// when no relationship id resolves.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp"}

// MediaTable maps archive paths to raw media bytes. It is filled once by
// Container.Media and only read afterwards.
type MediaTable struct {
	entries map[string][]byte
	keys    []string
}

func (m *MediaTable) seal() {
	m.keys = make([]string, 0, len(m.entries))
	for k := range m.entries {
		m.keys = append(m.keys, k)
	}
	sort.Strings(m.keys)
}

// Len returns the number of media entries.
func (m *MediaTable) Len() int {
	if m == nil {
		return 0
	}
	return len(m.entries)
}

// Keys returns the archive paths in sorted order.
func (m *MediaTable) Keys() []string {
	if m == nil {
		return nil
	}
	return append([]string(nil), m.keys...)
}

// Get returns the payload stored under an archive path.
func (m *MediaTable) Get(name string) ([]byte, bool) {
	if m == nil {
		return nil, false
	}
	data, ok := m.entries[name]
	return data, ok
}

// FirstImage returns the first entry, in sorted path order, whose name
// contains hint (when hint is non-empty) or ends in an image extension.
func (m *MediaTable) FirstImage(hint string) (string, []byte, bool) {
	if m == nil {
		return "", nil, false
	}
	for _, k := range m.keys {
		if (hint != "" && strings.Contains(k, hint)) || IsImageName(k) {
			return k, m.entries[k], true
		}
	}
	return "", nil, false
}

// IsImageName reports whether name ends in one of ImageExtensions.
func IsImageName(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}
