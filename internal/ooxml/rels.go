package ooxml

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"
)

type relationshipsXML struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Relationships []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

// Relationships maps relationship ids of one part to archive paths.
type Relationships map[string]string

// Relationships reads the relationship part belonging to part. A part
// without relationships yields an empty map; a malformed one an error.
func (c *Container) Relationships(part string) (Relationships, error) {
	name := relsPath(part)
	rels := Relationships{}
	if !c.Has(name) {
		return rels, nil
	}

	data, err := c.ReadEntry(name)
	if err != nil {
		return rels, err
	}

	var doc relationshipsXML
	if err := xml.Unmarshal(data, &doc); err != nil {
		return rels, fmt.Errorf("parsing %s: %w", name, err)
	}

	base := path.Dir(part)
	for _, r := range doc.Relationships {
		if strings.EqualFold(r.TargetMode, "External") || r.ID == "" {
			continue
		}
		rels[r.ID] = resolveTarget(base, r.Target)
	}
	return rels, nil
}

// resolveTarget turns a relationship target into an archive path. Targets
// starting with "/" are relative to the package root.
func resolveTarget(base, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Join(base, target)
}
