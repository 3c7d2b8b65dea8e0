package pptx

import (
	"bytes"
	"encoding/xml"
	"errors"
	"io"
	"strings"

	"github.com/zh1zunbao/makritup/internal/heading"
	"github.com/zh1zunbao/makritup/internal/table"
)

// state is the position of the slide scanner. Tables never nest in slide
// markup and cells hold their own text bodies, so a flat set of states is
// enough.
type state int

const (
	stateShape    state = iota // outside text bodies and tables
	stateTextBody              // inside p:txBody
	stateRunText               // inside a:t of a text body
	stateTable                 // inside a:tbl
	stateCell                  // inside a:tc
	stateCellText              // inside a:t of a table cell
)

// blockKind tags a unit of slide output.
type blockKind int

const (
	blockText blockKind = iota
	blockTable
	blockImage
)

// block is one piece of slide content in document order. Embed is set for
// image blocks.
type block struct {
	kind  blockKind
	text  string
	embed string
}

// scanner holds the state of one slide scan.
type scanner struct {
	state  state
	blocks []block

	body      []string        // rendered lines of the current text body
	paragraph strings.Builder // text of the current paragraph or cell

	rows [][]string // current table
	cell []string   // paragraphs of the current cell
}

// scanSlide runs the state machine over one slide's XML and returns its
// content blocks. Syntax errors, including EOF inside an element, are
// returned as is.
func scanSlide(data []byte) ([]block, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	s := &scanner{}

	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return s.blocks, nil
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			s.start(t)
		case xml.EndElement:
			s.end(t.Name.Local)
		case xml.CharData:
			if s.state == stateRunText || s.state == stateCellText {
				s.paragraph.Write(t)
			}
		}
	}
}

func (s *scanner) start(t xml.StartElement) {
	name := t.Name.Local
	switch s.state {
	case stateShape:
		switch name {
		case "txBody":
			s.state = stateTextBody
			s.body = s.body[:0]
			s.paragraph.Reset()
		case "tbl":
			s.state = stateTable
			s.rows = nil
		case "blip":
			if embed := attr(t, "embed"); embed != "" {
				s.blocks = append(s.blocks, block{kind: blockImage, embed: embed})
			}
		}
	case stateTextBody:
		switch name {
		case "t":
			s.state = stateRunText
		case "br":
			s.paragraph.WriteByte(' ')
		}
	case stateTable:
		switch name {
		case "tr":
			s.rows = append(s.rows, nil)
		case "tc":
			s.state = stateCell
			s.cell = s.cell[:0]
			s.paragraph.Reset()
		}
	case stateCell:
		if name == "t" {
			s.state = stateCellText
		}
	}
}

func (s *scanner) end(name string) {
	switch s.state {
	case stateRunText:
		if name == "t" {
			s.state = stateTextBody
		}
	case stateTextBody:
		switch name {
		case "p":
			s.flushParagraph()
		case "txBody":
			s.flushParagraph()
			if len(s.body) > 0 {
				s.blocks = append(s.blocks, block{kind: blockText, text: strings.Join(s.body, "\n")})
			}
			s.state = stateShape
		}
	case stateCellText:
		if name == "t" {
			s.state = stateCell
		}
	case stateCell:
		switch name {
		case "p":
			s.flushCellParagraph()
		case "tc":
			s.flushCellParagraph()
			if len(s.rows) == 0 {
				s.rows = append(s.rows, nil)
			}
			last := len(s.rows) - 1
			s.rows[last] = append(s.rows[last], strings.Join(s.cell, " "))
			s.state = stateTable
		}
	case stateTable:
		if name == "tbl" {
			if md := table.Render(s.rows); md != "" {
				s.blocks = append(s.blocks, block{kind: blockTable, text: strings.TrimRight(md, "\n")})
			}
			s.rows = nil
			s.state = stateShape
		}
	}
}

// flushParagraph renders the finished text-body paragraph as a heading
// line when it looks like a title and as a bullet otherwise.
func (s *scanner) flushParagraph() {
	text := strings.TrimSpace(s.paragraph.String())
	s.paragraph.Reset()
	if text == "" {
		return
	}
	if heading.LooksLikeTitle(text) {
		s.body = append(s.body, "### "+text)
	} else {
		s.body = append(s.body, "- "+text)
	}
}

func (s *scanner) flushCellParagraph() {
	text := strings.TrimSpace(s.paragraph.String())
	s.paragraph.Reset()
	if text != "" {
		s.cell = append(s.cell, text)
	}
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
