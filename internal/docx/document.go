package docx

import (
	"encoding/xml"
	"strconv"
	"strings"
)

// documentXML is word/document.xml reduced to what Markdown needs. Body
// blocks keep their document order, which plain struct tags would lose.
type documentXML struct {
	XMLName xml.Name `xml:"document"`
	Body    bodyXML  `xml:"body"`
}

type bodyXML struct {
	Blocks []blockXML
}

// blockXML holds exactly one of Paragraph or Table.
type blockXML struct {
	Paragraph *paragraphXML
	Table     *tableXML
}

type paragraphXML struct {
	Style string
	Runs  []runXML
}

type runXML struct {
	Bold    bool
	Size    float64 // points; zero when the run sets none
	Content []runContent
}

// runContent is either text or an image reference. Embed is the
// relationship id and may be empty when the drawing carries none.
type runContent struct {
	Text  string
	Image bool
	Embed string
}

type tableXML struct {
	Rows []rowXML `xml:"tr"`
}

type rowXML struct {
	Cells []cellXML `xml:"tc"`
}

type cellXML struct {
	Paragraphs []paragraphXML `xml:"p"`
}

type pPrXML struct {
	Style valXML `xml:"pStyle"`
}

type rPrXML struct {
	Bold *valXML `xml:"b"`
	Size *valXML `xml:"sz"`
}

type valXML struct {
	Val string `xml:"val,attr"`
}

func (b *bodyXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				var p paragraphXML
				if err := d.DecodeElement(&p, &t); err != nil {
					return err
				}
				b.Blocks = append(b.Blocks, blockXML{Paragraph: &p})
			case "tbl":
				var tbl tableXML
				if err := d.DecodeElement(&tbl, &t); err != nil {
					return err
				}
				b.Blocks = append(b.Blocks, blockXML{Table: &tbl})
			case "sdt", "sdtContent", "customXml":
				// Content controls wrap ordinary blocks.
				if err := b.UnmarshalXML(d, t); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (p *paragraphXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pPr":
				var ppr pPrXML
				if err := d.DecodeElement(&ppr, &t); err != nil {
					return err
				}
				p.Style = ppr.Style.Val
			case "r":
				var r runXML
				if err := d.DecodeElement(&r, &t); err != nil {
					return err
				}
				p.Runs = append(p.Runs, r)
			case "hyperlink", "ins", "smartTag", "fldSimple", "sdt", "sdtContent":
				// Wrappers whose runs belong to this paragraph.
				if err := p.UnmarshalXML(d, t); err != nil {
					return err
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

func (r *runXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "rPr":
				var rpr rPrXML
				if err := d.DecodeElement(&rpr, &t); err != nil {
					return err
				}
				if rpr.Bold != nil {
					r.Bold = onOff(rpr.Bold.Val)
				}
				if rpr.Size != nil {
					if half, err := strconv.ParseFloat(rpr.Size.Val, 64); err == nil && half > 0 {
						r.Size = half / 2
					}
				}
			case "t", "delText":
				var s string
				if err := d.DecodeElement(&s, &t); err != nil {
					return err
				}
				if t.Name.Local == "t" {
					r.Content = append(r.Content, runContent{Text: s})
				}
			case "tab":
				r.Content = append(r.Content, runContent{Text: "\t"})
				if err := d.Skip(); err != nil {
					return err
				}
			case "br", "cr":
				r.Content = append(r.Content, runContent{Text: "\n"})
				if err := d.Skip(); err != nil {
					return err
				}
			case "drawing", "pict", "AlternateContent", "object":
				embed, found, err := findImageRef(d)
				if err != nil {
					return err
				}
				if found {
					r.Content = append(r.Content, runContent{Image: true, Embed: embed})
				}
			default:
				if err := d.Skip(); err != nil {
					return err
				}
			}
		case xml.EndElement:
			return nil
		}
	}
}

// findImageRef consumes the current element and reports the first image
// it contains: an a:blip r:embed or a VML v:imagedata r:id.
func findImageRef(d *xml.Decoder) (string, bool, error) {
	var (
		embed string
		found bool
	)
	for depth := 1; depth > 0; {
		tok, err := d.Token()
		if err != nil {
			return "", false, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if found {
				continue
			}
			switch t.Name.Local {
			case "blip":
				embed, found = attr(t, "embed"), true
			case "imagedata":
				embed, found = attr(t, "id"), true
			}
		case xml.EndElement:
			depth--
		}
	}
	return embed, found, nil
}

func attr(t xml.StartElement, local string) string {
	for _, a := range t.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// onOff reads an ST_OnOff value; an absent value means on.
func onOff(v string) bool {
	switch strings.ToLower(v) {
	case "false", "0", "off", "none":
		return false
	}
	return true
}
