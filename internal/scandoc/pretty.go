package scandoc

import (
	"bytes"
	"encoding/xml"
	"io"

	"github.com/anstrom/scanparser/internal/errors"
)

const prettyIndent = "  "

// Prettify re-indents a well-formed XML document from r onto w. Text
// content is kept; whitespace between elements is replaced by the
// indentation. It does not interpret the document, but it rejects input
// without exactly one root element or with mismatched tags.
func Prettify(r io.Reader, w io.Writer) error {
	dec := xml.NewDecoder(r)
	dec.Strict = true
	enc := xml.NewEncoder(w)
	enc.Indent("", prettyIndent)

	var open []xml.Name
	rootSeen := false
	for {
		tok, err := dec.RawToken()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.WrapDocumentError("cannot prettify malformed XML", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(open) == 0 && rootSeen {
				return errors.NewDocumentError("cannot prettify XML with more than one root element")
			}
			rootSeen = true
			open = append(open, t.Name)
			tok = flattenStart(t)
		case xml.EndElement:
			// RawToken does not pair end tags with their start tags.
			if len(open) == 0 || open[len(open)-1] != t.Name {
				return errors.NewDocumentError("cannot prettify XML with unexpected </" + flattenName(t.Name).Local + ">")
			}
			open = open[:len(open)-1]
			tok = xml.EndElement{Name: flattenName(t.Name)}
		case xml.CharData:
			if len(bytes.TrimSpace(t)) == 0 {
				continue
			}
			if len(open) == 0 {
				return errors.NewDocumentError("cannot prettify XML with text outside the root element")
			}
		case xml.ProcInst, xml.Directive, xml.Comment:
			// Epilog tokens start on a fresh line after the closing root.
			if len(open) == 0 && rootSeen {
				if err := newline(enc, w); err != nil {
					return err
				}
			}
		}

		if err := enc.EncodeToken(tok); err != nil {
			return errors.WrapDocumentError("cannot prettify XML", err)
		}

		// Prolog tokens get their own line.
		switch tok.(type) {
		case xml.ProcInst, xml.Directive, xml.Comment:
			if len(open) == 0 && !rootSeen {
				if err := newline(enc, w); err != nil {
					return err
				}
			}
		}
	}

	if err := enc.Flush(); err != nil {
		return errors.WrapDocumentError("cannot prettify XML", err)
	}
	if !rootSeen {
		return errors.NewDocumentError("cannot prettify XML without a root element")
	}
	if len(open) != 0 {
		return errors.NewDocumentError("cannot prettify truncated XML")
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func newline(enc *xml.Encoder, w io.Writer) error {
	if err := enc.Flush(); err != nil {
		return errors.WrapDocumentError("cannot prettify XML", err)
	}
	_, err := io.WriteString(w, "\n")
	return err
}

// RawToken keeps namespace prefixes unresolved; folding them into the
// local name makes the encoder write them back verbatim.
func flattenName(n xml.Name) xml.Name {
	if n.Space == "" {
		return n
	}
	return xml.Name{Local: n.Space + ":" + n.Local}
}

func flattenStart(t xml.StartElement) xml.StartElement {
	out := xml.StartElement{Name: flattenName(t.Name), Attr: make([]xml.Attr, len(t.Attr))}
	for i, attr := range t.Attr {
		out.Attr[i] = xml.Attr{Name: flattenName(attr.Name), Value: attr.Value}
	}
	return out
}
