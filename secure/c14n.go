package secure

import (
	"bytes"
	"encoding/xml"
	"io"
	"sort"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Canonicalize produces a normalized byte form of a whole document:
// empty elements expanded to start/end pairs, attributes sorted
// lexicographically, text written as the decoder returns it. Entity
// and character references in text and attribute values are expanded
// and not re-escaped, so text is byte-identical to the input only where
// it holds no such references. Comments, processing instructions and
// the XML declaration are not written. This is not a full W3C C14N;
// it is sufficient for well-formed SignedInfo fragments produced by
// conformant writers.
func Canonicalize(data []byte) ([]byte, error) {
	var out bytes.Buffer
	d := newRawDecoder(data)
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return out.Bytes(), nil
		}
		if err != nil {
			return nil, specerr.InvalidStructuref("malformed XML: %v", err)
		}
		writeCanonicalToken(&out, tok)
	}
}

// CanonicalizeSubtree canonicalizes the first subtree rooted at an
// element with the given local name.
func CanonicalizeSubtree(data []byte, tag string) ([]byte, error) {
	var out bytes.Buffer
	d := newRawDecoder(data)
	depth := 0
	capturing := false
	for {
		tok, err := d.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, specerr.InvalidStructuref("malformed XML: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if !capturing && t.Name.Local == tag {
				capturing = true
			}
			if capturing {
				writeCanonicalToken(&out, tok)
				depth++
			}
		case xml.EndElement:
			if capturing {
				writeCanonicalToken(&out, tok)
				depth--
				if depth == 0 {
					return out.Bytes(), nil
				}
			}
		default:
			if capturing {
				writeCanonicalToken(&out, tok)
			}
		}
	}
	return nil, specerr.Validationf("element %s not found for canonicalization", tag)
}

// newRawDecoder returns a strict encoding/xml decoder. It resolves
// namespace prefixes and expands entity references like any other
// decoder; the prefixes are not kept (see qname).
func newRawDecoder(data []byte) *xml.Decoder {
	d := xml.NewDecoder(bytes.NewReader(data))
	d.Strict = true
	return d
}

func writeCanonicalToken(out *bytes.Buffer, tok xml.Token) {
	switch t := tok.(type) {
	case xml.StartElement:
		out.WriteByte('<')
		out.WriteString(qname(t.Name))
		attrs := make([]xml.Attr, 0, len(t.Attr))
		attrs = append(attrs, t.Attr...)
		sort.Slice(attrs, func(i, j int) bool {
			return qname(attrs[i].Name) < qname(attrs[j].Name)
		})
		for _, a := range attrs {
			out.WriteByte(' ')
			out.WriteString(qname(a.Name))
			out.WriteString(`="`)
			out.WriteString(a.Value)
			out.WriteByte('"')
		}
		out.WriteByte('>')
	case xml.EndElement:
		out.WriteString("</")
		out.WriteString(qname(t.Name))
		out.WriteByte('>')
	case xml.CharData:
		out.Write(t)
	}
}

// qname reconstructs the written name. encoding/xml resolves known
// prefixes into namespace URIs; signed fragments conventionally keep
// default namespaces, so the local name is the written name.
func qname(n xml.Name) string {
	return n.Local
}
