// Package io3mf decodes and encodes the 3MF model XML and assembles
// full packages around it.
package io3mf

import (
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// next returns the next XML token, mapping decoder failures to
// validation errors. io.EOF passes through untouched.
func next(d *xml.Decoder) (xml.Token, error) {
	tok, err := d.Token()
	if err != nil && err != io.EOF {
		return nil, specerr.Validationf("malformed XML: %v", err)
	}
	return tok, err
}

// findAttr returns the raw value of the attribute with the given
// local name, regardless of namespace prefix.
func findAttr(se *xml.StartElement, local string) (string, bool) {
	for _, a := range se.Attr {
		if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
			continue
		}
		if a.Name.Local == local {
			return a.Value, true
		}
	}
	return "", false
}

func reqAttr(se *xml.StartElement, local string) (string, error) {
	v, ok := findAttr(se, local)
	if !ok {
		return "", specerr.MissingAttr(local)
	}
	return v, nil
}

func reqU32(se *xml.StartElement, local string) (uint32, error) {
	raw, err := reqAttr(se, local)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, specerr.ParseAttr(local, raw)
	}
	return uint32(v), nil
}

func optU32(se *xml.StartElement, local string) (uint32, bool, error) {
	raw, ok := findAttr(se, local)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false, specerr.ParseAttr(local, raw)
	}
	return uint32(v), true, nil
}

func reqF32(se *xml.StartElement, local string) (float32, error) {
	raw, err := reqAttr(se, local)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, specerr.ParseAttr(local, raw)
	}
	return float32(v), nil
}

func optF32(se *xml.StartElement, local string) (float32, bool, error) {
	raw, ok := findAttr(se, local)
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, false, specerr.ParseAttr(local, raw)
	}
	return float32(v), true, nil
}

// optUUID accepts the attribute in unprefixed or prefixed form and
// validates the format.
func optUUID(se *xml.StartElement, local string) (string, error) {
	raw, ok := findAttr(se, local)
	if !ok {
		return "", nil
	}
	if _, err := uuid.Parse(raw); err != nil {
		return "", specerr.ParseAttr(local, raw)
	}
	return raw, nil
}

// optU32List parses a whitespace-separated list of unsigned integers.
func optU32List(se *xml.StartElement, local string) ([]uint32, error) {
	raw, ok := findAttr(se, local)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(raw)
	out := make([]uint32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, specerr.ParseAttr(local, raw)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

// optF32List parses a whitespace-separated list of floats.
func optF32List(se *xml.StartElement, local string) ([]float32, error) {
	raw, ok := findAttr(se, local)
	if !ok {
		return nil, nil
	}
	fields := strings.Fields(raw)
	out := make([]float32, 0, len(fields))
	for _, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return nil, specerr.ParseAttr(local, raw)
		}
		out = append(out, float32(v))
	}
	return out, nil
}

func parseFloat32(s string) (float32, error) {
	v, err := strconv.ParseFloat(s, 32)
	return float32(v), err
}

// readTextContent accumulates character data up to the end of the
// current element, concatenating text of nested ignorable elements.
// Surrounding whitespace is trimmed.
func readTextContent(d *xml.Decoder) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := next(d)
		if err != nil {
			if err == io.EOF {
				return "", specerr.Validationf("unexpected EOF in text content")
			}
			return "", err
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return strings.TrimSpace(sb.String()), nil
			}
			depth--
		}
	}
}

// skip fast-forwards to the end of the current element.
func skip(d *xml.Decoder) error {
	if err := d.Skip(); err != nil && err != io.EOF {
		return specerr.Validationf("malformed XML: %v", err)
	}
	return nil
}
