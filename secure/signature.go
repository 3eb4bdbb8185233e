package secure

import (
	"bytes"
	"encoding/xml"
	"io"

	specerr "github.com/solidforge/mesh3mf/errors"
)

// Signature is a parsed XML-DSig Signature element.
type Signature struct {
	SignedInfo     SignedInfo
	SignatureValue string
	KeyInfo        *KeyInfo
}

// SignedInfo names the algorithms and references covered by the
// signature.
type SignedInfo struct {
	CanonicalizationMethod string
	SignatureMethod        string
	References             []Reference
}

// Reference digests one resolved URI.
type Reference struct {
	URI          string
	DigestMethod string
	DigestValue  string
	Transforms   []string
}

// KeyInfo optionally carries the signing key identity.
type KeyInfo struct {
	KeyName     string
	RSAModulus  string
	RSAExponent string
}

// ParseSignature decodes an XML-DSig document.
func ParseSignature(data []byte) (*Signature, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, specerr.Validationf("document has no Signature element")
		}
		if err != nil {
			return nil, specerr.Validationf("malformed XML: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "Signature" {
			if err := d.Skip(); err != nil {
				return nil, specerr.Validationf("malformed XML: %v", err)
			}
			continue
		}
		return parseSignatureElement(d)
	}
}

func parseSignatureElement(d *xml.Decoder) (*Signature, error) {
	sig := new(Signature)
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of Signature: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "SignedInfo":
				if err := parseSignedInfo(d, &sig.SignedInfo); err != nil {
					return nil, err
				}
			case "SignatureValue":
				value, err := elementText(d)
				if err != nil {
					return nil, err
				}
				sig.SignatureValue = value
			case "KeyInfo":
				info, err := parseKeyInfo(d)
				if err != nil {
					return nil, err
				}
				sig.KeyInfo = info
			default:
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Signature" {
				return sig, nil
			}
		}
	}
}

func parseSignedInfo(d *xml.Decoder, info *SignedInfo) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return specerr.Validationf("unexpected end of SignedInfo: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "CanonicalizationMethod":
				info.CanonicalizationMethod = attrValue(&t, "Algorithm")
				if err := d.Skip(); err != nil {
					return specerr.Validationf("malformed XML: %v", err)
				}
			case "SignatureMethod":
				info.SignatureMethod = attrValue(&t, "Algorithm")
				if err := d.Skip(); err != nil {
					return specerr.Validationf("malformed XML: %v", err)
				}
			case "Reference":
				ref, err := parseReference(d, &t)
				if err != nil {
					return err
				}
				info.References = append(info.References, *ref)
			default:
				if err := d.Skip(); err != nil {
					return specerr.Validationf("malformed XML: %v", err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "SignedInfo" {
				return nil
			}
		}
	}
}

func parseReference(d *xml.Decoder, se *xml.StartElement) (*Reference, error) {
	ref := &Reference{URI: attrValue(se, "URI")}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of Reference: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "DigestMethod":
				ref.DigestMethod = attrValue(&t, "Algorithm")
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			case "DigestValue":
				value, err := elementText(d)
				if err != nil {
					return nil, err
				}
				ref.DigestValue = value
			case "Transforms":
				if err := parseTransforms(d, ref); err != nil {
					return nil, err
				}
			default:
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "Reference" {
				return ref, nil
			}
		}
	}
}

func parseTransforms(d *xml.Decoder, ref *Reference) error {
	for {
		tok, err := d.Token()
		if err != nil {
			return specerr.Validationf("unexpected end of Transforms: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "Transform" {
				ref.Transforms = append(ref.Transforms, attrValue(&t, "Algorithm"))
			}
			if err := d.Skip(); err != nil {
				return specerr.Validationf("malformed XML: %v", err)
			}
		case xml.EndElement:
			if t.Name.Local == "Transforms" {
				return nil
			}
		}
	}
}

func parseKeyInfo(d *xml.Decoder) (*KeyInfo, error) {
	info := new(KeyInfo)
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of KeyInfo: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "KeyName":
				value, err := elementText(d)
				if err != nil {
					return nil, err
				}
				info.KeyName = value
			case "Modulus":
				value, err := elementText(d)
				if err != nil {
					return nil, err
				}
				info.RSAModulus = value
			case "Exponent":
				value, err := elementText(d)
				if err != nil {
					return nil, err
				}
				info.RSAExponent = value
			case "KeyValue", "RSAKeyValue":
				// containers, descend
			default:
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "KeyInfo" {
				return info, nil
			}
		}
	}
}
