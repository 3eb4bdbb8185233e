// Package secure implements the 3MF Secure Content pipeline: keystore
// and signature parsing, a simplified XML canonicalization, XML-DSig
// verification, RSA-OAEP key wrapping and AES-256-GCM content
// encryption.
package secure

import (
	"bytes"
	"encoding/base64"
	"encoding/xml"
	"io"

	"github.com/google/uuid"
	specerr "github.com/solidforge/mesh3mf/errors"
)

// Consumer identifies a recipient that may hold wrapped keys.
type Consumer struct {
	ID       string
	KeyID    string
	KeyValue string
}

// AccessRight grants one consumer a wrapped content encryption key.
type AccessRight struct {
	ConsumerID string
	Algorithm  string
	WrappedKey []byte
}

// ResourceDataGroup collects the encrypted resources covered by one
// content encryption key.
type ResourceDataGroup struct {
	KeyUUID      string
	AccessRights []AccessRight
}

// KeyStore is the parsed Metadata/keystore.xml part.
type KeyStore struct {
	UUID               string
	Consumers          []Consumer
	ResourceDataGroups []ResourceDataGroup
}

// FindGroup returns the data group keyed by the given CEK UUID.
func (ks *KeyStore) FindGroup(keyUUID string) (*ResourceDataGroup, bool) {
	for i := range ks.ResourceDataGroups {
		if ks.ResourceDataGroups[i].KeyUUID == keyUUID {
			return &ks.ResourceDataGroups[i], true
		}
	}
	return nil, false
}

// ParseKeyStore decodes a keystore document.
func ParseKeyStore(data []byte) (*KeyStore, error) {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if err == io.EOF {
			return nil, specerr.Validationf("document has no keystore element")
		}
		if err != nil {
			return nil, specerr.Validationf("malformed XML: %v", err)
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if se.Name.Local != "keystore" {
			if err := d.Skip(); err != nil {
				return nil, specerr.Validationf("malformed XML: %v", err)
			}
			continue
		}
		return parseKeyStoreElement(d, &se)
	}
}

func parseKeyStoreElement(d *xml.Decoder, se *xml.StartElement) (*KeyStore, error) {
	ks := new(KeyStore)
	ks.UUID = attrValue(se, "UUID")
	if ks.UUID == "" {
		ks.UUID = attrValue(se, "uuid")
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of keystore: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "consumer":
				c := Consumer{
					ID:       attrValue(&t, "consumerid"),
					KeyID:    attrValue(&t, "keyid"),
					KeyValue: attrValue(&t, "keyvalue"),
				}
				if c.ID == "" {
					return nil, specerr.Validationf("consumer element has no consumerid")
				}
				ks.Consumers = append(ks.Consumers, c)
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			case "resourcedatagroup":
				group, err := parseResourceDataGroup(d, &t)
				if err != nil {
					return nil, err
				}
				ks.ResourceDataGroups = append(ks.ResourceDataGroups, *group)
			default:
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
			}
		case xml.EndElement:
			if t.Name.Local == "keystore" {
				return ks, nil
			}
		}
	}
}

func parseResourceDataGroup(d *xml.Decoder, se *xml.StartElement) (*ResourceDataGroup, error) {
	keyUUID := attrValue(se, "keyuuid")
	if _, err := uuid.Parse(keyUUID); err != nil {
		return nil, specerr.Validationf("invalid keyuuid %q", keyUUID)
	}
	group := &ResourceDataGroup{KeyUUID: keyUUID}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of resourcedatagroup: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "accessright" {
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
				continue
			}
			right, err := parseAccessRight(d, &t)
			if err != nil {
				return nil, err
			}
			group.AccessRights = append(group.AccessRights, *right)
		case xml.EndElement:
			if t.Name.Local == "resourcedatagroup" {
				return group, nil
			}
		}
	}
}

func parseAccessRight(d *xml.Decoder, se *xml.StartElement) (*AccessRight, error) {
	right := &AccessRight{
		ConsumerID: attrValue(se, "consumerid"),
		Algorithm:  "RSA-OAEP",
	}
	if right.ConsumerID == "" {
		return nil, specerr.Validationf("accessright element has no consumerid")
	}
	for {
		tok, err := d.Token()
		if err != nil {
			return nil, specerr.Validationf("unexpected end of accessright: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local != "wrappedkey" {
				if err := d.Skip(); err != nil {
					return nil, specerr.Validationf("malformed XML: %v", err)
				}
				continue
			}
			if alg := attrValue(&t, "encryptionalgorithm"); alg != "" {
				right.Algorithm = alg
			}
			text, err := elementText(d)
			if err != nil {
				return nil, err
			}
			right.WrappedKey, err = base64.StdEncoding.DecodeString(text)
			if err != nil {
				return nil, specerr.Validationf("invalid base64 wrapped key: %v", err)
			}
		case xml.EndElement:
			if t.Name.Local == "accessright" {
				return right, nil
			}
		}
	}
}

func attrValue(se *xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// elementText gathers trimmed character data up to the end of the
// current element.
func elementText(d *xml.Decoder) (string, error) {
	var buf bytes.Buffer
	depth := 0
	for {
		tok, err := d.Token()
		if err != nil {
			return "", specerr.Validationf("unexpected end of element text: %v", err)
		}
		switch t := tok.(type) {
		case xml.CharData:
			buf.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 {
				return string(bytes.TrimSpace(buf.Bytes())), nil
			}
			depth--
		}
	}
}
