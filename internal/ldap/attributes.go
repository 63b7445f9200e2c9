package ldap

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/go-objectsid"
	"github.com/go-ldap/ldap/v3"
)

// Directory attributes stored as binary blobs that need string conversion
// before they can participate in attribute mapping.
const (
	attrObjectSid  = "objectSid"
	attrObjectGUID = "objectGUID"
)

// entryFromLDAP converts a raw search result entry into a normalized Entry.
// objectSid and objectGUID byte values become their canonical string forms;
// everything else passes through as returned by the server.
func entryFromLDAP(raw *ldap.Entry) Entry {
	attrs := make(map[string][]string, len(raw.Attributes))
	for _, attr := range raw.Attributes {
		switch {
		case strings.EqualFold(attr.Name, attrObjectSid):
			attrs[attr.Name] = sidStrings(attr)
		case strings.EqualFold(attr.Name, attrObjectGUID):
			attrs[attr.Name] = guidStrings(attr)
		default:
			attrs[attr.Name] = attr.Values
		}
	}
	return Entry{Kind: KindSearchEntry, DN: raw.DN, Attributes: attrs}
}

// sidStrings decodes binary objectSid values to S-1-5-21-... form. String
// values (already decoded, or test fixtures) pass through untouched.
func sidStrings(attr *ldap.EntryAttribute) []string {
	if len(attr.ByteValues) == 0 {
		return attr.Values
	}
	values := make([]string, 0, len(attr.ByteValues))
	for i, b := range attr.ByteValues {
		if s, err := DecodeSID(b); err == nil {
			values = append(values, s)
		} else if i < len(attr.Values) {
			values = append(values, attr.Values[i])
		}
	}
	return values
}

// DecodeSID converts a binary security identifier to its string form.
func DecodeSID(binarySID []byte) (string, error) {
	if len(binarySID) < 8 {
		return "", fmt.Errorf("binary SID too short: %d bytes", len(binarySID))
	}
	sid := objectsid.Decode(binarySID)
	return sid.String(), nil
}

// guidStrings formats binary objectGUID values into the dashed hex form.
func guidStrings(attr *ldap.EntryAttribute) []string {
	if len(attr.ByteValues) == 0 {
		return attr.Values
	}
	values := make([]string, 0, len(attr.ByteValues))
	for i, b := range attr.ByteValues {
		if s, err := FormatGUID(b); err == nil {
			values = append(values, s)
		} else if i < len(attr.Values) {
			values = append(values, attr.Values[i])
		}
	}
	return values
}

// FormatGUID converts a 16-byte Active Directory GUID into the standard
// string representation. The first three groups are stored little-endian,
// the final two big-endian.
func FormatGUID(guid []byte) (string, error) {
	if len(guid) != 16 {
		return "", fmt.Errorf("GUID must be 16 bytes, got %d", len(guid))
	}
	return fmt.Sprintf("%02x%02x%02x%02x-%02x%02x-%02x%02x-%02x%02x-%02x%02x%02x%02x%02x%02x",
		guid[3], guid[2], guid[1], guid[0],
		guid[5], guid[4],
		guid[7], guid[6],
		guid[8], guid[9],
		guid[10], guid[11], guid[12], guid[13], guid[14], guid[15],
	), nil
}
