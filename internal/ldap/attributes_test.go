package ldap

import (
	"testing"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatGUID(t *testing.T) {
	guid := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06,
		0x07, 0x08,
		0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}

	got, err := FormatGUID(guid)
	require.NoError(t, err)
	assert.Equal(t, "04030201-0605-0807-090a-0b0c0d0e0f10", got,
		"the first three groups are little-endian, the rest big-endian")

	_, err = FormatGUID([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestDecodeSID(t *testing.T) {
	// S-1-5-21-1-2-3: revision 1, 4 sub-authorities, authority 5,
	// sub-authorities as little-endian uint32s.
	sid := []byte{
		0x01, 0x04,
		0x00, 0x00, 0x00, 0x00, 0x00, 0x05,
		0x15, 0x00, 0x00, 0x00,
		0x01, 0x00, 0x00, 0x00,
		0x02, 0x00, 0x00, 0x00,
		0x03, 0x00, 0x00, 0x00,
	}

	got, err := DecodeSID(sid)
	require.NoError(t, err)
	assert.Equal(t, "S-1-5-21-1-2-3", got)

	_, err = DecodeSID([]byte{0x01, 0x02})
	require.Error(t, err)
}

func TestEntryFromLDAPNormalizesBinaryAttributes(t *testing.T) {
	guid := []byte{
		0x01, 0x02, 0x03, 0x04,
		0x05, 0x06,
		0x07, 0x08,
		0x09, 0x0a,
		0x0b, 0x0c, 0x0d, 0x0e, 0x0f, 0x10,
	}

	raw := &ldap.Entry{
		DN: "cn=bob,dc=example,dc=org",
		Attributes: []*ldap.EntryAttribute{
			{Name: "cn", Values: []string{"bob"}},
			{Name: "objectGUID", Values: []string{string(guid)}, ByteValues: [][]byte{guid}},
			{Name: "mail", Values: []string{"bob@example.org", "bob@alias.example.org"}},
		},
	}

	entry := entryFromLDAP(raw)

	assert.Equal(t, KindSearchEntry, entry.Kind)
	assert.Equal(t, "cn=bob,dc=example,dc=org", entry.DN)
	assert.Equal(t, []string{"bob"}, entry.Attributes["cn"])
	assert.Equal(t, []string{"04030201-0605-0807-090a-0b0c0d0e0f10"}, entry.Attributes["objectGUID"])
	assert.Equal(t, "bob@example.org", entry.GetAttributeValue("mail"))
	assert.Equal(t, "", entry.GetAttributeValue("absent"))
}
