package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateValueMap(t *testing.T) {
	m := AttributeMap{
		"sAMAccountName": "username",
		"mail":           "email",
	}

	t.Run("maps first value of each attribute", func(t *testing.T) {
		vm, err := GenerateValueMap(m, map[string][]string{
			"sAMAccountName": {"bob"},
			"mail":           {"bob@example.org", "bob@alias.example.org"},
		})
		require.NoError(t, err)
		assert.Equal(t, "bob", vm["username"].String())
		assert.Equal(t, "bob@example.org", vm["email"].String(),
			"multi-valued attributes collapse to the first value")
	})

	t.Run("absent attribute fails the map", func(t *testing.T) {
		_, err := GenerateValueMap(m, map[string][]string{
			"sAMAccountName": {"bob"},
		})
		var missing *MissingFieldError
		require.ErrorAs(t, err, &missing)
		assert.Equal(t, "mail", missing.Attribute)
	})

	t.Run("present but empty maps to the null marker", func(t *testing.T) {
		vm, err := GenerateValueMap(m, map[string][]string{
			"sAMAccountName": {"bob"},
			"mail":           {},
		})
		require.NoError(t, err)
		assert.True(t, vm["email"].IsNull())
		assert.Equal(t, "", vm["email"].String())
		assert.False(t, vm["username"].IsNull())
	})
}

func TestAttributeMapAttributes(t *testing.T) {
	m := AttributeMap{
		"mail":           "email",
		"sAMAccountName": "username",
		"givenName":      "first_name",
	}
	assert.Equal(t, []string{"givenName", "mail", "sAMAccountName"}, m.Attributes(),
		"attribute order must be deterministic")
}

func TestAttributeMapHasLocalField(t *testing.T) {
	m := AttributeMap{"mail": "email"}
	assert.True(t, m.HasLocalField("email"))
	assert.False(t, m.HasLocalField("mail"), "keys are remote attributes, not local fields")
}

func TestValueMarkers(t *testing.T) {
	assert.False(t, StringValue("x").IsNull())
	assert.True(t, StringValue("").valid, "an empty scalar is not the null marker")
	assert.True(t, NullValue().IsNull())
}
