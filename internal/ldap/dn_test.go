package ldap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeDNValue(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Alice Example", "Alice Example"},
		{"empty", "", ""},
		{"comma", "Example, Inc.", "Example\\, Inc."},
		{"plus and semicolon", "a+b;c", "a\\+b\\;c"},
		{"quotes and angles", `say "<hi>"`, `say \"\<hi\>\"`},
		{"backslash", `a\b`, `a\\b`},
		{"leading hash", "#tag", "\\#tag"},
		{"interior hash", "a#b", "a#b"},
		{"leading space", " padded", "\\ padded"},
		{"trailing space", "padded ", "padded\\ "},
		{"null byte", "a\x00b", "a\\00b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EscapeDNValue(tt.in))
		})
	}
}

func TestNeedsDNEscaping(t *testing.T) {
	assert.False(t, NeedsDNEscaping("Alice Example"))
	assert.False(t, NeedsDNEscaping(""))
	assert.True(t, NeedsDNEscaping("Example, Inc."))
	assert.True(t, NeedsDNEscaping(" padded"))
	assert.True(t, NeedsDNEscaping("padded "))
	assert.True(t, NeedsDNEscaping("#tag"))
	assert.False(t, NeedsDNEscaping("a#b"))
}

func TestEscapeFilterValue(t *testing.T) {
	assert.Equal(t, `cn=bob \28contractor\29`, EscapeFilterValue("cn=bob (contractor)"))
	assert.Equal(t, `a\2ab`, EscapeFilterValue("a*b"))
	assert.Equal(t, `a\5cb`, EscapeFilterValue(`a\b`))
}

func TestEqualDN(t *testing.T) {
	assert.True(t, EqualDN("cn=bob,dc=example,dc=org", "cn=bob,dc=example,dc=org"))
	assert.True(t, EqualDN("CN=Bob,DC=Example,DC=Org", "cn=bob,dc=example,dc=org"))
	assert.True(t, EqualDN("cn=bob, dc=example, dc=org", "cn=bob,dc=example,dc=org"))
	assert.False(t, EqualDN("cn=bob,dc=example,dc=org", "cn=alice,dc=example,dc=org"))
	assert.False(t, EqualDN("not a dn", "cn=bob,dc=example,dc=org"))
}
