package ldap

import (
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// EscapeDNValue escapes special characters in a DN attribute value according
// to RFC 4514: the characters , + " \ < > ; always, a leading #, leading and
// trailing spaces, and NULL bytes as \00.
func EscapeDNValue(value string) string {
	if value == "" {
		return value
	}

	var result strings.Builder
	result.Grow(len(value) + 8)

	for i, r := range value {
		switch r {
		case ',', '+', '"', '\\', '<', '>', ';':
			result.WriteRune('\\')
			result.WriteRune(r)
		case '#':
			if i == 0 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case ' ':
			if i == 0 || i == len(value)-1 {
				result.WriteRune('\\')
			}
			result.WriteRune(r)
		case 0:
			result.WriteString("\\00")
		default:
			result.WriteRune(r)
		}
	}
	return result.String()
}

// NeedsDNEscaping reports whether a value contains characters that require
// DN escaping.
func NeedsDNEscaping(value string) bool {
	if value == "" {
		return false
	}
	if value[0] == ' ' || value[len(value)-1] == ' ' || value[0] == '#' {
		return true
	}
	return strings.ContainsAny(value, ",+\"\\<>;\x00")
}

// EscapeFilterValue escapes a value for safe embedding in a search filter
// per RFC 4515. Used when expanding membership filter templates with a
// member's distinguished name.
func EscapeFilterValue(value string) string {
	return ldap.EscapeFilter(value)
}

// EqualDN reports whether two distinguished names refer to the same entry,
// ignoring case and insignificant whitespace. Falls back to exact comparison
// when either DN fails to parse.
func EqualDN(a, b string) bool {
	if a == b {
		return true
	}
	parsedA, errA := ldap.ParseDN(a)
	parsedB, errB := ldap.ParseDN(b)
	if errA != nil || errB != nil {
		return false
	}
	return parsedA.EqualFold(parsedB)
}
