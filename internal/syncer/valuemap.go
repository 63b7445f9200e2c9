package syncer

import "sort"

// Value is a mapped attribute value. The zero value is the explicit
// "present but empty" marker: an attribute that came back as an empty
// multi-valued container, which is meaningfully different from an attribute
// that was absent (absent raises MissingFieldError instead).
type Value struct {
	str   string
	valid bool
}

// StringValue returns a scalar value.
func StringValue(s string) Value {
	return Value{str: s, valid: true}
}

// NullValue returns the explicit "no value" marker.
func NullValue() Value {
	return Value{}
}

// String returns the scalar, or "" for the null marker.
func (v Value) String() string {
	return v.str
}

// IsNull reports whether this is the "present but empty" marker.
func (v Value) IsNull() bool {
	return !v.valid
}

// ValueMap maps local record field names to mapped scalar values.
type ValueMap map[string]Value

// AttributeMap is the configured correspondence between remote attribute
// names (keys) and local record field names (values).
type AttributeMap map[string]string

// Attributes returns the remote attribute names, sorted for deterministic
// search requests.
func (m AttributeMap) Attributes() []string {
	attrs := make([]string, 0, len(m))
	for attr := range m {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)
	return attrs
}

// HasLocalField reports whether any attribute maps onto the named local
// field.
func (m AttributeMap) HasLocalField(field string) bool {
	for _, f := range m {
		if f == field {
			return true
		}
	}
	return false
}

// GenerateValueMap converts one entry's raw attributes into a ValueMap using
// the attribute correspondence. Pure: no side effects, no logging.
//
// For every (remoteAttr, localField) pair: an absent remote attribute fails
// the whole map with MissingFieldError; a present but empty multi-valued
// attribute maps to the null marker; otherwise the first value wins (some
// directories return nominally single-valued attributes as lists).
func GenerateValueMap(m AttributeMap, attributes map[string][]string) (ValueMap, error) {
	vm := make(ValueMap, len(m))
	for attr, field := range m {
		values, ok := attributes[attr]
		if !ok {
			return nil, &MissingFieldError{Attribute: attr}
		}
		if len(values) == 0 {
			vm[field] = NullValue()
			continue
		}
		vm[field] = StringValue(values[0])
	}
	return vm, nil
}
