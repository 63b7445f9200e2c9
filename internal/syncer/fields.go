package syncer

import (
	"fmt"
	"reflect"
	"sync"
)

// FieldTag is the struct tag that names a record field for synchronization,
// e.g. `sync:"username"`. Fields without the tag are invisible to the
// synchronizer.
const FieldTag = "sync"

type recordSchema struct {
	typeName string
	fields   map[string]int // tag name -> struct field index
	idIndex  int            // index of the ID field, -1 if absent
}

var schemaCache sync.Map // reflect.Type -> *recordSchema

func schemaOf(t reflect.Type) *recordSchema {
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*recordSchema)
	}

	schema := &recordSchema{
		typeName: t.Name(),
		fields:   make(map[string]int),
		idIndex:  -1,
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		if field.Name == "ID" {
			schema.idIndex = i
		}
		tag, ok := field.Tag.Lookup(FieldTag)
		if !ok || tag == "" || tag == "-" {
			continue
		}
		schema.fields[tag] = i
	}

	schemaCache.Store(t, schema)
	return schema
}

func schemaFor[T any]() *recordSchema {
	return schemaOf(reflect.TypeFor[T]())
}

// HasField reports whether the record type carries a field with the given
// sync tag. Used to decide whether SUSPEND can act on an entity type.
func HasField[T any](name string) bool {
	_, ok := schemaFor[T]().fields[name]
	return ok
}

// FieldString returns the tagged field's value as a string.
func FieldString[T any](rec *T, name string) (string, error) {
	schema := schemaFor[T]()
	idx, ok := schema.fields[name]
	if !ok {
		return "", &ValueMapError{RecordType: schema.typeName, Field: name, Reason: "no such field"}
	}
	field := reflect.ValueOf(rec).Elem().Field(idx)
	if field.Kind() != reflect.String {
		return "", &ValueMapError{RecordType: schema.typeName, Field: name, Reason: "field is not a string"}
	}
	return field.String(), nil
}

// RecordID returns the store-assigned primary identity of a record, or 0
// when the record has not been persisted.
func RecordID[T any](rec *T) int64 {
	schema := schemaFor[T]()
	if schema.idIndex < 0 {
		return 0
	}
	field := reflect.ValueOf(rec).Elem().Field(schema.idIndex)
	switch field.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return field.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int64(field.Uint())
	default:
		return 0
	}
}

// ApplyValueMap writes every mapped value onto the record. A mapped field
// the record type does not expose is a ValueMapError; field existence is
// deliberately not pre-validated against the schema, so this is where the
// mismatch surfaces.
func ApplyValueMap[T any](rec *T, vm ValueMap) error {
	schema := schemaFor[T]()
	value := reflect.ValueOf(rec).Elem()
	for name, v := range vm {
		idx, ok := schema.fields[name]
		if !ok {
			return &ValueMapError{RecordType: schema.typeName, Field: name, Reason: "no such field"}
		}
		field := value.Field(idx)
		if field.Kind() != reflect.String {
			return &ValueMapError{RecordType: schema.typeName, Field: name, Reason: fmt.Sprintf("cannot assign mapped value to %s field", field.Kind())}
		}
		field.SetString(v.String())
	}
	return nil
}

// RecordChanged reports whether applying the value map would modify the
// record.
func RecordChanged[T any](rec *T, vm ValueMap) (bool, error) {
	schema := schemaFor[T]()
	value := reflect.ValueOf(rec).Elem()
	for name, v := range vm {
		idx, ok := schema.fields[name]
		if !ok {
			return false, &ValueMapError{RecordType: schema.typeName, Field: name, Reason: "no such field"}
		}
		field := value.Field(idx)
		if field.Kind() != reflect.String {
			return false, &ValueMapError{RecordType: schema.typeName, Field: name, Reason: fmt.Sprintf("cannot compare mapped value with %s field", field.Kind())}
		}
		if field.String() != v.String() {
			return true, nil
		}
	}
	return false, nil
}

// NewRecord builds an unpersisted record from a value map.
func NewRecord[T any](vm ValueMap) (*T, error) {
	rec := new(T)
	if err := ApplyValueMap(rec, vm); err != nil {
		return nil, err
	}
	return rec, nil
}
