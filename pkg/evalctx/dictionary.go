// Package evalctx resolves input field values for a single scorecard evaluation.
//
// A Dictionary describes the fields a model reads. A Context binds one input
// Record to a Dictionary and memoizes every lookup for the lifetime of one
// evaluation call.
package evalctx

import "fmt"

// DataType is the declared type of a dictionary field.
type DataType string

const (
	TypeString  DataType = "string"
	TypeInteger DataType = "integer"
	TypeDouble  DataType = "double"
	TypeBoolean DataType = "boolean"
)

// IsNumeric reports whether values of this type compare numerically.
func (t DataType) IsNumeric() bool {
	return t == TypeInteger || t == TypeDouble
}

// Field declares one input field.
type Field struct {
	Name string
	Type DataType
	// MissingValues are raw input spellings treated as missing (e.g. "NA", "-999").
	MissingValues []string
	// Replacement is substituted when the field is missing. Nil keeps it missing.
	Replacement any
}

// Dictionary is an ordered, immutable set of fields.
type Dictionary struct {
	fields []Field
	index  map[string]int
}

// NewDictionary builds a dictionary. Field names must be unique and non-empty.
func NewDictionary(fields ...Field) (*Dictionary, error) {
	d := &Dictionary{
		fields: make([]Field, 0, len(fields)),
		index:  make(map[string]int, len(fields)),
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, fmt.Errorf("field name is empty")
		}
		if _, dup := d.index[f.Name]; dup {
			return nil, fmt.Errorf("duplicate field %q", f.Name)
		}
		if f.Type == "" {
			f.Type = TypeString
		}
		d.index[f.Name] = len(d.fields)
		d.fields = append(d.fields, f)
	}
	return d, nil
}

// Field returns the declaration for name.
func (d *Dictionary) Field(name string) (Field, bool) {
	if d == nil {
		return Field{}, false
	}
	i, ok := d.index[name]
	if !ok {
		return Field{}, false
	}
	return d.fields[i], true
}

// Names returns field names in declaration order.
func (d *Dictionary) Names() []string {
	if d == nil {
		return nil
	}
	names := make([]string, len(d.fields))
	for i, f := range d.fields {
		names[i] = f.Name
	}
	return names
}

// Len returns the number of declared fields.
func (d *Dictionary) Len() int {
	if d == nil {
		return 0
	}
	return len(d.fields)
}
