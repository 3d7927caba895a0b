package evalctx

import (
	"fmt"
	"slices"
)

// Record is one input row keyed by field name.
type Record map[string]any

// Context resolves field values for exactly one evaluation call.
// Lookups are memoized. A Context must not be shared between calls or goroutines.
type Context struct {
	dict   *Dictionary
	record Record
	cache  map[string]lookup
}

type lookup struct {
	value Value
	ok    bool
	err   error
}

// NewContext binds a record to a dictionary. A nil dictionary infers types from the record.
func NewContext(dict *Dictionary, record Record) *Context {
	return &Context{
		dict:   dict,
		record: record,
		cache:  make(map[string]lookup),
	}
}

// Dictionary returns the dictionary the context resolves against.
func (c *Context) Dictionary() *Dictionary { return c.dict }

// Lookup resolves a field. ok is false when the field is missing.
func (c *Context) Lookup(name string) (Value, bool, error) {
	if l, hit := c.cache[name]; hit {
		return l.value, l.ok, l.err
	}
	v, ok, err := c.resolve(name)
	c.cache[name] = lookup{value: v, ok: ok, err: err}
	return v, ok, err
}

// IsMissing reports whether the field resolves to missing.
func (c *Context) IsMissing(name string) (bool, error) {
	_, ok, err := c.Lookup(name)
	return !ok, err
}

func (c *Context) resolve(name string) (Value, bool, error) {
	raw, present := c.record[name]
	field, declared := c.dict.Field(name)

	missing := !present || raw == nil
	if !missing && declared && len(field.MissingValues) > 0 {
		missing = slices.Contains(field.MissingValues, formatRaw(raw))
	}

	if missing {
		if !declared || field.Replacement == nil {
			return Value{}, false, nil
		}
		raw = field.Replacement
	}

	var (
		v   Value
		err error
	)
	if declared {
		v, err = NewValue(field.Type, raw)
	} else {
		v, err = inferValue(raw)
	}
	if err != nil {
		return Value{}, false, fmt.Errorf("field %q: %w", name, err)
	}
	return v, true, nil
}
