package evalctx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDictionary(t *testing.T) *Dictionary {
	t.Helper()
	d, err := NewDictionary(
		Field{Name: "age", Type: TypeDouble, MissingValues: []string{"-1"}},
		Field{Name: "state", Type: TypeString, MissingValues: []string{"NA"}},
		Field{Name: "dependents", Type: TypeInteger, Replacement: 0},
		Field{Name: "homeowner", Type: TypeBoolean},
	)
	require.NoError(t, err)
	return d
}

func TestNewDictionaryRejectsDuplicates(t *testing.T) {
	_, err := NewDictionary(Field{Name: "a"}, Field{Name: "a"})
	assert.Error(t, err)

	_, err = NewDictionary(Field{Name: ""})
	assert.Error(t, err)
}

func TestDictionaryDefaultsToString(t *testing.T) {
	d, err := NewDictionary(Field{Name: "x"})
	require.NoError(t, err)

	f, ok := d.Field("x")
	require.True(t, ok)
	assert.Equal(t, TypeString, f.Type)
	assert.Equal(t, []string{"x"}, d.Names())
}

func TestContextLookup(t *testing.T) {
	d := testDictionary(t)

	tests := []struct {
		name     string
		record   Record
		field    string
		wantOK   bool
		wantVal  any
		wantType DataType
	}{
		{"double from int", Record{"age": 42}, "age", true, 42.0, TypeDouble},
		{"double from string", Record{"age": "42.5"}, "age", true, 42.5, TypeDouble},
		{"declared missing value", Record{"age": -1}, "age", false, nil, ""},
		{"absent field", Record{}, "age", false, nil, ""},
		{"nil value", Record{"age": nil}, "age", false, nil, ""},
		{"string missing token", Record{"state": "NA"}, "state", false, nil, ""},
		{"string", Record{"state": "CA"}, "state", true, "CA", TypeString},
		{"replacement for missing", Record{}, "dependents", true, int64(0), TypeInteger},
		{"boolean from string", Record{"homeowner": "true"}, "homeowner", true, true, TypeBoolean},
		{"undeclared float", Record{"other": 1.5}, "other", true, 1.5, TypeDouble},
		{"undeclared string", Record{"other": "x"}, "other", true, "x", TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := NewContext(d, tt.record)
			v, ok, err := ctx.Lookup(tt.field)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.wantVal, v.Interface())
				assert.Equal(t, tt.wantType, v.Type())
			}
		})
	}
}

func TestContextLookupConversionError(t *testing.T) {
	ctx := NewContext(testDictionary(t), Record{"age": "old"})
	_, _, err := ctx.Lookup("age")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `field "age"`)
}

func TestContextMemoizesLookups(t *testing.T) {
	record := Record{"age": 30}
	ctx := NewContext(testDictionary(t), record)

	v1, ok, err := ctx.Lookup("age")
	require.NoError(t, err)
	require.True(t, ok)

	// The context is call-scoped: later mutations of the record are not observed.
	record["age"] = 99
	v2, _, _ := ctx.Lookup("age")
	assert.Equal(t, v1, v2)
}

func TestValueCompare(t *testing.T) {
	tests := []struct {
		name    string
		value   Value
		literal string
		want    int
		wantErr bool
	}{
		{"double less", FloatValue(1), "2", -1, false},
		{"double equal", FloatValue(2), "2.0", 0, false},
		{"double greater", FloatValue(3), "2", 1, false},
		{"double vs text", FloatValue(3), "abc", 0, true},
		{"string", Value{typ: TypeString, raw: "b"}, "a", 1, false},
		{"bool", Value{typ: TypeBoolean, raw: false}, "true", -1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.value.Compare(tt.literal)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewValueInteger(t *testing.T) {
	v, err := NewValue(TypeInteger, 3.0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), v.Interface())

	_, err = NewValue(TypeInteger, 3.5)
	assert.Error(t, err)
}
