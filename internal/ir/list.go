package ir

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FieldType is the declared type of a scope field.
type FieldType string

const (
	FieldString FieldType = "string"
	FieldInt    FieldType = "int"
	FieldBool   FieldType = "bool"
)

// Ordering modes. The rank package interprets these; ir only carries them.
const (
	ModeSparse = "sparse"
	ModeDense  = "dense"
)

// ScopeField declares one component of a list's scope key.
// Every scope field is nullable.
type ScopeField struct {
	Name string    `json:"name" validate:"required,sqlident,ne=id,ne=rank,ne=payload"`
	Type FieldType `json:"type" validate:"required,oneof=string int bool"`
}

// ListSpec is the compiled definition of one ordered list: the table its
// records live in, the fields that partition it into scopes, and the rank
// bounds and mode used to order each scope.
type ListSpec struct {
	Name  string       `json:"name" validate:"required,sqlident"`
	Table string       `json:"table" validate:"required,sqlident"`
	Scope []ScopeField `json:"scope" validate:"unique=Name,dive"`
	Mode  string       `json:"mode" validate:"required,oneof=sparse dense"`
	Min   int64        `json:"min"`
	Max   int64        `json:"max"`
}

// ScopeFieldNames returns the scope column names in declaration order.
func (s ListSpec) ScopeFieldNames() []string {
	names := make([]string, len(s.Scope))
	for i, f := range s.Scope {
		names[i] = f.Name
	}
	return names
}

// ScopeKeyFromMap builds a key from named components. Missing fields are
// null; unknown field names are an error.
func (s ListSpec) ScopeKeyFromMap(values map[string]IRValue) (ScopeKey, error) {
	known := make(map[string]bool, len(s.Scope))
	key := make(ScopeKey, len(s.Scope))
	for i, f := range s.Scope {
		known[f.Name] = true
		v, ok := values[f.Name]
		if !ok {
			key[i] = IRNull{}
			continue
		}
		coerced, err := f.Coerce(v)
		if err != nil {
			return nil, err
		}
		key[i] = coerced
	}

	var unknown []string
	for name := range values {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, fmt.Errorf("list %q has no scope field(s) %s", s.Name, strings.Join(unknown, ", "))
	}
	return key, nil
}

// ScopeObject renders a key as a field-name keyed object for display.
func (s ListSpec) ScopeObject(key ScopeKey) IRObject {
	obj := make(IRObject, len(s.Scope))
	for i, f := range s.Scope {
		if i < len(key) {
			obj[f.Name] = key[i]
		} else {
			obj[f.Name] = IRNull{}
		}
	}
	return obj
}

// Coerce checks that v fits the field type. IRNull always fits.
func (f ScopeField) Coerce(v IRValue) (IRValue, error) {
	if v == nil {
		return IRNull{}, nil
	}
	if _, ok := v.(IRNull); ok {
		return v, nil
	}
	switch f.Type {
	case FieldString:
		if _, ok := v.(IRString); ok {
			return v, nil
		}
	case FieldInt:
		if _, ok := v.(IRInt); ok {
			return v, nil
		}
	case FieldBool:
		if _, ok := v.(IRBool); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("scope field %q expects %s, got %T", f.Name, f.Type, v)
}

// Parse converts command-line text into a value of the field type.
// The literal "null" yields IRNull for every type.
func (f ScopeField) Parse(text string) (IRValue, error) {
	if text == "null" {
		return IRNull{}, nil
	}
	switch f.Type {
	case FieldString:
		return IRString(text), nil
	case FieldInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("scope field %q: %q is not an int", f.Name, text)
		}
		return IRInt(n), nil
	case FieldBool:
		b, err := strconv.ParseBool(text)
		if err != nil {
			return nil, fmt.Errorf("scope field %q: %q is not a bool", f.Name, text)
		}
		return IRBool(b), nil
	default:
		return nil, fmt.Errorf("scope field %q has unknown type %q", f.Name, f.Type)
	}
}

// FromColumn converts a value scanned from a SQL column back into the field
// type. SQLite stores bools as integers and may hand back []byte for text.
func (f ScopeField) FromColumn(v any) (IRValue, error) {
	if v == nil {
		return IRNull{}, nil
	}
	switch f.Type {
	case FieldString:
		switch s := v.(type) {
		case string:
			return IRString(s), nil
		case []byte:
			return IRString(string(s)), nil
		}
	case FieldInt:
		if n, ok := v.(int64); ok {
			return IRInt(n), nil
		}
	case FieldBool:
		switch b := v.(type) {
		case int64:
			return IRBool(b != 0), nil
		case bool:
			return IRBool(b), nil
		}
	}
	return nil, fmt.Errorf("scope field %q: cannot read %T as %s", f.Name, v, f.Type)
}
