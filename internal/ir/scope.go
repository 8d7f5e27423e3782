package ir

import (
	"fmt"
	"strings"
)

// ScopeKey identifies the partition a record is ordered in.
//
// It is a fixed-arity tuple (one component per scope field of the list, in
// declaration order). Components are IRString, IRInt, IRBool or IRNull.
// Two keys are equal only if every component is equal; IRNull matches only
// IRNull. A list without scope fields uses the empty key.
type ScopeKey []IRValue

// NewScopeKey builds a key from its components. nil components become IRNull.
func NewScopeKey(values ...IRValue) ScopeKey {
	key := make(ScopeKey, len(values))
	for i, v := range values {
		if v == nil {
			v = IRNull{}
		}
		key[i] = v
	}
	return key
}

// Equal reports component-wise value equality.
func (k ScopeKey) Equal(other ScopeKey) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if !Equal(k[i], other[i]) {
			return false
		}
	}
	return true
}

// String returns the canonical JSON form of the key, e.g. ["todo",null,3].
func (k ScopeKey) String() string {
	b, err := MarshalCanonical(k)
	if err != nil {
		return fmt.Sprintf("<invalid scope: %v>", err)
	}
	return string(b)
}

// Compare orders keys by their canonical form. The order carries no meaning
// beyond being total and stable; it is used to acquire scope locks in a
// consistent sequence.
func (k ScopeKey) Compare(other ScopeKey) int {
	return strings.Compare(k.String(), other.String())
}

// Clone returns a copy that does not share the backing array.
func (k ScopeKey) Clone() ScopeKey {
	if k == nil {
		return nil
	}
	out := make(ScopeKey, len(k))
	copy(out, k)
	return out
}

// Validate checks the key against a list's scope fields: arity and
// per-component type.
func (k ScopeKey) Validate(fields []ScopeField) error {
	if len(k) != len(fields) {
		return fmt.Errorf("scope key has %d components, list declares %d scope fields", len(k), len(fields))
	}
	for i, f := range fields {
		if _, err := f.Coerce(k[i]); err != nil {
			return err
		}
	}
	return nil
}
