package flattener

import "strings"

// Lookup returns the value stored under the first candidate key present in the mapping v.
// Each candidate is tried as spelled, then upper-cased, then lower-cased before the next
// candidate is considered. Empty candidates are ignored. The second result is false when no
// candidate matched or v is not a mapping; a key holding JSON null is still a match.
func Lookup(v Value, candidates ...string) (Value, bool) {
	m, ok := v.AsMapping()
	if !ok {
		return Value{}, false
	}
	for _, key := range candidates {
		if key == "" {
			continue
		}
		for _, form := range [3]string{key, strings.ToUpper(key), strings.ToLower(key)} {
			if found, ok := m[form]; ok {
				return found, true
			}
		}
	}
	return Value{}, false
}

// lookupList is Lookup restricted to list values.
func lookupList(v Value, candidates ...string) []Value {
	found, ok := Lookup(v, candidates...)
	if !ok {
		return nil
	}
	items, _ := found.AsList()
	return items
}
