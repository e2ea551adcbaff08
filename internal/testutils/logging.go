// Package testutils holds helpers for asserting on structured log fields.
// It has no dependencies so the logging package's own tests can import it.
package testutils

// TestingT is the subset of testing.TB the helpers report through
type TestingT interface {
	Errorf(format string, args ...any)
}

// FieldsToMap turns alternating key/value log fields into a map. A trailing
// key without a value or a non-string key is reported and skipped.
func FieldsToMap(t TestingT, fields []any) map[string]any {
	out := make(map[string]any, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		if i+1 == len(fields) {
			t.Errorf("log field %v at index %d has no value", fields[i], i)
			break
		}
		key, ok := fields[i].(string)
		if !ok {
			t.Errorf("log field key at index %d is %T, want string", i, fields[i])
			continue
		}
		out[key] = fields[i+1]
	}
	return out
}

// FieldValue returns the value logged under key and whether it was present
func FieldValue(fields []any, key string) (any, bool) {
	for i := 0; i+1 < len(fields); i += 2 {
		if k, ok := fields[i].(string); ok && k == key {
			return fields[i+1], true
		}
	}
	return nil, false
}
