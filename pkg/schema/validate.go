package schema

import "sort"

// Schema maps payload keys to their expected fields.
type Schema map[string]Field

// Validate checks data against s and reports every failure, in key order.
// An empty schema accepts anything.
func (s Schema) Validate(data map[string]any) error {
	var errs []error
	for _, key := range sortedKeys(s) {
		f := s[key]
		value, ok := data[key]
		if !ok {
			if !f.Optional {
				errs = append(errs, &FieldError{Key: key, Reason: "required"})
			}
			continue
		}
		if err := f.Type.Validate(value); err != nil {
			errs = append(errs, &FieldError{Key: key, Reason: err.Error(), Value: value})
		}
	}
	if len(errs) > 0 {
		return &AggregateError{Errors: errs}
	}
	return nil
}

// Names returns the authored form of s, suitable for serialization.
func (s Schema) Names() map[string]string {
	out := make(map[string]string, len(s))
	for k, f := range s {
		out[k] = f.Name()
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
