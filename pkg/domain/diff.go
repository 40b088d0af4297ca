package domain

import (
	"reflect"
)

// ConfigurationDiff represents the changes between two configurations.
// It is designed to be serialized to JSON for partial updates on the client.
type ConfigurationDiff struct {
	// Value is set only when the state value changed.
	Value any `json:"value,omitempty"`

	// Context contains only changed, added or deleted keys.
	// For deletions, the key is present with a nil value.
	Context map[string]any `json:"context,omitempty"`

	// Entered and Exited hold node IDs in document order.
	Entered []string `json:"entered,omitempty"`
	Exited  []string `json:"exited,omitempty"`
}

// Diff calculates the difference between old and new.
// If old is nil, it returns a diff representing the entire new configuration (initial load).
// It returns nil when nothing changed.
func Diff(old, new *Configuration) *ConfigurationDiff {
	if new == nil {
		return nil
	}

	diff := &ConfigurationDiff{}
	if old == nil || !reflect.DeepEqual(old.Value, new.Value) {
		diff.Value = new.Value
	}
	diff.Context = diffContext(old, new)
	diff.Entered, diff.Exited = diffNodes(old, new)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffContext(old, new *Configuration) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Context {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Context {
			if oldVal, exists := old.Context[k]; !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
		for k := range old.Context {
			if _, exists := new.Context[k]; !exists {
				delta[k] = nil
			}
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

func diffNodes(old, new *Configuration) (entered, exited []string) {
	for _, n := range new.ActiveNodes() {
		if !old.IsActive(n) {
			entered = append(entered, n.ID)
		}
	}
	if old == nil {
		return entered, nil
	}
	for _, n := range old.ActiveNodes() {
		if !new.IsActive(n) {
			exited = append(exited, n.ID)
		}
	}
	return entered, exited
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *ConfigurationDiff) IsEmpty() bool {
	return d.Value == nil &&
		len(d.Context) == 0 &&
		len(d.Entered) == 0 &&
		len(d.Exited) == 0
}
