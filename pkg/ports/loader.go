package ports

import (
	"context"

	"github.com/aretw0/statelens/pkg/domain"
)

// MachineLoader builds a machine model from a definition payload.
// Implementations must be synchronous and free of side effects; a malformed
// definition is reported as an error (usually a *domain.DefinitionError).
type MachineLoader interface {
	Load(definition []byte) (*domain.Machine, error)
}

// LoaderFunc adapts a plain function to MachineLoader.
type LoaderFunc func(definition []byte) (*domain.Machine, error)

// Load calls f(definition).
func (f LoaderFunc) Load(definition []byte) (*domain.Machine, error) {
	return f(definition)
}

// DefinitionSource provides the raw definition payload.
type DefinitionSource interface {
	// Read returns the current definition bytes.
	Read(ctx context.Context) ([]byte, error)

	// Name identifies the source in logs and messages, e.g. a file path.
	Name() string
}

// Watchable is implemented by sources that can report edits, for hot reload.
type Watchable interface {
	// Watch signals once per settled change until ctx is done, then closes the channel.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
