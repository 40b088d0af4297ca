package dsl

import (
	"fmt"

	"github.com/aretw0/statelens/pkg/domain"
	"github.com/aretw0/statelens/pkg/ports"
	"github.com/aretw0/statelens/pkg/schema"
)

// Builder manages the machine construction.
type Builder struct {
	id      string
	root    *NodeBuilder
	context map[string]any
	events  []domain.MachineOption
}

// New creates a new machine builder. The root is a compound node unless Parallel is called on it.
func New(id string) *Builder {
	b := &Builder{
		id:      id,
		context: make(map[string]any),
	}
	b.root = &NodeBuilder{builder: b}
	return b
}

// Root returns the builder of the root node.
func (b *Builder) Root() *NodeBuilder {
	return b.root
}

// State adds (or returns) a top-level state.
func (b *Builder) State(key string) *NodeBuilder {
	return b.root.State(key)
}

// Initial sets the default top-level state.
func (b *Builder) Initial(key string) *Builder {
	b.root.Initial(key)
	return b
}

// Parallel makes the root a parallel node.
func (b *Builder) Parallel() *Builder {
	b.root.Parallel()
	return b
}

// Context adds a value to the initial context.
func (b *Builder) Context(key string, value any) *Builder {
	b.context[key] = value
	return b
}

// Payload declares the fields events of the given type must carry.
func (b *Builder) Payload(event string, s schema.Schema) *Builder {
	b.events = append(b.events, domain.WithEventSchema(event, s))
	return b
}

// Build compiles a fresh machine.
func (b *Builder) Build() (*domain.Machine, error) {
	m, err := domain.NewMachine(b.id, b.root.build(), b.context, b.events...)
	if err != nil {
		return nil, fmt.Errorf("failed to build machine %s: %w", b.id, err)
	}
	return m, nil
}

// MustBuild is Build for static definitions; it panics on error.
func (b *Builder) MustBuild() *domain.Machine {
	m, err := b.Build()
	if err != nil {
		panic(err)
	}
	return m
}

// Loader exposes the builder as a ports.MachineLoader that ignores its payload.
func (b *Builder) Loader() ports.MachineLoader {
	return ports.LoaderFunc(func([]byte) (*domain.Machine, error) {
		return b.Build()
	})
}
