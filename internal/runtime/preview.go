package runtime

import (
	"context"

	"github.com/aretw0/statelens/pkg/domain"
)

// Preview computes what Send(evt) would produce without committing it.
// No hooks, observers or dispatchers run and the interpreter state is untouched.
// It returns nil when no transition matches.
func (i *Interpreter) Preview(evt domain.Event) (*domain.Configuration, error) {
	if i.status != StatusRunning {
		return nil, &domain.UsageError{Op: "preview", Status: i.status.String()}
	}
	if err := evt.Validate(); err != nil {
		return nil, err
	}
	if err := i.machine.ValidatePayload(evt); err != nil {
		return nil, err
	}

	p, err := i.resolve(evt)
	if err != nil || p == nil {
		return nil, err
	}
	return i.execute(context.Background(), p, i.current, i.current.Context, &evt, false)
}

// AvailableEvents lists the events, in document order of the declaring nodes, that
// have at least one targeted transition on an active node.
func (i *Interpreter) AvailableEvents() []string {
	if i.current == nil {
		return nil
	}
	var out []string
	seen := make(map[string]bool)
	for _, n := range i.current.ActiveNodes() {
		for _, event := range n.Events {
			if seen[event] {
				continue
			}
			for _, t := range n.Transitions(event) {
				if !t.IsTargetless() {
					seen[event] = true
					out = append(out, event)
					break
				}
			}
		}
	}
	return out
}
