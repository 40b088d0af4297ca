// Package selection tracks the single node selected in the rendered machine.
package selection

import (
	"github.com/aretw0/statelens/pkg/domain"
)

// ChangeFunc is called after the selection changed. prev or next may be nil.
type ChangeFunc func(prev, next *domain.Node)

// Controller owns at most one selected node.
// It is not safe for concurrent use; the session serializes access.
type Controller struct {
	nodes    []*domain.Node
	selected *domain.Node
	onChange ChangeFunc
}

// Option configures a Controller.
type Option func(*Controller)

// WithOnChange registers the change callback.
func WithOnChange(fn ChangeFunc) Option {
	return func(c *Controller) {
		c.onChange = fn
	}
}

// New creates a controller over the selectable nodes.
func New(nodes []*domain.Node, opts ...Option) *Controller {
	c := &Controller{nodes: nodes}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Selected returns the selected node, or nil.
func (c *Controller) Selected() *domain.Node {
	return c.selected
}

// SelectByPath selects the node whose path equals path segment by segment.
// It returns false, leaving the selection unchanged, when path is empty or nothing matches.
func (c *Controller) SelectByPath(path domain.Path) bool {
	if len(path) == 0 {
		return false
	}
	for _, n := range c.nodes {
		if n.Path.Equal(path) {
			c.Select(n)
			return true
		}
	}
	return false
}

// Select makes n the sole selection. Selecting the current node again does nothing.
// A nil node clears the selection.
func (c *Controller) Select(n *domain.Node) {
	if n == c.selected {
		return
	}
	prev := c.selected
	c.selected = n
	if c.onChange != nil {
		c.onChange(prev, n)
	}
}

// Clear removes the selection.
func (c *Controller) Clear() {
	c.Select(nil)
}
