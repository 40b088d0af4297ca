package domain

import (
	"context"
	"time"
)

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventTransition EventType = "transition"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	MachineID string    `json:"machine_id"`
}

// NodeEvent represents entry or exit from a node.
type NodeEvent struct {
	EventBase
	NodeID   string `json:"node_id"`
	Path     string `json:"path"`
	NodeKind Kind   `json:"node_kind"`
}

// TransitionEvent represents a committed configuration change.
type TransitionEvent struct {
	EventBase
	Event   string `json:"event"`
	From    any    `json:"from"`
	To      any    `json:"to"`
	Actions int    `json:"actions"`
}

// LifecycleHooks defines callbacks for interpreter observability.
// Hooks fire only for committed steps; previews never trigger them.
type LifecycleHooks struct {
	OnNodeEnter  func(context.Context, *NodeEvent)
	OnNodeLeave  func(context.Context, *NodeEvent)
	OnTransition func(context.Context, *TransitionEvent)
}
