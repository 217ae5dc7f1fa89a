package seating

import "context"

// Events published after a seating mutation commits.
const (
	EventAssigned     = "seating:assigned"
	EventUnassigned   = "seating:unassigned"
	EventMoved        = "seating:moved"
	EventAutoAssigned = "seating:auto-assigned"
)

// Notifier tells other collaborators of a project that seating changed.
// Delivery is best effort: the engine logs a failed Publish and carries on.
type Notifier interface {
	Publish(ctx context.Context, projectID ProjectID, event string, payload any) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

func (NopNotifier) Publish(context.Context, ProjectID, string, any) error { return nil }

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, projectID ProjectID, event string, payload any) error

func (f NotifierFunc) Publish(ctx context.Context, projectID ProjectID, event string, payload any) error {
	return f(ctx, projectID, event, payload)
}
