package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/warp/seating-engine/seating"
)

// LogNotifier writes every event to a logger. Used when no realtime
// transport is configured, and alongside the others at debug level.
type LogNotifier struct {
	Logger zerolog.Logger
	Level  zerolog.Level
}

var _ seating.Notifier = LogNotifier{}

func (n LogNotifier) Publish(_ context.Context, projectID seating.ProjectID, event string, payload any) error {
	n.Logger.WithLevel(n.Level).
		Str("project_id", string(projectID)).
		Str("event", event).
		Interface("payload", payload).
		Msg("seating event")
	return nil
}
