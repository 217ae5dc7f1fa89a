package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/warp/seating-engine/seating"
)

// =============================================================================
// ACTOR - Identity supplied by the upstream identity collaborator
// =============================================================================

const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"

	anonymousActor = "anonymous"
)

type actorKey struct{}

// withActor resolves the caller from the identity headers. A request without
// a role is treated as a viewer; an unknown role is rejected.
func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := seating.Actor{
			ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
			Role: seating.RoleViewer,
		}
		if actor.ID == "" {
			actor.ID = anonymousActor
		}
		if raw := r.Header.Get(HeaderActorRole); raw != "" {
			role, err := seating.ParseRole(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid actor role", err)
				return
			}
			actor.Role = role
		}
		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) seating.Actor {
	if a, ok := ctx.Value(actorKey{}).(seating.Actor); ok {
		return a
	}
	return seating.Actor{ID: anonymousActor, Role: seating.RoleViewer}
}

// =============================================================================
// REQUEST LOGGING
// =============================================================================

// requestLogger logs one line per request. 5xx responses log at error level.
func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			evt := logger.Info()
			if status >= http.StatusInternalServerError {
				evt = logger.Error()
			}
			evt.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
