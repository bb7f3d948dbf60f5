package audit

import (
	"context"

	"skillchain/pkg/requestcontext"
)

// Enrich fills request correlation fields from the request context and stamps
// the event with the request-scoped time when none is set.
func Enrich(ctx context.Context, event Event) Event {
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if event.ClientIP == "" {
		event.ClientIP = requestcontext.ClientIP(ctx)
	}
	if event.Platform == "" {
		event.Platform = requestcontext.Platform(ctx)
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	return event
}
