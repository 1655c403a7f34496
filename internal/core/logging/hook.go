package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts request_id and operation from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if id := GetRequestID(ctx); id != "" {
		e.Str("request_id", id)
	}

	if op := GetOperation(ctx); op != "" {
		e.Str("operation", op)
	}
}
