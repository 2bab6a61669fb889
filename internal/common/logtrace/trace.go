package logtrace

import (
	"context"

	"github.com/rs/zerolog/log"
)

// WithOp returns a context whose logger tags every event with the store operation.
func WithOp(ctx context.Context, op string) context.Context {
	l := log.Ctx(ctx).With().Str("op", op).Logger()
	return l.WithContext(ctx)
}
