package requestid

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

const Header = "X-Request-ID"

type contextKey struct{}

// Middleware reuses the caller's X-Request-ID or assigns a new one and echoes it back.
func Middleware() func(huma.Context, func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		id := ctx.Header(Header)
		if id == "" {
			id = uuid.NewString()
		}
		ctx.SetHeader(Header, id)

		next(huma.WithContext(ctx, WithID(ctx.Context(), id)))
	}
}

func WithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
