package impl

import (
	"context"

	"identity/internal/observability/middleware"
)

func requestID(ctx context.Context) string {
	return middleware.RequestIDFromContext(ctx)
}
