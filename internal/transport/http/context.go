package http

import (
	"context"
	"net/http"

	"identity/internal/domain"

	"github.com/google/uuid"
)

func contextWithCaller(ctx context.Context, id domain.PrincipalID) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

func callerID(r *http.Request) domain.PrincipalID {
	if id, ok := r.Context().Value(callerKey{}).(domain.PrincipalID); ok {
		return id
	}
	return uuid.Nil
}
