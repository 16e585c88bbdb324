package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"identity/internal/domain"
	"identity/internal/dto"
	"identity/internal/netutil"
	obsmw "identity/internal/observability/middleware"
	"identity/internal/service"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type RouterConfig struct {
	CORSOrigins []string
	// AuthRateLimit is requests per minute per IP on the credential
	// endpoints.
	AuthRateLimit int
}

func NewRouter(auth service.AuthService, tokens service.TokenService, cfg RouterConfig) http.Handler {
	if cfg.AuthRateLimit <= 0 {
		cfg.AuthRateLimit = 30
	}

	r := chi.NewRouter()

	r.Use(obsmw.WithRequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(obsmw.WithMetrics)

	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.CORSOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/auth", func(r chi.Router) {
		r.Use(httprate.LimitByIP(cfg.AuthRateLimit, time.Minute))

		r.Post("/signup", func(w http.ResponseWriter, r *http.Request) {
			var req dto.SignupRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBadRequest(w, "malformed JSON body")
				return
			}
			res, err := auth.Signup(r.Context(), req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusCreated, res)
		})

		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			var req dto.LoginRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBadRequest(w, "malformed JSON body")
				return
			}
			res, err := auth.Login(r.Context(), req)
			if err != nil {
				slog.Info("login rejected",
					"ip", clientIP(r),
					"user_agent", netutil.TruncateUserAgent(r.UserAgent()),
					"request_id", obsmw.RequestIDFromContext(r.Context()),
				)
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Post("/forgot-password", func(w http.ResponseWriter, r *http.Request) {
			var req dto.ForgotPasswordRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBadRequest(w, "malformed JSON body")
				return
			}
			res, err := auth.ForgotPassword(r.Context(), req.Email)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Post("/reset-password", func(w http.ResponseWriter, r *http.Request) {
			var req dto.ResetPasswordRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBadRequest(w, "malformed JSON body")
				return
			}
			res, err := auth.ResetPassword(r.Context(), req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})
	})

	r.Route("/v1/profile", func(r chi.Router) {
		r.Use(requireBearer(tokens))

		r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				writeBadRequest(w, "invalid principal id")
				return
			}
			res, err := auth.GetProfile(r.Context(), id)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})

		r.Put("/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := uuid.Parse(chi.URLParam(r, "id"))
			if err != nil {
				writeBadRequest(w, "invalid principal id")
				return
			}
			// Profile writes are self-service only.
			if callerID(r) != id {
				writeJSON(w, http.StatusForbidden, dto.ErrorResponse{
					Kind:    "Forbidden",
					Message: "cannot modify another principal",
				})
				return
			}
			var req dto.UpdateProfileRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeBadRequest(w, "malformed JSON body")
				return
			}
			res, err := auth.UpdateProfile(r.Context(), id, req)
			if err != nil {
				writeError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, res)
		})
	})

	return r
}

func clientIP(r *http.Request) string {
	if normalized, ok := netutil.NormalizeIP(r.RemoteAddr); ok {
		return normalized
	}
	return r.RemoteAddr
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{Kind: "ValidationError", Message: msg})
}

// writeError maps the domain taxonomy onto the wire. Anything outside
// the taxonomy is returned as a generic internal failure with no
// detail; the service layer already logged it.
func writeError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var duplicateErr *domain.DuplicateIdentityError

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Kind:    "ValidationError",
			Field:   validationErr.Field,
			Message: validationErr.Reason,
		})
	case errors.As(err, &duplicateErr):
		writeJSON(w, http.StatusConflict, dto.ErrorResponse{
			Kind:    "DuplicateIdentity",
			Field:   duplicateErr.Field,
			Message: duplicateErr.Error(),
		})
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
			Kind:    "InvalidCredentials",
			Message: domain.ErrInvalidCredentials.Error(),
		})
	case errors.Is(err, domain.ErrInvalidResetToken):
		writeJSON(w, http.StatusBadRequest, dto.ErrorResponse{
			Kind:    "InvalidResetToken",
			Message: domain.ErrInvalidResetToken.Error(),
		})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, dto.ErrorResponse{
			Kind:    "NotFound",
			Message: "principal not found",
		})
	case errors.Is(err, domain.ErrStoreUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, dto.ErrorResponse{
			Kind:    "StoreUnavailable",
			Message: "temporarily unavailable, retry later",
		})
	default:
		writeJSON(w, http.StatusInternalServerError, dto.ErrorResponse{
			Kind:    "InternalError",
			Message: "internal error",
		})
	}
}

type callerKey struct{}

// requireBearer verifies the Authorization header with the token
// service and stashes the caller's principal id in the context.
func requireBearer(tokens service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("Authorization")
			if !strings.HasPrefix(strings.ToLower(raw), "bearer ") {
				writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
					Kind:    "InvalidCredentials",
					Message: "missing bearer token",
				})
				return
			}
			id, err := tokens.Verify(strings.TrimSpace(raw[len("Bearer "):]))
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{
					Kind:    "InvalidCredentials",
					Message: "invalid token",
				})
				return
			}
			ctx := contextWithCaller(r.Context(), id)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
