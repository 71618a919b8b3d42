package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/auth"
)

type contextKey string

const claimsKey contextKey = "claims"

func setClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func getClaims(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}

// authMiddleware validates the bearer token and stores its claims in the
// request context.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(w, r, apperr.New(apperr.CategoryAuth, "missing bearer token").
				WithUser("Authentication required.").
				WithLayer(apperr.LayerTransport))
			return
		}

		claims, err := s.jwtManager.ValidateToken(token)
		if err != nil {
			s.writeError(w, r, apperr.Wrap(err, apperr.CategoryAuth, "token validation failed").
				WithUser("Invalid or expired token.").
				WithLayer(apperr.LayerTransport))
			return
		}

		next.ServeHTTP(w, r.WithContext(setClaims(r.Context(), claims)))
	})
}

// requirePermission gates a route on a "resource:action" permission.
func (s *Server) requirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := getClaims(r.Context())
			if !ok {
				s.writeError(w, r, apperr.New(apperr.CategoryAuth, "no claims in context").
					WithUser("Authentication required.").
					WithLayer(apperr.LayerTransport))
				return
			}
			if !claims.HasPermission(permission) {
				s.logger.Warn("permission denied",
					"user_id", claims.UserID,
					"permission", permission,
					"path", r.URL.Path,
				)
				writeJSON(w, http.StatusForbidden, errorResponse{
					Error: "You do not have permission to perform this action.",
					Code:  "PERMISSION_DENIED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"duration_ms", time.Since(start).Milliseconds(),
			"remote_addr", r.RemoteAddr,
			"request_id", chimw.GetReqID(r.Context()),
		)
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (w *responseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
