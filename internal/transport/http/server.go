// Package http provides the HTTP transport layer.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/partnerdesk/partnerdesk/internal/apperr"
	"github.com/partnerdesk/partnerdesk/internal/auth"
	"github.com/partnerdesk/partnerdesk/internal/config"
	"github.com/partnerdesk/partnerdesk/internal/repository"
	"github.com/partnerdesk/partnerdesk/internal/service"
)

// Server is the HTTP server with all its dependencies.
type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	router     *chi.Mux
	httpServer *http.Server

	partnerService *service.PartnerService
	orderService   *service.PurchaseOrderService
	jwtManager     *auth.JWTManager
}

// NewServer creates a configured HTTP server with all routes registered.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	partnerService *service.PartnerService,
	orderService *service.PurchaseOrderService,
	jwtManager *auth.JWTManager,
) *Server {
	s := &Server{
		cfg:            cfg,
		logger:         logger,
		router:         chi.NewRouter(),
		partnerService: partnerService,
		orderService:   orderService,
		jwtManager:     jwtManager,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(chimw.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Timeout(30 * time.Second))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(s.authMiddleware)

		r.Route("/partners", func(r chi.Router) {
			r.With(s.requirePermission("partners:read")).Get("/", s.handleListPartners)
			r.With(s.requirePermission("partners:read")).Get("/stats", s.handlePartnerStats)
			r.With(s.requirePermission("partners:write")).Post("/", s.handleCreatePartner)
			r.With(s.requirePermission("partners:read")).Get("/{id}", s.handleGetPartner)
			r.With(s.requirePermission("partners:write")).Put("/{id}", s.handleUpdatePartner)
			r.With(s.requirePermission("partners:write")).Post("/{id}/status", s.handleChangePartnerStatus)
			r.With(s.requirePermission("partners:delete")).Delete("/{id}", s.handleDeletePartner)
			r.With(s.requirePermission("orders:read")).Get("/{id}/orders", s.handleListPartnerOrders)
		})

		r.Route("/orders", func(r chi.Router) {
			r.With(s.requirePermission("orders:read")).Get("/", s.handleListOrders)
			r.With(s.requirePermission("orders:write")).Post("/", s.handleCreateOrder)
			r.With(s.requirePermission("orders:read")).Get("/{id}", s.handleGetOrder)
			r.With(s.requirePermission("orders:write")).Put("/{id}", s.handleUpdateOrder)
			r.With(s.requirePermission("orders:write")).Post("/{id}/status", s.handleChangeOrderStatus)
			r.With(s.requirePermission("orders:delete")).Delete("/{id}", s.handleDeleteOrder)
		})
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "port", s.cfg.HTTPPort)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorResponse struct {
	Error   string            `json:"error"`
	Code    string            `json:"code,omitempty"`
	ErrorID string            `json:"errorId,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an application error onto an HTTP status and a safe JSON
// body. Internal messages and causes never leave the server.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := apperr.From(err)
	if e == nil {
		s.logger.Error("unclassified error", "error", err, "path", r.URL.Path)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
		return
	}

	status := statusForError(e)
	if status >= http.StatusInternalServerError || e.Severity == apperr.SeverityHigh || e.Severity == apperr.SeverityFatal {
		s.logger.Error("request failed",
			"error", err,
			"error_id", e.ID,
			"category", e.Category,
			"code", apperr.RootCode(err),
			"severity", e.Severity,
			"path", r.URL.Path,
		)
	} else {
		s.logger.Warn("request rejected",
			"error_id", e.ID,
			"category", e.Category,
			"code", apperr.RootCode(err),
			"path", r.URL.Path,
		)
	}

	msg := e.UserMessage
	if msg == "" {
		msg = defaultUserMessage(status)
	}

	writeJSON(w, status, errorResponse{
		Error:   msg,
		Code:    e.Code,
		ErrorID: e.ID,
		Details: fieldDetails(e),
	})
}

func statusForError(e *apperr.Error) int {
	switch e.Category {
	case apperr.CategoryValidation:
		return http.StatusUnprocessableEntity
	case apperr.CategoryBusinessRule:
		return http.StatusConflict
	case apperr.CategoryNotFound:
		return http.StatusNotFound
	case apperr.CategoryAuth:
		return http.StatusUnauthorized
	case apperr.CategoryDataLayer:
		switch e.Code {
		case repository.CodeDuplicateItem, repository.CodeConflict:
			return http.StatusConflict
		case repository.CodeQuotaExceeded, repository.CodeQueryTimeout, repository.CodeExternalConnection:
			return http.StatusServiceUnavailable
		case repository.CodeItemNotFound:
			return http.StatusNotFound
		default:
			return http.StatusInternalServerError
		}
	default:
		return http.StatusInternalServerError
	}
}

func defaultUserMessage(status int) string {
	switch {
	case status == http.StatusServiceUnavailable:
		return "The service is temporarily unavailable. Please retry."
	case status >= http.StatusInternalServerError:
		return "internal server error"
	default:
		return http.StatusText(status)
	}
}

// fieldDetails extracts per-field validation messages from the error
// context, where the validation layer stores them under "field:" keys.
func fieldDetails(e *apperr.Error) map[string]string {
	var details map[string]string
	for key, value := range e.Context {
		name, ok := strings.CutPrefix(key, "field:")
		if !ok {
			continue
		}
		msg, ok := value.(string)
		if !ok {
			continue
		}
		if details == nil {
			details = make(map[string]string)
		}
		details[name] = msg
	}
	return details
}

func readJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.Wrap(err, apperr.CategoryValidation, "malformed request body").
			WithUser("The request body is not valid JSON.").
			WithLayer(apperr.LayerTransport)
	}
	return nil
}
