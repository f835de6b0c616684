// Package server exposes the reminder operations over HTTP for the web UI.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"

	"seminar-notifier/pinpoint"
	"seminar-notifier/pkg/seminar"
)

// MessagingAPI is the slice of the messaging service the handlers call
// directly: number validation, templates and the confirmation SMS.
type MessagingAPI interface {
	ValidateNumber(ctx context.Context, phoneNumber string) (*pinpoint.NumberValidateResponse, error)
	SendMessage(ctx context.Context, endpointID, body string) error
	SMSTemplate(ctx context.Context, name, version string) (string, error)
}

// Reminders is the reminder set manager surface.
type Reminders interface {
	List(ctx context.Context, nv *pinpoint.NumberValidateResponse) ([]seminar.Seminar, error)
	Add(ctx context.Context, nv *pinpoint.NumberValidateResponse, name, itemName string, dateTime *time.Time) (string, error)
	UpdateAt(ctx context.Context, endpointID string, position int, dateTime *time.Time) error
	DeleteAt(ctx context.Context, endpointID string, position int) error
}

// Migrator runs the data migration and campaign cleanup flows.
type Migrator interface {
	Run(ctx context.Context) error
	CleanupCompleted(ctx context.Context) error
}

// Server holds the handler dependencies.
type Server struct {
	api             MessagingAPI
	reminders       Reminders
	migrator        Migrator
	clk             clock.Clock
	logger          *slog.Logger
	limiter         *rateLimiter
	confirmTemplate string
	templateVersion string
}

// New creates a server. confirmTemplate names the SMS template sent after a
// successful registration.
func New(api MessagingAPI, reminders Reminders, migrator Migrator, clk clock.Clock, logger *slog.Logger, confirmTemplate, templateVersion string) *Server {
	return &Server{
		api:             api,
		reminders:       reminders,
		migrator:        migrator,
		clk:             clk,
		logger:          logger,
		limiter:         newRateLimiter(clk, 10, time.Hour),
		confirmTemplate: confirmTemplate,
		templateVersion: templateVersion,
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors)

	r.Get("/health", s.handleHealth)
	r.Get("/seminars/{phoneNumber}", s.handleList)
	r.Post("/seminars", s.handleRegister)
	r.Put("/seminar/{endpointID}/{seminarID}", s.handleUpdate)
	r.Delete("/seminar/{endpointID}/{seminarID}", s.handleDelete)
	r.Post("/migrate", s.handleMigrate)
	r.Post("/cleanup", s.handleCleanup)
	return r
}

// cors allows the web UI to call the API cross-origin.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type errorResponse struct {
	Error string `json:"error"`
	URL   string `json:"url"`
}

type successResponse struct {
	Success    string `json:"success"`
	URL        string `json:"url"`
	EndpointID string `json:"endpointId,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	s.writeJSON(w, status, errorResponse{Error: msg, URL: r.URL.Path})
}

// fail maps an operation error to a response: 404 for missing resources, 400
// for validation failures, 500 for everything else.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case seminar.IsNotFound(err):
		s.writeError(w, r, http.StatusNotFound, err.Error())
	case seminar.IsValidation(err):
		s.writeError(w, r, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error("Request failed", "path", r.URL.Path, "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "internal error")
	}
}
