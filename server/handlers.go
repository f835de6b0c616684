package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi"

	"seminar-notifier/pkg/seminar"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

type seminarJSON struct {
	DateTime   *string `json:"dateTime"`
	EndpointID string  `json:"endpointId"`
	ItemName   string  `json:"itemName"`
	ID         int     `json:"id"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	nv, err := s.api.ValidateNumber(ctx, chi.URLParam(r, "phoneNumber"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !nv.SMSCapable() {
		s.writeError(w, r, http.StatusBadRequest, "phone number cannot receive SMS")
		return
	}

	seminars, err := s.reminders.List(ctx, nv)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	resp := make([]seminarJSON, 0, len(seminars))
	for _, sem := range seminars {
		item := seminarJSON{
			EndpointID: sem.EndpointID,
			ItemName:   sem.ItemName,
			ID:         sem.ID,
		}
		if sem.DateTime != nil {
			formatted := seminar.FormatJapanese(*sem.DateTime)
			item.DateTime = &formatted
		}
		resp = append(resp, item)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type registerRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Name        string `json:"name"`
	ItemName    string `json:"itemName"`
	DateTime    string `json:"dateTime"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !s.allowMutation(w, r) {
		return
	}

	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" || strings.TrimSpace(req.ItemName) == "" {
		s.writeError(w, r, http.StatusBadRequest, "phoneNumber and itemName are required")
		return
	}

	nv, err := s.api.ValidateNumber(ctx, req.PhoneNumber)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if !nv.SMSCapable() {
		s.writeError(w, r, http.StatusBadRequest, "phone number cannot receive SMS")
		return
	}

	dateTime, err := s.parseDateTime(req.DateTime)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	endpointID, err := s.reminders.Add(ctx, nv, req.Name, req.ItemName, dateTime)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// Registration succeeded; a lost confirmation SMS is not worth a 500.
	s.sendConfirmation(ctx, endpointID, req.ItemName, dateTime)

	s.writeJSON(w, http.StatusOK, successResponse{
		Success:    "registered",
		URL:        r.URL.Path,
		EndpointID: endpointID,
	})
}

type updateRequest struct {
	DateTime string `json:"dateTime"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if !s.allowMutation(w, r) {
		return
	}

	endpointID := chi.URLParam(r, "endpointID")
	position, err := strconv.Atoi(chi.URLParam(r, "seminarID"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid seminar id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	dateTime, err := s.parseDateTime(req.DateTime)
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.reminders.UpdateAt(r.Context(), endpointID, position, dateTime); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: "updated", URL: r.URL.Path})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if !s.allowMutation(w, r) {
		return
	}

	endpointID := chi.URLParam(r, "endpointID")
	position, err := strconv.Atoi(chi.URLParam(r, "seminarID"))
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "invalid seminar id")
		return
	}

	if err := s.reminders.DeleteAt(r.Context(), endpointID, position); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: "deleted", URL: r.URL.Path})
}

func (s *Server) handleMigrate(w http.ResponseWriter, r *http.Request) {
	if err := s.migrator.Run(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: "migrated", URL: r.URL.Path})
}

func (s *Server) handleCleanup(w http.ResponseWriter, r *http.Request) {
	if err := s.migrator.CleanupCompleted(r.Context()); err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, successResponse{Success: "cleaned up", URL: r.URL.Path})
}

// allowMutation applies the per-IP rate limit shared by all mutating routes.
// A false return means the 429 response has been written.
func (s *Server) allowMutation(w http.ResponseWriter, r *http.Request) bool {
	ip := clientIP(r)
	if s.limiter.allow(ip) {
		return true
	}
	s.logger.Warn("Rate limit exceeded", "ip", ip, "path", r.URL.Path)
	s.writeError(w, r, http.StatusTooManyRequests, "too many requests, try again later")
	return false
}

// parseDateTime turns the request field into an optional date. Empty means
// on-hold. Parseable dates must still be in the future.
func (s *Server) parseDateTime(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	now := s.clk.Now()
	dt, err := seminar.Parse(raw, now)
	if err != nil {
		return nil, &seminar.ValidationError{Msg: "unparseable dateTime: " + raw}
	}
	if !dt.After(now) {
		return nil, &seminar.ValidationError{Msg: "dateTime has already passed"}
	}
	return &dt, nil
}

func (s *Server) sendConfirmation(ctx context.Context, endpointID, itemName string, dateTime *time.Time) {
	body, err := s.api.SMSTemplate(ctx, s.confirmTemplate, s.templateVersion)
	if err != nil {
		s.logger.Warn("Failed to load confirmation template", "template", s.confirmTemplate, "error", err)
		return
	}

	if dateTime != nil {
		body = seminar.RenderMessage(body, itemName, *dateTime)
	} else {
		body = seminar.RenderMessageOnHold(body, itemName)
	}

	if err := s.api.SendMessage(ctx, endpointID, body); err != nil {
		s.logger.Warn("Failed to send confirmation SMS", "endpoint_id", endpointID, "error", err)
	}
}
