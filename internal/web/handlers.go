package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nojellyleg/gallery/internal/domain"
	"github.com/nojellyleg/gallery/internal/service"
)

type failure struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, failure{Success: false, Message: message})
}

// writeError maps the error taxonomy onto status codes. Validation errors
// become structured failure bodies the frontend can render; infrastructure
// errors stay opaque.
func (s *Server) writeError(w http.ResponseWriter, op string, id int64, err error) {
	var tooLarge *domain.ImageTooLargeError
	switch {
	case errors.Is(err, domain.ErrPayloadTooLarge):
		writeFailure(w, http.StatusRequestEntityTooLarge, "upload exceeds the 10 MiB limit")
	case errors.As(err, &tooLarge):
		writeFailure(w, http.StatusUnprocessableEntity, tooLarge.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeFailure(w, http.StatusNotFound, "session not found")
	case errors.Is(err, domain.ErrConflict):
		writeFailure(w, http.StatusConflict, "concurrent modification, retry")
	default:
		s.logger.Error("request failed", "op", op, "session_id", id, "error", err)
		writeFailure(w, http.StatusInternalServerError, "internal error")
	}
}

func parseID(r *http.Request, param string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil {
		return 0, domain.ErrInvalidInput
	}
	return id, nil
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed credentials")
		return
	}

	userOK := subtle.ConstantTimeCompare([]byte(creds.Username), []byte(s.adminUsername))
	passOK := subtle.ConstantTimeCompare([]byte(creds.Password), []byte(s.adminPassword))
	if userOK&passOK != 1 {
		writeFailure(w, http.StatusUnauthorized, "invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "token": s.adminToken})
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	views, err := s.service.ListAll(r.Context())
	if err != nil {
		s.writeError(w, "list", 0, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid session id")
		return
	}

	view, err := s.service.GetByID(r.Context(), id)
	if err != nil {
		s.writeError(w, "get", id, err)
		return
	}
	if view == nil {
		writeFailure(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type sessionRequest struct {
	Name          string   `json:"name"`
	Location      string   `json:"location"`
	People        string   `json:"people"`
	Date          string   `json:"date"`
	Map           *string  `json:"map"`
	CoverMedia    string   `json:"cover_media"`
	ContentMedias []string `json:"content_medias"`
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := service.NewSessionInput{
		Name:     req.Name,
		Location: req.Location,
		People:   req.People,
		MapEmbed: req.Map,
		Cover:    req.CoverMedia,
		Content:  req.ContentMedias,
	}
	if req.Date != "" {
		date, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		in.Date = date
	}

	view, err := s.service.Create(r.Context(), in)
	if err != nil {
		s.writeError(w, "create", 0, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// updateRequest distinguishes omitted fields from explicit values with
// pointers, so a partial update only touches what the caller sent.
type updateRequest struct {
	Name       *string `json:"name"`
	Location   *string `json:"location"`
	People     *string `json:"people"`
	Date       *string `json:"date"`
	Map        *string `json:"map"`
	CoverMedia string  `json:"cover_media"`
}

func (s *Server) handleUpdateSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request body")
		return
	}

	in := service.UpdateSessionInput{
		Patch: domain.SessionPatch{
			Name:     req.Name,
			Location: req.Location,
			People:   req.People,
			MapEmbed: req.Map,
		},
		Cover: req.CoverMedia,
	}
	if req.Date != nil {
		date, err := time.Parse("2006-01-02", *req.Date)
		if err != nil {
			writeFailure(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		in.Patch.Date = &date
	}

	view, err := s.service.Update(r.Context(), id, in)
	if err != nil {
		s.writeError(w, "update", id, err)
		return
	}
	if view == nil {
		writeFailure(w, http.StatusNotFound, "session not found")
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid session id")
		return
	}
	if err := s.service.Delete(r.Context(), id); err != nil {
		s.writeError(w, "delete", id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type mediaRequest struct {
	Items []string `json:"items"`
}

func (s *Server) handleAppendMedia(w http.ResponseWriter, r *http.Request) {
	s.handleMediaMutation(w, r, s.service.AppendContentMedia, "append_media")
}

func (s *Server) handleReplaceMedia(w http.ResponseWriter, r *http.Request) {
	s.handleMediaMutation(w, r, s.service.ReplaceContentMedia, "replace_media")
}

func (s *Server) handleMediaMutation(
	w http.ResponseWriter,
	r *http.Request,
	mutate func(ctx context.Context, id int64, items []string) (*service.SessionView, error),
	op string,
) {
	id, err := parseID(r, "id")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid session id")
		return
	}

	var req mediaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "malformed request body")
		return
	}

	view, err := mutate(r.Context(), id, req.Items)
	if err != nil {
		s.writeError(w, op, id, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid session id")
		return
	}
	mediaID, err := parseID(r, "mediaID")
	if err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid media id")
		return
	}

	if err := s.service.DeleteContentMedia(r.Context(), id, mediaID); err != nil {
		s.writeError(w, "delete_media", id, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
