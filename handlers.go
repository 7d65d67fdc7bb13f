package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/Tutortoise/inference-benchmark/benchmark"
	"github.com/Tutortoise/inference-benchmark/images"
	"github.com/Tutortoise/inference-benchmark/inference"
	"github.com/Tutortoise/inference-benchmark/models"
)

type AppState struct {
	Config   Config
	Registry *SessionRegistry
	Host     inference.HostInfo
	Logger   *slog.Logger
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

type NextImageResponse struct {
	SessionID string `json:"session_id"`
	Locator   string `json:"locator"`
	Attempts  int    `json:"attempts"`
}

func (s *AppState) routes() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/sessions", s.handleCreateSession).Methods("POST")
	r.HandleFunc("/sessions/{id}", s.handleGetSession).Methods("GET")
	r.HandleFunc("/sessions/{id}", s.handleDeleteSession).Methods("DELETE")
	r.HandleFunc("/sessions/{id}/next", s.handleNextImage).Methods("POST")
	r.HandleFunc("/sessions/{id}/image", s.handleCurrentImage).Methods("GET")
	s.addMonitoringRoutes(r)
	return r
}

func (s *AppState) addMonitoringRoutes(r *mux.Router) {
	r.HandleFunc("/metrics", s.handleMetrics).Methods("GET")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")
}

func (s *AppState) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	session, err := s.Registry.Create()
	if err != nil {
		switch {
		case errors.Is(err, ErrTooManySessions):
			sendErrorResponse(w, "too_many_sessions", err.Error(), http.StatusServiceUnavailable)
		case errors.Is(err, ErrRegistryClosed):
			sendErrorResponse(w, "shutting_down", err.Error(), http.StatusServiceUnavailable)
		default:
			sendErrorResponse(w, "session_error", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Location", "/sessions/"+session.ID)
	sendJSON(w, http.StatusCreated, snapshot(session))
}

func (s *AppState) handleGetSession(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}
	sendJSON(w, http.StatusOK, snapshot(session))
}

func (s *AppState) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Registry.Remove(id); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			sendErrorResponse(w, "session_not_found", "No session with that id", http.StatusNotFound)
			return
		}
		sendErrorResponse(w, "session_error", err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleNextImage starts a new cycle. With ?wait=true it blocks until the
// cycle settles and answers with the resulting snapshot.
func (s *AppState) handleNextImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	wait, _ := strconv.ParseBool(r.URL.Query().Get("wait"))

	cycle, err := s.Registry.RequestNewImage(session.ID)
	if err != nil {
		switch {
		case errors.Is(err, benchmark.ErrBusy):
			sendErrorResponse(w, "busy", err.Error(), http.StatusConflict)
		case errors.Is(err, benchmark.ErrClosed), errors.Is(err, ErrSessionNotFound):
			sendErrorResponse(w, "session_not_found", err.Error(), http.StatusNotFound)
		default:
			sendErrorResponse(w, "session_error", err.Error(), http.StatusInternalServerError)
		}
		return
	}

	if !wait {
		sendJSON(w, http.StatusAccepted, NextImageResponse{
			SessionID: session.ID,
			Locator:   cycle.Locator,
			Attempts:  session.Controller.Attempts(),
		})
		return
	}

	// a cycle error is reported through the snapshot
	if err := cycle.Wait(r.Context()); err != nil && r.Context().Err() != nil {
		return
	}
	sendJSON(w, http.StatusOK, snapshot(session))
}

func (s *AppState) handleCurrentImage(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookup(w, r)
	if !ok {
		return
	}

	img, size := session.Controller.Current()
	if img == nil || img.Image == nil {
		sendErrorResponse(w, "no_image", "No image has been loaded in this session", http.StatusNotFound)
		return
	}

	var buf bytes.Buffer
	if err := images.RenderPreview(&buf, img.Image, *size); err != nil {
		sendErrorResponse(w, "render_error", err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Header().Set("X-Image-Locator", img.Locator)
	w.Write(buf.Bytes())
}

func (s *AppState) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	response := map[string]interface{}{
		"sessions": s.Registry.GetMetrics(),
		"host":     s.Host,
		"model":    s.Config.ModelName,
		"display": models.DisplayDimensions{
			Width:  s.Config.MaxDisplayWidth,
			Height: s.Config.MaxDisplayHeight,
		},
	}
	sendJSON(w, http.StatusOK, response)
}

func (s *AppState) handleHealth(w http.ResponseWriter, _ *http.Request) {
	sendJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *AppState) lookup(w http.ResponseWriter, r *http.Request) (*Session, bool) {
	session, err := s.Registry.Get(mux.Vars(r)["id"])
	if err != nil {
		sendErrorResponse(w, "session_not_found", "No session with that id", http.StatusNotFound)
		return nil, false
	}
	return session, true
}

func snapshot(session *Session) models.Snapshot {
	snap := session.Controller.Snapshot()
	snap.Message = statusMessage(snap)
	return snap
}

func sendJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func sendErrorResponse(w http.ResponseWriter, code, message string, status int) {
	sendJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}
