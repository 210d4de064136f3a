// Package api exposes the dashboard and analysis HTTP endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/focusfade/focusfade/internal/domain"
	"github.com/focusfade/focusfade/internal/usecase"
)

// Handler wires the HTTP surface to the use cases.
type Handler struct {
	tracker    *usecase.Tracker
	classifier *usecase.RelevanceClassifier
	summarizer *usecase.ActivitySummarizer
	logStore   domain.LogStore
	archive    domain.SessionArchive // may be nil
	probe      domain.CaptureProbe
	focusTask  string // default task for session start
	logger     *zap.Logger
}

// NewHandler creates the HTTP handler.
func NewHandler(
	tracker *usecase.Tracker,
	classifier *usecase.RelevanceClassifier,
	summarizer *usecase.ActivitySummarizer,
	logStore domain.LogStore,
	archive domain.SessionArchive,
	probe domain.CaptureProbe,
	defaultFocusTask string,
	logger *zap.Logger,
) *Handler {
	return &Handler{
		tracker:    tracker,
		classifier: classifier,
		summarizer: summarizer,
		logStore:   logStore,
		archive:    archive,
		probe:      probe,
		focusTask:  defaultFocusTask,
		logger:     logger,
	}
}

// Router builds the chi router. The generous timeout covers the model
// calls behind the analyze endpoints.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.healthz)
	r.Route("/api", func(r chi.Router) {
		r.Get("/logs", h.getLogs)
		r.Post("/logs", h.postLog)
		r.Post("/analyze-task", h.analyzeTask)
		r.Post("/analyze-activity", h.analyzeActivity)
		r.Post("/session/start", h.startSession)
		r.Post("/session/stop", h.stopSession)
		r.Get("/session", h.getSession)
		r.Get("/sessions", h.listSessions)
	})
	return r
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	snap, err := h.probe.Snapshot()
	if err != nil {
		h.logger.Warn("health probe failed", zap.Error(err))
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"host":   snap,
	})
}

func (h *Handler) getLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.logStore.All()
	if err != nil {
		h.logger.Error("failed to read logs", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logs": logs})
}

func (h *Handler) postLog(w http.ResponseWriter, r *http.Request) {
	var rec domain.FocusLogRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil || rec.Timestamp == 0 || rec.App == "" {
		writeError(w, http.StatusBadRequest, "Invalid log data. Expecting { timestamp: number, app: string }.")
		return
	}

	if err := h.logStore.Append(rec); err != nil {
		h.logger.Error("failed to append log", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to save log")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Log saved successfully",
		"newLog":  rec,
	})
}

type analyzeTaskRequest struct {
	Task string   `json:"task"`
	Apps []string `json:"apps"`
}

func (h *Handler) analyzeTask(w http.ResponseWriter, r *http.Request) {
	var req analyzeTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Task == "" || len(req.Apps) == 0 {
		writeError(w, http.StatusBadRequest, "Missing task or apps")
		return
	}

	verdicts, err := h.classifier.Classify(r.Context(), req.Task, req.Apps)
	if err != nil {
		h.logger.Error("task analysis failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to analyze task relevance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"analysis": verdicts})
}

type analyzeActivityRequest struct {
	Activities []domain.Activity `json:"activities"`
	FocusTask  string            `json:"focusTask"`
}

func (h *Handler) analyzeActivity(w http.ResponseWriter, r *http.Request) {
	var req analyzeActivityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	analysis, err := h.summarizer.Summarize(r.Context(), req.Activities, req.FocusTask)
	if err != nil {
		h.logger.Error("activity analysis failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analysis":  analysis,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

type startSessionRequest struct {
	Task string `json:"task"`
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	// Body is optional; an empty task falls back to the configured default.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Task == "" {
		req.Task = h.focusTask
	}

	if _, err := h.tracker.Start(req.Task, time.Now()); err != nil {
		if errors.Is(err, usecase.ErrSessionActive) {
			writeError(w, http.StatusConflict, "Session already active")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

func (h *Handler) stopSession(w http.ResponseWriter, r *http.Request) {
	if _, err := h.tracker.Stop(time.Now()); err != nil {
		if errors.Is(err, usecase.ErrSessionInactive) {
			writeError(w, http.StatusConflict, "No active session")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

func (h *Handler) getSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tracker.Snapshot())
}

func (h *Handler) listSessions(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		writeJSON(w, http.StatusOK, map[string]any{"sessions": []domain.ArchivedSession{}})
		return
	}
	sessions, err := h.archive.Sessions()
	if err != nil {
		h.logger.Error("failed to list sessions", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	if sessions == nil {
		sessions = []domain.ArchivedSession{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
