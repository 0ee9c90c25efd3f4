// Package httpapi exposes the study workflow as a JSON API.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/example/revisionbot/internal/database"
	"github.com/example/revisionbot/internal/excel"
	"github.com/example/revisionbot/internal/prompt"
	"github.com/example/revisionbot/internal/study"
	"github.com/gorilla/mux"
)

// Server serves the JSON API
type Server struct {
	svc    *study.Service
	router *mux.Router
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates the API with all routes registered
func NewServer(svc *study.Service) *Server {
	s := &Server{svc: svc, router: mux.NewRouter()}

	r := s.router
	r.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/topics", s.handleTopics).Methods("GET")
	api.HandleFunc("/topics/next", s.handleNext).Methods("GET")
	api.HandleFunc("/topics/random", s.handleRandom).Methods("GET")
	api.HandleFunc("/topics/{id:[0-9]+}", s.handleTopic).Methods("GET")
	api.HandleFunc("/topics/{id:[0-9]+}/priority", s.handleSetPriority).Methods("PUT")
	api.HandleFunc("/topics/{id:[0-9]+}/revisions", s.handleHistory).Methods("GET")
	api.HandleFunc("/topics/{id:[0-9]+}/revisions", s.handleRevise).Methods("POST")
	api.HandleFunc("/topics/{id:[0-9]+}/study", s.handleStudy).Methods("POST")
	api.HandleFunc("/topics/{id:[0-9]+}/bookmark", s.handleBookmark).Methods("PUT")
	api.HandleFunc("/topics/{id:[0-9]+}/bookmark", s.handleUnbookmark).Methods("DELETE")
	api.HandleFunc("/bookmarks", s.handleBookmarks).Methods("GET")
	api.HandleFunc("/stats", s.handleStats).Methods("GET")
	api.HandleFunc("/sync", s.handleSync).Methods("POST")
	api.HandleFunc("/export", s.handleExport).Methods("GET")

	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("HTTP API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := s.svc.Topics(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	limit := 1
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	topics, err := s.svc.Upcoming(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topics)
}

func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	topic, err := s.svc.RandomTopic(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := s.svc.Topic(r.Context(), topicID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

type priorityRequest struct {
	Priority *int `json:"priority"`
}

func (s *Server) handleSetPriority(w http.ResponseWriter, r *http.Request) {
	var req priorityRequest
	if !decode(w, r, &req) {
		return
	}
	topic, err := s.svc.SetPriority(r.Context(), topicID(r), req.Priority)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	revisions, err := s.svc.History(r.Context(), topicID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, revisions)
}

type reviseRequest struct {
	UserID   int64  `json:"user_id"`
	Prompt   string `json:"prompt"`
	Response string `json:"response"`
}

func (s *Server) handleRevise(w http.ResponseWriter, r *http.Request) {
	var req reviseRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	rev, err := s.svc.MarkRevised(r.Context(), req.UserID, topicID(r), req.Prompt, req.Response)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rev)
}

type studyRequest struct {
	UserID      int64  `json:"user_id"`
	Mode        string `json:"mode"`
	MarkRevised bool   `json:"mark_revised"`
	SkipAI      bool   `json:"skip_ai"`
}

func (s *Server) handleStudy(w http.ResponseWriter, r *http.Request) {
	var req studyRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	mode, err := prompt.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	session, err := s.svc.Study(r.Context(), study.Request{
		UserID:      req.UserID,
		TopicID:     topicID(r),
		Mode:        mode,
		MarkRevised: req.MarkRevised,
		SkipAI:      req.SkipAI,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

type bookmarkRequest struct {
	Note string `json:"note"`
}

func (s *Server) handleBookmark(w http.ResponseWriter, r *http.Request) {
	var req bookmarkRequest
	if !decodeOptional(w, r, &req) {
		return
	}
	userID, ok := userID(w, r)
	if !ok {
		return
	}
	bookmark, err := s.svc.Bookmark(r.Context(), userID, topicID(r), req.Note)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmark)
}

func (s *Server) handleUnbookmark(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}
	if err := s.svc.Unbookmark(r.Context(), userID, topicID(r)); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBookmarks(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}
	bookmarks, err := s.svc.Bookmarks(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bookmarks)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := userID(w, r)
	if !ok {
		return
	}
	stats, err := s.svc.Stats(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.svc.Sync(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := excel.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	topics, err := s.svc.Topics(r.Context(), "")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := excel.Export(&buf, format, topics); err != nil {
		writeServiceError(w, err)
		return
	}

	contentType := "text/csv"
	if format == excel.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=topics.%s", format))
	_, _ = w.Write(buf.Bytes())
}

// topicID reads the id route variable, the route pattern guarantees digits
func topicID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

// userID reads the optional user_id query parameter, 0 when absent
func userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("user_id")
	if raw == "" {
		return 0, true
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "user_id must be an integer")
		return 0, false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// decodeOptional accepts an empty body
func decodeOptional(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound), errors.Is(err, study.ErrNoTopics):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, study.ErrInvalidPriority):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, study.ErrNotesDisabled):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		log.Printf("Error handling request: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}
