package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sw33tLie/callerid/internal/utils"
	"github.com/sw33tLie/callerid/pkg/directory"
	"github.com/sw33tLie/callerid/pkg/phone"
	"github.com/sw33tLie/callerid/pkg/provider"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, provider.ErrUnsupportedOperation):
		return http.StatusMethodNotAllowed
	case errors.Is(err, provider.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, directory.ErrInvalidRecord), errors.Is(err, phone.ErrFormat):
		return http.StatusBadRequest
	case errors.Is(err, provider.ErrClosed),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Errorf("Request failed: %v", err)
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// parseProjection reads ?projection=a,b into column names.
func parseProjection(r *http.Request) []string {
	var cols []string
	for _, v := range r.URL.Query()["projection"] {
		cols = append(cols, utils.SplitNonEmpty(v)...)
	}
	return cols
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	route, _ := provider.Match(path)
	defer s.metrics.ObserveRequest(route.String(), time.Now())

	c, err := s.Provider.Query(r.Context(), path, parseProjection(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if route == provider.RoutePhoneLookup {
		s.metrics.ObserveLookup(c.Len() > 0)
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handlePhoto(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	defer s.metrics.ObserveRequest(provider.RoutePrimaryPhoto.String(), time.Now())

	rc, err := s.Provider.OpenAsset(path)
	if err != nil {
		s.writeError(w, err)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", s.Provider.Type(path))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	if _, err := io.Copy(w, rc); err != nil {
		s.log.Debugf("Photo write aborted: %v", err)
	}
}

// handleWrite forwards any mutation to the provider, which refuses it.
func (s *Server) handleWrite(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	var values map[string]any
	if r.Body != nil {
		err := json.NewDecoder(io.LimitReader(r.Body, 1<<16)).Decode(&values)
		if err != nil && !errors.Is(err, io.EOF) {
			s.log.Debugf("Ignoring unreadable body on %s %s: %v", r.Method, path, err)
			values = nil
		}
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		err = s.Provider.Insert(r.Context(), path, values)
	case http.MethodDelete:
		err = s.Provider.Delete(r.Context(), path)
	default:
		err = s.Provider.Update(r.Context(), path, values)
	}
	s.metrics.IncrementRejected()
	s.writeError(w, err)
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Dir.List())
}

type RecordRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Type      string `json:"type"`
}

func (s *Server) handlePutRecord(w http.ResponseWriter, r *http.Request) {
	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	n, err := phone.New(req.Phone, phone.ParseKind(req.Type), s.region)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rec, err := directory.NewRecord(req.FirstName, req.LastName, n)
	if err != nil {
		s.writeError(w, err)
		return
	}

	err = s.withLock(func() error {
		return s.Dir.Upsert(r.Context(), rec)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetRecords(s.Dir.Len())
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := directory.Key{
		FirstName: strings.TrimSpace(q.Get("first_name")),
		LastName:  strings.TrimSpace(q.Get("last_name")),
	}
	if key.FirstName == "" || key.LastName == "" {
		http.Error(w, "first_name and last_name are required", http.StatusBadRequest)
		return
	}

	err := s.withLock(func() error {
		return s.Dir.Delete(r.Context(), key)
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.metrics.SetRecords(s.Dir.Len())
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		http.Error(w, "stats are not available for this directory", http.StatusNotFound)
		return
	}
	stats, err := s.stats.GetStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) withLock(fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	if err := s.lock.Lock(); err != nil {
		return err
	}
	defer s.lock.Unlock()
	return fn()
}
