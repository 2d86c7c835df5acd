package webd

import (
	"bufio"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jellydator/ttlcache/v3"
	"github.com/rotblauer/ftmsd/events"
	"github.com/rotblauer/ftmsd/session"
	"github.com/rotblauer/ftmsd/store"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

func pingPong(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("pong"))
}

// handlePostTelemetry ingests machine telemetry as NDJSON, one event
// per line. Events are deduped (BLE stacks replay notifications on
// reconnect) and fed to the session tracker strictly in body order.
func (s *WebDaemon) handlePostTelemetry(w http.ResponseWriter, r *http.Request) {
	if r.Body == nil {
		s.logger.Error("No request body", "method", r.Method, "url", r.URL)
		http.Error(w, "Please send a request body", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	received, errs := 0, 0
	scanner := bufio.NewScanner(r.Body)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		e, err := telemetry.DecodeEvent(line, time.Now())
		if err != nil {
			errs++
			continue
		}
		if !s.dedupe(*e) {
			continue
		}
		s.lastEvents.Set("last", e, ttlcache.DefaultTTL)
		s.tracker.OnEvent(e)
		received++
	}
	if err := scanner.Err(); err != nil {
		s.logger.Warn("Telemetry body read failed", "error", err)
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(map[string]int{"received": received, "errors": errs}); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

type daemonStatus struct {
	StartedAt   time.Time           `json:"started_at"`
	Uptime      string              `json:"uptime"`
	State       string              `json:"state"`
	LastEvent   *telemetry.Event    `json:"last_event,omitempty"`
	LastSeen    string              `json:"last_seen,omitempty"`
	LastWorkout *events.Workout     `json:"last_workout,omitempty"`
	LastUpload  *store.JournalEntry `json:"last_upload,omitempty"`
	WSConns     int                 `json:"ws_conns"`
}

func (s *WebDaemon) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	st := daemonStatus{
		StartedAt:   s.started,
		Uptime:      time.Since(s.started).Round(time.Second).String(),
		State:       s.tracker.State().String(),
		LastWorkout: s.tracker.LastWorkout(),
		WSConns:     s.melodyInstance.Len(),
	}
	if item := s.lastEvents.Get("last"); item != nil {
		st.LastEvent = item.Value()
		st.LastSeen = humanize.Time(item.Value().Time)
	}
	if s.journal != nil {
		if last, err := s.journal.Last(); err == nil {
			st.LastUpload = last
		}
	}
	j, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		s.logger.Error("Failed to marshal status", "error", err)
		http.Error(w, "Failed to marshal status", http.StatusInternalServerError)
		return
	}
	_, _ = w.Write(j)
}

type pendingWorkout struct {
	File string `json:"file"`
	Size string `json:"size"`
}

// handleGetWorkouts lists durably stored workout files still awaiting
// upload, oldest first.
func (s *WebDaemon) handleGetWorkouts(w http.ResponseWriter, r *http.Request) {
	paths, err := s.flat.ListPending()
	if err != nil {
		s.logger.Warn("Failed to list workouts", "error", err)
		http.Error(w, "Failed to list workouts", http.StatusInternalServerError)
		return
	}
	out := []pendingWorkout{}
	for _, p := range paths {
		pw := pendingWorkout{File: filepath.Base(p)}
		if content, err := s.flat.Read(p); err == nil {
			pw.Size = humanize.Bytes(uint64(len(content)))
		}
		out = append(out, pw)
	}
	if err := json.NewEncoder(w).Encode(out); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handleGetUploads lists journaled completed uploads in chronological
// order.
func (s *WebDaemon) handleGetUploads(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		http.Error(w, "Upload journal unavailable", http.StatusNotFound)
		return
	}
	entries, err := s.journal.Entries()
	if err != nil {
		s.logger.Warn("Failed to read upload journal", "error", err)
		http.Error(w, "Failed to read upload journal", http.StatusInternalServerError)
		return
	}
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		s.logger.Warn("Failed to write response", "error", err)
	}
}

// handlePostUpload triggers a manual re-upload of the most recently
// finished workout. Errors surface to the triggering actor.
func (s *WebDaemon) handlePostUpload(w http.ResponseWriter, r *http.Request) {
	err := s.tracker.UploadLast(r.Context())
	switch {
	case err == nil:
		if err := json.NewEncoder(w).Encode(s.tracker.LastWorkout()); err != nil {
			s.logger.Warn("Failed to write response", "error", err)
		}
	case errors.Is(err, session.ErrNoWorkout):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, session.ErrBusy):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		s.logger.Warn("Manual upload failed", "error", err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
