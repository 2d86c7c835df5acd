package webd

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rotblauer/ftmsd/session"
	"github.com/rotblauer/ftmsd/store"
)

func newTestDaemon(t *testing.T) (*WebDaemon, *httptest.Server) {
	t.Helper()
	root := t.TempDir()
	flat := store.NewFlatWithRoot(root)
	journal, err := store.OpenJournal(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { journal.Close() })
	tracker := session.NewTracker(&session.TrackerConfig{
		MachineType: "treadmill",
		DeviceName:  "Treadmill",
	}, flat, journal, nil)
	d := NewWebDaemon(nil, tracker, flat, journal)
	server := httptest.NewServer(d.NewRouter())
	t.Cleanup(server.Close)
	return d, server
}

func TestPing(t *testing.T) {
	_, server := newTestDaemon(t)
	resp, err := http.Get(server.URL + "/ping")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("have %d want 200", resp.StatusCode)
	}
	if string(body) != "pong" {
		t.Errorf("have %q want pong", body)
	}
}

func TestPostTelemetry(t *testing.T) {
	_, server := newTestDaemon(t)

	lines := `{"time":"2024-11-18T17:54:01Z","time_elapsed":1,"distance_total":2}
this is not json
{"time":"2024-11-18T17:54:02Z","time_elapsed":2,"distance_total":4}
`
	resp, err := http.Post(server.URL+"/telemetry", "application/x-ndjson", strings.NewReader(lines))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have %d want 200", resp.StatusCode)
	}
	var counts map[string]int
	if err := json.NewDecoder(resp.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts["received"] != 2 {
		t.Errorf("have received %d want 2", counts["received"])
	}
	if counts["errors"] != 1 {
		t.Errorf("have errors %d want 1", counts["errors"])
	}

	// The same body replayed is fully deduplicated.
	resp2, err := http.Post(server.URL+"/telemetry", "application/x-ndjson", strings.NewReader(lines))
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	if err := json.NewDecoder(resp2.Body).Decode(&counts); err != nil {
		t.Fatal(err)
	}
	if counts["received"] != 0 {
		t.Errorf("have received %d want 0 on replay", counts["received"])
	}
}

func TestGetStatus(t *testing.T) {
	_, server := newTestDaemon(t)

	event := `{"time":"2024-11-18T17:54:01Z","time_elapsed":1,"speed_instant":8.5}` + "\n"
	if _, err := http.Post(server.URL+"/telemetry", "application/x-ndjson", strings.NewReader(event)); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("have %d want 200", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("have content-type %q want application/json", ct)
	}
	var st daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.State != "idle" {
		t.Errorf("have state %q want idle", st.State)
	}
	if st.LastEvent == nil {
		t.Fatal("have nil last_event want the posted event")
	}
	if st.LastEvent.SpeedInstant == nil || *st.LastEvent.SpeedInstant != 8.5 {
		t.Errorf("have last_event speed %v want 8.5", st.LastEvent.SpeedInstant)
	}
}

func TestGetWorkouts(t *testing.T) {
	d, server := newTestDaemon(t)

	resp, err := http.Get(server.URL + "/workouts")
	if err != nil {
		t.Fatal(err)
	}
	var out []pendingWorkout
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(out) != 0 {
		t.Errorf("have %d workouts want 0", len(out))
	}

	start := time.Date(2024, 11, 18, 17, 54, 0, 0, time.UTC)
	if _, err := d.flat.WriteWorkout(start, "<tcx/>"); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get(server.URL + "/workouts")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("have %d workouts want 1", len(out))
	}
	if out[0].File != "20241118_175400.tcx" {
		t.Errorf("have file %q want 20241118_175400.tcx", out[0].File)
	}
	if out[0].Size == "" {
		t.Error("have empty size want humanized byte count")
	}
}

func TestGetUploads(t *testing.T) {
	d, server := newTestDaemon(t)

	resp, err := http.Get(server.URL + "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	var out []store.JournalEntry
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if len(out) != 0 {
		t.Errorf("have %d uploads want 0", len(out))
	}

	entry := store.JournalEntry{
		Filename:    "20241118_175400.tcx",
		Start:       time.Date(2024, 11, 18, 17, 54, 0, 0, time.UTC),
		ActivityURL: "https://www.strava.com/activities/777",
		UploadedAt:  time.Date(2024, 11, 18, 18, 30, 0, 0, time.UTC),
	}
	if err := d.journal.Record(entry); err != nil {
		t.Fatal(err)
	}
	resp, err = http.Get(server.URL + "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 {
		t.Fatalf("have %d uploads want 1", len(out))
	}
	if out[0].ActivityURL != entry.ActivityURL {
		t.Errorf("have %q want %q", out[0].ActivityURL, entry.ActivityURL)
	}

	// The most recent entry also surfaces on /status.
	resp, err = http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var st daemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatal(err)
	}
	if st.LastUpload == nil || st.LastUpload.Filename != entry.Filename {
		t.Errorf("have last_upload %+v want %q", st.LastUpload, entry.Filename)
	}
}

func TestGetUploadsWithoutJournal(t *testing.T) {
	flat := store.NewFlatWithRoot(t.TempDir())
	tracker := session.NewTracker(&session.TrackerConfig{}, flat, nil, nil)
	d := NewWebDaemon(nil, tracker, flat, nil)
	server := httptest.NewServer(d.NewRouter())
	t.Cleanup(server.Close)

	resp, err := http.Get(server.URL + "/uploads")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("have %d want 404", resp.StatusCode)
	}
}

func TestPostUploadWithoutUploader(t *testing.T) {
	_, server := newTestDaemon(t)
	resp, err := http.Post(server.URL+"/upload", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("have %d want 502 (strava unconfigured)", resp.StatusCode)
	}
}

func TestCORSHeaders(t *testing.T) {
	_, server := newTestDaemon(t)
	resp, err := http.Get(server.URL + "/status")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("have Access-Control-Allow-Origin %q want *", got)
	}
}
