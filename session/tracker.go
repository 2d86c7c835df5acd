// Package session turns a live machine-telemetry stream into finished,
// uploaded workouts. It owns the idle -> recording -> uploading -> idle
// lifecycle: debounced start detection, watchdog-enforced end
// detection, raw sample accumulation, and the smooth -> encode ->
// durable write -> upload sequence on session end.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/montanaflynn/stats"
	"github.com/rotblauer/ftmsd/common"
	"github.com/rotblauer/ftmsd/events"
	"github.com/rotblauer/ftmsd/metrics/influxdb"
	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/smooth"
	"github.com/rotblauer/ftmsd/store"
	"github.com/rotblauer/ftmsd/strava"
	"github.com/rotblauer/ftmsd/tcx"
	"github.com/rotblauer/ftmsd/types/activity"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

var (
	meterSessionsStarted   = metrics.GetOrRegisterCounter("ftmsd/sessions/started", nil)
	meterSessionsFinished  = metrics.GetOrRegisterCounter("ftmsd/sessions/finished", nil)
	meterSessionsDiscarded = metrics.GetOrRegisterCounter("ftmsd/sessions/discarded", nil)
	meterUploadsOK         = metrics.GetOrRegisterCounter("ftmsd/uploads/ok", nil)
	meterUploadsDuplicate  = metrics.GetOrRegisterCounter("ftmsd/uploads/duplicate", nil)
	meterUploadsFailed     = metrics.GetOrRegisterCounter("ftmsd/uploads/failed", nil)
)

var ErrBusy = errors.New("session: tracker busy")
var ErrNoWorkout = errors.New("session: no workout available to upload")

// TrackerConfig is everything user-configurable about one machine's
// session tracking.
type TrackerConfig struct {
	Session *params.SessionConfig
	Smooth  *params.SmoothConfig

	// MachineType is the FTMS machine-type name (treadmill,
	// cross_trainer, indoor_bike, rower) driving activity detection.
	MachineType string
	DeviceName  string

	// ActivityType is an explicit Strava type, or "auto" (default) to
	// detect from MachineType and average speed.
	ActivityType string

	NameTemplate string
	HideFromHome bool
	Private      bool
	GearID       string
}

// Tracker is the single logical owner of the one in-flight session.
// One mutex serializes telemetry callbacks, watchdog ticks, and
// end-of-session processing; the raw sample sequence, state field and
// cached summary are only touched under it.
type Tracker struct {
	mu     sync.Mutex
	logger *slog.Logger
	config *TrackerConfig

	flat     *store.Flat
	journal  *store.Journal   // optional
	uploader *strava.Uploader // nil when Strava is unconfigured

	state events.SessionState

	// Recording state. samples is non-empty only while recording.
	samples       []telemetry.RawSample
	startTime     time.Time
	consecutive   int
	lastProgress  time.Time
	lastSpeed     float64
	lastDistance  float64
	lastElapsed   float64
	lastCalories  int
	cooldownUntil time.Time
	watchdogGen   int

	// Cached from the last finished recording; the raw sample
	// sequence is cleared immediately after encoding, so uploads and
	// manual re-uploads work exclusively from these.
	lastSummary  tcx.Summary
	lastActivity activity.Activity
	lastPath     string
	lastWorkout  *events.Workout

	// now is swapped out in tests for deterministic watchdog checks.
	now func() time.Time
}

func NewTracker(config *TrackerConfig, flat *store.Flat, journal *store.Journal, uploader *strava.Uploader) *Tracker {
	if config.Session == nil {
		config.Session = params.DefaultSessionConfig
	}
	if config.Smooth == nil {
		config.Smooth = params.DefaultSmoothConfig
	}
	if config.NameTemplate == "" {
		config.NameTemplate = params.DefaultNameTemplate
	}
	return &Tracker{
		logger:      slog.With("c", "session"),
		config:      config,
		flat:        flat,
		journal:     journal,
		uploader:    uploader,
		state:       events.StateIdle,
		lastElapsed: -1,
		now:         time.Now,
	}
}

// State returns the current lifecycle state.
func (t *Tracker) State() events.SessionState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LastWorkout returns a copy of the most recently finished workout,
// or nil. Callers marshal it without holding the tracker's lock, so
// the tracker's own record (which gains ActivityURL after upload) is
// never shared.
func (t *Tracker) LastWorkout() *events.Workout {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.lastWorkout == nil {
		return nil
	}
	w := *t.lastWorkout
	return &w
}

// setStateLocked signals a transition exactly once per actual change.
func (t *Tracker) setStateLocked(next events.SessionState) {
	if t.state == next {
		return
	}
	prev := t.state
	t.state = next
	t.logger.Warn("Session state", "from", prev, "to", next)
	events.TransitionFeed.Send(events.Transition{From: prev, To: next, Time: t.now()})
}

// OnEvent consumes one telemetry event. Events are processed strictly
// in arrival order; the caller must not deliver concurrently.
func (t *Tracker) OnEvent(e *telemetry.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Instantaneous speed appears rarely (often once, at belt start);
	// remember it across states so recording can carry it forward.
	if e.SpeedInstant != nil {
		t.lastSpeed = *e.SpeedInstant
	}

	switch t.state {
	case events.StateIdle:
		t.checkStartLocked(e)
	case events.StateRecording:
		t.recordLocked(e)
	}
}

// checkStartLocked debounces workout-start detection on consecutive
// positive elapsed-time readings. Elapsed time is present in every
// notification, unlike instantaneous speed, so it is the start signal.
func (t *Tracker) checkStartLocked(e *telemetry.Event) {
	if t.now().Before(t.cooldownUntil) {
		return
	}
	if e.ElapsedTime != nil && *e.ElapsedTime > 0 {
		t.consecutive++
		if t.consecutive >= t.config.Session.StartCount {
			t.startRecordingLocked(e)
		}
		return
	}
	t.consecutive = 0
}

func (t *Tracker) startRecordingLocked(e *telemetry.Event) {
	t.samples = t.samples[:0]
	t.startTime = e.Time
	t.lastProgress = t.now()
	t.lastElapsed = -1
	t.watchdogGen++
	t.setStateLocked(events.StateRecording)
	meterSessionsStarted.Inc(1)
	t.logger.Warn("Workout started", "start", t.startTime)
	go t.watchdog(t.watchdogGen)
}

// watchdog force-ends the session when notifications stop arriving
// entirely, so the inline check never gets a chance to run. It stops
// rescheduling itself as soon as the state leaves recording.
func (t *Tracker) watchdog(gen int) {
	ticker := time.NewTicker(t.config.Session.WatchdogInterval)
	defer ticker.Stop()
	for range ticker.C {
		if !t.checkIdleTimeout(gen) {
			return
		}
	}
}

// checkIdleTimeout runs one watchdog tick. It returns false when the
// watchdog should stop, either because the session ended or because
// this tick ended it.
func (t *Tracker) checkIdleTimeout(gen int) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != events.StateRecording || t.watchdogGen != gen {
		return false
	}
	if t.now().Sub(t.lastProgress) > t.config.Session.IdleTimeout {
		t.logger.Warn("Session ended (watchdog)", "idle", t.config.Session.IdleTimeout)
		t.endSessionLocked()
		return false
	}
	return true
}

// recordLocked appends one raw sample, carrying forward the most
// recently observed speed, distance and calories for absent fields,
// and runs the same no-progress check the watchdog runs.
func (t *Tracker) recordLocked(e *telemetry.Event) {
	now := t.now()

	if e.ElapsedTime != nil {
		if *e.ElapsedTime > t.lastElapsed {
			t.lastProgress = now
		}
		t.lastElapsed = *e.ElapsedTime
	}
	if e.DistanceTotal != nil {
		if *e.DistanceTotal > t.lastDistance {
			t.lastProgress = now
		}
		if *e.DistanceTotal > 0 {
			t.lastDistance = *e.DistanceTotal
		}
	}
	if e.EnergyTotal != nil {
		t.lastCalories = int(*e.EnergyTotal)
	}

	t.samples = append(t.samples, telemetry.RawSample{
		Time:      e.Time,
		DistanceM: t.lastDistance,
		SpeedKmh:  t.lastSpeed,
		Calories:  t.lastCalories,
	})

	if now.Sub(t.lastProgress) > t.config.Session.IdleTimeout {
		t.logger.Warn("Session ended", "idle", t.config.Session.IdleTimeout)
		t.endSessionLocked()
	}
}

// endSessionLocked is the single end-of-session path, idempotent:
// the watchdog and the inline check may race to it, whichever arrives
// first wins and the other is a no-op against the state guard.
func (t *Tracker) endSessionLocked() {
	if t.state != events.StateRecording {
		return
	}
	t.cooldownUntil = t.now().Add(t.config.Session.EndCooldown)

	path, ok := t.finishRecordingLocked()
	if !ok {
		t.setStateLocked(events.StateIdle)
		return
	}
	if t.uploader == nil {
		t.setStateLocked(events.StateIdle)
		return
	}
	t.setStateLocked(events.StateUploading)
	go t.uploadAndIdle(path)
}

// finishRecordingLocked smooths, encodes, and durably writes the
// session, caching the summary before the raw sequence is cleared.
// Returns the written path, or ok=false when the session was discarded
// (too few samples) or lost (durable write failed).
func (t *Tracker) finishRecordingLocked() (path string, ok bool) {
	defer t.resetLocked()

	if len(t.samples) < t.config.Session.MinSamples {
		t.logger.Info("Discarding short session",
			"samples", len(t.samples), "min", t.config.Session.MinSamples)
		meterSessionsDiscarded.Inc(1)
		return "", false
	}

	last := t.samples[len(t.samples)-1]
	summary := tcx.Summary{
		StartTime:     t.startTime,
		TotalSeconds:  last.Time.Sub(t.startTime).Seconds(),
		TotalMeters:   last.DistanceM,
		TotalCalories: last.Calories,
		AvgSpeedKmh:   avgPositiveSpeed(t.samples),
	}
	act := t.resolveActivity(summary.AvgSpeedKmh)

	smoothed := smooth.Smooth(t.samples, t.config.Smooth)
	content, err := tcx.Encode(smoothed, summary, act)
	if err != nil {
		t.logger.Error("Failed to encode workout", "error", err)
		return "", false
	}

	// The durable write is the only recovery point. If it fails the
	// session is gone; there is no other record.
	path, err = t.flat.WriteWorkout(t.startTime, content)
	if err != nil {
		t.logger.Error("SESSION LOST: failed durable workout write", "error", err)
		return "", false
	}

	t.lastSummary = summary
	t.lastActivity = act
	t.lastPath = path
	t.lastWorkout = &events.Workout{
		Path:        path,
		Start:       summary.StartTime,
		DistanceM:   common.DecimalToFixed(summary.TotalMeters, 1),
		DurationSec: common.DecimalToFixed(summary.TotalSeconds, 1),
		Calories:    summary.TotalCalories,
		AvgSpeedKmh: common.DecimalToFixed(summary.AvgSpeedKmh, 2),
		Activity:    act.String(),
		Summary: fmt.Sprintf("%.1f km, %.0f min",
			summary.TotalMeters/1000, summary.TotalSeconds/60),
	}
	meterSessionsFinished.Inc(1)
	t.logger.Info("Encoded workout",
		"points", len(smoothed), "summary", t.lastWorkout.Summary, "path", filepath.Base(path))

	// Feed subscribers marshal off the tracker's lock; hand them a
	// copy so the later ActivityURL write stays private.
	wo := *t.lastWorkout
	events.WorkoutFeed.Send(&wo)
	if params.AWS_BUCKETNAME != "" {
		go store.ArchiveS3(filepath.Base(path), []byte(content))
	}
	if params.INFLUXDB_URL != "" {
		workout := *t.lastWorkout
		go func() {
			if err := influxdb.ExportWorkout(&workout); err != nil {
				t.logger.Warn("Failed to export workout to influxdb", "error", err)
			}
		}()
	}
	return path, true
}

func avgPositiveSpeed(samples []telemetry.RawSample) float64 {
	speeds := []float64{}
	for _, s := range samples {
		if s.SpeedKmh > 0 {
			speeds = append(speeds, s.SpeedKmh)
		}
	}
	mean, err := stats.Mean(stats.Float64Data(speeds))
	if err != nil {
		return 0
	}
	return mean
}

func (t *Tracker) resolveActivity(avgSpeedKmh float64) activity.Activity {
	configured := t.config.ActivityType
	if configured == "" || configured == "auto" {
		return activity.DetectForMachine(t.config.MachineType, avgSpeedKmh)
	}
	return activity.FromString(configured)
}

func (t *Tracker) resetLocked() {
	t.samples = nil
	t.consecutive = 0
	t.lastSpeed = 0
	t.lastDistance = 0
	t.lastElapsed = -1
	t.lastCalories = 0
}

// uploadAndIdle runs the automatic post-session upload. Failures are
// logged only; the user-visible effect is the state returning to idle
// with the file left on disk for the startup retry pass.
func (t *Tracker) uploadAndIdle(path string) {
	if err := t.uploadFile(context.Background(), path, true); err != nil {
		t.logger.Error("Upload failed, workout kept for retry",
			"file", filepath.Base(path), "error", err)
	}
	t.mu.Lock()
	t.setStateLocked(events.StateIdle)
	t.mu.Unlock()
}

// uploadFile pushes one stored workout. Only success and benign
// duplicates delete the file; every other failure retains it.
// cached selects the cached summary metrics (live session) over
// zero-value defaults (startup retry of an orphaned file).
func (t *Tracker) uploadFile(ctx context.Context, path string, cached bool) error {
	content, err := t.flat.Read(path)
	if err != nil {
		return err
	}

	var act activity.Activity
	var distanceM, durationSec float64
	if cached {
		t.mu.Lock()
		act = t.lastActivity
		distanceM = t.lastSummary.TotalMeters
		durationSec = t.lastSummary.TotalSeconds
		t.mu.Unlock()
	} else {
		act = t.resolveActivity(0)
	}

	req := &strava.UploadRequest{
		Filename:     filepath.Base(path),
		Content:      content,
		Activity:     act,
		Name:         t.buildActivityName(act, distanceM, durationSec),
		HideFromHome: t.config.HideFromHome,
		Private:      t.config.Private,
		GearID:       t.config.GearID,
	}

	activityURL, err := t.uploader.Upload(ctx, req)
	if err != nil {
		if strava.IsBenign(err) {
			// Already exists remotely under another upload. Done;
			// delete the local copy, never retry.
			meterUploadsDuplicate.Inc(1)
			t.logger.Warn("Duplicate activity, removing local copy", "file", filepath.Base(path))
			return t.flat.Remove(path)
		}
		meterUploadsFailed.Inc(1)
		return err
	}

	meterUploadsOK.Inc(1)
	if err := t.flat.Remove(path); err != nil {
		t.logger.Warn("Failed to remove uploaded workout", "file", path, "error", err)
	}
	t.mu.Lock()
	if t.lastWorkout != nil && t.lastPath == path {
		t.lastWorkout.ActivityURL = activityURL
		t.lastPath = ""
	}
	t.mu.Unlock()
	if t.journal != nil {
		entry := store.JournalEntry{
			Filename:    filepath.Base(path),
			ActivityURL: activityURL,
			UploadedAt:  t.now(),
		}
		if cached {
			entry.Start = t.lastSummary.StartTime
		}
		if err := t.journal.Record(entry); err != nil {
			t.logger.Warn("Failed to journal upload", "error", err)
		}
	}
	return nil
}

// buildActivityName renders the configured name template.
func (t *Tracker) buildActivityName(act activity.Activity, distanceM, durationSec float64) string {
	return strings.NewReplacer(
		"{activity}", act.String(),
		"{device}", t.config.DeviceName,
		"{date}", t.now().Format("2006-01-02"),
		"{distance_km}", fmt.Sprintf("%.1f", distanceM/1000),
		"{duration_min}", fmt.Sprintf("%.0f", durationSec/60),
	).Replace(t.config.NameTemplate)
}

// OnDisconnect force-finishes an active recording when the telemetry
// source drops. The encode and durable write happen synchronously;
// upload is deferred to the startup retry pass.
func (t *Tracker) OnDisconnect() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != events.StateRecording {
		return
	}
	t.logger.Warn("Telemetry source disconnected during recording, saving session")
	t.cooldownUntil = t.now().Add(t.config.Session.EndCooldown)
	if path, ok := t.finishRecordingLocked(); ok {
		t.logger.Warn("Saved workout for upload on next start", "file", filepath.Base(path))
	}
	t.setStateLocked(events.StateIdle)
}

// UploadLast re-uploads the most recently finished workout on demand,
// reusing the cached summary metrics. Errors surface to the caller.
func (t *Tracker) UploadLast(ctx context.Context) error {
	if t.uploader == nil {
		return errors.New("session: strava not configured")
	}
	t.mu.Lock()
	if t.state != events.StateIdle {
		t.mu.Unlock()
		return ErrBusy
	}
	path := t.lastPath
	if path == "" {
		t.mu.Unlock()
		return ErrNoWorkout
	}
	t.setStateLocked(events.StateUploading)
	t.mu.Unlock()

	err := t.uploadFile(ctx, path, true)

	t.mu.Lock()
	t.setStateLocked(events.StateIdle)
	t.mu.Unlock()
	return err
}

// UploadPending is the startup retry pass: every orphaned workout file
// is attempted in chronological order, stopping at the first hard
// failure to bound wasted work while the service is down.
func (t *Tracker) UploadPending(ctx context.Context) error {
	if t.uploader == nil {
		return nil
	}
	pending, err := t.flat.ListPending()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		return nil
	}
	t.logger.Info("Found pending workout files", "n", len(pending))
	for _, path := range pending {
		if err := t.uploadFile(ctx, path, false); err != nil {
			t.logger.Error("Retry pass stopped at first failure",
				"file", filepath.Base(path), "error", err)
			return err
		}
		t.logger.Info("Uploaded pending workout", "file", filepath.Base(path))
	}
	return nil
}
