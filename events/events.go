package events

import (
	"time"

	"github.com/ethereum/go-ethereum/event"
)

// SessionState is the lifecycle state of the one in-flight session.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRecording
	StateUploading
)

func (s SessionState) String() string {
	switch s {
	case StateRecording:
		return "recording"
	case StateUploading:
		return "uploading"
	}
	return "idle"
}

// Transition is emitted exactly once per actual state change, never on
// a no-op self-transition. Presentation layers re-render on each one.
type Transition struct {
	From SessionState `json:"from"`
	To   SessionState `json:"to"`
	Time time.Time    `json:"time"`
}

// Workout is emitted when a session finishes encoding, whether or not
// its upload subsequently succeeds.
type Workout struct {
	Path        string    `json:"path"`
	Start       time.Time `json:"start"`
	DistanceM   float64   `json:"distance_m"`
	DurationSec float64   `json:"duration_sec"`
	Calories    int       `json:"calories"`
	AvgSpeedKmh float64   `json:"avg_speed_kmh"`
	Activity    string    `json:"activity"`
	ActivityURL string    `json:"activity_url,omitempty"`
	Summary     string    `json:"summary"`
}

// TransitionFeed carries every session state transition.
var TransitionFeed = event.FeedOf[Transition]{}

// WorkoutFeed carries every finished (encoded) workout.
var WorkoutFeed = event.FeedOf[*Workout]{}
