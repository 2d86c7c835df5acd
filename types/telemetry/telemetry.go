package telemetry

import (
	"errors"
	"time"

	"github.com/tidwall/gjson"
)

// Event is one parsed fitness-machine notification.
// Fields arrive sparsely: most notifications carry only elapsed time
// and total distance; instantaneous speed often appears once, at start.
// Nil means the field was absent from the notification.
type Event struct {
	Time          time.Time `json:"time"`
	ElapsedTime   *float64  `json:"time_elapsed,omitempty"`   // seconds
	DistanceTotal *float64  `json:"distance_total,omitempty"` // meters
	SpeedInstant  *float64  `json:"speed_instant,omitempty"`  // km/h
	EnergyTotal   *float64  `json:"energy_total,omitempty"`   // kcal
}

// DecodeEvent decodes one NDJSON line into an Event, distinguishing
// absent fields from zero values. Lines without a parseable time get
// the receipt time.
func DecodeEvent(data []byte, received time.Time) (*Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrInvalidEvent
	}
	parsed := gjson.ParseBytes(data)
	e := &Event{Time: received}
	if res := parsed.Get("time"); res.Exists() {
		if t, err := time.Parse(time.RFC3339, res.String()); err == nil {
			e.Time = t
		}
	}
	for key, dst := range map[string]**float64{
		"time_elapsed":   &e.ElapsedTime,
		"distance_total": &e.DistanceTotal,
		"speed_instant":  &e.SpeedInstant,
		"energy_total":   &e.EnergyTotal,
	} {
		if res := parsed.Get(key); res.Exists() {
			v := res.Float()
			*dst = &v
		}
	}
	return e, nil
}

var ErrInvalidEvent = errors.New("telemetry: invalid event JSON")

func (e *Event) MustTime() time.Time { return e.Time }

// RawSample is one appended observation while a session is recording.
// Absent event fields are carried forward from the last observed value.
type RawSample struct {
	Time      time.Time `json:"time"`
	DistanceM float64   `json:"distance_m"`
	SpeedKmh  float64   `json:"speed_kmh"`
	Calories  int       `json:"calories"`
}
