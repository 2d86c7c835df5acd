package telemetry

import (
	"errors"
	"testing"
	"time"
)

func TestDecodeEventSparseFields(t *testing.T) {
	received := time.Date(2024, 11, 18, 17, 54, 0, 0, time.UTC)
	e, err := DecodeEvent([]byte(`{"time_elapsed":12,"distance_total":34}`), received)
	if err != nil {
		t.Fatal(err)
	}
	if e.ElapsedTime == nil || *e.ElapsedTime != 12 {
		t.Errorf("have elapsed %v want 12", e.ElapsedTime)
	}
	if e.DistanceTotal == nil || *e.DistanceTotal != 34 {
		t.Errorf("have distance %v want 34", e.DistanceTotal)
	}
	if e.SpeedInstant != nil {
		t.Errorf("have speed %v want nil (absent)", *e.SpeedInstant)
	}
	if e.EnergyTotal != nil {
		t.Errorf("have energy %v want nil (absent)", *e.EnergyTotal)
	}
	if !e.Time.Equal(received) {
		t.Errorf("have time %v want receipt time %v", e.Time, received)
	}
}

func TestDecodeEventZeroIsNotAbsent(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"time_elapsed":0}`), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if e.ElapsedTime == nil {
		t.Fatal("have nil elapsed want explicit 0")
	}
	if *e.ElapsedTime != 0 {
		t.Errorf("have elapsed %v want 0", *e.ElapsedTime)
	}
}

func TestDecodeEventExplicitTime(t *testing.T) {
	e, err := DecodeEvent([]byte(`{"time":"2024-11-18T17:54:03Z","speed_instant":8.5}`), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	want := time.Date(2024, 11, 18, 17, 54, 3, 0, time.UTC)
	if !e.Time.Equal(want) {
		t.Errorf("have time %v want %v", e.Time, want)
	}
	if e.SpeedInstant == nil || *e.SpeedInstant != 8.5 {
		t.Errorf("have speed %v want 8.5", e.SpeedInstant)
	}
}

func TestDecodeEventInvalidJSON(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"time_elapsed":`), time.Now())
	if !errors.Is(err, ErrInvalidEvent) {
		t.Errorf("have %v want ErrInvalidEvent", err)
	}
}

func TestDedupeLRUFunc(t *testing.T) {
	dedupe := NewDedupeLRUFunc()
	el := 12.0
	a := Event{Time: time.Unix(100, 0), ElapsedTime: &el}
	if !dedupe(a) {
		t.Error("have false want true for first sighting")
	}
	if dedupe(a) {
		t.Error("have true want false for replay")
	}
	el2 := 13.0
	b := a
	b.ElapsedTime = &el2
	if !dedupe(b) {
		t.Error("have false want true for differing event")
	}
}
