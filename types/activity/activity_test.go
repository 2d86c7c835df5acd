package activity

import "testing"

func TestFromString(t *testing.T) {
	cases := []struct {
		in   string
		want Activity
	}{
		{"walk", ActivityWalk},
		{"Run", ActivityRun},
		{"ride", ActivityRide},
		{"indoor cycling", ActivityRide},
		{"elliptical", ActivityElliptical},
		{"cross-trainer", ActivityElliptical},
		{"CrossTrainer", ActivityElliptical},
		{"rowing", ActivityRowing},
		{"auto", ActivityWorkout},
		{"", ActivityWorkout},
		{"yoga", ActivityWorkout},
	}
	for _, c := range cases {
		if got := FromString(c.in); got != c.want {
			t.Errorf("FromString(%q): have %v want %v", c.in, got, c.want)
		}
	}
}

func TestTCXSport(t *testing.T) {
	cases := []struct {
		in   Activity
		want string
	}{
		{ActivityRun, "Running"},
		{ActivityRide, "Biking"},
		{ActivityWalk, "Other"},
		{ActivityElliptical, "Other"},
		{ActivityRowing, "Other"},
		{ActivityWorkout, "Other"},
	}
	for _, c := range cases {
		if got := c.in.TCXSport(); got != c.want {
			t.Errorf("%v.TCXSport(): have %q want %q", c.in, got, c.want)
		}
	}
}

func TestDetectForMachine(t *testing.T) {
	cases := []struct {
		machine string
		speed   float64
		want    Activity
	}{
		{"treadmill", 4.5, ActivityWalk},
		{"treadmill", 6.0, ActivityRun},
		{"treadmill", 9.9, ActivityRun},
		{"cross_trainer", 12, ActivityElliptical},
		{"indoor_bike", 25, ActivityRide},
		{"rower", 10, ActivityRowing},
		{"stair_climber", 3, ActivityWorkout},
		{"", 3, ActivityWorkout},
	}
	for _, c := range cases {
		if got := DetectForMachine(c.machine, c.speed); got != c.want {
			t.Errorf("DetectForMachine(%q, %v): have %v want %v", c.machine, c.speed, got, c.want)
		}
	}
}
