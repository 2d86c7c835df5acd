package activity

import (
	"regexp"

	"github.com/rotblauer/ftmsd/common"
)

// Activity is a Strava-flavored activity type for a finished session.
type Activity int

const (
	ActivityWorkout Activity = iota
	ActivityWalk
	ActivityRun
	ActivityRide
	ActivityElliptical
	ActivityRowing
)

var AllActivityNames = []string{
	ActivityWorkout.String(),
	ActivityWalk.String(),
	ActivityRun.String(),
	ActivityRide.String(),
	ActivityElliptical.String(),
	ActivityRowing.String(),
}

var (
	activityWalk       = regexp.MustCompile(`(?i)walk`)
	activityRun        = regexp.MustCompile(`(?i)run`)
	activityRide       = regexp.MustCompile(`(?i)ride|bike|cycle|cycling`)
	activityElliptical = regexp.MustCompile(`(?i)elliptical|cross.?trainer`)
	activityRowing     = regexp.MustCompile(`(?i)row`)
)

// String implements the Stringer interface, yielding Strava's names.
func (a Activity) String() string {
	switch a {
	case ActivityWalk:
		return "Walk"
	case ActivityRun:
		return "Run"
	case ActivityRide:
		return "Ride"
	case ActivityElliptical:
		return "Elliptical"
	case ActivityRowing:
		return "Rowing"
	}
	return "Workout"
}

// FromString parses a configured activity-type string.
// Anything unrecognized (including "auto") is ActivityWorkout.
func FromString(str string) Activity {
	switch {
	case activityElliptical.MatchString(str):
		return ActivityElliptical
	case activityRowing.MatchString(str):
		return ActivityRowing
	case activityWalk.MatchString(str):
		return ActivityWalk
	case activityRun.MatchString(str):
		return ActivityRun
	case activityRide.MatchString(str):
		return ActivityRide
	}
	return ActivityWorkout
}

// TCXSport maps the activity onto the TCX Sport attribute.
// TCX knows only Running, Biking, and Other.
func (a Activity) TCXSport() string {
	switch a {
	case ActivityRun:
		return "Running"
	case ActivityRide:
		return "Biking"
	}
	return "Other"
}

// machineActivities maps a machine-type name onto slow/fast activities
// with an optional speed threshold between them (km/h). Only treadmills
// distinguish by speed; everything else is single-mode.
var machineActivities = map[string]struct {
	slow, fast Activity
	threshold  float64
}{
	"treadmill":     {ActivityWalk, ActivityRun, common.SpeedOfWalkingMax},
	"cross_trainer": {ActivityElliptical, ActivityElliptical, 0},
	"indoor_bike":   {ActivityRide, ActivityRide, 0},
	"rower":         {ActivityRowing, ActivityRowing, 0},
}

// DetectForMachine infers the activity type from the machine type and
// the session's average speed. Unknown machines yield ActivityWorkout.
func DetectForMachine(machineType string, avgSpeedKmh float64) Activity {
	m, ok := machineActivities[machineType]
	if !ok {
		return ActivityWorkout
	}
	if m.threshold > 0 && avgSpeedKmh >= m.threshold {
		return m.fast
	}
	return m.slow
}
