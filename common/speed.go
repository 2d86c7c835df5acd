package common

// Machine speeds are reported in km/h; TCX wants m/s.
const (
	KmhPerMs = 3.6
)

// SpeedOfWalkingMax marks the treadmill walk/run boundary, km/h.
// Brisk walkers top out around 6.4 km/h; anything sustained above
// that on a treadmill belt is a run.
const SpeedOfWalkingMax = 6.0

func KmhToMs(kmh float64) float64 { return kmh / KmhPerMs }

func MsToKmh(ms float64) float64 { return ms * KmhPerMs }
