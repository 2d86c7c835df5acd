// Package smooth reconstructs a clean trackpoint series from noisy,
// low-resolution machine samples.
//
// Machine distance reports are quantized, typically whole-meter values
// held constant over several notifications, so the raw trace is a
// staircase. The pipeline trims the motionless ramp-up, linearly
// interpolates distance across the staircase steps, thins the result
// to a fixed interval, and recomputes speed from the smoothed distance
// so that speed and distance agree.
package smooth

import (
	"time"

	"github.com/rotblauer/ftmsd/common"
	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

// Smooth runs the full pipeline on one finished session's raw trace.
// Input must be ordered by time. Pure; the input slice is not mutated.
func Smooth(samples []telemetry.RawSample, config *params.SmoothConfig) []telemetry.RawSample {
	if config == nil {
		config = params.DefaultSmoothConfig
	}
	out := TrimLeadingZeros(samples)
	if len(out) < 2 {
		return out
	}
	out = InterpolateDistance(out)
	out = Downsample(out, config.DownsampleInterval)
	recomputeSpeeds(out)
	return out
}

// TrimLeadingZeros drops every leading sample with zero distance,
// keeping the first moving sample as the new start. Belts report a
// handful of zero-distance notifications while spinning up.
func TrimLeadingZeros(samples []telemetry.RawSample) []telemetry.RawSample {
	for i := range samples {
		if samples[i].DistanceM > 0 {
			return append([]telemetry.RawSample{}, samples[i:]...)
		}
	}
	return append([]telemetry.RawSample{}, samples...)
}

// InterpolateDistance rewrites distances between change points (indices
// where the reported distance strictly increases from the previous
// change point, always including index 0) as a linear function of
// wall-clock time. Segments with non-positive elapsed time are left
// unmodified. Fewer than 2 change points returns the input unchanged.
func InterpolateDistance(samples []telemetry.RawSample) []telemetry.RawSample {
	out := append([]telemetry.RawSample{}, samples...)

	changes := []int{0}
	for i := 1; i < len(out); i++ {
		if out[i].DistanceM > out[changes[len(changes)-1]].DistanceM {
			changes = append(changes, i)
		}
	}
	if len(changes) < 2 {
		return out
	}

	for c := 0; c < len(changes)-1; c++ {
		start, end := changes[c], changes[c+1]
		tStart, tEnd := out[start].Time, out[end].Time
		span := tEnd.Sub(tStart).Seconds()
		if span <= 0 {
			continue
		}
		dStart, dEnd := out[start].DistanceM, out[end].DistanceM
		for i := start + 1; i < end; i++ {
			frac := out[i].Time.Sub(tStart).Seconds() / span
			out[i].DistanceM = dStart + frac*(dEnd-dStart)
		}
	}
	return out
}

// Downsample keeps a sample only if at least interval has elapsed since
// the last kept sample, starting from the first. The final sample is
// always kept; when it falls inside the interval window it replaces the
// previous keep rather than adding an extra sample.
func Downsample(samples []telemetry.RawSample, interval time.Duration) []telemetry.RawSample {
	if len(samples) == 0 {
		return samples
	}
	out := []telemetry.RawSample{samples[0]}
	lastKept := samples[0].Time
	for i := 1; i < len(samples); i++ {
		if samples[i].Time.Sub(lastKept) >= interval {
			out = append(out, samples[i])
			lastKept = samples[i].Time
		}
	}
	last := samples[len(samples)-1]
	if !out[len(out)-1].Time.Equal(last.Time) {
		if len(out) > 1 {
			out[len(out)-1] = last
		} else {
			out = append(out, last)
		}
	}
	return out
}

// recomputeSpeeds derives speed from the smoothed distance deltas,
// discarding the machine's reported instantaneous speed. The first
// sample borrows the second's speed; a singleton gets zero.
func recomputeSpeeds(samples []telemetry.RawSample) {
	for i := 1; i < len(samples); i++ {
		dt := samples[i].Time.Sub(samples[i-1].Time).Seconds()
		if dt <= 0 {
			samples[i].SpeedKmh = 0
			continue
		}
		dd := samples[i].DistanceM - samples[i-1].DistanceM
		samples[i].SpeedKmh = common.MsToKmh(dd / dt)
	}
	if len(samples) > 1 {
		samples[0].SpeedKmh = samples[1].SpeedKmh
	} else if len(samples) == 1 {
		samples[0].SpeedKmh = 0
	}
}
