package smooth

import (
	"math"
	"testing"
	"time"

	"github.com/rotblauer/ftmsd/params"
	"github.com/rotblauer/ftmsd/types/telemetry"
)

var t0 = time.Date(2024, 11, 18, 17, 54, 0, 0, time.UTC)

func samplesAt(offsetsSec []int, distances []float64) []telemetry.RawSample {
	out := make([]telemetry.RawSample, len(offsetsSec))
	for i := range offsetsSec {
		out[i] = telemetry.RawSample{
			Time:      t0.Add(time.Duration(offsetsSec[i]) * time.Second),
			DistanceM: distances[i],
		}
	}
	return out
}

func TestSmoothCleanInputUnchanged(t *testing.T) {
	// Strictly increasing, evenly spaced, >=5s apart: nothing to fix.
	in := samplesAt([]int{0, 5, 10, 15, 20}, []float64{10, 20, 30, 40, 50})
	out := Smooth(in, params.DefaultSmoothConfig)
	if len(out) != len(in) {
		t.Fatalf("have %d samples want %d", len(out), len(in))
	}
	for i := range out {
		if out[i].DistanceM != in[i].DistanceM {
			t.Errorf("sample %d: have distance %v want %v", i, out[i].DistanceM, in[i].DistanceM)
		}
	}
}

func TestTrimLeadingZeros(t *testing.T) {
	in := samplesAt([]int{0, 1, 2, 3, 4}, []float64{0, 0, 0, 5, 6})
	out := TrimLeadingZeros(in)
	if len(out) != 2 {
		t.Fatalf("have %d samples want 2", len(out))
	}
	if out[0].DistanceM != 5 {
		t.Errorf("have first distance %v want 5", out[0].DistanceM)
	}
}

func TestTrimAllZeros(t *testing.T) {
	in := samplesAt([]int{0, 1, 2}, []float64{0, 0, 0})
	out := TrimLeadingZeros(in)
	if len(out) != 3 {
		t.Errorf("have %d samples want 3 (unmodified)", len(out))
	}
}

func TestInterpolateAcrossJump(t *testing.T) {
	// Quantized staircase: distance held at 10 for three seconds, then
	// jumps to 20 at t=3. Interior samples interpolate linearly.
	in := samplesAt([]int{0, 1, 2, 3}, []float64{10, 10, 10, 20})
	out := InterpolateDistance(in)
	wants := []float64{10, 13.333333, 16.666667, 20}
	for i, want := range wants {
		if math.Abs(out[i].DistanceM-want) > 0.001 {
			t.Errorf("sample %d: have distance %v want %v", i, out[i].DistanceM, want)
		}
	}
	// Input not mutated.
	if in[1].DistanceM != 10 {
		t.Errorf("input mutated: have %v want 10", in[1].DistanceM)
	}
}

func TestInterpolateNoChangePoints(t *testing.T) {
	in := samplesAt([]int{0, 1, 2}, []float64{10, 10, 10})
	out := InterpolateDistance(in)
	for i := range out {
		if out[i].DistanceM != 10 {
			t.Errorf("sample %d: have distance %v want 10", i, out[i].DistanceM)
		}
	}
}

func TestInterpolateZeroTimeSegment(t *testing.T) {
	// Two samples on the same instant guard the divide-by-zero path.
	in := []telemetry.RawSample{
		{Time: t0, DistanceM: 10},
		{Time: t0, DistanceM: 10},
		{Time: t0, DistanceM: 20},
	}
	out := InterpolateDistance(in)
	if out[1].DistanceM != 10 {
		t.Errorf("have %v want 10 (segment unmodified)", out[1].DistanceM)
	}
}

func TestDownsampleForceKeepLast(t *testing.T) {
	// 12 samples, 1s apart, 11s span: keeps t=0 and t=5; the final
	// sample at t=11 is inside the 5s window and replaces the t=10
	// keep instead of riding along as a fourth sample.
	offsets := make([]int, 12)
	distances := make([]float64, 12)
	for i := range offsets {
		offsets[i] = i
		distances[i] = float64(i + 1)
	}
	in := samplesAt(offsets, distances)
	out := Downsample(in, 5*time.Second)
	if len(out) != 3 {
		t.Fatalf("have %d samples want 3", len(out))
	}
	for i, wantSec := range []int{0, 5, 11} {
		want := t0.Add(time.Duration(wantSec) * time.Second)
		if !out[i].Time.Equal(want) {
			t.Errorf("sample %d: have %v want %v", i, out[i].Time, want)
		}
	}
}

func TestDownsampleFinalOnBoundary(t *testing.T) {
	// Final sample lands exactly on the interval boundary: kept by the
	// regular rule, no replacement.
	in := samplesAt([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11})
	out := Downsample(in, 5*time.Second)
	if len(out) != 3 {
		t.Fatalf("have %d samples want 3", len(out))
	}
	if !out[2].Time.Equal(t0.Add(10 * time.Second)) {
		t.Errorf("have last at %v want %v", out[2].Time, t0.Add(10*time.Second))
	}
}

func TestDownsampleTwoCloseSamples(t *testing.T) {
	// With only the first sample kept, the final appends rather than
	// replacing the start.
	in := samplesAt([]int{0, 3}, []float64{1, 2})
	out := Downsample(in, 5*time.Second)
	if len(out) != 2 {
		t.Fatalf("have %d samples want 2", len(out))
	}
	if !out[0].Time.Equal(t0) || !out[1].Time.Equal(t0.Add(3*time.Second)) {
		t.Errorf("have times %v %v want %v %v", out[0].Time, out[1].Time, t0, t0.Add(3*time.Second))
	}
}

func TestSmoothRecomputesSpeed(t *testing.T) {
	// 10 m every 5 s = 2 m/s = 7.2 km/h, regardless of reported speed.
	in := samplesAt([]int{0, 5, 10}, []float64{10, 20, 30})
	for i := range in {
		in[i].SpeedKmh = 99
	}
	out := Smooth(in, params.DefaultSmoothConfig)
	for i, s := range out {
		if math.Abs(s.SpeedKmh-7.2) > 0.001 {
			t.Errorf("sample %d: have speed %v want 7.2", i, s.SpeedKmh)
		}
	}
}

func TestSmoothSingleMovingSample(t *testing.T) {
	in := samplesAt([]int{0, 1}, []float64{0, 5})
	out := Smooth(in, nil)
	if len(out) != 1 {
		t.Fatalf("have %d samples want 1", len(out))
	}
	if out[0].SpeedKmh != 0 {
		t.Errorf("have speed %v want 0", out[0].SpeedKmh)
	}
}

func TestSmoothDeterministic(t *testing.T) {
	in := samplesAt([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		[]float64{0, 0, 10, 10, 10, 20, 20, 30, 30, 30, 40})
	a := Smooth(in, params.DefaultSmoothConfig)
	b := Smooth(in, params.DefaultSmoothConfig)
	if len(a) != len(b) {
		t.Fatalf("have %d want %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("sample %d: have %v want %v", i, a[i], b[i])
		}
	}
}
