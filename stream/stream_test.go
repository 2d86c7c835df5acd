package stream

import (
	"context"
	"slices"
	"strings"
	"sync/atomic"
	"testing"
)

func divideByTwo(n int) int {
	return n / 2
}

func isNonZero(n int) bool {
	return n != 0
}

func TestStream1(t *testing.T) {
	data := []int{0, 2, 4, 6, 8}
	ctx := context.Background()
	myStream := Slice(ctx, data)
	result := Collect(ctx,
		Transform(ctx, divideByTwo,
			Filter(ctx, isNonZero,
				myStream)))

	if !slices.Equal([]int{1, 2, 3, 4}, result) {
		t.Errorf("Expected [1, 2, 3, 4], got %v", result)
	}
}

func TestNDJSON(t *testing.T) {
	type line struct {
		N int `json:"n"`
	}
	in := strings.NewReader(`{"n":1}
not json at all
{"n":2}
{"n":
{"n":3}
`)
	ctx := context.Background()
	result := Collect(ctx, NDJSON[line](ctx, in))
	want := []line{{1}, {2}, {3}}
	if !slices.Equal(want, result) {
		t.Errorf("Expected %v, got %v", want, result)
	}
}

func TestSink(t *testing.T) {
	data := []int{1, 2, 3, 4, 5}
	ctx := context.Background()
	var sum atomic.Int64
	Sink(ctx, func(n int) { sum.Add(int64(n)) }, Slice(ctx, data))
	if sum.Load() != 15 {
		t.Errorf("Expected 15, got %v", sum.Load())
	}
}

func TestSliceContextCancel(t *testing.T) {
	data := make([]int, 1000)
	ctx, cancel := context.WithCancel(context.Background())
	s := Slice(ctx, data)
	<-s
	cancel()
	// The producer goroutine stops; the channel drains and closes.
	for range s {
	}
}
