package collector

import (
	"sync"
	"time"

	"debugbar/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// steps returns a clock that yields the given times in order and then keeps
// returning the last one.
func steps(times ...time.Time) func() time.Time {
	var mu sync.Mutex
	i := 0
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func heapSteps(values ...int64) func() int64 {
	var mu sync.Mutex
	i := 0
	return func() int64 {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v
	}
}

func stack(frames ...domain.Frame) func() []domain.Frame {
	return func() []domain.Frame { return frames }
}

func appFrame(file string, line int) domain.Frame {
	return domain.Frame{File: file, Line: line, Namespace: "example.com/app/store", Function: "Find"}
}

func durationPtr(d time.Duration) *time.Duration { return &d }

func int64Ptr(v int64) *int64 { return &v }
