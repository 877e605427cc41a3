package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/ifgrid/internal/manifest"
)

// Sleeper is a shared plugin for concurrency tests. It records the execution
// window of every call, keyed by the "id" field of the first input record.
type Sleeper struct {
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewSleeper creates a new sleeper plugin for testing.
func NewSleeper(completionChan chan<- string, sleep time.Duration) *Sleeper {
	return &Sleeper{
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Execute implements registry.Plugin. Inputs are passed through unchanged.
func (s *Sleeper) Execute(ctx context.Context, inputs []manifest.Record, _ any) ([]manifest.Record, error) {
	id := ""
	if len(inputs) > 0 {
		id = fmt.Sprint(inputs[0]["id"])
	}

	startTime := time.Now()
	select {
	case <-time.After(s.sleepDuration):
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	endTime := time.Now()

	s.mu.Lock()
	s.ExecutionTimes[id] = &ExecutionRecord{Start: startTime, End: endTime}
	s.mu.Unlock()

	if s.completionChan != nil {
		s.completionChan <- id
	}
	return manifest.CloneRecords(inputs), nil
}

// Record returns the execution window recorded for id.
func (s *Sleeper) Record(id string) (ExecutionRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.ExecutionTimes[id]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *r, true
}
