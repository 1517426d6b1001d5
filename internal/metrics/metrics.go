// Package metrics tracks security validation counters and latency samples.
package metrics

import (
	"sync"
	"time"
)

// maxDurationSamples bounds the rolling window of validation durations.
const maxDurationSamples = 1000

// Snapshot is a point-in-time copy of all security counters.
type Snapshot struct {
	PathTraversalAttempts   uint64  `json:"path_traversal_attempts"`
	OversizedInputAttempts  uint64  `json:"oversized_input_attempts"`
	CommandInjectionAttempt uint64  `json:"command_injection_attempts"`
	SensitiveDataDetections uint64  `json:"sensitive_data_detections"`
	BlockedOperations       uint64  `json:"blocked_operations"`
	TotalValidations        uint64  `json:"total_validations"`
	AverageValidationMs     float64 `json:"average_validation_ms"`
	DurationSamples         int     `json:"duration_samples"`
}

// Add accumulates the counters of another snapshot into this one.
// Latency aggregates are combined as a weighted average.
func (s *Snapshot) Add(other Snapshot) {
	s.PathTraversalAttempts += other.PathTraversalAttempts
	s.OversizedInputAttempts += other.OversizedInputAttempts
	s.CommandInjectionAttempt += other.CommandInjectionAttempt
	s.SensitiveDataDetections += other.SensitiveDataDetections
	s.BlockedOperations += other.BlockedOperations
	s.TotalValidations += other.TotalValidations

	total := s.DurationSamples + other.DurationSamples
	if total > 0 {
		s.AverageValidationMs = (s.AverageValidationMs*float64(s.DurationSamples) +
			other.AverageValidationMs*float64(other.DurationSamples)) / float64(total)
	}
	s.DurationSamples = total
}

// Recorder collects security counters and a rolling window of validation
// durations. All methods are safe for concurrent use.
type Recorder struct {
	mu        sync.Mutex
	counts    Snapshot
	durations []time.Duration
}

// NewRecorder creates a new recorder with all counters at zero.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// RecordPathTraversal counts a rejected path traversal attempt.
func (r *Recorder) RecordPathTraversal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.PathTraversalAttempts++
}

// RecordOversizedInput counts an input that exceeded the size ceiling.
func (r *Recorder) RecordOversizedInput() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.OversizedInputAttempts++
}

// RecordCommandInjection counts a rejected or suspicious shell argument.
func (r *Recorder) RecordCommandInjection() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.CommandInjectionAttempt++
}

// RecordSensitiveData counts sensitive substrings found during sanitization.
func (r *Recorder) RecordSensitiveData(findings int) {
	if findings <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.SensitiveDataDetections += uint64(findings)
}

// RecordBlocked counts an operation that was denied.
func (r *Recorder) RecordBlocked() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.BlockedOperations++
}

// RecordValidation counts a completed validation and records its duration
// in the rolling sample window.
func (r *Recorder) RecordValidation(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts.TotalValidations++
	r.durations = append(r.durations, d)
	if len(r.durations) > maxDurationSamples {
		r.durations = r.durations[len(r.durations)-maxDurationSamples:]
	}
}

// TimeValidation starts a scoped timer. The returned function records the
// elapsed time as a validation duration; call it with defer.
func (r *Recorder) TimeValidation() func() {
	start := time.Now()
	return func() {
		r.RecordValidation(time.Since(start))
	}
}

// Snapshot returns a copy of the current counters with the average
// validation latency computed over the sample window.
func (r *Recorder) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot := r.counts
	snapshot.DurationSamples = len(r.durations)
	if len(r.durations) > 0 {
		var total time.Duration
		for _, d := range r.durations {
			total += d
		}
		snapshot.AverageValidationMs = float64(total.Microseconds()) / float64(len(r.durations)) / 1000.0
	}
	return snapshot
}

// Reset clears all counters and duration samples.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts = Snapshot{}
	r.durations = nil
}
