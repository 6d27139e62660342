package observability

import (
	"sync"
	"time"
)

// Job results as recorded in carehub_jobs_results_total.
const (
	JobResultDone         = "done"
	JobResultRetry        = "retry"
	JobResultDeadLettered = "dead_lettered"
)

// JobStats are the in-process counters served on the worker's /stats route.
type JobStats struct {
	Claimed         uint64        `json:"claimed"`
	Done            uint64        `json:"done"`
	Failed          uint64        `json:"failed"`
	Retried         uint64        `json:"retried"`
	DeadLettered    uint64        `json:"deadLettered"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`

	durationTotal time.Duration
	durationCount uint64
}

func (s *JobStats) observe(d time.Duration) {
	s.durationCount++
	s.durationTotal += d
	if d > s.MaxDuration {
		s.MaxDuration = d
	}
}

func (s JobStats) finalize() JobStats {
	if s.durationCount > 0 {
		s.AverageDuration = s.durationTotal / time.Duration(s.durationCount)
	}
	return s
}

type JobMetricsSnapshot struct {
	JobStats
	ByType map[string]JobStats `json:"byType"`
}

// JobMetrics tracks job outcomes per job type. When prom is set the same
// events feed the jobs_* collectors.
type JobMetrics struct {
	prom *Prom

	mu     sync.Mutex
	byType map[string]*JobStats
}

func NewJobMetrics(prom *Prom) *JobMetrics {
	return &JobMetrics{prom: prom, byType: map[string]*JobStats{}}
}

func (m *JobMetrics) stats(jobType string) *JobStats {
	s, ok := m.byType[jobType]
	if !ok {
		s = &JobStats{}
		m.byType[jobType] = s
	}
	return s
}

func (m *JobMetrics) Claimed(jobType string) {
	m.mu.Lock()
	m.stats(jobType).Claimed++
	m.mu.Unlock()

	if m.prom != nil {
		m.prom.JobsInFlight.Inc()
	}
}

// Finished records one execution. failed counts the attempt as failed; result
// says what happened to the job afterwards.
func (m *JobMetrics) Finished(jobType, result string, failed bool, d time.Duration) {
	m.mu.Lock()
	s := m.stats(jobType)
	s.observe(d)
	if failed {
		s.Failed++
	}
	switch result {
	case JobResultDone:
		s.Done++
	case JobResultRetry:
		s.Retried++
	case JobResultDeadLettered:
		s.DeadLettered++
	}
	m.mu.Unlock()

	if m.prom != nil {
		m.prom.JobsInFlight.Dec()
		m.prom.JobResults.WithLabelValues(jobType, result).Inc()
		m.prom.JobDuration.WithLabelValues(jobType, result).Observe(d.Seconds())
	}
}

func (m *JobMetrics) Snapshot() JobMetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	var total JobStats
	byType := make(map[string]JobStats, len(m.byType))

	for t, s := range m.byType {
		byType[t] = s.finalize()

		total.Claimed += s.Claimed
		total.Done += s.Done
		total.Failed += s.Failed
		total.Retried += s.Retried
		total.DeadLettered += s.DeadLettered
		total.durationCount += s.durationCount
		total.durationTotal += s.durationTotal
		if s.MaxDuration > total.MaxDuration {
			total.MaxDuration = s.MaxDuration
		}
	}

	return JobMetricsSnapshot{JobStats: total.finalize(), ByType: byType}
}
