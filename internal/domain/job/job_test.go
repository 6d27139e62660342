package job

import (
	"testing"
	"time"
)

func TestNew_Defaults(t *testing.T) {
	j := New(CreateRequest{Type: "index_doctor"})

	if j.Status != StatusPending || j.MaxAttempts != DefaultMaxAttempts {
		t.Fatalf("status=%s max=%d", j.Status, j.MaxAttempts)
	}
	if j.RunAt.IsZero() || !j.RunAt.Equal(j.CreatedAt) {
		t.Fatalf("run_at = %v, created_at = %v", j.RunAt, j.CreatedAt)
	}

	later := time.Date(2026, 5, 1, 12, 0, 0, 0, time.FixedZone("WAT", 3600))
	j = New(CreateRequest{Type: "index_doctor", RunAt: later, MaxAttempts: 3})
	if j.RunAt.Location() != time.UTC || !j.RunAt.Equal(later) || j.MaxAttempts != 3 {
		t.Fatalf("run_at = %v max = %d", j.RunAt, j.MaxAttempts)
	}
}

func TestJob_LastAttempt(t *testing.T) {
	tests := []struct {
		attempts, max int
		want          bool
	}{
		{0, 3, false},
		{1, 3, false},
		{2, 3, true},
		{0, 1, true},
	}
	for _, tt := range tests {
		if got := (Job{Attempts: tt.attempts, MaxAttempts: tt.max}).LastAttempt(); got != tt.want {
			t.Fatalf("attempts=%d max=%d: got %v", tt.attempts, tt.max, got)
		}
	}
}
