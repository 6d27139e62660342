package worker

import (
	"math/rand/v2"
	"time"
)

const (
	backoffBase = 2 * time.Second
	backoffCap  = 5 * time.Minute
)

// ExponentialBackoff doubles the ceiling per attempt (2s, 4s, 8s, capped at
// 5m) and picks a delay in the upper half of it, so retries of jobs that
// failed together spread out.
func ExponentialBackoff(attempt int) time.Duration {
	attempt = max(attempt, 0)

	ceiling := backoffCap
	if attempt < 20 {
		ceiling = min(backoffBase<<attempt, backoffCap)
	}

	half := ceiling / 2
	return half + rand.N(half)
}
