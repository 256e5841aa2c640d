package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy names accepted by Delay.
const (
	PolicyFixed         = "fixed"
	PolicyLinear        = "linear"
	PolicyExponential   = "exponential"
	PolicyExpEqualJit   = "exp_equal_jitter"
	PolicyExpFullJitter = "exp_full_jitter"
)

// Delay returns the wait before retry number attempt (0-based).
// base and max are normalized to sane values, so callers can pass raw config.
func Delay(policy string, base, max time.Duration, attempt int, rng *rand.Rand) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if base <= 0 {
		base = time.Second
	}
	if max <= 0 {
		max = base
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}

	switch policy {
	case PolicyFixed:
		return minDur(base, max)
	case PolicyLinear:
		n := attempt
		if n < 1 {
			n = 1
		}
		return minDur(base*time.Duration(n), max)
	case PolicyExponential:
		return expDelay(base, max, attempt)
	case PolicyExpEqualJit:
		d := expDelay(base, max, attempt)
		half := d / 2
		return half + time.Duration(rng.Int63n(int64(half)+1))
	default: // exp_full_jitter
		d := expDelay(base, max, attempt)
		if d <= 0 {
			return 0
		}
		return time.Duration(rng.Int63n(int64(d) + 1))
	}
}

func expDelay(base, max time.Duration, attempt int) time.Duration {
	f := float64(base) * math.Pow(2, float64(attempt))
	if f > float64(max) || f < 0 {
		return max
	}
	return time.Duration(f)
}

func minDur(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
