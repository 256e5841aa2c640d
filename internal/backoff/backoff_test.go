package backoff

import (
	"math/rand"
	"testing"
	"time"
)

func TestDelayFixed(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		max     time.Duration
		attempt int
		want    time.Duration
	}{
		{"base under max", 5 * time.Second, time.Minute, 0, 5 * time.Second},
		{"base over max", 2 * time.Minute, time.Minute, 3, time.Minute},
		{"attempt ignored", 5 * time.Second, time.Minute, 10, 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Delay(PolicyFixed, tt.base, tt.max, tt.attempt, nil); got != tt.want {
				t.Errorf("Delay() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDelayLinear(t *testing.T) {
	base := 2 * time.Second
	max := time.Minute
	if got := Delay(PolicyLinear, base, max, 0, nil); got != base {
		t.Errorf("attempt 0: got %v, want %v", got, base)
	}
	if got := Delay(PolicyLinear, base, max, 5, nil); got != 10*time.Second {
		t.Errorf("attempt 5: got %v, want %v", got, 10*time.Second)
	}
	if got := Delay(PolicyLinear, base, max, 100, nil); got != max {
		t.Errorf("attempt 100: got %v, want capped %v", got, max)
	}
}

func TestDelayExponentialDoubles(t *testing.T) {
	base := time.Second
	max := time.Hour
	prev := Delay(PolicyExponential, base, max, 0, nil)
	if prev != base {
		t.Fatalf("attempt 0: got %v, want %v", prev, base)
	}
	for attempt := 1; attempt <= 6; attempt++ {
		got := Delay(PolicyExponential, base, max, attempt, nil)
		if got != prev*2 {
			t.Errorf("attempt %d: got %v, want %v", attempt, got, prev*2)
		}
		prev = got
	}
}

func TestDelayExponentialCaps(t *testing.T) {
	got := Delay(PolicyExponential, time.Second, 30*time.Second, 20, nil)
	if got != 30*time.Second {
		t.Errorf("got %v, want cap %v", got, 30*time.Second)
	}
	// very large attempts must not overflow into negative delays
	got = Delay(PolicyExponential, time.Second, time.Hour, 500, nil)
	if got != time.Hour {
		t.Errorf("got %v, want cap %v", got, time.Hour)
	}
}

func TestDelayFullJitterRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Second
	max := time.Minute
	for attempt := 0; attempt < 8; attempt++ {
		ceiling := Delay(PolicyExponential, base, max, attempt, nil)
		for i := 0; i < 50; i++ {
			got := Delay(PolicyExpFullJitter, base, max, attempt, rng)
			if got < 0 || got > ceiling {
				t.Fatalf("attempt %d: jittered delay %v outside [0, %v]", attempt, got, ceiling)
			}
		}
	}
}

func TestDelayEqualJitterRange(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	base := time.Second
	max := time.Minute
	for attempt := 0; attempt < 8; attempt++ {
		ceiling := Delay(PolicyExponential, base, max, attempt, nil)
		for i := 0; i < 50; i++ {
			got := Delay(PolicyExpEqualJit, base, max, attempt, rng)
			if got < ceiling/2 || got > ceiling {
				t.Fatalf("attempt %d: jittered delay %v outside [%v, %v]", attempt, got, ceiling/2, ceiling)
			}
		}
	}
}

func TestDelayNormalizesInputs(t *testing.T) {
	if got := Delay(PolicyFixed, 0, 0, -3, nil); got != time.Second {
		t.Errorf("zero base/max: got %v, want normalized %v", got, time.Second)
	}
	if got := Delay(PolicyExponential, 5*time.Second, 0, 0, nil); got != 5*time.Second {
		t.Errorf("zero max: got %v, want %v", got, 5*time.Second)
	}
}
