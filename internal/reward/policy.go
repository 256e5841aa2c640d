package reward

import (
	"fmt"
	"strconv"
	"strings"
)

// Policy computes the reward amount minted to a submitter, as a whole-unit
// decimal string. Amounts stay strings end to end; ledger adapters own the
// conversion to minor units, so no float arithmetic can drift the reward.
type Policy func(qualityScore int) string

// Fixed mints the same base amount regardless of quality score.
func Fixed(baseAmount string) Policy {
	return func(int) string { return baseAmount }
}

// Scaled mints baseAmount multiplied by score/100, rounded down, with a floor
// of 1 unit for any approved submission.
func Scaled(baseAmount string) Policy {
	base, err := strconv.ParseInt(strings.TrimSpace(baseAmount), 10, 64)
	if err != nil || base <= 0 {
		base = 1
	}
	return func(score int) string {
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		amount := base * int64(score) / 100
		if amount < 1 {
			amount = 1
		}
		return strconv.FormatInt(amount, 10)
	}
}

// FromConfig selects a policy by name.
func FromConfig(name, baseAmount string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "fixed":
		return Fixed(baseAmount), nil
	case "scaled":
		return Scaled(baseAmount), nil
	default:
		return nil, fmt.Errorf("unknown reward policy %q", name)
	}
}

// ValidAmount reports whether s is a non-negative whole-unit decimal string.
func ValidAmount(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	n, err := strconv.ParseInt(s, 10, 64)
	return err == nil && n >= 0
}
