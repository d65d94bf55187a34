package store

import "time"

// Retention holds the lifetime of each record class.
type Retention struct {
	Profile    time.Duration
	Stats      time.Duration
	QuickPrice time.Duration
}

// RetentionFromDays builds a Retention from day counts.
func RetentionFromDays(profile, stats, quickPrice int) Retention {
	day := 24 * time.Hour
	return Retention{
		Profile:    time.Duration(profile) * day,
		Stats:      time.Duration(stats) * day,
		QuickPrice: time.Duration(quickPrice) * day,
	}
}

// DefaultRetention is 30 days for profiles, 7 for stats and 1 for quick prices.
var DefaultRetention = RetentionFromDays(30, 7, 1)

// CoveringStats returns r with stats kept at least one day longer than
// lookback, so a read lookback ago still finds the snapshot written then.
func (r Retention) CoveringStats(lookback time.Duration) Retention {
	if floor := lookback + 24*time.Hour; r.Stats < floor {
		r.Stats = floor
	}
	return r
}

// For returns the lifetime of class c.
func (r Retention) For(c Class) time.Duration {
	switch c {
	case ClassStats:
		return r.Stats
	case ClassQuickPrice:
		return r.QuickPrice
	default:
		return r.Profile
	}
}

// Expiry returns the epoch-second expiry of a class-c record written at now.
func (r Retention) Expiry(c Class, now time.Time) int64 {
	return now.Add(r.For(c)).Unix()
}
