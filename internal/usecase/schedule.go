package usecase

import (
	"time"
)

// BucketLayout is the minute granularity used for queue bucket keys.
// It sorts lexically in time order.
const BucketLayout = "2006-01-02-15-04"

// maxDaySearch bounds the day-by-day search in NextOccurrence. A clock time
// can be missing from at most one day in a row (a DST gap), so two extra days
// always suffice.
const maxDaySearch = 3

// NextOccurrence returns the first instant strictly after now whose wall clock
// in origin shows the same hour and minute as arrival does in destination.
// The result is in UTC.
func NextOccurrence(arrival time.Time, destination, origin *time.Location, now time.Time) time.Time {
	local := arrival.In(destination)
	hour, minute := local.Hour(), local.Minute()

	year, month, day := now.In(origin).Date()
	for offset := 0; ; offset++ {
		candidate := time.Date(year, month, day+offset, hour, minute, 0, 0, origin)
		// time.Date normalizes a clock time that falls in a DST gap; skip those days.
		exists := candidate.Hour() == hour && candidate.Minute() == minute
		if exists && candidate.After(now) {
			return candidate.UTC()
		}
		if offset > maxDaySearch {
			// Unreachable for real zone data; keep the result in the future regardless.
			return candidate.Add(24 * time.Hour).UTC()
		}
	}
}

// BucketKey truncates t to its minute bucket.
func BucketKey(prefix string, t time.Time) string {
	return prefix + t.UTC().Truncate(time.Minute).Format(BucketLayout)
}

// DueBucketKeys lists the bucket keys from now-lookback up to and including
// the current minute, oldest first.
func DueBucketKeys(prefix string, now time.Time, lookback time.Duration) []string {
	current := now.UTC().Truncate(time.Minute)
	minutes := int(lookback / time.Minute)
	if minutes < 0 {
		minutes = 0
	}
	keys := make([]string, 0, minutes+1)
	for i := minutes; i >= 0; i-- {
		keys = append(keys, BucketKey(prefix, current.Add(-time.Duration(i)*time.Minute)))
	}
	return keys
}
