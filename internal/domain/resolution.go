package domain

import (
	"fmt"
	"time"
)

// Resolution is the width of a resampling bucket.
type Resolution time.Duration

func (r Resolution) String() string {
	return resolutionToString[r]
}

// Seconds returns the bucket width in whole seconds.
func (r Resolution) Seconds() int64 {
	return int64(time.Duration(r) / time.Second)
}

func ParseResolution(s string) (Resolution, error) {
	r, ok := stringToResolution[s]
	if !ok {
		return 0, fmt.Errorf("%w: resolution %q, use 1m, 5m, 1h or 1d", ErrValidation, s)
	}
	return r, nil
}

var resolutionToString = map[Resolution]string{
	Resolution(time.Minute):     "1m",
	Resolution(time.Minute * 5): "5m",
	Resolution(time.Hour):       "1h",
	Resolution(time.Hour * 24):  "1d",
}

var stringToResolution = map[string]Resolution{
	"1m": Resolution(time.Minute),
	"5m": Resolution(time.Minute * 5),
	"1h": Resolution(time.Hour),
	"1d": Resolution(time.Hour * 24),
}

// Range is a lookback window anchored at request arrival.
type Range string

const (
	RangeToday Range = "today"
	Range7d    Range = "7d"
	Range30d   Range = "30d"
)

func ParseRange(s string) (Range, error) {
	switch Range(s) {
	case RangeToday, Range7d, Range30d:
		return Range(s), nil
	}
	return "", fmt.Errorf("%w: range %q, use today, 7d or 30d", ErrValidation, s)
}

func (r Range) String() string {
	return string(r)
}

// Window resolves the range into absolute start and end days (UTC midnight)
// relative to now.
func (r Range) Window(now time.Time) (start, end time.Time) {
	end = now.UTC().Truncate(24 * time.Hour)
	switch r {
	case Range7d:
		start = end.AddDate(0, 0, -7)
	case Range30d:
		start = end.AddDate(0, 0, -30)
	default:
		start = end
	}
	return start, end
}
