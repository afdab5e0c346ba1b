package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeOfDay counts minutes since midnight.
type TimeOfDay int32

const (
	MinutesPerDay = 24 * 60

	// NullTimeOfDay is the wire sentinel; it lies outside [0, MinutesPerDay).
	NullTimeOfDay int32 = -1
)

// NewTimeOfDay builds hh:mm. It does not validate.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func (t TimeOfDay) Valid() bool {
	return t >= 0 && t < MinutesPerDay
}

func (t TimeOfDay) Hour() int {
	return int(t) / 60
}

func (t TimeOfDay) Minute() int {
	return int(t) % 60
}

func (t TimeOfDay) String() string {
	if !t.Valid() {
		return fmt.Sprintf("TimeOfDay(%d)", int32(t))
	}
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ParseMinutes reads "hh:mm" or a plain minute count and returns the
// minute count. Range is not checked; callers test the result with
// TimeOfDay.Valid after narrowing.
func ParseMinutes(s string) (int64, error) {
	if h, m, ok := strings.Cut(s, ":"); ok {
		hh, err := strconv.ParseInt(h, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid hour %q", h)
		}
		mm, err := strconv.ParseInt(m, 10, 32)
		if err != nil || mm < 0 || mm > 59 || len(m) != 2 {
			return 0, fmt.Errorf("invalid minute %q", m)
		}
		return hh*60 + mm, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q", s)
	}
	return n, nil
}
