package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is a positive whole number of minutes parsed from a service record.
type Duration struct {
	minutes int
}

// ParseDuration accepts "HH:MM:SS", "HH:MM" or a bare integer number of minutes.
// Every other shape, and a zero total, fails with ErrMalformedServiceData.
func ParseDuration(s string) (Duration, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Duration{}, fmt.Errorf("%w: empty duration", ErrMalformedServiceData)
	}

	parts := strings.Split(raw, ":")
	var total int
	switch len(parts) {
	case 1:
		m, err := parseUnsigned(parts[0])
		if err != nil {
			return Duration{}, fmt.Errorf("%w: duration %q: %v", ErrMalformedServiceData, s, err)
		}
		total = m
	case 2, 3:
		h, err := parseUnsigned(parts[0])
		if err != nil {
			return Duration{}, fmt.Errorf("%w: duration %q: hours: %v", ErrMalformedServiceData, s, err)
		}
		m, err := parseUnsigned(parts[1])
		if err != nil || m > 59 || len(parts[1]) != 2 {
			return Duration{}, fmt.Errorf("%w: duration %q: minutes must be 00-59", ErrMalformedServiceData, s)
		}
		if len(parts) == 3 {
			sec, err := parseUnsigned(parts[2])
			if err != nil || len(parts[2]) != 2 || sec != 0 {
				return Duration{}, fmt.Errorf("%w: duration %q: seconds must be 00", ErrMalformedServiceData, s)
			}
		}
		total = h*60 + m
	default:
		return Duration{}, fmt.Errorf("%w: unrecognized duration %q", ErrMalformedServiceData, s)
	}

	if total <= 0 {
		return Duration{}, fmt.Errorf("%w: duration %q is not positive", ErrMalformedServiceData, s)
	}
	return Duration{minutes: total}, nil
}

// MustDuration is ParseDuration for literals known to be valid.
func MustDuration(s string) Duration {
	d, err := ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Minutes builds a Duration from a positive number of minutes.
func Minutes(m int) (Duration, error) {
	if m <= 0 {
		return Duration{}, fmt.Errorf("%w: duration %d is not positive", ErrMalformedServiceData, m)
	}
	return Duration{minutes: m}, nil
}

func parseUnsigned(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit %q", r)
		}
	}
	return strconv.Atoi(s)
}

// Minutes returns the duration in minutes.
func (d Duration) Minutes() int { return d.minutes }

// Std converts to time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d.minutes) * time.Minute }

// IsZero reports an unset duration.
func (d Duration) IsZero() bool { return d.minutes == 0 }

// String formats as HH:MM:SS, the shape the backend stores.
func (d Duration) String() string {
	return fmt.Sprintf("%02d:%02d:00", d.minutes/60, d.minutes%60)
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.minutes)
}

// UnmarshalJSON accepts either a number of minutes or any string ParseDuration accepts.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		parsed, err := Minutes(n)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: duration must be a string or integer", ErrMalformedServiceData)
	}
	parsed, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
