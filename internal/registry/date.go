package registry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02T15:04:05"
)

// Date is a civil date, optionally carrying a time of day, as the registry
// writes it. It remembers the layout it was parsed from so it serializes back
// unchanged.
type Date struct {
	t        time.Time
	withTime bool
}

// NewDate returns the civil date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate accepts YYYY-MM-DD, YYYY-MM-DDThh:mm:ss and RFC 3339.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return Date{t: t}, nil
	}
	if t, err := time.Parse(dateTimeLayout, s); err == nil {
		return Date{t: t, withTime: true}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		// wall clock of the registry, zone dropped
		y, m, d := t.Date()
		return Date{t: time.Date(y, m, d, t.Hour(), t.Minute(), t.Second(), 0, time.UTC), withTime: true}, nil
	}
	return Date{}, fmt.Errorf("invalid date %q", s)
}

// MustParseDate is ParseDate for literals in tests and defaults.
func MustParseDate(s string) Date {
	d, err := ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Time returns the underlying time in UTC.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether d is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Day returns d truncated to midnight UTC.
func (d Date) Day() time.Time {
	y, m, day := d.t.Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// OnOrBefore reports whether the calendar day of d is not after the calendar
// day of t, where t's day is read in t's own location.
func (d Date) OnOrBefore(t time.Time) bool {
	y, m, day := t.Date()
	return !d.Day().After(time.Date(y, m, day, 0, 0, 0, 0, time.UTC))
}

// Before reports whether the calendar day of d is strictly before other's.
func (d Date) Before(other Date) bool {
	return d.Day().Before(other.Day())
}

func (d Date) String() string {
	if d.withTime {
		return d.t.Format(dateTimeLayout)
	}
	return d.t.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON reads null and blank strings as the zero Date; the registry
// sends both for dates it does not have.
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		*d = Date{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	if strings.TrimSpace(s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// UnmarshalText lets Date be used in YAML and flag parsing.
func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
