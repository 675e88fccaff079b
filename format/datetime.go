package format

import (
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/reoring/jsonskema/internal/value"
)

func init() {
	r := builtin[DateTime]
	r.Register("date-time", chronoCompiler("date-time", parseDateTimeValue))
	r.Register("date", chronoCompiler("date", parseDateValue))
	r.Register("time", chronoCompiler("time", parseTimeValue))
	r.Register("timestamp", chronoCompiler("timestamp", parseTimestampValue))
	r.Register("duration", func(_ Context, _ map[string]any) (Predicate, error) {
		return func(v any) *Failure {
			s, ok := v.(string)
			if !ok || ValidDuration(s) {
				return nil
			}
			return mismatch("duration")
		}, nil
	})
}

// chronoParse maps a value to a comparable instant. applicable is false for
// values outside the format's domain; ok is false for malformed values.
type chronoParse func(v any) (t time.Time, applicable, ok bool)

func chronoCompiler(name string, parse chronoParse) CompileFunc {
	return func(_ Context, fragment map[string]any) (Predicate, error) {
		boundParse := func(v any) (time.Time, bool) {
			t, applicable, ok := parse(v)
			return t, applicable && ok
		}
		bounds, err := compileBounds(fragment, boundParse, func(a, b time.Time) int { return a.Compare(b) })
		if err != nil {
			return nil, err
		}
		return func(v any) *Failure {
			t, applicable, ok := parse(v)
			if !applicable {
				return nil
			}
			if !ok {
				return mismatch(name)
			}
			if bounds != nil {
				return bounds(t)
			}
			return nil
		}, nil
	}
}

var (
	fullTimeRe = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?([Zz]|[+-]\d{2}:\d{2})$`)
	fullDateRe = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
)

// ParseDate parses an RFC 3339 full-date.
func ParseDate(s string) (time.Time, bool) {
	if !fullDateRe.MatchString(s) {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	return t, err == nil
}

type clock struct {
	hh, mm, ss int
	nsec        int
	offset      int // seconds east of UTC
}

func parseClock(s string) (clock, bool) {
	m := fullTimeRe.FindStringSubmatch(s)
	if m == nil {
		return clock{}, false
	}
	var c clock
	c.hh, _ = strconv.Atoi(m[1])
	c.mm, _ = strconv.Atoi(m[2])
	c.ss, _ = strconv.Atoi(m[3])
	if c.hh > 23 || c.mm > 59 || c.ss > 60 {
		return clock{}, false
	}
	if m[4] != "" {
		digits := m[4][1:]
		if len(digits) > 9 {
			digits = digits[:9]
		}
		c.nsec, _ = strconv.Atoi(digits + strings.Repeat("0", 9-len(digits)))
	}
	if z := m[5]; z != "Z" && z != "z" {
		oh, _ := strconv.Atoi(z[1:3])
		om, _ := strconv.Atoi(z[4:6])
		if oh > 23 || om > 59 {
			return clock{}, false
		}
		c.offset = oh*3600 + om*60
		if z[0] == '-' {
			c.offset = -c.offset
		}
	}
	if c.ss == 60 {
		// a leap second is only valid at 23:59:60 UTC
		utc := ((c.hh*3600+c.mm*60+59-c.offset)%86400 + 86400) % 86400
		if utc != 86399 {
			return clock{}, false
		}
	}
	return c, true
}

// instant places the clock on a calendar date. A leap second maps to the
// first instant of the following second.
func (c clock) instant(y int, mon time.Month, d int) time.Time {
	ss, extra := c.ss, time.Duration(0)
	if ss == 60 {
		ss, extra = 59, time.Second
	}
	zone := time.FixedZone("", c.offset)
	return time.Date(y, mon, d, c.hh, c.mm, ss, c.nsec, zone).Add(extra)
}

// ParseTime parses an RFC 3339 full-time and returns its offset from midnight
// UTC.
func ParseTime(s string) (time.Duration, bool) {
	c, ok := parseClock(s)
	if !ok {
		return 0, false
	}
	u := c.instant(2000, time.January, 2).UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return u.Sub(midnight), true
}

// ParseDateTime parses an RFC 3339 date-time, leap seconds included.
func ParseDateTime(s string) (time.Time, bool) {
	i := strings.IndexAny(s, "Tt")
	if i < 0 {
		return time.Time{}, false
	}
	d, ok := ParseDate(s[:i])
	if !ok {
		return time.Time{}, false
	}
	c, ok := parseClock(s[i+1:])
	if !ok {
		return time.Time{}, false
	}
	y, mon, day := d.Date()
	return c.instant(y, mon, day), true
}

var durationRe = regexp.MustCompile(`^P(?:(\d+)Y)?(?:(\d+)M)?(?:(\d+)W)?(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+(?:\.\d+)?)S)?)?$`)

// ValidDuration reports whether s is an ISO 8601 duration. Weeks cannot be
// combined with other units, and at least one unit is required.
func ValidDuration(s string) bool {
	m := durationRe.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	if strings.HasSuffix(s, "T") {
		return false
	}
	units := 0
	for _, g := range m[1:] {
		if g != "" {
			units++
		}
	}
	if units == 0 {
		return false
	}
	return m[3] == "" || units == 1
}

func parseDateTimeValue(v any) (time.Time, bool, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true, true
	case string:
		d, ok := ParseDateTime(t)
		return d, true, ok
	default:
		return time.Time{}, false, false
	}
}

func parseDateValue(v any) (time.Time, bool, bool) {
	switch t := v.(type) {
	case time.Time:
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), true, true
	case string:
		d, ok := ParseDate(t)
		return d, true, ok
	default:
		return time.Time{}, false, false
	}
}

// parseTimeValue projects a time of day onto the zero date so instants compare.
func parseTimeValue(v any) (time.Time, bool, bool) {
	switch t := v.(type) {
	case time.Time:
		u := t.UTC()
		return time.Date(0, 1, 1, u.Hour(), u.Minute(), u.Second(), u.Nanosecond(), time.UTC), true, true
	case string:
		tod, ok := ParseTime(t)
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC).Add(tod), true, ok
	default:
		return time.Time{}, false, false
	}
}

// parseTimestampValue accepts unix seconds as numbers or numeric strings,
// RFC 3339 date-time strings and time.Time values.
func parseTimestampValue(v any) (time.Time, bool, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true, true
	case string:
		if d, ok := ParseDateTime(t); ok {
			return d, true, true
		}
		r, ok := parseDecimal(t)
		if !ok {
			return time.Time{}, true, false
		}
		ts, ok := unixFromRat(r)
		return ts, true, ok
	}
	switch value.KindOf(v) {
	case value.Number, value.BigInt:
		r, ok := value.Rat(v)
		if !ok {
			return time.Time{}, true, false
		}
		ts, ok := unixFromRat(r)
		return ts, true, ok
	default:
		return time.Time{}, false, false
	}
}

var maxUnix = new(big.Rat).SetInt64(math.MaxInt64 / int64(time.Second))

func unixFromRat(r *big.Rat) (time.Time, bool) {
	abs := new(big.Rat).Abs(r)
	if abs.Cmp(maxUnix) > 0 {
		return time.Time{}, false
	}
	ns := new(big.Rat).Mul(r, new(big.Rat).SetInt64(int64(time.Second)))
	n := new(big.Int).Quo(ns.Num(), ns.Denom())
	return time.Unix(0, n.Int64()).UTC(), true
}
