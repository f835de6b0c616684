package seminar

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

// JST is the fixed reference timezone for all reminder date-times. Seminars
// happen in Japan; storing a fixed offset keeps tokens stable regardless of
// the host timezone database.
var JST = time.FixedZone("JST", 9*60*60)

const (
	compactLayout        = "20060102T1504"
	compactSecondsLayout = "20060102T150405"
	japaneseLayout       = "2006年1月2日 15:04"
)

// FormatCompact renders a date-time in the basic ISO-8601 form used inside
// tokens: no seconds, no offset, always JST. Round-trips with ParseCompact at
// minute granularity.
func FormatCompact(t time.Time) string {
	return t.In(JST).Format(compactLayout)
}

// ParseCompact parses the token date suffix. Accepts the minute-granularity
// form FormatCompact emits plus a variant with seconds, which older tokens
// carried.
func ParseCompact(s string) (time.Time, error) {
	for _, layout := range []string{compactLayout, compactSecondsLayout} {
		if t, err := time.ParseInLocation(layout, s, JST); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("invalid compact date-time: " + s)
}

// FormatJapanese renders a date-time for message bodies shown to subscribers.
func FormatJapanese(t time.Time) string {
	return t.In(JST).Format(japaneseLayout)
}

var digitsRe = regexp.MustCompile(`\d+`)

// parser is one strategy of the tolerant date parse chain. A false return
// means "not this format", letting the next strategy try.
type parser func(s string, now time.Time) (time.Time, bool)

var parsers = []parser{parseISO, parseCompactToken, parseJapanese, parseDigits}

// Parse runs the tolerant fallback chain over all date formats seen in the
// wild: ISO-8601, the compact token form, the Japanese long form, and as a
// last resort a bare digit sequence (month, day, hour, minute) with the year
// inferred relative to now. Only legacy-data call sites should use this;
// strict inputs go through ParseCompact or time.Parse directly.
func Parse(s string, now time.Time) (time.Time, error) {
	for _, p := range parsers {
		if t, ok := p(s, now); ok {
			return t, nil
		}
	}
	return time.Time{}, errors.New("unparseable date-time: " + s)
}

func parseISO(s string, _ time.Time) (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02T15:04"} {
		if t, err := time.ParseInLocation(layout, s, JST); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseCompactToken(s string, _ time.Time) (time.Time, bool) {
	t, err := ParseCompact(s)
	return t, err == nil
}

func parseJapanese(s string, _ time.Time) (time.Time, bool) {
	t, err := time.ParseInLocation(japaneseLayout, s, JST)
	return t, err == nil
}

// parseDigits handles free-form inputs like "6/1 10:00" by extracting the
// first four numbers as month, day, hour, minute. Dates that already passed
// this year roll over to the next year.
func parseDigits(s string, now time.Time) (time.Time, bool) {
	fields := digitsRe.FindAllString(s, 4)
	if len(fields) < 4 {
		return time.Time{}, false
	}

	nums := make([]int, 4)
	for i, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return time.Time{}, false
		}
		nums[i] = n
	}

	month, day, hour, minute := nums[0], nums[1], nums[2], nums[3]
	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 {
		return time.Time{}, false
	}

	now = now.In(JST)
	year := now.Year()
	if month < int(now.Month()) || (month == int(now.Month()) && day < now.Day()) {
		year++
	}

	return time.Date(year, time.Month(month), day, hour, minute, 0, 0, JST), true
}
