// Package timeparse turns the short time expressions users type into absolute
// instants in a fixed timezone.
package timeparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	clockPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	dmyPattern   = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})\s+(\d{1,2}):(\d{2})$`)
	ymdPattern   = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})\s+(\d{1,2}):(\d{2})$`)
)

// Formats lists the accepted shapes, for help texts.
var Formats = []string{"HH:MM", "DD/MM/YYYY HH:MM", "YYYY-MM-DD HH:MM"}

// ParseError reports time text that has an unknown shape or a field out of
// range.
type ParseError struct {
	Input  string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse time %q: %s", e.Input, e.Reason)
}

// Resolver holds no mutable state; Resolve gives the same answer for the same
// (text, now) pair.
type Resolver struct {
	loc     *time.Location
	minYear int
}

func NewResolver(loc *time.Location, minYear int) *Resolver {
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{loc: loc, minYear: minYear}
}

func (r *Resolver) Location() *time.Location {
	return r.loc
}

// Resolve interprets text relative to now. A bare HH:MM means the next
// occurrence of that wall clock time strictly after now. Absolute dates are
// returned as is, even when they lie in the past; callers decide whether a
// past instant is acceptable.
func (r *Resolver) Resolve(text string, now time.Time) (time.Time, error) {
	text = strings.TrimSpace(text)
	if m := clockPattern.FindStringSubmatch(text); m != nil {
		hour, minute, err := r.clock(text, m[1], m[2])
		if err != nil {
			return time.Time{}, err
		}
		local := now.In(r.loc)
		t := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, r.loc)
		if !t.After(now) {
			t = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, r.loc)
		}
		return t, nil
	}
	if m := dmyPattern.FindStringSubmatch(text); m != nil {
		return r.absolute(text, m[3], m[2], m[1], m[4], m[5])
	}
	if m := ymdPattern.FindStringSubmatch(text); m != nil {
		return r.absolute(text, m[1], m[2], m[3], m[4], m[5])
	}
	return time.Time{}, &ParseError{Input: text, Reason: "expected one of " + strings.Join(Formats, ", ")}
}

func (r *Resolver) clock(text, h, m string) (int, int, error) {
	hour, _ := strconv.Atoi(h)
	minute, _ := strconv.Atoi(m)
	if hour > 23 {
		return 0, 0, &ParseError{Input: text, Reason: "hour must be between 0 and 23"}
	}
	if minute > 59 {
		return 0, 0, &ParseError{Input: text, Reason: "minute must be between 0 and 59"}
	}
	return hour, minute, nil
}

func (r *Resolver) absolute(text, y, mo, d, h, mi string) (time.Time, error) {
	hour, minute, err := r.clock(text, h, mi)
	if err != nil {
		return time.Time{}, err
	}
	year, _ := strconv.Atoi(y)
	month, _ := strconv.Atoi(mo)
	day, _ := strconv.Atoi(d)
	switch {
	case year < r.minYear:
		return time.Time{}, &ParseError{Input: text, Reason: fmt.Sprintf("year must not be before %d", r.minYear)}
	case month < 1 || month > 12:
		return time.Time{}, &ParseError{Input: text, Reason: "month must be between 1 and 12"}
	case day < 1 || day > 31:
		return time.Time{}, &ParseError{Input: text, Reason: "day must be between 1 and 31"}
	}
	t := time.Date(year, time.Month(month), day, hour, minute, 0, 0, r.loc)
	// time.Date rolls 31/02 over into March; such a date does not exist.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, &ParseError{Input: text, Reason: fmt.Sprintf("%s has no day %d", time.Month(month), day)}
	}
	return t, nil
}
