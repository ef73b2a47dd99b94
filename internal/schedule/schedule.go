// Package schedule computes free booking windows for a single-room studio.
// All computation happens in business-local wall-clock time; calendar data in
// other zones is converted before comparison.
package schedule

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}

// Contains reports whether other lies fully inside i.
func (i Interval) Contains(other Interval) bool {
	return !other.Start.Before(i.Start) && !other.End.After(i.End)
}

func (i Interval) String() string {
	return i.Start.Format("15:04") + "–" + i.End.Format("15:04")
}

// OpeningWindow is the fixed [OpenHour, CloseHour) operating window for one
// weekday.
type OpeningWindow struct {
	OpenHour  int
	CloseHour int
}

// WeekSchedule maps weekdays to opening windows. A missing weekday is closed.
type WeekSchedule map[time.Weekday]OpeningWindow

// ParseWeekSchedule parses per-weekday "10-18" hour ranges.
func ParseWeekSchedule(raw map[time.Weekday]string) (WeekSchedule, error) {
	ws := make(WeekSchedule, len(raw))
	for day, spec := range raw {
		parts := strings.SplitN(strings.TrimSpace(spec), "-", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("schedule: malformed opening hours %q for %s", spec, day)
		}
		open, err1 := strconv.Atoi(strings.TrimSpace(parts[0]))
		close, err2 := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err1 != nil || err2 != nil || open < 0 || close > 24 || open >= close {
			return nil, fmt.Errorf("schedule: invalid opening hours %q for %s", spec, day)
		}
		ws[day] = OpeningWindow{OpenHour: open, CloseHour: close}
	}
	return ws, nil
}

// BusyLister reports existing bookings for a calendar day. Implementations
// may fail; a failure is distinguishable from an empty result.
type BusyLister interface {
	ListBusyIntervals(ctx context.Context, day time.Time) ([]Interval, error)
}

// Availability is the tri-state result of a point query. A collaborator
// failure yields Unknown, never Busy or Free.
type Availability int

const (
	Unknown Availability = iota
	Busy
	Free
)

func (a Availability) String() string {
	switch a {
	case Busy:
		return "busy"
	case Free:
		return "free"
	default:
		return "unknown"
	}
}

// Engine answers availability questions against the studio calendar.
type Engine struct {
	calendar BusyLister
	hours    WeekSchedule
	loc      *time.Location
}

// NewEngine builds an availability engine for the given opening hours and
// business timezone.
func NewEngine(calendar BusyLister, hours WeekSchedule, loc *time.Location) *Engine {
	if calendar == nil {
		panic("schedule: calendar cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{calendar: calendar, hours: hours, loc: loc}
}

// Location returns the business timezone.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// OpeningFor returns the opening interval for the given day, or false when
// the studio is closed that weekday.
func (e *Engine) OpeningFor(day time.Time) (Interval, bool) {
	day = day.In(e.loc)
	window, ok := e.hours[day.Weekday()]
	if !ok {
		return Interval{}, false
	}
	open := time.Date(day.Year(), day.Month(), day.Day(), window.OpenHour, 0, 0, 0, e.loc)
	close := time.Date(day.Year(), day.Month(), day.Day(), window.CloseHour, 0, 0, 0, e.loc)
	return Interval{Start: open, End: close}, true
}

// MergeBusy sorts busy intervals and merges overlapping or adjacent ones into
// a minimal disjoint set. Empty intervals are dropped.
func MergeBusy(intervals []Interval) []Interval {
	busy := make([]Interval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.End.After(iv.Start) {
			busy = append(busy, iv)
		}
	}
	if len(busy) == 0 {
		return nil
	}

	sort.Slice(busy, func(i, j int) bool { return busy[i].Start.Before(busy[j].Start) })

	merged := busy[:1]
	for _, iv := range busy[1:] {
		last := &merged[len(merged)-1]
		if !iv.Start.After(last.End) {
			if iv.End.After(last.End) {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// clamp restricts iv to the window, returning false when nothing remains.
// Multi-day ("all day") calendar entries end up clamped to the opening window.
func clamp(iv, window Interval) (Interval, bool) {
	if iv.Start.Before(window.Start) {
		iv.Start = window.Start
	}
	if iv.End.After(window.End) {
		iv.End = window.End
	}
	if !iv.End.After(iv.Start) {
		return Interval{}, false
	}
	return iv, true
}

// FreeRanges computes the ordered free windows of at least durationHours on
// the given day. A closed day yields an empty result; a calendar failure
// yields an error.
func (e *Engine) FreeRanges(ctx context.Context, day time.Time, durationHours int) ([]Interval, error) {
	window, open := e.OpeningFor(day)
	if !open {
		return nil, nil
	}

	raw, err := e.calendar.ListBusyIntervals(ctx, day.In(e.loc))
	if err != nil {
		return nil, fmt.Errorf("schedule: list busy intervals: %w", err)
	}

	clamped := make([]Interval, 0, len(raw))
	for _, iv := range raw {
		iv.Start = iv.Start.In(e.loc)
		iv.End = iv.End.In(e.loc)
		if c, ok := clamp(iv, window); ok {
			clamped = append(clamped, c)
		}
	}
	busy := MergeBusy(clamped)

	need := time.Duration(durationHours) * time.Hour
	free := make([]Interval, 0, len(busy)+1)
	cursor := window.Start
	for _, iv := range busy {
		if iv.Start.After(cursor) {
			free = append(free, Interval{Start: cursor, End: iv.Start})
		}
		cursor = iv.End
	}
	if cursor.Before(window.End) {
		free = append(free, Interval{Start: cursor, End: window.End})
	}

	kept := free[:0]
	for _, iv := range free {
		if iv.Duration() >= need {
			kept = append(kept, iv)
		}
	}
	return kept, nil
}

// Check answers whether [start, start+durationHours) is fully free. A
// calendar failure is reported as Unknown alongside the error.
func (e *Engine) Check(ctx context.Context, start time.Time, durationHours int) (Availability, error) {
	start = start.In(e.loc)
	want := Interval{Start: start, End: start.Add(time.Duration(durationHours) * time.Hour)}

	free, err := e.FreeRanges(ctx, start, durationHours)
	if err != nil {
		return Unknown, err
	}
	for _, iv := range free {
		if iv.Contains(want) {
			return Free, nil
		}
	}
	return Busy, nil
}

const suggestHorizonDays = 14

// SuggestDayOptions walks forward day by day and returns the first howMany
// strictly future dates within a two-week horizon. With preferNextWeek the
// walk starts at the Monday of next week instead of tomorrow.
func (e *Engine) SuggestDayOptions(ref time.Time, howMany int, preferNextWeek bool) []time.Time {
	ref = ref.In(e.loc)
	today := time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, e.loc)

	start := today.AddDate(0, 0, 1)
	if preferNextWeek {
		daysToMonday := (int(time.Monday) - int(ref.Weekday()) + 7) % 7
		if daysToMonday == 0 {
			daysToMonday = 7
		}
		start = today.AddDate(0, 0, daysToMonday)
	}

	options := make([]time.Time, 0, howMany)
	for i := 0; len(options) < howMany && i < suggestHorizonDays; i++ {
		d := start.AddDate(0, 0, i)
		if d.After(today) {
			options = append(options, d)
		}
	}
	return options
}
