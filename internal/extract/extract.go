// Package extract turns free-form customer text into typed reservation fields.
// Every function is pure and total: no state, no errors, a miss is reported as
// a false ok. Callers apply the extraction rules in a fixed order (explicit
// numeric date, then weekday name, then relative-day keyword, then the
// vague-phrase fallback).
package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ClockTime is a wall-clock time of day.
type ClockTime struct {
	Hour   int
	Minute int
}

func (c ClockTime) String() string {
	return pad2(c.Hour) + ":" + pad2(c.Minute)
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}

// Normalize lowercases, trims and collapses separators so the extractors can
// work with a predictable shape.
func Normalize(text string) string {
	t := strings.ToLower(strings.TrimSpace(text))
	t = strings.ReplaceAll(t, ",", " ")
	for strings.Contains(t, "  ") {
		t = strings.ReplaceAll(t, "  ", " ")
	}
	return t
}

var (
	headcountLooseRE  = regexp.MustCompile(`\b(\d{1,3})\s*(?:people|persons?|guests?|attendees|of us|pax)?\b`)
	headcountForRE    = regexp.MustCompile(`\b(?:for|of)\s+(\d{1,3})\s*(?:people|persons?|guests?|attendees|pax)?\b`)
	headcountNounRE   = regexp.MustCompile(`\b(\d{1,3})\s*(?:people|persons?|guests?|attendees|pax)\b`)
	clockTimeRE       = regexp.MustCompile(`\b([01]?\d|2[0-3])(?:[:. ]([0-5]\d))?\b`)
	clockTimeStrictRE = regexp.MustCompile(`\b([01]?\d|2[0-3])[:.]([0-5]\d)\b`)
	clockTimeColonRE  = regexp.MustCompile(`\b([01]?\d|2[0-3]):([0-5]\d)\b`)
	atTimeRE          = regexp.MustCompile(`\bat\s+([01]?\d|2[0-3])(?:[:.]([0-5]\d))?\b`)
	meridiemRE        = regexp.MustCompile(`\b([1-9]|1[0-2])(?:[:.]([0-5]\d))?\s*(am|pm)\b`)
	numericDateFullRE = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`)
	numericDateRE     = regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\b`)
	durationRE        = regexp.MustCompile(`\b([1-8])\s*(?:hours?|hrs?|h)\b`)
	bareNumberRE      = regexp.MustCompile(`^\s*([1-8])\s*$`)
)

// Headcount returns the first integer in the text, optionally followed by a
// person-count noun. Range is not validated here; callers check 1..50.
func Headcount(text string) (int, bool) {
	m := headcountLooseRE.FindStringSubmatch(Normalize(text))
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// HeadcountStrict requires either a "for/of N" phrasing or an explicit person
// noun after the number, so that a bare day-of-month digit is never misread as
// a headcount.
func HeadcountStrict(text string) (int, bool) {
	t := Normalize(text)
	if m := headcountForRE.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	if m := headcountNounRE.FindStringSubmatch(t); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

// Time extracts a clock time: 17, 17:00, 17.00, "17 00", or 5pm.
func Time(text string) (ClockTime, bool) {
	t := Normalize(text)

	// 12-hour forms take priority: "4pm" must not parse as hour 4.
	if ct, ok := meridiemTime(t); ok {
		return ct, true
	}

	if m := clockTimeStrictRE.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	if m := clockTimeRE.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	return ClockTime{}, false
}

// TimeStrict extracts a clock time only when the text marks it as one: a
// 12-hour meridiem form ("4pm"), a colon form ("17:00"), or an "at N" anchor.
// Bare digits and dotted dd.mm pairs never match, so a headcount or a date in
// the same sentence cannot be misread as a start time. Use this whenever time
// is not the one field being asked for.
func TimeStrict(text string) (ClockTime, bool) {
	t := Normalize(text)

	if ct, ok := meridiemTime(t); ok {
		return ct, true
	}

	if m := clockTimeColonRE.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	if m := atTimeRE.FindStringSubmatch(t); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute := 0
		if m[2] != "" {
			minute, _ = strconv.Atoi(m[2])
		}
		return ClockTime{Hour: hour, Minute: minute}, true
	}

	return ClockTime{}, false
}

func meridiemTime(norm string) (ClockTime, bool) {
	m := meridiemRE.FindStringSubmatch(norm)
	if m == nil {
		return ClockTime{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if m[3] == "pm" && hour != 12 {
		hour += 12
	} else if m[3] == "am" && hour == 12 {
		hour = 0
	}
	return ClockTime{Hour: hour, Minute: minute}, true
}

var monthNames = map[string]time.Month{
	"january": time.January, "jan": time.January,
	"february": time.February, "feb": time.February,
	"march": time.March, "mar": time.March,
	"april": time.April, "apr": time.April,
	"may": time.May,
	"june": time.June, "jun": time.June,
	"july": time.July, "jul": time.July,
	"august": time.August, "aug": time.August,
	"september": time.September, "sep": time.September, "sept": time.September,
	"october": time.October, "oct": time.October,
	"november": time.November, "nov": time.November,
	"december": time.December, "dec": time.December,
}

var (
	dayMonthRE = regexp.MustCompile(`\b(\d{1,2})(?:st|nd|rd|th)?(?:\s+of)?\s+([a-z]+)\b`)
	monthDayRE = regexp.MustCompile(`\b([a-z]+)\s+(\d{1,2})(?:st|nd|rd|th)?\b`)
)

// Date extracts a specific calendar date. Numeric forms dd.mm.yyyy and
// dd.mm.yy are taken literally; dd.mm resolves to the nearest future
// occurrence. Natural-language forms require both a day and a month token and
// are biased toward the future. The result is midnight in ref's location.
func Date(text string, ref time.Time) (time.Time, bool) {
	t := Normalize(text)
	loc := ref.Location()

	if m := numericDateFullRE.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		year, _ := strconv.Atoi(m[3])
		if year < 100 {
			year += 2000
		}
		if d, ok := makeDate(year, month, day, loc); ok {
			return d, true
		}
	}

	if m := numericDateRE.FindStringSubmatch(t); m != nil {
		day, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		if d, ok := makeDate(ref.Year(), month, day, loc); ok {
			if d.Before(midnight(ref)) {
				d, ok = makeDate(ref.Year()+1, month, day, loc)
				if !ok {
					return time.Time{}, false
				}
			}
			return d, true
		}
	}

	// "9 september" / "9th of september"
	for _, m := range dayMonthRE.FindAllStringSubmatch(t, -1) {
		if month, ok := monthNames[m[2]]; ok {
			day, _ := strconv.Atoi(m[1])
			if d, ok := futureDate(ref, month, day); ok {
				return d, true
			}
		}
	}

	// "september 9"
	for _, m := range monthDayRE.FindAllStringSubmatch(t, -1) {
		if month, ok := monthNames[m[1]]; ok {
			day, _ := strconv.Atoi(m[2])
			if d, ok := futureDate(ref, month, day); ok {
				return d, true
			}
		}
	}

	return time.Time{}, false
}

func makeDate(year, month, day int, loc *time.Location) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc)
	// time.Date normalizes overflow (Feb 30 -> Mar 2); treat that as invalid.
	if d.Day() != day || d.Month() != time.Month(month) {
		return time.Time{}, false
	}
	return d, true
}

func futureDate(ref time.Time, month time.Month, day int) (time.Time, bool) {
	d, ok := makeDate(ref.Year(), int(month), day, ref.Location())
	if !ok {
		return time.Time{}, false
	}
	if d.Before(midnight(ref)) {
		return makeDate(ref.Year()+1, int(month), day, ref.Location())
	}
	return d, true
}

func midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

var weekdayNames = map[string]time.Weekday{
	"sunday": time.Sunday, "sun": time.Sunday,
	"monday": time.Monday, "mon": time.Monday,
	"tuesday": time.Tuesday, "tues": time.Tuesday, "tue": time.Tuesday,
	"wednesday": time.Wednesday, "wed": time.Wednesday,
	"thursday": time.Thursday, "thurs": time.Thursday, "thu": time.Thursday,
	"friday": time.Friday, "fri": time.Friday,
	"saturday": time.Saturday, "sat": time.Saturday,
}

// Weekday finds a weekday name in the text.
func Weekday(text string) (time.Weekday, bool) {
	t := Normalize(text)
	for _, field := range strings.Fields(t) {
		if wd, ok := weekdayNames[strings.Trim(field, ".!?")]; ok {
			return wd, true
		}
	}
	return time.Sunday, false
}

// ResolveWeekday returns the next occurrence of the weekday strictly after
// ref's date: "next Tuesday" said on a Tuesday means a week from now.
func ResolveWeekday(wd time.Weekday, ref time.Time) time.Time {
	delta := (int(wd) - int(ref.Weekday()) + 7) % 7
	if delta == 0 {
		delta = 7
	}
	return midnight(ref).AddDate(0, 0, delta)
}

// RelativeDay recognizes "tomorrow" and "day after tomorrow".
func RelativeDay(text string, ref time.Time) (time.Time, bool) {
	t := Normalize(text)
	if strings.Contains(t, "day after tomorrow") {
		return midnight(ref).AddDate(0, 0, 2), true
	}
	if strings.Contains(t, "tomorrow") {
		return midnight(ref).AddDate(0, 0, 1), true
	}
	return time.Time{}, false
}

var vaguePhrases = []string{
	"next week",
	"this week",
	"coming week",
	"the weekend",
	"this weekend",
	"next weekend",
	"next month",
	"this month",
	"some time",
	"sometime",
	"whenever",
}

// IsVagueDatePhrase reports whether the text names an open-ended period
// rather than a specific day. Such phrases must never be guessed into a date.
func IsVagueDatePhrase(text string) bool {
	t := Normalize(text)
	for _, p := range vaguePhrases {
		if strings.Contains(t, p) {
			return true
		}
	}
	return false
}

// DurationHours extracts a 1..8 hour duration with an explicit hour unit.
func DurationHours(text string) (int, bool) {
	if m := durationRE.FindStringSubmatch(Normalize(text)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return 0, false
}

// BareDurationHours accepts a lone 1..8 number as hours. Only valid while
// duration is the one field being asked for.
func BareDurationHours(text string) (int, bool) {
	if m := bareNumberRE.FindStringSubmatch(Normalize(text)); m != nil {
		n, _ := strconv.Atoi(m[1])
		return n, true
	}
	return DurationHours(text)
}

// Intent classifies a bare confirmation reply.
type Intent int

const (
	IntentNone Intent = iota
	IntentAffirm
	IntentDecline
)

var affirmVocab = map[string]struct{}{
	"yes": {}, "y": {}, "yes please": {}, "yeah": {}, "yep": {}, "sure": {},
	"ok": {}, "okay": {}, "confirm": {}, "confirmed": {}, "i confirm": {},
	"sounds good": {}, "deal": {}, "👍": {}, "✅": {},
}

var declineVocab = map[string]struct{}{
	"no": {}, "n": {}, "nope": {}, "no thanks": {}, "no thank you": {},
	"reject": {}, "decline": {}, "cancel that": {}, "👎": {}, "❌": {},
}

// YesNo matches the whole (normalized, punctuation-trimmed) message against
// small fixed vocabularies. Anything else is IntentNone.
func YesNo(text string) Intent {
	t := strings.Trim(Normalize(text), ".!? ")
	if _, ok := affirmVocab[t]; ok {
		return IntentAffirm
	}
	if _, ok := declineVocab[t]; ok {
		return IntentDecline
	}
	return IntentNone
}

var ordinalWords = map[string]int{
	"1": 0, "first": 0, "one": 0,
	"2": 1, "second": 1, "two": 1,
	"3": 2, "third": 2, "three": 2,
}

// OptionIndex maps a "1"/"2"/"3" or ordinal-word reply to a zero-based index.
func OptionIndex(text string) (int, bool) {
	t := strings.Trim(Normalize(text), ".!? ")
	idx, ok := ordinalWords[t]
	return idx, ok
}
