package extract

import (
	"testing"
	"time"
)

var warsaw = mustLoad("Europe/Warsaw")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// Monday, 2nd of March 2026.
var ref = time.Date(2026, time.March, 2, 12, 0, 0, 0, warsaw)

func TestHeadcount(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"3 people", 3, true},
		{"a table for 5", 5, true},
		{"12", 12, true},
		{"two of us", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := Headcount(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("Headcount(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestHeadcountStrict(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"for 4 people", 4, true},
		{"of 2", 2, true},
		{"3 persons", 3, true},
		{"on the 15th", 0, false},
		{"15", 0, false}, // bare number could be a day of month
	}
	for _, tt := range tests {
		got, ok := HeadcountStrict(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("HeadcountStrict(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}

func TestTime(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"17:00", "17:00", true},
		{"17.30", "17:30", true},
		{"17 15", "17:15", true},
		{"17", "17:00", true},
		{"4pm", "16:00", true},
		{"4:30pm", "16:30", true},
		{"12pm", "12:00", true},
		{"12am", "00:00", true},
		{"at 9am", "09:00", true},
		{"no time here", "", false},
	}
	for _, tt := range tests {
		got, ok := Time(tt.input)
		if ok != tt.ok {
			t.Errorf("Time(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("Time(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestTimeStrict(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"17:00", "17:00", true},
		{"4pm", "16:00", true},
		{"4:30pm", "16:30", true},
		{"at 17", "17:00", true},
		{"at 17.30", "17:30", true},
		{"next friday at 4pm", "16:00", true},
		// Digits without a time marker must never match.
		{"for 3 people tomorrow", "", false},
		{"on 12.06, 2 hours", "", false},
		{"make it 5 people", "", false},
		{"17", "", false},
		{"17.30", "", false},
	}
	for _, tt := range tests {
		got, ok := TimeStrict(tt.input)
		if ok != tt.ok {
			t.Errorf("TimeStrict(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.String() != tt.want {
			t.Errorf("TimeStrict(%q) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestDateNumeric(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"09.09.2026", "2026-09-09", true},
		{"9.9.26", "2026-09-09", true},
		{"09.09", "2026-09-09", true},
		// 01.02 is already past relative to March 2026, rolls to next year
		{"01.02", "2027-02-01", true},
		{"30.02", "", false},
		{"hello", "", false},
	}
	for _, tt := range tests {
		got, ok := Date(tt.input, ref)
		if ok != tt.ok {
			t.Errorf("Date(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.Format(time.DateOnly) != tt.want {
			t.Errorf("Date(%q) = %s, want %s", tt.input, got.Format(time.DateOnly), tt.want)
		}
	}
}

func TestDateNaturalLanguage(t *testing.T) {
	tests := []struct {
		input string
		want  string
		ok    bool
	}{
		{"9 september", "2026-09-09", true},
		{"9th of september", "2026-09-09", true},
		{"september 9", "2026-09-09", true},
		// already past this year -> next year
		{"1 january", "2027-01-01", true},
		// month alone must not resolve (needs day + month)
		{"september", "", false},
		// bare number must not resolve either
		{"9", "", false},
	}
	for _, tt := range tests {
		got, ok := Date(tt.input, ref)
		if ok != tt.ok {
			t.Errorf("Date(%q) ok = %v, want %v", tt.input, ok, tt.ok)
			continue
		}
		if ok && got.Format(time.DateOnly) != tt.want {
			t.Errorf("Date(%q) = %s, want %s", tt.input, got.Format(time.DateOnly), tt.want)
		}
	}
}

func TestWeekdayAndResolve(t *testing.T) {
	wd, ok := Weekday("can we come on friday?")
	if !ok || wd != time.Friday {
		t.Fatalf("Weekday = (%v, %v), want Friday", wd, ok)
	}

	got := ResolveWeekday(wd, ref)
	if got.Format(time.DateOnly) != "2026-03-06" {
		t.Errorf("ResolveWeekday(Friday) = %s, want 2026-03-06", got.Format(time.DateOnly))
	}

	// ref is a Monday: "monday" must mean next Monday, never today.
	got = ResolveWeekday(time.Monday, ref)
	if got.Format(time.DateOnly) != "2026-03-09" {
		t.Errorf("ResolveWeekday(Monday) = %s, want 2026-03-09", got.Format(time.DateOnly))
	}

	if _, ok := Weekday("no day named here"); ok {
		t.Error("expected no weekday match")
	}
}

func TestRelativeDay(t *testing.T) {
	got, ok := RelativeDay("tomorrow at 17", ref)
	if !ok || got.Format(time.DateOnly) != "2026-03-03" {
		t.Errorf("RelativeDay(tomorrow) = (%s, %v)", got.Format(time.DateOnly), ok)
	}

	got, ok = RelativeDay("day after tomorrow", ref)
	if !ok || got.Format(time.DateOnly) != "2026-03-04" {
		t.Errorf("RelativeDay(day after tomorrow) = (%s, %v)", got.Format(time.DateOnly), ok)
	}

	if _, ok := RelativeDay("friday", ref); ok {
		t.Error("expected no relative day match")
	}
}

func TestIsVagueDatePhrase(t *testing.T) {
	for _, vague := range []string{"next week", "sometime NEXT WEEK please", "this weekend", "maybe next month"} {
		if !IsVagueDatePhrase(vague) {
			t.Errorf("expected vague: %q", vague)
		}
	}
	for _, concrete := range []string{"09.09", "friday at 17:00", "tomorrow"} {
		if IsVagueDatePhrase(concrete) {
			t.Errorf("expected not vague: %q", concrete)
		}
	}
}

func TestDurationHours(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"2 hours", 2, true},
		{"3h", 3, true},
		{"1 hr", 1, true},
		{"9 hours", 0, false}, // out of range
		{"2", 0, false},       // bare numbers need BareDurationHours
	}
	for _, tt := range tests {
		got, ok := DurationHours(tt.input)
		if ok != tt.ok || got != tt.want {
			t.Errorf("DurationHours(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}

	if got, ok := BareDurationHours("2"); !ok || got != 2 {
		t.Errorf("BareDurationHours(2) = (%d, %v)", got, ok)
	}
	if _, ok := BareDurationHours("9"); ok {
		t.Error("BareDurationHours must reject out-of-range numbers")
	}
}

func TestYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  Intent
	}{
		{"yes", IntentAffirm},
		{"Yes!", IntentAffirm},
		{"ok.", IntentAffirm},
		{"👍", IntentAffirm},
		{"✅", IntentAffirm},
		{"no", IntentDecline},
		{"no thanks", IntentDecline},
		{"❌", IntentDecline},
		{"tuesday maybe", IntentNone},
		{"yes but only if friday works", IntentNone},
	}
	for _, tt := range tests {
		if got := YesNo(tt.input); got != tt.want {
			t.Errorf("YesNo(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestOptionIndex(t *testing.T) {
	tests := []struct {
		input string
		want  int
		ok    bool
	}{
		{"1", 0, true},
		{"2", 1, true},
		{"3", 2, true},
		{"first", 0, true},
		{"Second!", 1, true},
		{"4", 0, false},
		{"the second one", 0, false},
	}
	for _, tt := range tests {
		got, ok := OptionIndex(tt.input)
		if ok != tt.ok || (ok && got != tt.want) {
			t.Errorf("OptionIndex(%q) = (%d, %v), want (%d, %v)", tt.input, got, ok, tt.want, tt.ok)
		}
	}
}
