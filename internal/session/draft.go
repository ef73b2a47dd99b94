// Package session holds per-customer conversation state: the reservation
// draft being assembled and the dialogue position within the booking wizard.
package session

import (
	"time"

	"github.com/clayhaus/bookingbot/internal/extract"
)

// DialogState marks where a customer is in the booking wizard.
type DialogState string

const (
	StateIdle               DialogState = "idle"
	StateCollectingDate     DialogState = "collecting_date"
	StateAwaitingDayChoice  DialogState = "awaiting_day_choice"
	StateCollectingTime     DialogState = "collecting_time"
	StateCollectingCount    DialogState = "collecting_count"
	StateCollectingDuration DialogState = "collecting_duration"
	StateConfirming         DialogState = "confirming"
	StateAwaitingApproval   DialogState = "awaiting_approval"
)

// ReservationDraft is the partially assembled reservation for one customer.
// Zero values mean "not yet collected"; Date and Time are stored as strings
// so the record round-trips cleanly through DynamoDB.
type ReservationDraft struct {
	CustomerID    string      `dynamodbav:"customerId" json:"customerId"`
	Channel       string      `dynamodbav:"channel,omitempty" json:"channel,omitempty"`
	State         DialogState `dynamodbav:"state" json:"state"`
	Date          string      `dynamodbav:"date,omitempty" json:"date,omitempty"`
	Time          string      `dynamodbav:"time,omitempty" json:"time,omitempty"`
	Headcount     int         `dynamodbav:"headcount,omitempty" json:"headcount,omitempty"`
	DurationHours int         `dynamodbav:"durationHours,omitempty" json:"durationHours,omitempty"`
	DayOptions    []string    `dynamodbav:"dayOptions,omitempty" json:"dayOptions,omitempty"`
	ReservationID string      `dynamodbav:"reservationId,omitempty" json:"reservationId,omitempty"`
	CreatedAt     string      `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt     string      `dynamodbav:"updatedAt" json:"updatedAt"`
	ExpiresAt     int64       `dynamodbav:"expiresAt,omitempty" json:"-"`
}

// NewDraft starts an empty draft for the customer.
func NewDraft(customerID, channel string) *ReservationDraft {
	return &ReservationDraft{
		CustomerID: customerID,
		Channel:    channel,
		State:      StateIdle,
	}
}

// SetDate records the chosen calendar day.
func (d *ReservationDraft) SetDate(day time.Time) {
	d.Date = day.Format(time.DateOnly)
}

// DateValue parses the stored day in the given location.
func (d *ReservationDraft) DateValue(loc *time.Location) (time.Time, bool) {
	if d.Date == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, d.Date, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// SetTime records the chosen start time.
func (d *ReservationDraft) SetTime(ct extract.ClockTime) {
	d.Time = ct.String()
}

// TimeValue parses the stored start time.
func (d *ReservationDraft) TimeValue() (extract.ClockTime, bool) {
	if d.Time == "" {
		return extract.ClockTime{}, false
	}
	t, err := time.Parse("15:04", d.Time)
	if err != nil {
		return extract.ClockTime{}, false
	}
	return extract.ClockTime{Hour: t.Hour(), Minute: t.Minute()}, true
}

// StartAt combines the stored day and time into a concrete start instant.
func (d *ReservationDraft) StartAt(loc *time.Location) (time.Time, bool) {
	day, ok := d.DateValue(loc)
	if !ok {
		return time.Time{}, false
	}
	ct, ok := d.TimeValue()
	if !ok {
		return time.Time{}, false
	}
	return time.Date(day.Year(), day.Month(), day.Day(), ct.Hour, ct.Minute, 0, 0, loc), true
}

// SetDayOptions stores offered day choices for a vague date request.
func (d *ReservationDraft) SetDayOptions(days []time.Time) {
	d.DayOptions = make([]string, 0, len(days))
	for _, day := range days {
		d.DayOptions = append(d.DayOptions, day.Format(time.DateOnly))
	}
}

// DayOption resolves the i-th offered day, if any.
func (d *ReservationDraft) DayOption(i int, loc *time.Location) (time.Time, bool) {
	if i < 0 || i >= len(d.DayOptions) {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(time.DateOnly, d.DayOptions[i], loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Complete reports whether every field needed for confirmation is present.
func (d *ReservationDraft) Complete() bool {
	return d.Date != "" && d.Time != "" && d.Headcount > 0 && d.DurationHours > 0
}

// MissingField names the next field to collect, in fixed prompt order.
func (d *ReservationDraft) MissingField() string {
	switch {
	case d.Headcount == 0:
		return "headcount"
	case d.Date == "":
		return "date"
	case d.Time == "":
		return "time"
	case d.DurationHours == 0:
		return "duration"
	default:
		return ""
	}
}
