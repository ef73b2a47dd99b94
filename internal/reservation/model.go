// Package reservation owns the durable reservation lifecycle: pending on
// customer confirmation, confirmed or rejected by the studio, reminded once
// before the visit.
package reservation

import (
	"fmt"
	"time"
)

// Status is the reservation lifecycle state.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusRejected  Status = "rejected"
	StatusCancelled Status = "cancelled"
)

// Decision is the studio's verdict on a pending reservation.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// Ack reports what a decision call actually did. Applied is false when the
// reservation was already decided (or missing) and the call was a no-op.
type Ack struct {
	Applied bool
	Status  Status
}

// Reservation is the durable record snapshotted from a confirmed draft. It
// lives independently of the conversation session.
type Reservation struct {
	ReservationID   string `dynamodbav:"reservationId" json:"reservationId"`
	CustomerID      string `dynamodbav:"customerId" json:"customerId"`
	Channel         string `dynamodbav:"channel,omitempty" json:"channel,omitempty"`
	StartAt         string `dynamodbav:"startAt" json:"startAt"`
	DurationHours   int    `dynamodbav:"durationHours" json:"durationHours"`
	Headcount       int    `dynamodbav:"headcount" json:"headcount"`
	DisplayDetails  string `dynamodbav:"displayDetails,omitempty" json:"displayDetails,omitempty"`
	Status          Status `dynamodbav:"status" json:"status"`
	Reminded        bool   `dynamodbav:"reminded" json:"reminded"`
	CalendarEventID string `dynamodbav:"calendarEventId,omitempty" json:"calendarEventId,omitempty"`
	CreatedAt       string `dynamodbav:"createdAt" json:"createdAt"`
	UpdatedAt       string `dynamodbav:"updatedAt" json:"updatedAt"`
}

// Start parses the stored start instant.
func (r *Reservation) Start() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, r.StartAt)
	if err != nil {
		return time.Time{}, fmt.Errorf("reservation: bad start time %q: %w", r.StartAt, err)
	}
	return t, nil
}

// End returns the appointment's end instant.
func (r *Reservation) End() (time.Time, error) {
	start, err := r.Start()
	if err != nil {
		return time.Time{}, err
	}
	return start.Add(time.Duration(r.DurationHours) * time.Hour), nil
}

// Summary renders the reservation for humans in the given location.
func (r *Reservation) Summary(loc *time.Location) string {
	start, err := r.Start()
	if err != nil {
		return r.DisplayDetails
	}
	local := start.In(loc)
	return fmt.Sprintf("Workshop for %d people, %s %s at %s, %d hours",
		r.Headcount,
		local.Weekday(),
		local.Format("02.01.2006"),
		local.Format("15:04"),
		r.DurationHours,
	)
}
