package reservation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clayhaus/bookingbot/internal/approvals"
	"github.com/clayhaus/bookingbot/internal/observability/metrics"
	"github.com/clayhaus/bookingbot/internal/session"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// CalendarWriter records a confirmed reservation on the studio calendar.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error)
}

// CustomerMessenger pushes a message to the customer's channel.
type CustomerMessenger interface {
	SendText(ctx context.Context, customerID, text string) error
}

// Protocol implements the two-party confirmation flow: the customer's yes
// creates a pending record and asks the studio; the studio's decision
// finalizes it.
type Protocol struct {
	store     Store
	queue     approvals.Queue
	calendar  CalendarWriter
	messenger CustomerMessenger
	loc       *time.Location
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	newID     func() string
}

// NewProtocol wires the confirmation flow.
func NewProtocol(store Store, queue approvals.Queue, calendar CalendarWriter, messenger CustomerMessenger, loc *time.Location, logger *logging.Logger) *Protocol {
	if store == nil {
		panic("reservation: store cannot be nil")
	}
	if queue == nil {
		panic("reservation: approval queue cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}

	return &Protocol{
		store:     store,
		queue:     queue,
		calendar:  calendar,
		messenger: messenger,
		loc:       loc,
		logger:    logger,
		newID:     uuid.NewString,
	}
}

// SetMetrics attaches booking metrics. A nil receiver on the metrics side is
// a no-op, so this is optional.
func (p *Protocol) SetMetrics(m *metrics.BookingMetrics) {
	p.metrics = m
}

// Request snapshots a confirmed draft into a pending reservation and asks
// the studio to decide. Approval delivery is fire-and-forget: an enqueue
// failure is logged and the pending record stands.
func (p *Protocol) Request(ctx context.Context, draft *session.ReservationDraft) (string, error) {
	if draft == nil {
		return "", errors.New("reservation: draft cannot be nil")
	}
	start, ok := draft.StartAt(p.loc)
	if !ok {
		return "", errors.New("reservation: draft is missing date or time")
	}
	if !draft.Complete() {
		return "", errors.New("reservation: draft is incomplete")
	}

	r := &Reservation{
		ReservationID:  p.newID(),
		CustomerID:     draft.CustomerID,
		Channel:        draft.Channel,
		StartAt:        start.UTC().Format(time.RFC3339),
		DurationHours:  draft.DurationHours,
		Headcount:      draft.Headcount,
		DisplayDetails: fmt.Sprintf("Workshop for %d people", draft.Headcount),
		Status:         StatusPending,
		Reminded:       false,
	}
	if err := p.store.Create(ctx, r); err != nil {
		return "", err
	}

	req := approvals.Request{
		ReservationID: r.ReservationID,
		CustomerID:    r.CustomerID,
		Summary:       r.Summary(p.loc),
	}
	if err := approvals.Enqueue(ctx, p.queue, req); err != nil {
		p.logger.Error("reservation: failed to enqueue approval request",
			"reservation_id", r.ReservationID,
			"error", err,
		)
	}

	p.logger.Info("reservation: pending created",
		"reservation_id", r.ReservationID,
		"customer_id", r.CustomerID,
		"start_at", r.StartAt,
	)
	return r.ReservationID, nil
}

// Decide applies the studio's verdict. It is idempotent: deciding an
// already-decided or unknown reservation acknowledges without side effects.
// The decision operates on the durable record alone, so it succeeds even if
// the customer's draft is long gone.
func (p *Protocol) Decide(ctx context.Context, reservationID string, decision Decision) (Ack, error) {
	r, err := p.store.Get(ctx, reservationID)
	if errors.Is(err, ErrNotFound) {
		return Ack{Applied: false}, nil
	}
	if err != nil {
		return Ack{}, err
	}
	if r.Status != StatusPending {
		return Ack{Applied: false, Status: r.Status}, nil
	}

	var status Status
	switch decision {
	case DecisionApprove:
		status = StatusConfirmed
	case DecisionReject:
		status = StatusRejected
	default:
		return Ack{}, fmt.Errorf("reservation: unknown decision %q", decision)
	}

	applied, err := p.store.MarkDecided(ctx, reservationID, status)
	if err != nil {
		return Ack{}, err
	}
	if !applied {
		// Lost the race against a concurrent decision.
		current, gerr := p.store.Get(ctx, reservationID)
		if gerr != nil {
			return Ack{Applied: false}, nil
		}
		return Ack{Applied: false, Status: current.Status}, nil
	}
	r.Status = status

	if status == StatusConfirmed {
		p.writeCalendarEvent(ctx, r)
	}
	p.notifyCustomer(ctx, r)

	p.metrics.ObserveDecision(string(status))
	p.logger.Info("reservation: decided",
		"reservation_id", reservationID,
		"status", string(status),
	)
	return Ack{Applied: true, Status: status}, nil
}

func (p *Protocol) writeCalendarEvent(ctx context.Context, r *Reservation) {
	if p.calendar == nil {
		return
	}
	start, err := r.Start()
	if err != nil {
		p.logger.Error("reservation: cannot write calendar event", "reservation_id", r.ReservationID, "error", err)
		return
	}
	end, _ := r.End()

	eventID, err := p.calendar.CreateEvent(ctx,
		r.DisplayDetails,
		fmt.Sprintf("Reservation %s, customer %s", r.ReservationID, r.CustomerID),
		start.In(p.loc),
		end.In(p.loc),
	)
	if err != nil {
		// The reservation stays confirmed; the calendar catches up by hand.
		p.logger.Error("reservation: calendar write failed", "reservation_id", r.ReservationID, "error", err)
		return
	}
	if err := p.store.AttachCalendarEvent(ctx, r.ReservationID, eventID); err != nil {
		p.logger.Warn("reservation: failed to attach event id", "reservation_id", r.ReservationID, "error", err)
	}
}

func (p *Protocol) notifyCustomer(ctx context.Context, r *Reservation) {
	if p.messenger == nil {
		return
	}

	var text string
	switch r.Status {
	case StatusConfirmed:
		text = fmt.Sprintf("Great news! Your booking is confirmed: %s. See you there!", r.Summary(p.loc))
	case StatusRejected:
		text = "Unfortunately the studio couldn't take that booking. Would another day or time work for you?"
	default:
		return
	}

	if err := p.messenger.SendText(ctx, r.CustomerID, text); err != nil {
		p.logger.Error("reservation: failed to notify customer",
			"reservation_id", r.ReservationID,
			"customer_id", r.CustomerID,
			"error", err,
		)
	}
}
