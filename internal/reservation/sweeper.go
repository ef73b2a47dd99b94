package reservation

import (
	"context"
	"fmt"
	"time"

	"github.com/clayhaus/bookingbot/internal/observability/metrics"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

const (
	defaultSweepInterval  = time.Hour
	defaultReminderWindow = 24 * time.Hour
)

// Sweeper periodically reminds customers about upcoming confirmed
// reservations. The reminded flag is claimed before sending, so concurrent
// sweeps never double-notify.
type Sweeper struct {
	store     Store
	messenger CustomerMessenger
	loc       *time.Location
	interval  time.Duration
	window    time.Duration
	logger    *logging.Logger
	metrics   *metrics.BookingMetrics
	now       func() time.Time
}

// SweeperOption customizes the sweeper.
type SweeperOption func(*Sweeper)

// WithSweepInterval sets how often the sweep runs.
func WithSweepInterval(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithReminderWindow sets how far ahead reminders reach.
func WithReminderWindow(d time.Duration) SweeperOption {
	return func(s *Sweeper) {
		if d > 0 {
			s.window = d
		}
	}
}

// WithSweeperClock overrides the time source.
func WithSweeperClock(now func() time.Time) SweeperOption {
	return func(s *Sweeper) {
		if now != nil {
			s.now = now
		}
	}
}

// NewSweeper builds the reminder job.
func NewSweeper(store Store, messenger CustomerMessenger, loc *time.Location, logger *logging.Logger, opts ...SweeperOption) *Sweeper {
	if store == nil {
		panic("reservation: store cannot be nil")
	}
	if messenger == nil {
		panic("reservation: messenger cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}

	s := &Sweeper{
		store:     store,
		messenger: messenger,
		loc:       loc,
		interval:  defaultSweepInterval,
		window:    defaultReminderWindow,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetMetrics attaches booking metrics.
func (s *Sweeper) SetMetrics(m *metrics.BookingMetrics) {
	s.metrics = m
}

// Run sweeps immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("reminder sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass. A failure on one reservation never aborts the rest.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	due, err := s.store.ListDueReminders(ctx, now, now.Add(s.window))
	if err != nil {
		s.logger.Error("reminder sweep failed", "error", err)
		return
	}
	if len(due) == 0 {
		return
	}
	s.logger.Info("reminder sweep", "due", len(due))

	for i := range due {
		s.remind(ctx, &due[i])
	}
}

func (s *Sweeper) remind(ctx context.Context, r *Reservation) {
	claimed, err := s.store.MarkReminded(ctx, r.ReservationID)
	if err != nil {
		s.logger.Error("failed to claim reminder", "reservation_id", r.ReservationID, "error", err)
		return
	}
	if !claimed {
		return
	}

	start, err := r.Start()
	if err != nil {
		s.logger.Error("reminder skipped, bad start time", "reservation_id", r.ReservationID, "error", err)
		return
	}
	local := start.In(s.loc)
	text := fmt.Sprintf("A quick reminder: your workshop is %s %s at %s. See you soon!",
		local.Weekday(),
		local.Format("02.01"),
		local.Format("15:04"),
	)

	s.metrics.ObserveReminder()
	if err := s.messenger.SendText(ctx, r.CustomerID, text); err != nil {
		s.logger.Error("failed to send reminder",
			"reservation_id", r.ReservationID,
			"customer_id", r.CustomerID,
			"error", err,
		)
	}
}
