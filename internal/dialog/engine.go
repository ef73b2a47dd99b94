// Package dialog drives the reservation wizard: it turns inbound customer
// text plus the stored draft into the next state and an outbound reply.
package dialog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/clayhaus/bookingbot/internal/extract"
	"github.com/clayhaus/bookingbot/internal/faq"
	"github.com/clayhaus/bookingbot/internal/schedule"
	"github.com/clayhaus/bookingbot/internal/session"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

// Booker submits a customer-confirmed draft as a pending reservation and
// kicks off owner approval. It returns the new reservation's ID.
type Booker interface {
	Request(ctx context.Context, draft *session.ReservationDraft) (string, error)
}

const (
	defaultMaxHeadcount  = 50
	defaultDurationHours = 2
	maxDurationHours     = 8
	dayOptionCount       = 3
)

const (
	promptDate      = "What day would you like to come in? A date like 12.06 works, or something like \"next Tuesday\"."
	promptTime      = "What time works for you?"
	promptHeadcount = "How many people should I book for?"
	promptDuration  = "How long should the workshop be? Most groups pick 2 hours (anything from 1 to 8)."
	apologyUnknown  = "Sorry, I can't reach the calendar right now. Please try again in a moment, or suggest a different slot."
	apologyGeneric  = "Sorry, something went wrong on my end. Please try again in a moment."
)

// Engine is the dialogue state machine. Safe for concurrent use; message
// handling is serialized per customer.
type Engine struct {
	store        session.Store
	locks        *session.KeyedMutex
	sched        *schedule.Engine
	booker       Booker
	loc          *time.Location
	maxHeadcount int
	logger       *logging.Logger
	now          func() time.Time
}

// Option customizes the engine.
type Option func(*Engine)

// WithMaxHeadcount caps the accepted group size.
func WithMaxHeadcount(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxHeadcount = n
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine builds the state machine.
func NewEngine(store session.Store, sched *schedule.Engine, booker Booker, loc *time.Location, logger *logging.Logger, opts ...Option) *Engine {
	if store == nil {
		panic("dialog: session store cannot be nil")
	}
	if sched == nil {
		panic("dialog: schedule engine cannot be nil")
	}
	if booker == nil {
		panic("dialog: booker cannot be nil")
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}

	e := &Engine{
		store:        store,
		locks:        session.NewKeyedMutex(),
		sched:        sched,
		booker:       booker,
		loc:          loc,
		maxHeadcount: defaultMaxHeadcount,
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// HandleMessage is the single entry point for inbound customer text. Calls
// for the same customer are serialized; different customers proceed in
// parallel.
func (e *Engine) HandleMessage(ctx context.Context, customerID, text string) (Reply, error) {
	if customerID == "" {
		return noReply(), errors.New("dialog: customerID required")
	}
	unlock := e.locks.Lock(customerID)
	defer unlock()

	draft, err := e.store.Get(ctx, customerID)
	if errors.Is(err, session.ErrNotFound) {
		draft = session.NewDraft(customerID, "")
	} else if err != nil {
		e.logger.Error("dialog: failed to load draft", "customer_id", customerID, "error", err)
		return textReply(apologyGeneric), fmt.Errorf("dialog: load draft: %w", err)
	}

	reply, deleted, err := e.transition(ctx, draft, text)
	if err != nil {
		return reply, err
	}

	if deleted {
		if derr := e.store.Delete(ctx, customerID); derr != nil {
			e.logger.Error("dialog: failed to delete draft", "customer_id", customerID, "error", derr)
		}
		return reply, nil
	}
	if perr := e.store.Put(ctx, draft); perr != nil {
		e.logger.Error("dialog: failed to persist draft", "customer_id", customerID, "error", perr)
		return reply, fmt.Errorf("dialog: persist draft: %w", perr)
	}
	return reply, nil
}

// ClearSession drops the customer's draft outright. Used by the admin API.
func (e *Engine) ClearSession(ctx context.Context, customerID string) error {
	unlock := e.locks.Lock(customerID)
	defer unlock()
	return e.store.Delete(ctx, customerID)
}

// transition applies one inbound message to the draft. The returned bool
// means the draft should be deleted instead of persisted.
func (e *Engine) transition(ctx context.Context, d *session.ReservationDraft, text string) (Reply, bool, error) {
	norm := extract.Normalize(text)

	if isCancelPhrase(norm) {
		return textReply("No problem, I've dropped that request. Message me any time you'd like to book."), true, nil
	}
	if isResetPhrase(norm) {
		reset := session.NewDraft(d.CustomerID, d.Channel)
		*d = *reset
		d.State = session.StateCollectingDate
		return textReply("Fresh start! " + promptDate), false, nil
	}
	if isBackPhrase(norm) {
		return e.stepBack(d), false, nil
	}

	if faq.IsQuery(text) {
		// No state change; a question mid-wizard leaves the draft alone,
		// and a question outside one never opens a session.
		fresh := d.State == "" || d.State == session.StateIdle
		return faqDelegate(text), fresh, nil
	}

	switch d.State {
	case session.StateIdle, "":
		return e.handleIntake(ctx, d, text, norm)
	case session.StateCollectingDate:
		return e.handleDate(d, norm)
	case session.StateAwaitingDayChoice:
		return e.handleDayChoice(ctx, d, norm)
	case session.StateCollectingTime:
		return e.handleTime(ctx, d, norm)
	case session.StateCollectingCount:
		return e.handleHeadcount(ctx, d, norm)
	case session.StateCollectingDuration:
		return e.handleDuration(ctx, d, norm)
	case session.StateConfirming:
		return e.handleConfirmation(ctx, d, norm)
	case session.StateAwaitingApproval:
		return textReply("Your request is with the studio for approval. I'll message you the moment they decide!"), false, nil
	default:
		e.logger.Warn("dialog: unexpected state, restarting", "state", string(d.State))
		reset := session.NewDraft(d.CustomerID, d.Channel)
		*d = *reset
		return e.handleIntake(ctx, d, text, norm)
	}
}

var bookingIntentWords = []string{
	"book", "booking", "reserve", "reservation", "appointment",
	"workshop", "sign up", "signup", "slot", "visit",
}

func hasBookingIntent(norm string) bool {
	for _, w := range bookingIntentWords {
		if strings.Contains(norm, w) {
			return true
		}
	}
	return false
}

// handleIntake consumes the first message of a session. Any fields supplied
// up front are captured in one pass; the first missing one is prompted for in
// the order headcount, date, time, duration.
func (e *Engine) handleIntake(ctx context.Context, d *session.ReservationDraft, text, norm string) (Reply, bool, error) {
	now := e.now()
	filled := e.fillFields(d, norm, now)

	if !filled {
		if extract.IsVagueDatePhrase(norm) {
			return e.offerDayOptions(d, norm), false, nil
		}
		if hasBookingIntent(norm) {
			d.State = session.StateCollectingDate
			return textReply("Happy to book a workshop for you! " + promptDate), false, nil
		}
		if strings.TrimSpace(norm) == "" {
			return noReply(), true, nil
		}
		// Not a booking message; let the FAQ responder have it.
		return faqDelegate(text), true, nil
	}

	if extract.IsVagueDatePhrase(norm) && d.Date == "" {
		return e.offerDayOptions(d, norm), false, nil
	}
	if reply, closed := e.rejectClosedDay(d); closed {
		return reply, false, nil
	}
	if d.Complete() {
		return e.checkAndConfirm(ctx, d)
	}
	return e.promptNext(d)
}

// rejectClosedDay clears a date fillFields stored without the opening-hours
// check acceptDay applies on the wizard path.
func (e *Engine) rejectClosedDay(d *session.ReservationDraft) (Reply, bool) {
	if d.Date == "" {
		return Reply{}, false
	}
	day, ok := d.DateValue(e.loc)
	if !ok {
		return Reply{}, false
	}
	if _, open := e.sched.OpeningFor(day); open {
		return Reply{}, false
	}
	d.Date = ""
	d.State = session.StateCollectingDate
	return textReply(fmt.Sprintf("We're closed on %ss, sorry. Which other day works for you?", day.Weekday())), true
}

// fillFields runs every extractor over the text and records what it finds.
// Returns true if at least one field was captured. Times are taken strictly
// here; a headcount or date digit in the same sentence must never be read as
// a start time.
func (e *Engine) fillFields(d *session.ReservationDraft, norm string, now time.Time) bool {
	filled := false

	if day, ok := e.extractDay(norm, now); ok && !dayInPast(day, now) {
		d.SetDate(day)
		filled = true
	}
	if ct, ok := extract.TimeStrict(norm); ok {
		d.SetTime(ct)
		filled = true
	}
	if n, ok := extract.HeadcountStrict(norm); ok && n >= 1 && n <= e.maxHeadcount {
		d.Headcount = n
		filled = true
	}
	if h, ok := extract.DurationHours(norm); ok {
		d.DurationHours = h
		filled = true
	}
	return filled
}

// extractDay applies the date rules in fixed precedence: explicit date, then
// weekday name, then relative-day keyword.
func (e *Engine) extractDay(norm string, now time.Time) (time.Time, bool) {
	if day, ok := extract.Date(norm, now); ok {
		return day, true
	}
	if wd, ok := extract.Weekday(norm); ok {
		return extract.ResolveWeekday(wd, now), true
	}
	if day, ok := extract.RelativeDay(norm, now); ok {
		return day, true
	}
	return time.Time{}, false
}

func dayInPast(day, now time.Time) bool {
	y1, m1, d1 := day.Date()
	y2, m2, d2 := now.Date()
	if y1 != y2 {
		return y1 < y2
	}
	if m1 != m2 {
		return m1 < m2
	}
	return d1 < d2
}

// promptNext asks for the first missing field and sets the matching state.
func (e *Engine) promptNext(d *session.ReservationDraft) (Reply, bool, error) {
	switch d.MissingField() {
	case "headcount":
		d.State = session.StateCollectingCount
		return textReply(promptHeadcount), false, nil
	case "date":
		d.State = session.StateCollectingDate
		return textReply(promptDate), false, nil
	case "time":
		d.State = session.StateCollectingTime
		return textReply(promptTime), false, nil
	case "duration":
		d.State = session.StateCollectingDuration
		return textReply(promptDuration), false, nil
	default:
		d.State = session.StateConfirming
		return confirmReply(e.summary(d)), false, nil
	}
}

func (e *Engine) handleDate(d *session.ReservationDraft, norm string) (Reply, bool, error) {
	now := e.now()

	if extract.IsVagueDatePhrase(norm) {
		return e.offerDayOptions(d, norm), false, nil
	}

	day, ok := e.extractDay(norm, now)
	if !ok {
		return textReply("I didn't catch a date there. " + promptDate), false, nil
	}
	if dayInPast(day, now) {
		reply := e.offerDayOptions(d, norm)
		return textReply("That date has already passed. " + reply.Text), false, nil
	}
	return e.acceptDay(d, day)
}

// acceptDay validates the day against opening hours and moves the wizard on.
func (e *Engine) acceptDay(d *session.ReservationDraft, day time.Time) (Reply, bool, error) {
	if _, open := e.sched.OpeningFor(day); !open {
		return textReply(fmt.Sprintf("We're closed on %ss, sorry. Which other day works for you?", day.Weekday())), false, nil
	}
	d.SetDate(day)
	d.DayOptions = nil
	return e.advance(d)
}

// advance continues the wizard in state order, skipping fields the customer
// already supplied.
func (e *Engine) advance(d *session.ReservationDraft) (Reply, bool, error) {
	switch {
	case d.Date == "":
		d.State = session.StateCollectingDate
		return textReply(promptDate), false, nil
	case d.Time == "":
		d.State = session.StateCollectingTime
		return textReply(promptTime), false, nil
	case d.Headcount == 0:
		d.State = session.StateCollectingCount
		return textReply(promptHeadcount), false, nil
	default:
		d.State = session.StateCollectingDuration
		return textReply(promptDuration), false, nil
	}
}

// offerDayOptions proposes the next few open-ended days and waits for a pick.
func (e *Engine) offerDayOptions(d *session.ReservationDraft, norm string) Reply {
	preferNextWeek := strings.Contains(norm, "next week")
	options := e.sched.SuggestDayOptions(e.now(), dayOptionCount, preferNextWeek)
	d.SetDayOptions(options)
	d.State = session.StateAwaitingDayChoice

	var b strings.Builder
	b.WriteString("Here's what I can offer:\n")
	for i, day := range options {
		fmt.Fprintf(&b, "%d) %s %s\n", i+1, day.Weekday(), day.Format("02.01"))
	}
	b.WriteString("Reply 1, 2 or 3, or give me another date.")
	return textReply(b.String())
}

func (e *Engine) handleDayChoice(ctx context.Context, d *session.ReservationDraft, norm string) (Reply, bool, error) {
	now := e.now()

	if idx, ok := extract.OptionIndex(norm); ok {
		day, valid := d.DayOption(idx, e.loc)
		if !valid {
			return textReply(fmt.Sprintf("Please pick a number between 1 and %d, or give me a date.", len(d.DayOptions))), false, nil
		}
		return e.acceptDayChoice(ctx, d, day)
	}

	if day, ok := e.extractDay(norm, now); ok {
		if dayInPast(day, now) {
			return textReply("That date has already passed. Pick one of the options above, or another future date."), false, nil
		}
		return e.acceptDayChoice(ctx, d, day)
	}

	return textReply("Reply with 1, 2 or 3, or give me a specific date."), false, nil
}

func (e *Engine) acceptDayChoice(ctx context.Context, d *session.ReservationDraft, day time.Time) (Reply, bool, error) {
	if _, open := e.sched.OpeningFor(day); !open {
		return textReply(fmt.Sprintf("We're closed on %ss, sorry. Pick another option or date.", day.Weekday())), false, nil
	}
	d.SetDate(day)
	d.DayOptions = nil
	if d.Complete() {
		return e.checkAndConfirm(ctx, d)
	}
	return e.advance(d)
}

func (e *Engine) handleTime(ctx context.Context, d *session.ReservationDraft, norm string) (Reply, bool, error) {
	ct, ok := extract.Time(norm)
	if !ok {
		return textReply("I didn't catch a time there. Something like 15:00 or 3pm works."), false, nil
	}
	d.SetTime(ct)

	if start, ok := d.StartAt(e.loc); ok && start.Before(e.now()) {
		d.Time = ""
		return textReply("That time has already passed. What later time works for you?"), false, nil
	}

	if d.Complete() {
		return e.checkAndConfirm(ctx, d)
	}
	return e.advance(d)
}

func (e *Engine) handleHeadcount(ctx context.Context, d *session.ReservationDraft, norm string) (Reply, bool, error) {
	n, ok := extract.HeadcountStrict(norm)
	if !ok {
		n, ok = extract.Headcount(norm)
	}
	if !ok {
		return textReply("How many people is that? A number like \"4\" or \"for 4 people\" works."), false, nil
	}
	if n < 1 || n > e.maxHeadcount {
		return textReply(fmt.Sprintf("I can book groups of 1 to %d people. How many should it be?", e.maxHeadcount)), false, nil
	}
	d.Headcount = n

	if d.Complete() {
		return e.checkAndConfirm(ctx, d)
	}
	return e.advance(d)
}

func (e *Engine) handleDuration(ctx context.Context, d *session.ReservationDraft, norm string) (Reply, bool, error) {
	h, ok := extract.DurationHours(norm)
	if !ok {
		// A bare number counts as hours only while duration is the
		// question on the table.
		h, ok = extract.BareDurationHours(norm)
	}
	if !ok {
		return textReply(fmt.Sprintf("How many hours should I book? 1 to %d; %d is typical.", maxDurationHours, defaultDurationHours)), false, nil
	}
	d.DurationHours = h
	return e.checkAndConfirm(ctx, d)
}

// checkAndConfirm runs the availability point query on a complete draft and
// either asks for confirmation or steers the customer to another slot.
func (e *Engine) checkAndConfirm(ctx context.Context, d *session.ReservationDraft) (Reply, bool, error) {
	if reply, closed := e.rejectClosedDay(d); closed {
		return reply, false, nil
	}
	start, ok := d.StartAt(e.loc)
	if !ok {
		return e.promptNext(d)
	}
	if start.Before(e.now()) {
		d.Time = ""
		d.State = session.StateCollectingTime
		return textReply("That time has already passed. What later time works for you?"), false, nil
	}

	avail, err := e.sched.Check(ctx, start, d.DurationHours)
	switch avail {
	case schedule.Unknown:
		e.logger.Warn("dialog: availability unknown", "customer_id", d.CustomerID, "error", err)
		d.State = session.StateCollectingDuration
		return textReply(apologyUnknown), false, nil
	case schedule.Busy:
		return e.offerAlternatives(ctx, d)
	default:
		d.State = session.StateConfirming
		return confirmReply(e.summary(d)), false, nil
	}
}

// offerAlternatives lists free windows on the requested day after a busy
// result, clearing the time so the wizard re-collects it.
func (e *Engine) offerAlternatives(ctx context.Context, d *session.ReservationDraft) (Reply, bool, error) {
	d.Time = ""
	day, _ := d.DateValue(e.loc)

	ranges, err := e.sched.FreeRanges(ctx, day, d.DurationHours)
	if err != nil {
		e.logger.Warn("dialog: free-range lookup failed", "customer_id", d.CustomerID, "error", err)
		d.State = session.StateCollectingTime
		return textReply(apologyUnknown), false, nil
	}
	if len(ranges) == 0 {
		d.Date = ""
		d.State = session.StateCollectingDate
		return textReply("That day is fully booked for that length, I'm afraid. Which other day works for you?"), false, nil
	}

	if len(ranges) > 3 {
		ranges = ranges[:3]
	}
	parts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		parts = append(parts, r.String())
	}
	d.State = session.StateCollectingTime
	return textReply(fmt.Sprintf("That slot is taken, sorry. Free that day: %s. What time instead?", strings.Join(parts, ", "))), false, nil
}

func (e *Engine) handleConfirmation(ctx context.Context, d *session.ReservationDraft, norm string) (Reply, bool, error) {
	switch extract.YesNo(norm) {
	case extract.IntentAffirm:
		return e.recheckAndSubmit(ctx, d)
	case extract.IntentDecline:
		return textReply("No problem, I've scrapped that request. Tell me if another time would suit you."), true, nil
	}

	// Corrections may still land here; any change forces a fresh
	// availability check before confirmation is offered again.
	now := e.now()
	if e.fillFields(d, norm, now) {
		return e.checkAndConfirm(ctx, d)
	}
	return confirmReply(e.summary(d)), false, nil
}

// recheckAndSubmit re-verifies the slot at the moment of affirmation. The
// calendar may have filled up between the offer and the customer's yes.
func (e *Engine) recheckAndSubmit(ctx context.Context, d *session.ReservationDraft) (Reply, bool, error) {
	start, ok := d.StartAt(e.loc)
	if !ok {
		return e.promptNext(d)
	}
	if start.Before(e.now()) {
		d.Time = ""
		d.State = session.StateCollectingTime
		return textReply("That time has slipped into the past while we talked. What later time works?"), false, nil
	}

	avail, err := e.sched.Check(ctx, start, d.DurationHours)
	switch avail {
	case schedule.Unknown:
		e.logger.Warn("dialog: availability unknown at confirmation", "customer_id", d.CustomerID, "error", err)
		return textReply(apologyUnknown), false, nil
	case schedule.Busy:
		return e.offerAlternatives(ctx, d)
	default:
		return e.submit(ctx, d)
	}
}

// submit snapshots the draft into a pending reservation and parks the
// conversation until the studio decides.
func (e *Engine) submit(ctx context.Context, d *session.ReservationDraft) (Reply, bool, error) {
	id, err := e.booker.Request(ctx, d)
	if err != nil {
		e.logger.Error("dialog: reservation request failed", "customer_id", d.CustomerID, "error", err)
		return textReply("Sorry, I couldn't submit that just now. Give it another go in a moment?"), false, nil
	}
	d.ReservationID = id
	d.State = session.StateAwaitingApproval
	return textReply("I've sent your request to the studio for approval. I'll message you as soon as they reply!"), false, nil
}

// summary renders the confirmation question for a complete draft.
func (e *Engine) summary(d *session.ReservationDraft) string {
	start, _ := d.StartAt(e.loc)
	return fmt.Sprintf(
		"Workshop for %d people on %s %s at %s, %d hours. Shall I send it to the studio for approval?",
		d.Headcount,
		start.Weekday(),
		start.Format("02.01.2006"),
		start.Format("15:04"),
		d.DurationHours,
	)
}

// stepBack moves one step backward in the wizard order.
func (e *Engine) stepBack(d *session.ReservationDraft) Reply {
	switch d.State {
	case session.StateConfirming:
		d.DurationHours = 0
		d.State = session.StateCollectingDuration
		return textReply(promptDuration)
	case session.StateCollectingDuration:
		d.Headcount = 0
		d.State = session.StateCollectingCount
		return textReply(promptHeadcount)
	case session.StateCollectingCount:
		d.Time = ""
		d.State = session.StateCollectingTime
		return textReply(promptTime)
	case session.StateCollectingTime, session.StateAwaitingDayChoice:
		d.Date = ""
		d.DayOptions = nil
		d.State = session.StateCollectingDate
		return textReply(promptDate)
	case session.StateAwaitingApproval:
		return textReply("That request is already with the studio. Say \"cancel\" if you'd like to drop it.")
	default:
		d.State = session.StateCollectingDate
		return textReply(promptDate)
	}
}

var cancelPhrases = []string{"cancel", "never mind", "nevermind", "forget it", "stop"}
var resetPhrases = []string{"reset", "start over", "start again", "restart"}
var backPhrases = []string{"back", "go back"}

func matchPhrase(norm string, phrases []string) bool {
	for _, p := range phrases {
		if norm == p {
			return true
		}
	}
	return false
}

func isCancelPhrase(norm string) bool { return matchPhrase(norm, cancelPhrases) }
func isResetPhrase(norm string) bool  { return matchPhrase(norm, resetPhrases) }
func isBackPhrase(norm string) bool   { return matchPhrase(norm, backPhrases) }
