// Package calendar integrates the studio's Google Calendar as the source of
// truth for existing bookings and the sink for confirmed ones.
package calendar

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/clayhaus/bookingbot/internal/schedule"
	"github.com/clayhaus/bookingbot/pkg/logging"
)

const defaultCallTimeout = 10 * time.Second

// Client reads busy intervals from and writes events to Google Calendar.
type Client struct {
	service     *gcal.Service
	calendarID  string
	loc         *time.Location
	callTimeout time.Duration
	logger      *logging.Logger
}

// Option customizes the client.
type Option func(*Client)

// WithCallTimeout bounds every calendar API call.
func WithCallTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// NewClient builds a calendar client from base64-encoded service account
// credentials (as provisioned in the environment).
func NewClient(ctx context.Context, credentialsBase64, calendarID string, loc *time.Location, logger *logging.Logger, opts ...Option) (*Client, error) {
	if credentialsBase64 == "" {
		return nil, errors.New("calendar: credentials are required")
	}
	creds, err := base64.StdEncoding.DecodeString(credentialsBase64)
	if err != nil {
		return nil, fmt.Errorf("calendar: invalid base64 credentials: %w", err)
	}

	service, err := gcal.NewService(ctx,
		option.WithCredentialsJSON(creds),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("calendar: create service: %w", err)
	}

	if calendarID == "" {
		calendarID = "primary"
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = logging.Default()
	}

	c := &Client{
		service:     service,
		calendarID:  calendarID,
		loc:         loc,
		callTimeout: defaultCallTimeout,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ schedule.BusyLister = (*Client)(nil)

// ListBusyIntervals returns the busy intervals for the given calendar day in
// business-local time. All-day entries cover the whole day and are clamped by
// the availability engine.
func (c *Client) ListBusyIntervals(ctx context.Context, day time.Time) ([]schedule.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	day = day.In(c.loc)
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, c.loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	events, err := c.service.Events.List(c.calendarID).
		TimeMin(dayStart.Format(time.RFC3339)).
		TimeMax(dayEnd.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("calendar: list events: %w", err)
	}

	intervals := make([]schedule.Interval, 0, len(events.Items))
	for _, item := range events.Items {
		iv, ok := c.eventInterval(item, dayStart, dayEnd)
		if !ok {
			continue
		}
		intervals = append(intervals, iv)
	}
	return intervals, nil
}

func (c *Client) eventInterval(item *gcal.Event, dayStart, dayEnd time.Time) (schedule.Interval, bool) {
	if item.Start == nil || item.End == nil {
		return schedule.Interval{}, false
	}

	start, ok := c.eventTime(item.Start, dayStart)
	if !ok {
		return schedule.Interval{}, false
	}
	end, ok := c.eventTime(item.End, dayEnd)
	if !ok {
		return schedule.Interval{}, false
	}
	if !end.After(start) {
		return schedule.Interval{}, false
	}
	return schedule.Interval{Start: start, End: end}, true
}

// eventTime resolves a timed or all-day event boundary to local time.
func (c *Client) eventTime(edt *gcal.EventDateTime, allDayFallback time.Time) (time.Time, bool) {
	if edt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, edt.DateTime)
		if err != nil {
			c.logger.Warn("calendar: unparseable event time", "value", edt.DateTime, "error", err)
			return time.Time{}, false
		}
		return t.In(c.loc), true
	}
	if edt.Date != "" {
		t, err := time.ParseInLocation(time.DateOnly, edt.Date, c.loc)
		if err != nil {
			c.logger.Warn("calendar: unparseable all-day date", "value", edt.Date, "error", err)
			return time.Time{}, false
		}
		return t, true
	}
	return allDayFallback, true
}

// CreateEvent writes a confirmed reservation to the calendar and returns the
// created event's ID.
func (c *Client) CreateEvent(ctx context.Context, summary, description string, start, end time.Time) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	event := &gcal.Event{
		Summary:     summary,
		Description: description,
		Start: &gcal.EventDateTime{
			DateTime: start.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: end.In(c.loc).Format(time.RFC3339),
			TimeZone: c.loc.String(),
		},
	}

	created, err := c.service.Events.Insert(c.calendarID, event).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("calendar: insert event: %w", err)
	}

	c.logger.Info("calendar: event created", "event_id", created.Id, "summary", summary)
	return created.Id, nil
}
