package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSetupMetricsExposesCounters(t *testing.T) {
	handler, m := setupMetrics()
	if handler == nil || m == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	m.ObserveInbound("instagram", "message")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "bookingbot_channels_inbound_total") {
		t.Fatalf("expected inbound counter to be exported")
	}
}

func TestDeferredMessengerBeforeWiring(t *testing.T) {
	m := &deferredMessenger{}
	if err := m.SendText(context.Background(), "cust-1", "hello"); err != nil {
		t.Fatalf("unwired messenger must be a no-op, got %v", err)
	}
}

func TestOpenCalendarHasNoBusyIntervals(t *testing.T) {
	busy, err := openCalendar{}.ListBusyIntervals(context.Background(), time.Now())
	if err != nil || busy != nil {
		t.Fatalf("expected empty busy list, got %v %v", busy, err)
	}
}
