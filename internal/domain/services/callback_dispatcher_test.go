package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// callbackServer answers with statuses[i] for the i-th request and the last
// status after that.
type callbackServer struct {
	*httptest.Server
	hits     atomic.Int32
	payloads chan models.CallbackPayload
	headers  chan http.Header
}

func newCallbackServer(t *testing.T, statuses ...int) *callbackServer {
	t.Helper()
	cs := &callbackServer{
		payloads: make(chan models.CallbackPayload, 16),
		headers:  make(chan http.Header, 16),
	}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := int(cs.hits.Add(1))
		var p models.CallbackPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		cs.payloads <- p
		cs.headers <- r.Header.Clone()

		status := statuses[len(statuses)-1]
		if n <= len(statuses) {
			status = statuses[n-1]
		}
		w.WriteHeader(status)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func newTestDispatcher(t *testing.T, store *SessionStore, url string) *CallbackDispatcher {
	t.Helper()
	d := NewCallbackDispatcher(store, logger.Nop(), CallbackDispatcherConfig{
		URL:     url,
		Retries: 3,
		Backoff: time.Millisecond,
		Timeout: 2 * time.Second,
		Workers: 1,
	})
	t.Cleanup(d.Stop)
	return d
}

func reportableSession(store *SessionStore, id string) models.Session {
	store.MarkScamDetected(id)
	store.ReplaceHistory(id, make([]models.Turn, 6))
	store.MergeIntel(id, models.ExtractedIntel{UPIIDs: []string{"scammer@paytm"}})
	store.MergeKeywords(id, []string{"urgently", "pay"})
	s, _ := store.ClaimCallback(id, nil)
	return s
}

func TestDeliverRetriesUntilSuccess(t *testing.T) {
	srv := newCallbackServer(t, http.StatusInternalServerError, http.StatusBadGateway, http.StatusOK)
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, srv.URL)

	session := reportableSession(store, "s1")
	if err := d.Deliver(context.Background(), session, "notes"); err != nil {
		t.Fatalf("Deliver() = %v", err)
	}
	if got := srv.hits.Load(); got != 3 {
		t.Fatalf("server hit %d times, want 3", got)
	}

	snap, _ := store.Snapshot("s1")
	if !snap.CallbackSent {
		t.Fatal("session not marked as sent")
	}

	p := <-srv.payloads
	if p.SessionID != "s1" || !p.ScamDetected || p.TotalMessagesExchanged != 6 || p.AgentNotes != "notes" {
		t.Errorf("unexpected payload: %+v", p)
	}
	if len(p.ExtractedIntelligence.UPIIDs) != 1 || p.ExtractedIntelligence.SuspiciousKeywords[0] != "pay" {
		t.Errorf("unexpected intelligence: %+v", p.ExtractedIntelligence)
	}

	h := <-srv.headers
	if h.Get("Content-Type") != "application/json" || h.Get("X-Delivery-ID") == "" {
		t.Errorf("missing headers: %v", h)
	}
}

func TestDeliverStopsAfterSuccess(t *testing.T) {
	srv := newCallbackServer(t, http.StatusOK)
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, srv.URL)

	if err := d.Deliver(context.Background(), reportableSession(store, "s"), "n"); err != nil {
		t.Fatal(err)
	}
	if got := srv.hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1", got)
	}
	delivered, failed := d.Stats()
	if delivered != 1 || failed != 0 {
		t.Fatalf("Stats() = (%d, %d), want (1, 0)", delivered, failed)
	}
}

func TestDeliverGivesUpAfterRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"client error", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newCallbackServer(t, tt.status)
			store := NewSessionStore(logger.Nop())
			d := newTestDispatcher(t, store, srv.URL)

			err := d.Deliver(context.Background(), reportableSession(store, "s"), "n")
			if err == nil {
				t.Fatal("Deliver() succeeded against a failing server")
			}
			if got := srv.hits.Load(); got != 3 {
				t.Fatalf("server hit %d times, want 3", got)
			}
			snap, _ := store.Snapshot("s")
			if snap.CallbackSent {
				t.Fatal("failed delivery marked as sent")
			}
			if _, ok := store.ClaimCallback("s", nil); ok {
				t.Fatal("exhausted session could be claimed again")
			}
		})
	}
}

func TestDeliverSkipsSentSession(t *testing.T) {
	srv := newCallbackServer(t, http.StatusOK)
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, srv.URL)

	session := reportableSession(store, "s")
	_ = store.MarkCallbackSent("s")

	if err := d.Deliver(context.Background(), session, "n"); err != nil {
		t.Fatal(err)
	}
	if got := srv.hits.Load(); got != 0 {
		t.Fatalf("server hit %d times for an already sent session", got)
	}
}

func TestDeliverWithoutURL(t *testing.T) {
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, "")

	if err := d.Deliver(context.Background(), reportableSession(store, "s"), "n"); !errors.Is(err, ErrCallbackDisabled) {
		t.Fatalf("Deliver() = %v, want ErrCallbackDisabled", err)
	}
}

func TestDeliverHonoursCancellation(t *testing.T) {
	srv := newCallbackServer(t, http.StatusInternalServerError)
	store := NewSessionStore(logger.Nop())
	d := NewCallbackDispatcher(store, logger.Nop(), CallbackDispatcherConfig{
		URL:     srv.URL,
		Retries: 3,
		Backoff: time.Hour,
		Workers: 1,
	})
	defer d.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := d.Deliver(ctx, reportableSession(store, "s"), "n")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Deliver() = %v, want deadline exceeded", err)
	}
	if got := srv.hits.Load(); got != 1 {
		t.Fatalf("server hit %d times, want 1 before backoff was cancelled", got)
	}
}

func TestDispatchDeliversInBackground(t *testing.T) {
	srv := newCallbackServer(t, http.StatusOK)
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, srv.URL)

	if !d.Dispatch(reportableSession(store, "bg"), "n") {
		t.Fatal("Dispatch() refused the job")
	}

	select {
	case p := <-srv.payloads:
		if p.SessionID != "bg" {
			t.Fatalf("delivered session %q", p.SessionID)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("report was not delivered")
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		if snap, _ := store.Snapshot("bg"); snap.CallbackSent {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("session never marked as sent")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestDispatchRefusesWhenQueueFull(t *testing.T) {
	busy := make(chan struct{}, 8)
	unblock := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		busy <- struct{}{}
		select {
		case <-unblock:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(unblock) })

	store := NewSessionStore(logger.Nop())
	d := NewCallbackDispatcher(store, logger.Nop(), CallbackDispatcherConfig{
		URL:       srv.URL,
		Retries:   1,
		Timeout:   5 * time.Second,
		Workers:   1,
		QueueSize: 1,
	})
	t.Cleanup(d.Stop)

	if !d.Dispatch(models.Session{ID: "first"}, "n") {
		t.Fatal("first report refused")
	}
	select {
	case <-busy:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the first report")
	}

	if !d.Dispatch(models.Session{ID: "second"}, "n") {
		t.Fatal("second report refused although the queue had room")
	}
	if d.Dispatch(models.Session{ID: "third"}, "n") {
		t.Fatal("third report accepted with a full queue and a stalled worker")
	}
	if _, failed := d.Stats(); failed != 0 {
		t.Fatalf("refused report counted as failed delivery: %d", failed)
	}
}

func TestDispatchAfterStop(t *testing.T) {
	store := NewSessionStore(logger.Nop())
	d := newTestDispatcher(t, store, "http://127.0.0.1:1")
	d.Stop()
	d.Stop()

	if d.Dispatch(models.Session{ID: "x"}, "n") {
		t.Fatal("Dispatch() accepted a job after Stop")
	}
}

func TestShouldReport(t *testing.T) {
	withIntel := models.ExtractedIntel{PhoneNumbers: []string{"9876543210"}}

	tests := []struct {
		name string
		s    models.Session
		want bool
	}{
		{"not a scam", models.Session{TotalMessages: 12, Extracted: withIntel}, false},
		{"too few turns", models.Session{ScamDetected: true, TotalMessages: 5, Extracted: withIntel}, false},
		{"min turns with intel", models.Session{ScamDetected: true, TotalMessages: 6, Extracted: withIntel}, true},
		{"min turns without intel", models.Session{ScamDetected: true, TotalMessages: 6}, false},
		{"max turns without intel", models.Session{ScamDetected: true, TotalMessages: 10}, true},
		{"keywords count as intel", models.Session{ScamDetected: true, TotalMessages: 7, SuspiciousKeywords: []string{"otp"}}, true},
		{"already sent", models.Session{ScamDetected: true, TotalMessages: 12, CallbackSent: true, Extracted: withIntel}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldReport(tt.s, 6, 10); got != tt.want {
				t.Fatalf("ShouldReport() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAgentNotes(t *testing.T) {
	if got, want := AgentNotes(87.5, []string{"urgently", "otp"}), "Scam detected (confidence 87.5). Keywords: otp, urgently."; got != want {
		t.Errorf("AgentNotes() = %q, want %q", got, want)
	}
	if got, want := AgentNotes(75, nil), "Scam detected (confidence 75.0). Keywords: none."; got != want {
		t.Errorf("AgentNotes() = %q, want %q", got, want)
	}
}
