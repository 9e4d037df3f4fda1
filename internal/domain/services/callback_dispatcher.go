package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"honeypot-lab/internal/domain/models"
	"honeypot-lab/pkg/logger"
)

// ErrCallbackDisabled is returned when no callback URL is configured
var ErrCallbackDisabled = errors.New("callback URL not configured")

const callbackUserAgent = "honeypot-lab/1.0"

// CallbackDispatcherConfig contains configuration for report delivery
type CallbackDispatcherConfig struct {
	URL       string
	Retries   int
	Backoff   time.Duration // multiplied by the attempt number
	Timeout   time.Duration
	Workers   int
	QueueSize int
}

// DefaultCallbackConfig returns sensible defaults
func DefaultCallbackConfig() CallbackDispatcherConfig {
	return CallbackDispatcherConfig{
		Retries:   3,
		Backoff:   1500 * time.Millisecond,
		Timeout:   10 * time.Second,
		Workers:   2,
		QueueSize: 256,
	}
}

// callbackJob is one queued report
type callbackJob struct {
	session models.Session
	notes   string
}

// CallbackDispatcher delivers session reports to the evaluation platform in
// the background. Delivery is retried with linear backoff and then dropped.
type CallbackDispatcher struct {
	config     CallbackDispatcherConfig
	store      *SessionStore
	httpClient *http.Client
	queue      chan *callbackJob
	logger     *logger.Logger

	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once

	delivered atomic.Int64
	failed    atomic.Int64
}

// NewCallbackDispatcher creates a dispatcher and starts its workers
func NewCallbackDispatcher(store *SessionStore, log *logger.Logger, cfg CallbackDispatcherConfig) *CallbackDispatcher {
	defaults := DefaultCallbackConfig()
	if cfg.Retries <= 0 {
		cfg.Retries = defaults.Retries
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaults.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &CallbackDispatcher{
		config: cfg,
		store:  store,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		queue:  make(chan *callbackJob, cfg.QueueSize),
		logger: log.WithComponent("callback-dispatcher"),
		ctx:    ctx,
		cancel: cancel,
	}

	d.startWorkers()
	return d
}

func (d *CallbackDispatcher) startWorkers() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	d.logger.Info().Int("workers", d.config.Workers).Str("url", d.config.URL).Msg("callback workers started")
}

func (d *CallbackDispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			d.logger.Debug().Int("worker", id).Msg("callback worker stopping")
			return
		case job := <-d.queue:
			_ = d.Deliver(d.ctx, job.session, job.notes)
		}
	}
}

// Dispatch queues a report and returns immediately. It returns false when the
// queue is full or the dispatcher is stopped; nothing is attempted then.
func (d *CallbackDispatcher) Dispatch(session models.Session, notes string) bool {
	if d.ctx.Err() != nil {
		return false
	}
	select {
	case d.queue <- &callbackJob{session: session, notes: notes}:
		return true
	default:
		d.logger.Warn().Str("session_id", session.ID).Int("queue_size", d.config.QueueSize).Msg("callback queue full")
		return false
	}
}

// Deliver posts the report for session, retrying up to the configured number
// of attempts. On success the session is marked as sent.
func (d *CallbackDispatcher) Deliver(ctx context.Context, session models.Session, notes string) error {
	log := d.logger.WithSessionID(session.ID)

	if d.config.URL == "" {
		log.Warn().Msg("callback skipped, no URL configured")
		return ErrCallbackDisabled
	}
	if snap, ok := d.store.Snapshot(session.ID); ok && snap.CallbackSent {
		return nil
	}

	body, err := json.Marshal(models.NewCallbackPayload(session, notes))
	if err != nil {
		return fmt.Errorf("failed to marshal callback payload: %w", err)
	}
	deliveryID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= d.config.Retries; attempt++ {
		start := time.Now()
		lastErr = d.post(ctx, body, deliveryID, attempt)
		if lastErr == nil {
			if err := d.store.MarkCallbackSent(session.ID); err != nil {
				log.Warn().Err(err).Msg("delivered report for unknown session")
			}
			d.delivered.Add(1)
			log.Info().
				Int("attempt", attempt).
				Dur("duration", time.Since(start)).
				Int("total_messages", session.TotalMessages).
				Msg("callback delivered")
			return nil
		}

		log.Warn().Err(lastErr).Int("attempt", attempt).Int("max_attempts", d.config.Retries).Msg("callback attempt failed")

		if attempt < d.config.Retries {
			if err := sleepContext(ctx, d.config.Backoff*time.Duration(attempt)); err != nil {
				lastErr = err
				break
			}
		}
	}

	d.failed.Add(1)
	log.Error().Err(lastErr).Int("attempts", d.config.Retries).Msg("callback failed, report dropped")
	return fmt.Errorf("callback for session %s failed: %w", session.ID, lastErr)
}

func (d *CallbackDispatcher) post(ctx context.Context, body []byte, deliveryID string, attempt int) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", callbackUserAgent)
	req.Header.Set("X-Delivery-ID", deliveryID)
	req.Header.Set("X-Delivery-Attempt", strconv.Itoa(attempt))

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stats returns delivered and failed report counts
func (d *CallbackDispatcher) Stats() (delivered, failed int64) {
	return d.delivered.Load(), d.failed.Load()
}

// Stop cancels in-flight deliveries and waits for the workers to exit.
// Reports still queued are dropped.
func (d *CallbackDispatcher) Stop() {
	d.stopOnce.Do(func() {
		d.cancel()
		d.wg.Wait()
		if pending := len(d.queue); pending > 0 {
			d.logger.Warn().Int("pending", pending).Msg("callback reports dropped on shutdown")
		}
		d.logger.Info().Msg("callback dispatcher stopped")
	})
}

// ShouldReport is the completion condition for a session: a detected scam,
// not yet reported, with enough turns and either useful intel or a long
// enough conversation.
func ShouldReport(s models.Session, minTurns, maxTurns int) bool {
	return s.ScamDetected &&
		!s.CallbackSent &&
		s.TotalMessages >= minTurns &&
		(s.HasReportableIntel() || s.TotalMessages >= maxTurns)
}

// AgentNotes renders the free-text summary attached to a report
func AgentNotes(confidence float64, keywords []string) string {
	sorted := append([]string(nil), keywords...)
	sort.Strings(sorted)

	list := strings.Join(sorted, ", ")
	if list == "" {
		list = "none"
	}
	return fmt.Sprintf("Scam detected (confidence %.1f). Keywords: %s.", confidence, list)
}
