package approvals

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/clayhaus/bookingbot/pkg/logging"
)

const (
	defaultWorkerCount = 1
	defaultWaitSeconds = 10
	defaultBatchSize   = 5
	defaultMaxAttempts = 3
	defaultBaseDelay   = 2 * time.Second
)

// Notifier delivers an approval request to the owner's channel.
type Notifier interface {
	RequestApproval(ctx context.Context, req Request) error
}

// Worker consumes the approval queue and delivers requests to the owner with
// bounded retry. Delivery failure never invalidates the pending reservation;
// after the last attempt the request is dropped and logged.
type Worker struct {
	queue    Queue
	notifier Notifier
	logger   *logging.Logger
	wg       sync.WaitGroup
	cfg      workerConfig
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	maxAttempts      int
	baseDelay        time.Duration
}

// WorkerOption customizes the worker.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of consumer goroutines.
func WithWorkerCount(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.workers = n
		}
	}
}

// WithMaxAttempts bounds delivery retries per request.
func WithMaxAttempts(n int) WorkerOption {
	return func(cfg *workerConfig) {
		if n > 0 {
			cfg.maxAttempts = n
		}
	}
}

// WithRetryBaseDelay sets the first retry delay; each retry doubles it.
func WithRetryBaseDelay(d time.Duration) WorkerOption {
	return func(cfg *workerConfig) {
		if d > 0 {
			cfg.baseDelay = d
		}
	}
}

// WithReceiveWait sets the long-poll wait in seconds.
func WithReceiveWait(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds >= 0 {
			cfg.receiveWaitSecs = seconds
		}
	}
}

// NewWorker constructs a queue consumer around the provided notifier.
func NewWorker(queue Queue, notifier Notifier, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if queue == nil {
		panic("approvals: queue cannot be nil")
	}
	if notifier == nil {
		panic("approvals: notifier cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
		maxAttempts:      defaultMaxAttempts,
		baseDelay:        defaultBaseDelay,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		queue:    queue,
		notifier: notifier,
		logger:   logger,
		cfg:      cfg,
	}
}

// Enqueue serializes an approval request onto the queue.
func Enqueue(ctx context.Context, queue Queue, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}
	return queue.Send(ctx, string(body))
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("approval worker started", "worker_id", workerID)

	backoff := time.Second

	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("approval worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			w.logger.Error("failed to receive approval requests", "error", err, "worker_id", workerID)
			time.Sleep(backoff)
			if backoff < 5*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg Message) {
	var req Request
	if err := json.Unmarshal([]byte(msg.Body), &req); err != nil {
		w.logger.Error("failed to decode approval request", "error", err)
		w.deleteMessage(msg.ReceiptHandle)
		return
	}

	if err := w.deliver(ctx, req); err != nil {
		w.logger.Error("giving up on approval delivery",
			"reservation_id", req.ReservationID,
			"attempts", w.cfg.maxAttempts,
			"error", err,
		)
	}
	// Either delivered or exhausted; the pending reservation stands
	// regardless, so the message is always removed.
	w.deleteMessage(msg.ReceiptHandle)
}

func (w *Worker) deliver(ctx context.Context, req Request) error {
	delay := w.cfg.baseDelay
	var lastErr error

	for attempt := 1; attempt <= w.cfg.maxAttempts; attempt++ {
		lastErr = w.notifier.RequestApproval(ctx, req)
		if lastErr == nil {
			if attempt > 1 {
				w.logger.Info("approval delivered after retry",
					"reservation_id", req.ReservationID,
					"attempt", attempt,
				)
			}
			return nil
		}
		if attempt == w.cfg.maxAttempts {
			break
		}
		w.logger.Warn("approval delivery failed, retrying",
			"reservation_id", req.ReservationID,
			"attempt", attempt,
			"error", lastErr,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return lastErr
}

func (w *Worker) deleteMessage(receiptHandle string) {
	if err := w.queue.Delete(context.Background(), receiptHandle); err != nil {
		w.logger.Warn("failed to delete approval message", "error", err)
	}
}
