package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/axellelanca/shortlinks/internal/repository"
)

const (
	directReferrer   = "direct"
	unknownUserAgent = "unknown"
	unknownAddress   = "unknown"
)

// ClickObserver is notified of every recording attempt.
type ClickObserver interface {
	ObserveClick(err error)
}

// ClickService updates the analytics fields of a link. Recordings for the same code
// are serialized; recordings for different codes run in parallel.
type ClickService struct {
	linkRepo repository.LinkRepository
	locks    *keyedMutex
	logger   *slog.Logger
}

// NewClickService creates and returns a new instance of ClickService.
func NewClickService(linkRepo repository.LinkRepository) *ClickService {
	return &ClickService{
		linkRepo: linkRepo,
		locks:    newKeyedMutex(),
		logger:   slog.Default().With("component", "clicks"),
	}
}

// RecordClick applies one click to the link identified by event.Code.
// The store performs the read-modify-write atomically; the per-code lock only keeps
// goroutines of this process from contending on the same record.
// Parameters:
//   - ctx: context for the store calls
//   - event: the resolved access to count
//
// Returns:
//   - error: ErrShortCodeNotFound when the link does not exist, or a store failure
func (s *ClickService) RecordClick(ctx context.Context, event models.ClickEvent) error {
	unlock := s.locks.Lock(event.Code)
	defer unlock()

	return s.linkRepo.Update(ctx, event.Code, func(link *models.Link) {
		applyClick(link, event)
	})
}

// Submit records synchronously and only logs failures.
func (s *ClickService) Submit(ctx context.Context, event models.ClickEvent) {
	if err := s.RecordClick(ctx, event); err != nil {
		s.logger.Error("click not recorded", "code", event.Code, "error", err)
	}
}

func applyClick(link *models.Link, event models.ClickEvent) {
	at := event.Timestamp.UTC()
	if event.Timestamp.IsZero() {
		at = time.Now().UTC()
	}
	ref := event.Referrer
	if ref == "" {
		ref = directReferrer
	}
	ua := event.UserAgent
	if ua == "" {
		ua = unknownUserAgent
	}
	ip := event.IPAddress
	if ip == "" {
		ip = unknownAddress
	}

	link.Clicks++
	link.ClicksByDay.Inc(at.Format(time.DateOnly))
	link.Referrers.Inc(ref)
	link.UserAgents.Inc(ua)
	link.ClicksLog = link.ClicksLog.Push(models.Click{
		At:        at,
		Referrer:  ref,
		UserAgent: ua,
		IPAddress: ip,
	}, models.MaxClickLogEntries)
}

// ClickDispatcher is a pool of worker goroutines recording click events asynchronously.
// When the buffer is full, or after Stop, events are recorded inline so that every
// resolved access is counted exactly once.
type ClickDispatcher struct {
	recorder *ClickService
	observer ClickObserver
	events   chan models.ClickEvent
	wg       sync.WaitGroup
	mu       sync.RWMutex
	stopped  bool
	logger   *slog.Logger
}

// StartClickWorkers launches a pool of worker goroutines to process click events asynchronously.
// Parameters:
//   - workerCount: number of concurrent workers to spawn (at least one)
//   - bufferSize: capacity of the event channel
//   - recorder: the service that persists each click
//   - observer: notified of every recording attempt; may be nil
//
// Returns:
//   - *ClickDispatcher: the running pool, to be stopped with Stop
func StartClickWorkers(workerCount, bufferSize int, recorder *ClickService, observer ClickObserver) *ClickDispatcher {
	if workerCount < 1 {
		workerCount = 1
	}
	if bufferSize < 0 {
		bufferSize = 0
	}
	d := &ClickDispatcher{
		recorder: recorder,
		observer: observer,
		events:   make(chan models.ClickEvent, bufferSize),
		logger:   slog.Default().With("component", "click-workers"),
	}

	d.logger.Info("starting click workers", "workers", workerCount, "buffer", bufferSize)
	for i := 0; i < workerCount; i++ {
		d.wg.Add(1)
		go d.clickWorker()
	}
	return d
}

// Submit queues event without blocking on a full buffer.
func (d *ClickDispatcher) Submit(ctx context.Context, event models.ClickEvent) {
	d.mu.RLock()
	if !d.stopped {
		select {
		case d.events <- event:
			d.mu.RUnlock()
			return
		default:
			d.logger.Warn("click buffer full, recording inline", "code", event.Code)
		}
	}
	d.mu.RUnlock()

	// The request context may be cancelled as soon as the redirect is written.
	d.record(context.WithoutCancel(ctx), event)
}

// Pending returns the number of queued events.
func (d *ClickDispatcher) Pending() int {
	return len(d.events)
}

// Stop closes the queue and waits for the workers to drain it, or for ctx to end.
func (d *ClickDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		close(d.events)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("click workers stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// clickWorker exits when the channel is closed and drained.
func (d *ClickDispatcher) clickWorker() {
	defer d.wg.Done()
	for event := range d.events {
		d.record(context.Background(), event)
	}
}

func (d *ClickDispatcher) record(ctx context.Context, event models.ClickEvent) {
	err := d.recorder.RecordClick(ctx, event)
	if d.observer != nil {
		d.observer.ObserveClick(err)
	}
	if err == nil {
		d.logger.Debug("click recorded", "code", event.Code)
		return
	}

	if errors.Is(err, customerrors.ErrShortCodeNotFound) {
		d.logger.Warn("click dropped, link no longer exists", "code", event.Code)
		return
	}
	d.logger.Error("failed to save click",
		"error", customerrors.ErrClickRecordingFailed{Code: event.Code, Reason: err.Error()},
		"user_agent", event.UserAgent,
		"ip", event.IPAddress,
	)
}
