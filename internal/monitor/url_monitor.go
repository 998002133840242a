package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/repository"
)

// StateObserver receives the number of inaccessible destinations after each pass.
type StateObserver interface {
	SetDestinationsDown(n int)
}

// UrlMonitor manages periodic monitoring of destination URLs to check their accessibility.
// It maintains a state map to track status changes and logs when they occur.
// Expired links are skipped.
type UrlMonitor struct {
	linkRepo    repository.LinkRepository // Repository to fetch all links from the store
	schedule    string                    // cron spec, e.g. "@every 5m"
	cron        *cron.Cron
	knownStates map[string]bool // Cache of previous states (code -> accessible)
	mu          sync.Mutex      // Protects knownStates
	httpClient  *http.Client
	observer    StateObserver
	now         func() time.Time
	logger      *slog.Logger
}

// NewUrlMonitor creates and returns a new instance of UrlMonitor.
// observer may be nil.
func NewUrlMonitor(linkRepo repository.LinkRepository, schedule string, observer StateObserver) *UrlMonitor {
	return &UrlMonitor{
		linkRepo:    linkRepo,
		schedule:    schedule,
		cron:        cron.New(),
		knownStates: make(map[string]bool),
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		observer:    observer,
		now:         time.Now,
		logger:      slog.Default().With("component", "monitor"),
	}
}

// Start validates the schedule, runs an immediate check and schedules the next ones.
// It returns without blocking; the monitor stops when ctx is done or Stop is called.
func (m *UrlMonitor) Start(ctx context.Context) error {
	if _, err := cron.ParseStandard(m.schedule); err != nil {
		return fmt.Errorf("invalid monitor schedule %q: %w", m.schedule, err)
	}
	if _, err := m.cron.AddFunc(m.schedule, func() { m.CheckUrls(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule monitor: %w", err)
	}

	m.logger.Info("starting URL monitor", "schedule", m.schedule)
	go m.CheckUrls(ctx)
	m.cron.Start()

	go func() {
		<-ctx.Done()
		m.Stop()
	}()
	return nil
}

// Stop stops the scheduler and waits for a running check to finish.
func (m *UrlMonitor) Stop() {
	<-m.cron.Stop().Done()
}

// CheckUrls performs a status check on every non-expired destination and
// returns how many were inaccessible.
func (m *UrlMonitor) CheckUrls(ctx context.Context) int {
	m.logger.Debug("starting URL status verification")

	links, err := m.linkRepo.ListAll(ctx)
	if err != nil {
		m.logger.Error("retrieving links for monitoring", "error", err)
		return 0
	}

	down := 0
	now := m.now()
	for _, link := range links {
		if link.IsExpired(now) {
			continue
		}

		currentState := m.isUrlAccessible(ctx, link.OriginalURL)
		if !currentState {
			down++
		}

		m.mu.Lock()
		previousState, exists := m.knownStates[link.Code]
		m.knownStates[link.Code] = currentState
		m.mu.Unlock()

		if !exists {
			m.logger.Debug("initial destination state", "code", link.Code, "url", link.OriginalURL, "state", formatState(currentState))
			continue
		}
		if currentState != previousState {
			m.logger.Warn("destination state changed",
				"code", link.Code,
				"url", link.OriginalURL,
				"from", formatState(previousState),
				"to", formatState(currentState),
			)
		}
	}

	if m.observer != nil {
		m.observer.SetDestinationsDown(down)
	}
	m.logger.Debug("URL status verification completed", "checked", len(links), "inaccessible", down)
	return down
}

// State returns the last known state of code and whether it was checked.
func (m *UrlMonitor) State(code string) (accessible, known bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	accessible, known = m.knownStates[code]
	return accessible, known
}

// isUrlAccessible sends a HEAD request; 2xx and 3xx count as accessible.
func (m *UrlMonitor) isUrlAccessible(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		m.logger.Debug("building health check", "error", customerrors.ErrURLCheckFailed{URL: url, Reason: err.Error()})
		return false
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		m.logger.Debug("health check failed", "error", customerrors.ErrURLCheckFailed{URL: url, Reason: err.Error()})
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 400
}

func formatState(accessible bool) string {
	if accessible {
		return "ACCESSIBLE"
	}
	return "INACCESSIBLE"
}
