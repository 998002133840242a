package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/axellelanca/shortlinks/internal/repository"
)

// countingRepo wraps a store and counts the calls that reach it.
type countingRepo struct {
	repository.LinkRepository
	finds   atomic.Int64
	inserts atomic.Int64
	updates atomic.Int64
}

func newCountingRepo() *countingRepo {
	return &countingRepo{LinkRepository: repository.NewMemoryLinkRepository()}
}

func (r *countingRepo) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	r.finds.Add(1)
	return r.LinkRepository.FindByCode(ctx, code)
}

func (r *countingRepo) Insert(ctx context.Context, link *models.Link) error {
	r.inserts.Add(1)
	return r.LinkRepository.Insert(ctx, link)
}

func (r *countingRepo) Update(ctx context.Context, code string, apply func(*models.Link)) error {
	r.updates.Add(1)
	return r.LinkRepository.Update(ctx, code, apply)
}

// ctxCheckingRepo fails every read whose context is already done.
type ctxCheckingRepo struct {
	repository.LinkRepository
}

func (r ctxCheckingRepo) FindByCode(ctx context.Context, code string) (*models.Link, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.LinkRepository.FindByCode(ctx, code)
}

// constGen always returns the same code.
type constGen string

func (g constGen) Generate() string { return string(g) }

// seqGen returns its codes in order, then repeats the last one.
type seqGen struct {
	mu    sync.Mutex
	codes []string
}

func (g *seqGen) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	code := g.codes[0]
	if len(g.codes) > 1 {
		g.codes = g.codes[1:]
	}
	return code
}

// recordingSink keeps submitted events.
type recordingSink struct {
	mu     sync.Mutex
	events []models.ClickEvent
}

func (s *recordingSink) Submit(_ context.Context, event models.ClickEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// countingObserver counts recording outcomes.
type countingObserver struct {
	ok, failed atomic.Int64
}

func (o *countingObserver) ObserveClick(err error) {
	if err != nil {
		o.failed.Add(1)
		return
	}
	o.ok.Add(1)
}
