package repository

import (
	"context"
	"fmt"
	"sync"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
)

// MemoryLinkRepository keeps links in process memory. Records are cloned on the way
// in and out.
type MemoryLinkRepository struct {
	mu    sync.RWMutex
	links map[string]*models.Link // code -> record
	ids   map[string]string        // id -> code
	order []string
}

// NewMemoryLinkRepository crée un store vide. Son contenu est perdu à l'arrêt du processus.
func NewMemoryLinkRepository() *MemoryLinkRepository {
	return &MemoryLinkRepository{
		links: make(map[string]*models.Link),
		ids:   make(map[string]string),
	}
}

// Insert stores a copy of link if neither its code nor its id is taken.
func (r *MemoryLinkRepository) Insert(_ context.Context, link *models.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.links[link.Code]; exists {
		return fmt.Errorf("insert %q: %w", link.Code, customerrors.ErrDuplicateCode)
	}
	if _, exists := r.ids[link.ID]; exists {
		return fmt.Errorf("insert %q (id %s): %w", link.Code, link.ID, customerrors.ErrDuplicateID)
	}
	r.links[link.Code] = link.Clone()
	r.ids[link.ID] = link.Code
	r.order = append(r.order, link.Code)
	return nil
}

// FindByCode returns a copy of the record of code.
func (r *MemoryLinkRepository) FindByCode(_ context.Context, code string) (*models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	link, ok := r.links[code]
	if !ok {
		return nil, customerrors.ErrShortCodeNotFound
	}
	return link.Clone(), nil
}

// Update applies a change to the analytics of code under the write lock.
func (r *MemoryLinkRepository) Update(_ context.Context, code string, apply func(*models.Link)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.links[code]
	if !ok {
		return customerrors.ErrShortCodeNotFound
	}
	next := current.Clone()
	mutateAnalytics(next, apply)
	r.links[code] = next
	return nil
}

// ListAll returns copies of every record in insertion order.
func (r *MemoryLinkRepository) ListAll(_ context.Context) ([]models.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.Link, 0, len(r.order))
	for _, code := range r.order {
		out = append(out, *r.links[code].Clone())
	}
	return out, nil
}

// Close is a no-op.
func (r *MemoryLinkRepository) Close() error { return nil }

var _ LinkRepository = (*MemoryLinkRepository)(nil)
