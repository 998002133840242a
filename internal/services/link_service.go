// Package services contains the business logic layer for the URL shortener application
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/axellelanca/shortlinks/internal/repository"
)

// DefaultMaxAttempts bounds the generated-code retry loop.
const DefaultMaxAttempts = 20

// ClickSink receives one event per successfully resolved access.
// Implementations must not report failures back to the redirect path.
type ClickSink interface {
	Submit(ctx context.Context, event models.ClickEvent)
}

// CreateLinkInput carries the raw fields of a creation request.
type CreateLinkInput struct {
	URL        string
	CustomCode string
	ExpireAt   string
}

// Visit describes the client of a resolved access.
type Visit struct {
	Referrer  string
	UserAgent string
	IPAddress string
}

// LinkService provides business logic methods for managing shortened links.
// It acts as an intermediary between the HTTP handlers and the data repository.
type LinkService struct {
	linkRepo    repository.LinkRepository
	gen         CodeGenerator
	clicks      ClickSink
	maxAttempts int
	now         func() time.Time
	logger      *slog.Logger

	// createMu serializes the check-then-insert sequence within this process;
	// the repositories additionally reject duplicate codes on insert.
	createMu sync.Mutex
}

// LinkServiceOption customizes a LinkService.
type LinkServiceOption func(*LinkService)

// WithMaxAttempts sets how many generated codes are tried before giving up.
func WithMaxAttempts(n int) LinkServiceOption {
	return func(s *LinkService) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) LinkServiceOption {
	return func(s *LinkService) { s.now = now }
}

// NewLinkService creates and returns a new instance of LinkService.
// clicks may be nil, in which case resolved accesses are not recorded.
func NewLinkService(linkRepo repository.LinkRepository, gen CodeGenerator, clicks ClickSink, opts ...LinkServiceOption) *LinkService {
	s := &LinkService{
		linkRepo:    linkRepo,
		gen:         gen,
		clicks:      clicks,
		maxAttempts: DefaultMaxAttempts,
		now:         time.Now,
		logger:      slog.Default().With("component", "links"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateLink validates the request, allocates a unique code and persists a new link.
// Validation errors are returned before the store is touched.
// Parameters:
//   - ctx: context for the store calls
//   - in: the destination, an optional custom code and an optional expiry
//
// Returns:
//   - *models.Link: the created record, analytics zeroed
//   - error: ErrInvalidURL, ErrInvalidShortCode, ErrInvalidExpiry, ErrCodeConflict,
//     ErrShortCodeGenerationFailed or a store failure
func (s *LinkService) CreateLink(ctx context.Context, in CreateLinkInput) (*models.Link, error) {
	if err := ValidateURL(in.URL); err != nil {
		return nil, err
	}
	customCode := strings.TrimSpace(in.CustomCode)
	if customCode != "" {
		if err := ValidateCustomCode(customCode); err != nil {
			return nil, err
		}
	}
	expireAt, err := ParseExpiry(in.ExpireAt)
	if err != nil {
		return nil, err
	}

	link := &models.Link{
		ID:          uuid.NewString(),
		OriginalURL: in.URL,
		CreatedAt:   s.now().UTC(),
		ExpireAt:    expireAt,
		ClicksByDay: models.Tally{},
		Referrers:   models.Tally{},
		UserAgents:  models.Tally{},
		ClicksLog:   models.ClickLog{},
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if customCode != "" {
		return s.insertCustom(ctx, link, customCode)
	}
	return s.insertGenerated(ctx, link)
}

func (s *LinkService) insertCustom(ctx context.Context, link *models.Link, code string) (*models.Link, error) {
	// Expired codes stay reserved: any existing record is a conflict.
	if _, err := s.linkRepo.FindByCode(ctx, code); err == nil {
		return nil, customerrors.ErrCodeConflict
	} else if !errors.Is(err, customerrors.ErrShortCodeNotFound) {
		return nil, err
	}

	link.Code = code
	if err := s.linkRepo.Insert(ctx, link); err != nil {
		if errors.Is(err, customerrors.ErrDuplicateCode) {
			return nil, customerrors.ErrCodeConflict
		}
		return nil, err
	}
	s.logger.Info("link created", "code", code, "custom", true)
	return link, nil
}

func (s *LinkService) insertGenerated(ctx context.Context, link *models.Link) (*models.Link, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		code := s.gen.Generate()

		_, err := s.linkRepo.FindByCode(ctx, code)
		if err == nil {
			s.logger.Debug("generated code already exists, retrying", "code", code, "attempt", attempt, "max", s.maxAttempts)
			continue
		}
		if !errors.Is(err, customerrors.ErrShortCodeNotFound) {
			return nil, err
		}

		link.Code = code
		if err := s.linkRepo.Insert(ctx, link); err != nil {
			if errors.Is(err, customerrors.ErrDuplicateCode) {
				continue
			}
			return nil, err
		}
		s.logger.Info("link created", "code", code, "custom", false, "attempts", attempt)
		return link, nil
	}

	s.logger.Warn("short code space exhausted", "attempts", s.maxAttempts)
	return nil, fmt.Errorf("%w after %d attempts", customerrors.ErrShortCodeGenerationFailed, s.maxAttempts)
}

// GetLinkByShortCode retrieves a link, expired or not.
func (s *LinkService) GetLinkByShortCode(ctx context.Context, code string) (*models.Link, error) {
	return s.linkRepo.FindByCode(ctx, code)
}

// Resolve returns the destination for code and hands one click event to the sink.
// No click is recorded for unknown or expired codes.
// Parameters:
//   - ctx: context of the incoming request
//   - code: the short code to resolve
//   - visit: referrer, user agent and client address of the visitor
//
// Returns:
//   - string: the destination URL
//   - error: ErrShortCodeNotFound, ErrLinkExpired (expiry strictly in the past) or a store failure
func (s *LinkService) Resolve(ctx context.Context, code string, visit Visit) (string, error) {
	link, err := s.linkRepo.FindByCode(ctx, code)
	if err != nil {
		return "", err
	}

	now := s.now()
	if link.IsExpired(now) {
		return "", customerrors.ErrLinkExpired
	}

	if s.clicks != nil {
		s.clicks.Submit(ctx, models.ClickEvent{
			Code:      link.Code,
			Timestamp: now.UTC(),
			Referrer:  visit.Referrer,
			UserAgent: visit.UserAgent,
			IPAddress: visit.IPAddress,
		})
	}
	return link.OriginalURL, nil
}
