package services

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/axellelanca/shortlinks/internal/repository"
)

const (
	// MaxSummaryUserAgents caps the user agents listed in a summary.
	MaxSummaryUserAgents = 20
	// MaxSummaryClicks caps the recent clicks listed in a summary.
	MaxSummaryClicks = 50
)

// Summary is the read-only statistics view of a link.
type Summary struct {
	Code        string           `json:"code"`
	OriginalURL string           `json:"originalUrl"`
	CreatedAt   time.Time        `json:"createdAt"`
	ExpireAt    *time.Time       `json:"expireAt"`
	Clicks      int64            `json:"clicks"`
	ClicksByDay models.Tally     `json:"clicksByDay"`
	Referrers   models.Tally     `json:"referrers"`
	UserAgents  []UserAgentCount `json:"userAgents"`
	LastClicks  models.ClickLog  `json:"lastClicks"`
}

// UserAgentCount is one user agent of a summary.
type UserAgentCount struct {
	UA    string `json:"ua"`
	Count int64  `json:"count"`
}

// ListRow is one line of the link listing.
type ListRow struct {
	Code        string    `json:"code"`
	ShortURL    string    `json:"shortUrl"`
	OriginalURL string    `json:"originalUrl"`
	Clicks      int64     `json:"clicks"`
	CreatedAt   time.Time `json:"createdAt"`
}

// StatsService projects stored links into summaries and listings. It never writes.
type StatsService struct {
	linkRepo repository.LinkRepository
	group    singleflight.Group
}

// NewStatsService creates and returns a new instance of StatsService.
func NewStatsService(linkRepo repository.LinkRepository) *StatsService {
	return &StatsService{linkRepo: linkRepo}
}

// Summarize returns the statistics of code, or ErrShortCodeNotFound.
// Concurrent calls for the same code share one store read; the result must be
// treated as read-only. The shared read ignores the cancellation of whichever caller
// started it, so one aborted request does not fail the others.
// Parameters:
//   - ctx: context of the request; its values are kept, its cancellation is not
//   - code: the short code to summarize
//
// Returns:
//   - *Summary: totals, per-day counts, referrers, top user agents and the recent clicks
//   - error: ErrShortCodeNotFound or a store failure
func (s *StatsService) Summarize(ctx context.Context, code string) (*Summary, error) {
	readCtx := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(code, func() (interface{}, error) {
		link, err := s.linkRepo.FindByCode(readCtx, code)
		if err != nil {
			return nil, err
		}
		return summarize(link), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Summary), nil
}

func summarize(link *models.Link) *Summary {
	agents := link.UserAgents.Head(MaxSummaryUserAgents)
	userAgents := make([]UserAgentCount, len(agents))
	for i, e := range agents {
		userAgents[i] = UserAgentCount{UA: e.Key, Count: e.Count}
	}

	clicksByDay := link.ClicksByDay.Clone()
	if clicksByDay == nil {
		clicksByDay = models.Tally{}
	}
	referrers := link.Referrers.Clone()
	if referrers == nil {
		referrers = models.Tally{}
	}

	return &Summary{
		Code:        link.Code,
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt,
		ExpireAt:    link.ExpireAt,
		Clicks:      link.Clicks,
		ClicksByDay: clicksByDay,
		Referrers:   referrers,
		UserAgents:  userAgents,
		LastClicks:  link.ClicksLog.Head(MaxSummaryClicks),
	}
}

// List returns one row per stored link in store order. shortURL composes the public
// URL of a code.
func (s *StatsService) List(ctx context.Context, shortURL func(code string) string) ([]ListRow, error) {
	links, err := s.linkRepo.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]ListRow, 0, len(links))
	for _, link := range links {
		rows = append(rows, ListRow{
			Code:        link.Code,
			ShortURL:    shortURL(link.Code),
			OriginalURL: link.OriginalURL,
			Clicks:      link.Clicks,
			CreatedAt:   link.CreatedAt,
		})
	}
	return rows, nil
}
