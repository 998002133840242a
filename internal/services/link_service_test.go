package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
)

func newTestLinkService(t *testing.T, sink ClickSink, opts ...LinkServiceOption) (*LinkService, *countingRepo) {
	t.Helper()
	repo := newCountingRepo()
	gen, err := NewNanoidGenerator(DefaultCodeLength)
	require.NoError(t, err)
	return NewLinkService(repo, gen, sink, opts...), repo
}

func TestCreateLink_GeneratedCode(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)
	ctx := context.Background()

	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://example.com/a"})
	require.NoError(t, err)

	assert.Len(t, link.Code, DefaultCodeLength)
	assert.NotEmpty(t, link.ID)
	assert.Equal(t, "https://example.com/a", link.OriginalURL)
	assert.Nil(t, link.ExpireAt)
	assert.Zero(t, link.Clicks)
	assert.WithinDuration(t, time.Now(), link.CreatedAt, 5*time.Second)

	stored, err := svc.GetLinkByShortCode(ctx, link.Code)
	require.NoError(t, err)
	assert.Equal(t, link.OriginalURL, stored.OriginalURL)
}

func TestCreateLink_CustomCodeConflict(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)
	ctx := context.Background()

	first, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://a.com", CustomCode: "abc"})
	require.NoError(t, err)
	assert.Equal(t, "abc", first.Code)

	_, err = svc.CreateLink(ctx, CreateLinkInput{URL: "https://b.com", CustomCode: "abc"})
	assert.ErrorIs(t, err, customerrors.ErrCodeConflict)

	stored, err := svc.GetLinkByShortCode(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "https://a.com", stored.OriginalURL)
}

func TestCreateLink_ExpiredCodeStaysReserved(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://a.com", CustomCode: "old", ExpireAt: "2000-01-01"})
	require.NoError(t, err)

	_, err = svc.CreateLink(ctx, CreateLinkInput{URL: "https://b.com", CustomCode: "old"})
	assert.ErrorIs(t, err, customerrors.ErrCodeConflict)
}

func TestCreateLink_ValidationHappensBeforeStoreAccess(t *testing.T) {
	tests := []struct {
		name  string
		input CreateLinkInput
		want  error
	}{
		{"invalid url", CreateLinkInput{URL: "not-a-url"}, customerrors.ErrInvalidURL},
		{"missing url", CreateLinkInput{CustomCode: "abc"}, customerrors.ErrInvalidURL},
		{"short code", CreateLinkInput{URL: "https://a.com", CustomCode: " ab "}, customerrors.ErrInvalidShortCode},
		{"bad characters", CreateLinkInput{URL: "https://a.com", CustomCode: "a/b/c"}, customerrors.ErrInvalidShortCode},
		{"bad expiry", CreateLinkInput{URL: "https://a.com", ExpireAt: "next week"}, customerrors.ErrInvalidExpiry},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestLinkService(t, nil)

			_, err := svc.CreateLink(context.Background(), tt.input)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, repo.finds.Load())
			assert.Zero(t, repo.inserts.Load())
		})
	}
}

func TestCreateLink_TrimsCustomCode(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)

	link, err := svc.CreateLink(context.Background(), CreateLinkInput{URL: "https://a.com", CustomCode: "  mine  "})
	require.NoError(t, err)
	assert.Equal(t, "mine", link.Code)
}

func TestCreateLink_RetriesTakenGeneratedCodes(t *testing.T) {
	repo := newCountingRepo()
	ctx := context.Background()
	seed := NewLinkService(repo, constGen("taken00"), nil)
	_, err := seed.CreateLink(ctx, CreateLinkInput{URL: "https://a.com"})
	require.NoError(t, err)

	svc := NewLinkService(repo, &seqGen{codes: []string{"taken00", "taken00", "fresh00"}}, nil)
	link, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://b.com"})
	require.NoError(t, err)
	assert.Equal(t, "fresh00", link.Code)
}

func TestCreateLink_GenerationExhausted(t *testing.T) {
	repo := newCountingRepo()
	ctx := context.Background()
	svc := NewLinkService(repo, constGen("same000"), nil, WithMaxAttempts(5))

	_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://a.com"})
	require.NoError(t, err)
	findsBefore := repo.finds.Load()

	_, err = svc.CreateLink(ctx, CreateLinkInput{URL: "https://b.com"})
	assert.ErrorIs(t, err, customerrors.ErrShortCodeGenerationFailed)
	assert.Equal(t, int64(5), repo.finds.Load()-findsBefore)
	assert.Equal(t, int64(1), repo.inserts.Load())
}

func TestCreateLink_ConcurrentSameCustomCode(t *testing.T) {
	svc, _ := newTestLinkService(t, nil)
	ctx := context.Background()

	const n = 20
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://a.com", CustomCode: "race"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var ok, conflicts int
	for err := range results {
		if err == nil {
			ok++
			continue
		}
		require.ErrorIs(t, err, customerrors.ErrCodeConflict)
		conflicts++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, conflicts)
}

func TestResolve(t *testing.T) {
	sink := &recordingSink{}
	now := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	svc, _ := newTestLinkService(t, sink, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://live.example", CustomCode: "live", ExpireAt: "2030-01-01"})
	require.NoError(t, err)
	_, err = svc.CreateLink(ctx, CreateLinkInput{URL: "https://gone.example", CustomCode: "gone", ExpireAt: "2000-01-01"})
	require.NoError(t, err)

	t.Run("found", func(t *testing.T) {
		target, err := svc.Resolve(ctx, "live", Visit{Referrer: "https://ref.example", UserAgent: "ua", IPAddress: "10.0.0.1"})
		require.NoError(t, err)
		assert.Equal(t, "https://live.example", target)

		require.Equal(t, 1, sink.count())
		event := sink.events[0]
		assert.Equal(t, "live", event.Code)
		assert.Equal(t, now, event.Timestamp)
		assert.Equal(t, "https://ref.example", event.Referrer)
		assert.Equal(t, "ua", event.UserAgent)
		assert.Equal(t, "10.0.0.1", event.IPAddress)
	})

	t.Run("expired", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "gone", Visit{})
		assert.ErrorIs(t, err, customerrors.ErrLinkExpired)
		assert.Equal(t, 1, sink.count())
	})

	t.Run("not found", func(t *testing.T) {
		_, err := svc.Resolve(ctx, "zzzzzz", Visit{})
		assert.ErrorIs(t, err, customerrors.ErrShortCodeNotFound)
		assert.Equal(t, 1, sink.count())
	})
}

func TestResolve_ExpiryBoundary(t *testing.T) {
	expiry := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	now := expiry
	svc, _ := newTestLinkService(t, nil, WithClock(func() time.Time { return now }))
	ctx := context.Background()

	_, err := svc.CreateLink(ctx, CreateLinkInput{URL: "https://a.com", CustomCode: "edge", ExpireAt: "2030-01-01"})
	require.NoError(t, err)

	_, err = svc.Resolve(ctx, "edge", Visit{})
	assert.NoError(t, err)

	now = expiry.Add(time.Nanosecond)
	_, err = svc.Resolve(ctx, "edge", Visit{})
	assert.ErrorIs(t, err, customerrors.ErrLinkExpired)
}
