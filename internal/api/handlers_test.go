package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/shortlinks/internal/metrics"
	"github.com/axellelanca/shortlinks/internal/repository"
	"github.com/axellelanca/shortlinks/internal/services"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryLinkRepository()
	gen, err := services.NewNanoidGenerator(services.DefaultCodeLength)
	require.NoError(t, err)

	// The synchronous recorder makes clicks visible as soon as the redirect returns.
	links := services.NewLinkService(repo, gen, services.NewClickService(repo))
	return NewRouter(Dependencies{
		Links:       links,
		Stats:       services.NewStatsService(repo),
		ShortURL:    func(code string) string { return "http://sho.rt/" + code },
		Metrics:     metrics.NewCollector("shortlinks", nil),
		MetricsPath: "/metrics",
	})
}

func do(router http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func TestCreateShortLink(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, http.MethodPost, "/api/shorten", `{"url":"https://example.com/page","customCode":"abc"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created CreateLinkResponse
	decode(t, rec, &created)
	assert.Equal(t, "abc", created.Code)
	assert.Equal(t, "http://sho.rt/abc", created.ShortURL)
	assert.Equal(t, "https://example.com/page", created.OriginalURL)
	assert.Nil(t, created.ExpireAt)
	assert.False(t, created.CreatedAt.IsZero())

	rec = do(router, http.MethodPost, "/api/shorten", `{"url":"https://example.com/generated"}`, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	decode(t, rec, &created)
	assert.Len(t, created.Code, services.DefaultCodeLength)
}

func TestCreateShortLink_Errors(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/shorten", `{"url":"https://a.com","customCode":"abc"}`, nil).Code)

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"conflict", `{"url":"https://b.com","customCode":"abc"}`, http.StatusConflict, "customCode already in use"},
		{"invalid url", `{"url":"not-a-url"}`, http.StatusBadRequest, "invalid URL. Include protocol (http/https)"},
		{"invalid code", `{"url":"https://b.com","customCode":"a b"}`, http.StatusBadRequest, "customCode must be 3-30 chars [A-Za-z0-9-_]"},
		{"invalid expiry", `{"url":"https://b.com","expireAt":"soon"}`, http.StatusBadRequest, "invalid expireAt timestamp"},
		{"malformed body", `{"url":`, http.StatusBadRequest, "Invalid request body"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(router, http.MethodPost, "/api/shorten", tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)

			var body map[string]string
			decode(t, rec, &body)
			assert.Contains(t, body["error"], tt.msg)
		})
	}
}

func TestRedirectAndStats(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/shorten", `{"url":"https://example.com/dest","customCode":"abc"}`, nil).Code)

	rec := do(router, http.MethodGet, "/abc", "", map[string]string{
		"Referer":    "https://news.example",
		"User-Agent": "test-agent/1.0",
	})
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://example.com/dest", rec.Header().Get("Location"))

	rec = do(router, http.MethodGet, "/abc", "", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	rec = do(router, http.MethodGet, "/api/stats/abc", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var stats struct {
		Code        string           `json:"code"`
		OriginalURL string           `json:"originalUrl"`
		Clicks      int64            `json:"clicks"`
		ClicksByDay map[string]int64 `json:"clicksByDay"`
		Referrers   map[string]int64 `json:"referrers"`
		UserAgents  []struct {
			UA    string `json:"ua"`
			Count int64  `json:"count"`
		} `json:"userAgents"`
		LastClicks []struct {
			Ref string `json:"ref"`
			UA  string `json:"ua"`
			IP  string `json:"ip"`
		} `json:"lastClicks"`
	}
	decode(t, rec, &stats)

	assert.Equal(t, "abc", stats.Code)
	assert.Equal(t, "https://example.com/dest", stats.OriginalURL)
	assert.Equal(t, int64(2), stats.Clicks)
	assert.Len(t, stats.ClicksByDay, 1)
	assert.Equal(t, map[string]int64{"https://news.example": 1, "direct": 1}, stats.Referrers)
	require.Len(t, stats.UserAgents, 2)
	assert.Equal(t, "test-agent/1.0", stats.UserAgents[0].UA)
	assert.Equal(t, "unknown", stats.UserAgents[1].UA)
	require.Len(t, stats.LastClicks, 2)
	assert.Equal(t, "192.0.2.1", stats.LastClicks[0].IP)
}

func TestRedirect_NotFoundAndExpired(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/shorten", `{"url":"https://example.com","customCode":"old","expireAt":"2000-01-01"}`, nil).Code)

	rec := do(router, http.MethodGet, "/zzzzzz", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Not found", rec.Body.String())

	rec = do(router, http.MethodGet, "/old", "", nil)
	assert.Equal(t, http.StatusGone, rec.Code)
	assert.Equal(t, "This short link has expired.", rec.Body.String())

	// an expired access is not counted
	rec = do(router, http.MethodGet, "/api/stats/old", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	decode(t, rec, &stats)
	assert.EqualValues(t, 0, stats["clicks"])

	rec = do(router, http.MethodGet, "/api/stats/zzzzzz", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
}

func TestListHealthAndMetrics(t *testing.T) {
	router := newTestRouter(t)
	for _, code := range []string{"first", "second"} {
		require.Equal(t, http.StatusCreated, do(router, http.MethodPost, "/api/shorten", `{"url":"https://example.com/`+code+`","customCode":"`+code+`"}`, nil).Code)
	}
	require.Equal(t, http.StatusFound, do(router, http.MethodGet, "/second", "", nil).Code)

	rec := do(router, http.MethodGet, "/api/list", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var rows []services.ListRow
	decode(t, rec, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "first", rows[0].Code)
	assert.Equal(t, "http://sho.rt/second", rows[1].ShortURL)
	assert.Equal(t, int64(1), rows[1].Clicks)

	rec = do(router, http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var health map[string]any
	decode(t, rec, &health)
	assert.Equal(t, true, health["ok"])

	rec = do(router, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `shortlinks_redirects_total{outcome="found"} 1`)
	assert.Contains(t, rec.Body.String(), `shortlinks_links_created_total{origin="custom"} 2`)
}
