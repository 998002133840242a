package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/metrics"
	"github.com/axellelanca/shortlinks/internal/services"
)

// Dependencies groups what the HTTP layer needs. Metrics may be nil.
type Dependencies struct {
	Links       *services.LinkService
	Stats       *services.StatsService
	ShortURL    func(code string) string
	Metrics     *metrics.Collector
	MetricsPath string
}

// SetupRoutes configures all Gin routes and injects the services.
func SetupRoutes(router *gin.Engine, deps Dependencies) {
	api := router.Group("/api")
	{
		api.GET("/health", HealthCheckHandler)
		api.POST("/shorten", CreateShortLinkHandler(deps))
		api.GET("/stats/:code", GetLinkStatsHandler(deps))
		api.GET("/list", ListLinksHandler(deps))
	}

	if deps.Metrics != nil && deps.MetricsPath != "" {
		router.GET(deps.MetricsPath, gin.WrapH(deps.Metrics.Handler()))
	}

	// Redirection route at root level, e.g. localhost:3000/abc123
	router.GET("/:code", RedirectHandler(deps))
}

// HealthCheckHandler handles /api/health.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true, "time": time.Now().UTC()})
}

// CreateLinkRequest is the JSON body of POST /api/shorten.
type CreateLinkRequest struct {
	URL        string `json:"url"`
	CustomCode string `json:"customCode"`
	ExpireAt   string `json:"expireAt"`
}

// CreateLinkResponse is returned with 201 Created.
type CreateLinkResponse struct {
	ShortURL    string     `json:"shortUrl"`
	Code        string     `json:"code"`
	OriginalURL string     `json:"originalUrl"`
	CreatedAt   time.Time  `json:"createdAt"`
	ExpireAt    *time.Time `json:"expireAt"`
}

// CreateShortLinkHandler handles the creation of a shortened URL.
func CreateShortLinkHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateLinkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			deps.Metrics.CreateFailed("bad_request")
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}

		link, err := deps.Links.CreateLink(c.Request.Context(), services.CreateLinkInput{
			URL:        req.URL,
			CustomCode: req.CustomCode,
			ExpireAt:   req.ExpireAt,
		})
		if err != nil {
			status, reason := classifyCreateError(err)
			deps.Metrics.CreateFailed(reason)
			if status >= http.StatusInternalServerError {
				slog.Error("creating link", "error", err)
			}
			c.JSON(status, gin.H{"error": publicMessage(status, err)})
			return
		}

		deps.Metrics.LinkCreated(strings.TrimSpace(req.CustomCode) != "")
		c.JSON(http.StatusCreated, CreateLinkResponse{
			ShortURL:    deps.ShortURL(link.Code),
			Code:        link.Code,
			OriginalURL: link.OriginalURL,
			CreatedAt:   link.CreatedAt,
			ExpireAt:    link.ExpireAt,
		})
	}
}

func classifyCreateError(err error) (int, string) {
	switch {
	case errors.Is(err, customerrors.ErrInvalidURL):
		return http.StatusBadRequest, "invalid_url"
	case errors.Is(err, customerrors.ErrInvalidShortCode):
		return http.StatusBadRequest, "invalid_code"
	case errors.Is(err, customerrors.ErrInvalidExpiry):
		return http.StatusBadRequest, "invalid_expiry"
	case errors.Is(err, customerrors.ErrCodeConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, customerrors.ErrShortCodeGenerationFailed):
		return http.StatusServiceUnavailable, "exhausted"
	case errors.Is(err, customerrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, "store"
	}
	return http.StatusInternalServerError, "internal"
}

func publicMessage(status int, err error) string {
	switch status {
	case http.StatusServiceUnavailable:
		if errors.Is(err, customerrors.ErrShortCodeGenerationFailed) {
			return "Unable to generate unique short code. Please try again later."
		}
		return "Storage temporarily unavailable"
	case http.StatusInternalServerError:
		return "Internal server error"
	}
	return err.Error()
}

// RedirectHandler resolves a short code and redirects with 302.
// Click recording happens behind the service and never changes the response.
func RedirectHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		referrer := c.GetHeader("Referer")
		if referrer == "" {
			referrer = c.GetHeader("Referrer")
		}

		target, err := deps.Links.Resolve(c.Request.Context(), code, services.Visit{
			Referrer:  referrer,
			UserAgent: c.GetHeader("User-Agent"),
			IPAddress: c.ClientIP(),
		})
		if err != nil {
			switch {
			case errors.Is(err, customerrors.ErrShortCodeNotFound):
				deps.Metrics.Redirect(metrics.OutcomeNotFound)
				c.String(http.StatusNotFound, "Not found")
			case errors.Is(err, customerrors.ErrLinkExpired):
				deps.Metrics.Redirect(metrics.OutcomeExpired)
				c.String(http.StatusGone, "This short link has expired.")
			default:
				deps.Metrics.Redirect(metrics.OutcomeError)
				slog.Error("resolving link", "code", code, "error", err)
				c.String(http.StatusServiceUnavailable, "Service unavailable")
			}
			return
		}

		deps.Metrics.Redirect(metrics.OutcomeFound)
		c.Redirect(http.StatusFound, target)
	}
}

// GetLinkStatsHandler returns the statistics summary of a link.
func GetLinkStatsHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("code")

		summary, err := deps.Stats.Summarize(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, customerrors.ErrShortCodeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
				return
			}
			slog.Error("retrieving stats", "code", code, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
			return
		}

		c.JSON(http.StatusOK, summary)
	}
}

// ListLinksHandler returns one row per stored link.
func ListLinksHandler(deps Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		rows, err := deps.Stats.List(c.Request.Context(), deps.ShortURL)
		if err != nil {
			slog.Error("listing links", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Storage temporarily unavailable"})
			return
		}
		c.JSON(http.StatusOK, rows)
	}
}
