package services

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
)

var (
	customCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{3,30}$`)
	// generated codes can be as short as two symbols
	storedCodePattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,30}$`)
)

// expiryLayouts are tried in order; layouts without a zone are read as UTC.
var expiryLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ValidateURL accepts only absolute http(s) URLs with a host.
func ValidateURL(raw string) error {
	if strings.TrimSpace(raw) == "" || strings.ContainsAny(raw, " \t\r\n") {
		return customerrors.ErrInvalidURL
	}
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return customerrors.ErrInvalidURL
	}
	scheme := strings.ToLower(u.Scheme)
	if (scheme != "http" && scheme != "https") || u.Host == "" {
		return customerrors.ErrInvalidURL
	}
	return nil
}

// ValidateCustomCode reports whether code matches [A-Za-z0-9_-]{3,30}.
func ValidateCustomCode(code string) error {
	if !customCodePattern.MatchString(code) {
		return customerrors.ErrInvalidShortCode
	}
	return nil
}

// ValidateStoredCode reports whether code can name an existing record: the custom-code
// alphabet with any length from 1 to 30.
func ValidateStoredCode(code string) error {
	if !storedCodePattern.MatchString(code) {
		return customerrors.ErrInvalidShortCode
	}
	return nil
}

// ParseExpiry converts expireAt into an absolute UTC time. An empty string means no expiry.
func ParseExpiry(raw string) (*time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	for _, layout := range expiryLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, customerrors.ErrInvalidExpiry
}
