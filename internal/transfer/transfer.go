// Package transfer moves links between stores as JSON or YAML documents.
package transfer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	customerrors "github.com/axellelanca/shortlinks/internal/errors"
	"github.com/axellelanca/shortlinks/internal/models"
	"github.com/axellelanca/shortlinks/internal/repository"
	"github.com/axellelanca/shortlinks/internal/services"
)

// Format is the encoding of a document.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Version is written in every document; Decode rejects other versions.
const Version = 1

// Document is the exported content of a store, analytics included.
type Document struct {
	Version    int           `json:"version" yaml:"version"`
	ExportedAt time.Time     `json:"exportedAt" yaml:"exportedAt"`
	Links      []models.Link `json:"links" yaml:"links"`
}

// ParseFormat accepts json, yaml and yml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unsupported format %q (want json or yaml)", s)
}

// FormatFromPath guesses the format from a file extension, defaulting to JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Export reads every link of repo into a Document.
func Export(ctx context.Context, repo repository.LinkRepository, now time.Time) (*Document, error) {
	links, err := repo.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if links == nil {
		links = []models.Link{}
	}
	return &Document{Version: Version, ExportedAt: now.UTC(), Links: links}, nil
}

// Encode writes doc to w.
func Encode(w io.Writer, doc *Document, format Format) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(doc)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unsupported format %q", format)
}

// Decode reads a Document from r.
func Decode(r io.Reader, format Format) (*Document, error) {
	var doc Document
	var err error
	switch format {
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&doc)
	case FormatYAML:
		err = yaml.NewDecoder(r).Decode(&doc)
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s document: %w", format, err)
	}
	if doc.Version != Version {
		return nil, fmt.Errorf("unsupported document version %d", doc.Version)
	}
	return &doc, nil
}

// Result counts what Import did.
type Result struct {
	Imported   int
	Skipped    int // code already present
	Reassigned int // imported under a fresh id
}

// Import inserts every link of doc into repo, analytics included, in document order.
// A record must carry a valid destination, a code over [A-Za-z0-9_-] of 1 to 30 symbols,
// and a click total equal to the sum of its per-day counts; the first record that does
// not stops the import. The click log is put back in newest-first order and cut to
// models.MaxClickLogEntries. Codes already present are skipped. A record whose id is
// used by another code is stored under a fresh id.
func Import(ctx context.Context, repo repository.LinkRepository, doc *Document) (Result, error) {
	var res Result
	for i := range doc.Links {
		link := doc.Links[i]
		if err := normalize(&link); err != nil {
			return res, fmt.Errorf("link %d (%q): %w", i, link.Code, err)
		}

		reassigned := false
		err := repo.Insert(ctx, &link)
		if errors.Is(err, customerrors.ErrDuplicateID) {
			slog.Debug("record id already used, assigning a new one", "code", link.Code, "id", link.ID)
			link.ID = uuid.NewString()
			reassigned = true
			err = repo.Insert(ctx, &link)
		}
		if err != nil {
			if errors.Is(err, customerrors.ErrDuplicateCode) {
				slog.Debug("skipping existing code", "code", link.Code)
				res.Skipped++
				continue
			}
			return res, err
		}
		res.Imported++
		if reassigned {
			res.Reassigned++
		}
	}
	return res, nil
}

// normalize validates an imported record and fills in what an older export may lack.
func normalize(link *models.Link) error {
	if err := services.ValidateURL(link.OriginalURL); err != nil {
		return err
	}
	if err := services.ValidateStoredCode(link.Code); err != nil {
		return err
	}
	if link.Clicks < 0 {
		return fmt.Errorf("%w: negative click count %d", customerrors.ErrInvalidRecord, link.Clicks)
	}
	if total := link.ClicksByDay.Total(); total != link.Clicks {
		return fmt.Errorf("%w: %d clicks but per-day counts sum to %d", customerrors.ErrInvalidRecord, link.Clicks, total)
	}

	if link.ID == "" {
		link.ID = uuid.NewString()
	}
	if link.CreatedAt.IsZero() {
		link.CreatedAt = time.Now().UTC()
	}
	link.ClicksLog = link.ClicksLog.Clone()
	slices.SortStableFunc(link.ClicksLog, func(a, b models.Click) int {
		return b.At.Compare(a.At)
	})
	if len(link.ClicksLog) > models.MaxClickLogEntries {
		link.ClicksLog = link.ClicksLog[:models.MaxClickLogEntries]
	}
	return nil
}
