package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axellelanca/shortlinks/cmd"
	"github.com/axellelanca/shortlinks/internal/config"
)

func useSQLite(t *testing.T, path string) {
	t.Helper()
	cfg := &config.Config{}
	cfg.Server.BaseURL = "http://sho.rt"
	cfg.Database.Driver = "sqlite"
	cfg.Database.Name = path
	cfg.Shortener.CodeLength = 7
	cfg.Shortener.MaxAttempts = 20

	previous := cmd.Cfg
	cmd.Cfg = cfg
	t.Cleanup(func() { cmd.Cfg = previous })
}

func run(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetContext(context.Background())
	err := c.RunE(c, args)
	return out.String(), err
}

func TestCreateListStats(t *testing.T) {
	dir := t.TempDir()
	useSQLite(t, filepath.Join(dir, "links.db"))

	longURLFlag, customCodeFlag, expireAtFlag = "https://example.com/docs", "docs", "2030-01-01"
	t.Cleanup(func() { longURLFlag, customCodeFlag, expireAtFlag = "", "", "" })

	out, err := run(t, CreateCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Code: docs")
	assert.Contains(t, out, "Short URL: http://sho.rt/docs")
	assert.Contains(t, out, "Expires: 2030-01-01")

	_, err = run(t, CreateCmd)
	assert.ErrorContains(t, err, "customCode already in use")

	out, err = run(t, ListCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "http://sho.rt/docs")
	assert.Contains(t, out, "https://example.com/docs")

	out, err = run(t, StatsCmd, "docs")
	require.NoError(t, err)
	assert.Contains(t, out, "Total clicks: 0")

	_, err = run(t, StatsCmd, "zzzzzz")
	assert.ErrorContains(t, err, "not found")
}

func TestExportImport(t *testing.T) {
	dir := t.TempDir()
	useSQLite(t, filepath.Join(dir, "source.db"))

	longURLFlag, customCodeFlag, expireAtFlag = "https://example.com/one", "one", ""
	t.Cleanup(func() { longURLFlag, customCodeFlag, expireAtFlag = "", "", "" })
	_, err := run(t, CreateCmd)
	require.NoError(t, err)

	exportFormatFlag, exportOutputFlag = "yaml", filepath.Join(dir, "backup.yaml")
	t.Cleanup(func() { exportFormatFlag, exportOutputFlag = "json", "" })
	out, err := run(t, ExportCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported 1 links")

	useSQLite(t, filepath.Join(dir, "target.db"))
	importFileFlag = exportOutputFlag
	t.Cleanup(func() { importFileFlag = "" })

	out, err = run(t, ImportCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 1 links, skipped 0")

	out, err = run(t, ImportCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Imported 0 links, skipped 1")

	out, err = run(t, ListCmd)
	require.NoError(t, err)
	assert.Equal(t, 2, len(strings.Split(strings.TrimSpace(out), "\n")))
}

func TestMigrate(t *testing.T) {
	useSQLite(t, filepath.Join(t.TempDir(), "links.db"))
	out, err := run(t, MigrateCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "executed successfully")

	cmd.Cfg.Database.Driver = "memory"
	out, err = run(t, MigrateCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing to migrate")
}
