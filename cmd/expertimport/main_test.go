package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// execute runs the root command with fresh flag state.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	rootCmd.Flags().VisitAll(func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	_, err := f.NewSheet("Import Ready")
	require.NoError(t, err)
	require.NoError(t, f.SetSheetRow("Import Ready", "A1", &[]any{"First Name", "Last Name", "company_name"}))
	require.NoError(t, f.SetSheetRow("Import Ready", "A2", &[]any{"Ada", "Lovelace", "Analytical Engines"}))
	require.NoError(t, f.SetSheetRow("Import Ready", "A3", &[]any{"", "", "Nobody Ltd"}))

	path := filepath.Join(t.TempDir(), "experts.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestRootCommand_DryRun(t *testing.T) {
	t.Setenv("STRAPI_URL", "")
	t.Setenv("STRAPI_TOKEN", "")
	dir := t.TempDir()

	out, err := execute(t,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--workbook", writeWorkbook(t),
		"--images", filepath.Join(dir, "images"),
		"--seed", "7",
		"--dry-run",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "created 0, updated 0, skipped 1, planned 1")
}

func TestRootCommand_ConfigErrors(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "missing.env")

	_, err := execute(t, "--env-file", envFile, "--dry-run", "--dependents", "sometimes")
	assert.ErrorContains(t, err, "dependents must be")

	_, err = execute(t, "--env-file", envFile, "--dry-run", "--dependents", "once")
	assert.ErrorContains(t, err, "needs a journal path")

	_, err = execute(t, "--env-file", envFile, "--dry-run", "--timeout=-1s")
	assert.ErrorContains(t, err, "negative")

	_, err = execute(t, "--env-file", envFile, "--dry-run", "--timeout=0s")
	assert.ErrorContains(t, err, "greater than zero")
}

func TestRootCommand_MissingToken(t *testing.T) {
	t.Setenv("STRAPI_URL", "http://localhost:1337")
	t.Setenv("STRAPI_TOKEN", "")

	_, err := execute(t, "--env-file", filepath.Join(t.TempDir(), "missing.env"), "--workbook", writeWorkbook(t))
	assert.ErrorContains(t, err, "STRAPI_TOKEN is not set")
}

func TestRootCommand_PrintsJournalSummary(t *testing.T) {
	var nextID atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.Method == http.MethodGet {
			_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			return
		}
		id := nextID.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{"id": id, "documentId": "doc"}})
	}))
	t.Cleanup(srv.Close)

	t.Setenv("STRAPI_URL", srv.URL)
	t.Setenv("STRAPI_TOKEN", "token")
	t.Setenv("EXPERTIMPORT_SEARCH_API_KEY", "")
	dir := t.TempDir()

	out, err := execute(t,
		"--env-file", filepath.Join(dir, "missing.env"),
		"--workbook", writeWorkbook(t),
		"--images", filepath.Join(dir, "images"),
		"--journal", filepath.Join(dir, "journal.db"),
		"--dependents", "once",
	)
	require.NoError(t, err)
	assert.Contains(t, out, "created 1, updated 0, skipped 1, planned 0")
	assert.Contains(t, out, "journal profile_created: 1\n")
	assert.Contains(t, out, "journal dependents_done: 1\n")
}
