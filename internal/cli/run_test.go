package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/mrverify/internal/client"
	"github.com/roach88/mrverify/internal/harness"
	"github.com/roach88/mrverify/internal/mapred"
	"github.com/roach88/mrverify/internal/store/sqlitekv"
)

const shippedTestDef = "../../priv/tests.def"

func TestExecute_NothingToDo(t *testing.T) {
	code, stdout, stderr := execute(t, "-n", "sqlite:store.db", "-p", t.TempDir())

	assert.Equal(t, ExitSuccess, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "nothing to do")
}

func TestExecute_SQLiteEndToEnd(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := execute(t,
		"-n", "sqlite:store.db", "-p", dir,
		"--populate", "--runjobs",
		"-c", "20", "-s", "64b", "-t", shippedTestDef, "--seed", "7",
	)

	require.Equal(t, ExitSuccess, code, "stdout:\n%s\nstderr:\n%s", stdout, stderr)
	assert.FileExists(t, filepath.Join(dir, "store.db"))
	assert.Contains(t, stdout, `Running "reduce count"`)
	assert.Contains(t, stdout, "index:int_range: passed")
	assert.Contains(t, stdout, "0 failed")
	assert.NotContains(t, stdout, "FAILED")
	assert.Contains(t, stderr, "fixtures populated")
}

func TestExecute_BoltSkipsIndexCases(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := execute(t,
		"-n", "bolt:kv.db", "-p", dir, "-l", "-r",
		"-c", "20", "-s", "1k", "-t", shippedTestDef, "--seed", "7",
	)

	require.Equal(t, ExitSuccess, code, "stdout:\n%s\nstderr:\n%s", stdout, stderr)
	assert.Contains(t, stdout, "index:bucket_range: passed (skipped, 0ms)")
	assert.NotContains(t, stdout, "FAILED")
}

func TestExecute_PopulateThenRunSeparately(t *testing.T) {
	dir := t.TempDir()
	code, _, _ := execute(t, "-n", "sqlite:store.db", "-p", dir, "-l", "-c", "20")
	require.Equal(t, ExitSuccess, code)

	code, stdout, _ := execute(t, "-n", "sqlite:store.db", "-p", dir, "-r", "-c", "20", "-t", shippedTestDef)
	assert.Equal(t, ExitSuccess, code)
	assert.Contains(t, stdout, "0 failed")
}

func TestExecute_JSONEnvelope(t *testing.T) {
	dir := t.TempDir()
	code, stdout, _ := execute(t,
		"-n", "sqlite:store.db", "-p", dir, "-l", "-r",
		"-c", "20", "-t", shippedTestDef, "--format", "json",
	)
	require.Equal(t, ExitSuccess, code)

	var resp struct {
		Status  string            `json:"status"`
		Data    harness.RunReport `json:"data"`
		TraceID string            `json:"trace_id"`
	}
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.TraceID)
	assert.Equal(t, resp.TraceID, resp.Data.RunID)
	assert.Zero(t, resp.Data.Failed)
	assert.Equal(t, resp.Data.Total, resp.Data.Passed)
	assert.Len(t, resp.Data.Scenarios, 7)
}

func TestExecute_WritesReportFile(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	code, _, _ := execute(t,
		"-n", "sqlite:store.db", "-p", dir, "-l", "-r",
		"-c", "20", "-t", shippedTestDef, "--report", reportPath,
	)
	require.Equal(t, ExitSuccess, code)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report harness.RunReport
	require.NoError(t, json.Unmarshal(data, &report))
	assert.NotEmpty(t, report.RunID)
	assert.Positive(t, report.Total)
	assert.Equal(t, report.Total, report.Passed)
}

func TestExecute_FailuresBecomeExitCode(t *testing.T) {
	dir := t.TempDir()
	def := filepath.Join(dir, "wrong.def")
	require.NoError(t, os.WriteFile(def, []byte(`scenarios:
  - label: count as entries
    job:
      - reduce: {fun: count_inputs}
    verify: entry_count
`), 0o644))
	reportPath := filepath.Join(dir, "report.json")

	code, stdout, _ := execute(t,
		"-n", "sqlite:store.db", "-p", dir, "-l", "-r",
		"-c", "20", "-t", def, "--report", reportPath,
	)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	var report harness.RunReport
	require.NoError(t, json.Unmarshal(data, &report))

	// Every sub-case except index:int_eq expects a count other than one.
	assert.GreaterOrEqual(t, report.Failed, 8)
	assert.Equal(t, report.Failed, code)
	assert.Contains(t, stdout, "FAILED")
}

func TestExecute_BadTestDefinition(t *testing.T) {
	dir := t.TempDir()
	code, stdout, stderr := execute(t,
		"-n", "sqlite:store.db", "-p", dir, "-r",
		"-t", filepath.Join(dir, "missing.def"),
	)

	assert.Equal(t, ExitFatal, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "E002")
	assert.NotContains(t, stderr, "Usage:")
}

func TestExecute_BadTestDefinitionJSON(t *testing.T) {
	dir := t.TempDir()
	code, stdout, _ := execute(t,
		"-n", "sqlite:store.db", "-p", dir, "-r", "--format", "json",
		"-t", filepath.Join(dir, "missing.def"),
	)
	assert.Equal(t, ExitFatal, code)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(stdout), &resp), stdout)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDefinition, resp.Error.Code)
}

func TestAttachLogger_RoutesStoreWarnings(t *testing.T) {
	ctx := context.Background()
	s, err := sqlitekv.Open(filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.DefineBackend(ctx, client.BackendInfo{Name: "top", Kind: client.BackendMulti, Target: "missing"}))
	require.NoError(t, s.AssignBucket(ctx, "mrbucket", "top"))

	var logs bytes.Buffer
	attachLogger(s, slog.New(slog.NewTextHandler(&logs, nil)))

	_, err = s.RunJob(ctx, mapred.BucketIndex("mrbucket"), mapred.Job{{Map: &mapred.FunSpec{Fun: mapred.MapKey}}})
	assert.ErrorIs(t, err, client.ErrIndexUnsupported)
	assert.Contains(t, logs.String(), "backend probe failed")
}
