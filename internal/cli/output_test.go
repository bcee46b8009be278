package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutputFormatter_JSONSuccessWithTrace(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.SuccessWithTrace(map[string]int{"failed": 0}, "0190a1b2-run")
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "0190a1b2-run", resp.TraceID)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error(ErrCodeDefinition, "bad catalog", map[string]string{"path": "tests.def"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeDefinition, resp.Error.Code)
	assert.Equal(t, "bad catalog", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextErrorGoesToErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:    "text",
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   true,
	}

	require.NoError(t, formatter.Error(ErrCodeSetup, "no such path", "details here"))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [E001]: no such path")
	assert.Contains(t, errOut.String(), "Details: details here")
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("done"))
	assert.Equal(t, "done\n", buf.String())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFatal, GetExitCode(errors.New("plain")))
	assert.Equal(t, 3, GetExitCode(NewExitError(3, ErrCodeFailures, "3 failed")))

	wrapped := fmt.Errorf("outer: %w", WrapExitError(ExitFatal, ErrCodeFixture, "populate", errors.New("disk full")))
	assert.Equal(t, ExitFatal, GetExitCode(wrapped))
	assert.Contains(t, wrapped.Error(), "disk full")
}

func TestFailureExitCode(t *testing.T) {
	assert.Equal(t, 0, FailureExitCode(0))
	assert.Equal(t, 7, FailureExitCode(7))
	assert.Equal(t, ExitMaxFailures, FailureExitCode(250))
	assert.Equal(t, ExitMaxFailures, FailureExitCode(10000))
}
