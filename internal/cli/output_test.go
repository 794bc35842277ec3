package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/lfmerge/internal/merge"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Success(map[string]int{"files": 2})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, map[string]any{"files": float64(2)}, resp.Data)
}

func TestOutputFormatter_JSONErrorWithDetails(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("MALFORMED_UPDATE", "update file rejected", map[string]string{"path": "/u/P_s_1.lift.update"})
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "MALFORMED_UPDATE", resp.Error.Code)
	assert.Equal(t, "update file rejected", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

type textResult struct{ n int }

func (r textResult) WriteText(w io.Writer, verbose bool) {
	fmt.Fprintf(w, "merged %d files (verbose=%v)\n", r.n, verbose)
}

func TestOutputFormatter_TextSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Success("nothing to do"))
	assert.Equal(t, "nothing to do\n", buf.String())

	buf.Reset()
	formatter.Verbose = true
	require.NoError(t, formatter.Success(textResult{n: 3}))
	assert.Equal(t, "merged 3 files (verbose=true)\n", buf.String())
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

	require.NoError(t, formatter.Error("LOCKED", "base busy", "held by pid 42"))
	assert.Empty(t, out.String())
	assert.Contains(t, errOut.String(), "Error [LOCKED]: base busy")
	assert.Contains(t, errOut.String(), "Details: held by pid 42")
}

func TestOutputFormatter_Fail(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
		wantExit int
	}{
		{"merge error", &merge.Error{Code: merge.ErrCodeConfiguration, Message: "base file unusable"}, "CONFIGURATION", ExitFailure},
		{"wrapped merge error", WrapExitError(ExitFailure, "merge failed", &merge.Error{Code: merge.ErrCodeLocked}), "LOCKED", ExitFailure},
		{"command error", NewExitError(ExitCommandError, "bad flags"), CodeCommand, ExitCommandError},
		{"plain error", errors.New("boom"), CodeFailed, ExitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{Format: "json", Writer: buf}

			got := formatter.Fail(tt.err, nil)
			assert.ErrorIs(t, got, tt.err)
			assert.True(t, IsReported(got))
			assert.Equal(t, tt.wantExit, GetExitCode(got))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		wantLog bool
	}{
		{"verbose_enabled", true, true},
		{"verbose_disabled", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := &bytes.Buffer{}
			formatter := &OutputFormatter{
				Format:  "text",
				Writer:  buf,
				Verbose: tt.verbose,
			}

			formatter.VerboseLog("scanning %s", "LiftUpdates")

			if tt.wantLog {
				assert.Contains(t, buf.String(), "scanning LiftUpdates")
			} else {
				assert.Empty(t, buf.String())
			}
		})
	}
}

func TestReported(t *testing.T) {
	assert.NoError(t, Reported(nil))
	assert.False(t, IsReported(errors.New("x")))
	assert.True(t, IsReported(fmt.Errorf("outer: %w", Reported(errors.New("x")))))
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("x")))
	assert.Equal(t, ExitCommandError, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitCommandError, "x"))))
}
