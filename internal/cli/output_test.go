package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ranked/internal/ir"
	"github.com/roach88/ranked/internal/store"
)

func TestOutputFormatter_JSONSuccess(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	data := map[string]string{"result": "success"}
	err := formatter.Success(data)
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Status)
	assert.NotNil(t, resp.Data)
}

func TestOutputFormatter_JSONError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format: "json",
		Writer: buf,
	}

	err := formatter.Error("SCOPE_CAPACITY_EXHAUSTED", "scope is full", map[string]string{"scope": `["b1"]`})
	require.NoError(t, err)

	var resp CLIResponse
	err = json.Unmarshal(buf.Bytes(), &resp)
	require.NoError(t, err)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "SCOPE_CAPACITY_EXHAUSTED", resp.Error.Code)
	assert.Equal(t, "scope is full", resp.Error.Message)
	assert.NotNil(t, resp.Error.Details)
}

func TestOutputFormatter_TextError(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{
		Format:  "text",
		Writer:  buf,
		Verbose: true,
	}

	err := formatter.Error("E005", "config not found", "lists.cue")
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Error [E005]: config not found")
	assert.Contains(t, buf.String(), "Details: lists.cue")
}

func TestOutputFormatter_VerboseLog(t *testing.T) {
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut}

	formatter.VerboseLog("hidden %d", 1)
	assert.Empty(t, errOut.String())

	formatter.Verbose = true
	formatter.VerboseLog("shown %d", 2)
	assert.Equal(t, "shown 2\n", errOut.String())
	assert.Empty(t, out.String(), "diagnostics must not corrupt JSON output")
}

func TestOutputFormatter_Record(t *testing.T) {
	spec := ir.ListSpec{
		Name:  "todos",
		Scope: []ir.ScopeField{{Name: "board", Type: ir.FieldString}, {Name: "column", Type: ir.FieldInt}},
	}
	rec := store.Record{ID: "A", Scope: ir.NewScopeKey(ir.IRString("b1"), ir.IRNull{}), Rank: -7, Payload: "p"}

	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}
	require.NoError(t, formatter.Record(newRecordView(spec, rec)))
	assert.Equal(t, "A\trank=-7\tscope={\"board\":\"b1\",\"column\":null}\n", buf.String())

	buf.Reset()
	formatter.Format = "json"
	require.NoError(t, formatter.Record(newRecordView(spec, rec)))

	var view map[string]any
	decodeData(t, buf.String(), &view)
	assert.Equal(t, "A", view["id"])
	assert.Equal(t, float64(-7), view["rank"])
	assert.Equal(t, map[string]any{"board": "b1", "column": nil}, view["scope"])
}

func TestOutputFormatter_Scopes(t *testing.T) {
	buf := &bytes.Buffer{}
	formatter := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, formatter.Scopes(nil))
	assert.Equal(t, "(no records)\n", buf.String())

	buf.Reset()
	require.NoError(t, formatter.Scopes([]ScopeView{{
		Scope:   ir.IRObject{"board": ir.IRString("b1")},
		Records: []RecordView{{ID: "A", Rank: 0}, {ID: "B", Rank: 50, Payload: "second"}},
	}}))
	out := buf.String()
	assert.Contains(t, out, `scope {"board":"b1"}`)
	assert.Contains(t, out, "A")
	assert.Contains(t, out, "second")
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "bad flag")))
	assert.Equal(t, ExitFailure, GetExitCode(fmt.Errorf("wrapped: %w", NewExitError(ExitFailure, "violations"))))

	wrapped := WrapExitError(ExitCommandError, "open", errors.New("disk"))
	assert.Equal(t, "open: disk", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "disk")
}
