package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const testConfig = `list: todos: {
	table: "todo_items"
	scope: [
		{name: "board"},
		{name: "column", type: "int"},
	]
	min: -100
	max: 100
}

list: lanes: {
	table: "lane_items"
	scope: [{name: "lane", type: "int"}]
	mode: "dense"
	min:  0
	max:  1000
}

list: tiny: {
	table: "tiny_items"
	min:   0
	max:   3
}
`

// testEnv is a config file plus a database path in a temp directory.
type testEnv struct {
	config string
	db     string
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	dir := t.TempDir()
	config := filepath.Join(dir, "lists.cue")
	require.NoError(t, os.WriteFile(config, []byte(testConfig), 0644))
	return testEnv{config: config, db: filepath.Join(dir, "ranked.db")}
}

// run executes the root command with the env's config and database.
func (e testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCLI(t, append([]string{"--config", e.config, "--db", e.db}, args...)...)
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// recordJSON and scopeJSON decode RecordView and ScopeView output with
// plain JSON scope values.
type recordJSON struct {
	ID      string         `json:"id"`
	Scope   map[string]any `json:"scope"`
	Rank    int64          `json:"rank"`
	Payload string         `json:"payload"`
}

type scopeJSON struct {
	Scope   map[string]any `json:"scope"`
	Records []recordJSON   `json:"records"`
}

// decodeData unmarshals the data field of a JSON CLI response into v.
func decodeData(t *testing.T, out string, v any) CLIResponse {
	t.Helper()
	var raw struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
		Error  *CLIError       `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &raw), "output: %s", out)
	if v != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, v))
	}
	return CLIResponse{Status: raw.Status, Error: raw.Error}
}
