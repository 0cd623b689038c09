package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rsndb runs the CLI against the store in dir and returns stdout
func rsndb(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	resetFlags(RootCmd)
	var out bytes.Buffer
	RootCmd.SetOut(&out)
	RootCmd.SetErr(io.Discard)
	RootCmd.SetArgs(append(args, "--data-dir="+dir, "--log-level=error"))
	err := RootCmd.Execute()
	return strings.TrimSpace(out.String()), err
}

// resetFlags restores every flag default; cobra keeps parsed values
// between Execute calls
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func mustRun(t *testing.T, dir string, args ...string) string {
	t.Helper()
	out, err := rsndb(t, dir, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func TestCLIStatePersistsBetweenCommands(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "table", "create", "users", "--field", "name:str:required", "--field", "age:int")
	assert.FileExists(t, filepath.Join(dir, "rsndb.db"))

	assert.Equal(t, `"users_00001"`, mustRun(t, dir, "table", "insert", "users", `{"name":"Ann","age":31}`))
	assert.Equal(t, `"users_00002"`, mustRun(t, dir, "table", "insert", "users", `{"name":"Bob","age":25}`))
	assert.Equal(t, "1", mustRun(t, dir, "table", "count", "users", "--where", "age >= 30"))
	assert.Equal(t, `[
  "users"
]`, mustRun(t, dir, "table", "list"))

	_, err := rsndb(t, dir, "table", "insert", "users", `{"age":1}`)
	assert.Error(t, err)

	mustRun(t, dir, "kv", "put", "greeting", "hello")
	assert.Equal(t, `"hello"`, mustRun(t, dir, "kv", "get", "greeting"))

	mustRun(t, dir, "graph", "link", "users", "users_00001", "knows", "users", "users_00002")
	assert.Contains(t, mustRun(t, dir, "graph", "walk", "users", "users_00001", "--label", "knows"), `"users_00002"`)
}

func TestCLICheckpointSurvivesReload(t *testing.T) {
	dir := t.TempDir()

	mustRun(t, dir, "table", "create", "notes", "--mode", "flexible")
	mustRun(t, dir, "table", "insert", "notes", `{"text":"keep me"}`)
	mustRun(t, dir, "store", "checkpoint", "before")
	mustRun(t, dir, "table", "remove", "notes", "--where=")
	assert.Equal(t, "0", mustRun(t, dir, "table", "count", "notes", "--where="))

	mustRun(t, dir, "store", "rollback", "before")
	assert.Equal(t, "1", mustRun(t, dir, "table", "count", "notes", "--where="))
	assert.Contains(t, mustRun(t, dir, "store", "checkpoints"), `"before"`)

	verify := mustRun(t, dir, "store", "verify")
	assert.Contains(t, verify, `"version": 1`)
	assert.Contains(t, verify, `"compressed": true`)
}

func TestCLIExecScript(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "table", "create", "users", "--field", "name:str:required:unique", "--mode", "strict")

	script := filepath.Join(t.TempDir(), "script.jsonl")
	require.NoError(t, os.WriteFile(script, []byte(strings.Join([]string{
		`# two users in one batch`,
		`{"verb":"BATCH","text":"seed"}`,
		`{"verb":"INSERT","table":"users","fields":{"name":"Ann"}}`,
		`{"verb":"INSERT","table":"users","fields":{"name":"Bob"}}`,
		`{"verb":"COMMIT"}`,
		``,
		`{"verb":"COUNT","table":"users"}`,
	}, "\n")), 0o644))

	out := mustRun(t, dir, "exec", script)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 5)
	for _, line := range lines {
		assert.Contains(t, line, `"ok":true`)
	}
	assert.Contains(t, lines[4], `"result":2`)
	assert.Equal(t, "2", mustRun(t, dir, "table", "count", "users", "--where="))

	bad := filepath.Join(t.TempDir(), "bad.jsonl")
	require.NoError(t, os.WriteFile(bad, []byte(strings.Join([]string{
		`{"verb":"INSERT","table":"users","fields":{"name":"Cid"}}`,
		`{"verb":"INSERT","table":"users","fields":{"name":"Ann"}}`,
	}, "\n")), 0o644))
	out, err := rsndb(t, dir, "exec", bad)
	require.Error(t, err)
	assert.Contains(t, out, "UniqueConstraintViolation")
	// the successful line is kept
	assert.Equal(t, "3", mustRun(t, dir, "table", "count", "users", "--where="))
}

func TestCLIExportImport(t *testing.T) {
	dir := t.TempDir()
	mustRun(t, dir, "table", "create", "users", "--field", "name:str:required")
	mustRun(t, dir, "table", "insert", "users", `{"name":"Ann"}`)

	assert.Equal(t, "1", mustRun(t, dir, "store", "export", "users", "out/users.jsonl"))
	assert.FileExists(t, filepath.Join(dir, "out", "users.jsonl"))
	assert.Equal(t, "1", mustRun(t, dir, "store", "import", "users", "out/users.jsonl"))

	assert.Equal(t, "2", mustRun(t, dir, "store", "export", "users", "out/users.sqlite"))
	mustRun(t, dir, "table", "create", "copy", "--field", "name:str")
	assert.Equal(t, "2", mustRun(t, dir, "store", "import", "copy", "out/users.sqlite", "--source-table", "users"))

	_, err := rsndb(t, dir, "store", "export", "users", "../escape.jsonl")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	assert.Equal(t, "rsnDB v"+Version, mustRun(t, t.TempDir(), "version"))
}
