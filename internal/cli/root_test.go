package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func testDB(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "fluisterweek.db")
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

func TestRootCommand_HasSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	names := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"run", "status", "complete", "webhook", "override"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestRootCommand_RejectsInvalidFormat(t *testing.T) {
	_, err := executeCommand(t, "status", "--format", "xml", "--db", testDB(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestStatusCommand_JSONOutput(t *testing.T) {
	out, err := executeCommand(t, "status", "--format", "json", "--db", testDB(t))
	require.NoError(t, err)

	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	rows, ok := resp.Data.([]interface{})
	require.True(t, ok)
	assert.Len(t, rows, 7)

	first, ok := rows[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), first["day"])
	assert.Equal(t, "unlocked-pending", first["state"])
}

func TestCompleteCommand_TogglesState(t *testing.T) {
	db := testDB(t)

	out, err := executeCommand(t, "complete", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Day 1 marked completed.")

	out, err = executeCommand(t, "status", "--format", "json", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, `"state":"completed"`)

	out, err = executeCommand(t, "complete", "1", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Day 1 completion cleared.")
}

func TestCompleteCommand_RejectsBadDay(t *testing.T) {
	_, err := executeCommand(t, "complete", "99", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = executeCommand(t, "complete", "zeven", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestWebhookCommand_SetAndShow(t *testing.T) {
	db := testDB(t)

	_, err := executeCommand(t, "webhook", "set",
		"--watched", "https://hooks.example.com/done",
		"--not-watched", "https://hooks.example.com/missed",
		"--db", db)
	require.NoError(t, err)

	out, err := executeCommand(t, "webhook", "show", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "https://hooks.example.com/done")
	assert.Contains(t, out, "https://hooks.example.com/missed")
}

func TestWebhookTestCommand_FailsWithoutEndpoint(t *testing.T) {
	_, err := executeCommand(t, "webhook", "test", "1", "watched", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
}

func TestWebhookTestCommand_RejectsBadKind(t *testing.T) {
	_, err := executeCommand(t, "webhook", "test", "1", "whatever", "--db", testDB(t))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOverrideCommands_SetAndReset(t *testing.T) {
	db := testDB(t)
	ovPath := filepath.Join(t.TempDir(), "day1.json")
	require.NoError(t, writeFile(ovPath, `{"title":"Nieuwe titel"}`))

	out, err := executeCommand(t, "override", "set", "1", ovPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Override saved for day 1.")

	out, err = executeCommand(t, "status", "--format", "json", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Nieuwe titel")

	_, err = executeCommand(t, "override", "reset", "1", "--db", db)
	require.NoError(t, err)

	out, err = executeCommand(t, "status", "--format", "json", "--db", db)
	require.NoError(t, err)
	assert.NotContains(t, out, "Nieuwe titel")
}

func TestOverrideSetCommand_ReportsDiagnostics(t *testing.T) {
	db := testDB(t)
	ovPath := filepath.Join(t.TempDir(), "day1.json")
	require.NoError(t, writeFile(ovPath,
		`{"extraExercises":[{"title":"Leeg","displayType":"download"}]}`))

	out, err := executeCommand(t, "override", "set", "1", ovPath, "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "corrected:")
	assert.Contains(t, out, "MISSING_URL")
}
