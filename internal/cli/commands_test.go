package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDSX = "testdata/simple_user_job.dsx"

// runCommand executes the root command with args and returns stdout and the
// error.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	cmd.SetContext(context.Background())

	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := runCommand(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "dsx2talend")
}

func TestVersionCommandJSON(t *testing.T) {
	out, err := runCommand(t, "version", "--json")
	require.NoError(t, err)

	var info map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &info))
	assert.Contains(t, info, "version")
}

func TestParseCommand(t *testing.T) {
	out, err := runCommand(t, "parse", sampleDSX)
	require.NoError(t, err)

	var job map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &job))
	assert.Equal(t, "simple_user_job", job["Name"])

	nodes, ok := job["Nodes"].([]interface{})
	require.True(t, ok)
	assert.Len(t, nodes, 3)
}

func TestLowerCommand(t *testing.T) {
	out, err := runCommand(t, "lower", sampleDSX)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))

	assert.Equal(t, "1.0", doc["irVersion"])

	nodes, ok := doc["nodes"].([]interface{})
	require.True(t, ok)
	require.Len(t, nodes, 3)

	first, ok := nodes[0].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "n0", first["id"])
	assert.Equal(t, "Source", first["type"])
}

func TestLowerCommandToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	_, err := runCommand(t, "lower", sampleDSX, "--output", path)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc, "schemas")
}

func TestInspectCommand(t *testing.T) {
	out, err := runCommand(t, "inspect", sampleDSX)
	require.NoError(t, err)

	assert.Contains(t, out, "Job: simple_user_job")
	assert.Contains(t, out, "Input_File")
	assert.Contains(t, out, "UPPER(USERNAME)")
	assert.Contains(t, out, "3 stages, 2 links, 1 transformations preserved")
}

func TestValidateCommand(t *testing.T) {
	out, err := runCommand(t, "validate", sampleDSX)
	require.NoError(t, err)
	assert.Contains(t, out, "OK: 3 stages, 2 links, 1 transformations preserved")
}

func TestMigrateCommand(t *testing.T) {
	dir := t.TempDir()

	_, err := runCommand(t, "migrate", sampleDSX, "--output-dir", dir, "--no-zip")
	require.NoError(t, err)

	item := filepath.Join(dir, "simple_user_job", "process", "DataStage", "simple_user_job.item")
	_, statErr := os.Stat(item)
	assert.NoError(t, statErr)

	projectFile := filepath.Join(dir, "simple_user_job", "talend.project")
	_, statErr = os.Stat(projectFile)
	assert.NoError(t, statErr)
}

func TestMigrateCommandMissingFile(t *testing.T) {
	_, err := runCommand(t, "migrate", filepath.Join(t.TempDir(), "nope.dsx"))
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestUnknownFlagExitCode(t *testing.T) {
	_, err := runCommand(t, "migrate", "--definitely-not-a-flag")
	require.Error(t, err)

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		assert.Equal(t, 2, exitErr.Code)
	}
}

func TestCompletionCommand(t *testing.T) {
	out, err := runCommand(t, "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "bash completion")
}

func TestExecuteExitCodes(t *testing.T) {
	assert.Equal(t, 0, (&ExitError{Code: 0}).Code)

	err := &ExitError{Code: 3, Err: errors.New("validation failed")}
	assert.Equal(t, "validation failed", err.Error())
	assert.Equal(t, "exit code 4", (&ExitError{Code: 4}).Error())
}
