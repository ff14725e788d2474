package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trigsched/internal/module"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateReportsEachDefinition(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "scheduler": {"group": "g"},
  "triggers": {
    "intervalTriggers": [
      {"id": "ok", "interval": 5, "unit": "SECONDS", "publishChannel": "/a", "cmd": "ping"},
      {"id": "bad", "interval": 5, "unit": "WEEKS", "publishChannel": "/a"}
    ],
    "rangeTriggers": [
      {"id": "fixed", "startTime": "7:30 AM", "publishChannel": "/b"},
      {"id": "garbled", "startTime": "25:99", "publishChannel": "/b"}
    ]
  }
}`), 0o600))

	out, err := runCLI(t, "validate", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `valid    interval "ok"`)
	assert.Contains(t, out, "every 5s -> /a$cmd")
	assert.Contains(t, out, `invalid  interval "bad"`)
	assert.Contains(t, out, "daily at 7:30 AM -> /b")
	assert.Contains(t, out, `invalid  range    "garbled"`)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), `2 of 4 triggers valid (group "g")`))
}

func TestValidateFailsWithoutValidTriggers(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scheduler:\n  group: g\n"), 0o600))
	_, err := runCLI(t, "validate", "-c", path)
	assert.ErrorIs(t, err, module.ErrNoTriggers)
}

func TestValidateRejectsUnknownKeys(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "c.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"plugins":{}}`), 0o600))
	_, err := runCLI(t, "validate", "--config", path)
	assert.Error(t, err)
}

func TestRunFailsOnMissingConfig(t *testing.T) {
	t.Parallel()
	_, err := runCLI(t, "run", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
