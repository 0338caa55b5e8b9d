package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"restartcheck/internal/restarts"
	"restartcheck/internal/rundir"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `{"StartTime": [2020, 1, 1, 0, 0, 0], "Debug": {"iVerbose": 0}}`

// fakeAether writes one restart file into UA/restartOut and exits with code.
const fakeAether = `#!/bin/sh
echo "aether running in $(pwd)"
touch UA/restartOut/restart.dat
exit %s
`

// newLayout creates base/share/run with a fake simulator and returns base/tests/restarts.
func newLayout(t *testing.T, exitCode string) string {
	t.Helper()
	base := t.TempDir()
	template := filepath.Join(base, "share", "run")
	root := filepath.Join(base, "tests", "restarts")

	require.NoError(t, os.MkdirAll(filepath.Join(template, "UA", "restartOut"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(template, "UA", "restartIn"), 0755))
	require.NoError(t, os.MkdirAll(root, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(template, "aether.json"), []byte(baseConfig), 0644))
	script := fmt.Sprintf(fakeAether, exitCode)
	require.NoError(t, os.WriteFile(filepath.Join(template, "aether"), []byte(script), 0755))
	return root
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	app := NewApp()
	app.DotEnv = ""
	cmd := app.CreateRootCommand()

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestRun_ChainsLegs(t *testing.T) {
	root := newLayout(t, "0")

	out, err := execute(t, "--root", root, "--no-color", "run", "--restarts", "1", "--minutes", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "COMPLETE")

	halves := filepath.Join(root, rundir.HalvesDirName)
	assert.FileExists(t, filepath.Join(halves, "UA", "restartOut1", "restart.dat"))
	assert.FileExists(t, filepath.Join(halves, "UA", "restartOut2", "restart.dat"))
	assert.FileExists(t, filepath.Join(halves, "aether2.json"))
	assert.FileExists(t, filepath.Join(root, rundir.WholeDirName, "aetherwhole.json"))

	target, err := os.Readlink(filepath.Join(halves, "UA", "restartIn"))
	require.NoError(t, err)
	assert.Equal(t, "restartOut2", target)

	summary, err := restarts.LoadSummary(afero.NewOsFs(), filepath.Join(root, restarts.SummaryFileName))
	require.NoError(t, err)
	assert.True(t, summary.Completed)
	assert.Len(t, summary.Legs, 2)
}

func TestRun_HaltPolicy(t *testing.T) {
	root := newLayout(t, "3")

	out, err := execute(t, "--root", root, "--on-sim-failure", "halt", "run", "--restarts", "1", "--minutes", "60")
	require.Error(t, err)
	assert.ErrorIs(t, err, restarts.ErrSimulatorFailed)
	assert.Contains(t, out, "INCOMPLETE")
}

func TestRun_WarnPolicyContinues(t *testing.T) {
	root := newLayout(t, "3")

	out, err := execute(t, "--root", root, "run", "--restarts", "1", "--minutes", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "3 simulator run(s) exited non-zero")
}

func TestRun_MissingTemplatePrintsSummary(t *testing.T) {
	root := filepath.Join(t.TempDir(), "tests", "restarts")

	out, err := execute(t, "--root", root, "run", "--restarts", "1", "--minutes", "60")
	require.ErrorIs(t, err, rundir.ErrTemplateMissing)
	assert.Contains(t, out, "INCOMPLETE")
	assert.Contains(t, out, "error: ")
}

func TestRun_InvalidArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"negative restarts", []string{"run", "--restarts", "-1", "--minutes", "60"}},
		{"zero minutes", []string{"run", "--restarts", "1", "--minutes", "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root := filepath.Join(t.TempDir(), "root")
			_, err := execute(t, append([]string{"--root", root}, tt.args...)...)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidArgs)
			assert.NoDirExists(t, root, "no filesystem work before validation")
		})
	}
}

func TestRun_MissingRequiredFlags(t *testing.T) {
	_, err := execute(t, "run", "--restarts", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minutes")

	_, err = execute(t, "run", "--restarts", "one", "--minutes", "60")
	assert.Error(t, err)
}

func TestPlan_Text(t *testing.T) {
	root := newLayout(t, "0")

	out, err := execute(t, "--root", root, "--no-color", "plan", "--restarts", "2", "--minutes", "90")
	require.NoError(t, err)
	assert.Contains(t, out, "aether1.json")
	assert.Contains(t, out, "2020-01-01T01:00:00 -> 2020-01-01T01:30:00  aether3.json")
	assert.NoDirExists(t, filepath.Join(root, rundir.HalvesDirName))
}

func TestPlan_JSONWithExplicitConfig(t *testing.T) {
	config := filepath.Join(t.TempDir(), "custom.json")
	require.NoError(t, os.WriteFile(config, []byte(baseConfig), 0644))

	out, err := execute(t, "plan", "--config", config, "--restarts", "0", "--minutes", "30", "--format", "json")
	require.NoError(t, err)

	var view map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, float64(30), view["minutes"])
	assert.Len(t, view["legs"], 1)
}

func TestPlan_Diff(t *testing.T) {
	root := newLayout(t, "0")

	out, err := execute(t, "--root", root, "plan", "--restarts", "1", "--minutes", "60", "--diff")
	require.NoError(t, err)
	assert.Contains(t, out, "=== aether1.json vs aether.json ===")
	assert.Contains(t, out, "=== aetherwhole.json vs aether.json ===")
}

func TestPlan_MissingConfig(t *testing.T) {
	_, err := execute(t, "plan", "--config", filepath.Join(t.TempDir(), "absent.json"), "--restarts", "1", "--minutes", "60")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "restartcheck ")

	out, err = execute(t, "version", "--detailed")
	require.NoError(t, err)
	assert.Contains(t, out, "Git Commit")
}
