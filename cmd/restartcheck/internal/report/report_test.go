package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"restartcheck/internal/restarts"
	"restartcheck/internal/simconfig"
)

func testPlan(t *testing.T) *restarts.Plan {
	t.Helper()
	base, err := simconfig.Parse([]byte(`{"StartTime": [2020, 1, 1, 0, 0, 0], "Debug": {"iVerbose": 0}}`))
	require.NoError(t, err)
	plan, err := restarts.NewPlan(base, 1, 60)
	require.NoError(t, err)
	return plan
}

func TestWritePlan_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, testPlan(t), "aether.json", FormatText))

	out := buf.String()
	assert.Contains(t, out, "2 leg(s) of 30m0s")
	assert.Contains(t, out, "2020-01-01T00:00:00 -> 2020-01-01T00:30:00  aether1.json")
	assert.Contains(t, out, "2020-01-01T00:30:00 -> 2020-01-01T01:00:00  aether2.json")
	assert.Contains(t, out, "2020-01-01T00:00:00 -> 2020-01-01T01:00:00  aetherwhole.json")
}

func TestWritePlan_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, testPlan(t), "aether.json", FormatJSON))

	var view planView
	require.NoError(t, json.Unmarshal(buf.Bytes(), &view))
	require.Len(t, view.Legs, 2)
	assert.Equal(t, []int{2020, 1, 1, 0, 30, 0}, view.Legs[1].StartTime)
	assert.Equal(t, []int{2020, 1, 1, 1, 0, 0}, view.Whole.EndTime)
}

func TestWritePlan_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePlan(&buf, testPlan(t), "aether.json", FormatYAML))

	assert.Contains(t, buf.String(), "start_time: [2020, 1, 1, 0, 0, 0]")

	var view planView
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &view))
	assert.Equal(t, 60, view.Minutes)
	assert.Equal(t, "aetherwhole.json", view.Whole.Config)
}

func TestWritePlan_UnknownFormat(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WritePlan(&buf, testPlan(t), "aether.json", "toml"))
}

func TestDiffer_ShowDiff(t *testing.T) {
	plan := testPlan(t)

	var buf bytes.Buffer
	d := NewDiffer(&buf)
	d.ShowDiff(string(plan.Base.Bytes()), string(plan.Legs[1].Config.Bytes()), "leg 2")

	out := buf.String()
	assert.Contains(t, out, "=== leg 2 ===")
	assert.Contains(t, out, "+ ")
	assert.Contains(t, out, "EndTime")

	buf.Reset()
	d.ShowDiff("same", "same", "identical")
	assert.Contains(t, buf.String(), "No differences")
}

func TestDiffer_ElidesOnRuneBoundary(t *testing.T) {
	shared := strings.Repeat("é", 60)

	var buf bytes.Buffer
	NewDiffer(&buf).ShowDiff(shared+"a", shared+"b", "unicode")

	out := buf.String()
	assert.True(t, utf8.ValidString(out))
	assert.Contains(t, out, fmt.Sprintf("  %q...", strings.Repeat("é", 47)))
	assert.NotContains(t, out, `\x`)
}

func TestWriteSummary(t *testing.T) {
	s := &restarts.Summary{
		SessionID: "abc",
		Legs: []restarts.LegRecord{
			{Leg: 1, ExitCode: 0, Duration: 1500 * time.Millisecond, OutputDir: "/r/UA/restartOut1"},
			{Leg: 2, ExitCode: 1, OutputDir: "/r/UA/restartOut2"},
		},
		Whole:     &restarts.LegRecord{ExitCode: 0, LogPath: "/w/aetherwhole.log"},
		Completed: true,
	}

	var buf bytes.Buffer
	WriteSummary(&buf, s)

	out := buf.String()
	assert.Contains(t, out, "COMPLETE")
	assert.Contains(t, out, "session abc")
	assert.Contains(t, out, "/r/UA/restartOut1")
	assert.Contains(t, out, "/w/aetherwhole.log")
	assert.Contains(t, out, "1 simulator run(s) exited non-zero")
}
