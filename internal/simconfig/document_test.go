package simconfig

import (
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"restartcheck/internal/simtime"
)

const baseConfig = `{
  "Debug" : { "iVerbose" : 0, "dt" : 60.0 },
  "StartTime" : [2020, 1, 1, 0, 0, 0],
  "Euv" : { "doUse" : true, "Model" : "euvac" },
  "Restart" : { "do" : true, "InDir" : "UA/restartIn", "OutDir" : "UA/restartOut" }
}`

func TestLoad_MissingFile(t *testing.T) {
	fs := afero.NewMemMapFs()

	_, err := Load(fs, "run/aether.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{"invalid json", `{"StartTime": [2020,`, ErrMalformed},
		{"array root", `[1, 2, 3]`, ErrMalformed},
		{"missing start time", `{"EndTime": [2020, 1, 1, 0, 0, 0]}`, ErrMissingStartTime},
		{"wrong arity", `{"StartTime": [2020, 1, 1]}`, simtime.ErrInvalidTimestamp},
		{"out of range month", `{"StartTime": [2020, 14, 1, 0, 0, 0]}`, simtime.ErrInvalidTimestamp},
		{"not a list", `{"StartTime": "2020-01-01"}`, simtime.ErrInvalidTimestamp},
		{"float element", `{"StartTime": [2020, 1, 1.5, 0, 0, 0]}`, simtime.ErrInvalidTimestamp},
		{"string element", `{"StartTime": [2020, "1", 1, 0, 0, 0]}`, simtime.ErrInvalidTimestamp},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParse_StartTime(t *testing.T) {
	doc, err := Parse([]byte(baseConfig))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), doc.StartTime())

	_, ok, err := doc.EndTime()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestWithInterval_RoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()
	doc, err := Parse([]byte(baseConfig))
	require.NoError(t, err)

	iv := simtime.Interval{
		Index: 2,
		Start: time.Date(2020, 1, 1, 0, 30, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 1, 1, 0, 0, 0, time.UTC),
	}
	leg, err := doc.WithInterval(iv)
	require.NoError(t, err)
	require.NoError(t, leg.Save(fs, "aether2.json"))

	reloaded, err := Load(fs, "aether2.json")
	require.NoError(t, err)
	assert.Equal(t, iv.Start, reloaded.StartTime())

	end, ok, err := reloaded.EndTime()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, iv.End, end)

	// The base document is left untouched.
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), doc.StartTime())
}

func TestWithInterval_PreservesOtherKeys(t *testing.T) {
	doc, err := Parse([]byte(baseConfig))
	require.NoError(t, err)

	leg, err := doc.WithInterval(simtime.Interval{
		Start: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2020, 1, 1, 0, 30, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	for _, key := range []string{"Debug", "Euv", "Restart"} {
		want, ok := doc.Get(key)
		require.True(t, ok)
		got, ok := leg.Get(key)
		require.True(t, ok)
		assert.Equal(t, want, got, key)
	}

	// Untouched numbers keep their original spelling.
	assert.Contains(t, string(leg.Bytes()), `"dt" : 60.0`)
	end, ok := leg.Get(EndTimeKey)
	require.True(t, ok)
	assert.Equal(t, "[2020,1,1,0,30,0]", end)
}

func TestWithInterval_TruncatesSubSecond(t *testing.T) {
	doc, err := Parse([]byte(baseConfig))
	require.NoError(t, err)

	leg, err := doc.WithInterval(simtime.Interval{
		Start: time.Date(2020, 1, 1, 0, 0, 8, 571428571, time.UTC),
		End:   time.Date(2020, 1, 1, 0, 0, 17, 142857142, time.UTC),
	})
	require.NoError(t, err)

	reparsed, err := Parse(leg.Bytes())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2020, 1, 1, 0, 0, 8, 0, time.UTC), reparsed.StartTime())
	assert.Equal(t, reparsed.StartTime(), leg.StartTime())
}

func TestInstall(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "aether1.json", []byte(baseConfig), 0644))
	require.NoError(t, afero.WriteFile(fs, "aether.json", []byte(`{}`), 0644))

	require.NoError(t, Install(fs, "aether1.json", "aether.json"))

	got, err := afero.ReadFile(fs, "aether.json")
	require.NoError(t, err)
	assert.Equal(t, baseConfig, string(got))

	assert.Error(t, Install(fs, "missing.json", "aether.json"))
}
