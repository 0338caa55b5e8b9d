// Package simconfig reads and rewrites the simulator's JSON configuration.
//
// Only StartTime and EndTime are ever modified. Every other key is carried
// through as raw bytes so the simulator sees exactly what the template had.
package simconfig

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"restartcheck/internal/simtime"
)

// Keys the harness reads and writes.
const (
	StartTimeKey = "StartTime"
	EndTimeKey   = "EndTime"
)

var (
	// ErrMissingStartTime is returned when a configuration has no StartTime key.
	ErrMissingStartTime = errors.New("configuration has no " + StartTimeKey)
	// ErrMalformed is returned for documents that are not a JSON object.
	ErrMalformed = errors.New("malformed configuration")
)

// Document is a parsed configuration. The zero value is not usable; use Load or Parse.
type Document struct {
	raw   []byte
	start time.Time
}

// Load reads and parses the configuration at path.
func Load(fs afero.Fs, path string) (*Document, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("configuration file not found: %s: %w", path, err)
		}
		return nil, fmt.Errorf("failed to read configuration %s: %w", path, err)
	}

	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse configuration %s: %w", path, err)
	}
	return doc, nil
}

// Parse validates data and extracts its StartTime.
func Parse(data []byte) (*Document, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: invalid JSON", ErrMalformed)
	}
	if !gjson.ParseBytes(data).IsObject() {
		return nil, fmt.Errorf("%w: top level must be an object", ErrMalformed)
	}

	start, err := timeField(data, StartTimeKey)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, len(data))
	copy(raw, data)
	return &Document{raw: raw, start: start}, nil
}

// StartTime returns the configured start of the run.
func (d *Document) StartTime() time.Time {
	return d.start
}

// EndTime returns the configured end of the run, if the document has one.
func (d *Document) EndTime() (time.Time, bool, error) {
	if !gjson.GetBytes(d.raw, EndTimeKey).Exists() {
		return time.Time{}, false, nil
	}
	end, err := timeField(d.raw, EndTimeKey)
	if err != nil {
		return time.Time{}, true, err
	}
	return end, true, nil
}

// Get returns the raw JSON found at a gjson path, for diagnostics.
func (d *Document) Get(path string) (string, bool) {
	r := gjson.GetBytes(d.raw, path)
	return r.Raw, r.Exists()
}

// WithInterval returns a copy of d whose StartTime and EndTime are the bounds of iv.
func (d *Document) WithInterval(iv simtime.Interval) (*Document, error) {
	out, err := sjson.SetBytes(d.raw, StartTimeKey, simtime.ToList(iv.Start))
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", StartTimeKey, err)
	}
	out, err = sjson.SetBytes(out, EndTimeKey, simtime.ToList(iv.End))
	if err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", EndTimeKey, err)
	}
	return &Document{raw: out, start: iv.Start.Truncate(time.Second)}, nil
}

// Bytes returns the serialized document.
func (d *Document) Bytes() []byte {
	out := make([]byte, len(d.raw))
	copy(out, d.raw)
	return out
}

// Save writes the document to path, replacing any existing file.
func (d *Document) Save(fs afero.Fs, path string) error {
	if err := afero.WriteFile(fs, path, d.raw, 0644); err != nil {
		return fmt.Errorf("failed to write configuration %s: %w", path, err)
	}
	return nil
}

// Install copies the configuration file src over dst, the file the simulator reads.
func Install(fs afero.Fs, src, dst string) error {
	data, err := afero.ReadFile(fs, src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	if err := afero.WriteFile(fs, dst, data, 0644); err != nil {
		return fmt.Errorf("failed to install %s as %s: %w", src, dst, err)
	}
	return nil
}

func timeField(data []byte, key string) (time.Time, error) {
	r := gjson.GetBytes(data, key)
	if !r.Exists() {
		if key == StartTimeKey {
			return time.Time{}, ErrMissingStartTime
		}
		return time.Time{}, fmt.Errorf("configuration has no %s", key)
	}
	if !r.IsArray() {
		return time.Time{}, fmt.Errorf("%w: %s must be a list, got %s", simtime.ErrInvalidTimestamp, key, r.Raw)
	}

	elems := r.Array()
	list := make([]int, 0, len(elems))
	for i, e := range elems {
		if e.Type != gjson.Number || e.Num != math.Trunc(e.Num) {
			return time.Time{}, fmt.Errorf("%w: %s[%d] is not an integer: %s", simtime.ErrInvalidTimestamp, key, i, e.Raw)
		}
		list = append(list, int(e.Int()))
	}

	t, err := simtime.FromList(list)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad %s: %w", key, err)
	}
	return t, nil
}
