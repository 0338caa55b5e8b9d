// Package simtime converts the simulator's six-element timestamps to and from
// time.Time and partitions a run duration into equal restart legs.
package simtime

import (
	"errors"
	"fmt"
	"math"
	"math/bits"
	"time"
)

var (
	// ErrInvalidTimestamp is returned for timestamps that do not name a real calendar instant.
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	// ErrLegTooShort is returned when a leg would be shorter than the one-second
	// resolution of a written timestamp.
	ErrLegTooShort = errors.New("leg shorter than one second")
)

// MaxMinutes is the longest run a time.Duration can hold.
const MaxMinutes = math.MaxInt64 / int64(time.Minute)

// MinLeg is the shortest leg Split accepts.
const MinLeg = time.Second

// Fields is the number of elements in a simulator timestamp:
// year, month, day, hour, minute, second.
const Fields = 6

// Interval is one leg of a partitioned run, [Start, End).
type Interval struct {
	Index int // 1-based leg number
	Start time.Time
	End   time.Time
}

// Duration returns End - Start.
func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// FromList builds a UTC time from a [year, month, day, hour, minute, second] list.
// Values are checked against the calendar and never normalized, so 2021-02-30
// is rejected rather than rolled into March.
func FromList(list []int) (time.Time, error) {
	if len(list) != Fields {
		return time.Time{}, fmt.Errorf("%w: expected %d elements, got %d", ErrInvalidTimestamp, Fields, len(list))
	}

	year, month, day := list[0], list[1], list[2]
	hour, minute, second := list[3], list[4], list[5]

	switch {
	case year < 1 || year > 9999:
		return time.Time{}, fmt.Errorf("%w: year %d out of range 1..9999", ErrInvalidTimestamp, year)
	case month < 1 || month > 12:
		return time.Time{}, fmt.Errorf("%w: month %d out of range 1..12", ErrInvalidTimestamp, month)
	case day < 1 || day > daysIn(year, time.Month(month)):
		return time.Time{}, fmt.Errorf("%w: day %d out of range for %04d-%02d", ErrInvalidTimestamp, day, year, month)
	case hour < 0 || hour > 23:
		return time.Time{}, fmt.Errorf("%w: hour %d out of range 0..23", ErrInvalidTimestamp, hour)
	case minute < 0 || minute > 59:
		return time.Time{}, fmt.Errorf("%w: minute %d out of range 0..59", ErrInvalidTimestamp, minute)
	case second < 0 || second > 59:
		return time.Time{}, fmt.Errorf("%w: second %d out of range 0..59", ErrInvalidTimestamp, second)
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}

// ToList is the inverse of FromList. Sub-second precision is dropped.
func ToList(t time.Time) []int {
	t = t.UTC()
	return []int{t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second()}
}

// Split partitions [start, start+minutes) into restarts+1 contiguous legs of
// equal length. Boundaries are computed from the start on each step, so the
// final leg always ends exactly at start+minutes. Legs shorter than MinLeg are
// rejected, since they would collapse when written with one-second resolution.
func Split(start time.Time, minutes, restarts int) ([]Interval, error) {
	if restarts < 0 {
		return nil, fmt.Errorf("restart count must be >= 0, got %d", restarts)
	}
	if minutes <= 0 {
		return nil, fmt.Errorf("minutes must be > 0, got %d", minutes)
	}
	if int64(minutes) > MaxMinutes {
		return nil, fmt.Errorf("minutes must be <= %d, got %d", MaxMinutes, minutes)
	}

	legs := int64(restarts) + 1
	total := int64(minutes) * int64(time.Minute)
	if total/legs < int64(MinLeg) {
		return nil, fmt.Errorf("%w: %d minute(s) over %d leg(s)", ErrLegTooShort, minutes, legs)
	}

	intervals := make([]Interval, 0, legs)
	prev := start
	for k := int64(1); k <= legs; k++ {
		end := start.Add(offset(total, k, legs))
		intervals = append(intervals, Interval{Index: int(k), Start: prev, End: end})
		prev = end
	}

	return intervals, nil
}

// offset returns total*k/legs nanoseconds for 0 <= k <= legs without
// overflowing. The remainder product r*k can exceed int64, so it is divided
// in 128 bits.
func offset(total, k, legs int64) time.Duration {
	q, r := total/legs, total%legs
	hi, lo := bits.Mul64(uint64(r), uint64(k))
	frac, _ := bits.Div64(hi, lo, uint64(legs))
	return time.Duration(q*k + int64(frac))
}

// Span returns the interval covering every leg, from the first start to the last end.
func Span(intervals []Interval) (Interval, error) {
	if len(intervals) == 0 {
		return Interval{}, errors.New("no intervals to span")
	}
	return Interval{
		Index: 0,
		Start: intervals[0].Start,
		End:   intervals[len(intervals)-1].End,
	}, nil
}

// Format renders t the way the simulator's logs print dates.
func Format(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05")
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
