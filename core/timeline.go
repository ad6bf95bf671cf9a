package core

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// WeeksPerMonth is the month-to-week conversion factor used for timelines.
const WeeksPerMonth = 4.33

// ErrUnparseableTimeline is returned by ParseTimelineStrict for text that is not "<n> <day|week|month>(s)".
var ErrUnparseableTimeline = errors.New("unparseable timeline")

var timelinePattern = regexp.MustCompile(`(?i)^\s*(\d+(?:\.\d+)?)\s*(day|week|month)s?\s*$`)

// ParseTimelineWeeks converts a free-text duration such as "3 weeks" into weeks.
// Unrecognized text yields 0, which callers score as the fastest possible timeline.
func ParseTimelineWeeks(text string) float64 {
	weeks, err := ParseTimelineStrict(text)
	if err != nil {
		return 0
	}
	return weeks
}

// ParseTimelineStrict is ParseTimelineWeeks with an error for unrecognized text.
func ParseTimelineStrict(text string) (float64, error) {
	m := timelinePattern.FindStringSubmatch(text)
	if m == nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableTimeline, text)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnparseableTimeline, text)
	}

	switch strings.ToLower(m[2]) {
	case "day":
		return value / 7, nil
	case "month":
		return value * WeeksPerMonth, nil
	default:
		return value, nil
	}
}
