package util

import (
	"fmt"
	"strings"
	"time"
)

const timerangeLayout = "20060102"

// Timerange is an inclusive [Start, End] window in unix seconds. A zero
// bound with its Has flag unset is open.
type Timerange struct {
	Start    int64
	End      int64
	HasStart bool
	HasEnd   bool
}

// ParseTimerange parses "YYYYMMDD-YYYYMMDD" as UTC dates. Either side may be
// empty ("20230101-" or "-20230201") to leave that bound open.
func ParseTimerange(s string) (Timerange, error) {
	var tr Timerange
	start, end, ok := strings.Cut(strings.TrimSpace(s), "-")
	if !ok {
		return tr, fmt.Errorf("timerange %q: want YYYYMMDD-YYYYMMDD", s)
	}
	if start == "" && end == "" {
		return tr, fmt.Errorf("timerange %q: both bounds empty", s)
	}

	if start != "" {
		t, err := time.ParseInLocation(timerangeLayout, start, time.UTC)
		if err != nil {
			return tr, fmt.Errorf("timerange start %q: %w", start, err)
		}
		tr.Start, tr.HasStart = t.Unix(), true
	}
	if end != "" {
		t, err := time.ParseInLocation(timerangeLayout, end, time.UTC)
		if err != nil {
			return tr, fmt.Errorf("timerange end %q: %w", end, err)
		}
		tr.End, tr.HasEnd = t.Unix(), true
	}
	if tr.HasStart && tr.HasEnd && tr.End < tr.Start {
		return tr, fmt.Errorf("timerange %q: end before start", s)
	}
	return tr, nil
}

// Contains reports whether ts (unix seconds) lies within the range,
// bounds included.
func (tr Timerange) Contains(ts int64) bool {
	if tr.HasStart && ts < tr.Start {
		return false
	}
	if tr.HasEnd && ts > tr.End {
		return false
	}
	return true
}

// String renders the range back into the YYYYMMDD-YYYYMMDD form.
func (tr Timerange) String() string {
	var b strings.Builder
	if tr.HasStart {
		b.WriteString(time.Unix(tr.Start, 0).UTC().Format(timerangeLayout))
	}
	b.WriteByte('-')
	if tr.HasEnd {
		b.WriteString(time.Unix(tr.End, 0).UTC().Format(timerangeLayout))
	}
	return b.String()
}
