package record

import (
	"encoding/json"
	"strings"
	"time"
)

// TimestampLayout is the calendar format the producer stamps on every
// record: "2025-01-29 14:35:20".
const TimestampLayout = "2006-01-02 15:04:05"

// Record is one line of the live data file. The producer attaches more
// fields (message, author, category, sentiment, message_length); only
// the two below matter here, the rest are ignored rather than rejected.
type Record struct {
	Timestamp string `json:"timestamp"`
	Keyword   string `json:"keyword_mentioned"`
}

// Key addresses one aggregate counter: a keyword observed during a given
// hour of the day.
type Key struct {
	Hour    int // 0-23
	Keyword string
}

// SkipReason explains why a line produced no Key. Anything other than
// SkipNone is terminal for that line: the caller logs it and moves on.
type SkipReason int

const (
	// SkipNone means the line parsed and the Key is usable.
	SkipNone SkipReason = iota
	// SkipBlank marks a line that is empty after trimming whitespace.
	SkipBlank
	// SkipBadJSON marks a line that is not a valid JSON object.
	SkipBadJSON
	// SkipMissingFields marks a record lacking timestamp or keyword.
	SkipMissingFields
	// SkipBadTimestamp marks a timestamp not matching TimestampLayout.
	SkipBadTimestamp
)

func (r SkipReason) String() string {
	switch r {
	case SkipNone:
		return "none"
	case SkipBlank:
		return "blank line"
	case SkipBadJSON:
		return "invalid json"
	case SkipMissingFields:
		return "missing timestamp or keyword"
	case SkipBadTimestamp:
		return "unparseable timestamp"
	default:
		return "unknown"
	}
}

// ParseLine turns one raw line into an aggregation Key, or reports why
// the line must be skipped. The hour comes from the parsed timestamp, so
// it is always in [0,23]; the keyword is guaranteed non-empty. Inputs
// that would violate the store's constraints never get past this point.
func ParseLine(line string) (Key, SkipReason) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Key{}, SkipBlank
	}

	var rec Record
	if err := json.Unmarshal([]byte(trimmed), &rec); err != nil {
		return Key{}, SkipBadJSON
	}
	if rec.Timestamp == "" || rec.Keyword == "" {
		return Key{}, SkipMissingFields
	}

	ts, err := time.Parse(TimestampLayout, rec.Timestamp)
	if err != nil {
		return Key{}, SkipBadTimestamp
	}

	return Key{Hour: ts.Hour(), Keyword: rec.Keyword}, SkipNone
}
