package vox

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// HistoryService retrieves previously used prompt/instruction pairs.
type HistoryService struct {
	client *Client
}

// HistoryEntry is one previously used prompt/instruction pair. Entries are
// immutable once fetched; ordering is whatever the server returned.
type HistoryEntry struct {
	ID           string       `json:"_id"`
	Prompt       string       `json:"prompt"`
	Instructions string       `json:"instructions"`
	CreatedAt    FlexibleTime `json:"created_at"`
}

type historyResponse struct {
	History []HistoryEntry `json:"history"`
}

// Fetch returns up to limit history entries, newest first as served by the
// backend. Any failure resolves to an empty list with a warning log; the
// settings panel must render regardless of history availability.
func (s *HistoryService) Fetch(ctx context.Context, limit int) []HistoryEntry {
	if limit <= 0 {
		limit = 5
	}
	var resp historyResponse
	path := tokenPath + "?limit=" + strconv.Itoa(limit)
	if err := s.client.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		s.client.logger.Warn("failed to fetch prompt history", "error", err)
		return []HistoryEntry{}
	}
	if resp.History == nil {
		return []HistoryEntry{}
	}
	return resp.History
}

// FlexibleTime decodes the several created_at encodings the backend has
// produced over time: a {"$numberLong": "<millis>"} wrapper, an ISO-8601
// string, or a raw Unix-seconds number. Unparseable values are retained as
// invalid rather than failing the whole history decode.
type FlexibleTime struct {
	t     time.Time
	valid bool
}

// Time returns the decoded time. Only meaningful when Valid reports true.
func (f FlexibleTime) Time() time.Time { return f.t }

// Valid reports whether the timestamp decoded to a real calendar date.
func (f FlexibleTime) Valid() bool { return f.valid }

// Format renders the timestamp for display. Invalid values render as the
// literal "Invalid Date".
func (f FlexibleTime) Format() string {
	if !f.valid {
		return "Invalid Date"
	}
	return f.t.Local().Format("2006-01-02 15:04")
}

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleTime) UnmarshalJSON(data []byte) error {
	f.t, f.valid = time.Time{}, false

	// {"$numberLong": "<millis>"} wrapper.
	var wrapped struct {
		NumberLong string `json:"$numberLong"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.NumberLong != "" {
		millis, err := strconv.ParseInt(wrapped.NumberLong, 10, 64)
		if err != nil {
			return nil
		}
		f.t, f.valid = time.UnixMilli(millis), true
		return nil
	}

	// ISO-8601 string.
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, s); err == nil {
				f.t, f.valid = parsed, true
				return nil
			}
		}
		return nil
	}

	// Raw Unix seconds.
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		if sec, err := n.Int64(); err == nil {
			f.t, f.valid = time.Unix(sec, 0), true
			return nil
		}
		if sec, err := n.Float64(); err == nil {
			f.t, f.valid = time.Unix(int64(sec), 0), true
			return nil
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler. Valid values round-trip as ISO-8601.
func (f FlexibleTime) MarshalJSON() ([]byte, error) {
	if !f.valid {
		return []byte("null"), nil
	}
	return []byte(fmt.Sprintf("%q", f.t.Format(time.RFC3339))), nil
}
