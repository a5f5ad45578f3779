package benchmark

import (
	"encoding/json"
	"fmt"
	"time"
)

// Timestamp is a time that reads both RFC 3339 values and the zone-less ISO
// 8601 form ("2025-01-02T15:04:05.123456") found in older results files.
// Zone-less values are taken as local time.
type Timestamp struct {
	time.Time
}

const isoLocalLayout = "2006-01-02T15:04:05.999999999"

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t}
}

func (t Timestamp) String() string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339Nano)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// MarshalYAML renders the same string as MarshalJSON.
func (t Timestamp) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

// ParseTimestamp parses s as RFC 3339 or zone-less ISO 8601. The empty string
// yields the zero Timestamp.
func ParseTimestamp(s string) (Timestamp, error) {
	if s == "" {
		return Timestamp{}, nil
	}
	if tm, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return Timestamp{Time: tm}, nil
	}
	tm, err := time.ParseInLocation(isoLocalLayout, s, time.Local)
	if err != nil {
		return Timestamp{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return Timestamp{Time: tm}, nil
}
