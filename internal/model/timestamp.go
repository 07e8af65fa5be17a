package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// NaiveLayout is the on-disk format for every persisted timestamp.
const NaiveLayout = "2006-01-02T15:04:05.999999"

var zoneSuffix = regexp.MustCompile(`([+-]\d{2}:?\d{2}|Z)$`)

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// NaiveTime is a wall-clock timestamp without zone information. Zone suffixes
// are dropped on read, never converted, so the stored wall clock is what the
// application sees in local time.
type NaiveTime struct {
	time.Time
}

// NewNaiveTime keeps the wall clock of t and discards its location.
func NewNaiveTime(t time.Time) NaiveTime {
	if t.IsZero() {
		return NaiveTime{}
	}
	return NaiveTime{Time: stripZone(t)}
}

// ParseNaive parses an ISO-8601 timestamp, ignoring any offset suffix.
func ParseNaive(value string) (time.Time, error) {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	cleaned = zoneSuffix.ReplaceAllString(cleaned, "")
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, cleaned, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("parse timestamp %q", value)
}

func stripZone(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.Local)
}

func (n NaiveTime) String() string {
	if n.IsZero() {
		return ""
	}
	return n.Time.Format(NaiveLayout)
}

// Value implements driver.Valuer.
func (n NaiveTime) Value() (driver.Value, error) {
	if n.IsZero() {
		return nil, nil
	}
	return n.Time.Format(NaiveLayout), nil
}

// Scan implements sql.Scanner.
func (n *NaiveTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		n.Time = time.Time{}
		return nil
	case time.Time:
		n.Time = stripZone(v)
		return nil
	case string:
		return n.scanString(v)
	case []byte:
		return n.scanString(string(v))
	default:
		return fmt.Errorf("scan naive time: unsupported type %T", src)
	}
}

func (n *NaiveTime) scanString(v string) error {
	if strings.TrimSpace(v) == "" {
		n.Time = time.Time{}
		return nil
	}
	parsed, err := ParseNaive(v)
	if err != nil {
		return err
	}
	n.Time = parsed
	return nil
}

// GormDataType stores naive timestamps as text in every dialect.
func (NaiveTime) GormDataType() string {
	return "text"
}

func (n NaiveTime) MarshalJSON() ([]byte, error) {
	if n.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.Format(NaiveLayout))
}

func (n *NaiveTime) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		n.Time = time.Time{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return n.scanString(raw)
}
