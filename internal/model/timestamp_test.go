package model

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseNaiveStripsZoneSuffix(t *testing.T) {
	inputs := []string{
		"2025-03-01T10:30:00",
		"2025-03-01T10:30:00Z",
		"2025-03-01T10:30:00+05:00",
		"2025-03-01T10:30:00-0800",
		"2025-03-01 10:30:00",
	}
	for _, input := range inputs {
		parsed, err := ParseNaive(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if parsed.Hour() != 10 || parsed.Minute() != 30 || parsed.Day() != 1 {
			t.Fatalf("parse %q: expected wall clock 10:30 on day 1, got %v", input, parsed)
		}
		if parsed.Location() != time.Local {
			t.Fatalf("parse %q: expected local location", input)
		}
	}
}

func TestParseNaiveKeepsFractionalSeconds(t *testing.T) {
	parsed, err := ParseNaive("2025-03-01T10:30:00.123456+00:00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if parsed.Nanosecond() != 123456000 {
		t.Fatalf("expected microseconds to survive, got %d", parsed.Nanosecond())
	}
}

func TestParseNaiveRejectsGarbage(t *testing.T) {
	if _, err := ParseNaive("tomorrow"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := ParseNaive("  "); err == nil {
		t.Fatalf("expected error for blank input")
	}
}

func TestNaiveTimeScanAndValue(t *testing.T) {
	var n NaiveTime
	if err := n.Scan("2024-12-31T23:59:59+02:00"); err != nil {
		t.Fatalf("scan: %v", err)
	}
	value, err := n.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if value != "2024-12-31T23:59:59" {
		t.Fatalf("expected zone to be dropped, got %v", value)
	}

	utc := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := n.Scan(utc); err != nil {
		t.Fatalf("scan time: %v", err)
	}
	if n.Hour() != 3 || n.Location() != time.Local {
		t.Fatalf("expected wall clock to be kept, got %v", n.Time)
	}

	if err := n.Scan(nil); err != nil {
		t.Fatalf("scan nil: %v", err)
	}
	if value, _ := n.Value(); value != nil {
		t.Fatalf("expected NULL for zero time, got %v", value)
	}
}

func TestNaiveTimeJSON(t *testing.T) {
	payload := struct {
		At NaiveTime `json:"at"`
	}{At: NewNaiveTime(time.Date(2025, 5, 6, 7, 8, 9, 0, time.UTC))}
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"at":"2025-05-06T07:08:09"}` {
		t.Fatalf("unexpected json %s", data)
	}

	var empty struct {
		At NaiveTime `json:"at"`
	}
	if err := json.Unmarshal([]byte(`{"at":null}`), &empty); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !empty.At.IsZero() {
		t.Fatalf("expected zero time")
	}
}
