package shdr

import (
	"errors"
	"testing"
	"time"
)

func fixedNow() time.Time {
	return time.Date(2021, 3, 1, 8, 30, 0, 0, time.UTC)
}

func TestExtractTimestampConsumesLeadingToken(t *testing.T) {
	ts, err := ExtractTimestamp([]string{"2021-01-19T12:00:00.12345Z", "hello"}, fixedNow)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ts.Tokens) != 1 || ts.Tokens[0] != "hello" {
		t.Fatalf("unexpected remaining tokens: %q", ts.Tokens)
	}
	want := time.Date(2021, 1, 19, 12, 0, 0, 123450000, time.UTC)
	if !ts.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %s, want %s", ts.Timestamp.Format(time.RFC3339Nano), want.Format(time.RFC3339Nano))
	}
	if ts.Duration != nil {
		t.Fatalf("expected no duration, got %v", *ts.Duration)
	}
}

func TestExtractTimestampDurationSuffix(t *testing.T) {
	ts, err := ExtractTimestamp([]string{"2021-01-19T12:00:00.123Z@1.5", "hello"}, fixedNow)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	want := time.Date(2021, 1, 19, 12, 0, 0, 123000000, time.UTC)
	if !ts.Timestamp.Equal(want) {
		t.Fatalf("timestamp = %s, want %s", ts.Timestamp, want)
	}
	if ts.Duration == nil || *ts.Duration != 1.5 {
		t.Fatalf("expected duration 1.5, got %v", ts.Duration)
	}
}

func TestExtractTimestampAbsentFallsBackToWallClock(t *testing.T) {
	tokens := []string{"hello", "world"}
	ts, err := ExtractTimestamp(tokens, fixedNow)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if len(ts.Tokens) != 2 {
		t.Fatalf("stream should be untouched, got %q", ts.Tokens)
	}
	if !ts.Timestamp.Equal(fixedNow()) {
		t.Fatalf("expected ingest wall clock, got %s", ts.Timestamp)
	}
}

func TestExtractTimestampMalformed(t *testing.T) {
	cases := []string{
		"2021-13-45T99:00:00Z",
		"2021-01-19T12:00:00Z@oops",
	}
	for _, first := range cases {
		if _, err := ExtractTimestamp([]string{first, "x"}, fixedNow); !errors.Is(err, ErrBadTimestamp) {
			t.Fatalf("ExtractTimestamp(%q) err = %v, want ErrBadTimestamp", first, err)
		}
	}
}
