package ical

import (
	"strings"
	"testing"
)

const twoEventDoc = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Test//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:u1\r\n" +
	"DTSTART:20250601T090000Z\r\n" +
	"DTEND:20250601T100000Z\r\n" +
	"SUMMARY:First\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:u2\r\n" +
	"DTSTART;TZID=America/New_York:20250601T120000\r\n" +
	"SUMMARY:Second\r\n" +
	" continues onto the next line\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestSplitExtractsEvents(t *testing.T) {
	events, _, warnings := Split([]byte(twoEventDoc))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].UID != "u1" {
		t.Errorf("expected UID u1, got %q", events[0].UID)
	}
	if events[0].DTStart == nil || events[0].DTStart.Time.IsZero() {
		t.Fatalf("expected parsed DTSTART for u1")
	}
	if events[1].UID != "u2" {
		t.Errorf("expected UID u2, got %q", events[1].UID)
	}
	if !strings.Contains(string(events[1].RawBody), "continues onto the next line") {
		t.Errorf("expected RawBody to retain folded continuation line verbatim")
	}
}

func TestSplitUnfoldsBeforeReadingProperties(t *testing.T) {
	doc := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:u1\r\n" +
		"SUMMARY:A very long summary that has been\r\n" +
		" folded across two physical lines\r\n" +
		"DTSTART:20250601T090000Z\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	events, _, _ := Split([]byte(doc))
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	if events[0].DTStart == nil {
		t.Fatalf("expected DTSTART to be read despite preceding folded property")
	}
}

func TestSplitSkipsEventWithoutUID(t *testing.T) {
	doc := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"DTSTART:20250601T090000Z\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	events, _, warnings := Split([]byte(doc))
	if len(events) != 0 {
		t.Fatalf("expected event without UID to be skipped, got %d events", len(events))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one warning, got %d", len(warnings))
	}
}

func TestSplitAcceptsBareLF(t *testing.T) {
	doc := "BEGIN:VCALENDAR\nBEGIN:VEVENT\nUID:u1\nDTSTART:20250601T090000Z\nEND:VEVENT\nEND:VCALENDAR\n"
	events, _, warnings := Split([]byte(doc))
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(events) != 1 || events[0].UID != "u1" {
		t.Fatalf("expected one event u1, got %+v", events)
	}
}

func TestBuildCalendarEmitsFixedEnvelope(t *testing.T) {
	events, _, _ := Split([]byte(twoEventDoc))
	out := BuildCalendar(events)
	s := string(out)
	if !strings.HasPrefix(s, "BEGIN:VCALENDAR\r\nVERSION:2.0\r\n") {
		t.Fatalf("expected fixed envelope prefix, got: %s", s[:40])
	}
	if !strings.HasSuffix(s, "END:VCALENDAR\r\n") {
		t.Fatalf("expected trailing END:VCALENDAR")
	}
	if strings.Count(s, "BEGIN:VEVENT") != 2 {
		t.Fatalf("expected both events verbatim in output")
	}
}

func TestParseTimestampAllDay(t *testing.T) {
	ts, ok := ParseTimestamp("20250601")
	if !ok {
		t.Fatal("expected all-day date to parse")
	}
	if !ts.AllDay || !ts.Floating {
		t.Errorf("expected AllDay and Floating to be set")
	}
}

func TestParseTimestampUnrecognized(t *testing.T) {
	ts, ok := ParseTimestamp("not-a-date")
	if ok {
		t.Fatal("expected unrecognized format to fail parsing")
	}
	if ts.Before(ts.Time) {
		t.Errorf("unparsed timestamp must never report Before")
	}
}
