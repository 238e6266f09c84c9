package format

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/railsight/atpdecode/internal/record"
)

func sampleHeader() record.Header {
	return record.Header{
		PacketType:   1,
		PacketNumber: 1,
		Timestamp:    time.Date(2023, 10, 15, 14, 30, 45, 0, time.UTC),
		Location:     1000,
		Speed:        120,
	}
}

func TestJSONRecordShape(t *testing.T) {
	rec := record.MMIDynamic{
		Hdr: sampleHeader(), VTrain: 120, ATrain: 10, OTrain: 1000, OBrakeTarget: 2000,
		VTarget: 100, TIntervenWar: 30, VPermitted: 130, VRelease: 110, VIntervention: 140,
		MWarning: 0, MSlip: true, MSlide: false, OBcsp: 3000,
	}
	row, err := JSON(record.Event{Record: rec, Offset: 0})
	if err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	b, err := json.Marshal(row)
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	for _, field := range []string{"packet_type", "description", "header", "data"} {
		if _, ok := decoded[field]; !ok {
			t.Fatalf("missing top-level field %q in %s", field, b)
		}
	}
	hdr, ok := decoded["header"].(map[string]interface{})
	if !ok {
		t.Fatalf("header field is not an object: %s", b)
	}
	for _, field := range []string{"packet_number", "timestamp", "location", "speed"} {
		if _, ok := hdr[field]; !ok {
			t.Fatalf("missing header field %q in %s", field, b)
		}
	}
	if decoded["description"] != "MMI_DYNAMIC" {
		t.Fatalf("description = %v, want MMI_DYNAMIC", decoded["description"])
	}
	if hdr["timestamp"] != "2023-10-15T14:30:45" {
		t.Fatalf("timestamp = %v, want 2023-10-15T14:30:45 (no timezone)", hdr["timestamp"])
	}
}

func TestJSONErrorShape(t *testing.T) {
	row, err := JSON(record.Event{Err: &record.UnknownPacketType{Type: 200, Offset: 42}, Offset: 42})
	if err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	b, _ := json.Marshal(row)
	var decoded map[string]interface{}
	json.Unmarshal(b, &decoded)
	if decoded["offset"].(float64) != 42 {
		t.Fatalf("offset = %v, want 42", decoded["offset"])
	}
	if _, ok := decoded["error"]; !ok {
		t.Fatalf("missing error field in %s", b)
	}
}

func TestWriteJSONArray(t *testing.T) {
	events := []record.Event{
		{Record: record.MMIStatus{Hdr: sampleHeader()}, Offset: 0},
		{Err: &record.UnknownPacketType{Type: 5, Offset: 16}, Offset: 16},
	}
	var buf bytes.Buffer
	if err := WriteJSON(&buf, events); err != nil {
		t.Fatalf("WriteJSON returned error: %v", err)
	}
	var rows []map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not a JSON array: %v\n%s", err, buf.String())
	}
	if len(rows) != 2 {
		t.Fatalf("len(rows) = %d, want 2", len(rows))
	}
}

func TestWriteTextIncludesKindAndFields(t *testing.T) {
	events := []record.Event{
		{Record: record.MMIStatus{Hdr: sampleHeader(), MAdhesion: 1, MMode: 2}, Offset: 0},
		{Err: &record.BodyTooShort{Expected: 8, Got: 3}, Offset: 16},
	}
	var buf bytes.Buffer
	if err := WriteText(&buf, events); err != nil {
		t.Fatalf("WriteText returned error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "MMI_STATUS") {
		t.Fatalf("output missing record kind:\n%s", out)
	}
	if !strings.Contains(out, "ERROR") || !strings.Contains(out, "BodyTooShort") {
		t.Fatalf("output missing error line:\n%s", out)
	}
}

func TestTelegramHeaderSynthesizedFromEarliestTimestamp(t *testing.T) {
	ts := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	tg := record.BTMTelegram{Sequence: 7, Timestamp: ts}
	row, err := JSON(record.Event{Record: tg})
	if err != nil {
		t.Fatalf("JSON returned error: %v", err)
	}
	jr, ok := row.(jsonRecord)
	if !ok {
		t.Fatalf("row is %T, want jsonRecord", row)
	}
	if jr.Header.Timestamp != ts.Format(timestampLayout) {
		t.Fatalf("Header.Timestamp = %s, want %s", jr.Header.Timestamp, ts.Format(timestampLayout))
	}
	if jr.Header.PacketNumber != 0 || jr.Header.Location != 0 || jr.Header.Speed != 0 {
		t.Fatalf("synthesized telegram header should leave unsourced fields zero, got %+v", jr.Header)
	}
}
