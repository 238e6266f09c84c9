package report

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/railsight/atpdecode/internal/record"
	"github.com/railsight/atpdecode/internal/ru"
)

// sha256Fixture is a syntactically valid (but not actually computed)
// 64-character SHA-256 hex digest, long enough for FingerprintQR's shape
// check.
var sha256Fixture = strings.Repeat("0123456789abcdef", 4)

func sampleSummary() ru.Summary {
	return ru.Summary{
		FramesDecoded:        10,
		ResyncsPerformed:     1,
		BytesSkippedOnResync: 1,
		TelegramsReassembled: 2,
		EvictedIncomplete:    1,
		ErrorsByKind:         map[string]int{"*bytes.Truncated": 1},
	}
}

func sampleEvents() []record.Event {
	return []record.Event{
		{Record: record.MMIStatus{}, Offset: 0},
		{Err: &record.UnknownPacketType{Type: 200, Offset: 16}, Offset: 16},
	}
}

func TestNewSessionReportCountsFindings(t *testing.T) {
	rep := NewSessionReport("input.bin", "DEADBEEF", sampleSummary(), sampleEvents())
	if rep.Frames != 10 || rep.Telegrams != 2 || rep.Evictions != 1 {
		t.Fatalf("unexpected counters: %+v", rep)
	}
	if len(rep.Findings) != 1 {
		t.Fatalf("len(Findings) = %d, want 1 (only error events count)", len(rep.Findings))
	}
	if rep.Findings[0].Offset != 16 {
		t.Fatalf("Findings[0].Offset = %d, want 16", rep.Findings[0].Offset)
	}
}

func TestSaveAndLoadSessionJSONRoundTrips(t *testing.T) {
	rep := NewSessionReport("input.bin", "DEADBEEF", sampleSummary(), sampleEvents())
	path := filepath.Join(t.TempDir(), "report.json")
	if err := SaveSessionJSON(rep, path); err != nil {
		t.Fatalf("SaveSessionJSON returned error: %v", err)
	}
	got, err := LoadSessionJSON(path)
	if err != nil {
		t.Fatalf("LoadSessionJSON returned error: %v", err)
	}
	if got.Frames != rep.Frames || got.Fingerprint != rep.Fingerprint {
		t.Fatalf("round trip mismatch: got %+v, want %+v", got, rep)
	}
}

func TestSaveSessionPDFWritesFile(t *testing.T) {
	rep := NewSessionReport("input.bin", "DEADBEEF", sampleSummary(), sampleEvents())
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := SaveSessionPDF(rep, path); err != nil {
		t.Fatalf("SaveSessionPDF returned error: %v", err)
	}
}

func TestFingerprintQREncodesNormalizedHash(t *testing.T) {
	png, err := FingerprintQR(sha256Fixture, 64)
	if err != nil {
		t.Fatalf("FingerprintQR returned error: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}
}

func TestFingerprintQRAcceptsColonSeparatedHash(t *testing.T) {
	var pairs []string
	for i := 0; i < len(sha256Fixture); i += 2 {
		pairs = append(pairs, sha256Fixture[i:i+2])
	}
	png, err := FingerprintQR(strings.Join(pairs, ":"), 64)
	if err != nil {
		t.Fatalf("FingerprintQR returned error: %v", err)
	}
	if len(png) == 0 {
		t.Fatal("expected non-empty PNG bytes")
	}
}

func TestFingerprintQRRejectsEmptyHash(t *testing.T) {
	if _, err := FingerprintQR("   ", 64); err == nil {
		t.Fatal("expected an error for an empty fingerprint")
	}
}

func TestFingerprintQRRejectsWrongLength(t *testing.T) {
	if _, err := FingerprintQR(sha256Fixture[:32], 64); err == nil {
		t.Fatal("expected an error for a truncated fingerprint")
	}
}

func TestFingerprintQRRejectsNonHexCharacters(t *testing.T) {
	bad := "g" + sha256Fixture[1:]
	if _, err := FingerprintQR(bad, 64); err == nil {
		t.Fatal("expected an error for a non-hex character")
	}
}
