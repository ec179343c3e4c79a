package logfields

import (
	"log/slog"
	"testing"
)

// TestHelperKeyNames verifies string-based helper key/value stability.
func TestHelperKeyNames(t *testing.T) {
	cases := []struct {
		name    string
		attrKey string
		attrVal string
		attr    slog.Attr
	}{
		{"RunID", KeyRunID, "0b7c", RunID("0b7c")},
		{"Task", KeyTask, "style", Task("style")},
		{"Path", KeyPath, "/tmp/x", Path("/tmp/x")},
		{"Glob", KeyGlob, "*.html", Glob("*.html")},
		{"Dest", KeyDest, "temp", Dest("temp")},
		{"Transform", KeyTransform, "sass", Transform("sass")},
		{"Method", KeyMethod, "GET", Method("GET")},
		{"UserAgent", KeyUserAgent, "ua", UserAgent("ua")},
		{"RemoteAddr", KeyRemoteAddr, "1.2.3.4", RemoteAddr("1.2.3.4")},
	}

	for _, tc := range cases {
		if tc.attr.Key != tc.attrKey {
			// Key drift would break log ingestion schemas.
			t.Fatalf("%s: expected key %s, got %s", tc.name, tc.attrKey, tc.attr.Key)
		}
		if got := tc.attr.Value.String(); got != tc.attrVal {
			t.Fatalf("%s: expected value %s, got %v", tc.name, tc.attrVal, got)
		}
	}
}

// TestNumericHelpers verifies keys for numeric & float helpers.
func TestNumericHelpers(t *testing.T) {
	if v := Status(200); v.Key != KeyStatus {
		t.Fatalf("Status key mismatch: %s", v.Key)
	}
	if v := Files(3); v.Key != KeyFiles || v.Value.Int64() != 3 {
		t.Fatalf("Files mismatch: %v", v)
	}
	if v := Port(2080); v.Key != KeyPort {
		t.Fatalf("Port key mismatch: %s", v.Key)
	}
	if v := DurationMS(12.5); v.Key != KeyDurationMS {
		t.Fatalf("DurationMS key mismatch: %s", v.Key)
	}
}

// TestErrorHelper ensures Error() handles nil and non-nil errors predictably.
func TestErrorHelper(t *testing.T) {
	attr := Error(nil)
	if attr.Key != KeyError {
		t.Fatalf("Error key mismatch: %s", attr.Key)
	}
	if attr.Value.String() != "" {
		t.Fatalf("Expected empty error string, got %s", attr.Value.String())
	}
	attr = Error(errTest{})
	if attr.Value.String() != "err-test" {
		t.Fatalf("Expected 'err-test', got %s", attr.Value.String())
	}
}

type errTest struct{}

func (e errTest) Error() string { return "err-test" }
