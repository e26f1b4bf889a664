package xlog

import "testing"

func TestLevelString(t *testing.T) {
	tests := []struct {
		level    Level
		expected string
	}{
		{Debug, "debug"},
		{Info, "info"},
		{Warn, "warn"},
		{Error, "error"},
		{Level(99), "unknown"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			if got := tc.level.String(); got != tc.expected {
				t.Errorf("String() = %q, want %q", got, tc.expected)
			}
		})
	}
}

type recordingLogger struct {
	entries []Entry
}

func (r *recordingLogger) Log(e Entry)        { r.entries = append(r.entries, e) }
func (r *recordingLogger) Enabled(Level) bool { return true }

func TestInfofRecordsEntry(t *testing.T) {
	r := &recordingLogger{}
	Infof(r, "testcomp", "hello", Fields{"k": "v"})

	if len(r.entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(r.entries))
	}
	e := r.entries[0]
	if e.Level != Info || e.Component != "testcomp" || e.Message != "hello" {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.Fields["k"] != "v" {
		t.Errorf("unexpected fields: %+v", e.Fields)
	}
}

func TestNoOpDiscardsEverything(t *testing.T) {
	n := NoOp()
	if n.Enabled(Error) {
		t.Error("NoOp should report every level disabled")
	}
	Errorf(n, "testcomp", "should not panic", nil, nil)
}

func TestSetDefaultRejectsNil(t *testing.T) {
	original := Default()
	defer SetDefault(original)

	SetDefault(nil)
	if Default().Enabled(Debug) {
		t.Error("SetDefault(nil) should install a NoOp logger")
	}
}
