package report

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func sealed() *Report {
	r := New("run-1", time.Date(2026, 4, 2, 1, 0, 0, 0, time.UTC))
	r.Sites = 2
	r.Recordings = 5
	r.Transfers = 3
	r.Finish(OutcomeCompleted, time.Date(2026, 4, 2, 1, 12, 30, 0, time.UTC))
	return r
}

func TestFailed(t *testing.T) {
	r := sealed()
	if r.Failed() {
		t.Fatal("clean report must not fail")
	}
	r.AddError("hq", 42, "transfer", errors.New("connection refused"))
	if !r.Failed() {
		t.Fatal("report with errors must fail")
	}
}

func TestSummary(t *testing.T) {
	r := sealed()
	r.AddError("hq", 42, "transfer", errors.New("connection refused"))
	r.Warnf("unknown author %d", 99)

	out := r.Summary()
	for _, want := range []string{"run-1", "completed", "2026-04-02T01:00:00Z", "2026-04-02T01:12:30Z", "12m30s", "hq/42 transfer: connection refused", "unknown author 99"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports", "last.json")
	r := sealed()
	if err := r.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var back Report
	if err := json.Unmarshal(body, &back); err != nil {
		t.Fatalf("parse report: %v", err)
	}
	if back.RunID != "run-1" || back.Outcome != OutcomeCompleted || back.Transfers != 3 {
		t.Errorf("round trip lost fields: %+v", back)
	}
}
