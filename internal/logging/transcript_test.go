package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
)

func TestStartTranscriptTeesEvents(t *testing.T) {
	dir := t.TempDir()
	tr, err := StartTranscript(dir, "json", time.Date(2026, 3, 1, 4, 30, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("StartTranscript: %v", err)
	}
	log.Info().Str("site", "hq").Msg("run started")
	if err := tr.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if filepath.Base(tr.Path) != "run-20260301-043000.log" {
		t.Errorf("transcript name = %s", filepath.Base(tr.Path))
	}
	body, err := os.ReadFile(tr.Path)
	if err != nil {
		t.Fatalf("read transcript: %v", err)
	}
	if !strings.Contains(string(body), `"run started"`) {
		t.Errorf("transcript missing event: %s", body)
	}
}

func TestRotate(t *testing.T) {
	dir := t.TempDir()
	names := []string{
		"run-20260101-000000.log",
		"run-20260102-000000.log",
		"run-20260103-000000.log",
		"run-20260104-000000.log",
	}
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("line\n"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", n, err)
		}
	}
	for _, n := range []string{"run-20251201-000000.log.gz", "run-20251202-000000.log.gz", "run-20251203-000000.log.gz"} {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("gz"), 0o644); err != nil {
			t.Fatalf("seed %s: %v", n, err)
		}
	}

	if err := Rotate(dir, 2); err != nil {
		t.Fatalf("Rotate: %v", err)
	}

	for _, n := range names[2:] {
		if _, err := os.Stat(filepath.Join(dir, n)); err != nil {
			t.Errorf("newest transcript %s should survive: %v", n, err)
		}
	}
	for _, n := range names[:2] {
		if _, err := os.Stat(filepath.Join(dir, n)); !os.IsNotExist(err) {
			t.Errorf("old transcript %s should be compressed away", n)
		}
		if _, err := os.Stat(filepath.Join(dir, n+".gz")); err != nil {
			t.Errorf("missing archive for %s: %v", n, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "run-20251201-000000.log.gz")); !os.IsNotExist(err) {
		t.Error("oldest archive should be pruned")
	}
}

func TestRotateMissingDir(t *testing.T) {
	if err := Rotate(filepath.Join(t.TempDir(), "absent"), 3); err != nil {
		t.Fatalf("Rotate on missing dir: %v", err)
	}
}
