package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const transcriptPrefix = "run-"

// Transcript is a per-run log file receiving a copy of every log event.
// Events land in the file as JSON lines regardless of the console format.
type Transcript struct {
	Path string
	f    *os.File
}

// StartTranscript opens a transcript file named after the run's start time
// and rewires the global logger to tee into it. Callers must Close the
// transcript when the run ends.
func StartTranscript(dir, format string, start time.Time) (*Transcript, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	name := transcriptPrefix + start.UTC().Format("20060102-150405") + ".log"
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	log.Logger = log.Output(zerolog.MultiLevelWriter(baseWriter(format), f))
	return &Transcript{Path: path, f: f}, nil
}

// Close flushes and closes the transcript file. The global logger keeps
// working; writes to the closed file are silently dropped by zerolog.
func (t *Transcript) Close() error {
	return t.f.Close()
}

// Rotate compresses transcripts beyond the keep newest and prunes compressed
// ones beyond the same count. keep < 1 disables rotation.
func Rotate(dir string, keep int) error {
	if keep < 1 {
		return nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read transcript dir: %w", err)
	}

	var plain, packed []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, transcriptPrefix) {
			continue
		}
		switch {
		case strings.HasSuffix(name, ".log"):
			plain = append(plain, name)
		case strings.HasSuffix(name, ".log.gz"):
			packed = append(packed, name)
		}
	}
	// Timestamps in the names make lexical order chronological.
	sort.Sort(sort.Reverse(sort.StringSlice(plain)))
	sort.Sort(sort.Reverse(sort.StringSlice(packed)))

	for i := keep; i < len(plain); i++ {
		if err := compressTranscript(filepath.Join(dir, plain[i])); err != nil {
			return err
		}
	}
	for i := keep; i < len(packed); i++ {
		if err := os.Remove(filepath.Join(dir, packed[i])); err != nil {
			return fmt.Errorf("prune transcript: %w", err)
		}
	}
	return nil
}

func compressTranscript(path string) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("compress transcript: %w", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(path+".gz", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("compress transcript: %w", err)
	}
	gw := gzip.NewWriter(dst)
	if _, err := io.Copy(gw, src); err != nil {
		dst.Close()
		return fmt.Errorf("compress transcript %s: %w", filepath.Base(path), err)
	}
	if err := gw.Close(); err != nil {
		dst.Close()
		return fmt.Errorf("compress transcript %s: %w", filepath.Base(path), err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("compress transcript %s: %w", filepath.Base(path), err)
	}
	return os.Remove(path)
}
