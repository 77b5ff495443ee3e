package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// MediaCount classifies one folder's files for the transfer decision.
type MediaCount struct {
	Final       int
	Placeholder int
}

// CountMedia tallies the files in dir belonging to recording id, split into
// finalized media and placeholders. A file belongs to the recording when
// its name starts with the id at a digit boundary, so recording 42 never
// claims the files of 420. Hidden files are transfer leftovers and are
// never counted.
func CountMedia(dir string, id int64, finalExt, placeholderExt string) (MediaCount, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return MediaCount{}, fmt.Errorf("count media %s: %w", dir, err)
	}
	var mc MediaCount
	prefix := strconv.FormatInt(id, 10)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, ".") {
			continue
		}
		if !belongsTo(name, prefix) {
			continue
		}
		switch ext := filepath.Ext(name); {
		case strings.EqualFold(ext, finalExt):
			mc.Final++
		case strings.EqualFold(ext, placeholderExt):
			mc.Placeholder++
		}
	}
	return mc, nil
}

func belongsTo(name, id string) bool {
	rest, ok := strings.CutPrefix(name, id)
	if !ok {
		return false
	}
	return rest == "" || rest[0] < '0' || rest[0] > '9'
}

// NeedTransfer applies the decision gate: fetch only when finalized media
// is still missing and no placeholder signals an unfinished recording
// upstream. metadataOnly runs never transfer.
func NeedTransfer(metadataOnly bool, cameraCount int, mc MediaCount) bool {
	return !metadataOnly && mc.Final < cameraCount && mc.Placeholder < 1
}

// CleanPartials removes interrupted transfer leftovers from dir and reports
// how many were removed. The transfer tool stages into hidden files named
// ".<original>.<six random chars>", which stay behind when it is killed.
func CleanPartials(dir string, exts ...string) (int, error) {
	re, err := partialPattern(exts...)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("clean partials %s: %w", dir, err)
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !re.MatchString(e.Name()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			return removed, fmt.Errorf("clean partials: %w", err)
		}
		removed++
	}
	return removed, nil
}

func partialPattern(exts ...string) (*regexp.Regexp, error) {
	if len(exts) == 0 {
		return nil, fmt.Errorf("clean partials: no extensions")
	}
	quoted := make([]string, 0, len(exts))
	for _, ext := range exts {
		quoted = append(quoted, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
	}
	return regexp.Compile(`(?i)^\..+\.(?:` + strings.Join(quoted, "|") + `)\.[0-9A-Za-z]{6}$`)
}
