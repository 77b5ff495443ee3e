package reconcile

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/kism/backup-ivs/internal/directory"
	"github.com/kism/backup-ivs/internal/naming"
)

// Reconciler settles recording folders inside team-year buckets.
type Reconciler struct {
	folders Lister
}

// New returns a Reconciler scanning through l, defaulting to the real
// filesystem.
func New(l Lister) *Reconciler {
	if l == nil {
		l = OSLister{}
	}
	return &Reconciler{folders: l}
}

// Result describes how one recording's folder was settled.
type Result struct {
	// Path is the canonical folder, empty when the recording was skipped.
	Path string
	// Created is set when the canonical folder was made this pass.
	Created bool
	// Skipped is set when a legacy folder already covers the recording.
	Skipped bool
	// Legacy names the covering legacy folder when Skipped.
	Legacy string
	// RenamedFrom is the folder's previous name when a rename happened.
	RenamedFrom string
	// Duplicates lists additional folders carrying the same id, left in
	// place when the most recently modified one won.
	Duplicates []string
}

// EnsureHierarchy creates the site/team/year bucket for a recording and
// returns it. Callers treat failure here as fatal for the whole site since
// every later recording would hit the same broken tree.
func EnsureHierarchy(home, team, year string) (string, error) {
	dir := filepath.Join(home, team, year)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create hierarchy %s: %w", dir, err)
	}
	return dir, nil
}

// Reconcile settles the folder for rec inside bucket. A legacy folder skips
// the recording. A folder carrying the recording's id under an outdated
// name is renamed to the canonical one. When several folders carry the same
// id, the most recently modified wins and the others are only reported.
func (r *Reconciler) Reconcile(bucket string, rec directory.Recording) (Result, error) {
	folders, err := r.folders.ListFolders(bucket)
	if err != nil {
		return Result{}, err
	}

	if legacy, ok := findLegacy(folders, rec); ok {
		return Result{Skipped: true, Legacy: legacy.Name}, nil
	}

	canonical := naming.CanonicalFolderName(rec.CreatedAt, rec.ID, rec.Name)
	path := filepath.Join(bucket, canonical)

	owned := ownedFolders(folders, rec.ID)
	switch len(owned) {
	case 0:
		if err := os.MkdirAll(path, 0o755); err != nil {
			return Result{}, fmt.Errorf("create folder %s: %w", path, err)
		}
		return Result{Path: path, Created: true}, nil
	case 1:
		return r.rename(bucket, owned[0], canonical)
	default:
		// Duplicate ids violate the one-folder-per-recording invariant.
		// Keep the freshest folder and leave the rest for an operator.
		sort.Slice(owned, func(i, j int) bool { return owned[i].ModTime.After(owned[j].ModTime) })
		dups := make([]string, 0, len(owned)-1)
		for _, loser := range owned[1:] {
			dups = append(dups, loser.Name)
			log.Warn().
				Int64("recording", rec.ID).
				Str("folder", loser.Name).
				Str("kept", owned[0].Name).
				Msg("duplicate folder for recording id left in place")
		}
		res, err := r.rename(bucket, owned[0], canonical)
		if err != nil {
			return res, err
		}
		res.Duplicates = dups
		return res, nil
	}
}

func (r *Reconciler) rename(bucket string, f FolderInfo, canonical string) (Result, error) {
	path := filepath.Join(bucket, canonical)
	if f.Name == canonical {
		return Result{Path: path}, nil
	}
	if err := os.Rename(filepath.Join(bucket, f.Name), path); err != nil {
		return Result{}, fmt.Errorf("rename folder %q to %q: %w", f.Name, canonical, err)
	}
	log.Info().Str("from", f.Name).Str("to", canonical).Msg("folder renamed to match directory")
	return Result{Path: path, RenamedFrom: f.Name}, nil
}

// ownedFolders filters folders whose parsed numeric token is id.
func ownedFolders(folders []FolderInfo, id int64) []FolderInfo {
	var out []FolderInfo
	for _, f := range folders {
		if fn, ok := naming.ParseFolderName(f.Name); ok && fn.Token == id {
			out = append(out, f)
		}
	}
	return out
}
