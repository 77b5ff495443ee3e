// Package reconcile settles the local folder tree against a site's
// directory snapshot: one folder per recording, named canonically, with a
// write-once metadata document inside.
package reconcile

import (
	"fmt"
	"os"
	"time"
)

// FolderInfo is one recording folder inside a team-year bucket.
type FolderInfo struct {
	Name    string
	ModTime time.Time
}

// Lister enumerates the folders of a bucket. Implementations treat a
// missing bucket as empty so first runs need no pre-created tree.
type Lister interface {
	ListFolders(dir string) ([]FolderInfo, error)
}

// OSLister lists folders straight from the filesystem.
type OSLister struct{}

func (OSLister) ListFolders(dir string) ([]FolderInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list folders %s: %w", dir, err)
	}
	out := make([]FolderInfo, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// Entry vanished between readdir and stat.
			continue
		}
		out = append(out, FolderInfo{Name: e.Name(), ModTime: info.ModTime()})
	}
	return out, nil
}
