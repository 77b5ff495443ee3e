package reconcile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kism/backup-ivs/internal/directory"
)

// metadataFile is the exact name of the per-folder metadata document.
const metadataFile = "metadata"

// Metadata is the write-once document dropped next to a recording's media.
// It preserves what the directory reported when the folder was first made,
// surviving later renames and author changes upstream.
type Metadata struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	CreatedAt   int64     `json:"createdAt"`
	AuthorID    int64     `json:"authorId"`
	CameraCount int       `json:"cameraCount"`
	Team        string    `json:"team"`
	FetchedAt   time.Time `json:"fetchedAt"`
}

// NewMetadata snapshots rec with its resolved team and fetch time.
func NewMetadata(rec directory.Recording, team string, fetchedAt time.Time) Metadata {
	return Metadata{
		ID:          rec.ID,
		Name:        rec.Name,
		CreatedAt:   rec.CreatedAt,
		AuthorID:    rec.AuthorID,
		CameraCount: rec.CameraCount,
		Team:        team,
		FetchedAt:   fetchedAt.UTC(),
	}
}

// WriteMetadata writes meta into dir exactly once. An existing document is
// left untouched. The document is staged under a hidden name and renamed
// into place; an interrupted write leaves no partial metadata behind.
func WriteMetadata(dir string, meta Metadata) error {
	path := filepath.Join(dir, metadataFile)
	if _, err := os.Lstat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("write metadata: %w", err)
	}
	tmp := filepath.Join(dir, "."+metadataFile+".tmp")
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the metadata document from dir.
func ReadMetadata(dir string) (Metadata, error) {
	body, err := os.ReadFile(filepath.Join(dir, metadataFile))
	if err != nil {
		return Metadata{}, fmt.Errorf("read metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(body, &meta); err != nil {
		return Metadata{}, fmt.Errorf("parse metadata: %w", err)
	}
	return meta, nil
}
