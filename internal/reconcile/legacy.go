package reconcile

import (
	"github.com/kism/backup-ivs/internal/directory"
	"github.com/kism/backup-ivs/internal/naming"
)

// IsLegacy reports whether name is a pre-scheme folder covering rec: the
// creation date and sanitized title match but the numeric token is not the
// recording's id. Such folders were written by earlier tooling and are left
// exactly as found.
func IsLegacy(name string, rec directory.Recording) bool {
	fn, ok := naming.ParseFolderName(name)
	if !ok {
		return false
	}
	return fn.Token != rec.ID &&
		fn.Date == naming.ISODate(rec.CreatedAt) &&
		fn.Title == naming.Sanitize(rec.Name)
}

// findLegacy returns the first legacy folder covering rec.
func findLegacy(folders []FolderInfo, rec directory.Recording) (FolderInfo, bool) {
	for _, f := range folders {
		if IsLegacy(f.Name, rec) {
			return f, true
		}
	}
	return FolderInfo{}, false
}
