// Package naming produces the canonical on-disk names for recording folders.
package naming

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// fallbackTitle is used when a recording name sanitizes to nothing; folder
// names must never end in a bare separator.
const fallbackTitle = "untitled"

// Sanitize replaces every character that is illegal in a file path with "-".
// The result is trimmed of surrounding whitespace. Sanitize is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return fallbackTitle
	}
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			b.WriteByte('-')
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return fallbackTitle
	}
	return out
}

// ISODate converts Unix epoch seconds to a YYYY-MM-DD date in UTC.
func ISODate(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006-01-02")
}

// YearBucket converts Unix epoch seconds to the YYYY directory element, UTC.
func YearBucket(epoch int64) string {
	return time.Unix(epoch, 0).UTC().Format("2006")
}

// CanonicalFolderName builds the authoritative folder name for a recording:
// "<isoDate> <id> <sanitized name>". Ids are unique per site, so the result
// is unique within a team/year bucket.
func CanonicalFolderName(createdAt, id int64, name string) string {
	return fmt.Sprintf("%s %d %s", ISODate(createdAt), id, Sanitize(name))
}

// folderPattern matches both the canonical scheme and the deprecated one:
// an ISO date, a numeric token, and a title, space separated.
var folderPattern = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}) (\d+) (.+)$`)

// FolderName is a recording folder name split into its components.
type FolderName struct {
	Date  string
	Token int64
	Title string
}

// ParseFolderName splits a directory name into date, numeric token, and
// title. It reports false for names that do not follow the
// date-token-title shape, including tokens too large for int64.
func ParseFolderName(name string) (FolderName, bool) {
	m := folderPattern.FindStringSubmatch(name)
	if m == nil {
		return FolderName{}, false
	}
	token, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return FolderName{}, false
	}
	return FolderName{Date: m[1], Token: token, Title: m[3]}, true
}
