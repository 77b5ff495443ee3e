// Package directory fetches the recording and user catalogs from a site's
// appliance API.
package directory

import "time"

// UnknownTeam buckets recordings whose author cannot be resolved.
const UnknownTeam = "Unknown"

// Recording is one recording session as reported by the appliance.
type Recording struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	CreatedAt   int64  `json:"createdAt"`
	AuthorID    int64  `json:"authorId"`
	CameraCount int    `json:"cameraCount"`
}

// User maps an author id to a display name and a team.
type User struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Team string `json:"team"`
}

// Snapshot is one atomic fetch of a site's directory: every recording plus
// the users needed to resolve teams, taken from the same session.
type Snapshot struct {
	Recordings []Recording
	Users      map[int64]User
	FetchedAt  time.Time
}

// TeamFor resolves the team of an author id. The second return is false
// when the author is missing or has no team, in which case the recording
// files under UnknownTeam.
func (s *Snapshot) TeamFor(authorID int64) (string, bool) {
	u, ok := s.Users[authorID]
	if !ok || u.Team == "" {
		return UnknownTeam, false
	}
	return u.Team, true
}
