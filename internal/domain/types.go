package domain

import "time"

// Session is one club outing: who rode, where, when, and the media shot
// along the way. CoverKey and the MediaRef storage keys hold canonical
// object-store locations; presentation always goes through signed URLs.
type Session struct {
	ID        int64
	Name      string
	Location  string
	People    string
	Date      time.Time
	CoverKey  *string
	MapEmbed  *string
	Version   int64
	Media     []MediaRef
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaRef is one entry in a session's ordered content list. Each reference
// carries its own surrogate ID so callers delete by identity, never by
// position in the list.
type MediaRef struct {
	ID         int64
	SessionID  int64
	StorageKey string
	Position   int
	CreatedAt  time.Time
}

// SessionPatch holds partial field updates. Nil pointers mean "leave alone".
// The content media list is deliberately absent: appends and replacements are
// separate operations on the service.
type SessionPatch struct {
	Name     *string
	Location *string
	People   *string
	Date     *time.Time
	MapEmbed *string
}

// Empty reports whether the patch changes nothing.
func (p SessionPatch) Empty() bool {
	return p.Name == nil && p.Location == nil && p.People == nil &&
		p.Date == nil && p.MapEmbed == nil
}
