package identity

import "strings"

// AdminSet holds the configured administrator identities. Administrators are
// provided through configuration, never hard-coded.
type AdminSet struct {
	ids   map[int64]struct{}
	email string
}

// NewAdminSet constructs an AdminSet from configured user IDs and the legacy
// administrator email.
func NewAdminSet(ids []int64, email string) AdminSet {
	set := AdminSet{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		set.ids[id] = struct{}{}
	}
	set.email = strings.ToLower(strings.TrimSpace(email))
	return set
}

// ContainsID reports whether the user ID is a designated administrator.
func (s AdminSet) ContainsID(id int64) bool {
	_, ok := s.ids[id]
	return ok
}

// ContainsEmail reports whether the email matches the legacy administrator
// identity.
func (s AdminSet) ContainsEmail(email string) bool {
	return s.email != "" && strings.EqualFold(strings.TrimSpace(email), s.email)
}

// Matches reports whether the principal is a designated administrator.
func (s AdminSet) Matches(p Principal) bool {
	if p.UserID != 0 && s.ContainsID(p.UserID) {
		return true
	}
	return p.Email != "" && s.ContainsEmail(p.Email)
}
