package domain

// Actor is the authenticated identity performing an operation. Services take
// it as an explicit parameter on every read and write; organization scoping
// and role checks are decided from it, never from ambient state.
type Actor struct {
	UserID UserID
	Role   Role
	Org    string
}

// CanReadOrg reports whether the actor may read records owned by org.
func (a Actor) CanReadOrg(org string) bool {
	return a.Role.CrossOrg() || a.Org == org
}
