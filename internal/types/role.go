package types

// Role is the platform-wide role attached to a user account. Roles are
// strictly ranked; authorization checks go through Permits rather than
// comparing strings at call sites.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

var roleRank = map[Role]int{
	RoleUser:      1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// Permits reports whether an actor with role actor may perform an action
// that requires at least role required. Unknown roles permit nothing.
func Permits(actor, required Role) bool {
	ar, ok := roleRank[actor]
	if !ok {
		return false
	}
	rr, ok := roleRank[required]
	if !ok {
		return false
	}
	return ar >= rr
}
