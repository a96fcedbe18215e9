// Package user defines the acting author of a transaction.
package user

// Roles understood by the authorization middleware.
const (
	RoleEditor = "editor"
	RoleAdmin  = "admin"
)

// User is the author bound to a transaction.
type User struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Roles []string `json:"roles,omitempty"`
}

// HasRole reports whether the user carries role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// CanEdit reports whether the user may submit transactions.
func (u *User) CanEdit() bool {
	return u.HasRole(RoleEditor) || u.HasRole(RoleAdmin)
}

// System is the author used by CLI maintenance commands.
func System() *User {
	return &User{ID: "system", Name: "system", Roles: []string{RoleAdmin}}
}
