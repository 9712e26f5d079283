package auth

// User is the authenticated caller as seen by the two-factor subsystem.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Provider      string
}

// Valid reports whether u identifies a caller.
func (u *User) Valid() bool {
	return u != nil && u.ID != ""
}

// AccountName is the label shown in authenticator apps.
func (u *User) AccountName() string {
	if u == nil {
		return ""
	}
	if u.Email != "" {
		return u.Email
	}
	return u.ID
}
