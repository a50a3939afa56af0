package models

import "time"

// Roles a user may hold.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an account allowed to sign in. Email is the identity key.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255);not null"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null"` // bcrypt hash, never serialized
	Name      string    `json:"name" gorm:"type:varchar(255);not null"`
	Role      string    `json:"role" gorm:"type:varchar(16);not null;default:user"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PublicUser is the subset of a user returned to clients.
type PublicUser struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Public strips everything but email and name.
func (u *User) Public() PublicUser {
	return PublicUser{Email: u.Email, Name: u.Name}
}

// Identity is the caller derived from a verified bearer token.
type Identity struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// HasRole reports whether the identity holds one of roles.
func (i Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}
