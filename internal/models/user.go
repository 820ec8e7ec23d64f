package models

import (
	"time"
)

// Role determines which home surface a user sees and which operations they
// may perform.
type Role string

const (
	RoleStudent  Role = "student"
	RoleLandlord Role = "landlord"
)

// Valid reports whether the role is one of the two known values.
func (r Role) Valid() bool {
	return r == RoleStudent || r == RoleLandlord
}

// User is the application profile mirrored next to the auth identity at
// registration. The auth layer owns credentials; this document owns the
// display attributes the rest of the app reads.
type User struct {
	Base         `bson:",inline"`
	Role         Role      `bson:"role" json:"role"`
	FullName     string    `bson:"full_name" json:"full_name"`
	Phone        string    `bson:"phone" json:"phone"`
	Email        string    `bson:"email" json:"email"`
	City         string    `bson:"city,omitempty" json:"city,omitempty"` // landlords only
	PasswordHash string    `bson:"password" json:"-"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
	Deleted      bool      `bson:"deleted" json:"-"` // soft delete flag; accounts are never removed
}
