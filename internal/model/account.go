// Package model defines the data structures used throughout the application.
package model

import (
	"fmt"
	"time"
)

// UserType distinguishes the two kinds of account this application serves.
type UserType string

const (
	UserTypePatient UserType = "patient"
	UserTypeDoctor  UserType = "doctor"
)

// UserTypes lists every valid UserType, in display order.
var UserTypes = []UserType{UserTypePatient, UserTypeDoctor}

// Valid reports whether t is one of the known user types. No other value
// is storable.
func (t UserType) Valid() bool {
	return t == UserTypePatient || t == UserTypeDoctor
}

// Identity holds the base account attributes: who can log in, with what
// credential, and with which operator privileges. It is kept separate from
// the profile group so code that only cares about authentication (the
// login path, the auth middleware) never touches profile fields.
//
// PasswordHash is always a bcrypt hash, never a raw password. The json
// tag "-" keeps it out of every API response.
type Identity struct {
	Username     string    `json:"username"    db:"username"`
	PasswordHash string    `json:"-"           db:"password_hash"`
	IsStaff      bool      `json:"isStaff"     db:"is_staff"`
	IsSuperuser  bool      `json:"isSuperuser" db:"is_superuser"`
	IsActive     bool      `json:"isActive"    db:"is_active"`
	CreatedAt    time.Time `json:"createdAt"   db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt"   db:"updated_at"`
}

// Profile holds the attributes this application adds on top of the base
// identity: the patient/doctor distinction and contact details.
//
// Pincode is text, not a number — postal codes keep leading zeros and may
// be alphanumeric.
type Profile struct {
	UserType       UserType `json:"userType"       db:"user_type"`
	FirstName      string   `json:"firstName"      db:"first_name"`
	LastName       string   `json:"lastName"       db:"last_name"`
	Email          string   `json:"email"          db:"email"`
	ProfilePicture string   `json:"profilePicture" db:"profile_picture"` // stored file reference, empty if none
	AddressLine1   string   `json:"addressLine1"   db:"address_line1"`
	City           string   `json:"city"           db:"city"`
	State          string   `json:"state"          db:"state"`
	Pincode        string   `json:"pincode"        db:"pincode"`
}

// Account is one persisted user record: a base Identity plus this
// application's Profile group.
//
// Uniqueness: both Username and Email are unique across all accounts.
// Username uniqueness comes with the identity contract; email uniqueness
// is this application's stricter addition. Both are enforced by the
// storage layer's constraints, so concurrent registrations racing on the
// same value are serialized there — the loser fails with a conflict.
type Account struct {
	ID string `json:"id" db:"id"`
	Identity
	Profile
}

// DisplayLabel renders the account for administrative listings:
// "<first> <last> (<type>)".
func (a *Account) DisplayLabel() string {
	return fmt.Sprintf("%s %s (%s)", a.FirstName, a.LastName, a.UserType)
}

// Field length limits, enforced at the validation boundary.
const (
	MaxNameLength     = 100 // first_name, last_name, city, state
	MaxAddressLength  = 255 // address_line1
	MaxPincodeLength  = 10
	MaxEmailLength    = 254
	MaxUsernameLength = 150
)
