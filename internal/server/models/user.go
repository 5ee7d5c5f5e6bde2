package models

import (
	"encoding/json"
	"time"
)

// User is a directory record. A record is identified either by Username
// (local accounts) or by the SocialAccountID/SocialAccount pair (accounts
// created through an external identity provider).
//
// Fields:
//   - ID: assigned by the directory on insert.
//   - Username, Password: local accounts only; Password is salt‖hash.
//   - SocialAccountID: subject identifier issued by the provider.
//   - SocialAccount: provider name ("twitter", "facebook").
//   - Profile: provider payload as received, never interpreted.
//   - Name: display name.
type User struct {
	ID              string          `json:"id"`
	Username        *string         `json:"username,omitempty"`
	Password        *string         `json:"-"`
	SocialAccountID *string         `json:"socialAccountId,omitempty"`
	SocialAccount   *string         `json:"socialAccount,omitempty"`
	Profile         json.RawMessage `json:"profile,omitempty"`
	Name            *string         `json:"name,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// UserPatch is a partial update. Nil fields are left untouched.
type UserPatch struct {
	Username        *string
	Password        *string
	SocialAccountID *string
	SocialAccount   *string
	Profile         json.RawMessage
	Name            *string
}

// Apply copies every set field of p onto u.
func (p UserPatch) Apply(u *User) {
	if p.Username != nil {
		u.Username = p.Username
	}
	if p.Password != nil {
		u.Password = p.Password
	}
	if p.SocialAccountID != nil {
		u.SocialAccountID = p.SocialAccountID
	}
	if p.SocialAccount != nil {
		u.SocialAccount = p.SocialAccount
	}
	if p.Profile != nil {
		u.Profile = p.Profile
	}
	if p.Name != nil {
		u.Name = p.Name
	}
}

// Str returns a pointer to s. Optional string fields are pointers so that
// "absent" and "empty" stay distinguishable.
func Str(s string) *string {
	return &s
}

// Deref returns *s or "" when s is nil.
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
