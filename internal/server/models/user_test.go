package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserPatch_ApplyOnlySetFields(t *testing.T) {
	u := &User{
		ID:              "u1",
		Username:        Str("alice"),
		SocialAccountID: Str("42"),
		SocialAccount:   Str("twitter"),
		Name:            Str("Old"),
		Profile:         json.RawMessage(`{"v":1}`),
	}

	UserPatch{Name: Str("New"), Profile: json.RawMessage(`{"v":2}`)}.Apply(u)

	assert.Equal(t, "New", Deref(u.Name))
	assert.JSONEq(t, `{"v":2}`, string(u.Profile))
	assert.Equal(t, "alice", Deref(u.Username), "unset fields must survive")
	assert.Equal(t, "42", Deref(u.SocialAccountID))
	assert.Equal(t, "twitter", Deref(u.SocialAccount))
}

func TestUser_JSONHidesPassword(t *testing.T) {
	u := User{ID: "u1", Username: Str("alice"), Password: Str("saltHASH")}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "saltHASH")
	assert.Contains(t, string(b), `"username":"alice"`)
}

func TestSession_Expired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	assert.False(t, (&Session{}).Expired(now), "zero expiry never expires")
	assert.False(t, (&Session{ExpiresAt: now.Add(time.Minute)}).Expired(now))
	assert.True(t, (&Session{ExpiresAt: now}).Expired(now))
}

func TestSession_SetAllocates(t *testing.T) {
	var s Session
	s.Set("/auth", "u1")
	assert.Equal(t, "u1", s.Values["/auth"])
}
