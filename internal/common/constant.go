// Package common contains shared constants and sentinel errors used across
// passgate components.
package common

// SessionCookieName is the cookie carrying the server-side session id.
const SessionCookieName = "sid"

// BadCredentialsMessage is the only body a failed authentication ever gets.
const BadCredentialsMessage = "bad credentials"

// DefaultSaltLen is the length of the password salt prefix when SALT_LEN is unset.
const DefaultSaltLen = 256

// DefaultMountPath is where the auth resource is mounted when nothing else is configured.
const DefaultMountPath = "/auth"
