package model

import "time"

// Credential is an opaque bearer token with an optional expiry. Resolved
// credentials live in process memory only; the connector path re-fetches
// when expired.
type Credential struct {
	Token     string
	ExpiresAt *time.Time
}

// Expired reports whether the credential is unusable at the given instant.
// Credentials without an expiry never expire.
func (c Credential) Expired(now time.Time) bool {
	if c.Token == "" {
		return true
	}
	if c.ExpiresAt == nil {
		return false
	}
	return !now.Before(*c.ExpiresAt)
}

// StoredCredential is a persisted credential row. Service identifies the
// external system ("github"), and Key the credential type within it ("token").
type StoredCredential struct {
	ID        int64
	Service   string
	Key       string
	Value     string
	UpdatedAt time.Time
}
