package models

import (
	"fmt"
	"time"
)

const (
	// HistoryCap bounds the rotation history kept per record, newest first.
	HistoryCap = 5
	// DefaultRotationCeiling is the maximum rotations allowed per sliding window.
	DefaultRotationCeiling = 12
	// RotationWindow is the sliding window over which rotations are counted.
	RotationWindow = time.Hour
)

// TokenRecord is the durable refresh-token record, one per user.
//
// A revoked record always has an empty encrypted token; the record itself
// survives revocation so history and audit data are preserved.
type TokenRecord struct {
	id                    string
	userID                string
	refreshTokenEncrypted string
	scope                 string
	version               int
	history               []string
	revoked               bool
	rotationCount         int
	rotationWindowStart   time.Time
	clientID              string
	createdAt             time.Time
	updatedAt             time.Time
	lastRotationAt        time.Time
}

// NewTokenRecord creates a record for userID with no token material yet.
// The first rotation supplies the encrypted token and sets version 1.
func NewTokenRecord(userID, clientID string, now time.Time) *TokenRecord {
	return &TokenRecord{
		userID:    userID,
		clientID:  clientID,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *TokenRecord) ID() string                     { return t.id }
func (t *TokenRecord) UserID() string                 { return t.userID }
func (t *TokenRecord) EncryptedToken() string         { return t.refreshTokenEncrypted }
func (t *TokenRecord) Scope() string                  { return t.scope }
func (t *TokenRecord) Version() int                   { return t.version }
func (t *TokenRecord) Revoked() bool                  { return t.revoked }
func (t *TokenRecord) RotationCount() int             { return t.rotationCount }
func (t *TokenRecord) RotationWindowStart() time.Time { return t.rotationWindowStart }
func (t *TokenRecord) ClientID() string               { return t.clientID }
func (t *TokenRecord) CreatedAt() time.Time           { return t.createdAt }
func (t *TokenRecord) UpdatedAt() time.Time           { return t.updatedAt }
func (t *TokenRecord) LastRotationAt() time.Time      { return t.lastRotationAt }

// History returns the prior encrypted tokens, newest first.
func (t *TokenRecord) History() []string {
	out := make([]string, len(t.history))
	copy(out, t.history)
	return out
}

func (t *TokenRecord) SetID(id string)               { t.id = id }
func (t *TokenRecord) SetScope(scope string)         { t.scope = scope }
func (t *TokenRecord) SetClientID(clientID string)   { t.clientID = clientID }
func (t *TokenRecord) SetUpdatedAt(ts time.Time)     { t.updatedAt = ts }
func (t *TokenRecord) SetVersion(v int)              { t.version = v }
func (t *TokenRecord) SetRevoked(revoked bool)       { t.revoked = revoked }
func (t *TokenRecord) SetEncryptedToken(enc string)  { t.refreshTokenEncrypted = enc }
func (t *TokenRecord) SetHistory(history []string)   { t.history = history }
func (t *TokenRecord) SetRotationCount(n int)        { t.rotationCount = n }
func (t *TokenRecord) SetRotationWindowStart(ts time.Time) {
	t.rotationWindowStart = ts
}
func (t *TokenRecord) SetCreatedAt(ts time.Time)      { t.createdAt = ts }
func (t *TokenRecord) SetLastRotationAt(ts time.Time) { t.lastRotationAt = ts }

// Rotate installs a freshly encrypted token, pushing the previous one into
// the bounded history and incrementing the version. Clears any revocation.
func (t *TokenRecord) Rotate(encrypted, scope string, now time.Time) {
	if t.refreshTokenEncrypted != "" {
		t.history = append([]string{t.refreshTokenEncrypted}, t.history...)
		if len(t.history) > HistoryCap {
			t.history = t.history[:HistoryCap]
		}
	}
	t.refreshTokenEncrypted = encrypted
	if scope != "" {
		t.scope = scope
	}
	t.version++
	t.revoked = false
	t.lastRotationAt = now
	t.updatedAt = now
}

// CountRotation applies the sliding-window rate limit accounting. The window
// resets once it is older than [RotationWindow]; exceeding ceiling is an
// error and leaves the counters untouched.
func (t *TokenRecord) CountRotation(now time.Time, ceiling int) error {
	if ceiling <= 0 {
		ceiling = DefaultRotationCeiling
	}

	count, start := t.rotationCount, t.rotationWindowStart
	if start.IsZero() || now.Sub(start) > RotationWindow {
		count, start = 0, now
	}

	if count+1 > ceiling {
		return fmt.Errorf("rotation limit of %d per %s exceeded for user %s", ceiling, RotationWindow, t.userID)
	}

	t.rotationCount = count + 1
	t.rotationWindowStart = start
	return nil
}

// Revoke marks the record revoked and nulls the encrypted token.
func (t *TokenRecord) Revoke(now time.Time) {
	t.revoked = true
	t.refreshTokenEncrypted = ""
	t.updatedAt = now
}

// Validate checks the record's invariants.
func (t *TokenRecord) Validate() error {
	if t.userID == "" {
		return fmt.Errorf("token record missing user id")
	}
	if t.revoked && t.refreshTokenEncrypted != "" {
		return fmt.Errorf("revoked token record for user %s still holds token material", t.userID)
	}
	if len(t.history) > HistoryCap {
		return fmt.Errorf("token history exceeds cap of %d", HistoryCap)
	}
	if t.version < 0 {
		return fmt.Errorf("token version must be non-negative, got %d", t.version)
	}
	return nil
}
