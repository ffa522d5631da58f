package repositories

import (
	"context"
	"database/sql"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// RotateOptions carries the non-token fields of an upsert.
type RotateOptions struct {
	Scope    string
	ClientID string
	// Ceiling overrides the per-window rotation limit; zero means
	// [models.DefaultRotationCeiling].
	Ceiling int
}

// TokenRepository is the token lifecycle store contract.
//
// UpsertRotate with a non-empty plainToken is a rotation: the token is
// encrypted, the previous one is pushed into bounded history, the version
// and the window counter advance, and any revocation is cleared. With an
// empty plainToken it is a metadata-only update that touches neither
// rotation accounting nor the revoked flag, and requires an existing record.
type TokenRepository interface {
	// GetByUser returns the record for userID, or nil when none exists.
	GetByUser(ctx context.Context, userID string) (*models.TokenRecord, error)
	// UpsertRotate rotates or metadata-updates the record and returns the stored state.
	UpsertRotate(ctx context.Context, userID, plainToken string, opts RotateOptions) (*models.TokenRecord, error)
	// Revoke soft-revokes the record; a no-op when no record exists.
	Revoke(ctx context.Context, userID string) error
	// ActiveUser returns the user id of the most recently rotated
	// unrevoked record, or [shared.ErrTokenNotFound] when nobody is
	// authorized.
	ActiveUser(ctx context.Context) (string, error)
}

// DeviceRepository persists the last chosen playback device per user.
type DeviceRepository interface {
	LastDevice(ctx context.Context, userID string) (id, name string, err error)
	SaveLastDevice(ctx context.Context, userID, id, name string) error
}

// NewTokenRepository selects the durable SQLite store when the database is
// reachable and falls back to the process-local store otherwise. Callers
// hold only the interface and never learn which backing is active.
func NewTokenRepository(db *sql.DB, cipher *shared.TokenCipher, clock shared.Clock, logger *log.Logger) TokenRepository {
	if db != nil {
		if err := db.Ping(); err == nil {
			return NewSQLiteTokenRepository(db, cipher, clock)
		}
		logger.Warn("durable token store unreachable, using in-memory fallback")
	}
	return NewMemoryTokenRepository(cipher, clock)
}
