package repositories

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// SQLiteTokenRepository implements [TokenRepository] on database/sql.
type SQLiteTokenRepository struct {
	db     *sql.DB
	cipher *shared.TokenCipher
	clock  shared.Clock
}

// NewSQLiteTokenRepository creates the durable token store.
func NewSQLiteTokenRepository(db *sql.DB, cipher *shared.TokenCipher, clock shared.Clock) *SQLiteTokenRepository {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &SQLiteTokenRepository{db: db, cipher: cipher, clock: clock}
}

const tokenColumns = `id, user_id, refresh_token_encrypted, scope, version, history,
	revoked, rotation_count, rotation_window_start, client_id,
	created_at, updated_at, last_rotation_at`

// GetByUser retrieves the record for userID, or nil when none exists.
//
// If duplicate rows ever exist for one user (duplicate-write recovery), the
// row with the greatest updated_at wins, ties broken by id for determinism.
func (r *SQLiteTokenRepository) GetByUser(ctx context.Context, userID string) (*models.TokenRecord, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM token_records
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`, tokenColumns)

	rec, err := scanTokenRecord(r.db.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query token record: %w", err)
	}
	return rec, nil
}

// UpsertRotate rotates or metadata-updates the record inside one transaction.
func (r *SQLiteTokenRepository) UpsertRotate(ctx context.Context, userID, plainToken string, opts RotateOptions) (*models.TokenRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		SELECT %s
		FROM token_records
		WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`, tokenColumns)

	rec, err := scanTokenRecord(tx.QueryRowContext(ctx, query, userID))
	if err == sql.ErrNoRows {
		rec = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to query token record: %w", err)
	}

	rec, created, err := applyUpsert(rec, userID, plainToken, opts, r.cipher, r.clock())
	if err != nil {
		return nil, err
	}

	historyJSON, err := json.Marshal(rec.History())
	if err != nil {
		return nil, fmt.Errorf("failed to encode history: %w", err)
	}

	if created {
		insert := `
			INSERT INTO token_records (id, user_id, refresh_token_encrypted, scope, version, history,
				revoked, rotation_count, rotation_window_start, client_id,
				created_at, updated_at, last_rotation_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		_, err = tx.ExecContext(ctx, insert,
			rec.ID(), rec.UserID(), nullString(rec.EncryptedToken()), rec.Scope(), rec.Version(), string(historyJSON),
			rec.Revoked(), rec.RotationCount(), nullTime(rec.RotationWindowStart()), rec.ClientID(),
			rec.CreatedAt(), rec.UpdatedAt(), nullTime(rec.LastRotationAt()),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert token record: %w", err)
		}
	} else {
		update := `
			UPDATE token_records
			SET refresh_token_encrypted = ?, scope = ?, version = ?, history = ?,
				revoked = ?, rotation_count = ?, rotation_window_start = ?, client_id = ?,
				updated_at = ?, last_rotation_at = ?
			WHERE id = ?
		`
		_, err = tx.ExecContext(ctx, update,
			nullString(rec.EncryptedToken()), rec.Scope(), rec.Version(), string(historyJSON),
			rec.Revoked(), rec.RotationCount(), nullTime(rec.RotationWindowStart()), rec.ClientID(),
			rec.UpdatedAt(), nullTime(rec.LastRotationAt()),
			rec.ID(),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to update token record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit token rotation: %w", err)
	}

	return rec, nil
}

// Revoke soft-revokes every row for userID. Idempotent; zero rows is not an error.
func (r *SQLiteTokenRepository) Revoke(ctx context.Context, userID string) error {
	query := `
		UPDATE token_records
		SET revoked = 1, refresh_token_encrypted = NULL, updated_at = ?
		WHERE user_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, r.clock(), userID); err != nil {
		return fmt.Errorf("failed to revoke token record: %w", err)
	}
	return nil
}

// ActiveUser returns the user id of the most recently rotated unrevoked
// record.
func (r *SQLiteTokenRepository) ActiveUser(ctx context.Context) (string, error) {
	query := `
		SELECT user_id
		FROM token_records
		WHERE revoked = 0 AND refresh_token_encrypted IS NOT NULL
		ORDER BY updated_at DESC, id ASC
		LIMIT 1
	`
	var userID string
	err := r.db.QueryRowContext(ctx, query).Scan(&userID)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: no authorized user", shared.ErrTokenNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to query active user: %w", err)
	}
	return userID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTokenRecord(row rowScanner) (*models.TokenRecord, error) {
	var (
		id, userID, scope, clientID string
		encrypted                   sql.NullString
		version, rotationCount      int
		historyJSON                 string
		revoked                     bool
		windowStart, lastRotation   sql.NullTime
		createdAt, updatedAt        time.Time
	)

	err := row.Scan(&id, &userID, &encrypted, &scope, &version, &historyJSON,
		&revoked, &rotationCount, &windowStart, &clientID,
		&createdAt, &updatedAt, &lastRotation)
	if err != nil {
		return nil, err
	}

	var history []string
	if historyJSON != "" {
		if err := json.Unmarshal([]byte(historyJSON), &history); err != nil {
			return nil, fmt.Errorf("failed to decode history: %w", err)
		}
	}

	rec := models.NewTokenRecord(userID, clientID, createdAt)
	rec.SetID(id)
	rec.SetScope(scope)
	rec.SetVersion(version)
	rec.SetHistory(history)
	rec.SetRevoked(revoked)
	rec.SetRotationCount(rotationCount)
	rec.SetUpdatedAt(updatedAt)
	if encrypted.Valid {
		rec.SetEncryptedToken(encrypted.String)
	}
	if windowStart.Valid {
		rec.SetRotationWindowStart(windowStart.Time)
	}
	if lastRotation.Valid {
		rec.SetLastRotationAt(lastRotation.Time)
	}

	return rec, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
