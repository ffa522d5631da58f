package repositories

import (
	"context"
	"fmt"
	"sync"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// MemoryTokenRepository implements [TokenRepository] in process memory.
//
// Used only when the durable backend is unavailable; the contract and the
// invariants are identical to [SQLiteTokenRepository], including the
// no-partial-commit guarantee on rate-limited rotations.
type MemoryTokenRepository struct {
	mu      sync.Mutex
	records map[string]*models.TokenRecord
	cipher  *shared.TokenCipher
	clock   shared.Clock
}

// NewMemoryTokenRepository creates the process-local fallback store.
func NewMemoryTokenRepository(cipher *shared.TokenCipher, clock shared.Clock) *MemoryTokenRepository {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &MemoryTokenRepository{
		records: make(map[string]*models.TokenRecord),
		cipher:  cipher,
		clock:   clock,
	}
}

// GetByUser returns a copy of the record for userID, or nil when none exists.
func (r *MemoryTokenRepository) GetByUser(ctx context.Context, userID string) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[userID]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

// UpsertRotate rotates or metadata-updates the record. Mutation happens on a
// copy and is only published on success.
func (r *MemoryTokenRepository) UpsertRotate(ctx context.Context, userID, plainToken string, opts RotateOptions) (*models.TokenRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var working *models.TokenRecord
	if existing, ok := r.records[userID]; ok {
		working = copyRecord(existing)
	}

	rec, _, err := applyUpsert(working, userID, plainToken, opts, r.cipher, r.clock())
	if err != nil {
		return nil, err
	}

	r.records[userID] = rec
	return copyRecord(rec), nil
}

// Revoke soft-revokes the record; a no-op when no record exists.
func (r *MemoryTokenRepository) Revoke(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec, ok := r.records[userID]; ok {
		rec.Revoke(r.clock())
	}
	return nil
}

// ActiveUser returns the user id of the most recently rotated unrevoked
// record.
func (r *MemoryTokenRepository) ActiveUser(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *models.TokenRecord
	for _, rec := range r.records {
		if rec.Revoked() || rec.EncryptedToken() == "" {
			continue
		}
		if best == nil || rec.UpdatedAt().After(best.UpdatedAt()) {
			best = rec
		}
	}
	if best == nil {
		return "", fmt.Errorf("%w: no authorized user", shared.ErrTokenNotFound)
	}
	return best.UserID(), nil
}

func copyRecord(rec *models.TokenRecord) *models.TokenRecord {
	out := models.NewTokenRecord(rec.UserID(), rec.ClientID(), rec.CreatedAt())
	out.SetID(rec.ID())
	out.SetScope(rec.Scope())
	out.SetVersion(rec.Version())
	out.SetHistory(rec.History())
	out.SetRevoked(rec.Revoked())
	out.SetEncryptedToken(rec.EncryptedToken())
	out.SetRotationCount(rec.RotationCount())
	out.SetRotationWindowStart(rec.RotationWindowStart())
	out.SetUpdatedAt(rec.UpdatedAt())
	out.SetLastRotationAt(rec.LastRotationAt())
	return out
}
