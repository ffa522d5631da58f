package repositories

import (
	"fmt"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// applyUpsert implements the rotation/metadata-update semantics shared by
// both repository backings. It mutates rec in place (or creates one) and
// reports whether a new record was created. On any error rec is untouched
// from the caller's perspective, so backings can persist unconditionally
// on success.
func applyUpsert(rec *models.TokenRecord, userID, plainToken string, opts RotateOptions, cipher *shared.TokenCipher, now time.Time) (*models.TokenRecord, bool, error) {
	if plainToken == "" {
		// Metadata-only update. A record must already exist; creation always
		// goes through a rotation so a token is stored from the start.
		if rec == nil {
			return nil, false, fmt.Errorf("%w: cannot create token record for %s without a refresh token", shared.ErrTokenNotFound, userID)
		}
		if opts.Scope != "" {
			rec.SetScope(opts.Scope)
		}
		if opts.ClientID != "" {
			rec.SetClientID(opts.ClientID)
		}
		rec.SetUpdatedAt(now)
		return rec, false, nil
	}

	created := false
	if rec == nil {
		rec = models.NewTokenRecord(userID, opts.ClientID, now)
		rec.SetID(shared.GenerateID())
		created = true
	}

	encrypted, err := cipher.Encrypt(plainToken)
	if err != nil {
		return nil, false, fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	if err := rec.CountRotation(now, opts.Ceiling); err != nil {
		return nil, false, shared.NewCodedError(shared.CodeRateLimitExceeded, err.Error(), err)
	}

	rec.Rotate(encrypted, opts.Scope, now)
	if opts.ClientID != "" {
		rec.SetClientID(opts.ClientID)
	}

	if err := rec.Validate(); err != nil {
		return nil, false, fmt.Errorf("validation failed: %w", err)
	}

	return rec, created, nil
}
