package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/repositories"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"golang.org/x/oauth2"
)

// tokenExchanger is the refresh-grant seam; production uses [oauth2.Config],
// tests substitute a stub.
type tokenExchanger interface {
	TokenSource(ctx context.Context, t *oauth2.Token) oauth2.TokenSource
}

// RefreshCoordinator rotates the stored refresh token against the
// provider's token endpoint and classifies failures as revoked vs transient.
type RefreshCoordinator struct {
	tokens   repositories.TokenRepository
	cipher   *shared.TokenCipher
	exchange tokenExchanger
	provider Provider
	logger   *log.Logger
	ceiling  int
	clientID string
}

// NewRefreshCoordinator wires the coordinator. provider is used only to
// fetch the user profile with the freshly minted access token (premium
// detection); a nil provider skips that check.
func NewRefreshCoordinator(
	tokens repositories.TokenRepository,
	cipher *shared.TokenCipher,
	conf *oauth2.Config,
	provider Provider,
	ceiling int,
	logger *log.Logger,
) *RefreshCoordinator {
	return &RefreshCoordinator{
		tokens:   tokens,
		cipher:   cipher,
		exchange: conf,
		provider: provider,
		logger:   logger,
		ceiling:  ceiling,
		clientID: conf.ClientID,
	}
}

// Refresh exchanges the stored refresh token for a new access token,
// rotating the stored record on success.
//
// A provider verdict that the refresh token itself is dead revokes the
// stored record and surfaces TOKEN_REVOKED; network and 5xx failures stay
// transient and leave the record alone.
func (c *RefreshCoordinator) Refresh(ctx context.Context, userID string) (*RefreshResult, error) {
	rec, err := c.tokens.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load token record: %w", err)
	}
	if rec == nil || rec.Revoked() || rec.EncryptedToken() == "" {
		coded := shared.NewCodedError(shared.CodeTokenRevoked, "no refresh token on file for user "+userID, shared.ErrNoRefreshToken)
		coded.RequiresReauth = true
		return nil, coded
	}

	plain, err := c.cipher.Decrypt(rec.EncryptedToken())
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt stored refresh token: %w", err)
	}

	tok, err := c.exchange.TokenSource(ctx, &oauth2.Token{RefreshToken: plain}).Token()
	if err != nil {
		if isInvalidGrant(err) {
			c.logger.Warn("provider rejected refresh token, revoking", "user", userID)
			if revokeErr := c.tokens.Revoke(ctx, userID); revokeErr != nil {
				c.logger.Error("failed to revoke token record", "user", userID, "err", revokeErr)
			}
			coded := shared.NewCodedError(shared.CodeTokenRevoked, "refresh token revoked by provider", err)
			coded.RequiresReauth = true
			return nil, coded
		}
		return nil, shared.NewCodedError(shared.CodeTransient, "token refresh failed", err)
	}

	// Providers may or may not issue a new refresh token; re-encrypting the
	// current one still counts as a rotation so history and version advance.
	nextRefresh := tok.RefreshToken
	if nextRefresh == "" {
		nextRefresh = plain
	}

	scope, _ := tok.Extra("scope").(string)
	stored, err := c.tokens.UpsertRotate(ctx, userID, nextRefresh, repositories.RotateOptions{
		Scope:    scope,
		ClientID: c.clientID,
		Ceiling:  c.ceiling,
	})
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{
		AccessToken:   tok.AccessToken,
		RecordVersion: stored.Version(),
	}
	if !tok.Expiry.IsZero() {
		result.ExpiresIn = time.Until(tok.Expiry)
	}

	if c.provider != nil {
		c.provider.Authorize(tok.AccessToken)
		if profile, profileErr := c.provider.UserProfile(ctx); profileErr != nil {
			c.logger.Debug("profile fetch after refresh failed", "user", userID, "err", profileErr)
		} else {
			result.IsPremium = profile.Premium()
		}
	}

	c.logger.Info("rotated refresh token", "user", userID, "version", stored.Version())
	return result, nil
}

// isInvalidGrant reports whether the token endpoint's verdict means the
// refresh token itself is dead, as opposed to a transient failure.
func isInvalidGrant(err error) bool {
	var retrieve *oauth2.RetrieveError
	if !errors.As(err, &retrieve) {
		return false
	}
	if retrieve.ErrorCode == "invalid_grant" {
		return true
	}
	// Some deployments omit the structured code and only set the body.
	return strings.Contains(strings.ToLower(string(retrieve.Body)), "invalid_grant")
}
