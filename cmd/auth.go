package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/repositories"
	"github.com/hwi0-02/Stonetify-sub000/internal/server"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Auth runs the OAuth2 authorization-code flow against Spotify and stores
// the resulting refresh token encrypted, keyed by the provider user id.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}

	token, err := r.doOAuth(ctx)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: provider returned no refresh token", shared.ErrAuthFailed)
	}

	r.provider.Authorize(token.AccessToken)
	profile, err := r.provider.UserProfile(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch user profile: %w", err)
	}

	rec, err := r.tokens.UpsertRotate(ctx, profile.ID, token.RefreshToken, repositories.RotateOptions{
		Scope:    "playback",
		ClientID: r.oauth.ClientID,
		Ceiling:  r.config.Tokens.RotationCeiling,
	})
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}

	r.logger.Info("authorization complete", "user", profile.ID, "version", rec.Version())
	r.writePlain("✓ Connected as %s (%s)\n", profile.DisplayName, profile.Product)
	return nil
}

// AuthStatus shows the stored token record for the active user.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}

	rec, err := r.tokens.GetByUser(ctx, user)
	if err != nil {
		return fmt.Errorf("failed to load token record: %w", err)
	}
	if rec == nil {
		return r.writePlain("No token record for %s\n", user)
	}

	r.writePlain("User:      %s\n", rec.UserID())
	r.writePlain("Version:   %d\n", rec.Version())
	r.writePlain("Rotations: %d this window\n", rec.RotationCount())
	if rec.Revoked() {
		r.writePlain("Revoked:   yes (reauthorization required)\n")
	} else {
		r.writePlain("Revoked:   no\n")
	}
	if !rec.LastRotationAt().IsZero() {
		r.writePlain("Rotated:   %s\n", rec.LastRotationAt().Format(time.RFC3339))
	}
	return nil
}

// AuthRevoke revokes the stored refresh token for the active user.
func (r *Runner) AuthRevoke(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}

	if err := r.tokens.Revoke(ctx, user); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	r.writePlain("✓ Revoked credentials for %s\n", user)
	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
// bound to the configured redirect URI.
func (r *Runner) doOAuth(ctx context.Context) (*oauth2.Token, error) {
	state := shared.GenerateID()
	authURL := r.oauth.AuthCodeURL(state)

	redirect, err := url.Parse(r.oauth.RedirectURL)
	if err != nil {
		return nil, fmt.Errorf("%w: bad redirect_uri: %v", shared.ErrInvalidConfig, err)
	}

	oauthHandler := server.NewOAuthHandler(r.oauth, state)
	router := server.NewBasicRouter()
	router.Handler(oauthHandler)

	httpServer := &http.Server{
		Addr:    redirect.Host,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", redirect.Host)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrAuthFailed)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
