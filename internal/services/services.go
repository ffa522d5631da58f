// package services defines the provider-facing interfaces the playback
// adapter depends on: the playback HTTP surface, token refresh, and the
// playback-history correlation API.
package services

import (
	"context"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
)

// PlaybackState is the provider's current-playback snapshot, normalized.
// Empty reports (nothing playing anywhere) come back as nil from
// [Provider.PlaybackState] rather than a zero struct.
type PlaybackState struct {
	Device     *models.Device
	ProgressMS int64
	DurationMS int64
	IsPlaying  bool
	TrackURI   string
}

// UserProfile is the slice of the provider profile the core cares about.
type UserProfile struct {
	ID          string
	DisplayName string
	Product     string // premium, free, open
}

// Premium reports whether the profile has full playback entitlements.
func (p *UserProfile) Premium() bool {
	return p != nil && p.Product == "premium"
}

// Provider is the playback surface of the streaming provider. Every call is
// authenticated with the bearer token installed via Authorize; failures are
// normalized to [shared.CodedError] values before being returned.
type Provider interface {
	// Authorize installs the bearer token used by subsequent calls.
	Authorize(accessToken string)

	Devices(ctx context.Context) ([]models.Device, error)
	// TransferPlayback force-activates a device; play=true starts playback
	// on the target immediately.
	TransferPlayback(ctx context.Context, deviceID string, play bool) error
	Play(ctx context.Context, deviceID string, uris []string, positionMS int64) error
	Resume(ctx context.Context) error
	Pause(ctx context.Context) error
	Seek(ctx context.Context, positionMS int64) error
	SetVolume(ctx context.Context, percent int) error
	PlaybackState(ctx context.Context) (*PlaybackState, error)
	UserProfile(ctx context.Context) (*UserProfile, error)
}

// RefreshResult is what a successful token refresh yields.
type RefreshResult struct {
	AccessToken   string
	RecordVersion int
	ExpiresIn     time.Duration
	IsPremium     bool
}

// Refresher rotates the stored refresh token and mints a new access token.
// The playback adapter invokes it exactly once per failed operation.
type Refresher interface {
	Refresh(ctx context.Context, userID string) (*RefreshResult, error)
}

// History correlates playback sessions with the external history log.
type History interface {
	// Start opens a history entry and returns its correlation id.
	Start(ctx context.Context, userID string, track models.Track, source string) (string, error)
	// Complete finalizes an entry with the last observed position/duration.
	Complete(ctx context.Context, userID, historyID string, positionMS, durationMS int64) error
}
