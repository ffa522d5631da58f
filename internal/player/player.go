// package player contains the remote playback adapter and the client
// playback session. The adapter issues provider commands with a
// retry-once-on-expiry policy and polls playback status; the session owns
// the queue, shuffle/repeat, and position reconciliation on top of it.
package player

import (
	"context"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

const (
	// defaultPollInterval is the provider status poll cadence.
	defaultPollInterval = time.Second
	// defaultTickInterval is the local position clock cadence.
	defaultTickInterval = 200 * time.Millisecond
	// defaultSettleDelay is how long a force-activated device gets to
	// claim the output before the claiming playback is paused again.
	defaultSettleDelay = 800 * time.Millisecond

	// finishSlackMS is how close to the end a stopped position still
	// counts as the track having finished.
	finishSlackMS int64 = 500
	// seekConfirmWindowMS is how close a server snapshot must land to an
	// outstanding seek target to count as confirmation.
	seekConfirmWindowMS int64 = 1000

	// defaultSnapThresholdMS is the desync beyond which the local clock
	// snaps straight to the server position.
	defaultSnapThresholdMS int64 = 3000
	// defaultDeadZoneMS is the desync below which the server position is
	// ignored entirely.
	defaultDeadZoneMS int64 = 1000
	// defaultNudgeProportion is the share of the gap closed per snapshot
	// when the desync sits between the dead zone and the snap threshold.
	defaultNudgeProportion = 0.3
)

// StatusObserver receives normalized playback status reports. At most one
// observer is active per adapter.
type StatusObserver interface {
	OnStatus(status models.PlaybackStatus)
}

// Commander is the command surface the playback session drives. The
// adapter is the production implementation.
type Commander interface {
	Load(ctx context.Context, track models.Track, autoPlay bool, deviceID string) error
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Stop(ctx context.Context) error
	Seek(ctx context.Context, positionMS int64) error
	SetVolume(ctx context.Context, percent int) error

	Subscribe(observer StatusObserver) error
	Unsubscribe()
	SuspendPolling()
	ResumePolling()
	Dispose()
}

// clampPosition bounds a position to [0, duration]. An unknown duration
// (zero) leaves the position unclamped above zero.
func clampPosition(positionMS, durationMS int64) int64 {
	if positionMS < 0 {
		return 0
	}
	if durationMS > 0 && positionMS > durationMS {
		return durationMS
	}
	return positionMS
}

func absMS(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

// terminalRevoked wraps a revoked-token failure as the terminal,
// reauthentication-required form surfaced after the retry budget is spent.
func terminalRevoked(message string, cause error) error {
	coded := shared.NewCodedError(shared.CodeTokenRevoked, message, cause)
	coded.RequiresReauth = true
	return coded
}
