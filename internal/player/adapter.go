package player

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/repositories"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// retryState tracks the once-per-call retry budget. A fresh value is
// constructed for every top-level operation so nothing leaks across calls.
type retryState int

const (
	retryIdle retryState = iota
	retryPending
)

// AdapterOptions tunes an [Adapter]. Zero values fall back to defaults.
type AdapterOptions struct {
	PollInterval time.Duration
	SettleDelay  time.Duration
	Logger       *log.Logger
	Clock        shared.Clock
}

// Adapter issues playback commands for one user session against the
// provider, recovering silently from a single expired-token failure per
// operation and polling playback status in the background.
//
// Operations are serialized; two goroutines sharing an adapter never hold
// independent retry budgets.
type Adapter struct {
	userID    string
	provider  services.Provider
	refresher services.Refresher
	devices   repositories.DeviceRepository
	logger    *log.Logger

	settleDelay time.Duration

	ops    chan struct{} // capacity 1, held for the duration of one operation
	poller *poller

	deviceID   string
	deviceName string
}

// NewAdapter builds the playback adapter for userID. The poll loop starts
// on the first Subscribe; Dispose stops it synchronously.
func NewAdapter(
	userID string,
	provider services.Provider,
	refresher services.Refresher,
	devices repositories.DeviceRepository,
	opts AdapterOptions,
) *Adapter {
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.SettleDelay < 0 {
		opts.SettleDelay = 0
	} else if opts.SettleDelay == 0 {
		opts.SettleDelay = defaultSettleDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	a := &Adapter{
		userID:      userID,
		provider:    provider,
		refresher:   refresher,
		devices:     devices,
		logger:      shared.WithLogger(opts.Logger, "component", "adapter", "user", userID),
		settleDelay: opts.SettleDelay,
		ops:         make(chan struct{}, 1),
	}
	a.poller = newPoller(provider, opts.PollInterval, a.logger)
	return a
}

// execute runs op under the retry-on-expiry policy: a revoked-token signal
// triggers exactly one refresh and one re-execution; a second signal in
// the same call is terminal and demands reauthentication. The retry state
// lives and dies inside this call.
func (a *Adapter) execute(ctx context.Context, name string, op func(context.Context) error) error {
	a.ops <- struct{}{}
	defer func() { <-a.ops }()

	state := retryIdle
	for {
		err := op(ctx)
		if err == nil {
			if state == retryPending {
				a.poller.revive()
			}
			return nil
		}
		if !shared.IsTokenRevoked(err) {
			return err
		}
		if state == retryPending {
			a.logger.Warn("token still rejected after refresh", "op", name)
			return terminalRevoked("provider rejected refreshed credentials", err)
		}

		state = retryPending
		a.logger.Debug("token expired, refreshing", "op", name)
		// A TOKEN_REVOKED verdict from the coordinator already carries
		// RequiresReauth; transient refresh failures pass through as-is.
		result, refreshErr := a.refresher.Refresh(ctx, a.userID)
		if refreshErr != nil {
			return refreshErr
		}
		a.provider.Authorize(result.AccessToken)
	}
}

// Load starts playback of track, resolving an output device when deviceID
// is empty. autoPlay=false leaves the track cued but paused.
func (a *Adapter) Load(ctx context.Context, track models.Track, autoPlay bool, deviceID string) error {
	uri, err := services.ValidateTrackURI(track.URI)
	if err != nil {
		return err
	}

	return a.execute(ctx, "load", func(ctx context.Context) error {
		id := deviceID
		if id == "" {
			device, resolveErr := a.resolveDevice(ctx)
			if resolveErr != nil {
				return resolveErr
			}
			id = device.ID
		}

		if playErr := a.provider.Play(ctx, id, []string{uri}, 0); playErr != nil {
			return playErr
		}
		if !autoPlay {
			return a.provider.Pause(ctx)
		}
		return nil
	})
}

// resolveDevice walks the selection ladder: the persisted last device when
// still listed, then an active smartphone, any smartphone, any active
// device, and finally the first listed. An inactive pick is force-activated
// by a transfer, a settle delay, and an immediate pause so the device holds
// the output without audibly playing.
func (a *Adapter) resolveDevice(ctx context.Context) (models.Device, error) {
	list, err := a.provider.Devices(ctx)
	if err != nil {
		return models.Device{}, err
	}
	if len(list) == 0 {
		return models.Device{}, shared.NewCodedError(shared.CodeNoActiveDevice, "no playback devices available", nil)
	}

	lastID, _, err := a.devices.LastDevice(ctx, a.userID)
	if err != nil {
		a.logger.Debug("last-device lookup failed", "err", err)
	}

	chosen := pickDevice(list, lastID)

	if !chosen.IsActive {
		if err := a.provider.TransferPlayback(ctx, chosen.ID, true); err != nil {
			return models.Device{}, err
		}
		if err := a.settle(ctx); err != nil {
			return models.Device{}, err
		}
		if err := a.provider.Pause(ctx); err != nil {
			return models.Device{}, err
		}
	}

	a.deviceID = chosen.ID
	a.deviceName = chosen.Name
	if err := a.devices.SaveLastDevice(ctx, a.userID, chosen.ID, chosen.Name); err != nil {
		a.logger.Debug("failed to persist device choice", "err", err)
	}
	return chosen, nil
}

// pickDevice applies the resolution ladder to a non-empty device list.
func pickDevice(list []models.Device, lastID string) models.Device {
	if lastID != "" {
		for _, d := range list {
			if d.ID == lastID {
				return d
			}
		}
	}
	for _, d := range list {
		if d.Type == "smartphone" && d.IsActive {
			return d
		}
	}
	for _, d := range list {
		if d.Type == "smartphone" {
			return d
		}
	}
	for _, d := range list {
		if d.IsActive {
			return d
		}
	}
	return list[0]
}

func (a *Adapter) settle(ctx context.Context) error {
	if a.settleDelay == 0 {
		return nil
	}
	timer := time.NewTimer(a.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Play resumes playback on the active device.
func (a *Adapter) Play(ctx context.Context) error {
	return a.execute(ctx, "play", a.provider.Resume)
}

// Pause halts playback on the active device.
func (a *Adapter) Pause(ctx context.Context) error {
	return a.execute(ctx, "pause", a.provider.Pause)
}

// Stop halts playback and rewinds to the start of the track.
func (a *Adapter) Stop(ctx context.Context) error {
	return a.execute(ctx, "stop", func(ctx context.Context) error {
		if err := a.provider.Pause(ctx); err != nil {
			return err
		}
		return a.provider.Seek(ctx, 0)
	})
}

// Seek jumps to positionMS within the current track.
func (a *Adapter) Seek(ctx context.Context, positionMS int64) error {
	return a.execute(ctx, "seek", func(ctx context.Context) error {
		return a.provider.Seek(ctx, positionMS)
	})
}

// SetVolume sets the active device volume.
func (a *Adapter) SetVolume(ctx context.Context, percent int) error {
	return a.execute(ctx, "volume", func(ctx context.Context) error {
		return a.provider.SetVolume(ctx, percent)
	})
}

// Subscribe attaches the single status observer and starts polling.
func (a *Adapter) Subscribe(observer StatusObserver) error {
	return a.poller.subscribe(observer)
}

// Unsubscribe detaches the status observer. Polling pauses until the next
// Subscribe.
func (a *Adapter) Unsubscribe() {
	a.poller.unsubscribe()
}

// SuspendPolling halts status polling until ResumePolling. Idempotent;
// leaves retry budgets and device selection alone.
func (a *Adapter) SuspendPolling() {
	a.poller.suspend()
}

// ResumePolling restarts status polling after a suspension. Idempotent.
func (a *Adapter) ResumePolling() {
	a.poller.resume()
}

// Device returns the resolved output device, empty before the first Load.
func (a *Adapter) Device() (id, name string) {
	a.ops <- struct{}{}
	defer func() { <-a.ops }()
	return a.deviceID, a.deviceName
}

// Dispose stops the poll loop synchronously. The old adapter must be
// disposed before a replacement starts polling for the same user.
func (a *Adapter) Dispose() {
	a.poller.stop()
}
