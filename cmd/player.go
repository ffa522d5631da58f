package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/formatter"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/player"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"github.com/urfave/cli/v3"
)

// Devices lists the user's available playback devices.
func (r *Runner) Devices(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}
	if _, err := r.authorize(ctx, user); err != nil {
		return err
	}

	devices, err := r.provider.Devices(ctx)
	if err != nil {
		return fmt.Errorf("failed to list devices: %w", err)
	}

	if cmd.Bool("json") {
		out, err := formatter.DevicesToJSON(devices)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s", formatter.DevicesToText(devices))
}

// Play cues a track by URI on a resolved device, or resumes paused
// playback when no URI is given.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}
	if _, err := r.authorize(ctx, user); err != nil {
		return err
	}

	adapter := r.newAdapter(user)
	defer adapter.Dispose()

	raw := cmd.StringArg("uri")
	if raw == "" {
		if err := adapter.Play(ctx); err != nil {
			return fmt.Errorf("failed to resume playback: %w", err)
		}
		return r.writePlain("▶ Resumed\n")
	}

	uri, err := services.ValidateTrackURI(raw)
	if err != nil {
		return err
	}

	track := models.Track{URI: uri}
	autoPlay := !cmd.Bool("cue")
	if err := adapter.Load(ctx, track, autoPlay, cmd.String("device")); err != nil {
		return fmt.Errorf("failed to load track: %w", err)
	}

	_, deviceName := adapter.Device()
	if autoPlay {
		return r.writePlain("▶ Playing %s on %s\n", uri, deviceName)
	}
	return r.writePlain("⏸ Cued %s on %s\n", uri, deviceName)
}

// Pause pauses playback.
func (r *Runner) Pause(ctx context.Context, cmd *cli.Command) error {
	adapter, cleanup, err := r.oneShot(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := adapter.Pause(ctx); err != nil {
		return fmt.Errorf("failed to pause: %w", err)
	}
	return r.writePlain("⏸ Paused\n")
}

// Stop pauses playback and rewinds to the start of the track.
func (r *Runner) Stop(ctx context.Context, cmd *cli.Command) error {
	adapter, cleanup, err := r.oneShot(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := adapter.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop: %w", err)
	}
	return r.writePlain("⏹ Stopped\n")
}

// Next advances the saved session queue and plays the landed track.
func (r *Runner) Next(ctx context.Context, cmd *cli.Command) error {
	return r.withSavedSession(ctx, cmd, func(session *player.Session) error {
		if err := session.NextTrack(ctx); err != nil {
			return err
		}
		if track := session.CurrentTrack(); track != nil {
			return r.writePlain("⏭ %s\n", trackLabel(*track))
		}
		return r.writePlain("⏹ End of queue\n")
	})
}

// Previous restarts the current track, or steps back when near its start.
func (r *Runner) Previous(ctx context.Context, cmd *cli.Command) error {
	return r.withSavedSession(ctx, cmd, func(session *player.Session) error {
		if err := session.PreviousTrack(ctx); err != nil {
			return err
		}
		if track := session.CurrentTrack(); track != nil {
			return r.writePlain("⏮ %s\n", trackLabel(*track))
		}
		return nil
	})
}

// Shuffle toggles shuffle on the saved session queue.
func (r *Runner) Shuffle(ctx context.Context, cmd *cli.Command) error {
	return r.withSavedSession(ctx, cmd, func(session *player.Session) error {
		session.ToggleShuffle()
		if session.IsShuffle() {
			return r.writePlain("🔀 Shuffle on\n")
		}
		return r.writePlain("→ Shuffle off\n")
	})
}

// Repeat sets or cycles the repeat mode on the saved session queue.
func (r *Runner) Repeat(ctx context.Context, cmd *cli.Command) error {
	return r.withSavedSession(ctx, cmd, func(session *player.Session) error {
		var mode models.RepeatMode
		switch raw := cmd.StringArg("mode"); raw {
		case "":
			mode = session.CycleRepeat()
		case string(models.RepeatOff), string(models.RepeatTrack), string(models.RepeatQueue):
			mode = models.RepeatMode(raw)
			session.SetRepeat(mode)
		default:
			return fmt.Errorf("%w: repeat mode must be off, track, or queue, got %q", shared.ErrInvalidArgument, raw)
		}
		return r.writePlain("🔁 Repeat %s\n", mode)
	})
}

// Seek jumps to a position in the current track.
func (r *Runner) Seek(ctx context.Context, cmd *cli.Command) error {
	positionMS, err := parsePosition(cmd.StringArg("position"))
	if err != nil {
		return err
	}

	adapter, cleanup, err := r.oneShot(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := adapter.Seek(ctx, positionMS); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}
	return r.writePlain("→ %s\n", formatter.FormatDurationMS(positionMS))
}

// Volume sets the playback volume.
func (r *Runner) Volume(ctx context.Context, cmd *cli.Command) error {
	raw := cmd.StringArg("percent")
	percent, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("%w: volume must be a number, got %q", shared.ErrInvalidArgument, raw)
	}

	adapter, cleanup, err := r.oneShot(ctx, cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if err := adapter.SetVolume(ctx, percent); err != nil {
		return fmt.Errorf("failed to set volume: %w", err)
	}
	return r.writePlain("🔊 %d%%\n", min(max(percent, 0), 100))
}

// Status shows the provider's current playback state.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}
	if _, err := r.authorize(ctx, user); err != nil {
		return err
	}

	state, err := r.provider.PlaybackState(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playback state: %w", err)
	}

	status := formatter.Status{State: string(player.StateIdle)}
	if state != nil {
		status.PositionMS = state.ProgressMS
		status.DurationMS = state.DurationMS
		status.IsPlaying = state.IsPlaying
		if state.IsPlaying {
			status.State = string(player.StatePlaying)
		} else {
			status.State = string(player.StatePaused)
		}
		if state.TrackURI != "" {
			status.Track = &models.Track{Name: state.TrackURI, URI: state.TrackURI}
		}
		if state.Device != nil {
			status.DeviceName = state.Device.Name
		}
	}

	if cmd.Bool("json") {
		out, err := formatter.StatusToJSON(status)
		if err != nil {
			return err
		}
		return r.writePlain("%s\n", out)
	}
	return r.writePlain("%s", formatter.StatusToText(status))
}

// oneShot wires the common prologue of single-call playback commands:
// bootstrap, user resolution, token refresh, adapter construction.
func (r *Runner) oneShot(ctx context.Context, cmd *cli.Command) (*player.Adapter, func(), error) {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return nil, nil, err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return nil, nil, err
	}
	if _, err := r.authorize(ctx, user); err != nil {
		return nil, nil, err
	}
	adapter := r.newAdapter(user)
	return adapter, adapter.Dispose, nil
}

// withSavedSession restores the snapshot queue into a full session, runs
// fn, and saves the resulting state back so the next invocation continues
// from it.
func (r *Runner) withSavedSession(ctx context.Context, cmd *cli.Command, fn func(*player.Session) error) error {
	if err := r.bootstrap(ctx, cmd); err != nil {
		return err
	}
	user, err := r.resolveUser(ctx, cmd)
	if err != nil {
		return err
	}
	result, err := r.authorize(ctx, user)
	if err != nil {
		return err
	}

	adapter := r.newAdapter(user)
	session, err := player.NewSession(user, adapter, r.history, player.SessionOptions{
		Premium:      result.IsPremium,
		TickInterval: time.Duration(r.config.Player.TickIntervalMS) * time.Millisecond,
		Reconcile: player.ReconcileParams{
			SnapThresholdMS: r.config.Player.SnapThresholdMS,
			DeadZoneMS:      r.config.Player.NudgeThresholdMS,
			NudgeProportion: r.config.Player.NudgeProportion,
		},
		SnapshotPath: r.config.Player.SnapshotPath,
		Logger:       r.logger,
	})
	if err != nil {
		adapter.Dispose()
		return err
	}
	defer session.Close()

	if err := session.RestoreSnapshot(); err != nil {
		return fmt.Errorf("no saved queue, start one with 'stonetify tui': %w", err)
	}
	if err := fn(session); err != nil {
		return err
	}
	return session.SaveSnapshot()
}

// parsePosition accepts milliseconds ("95000") or clock form ("1:35").
func parsePosition(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: position required", shared.ErrMissingArgument)
	}

	if !strings.Contains(raw, ":") {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			return 0, fmt.Errorf("%w: not a position: %q", shared.ErrInvalidArgument, raw)
		}
		return ms, nil
	}

	parts := strings.Split(raw, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: not a position: %q", shared.ErrInvalidArgument, raw)
	}

	var total int64
	for _, part := range parts {
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%w: not a position: %q", shared.ErrInvalidArgument, raw)
		}
		total = total*60 + n
	}
	return total * 1000, nil
}

func trackLabel(track models.Track) string {
	if track.Name == "" {
		return track.URI
	}
	if len(track.Artists) == 0 {
		return track.Name
	}
	return fmt.Sprintf("%s - %s", strings.Join(track.Artists, ", "), track.Name)
}
