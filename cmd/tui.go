package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/player"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"github.com/hwi0-02/Stonetify-sub000/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive now-playing view.
//
// The queue comes from --queue (a JSON array of tracks) when given,
// otherwise from the snapshot saved by the previous session.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
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

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/stonetify-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

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
		Logger:       fileLogger,
	})
	if err != nil {
		adapter.Dispose()
		return err
	}
	defer session.Close()

	if queuePath := cmd.String("queue"); queuePath != "" {
		queue, err := loadQueueFile(queuePath)
		if err != nil {
			return err
		}
		if err := session.ReplaceQueue(queue, int(cmd.Int("index"))); err != nil {
			return err
		}
	} else if err := session.RestoreSnapshot(); err != nil {
		r.logger.Debug("no snapshot to restore", "error", err)
	}

	model := ui.NewModel(session)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

// loadQueueFile reads a JSON array of tracks.
func loadQueueFile(path string) ([]models.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read queue file: %w", err)
	}
	var queue []models.Track
	if err := json.Unmarshal(data, &queue); err != nil {
		return nil, fmt.Errorf("%w: queue file must be a JSON array of tracks: %v", shared.ErrInvalidInput, err)
	}
	return queue, nil
}
