package player

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// SaveSnapshot writes the session's restorable state to the configured
// snapshot path.
func (s *Session) SaveSnapshot() error {
	if s.snapshotPath == "" {
		return fmt.Errorf("%w: no snapshot path configured", shared.ErrMissingConfig)
	}

	s.mu.Lock()
	snap := models.PlaybackSnapshot{
		Queue:      append([]models.Track(nil), s.queue...),
		QueueIndex: s.queueIndex,
		PositionMS: s.positionMS,
		RepeatMode: s.repeatMode,
		IsShuffle:  s.isShuffle,
		Timestamp:  s.clock(),
	}
	s.mu.Unlock()

	payload, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.snapshotPath), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	if err := os.WriteFile(s.snapshotPath, payload, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	return nil
}

// RestoreSnapshot loads a previously saved session. The restored session
// lands in paused and never auto-resumes playback.
func (s *Session) RestoreSnapshot() error {
	if s.snapshotPath == "" {
		return fmt.Errorf("%w: no snapshot path configured", shared.ErrMissingConfig)
	}

	data, err := os.ReadFile(s.snapshotPath)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var snap models.PlaybackSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if len(snap.Queue) > 0 && (snap.QueueIndex < 0 || snap.QueueIndex >= len(snap.Queue)) {
		return fmt.Errorf("%w: snapshot queue index %d out of range", shared.ErrInvalidInput, snap.QueueIndex)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue = snap.Queue
	s.originalQueue = nil
	s.repeatMode = snap.RepeatMode
	if s.repeatMode == "" {
		s.repeatMode = models.RepeatOff
	}
	s.isShuffle = snap.IsShuffle
	s.isPlaying = false
	s.seekInProgress = false
	s.seekTargetMS = -1
	s.historyID = ""

	if len(snap.Queue) == 0 {
		s.queue = nil
		s.queueIndex = 0
		s.current = nil
		s.positionMS = 0
		s.durationMS = 0
		s.state = StateIdle
		return nil
	}

	track := snap.Queue[snap.QueueIndex]
	s.queueIndex = snap.QueueIndex
	s.current = &track
	s.durationMS = track.DurationMS
	s.positionMS = clampPosition(snap.PositionMS, s.durationMS)
	s.serverPositionMS = 0
	s.state = StatePaused
	return nil
}
