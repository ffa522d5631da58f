package player

import (
	"fmt"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// previousRestartThresholdMS is the elapsed position beyond which a
// previous-track request restarts the current track instead.
const previousRestartThresholdMS int64 = 3000

// ReplaceQueue installs a new queue and positions it at index. Shuffle is
// cleared and position/duration reset. An empty queue empties the session
// back to idle.
func (s *Session) ReplaceQueue(queue []models.Track, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(queue) == 0 {
		s.queue = nil
		s.originalQueue = nil
		s.queueIndex = 0
		s.current = nil
		s.isShuffle = false
		s.positionMS = 0
		s.durationMS = 0
		s.state = StateIdle
		return nil
	}
	if index < 0 || index >= len(queue) {
		return fmt.Errorf("%w: queue index %d out of range [0,%d)", shared.ErrInvalidArgument, index, len(queue))
	}

	s.queue = append([]models.Track(nil), queue...)
	s.originalQueue = append([]models.Track(nil), queue...)
	s.queueIndex = index
	s.isShuffle = false
	s.setCurrentLocked(index)
	// A fresh queue is cued, not playing; the next Play loads it.
	s.state = StateIdle
	s.isPlaying = false
	return nil
}

// ToggleShuffle enables or disables queue shuffling. Enabling pins the
// current track at index 0 and Fisher-Yates-shuffles the remainder,
// keeping the prior order for restoration. Disabling restores that order
// and relocates the index to the current track (0 when not found).
func (s *Session) ToggleShuffle() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		s.isShuffle = !s.isShuffle
		return
	}

	if !s.isShuffle {
		s.originalQueue = append([]models.Track(nil), s.queue...)

		shuffled := make([]models.Track, 0, len(s.queue))
		shuffled = append(shuffled, s.queue[s.queueIndex])
		rest := make([]models.Track, 0, len(s.queue)-1)
		rest = append(rest, s.queue[:s.queueIndex]...)
		rest = append(rest, s.queue[s.queueIndex+1:]...)
		s.rng.Shuffle(len(rest), func(i, j int) {
			rest[i], rest[j] = rest[j], rest[i]
		})
		shuffled = append(shuffled, rest...)

		s.queue = shuffled
		s.queueIndex = 0
		s.isShuffle = true
		return
	}

	restored := s.originalQueue
	if len(restored) == 0 {
		// A restored snapshot carries no pre-shuffle order; keep the
		// queue as-is and just drop the flag.
		s.isShuffle = false
		return
	}
	currentID := ""
	if s.current != nil {
		currentID = s.current.ID
	}
	index := 0
	for i, t := range restored {
		if t.ID == currentID {
			index = i
			break
		}
	}
	s.queue = restored
	s.originalQueue = nil
	s.isShuffle = false
	// The playing track does not change, so the clock is left alone.
	track := restored[index]
	s.current = &track
	s.queueIndex = index
}

// CycleRepeat advances the repeat mode off → track → queue → off.
func (s *Session) CycleRepeat() models.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.repeatMode = s.repeatMode.Next()
	return s.repeatMode
}

// SetRepeat sets the repeat mode directly.
func (s *Session) SetRepeat(mode models.RepeatMode) {
	s.mu.Lock()
	s.repeatMode = mode
	s.mu.Unlock()
}

// setCurrentLocked points current at queue[index] and resets the clock.
func (s *Session) setCurrentLocked(index int) {
	track := s.queue[index]
	s.current = &track
	s.queueIndex = index
	s.positionMS = 0
	s.durationMS = track.DurationMS
	s.serverPositionMS = 0
	s.seekTargetMS = -1
}

// advanceIndexLocked computes the next queue index per the repeat mode.
// ok=false means the queue is exhausted and playback should stop.
func (s *Session) advanceIndexLocked() (int, bool) {
	switch {
	case s.repeatMode == models.RepeatTrack:
		return s.queueIndex, true
	case s.queueIndex+1 < len(s.queue):
		return s.queueIndex + 1, true
	case s.repeatMode == models.RepeatQueue:
		return 0, true
	default:
		return 0, false
	}
}

// findPlayableLocked searches forward from index for a track the session
// can play, wrapping around, bounded by one full pass over the queue.
func (s *Session) findPlayableLocked(index int) (int, error) {
	n := len(s.queue)
	for step := 0; step < n; step++ {
		candidate := (index + step) % n
		if s.queue[candidate].Playable(s.premium) {
			return candidate, nil
		}
	}
	return 0, fmt.Errorf("%w: no track in the queue has a playable source", shared.ErrNoPlayableTracks)
}
