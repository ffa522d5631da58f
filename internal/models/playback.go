package models

import "time"

// Track is the playback session's view of a song.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Album      string   `json:"album"`
	Artists    []string `json:"artists"`
	URI        string   `json:"uri"`
	DurationMS int64    `json:"duration_ms,omitempty"`
	PreviewURL string   `json:"preview_url,omitempty"`
}

// Playable reports whether a non-premium session can play this track.
func (t Track) Playable(premium bool) bool {
	if premium {
		return true
	}
	return t.PreviewURL != ""
}

// Device represents a provider playback device. Transient; only the chosen
// id/name pair is persisted for reuse by the next session.
type Device struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// RepeatMode is the queue repetition behavior.
type RepeatMode string

const (
	RepeatOff   RepeatMode = "off"
	RepeatTrack RepeatMode = "track"
	RepeatQueue RepeatMode = "queue"
)

// Next cycles off → track → queue → off.
func (m RepeatMode) Next() RepeatMode {
	switch m {
	case RepeatOff:
		return RepeatTrack
	case RepeatTrack:
		return RepeatQueue
	default:
		return RepeatOff
	}
}

// PlaybackSnapshot is the device-local session snapshot written across
// restarts. Restoring one lands the session in paused, never auto-resuming.
type PlaybackSnapshot struct {
	Queue      []Track    `json:"queue"`
	QueueIndex int        `json:"queueIndex"`
	PositionMS int64      `json:"position"`
	RepeatMode RepeatMode `json:"repeatMode"`
	IsShuffle  bool       `json:"isShuffle"`
	Timestamp  time.Time  `json:"timestamp"`
}

// PlaybackStatus is the normalized status snapshot delivered to the state
// machine on every poll tick.
type PlaybackStatus struct {
	PositionMillis int64
	DurationMillis int64
	IsPlaying      bool
	DidJustFinish  bool
}
