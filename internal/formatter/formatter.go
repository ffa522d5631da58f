// package formatter renders playback data (devices, status, queue) for CLI
// output in plain text or JSON.
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
)

// FormatDurationMS renders a millisecond duration as m:ss (or h:mm:ss past
// an hour).
func FormatDurationMS(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	totalSeconds := ms / 1000
	seconds := totalSeconds % 60
	minutes := (totalSeconds / 60) % 60
	hours := totalSeconds / 3600
	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// DevicesToText renders a device list as an aligned table. The active
// device is marked with an asterisk.
func DevicesToText(devices []models.Device) []byte {
	var buf bytes.Buffer
	if len(devices) == 0 {
		buf.WriteString("No playback devices found.\n")
		return buf.Bytes()
	}

	nameWidth := len("NAME")
	for _, d := range devices {
		if len(d.Name) > nameWidth {
			nameWidth = len(d.Name)
		}
	}

	fmt.Fprintf(&buf, "  %-*s  %-12s  %s\n", nameWidth, "NAME", "TYPE", "ID")
	for _, d := range devices {
		marker := " "
		if d.IsActive {
			marker = "*"
		}
		fmt.Fprintf(&buf, "%s %-*s  %-12s  %s\n", marker, nameWidth, d.Name, d.Type, d.ID)
	}
	return buf.Bytes()
}

// DevicesToJSON renders a device list as indented JSON.
func DevicesToJSON(devices []models.Device) ([]byte, error) {
	data, err := json.MarshalIndent(devices, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode devices: %w", err)
	}
	return data, nil
}

// Status is the renderable view of a playback session.
type Status struct {
	State      string            `json:"state"`
	Track      *models.Track     `json:"track,omitempty"`
	PositionMS int64             `json:"position_ms"`
	DurationMS int64             `json:"duration_ms"`
	IsPlaying  bool              `json:"is_playing"`
	IsShuffle  bool              `json:"is_shuffle"`
	RepeatMode models.RepeatMode `json:"repeat_mode"`
	DeviceName string            `json:"device_name,omitempty"`
}

// StatusToText renders a status as a short multi-line summary.
func StatusToText(status Status) []byte {
	var buf bytes.Buffer

	if status.Track == nil {
		fmt.Fprintf(&buf, "Nothing playing (%s)\n", status.State)
		return buf.Bytes()
	}

	verb := "Paused"
	if status.IsPlaying {
		verb = "Playing"
	}
	fmt.Fprintf(&buf, "%s: %s", verb, status.Track.Name)
	if len(status.Track.Artists) > 0 {
		fmt.Fprintf(&buf, " - %s", strings.Join(status.Track.Artists, ", "))
	}
	buf.WriteByte('\n')

	fmt.Fprintf(&buf, "  %s / %s", FormatDurationMS(status.PositionMS), FormatDurationMS(status.DurationMS))
	flags := make([]string, 0, 2)
	if status.IsShuffle {
		flags = append(flags, "shuffle")
	}
	if status.RepeatMode != models.RepeatOff && status.RepeatMode != "" {
		flags = append(flags, "repeat "+string(status.RepeatMode))
	}
	if len(flags) > 0 {
		fmt.Fprintf(&buf, "  [%s]", strings.Join(flags, ", "))
	}
	buf.WriteByte('\n')

	if status.DeviceName != "" {
		fmt.Fprintf(&buf, "  on %s\n", status.DeviceName)
	}
	return buf.Bytes()
}

// StatusToJSON renders a status as indented JSON.
func StatusToJSON(status Status) ([]byte, error) {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode status: %w", err)
	}
	return data, nil
}

// QueueToText renders the queue with the current index marked.
func QueueToText(queue []models.Track, index int) []byte {
	var buf bytes.Buffer
	if len(queue) == 0 {
		buf.WriteString("Queue is empty.\n")
		return buf.Bytes()
	}

	for i, track := range queue {
		marker := " "
		if i == index {
			marker = ">"
		}
		line := track.Name
		if len(track.Artists) > 0 {
			line = fmt.Sprintf("%s - %s", strings.Join(track.Artists, ", "), track.Name)
		}
		fmt.Fprintf(&buf, "%s %2d. %s [%s]\n", marker, i+1, line, FormatDurationMS(track.DurationMS))
	}
	return buf.Bytes()
}
