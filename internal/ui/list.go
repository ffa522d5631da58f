package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/hwi0-02/Stonetify-sub000/internal/formatter"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
)

var _ list.Item = trackItem{}

// trackItem wraps [models.Track] to implement [list.Item].
type trackItem struct {
	track   models.Track
	playing bool
}

func (i trackItem) FilterValue() string { return i.track.Name }

func (i trackItem) Title() string {
	if i.playing {
		return "▶ " + i.track.Name
	}
	return i.track.Name
}

func (i trackItem) Description() string {
	desc := strings.Join(i.track.Artists, ", ")
	if i.track.Album != "" {
		if desc != "" {
			desc += " • "
		}
		desc += i.track.Album
	}
	if i.track.DurationMS > 0 {
		desc = fmt.Sprintf("%s [%s]", desc, formatter.FormatDurationMS(i.track.DurationMS))
	}
	return strings.TrimSpace(desc)
}

// queueItems builds the list items for the current queue.
func queueItems(queue []models.Track, index int) []list.Item {
	items := make([]list.Item, len(queue))
	for i, track := range queue {
		items[i] = trackItem{track: track, playing: i == index}
	}
	return items
}
