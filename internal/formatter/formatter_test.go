package formatter

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
)

func TestFormatDurationMS(t *testing.T) {
	tc := []struct {
		ms   int64
		want string
	}{
		{0, "0:00"},
		{-500, "0:00"},
		{999, "0:00"},
		{1000, "0:01"},
		{61000, "1:01"},
		{180000, "3:00"},
		{3599000, "59:59"},
		{3600000, "1:00:00"},
		{3661000, "1:01:01"},
	}

	for _, tt := range tc {
		if got := FormatDurationMS(tt.ms); got != tt.want {
			t.Errorf("FormatDurationMS(%d) = %s, want %s", tt.ms, got, tt.want)
		}
	}
}

func TestDevices(t *testing.T) {
	devices := []models.Device{
		{ID: "d1", Name: "Kitchen Speaker", Type: "speaker", IsActive: true},
		{ID: "d2", Name: "Phone", Type: "smartphone", IsActive: false},
	}

	t.Run("Text", func(t *testing.T) {
		output := string(DevicesToText(devices))

		if !strings.Contains(output, "Kitchen Speaker") {
			t.Errorf("missing device name, got: %s", output)
		}
		if !strings.Contains(output, "smartphone") {
			t.Errorf("missing device type, got: %s", output)
		}
		lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header plus 2 rows, got %d lines", len(lines))
		}
		if !strings.HasPrefix(lines[1], "*") {
			t.Errorf("expected active device marked, got: %s", lines[1])
		}
		if strings.HasPrefix(lines[2], "*") {
			t.Errorf("expected inactive device unmarked, got: %s", lines[2])
		}
	})

	t.Run("Empty Text", func(t *testing.T) {
		output := string(DevicesToText(nil))
		if !strings.Contains(output, "No playback devices") {
			t.Errorf("unexpected output: %s", output)
		}
	})

	t.Run("JSON", func(t *testing.T) {
		data, err := DevicesToJSON(devices)
		if err != nil {
			t.Fatalf("DevicesToJSON failed: %v", err)
		}
		var decoded []models.Device
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if len(decoded) != 2 || decoded[0].ID != "d1" {
			t.Errorf("unexpected decode result: %+v", decoded)
		}
	})
}

func TestStatus(t *testing.T) {
	track := &models.Track{
		ID:         "t1",
		Name:       "Pale Blue Eyes",
		Artists:    []string{"The Velvet Underground"},
		DurationMS: 341000,
	}

	t.Run("Playing", func(t *testing.T) {
		output := string(StatusToText(Status{
			State:      "playing",
			Track:      track,
			PositionMS: 61000,
			DurationMS: 341000,
			IsPlaying:  true,
			IsShuffle:  true,
			RepeatMode: models.RepeatQueue,
			DeviceName: "Phone",
		}))

		for _, want := range []string{"Playing: Pale Blue Eyes", "The Velvet Underground", "1:01 / 5:41", "shuffle", "repeat queue", "on Phone"} {
			if !strings.Contains(output, want) {
				t.Errorf("missing %q in output:\n%s", want, output)
			}
		}
	})

	t.Run("Paused Without Flags", func(t *testing.T) {
		output := string(StatusToText(Status{
			State:      "paused",
			Track:      track,
			DurationMS: 341000,
			RepeatMode: models.RepeatOff,
		}))

		if !strings.Contains(output, "Paused: Pale Blue Eyes") {
			t.Errorf("unexpected output: %s", output)
		}
		if strings.Contains(output, "[") {
			t.Errorf("expected no flag block, got: %s", output)
		}
	})

	t.Run("Idle", func(t *testing.T) {
		output := string(StatusToText(Status{State: "idle"}))
		if !strings.Contains(output, "Nothing playing (idle)") {
			t.Errorf("unexpected output: %s", output)
		}
	})

	t.Run("JSON Round Trip", func(t *testing.T) {
		data, err := StatusToJSON(Status{State: "playing", Track: track, IsPlaying: true})
		if err != nil {
			t.Fatalf("StatusToJSON failed: %v", err)
		}
		var decoded Status
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Track == nil || decoded.Track.Name != track.Name {
			t.Errorf("unexpected decode result: %+v", decoded)
		}
	})
}

func TestQueueToText(t *testing.T) {
	queue := []models.Track{
		{Name: "One", Artists: []string{"A"}, DurationMS: 60000},
		{Name: "Two", Artists: []string{"B"}, DurationMS: 120000},
		{Name: "Three", DurationMS: 180000},
	}

	output := string(QueueToText(queue, 1))
	lines := strings.Split(strings.TrimRight(output, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[1], ">") {
		t.Errorf("expected current entry marked, got: %s", lines[1])
	}
	if !strings.Contains(lines[0], "A - One") {
		t.Errorf("expected artist prefix, got: %s", lines[0])
	}
	if !strings.Contains(lines[2], "Three") {
		t.Errorf("expected artist-less entry rendered, got: %s", lines[2])
	}

	if got := string(QueueToText(nil, 0)); !strings.Contains(got, "Queue is empty") {
		t.Errorf("unexpected empty output: %s", got)
	}
}
