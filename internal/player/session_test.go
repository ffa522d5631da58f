package player

import (
	"context"
	"io"
	"math/rand"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	itesting "github.com/hwi0-02/Stonetify-sub000/internal/testing"
)

// stubCommander records commands without touching any provider.
type stubCommander struct {
	mu       sync.Mutex
	calls    []string
	loaded   []models.Track
	seeks    []int64
	loadErr  error
	playErr  error
	seekErr  error
	observer StatusObserver
}

func (c *stubCommander) record(name string) {
	c.mu.Lock()
	c.calls = append(c.calls, name)
	c.mu.Unlock()
}

func (c *stubCommander) Load(ctx context.Context, track models.Track, autoPlay bool, deviceID string) error {
	c.record("load")
	c.mu.Lock()
	c.loaded = append(c.loaded, track)
	c.mu.Unlock()
	return c.loadErr
}

func (c *stubCommander) Play(ctx context.Context) error {
	c.record("play")
	return c.playErr
}

func (c *stubCommander) Pause(ctx context.Context) error {
	c.record("pause")
	return nil
}

func (c *stubCommander) Stop(ctx context.Context) error {
	c.record("stop")
	return nil
}

func (c *stubCommander) Seek(ctx context.Context, positionMS int64) error {
	c.record("seek")
	c.mu.Lock()
	c.seeks = append(c.seeks, positionMS)
	c.mu.Unlock()
	return c.seekErr
}

func (c *stubCommander) SetVolume(ctx context.Context, percent int) error {
	c.record("volume")
	return nil
}

func (c *stubCommander) Subscribe(observer StatusObserver) error {
	c.mu.Lock()
	c.observer = observer
	c.mu.Unlock()
	return nil
}

func (c *stubCommander) Unsubscribe() { c.record("unsubscribe") }

func (c *stubCommander) SuspendPolling() { c.record("suspend") }

func (c *stubCommander) ResumePolling() { c.record("resume") }

func (c *stubCommander) Dispose() { c.record("dispose") }

func (c *stubCommander) callCount(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, call := range c.calls {
		if call == name {
			n++
		}
	}
	return n
}

func (c *stubCommander) lastLoaded() (models.Track, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.loaded) == 0 {
		return models.Track{}, false
	}
	return c.loaded[len(c.loaded)-1], true
}

func testQueue(n int) []models.Track {
	queue := make([]models.Track, n)
	for i := range queue {
		id := string(rune('a' + i))
		queue[i] = models.Track{
			ID:         "track-" + id,
			Name:       "Track " + id,
			URI:        "spotify:track:000000000000000000000" + id,
			DurationMS: 180000,
			PreviewURL: "https://preview/" + id,
		}
	}
	return queue
}

func newTestSession(t *testing.T, commander Commander, opts SessionOptions) *Session {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.TickInterval == 0 {
		opts.TickInterval = time.Hour
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	opts.Premium = true
	session, err := NewSession("user-1", commander, nil, opts)
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	t.Cleanup(session.Close)
	return session
}

func TestReplaceQueue(t *testing.T) {
	t.Run("Index In Bounds", func(t *testing.T) {
		s := newTestSession(t, &stubCommander{}, SessionOptions{})
		queue := testQueue(3)

		if err := s.ReplaceQueue(queue, 3); err == nil {
			t.Error("expected out-of-range index rejected")
		}
		if err := s.ReplaceQueue(queue, -1); err == nil {
			t.Error("expected negative index rejected")
		}
		if err := s.ReplaceQueue(queue, 1); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		track := s.CurrentTrack()
		if track == nil || track.ID != queue[1].ID {
			t.Errorf("expected current track %s, got %+v", queue[1].ID, track)
		}
	})

	t.Run("Empty Queue Empties Session", func(t *testing.T) {
		s := newTestSession(t, &stubCommander{}, SessionOptions{})
		if err := s.ReplaceQueue(testQueue(3), 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := s.ReplaceQueue(nil, 0); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.CurrentTrack() != nil {
			t.Error("expected no current track")
		}
		if s.State() != StateIdle {
			t.Errorf("expected idle, got %s", s.State())
		}
	})
}

func TestShuffle(t *testing.T) {
	t.Run("Round Trip Restores Order And Index", func(t *testing.T) {
		s := newTestSession(t, &stubCommander{}, SessionOptions{})
		queue := testQueue(5)
		if err := s.ReplaceQueue(queue, 2); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		playing := s.CurrentTrack().ID

		s.ToggleShuffle()
		if !s.IsShuffle() {
			t.Fatal("expected shuffle on")
		}
		shuffled, index := s.Queue()
		if index != 0 {
			t.Errorf("expected current track pinned at 0, index %d", index)
		}
		if shuffled[0].ID != playing {
			t.Errorf("expected %s at index 0, got %s", playing, shuffled[0].ID)
		}

		s.ToggleShuffle()
		if s.IsShuffle() {
			t.Fatal("expected shuffle off")
		}
		restored, index := s.Queue()
		for i, track := range queue {
			if restored[i].ID != track.ID {
				t.Fatalf("order not restored at %d: %s vs %s", i, restored[i].ID, track.ID)
			}
		}
		if index != 2 {
			t.Errorf("expected index back at 2, got %d", index)
		}
		if s.CurrentTrack().ID != playing {
			t.Errorf("expected playing track unchanged, got %s", s.CurrentTrack().ID)
		}
	})

	t.Run("Shuffle Keeps Index In Bounds", func(t *testing.T) {
		for n := 1; n <= 5; n++ {
			s := newTestSession(t, &stubCommander{}, SessionOptions{})
			if err := s.ReplaceQueue(testQueue(n), n-1); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			s.ToggleShuffle()
			queue, index := s.Queue()
			if index < 0 || index >= len(queue) {
				t.Fatalf("index %d out of bounds for %d tracks", index, n)
			}
			s.ToggleShuffle()
			queue, index = s.Queue()
			if index < 0 || index >= len(queue) {
				t.Fatalf("index %d out of bounds after restore for %d tracks", index, n)
			}
			s.Close()
		}
	})
}

func TestNextTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("Advances", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		queue := testQueue(3)
		s.ReplaceQueue(queue, 0)

		if err := s.NextTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track, ok := commander.lastLoaded(); !ok || track.ID != queue[1].ID {
			t.Errorf("expected %s loaded, got %+v", queue[1].ID, track)
		}
	})

	t.Run("Repeat Track Replays Same Index", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		queue := testQueue(3)
		s.ReplaceQueue(queue, 1)
		s.SetRepeat(models.RepeatTrack)

		if err := s.NextTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track, _ := commander.lastLoaded(); track.ID != queue[1].ID {
			t.Errorf("expected same track replayed, got %s", track.ID)
		}
	})

	t.Run("Repeat Queue Wraps", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		queue := testQueue(3)
		s.ReplaceQueue(queue, 2)
		s.SetRepeat(models.RepeatQueue)

		if err := s.NextTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track, _ := commander.lastLoaded(); track.ID != queue[0].ID {
			t.Errorf("expected wrap to first track, got %s", track.ID)
		}
	})

	t.Run("Queue End Stops", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(3), 2)

		if err := s.NextTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if s.State() != StateStopped {
			t.Errorf("expected stopped at queue end, got %s", s.State())
		}
		if commander.callCount("load") != 0 {
			t.Error("expected no load at queue end")
		}
	})

	t.Run("Non-Premium Skips Preview-Less Tracks", func(t *testing.T) {
		commander := &stubCommander{}
		queue := testQueue(4)
		queue[1].PreviewURL = ""
		queue[2].PreviewURL = ""

		opts := SessionOptions{Logger: shared.NewLogger(io.Discard), TickInterval: time.Hour, Rand: rand.New(rand.NewSource(1))}
		s, err := NewSession("user-1", commander, nil, opts)
		if err != nil {
			t.Fatalf("failed to build session: %v", err)
		}
		defer s.Close()
		s.ReplaceQueue(queue, 0)

		if err := s.NextTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track, _ := commander.lastLoaded(); track.ID != queue[3].ID {
			t.Errorf("expected skip to %s, got %s", queue[3].ID, track.ID)
		}
	})

	t.Run("No Playable Tracks Surfaces", func(t *testing.T) {
		commander := &stubCommander{}
		queue := testQueue(3)
		for i := range queue {
			queue[i].PreviewURL = ""
		}

		opts := SessionOptions{Logger: shared.NewLogger(io.Discard), TickInterval: time.Hour, Rand: rand.New(rand.NewSource(1))}
		s, err := NewSession("user-1", commander, nil, opts)
		if err != nil {
			t.Fatalf("failed to build session: %v", err)
		}
		defer s.Close()
		s.ReplaceQueue(queue, 0)
		s.SetRepeat(models.RepeatQueue)

		err = s.NextTrack(ctx)
		if err == nil {
			t.Fatal("expected no-playable-tracks error")
		}
		if s.State() != StateError {
			t.Errorf("expected error state, got %s", s.State())
		}
	})
}

func TestPreviousTrack(t *testing.T) {
	ctx := context.Background()

	t.Run("Late Position Restarts Track", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(3), 1)
		s.mu.Lock()
		s.positionMS = 5000
		s.mu.Unlock()

		if err := s.PreviousTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commander.callCount("seek") != 1 || commander.seeks[0] != 0 {
			t.Errorf("expected a seek to 0, calls %v seeks %v", commander.calls, commander.seeks)
		}
		if _, index := s.Queue(); index != 1 {
			t.Errorf("expected index unchanged, got %d", index)
		}
	})

	t.Run("Early Position Moves Back", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		queue := testQueue(3)
		s.ReplaceQueue(queue, 1)
		s.mu.Lock()
		s.positionMS = 1000
		s.mu.Unlock()

		if err := s.PreviousTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if track, _ := commander.lastLoaded(); track.ID != queue[0].ID {
			t.Errorf("expected prior track loaded, got %s", track.ID)
		}
	})

	t.Run("First Track Restarts", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(3), 0)
		s.mu.Lock()
		s.positionMS = 1000
		s.mu.Unlock()

		if err := s.PreviousTrack(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commander.callCount("load") != 0 {
			t.Error("expected no track change at index 0")
		}
	})
}

func TestReconciliation(t *testing.T) {
	playing := func(s *Session, localMS int64) {
		s.mu.Lock()
		s.state = StatePlaying
		s.isPlaying = true
		s.positionMS = localMS
		s.mu.Unlock()
	}

	tc := []struct {
		name   string
		local  int64
		server int64
		want   int64
	}{
		{"large desync snaps", 13500, 10000, 10000},
		{"mid desync nudges 30 percent", 11200, 10000, 10840},
		{"small desync untouched", 10400, 10000, 10400},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession(t, &stubCommander{}, SessionOptions{})
			s.ReplaceQueue(testQueue(1), 0)
			playing(s, tt.local)

			s.OnStatus(models.PlaybackStatus{
				PositionMillis: tt.server,
				DurationMillis: 180000,
				IsPlaying:      true,
			})

			if got, _ := s.Position(); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}

	t.Run("Paused Snapshot Does Not Reconcile", func(t *testing.T) {
		s := newTestSession(t, &stubCommander{}, SessionOptions{})
		s.ReplaceQueue(testQueue(1), 0)
		playing(s, 13500)

		s.OnStatus(models.PlaybackStatus{PositionMillis: 10000, DurationMillis: 180000, IsPlaying: false})
		if got, _ := s.Position(); got != 13500 {
			t.Errorf("expected local position kept while paused, got %d", got)
		}
	})
}

func TestSeekLifecycle(t *testing.T) {
	ctx := context.Background()

	t.Run("Drag Suppresses Ticks And Snapshots", func(t *testing.T) {
		s := newTestSession(t, &stubCommander{}, SessionOptions{})
		s.ReplaceQueue(testQueue(1), 0)
		s.mu.Lock()
		s.state = StatePlaying
		s.isPlaying = true
		s.positionMS = 60000
		s.lastTick = time.Now()
		s.mu.Unlock()

		frozen := s.BeginSeek()
		if frozen != 60000 {
			t.Errorf("expected frozen value 60000, got %d", frozen)
		}

		s.tick(time.Now().Add(time.Second))
		s.OnStatus(models.PlaybackStatus{PositionMillis: 90000, DurationMillis: 180000, IsPlaying: true})

		if got, _ := s.Position(); got != 60000 {
			t.Errorf("expected position frozen during drag, got %d", got)
		}
	})

	t.Run("Outstanding Target Confirmed Within Window", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(1), 0)
		s.mu.Lock()
		s.state = StatePlaying
		s.isPlaying = true
		s.mu.Unlock()

		if err := s.CompleteSeek(ctx, 90000); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commander.seeks[0] != 90000 {
			t.Errorf("expected adapter seek to 90000, got %d", commander.seeks[0])
		}

		// A stale snapshot far from the target must not drag the
		// position back.
		s.OnStatus(models.PlaybackStatus{PositionMillis: 42000, DurationMillis: 180000, IsPlaying: true})
		if got, _ := s.Position(); got != 90000 {
			t.Errorf("expected optimistic position held, got %d", got)
		}

		// A snapshot inside the confirmation window clears the target.
		s.OnStatus(models.PlaybackStatus{PositionMillis: 90400, DurationMillis: 180000, IsPlaying: true})
		if got, _ := s.Position(); got != 90400 {
			t.Errorf("expected confirmed server position, got %d", got)
		}

		// Reconciliation applies again after confirmation.
		s.OnStatus(models.PlaybackStatus{PositionMillis: 95000, DurationMillis: 180000, IsPlaying: true})
		if got, _ := s.Position(); got != 95000 {
			t.Errorf("expected snap after confirmation, got %d", got)
		}
	})

	t.Run("Failed Seek Reverts To Server Position", func(t *testing.T) {
		commander := &stubCommander{seekErr: shared.NewCodedError(shared.CodeTransient, "seek failed", nil)}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(1), 0)
		s.mu.Lock()
		s.state = StatePlaying
		s.isPlaying = true
		s.positionMS = 42000
		s.serverPositionMS = 41000
		s.mu.Unlock()

		if err := s.CompleteSeek(ctx, 90000); err == nil {
			t.Fatal("expected seek error")
		}
		if got, _ := s.Position(); got != 41000 {
			t.Errorf("expected revert to last server-confirmed 41000, got %d", got)
		}
		s.mu.Lock()
		target := s.seekTargetMS
		s.mu.Unlock()
		if target != -1 {
			t.Errorf("expected outstanding target cleared, got %d", target)
		}
	})

	t.Run("Seek Clamps To Duration", func(t *testing.T) {
		commander := &stubCommander{}
		s := newTestSession(t, commander, SessionOptions{})
		s.ReplaceQueue(testQueue(1), 0)

		if err := s.CompleteSeek(ctx, 999999999); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if commander.seeks[0] != 180000 {
			t.Errorf("expected clamp to duration, got %d", commander.seeks[0])
		}
	})
}

func TestLocalTick(t *testing.T) {
	s := newTestSession(t, &stubCommander{}, SessionOptions{})
	s.ReplaceQueue(testQueue(1), 0)

	base := time.Now()
	s.mu.Lock()
	s.state = StatePlaying
	s.isPlaying = true
	s.positionMS = 1000
	s.lastTick = base
	s.mu.Unlock()

	s.tick(base.Add(200 * time.Millisecond))
	if got, _ := s.Position(); got != 1200 {
		t.Errorf("expected 1200 after one tick, got %d", got)
	}

	// Clamp at duration.
	s.mu.Lock()
	s.positionMS = 179950
	s.mu.Unlock()
	s.tick(base.Add(400 * time.Millisecond))
	if got, _ := s.Position(); got != 180000 {
		t.Errorf("expected clamp to duration, got %d", got)
	}

	// Paused sessions do not advance.
	s.mu.Lock()
	s.state = StatePaused
	s.isPlaying = false
	s.positionMS = 5000
	s.mu.Unlock()
	s.tick(base.Add(600 * time.Millisecond))
	if got, _ := s.Position(); got != 5000 {
		t.Errorf("expected paused position unchanged, got %d", got)
	}
}

func TestTrackEnd(t *testing.T) {
	commander := &stubCommander{}
	history := &itesting.MockHistory{NextID: "h-1"}
	opts := SessionOptions{
		Premium:      true,
		Logger:       shared.NewLogger(io.Discard),
		TickInterval: time.Hour,
		Rand:         rand.New(rand.NewSource(1)),
	}
	s, err := NewSession("user-1", commander, history, opts)
	if err != nil {
		t.Fatalf("failed to build session: %v", err)
	}
	defer s.Close()

	queue := testQueue(2)
	s.ReplaceQueue(queue, 0)
	if err := s.Play(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history.Started) != 1 {
		t.Fatalf("expected history started on load, got %d", len(history.Started))
	}

	s.OnStatus(models.PlaybackStatus{
		PositionMillis: 179800,
		DurationMillis: 180000,
		IsPlaying:      false,
		DidJustFinish:  true,
	})

	if len(history.Completed) != 1 || history.Completed[0] != "h-1" {
		t.Errorf("expected history h-1 completed, got %v", history.Completed)
	}
	if track, _ := commander.lastLoaded(); track.ID != queue[1].ID {
		t.Errorf("expected auto-advance to %s, got %s", queue[1].ID, track.ID)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	queue := testQueue(3)

	s := newTestSession(t, &stubCommander{}, SessionOptions{SnapshotPath: path})
	s.ReplaceQueue(queue, 1)
	s.SetRepeat(models.RepeatQueue)
	s.mu.Lock()
	s.positionMS = 42000
	s.mu.Unlock()

	if err := s.SaveSnapshot(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s.Close()

	restored := newTestSession(t, &stubCommander{}, SessionOptions{SnapshotPath: path})
	if err := restored.RestoreSnapshot(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if restored.State() != StatePaused {
		t.Errorf("expected paused after restore, got %s", restored.State())
	}
	if restored.IsPlaying() {
		t.Error("restore must never auto-resume")
	}
	got, index := restored.Queue()
	if len(got) != 3 || index != 1 {
		t.Fatalf("expected 3 tracks at index 1, got %d at %d", len(got), index)
	}
	if position, _ := restored.Position(); position != 42000 {
		t.Errorf("expected position 42000, got %d", position)
	}
	if restored.Repeat() != models.RepeatQueue {
		t.Errorf("expected repeat queue, got %s", restored.Repeat())
	}
}

func TestSwapAdapter(t *testing.T) {
	old := &stubCommander{}
	s := newTestSession(t, old, SessionOptions{})

	next := &stubCommander{}
	if err := s.SwapAdapter(next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if old.callCount("dispose") != 1 {
		t.Error("expected old adapter disposed before swap")
	}
	next.mu.Lock()
	attached := next.observer != nil
	next.mu.Unlock()
	if !attached {
		t.Error("expected session subscribed to the new adapter")
	}
}
