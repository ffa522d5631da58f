package player

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// State is the playback session lifecycle state.
type State string

const (
	StateIdle    State = "idle"
	StateLoading State = "loading"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateStopped State = "stopped"
	StateError   State = "error"
)

// historySourceQueue tags history entries started from the session queue.
const historySourceQueue = "queue"

// SessionOptions tunes a [Session]. Zero values fall back to defaults.
type SessionOptions struct {
	// Premium grants full playback; non-premium sessions skip tracks
	// lacking a preview source.
	Premium      bool
	TickInterval time.Duration
	Reconcile    ReconcileParams
	SnapshotPath string
	Logger       *log.Logger
	Clock        shared.Clock
	// Rand is the shuffle source; nil uses a time-seeded one.
	Rand *rand.Rand
}

// Session is the client playback state machine for one user. It owns the
// queue, shuffle/repeat, the locally ticked position clock, and the seek
// arbitration against the adapter's status stream.
//
// One Session serves one user; it subscribes itself as the adapter's
// status observer and must be closed before a replacement is built.
type Session struct {
	userID  string
	adapter Commander
	history services.History
	logger  *log.Logger
	clock   shared.Clock
	rng     *rand.Rand

	params       ReconcileParams
	tickInterval time.Duration
	snapshotPath string

	mu               sync.Mutex
	state            State
	current          *models.Track
	queue            []models.Track
	queueIndex       int
	originalQueue    []models.Track
	repeatMode       models.RepeatMode
	isShuffle        bool
	positionMS       int64
	durationMS       int64
	isPlaying        bool
	seekInProgress   bool
	seekTargetMS     int64 // -1 when no seek is outstanding
	serverPositionMS int64 // last server-confirmed position
	historyID        string
	premium          bool
	lastTick         time.Time

	tickCancel context.CancelFunc
	tickDone   chan struct{}
}

// NewSession builds the state machine on top of adapter and subscribes to
// its status stream. history may be nil to skip correlation.
func NewSession(userID string, adapter Commander, history services.History, opts SessionOptions) (*Session, error) {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.Reconcile == (ReconcileParams{}) {
		opts.Reconcile = defaultReconcileParams()
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Clock == nil {
		opts.Clock = shared.SystemClock
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	s := &Session{
		userID:       userID,
		adapter:      adapter,
		history:      history,
		logger:       shared.WithLogger(opts.Logger, "component", "session", "user", userID),
		clock:        opts.Clock,
		rng:          opts.Rand,
		params:       opts.Reconcile,
		tickInterval: opts.TickInterval,
		snapshotPath: opts.SnapshotPath,
		state:        StateIdle,
		repeatMode:   models.RepeatOff,
		seekTargetMS: -1,
		premium:      opts.Premium,
	}

	if err := adapter.Subscribe(s); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.tickCancel = cancel
	s.tickDone = make(chan struct{})
	go s.runTicker(ctx, s.tickDone)

	return s, nil
}

// Close stops the local clock and disposes the adapter synchronously.
func (s *Session) Close() {
	if s.tickCancel != nil {
		s.tickCancel()
		<-s.tickDone
		s.tickCancel = nil
	}
	s.adapter.Unsubscribe()
	s.adapter.Dispose()
}

// SwapAdapter disposes the current adapter and attaches next, keeping the
// session state intact. Only one poll loop ever runs for the user.
func (s *Session) SwapAdapter(next Commander) error {
	s.adapter.Unsubscribe()
	s.adapter.Dispose()
	if err := next.Subscribe(s); err != nil {
		return err
	}
	s.mu.Lock()
	s.adapter = next
	s.mu.Unlock()
	return nil
}

// Suspend halts status polling, for background transitions. Idempotent.
func (s *Session) Suspend() {
	s.adapter.SuspendPolling()
}

// Resume restarts status polling after a suspension. Idempotent.
func (s *Session) Resume() {
	s.adapter.ResumePolling()
}

// Play starts or resumes playback. With a cued queue and no playback under
// way it loads the current track; from paused it resumes.
func (s *Session) Play(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.current == nil:
		s.mu.Unlock()
		return shared.ErrNoPlayableTracks
	case s.state == StatePaused:
		s.mu.Unlock()
		if err := s.adapter.Play(ctx); err != nil {
			return s.fail(err)
		}
		s.mu.Lock()
		s.state = StatePlaying
		s.isPlaying = true
		s.lastTick = s.clock()
		s.mu.Unlock()
		return nil
	default:
		index := s.queueIndex
		s.mu.Unlock()
		return s.loadIndex(ctx, index, true)
	}
}

// Pause halts playback without losing position.
func (s *Session) Pause(ctx context.Context) error {
	if err := s.adapter.Pause(ctx); err != nil {
		return s.fail(err)
	}
	s.mu.Lock()
	if s.state == StatePlaying || s.state == StateLoading {
		s.state = StatePaused
	}
	s.isPlaying = false
	s.mu.Unlock()
	return nil
}

// Stop tears the session down: playback halts, the queue empties, and the
// current track clears.
func (s *Session) Stop(ctx context.Context) error {
	err := s.adapter.Stop(ctx)

	s.mu.Lock()
	s.queue = nil
	s.originalQueue = nil
	s.queueIndex = 0
	s.current = nil
	s.isShuffle = false
	s.positionMS = 0
	s.durationMS = 0
	s.isPlaying = false
	s.seekTargetMS = -1
	s.seekInProgress = false
	s.historyID = ""
	s.state = StateStopped
	s.mu.Unlock()

	if err != nil {
		return s.fail(err)
	}
	return nil
}

// NextTrack advances the queue per the repeat mode. Non-premium sessions
// skip unplayable entries, bounded by one pass over the queue. At the end
// of a non-repeating queue playback stops in place.
func (s *Session) NextTrack(ctx context.Context) error {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return shared.ErrNoPlayableTracks
	}

	next, ok := s.advanceIndexLocked()
	if !ok {
		s.mu.Unlock()
		if err := s.adapter.Pause(ctx); err != nil {
			s.logger.Debug("pause at queue end failed", "err", err)
		}
		s.mu.Lock()
		s.state = StateStopped
		s.isPlaying = false
		s.mu.Unlock()
		return nil
	}

	playable, err := s.findPlayableLocked(next)
	if err != nil {
		s.state = StateError
		s.isPlaying = false
		s.mu.Unlock()
		return err
	}
	s.mu.Unlock()

	return s.loadIndex(ctx, playable, true)
}

// PreviousTrack restarts the current track when more than three seconds
// have elapsed, otherwise moves to the prior queue entry when one exists.
func (s *Session) PreviousTrack(ctx context.Context) error {
	s.mu.Lock()
	if len(s.queue) == 0 {
		s.mu.Unlock()
		return shared.ErrNoPlayableTracks
	}
	restart := s.positionMS > previousRestartThresholdMS || s.queueIndex == 0
	prior := s.queueIndex - 1
	s.mu.Unlock()

	if restart {
		return s.CompleteSeek(ctx, 0)
	}
	return s.loadIndex(ctx, prior, true)
}

// SetVolume forwards the volume change to the adapter.
func (s *Session) SetVolume(ctx context.Context, percent int) error {
	return s.adapter.SetVolume(ctx, percent)
}

// BeginSeek freezes the displayed position for a drag gesture and
// suppresses both the local ticker and snapshot reconciliation.
func (s *Session) BeginSeek() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seekInProgress = true
	return s.positionMS
}

// CompleteSeek commits a seek: the position is set optimistically and an
// outstanding target is armed, cleared only once a server snapshot lands
// within the confirmation window. On failure the displayed position
// reverts to the last server-confirmed value.
func (s *Session) CompleteSeek(ctx context.Context, valueMS int64) error {
	s.mu.Lock()
	valueMS = clampPosition(valueMS, s.durationMS)
	s.positionMS = valueMS
	s.seekTargetMS = valueMS
	s.seekInProgress = false
	s.lastTick = s.clock()
	s.mu.Unlock()

	if err := s.adapter.Seek(ctx, valueMS); err != nil {
		s.mu.Lock()
		s.seekTargetMS = -1
		s.positionMS = clampPosition(s.serverPositionMS, s.durationMS)
		s.mu.Unlock()
		return err
	}
	return nil
}

// loadIndex points the session at queue[index] and loads it through the
// adapter. The session sits in loading until the first status report or
// an explicit failure.
func (s *Session) loadIndex(ctx context.Context, index int, autoPlay bool) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.queue) {
		s.mu.Unlock()
		return shared.ErrInvalidArgument
	}
	s.setCurrentLocked(index)
	track := *s.current
	s.state = StateLoading
	s.isPlaying = false
	s.historyID = ""
	s.mu.Unlock()

	if err := s.adapter.Load(ctx, track, autoPlay, ""); err != nil {
		return s.fail(err)
	}

	if s.history != nil {
		id, err := s.history.Start(ctx, s.userID, track, historySourceQueue)
		if err != nil {
			s.logger.Debug("history start failed", "track", track.ID, "err", err)
		} else {
			s.mu.Lock()
			s.historyID = id
			s.mu.Unlock()
		}
	}
	return nil
}

// fail transitions to the error state and clears the playing flag.
func (s *Session) fail(err error) error {
	s.mu.Lock()
	s.state = StateError
	s.isPlaying = false
	s.mu.Unlock()
	s.logger.Debug("playback operation failed", "code", shared.ErrorCode(err), "err", err)
	return err
}

// OnStatus consumes a normalized status report from the adapter poll loop.
func (s *Session) OnStatus(status models.PlaybackStatus) {
	s.mu.Lock()

	if status.DurationMillis > 0 {
		s.durationMS = status.DurationMillis
	}
	s.serverPositionMS = status.PositionMillis

	if s.seekTargetMS >= 0 {
		// An outstanding seek wins over reconciliation until the server
		// confirms it landed.
		if absMS(status.PositionMillis-s.seekTargetMS) <= seekConfirmWindowMS {
			s.seekTargetMS = -1
			s.positionMS = clampPosition(status.PositionMillis, s.durationMS)
		}
	} else if !s.seekInProgress && status.IsPlaying {
		s.positionMS = reconcilePosition(s.positionMS, status.PositionMillis, s.params)
	}

	s.isPlaying = status.IsPlaying
	switch s.state {
	case StateLoading, StatePlaying, StatePaused:
		if status.IsPlaying {
			if s.state != StatePlaying {
				s.lastTick = s.clock()
			}
			s.state = StatePlaying
		} else {
			s.state = StatePaused
		}
	}

	finished := status.DidJustFinish && s.current != nil
	historyID := s.historyID
	positionMS := s.positionMS
	durationMS := s.durationMS
	if finished {
		s.historyID = ""
	}
	s.mu.Unlock()

	if finished {
		ctx := context.Background()
		if s.history != nil && historyID != "" {
			if err := s.history.Complete(ctx, s.userID, historyID, positionMS, durationMS); err != nil {
				s.logger.Debug("history complete failed", "history", historyID, "err", err)
			}
		}
		if err := s.NextTrack(ctx); err != nil {
			s.logger.Debug("auto-advance failed", "err", err)
		}
	}
}

// runTicker advances the local position clock by wall-clock delta on a
// fixed cadence while playback is live and no drag gesture is in flight.
func (s *Session) runTicker(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(s.clock())
		}
	}
}

func (s *Session) tick(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last := s.lastTick
	s.lastTick = now
	if s.state != StatePlaying || !s.isPlaying || s.seekInProgress || last.IsZero() {
		return
	}
	delta := now.Sub(last).Milliseconds()
	if delta <= 0 {
		return
	}
	s.positionMS = clampPosition(s.positionMS+delta, s.durationMS)
}

// Snapshot-style accessors for callers rendering the session.

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentTrack returns a copy of the playing track, nil when none.
func (s *Session) CurrentTrack() *models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil
	}
	track := *s.current
	return &track
}

// Queue returns a copy of the queue and the current index.
func (s *Session) Queue() ([]models.Track, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Track(nil), s.queue...), s.queueIndex
}

// Position returns the reconciled position and duration in milliseconds.
func (s *Session) Position() (positionMS, durationMS int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positionMS, s.durationMS
}

// IsPlaying reports whether playback is live.
func (s *Session) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isPlaying
}

// IsShuffle reports whether the queue is shuffled.
func (s *Session) IsShuffle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isShuffle
}

// Repeat returns the repeat mode.
func (s *Session) Repeat() models.RepeatMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repeatMode
}
