package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// poller fetches the provider playback state on a fixed interval and
// delivers normalized status reports to the single subscribed observer.
//
// One goroutine runs per poller. A revoked-token failure halts polling
// silently; the next successful refresh on the owning adapter revives it.
// Suspension skips ticks without touching the goroutine, so resuming never
// replays a backlog.
type poller struct {
	provider services.Provider
	interval time.Duration
	logger   *log.Logger

	mu        sync.Mutex
	observer  StatusObserver
	suspended bool
	halted    bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func newPoller(provider services.Provider, interval time.Duration, logger *log.Logger) *poller {
	return &poller{
		provider: provider,
		interval: interval,
		logger:   logger,
	}
}

// subscribe attaches the observer and starts the loop on first use.
func (p *poller) subscribe(observer StatusObserver) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.observer != nil {
		return fmt.Errorf("%w: a status observer is already attached", shared.ErrInvalidInput)
	}
	p.observer = observer

	if p.done == nil {
		ctx, cancel := context.WithCancel(context.Background())
		p.cancel = cancel
		p.done = make(chan struct{})
		go p.run(ctx, p.done)
	}
	return nil
}

func (p *poller) unsubscribe() {
	p.mu.Lock()
	p.observer = nil
	p.mu.Unlock()
}

func (p *poller) suspend() {
	p.mu.Lock()
	p.suspended = true
	p.mu.Unlock()
}

func (p *poller) resume() {
	p.mu.Lock()
	p.suspended = false
	p.mu.Unlock()
}

// revive clears a revoked-token halt after credentials are refreshed.
func (p *poller) revive() {
	p.mu.Lock()
	p.halted = false
	p.mu.Unlock()
}

// stop cancels the loop and blocks until the goroutine exits.
func (p *poller) stop() {
	p.mu.Lock()
	cancel := p.cancel
	done := p.done
	p.cancel = nil
	p.done = nil
	p.observer = nil
	p.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (p *poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *poller) poll(ctx context.Context) {
	p.mu.Lock()
	observer := p.observer
	skip := p.suspended || p.halted || observer == nil
	p.mu.Unlock()
	if skip {
		return
	}

	state, err := p.provider.PlaybackState(ctx)
	if err != nil {
		if shared.IsTokenRevoked(err) {
			// Halt quietly. The next explicit user action runs the
			// normal retry-on-expiry path and revives the loop.
			p.mu.Lock()
			p.halted = true
			p.mu.Unlock()
			p.logger.Debug("polling halted on revoked token")
			return
		}
		p.logger.Debug("status poll failed", "err", err)
		return
	}
	if state == nil {
		return
	}

	observer.OnStatus(normalizeStatus(state))
}

// normalizeStatus derives the status report the session consumes,
// including the finished flag.
func normalizeStatus(state *services.PlaybackState) models.PlaybackStatus {
	finished := !state.IsPlaying &&
		state.DurationMS > 0 &&
		state.ProgressMS >= state.DurationMS-finishSlackMS
	return models.PlaybackStatus{
		PositionMillis: state.ProgressMS,
		DurationMillis: state.DurationMS,
		IsPlaying:      state.IsPlaying,
		DidJustFinish:  finished,
	}
}
