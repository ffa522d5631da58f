// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
)

// MockProvider is a scriptable test double for [services.Provider].
//
// Each operation returns the next queued error (nil when the queue is
// empty) and records the call in Calls for assertion.
type MockProvider struct {
	mu    sync.Mutex
	Calls []string

	DeviceList []models.Device
	State      *services.PlaybackState
	Profile    *services.UserProfile
	Token      string

	errs map[string][]error
}

// QueueError scripts the next outcomes for the named operation, consumed
// in order.
func (m *MockProvider) QueueError(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errs == nil {
		m.errs = make(map[string][]error)
	}
	m.errs[op] = append(m.errs[op], errs...)
}

func (m *MockProvider) next(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
	queue := m.errs[op]
	if len(queue) == 0 {
		return nil
	}
	err := queue[0]
	m.errs[op] = queue[1:]
	return err
}

// CallCount returns how many times op was invoked.
func (m *MockProvider) CallCount(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *MockProvider) Authorize(token string) {
	m.mu.Lock()
	m.Token = token
	m.mu.Unlock()
}

func (m *MockProvider) Devices(ctx context.Context) ([]models.Device, error) {
	if err := m.next("devices"); err != nil {
		return nil, err
	}
	return m.DeviceList, nil
}

func (m *MockProvider) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	return m.next("transfer")
}

func (m *MockProvider) Play(ctx context.Context, deviceID string, uris []string, positionMS int64) error {
	return m.next("play")
}

func (m *MockProvider) Resume(ctx context.Context) error {
	return m.next("resume")
}

func (m *MockProvider) Pause(ctx context.Context) error {
	return m.next("pause")
}

func (m *MockProvider) Seek(ctx context.Context, positionMS int64) error {
	return m.next("seek")
}

func (m *MockProvider) SetVolume(ctx context.Context, percent int) error {
	return m.next("volume")
}

func (m *MockProvider) PlaybackState(ctx context.Context) (*services.PlaybackState, error) {
	if err := m.next("state"); err != nil {
		return nil, err
	}
	return m.State, nil
}

func (m *MockProvider) UserProfile(ctx context.Context) (*services.UserProfile, error) {
	if err := m.next("profile"); err != nil {
		return nil, err
	}
	if m.Profile == nil {
		return &services.UserProfile{ID: "mock", Product: "premium"}, nil
	}
	return m.Profile, nil
}

// MockRefresher is a test double for [services.Refresher].
type MockRefresher struct {
	mu     sync.Mutex
	Count  int
	Result *services.RefreshResult
	Err    error
}

func (m *MockRefresher) Refresh(ctx context.Context, userID string) (*services.RefreshResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Count++
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Result != nil {
		return m.Result, nil
	}
	return &services.RefreshResult{AccessToken: "fresh-token", IsPremium: true}, nil
}

// MockHistory records history correlation calls.
type MockHistory struct {
	mu        sync.Mutex
	Started   []string
	Completed []string
	NextID    string
	Err       error
}

func (m *MockHistory) Start(ctx context.Context, userID string, track models.Track, source string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return "", m.Err
	}
	id := m.NextID
	if id == "" {
		id = "history-" + track.ID
	}
	m.Started = append(m.Started, id)
	return id, nil
}

func (m *MockHistory) Complete(ctx context.Context, userID, historyID string, positionMS, durationMS int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Completed = append(m.Completed, historyID)
	return m.Err
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// SeqRoundTripper returns queued responses in order, repeating the last one.
type SeqRoundTripper struct {
	mu        sync.Mutex
	responses []*http.Response
	Requests  []*http.Request
}

func NewSeqRoundTripper(responses ...*http.Response) *SeqRoundTripper {
	return &SeqRoundTripper{responses: responses}
}

func (s *SeqRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Requests = append(s.Requests, r)
	if len(s.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := s.responses[0]
	if len(s.responses) > 1 {
		s.responses = s.responses[1:]
	}
	return resp, nil
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
