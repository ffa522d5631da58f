// Spotify API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultRateLimit = 5.0
)

var trackURIRegex = regexp.MustCompile(`^spotify:track:[a-zA-Z0-9]{22}$`)
var trackURLRegex = regexp.MustCompile(`(?:https?://)?open\.spotify\.com/track/([a-zA-Z0-9]{22})`)

// NewOAuthConfig builds the [oauth2.Config] for Spotify's authorization-code
// flow with the playback scopes the core needs.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"user-read-private",
			"user-read-playback-state",
			"user-modify-playback-state",
			"streaming",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}
}

// ValidateTrackURI rejects malformed track identifiers before any network
// call. Accepts spotify:track: URIs and open.spotify.com track URLs,
// returning the canonical URI form.
func ValidateTrackURI(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if trackURIRegex.MatchString(raw) {
		return raw, nil
	}
	if matches := trackURLRegex.FindStringSubmatch(raw); len(matches) > 1 {
		return "spotify:track:" + matches[1], nil
	}
	return "", shared.NewCodedError(shared.CodeValidation, fmt.Sprintf("not a track URI: %q", raw), shared.ErrInvalidInput)
}

// spotifyDevice mirrors the provider's device object.
type spotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

type spotifyDeviceList struct {
	Devices []spotifyDevice `json:"devices"`
}

type spotifyPlaybackItem struct {
	URI        string `json:"uri"`
	DurationMS int64  `json:"duration_ms"`
}

type spotifyPlaybackState struct {
	Device     *spotifyDevice       `json:"device"`
	ProgressMS int64                `json:"progress_ms"`
	IsPlaying  bool                 `json:"is_playing"`
	Item       *spotifyPlaybackItem `json:"item"`
}

type spotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Product     string `json:"product"` // premium, free, etc.
}

// spotifyError is the provider's error envelope.
type spotifyError struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
		Reason  string `json:"reason"`
	} `json:"error"`
}

// SpotifyPlayer implements [Provider] against the Spotify Web API.
//
// One instance serves one user session; the bearer token is swapped in
// place by the retry-on-expiry path. Requests are throttled by a shared
// limiter so polling and user commands together stay under the provider's
// rate budget.
type SpotifyPlayer struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *log.Logger

	mu          sync.RWMutex
	accessToken string
}

// NewSpotifyPlayer creates a playback client. A nil client falls back to
// [http.DefaultClient]; requestsPerSec <= 0 uses the default budget.
func NewSpotifyPlayer(client *http.Client, requestsPerSec float64, logger *log.Logger) *SpotifyPlayer {
	if client == nil {
		client = http.DefaultClient
	}
	if requestsPerSec <= 0 {
		requestsPerSec = defaultRateLimit
	}
	return &SpotifyPlayer{
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSec), 1),
		logger:     logger,
	}
}

// Authorize installs the bearer token used by subsequent calls.
func (s *SpotifyPlayer) Authorize(accessToken string) {
	s.mu.Lock()
	s.accessToken = accessToken
	s.mu.Unlock()
}

func (s *SpotifyPlayer) bearer() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// doRequest performs an authenticated request and normalizes failures to
// [shared.CodedError] values. A nil result skips body decoding.
func (s *SpotifyPlayer) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	token := s.bearer()
	if token == "" {
		return shared.NewCodedError(shared.CodeTokenRevoked, "no access token installed", shared.ErrAuthFailed)
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return shared.NewCodedError(shared.CodeTransient, "rate limiter interrupted", err)
	}

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, spotifyBaseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return shared.NewCodedError(shared.CodeTransient, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return s.normalizeError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// normalizeError maps provider failures onto the error taxonomy. A 401, or
// a body explicitly tagged as a revoked token, is the canonical signal for
// the retry-on-expiry path; everything else is ordinary.
func (s *SpotifyPlayer) normalizeError(resp *http.Response) error {
	var envelope spotifyError
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	message := envelope.Error.Message
	if message == "" {
		message = fmt.Sprintf("spotify API error: status %d", resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return shared.NewCodedError(shared.CodeTokenRevoked, message, shared.ErrAuthFailed)
	case strings.EqualFold(envelope.Error.Reason, "NO_ACTIVE_DEVICE"):
		return shared.NewCodedError(shared.CodeNoActiveDevice, message, nil)
	case resp.StatusCode == http.StatusNotFound && strings.Contains(strings.ToLower(message), "no active device"):
		return shared.NewCodedError(shared.CodeNoActiveDevice, message, nil)
	default:
		return shared.NewCodedError(shared.CodeTransient, message, shared.ErrAPIRequest)
	}
}

// Devices lists the user's playback devices.
func (s *SpotifyPlayer) Devices(ctx context.Context) ([]models.Device, error) {
	var list spotifyDeviceList
	if err := s.doRequest(ctx, http.MethodGet, "/me/player/devices", nil, &list); err != nil {
		return nil, err
	}

	devices := make([]models.Device, 0, len(list.Devices))
	for _, d := range list.Devices {
		devices = append(devices, models.Device{
			ID:       d.ID,
			Name:     d.Name,
			Type:     strings.ToLower(d.Type),
			IsActive: d.IsActive,
		})
	}
	return devices, nil
}

// TransferPlayback force-activates the given device as the output.
func (s *SpotifyPlayer) TransferPlayback(ctx context.Context, deviceID string, play bool) error {
	body := map[string]any{
		"device_ids": []string{deviceID},
		"play":       play,
	}
	return s.doRequest(ctx, http.MethodPut, "/me/player", body, nil)
}

// Play starts playback of the given track URIs on deviceID (optional).
func (s *SpotifyPlayer) Play(ctx context.Context, deviceID string, uris []string, positionMS int64) error {
	endpoint := "/me/player/play"
	if deviceID != "" {
		endpoint += "?device_id=" + deviceID
	}

	body := map[string]any{}
	if len(uris) > 0 {
		body["uris"] = uris
	}
	if positionMS > 0 {
		body["position_ms"] = positionMS
	}
	return s.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// Resume continues playback on the active device.
func (s *SpotifyPlayer) Resume(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/play", map[string]any{}, nil)
}

// Pause halts playback on the active device.
func (s *SpotifyPlayer) Pause(ctx context.Context) error {
	return s.doRequest(ctx, http.MethodPut, "/me/player/pause", nil, nil)
}

// Seek jumps to positionMS within the current track.
func (s *SpotifyPlayer) Seek(ctx context.Context, positionMS int64) error {
	endpoint := fmt.Sprintf("/me/player/seek?position_ms=%d", positionMS)
	return s.doRequest(ctx, http.MethodPut, endpoint, nil, nil)
}

// SetVolume sets the active device volume, clamped to [0,100].
func (s *SpotifyPlayer) SetVolume(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	endpoint := fmt.Sprintf("/me/player/volume?volume_percent=%d", percent)
	return s.doRequest(ctx, http.MethodPut, endpoint, nil, nil)
}

// PlaybackState fetches the provider's current playback snapshot. Returns
// nil when nothing is playing anywhere (provider answers 204).
func (s *SpotifyPlayer) PlaybackState(ctx context.Context) (*PlaybackState, error) {
	var state spotifyPlaybackState
	if err := s.doRequest(ctx, http.MethodGet, "/me/player", nil, &state); err != nil {
		return nil, err
	}

	// A 204 leaves the struct zero-valued.
	if state.Device == nil && state.Item == nil {
		return nil, nil
	}

	out := &PlaybackState{
		ProgressMS: state.ProgressMS,
		IsPlaying:  state.IsPlaying,
	}
	if state.Device != nil {
		out.Device = &models.Device{
			ID:       state.Device.ID,
			Name:     state.Device.Name,
			Type:     strings.ToLower(state.Device.Type),
			IsActive: state.Device.IsActive,
		}
	}
	if state.Item != nil {
		out.DurationMS = state.Item.DurationMS
		out.TrackURI = state.Item.URI
	}
	return out, nil
}

// UserProfile retrieves the current user's profile.
func (s *SpotifyPlayer) UserProfile(ctx context.Context) (*UserProfile, error) {
	var user spotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &UserProfile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Product:     user.Product,
	}, nil
}
