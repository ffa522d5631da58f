// Package services implements the provider-facing HTTP surfaces of the playback core.
//
// # Provider Interface
//
// [Provider] is the streaming provider's playback surface: devices, transfer,
// play/pause/seek/volume, playback state, and profile. [SpotifyPlayer]
// implements it against the Spotify Web API with request throttling via
// golang.org/x/time/rate.
//
// # Error Normalization
//
// Every provider failure is normalized to a [shared.CodedError] before it
// leaves this package:
//   - 401, or a body tagged with a revoked-token code → TOKEN_REVOKED signal
//     (the trigger for the adapter's single silent refresh-and-retry)
//   - a NO_ACTIVE_DEVICE reason → NO_ACTIVE_DEVICE (user-actionable, never retried)
//   - anything else non-2xx, and transport errors → TRANSIENT
//
// # Session Refresh
//
// [RefreshCoordinator] implements [Refresher]: it decrypts the stored
// refresh token, runs the refresh grant through [oauth2], rotates the
// record on success, and classifies invalid_grant as terminal revocation
// (revoking the stored record) versus transient everything-else.
//
// # History Correlation
//
// [HistoryClient] talks to the external playback-history log. Completion is
// computed server-side from the final reported position and duration.
package services
