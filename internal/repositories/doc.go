// Package repositories implements persistence for the token lifecycle store.
//
// The [TokenRepository] contract has two interchangeable implementations:
//   - [SQLiteTokenRepository] : durable store backed by database/sql + sqlite
//   - [MemoryTokenRepository] : process-local fallback with identical semantics
//
// Which backing is active is decided once at construction by a capability
// check ([NewTokenRepository]); no call site branches on the choice.
//
// Rotation accounting is a read-modify-write inside one connection; two
// processes rotating the same user concurrently can race past the hourly
// ceiling. That gap is documented and accepted rather than masked by a
// false cross-process serialization guarantee.
//
// [DeviceRepository] persists the last chosen playback device per user for
// reuse by the next session.
package repositories
