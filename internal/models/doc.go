// Package models defines domain entities for the Stonetify playback core.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs representing provider data
//   - [Track] : Song metadata as consumed by the playback session
//   - [Device] : A provider playback device, fetched on demand and never persisted wholesale
//   - [PlaybackSnapshot] : The device-local session snapshot written across restarts
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [TokenRecord] : The encrypted refresh-token record, one per user, soft-revoked
//
// [TokenRecord] is never hard-deleted; revocation nulls the encrypted token and
// keeps the bounded rotation history for audit.
package models
