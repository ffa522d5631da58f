package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

// SQLiteDeviceRepository persists the last chosen playback device per user.
type SQLiteDeviceRepository struct {
	db    *sql.DB
	clock shared.Clock
}

// NewSQLiteDeviceRepository creates the durable device store.
func NewSQLiteDeviceRepository(db *sql.DB, clock shared.Clock) *SQLiteDeviceRepository {
	if clock == nil {
		clock = shared.SystemClock
	}
	return &SQLiteDeviceRepository{db: db, clock: clock}
}

// LastDevice returns the persisted device for userID; empty strings when none.
func (r *SQLiteDeviceRepository) LastDevice(ctx context.Context, userID string) (string, string, error) {
	var id, name string
	err := r.db.QueryRowContext(ctx,
		"SELECT device_id, device_name FROM playback_devices WHERE user_id = ?", userID,
	).Scan(&id, &name)
	if err == sql.ErrNoRows {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("failed to query last device: %w", err)
	}
	return id, name, nil
}

// SaveLastDevice upserts the chosen device for userID.
func (r *SQLiteDeviceRepository) SaveLastDevice(ctx context.Context, userID, id, name string) error {
	query := `
		INSERT INTO playback_devices (user_id, device_id, device_name, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET device_id = excluded.device_id,
			device_name = excluded.device_name, updated_at = excluded.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, userID, id, name, r.clock()); err != nil {
		return fmt.Errorf("failed to save last device: %w", err)
	}
	return nil
}

// MemoryDeviceRepository is the process-local fallback for [DeviceRepository].
type MemoryDeviceRepository struct {
	mu      sync.Mutex
	devices map[string][2]string
}

// NewMemoryDeviceRepository creates the fallback device store.
func NewMemoryDeviceRepository() *MemoryDeviceRepository {
	return &MemoryDeviceRepository{devices: make(map[string][2]string)}
}

func (r *MemoryDeviceRepository) LastDevice(ctx context.Context, userID string) (string, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	d := r.devices[userID]
	return d[0], d[1], nil
}

func (r *MemoryDeviceRepository) SaveLastDevice(ctx context.Context, userID, id, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices[userID] = [2]string{id, name}
	return nil
}

// NewDeviceRepository mirrors [NewTokenRepository]'s capability check.
func NewDeviceRepository(db *sql.DB, clock shared.Clock) DeviceRepository {
	if db != nil {
		if err := db.Ping(); err == nil {
			return NewSQLiteDeviceRepository(db, clock)
		}
	}
	return NewMemoryDeviceRepository()
}
