package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/hwi0-02/Stonetify-sub000/internal/models"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// fakeClock is a settable clock for driving rotation windows.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func newTestCipher(t *testing.T) *shared.TokenCipher {
	t.Helper()
	cipher, err := shared.NewTokenCipher(testKeyHex)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	return cipher
}

// repoFactory builds a fresh repository for each contract subtest.
type repoFactory func(t *testing.T, clock *fakeClock) TokenRepository

func sqliteFactory(t *testing.T, clock *fakeClock) TokenRepository {
	t.Helper()
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	return NewSQLiteTokenRepository(db, newTestCipher(t), clock.Now)
}

func memoryFactory(t *testing.T, clock *fakeClock) TokenRepository {
	t.Helper()
	return NewMemoryTokenRepository(newTestCipher(t), clock.Now)
}

// TestTokenRepositoryContract runs the identical contract against both
// backings; callers must not be able to tell them apart.
func TestTokenRepositoryContract(t *testing.T) {
	backings := []struct {
		name    string
		factory repoFactory
	}{
		{"SQLite", sqliteFactory},
		{"Memory", memoryFactory},
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ctx := context.Background()

	for _, backing := range backings {
		t.Run(backing.name, func(t *testing.T) {
			t.Run("GetByUser Missing Returns Nil", func(t *testing.T) {
				repo := backing.factory(t, &fakeClock{now: base})
				rec, err := repo.GetByUser(ctx, "nobody")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if rec != nil {
					t.Error("expected nil record for unknown user")
				}
			})

			t.Run("First Upsert Requires Token", func(t *testing.T) {
				repo := backing.factory(t, &fakeClock{now: base})
				_, err := repo.UpsertRotate(ctx, "user-1", "", RotateOptions{Scope: "streaming"})
				if err == nil {
					t.Error("metadata-only upsert without an existing record should fail")
				}
			})

			t.Run("Rotation Creates And Versions", func(t *testing.T) {
				clock := &fakeClock{now: base}
				repo := backing.factory(t, clock)

				rec, err := repo.UpsertRotate(ctx, "user-1", "refresh-1", RotateOptions{Scope: "streaming", ClientID: "client-a"})
				if err != nil {
					t.Fatalf("rotation failed: %v", err)
				}
				if rec.Version() != 1 {
					t.Errorf("expected version 1, got %d", rec.Version())
				}
				if rec.EncryptedToken() == "" || rec.EncryptedToken() == "refresh-1" {
					t.Error("stored token must be encrypted, non-empty")
				}

				clock.now = base.Add(time.Minute)
				rec, err = repo.UpsertRotate(ctx, "user-1", "refresh-2", RotateOptions{})
				if err != nil {
					t.Fatalf("second rotation failed: %v", err)
				}
				if rec.Version() != 2 {
					t.Errorf("expected version 2, got %d", rec.Version())
				}
				if len(rec.History()) != 1 {
					t.Errorf("expected one history entry, got %d", len(rec.History()))
				}
				if !rec.LastRotationAt().Equal(clock.now) {
					t.Error("last rotation timestamp not refreshed")
				}
			})

			t.Run("Metadata Update Leaves Rotation Accounting", func(t *testing.T) {
				clock := &fakeClock{now: base}
				repo := backing.factory(t, clock)

				if _, err := repo.UpsertRotate(ctx, "user-1", "refresh-1", RotateOptions{Scope: "streaming"}); err != nil {
					t.Fatalf("rotation failed: %v", err)
				}

				rec, err := repo.UpsertRotate(ctx, "user-1", "", RotateOptions{Scope: "streaming user-read-email", ClientID: "client-b"})
				if err != nil {
					t.Fatalf("metadata update failed: %v", err)
				}
				if rec.Version() != 1 {
					t.Errorf("metadata update must not bump version, got %d", rec.Version())
				}
				if rec.RotationCount() != 1 {
					t.Errorf("metadata update must not count a rotation, got %d", rec.RotationCount())
				}
				if rec.Scope() != "streaming user-read-email" {
					t.Errorf("scope not updated, got %s", rec.Scope())
				}
				if rec.ClientID() != "client-b" {
					t.Errorf("client id not updated, got %s", rec.ClientID())
				}
			})

			t.Run("Rate Limit", func(t *testing.T) {
				clock := &fakeClock{now: base}
				repo := backing.factory(t, clock)
				opts := RotateOptions{Ceiling: 3}

				for i := 0; i < 3; i++ {
					if _, err := repo.UpsertRotate(ctx, "user-1", "refresh-x", opts); err != nil {
						t.Fatalf("rotation %d failed: %v", i+1, err)
					}
				}

				before, err := repo.GetByUser(ctx, "user-1")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}

				_, err = repo.UpsertRotate(ctx, "user-1", "refresh-x", opts)
				if err == nil {
					t.Fatal("rotation past ceiling should fail")
				}
				if shared.ErrorCode(err) != shared.CodeRateLimitExceeded {
					t.Errorf("expected RATE_LIMIT_EXCEEDED, got %s", shared.ErrorCode(err))
				}

				after, err := repo.GetByUser(ctx, "user-1")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if after.Version() != before.Version() || after.RotationCount() != before.RotationCount() {
					t.Error("failed rotation must not mutate the stored record")
				}

				// A fresh window admits rotations again.
				clock.now = base.Add(models.RotationWindow + time.Second)
				if _, err := repo.UpsertRotate(ctx, "user-1", "refresh-y", opts); err != nil {
					t.Errorf("rotation in fresh window failed: %v", err)
				}
			})

			t.Run("Revoke", func(t *testing.T) {
				clock := &fakeClock{now: base}
				repo := backing.factory(t, clock)

				// Idempotent with no record.
				if err := repo.Revoke(ctx, "user-1"); err != nil {
					t.Fatalf("revoke without record should be a no-op: %v", err)
				}

				if _, err := repo.UpsertRotate(ctx, "user-1", "refresh-1", RotateOptions{}); err != nil {
					t.Fatalf("rotation failed: %v", err)
				}
				if err := repo.Revoke(ctx, "user-1"); err != nil {
					t.Fatalf("revoke failed: %v", err)
				}

				rec, err := repo.GetByUser(ctx, "user-1")
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if rec == nil {
					t.Fatal("revoked record must survive (soft revoke)")
				}
				if !rec.Revoked() {
					t.Error("expected record revoked")
				}
				if rec.EncryptedToken() != "" {
					t.Error("revoked record must have null token")
				}

				// Re-rotation clears revocation.
				clock.now = base.Add(time.Minute)
				rec, err = repo.UpsertRotate(ctx, "user-1", "refresh-2", RotateOptions{})
				if err != nil {
					t.Fatalf("re-rotation after revoke failed: %v", err)
				}
				if rec.Revoked() {
					t.Error("rotation should clear the revoked flag")
				}
			})
		})
	}
}

func TestSQLiteDuplicateRecovery(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()
	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	repo := NewSQLiteTokenRepository(db, newTestCipher(t), clock.Now)

	insert := `
		INSERT INTO token_records (id, user_id, refresh_token_encrypted, scope, version, history,
			revoked, rotation_count, rotation_window_start, client_id, created_at, updated_at, last_rotation_at)
		VALUES (?, ?, ?, '', ?, '[]', 0, 0, NULL, '', ?, ?, NULL)
	`
	older := clock.now.Add(-time.Hour)
	if _, err := db.Exec(insert, "rec-old", "user-1", "enc-old", 3, older, older); err != nil {
		t.Fatalf("failed to seed old row: %v", err)
	}
	if _, err := db.Exec(insert, "rec-new", "user-1", "enc-new", 5, older, clock.now); err != nil {
		t.Fatalf("failed to seed new row: %v", err)
	}

	rec, err := repo.GetByUser(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID() != "rec-new" {
		t.Errorf("expected row with greatest updated_at, got %s", rec.ID())
	}
	if rec.Version() != 5 {
		t.Errorf("expected version 5, got %d", rec.Version())
	}
}

func TestDeviceRepository(t *testing.T) {
	ctx := context.Background()

	factories := []struct {
		name    string
		factory func(t *testing.T) DeviceRepository
	}{
		{"SQLite", func(t *testing.T) DeviceRepository {
			db, err := shared.NewDatabase(":memory:")
			if err != nil {
				t.Fatalf("failed to open database: %v", err)
			}
			t.Cleanup(func() { db.Close() })
			if err := shared.RunMigrations(db); err != nil {
				t.Fatalf("failed to run migrations: %v", err)
			}
			return NewSQLiteDeviceRepository(db, nil)
		}},
		{"Memory", func(t *testing.T) DeviceRepository {
			return NewMemoryDeviceRepository()
		}},
	}

	for _, tt := range factories {
		t.Run(tt.name, func(t *testing.T) {
			repo := tt.factory(t)

			id, name, err := repo.LastDevice(ctx, "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "" || name != "" {
				t.Error("expected empty device for unknown user")
			}

			if err := repo.SaveLastDevice(ctx, "user-1", "dev-1", "Kitchen"); err != nil {
				t.Fatalf("save failed: %v", err)
			}
			if err := repo.SaveLastDevice(ctx, "user-1", "dev-2", "Phone"); err != nil {
				t.Fatalf("upsert failed: %v", err)
			}

			id, name, err = repo.LastDevice(ctx, "user-1")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if id != "dev-2" || name != "Phone" {
				t.Errorf("expected latest device dev-2/Phone, got %s/%s", id, name)
			}
		})
	}
}
