package shared

import (
	"strings"
	"testing"
)

const testKeyHex = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestCipher(t *testing.T) *TokenCipher {
	t.Helper()
	c, err := NewTokenCipher(testKeyHex)
	if err != nil {
		t.Fatalf("failed to create cipher: %v", err)
	}
	return c
}

func TestTokenCipher(t *testing.T) {
	t.Run("NewTokenCipher", func(t *testing.T) {
		t.Run("Rejects Non-Hex Key", func(t *testing.T) {
			if _, err := NewTokenCipher("not hex at all"); err == nil {
				t.Error("expected error for non-hex key")
			}
		})

		t.Run("Rejects Short Key", func(t *testing.T) {
			if _, err := NewTokenCipher("deadbeef"); err == nil {
				t.Error("expected error for 4-byte key")
			}
		})
	})

	t.Run("Round Trip", func(t *testing.T) {
		c := newTestCipher(t)

		for _, plain := range []string{
			"AQB-refresh-token-value",
			"x",
			strings.Repeat("long-token-", 50),
			"token with spaces and unicode ✓",
		} {
			enc, err := c.Encrypt(plain)
			if err != nil {
				t.Fatalf("encrypt failed: %v", err)
			}

			parts := strings.Split(enc, ":")
			if len(parts) != 3 {
				t.Fatalf("expected 3-part format, got %d parts", len(parts))
			}

			got, err := c.Decrypt(enc)
			if err != nil {
				t.Fatalf("decrypt failed: %v", err)
			}
			if got != plain {
				t.Errorf("round trip mismatch: got %q, want %q", got, plain)
			}
		}
	})

	t.Run("Rejects Empty Plaintext", func(t *testing.T) {
		c := newTestCipher(t)
		if _, err := c.Encrypt(""); err == nil {
			t.Error("expected error for empty plaintext")
		}
	})

	t.Run("Unique Nonces", func(t *testing.T) {
		c := newTestCipher(t)
		first, _ := c.Encrypt("same-token")
		second, _ := c.Encrypt("same-token")
		if first == second {
			t.Error("expected distinct ciphertext for repeated plaintext")
		}
	})

	t.Run("Rejects Malformed Input", func(t *testing.T) {
		c := newTestCipher(t)

		cases := []struct {
			name  string
			input string
		}{
			{"missing segments", "aabbcc"},
			{"two segments", "aabb:ccdd"},
			{"four segments", "aa:bb:cc:dd"},
			{"bad iv hex", "zzzz:aabb:ccdd"},
			{"short iv", "aabb:" + strings.Repeat("ab", 16) + ":ccdd"},
			{"empty string", ""},
		}

		for _, tt := range cases {
			t.Run(tt.name, func(t *testing.T) {
				if _, err := c.Decrypt(tt.input); err == nil {
					t.Errorf("expected error decrypting %q", tt.input)
				}
			})
		}
	})

	t.Run("Rejects Tampered Ciphertext", func(t *testing.T) {
		c := newTestCipher(t)
		enc, err := c.Encrypt("legitimate-token")
		if err != nil {
			t.Fatalf("encrypt failed: %v", err)
		}

		parts := strings.Split(enc, ":")
		// Flip a nibble in the cipher segment.
		last := parts[2]
		if last[0] == 'a' {
			parts[2] = "b" + last[1:]
		} else {
			parts[2] = "a" + last[1:]
		}

		if _, err := c.Decrypt(strings.Join(parts, ":")); err == nil {
			t.Error("expected authentication failure for tampered ciphertext")
		}
	})
}
