package wallet

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func hash(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return string(h)
}

func TestVerifyAvailable(t *testing.T) {
	g := NewGate(false, "")
	if err := g.VerifyAvailable(context.Background()); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
	g.SetAvailable(true)
	if err := g.VerifyAvailable(context.Background()); err != nil {
		t.Errorf("expected available, got %v", err)
	}
}

func TestUnencryptedWalletIsUnlocked(t *testing.T) {
	g := NewGate(true, "")
	if err := g.VerifyUnlocked(context.Background()); err != nil {
		t.Errorf("unencrypted wallet should be unlocked, got %v", err)
	}
	if err := g.Unlock("x", 0); !errors.Is(err, ErrNotEncrypted) {
		t.Errorf("expected ErrNotEncrypted, got %v", err)
	}
}

func TestUnlockAndLock(t *testing.T) {
	g := NewGate(true, hash(t, "secret"))
	ctx := context.Background()

	if err := g.VerifyUnlocked(ctx); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
	if err := g.Unlock("wrong", 0); !errors.Is(err, ErrWrongPassword) {
		t.Fatalf("expected ErrWrongPassword, got %v", err)
	}
	if err := g.Unlock("secret", 0); err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if err := g.VerifyUnlocked(ctx); err != nil {
		t.Errorf("expected unlocked, got %v", err)
	}
	g.Lock()
	if err := g.VerifyUnlocked(ctx); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked after Lock, got %v", err)
	}
}

func TestUnlockTimeout(t *testing.T) {
	g := NewGate(true, hash(t, "secret"))
	if err := g.Unlock("secret", 20*time.Millisecond); err != nil {
		t.Fatalf("unlock: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if errors.Is(g.VerifyUnlocked(context.Background()), ErrLocked) {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Error("wallet should relock after the unlock timeout")
}
