// Package wallet guards trading operations that need an available wallet
// whose key is unlocked.
package wallet

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUnavailable   = errors.New("wallet: wallet is not available")
	ErrLocked        = errors.New("wallet: wallet is locked")
	ErrWrongPassword = errors.New("wallet: incorrect password")
	ErrNotEncrypted  = errors.New("wallet: wallet is not encrypted with a password")
)

// Gate tracks wallet availability and the unlock window of an encrypted
// wallet. A Gate without a password hash is unencrypted and always unlocked.
type Gate struct {
	mu           sync.Mutex
	available    bool
	passwordHash []byte
	unlocked     bool
	relock       *time.Timer
	generation   uint64
}

// NewGate creates a gate. passwordHash is a bcrypt hash, or empty.
func NewGate(available bool, passwordHash string) *Gate {
	return &Gate{available: available, passwordHash: []byte(passwordHash)}
}

func (g *Gate) encrypted() bool { return len(g.passwordHash) > 0 }

// SetAvailable flips wallet availability, e.g. once the wallet has synced.
func (g *Gate) SetAvailable(available bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.available = available
}

// VerifyAvailable fails with ErrUnavailable until the wallet is ready.
func (g *Gate) VerifyAvailable(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.available {
		return ErrUnavailable
	}
	return nil
}

// VerifyUnlocked fails with ErrLocked when an encrypted wallet is locked.
func (g *Gate) VerifyUnlocked(_ context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.encrypted() && !g.unlocked {
		return ErrLocked
	}
	return nil
}

// Unlock opens the wallet for timeout, then locks it again. A timeout of
// zero keeps it unlocked until Lock.
func (g *Gate) Unlock(password string, timeout time.Duration) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.encrypted() {
		return ErrNotEncrypted
	}
	if err := bcrypt.CompareHashAndPassword(g.passwordHash, []byte(password)); err != nil {
		return ErrWrongPassword
	}

	g.unlocked = true
	g.stopRelock()
	g.generation++
	if timeout > 0 {
		gen := g.generation
		g.relock = time.AfterFunc(timeout, func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			// A later Unlock or Lock owns the window now.
			if g.generation != gen {
				return
			}
			g.unlocked = false
			g.relock = nil
			slog.Info("wallet locked after unlock timeout", "timeout", timeout.String())
		})
	}
	slog.Info("wallet unlocked", "timeout", timeout.String())
	return nil
}

// Lock closes the wallet immediately.
func (g *Gate) Lock() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.unlocked = false
	g.stopRelock()
	g.generation++
}

func (g *Gate) stopRelock() {
	if g.relock != nil {
		g.relock.Stop()
		g.relock = nil
	}
}
