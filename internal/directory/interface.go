// Package directory mirrors the live support sessions of this process into an
// external store so operators and sibling tooling can see who is online.
// The mirror is advisory: delivery never consults it.
package directory

import (
	"context"
	"errors"
)

var ErrSessionNotFound = errors.New("session not found")

// Entry is what the directory knows about one session.
type Entry struct {
	Address     string
	DisplayName string
}

// Directory must never block its caller; Announce and Withdraw run on the
// hub goroutine.
type Directory interface {
	Announce(sessionID, displayName string)
	Withdraw(sessionID string)
	Lookup(ctx context.Context, sessionID string) (Entry, error)
	Start(ctx context.Context) error
	Close() error
}

// Nop is used when no directory backend is configured.
type Nop struct{}

func (Nop) Announce(string, string) {}

func (Nop) Withdraw(string) {}

func (Nop) Lookup(context.Context, string) (Entry, error) {
	return Entry{}, ErrSessionNotFound
}

func (Nop) Start(context.Context) error { return nil }

func (Nop) Close() error { return nil }
