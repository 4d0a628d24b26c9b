package storage

import (
	"context"
	"errors"
)

// ErrNotFound means the key was never written. Callers must treat it as
// "no durable value yet", distinct from a storage failure.
var ErrNotFound = errors.New("storage: not found")

// Keys of the persisted intake record.
const (
	KeyLastResetDate = "lastResetDate"
	KeyIntakeML      = "intakeMl"
	KeyGoalReached   = "goalReached"
)

// Pair is one key/value entry of a batch write.
type Pair struct {
	Key   string
	Value string
}

// Store is durable key/value storage for the intake record. SetMany applies
// all pairs as a single logical batch so a rollover is never observed
// half-applied.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	SetMany(ctx context.Context, pairs []Pair) error
	Close() error
}
