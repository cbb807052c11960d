// Package storage defines the persistence interfaces the NPC engine
// depends on. Implementations live in subpackages; the engine is written
// against these interfaces so tests can substitute fakes.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
)

// ErrNotFound indicates a requested record is missing.
var ErrNotFound = errors.New("record not found")

// TurnCommit bundles everything one turn writes. The store applies it in
// one transaction: a failure rolls back all of it and callers never
// observe partially-applied state.
type TurnCommit struct {
	// State is the NPC's post-turn dynamic state, including any executed
	// relocation or availability change.
	State domain.DynamicState
	// Relationship is the post-turn relationship signal; nil on planner
	// ticks with no acting player.
	Relationship *domain.Relationship
}

// PersonaStore persists immutable NPC personas.
type PersonaStore interface {
	PutPersona(ctx context.Context, persona domain.Persona) error
	GetPersona(ctx context.Context, npcID string) (domain.Persona, error)
	// ListNPCIDs returns every seeded NPC id, for planner sweeps.
	ListNPCIDs(ctx context.Context) ([]string, error)
}

// StateStore persists engine-owned NPC dynamic state and relationship
// signals.
type StateStore interface {
	GetState(ctx context.Context, npcID string) (domain.DynamicState, error)
	PutState(ctx context.Context, state domain.DynamicState) error
	GetRelationship(ctx context.Context, npcID, playerID string) (domain.Relationship, error)
	// CommitTurn applies a turn's state and relationship writes atomically.
	CommitTurn(ctx context.Context, commit TurnCommit) error
	// SetLastTick records a planner tick attempt regardless of its outcome.
	SetLastTick(ctx context.Context, npcID string, ts time.Time) error
}

// WorldStore persists the location graph.
type WorldStore interface {
	PutLocation(ctx context.Context, location domain.Location) error
	GetLocation(ctx context.Context, locationID string) (domain.Location, error)
}

// EventStore appends to and reads the immutable event journal.
type EventStore interface {
	// AppendEvent assigns a sequence number and persists the event.
	AppendEvent(ctx context.Context, evt event.Event) (event.Event, error)
	// ListEvents returns up to limit events for an NPC, oldest first.
	ListEvents(ctx context.Context, npcID string, limit int) ([]event.Event, error)
}

// QuotaStore performs the atomic check-and-increment backing the daily
// call ledger.
type QuotaStore interface {
	// TryConsume increments the day's global and per-user counters only if
	// both remain at or below their ceilings after the increment. It
	// reports false, without mutating counters, otherwise.
	TryConsume(ctx context.Context, dayKey, userID string, globalCeiling, userCeiling int) (bool, error)
}
