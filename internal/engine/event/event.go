// Package event defines the engine's append-only observability trail.
// Every NPC-affecting decision lands here; the journal is the canonical
// audit surface for downstream collaborators.
package event

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Type identifies the kind of an engine event.
type Type string

// Turn outcome events.
const (
	// TypeNPCSpoke records a turn that produced non-empty dialogue.
	TypeNPCSpoke Type = "NPC_SPOKE"
	// TypeNPCStateUpdated records one committed state-update transaction.
	TypeNPCStateUpdated Type = "NPC_STATE_UPDATED"
	// TypeNPCTick records one completed planner tick, successful or not.
	TypeNPCTick Type = "NPC_TICK"
	// TypeFlavorOnly records a candidate action downgraded by the compiler.
	TypeFlavorOnly Type = "FLAVOR_ONLY"
)

// World bookkeeping events.
const (
	// TypeWorldSeeded records initial world seeding.
	TypeWorldSeeded Type = "WORLD_SEEDED"
	// TypeNPCMoved records an executed NPC relocation.
	TypeNPCMoved Type = "NPC_MOVED"
	// TypeNPCAvailabilityChanged records an executed availability toggle.
	TypeNPCAvailabilityChanged Type = "NPC_AVAILABILITY_CHANGED"
)

// Origin identifies what triggered the pipeline run that produced an event.
type Origin string

const (
	// OriginPlayer marks player-triggered turns.
	OriginPlayer Origin = "player"
	// OriginPlanner marks autonomous planner ticks.
	OriginPlanner Origin = "planner"
	// OriginSystem marks engine bookkeeping outside any turn.
	OriginSystem Origin = "system"
)

// Event is an immutable record in the append-only journal. Seq is assigned
// by storage on append; prior events are never mutated.
type Event struct {
	Seq       uint64
	Timestamp time.Time
	Type      Type
	NPCID     string
	// PlayerID is empty for planner- and system-origin events.
	PlayerID string
	Origin   Origin
	// TurnID correlates the events of one pipeline run.
	TurnID      string
	PayloadJSON []byte
}

// New builds an event with a marshaled payload.
func New(eventType Type, npcID string, payload any) (Event, error) {
	if strings.TrimSpace(string(eventType)) == "" {
		return Event{}, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(npcID) == "" {
		return Event{}, fmt.Errorf("event npc id is required")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal event payload: %w", err)
	}
	return Event{
		Type:        eventType,
		NPCID:       npcID,
		Origin:      OriginSystem,
		PayloadJSON: raw,
	}, nil
}
