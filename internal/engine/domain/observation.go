package domain

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrEmptyLocationID indicates a location id is required.
	ErrEmptyLocationID = errors.New("location id is required")
	// ErrZeroObservationTime indicates an observation needs a world time.
	ErrZeroObservationTime = errors.New("observation time is required")
)

// Observation is the read-only world snapshot handed to a policy for one
// turn. PlayerID is empty for autonomous planner ticks. Observations are
// never persisted by the engine.
type Observation struct {
	NPCID           string
	PlayerID        string
	PlayerUtterance string
	LocationID      string
	LocationName    string
	WorldSummary    string
	RecentDialogue  []string
	Now             time.Time
}

// ValidateObservation checks the fields every turn requires.
func ValidateObservation(obs Observation) error {
	if strings.TrimSpace(obs.NPCID) == "" {
		return ErrEmptyNPCID
	}
	if strings.TrimSpace(obs.LocationID) == "" {
		return ErrEmptyLocationID
	}
	if obs.Now.IsZero() {
		return ErrZeroObservationTime
	}
	return nil
}

// Autonomous reports whether the observation belongs to a planner tick
// rather than a player-authored turn.
func (o Observation) Autonomous() bool {
	return strings.TrimSpace(o.PlayerID) == ""
}
