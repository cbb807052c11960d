package domain

import (
	"errors"
	"time"
)

// Mood bounds shared by dynamic mood and persona baseline mood.
const (
	MoodMin = -100
	MoodMax = 100
)

// Text caps applied when the engine writes dynamic state.
const (
	// MemorySummaryMaxLen bounds the rolling memory summary.
	MemorySummaryMaxLen = 600
	// PinnedMemoryMaxLen bounds one pinned fact.
	PinnedMemoryMaxLen = 120
	// GoalMaxLen bounds the current goal text.
	GoalMaxLen = 220
)

// Availability describes whether an NPC can currently be engaged.
type Availability string

// Recognized availability states.
const (
	AvailabilityOpen Availability = "open"
	AvailabilityBusy Availability = "busy"
	AvailabilityAway Availability = "away"
)

// ErrInvalidAvailability indicates an unrecognized availability value.
var ErrInvalidAvailability = errors.New("availability is invalid")

// NormalizeAvailability maps arbitrary input to a recognized availability,
// falling back to busy. Untrusted proposals never widen the value set.
func NormalizeAvailability(value string) Availability {
	switch Availability(value) {
	case AvailabilityOpen, AvailabilityBusy, AvailabilityAway:
		return Availability(value)
	}
	return AvailabilityBusy
}

// DynamicState is the engine-owned mutable state of one NPC.
type DynamicState struct {
	NPCID          string
	LocationID     string
	Mood           int
	CurrentGoal    string
	MemorySummary  string
	PinnedMemories []string
	Availability   Availability
	// UnavailableUntil bounds a busy/away window; nil when open-ended.
	UnavailableUntil *time.Time
	// LastTick is when the planner last attempted an autonomous turn,
	// successful or not.
	LastTick time.Time
}

// NewDynamicState derives the initial dynamic state for a persona.
func NewDynamicState(p Persona, locationID string) DynamicState {
	return DynamicState{
		NPCID:        p.NPCID,
		LocationID:   locationID,
		Mood:         clamp(p.BaselineMood, MoodMin, MoodMax),
		CurrentGoal:  "Maintain routine and gather local information.",
		Availability: AvailabilityOpen,
	}
}

// ClampMood clamps a mood value into the valid range.
func ClampMood(mood int) int {
	return clamp(mood, MoodMin, MoodMax)
}

// TruncateText caps text at max characters, counting runes rather than
// bytes so multi-byte input is never split mid-rune. A max of zero or
// less means no cap.
func TruncateText(text string, max int) string {
	if max <= 0 || len(text) <= max {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}

func clamp(value, minimum, maximum int) int {
	if value < minimum {
		return minimum
	}
	if value > maximum {
		return maximum
	}
	return value
}
