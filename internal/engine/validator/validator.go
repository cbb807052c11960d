// Package validator is the only code path that turns proposed updates
// into committed domain state. It is a pure function of its inputs; the
// surrounding transaction belongs to the store.
package validator

import (
	"strings"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

// Defaults used when a Config field is zero.
const (
	DefaultMoodDecayDivisor = 10
	DefaultPinnedMemoryCap  = 10
)

// Config tunes decay and memory retention.
type Config struct {
	// MoodDecayDivisor controls decay toward baseline: each turn closes
	// ceil(distance/divisor) of the gap before any proposed delta.
	MoodDecayDivisor int
	// PinnedMemoryCap bounds retained pins; oldest are evicted first.
	PinnedMemoryCap int
}

func (c Config) withDefaults() Config {
	if c.MoodDecayDivisor <= 0 {
		c.MoodDecayDivisor = DefaultMoodDecayDivisor
	}
	if c.PinnedMemoryCap <= 0 {
		c.PinnedMemoryCap = DefaultPinnedMemoryCap
	}
	return c
}

// Applied reports what survived validation for one turn.
type Applied struct {
	MoodDecay        int
	MoodDelta        int
	AffinityDelta    int
	TrustDelta       int
	RespectDelta     int
	BondFlagsAdded   []string
	GrudgeFlagsAdded []string
	GreetingAdvanced bool
	GoalChanged      bool
	MemoryReplaced   bool
	PinAdded         bool
	// DroppedFields names proposed fields rejected in full, field by
	// field; a dropped field never fails the rest of the turn.
	DroppedFields []string
}

// Result is the validated state pair ready for a single commit.
type Result struct {
	State        domain.DynamicState
	Relationship domain.Relationship
	Applied      Applied
}

// Apply validates proposed updates against current state and returns the
// next state, next relationship, and a report of what was applied. Mood
// decays toward the persona baseline before the proposed delta. All
// numeric signals re-clamp after every delta. The greeting stage only
// ever advances, by one at most, and only on player-origin turns.
func Apply(persona domain.Persona, state domain.DynamicState, rel domain.Relationship, out domain.NPCOutput, playerTurn bool, cfg Config, now time.Time) Result {
	cfg = cfg.withDefaults()
	updates := out.StateUpdates
	var applied Applied

	decay := decayStep(state.Mood, persona.BaselineMood, cfg.MoodDecayDivisor)
	state.Mood = domain.ClampMood(state.Mood + decay)
	applied.MoodDecay = decay

	if updates.MoodDelta != nil {
		before := state.Mood
		state.Mood = domain.ClampMood(state.Mood + *updates.MoodDelta)
		applied.MoodDelta = state.Mood - before
	}
	// Relationship fields only exist toward a player; on autonomous turns
	// no relationship row is committed, so proposals for them are dropped
	// rather than silently applied to a throwaway row.
	if updates.AffinityDelta != nil {
		if !playerTurn {
			applied.DroppedFields = append(applied.DroppedFields, "affinity_delta")
		} else {
			before := rel.Affinity
			rel.Affinity = domain.ClampAffinity(rel.Affinity + *updates.AffinityDelta)
			applied.AffinityDelta = rel.Affinity - before
		}
	}
	if updates.TrustDelta != nil {
		if !playerTurn {
			applied.DroppedFields = append(applied.DroppedFields, "trust_delta")
		} else {
			before := rel.Trust
			rel.Trust = domain.ClampTrust(rel.Trust + *updates.TrustDelta)
			applied.TrustDelta = rel.Trust - before
		}
	}
	if updates.RespectDelta != nil {
		if !playerTurn {
			applied.DroppedFields = append(applied.DroppedFields, "respect_delta")
		} else {
			before := rel.Respect
			rel.Respect = domain.ClampRespect(rel.Respect + *updates.RespectDelta)
			applied.RespectDelta = rel.Respect - before
		}
	}

	if len(updates.BondFlagsAdd) > 0 {
		if !playerTurn {
			applied.DroppedFields = append(applied.DroppedFields, "bond_flags_add")
		} else {
			merged := domain.MergeFlags(rel.BondFlags, updates.BondFlagsAdd)
			applied.BondFlagsAdded = addedFlags(rel.BondFlags, merged)
			rel.BondFlags = merged
		}
	}
	if len(updates.GrudgeFlagsAdd) > 0 {
		if !playerTurn {
			applied.DroppedFields = append(applied.DroppedFields, "grudge_flags_add")
		} else {
			merged := domain.MergeFlags(rel.GrudgeFlags, updates.GrudgeFlagsAdd)
			applied.GrudgeFlagsAdded = addedFlags(rel.GrudgeFlags, merged)
			rel.GrudgeFlags = merged
		}
	}

	if updates.GreetingStageAdvance {
		switch {
		case !playerTurn:
			applied.DroppedFields = append(applied.DroppedFields, "greeting_stage_advance")
		case rel.GreetingStage >= domain.GreetingStageMax:
			applied.DroppedFields = append(applied.DroppedFields, "greeting_stage_advance")
		default:
			rel.GreetingStage++
			applied.GreetingAdvanced = true
		}
	}

	if goal := strings.TrimSpace(updates.CurrentGoal); goal != "" {
		state.CurrentGoal = domain.TruncateText(goal, domain.GoalMaxLen)
		applied.GoalChanged = true
	}

	if out.MemoryUpdate != nil {
		if summary := strings.TrimSpace(out.MemoryUpdate.Summary); summary != "" {
			state.MemorySummary = domain.TruncateText(summary, domain.MemorySummaryMaxLen)
			applied.MemoryReplaced = true
		}
		if pin := strings.TrimSpace(out.MemoryUpdate.Pin); pin != "" {
			state.PinnedMemories = appendPin(state.PinnedMemories, domain.TruncateText(pin, domain.PinnedMemoryMaxLen), cfg.PinnedMemoryCap)
			applied.PinAdded = true
		}
	}

	if playerTurn {
		rel.LastInteraction = now
	}

	return Result{State: state, Relationship: rel, Applied: applied}
}

// decayStep closes ceil(distance/divisor) of the gap toward baseline,
// in the direction of the baseline, zero when already there.
func decayStep(mood, baseline, divisor int) int {
	distance := baseline - mood
	if distance == 0 {
		return 0
	}
	magnitude := distance
	if magnitude < 0 {
		magnitude = -magnitude
	}
	step := (magnitude + divisor - 1) / divisor
	if distance < 0 {
		return -step
	}
	return step
}

func appendPin(pins []string, pin string, limit int) []string {
	next := append(append([]string(nil), pins...), pin)
	if len(next) > limit {
		next = next[len(next)-limit:]
	}
	return next
}

func addedFlags(before, after []string) []string {
	seen := make(map[string]struct{}, len(before))
	for _, flag := range before {
		seen[flag] = struct{}{}
	}
	var added []string
	for _, flag := range after {
		if _, ok := seen[flag]; !ok {
			added = append(added, flag)
		}
	}
	return added
}
