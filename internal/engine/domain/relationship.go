package domain

import "time"

// Relationship signal bounds.
const (
	AffinityMin = -100
	AffinityMax = 100
	TrustMin    = 0
	TrustMax    = 100
	RespectMin  = 0
	RespectMax  = 100

	// GreetingStageMax is the terminal familiarity stage.
	GreetingStageMax = 3

	// FlagSetCap bounds bond and grudge flag sets.
	FlagSetCap = 10
)

// Relationship summarizes one NPC's stance toward one player. All numeric
// signals are re-clamped into range after every delta regardless of the
// requested magnitude; GreetingStage only ever advances.
type Relationship struct {
	NPCID    string
	PlayerID string
	Affinity int
	Trust    int
	Respect  int
	// BondFlags and GrudgeFlags preserve insertion order and never repeat.
	BondFlags   []string
	GrudgeFlags []string
	// GreetingStage tracks greeting familiarity, 0..GreetingStageMax,
	// monotonic, at most one advance per turn.
	GreetingStage   int
	LastInteraction time.Time
}

// NewRelationship returns the zero-history relationship for a pair.
func NewRelationship(npcID, playerID string) Relationship {
	return Relationship{NPCID: npcID, PlayerID: playerID}
}

// ClampAffinity clamps an affinity value into range.
func ClampAffinity(value int) int { return clamp(value, AffinityMin, AffinityMax) }

// ClampTrust clamps a trust value into range.
func ClampTrust(value int) int { return clamp(value, TrustMin, TrustMax) }

// ClampRespect clamps a respect value into range.
func ClampRespect(value int) int { return clamp(value, RespectMin, RespectMax) }

// MergeFlags unions additions into an ordered flag set, preserving
// insertion order, dropping duplicates, and capping at FlagSetCap.
// Existing flags are never removed.
func MergeFlags(existing, additions []string) []string {
	merged := make([]string, 0, len(existing)+len(additions))
	seen := make(map[string]struct{}, len(existing)+len(additions))
	for _, flag := range existing {
		if flag == "" {
			continue
		}
		if _, dup := seen[flag]; dup {
			continue
		}
		seen[flag] = struct{}{}
		merged = append(merged, flag)
	}
	for _, flag := range additions {
		if flag == "" {
			continue
		}
		if _, dup := seen[flag]; dup {
			continue
		}
		seen[flag] = struct{}{}
		merged = append(merged, flag)
	}
	if len(merged) > FlagSetCap {
		merged = merged[:FlagSetCap]
	}
	return merged
}

// HasFlag reports whether flag is present in the set.
func HasFlag(flags []string, flag string) bool {
	for _, f := range flags {
		if f == flag {
			return true
		}
	}
	return false
}
