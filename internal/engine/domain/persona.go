package domain

import (
	"errors"
	"strings"
)

// Alignment positions a persona on the law/chaos and good/evil axes.
type Alignment string

// Recognized alignments.
const (
	AlignmentLawfulGood     Alignment = "lawful_good"
	AlignmentNeutralGood    Alignment = "neutral_good"
	AlignmentChaoticGood    Alignment = "chaotic_good"
	AlignmentLawfulNeutral  Alignment = "lawful_neutral"
	AlignmentTrueNeutral    Alignment = "true_neutral"
	AlignmentChaoticNeutral Alignment = "chaotic_neutral"
	AlignmentLawfulEvil     Alignment = "lawful_evil"
	AlignmentNeutralEvil    Alignment = "neutral_evil"
	AlignmentChaoticEvil    Alignment = "chaotic_evil"
)

var alignments = map[Alignment]struct{}{
	AlignmentLawfulGood:     {},
	AlignmentNeutralGood:    {},
	AlignmentChaoticGood:    {},
	AlignmentLawfulNeutral:  {},
	AlignmentTrueNeutral:    {},
	AlignmentChaoticNeutral: {},
	AlignmentLawfulEvil:     {},
	AlignmentNeutralEvil:    {},
	AlignmentChaoticEvil:    {},
}

var (
	// ErrEmptyNPCID indicates an NPC id is required.
	ErrEmptyNPCID = errors.New("npc id is required")
	// ErrEmptyPersonaName indicates a persona name is required.
	ErrEmptyPersonaName = errors.New("persona name is required")
	// ErrInvalidAlignment indicates an unrecognized alignment value.
	ErrInvalidAlignment = errors.New("alignment is invalid")
	// ErrInvalidBaselineMood indicates baseline mood is outside the mood range.
	ErrInvalidBaselineMood = errors.New("baseline mood must be in range -100..100")
)

// Persona is the immutable character sheet for an NPC, created at
// world-seed time. The engine reads personas but never mutates them.
type Persona struct {
	NPCID      string
	Name       string
	Alignment  Alignment
	Background []string
	Ideals     []string
	Bonds      []string
	Flaws      []string
	Motivation string
	Fear       string
	Archetype  string
	Skills     []string
	VoiceStyle string
	// BaselineMood is the resting mood the NPC's dynamic mood decays toward.
	BaselineMood int
	// AllowedLocations restricts where a key NPC may relocate itself.
	AllowedLocations []string
	// Key marks a plot-critical NPC; key NPCs are protected by compiler
	// guardrails against off-screen removal.
	Key bool
}

// ValidatePersona checks persona invariants.
func ValidatePersona(p Persona) error {
	if strings.TrimSpace(p.NPCID) == "" {
		return ErrEmptyNPCID
	}
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyPersonaName
	}
	if _, ok := alignments[p.Alignment]; !ok {
		return ErrInvalidAlignment
	}
	if p.BaselineMood < MoodMin || p.BaselineMood > MoodMax {
		return ErrInvalidBaselineMood
	}
	return nil
}

// LawChaosBias maps the alignment's law/chaos axis to {-1, 0, 1}
// (chaotic, neutral, lawful).
func (a Alignment) LawChaosBias() int {
	switch {
	case strings.HasPrefix(string(a), "lawful"):
		return 1
	case strings.HasPrefix(string(a), "chaotic"):
		return -1
	}
	return 0
}

// MoralBias maps the alignment's good/evil axis to {-1, 0, 1}
// (evil, neutral, good).
func (a Alignment) MoralBias() int {
	switch {
	case strings.HasSuffix(string(a), "good"):
		return 1
	case strings.HasSuffix(string(a), "evil"):
		return -1
	}
	return 0
}

// MayRelocateTo reports whether the persona permits relocation to the
// given location. Non-key NPCs are unrestricted at the persona level;
// connectivity is enforced separately by the compiler.
func (p Persona) MayRelocateTo(locationID string) bool {
	if !p.Key {
		return true
	}
	for _, allowed := range p.AllowedLocations {
		if allowed == locationID {
			return true
		}
	}
	return false
}
