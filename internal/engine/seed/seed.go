// Package seed provisions the starting world: locations, personas, and
// each NPC's initial dynamic state. Seeding is idempotent; rerunning it
// rewrites the same fixtures.
package seed

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
	"github.com/louisbranch/asterfall/internal/engine/storage"
)

// Stores bundles the write surfaces seeding needs.
type Stores struct {
	Personas storage.PersonaStore
	States   storage.StateStore
	World    storage.WorldStore
	Events   storage.EventStore
}

// Locations returns the starting map.
func Locations() []domain.Location {
	return []domain.Location{
		{
			ID:          "town_square",
			Name:        "Asterfall Commons",
			Description: "The market square at the heart of Asterfall, busy from dawn until the lamps are lit.",
			Connections: []string{"ruin_upper"},
		},
		{
			ID:          "ruin_upper",
			Name:        "Upper Chamber",
			Description: "The exposed upper chamber of the old ruin above town, drafty and half mapped.",
			Connections: []string{"town_square"},
		},
	}
}

// Personas returns the starting cast. Key NPCs are pinned to their
// allowed locations and protected by the compiler's guardrails.
func Personas() []domain.Persona {
	return []domain.Persona{
		{
			NPCID:            "quartermaster_brann",
			Name:             "Brann",
			Alignment:        domain.AlignmentLawfulNeutral,
			Background:       []string{"Retired caravan quartermaster who now runs the supply post on the commons."},
			Ideals:           []string{"Ledgers balance and promises keep."},
			Bonds:            []string{"The supply post is the only thing he has built that lasted."},
			Flaws:            []string{"Counts favors like debts."},
			Motivation:       "Keep the town provisioned through the winter.",
			Fear:             "Another supply collapse like the one that ended his caravan days.",
			Archetype:        "quartermaster",
			Skills:           []string{"logistics", "appraisal", "haggling"},
			VoiceStyle:       "Clipped, practical, softens only for regulars.",
			BaselineMood:     5,
			AllowedLocations: []string{"town_square"},
			Key:              true,
		},
		{
			NPCID:            "scholar_ione",
			Name:             "Ione",
			Alignment:        domain.AlignmentNeutralGood,
			Background:       []string{"Archivist cataloguing what the ruin gives up, one crate of shards at a time."},
			Ideals:           []string{"Knowledge kept secret is knowledge half lost."},
			Bonds:            []string{"Owes her position to the town council and knows it."},
			Flaws:            []string{"Trusts documents over people."},
			Motivation:       "Finish the ruin survey before funding runs out.",
			Fear:             "That the ruin's lower levels are better left sealed.",
			Archetype:        "scholar",
			Skills:           []string{"history", "translation", "cartography"},
			VoiceStyle:       "Precise, digressive, delighted by questions.",
			BaselineMood:     15,
			AllowedLocations: []string{"town_square", "ruin_upper"},
		},
		{
			NPCID:            "traveler_sera",
			Name:             "Sera",
			Alignment:        domain.AlignmentChaoticNeutral,
			Background:       []string{"Itinerant trader who times her visits to rumor, not season."},
			Ideals:           []string{"A closed road is just a dare."},
			Bonds:            []string{"Carries letters between towns for people who cannot travel."},
			Flaws:            []string{"Cannot resist a secret, even a dangerous one."},
			Motivation:       "Find what the ruin traders are suddenly paying for.",
			Fear:             "Being anywhere long enough to be owned by it.",
			Archetype:        "traveler",
			Skills:           []string{"navigation", "gossip", "barter"},
			VoiceStyle:       "Quick, teasing, always half out the door.",
			BaselineMood:     20,
			AllowedLocations: []string{"town_square", "ruin_upper"},
		},
		{
			NPCID:            "warden_lyra",
			Name:             "Lyra",
			Alignment:        domain.AlignmentLawfulGood,
			Background:       []string{"Town warden charged with keeping the ruin's upper chamber from swallowing the curious."},
			Ideals:           []string{"Nobody dies on her watch for a souvenir."},
			Bonds:            []string{"Sworn to the town charter, not to any councilor."},
			Flaws:            []string{"Assumes everyone is about to do something reckless."},
			Motivation:       "Map the safe paths and close the rest.",
			Fear:             "The day the chamber floor finally gives.",
			Archetype:        "warden",
			Skills:           []string{"vigilance", "first_aid", "climbing"},
			VoiceStyle:       "Level, unhurried, immovable on safety.",
			BaselineMood:     0,
			AllowedLocations: []string{"ruin_upper", "town_square"},
			Key:              true,
		},
	}
}

// Apply writes the starting world and emits one WORLD_SEEDED event per
// run. Existing fixture rows are overwritten; player-derived state rows
// are left alone.
func Apply(ctx context.Context, stores Stores, now time.Time) error {
	locations := Locations()
	for _, location := range locations {
		if err := stores.World.PutLocation(ctx, location); err != nil {
			return fmt.Errorf("seed location %s: %w", location.ID, err)
		}
	}

	personas := Personas()
	for _, persona := range personas {
		if err := stores.Personas.PutPersona(ctx, persona); err != nil {
			return fmt.Errorf("seed persona %s: %w", persona.NPCID, err)
		}
		start := persona.AllowedLocations[0]
		if err := stores.States.PutState(ctx, domain.NewDynamicState(persona, start)); err != nil {
			return fmt.Errorf("seed state %s: %w", persona.NPCID, err)
		}
		log.Printf("seed: npc_id=%s location=%s alignment=%s", persona.NPCID, start, persona.Alignment)
	}

	evt, err := event.New(event.TypeWorldSeeded, "world", event.WorldSeededPayload{
		Locations: len(locations),
		NPCs:      len(personas),
	})
	if err != nil {
		return fmt.Errorf("build seed event: %w", err)
	}
	evt.Timestamp = now
	if _, err := stores.Events.AppendEvent(ctx, evt); err != nil {
		return fmt.Errorf("append seed event: %w", err)
	}
	return nil
}
