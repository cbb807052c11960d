package seed

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
	"github.com/louisbranch/asterfall/internal/engine/storage/sqlite"
)

func TestApplySeedsWorld(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "seed.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})
	ctx := context.Background()
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	stores := Stores{Personas: store, States: store, World: store, Events: store}

	if err := Apply(ctx, stores, now); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	npcIDs, err := store.ListNPCIDs(ctx)
	if err != nil {
		t.Fatalf("ListNPCIDs() error = %v", err)
	}
	if len(npcIDs) != len(Personas()) {
		t.Errorf("seeded NPCs = %d, want %d", len(npcIDs), len(Personas()))
	}

	for _, persona := range Personas() {
		state, err := store.GetState(ctx, persona.NPCID)
		if err != nil {
			t.Fatalf("GetState(%s) error = %v", persona.NPCID, err)
		}
		if state.LocationID != persona.AllowedLocations[0] {
			t.Errorf("%s starts at %q, want %q", persona.NPCID, state.LocationID, persona.AllowedLocations[0])
		}
		if state.Mood != persona.BaselineMood {
			t.Errorf("%s mood = %d, want baseline %d", persona.NPCID, state.Mood, persona.BaselineMood)
		}
	}

	for _, location := range Locations() {
		stored, err := store.GetLocation(ctx, location.ID)
		if err != nil {
			t.Fatalf("GetLocation(%s) error = %v", location.ID, err)
		}
		if stored.Name != location.Name {
			t.Errorf("location %s name = %q, want %q", location.ID, stored.Name, location.Name)
		}
	}

	events, err := store.ListEvents(ctx, "world", 10)
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 || events[0].Type != event.TypeWorldSeeded {
		t.Errorf("events = %+v, want one WORLD_SEEDED", events)
	}

	// Reseeding is idempotent.
	if err := Apply(ctx, stores, now); err != nil {
		t.Fatalf("second Apply() error = %v", err)
	}
}

func TestFixturesAreConsistent(t *testing.T) {
	locationIDs := make(map[string]bool)
	for _, location := range Locations() {
		locationIDs[location.ID] = true
	}
	for _, location := range Locations() {
		for _, conn := range location.Connections {
			if !locationIDs[conn] {
				t.Errorf("location %s connects to unknown %q", location.ID, conn)
			}
		}
	}
	for _, persona := range Personas() {
		if err := domain.ValidatePersona(persona); err != nil {
			t.Errorf("persona %s invalid: %v", persona.NPCID, err)
		}
		if len(persona.Background) == 0 || len(persona.Ideals) == 0 || len(persona.Bonds) == 0 || len(persona.Flaws) == 0 {
			t.Errorf("persona %s missing character sheet entries", persona.NPCID)
		}
		if len(persona.AllowedLocations) == 0 {
			t.Errorf("persona %s has no allowed locations", persona.NPCID)
		}
		for _, loc := range persona.AllowedLocations {
			if !locationIDs[loc] {
				t.Errorf("persona %s allows unknown location %q", persona.NPCID, loc)
			}
		}
	}
}
