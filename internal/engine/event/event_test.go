package event

import (
	"encoding/json"
	"testing"
)

func TestNewMarshalsPayload(t *testing.T) {
	evt, err := New(TypeNPCSpoke, "npc-1", SpokePayload{
		Dialogue:   "Keep your expectations practical.",
		Intent:     "maintain_relationship",
		LocationID: "town_square",
	})
	if err != nil {
		t.Fatalf("new event: %v", err)
	}
	if evt.Type != TypeNPCSpoke {
		t.Fatalf("type = %q, want %q", evt.Type, TypeNPCSpoke)
	}

	var payload SpokePayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.LocationID != "town_square" {
		t.Fatalf("location = %q, want town_square", payload.LocationID)
	}
}

func TestNewRequiresTypeAndNPC(t *testing.T) {
	if _, err := New("", "npc-1", nil); err == nil {
		t.Fatal("expected error for empty type")
	}
	if _, err := New(TypeNPCTick, "  ", nil); err == nil {
		t.Fatal("expected error for empty npc id")
	}
}
