package policy

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

func stubRequest() Request {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	persona := domain.Persona{
		NPCID:     "npc-1",
		Name:      "Brann",
		Alignment: domain.AlignmentLawfulNeutral,
	}
	return Request{
		Persona:      persona,
		State:        domain.NewDynamicState(persona, "town_square"),
		Relationship: domain.NewRelationship("npc-1", "player-1"),
		Observation: domain.Observation{
			NPCID:           "npc-1",
			PlayerID:        "player-1",
			PlayerUtterance: "hello there",
			LocationID:      "town_square",
			Now:             now,
		},
	}
}

func TestStubFirstMeetingGreeting(t *testing.T) {
	out, err := Stub{}.Decide(context.Background(), stubRequest())
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !strings.Contains(out.Dialogue, "sizes you up") {
		t.Errorf("Dialogue = %q, want first-meeting greeting", out.Dialogue)
	}
	if out.StateUpdates.GreetingStageAdvance != true {
		t.Error("GreetingStageAdvance = false, want true")
	}
	if out.MemoryUpdate == nil {
		t.Fatal("MemoryUpdate = nil, want summary and pin")
	}
}

func TestStubLongAbsenceGreeting(t *testing.T) {
	req := stubRequest()
	req.Relationship.GreetingStage = 2
	req.Relationship.LastInteraction = req.Observation.Now.Add(-10 * 24 * time.Hour)

	out, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !strings.Contains(out.Dialogue, "been a while") {
		t.Errorf("Dialogue = %q, want long-absence greeting", out.Dialogue)
	}
}

func TestStubGrudgeRefusesService(t *testing.T) {
	req := stubRequest()
	req.Relationship.GreetingStage = 1
	req.Relationship.GrudgeFlags = []string{"insulted_me"}
	req.Relationship.Trust = 50

	out, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if len(out.CandidateActions) < 2 {
		t.Fatalf("len(CandidateActions) = %d, want refusal and reconciliation hook", len(out.CandidateActions))
	}
	if out.CandidateActions[0].Kind != "refuse_service" {
		t.Errorf("first action kind = %q, want refuse_service", out.CandidateActions[0].Kind)
	}
	if out.CandidateActions[1].Kind != "offer_reconciliation_hook" {
		t.Errorf("second action kind = %q, want offer_reconciliation_hook", out.CandidateActions[1].Kind)
	}
}

func TestStubLowTrustRefusesService(t *testing.T) {
	req := stubRequest()
	req.Relationship.GreetingStage = 1
	req.Relationship.Trust = 10

	out, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if len(out.CandidateActions) == 0 || out.CandidateActions[0].Kind != "refuse_service" {
		t.Errorf("CandidateActions = %+v, want refuse_service first", out.CandidateActions)
	}
}

func TestStubHelpKeywordProposesHelp(t *testing.T) {
	req := stubRequest()
	req.Relationship.Trust = 40
	req.Observation.PlayerUtterance = "Can you help me find the warden?"

	out, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	found := false
	for _, action := range out.CandidateActions {
		if action.Kind == "help" {
			found = true
		}
	}
	if !found {
		t.Errorf("CandidateActions = %+v, want a help candidate", out.CandidateActions)
	}
}

func TestStubTickDeterministic(t *testing.T) {
	req := stubRequest()
	req.Observation.PlayerID = ""
	req.Observation.PlayerUtterance = ""
	req.Persona.Alignment = domain.AlignmentChaoticGood
	req.Persona.AllowedLocations = []string{"town_square", "ruin_upper"}

	first, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	second, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("tick output differs across identical inputs:\n%+v\n%+v", first, second)
	}
}

func TestStubTickAlignmentBias(t *testing.T) {
	tests := []struct {
		name      string
		alignment domain.Alignment
		wantKind  string
	}{
		{"good seeks help", domain.AlignmentLawfulGood, "seek_help"},
		{"evil spreads rumors", domain.AlignmentNeutralEvil, "rumor"},
		{"neutral talks to locals", domain.AlignmentTrueNeutral, "speak_to_other_npc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := stubRequest()
			req.Observation.PlayerID = ""
			req.Observation.PlayerUtterance = ""
			req.Persona.Alignment = tt.alignment

			out, err := Stub{}.Decide(context.Background(), req)
			if err != nil {
				t.Fatalf("Decide() error = %v", err)
			}
			found := false
			for _, action := range out.CandidateActions {
				if action.Kind == tt.wantKind {
					found = true
				}
			}
			if !found {
				t.Errorf("CandidateActions = %+v, want kind %q", out.CandidateActions, tt.wantKind)
			}
		})
	}
}

func TestStubTickGoalFollowsFirstAction(t *testing.T) {
	req := stubRequest()
	req.Observation.PlayerID = ""
	req.Observation.PlayerUtterance = ""
	req.Persona.Alignment = domain.AlignmentTrueNeutral

	out, err := Stub{}.Decide(context.Background(), req)
	if err != nil {
		t.Fatalf("Decide() error = %v", err)
	}
	if len(out.CandidateActions) == 0 {
		t.Fatal("tick produced no candidate actions")
	}
	want := "Follow through on: " + out.CandidateActions[0].Kind + "."
	if out.StateUpdates.CurrentGoal != want {
		t.Errorf("CurrentGoal = %q, want %q", out.StateUpdates.CurrentGoal, want)
	}
}
