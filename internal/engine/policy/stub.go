package policy

import (
	"context"
	"fmt"
	"hash/fnv"
	"math/rand"
	"strings"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
)

const longAbsence = 7 * 24 * time.Hour

// Action kinds the stub proposes. Only move and change_availability are in
// the compiler's safe registry; the rest are flavor by construction.
const (
	kindMove               = "move"
	kindRumor              = "rumor"
	kindHelp               = "help"
	kindRefuseService      = "refuse_service"
	kindReconciliationHook = "offer_reconciliation_hook"
	kindSeekHelp           = "seek_help"
	kindSpeakToOtherNPC    = "speak_to_other_npc"
	kindChangeAvailability = "change_availability"
)

// Stub is the deterministic fallback policy: a pure function of the
// request that always returns a minimal, valid NPCOutput. It backs every
// turn when no generative backend is configured, quota is exhausted, or
// the backend fails.
type Stub struct{}

// Decide implements Policy.
func (Stub) Decide(_ context.Context, req Request) (domain.NPCOutput, error) {
	if req.Observation.Autonomous() {
		return stubTick(req), nil
	}
	return stubExchange(req), nil
}

func stubExchange(req Request) domain.NPCOutput {
	rel := req.Relationship
	obs := req.Observation
	utterance := strings.ToLower(strings.TrimSpace(obs.PlayerUtterance))

	var candidates []domain.CandidateAction
	var reply string

	grudged := len(rel.GrudgeFlags) > 0 || rel.Trust < 20
	switch {
	case grudged:
		candidates = append(candidates,
			domain.CandidateAction{
				Kind:     kindRefuseService,
				Content:  "I don't trust this exchange yet.",
				Metadata: map[string]any{"reason": "grudge_or_low_trust"},
			},
			domain.CandidateAction{
				Kind:     kindReconciliationHook,
				Content:  "Bring proof you can be relied on: deliver a sealed letter to the watch post.",
				Metadata: map[string]any{"hook_type": "repair"},
			},
		)
		reply = "Not today. Earn back some trust, then we can speak plainly."
	default:
		if strings.Contains(utterance, "help") || strings.Contains(utterance, "can you") {
			candidates = append(candidates, domain.CandidateAction{
				Kind:     kindHelp,
				Content:  "Offer practical assistance that fits the role.",
				Metadata: map[string]any{"topic": "requested_help"},
			})
		}
		if strings.Contains(utterance, "rumor") || strings.Contains(utterance, "heard") || strings.Contains(utterance, "news") {
			candidates = append(candidates, domain.CandidateAction{
				Kind:    kindRumor,
				Content: "Share one rumor that may or may not be complete.",
			})
		}
		switch {
		case rel.Trust >= 60 && (domain.HasFlag(rel.BondFlags, "saved_me") || rel.Affinity >= 45):
			reply = "For you, I'll be direct: the safer route is through the market arches, not the open lane."
		case rel.Respect >= 60:
			reply = "You ask like someone who plans ahead. I'll give you the short version and the risk behind it."
		default:
			reply = "I'll answer what I can, but keep your expectations practical."
		}
	}

	dialogue := fmt.Sprintf("%s %s", stubGreeting(req), reply)

	moodDelta := 0
	trustDelta := 1
	affinityDelta := 1
	if strings.Contains(utterance, "thank") {
		moodDelta = 1
		trustDelta = 2
	}
	if strings.Contains(utterance, "help") {
		affinityDelta = 2
	}
	respectDelta := 1

	reaction := "Caution"
	if len(candidates) == 0 || candidates[0].Kind != kindRefuseService {
		reaction = "Guarded optimism"
	}
	happened := fmt.Sprintf("Spoke with %s in %s.", obs.PlayerID, locationLabel(obs))

	return domain.NPCOutput{
		Dialogue:         dialogue,
		Intent:           "maintain_relationship",
		CandidateActions: candidates,
		StateUpdates: domain.StateUpdates{
			MoodDelta:            &moodDelta,
			AffinityDelta:        &affinityDelta,
			TrustDelta:           &trustDelta,
			RespectDelta:         &respectDelta,
			GreetingStageAdvance: true,
		},
		MemoryUpdate: &domain.MemoryUpdate{
			Summary: strings.TrimSpace(req.State.MemorySummary + " " + happened + " Reaction: " + reaction + "."),
			Pin:     happened,
		},
	}
}

func stubGreeting(req Request) string {
	rel := req.Relationship
	obs := req.Observation
	name := req.Persona.Name

	switch {
	case rel.GreetingStage == 0:
		return fmt.Sprintf("%s sizes you up before offering a formal nod.", name)
	case !rel.LastInteraction.IsZero() && obs.Now.Sub(rel.LastInteraction) > longAbsence:
		return "It's been a while, and they make that clear with a measured pause."
	case len(rel.GrudgeFlags) > 0 || rel.Trust < 20:
		return fmt.Sprintf("%s's tone is curt, and old friction sits between you.", name)
	case rel.Trust >= 65 && rel.Affinity >= 40:
		return fmt.Sprintf("%s greets you warmly, already connecting today to your past efforts.", name)
	}
	return fmt.Sprintf("%s greets you with familiar restraint.", name)
}

// stubTick plans an autonomous turn biased by alignment. Candidate
// selection is derived from a hash of the NPC id and observation time so
// the stub stays a pure function of its inputs.
func stubTick(req Request) domain.NPCOutput {
	persona := req.Persona
	obs := req.Observation
	picker := rand.New(rand.NewSource(tickSeed(persona.NPCID, obs.Now)))

	var actions []domain.CandidateAction

	moveChance := 0.15
	switch {
	case persona.Alignment.LawChaosBias() > 0:
		moveChance -= 0.08
	case persona.Alignment.LawChaosBias() < 0:
		moveChance += 0.2
	}
	if picker.Float64() < moveChance {
		if target := pickLocation(picker, persona.AllowedLocations, obs.LocationID); target != "" {
			actions = append(actions, domain.CandidateAction{
				Kind:    kindMove,
				Target:  target,
				Content: fmt.Sprintf("Relocate to %s to pursue current goals.", target),
			})
		}
	}

	switch {
	case persona.Alignment.MoralBias() > 0:
		actions = append(actions, domain.CandidateAction{
			Kind:    kindSeekHelp,
			Content: "Check if anyone nearby needs assistance.",
		})
	case persona.Alignment.MoralBias() < 0:
		actions = append(actions, domain.CandidateAction{
			Kind:    kindRumor,
			Content: "Spread a self-serving version of recent events.",
		})
	default:
		actions = append(actions, domain.CandidateAction{
			Kind:    kindSpeakToOtherNPC,
			Content: "Exchange practical updates with another local.",
		})
	}

	if req.State.Availability == domain.AvailabilityOpen && picker.Float64() < 0.2 {
		actions = append(actions, domain.CandidateAction{
			Kind:    kindChangeAvailability,
			Content: "Take a brief break before returning.",
			Metadata: map[string]any{
				"availability":     string(domain.AvailabilityBusy),
				"duration_minutes": 15,
			},
		})
	}

	goal := req.State.CurrentGoal
	if len(actions) > 0 {
		goal = fmt.Sprintf("Follow through on: %s.", actions[0].Kind)
	}

	return domain.NPCOutput{
		Intent:           "npc_tick",
		CandidateActions: actions,
		StateUpdates:     domain.StateUpdates{CurrentGoal: goal},
	}
}

func tickSeed(npcID string, now time.Time) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(npcID))
	_, _ = fmt.Fprintf(h, "%d", now.Unix())
	return int64(h.Sum64())
}

func pickLocation(picker *rand.Rand, allowed []string, current string) string {
	candidates := make([]string, 0, len(allowed))
	for _, loc := range allowed {
		if loc != current {
			candidates = append(candidates, loc)
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[picker.Intn(len(candidates))]
}

func locationLabel(obs domain.Observation) string {
	if strings.TrimSpace(obs.LocationName) != "" {
		return obs.LocationName
	}
	return obs.LocationID
}
