package domain

import "strings"

// Caps applied when sanitizing untrusted policy output.
const (
	// DialogueMaxLen bounds one turn's dialogue text.
	DialogueMaxLen = 500
	// CandidateActionCap bounds the candidate actions considered per turn.
	CandidateActionCap = 5
	// IntensityMin and IntensityMax bound a candidate action's intensity.
	IntensityMin = 1
	IntensityMax = 5
)

// CandidateAction is a policy-proposed world effect pending classification
// as executable-safe or flavor-only. Kind is untrusted text; only kinds in
// the compiler's safe registry ever execute.
type CandidateAction struct {
	Kind      string         `json:"kind"`
	Target    string         `json:"target,omitempty"`
	Content   string         `json:"content,omitempty"`
	Intensity int            `json:"intensity,omitempty"`
	Tags      []string       `json:"tags,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// StateUpdates carries proposed deltas, never absolute values. Nil pointer
// fields are absent proposals, treated as no-ops rather than errors.
type StateUpdates struct {
	MoodDelta            *int     `json:"mood_delta,omitempty"`
	AffinityDelta        *int     `json:"affinity_delta,omitempty"`
	TrustDelta           *int     `json:"trust_delta,omitempty"`
	RespectDelta         *int     `json:"respect_delta,omitempty"`
	BondFlagsAdd         []string `json:"bond_flags_add,omitempty"`
	GrudgeFlagsAdd       []string `json:"grudge_flags_add,omitempty"`
	GreetingStageAdvance bool     `json:"greeting_stage_advance,omitempty"`
	CurrentGoal          string   `json:"current_goal,omitempty"`
}

// MemoryUpdate proposes memory changes: a wholesale summary replacement
// and/or a short fact to pin.
type MemoryUpdate struct {
	Summary string `json:"summary,omitempty"`
	Pin     string `json:"pin,omitempty"`
}

// NPCOutput is a policy's proposed turn result. It is untrusted input:
// every field is validated and every numeric delta is clamp-applied by the
// validator, never trusted verbatim.
type NPCOutput struct {
	Dialogue         string            `json:"dialogue,omitempty"`
	Intent           string            `json:"intent"`
	CandidateActions []CandidateAction `json:"candidate_actions,omitempty"`
	StateUpdates     StateUpdates      `json:"state_updates"`
	MemoryUpdate     *MemoryUpdate     `json:"memory_update,omitempty"`
}

// SanitizeOutput normalizes an untrusted NPCOutput into the shape the
// validator accepts: trimmed text within caps, a bounded candidate list,
// intensities clamped into range, and actions without a kind dropped.
func SanitizeOutput(out NPCOutput) NPCOutput {
	out.Dialogue = TruncateText(strings.TrimSpace(out.Dialogue), DialogueMaxLen)
	out.Intent = strings.TrimSpace(out.Intent)
	if out.Intent == "" {
		out.Intent = "unspecified"
	}

	actions := make([]CandidateAction, 0, len(out.CandidateActions))
	for _, action := range out.CandidateActions {
		action.Kind = strings.ToLower(strings.TrimSpace(action.Kind))
		if action.Kind == "" {
			continue
		}
		action.Target = strings.TrimSpace(action.Target)
		action.Intensity = clamp(action.Intensity, IntensityMin, IntensityMax)
		actions = append(actions, action)
		if len(actions) == CandidateActionCap {
			break
		}
	}
	out.CandidateActions = actions

	out.StateUpdates.CurrentGoal = TruncateText(strings.TrimSpace(out.StateUpdates.CurrentGoal), GoalMaxLen)
	if out.MemoryUpdate != nil {
		update := *out.MemoryUpdate
		update.Summary = TruncateText(strings.TrimSpace(update.Summary), MemorySummaryMaxLen)
		update.Pin = TruncateText(strings.TrimSpace(update.Pin), PinnedMemoryMaxLen)
		if update.Summary == "" && update.Pin == "" {
			out.MemoryUpdate = nil
		} else {
			out.MemoryUpdate = &update
		}
	}
	return out
}
