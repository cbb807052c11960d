// Package compiler turns candidate actions into world mutations. The
// safe registry is closed: relocation and availability changes execute,
// everything else is downgraded to flavor. Guardrail tags downgrade an
// action regardless of its kind and are checked on every origin.
package compiler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
)

// Safe registry kinds.
const (
	KindMove               = "move"
	KindChangeAvailability = "change_availability"
)

// AutonomousTag marks executions that originate from a planner tick.
const AutonomousTag = "autonomous"

// Downgrade reasons recorded on flavor entries.
const (
	ReasonUnsafeKind         = "unsafe_kind"
	ReasonGuardrailArc       = "guardrail_arc"
	ReasonGuardrailDeath     = "guardrail_death"
	ReasonAlreadyThere       = "already_there"
	ReasonNotConnected       = "not_connected"
	ReasonUnknownLocation    = "unknown_location"
	ReasonRestrictedLocation = "restricted_location"
)

var arcTags = []string{"arc", "story", "plot", "progression", "quest_advance"}
var deathTags = []string{"kill", "death", "die", "murder", "execute_npc", "remove_npc"}

// WorldLookup resolves location records for connectivity checks.
type WorldLookup interface {
	GetLocation(ctx context.Context, id string) (domain.Location, error)
}

// Execution is one world mutation the compiler approved.
type Execution struct {
	Kind             string
	Target           string
	Availability     domain.Availability
	UnavailableUntil *time.Time
	Tags             []string
}

// FlavorEntry records an action downgraded to dialogue color.
type FlavorEntry struct {
	Kind       string
	Target     string
	Reason     string
	Autonomous bool
}

// Result carries the post-compilation state alongside the audit of what
// executed and what was downgraded.
type Result struct {
	State    domain.DynamicState
	Executed []Execution
	Flavor   []FlavorEntry
}

// Compile processes candidate actions in order. Each executed action's
// effect is visible to the checks of later actions in the same batch: a
// move updates the working location before the next action is examined.
// The only error path is a failed location lookup; downgrades are not
// errors.
func Compile(ctx context.Context, persona domain.Persona, state domain.DynamicState, actions []domain.CandidateAction, origin event.Origin, world WorldLookup, now time.Time) (Result, error) {
	res := Result{State: state}
	autonomous := origin == event.OriginPlanner

	for _, action := range actions {
		if reason := guardrailReason(action); reason != "" {
			res.Flavor = append(res.Flavor, FlavorEntry{
				Kind:       action.Kind,
				Target:     action.Target,
				Reason:     reason,
				Autonomous: autonomous,
			})
			continue
		}

		switch action.Kind {
		case KindMove:
			exec, reason, err := compileMove(ctx, persona, res.State, action, world)
			if err != nil {
				return Result{}, err
			}
			if reason != "" {
				res.Flavor = append(res.Flavor, FlavorEntry{
					Kind:       action.Kind,
					Target:     action.Target,
					Reason:     reason,
					Autonomous: autonomous,
				})
				continue
			}
			res.State.LocationID = exec.Target
			res.Executed = append(res.Executed, finishExecution(exec, action, autonomous))
		case KindChangeAvailability:
			exec := compileAvailability(action, now)
			res.State.Availability = exec.Availability
			res.State.UnavailableUntil = exec.UnavailableUntil
			res.Executed = append(res.Executed, finishExecution(exec, action, autonomous))
		default:
			res.Flavor = append(res.Flavor, FlavorEntry{
				Kind:       action.Kind,
				Target:     action.Target,
				Reason:     ReasonUnsafeKind,
				Autonomous: autonomous,
			})
		}
	}
	return res, nil
}

func compileMove(ctx context.Context, persona domain.Persona, state domain.DynamicState, action domain.CandidateAction, world WorldLookup) (Execution, string, error) {
	target := strings.TrimSpace(action.Target)
	if target == "" {
		return Execution{}, ReasonUnknownLocation, nil
	}
	if target == state.LocationID {
		return Execution{}, ReasonAlreadyThere, nil
	}
	if !persona.MayRelocateTo(target) {
		return Execution{}, ReasonRestrictedLocation, nil
	}
	current, err := world.GetLocation(ctx, state.LocationID)
	if err != nil {
		return Execution{}, "", fmt.Errorf("load location %s: %w", state.LocationID, err)
	}
	if _, err := world.GetLocation(ctx, target); err != nil {
		return Execution{}, ReasonUnknownLocation, nil
	}
	if !current.ConnectedTo(target) {
		return Execution{}, ReasonNotConnected, nil
	}
	return Execution{Kind: KindMove, Target: target}, "", nil
}

func compileAvailability(action domain.CandidateAction, now time.Time) Execution {
	availability := domain.NormalizeAvailability(metadataString(action.Metadata, "availability"))
	exec := Execution{Kind: KindChangeAvailability, Availability: availability}
	if availability != domain.AvailabilityOpen {
		if minutes := metadataInt(action.Metadata, "duration_minutes"); minutes > 0 {
			until := now.Add(time.Duration(minutes) * time.Minute)
			exec.UnavailableUntil = &until
		}
	}
	return exec
}

func finishExecution(exec Execution, action domain.CandidateAction, autonomous bool) Execution {
	exec.Tags = append([]string(nil), action.Tags...)
	if autonomous {
		exec.Tags = append(exec.Tags, AutonomousTag)
	}
	return exec
}

// guardrailReason reports why an action must be downgraded regardless
// of its kind, or empty when no guardrail applies.
func guardrailReason(action domain.CandidateAction) string {
	for _, tag := range action.Tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		for _, marker := range deathTags {
			if strings.Contains(tag, marker) {
				return ReasonGuardrailDeath
			}
		}
		for _, marker := range arcTags {
			if strings.Contains(tag, marker) {
				return ReasonGuardrailArc
			}
		}
	}
	kind := strings.ToLower(action.Kind)
	for _, marker := range deathTags {
		if strings.Contains(kind, marker) {
			return ReasonGuardrailDeath
		}
	}
	for _, marker := range arcTags {
		if strings.Contains(kind, marker) {
			return ReasonGuardrailArc
		}
	}
	return ""
}

func metadataString(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	if value, ok := metadata[key].(string); ok {
		return value
	}
	return ""
}

func metadataInt(metadata map[string]any, key string) int {
	if metadata == nil {
		return 0
	}
	switch value := metadata[key].(type) {
	case int:
		return value
	case float64:
		return int(value)
	}
	return 0
}
