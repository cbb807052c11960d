// Package engine orchestrates one NPC turn: policy decision, state
// validation, action compilation, a single transactional commit, then
// event emission. It is the only writer of NPC state.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/louisbranch/asterfall/internal/engine/compiler"
	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
	"github.com/louisbranch/asterfall/internal/engine/policy"
	"github.com/louisbranch/asterfall/internal/engine/storage"
	"github.com/louisbranch/asterfall/internal/engine/validator"
)

// ErrTickInFlight reports that the NPC is already being processed and
// the tick attempt was skipped without side effects.
var ErrTickInFlight = errors.New("tick already in flight for npc")

// Stores bundles the persistence surfaces the engine writes through.
type Stores struct {
	Personas storage.PersonaStore
	States   storage.StateStore
	World    storage.WorldStore
	Events   storage.EventStore
}

// Config tunes validation behavior.
type Config struct {
	Validator validator.Config
}

// Engine resolves turns. Per-NPC locks guarantee a given NPC is never
// processed by two turns at once; unrelated NPCs proceed in parallel.
type Engine struct {
	stores  Stores
	gateway *policy.Gateway
	cfg     Config
	locks   *npcLocks
	tracer  trace.Tracer
	entropy *ulid.MonotonicEntropy
}

// TurnResult is what a completed turn hands back to the caller.
type TurnResult struct {
	TurnID         string
	NPCID          string
	Dialogue       string
	Intent         string
	Source         policy.Source
	FallbackReason string
	Applied        validator.Applied
	Executed       []compiler.Execution
	Flavor         []compiler.FlavorEntry
	Events         []event.Event
}

// New builds an engine over the given stores and policy gateway.
func New(stores Stores, gateway *policy.Gateway, cfg Config) *Engine {
	return &Engine{
		stores:  stores,
		gateway: gateway,
		cfg:     cfg,
		locks:   newNPCLocks(),
		tracer:  otel.Tracer("asterfall/engine"),
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}
}

// ResolveTurn runs one player-triggered turn synchronously. The caller
// observes either the fully committed turn or an error with no partial
// state. Context cancellation before commit aborts the turn.
func (e *Engine) ResolveTurn(ctx context.Context, obs domain.Observation) (TurnResult, error) {
	if err := domain.ValidateObservation(obs); err != nil {
		return TurnResult{}, err
	}
	if obs.Autonomous() {
		return TurnResult{}, fmt.Errorf("player turn requires a player id")
	}

	release := e.locks.acquire(obs.NPCID)
	defer release()

	return e.resolve(ctx, obs, event.OriginPlayer)
}

// ResolveTick runs one autonomous turn for the NPC. A second tick while
// one is outstanding, or a tick overlapping a player turn, returns
// ErrTickInFlight with no side effects.
func (e *Engine) ResolveTick(ctx context.Context, npcID string, now time.Time) (TurnResult, error) {
	release, ok := e.locks.tryAcquire(npcID)
	if !ok {
		return TurnResult{}, ErrTickInFlight
	}
	defer release()

	state, err := e.stores.States.GetState(ctx, npcID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load state for tick: %w", err)
	}
	location, err := e.stores.World.GetLocation(ctx, state.LocationID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load tick location: %w", err)
	}

	obs := domain.Observation{
		NPCID:        npcID,
		LocationID:   location.ID,
		LocationName: location.Name,
		WorldSummary: location.Description,
		Now:          now,
	}
	return e.resolve(ctx, obs, event.OriginPlanner)
}

func (e *Engine) resolve(ctx context.Context, obs domain.Observation, origin event.Origin) (TurnResult, error) {
	ctx, span := e.tracer.Start(ctx, "engine.resolve", trace.WithAttributes(
		attribute.String("npc.id", obs.NPCID),
		attribute.String("turn.origin", string(origin)),
	))
	defer span.End()

	turnID := ulid.MustNew(ulid.Timestamp(obs.Now), e.entropy).String()

	persona, err := e.stores.Personas.GetPersona(ctx, obs.NPCID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load persona: %w", err)
	}
	state, err := e.stores.States.GetState(ctx, obs.NPCID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load state: %w", err)
	}

	rel := domain.NewRelationship(obs.NPCID, obs.PlayerID)
	playerTurn := origin == event.OriginPlayer
	if playerTurn {
		existing, err := e.stores.States.GetRelationship(ctx, obs.NPCID, obs.PlayerID)
		switch {
		case err == nil:
			rel = existing
		case errors.Is(err, storage.ErrNotFound):
		default:
			return TurnResult{}, fmt.Errorf("load relationship: %w", err)
		}
	}

	resolution, err := e.gateway.Resolve(ctx, policy.Request{
		Persona:      persona,
		State:        state,
		Relationship: rel,
		Observation:  obs,
	})
	if err != nil {
		return TurnResult{}, fmt.Errorf("resolve policy: %w", err)
	}
	output := resolution.Output

	validated := validator.Apply(persona, state, rel, output, playerTurn, e.cfg.Validator, obs.Now)

	compiled, err := compiler.Compile(ctx, persona, validated.State, output.CandidateActions, origin, e.stores.World, obs.Now)
	if err != nil {
		return TurnResult{}, fmt.Errorf("compile actions: %w", err)
	}

	nextState := compiled.State
	if origin == event.OriginPlanner {
		nextState.LastTick = obs.Now
	}

	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}

	commit := storage.TurnCommit{State: nextState}
	if playerTurn {
		relCopy := validated.Relationship
		commit.Relationship = &relCopy
	}
	if err := e.stores.States.CommitTurn(ctx, commit); err != nil {
		return TurnResult{}, fmt.Errorf("commit turn: %w", err)
	}

	result := TurnResult{
		TurnID:         turnID,
		NPCID:          obs.NPCID,
		Dialogue:       output.Dialogue,
		Intent:         output.Intent,
		Source:         resolution.Source,
		FallbackReason: resolution.FallbackReason,
		Applied:        validated.Applied,
		Executed:       compiled.Executed,
		Flavor:         compiled.Flavor,
	}
	result.Events = e.emitTurnEvents(ctx, obs, origin, turnID, resolution, validated, compiled, state)
	return result, nil
}

// emitTurnEvents appends the turn's audit events after commit. Emission
// is best-effort: a failed append is logged and never unwinds the turn.
func (e *Engine) emitTurnEvents(ctx context.Context, obs domain.Observation, origin event.Origin, turnID string, resolution policy.Resolution, validated validator.Result, compiled compiler.Result, prior domain.DynamicState) []event.Event {
	var emitted []event.Event
	emit := func(evt event.Event, err error) {
		if err != nil {
			log.Printf("engine: build event failed npc_id=%s type=%s err=%v", obs.NPCID, evt.Type, err)
			return
		}
		evt.Timestamp = obs.Now
		evt.PlayerID = obs.PlayerID
		evt.Origin = origin
		evt.TurnID = turnID
		stored, appendErr := e.stores.Events.AppendEvent(ctx, evt)
		if appendErr != nil {
			log.Printf("engine: append event failed npc_id=%s type=%s err=%v", obs.NPCID, evt.Type, appendErr)
			return
		}
		emitted = append(emitted, stored)
	}

	if resolution.Output.Dialogue != "" {
		evt, err := event.New(event.TypeNPCSpoke, obs.NPCID, event.SpokePayload{
			Dialogue:   resolution.Output.Dialogue,
			Intent:     resolution.Output.Intent,
			LocationID: obs.LocationID,
			Source:     string(resolution.Source),
		})
		emit(evt, err)
	}

	applied := validated.Applied
	evt, err := event.New(event.TypeNPCStateUpdated, obs.NPCID, event.StateUpdatedPayload{
		Mood:              validated.State.Mood,
		MoodDecay:         applied.MoodDecay,
		MoodDelta:         applied.MoodDelta,
		AffinityDelta:     applied.AffinityDelta,
		TrustDelta:        applied.TrustDelta,
		RespectDelta:      applied.RespectDelta,
		BondFlagsAdded:    applied.BondFlagsAdded,
		GrudgeFlagsAdded:  applied.GrudgeFlagsAdded,
		GreetingStage:     validated.Relationship.GreetingStage,
		SummaryReplaced:   applied.MemoryReplaced,
		PinnedMemoryAdded: applied.PinAdded,
		DroppedFields:     applied.DroppedFields,
	})
	emit(evt, err)

	autonomous := origin == event.OriginPlanner
	for _, exec := range compiled.Executed {
		switch exec.Kind {
		case compiler.KindMove:
			evt, err := event.New(event.TypeNPCMoved, obs.NPCID, event.MovedPayload{
				FromLocationID: prior.LocationID,
				ToLocationID:   exec.Target,
				Autonomous:     autonomous,
			})
			emit(evt, err)
		case compiler.KindChangeAvailability:
			minutes := 0
			if exec.UnavailableUntil != nil {
				minutes = int(exec.UnavailableUntil.Sub(obs.Now) / time.Minute)
			}
			evt, err := event.New(event.TypeNPCAvailabilityChanged, obs.NPCID, event.AvailabilityChangedPayload{
				Availability:    string(exec.Availability),
				DurationMinutes: minutes,
				Autonomous:      autonomous,
			})
			emit(evt, err)
		}
	}

	for _, flavor := range compiled.Flavor {
		evt, err := event.New(event.TypeFlavorOnly, obs.NPCID, event.FlavorOnlyPayload{
			Kind:       flavor.Kind,
			Target:     flavor.Target,
			Reason:     flavor.Reason,
			Autonomous: flavor.Autonomous,
		})
		emit(evt, err)
	}

	if autonomous {
		evt, err := event.New(event.TypeNPCTick, obs.NPCID, event.TickPayload{
			LocationID: obs.LocationID,
			Intent:     resolution.Output.Intent,
			Executed:   len(compiled.Executed),
			Flavor:     len(compiled.Flavor),
			Fallback:   resolution.Source == policy.SourceStub && resolution.FallbackReason != "",
		})
		emit(evt, err)
	}

	return emitted
}
