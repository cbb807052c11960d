// Package planner schedules autonomous NPC turns. It gates eligibility
// and delegates the actual turn to the engine; per-NPC mutual exclusion
// lives there so ticks and player turns share one lock.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/louisbranch/asterfall/internal/engine"
	"github.com/louisbranch/asterfall/internal/engine/event"
	"github.com/louisbranch/asterfall/internal/engine/storage"
	"github.com/louisbranch/asterfall/internal/platform/id"
)

// DefaultParallelism bounds concurrent ticks per sweep.
const DefaultParallelism = 4

// TickEngine is the slice of the engine the planner drives.
type TickEngine interface {
	ResolveTick(ctx context.Context, npcID string, now time.Time) (engine.TurnResult, error)
}

// Stores bundles the read surfaces the planner gates on plus the journal
// it reports failed ticks to.
type Stores struct {
	Personas storage.PersonaStore
	States   storage.StateStore
	World    storage.WorldStore
	Events   storage.EventStore
}

// Config tunes the sweep.
type Config struct {
	// MinTickInterval is the minimum wall-clock gap between two ticks of
	// the same NPC.
	MinTickInterval time.Duration
	// SweepInterval is how often the loop scans all NPCs.
	SweepInterval time.Duration
	// Parallelism bounds concurrent ticks; zero means the default.
	Parallelism int
}

// Outcome reports what one MaybeTick attempt did.
type Outcome struct {
	// Skipped is true when no tick ran; SkipReason says why.
	Skipped    bool
	SkipReason string
	Result     engine.TurnResult
}

// Skip reasons.
const (
	SkipTooSoon     = "too_soon"
	SkipNoLocation  = "no_location"
	SkipInFlight    = "in_flight"
	SkipUnavailable = "unavailable"
)

// Planner owns the autonomous tick schedule.
type Planner struct {
	engine TickEngine
	stores Stores
	cfg    Config
}

// New builds a planner over an engine.
func New(tickEngine TickEngine, stores Stores, cfg Config) *Planner {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = DefaultParallelism
	}
	return &Planner{engine: tickEngine, stores: stores, cfg: cfg}
}

// MaybeTick runs one autonomous turn for the NPC if it is eligible.
// Ineligibility is a skip with no side effects and no events. A tick
// attempt that ran the pipeline always lands in the journal, and
// last_tick advances even when the pipeline failed, so a persistently
// failing NPC cannot storm.
func (p *Planner) MaybeTick(ctx context.Context, npcID string, now time.Time) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	state, err := p.stores.States.GetState(ctx, npcID)
	if err != nil {
		return Outcome{}, fmt.Errorf("load state: %w", err)
	}
	if !state.LastTick.IsZero() && now.Sub(state.LastTick) < p.cfg.MinTickInterval {
		return Outcome{Skipped: true, SkipReason: SkipTooSoon}, nil
	}
	if state.UnavailableUntil != nil && now.Before(*state.UnavailableUntil) {
		return Outcome{Skipped: true, SkipReason: SkipUnavailable}, nil
	}
	if _, err := p.stores.World.GetLocation(ctx, state.LocationID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Outcome{Skipped: true, SkipReason: SkipNoLocation}, nil
		}
		return Outcome{}, fmt.Errorf("load location: %w", err)
	}

	result, err := p.engine.ResolveTick(ctx, npcID, now)
	if err != nil {
		if errors.Is(err, engine.ErrTickInFlight) {
			return Outcome{Skipped: true, SkipReason: SkipInFlight}, nil
		}
		// The attempt ran and failed; advance last_tick anyway.
		if tickErr := p.stores.States.SetLastTick(ctx, npcID, now); tickErr != nil {
			log.Printf("planner: record last_tick failed npc_id=%s err=%v", npcID, tickErr)
		}
		p.recordFailedTick(ctx, npcID, state.LocationID, now, err)
		return Outcome{}, fmt.Errorf("tick npc %s: %w", npcID, err)
	}
	return Outcome{Result: result}, nil
}

// recordFailedTick appends an NPC_TICK marking a tick attempt whose
// pipeline or commit failed. Every attempted tick lands in the journal;
// journaling itself is best effort and never masks the tick error.
func (p *Planner) recordFailedTick(ctx context.Context, npcID, locationID string, now time.Time, tickErr error) {
	evt, err := event.New(event.TypeNPCTick, npcID, event.TickPayload{
		LocationID: locationID,
		Failed:     true,
		Error:      tickErr.Error(),
	})
	if err != nil {
		log.Printf("planner: build failed-tick event npc_id=%s err=%v", npcID, err)
		return
	}
	evt.Timestamp = now
	evt.Origin = event.OriginPlanner
	if _, err := p.stores.Events.AppendEvent(ctx, evt); err != nil {
		log.Printf("planner: append failed-tick event npc_id=%s err=%v", npcID, err)
	}
}

// Sweep ticks every known NPC once, with bounded parallelism. Individual
// failures are logged and do not stop the sweep.
func (p *Planner) Sweep(ctx context.Context, now time.Time) error {
	sweepID, err := id.NewID()
	if err != nil {
		return fmt.Errorf("sweep id: %w", err)
	}
	npcIDs, err := p.stores.Personas.ListNPCIDs(ctx)
	if err != nil {
		return fmt.Errorf("list npcs: %w", err)
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(p.cfg.Parallelism)
	for _, npcID := range npcIDs {
		group.Go(func() error {
			outcome, err := p.MaybeTick(ctx, npcID, now)
			if err != nil {
				log.Printf("planner: tick failed sweep_id=%s npc_id=%s err=%v", sweepID, npcID, err)
				return nil
			}
			if !outcome.Skipped {
				log.Printf("planner: ticked sweep_id=%s npc_id=%s executed=%d flavor=%d", sweepID, npcID, len(outcome.Result.Executed), len(outcome.Result.Flavor))
			}
			return nil
		})
	}
	return group.Wait()
}

// Run sweeps on the configured interval until the context is canceled.
func (p *Planner) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			if err := p.Sweep(ctx, now); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("planner: sweep failed err=%v", err)
			}
		}
	}
}
