package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/louisbranch/asterfall/internal/engine"
	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/event"
	"github.com/louisbranch/asterfall/internal/engine/storage"
)

type fakeStores struct {
	mu        sync.Mutex
	states    map[string]domain.DynamicState
	locations map[string]domain.Location
	lastTicks map[string]time.Time
	npcIDs    []string
	events    []event.Event
}

func newFakeStores() *fakeStores {
	return &fakeStores{
		states:    make(map[string]domain.DynamicState),
		locations: make(map[string]domain.Location),
		lastTicks: make(map[string]time.Time),
	}
}

func (f *fakeStores) PutPersona(context.Context, domain.Persona) error { return nil }

func (f *fakeStores) GetPersona(_ context.Context, npcID string) (domain.Persona, error) {
	return domain.Persona{NPCID: npcID, Name: npcID, Alignment: domain.AlignmentTrueNeutral}, nil
}

func (f *fakeStores) ListNPCIDs(context.Context) ([]string, error) {
	return append([]string(nil), f.npcIDs...), nil
}

func (f *fakeStores) GetState(_ context.Context, npcID string) (domain.DynamicState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.states[npcID]
	if !ok {
		return domain.DynamicState{}, storage.ErrNotFound
	}
	return state, nil
}

func (f *fakeStores) PutState(_ context.Context, state domain.DynamicState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[state.NPCID] = state
	return nil
}

func (f *fakeStores) GetRelationship(context.Context, string, string) (domain.Relationship, error) {
	return domain.Relationship{}, storage.ErrNotFound
}

func (f *fakeStores) CommitTurn(_ context.Context, commit storage.TurnCommit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[commit.State.NPCID] = commit.State
	return nil
}

func (f *fakeStores) SetLastTick(_ context.Context, npcID string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastTicks[npcID] = at
	return nil
}

func (f *fakeStores) AppendEvent(_ context.Context, evt event.Event) (event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	evt.Seq = uint64(len(f.events) + 1)
	f.events = append(f.events, evt)
	return evt, nil
}

func (f *fakeStores) ListEvents(_ context.Context, npcID string, limit int) ([]event.Event, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []event.Event
	for _, evt := range f.events {
		if evt.NPCID == npcID {
			out = append(out, evt)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStores) appendedEvents() []event.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]event.Event(nil), f.events...)
}

func (f *fakeStores) PutLocation(context.Context, domain.Location) error { return nil }

func (f *fakeStores) GetLocation(_ context.Context, id string) (domain.Location, error) {
	loc, ok := f.locations[id]
	if !ok {
		return domain.Location{}, storage.ErrNotFound
	}
	return loc, nil
}

type fakeEngine struct {
	mu      sync.Mutex
	calls   int
	err     error
	block   chan struct{}
	release chan struct{}
}

func (f *fakeEngine) ResolveTick(_ context.Context, npcID string, _ time.Time) (engine.TurnResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		close(f.block)
		<-f.release
	}
	if f.err != nil {
		return engine.TurnResult{}, f.err
	}
	return engine.TurnResult{NPCID: npcID}, nil
}

func (f *fakeEngine) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var plannerNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func plannerFixture(fe *fakeEngine) (*Planner, *fakeStores) {
	stores := newFakeStores()
	stores.locations["town_square"] = domain.Location{ID: "town_square", Name: "Asterfall Commons"}
	stores.states["npc-1"] = domain.DynamicState{NPCID: "npc-1", LocationID: "town_square", Availability: domain.AvailabilityOpen}
	stores.npcIDs = []string{"npc-1"}
	planner := New(fe, Stores{Personas: stores, States: stores, World: stores, Events: stores}, Config{
		MinTickInterval: 10 * time.Minute,
	})
	return planner, stores
}

func TestMaybeTickRuns(t *testing.T) {
	fe := &fakeEngine{}
	planner, _ := plannerFixture(fe)

	outcome, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow)
	if err != nil {
		t.Fatalf("MaybeTick() error = %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("Skipped = true (%s), want a tick", outcome.SkipReason)
	}
	if fe.callCount() != 1 {
		t.Errorf("engine calls = %d, want 1", fe.callCount())
	}
}

func TestMaybeTickSkipsWithinMinInterval(t *testing.T) {
	fe := &fakeEngine{}
	planner, stores := plannerFixture(fe)
	state := stores.states["npc-1"]
	state.LastTick = plannerNow.Add(-time.Minute)
	stores.states["npc-1"] = state

	outcome, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow)
	if err != nil {
		t.Fatalf("MaybeTick() error = %v", err)
	}
	if !outcome.Skipped || outcome.SkipReason != SkipTooSoon {
		t.Errorf("outcome = %+v, want skip %q", outcome, SkipTooSoon)
	}
	if fe.callCount() != 0 {
		t.Errorf("engine calls = %d, want 0", fe.callCount())
	}
}

func TestMaybeTickSkipsUnknownLocation(t *testing.T) {
	fe := &fakeEngine{}
	planner, stores := plannerFixture(fe)
	state := stores.states["npc-1"]
	state.LocationID = "nowhere"
	stores.states["npc-1"] = state

	outcome, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow)
	if err != nil {
		t.Fatalf("MaybeTick() error = %v", err)
	}
	if !outcome.Skipped || outcome.SkipReason != SkipNoLocation {
		t.Errorf("outcome = %+v, want skip %q", outcome, SkipNoLocation)
	}
}

func TestMaybeTickSkipsUnavailableNPC(t *testing.T) {
	fe := &fakeEngine{}
	planner, stores := plannerFixture(fe)
	until := plannerNow.Add(time.Hour)
	state := stores.states["npc-1"]
	state.UnavailableUntil = &until
	stores.states["npc-1"] = state

	outcome, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow)
	if err != nil {
		t.Fatalf("MaybeTick() error = %v", err)
	}
	if !outcome.Skipped || outcome.SkipReason != SkipUnavailable {
		t.Errorf("outcome = %+v, want skip %q", outcome, SkipUnavailable)
	}
}

func TestMaybeTickSkipsWhileInFlight(t *testing.T) {
	fe := &fakeEngine{block: make(chan struct{}), release: make(chan struct{})}
	real := &inFlightEngine{inner: fe}
	stores := newFakeStores()
	stores.locations["town_square"] = domain.Location{ID: "town_square"}
	stores.states["npc-1"] = domain.DynamicState{NPCID: "npc-1", LocationID: "town_square"}
	planner := New(real, Stores{Personas: stores, States: stores, World: stores, Events: stores}, Config{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow); err != nil {
			t.Errorf("first MaybeTick() error = %v", err)
		}
	}()
	<-fe.block

	outcome, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow)
	if err != nil {
		t.Fatalf("second MaybeTick() error = %v", err)
	}
	if !outcome.Skipped || outcome.SkipReason != SkipInFlight {
		t.Errorf("outcome = %+v, want skip %q", outcome, SkipInFlight)
	}

	close(fe.release)
	<-done
}

// inFlightEngine mimics the engine's per-NPC TryLock behavior.
type inFlightEngine struct {
	mu    sync.Mutex
	inner *fakeEngine
}

func (e *inFlightEngine) ResolveTick(ctx context.Context, npcID string, now time.Time) (engine.TurnResult, error) {
	if !e.mu.TryLock() {
		return engine.TurnResult{}, engine.ErrTickInFlight
	}
	defer e.mu.Unlock()
	return e.inner.ResolveTick(ctx, npcID, now)
}

func TestMaybeTickAdvancesLastTickOnFailure(t *testing.T) {
	fe := &fakeEngine{err: errors.New("backend exploded")}
	planner, stores := plannerFixture(fe)

	if _, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow); err == nil {
		t.Fatal("MaybeTick() error = nil, want failure")
	}
	if got := stores.lastTicks["npc-1"]; !got.Equal(plannerNow) {
		t.Errorf("last_tick = %v, want %v after failed attempt", got, plannerNow)
	}
}

func TestMaybeTickJournalsFailedAttempt(t *testing.T) {
	fe := &fakeEngine{err: errors.New("disk full")}
	planner, stores := plannerFixture(fe)

	if _, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow); err == nil {
		t.Fatal("MaybeTick() error = nil, want failure")
	}

	events := stores.appendedEvents()
	if len(events) != 1 {
		t.Fatalf("events appended = %d, want exactly 1 NPC_TICK", len(events))
	}
	evt := events[0]
	if evt.Type != event.TypeNPCTick {
		t.Errorf("event type = %s, want %s", evt.Type, event.TypeNPCTick)
	}
	if evt.Origin != event.OriginPlanner {
		t.Errorf("event origin = %s, want %s", evt.Origin, event.OriginPlanner)
	}
	if evt.NPCID != "npc-1" {
		t.Errorf("event npc = %s, want npc-1", evt.NPCID)
	}

	var payload event.TickPayload
	if err := json.Unmarshal(evt.PayloadJSON, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if !payload.Failed {
		t.Error("payload.Failed = false, want true")
	}
	if !strings.Contains(payload.Error, "disk full") {
		t.Errorf("payload.Error = %q, want the tick failure message", payload.Error)
	}
	if payload.LocationID != "town_square" {
		t.Errorf("payload.LocationID = %q, want town_square", payload.LocationID)
	}
}

func TestMaybeTickSkipsEmitNoEvents(t *testing.T) {
	fe := &fakeEngine{}
	planner, stores := plannerFixture(fe)
	state := stores.states["npc-1"]
	state.LastTick = plannerNow.Add(-time.Minute)
	stores.states["npc-1"] = state

	if _, err := planner.MaybeTick(context.Background(), "npc-1", plannerNow); err != nil {
		t.Fatalf("MaybeTick() error = %v", err)
	}
	if got := stores.appendedEvents(); len(got) != 0 {
		t.Errorf("events appended = %d, want 0 for a skip", len(got))
	}
}

func TestSweepTicksEveryNPC(t *testing.T) {
	fe := &fakeEngine{}
	planner, stores := plannerFixture(fe)
	stores.states["npc-2"] = domain.DynamicState{NPCID: "npc-2", LocationID: "town_square"}
	stores.npcIDs = []string{"npc-1", "npc-2"}

	if err := planner.Sweep(context.Background(), plannerNow); err != nil {
		t.Fatalf("Sweep() error = %v", err)
	}
	if fe.callCount() != 2 {
		t.Errorf("engine calls = %d, want 2", fe.callCount())
	}
}
