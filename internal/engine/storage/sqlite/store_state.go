package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/storage"
)

// GetState loads one NPC's dynamic state.
func (s *Store) GetState(ctx context.Context, npcID string) (domain.DynamicState, error) {
	if err := ctx.Err(); err != nil {
		return domain.DynamicState{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.DynamicState{}, fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return domain.DynamicState{}, fmt.Errorf("npc id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT npc_id, location_id, mood, current_goal, memory_summary,
	pinned_memories_json, availability, unavailable_until, last_tick
FROM npc_states WHERE npc_id = ?
`, npcID)
	return scanState(row)
}

// PutState inserts or replaces one NPC's dynamic state outside a turn
// transaction. Turn commits go through CommitTurn.
func (s *Store) PutState(ctx context.Context, state domain.DynamicState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	return execPutState(ctx, s.sqlDB, state)
}

// GetRelationship loads the relationship signal for an NPC and player
// pair, returning storage.ErrNotFound when no history exists yet.
func (s *Store) GetRelationship(ctx context.Context, npcID, playerID string) (domain.Relationship, error) {
	if err := ctx.Err(); err != nil {
		return domain.Relationship{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Relationship{}, fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	playerID = strings.TrimSpace(playerID)
	if npcID == "" || playerID == "" {
		return domain.Relationship{}, fmt.Errorf("npc id and player id are required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT npc_id, player_id, affinity, trust, respect, bond_flags_json,
	grudge_flags_json, greeting_stage, last_interaction
FROM relationships WHERE npc_id = ? AND player_id = ?
`, npcID, playerID)

	var (
		rel             domain.Relationship
		bonds, grudges  string
		lastInteraction int64
	)
	err := row.Scan(
		&rel.NPCID,
		&rel.PlayerID,
		&rel.Affinity,
		&rel.Trust,
		&rel.Respect,
		&bonds,
		&grudges,
		&rel.GreetingStage,
		&lastInteraction,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Relationship{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Relationship{}, fmt.Errorf("get relationship: %w", err)
	}
	if rel.BondFlags, err = unmarshalStrings(bonds); err != nil {
		return domain.Relationship{}, err
	}
	if rel.GrudgeFlags, err = unmarshalStrings(grudges); err != nil {
		return domain.Relationship{}, err
	}
	if lastInteraction > 0 {
		rel.LastInteraction = fromMillis(lastInteraction)
	}
	return rel, nil
}

// CommitTurn applies one turn's state and relationship writes in a single
// transaction. A failure anywhere rolls back the whole turn.
func (s *Store) CommitTurn(ctx context.Context, commit storage.TurnCommit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(commit.State.NPCID) == "" {
		return fmt.Errorf("turn commit npc id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin turn tx: %w", err)
	}
	defer tx.Rollback()

	if err := execPutState(ctx, tx, commit.State); err != nil {
		return err
	}
	if commit.Relationship != nil {
		if err := execPutRelationship(ctx, tx, *commit.Relationship); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit turn: %w", err)
	}
	return nil
}

// SetLastTick records a planner tick attempt. It updates only the tick
// timestamp so failed ticks never disturb other state.
func (s *Store) SetLastTick(ctx context.Context, npcID string, ts time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return fmt.Errorf("npc id is required")
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE npc_states SET last_tick = ? WHERE npc_id = ?`,
		toMillis(ts), npcID,
	)
	if err != nil {
		return fmt.Errorf("set last tick: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set last tick rows: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func execPutState(ctx context.Context, db execer, state domain.DynamicState) error {
	pinned, err := marshalStrings(state.PinnedMemories)
	if err != nil {
		return err
	}
	lastTick := int64(0)
	if !state.LastTick.IsZero() {
		lastTick = toMillis(state.LastTick)
	}
	_, err = db.ExecContext(ctx, `
INSERT OR REPLACE INTO npc_states (
	npc_id, location_id, mood, current_goal, memory_summary,
	pinned_memories_json, availability, unavailable_until, last_tick
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		state.NPCID,
		state.LocationID,
		state.Mood,
		state.CurrentGoal,
		state.MemorySummary,
		pinned,
		string(state.Availability),
		toNullMillis(state.UnavailableUntil),
		lastTick,
	)
	if err != nil {
		return fmt.Errorf("put npc state: %w", err)
	}
	return nil
}

func execPutRelationship(ctx context.Context, db execer, rel domain.Relationship) error {
	bonds, err := marshalStrings(rel.BondFlags)
	if err != nil {
		return err
	}
	grudges, err := marshalStrings(rel.GrudgeFlags)
	if err != nil {
		return err
	}
	lastInteraction := int64(0)
	if !rel.LastInteraction.IsZero() {
		lastInteraction = toMillis(rel.LastInteraction)
	}
	_, err = db.ExecContext(ctx, `
INSERT OR REPLACE INTO relationships (
	npc_id, player_id, affinity, trust, respect, bond_flags_json,
	grudge_flags_json, greeting_stage, last_interaction
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		rel.NPCID,
		rel.PlayerID,
		rel.Affinity,
		rel.Trust,
		rel.Respect,
		bonds,
		grudges,
		rel.GreetingStage,
		lastInteraction,
	)
	if err != nil {
		return fmt.Errorf("put relationship: %w", err)
	}
	return nil
}

func scanState(row *sql.Row) (domain.DynamicState, error) {
	var (
		state            domain.DynamicState
		pinned           string
		availability     string
		unavailableUntil sql.NullInt64
		lastTick         int64
	)
	err := row.Scan(
		&state.NPCID,
		&state.LocationID,
		&state.Mood,
		&state.CurrentGoal,
		&state.MemorySummary,
		&pinned,
		&availability,
		&unavailableUntil,
		&lastTick,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DynamicState{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.DynamicState{}, fmt.Errorf("get npc state: %w", err)
	}
	if state.PinnedMemories, err = unmarshalStrings(pinned); err != nil {
		return domain.DynamicState{}, err
	}
	state.Availability = domain.Availability(availability)
	state.UnavailableUntil = fromNullMillis(unavailableUntil)
	if lastTick > 0 {
		state.LastTick = fromMillis(lastTick)
	}
	return state, nil
}
