package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/asterfall/internal/engine/event"
)

// AppendEvent persists an event and returns it with its assigned sequence
// number. Prior events are never mutated.
func (s *Store) AppendEvent(ctx context.Context, evt event.Event) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if s == nil || s.sqlDB == nil {
		return event.Event{}, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(string(evt.Type)) == "" {
		return event.Event{}, fmt.Errorf("event type is required")
	}
	if strings.TrimSpace(evt.NPCID) == "" {
		return event.Event{}, fmt.Errorf("event npc id is required")
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	evt.Timestamp = evt.Timestamp.UTC().Truncate(time.Millisecond)
	if evt.Origin == "" {
		evt.Origin = event.OriginSystem
	}
	payload := evt.PayloadJSON
	if len(payload) == 0 {
		payload = []byte("{}")
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO events (timestamp, event_type, npc_id, player_id, origin, turn_id, payload_json)
VALUES (?, ?, ?, ?, ?, ?, ?)
`,
		toMillis(evt.Timestamp),
		string(evt.Type),
		evt.NPCID,
		evt.PlayerID,
		string(evt.Origin),
		evt.TurnID,
		string(payload),
	)
	if err != nil {
		return event.Event{}, fmt.Errorf("append event: %w", err)
	}
	seq, err := result.LastInsertId()
	if err != nil {
		return event.Event{}, fmt.Errorf("event sequence: %w", err)
	}
	evt.Seq = uint64(seq)
	evt.PayloadJSON = payload
	return evt, nil
}

// ListEvents returns up to limit events for an NPC, oldest first.
func (s *Store) ListEvents(ctx context.Context, npcID string, limit int) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return nil, fmt.Errorf("npc id is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be greater than zero")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT seq, timestamp, event_type, npc_id, player_id, origin, turn_id, payload_json
FROM events WHERE npc_id = ? ORDER BY seq ASC LIMIT ?
`, npcID, limit)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		var (
			evt       event.Event
			timestamp int64
			eventType string
			origin    string
			payload   string
		)
		if err := rows.Scan(&evt.Seq, &timestamp, &eventType, &evt.NPCID, &evt.PlayerID, &origin, &evt.TurnID, &payload); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		evt.Timestamp = fromMillis(timestamp)
		evt.Type = event.Type(eventType)
		evt.Origin = event.Origin(origin)
		evt.PayloadJSON = []byte(payload)
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
