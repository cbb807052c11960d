package sqlite

import (
	"context"
	"fmt"
	"strings"
)

// TryConsume performs the ledger's check-and-increment as one SQL
// statement, so concurrent callers can never drive a counter past its
// ceiling. The conditional insert only fires while both the day's global
// total and the user's count sit below their ceilings; the upsert then
// increments. Zero rows affected means the call was rejected and no
// counter moved.
func (s *Store) TryConsume(ctx context.Context, dayKey, userID string, globalCeiling, userCeiling int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("storage is not configured")
	}
	dayKey = strings.TrimSpace(dayKey)
	userID = strings.TrimSpace(userID)
	if dayKey == "" {
		return false, fmt.Errorf("day key is required")
	}
	if userID == "" {
		return false, fmt.Errorf("user id is required")
	}
	if globalCeiling <= 0 || userCeiling <= 0 {
		return false, nil
	}

	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO quota_counters (day_key, user_id, calls)
SELECT ?, ?, 1
WHERE (SELECT COALESCE(SUM(calls), 0) FROM quota_counters WHERE day_key = ?) < ?
  AND (SELECT COALESCE(MAX(calls), 0) FROM quota_counters WHERE day_key = ? AND user_id = ?) < ?
ON CONFLICT (day_key, user_id) DO UPDATE SET calls = calls + 1
`,
		dayKey, userID,
		dayKey, globalCeiling,
		dayKey, userID, userCeiling,
	)
	if err != nil {
		return false, fmt.Errorf("consume quota: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("consume quota rows: %w", err)
	}
	return affected > 0, nil
}
