package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/louisbranch/asterfall/internal/engine/domain"
	"github.com/louisbranch/asterfall/internal/engine/storage"
)

// PutLocation inserts or replaces a world location.
func (s *Store) PutLocation(ctx context.Context, location domain.Location) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(location.ID) == "" {
		return fmt.Errorf("location id is required")
	}

	connections, err := marshalStrings(location.Connections)
	if err != nil {
		return err
	}
	_, err = s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO locations (location_id, name, description, connections_json)
VALUES (?, ?, ?, ?)
`,
		location.ID,
		location.Name,
		location.Description,
		connections,
	)
	if err != nil {
		return fmt.Errorf("put location: %w", err)
	}
	return nil
}

// GetLocation loads one location by id.
func (s *Store) GetLocation(ctx context.Context, locationID string) (domain.Location, error) {
	if err := ctx.Err(); err != nil {
		return domain.Location{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Location{}, fmt.Errorf("storage is not configured")
	}
	locationID = strings.TrimSpace(locationID)
	if locationID == "" {
		return domain.Location{}, fmt.Errorf("location id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT location_id, name, description, connections_json
FROM locations WHERE location_id = ?
`, locationID)

	var (
		location    domain.Location
		connections string
	)
	err := row.Scan(&location.ID, &location.Name, &location.Description, &connections)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Location{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Location{}, fmt.Errorf("get location: %w", err)
	}
	if location.Connections, err = unmarshalStrings(connections); err != nil {
		return domain.Location{}, err
	}
	return location, nil
}
