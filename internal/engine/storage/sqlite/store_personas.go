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

// PutPersona inserts or replaces an immutable persona record. Personas are
// written at world-seed time only.
func (s *Store) PutPersona(ctx context.Context, persona domain.Persona) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if err := domain.ValidatePersona(persona); err != nil {
		return err
	}

	background, err := marshalStrings(persona.Background)
	if err != nil {
		return err
	}
	ideals, err := marshalStrings(persona.Ideals)
	if err != nil {
		return err
	}
	bonds, err := marshalStrings(persona.Bonds)
	if err != nil {
		return err
	}
	flaws, err := marshalStrings(persona.Flaws)
	if err != nil {
		return err
	}
	skills, err := marshalStrings(persona.Skills)
	if err != nil {
		return err
	}
	allowed, err := marshalStrings(persona.AllowedLocations)
	if err != nil {
		return err
	}

	isKey := 0
	if persona.Key {
		isKey = 1
	}

	_, err = s.sqlDB.ExecContext(ctx, `
INSERT OR REPLACE INTO npc_personas (
	npc_id, name, alignment, background_json, ideals_json, bonds_json,
	flaws_json, motivation, fear, archetype, skills_json, voice_style,
	baseline_mood, allowed_locations_json, is_key
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		persona.NPCID,
		persona.Name,
		string(persona.Alignment),
		background,
		ideals,
		bonds,
		flaws,
		persona.Motivation,
		persona.Fear,
		persona.Archetype,
		skills,
		persona.VoiceStyle,
		persona.BaselineMood,
		allowed,
		isKey,
	)
	if err != nil {
		return fmt.Errorf("put persona: %w", err)
	}
	return nil
}

// GetPersona loads one persona by NPC id.
func (s *Store) GetPersona(ctx context.Context, npcID string) (domain.Persona, error) {
	if err := ctx.Err(); err != nil {
		return domain.Persona{}, err
	}
	if s == nil || s.sqlDB == nil {
		return domain.Persona{}, fmt.Errorf("storage is not configured")
	}
	npcID = strings.TrimSpace(npcID)
	if npcID == "" {
		return domain.Persona{}, fmt.Errorf("npc id is required")
	}

	row := s.sqlDB.QueryRowContext(ctx, `
SELECT npc_id, name, alignment, background_json, ideals_json, bonds_json,
	flaws_json, motivation, fear, archetype, skills_json, voice_style,
	baseline_mood, allowed_locations_json, is_key
FROM npc_personas WHERE npc_id = ?
`, npcID)

	var (
		persona                                          domain.Persona
		alignment                                        string
		background, ideals, bonds, flaws, skills, allowd string
		isKey                                            int
	)
	err := row.Scan(
		&persona.NPCID,
		&persona.Name,
		&alignment,
		&background,
		&ideals,
		&bonds,
		&flaws,
		&persona.Motivation,
		&persona.Fear,
		&persona.Archetype,
		&skills,
		&persona.VoiceStyle,
		&persona.BaselineMood,
		&allowd,
		&isKey,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Persona{}, storage.ErrNotFound
	}
	if err != nil {
		return domain.Persona{}, fmt.Errorf("get persona: %w", err)
	}

	persona.Alignment = domain.Alignment(alignment)
	persona.Key = isKey != 0
	if persona.Background, err = unmarshalStrings(background); err != nil {
		return domain.Persona{}, err
	}
	if persona.Ideals, err = unmarshalStrings(ideals); err != nil {
		return domain.Persona{}, err
	}
	if persona.Bonds, err = unmarshalStrings(bonds); err != nil {
		return domain.Persona{}, err
	}
	if persona.Flaws, err = unmarshalStrings(flaws); err != nil {
		return domain.Persona{}, err
	}
	if persona.Skills, err = unmarshalStrings(skills); err != nil {
		return domain.Persona{}, err
	}
	if persona.AllowedLocations, err = unmarshalStrings(allowd); err != nil {
		return domain.Persona{}, err
	}
	return persona, nil
}

// ListNPCIDs returns every seeded NPC id in stable order.
func (s *Store) ListNPCIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `SELECT npc_id FROM npc_personas ORDER BY npc_id`)
	if err != nil {
		return nil, fmt.Errorf("list npc ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan npc id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate npc ids: %w", err)
	}
	return ids, nil
}
