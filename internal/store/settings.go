// settings.go -- queries for the user_settings table.
// Settings rows are created lazily: the first GET for a user inserts the
// defaults, so the frontend never has to handle a missing-settings case.
package store

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

const settingsCols = "user_id, default_model, default_platform, theme, created_at, updated_at"

// GetOrCreateSettings fetches a user's settings, inserting the column
// defaults first if no row exists yet. ON CONFLICT handles the race where
// two requests arrive for a settings-less user at once.
func (s *PostgresStore) GetOrCreateSettings(ctx context.Context, userID uuid.UUID) (*UserSettings, error) {
	_, err := s.pool.Exec(ctx,
		"INSERT INTO user_settings (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING",
		userID)
	if err != nil {
		return nil, err
	}

	var us UserSettings
	err = s.pool.QueryRow(ctx,
		"SELECT "+settingsCols+" FROM user_settings WHERE user_id = $1",
		userID,
	).Scan(&us.UserID, &us.DefaultModel, &us.DefaultPlatform, &us.Theme, &us.CreatedAt, &us.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &us, nil
}

// UpdateSettings applies a partial update and returns the resulting row.
// Nil fields in the update keep their current value; the row is created with
// defaults first if the user has never saved settings.
func (s *PostgresStore) UpdateSettings(ctx context.Context, userID uuid.UUID, upd SettingsUpdate) (*UserSettings, error) {
	var us UserSettings
	err := s.pool.QueryRow(ctx, `
		INSERT INTO user_settings (user_id, default_model, default_platform, theme)
		VALUES ($1,
			COALESCE($2, 'llama-3.1-8b-instant'),
			COALESCE($3, 'general'),
			COALESCE($4, 'light'))
		ON CONFLICT (user_id) DO UPDATE SET
			default_model = COALESCE($2, user_settings.default_model),
			default_platform = COALESCE($3, user_settings.default_platform),
			theme = COALESCE($4, user_settings.theme),
			updated_at = now()
		RETURNING `+settingsCols,
		userID, upd.DefaultModel, upd.DefaultPlatform, upd.Theme,
	).Scan(&us.UserID, &us.DefaultModel, &us.DefaultPlatform, &us.Theme, &us.CreatedAt, &us.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &us, nil
}
