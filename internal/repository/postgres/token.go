package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/repository"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
)

type tokenRepository struct {
	BaseRepository
}

func NewTokenRepository(base BaseRepository) repository.TokenRepository {
	return &tokenRepository{base}
}

// Upsert stores a delivery token. The (user_id, platform) conflict clause
// keeps at most one active entry per platform: re-registration overwrites.
func (r *tokenRepository) Upsert(ctx context.Context, token *model.PushToken) error {
	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := `
			INSERT INTO push_tokens (user_id, platform, token, device_id, added_at)
			VALUES ($1, $2, $3, $4, NOW())
			ON CONFLICT (user_id, platform) DO UPDATE
			SET token = $3, device_id = $4, added_at = NOW()
		`
		_, err := tx.ExecContext(ctx, query, token.UserID, token.Platform, token.Token, token.DeviceID)
		return err
	})
}

func (r *tokenRepository) Delete(ctx context.Context, userID uuid.UUID, platform model.Platform) error {
	query := `
		DELETE FROM push_tokens
		WHERE user_id = $1 AND platform = $2
	`

	result, err := r.GetDB().ExecContext(ctx, query, userID, platform)
	if err != nil {
		return fmt.Errorf("failed to delete push token: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.NotFound("push token", nil)
	}

	return nil
}

func (r *tokenRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.PushToken, error) {
	query := `
		SELECT user_id, platform, token, device_id, added_at
		FROM push_tokens
		WHERE user_id = $1
		ORDER BY platform
	`

	var tokens []*model.PushToken
	if err := r.db.SelectContext(ctx, &tokens, query, userID); err != nil {
		return nil, fmt.Errorf("failed to list push tokens: %w", err)
	}

	return tokens, nil
}
