package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/pobredward/inschoolz-push-api/internal/model"
)

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Get(ctx context.Context, id uuid.UUID) (*model.User, error)
}

type TokenRepository interface {
	Upsert(ctx context.Context, token *model.PushToken) error
	Delete(ctx context.Context, userID uuid.UUID, platform model.Platform) error
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.PushToken, error)
}
