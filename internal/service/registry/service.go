package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/repository"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
)

// Service reads and writes the destination registry: the per-user map of
// registered push destinations. Reads are cached briefly since a burst of
// notifications for one user is common (several comments on one post).
type Service interface {
	Destinations(ctx context.Context, userID uuid.UUID) ([]*model.PushToken, error)
	Register(ctx context.Context, token *model.PushToken) error
	Unregister(ctx context.Context, userID uuid.UUID, platform model.Platform) error
}

type service struct {
	users  repository.UserRepository
	tokens repository.TokenRepository
	cache  *gocache.Cache
}

func NewService(users repository.UserRepository, tokens repository.TokenRepository, cacheTTL time.Duration) Service {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &service{
		users:  users,
		tokens: tokens,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
	}
}

// Destinations returns the user's registered destinations. A missing user
// record is an error; a user with no registered channels is not — the
// caller gets an empty slice. Entries with an empty token are dropped
// here so the dispatcher never sees them.
func (s *service) Destinations(ctx context.Context, userID uuid.UUID) ([]*model.PushToken, error) {
	key := userID.String()
	if cached, found := s.cache.Get(key); found {
		return cached.([]*model.PushToken), nil
	}

	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	tokens, err := s.tokens.ListForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load destinations: %w", err)
	}

	dests := make([]*model.PushToken, 0, len(tokens))
	for _, t := range tokens {
		if t.Token == "" {
			continue
		}
		dests = append(dests, t)
	}

	s.cache.Set(key, dests, gocache.DefaultExpiration)
	return dests, nil
}

func (s *service) Register(ctx context.Context, token *model.PushToken) error {
	if !token.Platform.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("unsupported platform: %s", token.Platform), nil)
	}
	if token.Token == "" {
		return apperrors.BadRequest("token is required", nil)
	}

	if _, err := s.users.Get(ctx, token.UserID); err != nil {
		return err
	}

	if err := s.tokens.Upsert(ctx, token); err != nil {
		return fmt.Errorf("failed to register token: %w", err)
	}

	s.cache.Delete(token.UserID.String())
	return nil
}

func (s *service) Unregister(ctx context.Context, userID uuid.UUID, platform model.Platform) error {
	if !platform.Valid() {
		return apperrors.BadRequest(fmt.Sprintf("unsupported platform: %s", platform), nil)
	}

	if err := s.tokens.Delete(ctx, userID, platform); err != nil {
		return err
	}

	s.cache.Delete(userID.String())
	return nil
}
