package dispatch

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/service/compose"
	"github.com/pobredward/inschoolz-push-api/pkg/expo"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
)

type fakeRegistry struct {
	dests map[uuid.UUID][]*model.PushToken
}

func (f *fakeRegistry) Destinations(_ context.Context, userID uuid.UUID) ([]*model.PushToken, error) {
	dests, ok := f.dests[userID]
	if !ok {
		return nil, apperrors.NotFound("user", nil)
	}
	return dests, nil
}

func (f *fakeRegistry) Register(context.Context, *model.PushToken) error { return nil }

func (f *fakeRegistry) Unregister(context.Context, uuid.UUID, model.Platform) error { return nil }

type fakeSender struct {
	mu       sync.Mutex
	sent     []*model.Envelope
	batches  [][]*model.Envelope
	failWith map[string]string // token -> error message
}

func (f *fakeSender) Send(_ context.Context, env *model.Envelope) (*expo.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, env)

	if msg, ok := f.failWith[env.To]; ok {
		return nil, fmt.Errorf("%s", msg)
	}
	return &expo.Ticket{Status: expo.StatusOK, ID: "receipt-" + env.To}, nil
}

func (f *fakeSender) SendBatch(_ context.Context, envs []*model.Envelope) ([]expo.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, envs)

	tickets := make([]expo.Ticket, len(envs))
	for i, env := range envs {
		if msg, ok := f.failWith[env.To]; ok {
			tickets[i] = expo.Ticket{Status: "error", Message: msg}
		} else {
			tickets[i] = expo.Ticket{Status: expo.StatusOK, ID: "receipt-" + env.To}
		}
	}
	return tickets, nil
}

func (f *fakeSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestService(reg *fakeRegistry, sender *fakeSender) Service {
	return NewService(reg, compose.New(), sender, Config{
		Concurrency: 4,
		BatchRPS:    1000,
		BatchBurst:  1000,
	}, logger.NewLogger(nil), nil)
}

func twoTokenUser(userID uuid.UUID) []*model.PushToken {
	return []*model.PushToken{
		{UserID: userID, Platform: model.PlatformIOS, Token: "T1"},
		{UserID: userID, Platform: model.PlatformAndroid, Token: "T2"},
	}
}

func TestDispatchNoDestinationsIsVacuousSuccess(t *testing.T) {
	userID := uuid.New()
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{userID: {}}}
	sender := &fakeSender{}
	svc := newTestService(reg, sender)

	report, err := svc.Dispatch(context.Background(), model.NewEvent(model.KindLike, userID, model.Context{}))

	require.NoError(t, err)
	assert.True(t, report.Succeeded)
	assert.Empty(t, report.Outcomes)
	assert.Zero(t, sender.sentCount(), "no submission should happen")
}

func TestDispatchUnknownUserFailsBeforeAnySubmission(t *testing.T) {
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{}}
	sender := &fakeSender{}
	svc := newTestService(reg, sender)

	report, err := svc.Dispatch(context.Background(), model.NewEvent(model.KindLike, uuid.New(), model.Context{}))

	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
	assert.Nil(t, report)
	assert.Zero(t, sender.sentCount(), "NotFound must abort before any HTTP submission")
}

func TestDispatchFansOutToEveryDestination(t *testing.T) {
	userID := uuid.New()
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{userID: twoTokenUser(userID)}}
	sender := &fakeSender{}
	svc := newTestService(reg, sender)

	event := model.NewEvent(model.KindPostComment, userID, model.Context{
		AuthorName:  "Alice",
		IsAnonymous: false,
	})
	report, err := svc.Dispatch(context.Background(), event)

	require.NoError(t, err)
	assert.True(t, report.Succeeded)
	require.Len(t, report.Outcomes, 2)
	for _, o := range report.Outcomes {
		assert.True(t, o.OK)
		assert.NotEmpty(t, o.ReceiptID)
	}

	require.Equal(t, 2, sender.sentCount())
	tokens := map[string]bool{}
	for _, env := range sender.sent {
		tokens[env.To] = true
		assert.Contains(t, env.Body, "Alice")
	}
	assert.True(t, tokens["T1"])
	assert.True(t, tokens["T2"])
}

func TestDispatchPartialFailureStillSucceeds(t *testing.T) {
	userID := uuid.New()
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{userID: twoTokenUser(userID)}}
	sender := &fakeSender{failWith: map[string]string{"T2": "DeviceNotRegistered"}}
	svc := newTestService(reg, sender)

	report, err := svc.Dispatch(context.Background(), model.NewEvent(model.KindPostComment, userID, model.Context{AuthorName: "Alice"}))

	require.NoError(t, err)
	assert.True(t, report.Succeeded)
	assert.Equal(t, []string{"DeviceNotRegistered"}, report.Failures)
	assert.Len(t, report.Outcomes, 2)
}

func TestDispatchAllDestinationsFailed(t *testing.T) {
	userID := uuid.New()
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{userID: twoTokenUser(userID)}}
	sender := &fakeSender{failWith: map[string]string{
		"T1": "DeviceNotRegistered",
		"T2": "MessageTooBig",
	}}
	svc := newTestService(reg, sender)

	report, err := svc.Dispatch(context.Background(), model.NewEvent(model.KindSystem, userID, model.Context{}))

	require.NoError(t, err, "per-destination failures are contained, not thrown")
	assert.False(t, report.Succeeded)
	assert.Len(t, report.Failures, 2)
}

func TestBroadcastChunksBatches(t *testing.T) {
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{}}
	var userIDs []uuid.UUID
	for i := 0; i < 250; i++ {
		id := uuid.New()
		reg.dests[id] = []*model.PushToken{
			{UserID: id, Platform: model.PlatformAndroid, Token: fmt.Sprintf("tok-%d", i)},
		}
		userIDs = append(userIDs, id)
	}
	sender := &fakeSender{}
	svc := newTestService(reg, sender)

	report, err := svc.Broadcast(context.Background(), userIDs, model.KindGeneral, model.Context{
		Title: "점검 안내",
		Body:  "오늘 밤 점검이 있습니다.",
	})

	require.NoError(t, err)
	assert.True(t, report.Succeeded)
	assert.Len(t, report.Outcomes, 250)

	require.Len(t, sender.batches, 3)
	assert.Len(t, sender.batches[0], expo.MaxBatchSize)
	assert.Len(t, sender.batches[1], expo.MaxBatchSize)
	assert.Len(t, sender.batches[2], 50)
}

func TestBroadcastSkipsUnknownUsers(t *testing.T) {
	knownID := uuid.New()
	reg := &fakeRegistry{dests: map[uuid.UUID][]*model.PushToken{
		knownID: {{UserID: knownID, Platform: model.PlatformIOS, Token: "T1"}},
	}}
	sender := &fakeSender{}
	svc := newTestService(reg, sender)

	report, err := svc.Broadcast(context.Background(), []uuid.UUID{uuid.New(), knownID}, model.KindEvent, model.Context{Title: "이벤트"})

	require.NoError(t, err)
	assert.True(t, report.Succeeded)
	assert.Len(t, report.Outcomes, 1)
}
