package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	apperrors "github.com/pobredward/inschoolz-push-api/pkg/errors"
)

type stubDispatcher struct {
	knownUser uuid.UUID
	lastEvent *model.Event
}

func (s *stubDispatcher) Dispatch(_ context.Context, event *model.Event) (*model.DispatchReport, error) {
	if event.UserID != s.knownUser {
		return nil, apperrors.NotFound("user", nil)
	}
	s.lastEvent = event
	return &model.DispatchReport{
		EventID:   event.ID,
		Kind:      event.Kind,
		Succeeded: true,
		Outcomes: []model.DeliveryOutcome{
			{Platform: model.PlatformIOS, Token: "T1", OK: true},
		},
	}, nil
}

func (s *stubDispatcher) Broadcast(_ context.Context, userIDs []uuid.UUID, kind model.Kind, _ model.Context) (*model.DispatchReport, error) {
	return &model.DispatchReport{EventID: uuid.New(), Kind: kind, Succeeded: true}, nil
}

type stubBroker struct {
	published []interface{}
}

func (s *stubBroker) Publish(_ context.Context, _ string, message interface{}) error {
	s.published = append(s.published, message)
	return nil
}

func (s *stubBroker) Subscribe(context.Context, string) (<-chan []byte, error) { return nil, nil }

func (s *stubBroker) Close() error { return nil }

func setupRouter(d *stubDispatcher, b *stubBroker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandler(d, b)
	h.RegisterRoutes(engine.Group("/api/v1"))
	return engine
}

func doRequest(engine *gin.Engine, method, path string, payload interface{}) *httptest.ResponseRecorder {
	body, _ := json.Marshal(payload)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestDispatchEndpoint(t *testing.T) {
	userID := uuid.New()
	d := &stubDispatcher{knownUser: userID}
	engine := setupRouter(d, &stubBroker{})

	w := doRequest(engine, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id": userID.String(),
		"kind":    "post_comment",
		"context": gin.H{"authorName": "Alice"},
	})

	assert.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, d.lastEvent)
	assert.Equal(t, model.KindPostComment, d.lastEvent.Kind)
	assert.Equal(t, "Alice", d.lastEvent.Context.AuthorName)
}

func TestDispatchEndpointUnknownUser(t *testing.T) {
	d := &stubDispatcher{knownUser: uuid.New()}
	engine := setupRouter(d, &stubBroker{})

	w := doRequest(engine, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id": uuid.New().String(),
		"kind":    "like",
	})

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDispatchEndpointValidation(t *testing.T) {
	engine := setupRouter(&stubDispatcher{}, &stubBroker{})

	w := doRequest(engine, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id": "not-a-uuid",
		"kind":    "like",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(engine, http.MethodPost, "/api/v1/notifications", gin.H{
		"user_id": uuid.New().String(),
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "kind is required")
}

func TestEnqueueEndpoint(t *testing.T) {
	userID := uuid.New()
	b := &stubBroker{}
	engine := setupRouter(&stubDispatcher{knownUser: userID}, b)

	w := doRequest(engine, http.MethodPost, "/api/v1/notifications/queue", gin.H{
		"user_id": userID.String(),
		"kind":    "comment_reply",
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	require.Len(t, b.published, 1)
	event, ok := b.published[0].(*model.Event)
	require.True(t, ok)
	assert.Equal(t, model.KindCommentReply, event.Kind)
}

func TestBroadcastEndpointValidation(t *testing.T) {
	engine := setupRouter(&stubDispatcher{}, &stubBroker{})

	w := doRequest(engine, http.MethodPost, "/api/v1/notifications/broadcast", gin.H{
		"user_ids": []string{},
		"kind":     "general",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "at least one target required")

	w = doRequest(engine, http.MethodPost, "/api/v1/notifications/broadcast", gin.H{
		"user_ids": []string{uuid.New().String()},
		"kind":     "general",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}
