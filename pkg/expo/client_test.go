package expo

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
)

func newTestClient(endpoint string) *Client {
	return NewClient(Config{
		Endpoint:    endpoint,
		Timeout:     2 * time.Second,
		MaxFailures: 100,
	}, logger.NewLogger(nil))
}

func TestSendAcceptedTicket(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var env model.Envelope
		require.NoError(t, json.Unmarshal(body, &env))
		assert.Equal(t, "ExponentPushToken[abc]", env.To)

		w.Write([]byte(`{"data":{"status":"ok","id":"ticket-1"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	ticket, err := client.Send(context.Background(), &model.Envelope{
		To:    "ExponentPushToken[abc]",
		Title: "새 댓글",
		Body:  "본문",
	})

	require.NoError(t, err)
	assert.Equal(t, "ticket-1", ticket.ID)
	assert.Equal(t, StatusOK, ticket.Status)
}

func TestSendEndpointReportedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"status":"error","message":"DeviceNotRegistered"}}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Send(context.Background(), &model.Envelope{To: "T1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "DeviceNotRegistered")
}

func TestSendErrorsArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"code":"PUSH_TOO_MANY_EXPERIENCE_IDS","message":"too many experiences"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.Send(context.Background(), &model.Envelope{To: "T1"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many experiences")
}

func TestSendBatchReturnsTicketPerMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var envs []model.Envelope
		require.NoError(t, json.Unmarshal(body, &envs), "bulk mode must post an array")
		require.Len(t, envs, 2)

		w.Write([]byte(`{"data":[{"status":"ok","id":"a"},{"status":"error","message":"DeviceNotRegistered"}]}`))
	}))
	defer srv.Close()

	client := newTestClient(srv.URL)
	tickets, err := client.SendBatch(context.Background(), []*model.Envelope{
		{To: "T1", Title: "공지"},
		{To: "T2", Title: "공지"},
	})

	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Equal(t, StatusOK, tickets[0].Status)
	assert.Equal(t, "DeviceNotRegistered", tickets[1].Message)
}

func TestSendBatchEmptyIsNoOp(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	tickets, err := client.SendBatch(context.Background(), nil)

	require.NoError(t, err)
	assert.Nil(t, tickets)
}

func TestSendBatchRejectsOversizedBatch(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")

	envs := make([]*model.Envelope, MaxBatchSize+1)
	for i := range envs {
		envs[i] = &model.Envelope{To: "T"}
	}

	_, err := client.SendBatch(context.Background(), envs)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestSendNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := newTestClient(srv.URL)
	_, err := client.Send(context.Background(), &model.Envelope{To: "T1"})

	require.Error(t, err)
}

func TestCircuitBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	srv.Close()

	client := NewClient(Config{
		Endpoint:    srv.URL,
		Timeout:     time.Second,
		MaxFailures: 2,
	}, logger.NewLogger(nil))

	for i := 0; i < 2; i++ {
		_, err := client.Send(context.Background(), &model.Envelope{To: "T1"})
		require.Error(t, err)
	}

	_, err := client.Send(context.Background(), &model.Envelope{To: "T1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker")
	assert.Zero(t, hits.Load(), "open breaker must not reach the endpoint")
}
