package expo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/pkg/circuitbreaker"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
)

const (
	// DefaultEndpoint is the Expo push delivery service.
	DefaultEndpoint = "https://exp.host/--/api/v2/push/send"

	// MaxBatchSize is the documented per-request message limit of the
	// bulk path.
	MaxBatchSize = 100
)

// Ticket is the per-message acknowledgement returned by the push
// endpoint. The id can be used for a later receipt lookup; this service
// only logs it.
type Ticket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// StatusOK is the accepted-ticket status value.
const StatusOK = "ok"

type apiError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

type singleResponse struct {
	Data   *Ticket    `json:"data"`
	Errors []apiError `json:"errors"`
}

type batchResponse struct {
	Data   []Ticket   `json:"data"`
	Errors []apiError `json:"errors"`
}

type Config struct {
	Endpoint    string
	Timeout     time.Duration
	MaxFailures int
}

// Client submits envelopes to the push endpoint. Submissions are one-shot:
// no retries, no receipt follow-up. A circuit breaker trips the client
// after consecutive transport failures so a dead endpoint fails fast.
type Client struct {
	endpoint string
	http     *http.Client
	cb       *circuitbreaker.CircuitBreaker
	logger   *logger.Logger
}

func NewClient(cfg Config, logger *logger.Logger) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}

	return &Client{
		endpoint: cfg.Endpoint,
		http:     &http.Client{Timeout: cfg.Timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "expo-push",
			MaxFailures: cfg.MaxFailures,
			Timeout:     30 * time.Second,
		}),
		logger: logger,
	}
}

// Send submits one envelope. A non-ok ticket or an errors[] response is
// returned as an error carrying the endpoint's message verbatim.
func (c *Client) Send(ctx context.Context, env *model.Envelope) (*Ticket, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal envelope: %w", err)
	}

	var resp singleResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%s", resp.Errors[0].Message)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("push endpoint returned no ticket")
	}
	if resp.Data.Status != StatusOK {
		msg := resp.Data.Message
		if msg == "" {
			msg = resp.Data.Status
		}
		return nil, fmt.Errorf("%s", msg)
	}

	return resp.Data, nil
}

// SendBatch submits up to MaxBatchSize envelopes in one request and
// returns one ticket per envelope, in order.
func (c *Client) SendBatch(ctx context.Context, envs []*model.Envelope) ([]Ticket, error) {
	if len(envs) == 0 {
		return nil, nil
	}
	if len(envs) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds limit of %d", len(envs), MaxBatchSize)
	}

	body, err := json.Marshal(envs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal batch: %w", err)
	}

	var resp batchResponse
	if err := c.post(ctx, body, &resp); err != nil {
		return nil, err
	}

	if len(resp.Errors) > 0 {
		return nil, fmt.Errorf("%s", resp.Errors[0].Message)
	}
	if len(resp.Data) != len(envs) {
		return nil, fmt.Errorf("push endpoint returned %d tickets for %d messages", len(resp.Data), len(envs))
	}

	return resp.Data, nil
}

func (c *Client) post(ctx context.Context, body []byte, out interface{}) error {
	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("push request failed: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read response: %w", err)
		}

		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("push endpoint returned status %d: %w", resp.StatusCode, err)
		}
		return nil
	})
}
