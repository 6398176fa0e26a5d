package dispatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/service/compose"
	"github.com/pobredward/inschoolz-push-api/internal/service/registry"
	"github.com/pobredward/inschoolz-push-api/pkg/expo"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
	"github.com/pobredward/inschoolz-push-api/pkg/metrics"
)

// Sender is the outbound push client. Satisfied by *expo.Client.
type Sender interface {
	Send(ctx context.Context, env *model.Envelope) (*expo.Ticket, error)
	SendBatch(ctx context.Context, envs []*model.Envelope) ([]expo.Ticket, error)
}

type Service interface {
	// Dispatch delivers one notification event to every registered
	// destination of its target user and returns the aggregate report.
	// It fails before any submission when the user record is missing;
	// per-destination failures are contained in the report.
	Dispatch(ctx context.Context, event *model.Event) (*model.DispatchReport, error)

	// Broadcast composes one message and sends it to every destination
	// of the given users through the batched bulk path. Users without a
	// record are skipped, not fatal.
	Broadcast(ctx context.Context, userIDs []uuid.UUID, kind model.Kind, nc model.Context) (*model.DispatchReport, error)
}

type Config struct {
	Concurrency int
	BatchRPS    int
	BatchBurst  int
}

type service struct {
	registry registry.Service
	composer *compose.Composer
	sender   Sender
	sem      chan struct{}
	limiter  *rate.Limiter
	logger   *logger.Logger
	metrics  *metrics.Metrics
}

func NewService(reg registry.Service, composer *compose.Composer, sender Sender, cfg Config, log *logger.Logger, m *metrics.Metrics) Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 16
	}
	if cfg.BatchRPS <= 0 {
		cfg.BatchRPS = 10
	}
	if cfg.BatchBurst <= 0 {
		cfg.BatchBurst = cfg.BatchRPS
	}

	return &service{
		registry: reg,
		composer: composer,
		sender:   sender,
		sem:      make(chan struct{}, cfg.Concurrency),
		limiter:  rate.NewLimiter(rate.Limit(cfg.BatchRPS), cfg.BatchBurst),
		logger:   log,
		metrics:  m,
	}
}

func (s *service) Dispatch(ctx context.Context, event *model.Event) (*model.DispatchReport, error) {
	start := time.Now()

	dests, err := s.registry.Destinations(ctx, event.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve destinations: %w", err)
	}

	if len(dests) == 0 {
		report := aggregate(event.ID, event.Kind, nil)
		s.logger.ZL.Info().
			Str("event_id", event.ID.String()).
			Str("kind", string(event.Kind)).
			Str("user_id", event.UserID.String()).
			Msg("no registered destinations, nothing to dispatch")
		s.observe(report, time.Since(start))
		return report, nil
	}

	tmpl := s.composer.Compose(event.Kind, event.Context)
	outcomes := s.fanOut(ctx, tmpl, dests)

	report := aggregate(event.ID, event.Kind, outcomes)
	s.report(event, report)
	s.observe(report, time.Since(start))
	return report, nil
}

// fanOut submits one bound envelope per destination concurrently,
// bounded by the semaphore, and settles all submissions before
// returning. A failed destination never aborts its siblings.
func (s *service) fanOut(ctx context.Context, tmpl *model.Envelope, dests []*model.PushToken) []model.DeliveryOutcome {
	outcomes := make([]model.DeliveryOutcome, len(dests))
	var wg sync.WaitGroup

	for i, dest := range dests {
		wg.Add(1)
		go func(i int, dest *model.PushToken) {
			defer wg.Done()
			s.sem <- struct{}{}
			defer func() { <-s.sem }()

			outcome := model.DeliveryOutcome{
				Platform: dest.Platform,
				Token:    dest.Token,
			}

			ticket, err := s.sender.Send(ctx, tmpl.Bind(dest.Token))
			if err != nil {
				outcome.Error = err.Error()
			} else {
				outcome.OK = true
				outcome.ReceiptID = ticket.ID
			}
			outcomes[i] = outcome
		}(i, dest)
	}

	wg.Wait()
	return outcomes
}

func (s *service) Broadcast(ctx context.Context, userIDs []uuid.UUID, kind model.Kind, nc model.Context) (*model.DispatchReport, error) {
	eventID := uuid.New()
	tmpl := s.composer.Compose(kind, nc)

	var (
		envs  []*model.Envelope
		dests []*model.PushToken
	)
	for _, userID := range userIDs {
		userDests, err := s.registry.Destinations(ctx, userID)
		if err != nil {
			s.logger.ZL.Debug().Err(err).Str("user_id", userID.String()).Msg("skipping broadcast target")
			continue
		}
		for _, dest := range userDests {
			envs = append(envs, tmpl.Bind(dest.Token))
			dests = append(dests, dest)
		}
	}

	var outcomes []model.DeliveryOutcome
	for offset := 0; offset < len(envs); offset += expo.MaxBatchSize {
		end := offset + expo.MaxBatchSize
		if end > len(envs) {
			end = len(envs)
		}

		if err := s.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("broadcast interrupted: %w", err)
		}

		batch := envs[offset:end]
		batchDests := dests[offset:end]
		tickets, err := s.sender.SendBatch(ctx, batch)
		if err != nil {
			// Whole-batch failure: record one failed outcome per message.
			for _, dest := range batchDests {
				outcomes = append(outcomes, model.DeliveryOutcome{
					Platform: dest.Platform,
					Token:    dest.Token,
					Error:    err.Error(),
				})
			}
			continue
		}

		for i, ticket := range tickets {
			outcome := model.DeliveryOutcome{
				Platform: batchDests[i].Platform,
				Token:    batchDests[i].Token,
			}
			if ticket.Status == expo.StatusOK {
				outcome.OK = true
				outcome.ReceiptID = ticket.ID
			} else {
				outcome.Error = orStatus(ticket.Message, ticket.Status)
			}
			outcomes = append(outcomes, outcome)
		}

		if s.metrics != nil {
			s.metrics.BroadcastBatches.Inc()
			s.metrics.BroadcastMessages.Add(float64(len(batch)))
		}
	}

	report := aggregate(eventID, kind, outcomes)
	s.logger.ZL.Info().
		Str("event_id", eventID.String()).
		Str("kind", string(kind)).
		Int("targets", len(userIDs)).
		Int("messages", len(envs)).
		Bool("succeeded", report.Succeeded).
		Msg("broadcast complete")
	return report, nil
}

// report emits the human-readable per-platform summary. Diagnostic only:
// there is no persisted delivery ledger.
func (s *service) report(event *model.Event, report *model.DispatchReport) {
	type counts struct{ ok, failed int }
	byPlatform := make(map[model.Platform]*counts)
	ok, failed := 0, 0
	for _, o := range report.Outcomes {
		c := byPlatform[o.Platform]
		if c == nil {
			c = &counts{}
			byPlatform[o.Platform] = c
		}
		if o.OK {
			c.ok++
			ok++
		} else {
			c.failed++
			failed++
		}
	}

	ev := s.logger.ZL.Info()
	if !report.Succeeded {
		ev = s.logger.ZL.Error()
	}
	for platform, c := range byPlatform {
		ev = ev.Str(string(platform), fmt.Sprintf("%d ok, %d failed", c.ok, c.failed))
	}
	ev.Str("event_id", event.ID.String()).
		Str("kind", string(event.Kind)).
		Str("user_id", event.UserID.String()).
		Bool("succeeded", report.Succeeded).
		Msgf("dispatched to %d/%d destinations", ok, ok+failed)
}

func (s *service) observe(report *model.DispatchReport, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	result := "success"
	if !report.Succeeded {
		result = "failure"
	}
	s.metrics.EventsDispatched.WithLabelValues(string(report.Kind), result).Inc()
	s.metrics.DispatchLatency.Observe(elapsed.Seconds())
	for _, o := range report.Outcomes {
		status := "ok"
		if !o.OK {
			status = "failed"
		}
		s.metrics.DeliveryOutcomes.With(prometheus.Labels{
			"platform": string(o.Platform),
			"status":   status,
		}).Inc()
	}
}

func orStatus(message, status string) string {
	if message != "" {
		return message
	}
	return status
}
