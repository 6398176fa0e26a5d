package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pobredward/inschoolz-push-api/internal/model"
	"github.com/pobredward/inschoolz-push-api/internal/service/dispatch"
	"github.com/pobredward/inschoolz-push-api/pkg/logger"
	"github.com/pobredward/inschoolz-push-api/pkg/messaging"
	"github.com/pobredward/inschoolz-push-api/pkg/metrics"
)

type DispatchProcessorConfig struct {
	Channel string
}

// DispatchProcessor consumes notification events published to the broker
// by other platform services and dispatches them. Delivery is best
// effort: a failed event is logged, not requeued.
type DispatchProcessor struct {
	broker     messaging.Broker
	dispatcher dispatch.Service
	config     DispatchProcessorConfig
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

func NewDispatchProcessor(
	broker messaging.Broker,
	dispatcher dispatch.Service,
	config DispatchProcessorConfig,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *DispatchProcessor {
	if config.Channel == "" {
		config.Channel = messaging.NotificationsChannel
	}

	return &DispatchProcessor{
		broker:     broker,
		dispatcher: dispatcher,
		config:     config,
		logger:     logger,
		metrics:    metrics,
	}
}

func (p *DispatchProcessor) Start(ctx context.Context) error {
	msgs, err := p.broker.Subscribe(ctx, p.config.Channel)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", p.config.Channel, err)
	}

	p.logger.Info("starting dispatch processor", "channel", p.config.Channel)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("shutting down dispatch processor")
			return nil
		case payload, ok := <-msgs:
			if !ok {
				return nil
			}
			p.processMessage(ctx, payload)
		}
	}
}

func (p *DispatchProcessor) processMessage(ctx context.Context, payload []byte) {
	var event model.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		if p.metrics != nil {
			p.metrics.QueueEventsInvalid.Inc()
		}
		p.logger.Error(err, "failed to decode queued event")
		return
	}

	if p.metrics != nil {
		p.metrics.QueueEventsConsumed.Inc()
	}

	report, err := p.dispatcher.Dispatch(ctx, &event)
	if err != nil {
		p.logger.Error(err, "failed to dispatch queued event",
			"event_id", event.ID.String(),
			"kind", string(event.Kind))
		return
	}

	if !report.Succeeded {
		p.logger.Warn("queued event delivered to no destination",
			"event_id", event.ID.String(),
			"failures", len(report.Failures))
	}
}
