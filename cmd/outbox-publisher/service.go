package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

const (
	defaultBatchSize   = 50
	defaultPollMs      = 500
	defaultMaxAttempts = 10
	publishTimeout     = 15 * time.Second
	maxIdleBackoff     = 10 * time.Second
)

type dbClient interface {
	Ping(context.Context) error
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type registryResolver interface {
	Resolve(models.OutboxEvent) (*outbox.ResolvedEvent, error)
}

type ServiceParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DB               dbClient
	PubSub           pubSubClient
	Repository       outboxRepository
	Registry         registryResolver
	PublisherFactory publisherFactory
	Metrics          *metrics.PublisherMetrics
}

// Service drains outbox_events to Pub/Sub. Delivery is at least once;
// consumers dedupe on the event_id attribute.
type Service struct {
	logg         *logger.Logger
	db           dbClient
	repo         outboxRepository
	pubsub       pubSubClient
	registry     registryResolver
	publishers   publisherFactory
	metrics      *metrics.PublisherMetrics
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Config == nil:
		return nil, errors.New("config is required")
	case params.Logger == nil:
		return nil, errors.New("logger is required")
	case params.DB == nil:
		return nil, errors.New("database client is required")
	case params.PubSub == nil:
		return nil, errors.New("pubsub client is required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository is required")
	case params.Registry == nil:
		return nil, errors.New("event registry is required")
	}

	publishers := params.PublisherFactory
	if publishers == nil {
		publishers = topicPublishers(params.PubSub)
	}
	cfg := params.Config.Outbox
	return &Service{
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		registry:     params.Registry,
		publishers:   publishers,
		metrics:      params.Metrics,
		batchSize:    positiveOr(cfg.BatchSize, defaultBatchSize),
		maxAttempts:  positiveOr(cfg.MaxAttempts, defaultMaxAttempts),
		pollInterval: time.Duration(positiveOr(cfg.PollIntervalMS, defaultPollMs)) * time.Millisecond,
	}, nil
}

func positiveOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

// Run checks its dependencies, then polls until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	for name, ping := range map[string]func(context.Context) error{"database": s.db.Ping, "pubsub": s.pubsub.Ping} {
		if err := ping(ctx); err != nil {
			return fmt.Errorf("%s ping failed: %w", name, err)
		}
	}

	idle := newBackoff(s.pollInterval, maxIdleBackoff)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		processed, err := s.processBatch(ctx)
		var wait time.Duration
		switch {
		case err != nil:
			s.logg.Error(ctx, "outbox publisher batch error", err)
			wait = idle.fail()
		case processed:
			idle.reset()
			continue
		default:
			idle.reset()
			wait = s.pollInterval
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(withJitter(wait)):
		}
	}
}

// processBatch locks up to batchSize pending rows, publishes each one and
// records the outcome in the same transaction.
func (s *Service) processBatch(ctx context.Context) (bool, error) {
	started := time.Now()
	defer func() { s.metrics.ObserveBatch(time.Since(started)) }()

	var processed bool
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := s.repo.FetchUnpublishedForPublish(tx, s.batchSize, s.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch outbox batch: %w", err)
		}
		processed = len(events) > 0
		for _, event := range events {
			if err := s.record(ctx, tx, event, s.deliver(ctx, event)); err != nil {
				return err
			}
		}
		return nil
	})
	return processed, err
}

type outcomeKind int

const (
	outcomePublished outcomeKind = iota
	outcomeRetry
	outcomeTerminal
)

type outcome struct {
	kind   outcomeKind
	err    error
	fields map[string]any
}

// deliver resolves and publishes one row without touching the database.
func (s *Service) deliver(ctx context.Context, event models.OutboxEvent) outcome {
	fields := map[string]any{
		"outbox_id":      event.ID.String(),
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}

	resolved, err := s.registry.Resolve(event)
	if err != nil {
		return outcome{kind: outcomeTerminal, err: err, fields: fields}
	}
	fields["event_id"] = resolved.Envelope.EventID
	fields["topic"] = resolved.Descriptor.Topic

	err = s.publish(ctx, event, resolved)
	var nonRetryable outbox.NonRetryableError
	switch {
	case err == nil:
		return outcome{kind: outcomePublished, fields: fields}
	case errors.As(err, &nonRetryable):
		return outcome{kind: outcomeTerminal, err: err, fields: fields}
	case event.AttemptCount+1 >= s.maxAttempts:
		fields["terminal_reason"] = "max_attempts"
		return outcome{kind: outcomeTerminal, err: fmt.Errorf("max publish attempts reached: %w", err), fields: fields}
	default:
		return outcome{kind: outcomeRetry, err: err, fields: fields}
	}
}

func (s *Service) publish(ctx context.Context, event models.OutboxEvent, resolved *outbox.ResolvedEvent) error {
	pub := s.publishers(resolved.Descriptor.Topic)
	if pub == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("no publisher for topic %s", resolved.Descriptor.Topic))
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	result := pub.Publish(ctx, &gcppubsub.Message{
		Data: event.Payload,
		Attributes: map[string]string{
			"event_id":       resolved.Envelope.EventID,
			"event_type":     string(event.EventType),
			"aggregate_type": string(event.AggregateType),
			"aggregate_id":   event.AggregateID.String(),
			"created_at":     event.CreatedAt.Format(time.RFC3339Nano),
		},
	})
	if result == nil {
		return outbox.NewNonRetryableError(fmt.Errorf("publisher for topic %s returned no result", resolved.Descriptor.Topic))
	}
	_, err := result.Get(ctx)
	return err
}

func (s *Service) record(ctx context.Context, tx *gorm.DB, event models.OutboxEvent, out outcome) error {
	logCtx := s.logg.WithFields(ctx, out.fields)
	if out.err != nil {
		logCtx = s.logg.WithField(logCtx, "error", out.err.Error())
	}
	eventType := string(event.EventType)

	switch out.kind {
	case outcomePublished:
		if err := s.repo.MarkPublishedTx(tx, event.ID); err != nil {
			return fmt.Errorf("mark published %s: %w", event.ID, err)
		}
		s.metrics.IncPublished(eventType)
		s.logg.Info(logCtx, "outbox event published")
	case outcomeRetry:
		if err := s.repo.MarkFailedTx(tx, event.ID, out.err); err != nil {
			return fmt.Errorf("mark failure %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(eventType)
		s.logg.Warn(logCtx, "outbox publish failed, will retry")
	case outcomeTerminal:
		if err := s.repo.MarkTerminalTx(tx, event.ID, out.err, s.maxAttempts); err != nil {
			return fmt.Errorf("mark terminal %s: %w", event.ID, err)
		}
		s.metrics.IncFailed(eventType)
		s.logg.Warn(logCtx, "outbox event will not be retried")
	}
	return nil
}
