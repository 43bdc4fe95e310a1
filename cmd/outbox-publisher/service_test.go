package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

var errTransient = errors.New("deadline exceeded")

// harness wires a Service to in-memory collaborators.
type harness struct {
	svc      *Service
	rows     *memoryOutbox
	topic    *recordingTopic
	resolver *stubResolver
	registry *prometheus.Registry
}

func newHarness(t *testing.T, maxAttempts int, rows ...models.OutboxEvent) *harness {
	t.Helper()
	h := &harness{
		rows:     &memoryOutbox{pending: rows},
		topic:    &recordingTopic{},
		resolver: &stubResolver{topic: "orders-topic"},
		registry: prometheus.NewRegistry(),
	}
	svc, err := NewService(ServiceParams{
		Config:           &config.Config{Outbox: config.OutboxConfig{BatchSize: len(rows) + 1, PollIntervalMS: 50, MaxAttempts: maxAttempts}},
		Logger:           logger.New(logger.Options{ServiceName: "outbox-publisher-test", Output: io.Discard}),
		DB:               passthroughDB{},
		PubSub:           idlePubSub{},
		Repository:       h.rows,
		Registry:         h.resolver,
		PublisherFactory: func(string) publisher { return h.topic },
		Metrics:          metrics.NewPublisherMetrics(h.registry),
	})
	require.NoError(t, err)
	h.svc = svc
	return h
}

func (h *harness) drain(t *testing.T) bool {
	t.Helper()
	processed, err := h.svc.processBatch(context.Background())
	require.NoError(t, err)
	return processed
}

func orderRow(t *testing.T, attempts int) models.OutboxEvent {
	t.Helper()
	payload, err := json.Marshal(outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{"order_id":"x"}`),
	})
	require.NoError(t, err)
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
		CreatedAt:     time.Now().UTC(),
	}
}

func TestProcessBatchKeepsGoingAfterAFailedPublish(t *testing.T) {
	first, second := orderRow(t, 0), orderRow(t, 0)
	h := newHarness(t, 5, first, second)
	h.topic.errs = []error{errTransient, nil}

	assert.True(t, h.drain(t))
	assert.Equal(t, []uuid.UUID{first.ID}, h.rows.retried)
	assert.Equal(t, []uuid.UUID{second.ID}, h.rows.published)
	assert.Empty(t, h.rows.parked)
}

func TestProcessBatchForwardsPayloadAndAttributes(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)

	h.drain(t)
	require.Len(t, h.topic.sent, 1)
	msg := h.topic.sent[0]
	assert.JSONEq(t, string(row.Payload), string(msg.Data))
	assert.Equal(t, row.ID.String(), msg.Attributes["event_id"])
	assert.Equal(t, string(enums.EventOrderCreated), msg.Attributes["event_type"])
	assert.Equal(t, string(enums.AggregateOrder), msg.Attributes["aggregate_type"])
	assert.Equal(t, row.AggregateID.String(), msg.Attributes["aggregate_id"])
	assert.NotEmpty(t, msg.Attributes["created_at"])
}

func TestProcessBatchParksRowsThatCannotResolve(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)
	h.resolver.err = outbox.NewNonRetryableError(errors.New("unknown event version"))

	assert.True(t, h.drain(t))
	assert.Equal(t, []uuid.UUID{row.ID}, h.rows.parked)
	assert.Equal(t, 5, h.rows.parkedAt)
	assert.Empty(t, h.rows.published)
	assert.Empty(t, h.rows.retried)
	assert.Empty(t, h.topic.sent)
}

func TestProcessBatchParksOnFinalAttempt(t *testing.T) {
	row := orderRow(t, 1)
	h := newHarness(t, 2, row)
	h.topic.errs = []error{errTransient}

	h.drain(t)
	assert.Equal(t, []uuid.UUID{row.ID}, h.rows.parked)
	assert.Empty(t, h.rows.retried)
}

func TestProcessBatchParksNonRetryablePublishError(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)
	h.topic.errs = []error{outbox.NewNonRetryableError(errors.New("payload too large"))}

	h.drain(t)
	assert.Equal(t, []uuid.UUID{row.ID}, h.rows.parked)
}

func TestProcessBatchWithoutPublisherParksRow(t *testing.T) {
	row := orderRow(t, 0)
	h := newHarness(t, 5, row)
	h.svc.publishers = func(string) publisher { return nil }

	h.drain(t)
	assert.Equal(t, []uuid.UUID{row.ID}, h.rows.parked)
}

func TestProcessBatchCountsOutcomes(t *testing.T) {
	h := newHarness(t, 5, orderRow(t, 0), orderRow(t, 0))
	h.topic.errs = []error{nil, errTransient}

	h.drain(t)
	series, err := testutil.GatherAndCount(h.registry, "outbox_published_total", "outbox_failed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestProcessBatchEmpty(t *testing.T) {
	h := newHarness(t, 5)
	assert.False(t, h.drain(t))
	assert.Empty(t, h.topic.sent)
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, h.svc.Run(ctx), context.Canceled)
}

func TestBackoffDoublesAndResets(t *testing.T) {
	b := newBackoff(100*time.Millisecond, 500*time.Millisecond)
	assert.Equal(t, 200*time.Millisecond, b.fail())
	b.fail()
	assert.Equal(t, 500*time.Millisecond, b.fail())

	b.reset()
	assert.Equal(t, 200*time.Millisecond, b.fail())

	jittered := withJitter(b.base)
	assert.GreaterOrEqual(t, jittered, b.base)
	assert.Less(t, jittered, b.base+jitterWindow)
	assert.Zero(t, withJitter(0))
}

type memoryOutbox struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	retried   []uuid.UUID
	parked    []uuid.UUID
	parkedAt  int
}

func (m *memoryOutbox) FetchUnpublishedForPublish(_ *gorm.DB, _, _ int) ([]models.OutboxEvent, error) {
	return m.pending, nil
}

func (m *memoryOutbox) MarkPublishedTx(_ *gorm.DB, id uuid.UUID) error {
	m.published = append(m.published, id)
	return nil
}

func (m *memoryOutbox) MarkFailedTx(_ *gorm.DB, id uuid.UUID, _ error) error {
	m.retried = append(m.retried, id)
	return nil
}

func (m *memoryOutbox) MarkTerminalTx(_ *gorm.DB, id uuid.UUID, _ error, attempts int) error {
	m.parked = append(m.parked, id)
	m.parkedAt = attempts
	return nil
}

type passthroughDB struct{}

func (passthroughDB) Ping(context.Context) error { return nil }

func (passthroughDB) WithTx(_ context.Context, fn func(*gorm.DB) error) error { return fn(nil) }

type idlePubSub struct{}

func (idlePubSub) Ping(context.Context) error { return nil }

func (idlePubSub) Publisher(string) *gcppubsub.Publisher { return nil }

// recordingTopic returns errs in order, then succeeds.
type recordingTopic struct {
	errs []error
	sent []*gcppubsub.Message
}

func (r *recordingTopic) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	r.sent = append(r.sent, msg)
	var err error
	if len(r.errs) > 0 {
		err, r.errs = r.errs[0], r.errs[1:]
	}
	return settled{err: err}
}

type settled struct{ err error }

func (s settled) Get(context.Context) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "server-id", nil
}

type stubResolver struct {
	topic string
	err   error
}

func (s *stubResolver) Resolve(event models.OutboxEvent) (*outbox.ResolvedEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &outbox.ResolvedEvent{
		Descriptor: outbox.EventDescriptor{EventType: event.EventType, AggregateType: event.AggregateType, Topic: s.topic},
		Envelope:   outbox.PayloadEnvelope{Version: 1, EventID: event.ID.String(), OccurredAt: event.CreatedAt},
		Payload:    &outbox.OrderCreatedEvent{},
	}, nil
}
