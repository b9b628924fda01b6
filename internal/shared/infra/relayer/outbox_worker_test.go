package relayer

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	"github.com/davicafu/tiendalab/tests/mocks"
)

var testRegistry = map[string]sharedEvents.EventMetadata{
	"ORDER_CONFIRMED": {
		Type:   reflect.TypeOf(sharedEvents.OrderFact{}),
		Topic:  "order-events",
		Source: "order-service",
	},
}

func pendingEvent(orderNumber string) sharedDomain.OutboxEvent {
	return sharedDomain.OutboxEvent{
		ID:            uuid.New(),
		AggregateType: "order",
		AggregateID:   orderNumber,
		EventType:     "ORDER_CONFIRMED",
		CorrelationID: "cust-1",
		Payload: sharedEvents.OrderFact{
			OrderNumber: orderNumber,
			CustomerID:  "cust-1",
			TotalAmount: decimal.RequireFromString("110.99"),
		},
		CreatedAt: time.Now().UTC(),
	}
}

func newWorkerUnderTest(repo *mocks.MockOutboxRepository, pub *mocks.MockPublisher) *Worker {
	return NewOutboxWorker(repo, pub, testRegistry, time.Second, 10, zap.NewNop())
}

func TestProcessBatch_PublishesAndMarks(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	pub := new(mocks.MockPublisher)
	evt := pendingEvent("ORD-2025-000001")

	repo.On("FetchPendingOutbox", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent{evt}, nil)
	pub.On("Publish", mock.Anything, "order-events", evt.PartitionKey(), mock.MatchedBy(func(env sharedEvents.Envelope) bool {
		return env.EventType == "ORDER_CONFIRMED" &&
			env.Source == "order-service" &&
			env.CorrelationKey == "cust-1"
	})).Return(nil)
	repo.On("MarkOutboxProcessed", mock.Anything, evt.ID).Return(nil)

	newWorkerUnderTest(repo, pub).ProcessBatch(context.Background())

	repo.AssertExpectations(t)
	pub.AssertExpectations(t)
}

func TestProcessBatch_PublishFailureLeavesEventPending(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	pub := new(mocks.MockPublisher)
	evt := pendingEvent("ORD-2025-000002")

	repo.On("FetchPendingOutbox", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent{evt}, nil)
	pub.On("Publish", mock.Anything, "order-events", evt.PartitionKey(), mock.Anything).
		Return(errors.New("broker unavailable"))

	newWorkerUnderTest(repo, pub).ProcessBatch(context.Background())

	// Sin publicar no hay mark: el evento se reintenta en el siguiente ciclo.
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestProcessBatch_UnknownEventTypeSkipped(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	pub := new(mocks.MockPublisher)
	evt := pendingEvent("ORD-2025-000003")
	evt.EventType = "SOMETHING_UNREGISTERED"

	repo.On("FetchPendingOutbox", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent{evt}, nil)

	newWorkerUnderTest(repo, pub).ProcessBatch(context.Background())

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "MarkOutboxProcessed", mock.Anything, mock.Anything)
}

func TestProcessBatch_FetchErrorIsTolerated(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	pub := new(mocks.MockPublisher)

	repo.On("FetchPendingOutbox", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent(nil), errors.New("db down"))

	newWorkerUnderTest(repo, pub).ProcessBatch(context.Background())

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestProcessBatch_EachAttemptGetsFreshEnvelopeID(t *testing.T) {
	repo := new(mocks.MockOutboxRepository)
	pub := new(mocks.MockPublisher)
	evt := pendingEvent("ORD-2025-000004")

	var seen []uuid.UUID
	repo.On("FetchPendingOutbox", mock.Anything, 10).
		Return([]sharedDomain.OutboxEvent{evt}, nil)
	pub.On("Publish", mock.Anything, "order-events", evt.PartitionKey(), mock.Anything).
		Run(func(args mock.Arguments) {
			env := args.Get(3).(sharedEvents.Envelope)
			seen = append(seen, env.EventID)
		}).
		Return(errors.New("broker unavailable"))

	worker := newWorkerUnderTest(repo, pub)
	worker.ProcessBatch(context.Background())
	worker.ProcessBatch(context.Background())

	assert.Len(t, seen, 2)
	assert.NotEqual(t, seen[0], seen[1])
}
