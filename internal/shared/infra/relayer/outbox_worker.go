package relayer

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"go.uber.org/zap"

	sharedDomain "github.com/davicafu/tiendalab/internal/shared/domain"
	sharedEvents "github.com/davicafu/tiendalab/internal/shared/domain/events"
	sharedBus "github.com/davicafu/tiendalab/internal/shared/infra/platform/bus"
)

// Worker publica los eventos pendientes de la tabla outbox.
//
// El sobre se construye en el momento de publicar: cada intento lleva un
// event_id nuevo aunque el hecho lógico sea el mismo. Una fila solo se marca
// como procesada tras publicar con éxito, así que el fallo de publicación
// nunca llega a la transacción de dominio que la originó: se reintenta en el
// siguiente ciclo de polling (entrega at-least-once).
type Worker struct {
	repo          sharedDomain.OutboxRepository
	publisher     sharedBus.EventPublisher
	eventRegistry map[string]sharedEvents.EventMetadata
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewOutboxWorker(
	repo sharedDomain.OutboxRepository,
	publisher sharedBus.EventPublisher,
	registry map[string]sharedEvents.EventMetadata,
	interval time.Duration,
	batchSize int,
	log *zap.Logger,
) *Worker {
	return &Worker{
		repo:          repo,
		publisher:     publisher,
		eventRegistry: registry,
		interval:      interval,
		batchSize:     batchSize,
		log:           log,
	}
}

// Start inicia el bucle de polling del worker.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("🚀 Outbox worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			w.log.Info("🛑 Outbox worker stopped")
			return
		case <-ticker.C:
			w.ProcessBatch(ctx)
		}
	}
}

func (w *Worker) ProcessBatch(ctx context.Context) {
	events, err := w.repo.FetchPendingOutbox(ctx, w.batchSize)
	if err != nil {
		w.log.Warn("⚠️ Error fetching pending outbox events", zap.Error(err))
		return
	}
	if len(events) > 0 {
		w.log.Info(fmt.Sprintf("📬 %d pending outbox events", len(events)))
	}

	for _, evt := range events {
		w.publishAndMark(ctx, evt)
	}
}

func (w *Worker) publishAndMark(ctx context.Context, evt sharedDomain.OutboxEvent) {
	metadata, ok := w.eventRegistry[evt.EventType]
	if !ok {
		w.log.Error("Unknown event type in registry", zap.String("event_type", evt.EventType))
		return
	}

	// Decodificar el payload al tipo de hecho registrado valida la forma
	// antes de que salga al bus.
	fact := reflect.New(metadata.Type).Interface()
	payloadBytes, _ := json.Marshal(evt.Payload)
	if err := json.Unmarshal(payloadBytes, fact); err != nil {
		w.log.Error("Error decoding outbox payload",
			zap.String("event_id", evt.ID.String()),
			zap.String("event_type", evt.EventType),
			zap.Error(err),
		)
		return
	}

	env, err := sharedEvents.NewEnvelope(evt.EventType, metadata.Source, fact, evt.CorrelationID)
	if err != nil {
		w.log.Error("Error building envelope", zap.String("event_id", evt.ID.String()), zap.Error(err))
		return
	}

	if err := w.publisher.Publish(ctx, metadata.Topic, evt.PartitionKey(), env); err != nil {
		w.log.Warn("⚠️ Could not publish event, will retry",
			zap.String("event_id", evt.ID.String()),
			zap.String("event_type", evt.EventType),
			zap.Error(err),
		)
		return // queda pendiente para el siguiente ciclo
	}

	if err := w.repo.MarkOutboxProcessed(ctx, evt.ID); err != nil {
		// El hecho ya se publicó; si el mark falla se volverá a publicar
		// con otro event_id. Los consumidores deduplican por clave de negocio.
		w.log.Warn("⚠️ Could not mark outbox event as processed",
			zap.String("event_id", evt.ID.String()),
			zap.Error(err),
		)
	} else {
		w.log.Debug("✅ Event published and marked", zap.String("event_id", evt.ID.String()))
	}
}
