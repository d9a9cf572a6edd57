package container

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nutriplan/engine/internal/domain/mealplan"
	"github.com/nutriplan/engine/internal/domain/shared"
	"github.com/nutriplan/engine/internal/infrastructure/http/realtime"
	"github.com/nutriplan/engine/internal/ports/outbound"
)

// EventDispatcher routes domain events to the publishers registered for
// their name. A failing publisher is logged and does not stop the others.
type EventDispatcher struct {
	mu         sync.RWMutex
	publishers map[string][]outbound.EventPublisher
	log        *zap.Logger
}

var _ outbound.EventPublisher = (*EventDispatcher)(nil)

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher(log *zap.Logger) *EventDispatcher {
	return &EventDispatcher{
		publishers: make(map[string][]outbound.EventPublisher),
		log:        log.Named("events"),
	}
}

// Publish dispatches an event to registered publishers
func (d *EventDispatcher) Publish(ctx context.Context, userID uuid.UUID, event shared.DomainEvent) error {
	d.mu.RLock()
	publishers := d.publishers[event.EventName()]
	d.mu.RUnlock()

	if len(publishers) == 0 {
		d.log.Debug("No publishers registered for event", zap.String("event", event.EventName()))
		return nil
	}

	for _, p := range publishers {
		if err := p.Publish(ctx, userID, event); err != nil {
			d.log.Warn("Failed to publish event",
				zap.String("event", event.EventName()),
				zap.String("user_id", userID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

// Register adds a publisher for an event name
func (d *EventDispatcher) Register(event string, p outbound.EventPublisher) {
	d.mu.Lock()
	d.publishers[event] = append(d.publishers[event], p)
	d.mu.Unlock()
	d.log.Debug("Registered event publisher", zap.String("event", event))
}

// auditPublisher logs slot changes
type auditPublisher struct {
	log *zap.Logger
}

func (a auditPublisher) Publish(_ context.Context, userID uuid.UUID, event shared.DomainEvent) error {
	fields := []zap.Field{
		zap.String("event", event.EventName()),
		zap.String("user_id", userID.String()),
		zap.Time("occurred_at", event.OccurredAt()),
	}
	if e, ok := event.(mealplan.SlotChangedEvent); ok {
		fields = append(fields,
			zap.String("meal_plan_id", e.MealPlanID.String()),
			zap.String("slot", string(e.Slot)),
			zap.String("operation", string(e.Operation)),
			zap.Int("version", e.Version),
		)
	}
	a.log.Info("Meal plan changed", fields...)
	return nil
}

// RegisterEventPublishers wires slot changes to the websocket hub and the
// audit log
func RegisterEventPublishers(d *EventDispatcher, hub *realtime.Hub, log *zap.Logger) {
	slotChanged := mealplan.SlotChangedEvent{}.EventName()
	d.Register(slotChanged, hub)
	d.Register(slotChanged, auditPublisher{log: log.Named("audit")})
}
