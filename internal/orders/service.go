package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	kafkax "github.com/example/shoporder/internal/kafka"
)

// Store is the order persistence consumed by the service; *Repo is the
// postgres implementation.
type Store interface {
	PlaceOrder(ctx context.Context, userID string, lines []OrderLine) (Order, error)
	FindOrder(ctx context.Context, orderID string) (Order, error)
	UpdateStatus(ctx context.Context, orderID string, status Status) (Order, error)
	List(ctx context.Context, f ListFilter, page, perPage int) ([]Order, int, error)
}

// Publisher is satisfied by *kafka.Producer.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type Service struct {
	Store         Store
	CreatedEvents Publisher
	StatusEvents  Publisher
	Log           *zap.Logger
	ServiceName   string
}

// Place persists the order atomically and, only after the commit succeeded,
// publishes an OrderCreated event.
func (s *Service) Place(ctx context.Context, userID string, lines []OrderLine, trace string) (Order, error) {
	order, err := s.Store.PlaceOrder(ctx, userID, lines)
	if err != nil {
		s.Log.Warn("order placement failed",
			zap.String("user_id", userID),
			zap.Int("line_count", len(lines)),
			zap.Error(err))
		return Order{}, err
	}

	s.Log.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("user_id", userID),
		zap.String("total_price", order.TotalPrice.String()))

	items := make([]ItemSnapshot, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, ItemSnapshot{ProductID: it.ProductID, Quantity: it.Quantity, Price: it.Price})
	}
	s.publish(s.CreatedEvents, EventOrderCreated, order.ID, trace, OrderCreatedPayload{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Items:      items,
		TotalPrice: order.TotalPrice,
		Status:     order.Status,
	})
	return order, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (Order, error) {
	return s.Store.FindOrder(ctx, orderID)
}

func (s *Service) List(ctx context.Context, f ListFilter, page, perPage int) ([]Order, int, error) {
	return s.Store.List(ctx, f, page, perPage)
}

// UpdateStatus transitions the order and publishes an OrderStatusUpdated
// event on success.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, status Status, trace string) (Order, error) {
	order, err := s.Store.UpdateStatus(ctx, orderID, status)
	if err != nil {
		return Order{}, err
	}

	s.Log.Info("order status updated",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)))

	s.publish(s.StatusEvents, EventOrderStatusUpdated, order.ID, trace, OrderStatusUpdatedPayload{
		OrderID: order.ID,
		Status:  order.Status,
	})
	return order, nil
}

func (s *Service) publish(p Publisher, eventType, orderID, trace string, payload any) {
	if p == nil {
		return
	}
	ev := Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		TraceID:       trace,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	p.Publish(PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}
