package orders

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/example/shoporder/internal/catalog"
)

// memStore implements Store in memory with the same all-or-nothing and
// no-oversell guarantees the postgres repo gets from its transaction.
type memStore struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	orders   map[string]Order
}

func newMemStore(products ...catalog.Product) *memStore {
	s := &memStore{
		products: make(map[string]catalog.Product),
		orders:   make(map[string]Order),
	}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *memStore) PlaceOrder(_ context.Context, userID string, lines []OrderLine) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	priced, total, err := PriceLines(s.products, lines)
	if err != nil {
		return Order{}, err
	}

	// conditional decrement against a scratch copy, then commit or discard
	scratch := make(map[string]catalog.Product, len(s.products))
	for id, p := range s.products {
		scratch[id] = p
	}
	for _, pl := range priced {
		p := scratch[pl.ProductID]
		if p.StockQuantity < pl.Quantity {
			return Order{}, fmt.Errorf("%w: %s", ErrInsufficientStock, p.Name)
		}
		p.StockQuantity -= pl.Quantity
		scratch[pl.ProductID] = p
	}
	s.products = scratch

	now := time.Now()
	order := Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		TotalPrice: total,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	for _, pl := range priced {
		order.Items = append(order.Items, OrderItem{
			ID:        uuid.NewString(),
			OrderID:   order.ID,
			ProductID: pl.ProductID,
			Quantity:  pl.Quantity,
			Price:     pl.Price,
		})
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *memStore) FindOrder(_ context.Context, orderID string) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (s *memStore) UpdateStatus(_ context.Context, orderID string, status Status) (Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[orderID]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	o.Status = status
	o.UpdatedAt = time.Now()
	s.orders[orderID] = o
	return o, nil
}

func (s *memStore) List(_ context.Context, _ ListFilter, _, _ int) ([]Order, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Order, 0, len(s.orders))
	for _, o := range s.orders {
		out = append(out, o)
	}
	return out, len(out), nil
}

func (s *memStore) stock(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.products[id].StockQuantity
}

type fakePublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *fakePublisher) Publish(_, value []byte, _ ...kafkago.Header) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, value)
}

func (p *fakePublisher) envelopes(t *testing.T) []Envelope {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Envelope, 0, len(p.messages))
	for _, m := range p.messages {
		var env Envelope
		require.NoError(t, json.Unmarshal(m, &env))
		out = append(out, env)
	}
	return out
}

func newTestService(store Store) (*Service, *fakePublisher, *fakePublisher) {
	created := &fakePublisher{}
	status := &fakePublisher{}
	return &Service{
		Store:         store,
		CreatedEvents: created,
		StatusEvents:  status,
		Log:           zap.NewNop(),
		ServiceName:   "test-api",
	}, created, status
}

func TestPlaceHappyPath(t *testing.T) {
	store := newMemStore(product("p1", "Keyboard", "10.00", 5, catalog.StatusActive))
	svc, created, _ := newTestService(store)

	order, err := svc.Place(context.Background(), "u1", []OrderLine{{ProductID: "p1", Quantity: 2}}, "trace-1")
	require.NoError(t, err)

	assert.Equal(t, "u1", order.UserID)
	assert.Equal(t, StatusPending, order.Status)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("20.00")))
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)
	assert.Equal(t, 3, store.stock("p1"))

	envs := created.envelopes(t)
	require.Len(t, envs, 1)
	assert.Equal(t, EventOrderCreated, envs[0].EventType)
	assert.Equal(t, order.ID, envs[0].CorrelationID)
	assert.Equal(t, "trace-1", envs[0].TraceID)

	var payload OrderCreatedPayload
	require.NoError(t, json.Unmarshal(envs[0].Payload, &payload))
	assert.Equal(t, order.ID, payload.OrderID)
	assert.True(t, payload.TotalPrice.Equal(decimal.RequireFromString("20.00")))
}

func TestPlaceFailureLeavesNoTrace(t *testing.T) {
	store := newMemStore(product("p1", "Keyboard", "10.00", 5, catalog.StatusActive))
	svc, created, _ := newTestService(store)

	_, err := svc.Place(context.Background(), "u1", []OrderLine{{ProductID: "p1", Quantity: 10}}, "")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, store.stock("p1"), "stock untouched after failure")
	assert.Empty(t, created.envelopes(t), "no event after failure")

	placed, _, listErr := store.List(context.Background(), ListFilter{}, 1, 10)
	require.NoError(t, listErr)
	assert.Empty(t, placed, "no order row after failure")
}

func TestPlaceDuplicateLinesBeyondStock(t *testing.T) {
	// Each duplicate passes its own per-line check but the combined
	// decrement exceeds stock, so the whole placement fails.
	store := newMemStore(product("p1", "Keyboard", "10.00", 5, catalog.StatusActive))
	svc, created, _ := newTestService(store)

	_, err := svc.Place(context.Background(), "u1", []OrderLine{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p1", Quantity: 3},
	}, "")
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 5, store.stock("p1"))
	assert.Empty(t, created.envelopes(t))
}

func TestConcurrentPlacementNeverOversells(t *testing.T) {
	store := newMemStore(product("p1", "Keyboard", "10.00", 5, catalog.StatusActive))
	svc, _, _ := newTestService(store)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Place(context.Background(), "u1",
				[]OrderLine{{ProductID: "p1", Quantity: 3}}, "")
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
		} else {
			assert.ErrorIs(t, err, ErrInsufficientStock)
		}
	}
	assert.Equal(t, 1, successes, "exactly one placement may win")
	assert.Equal(t, 2, store.stock("p1"))
	assert.GreaterOrEqual(t, store.stock("p1"), 0, "stock never negative")
}

func TestUpdateStatus(t *testing.T) {
	store := newMemStore(product("p1", "Keyboard", "10.00", 5, catalog.StatusActive))
	svc, _, status := newTestService(store)

	order, err := svc.Place(context.Background(), "u1", []OrderLine{{ProductID: "p1", Quantity: 1}}, "")
	require.NoError(t, err)

	updated, err := svc.UpdateStatus(context.Background(), order.ID, StatusCompleted, "trace-2")
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	// no transition guard: cancelled may follow completed
	updated, err = svc.UpdateStatus(context.Background(), order.ID, StatusCancelled, "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, updated.Status)

	envs := status.envelopes(t)
	require.Len(t, envs, 2)
	assert.Equal(t, EventOrderStatusUpdated, envs[0].EventType)

	var payload OrderStatusUpdatedPayload
	require.NoError(t, json.Unmarshal(envs[1].Payload, &payload))
	assert.Equal(t, StatusCancelled, payload.Status)
}

func TestUpdateStatusUnknownOrder(t *testing.T) {
	store := newMemStore()
	svc, _, status := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), "nope", StatusCompleted, "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.Empty(t, status.envelopes(t))
}

func TestPlaceEmptyLineListYieldsZeroTotalOrder(t *testing.T) {
	store := newMemStore()
	svc, created, _ := newTestService(store)

	order, err := svc.Place(context.Background(), "u1", nil, "")
	require.NoError(t, err)
	assert.True(t, order.TotalPrice.IsZero())
	assert.Empty(t, order.Items)
	assert.Len(t, created.envelopes(t), 1)
}
