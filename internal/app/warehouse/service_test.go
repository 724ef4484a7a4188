package warehouse

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"

	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/domain"
	"github.com/francescomedina/web-app-2-sub000/internal/outbox"
)

// stockState is the in-memory stand-in for the warehouse database. A store
// transaction snapshots it on begin and restores the snapshot on rollback.
type stockState struct {
	stock     map[string]*domain.ProductAvailability
	movements []domain.StockMovement
	processed map[string]bool
	events    []domain.OutboxEvent
}

func (st *stockState) clone() *stockState {
	c := &stockState{
		stock:     make(map[string]*domain.ProductAvailability, len(st.stock)),
		movements: append([]domain.StockMovement(nil), st.movements...),
		processed: make(map[string]bool, len(st.processed)),
		events:    append([]domain.OutboxEvent(nil), st.events...),
	}
	for id, pa := range st.stock {
		cp := *pa
		c.stock[id] = &cp
	}
	for k := range st.processed {
		c.processed[k] = true
	}
	return c
}

type stubQuerier struct{}

func (stubQuerier) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	panic("unexpected direct query")
}

func (stubQuerier) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	panic("unexpected direct query")
}

func (stubQuerier) QueryRowContext(context.Context, string, ...any) *sql.Row {
	panic("unexpected direct query")
}

type stockStore struct {
	stubQuerier
	state *stockState
}

func (s *stockStore) BeginTx(ctx context.Context) (domain.Tx, error) {
	return &stockStoreTx{store: s, snapshot: s.state.clone()}, nil
}

type stockStoreTx struct {
	stubQuerier
	store    *stockStore
	snapshot *stockState
	done     bool
}

func (t *stockStoreTx) Commit() error {
	t.done = true
	return nil
}

func (t *stockStoreTx) Rollback() error {
	if t.done {
		return sql.ErrTxDone
	}
	t.done = true
	t.store.state = t.snapshot
	return nil
}

type fakeStockRepo struct {
	store *stockStore
}

func (f *fakeStockRepo) Upsert(ctx context.Context, querier domain.Querier, pa *domain.ProductAvailability) error {
	cp := *pa
	f.store.state.stock[pa.ProductID] = &cp
	return nil
}

func (f *fakeStockRepo) GetByProduct(ctx context.Context, querier domain.Querier, productID string) (*domain.ProductAvailability, error) {
	pa, ok := f.store.state.stock[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	cp := *pa
	return &cp, nil
}

func (f *fakeStockRepo) FindAvailability(ctx context.Context, querier domain.Querier, productID string, minQuantity int) (*domain.ProductAvailability, error) {
	pa, ok := f.store.state.stock[productID]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	if pa.Quantity < minQuantity {
		return nil, domain.ErrInsufficientStock
	}
	cp := *pa
	return &cp, nil
}

func (f *fakeStockRepo) DecrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error {
	pa, ok := f.store.state.stock[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if pa.Quantity < qty {
		return domain.ErrInsufficientStock
	}
	pa.Quantity -= qty
	return nil
}

func (f *fakeStockRepo) IncrementTx(ctx context.Context, querier domain.Querier, productID string, qty int) error {
	pa, ok := f.store.state.stock[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	pa.Quantity += qty
	return nil
}

func (f *fakeStockRepo) CreateMovementTx(ctx context.Context, querier domain.Querier, m *domain.StockMovement) error {
	for _, existing := range f.store.state.movements {
		if existing.OrderID == m.OrderID && existing.ProductID == m.ProductID && existing.Direction == m.Direction {
			return domain.ErrMessageAlreadyProcessed
		}
	}
	f.store.state.movements = append(f.store.state.movements, *m)
	return nil
}

func (f *fakeStockRepo) GetMovements(ctx context.Context, querier domain.Querier, orderID string, direction domain.MovementDirection) ([]domain.StockMovement, error) {
	var movements []domain.StockMovement
	for _, m := range f.store.state.movements {
		if m.OrderID == orderID && m.Direction == direction {
			movements = append(movements, m)
		}
	}
	return movements, nil
}

type fakeInboxRepo struct {
	store *stockStore
}

func (f *fakeInboxRepo) MarkProcessedTx(ctx context.Context, querier domain.Querier, msg *domain.ProcessedMessage) error {
	key := msg.MessageID + "|" + msg.ConsumerGroup
	if f.store.state.processed[key] {
		return domain.ErrMessageAlreadyProcessed
	}
	f.store.state.processed[key] = true
	return nil
}

type capturedOutboxRepo struct {
	store *stockStore
}

func (c *capturedOutboxRepo) CreateEventTx(ctx context.Context, querier domain.Querier, event *domain.OutboxEvent) error {
	c.store.state.events = append(c.store.state.events, *event)
	return nil
}

func (c *capturedOutboxRepo) GetPendingEvents(ctx context.Context, querier domain.Querier, limit int) ([]domain.OutboxEvent, error) {
	return nil, nil
}

func (c *capturedOutboxRepo) UpdateEventStatusTx(ctx context.Context, querier domain.Querier, id string, status domain.OutboxEventStatus) error {
	return nil
}

type warehouseFixture struct {
	store *stockStore
	svc   WarehouseService
}

func newWarehouseFixture() *warehouseFixture {
	store := &stockStore{state: &stockState{
		stock: map[string]*domain.ProductAvailability{
			"p1": {ID: "a1", ProductID: "p1", WarehouseID: "wh1", Quantity: 5},
			"p2": {ID: "a2", ProductID: "p2", WarehouseID: "wh1", Quantity: 1},
		},
		processed: map[string]bool{},
	}}
	svc := NewWarehouseService(
		store,
		&fakeStockRepo{store: store},
		&fakeInboxRepo{store: store},
		outbox.NewPublisher(&capturedOutboxRepo{store: store}),
		Topics{
			WarehouseAvailability: "warehouse-availability",
			RefundRequests:        "refund-requests",
			OrderOutcome:          "order-outcome",
		},
		"warehouse-service-group",
		zap.NewNop(),
	)
	return &warehouseFixture{store: store, svc: svc}
}

func (f *warehouseFixture) quantity(t *testing.T, productID string) int {
	t.Helper()
	pa, ok := f.store.state.stock[productID]
	if !ok {
		t.Fatalf("product %s not found", productID)
	}
	return pa.Quantity
}

func (f *warehouseFixture) singleEvent(t *testing.T, channel string, eventType domain.EventType) domain.OutboxEvent {
	t.Helper()
	events := f.store.state.events
	if len(events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(events))
	}
	if events[0].Channel != channel || events[0].Type != eventType {
		t.Fatalf("expected %s on %s, got %s on %s", eventType, channel, events[0].Type, events[0].Channel)
	}
	return events[0]
}

func stockPayload(orderID string, items ...domain.LineItemPayload) domain.OrderPayload {
	return domain.OrderPayload{ID: orderID, Buyer: "alice", Status: "CREATED", Items: items}
}

func TestWarehouseServiceCheckAvailability(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("reports QUANTITY_AVAILABLE when every line is in stock", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})
		if err := f.svc.CheckAvailability(ctx, "msg-1", "order-events", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		f.singleEvent(t, "warehouse-availability", domain.EventQuantityAvailable)
		// The check only reads; nothing is held.
		if got := f.quantity(t, "p1"); got != 5 {
			t.Fatalf("expected untouched stock 5, got %d", got)
		}
	})

	t.Run("reports QUANTITY_UNAVAILABLE on any shortfall", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1",
			domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10},
			domain.LineItemPayload{ProductID: "p2", Quantity: 3, UnitPrice: 5},
		)
		if err := f.svc.CheckAvailability(ctx, "msg-1", "order-events", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		f.singleEvent(t, "warehouse-availability", domain.EventQuantityUnavailable)
	})

	t.Run("unknown product counts as unavailable", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1", domain.LineItemPayload{ProductID: "ghost", Quantity: 1, UnitPrice: 10})
		if err := f.svc.CheckAvailability(ctx, "msg-1", "order-events", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		f.singleEvent(t, "warehouse-availability", domain.EventQuantityUnavailable)
	})

	t.Run("redelivered check is absorbed", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})
		for i := 0; i < 2; i++ {
			if err := f.svc.CheckAvailability(ctx, "msg-1", "order-events", payload); err != nil {
				t.Fatalf("delivery %d: expected no error, got %v", i+1, err)
			}
		}
		if len(f.store.state.events) != 1 {
			t.Fatalf("expected 1 event, got %d", len(f.store.state.events))
		}
	})
}

func TestWarehouseServiceDecrementQuantity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("commits the stock and records OUT movements", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})
		if err := f.svc.DecrementQuantity(ctx, "msg-1", "wallet-outcome", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := f.quantity(t, "p1"); got != 3 {
			t.Fatalf("expected stock 3, got %d", got)
		}
		if len(f.store.state.movements) != 1 {
			t.Fatalf("expected 1 movement, got %d", len(f.store.state.movements))
		}
		m := f.store.state.movements[0]
		if m.OrderID != "o1" || m.ProductID != "p1" || m.Quantity != 2 || m.Direction != domain.MovementOut {
			t.Fatalf("unexpected movement: %+v", m)
		}

		event := f.singleEvent(t, "order-outcome", domain.EventQuantityDecremented)
		var envelope domain.Envelope
		if err := json.Unmarshal(event.Payload, &envelope); err != nil {
			t.Fatalf("expected a valid envelope, got %v", err)
		}
		if envelope.Data.Delivery == "" {
			t.Fatalf("expected a shipment reference assigned at fulfillment")
		}
	})

	t.Run("concurrent sale after the check rolls back and requests a refund", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1",
			domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10},
			domain.LineItemPayload{ProductID: "p2", Quantity: 3, UnitPrice: 5},
		)
		if err := f.svc.DecrementQuantity(ctx, "msg-1", "wallet-outcome", payload); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		// The first line's decrement must not survive the abort.
		if got := f.quantity(t, "p1"); got != 5 {
			t.Fatalf("expected rolled-back stock 5, got %d", got)
		}
		if len(f.store.state.movements) != 0 {
			t.Fatalf("expected no movements, got %d", len(f.store.state.movements))
		}
		f.singleEvent(t, "refund-requests", domain.EventQuantityUnavailable)
		if f.store.state.processed["msg-1|warehouse-service-group"] {
			t.Fatalf("expected message to stay unprocessed after rollback")
		}
	})

	t.Run("redelivered decrement is absorbed", func(t *testing.T) {
		f := newWarehouseFixture()

		payload := stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})
		for i := 0; i < 2; i++ {
			if err := f.svc.DecrementQuantity(ctx, "msg-1", "wallet-outcome", payload); err != nil {
				t.Fatalf("delivery %d: expected no error, got %v", i+1, err)
			}
		}
		if got := f.quantity(t, "p1"); got != 3 {
			t.Fatalf("expected a single decrement, stock is %d", got)
		}
		if len(f.store.state.movements) != 1 || len(f.store.state.events) != 1 {
			t.Fatalf("expected 1 movement and 1 event, got %d and %d",
				len(f.store.state.movements), len(f.store.state.events))
		}
	})
}

func TestWarehouseServiceIncrementQuantity(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("puts back exactly what was decremented", func(t *testing.T) {
		f := newWarehouseFixture()

		if err := f.svc.DecrementQuantity(ctx, "msg-1", "wallet-outcome",
			stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})); err != nil {
			t.Fatalf("decrement: expected no error, got %v", err)
		}

		// The compensation payload deliberately overstates the quantity; the
		// recorded movements, not the payload, drive what goes back.
		if err := f.svc.IncrementQuantity(ctx, "msg-2", "order-events",
			stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 9, UnitPrice: 10})); err != nil {
			t.Fatalf("increment: expected no error, got %v", err)
		}

		if got := f.quantity(t, "p1"); got != 5 {
			t.Fatalf("expected stock restored to 5, got %d", got)
		}
		var in int
		for _, m := range f.store.state.movements {
			if m.Direction == domain.MovementIn {
				in++
				if m.Quantity != 2 {
					t.Fatalf("expected IN movement of 2, got %d", m.Quantity)
				}
			}
		}
		if in != 1 {
			t.Fatalf("expected 1 IN movement, got %d", in)
		}
		last := f.store.state.events[len(f.store.state.events)-1]
		if last.Channel != "order-outcome" || last.Type != domain.EventQuantityIncremented {
			t.Fatalf("expected QUANTITY_INCREMENTED on order-outcome, got %s on %s", last.Type, last.Channel)
		}
	})

	t.Run("redelivered increment is absorbed", func(t *testing.T) {
		f := newWarehouseFixture()

		if err := f.svc.DecrementQuantity(ctx, "msg-1", "wallet-outcome",
			stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})); err != nil {
			t.Fatalf("decrement: expected no error, got %v", err)
		}
		for i := 0; i < 2; i++ {
			if err := f.svc.IncrementQuantity(ctx, "msg-2", "order-events",
				stockPayload("o1", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})); err != nil {
				t.Fatalf("delivery %d: expected no error, got %v", i+1, err)
			}
		}
		if got := f.quantity(t, "p1"); got != 5 {
			t.Fatalf("expected a single increment, stock is %d", got)
		}
	})

	t.Run("order with no recorded movements still reports the outcome", func(t *testing.T) {
		f := newWarehouseFixture()

		if err := f.svc.IncrementQuantity(ctx, "msg-1", "order-events",
			stockPayload("o9", domain.LineItemPayload{ProductID: "p1", Quantity: 2, UnitPrice: 10})); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := f.quantity(t, "p1"); got != 5 {
			t.Fatalf("expected untouched stock 5, got %d", got)
		}
		f.singleEvent(t, "order-outcome", domain.EventQuantityIncremented)
	})
}
