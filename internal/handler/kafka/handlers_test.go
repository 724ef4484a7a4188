package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/francescomedina/web-app-2-sub000/internal/app/order"
	"github.com/francescomedina/web-app-2-sub000/internal/domain"
)

// testRedis returns a client that fails fast; the dedup fast path degrades to
// a miss and handlers fall through to the database inbox.
func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func message(t *testing.T, topic, messageID string, eventType domain.EventType, payload domain.OrderPayload) kafkago.Message {
	t.Helper()
	envelope := domain.NewEnvelope(eventType, payload)
	body, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("failed to marshal envelope: %v", err)
	}
	m := kafkago.Message{
		Topic: topic,
		Key:   []byte(payload.ID),
		Value: body,
	}
	if messageID != "" {
		m.Headers = []kafkago.Header{
			{Key: domain.HeaderMessageID, Value: []byte(messageID)},
			{Key: domain.HeaderAggregateID, Value: []byte(payload.ID)},
			{Key: domain.HeaderType, Value: []byte(eventType)},
		}
	}
	return m
}

type call struct {
	method    string
	messageID string
	topic     string
	eventType domain.EventType
	orderID   string
}

type fakeOrderService struct {
	calls []call
	err   error
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, req *order.CreateOrderRequest) (*order.OrderResponse, error) {
	panic("not used in these tests")
}

func (f *fakeOrderService) GetOrder(ctx context.Context, orderID string) (*order.OrderResponse, error) {
	panic("not used in these tests")
}

func (f *fakeOrderService) GetOrdersByBuyer(ctx context.Context, buyer string) ([]*order.OrderResponse, error) {
	panic("not used in these tests")
}

func (f *fakeOrderService) CancelOrder(ctx context.Context, orderID string) error {
	panic("not used in these tests")
}

func (f *fakeOrderService) ApplyOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"ApplyOutcome", messageID, topic, eventType, payload.ID})
	return f.err
}

type fakeWalletService struct {
	calls []call
	err   error
}

func (f *fakeWalletService) CreateWallet(ctx context.Context, username string, initialBalance float64) (*domain.Wallet, error) {
	panic("not used in these tests")
}

func (f *fakeWalletService) GetWallet(ctx context.Context, username string) (*domain.Wallet, error) {
	panic("not used in these tests")
}

func (f *fakeWalletService) TopUp(ctx context.Context, username string, amount float64) (*domain.Wallet, error) {
	panic("not used in these tests")
}

func (f *fakeWalletService) ProcessAvailabilityOutcome(ctx context.Context, messageID, topic string, eventType domain.EventType, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"ProcessAvailabilityOutcome", messageID, topic, eventType, payload.ID})
	return f.err
}

func (f *fakeWalletService) ProcessRefund(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"ProcessRefund", messageID, topic, "", payload.ID})
	return f.err
}

type fakeWarehouseService struct {
	calls []call
	err   error
}

func (f *fakeWarehouseService) UpsertAvailability(ctx context.Context, productID, warehouseID string, quantity, minQuantity int) (*domain.ProductAvailability, error) {
	panic("not used in these tests")
}

func (f *fakeWarehouseService) GetAvailability(ctx context.Context, productID string) (*domain.ProductAvailability, error) {
	panic("not used in these tests")
}

func (f *fakeWarehouseService) CheckAvailability(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"CheckAvailability", messageID, topic, "", payload.ID})
	return f.err
}

func (f *fakeWarehouseService) DecrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"DecrementQuantity", messageID, topic, "", payload.ID})
	return f.err
}

func (f *fakeWarehouseService) IncrementQuantity(ctx context.Context, messageID, topic string, payload domain.OrderPayload) error {
	f.calls = append(f.calls, call{"IncrementQuantity", messageID, topic, "", payload.ID})
	return f.err
}

var testPayload = domain.OrderPayload{
	ID:    "o1",
	Buyer: "alice",
	Items: []domain.LineItemPayload{{ProductID: "p1", Quantity: 1, UnitPrice: 10}},
}

func TestDecodeEnvelope(t *testing.T) {
	t.Parallel()

	t.Run("missing message_id header is a data error", func(t *testing.T) {
		m := message(t, "order-outcome", "", domain.EventQuantityDecremented, testPayload)
		if _, _, err := decodeEnvelope(m); err == nil {
			t.Fatal("expected error for missing message_id header")
		}
	})

	t.Run("malformed body is a data error", func(t *testing.T) {
		m := message(t, "order-outcome", "m1", domain.EventQuantityDecremented, testPayload)
		m.Value = []byte("{not json")
		if _, _, err := decodeEnvelope(m); err == nil {
			t.Fatal("expected error for malformed body")
		}
	})

	t.Run("well-formed message decodes", func(t *testing.T) {
		m := message(t, "order-outcome", "m1", domain.EventQuantityDecremented, testPayload)
		messageID, envelope, err := decodeEnvelope(m)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if messageID != "m1" {
			t.Fatalf("expected message id m1, got %s", messageID)
		}
		if envelope.Type != domain.EventQuantityDecremented || envelope.Data.ID != "o1" {
			t.Fatalf("unexpected envelope: %+v", envelope)
		}
	})
}

func TestWarehouseOrderEventsHandler(t *testing.T) {
	t.Parallel()
	rdb := testRedis(t)

	t.Run("ORDER_CREATED triggers availability check", func(t *testing.T) {
		svc := &fakeWarehouseService{}
		h := WarehouseOrderEventsHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "order-events", "m1", domain.EventOrderCreated, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "CheckAvailability" {
			t.Fatalf("expected one CheckAvailability call, got %+v", svc.calls)
		}
		if svc.calls[0].messageID != "m1" || svc.calls[0].topic != "order-events" {
			t.Fatalf("unexpected call args: %+v", svc.calls[0])
		}
	})

	t.Run("ORDER_CANCELLED triggers stock increment", func(t *testing.T) {
		svc := &fakeWarehouseService{}
		h := WarehouseOrderEventsHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "order-events", "m2", domain.EventOrderCancelled, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "IncrementQuantity" {
			t.Fatalf("expected one IncrementQuantity call, got %+v", svc.calls)
		}
	})

	t.Run("unknown event type is skipped without a call", func(t *testing.T) {
		svc := &fakeWarehouseService{}
		h := WarehouseOrderEventsHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "order-events", "m3", domain.EventType("SOMETHING_ELSE"), testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected nil for unknown type, got %v", err)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("expected no service calls, got %+v", svc.calls)
		}
	})

	t.Run("service failure propagates so the offset is not committed", func(t *testing.T) {
		svc := &fakeWarehouseService{err: errors.New("db down")}
		h := WarehouseOrderEventsHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "order-events", "m4", domain.EventOrderCreated, testPayload)
		if err := h(context.Background(), m); err == nil {
			t.Fatal("expected service error to propagate")
		}
	})
}

func TestPaymentOutcomeHandler(t *testing.T) {
	t.Parallel()
	rdb := testRedis(t)

	t.Run("TRANSACTION_SUCCESS commits the stock", func(t *testing.T) {
		svc := &fakeWarehouseService{}
		h := PaymentOutcomeHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "wallet-outcome", "m1", domain.EventTransactionSuccess, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "DecrementQuantity" {
			t.Fatalf("expected one DecrementQuantity call, got %+v", svc.calls)
		}
	})

	t.Run("other event types are skipped", func(t *testing.T) {
		svc := &fakeWarehouseService{}
		h := PaymentOutcomeHandler(svc, rdb, "warehouse-service-group", zap.NewNop())

		m := message(t, "wallet-outcome", "m2", domain.EventCreditUnavailable, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected nil for unexpected type, got %v", err)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("expected no service calls, got %+v", svc.calls)
		}
	})
}

func TestOrderOutcomeHandler(t *testing.T) {
	t.Parallel()
	rdb := testRedis(t)

	t.Run("terminal outcomes reach ApplyOutcome", func(t *testing.T) {
		for _, eventType := range []domain.EventType{
			domain.EventQuantityDecremented,
			domain.EventQuantityUnavailableNotPurchased,
			domain.EventCreditUnavailable,
			domain.EventTransactionError,
			domain.EventRefundTransactionSuccess,
			domain.EventRefundTransactionError,
		} {
			svc := &fakeOrderService{}
			h := OrderOutcomeHandler(svc, rdb, "order-service-group", zap.NewNop())

			m := message(t, "order-outcome", "m1", eventType, testPayload)
			if err := h(context.Background(), m); err != nil {
				t.Fatalf("%s: expected no error, got %v", eventType, err)
			}
			if len(svc.calls) != 1 || svc.calls[0].eventType != eventType {
				t.Fatalf("%s: expected one ApplyOutcome call, got %+v", eventType, svc.calls)
			}
		}
	})

	t.Run("QUANTITY_INCREMENTED is informational", func(t *testing.T) {
		svc := &fakeOrderService{}
		h := OrderOutcomeHandler(svc, rdb, "order-service-group", zap.NewNop())

		m := message(t, "order-outcome", "m2", domain.EventQuantityIncremented, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("expected no ApplyOutcome call, got %+v", svc.calls)
		}
	})

	t.Run("unknown type is skipped", func(t *testing.T) {
		svc := &fakeOrderService{}
		h := OrderOutcomeHandler(svc, rdb, "order-service-group", zap.NewNop())

		m := message(t, "order-outcome", "m3", domain.EventType("BOGUS"), testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected nil for unknown type, got %v", err)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("expected no ApplyOutcome call, got %+v", svc.calls)
		}
	})

	t.Run("service failure propagates", func(t *testing.T) {
		svc := &fakeOrderService{err: errors.New("db down")}
		h := OrderOutcomeHandler(svc, rdb, "order-service-group", zap.NewNop())

		m := message(t, "order-outcome", "m4", domain.EventQuantityDecremented, testPayload)
		if err := h(context.Background(), m); err == nil {
			t.Fatal("expected service error to propagate")
		}
	})
}

func TestWalletHandlers(t *testing.T) {
	t.Parallel()
	rdb := testRedis(t)

	t.Run("QUANTITY_AVAILABLE reaches the payment path", func(t *testing.T) {
		svc := &fakeWalletService{}
		h := AvailabilityOutcomeHandler(svc, rdb, "wallet-service-group", zap.NewNop())

		m := message(t, "warehouse-availability", "m1", domain.EventQuantityAvailable, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "ProcessAvailabilityOutcome" {
			t.Fatalf("expected one ProcessAvailabilityOutcome call, got %+v", svc.calls)
		}
		if svc.calls[0].eventType != domain.EventQuantityAvailable {
			t.Fatalf("expected QUANTITY_AVAILABLE, got %s", svc.calls[0].eventType)
		}
	})

	t.Run("refund request triggers ProcessRefund", func(t *testing.T) {
		svc := &fakeWalletService{}
		h := RefundRequestHandler(svc, rdb, "wallet-service-group", zap.NewNop())

		m := message(t, "refund-requests", "m2", domain.EventQuantityUnavailable, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "ProcessRefund" {
			t.Fatalf("expected one ProcessRefund call, got %+v", svc.calls)
		}
	})

	t.Run("ORDER_CANCELLED on the order topic refunds", func(t *testing.T) {
		svc := &fakeWalletService{}
		h := WalletOrderEventsHandler(svc, rdb, "wallet-service-group", zap.NewNop())

		m := message(t, "order-events", "m3", domain.EventOrderCancelled, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 1 || svc.calls[0].method != "ProcessRefund" {
			t.Fatalf("expected one ProcessRefund call, got %+v", svc.calls)
		}
	})

	t.Run("ORDER_CREATED on the order topic is a no-op for the wallet", func(t *testing.T) {
		svc := &fakeWalletService{}
		h := WalletOrderEventsHandler(svc, rdb, "wallet-service-group", zap.NewNop())

		m := message(t, "order-events", "m4", domain.EventOrderCreated, testPayload)
		if err := h(context.Background(), m); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(svc.calls) != 0 {
			t.Fatalf("expected no service calls, got %+v", svc.calls)
		}
	})
}
