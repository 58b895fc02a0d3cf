package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

type nopLogger struct{}

func (nopLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (nopLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (nopLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type stubExchange struct {
	connectErr  error
	connects    atomic.Int32
	disconnects atomic.Int32
}

func (e *stubExchange) Connect(ctx context.Context) error {
	e.connects.Add(1)
	return e.connectErr
}
func (e *stubExchange) Disconnect(ctx context.Context) error {
	e.disconnects.Add(1)
	return nil
}
func (e *stubExchange) GetBalance(ctx context.Context, currency string) (*ports.Balance, error) {
	return &ports.Balance{}, nil
}
func (e *stubExchange) CreateOrder(ctx context.Context, order *domain.ExchangeOrder) (*domain.ExchangeOrder, error) {
	return order, nil
}
func (e *stubExchange) CancelOrder(ctx context.Context, symbol, orderID string) error { return nil }
func (e *stubExchange) GetOrderStatus(ctx context.Context, symbol, orderID string) (*domain.ExchangeOrder, error) {
	return nil, nil
}
func (e *stubExchange) GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	return nil, nil
}
func (e *stubExchange) GetTicker(ctx context.Context, symbol string) (float64, error) { return 0, nil }
func (e *stubExchange) FormatSymbol(coin string) string                               { return coin }
func (e *stubExchange) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	return nil
}
func (e *stubExchange) ReplaceStopLoss(ctx context.Context, symbol, oldOrderID string, side domain.OrderSide, quantity, stopPrice float64) (*domain.ExchangeOrder, error) {
	return nil, nil
}

type stubMaintainer struct {
	reconciles atomic.Int32
	tpChecks   atomic.Int32
	cleanups   atomic.Int32
}

func (m *stubMaintainer) Reconcile(ctx context.Context) { m.reconciles.Add(1) }
func (m *stubMaintainer) CheckTPFills(ctx context.Context) map[string][]int {
	m.tpChecks.Add(1)
	return nil
}
func (m *stubMaintainer) CleanupInactive(ctx context.Context) int {
	m.cleanups.Add(1)
	return 0
}

type stubHandler struct {
	mu       sync.Mutex
	messages []string
}

func (h *stubHandler) HandleMessage(ctx context.Context, text, source string) (*domain.ManagedPosition, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.messages = append(h.messages, text)
	return nil, nil
}

// stubSource emits the given messages then blocks until cancellation.
type stubSource struct {
	messages []string
}

func (s *stubSource) Listen(ctx context.Context, handler func(ctx context.Context, text, source string)) {
	for _, msg := range s.messages {
		handler(ctx, msg, "test-chat")
	}
	<-ctx.Done()
}

func newTestService(t *testing.T, exchange *stubExchange, maintainer *stubMaintainer, handler *stubHandler, source *stubSource) *Service {
	t.Helper()
	svc, err := New(Config{
		ReconcileInterval: 10 * time.Millisecond,
		TPCheckInterval:   10 * time.Millisecond,
		CleanupInterval:   10 * time.Millisecond,
	}, nopLogger{}, exchange, maintainer, handler, source)
	require.NoError(t, err)
	return svc
}

func TestStartRunsLoopsUntilCancelled(t *testing.T) {
	exchange := &stubExchange{}
	maintainer := &stubMaintainer{}
	handler := &stubHandler{}
	source := &stubSource{messages: []string{"LONG $BTC", "gm"}}
	svc := newTestService(t, exchange, maintainer, handler, source)

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := svc.Start(ctx)
	require.NoError(t, err)

	assert.Equal(t, int32(1), exchange.connects.Load())
	assert.Equal(t, int32(1), exchange.disconnects.Load())
	// One startup pass plus ticker passes.
	assert.GreaterOrEqual(t, maintainer.reconciles.Load(), int32(2))
	assert.GreaterOrEqual(t, maintainer.tpChecks.Load(), int32(1))
	assert.GreaterOrEqual(t, maintainer.cleanups.Load(), int32(1))
	assert.Equal(t, []string{"LONG $BTC", "gm"}, handler.messages)
}

func TestStartFailsWhenExchangeUnreachable(t *testing.T) {
	exchange := &stubExchange{connectErr: errors.New("down")}
	svc := newTestService(t, exchange, &stubMaintainer{}, &stubHandler{}, &stubSource{})

	err := svc.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange connection failed")
	assert.Equal(t, int32(0), exchange.disconnects.Load())
}
