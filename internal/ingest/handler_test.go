package ingest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
	"watchcaller/internal/risk"
)

type mockLogger struct{}

func (mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

type mockParser struct {
	result *ports.ParseResult
	err    error
	calls  int
}

func (p *mockParser) Parse(ctx context.Context, text, source string) (*ports.ParseResult, error) {
	p.calls++
	return p.result, p.err
}

type mockOpener struct {
	opened []*domain.TradingSignal
	sizes  []float64
	result *domain.ManagedPosition
	err    error
}

func (o *mockOpener) Open(ctx context.Context, sig *domain.TradingSignal, size float64) (*domain.ManagedPosition, error) {
	o.opened = append(o.opened, sig)
	o.sizes = append(o.sizes, size)
	return o.result, o.err
}

type mockNotifier struct {
	skipped []string
	errors  []string
}

func (n *mockNotifier) SignalOpened(ctx context.Context, pos *domain.ManagedPosition)           {}
func (n *mockNotifier) SignalFilled(ctx context.Context, symbol, orderID string, price float64) {}
func (n *mockNotifier) TPHit(ctx context.Context, symbol string, level int, price float64, filled, total int) {
}
func (n *mockNotifier) SLHit(ctx context.Context, symbol string, price float64) {}
func (n *mockNotifier) PositionClosed(ctx context.Context, symbol string, reason domain.CloseReason) {
}
func (n *mockNotifier) SignalSkipped(ctx context.Context, coin, reason string) {
	n.skipped = append(n.skipped, reason)
}
func (n *mockNotifier) ErrorOccurred(ctx context.Context, message, errContext string) {
	n.errors = append(n.errors, message)
}

func successResult(sig *domain.TradingSignal, confidence float64) *ports.ParseResult {
	return &ports.ParseResult{
		Status:     ports.ParseSuccess,
		Signal:     sig,
		Confidence: confidence,
	}
}

func parsedSignal() *domain.TradingSignal {
	return &domain.TradingSignal{
		Coin:        "BTC",
		Side:        domain.SideLong,
		Entry:       100,
		StopLoss:    95,
		TakeProfits: []float64{110, 120, 130},
		OrderType:   domain.OrderTypeLimit,
		Timestamp:   time.Now().UTC(),
	}
}

func newTestHandler(t *testing.T, cfg Config, parser *mockParser) (*Handler, *mockOpener, *mockNotifier) {
	t.Helper()
	opener := &mockOpener{}
	notifier := &mockNotifier{}
	riskMgr := risk.NewManager(risk.Config{
		DefaultLeverage:     20,
		HighLeverage:        75,
		HighLeverageCoins:   []string{"BTC"},
		DefaultPositionSize: 20,
		MaxPositionSize:     1000,
		MinConfidence:       0.7,
	})
	h, err := NewHandler(cfg, mockLogger{}, parser, notifier, riskMgr, opener)
	require.NoError(t, err)
	return h, opener, notifier
}

func defaultConfig() Config {
	return Config{MaxTPLevels: 4, MinTPPercentage: 5, MultiTPEnabled: true}
}

func TestHandleMessageOpensPosition(t *testing.T) {
	parser := &mockParser{result: successResult(parsedSignal(), 0.9)}
	h, opener, _ := newTestHandler(t, defaultConfig(), parser)

	_, err := h.HandleMessage(context.Background(), "LONG $BTC entry 100 sl 95 tp 110/120/130", "alpha-calls")
	require.NoError(t, err)

	require.Len(t, opener.opened, 1)
	sig := opener.opened[0]
	assert.Equal(t, "BTC", sig.Coin)
	assert.Equal(t, 0.9, sig.Confidence)
	assert.Equal(t, "alpha-calls", sig.Source)
	assert.NotEmpty(t, sig.RawMessage)
	// BTC trades at 75x: 20 USDT baseline scales to 75.
	assert.InDelta(t, 75.0, opener.sizes[0], 1e-9)
}

func TestHandleMessageEmptyText(t *testing.T) {
	parser := &mockParser{}
	h, opener, _ := newTestHandler(t, defaultConfig(), parser)

	pos, err := h.HandleMessage(context.Background(), "   ", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	assert.Zero(t, parser.calls)
	assert.Empty(t, opener.opened)
}

func TestHandleMessageParserError(t *testing.T) {
	parser := &mockParser{err: errors.New("service unavailable")}
	h, opener, _ := newTestHandler(t, defaultConfig(), parser)

	_, err := h.HandleMessage(context.Background(), "some message", "alpha-calls")
	require.Error(t, err)
	assert.Empty(t, opener.opened)
}

func TestHandleMessageNoSignal(t *testing.T) {
	parser := &mockParser{result: &ports.ParseResult{Status: ports.ParseNoSignal}}
	h, opener, notifier := newTestHandler(t, defaultConfig(), parser)

	pos, err := h.HandleMessage(context.Background(), "gm everyone", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	assert.Empty(t, opener.opened)
	assert.Empty(t, notifier.skipped) // chatter is not worth a notification
}

func TestHandleMessageParseFailed(t *testing.T) {
	parser := &mockParser{result: &ports.ParseResult{Status: ports.ParseFailed, ErrorMessage: "malformed response"}}
	h, opener, _ := newTestHandler(t, defaultConfig(), parser)

	pos, err := h.HandleMessage(context.Background(), "LONG $BTC", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	assert.Empty(t, opener.opened)
}

func TestHandleMessageConfidenceGate(t *testing.T) {
	parser := &mockParser{result: successResult(parsedSignal(), 0.5)}
	h, opener, notifier := newTestHandler(t, defaultConfig(), parser)

	pos, err := h.HandleMessage(context.Background(), "LONG $BTC maybe", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	assert.Empty(t, opener.opened)
	require.Len(t, notifier.skipped, 1)
	assert.Contains(t, notifier.skipped[0], "confidence")
}

func TestHandleMessageValidationRejection(t *testing.T) {
	sig := parsedSignal()
	sig.StopLoss = 105 // wrong side for a long
	parser := &mockParser{result: successResult(sig, 0.9)}
	h, opener, notifier := newTestHandler(t, defaultConfig(), parser)

	pos, err := h.HandleMessage(context.Background(), "LONG $BTC", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	assert.Empty(t, opener.opened)
	require.Len(t, notifier.skipped, 1)
	assert.Contains(t, notifier.skipped[0], "entry")
}

func TestHandleMessageMultiTPDisabled(t *testing.T) {
	parser := &mockParser{result: successResult(parsedSignal(), 0.9)}
	cfg := defaultConfig()
	cfg.MultiTPEnabled = false
	h, opener, _ := newTestHandler(t, cfg, parser)

	_, err := h.HandleMessage(context.Background(), "LONG $BTC", "alpha-calls")
	require.NoError(t, err)

	require.Len(t, opener.opened, 1)
	assert.Equal(t, []float64{110}, opener.opened[0].TakeProfits)
	assert.Empty(t, opener.opened[0].TPWeights)
}

func TestHandleMessagePropagatesAdmissionRejection(t *testing.T) {
	parser := &mockParser{result: successResult(parsedSignal(), 0.9)}
	h, opener, _ := newTestHandler(t, defaultConfig(), parser)
	opener.result = nil // manager rejected at admission

	pos, err := h.HandleMessage(context.Background(), "LONG $BTC", "alpha-calls")
	require.NoError(t, err)
	assert.Nil(t, pos)
	require.Len(t, opener.opened, 1)
}
