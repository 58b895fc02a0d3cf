// Package binanceclient implements ports.ExchangeClient against Binance
// USDⓈ-M futures using the go-binance library.
package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	defaultQuantityPrecision = 3
	defaultPricePrecision    = 4
)

// Client implements the ports.ExchangeClient interface using the go-binance library.
type Client struct {
	futuresClient     *futures.Client
	logger            ports.Logger
	quoteCurrency     string
	quantityPrecision int32
	pricePrecision    int32
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey            string
	SecretKey         string
	UseTestnet        bool
	Logger            ports.Logger
	QuoteCurrency     string // Symbol suffix, defaults to "USDT"
	QuantityPrecision int    // Decimal places for order quantities
	PricePrecision    int    // Decimal places for stop/limit prices
}

// New creates a new Binance client adapter.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("API key and secret are required for Binance client: %w", ports.ErrInvalidAPIKeys)
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	quote := cfg.QuoteCurrency
	if quote == "" {
		quote = "USDT"
	}
	qtyPrec := int32(cfg.QuantityPrecision)
	if qtyPrec <= 0 {
		qtyPrec = defaultQuantityPrecision
	}
	pricePrec := int32(cfg.PricePrecision)
	if pricePrec <= 0 {
		pricePrec = defaultPricePrecision
	}

	return &Client{
		futuresClient:     client,
		logger:            cfg.Logger,
		quoteCurrency:     strings.ToUpper(quote),
		quantityPrecision: qtyPrec,
		pricePrecision:    pricePrec,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1115, -1116, -1117, -1120, -1121, -1125, -1127, -1128, -1130: // Parameter/request format errors
			mappedErr = ports.ErrInvalidRequest
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / bad key, IP or permissions
			mappedErr = ports.ErrInvalidAPIKeys
		case -2019, -3005, -3041: // Insufficient margin/balance/position
			mappedErr = ports.ErrInsufficientFunds
		case -2022: // ReduceOnly order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -4003, -4014, -4015: // Qty/price/leverage out of permissible range
			mappedErr = ports.ErrInvalidRequest
		case -4044: // Position not found
			mappedErr = ports.ErrPositionNotFound
		case -4047: // Exceeded max position at current leverage
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Connect verifies API reachability and synchronizes the request clock with
// the server, which signed futures requests require.
func (c *Client) Connect(ctx context.Context) error {
	op := "Connect"
	if err := c.futuresClient.NewPingService().Do(ctx); err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	if _, err := c.futuresClient.NewSetServerTimeService().Do(ctx); err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful")
	return nil
}

// Disconnect releases adapter resources. The REST client holds none.
func (c *Client) Disconnect(ctx context.Context) error {
	c.logger.Debug(ctx, "Disconnect: nothing to release")
	return nil
}

// GetBalance retrieves the futures wallet balance for a specific asset.
func (c *Client) GetBalance(ctx context.Context, currency string) (*ports.Balance, error) {
	op := "GetBalance"
	account, err := c.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	for _, asset := range account.Assets {
		if asset.Asset != currency {
			continue
		}
		total, err := strconv.ParseFloat(asset.WalletBalance, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse balance '%s' for asset %s: %w", asset.WalletBalance, currency, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		free, err := strconv.ParseFloat(asset.AvailableBalance, 64)
		if err != nil {
			parseErr := fmt.Errorf("could not parse available balance '%s' for asset %s: %w", asset.AvailableBalance, currency, err)
			return nil, c.handleError(ctx, parseErr, op)
		}
		return &ports.Balance{
			Currency: currency,
			Free:     free,
			Used:     total - free,
			Total:    total,
		}, nil
	}

	err = fmt.Errorf("asset %s not found in account balance", currency)
	return nil, c.handleError(ctx, err, op)
}

// CreateOrder submits the order and returns it with the exchange-assigned ID
// and initial status populated.
func (c *Client) CreateOrder(ctx context.Context, order *domain.ExchangeOrder) (*domain.ExchangeOrder, error) {
	op := "CreateOrder"

	clientID := order.ClientID
	if clientID == "" {
		clientID = uuid.NewString()
	}

	svc := c.futuresClient.NewCreateOrderService().
		Symbol(order.Symbol).
		Side(futures.SideType(order.Side)).
		Quantity(c.formatQuantity(order.Quantity)).
		NewClientOrderID(clientID)

	switch order.Type {
	case domain.OrderTypeMarket:
		svc.Type(futures.OrderTypeMarket)
	case domain.OrderTypeLimit:
		svc.Type(futures.OrderTypeLimit).
			Price(c.formatPrice(order.Price)).
			TimeInForce(futures.TimeInForceTypeGTC)
	case domain.OrderTypeStopLoss:
		svc.Type(futures.OrderTypeStopMarket).
			StopPrice(c.formatPrice(order.StopPrice))
	case domain.OrderTypeTakeProfit:
		svc.Type(futures.OrderTypeTakeProfitMarket).
			StopPrice(c.formatPrice(order.StopPrice))
	default:
		return nil, fmt.Errorf("%s: unsupported order type %q: %w", op, order.Type, ports.ErrInvalidRequest)
	}
	if order.ReduceOnly {
		svc.ReduceOnly(true)
	}

	res, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	placed := *order
	placed.ID = strconv.FormatInt(res.OrderID, 10)
	placed.ClientID = res.ClientOrderID
	placed.Status = translateStatus(res.Status)
	placed.FilledQuantity, _ = strconv.ParseFloat(res.ExecutedQuantity, 64)
	placed.AvgPrice, _ = strconv.ParseFloat(res.AvgPrice, 64)
	placed.UpdatedAt = time.UnixMilli(res.UpdateTime)

	c.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":   order.Symbol,
		"type":     order.Type,
		"side":     order.Side,
		"quantity": order.Quantity,
		"orderID":  placed.ID,
		"status":   placed.Status,
	})
	return &placed, nil
}

// CancelOrder cancels an open order.
func (c *Client) CancelOrder(ctx context.Context, symbol, orderID string) error {
	op := "CancelOrder"
	id, err := parseOrderID(orderID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	_, err = c.futuresClient.NewCancelOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	return nil
}

// GetOrderStatus queries an order. An order the exchange does not know yields
// (nil, nil): filled, cancelled and expired orders are eventually purged from
// the venue's lookup, so absence is an expected outcome.
func (c *Client) GetOrderStatus(ctx context.Context, symbol, orderID string) (*domain.ExchangeOrder, error) {
	op := "GetOrderStatus"
	id, err := parseOrderID(orderID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := c.futuresClient.NewGetOrderService().
		Symbol(symbol).
		OrderID(id).
		Do(ctx)
	if err != nil {
		handled := c.handleError(ctx, err, op)
		if errors.Is(handled, ports.ErrOrderNotFound) {
			c.logger.Debug(ctx, op+": order not found on exchange", map[string]interface{}{"symbol": symbol, "orderID": orderID})
			return nil, nil
		}
		return nil, handled
	}

	order := &domain.ExchangeOrder{
		Symbol:     res.Symbol,
		Side:       domain.OrderSide(res.Side),
		Quantity:   parseFloat(res.OrigQuantity),
		Price:      parseFloat(res.Price),
		StopPrice:  parseFloat(res.StopPrice),
		ReduceOnly: res.ReduceOnly,
		ID:         strconv.FormatInt(res.OrderID, 10),
		ClientID:   res.ClientOrderID,
		Status:     translateStatus(res.Status),
		UpdatedAt:  time.UnixMilli(res.UpdateTime),
	}
	order.FilledQuantity = parseFloat(res.ExecutedQuantity)
	order.AvgPrice = parseFloat(res.AvgPrice)
	return order, nil
}

// GetPositions returns the open positions, optionally filtered by symbol.
// Entries with a zero position amount are filtered out.
func (c *Client) GetPositions(ctx context.Context, symbol string) ([]*domain.Position, error) {
	op := "GetPositions"
	svc := c.futuresClient.NewGetPositionRiskService()
	if symbol != "" {
		svc.Symbol(symbol)
	}
	risks, err := svc.Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	positions := make([]*domain.Position, 0, len(risks))
	for _, risk := range risks {
		amount := parseFloat(risk.PositionAmt)
		if amount == 0 {
			continue
		}
		side := domain.SideLong
		if amount < 0 {
			side = domain.SideShort
			amount = -amount
		}
		leverage, _ := strconv.Atoi(risk.Leverage)
		positions = append(positions, &domain.Position{
			Symbol:        risk.Symbol,
			Side:          side,
			Size:          amount,
			EntryPrice:    parseFloat(risk.EntryPrice),
			CurrentPrice:  parseFloat(risk.MarkPrice),
			UnrealizedPnL: parseFloat(risk.UnRealizedProfit),
			Leverage:      leverage,
			UpdatedAt:     time.Now().UTC(),
		})
	}
	return positions, nil
}

// GetTicker retrieves the last traded price for a symbol.
func (c *Client) GetTicker(ctx context.Context, symbol string) (float64, error) {
	op := "GetTicker"
	tickers, err := c.futuresClient.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return 0, c.handleError(ctx, err, op)
	}
	if len(tickers) == 0 {
		err := fmt.Errorf("no ticker data returned for symbol %s: %w", symbol, ports.ErrUnknownSymbol)
		return 0, c.handleError(ctx, err, op)
	}

	price, err := strconv.ParseFloat(tickers[0].LastPrice, 64)
	if err != nil {
		parseErr := fmt.Errorf("could not parse price '%s': %w", tickers[0].LastPrice, err)
		return 0, c.handleError(ctx, parseErr, op)
	}
	return price, nil
}

// FormatSymbol converts a base coin into the Binance futures symbol.
func (c *Client) FormatSymbol(coin string) string {
	symbol := strings.ToUpper(strings.TrimSpace(coin))
	if strings.HasSuffix(symbol, c.quoteCurrency) {
		return symbol
	}
	return symbol + c.quoteCurrency
}

// SetLeverage sets the leverage for a specific symbol.
func (c *Client) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	op := "SetLeverage"
	_, err := c.futuresClient.NewChangeLeverageService().
		Symbol(symbol).
		Leverage(leverage).
		Do(ctx)
	if err != nil {
		return c.handleError(ctx, err, op)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "leverage": leverage})
	return nil
}

// ReplaceStopLoss cancels the identified stop order and submits a new
// stop-market for the remaining quantity. Binance futures has no atomic
// modify, so the sequence is cancel-then-create; a stop that was already
// gone (filled or purged) does not block the new placement.
func (c *Client) ReplaceStopLoss(ctx context.Context, symbol, oldOrderID string, side domain.OrderSide, quantity, stopPrice float64) (*domain.ExchangeOrder, error) {
	op := "ReplaceStopLoss"

	if oldOrderID != "" {
		if err := c.CancelOrder(ctx, symbol, oldOrderID); err != nil && !errors.Is(err, ports.ErrOrderNotFound) {
			return nil, fmt.Errorf("%s: cancel of %s failed: %w", op, oldOrderID, err)
		}
	}

	newOrder, err := c.CreateOrder(ctx, &domain.ExchangeOrder{
		Symbol:     symbol,
		Side:       side,
		Type:       domain.OrderTypeStopLoss,
		Quantity:   quantity,
		StopPrice:  stopPrice,
		ReduceOnly: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: new stop placement failed: %w", op, err)
	}
	c.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "oldOrderID": oldOrderID, "newOrderID": newOrder.ID, "stopPrice": stopPrice})
	return newOrder, nil
}

// --- Translation helpers ---

func (c *Client) formatQuantity(quantity float64) string {
	// Round down so a rounded quantity can never exceed the intended size.
	return decimal.NewFromFloat(quantity).RoundDown(c.quantityPrecision).String()
}

func (c *Client) formatPrice(price float64) string {
	return decimal.NewFromFloat(price).Round(c.pricePrecision).String()
}

func parseOrderID(orderID string) (int64, error) {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid order ID %q: %w", orderID, ports.ErrInvalidRequest)
	}
	return id, nil
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}

func translateStatus(status futures.OrderStatusType) domain.OrderStatus {
	switch status {
	case futures.OrderStatusTypeNew:
		return domain.OrderStatusOpen
	case futures.OrderStatusTypePartiallyFilled:
		return domain.OrderStatusPartiallyFilled
	case futures.OrderStatusTypeFilled:
		return domain.OrderStatusFilled
	case futures.OrderStatusTypeCanceled, futures.OrderStatusTypeExpired:
		return domain.OrderStatusCancelled
	case futures.OrderStatusTypeRejected:
		return domain.OrderStatusRejected
	default:
		return domain.OrderStatusPending
	}
}
