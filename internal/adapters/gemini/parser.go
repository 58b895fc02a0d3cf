// Package gemini implements ports.SignalParser against the Google Gemini
// generateContent REST API. The model receives the raw channel message and
// returns a strict JSON object describing the signal, or flags the message
// as chatter.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"watchcaller/internal/domain"
	"watchcaller/internal/ports"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultModel   = "gemini-2.0-flash"
	defaultTimeout = 30 * time.Second
)

const systemPrompt = `You extract cryptocurrency futures trading signals from chat messages.
Respond with a single JSON object and nothing else:
{
  "is_signal": bool,
  "coin": "BTC",
  "side": "long" | "short",
  "entry": number (0 if market entry),
  "stop_loss": number,
  "take_profits": [numbers, ordered],
  "tp_weights": [percentages summing to 100, or empty to use defaults],
  "order_type": "MARKET" | "LIMIT",
  "confidence": number in [0,1]
}
If the message is not a trade signal, respond {"is_signal": false}.`

// Config holds configuration for the Gemini parser adapter.
type Config struct {
	APIKey  string
	Model   string        // Defaults to gemini-2.0-flash
	BaseURL string        // Overridable for tests
	Timeout time.Duration // Per-request HTTP timeout
	Logger  ports.Logger
}

// Parser implements ports.SignalParser.
type Parser struct {
	apiKey     string
	model      string
	baseURL    string
	logger     ports.Logger
	httpClient *http.Client
}

// New creates a Gemini parser adapter.
func New(cfg Config) (*Parser, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Gemini parser")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required for Gemini parser")
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Parser{
		apiKey:     cfg.APIKey,
		model:      model,
		baseURL:    baseURL,
		logger:     cfg.Logger,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// generateContent request/response wire types, limited to the fields used.

type generateRequest struct {
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	Contents          []content        `json:"contents"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// signalPayload is the JSON contract the model is prompted to produce.
type signalPayload struct {
	IsSignal    bool      `json:"is_signal"`
	Coin        string    `json:"coin"`
	Side        string    `json:"side"`
	Entry       float64   `json:"entry"`
	StopLoss    float64   `json:"stop_loss"`
	TakeProfits []float64 `json:"take_profits"`
	TPWeights   []float64 `json:"tp_weights"`
	OrderType   string    `json:"order_type"`
	Confidence  float64   `json:"confidence"`
}

// Parse sends the message to the model and maps the reply to a ParseResult.
// Infrastructure failures (network, HTTP, quota) return an error; a reply the
// adapter cannot interpret returns a ParseFailed result instead, since the
// message itself may simply be garbage.
func (p *Parser) Parse(ctx context.Context, text, source string) (*ports.ParseResult, error) {
	op := "Parse"
	started := time.Now()

	reqBody := generateRequest{
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
		Contents: []content{{
			Role:  "user",
			Parts: []part{{Text: fmt.Sprintf("Source: %s\nMessage:\n%s", source, text)}},
		}},
		GenerationConfig: generationConfig{Temperature: 0, ResponseMimeType: "application/json"},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("%s: encode request: %w", op, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.baseURL, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		p.logger.Error(ctx, err, op+": request failed", map[string]interface{}{"model": p.model})
		return nil, fmt.Errorf("%s: %w: %w", op, ports.ErrParserUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w: %w", op, ports.ErrParserUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("%s: %w: HTTP 429", op, ports.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		p.logger.Error(ctx, fmt.Errorf("HTTP %d", resp.StatusCode), op+": non-OK response", map[string]interface{}{"status": resp.StatusCode, "body": truncate(string(body), 500)})
		return nil, fmt.Errorf("%s: %w: HTTP %d", op, ports.ErrParserUnavailable, resp.StatusCode)
	}

	var genResp generateResponse
	if err := json.Unmarshal(body, &genResp); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w: %w", op, ports.ErrParserUnavailable, err)
	}
	if genResp.Error != nil {
		return nil, fmt.Errorf("%s: %w: API error %d: %s", op, ports.ErrParserUnavailable, genResp.Error.Code, genResp.Error.Message)
	}
	if len(genResp.Candidates) == 0 || len(genResp.Candidates[0].Content.Parts) == 0 {
		return &ports.ParseResult{
			Status:         ports.ParseFailed,
			ErrorMessage:   "model returned no candidates",
			ProcessingTime: time.Since(started),
			RawResponse:    truncate(string(body), 2000),
		}, nil
	}

	raw := genResp.Candidates[0].Content.Parts[0].Text
	result := p.interpret(ctx, raw, text)
	result.ProcessingTime = time.Since(started)
	result.RawResponse = truncate(raw, 2000)
	return result, nil
}

// interpret maps the model's JSON reply to a ParseResult.
func (p *Parser) interpret(ctx context.Context, raw, original string) *ports.ParseResult {
	op := "interpret"

	var payload signalPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		p.logger.Warn(ctx, op+": model reply is not valid JSON", map[string]interface{}{"error": err.Error(), "reply": truncate(raw, 500)})
		return &ports.ParseResult{
			Status:       ports.ParseFailed,
			ErrorMessage: fmt.Sprintf("invalid model reply: %v", err),
		}
	}

	if !payload.IsSignal {
		return &ports.ParseResult{Status: ports.ParseNoSignal, Confidence: payload.Confidence}
	}

	orderType := domain.OrderTypeLimit
	if strings.EqualFold(payload.OrderType, string(domain.OrderTypeMarket)) {
		orderType = domain.OrderTypeMarket
	}

	sig := &domain.TradingSignal{
		Coin:        strings.ToUpper(strings.TrimSpace(payload.Coin)),
		Side:        translateSide(payload.Side),
		Entry:       payload.Entry,
		StopLoss:    payload.StopLoss,
		TakeProfits: payload.TakeProfits,
		TPWeights:   payload.TPWeights,
		OrderType:   orderType,
		Confidence:  payload.Confidence,
		RawMessage:  original,
		Timestamp:   time.Now().UTC(),
	}
	return &ports.ParseResult{
		Status:     ports.ParseSuccess,
		Signal:     sig,
		Confidence: payload.Confidence,
	}
}

// extractJSON strips markdown code fences models sometimes wrap JSON in
// despite the response MIME type.
func extractJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func translateSide(side string) domain.SignalSide {
	switch strings.ToLower(strings.TrimSpace(side)) {
	case "long", "buy":
		return domain.SideLong
	case "short", "sell":
		return domain.SideShort
	default:
		return domain.SideUnknown
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
