package ports

import (
	"context"
	"time"

	"watchcaller/internal/domain"
)

// ParseStatus is the outcome class of a parsing attempt.
type ParseStatus string

const (
	ParseSuccess  ParseStatus = "success"
	ParseFailed   ParseStatus = "failed"
	ParseNoSignal ParseStatus = "no_signal"
)

// ParseResult is the response of the external signal-extraction service.
type ParseResult struct {
	Status         ParseStatus
	Signal         *domain.TradingSignal // nil unless Status == ParseSuccess
	Confidence     float64
	ErrorMessage   string
	ProcessingTime time.Duration
	RawResponse    string
}

// HasSignal reports whether the result carries a usable signal.
func (r *ParseResult) HasSignal() bool {
	return r != nil && r.Status == ParseSuccess && r.Signal != nil
}

// SignalParser extracts a structured trading signal from free-form message
// text. It is an external black box; transient failures surface as
// ParseFailed results, infrastructure errors as a non-nil error.
type SignalParser interface {
	Parse(ctx context.Context, text, source string) (*ParseResult, error)
}
