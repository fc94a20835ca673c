package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// RateSnapshot is an immutable view of the external rate table.
// A snapshot is only ever replaced as a whole; readers never observe
// partial updates. Generation is non-decreasing across the process
// lifetime and does not advance on failed refreshes.
type RateSnapshot struct {
	Base       string
	Quotes     map[string]decimal.Decimal
	FetchedAt  time.Time
	Generation uint64
}

// NewRateSnapshot builds a snapshot from a quote table keyed by currency
// code, expressed relative to the base currency.
func NewRateSnapshot(base string, quotes map[string]decimal.Decimal, fetchedAt time.Time, generation uint64) *RateSnapshot {
	copied := make(map[string]decimal.Decimal, len(quotes))
	for code, rate := range quotes {
		copied[code] = rate
	}
	return &RateSnapshot{
		Base:       base,
		Quotes:     copied,
		FetchedAt:  fetchedAt,
		Generation: generation,
	}
}

// Rate returns the conversion rate from one currency to another,
// deriving cross rates through the base currency. The second return
// value is false when either side is not quoted.
func (s *RateSnapshot) Rate(from, to string) (decimal.Decimal, bool) {
	if s == nil {
		return decimal.Zero, false
	}
	if from == to {
		return decimal.NewFromInt(1), true
	}

	fromRate, ok := s.quote(from)
	if !ok || fromRate.IsZero() {
		return decimal.Zero, false
	}
	toRate, ok := s.quote(to)
	if !ok {
		return decimal.Zero, false
	}
	return toRate.Div(fromRate), true
}

// Convert applies the from→to rate to an amount
func (s *RateSnapshot) Convert(amount decimal.Decimal, from, to string) (decimal.Decimal, bool) {
	rate, ok := s.Rate(from, to)
	if !ok {
		return decimal.Zero, false
	}
	return amount.Mul(rate), true
}

// Age returns how long ago the snapshot was fetched
func (s *RateSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

func (s *RateSnapshot) quote(code string) (decimal.Decimal, bool) {
	if code == s.Base {
		return decimal.NewFromInt(1), true
	}
	rate, ok := s.Quotes[code]
	return rate, ok
}
