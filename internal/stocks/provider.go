package stocks

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/advisorhub/backoffice/internal/models"
)

// Provider quotes a current price per instrument symbol.
type Provider interface {
	Price(ctx context.Context, symbol string) (decimal.Decimal, error)
}

// StubProvider is the deterministic stand-in for a real market-data feed.
// A symbol always quotes the same price so valuations are reproducible in
// tests and demos. Overrides win when present.
type StubProvider struct {
	Overrides map[string]decimal.Decimal
}

func NewStubProvider() *StubProvider {
	return &StubProvider{Overrides: make(map[string]decimal.Decimal)}
}

func (p *StubProvider) Price(ctx context.Context, symbol string) (decimal.Decimal, error) {
	sym := strings.ToUpper(strings.TrimSpace(symbol))
	if sym == "" {
		return decimal.Zero, fmt.Errorf("empty symbol")
	}
	if price, ok := p.Overrides[sym]; ok {
		return price, nil
	}
	// stable pseudo-price in the 10.00..509.99 range derived from the symbol
	h := fnv.New32a()
	h.Write([]byte(sym))
	cents := int64(h.Sum32()%50000) + 1000
	return decimal.New(cents, -2), nil
}

// Position is one valued investment line.
type Position struct {
	Investment models.Investment `json:"investment"`
	Price      decimal.Decimal   `json:"price"`
	Value      decimal.Decimal   `json:"value"`
	GainLoss   decimal.Decimal   `json:"gainLoss"`
}

// Valuation is a client's portfolio valued against current quotes.
type Valuation struct {
	Positions []Position      `json:"positions"`
	Total     decimal.Decimal `json:"total"`
}

// Value prices each active investment and totals the portfolio with decimal
// arithmetic; sold or closed positions are skipped.
func Value(ctx context.Context, p Provider, investments []models.Investment) (*Valuation, error) {
	v := &Valuation{Total: decimal.Zero}
	for _, inv := range investments {
		if inv.Status != models.InvestmentActive {
			continue
		}
		price, err := p.Price(ctx, inv.Symbol)
		if err != nil {
			return nil, fmt.Errorf("price %s: %w", inv.Symbol, err)
		}
		qty := decimal.NewFromFloat(inv.Quantity)
		cost := decimal.NewFromFloat(inv.PurchasePrice).Mul(qty)
		value := price.Mul(qty)
		v.Positions = append(v.Positions, Position{
			Investment: inv,
			Price:      price,
			Value:      value,
			GainLoss:   value.Sub(cost),
		})
		v.Total = v.Total.Add(value)
	}
	return v, nil
}
