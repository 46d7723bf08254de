package service

import "context"

// PriceProvider supplies the recent price window for one symbol.
// Implemented by the ClickHouse price store and by a static provider when the
// caller supplies prices inline.
type PriceProvider interface {
	RecentPrices(ctx context.Context, symbol string, n int) ([]float64, error)
}

// PriceProviderFunc adapts a function to a PriceProvider.
type PriceProviderFunc func(ctx context.Context, symbol string, n int) ([]float64, error)

func (f PriceProviderFunc) RecentPrices(ctx context.Context, symbol string, n int) ([]float64, error) {
	return f(ctx, symbol, n)
}

// StaticPrices returns a provider that serves the same caller-supplied
// window for every symbol.
func StaticPrices(prices []float64) PriceProvider {
	return PriceProviderFunc(func(context.Context, string, int) ([]float64, error) {
		return prices, nil
	})
}
