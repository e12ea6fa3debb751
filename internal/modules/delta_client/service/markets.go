package service

import (
	"context"
	"net/http"
	"strings"

	"trade_bot/internal/models"
)

// LoadMarkets кэшируется на MarketTTL, reload обходит кэш.
func (c *Client) LoadMarkets(ctx context.Context, reload bool) ([]models.Market, error) {
	c.mu.Lock()
	if !reload && c.markets != nil && c.cfg.MarketTTL > 0 && c.now().Sub(c.marketsAt) < c.cfg.MarketTTL {
		out := c.markets
		c.mu.Unlock()
		return out, nil
	}
	c.mu.Unlock()

	var raw []wireProduct
	if err := c.do(ctx, call{
		op:     "load_markets",
		client: c.pub,
		method: http.MethodGet,
		path:   "/v2/products",
	}, &raw); err != nil {
		return nil, err
	}

	markets := make([]models.Market, 0, len(raw))
	for _, p := range raw {
		markets = append(markets, models.Market{
			ProductID:     p.ID,
			Symbol:        p.Symbol,
			TickSize:      p.TickSize.V,
			ContractValue: p.ContractValue.V,
		})
	}

	c.mu.Lock()
	c.markets = markets
	c.marketsAt = c.now()
	c.mu.Unlock()
	return markets, nil
}

// Market ищет инструмент, при ошибке /products падаем на сконфигурированный product_id.
func (c *Client) Market(ctx context.Context, symbol string) (models.Market, error) {
	markets, err := c.LoadMarkets(ctx, false)
	if err == nil {
		for _, m := range markets {
			if strings.EqualFold(m.Symbol, symbol) {
				return m, nil
			}
		}
	}
	if strings.EqualFold(symbol, c.cfg.Symbol) && c.cfg.ProductID > 0 {
		return models.Market{ProductID: c.cfg.ProductID, Symbol: c.cfg.Symbol}, nil
	}
	if err != nil {
		return models.Market{}, err
	}
	return models.Market{}, ErrNotFound
}

func (c *Client) FetchBalance(ctx context.Context) ([]models.Balance, error) {
	var raw []wireBalance
	if err := c.do(ctx, call{
		op:     "fetch_balance",
		client: c.priv,
		method: http.MethodGet,
		path:   "/v2/wallet/balances",
	}, &raw); err != nil {
		return nil, err
	}
	out := make([]models.Balance, 0, len(raw))
	for _, b := range raw {
		out = append(out, models.Balance{
			Asset:     b.AssetSymbol,
			Available: b.AvailableBalance.V,
			Total:     b.Balance.V,
		})
	}
	return out, nil
}
