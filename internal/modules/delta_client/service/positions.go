package service

import (
	"context"
	"net/http"

	"trade_bot/internal/helper"
	"trade_bot/internal/models"
	"trade_bot/pkg/logger"
)

// FetchPositions нормализует позиции в одну форму. Варианты имён полей дальше шлюза не уходят.
// Нераспарсенный entry остаётся нулём: такую позицию пропустит трейлинг, но размер виден всем.
func (c *Client) FetchPositions(ctx context.Context) ([]models.Position, error) {
	var raw []wirePosition
	if err := c.do(ctx, call{
		op:     "fetch_positions",
		client: c.priv,
		method: http.MethodGet,
		path:   "/v2/positions/margined",
	}, &raw); err != nil {
		return nil, err
	}

	out := make([]models.Position, 0, len(raw))
	for _, w := range raw {
		p, ok := normalizePosition(w)
		if !ok {
			logger.Debug("[DELTA] skip position without size: %+v", w)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func normalizePosition(w wirePosition) (models.Position, bool) {
	size := w.Size
	if !size.OK {
		size = w.Contracts
	}
	if !size.OK {
		return models.Position{}, false
	}

	symbol := w.ProductSymbol
	if symbol == "" && w.Info != nil {
		symbol = w.Info.ProductSymbol
	}
	if symbol == "" {
		symbol = w.Symbol
	}

	entry := w.EntryPrice
	if !entry.OK {
		entry = w.EntryPriceAlt
	}
	if !entry.OK && w.Info != nil {
		entry = w.Info.EntryPrice
	}

	p := models.Position{
		ID:         string(w.ID),
		Symbol:     symbol,
		ProductID:  w.ProductID,
		Size:       size.V,
		EntryPrice: entry.V,
	}
	if p.ID == "" {
		p.ID = helper.TrailKey(symbol, string(p.Side()))
	}
	return p, true
}
