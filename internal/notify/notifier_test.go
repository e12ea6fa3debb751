package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"trade_bot/internal/models"
	"trade_bot/pkg/logger"
)

func TestFormatPositions(t *testing.T) {
	assert.Equal(t, "📭 Открытых позиций нет", FormatPositions(nil))

	out := FormatPositions([]models.Position{
		{Symbol: "BTCUSD", Size: -2, EntryPrice: 50000},
	})
	assert.Contains(t, out, "BTCUSD [SHORT] size=2.0000 @ 50000.0")
}

func TestNilTelegramIsSilent(t *testing.T) {
	var tg *Telegram
	assert.NotPanics(t, func() {
		tg.Send(context.Background(), "x")
		tg.Start(context.Background())
	})
}

func TestLogNotifier(t *testing.T) {
	logger.InitNop()
	var n Notifier = NewLog()
	assert.NotPanics(t, func() { n.Sendf(context.Background(), "closed %s", "a") })
}
