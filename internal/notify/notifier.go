package notify

import (
	"context"
	"fmt"
	"strings"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"trade_bot/internal/models"
	"trade_bot/pkg/logger"
)

type Notifier interface {
	Send(ctx context.Context, msg string)
	Sendf(ctx context.Context, format string, args ...any)
}

// PositionLister отдаёт текущие позиции для команды /positions.
type PositionLister func(ctx context.Context) ([]models.Position, error)

// Telegram пассивный нотифайер + одна команда /positions.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	list   PositionLister
}

func NewTelegram(token string, chatID int64, list PositionLister) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return &Telegram{bot: b, chatID: chatID, list: list}, nil
}

func (t *Telegram) Send(_ context.Context, msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] send: %v", err)
	}
}

func (t *Telegram) Sendf(ctx context.Context, format string, args ...any) {
	t.Send(ctx, fmt.Sprintf(format, args...))
}

func (t *Telegram) handlePositions(ctx context.Context) {
	if t.list == nil {
		return
	}
	positions, err := t.list(ctx)
	if err != nil {
		t.Sendf(ctx, "❗️ Ошибка получения позиций: %v", err)
		return
	}
	t.Send(ctx, FormatPositions(positions))
}

// FormatPositions текст для /positions.
func FormatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}
	var b strings.Builder
	b.WriteString("📊 Открытые позиции:\n")
	for _, p := range positions {
		fmt.Fprintf(&b, "- %s [%s] size=%.4f @ %.1f\n",
			p.Symbol, strings.ToUpper(string(p.Side())), p.AbsSize(), p.EntryPrice)
	}
	return b.String()
}

// Start long-polling, до отмены ctx.
func (t *Telegram) Start(ctx context.Context) {
	if t == nil || t.bot == nil {
		return
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				t.bot.StopReceivingUpdates()
				return
			case upd := <-updates:
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				switch upd.Message.Command() {
				case "positions":
					go t.handlePositions(ctx)
				}
			}
		}
	}()
}

// Log пишет уведомления в лог, когда телеграм не настроен.
type Log struct{}

func NewLog() *Log { return &Log{} }

func (Log) Send(_ context.Context, msg string) { logger.Info("[NOTIFY] %s", msg) }

func (Log) Sendf(_ context.Context, format string, args ...any) {
	logger.Info("[NOTIFY] "+format, args...)
}
