package service

import (
	"context"
	"fmt"
	"strings"

	"exec_bot/internal/models"
	"exec_bot/pkg/logger"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

type Notifier interface {
	Send(msg string)
	Sendf(format string, args ...any)
	Start(ctx context.Context) error
}

// Reporter: откуда брать данные для команд бота.
type Reporter interface {
	Positions() []models.Position
	OpenOrders() []models.Order
}

// Telegram: пассивный нотифайер + команды /positions и /orders.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	rep    Reporter
}

func NewTelegram(token string, chatID int64) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, errors.Wrap(err, "telegram bot")
	}
	return &Telegram{bot: b, chatID: chatID}, nil
}

// SetReporter вызывается после сборки менеджера ордеров (он сам шлёт уведомления).
func (t *Telegram) SetReporter(r Reporter) { t.rep = r }

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		logger.Warn("[TG] send: %v", err)
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Start: long-polling для сообщений из нашего чата.
func (t *Telegram) Start(ctx context.Context) error {
	if t == nil || t.bot == nil {
		return nil
	}

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		defer t.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case upd := <-updates:
				msg := upd.Message
				if msg == nil || msg.Chat == nil || msg.Chat.ID != t.chatID || !msg.IsCommand() {
					continue
				}
				if reply := t.command(msg.Command()); reply != "" {
					t.Send(reply)
				}
			}
		}
	}()
	return nil
}

func (t *Telegram) command(cmd string) string {
	if t.rep == nil {
		return ""
	}
	switch cmd {
	case "positions":
		return FormatPositions(t.rep.Positions())
	case "orders":
		return FormatOrders(t.rep.OpenOrders())
	default:
		return ""
	}
}

func FormatPositions(positions []models.Position) string {
	if len(positions) == 0 {
		return "📭 Открытых позиций нет"
	}
	var b strings.Builder
	b.WriteString("📊 Позиции:\n")
	for _, p := range positions {
		side := "FLAT"
		switch {
		case p.IsLong():
			side = "LONG"
		case p.IsShort():
			side = "SHORT"
		}
		fmt.Fprintf(&b, "- %s [%s] qty=%s @ %s upnl=%s rpnl=%s\n",
			p.Symbol, side, p.Quantity.Abs(), p.EntryPrice, p.UnrealizedPnL.StringFixed(4), p.RealizedPnL.StringFixed(4))
	}
	return b.String()
}

func FormatOrders(orders []models.Order) string {
	if len(orders) == 0 {
		return "📭 Открытых ордеров нет"
	}
	var b strings.Builder
	b.WriteString("🧾 Открытые ордера:\n")
	for _, o := range orders {
		fmt.Fprintf(&b, "- %s %s %s %s qty=%s filled=%s px=%s [%s]\n",
			o.ID, o.Symbol, o.Side, o.Type, o.Quantity, o.FilledQty, o.Price, o.Status)
	}
	return b.String()
}

// Stdout: всё в лог, когда телеграм не настроен.
type Stdout struct{}

func NewStdout() *Stdout                           { return &Stdout{} }
func (s *Stdout) Send(msg string)                  { logger.Info("[NOTIFY] %s", msg) }
func (s *Stdout) Sendf(format string, args ...any) { s.Send(fmt.Sprintf(format, args...)) }
func (s *Stdout) Start(context.Context) error      { return nil }
