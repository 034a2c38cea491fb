// Package notify delivers expiration alerts to the household.
package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/despensaapp/despensa/internal/store"
)

// Notifier delivers a message about products that are about to expire.
type Notifier interface {
	NotifyExpiring(ctx context.Context, products []store.Product) error
}

// TelegramNotifier sends alerts to a configured chat.
type TelegramNotifier struct {
	api    *tgbotapi.BotAPI
	chatID int64
	logger *zap.Logger
}

// NewTelegramNotifier connects to the Telegram bot API.
func NewTelegramNotifier(token string, chatID int64, logger *zap.Logger) (*TelegramNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	api.Debug = false

	logger.Info("telegram notifier ready", zap.String("account", api.Self.UserName))

	return &TelegramNotifier{api: api, chatID: chatID, logger: logger}, nil
}

// NotifyExpiring sends one message listing every product close to its
// expiration date. Does nothing for an empty list.
func (t *TelegramNotifier) NotifyExpiring(ctx context.Context, products []store.Product) error {
	if len(products) == 0 {
		return nil
	}

	msg := tgbotapi.NewMessage(t.chatID, FormatExpiringMessage(products))
	if _, err := t.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}

	t.logger.Info("expiration alert sent", zap.Int("products", len(products)))
	return nil
}

// FormatExpiringMessage renders the alert text.
func FormatExpiringMessage(products []store.Product) string {
	var sb strings.Builder
	sb.WriteString("⚠️ Produtos perto do vencimento:\n")

	for _, p := range products {
		sb.WriteString(fmt.Sprintf("\n• %s", p.Name))
		if p.ExpirationDate != nil {
			sb.WriteString(fmt.Sprintf(" (vence em %s)", p.ExpirationDate.Format("02/01/2006")))
		}
	}

	return sb.String()
}

// LogNotifier writes alerts to the service log; used when no channel is
// configured.
type LogNotifier struct {
	Logger *zap.Logger
}

func (l *LogNotifier) NotifyExpiring(ctx context.Context, products []store.Product) error {
	if len(products) == 0 {
		return nil
	}

	logger := l.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	for _, p := range products {
		logger.Info("product expiring soon",
			zap.String("name", p.Name),
			zap.Timep("expiration_date", p.ExpirationDate))
	}
	return nil
}
