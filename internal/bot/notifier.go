package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"velorent/internal/domain"
	"velorent/internal/i18n"
)

// Notifier pushes service-originated messages to users, rendered in their own
// language. Implements verification.Notifier.
type Notifier struct {
	api *tgbotapi.BotAPI
	tr  *i18n.Translator
}

func NewNotifier(api *tgbotapi.BotAPI, tr *i18n.Translator) *Notifier {
	return &Notifier{api: api, tr: tr}
}

func (n *Notifier) Notify(_ context.Context, user *domain.User, key string, args ...any) error {
	text := n.tr.T(user.Language, key, args...)
	if _, err := n.api.Send(tgbotapi.NewMessage(user.TelegramID, text)); err != nil {
		return fmt.Errorf("notify user %d: %w", user.TelegramID, err)
	}
	return nil
}
