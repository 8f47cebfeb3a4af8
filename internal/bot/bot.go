// Package bot is the Telegram transport: it turns updates into UserActions,
// routes them to the domain services, and renders the results.
package bot

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"velorent/internal/domain"
	"velorent/internal/fleet"
	"velorent/internal/i18n"
	"velorent/internal/identity"
	"velorent/internal/registration"
	"velorent/internal/rental"
	"velorent/internal/settings"
	"velorent/internal/verification"
	"velorent/pkg/platform/sentinel"
)

// Bot wires Telegram updates to the domain services.
type Bot struct {
	api      *tgbotapi.BotAPI
	flow     *registration.Flow
	staging  registration.StagingStore
	users    identity.UserStore
	review   *verification.Service
	fleet    *fleet.Service
	rentals  *rental.Service
	settings *settings.Service
	tr       *i18n.Translator
	isAdmin  func(telegramID int64) bool
	logger   *slog.Logger
}

type Deps struct {
	API      *tgbotapi.BotAPI
	Flow     *registration.Flow
	Staging  registration.StagingStore
	Users    identity.UserStore
	Review   *verification.Service
	Fleet    *fleet.Service
	Rentals  *rental.Service
	Settings *settings.Service
	Tr       *i18n.Translator
	IsAdmin  func(telegramID int64) bool
	Logger   *slog.Logger
}

func New(deps Deps) *Bot {
	return &Bot{
		api:      deps.API,
		flow:     deps.Flow,
		staging:  deps.Staging,
		users:    deps.Users,
		review:   deps.Review,
		fleet:    deps.Fleet,
		rentals:  deps.Rentals,
		settings: deps.Settings,
		tr:       deps.Tr,
		isAdmin:  deps.IsAdmin,
		logger:   deps.Logger,
	}
}

// Run consumes the long-polling update channel until the context is
// cancelled. Updates are handled serially: Telegram delivers one chat's
// messages in order and the registration flow depends on that order.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("bot started", "username", b.api.Self.UserName)
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.dispatch(ctx, update)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		action := newButtonPress(b.api, update.CallbackQuery)
		action.Ack()
		b.handleWith(ctx, action, func() error { return b.handleButton(ctx, action) })
	case update.Message != nil && update.Message.From != nil:
		action := newTextMessage(b.api, update.Message)
		b.handleWith(ctx, action, func() error { return b.handleMessage(ctx, action) })
	}
}

// handleWith funnels every handler through one error path.
func (b *Bot) handleWith(ctx context.Context, action UserAction, fn func() error) {
	if err := fn(); err != nil {
		b.logger.Error("update handling failed",
			"telegram_id", action.TelegramID(), "error", err)
		lang, _ := b.identify(ctx, action)
		_ = action.Respond(b.tr.T(lang, "errors.internal"), nil)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *TextMessage) error {
	if msg.msg.IsCommand() {
		return b.handleCommand(ctx, msg)
	}

	lang, user := b.identify(ctx, msg)
	if blocked, err := b.maintenanceGate(ctx, msg, lang, user); err != nil || blocked {
		return err
	}

	if ref := msg.PhotoRef(); ref != "" {
		outcome, err := b.flow.HandlePhoto(ctx, sender(msg), ref)
		if err != nil {
			return err
		}
		return b.render(ctx, msg, lang, outcome)
	}

	if phone := msg.ContactPhone(); phone != "" {
		outcome, err := b.flow.HandleContact(ctx, sender(msg), phone)
		if err != nil {
			return err
		}
		return b.render(ctx, msg, lang, outcome)
	}

	if user != nil {
		if key, ok := b.menuKey(user.Language, msg.Text()); ok {
			return b.handleMenu(ctx, msg, user, key)
		}
	}

	outcome, err := b.flow.HandleText(ctx, sender(msg), msg.Text())
	if err != nil {
		return err
	}
	return b.render(ctx, msg, lang, outcome)
}

func (b *Bot) handleCommand(ctx context.Context, msg *TextMessage) error {
	lang, user := b.identify(ctx, msg)

	switch msg.msg.Command() {
	case "start":
		if blocked, err := b.maintenanceGate(ctx, msg, lang, user); err != nil || blocked {
			return err
		}
		outcome, err := b.flow.Start(ctx, sender(msg))
		if err != nil {
			return err
		}
		return b.render(ctx, msg, lang, outcome)
	case "admin":
		return b.handleAdminPanel(ctx, msg, user)
	case "help":
		return b.showHelp(ctx, msg, lang)
	default:
		return nil
	}
}

func (b *Bot) handleButton(ctx context.Context, press *ButtonPress) error {
	lang, user := b.identify(ctx, press)
	data := press.Data()

	switch {
	case strings.HasPrefix(data, cbLang):
		chosen := strings.TrimPrefix(data, cbLang)
		outcome, err := b.flow.HandleLanguage(ctx, sender(press), chosen)
		if err != nil {
			return err
		}
		return b.render(ctx, press, chosen, outcome)
	case strings.HasPrefix(data, cbDoc):
		docType := domain.DocumentType(strings.TrimPrefix(data, cbDoc))
		outcome, err := b.flow.HandleDocumentChoice(ctx, sender(press), docType)
		if err != nil {
			return err
		}
		return b.render(ctx, press, lang, outcome)
	case strings.HasPrefix(data, cbBike):
		return b.handleBikeChosen(ctx, press, lang, data)
	case strings.HasPrefix(data, cbTariff):
		return b.handleTariffChosen(ctx, press, user, lang, data)
	case strings.HasPrefix(data, cbUser):
		return b.handleReviewUser(ctx, press, user, data)
	case strings.HasPrefix(data, cbReview):
		return b.handleReviewDecision(ctx, press, user, data)
	default:
		return nil
	}
}

// identify resolves the durable user, if any, and the language to render in.
// Before registration the language comes from staging; the ultimate fallback
// is Russian.
func (b *Bot) identify(ctx context.Context, action UserAction) (string, *domain.User) {
	user, err := b.users.ByTelegramID(ctx, action.TelegramID())
	if err == nil {
		return user.Language, user
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		b.logger.Warn("user lookup failed", "telegram_id", action.TelegramID(), "error", err)
	}

	if staged, err := b.staging.Get(ctx, action.TelegramID()); err == nil && staged.Language != "" {
		return staged.Language, nil
	}
	return "ru", nil
}

// maintenanceGate blocks clients while maintenance mode is on. Staff pass.
func (b *Bot) maintenanceGate(ctx context.Context, action UserAction, lang string, user *domain.User) (bool, error) {
	if user != nil && user.IsStaff() {
		return false, nil
	}
	if b.isAdmin(action.TelegramID()) {
		return false, nil
	}
	banner, err := b.settings.MaintenanceMessage(ctx)
	if err != nil {
		// Settings being down should not take the bot down with it.
		b.logger.Warn("maintenance check failed", "error", err)
		return false, nil
	}
	if banner == "" {
		return false, nil
	}
	return true, action.Respond(b.tr.T(lang, "errors.maintenance", banner), nil)
}

// render sends every prompt of a flow outcome, translated and with the
// keyboard the flow asked for.
func (b *Bot) render(ctx context.Context, action UserAction, lang string, outcome registration.Outcome) error {
	if outcome.User != nil {
		lang = outcome.User.Language
	}
	for _, p := range outcome.Prompts {
		text := b.tr.T(lang, p.Key, p.Args...)
		var markup any
		switch p.Reply {
		case registration.ReplyLanguages:
			markup = languageKeyboard()
		case registration.ReplyPhoneRequest:
			markup = phoneKeyboard(b.tr, lang)
		case registration.ReplyDocumentChoice:
			markup = documentKeyboard()
		case registration.ReplyMainMenu:
			markup = mainMenuKeyboard(b.tr, lang)
		}
		if err := action.Respond(text, markup); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) menuKey(lang, text string) (string, bool) {
	for _, key := range menuKeys {
		if b.tr.T(lang, key) == text {
			return key, true
		}
	}
	return "", false
}

func sender(action UserAction) registration.Sender {
	return registration.Sender{TelegramID: action.TelegramID(), Username: action.Username()}
}
