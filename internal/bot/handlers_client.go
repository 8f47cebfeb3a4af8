package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"velorent/internal/domain"
	"velorent/pkg/platform/sentinel"
)

func (b *Bot) handleMenu(ctx context.Context, msg *TextMessage, user *domain.User, key string) error {
	lang := user.Language
	if blocked, err := b.maintenanceGate(ctx, msg, lang, user); err != nil || blocked {
		return err
	}

	switch key {
	case "menu.rent":
		return b.showBikes(ctx, msg, user)
	case "menu.my_rentals":
		return b.showRentals(ctx, msg, user)
	case "menu.extend":
		return b.offerExtension(ctx, msg, user)
	case "menu.profile":
		return b.showProfile(msg, user)
	case "menu.help":
		return b.showHelp(ctx, msg, lang)
	default:
		return nil
	}
}

func (b *Bot) showBikes(ctx context.Context, msg *TextMessage, user *domain.User) error {
	lang := user.Language
	if !user.IsVerified() {
		return msg.Respond(b.tr.T(lang, "rent.not_verified"), nil)
	}

	bikes, err := b.fleet.AvailableBikes(ctx)
	if err != nil {
		return err
	}
	if len(bikes) == 0 {
		return msg.Respond(b.tr.T(lang, "rent.no_bikes"), nil)
	}
	return msg.Respond(b.tr.T(lang, "rent.choose_bike"), bikesKeyboard(bikes))
}

func (b *Bot) showRentals(ctx context.Context, msg *TextMessage, user *domain.User) error {
	rentals, err := b.rentals.History(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(rentals) == 0 {
		return msg.Respond(b.tr.T(user.Language, "rent.no_active"), nil)
	}

	var sb strings.Builder
	for _, r := range rentals {
		fmt.Fprintf(&sb, "%s\n%s — %s\nОплачено: %s / %s ₽\n\n",
			domain.RentalStatusLabels[r.Status],
			r.StartDate.Format("02.01.2006"), r.EndDate.Format("02.01.2006"),
			r.PaidAmount.StringFixed(2), r.TotalAmount.StringFixed(2))
	}
	return msg.Respond(strings.TrimSpace(sb.String()), nil)
}

func (b *Bot) offerExtension(ctx context.Context, msg *TextMessage, user *domain.User) error {
	lang := user.Language
	if _, err := b.rentals.Active(ctx, user.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return msg.Respond(b.tr.T(lang, "rent.no_active"), nil)
		}
		return err
	}
	return msg.Respond(b.tr.T(lang, "rent.choose_tariff"), extendTariffKeyboard())
}

func (b *Bot) showProfile(msg *TextMessage, user *domain.User) error {
	text := b.tr.T(user.Language, "profile.caption",
		user.FullName, user.Phone, domain.UserStatusLabels[user.Status], user.Language)
	return msg.Respond(text, nil)
}

func (b *Bot) showHelp(ctx context.Context, action UserAction, lang string) error {
	st, err := b.settings.Get(ctx)
	if err != nil {
		return err
	}
	text := b.tr.T(lang, "help.text", st.CompanyName, st.Address, st.Phone, st.WorkingHours)
	return action.Respond(text, nil)
}

func (b *Bot) handleBikeChosen(ctx context.Context, press *ButtonPress, lang, data string) error {
	bikeID, err := strconv.ParseInt(strings.TrimPrefix(data, cbBike), 10, 64)
	if err != nil {
		return nil
	}

	bike, _, err := b.fleet.Bike(ctx, bikeID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return press.Respond(b.tr.T(lang, "rent.bike_taken"), nil)
		}
		return err
	}
	if !bike.IsAvailable() {
		return press.Respond(b.tr.T(lang, "rent.bike_taken"), nil)
	}
	return press.Respond(b.tr.T(lang, "rent.choose_tariff"), tariffKeyboard(bike.ID))
}

// handleTariffChosen covers both data shapes: "tariff:<bikeID>:<key>" starts a
// rental, "tariff:extend:<key>" extends the active one.
func (b *Bot) handleTariffChosen(ctx context.Context, press *ButtonPress, user *domain.User, lang, data string) error {
	if user == nil {
		return press.Respond(b.tr.T(lang, "rent.not_verified"), nil)
	}

	parts := strings.SplitN(strings.TrimPrefix(data, cbTariff), ":", 2)
	if len(parts) != 2 {
		return nil
	}

	if parts[0] == "extend" {
		_, intent, err := b.rentals.Extend(ctx, user, parts[1])
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return press.Respond(b.tr.T(lang, "rent.no_active"), nil)
			}
			b.logger.Error("extension payment failed", "user_id", user.ID, "error", err)
			return press.Respond(b.tr.T(lang, "rent.payment_failed"), nil)
		}
		return press.Respond(b.tr.T(lang, "rent.extended_link", intent.PaymentURL), nil)
	}

	bikeID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return nil
	}
	_, intent, err := b.rentals.Start(ctx, user, bikeID, parts[1])
	switch {
	case errors.Is(err, sentinel.ErrInvalidState):
		return press.Respond(b.tr.T(lang, "rent.not_verified"), nil)
	case errors.Is(err, sentinel.ErrConflict):
		return press.Respond(b.tr.T(lang, "rent.bike_taken"), nil)
	case err != nil:
		b.logger.Error("rental payment failed", "user_id", user.ID, "error", err)
		return press.Respond(b.tr.T(lang, "rent.payment_failed"), nil)
	}
	return press.Respond(b.tr.T(lang, "rent.payment_link", intent.PaymentURL), nil)
}
