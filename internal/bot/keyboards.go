package bot

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"velorent/internal/domain"
	"velorent/internal/i18n"
	"velorent/internal/registration"
	"velorent/internal/rental"
)

// Callback data prefixes.
const (
	cbLang   = "lang:"
	cbDoc    = "doc:"
	cbBike   = "bike:"
	cbTariff = "tariff:"
	cbReview = "review:"
	cbUser   = "user:"
)

var menuKeys = []string{"menu.rent", "menu.my_rentals", "menu.extend", "menu.profile", "menu.help"}

// ReservedMenuLabels collects every menu label in every language. The
// registration flow refuses these as a full name so a stray menu tap never
// becomes someone's identity.
func ReservedMenuLabels(tr *i18n.Translator) []string {
	var labels []string
	for _, lang := range registration.SupportedLanguages {
		for _, key := range menuKeys {
			labels = append(labels, tr.T(lang, key))
		}
	}
	return labels
}

func languageKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Русский 🇷🇺", cbLang+"ru"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Тоҷикӣ 🇹🇯", cbLang+"tg"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("O'zbekcha 🇺🇿", cbLang+"uz"),
		),
	)
}

func phoneKeyboard(tr *i18n.Translator, lang string) tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButtonContact("📱 " + tr.T(lang, "registration.share_phone_button")),
		),
	)
	kb.OneTimeKeyboard = true
	return kb
}

func documentKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.DocumentTypeLabels[domain.DocPassport], cbDoc+string(domain.DocPassport)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(domain.DocumentTypeLabels[domain.DocDriverLicense], cbDoc+string(domain.DocDriverLicense)),
		),
	)
}

func mainMenuKeyboard(tr *i18n.Translator, lang string) tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(tr.T(lang, "menu.rent")),
			tgbotapi.NewKeyboardButton(tr.T(lang, "menu.my_rentals")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(tr.T(lang, "menu.extend")),
			tgbotapi.NewKeyboardButton(tr.T(lang, "menu.profile")),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(tr.T(lang, "menu.help")),
		),
	)
}

func bikesKeyboard(bikes []*domain.Bike) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(bikes))
	for _, b := range bikes {
		label := fmt.Sprintf("№%s %s", b.Number, b.Model)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", cbBike, b.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func tariffKeyboard(bikeID int64) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rental.Tariffs))
	for _, t := range rental.Tariffs {
		label := fmt.Sprintf("%s — %s ₽", t.Name, t.Price.StringFixed(0))
		data := fmt.Sprintf("%s%d:%s", cbTariff, bikeID, t.Key)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, data),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func extendTariffKeyboard() tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(rental.Tariffs))
	for _, t := range rental.Tariffs {
		label := fmt.Sprintf("%s — %s ₽", t.Name, t.Price.StringFixed(0))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, cbTariff+"extend:"+t.Key),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func pendingUsersKeyboard(users []*domain.User) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(users))
	for _, u := range users {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(u.FullName, fmt.Sprintf("%s%d", cbUser, u.ID)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func reviewKeyboard(tr *i18n.Translator, lang string, docID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T(lang, "admin.review_approve"),
				fmt.Sprintf("%s%d:%s", cbReview, docID, domain.DocumentApproved)),
			tgbotapi.NewInlineKeyboardButtonData(tr.T(lang, "admin.review_reject"),
				fmt.Sprintf("%s%d:%s", cbReview, docID, domain.DocumentRejected)),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(tr.T(lang, "admin.review_revision"),
				fmt.Sprintf("%s%d:%s", cbReview, docID, domain.DocumentRevision)),
		),
	)
}
