// Package i18n renders user-facing text by key for the supported interface
// languages. Russian is the complete catalog; Tajik and Uzbek fall back to
// Russian for keys they do not cover.
package i18n

import "fmt"

const fallbackLanguage = "ru"

// Translator resolves message keys against the per-language catalogs.
type Translator struct {
	catalogs map[string]map[string]string
}

func New() *Translator {
	return &Translator{catalogs: map[string]map[string]string{
		"ru": ru,
		"tg": tg,
		"uz": uz,
	}}
}

// T renders one message. Unknown languages fall back to Russian; a key absent
// everywhere renders as the key itself so the gap is visible, not silent.
func (t *Translator) T(language, key string, args ...any) string {
	msg, ok := t.catalogs[language][key]
	if !ok {
		msg, ok = t.catalogs[fallbackLanguage][key]
	}
	if !ok {
		return key
	}
	if len(args) == 0 {
		return msg
	}
	return fmt.Sprintf(msg, args...)
}

var ru = map[string]string{
	"start.welcome_back": "С возвращением, %s! 👋",

	"registration.welcome":                 "Добро пожаловать в VeloRent! 🚴\nДля аренды велосипеда нужно пройти регистрацию.",
	"registration.choose_language":         "Выберите язык:",
	"registration.enter_name":              "Введите ваше ФИО:",
	"registration.name_invalid":            "Имя слишком короткое. Введите ФИО полностью.",
	"registration.share_phone":             "Отправьте ваш номер телефона кнопкой ниже или введите вручную:",
	"registration.share_phone_button":      "Отправить номер",
	"registration.phone_invalid":           "Номер телефона должен содержать минимум 10 цифр. Попробуйте ещё раз.",
	"registration.choose_document":         "Какой документ вы отправите?",
	"registration.document_already_staged": "Документ этой категории уже загружен. Отправьте селфи или дождитесь завершения.",
	"registration.send_passport":           "Отправьте фото паспорта (разворот с фотографией):",
	"registration.send_license":            "Отправьте фото водительского удостоверения:",
	"registration.send_selfie":             "Теперь отправьте селфи с документом в руках:",
	"registration.need_photo_primary":      "Жду фото документа. Отправьте изображение.",
	"registration.need_photo_selfie":       "Жду селфи с документом. Отправьте изображение.",
	"registration.resume":                  "Продолжим регистрацию с того места, где остановились.",
	"registration.primary_received":        "Документ получен ✅",
	"registration.selfie_received":         "Селфи получено ✅",
	"registration.unexpected_photo":        "Сейчас фото не требуется. Используйте меню.",
	"registration.submitted":               "Регистрация завершена! 🎉\nВаши документы отправлены на проверку. Мы сообщим о результате.",
	"registration.retry":                   "Не получилось сохранить заявку. Данные не потерялись, попробуйте отправить последнее фото ещё раз.",

	"verification.document_approved":  "Документ «%s» одобрен ✅\n%s",
	"verification.document_rejected":  "Документ «%s» отклонён ❌\nКомментарий: %s",
	"verification.document_revision":  "Документ «%s» требует доработки 🔄\nКомментарий: %s",
	"verification.account_verified":   "Ваш аккаунт верифицирован! ✅\nТеперь вам доступна аренда велосипедов.",
	"verification.pending_reminder":   "Ваши документы ещё на проверке. Мы сообщим о результате.",
	"verification.rejected_notice":    "К сожалению, верификация не пройдена. Обратитесь в поддержку.",

	"menu.rent":       "🚴 Арендовать",
	"menu.my_rentals": "📋 Мои аренды",
	"menu.extend":     "⏰ Продлить аренду",
	"menu.profile":    "👤 Профиль",
	"menu.help":       "ℹ️ Помощь",

	"rent.choose_bike":    "Выберите велосипед:",
	"rent.no_bikes":       "Свободных велосипедов сейчас нет. Загляните позже.",
	"rent.choose_tariff":  "Выберите тариф:",
	"rent.not_verified":   "Аренда доступна только верифицированным пользователям.",
	"rent.bike_taken":     "Этот велосипед уже заняли. Выберите другой.",
	"rent.payment_link":   "Оплатите аренду по ссылке:\n%s\n\nАренда активируется автоматически после оплаты.",
	"rent.no_active":      "У вас нет активной аренды.",
	"rent.extended_link":  "Оплатите продление по ссылке:\n%s\n\nСрок аренды продлится автоматически после оплаты.",
	"rent.payment_failed": "Не удалось создать платёж. Попробуйте позже.",

	"profile.caption": "👤 %s\nТелефон: %s\nСтатус: %s\nЯзык: %s",

	"help.text": "🚴 %s\n📍 %s\n📞 %s\n🕒 %s",

	"errors.internal":    "Что-то пошло не так. Попробуйте ещё раз.",
	"errors.staff_only":  "Эта команда доступна только сотрудникам.",
	"errors.maintenance": "🔧 %s",

	"admin.pending_users":   "Заявки на проверку (%d):",
	"admin.no_pending":      "Новых заявок нет.",
	"admin.review_approve":  "✅ Одобрить",
	"admin.review_reject":   "❌ Отклонить",
	"admin.review_revision": "🔄 На доработку",
	"admin.review_done":     "Решение сохранено: %s",
	"admin.user_card":       "👤 %s\nТелефон: %s\nTelegram: @%s\nСтатус: %s",
}

var tg = map[string]string{
	"start.welcome_back": "Хуш омадед, %s! 👋",

	"registration.welcome":            "Хуш омадед ба VeloRent! 🚴\nБарои иҷораи велосипед бақайдгирӣ лозим аст.",
	"registration.choose_language":    "Забонро интихоб кунед:",
	"registration.enter_name":         "Ному насаби худро ворид кунед:",
	"registration.name_invalid":       "Ном хеле кӯтоҳ аст. Ному насабро пурра ворид кунед.",
	"registration.share_phone":        "Рақами телефони худро бо тугмаи поён фиристед ё дастӣ ворид кунед:",
	"registration.share_phone_button": "Фиристодани рақам",
	"registration.phone_invalid":      "Рақами телефон бояд ҳадди ақал 10 рақам дошта бошад.",
	"registration.choose_document":    "Кадом ҳуҷҷатро мефиристед?",
	"registration.send_passport":      "Акси шиносномаро фиристед:",
	"registration.send_license":       "Акси шаҳодатномаи ронандагиро фиристед:",
	"registration.send_selfie":        "Акнун селфи бо ҳуҷҷат дар даст фиристед:",
	"registration.submitted":          "Бақайдгирӣ анҷом ёфт! 🎉\nҲуҷҷатҳои шумо ба тафтиш фиристода шуданд.",

	"verification.account_verified": "Аккаунти шумо тасдиқ шуд! ✅\nАкнун иҷораи велосипед дастрас аст.",

	"menu.rent":       "🚴 Иҷора гирифтан",
	"menu.my_rentals": "📋 Иҷораҳои ман",
	"menu.extend":     "⏰ Дароз кардани иҷора",
	"menu.profile":    "👤 Профил",
	"menu.help":       "ℹ️ Кумак",
}

var uz = map[string]string{
	"start.welcome_back": "Xush kelibsiz, %s! 👋",

	"registration.welcome":            "VeloRent'ga xush kelibsiz! 🚴\nVelosiped ijarasi uchun ro'yxatdan o'tish kerak.",
	"registration.choose_language":    "Tilni tanlang:",
	"registration.enter_name":         "To'liq ismingizni kiriting:",
	"registration.name_invalid":       "Ism juda qisqa. To'liq ismingizni kiriting.",
	"registration.share_phone":        "Telefon raqamingizni quyidagi tugma orqali yuboring yoki qo'lda kiriting:",
	"registration.share_phone_button": "Raqamni yuborish",
	"registration.phone_invalid":      "Telefon raqami kamida 10 ta raqamdan iborat bo'lishi kerak.",
	"registration.choose_document":    "Qaysi hujjatni yuborasiz?",
	"registration.send_passport":      "Pasport rasmini yuboring:",
	"registration.send_license":       "Haydovchilik guvohnomasi rasmini yuboring:",
	"registration.send_selfie":        "Endi hujjat bilan selfi yuboring:",
	"registration.submitted":          "Ro'yxatdan o'tish yakunlandi! 🎉\nHujjatlaringiz tekshiruvga yuborildi.",

	"verification.account_verified": "Hisobingiz tasdiqlandi! ✅\nEndi velosiped ijarasi mavjud.",

	"menu.rent":       "🚴 Ijaraga olish",
	"menu.my_rentals": "📋 Mening ijaralarim",
	"menu.extend":     "⏰ Ijarani uzaytirish",
	"menu.profile":    "👤 Profil",
	"menu.help":       "ℹ️ Yordam",
}
