package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// UserAction is one incoming user intent, regardless of whether it arrived as
// a message or an inline button press. Both variants expose the same
// response-sending capability, so handlers never care which one they got.
type UserAction interface {
	TelegramID() int64
	Username() string
	// Respond sends a message back to the originating chat. markup may be nil.
	Respond(text string, markup any) error
}

type responder struct {
	api    *tgbotapi.BotAPI
	chatID int64
}

func (r responder) respond(text string, markup any) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	_, err := r.api.Send(msg)
	return err
}

// TextMessage is a plain message: text, a shared contact, or a photo.
type TextMessage struct {
	responder
	msg *tgbotapi.Message
}

func newTextMessage(api *tgbotapi.BotAPI, msg *tgbotapi.Message) *TextMessage {
	return &TextMessage{responder: responder{api: api, chatID: msg.Chat.ID}, msg: msg}
}

func (t *TextMessage) TelegramID() int64 { return t.msg.From.ID }
func (t *TextMessage) Username() string  { return t.msg.From.UserName }

func (t *TextMessage) Respond(text string, markup any) error {
	return t.respond(text, markup)
}

func (t *TextMessage) Text() string { return t.msg.Text }

// ContactPhone returns the shared contact's phone number, or empty.
func (t *TextMessage) ContactPhone() string {
	if t.msg.Contact == nil {
		return ""
	}
	return t.msg.Contact.PhoneNumber
}

// PhotoRef returns the file id of the largest photo size, or empty.
func (t *TextMessage) PhotoRef() string {
	if len(t.msg.Photo) == 0 {
		return ""
	}
	return t.msg.Photo[len(t.msg.Photo)-1].FileID
}

// ButtonPress is an inline keyboard callback.
type ButtonPress struct {
	responder
	api *tgbotapi.BotAPI
	cb  *tgbotapi.CallbackQuery
}

func newButtonPress(api *tgbotapi.BotAPI, cb *tgbotapi.CallbackQuery) *ButtonPress {
	return &ButtonPress{
		responder: responder{api: api, chatID: cb.Message.Chat.ID},
		api:       api,
		cb:        cb,
	}
}

func (b *ButtonPress) TelegramID() int64 { return b.cb.From.ID }
func (b *ButtonPress) Username() string  { return b.cb.From.UserName }

func (b *ButtonPress) Respond(text string, markup any) error {
	return b.respond(text, markup)
}

func (b *ButtonPress) Data() string { return b.cb.Data }

// Ack stops the client-side loading spinner.
func (b *ButtonPress) Ack() {
	_, _ = b.api.Request(tgbotapi.NewCallback(b.cb.ID, ""))
}
