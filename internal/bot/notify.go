package bot

import (
	"log"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Сообщения пользователям отправляются по принципу "best effort": сбой
// доставки логируется и не откатывает уже применённое изменение.

func (b *BotService) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.botAPI.Send(msg); err != nil {
		log.Printf("send to %d failed: %v", chatID, err)
	}
}

func (b *BotService) sendWithKeyboard(chatID int64, text string, keyboard interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboard
	if _, err := b.botAPI.Send(msg); err != nil {
		log.Printf("send to %d failed: %v", chatID, err)
	}
}

// sendPrompt sends a form question with the cancel button attached.
func (b *BotService) sendPrompt(chatID int64, text string) {
	b.sendWithKeyboard(chatID, text, CancelKeyboard())
}

func (b *BotService) sendMenu(chatID int64, text, role string) {
	b.sendWithKeyboard(chatID, text, MainMenu(role))
}

func (b *BotService) sendPhoto(chatID int64, path, caption string) {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
	photo.Caption = caption
	if _, err := b.botAPI.Send(photo); err != nil {
		log.Printf("send photo to %d failed: %v", chatID, err)
	}
}

func (b *BotService) sendDocument(chatID int64, path string) {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FilePath(path))
	if _, err := b.botAPI.Send(doc); err != nil {
		log.Printf("send document to %d failed: %v", chatID, err)
	}
}

// notifyAdmins fans a message out to every stored admin and every
// configured chief admin.
func (b *BotService) notifyAdmins(text string) {
	ids, err := b.users.AdminTelegramIDs()
	if err != nil {
		log.Printf("notifyAdmins: %v", err)
		return
	}

	for _, id := range ids {
		b.send(id, text)
	}
}

func (b *BotService) notifyAdminsWithKeyboard(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	ids, err := b.users.AdminTelegramIDs()
	if err != nil {
		log.Printf("notifyAdmins: %v", err)
		return
	}

	for _, id := range ids {
		b.sendWithKeyboard(id, text, keyboard)
	}
}

// notifyChiefAdmins targets only the configured chief-admin allow-list.
func (b *BotService) notifyChiefAdmins(text string, keyboard tgbotapi.InlineKeyboardMarkup) {
	for _, id := range b.chiefAdminIDs {
		b.sendWithKeyboard(id, text, keyboard)
	}
}

func (b *BotService) answerCallback(callbackID string) {
	if _, err := b.botAPI.Request(tgbotapi.NewCallback(callbackID, "")); err != nil {
		log.Printf("answer callback failed: %v", err)
	}
}
