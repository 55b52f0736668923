package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/db"
	"github.com/munhub/conference_bot/internal/files"
)

func (b *BotService) startSupportForm(chatID int64) {
	b.states.Set(chatID, StepSupportMessage)
	b.sendPrompt(chatID, "Опишите проблему одним сообщением. К сообщению можно приложить скриншот.")
}

// handleSupportMessage accepts the appeal text, with an optional photo whose
// caption becomes the text. Works for banned users too.
func (b *BotService) handleSupportMessage(user *db.User, message *tgbotapi.Message) {
	chatID := user.TelegramID

	text := strings.TrimSpace(message.Text)

	var screenshotPath *string

	if len(message.Photo) > 0 {
		text = strings.TrimSpace(message.Caption)

		fileID := message.Photo[len(message.Photo)-1].FileID

		path, err := b.files.SavePhoto(fileID, files.KindScreenshot)
		if err != nil {
			log.Printf("handleSupportMessage: %v", err)
			b.sendPrompt(chatID, "Не удалось сохранить скриншот. Отправьте обращение ещё раз.")
			return
		}

		screenshotPath = &path
	}

	if text == "" {
		b.sendPrompt(chatID, "Текст обращения не может быть пустым. Опишите проблему:")
		return
	}

	requestID, err := b.support.Create(user.ID, text, screenshotPath)
	if err != nil {
		log.Printf("handleSupportMessage: %v", err)
		b.send(chatID, "Не удалось отправить обращение. Попробуйте позже.")
		return
	}

	b.states.Clear(chatID)
	b.send(chatID, "Обращение отправлено. Тех. специалист ответит вам здесь.")

	notice := fmt.Sprintf("Новое обращение %d от %s:\n%s", requestID, user.DisplayName(), text)
	keyboard := supportAnswerKeyboard(requestID)

	b.sendWithKeyboard(b.techLeadID, notice, keyboard)
	if screenshotPath != nil {
		b.sendPhoto(b.techLeadID, *screenshotPath, fmt.Sprintf("Скриншот к обращению %d", requestID))
	}
}

func (b *BotService) showSupportQueue(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapViewSupportQueue) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	requests, err := b.support.GetAll()
	if err != nil {
		log.Printf("showSupportQueue: %v", err)
		b.send(chatID, "Не удалось загрузить очередь обращений.")
		return
	}

	open := 0
	for i := range requests {
		req := &requests[i]

		if req.Status != db.SupportPending {
			continue
		}
		open++

		text := fmt.Sprintf("Обращение %d от %s:\n%s", req.ID, req.DisplayName(), req.Message)

		b.sendWithKeyboard(chatID, text, supportAnswerKeyboard(req.ID))
		if req.ScreenshotPath != nil {
			b.sendPhoto(chatID, *req.ScreenshotPath, fmt.Sprintf("Скриншот к обращению %d", req.ID))
		}
	}

	if open == 0 {
		b.send(chatID, "Открытых обращений нет.")
	}
}

func (b *BotService) startSupportReply(user *db.User, requestID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapViewSupportQueue) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	state := b.states.Set(chatID, StepSupportReply)
	state.RequestID = requestID

	b.sendPrompt(chatID, fmt.Sprintf("Введите ответ на обращение %d:", requestID))
}

func (b *BotService) finishSupportReply(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	response := strings.TrimSpace(text)
	if response == "" {
		b.sendPrompt(chatID, "Ответ не может быть пустым. Введите ответ:")
		return
	}

	requestID := state.RequestID
	b.states.Clear(chatID)

	view, err := b.support.Resolve(requestID, response)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.sendMenu(chatID, "Это обращение уже закрыто.", user.Role)
			return
		}

		log.Printf("finishSupportReply: %v", err)
		b.sendMenu(chatID, "Не удалось ответить на обращение.", user.Role)
		return
	}

	b.sendMenu(chatID, fmt.Sprintf("Обращение %d закрыто.", requestID), user.Role)
	b.send(view.UserTelegramID, "Ответ тех. специалиста:\n"+response)
}

// handleReplySupportCommand is the one-shot command form of the reply flow.
func (b *BotService) handleReplySupportCommand(user *db.User, args string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapViewSupportQueue) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	parts := strings.SplitN(strings.TrimSpace(args), " ", 2)
	if len(parts) < 2 || strings.TrimSpace(parts[1]) == "" {
		b.send(chatID, "Использование: /reply_support <id обращения> <ответ>")
		return
	}

	requestID, err := parseID(parts[0])
	if err != nil {
		b.send(chatID, "ID обращения должен быть числом.")
		return
	}

	state := b.states.Set(chatID, StepSupportReply)
	state.RequestID = requestID

	b.finishSupportReply(user, parts[1])
}

func supportAnswerKeyboard(requestID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Ответить", callbackData("support_answer", requestID)),
		),
	)
}
