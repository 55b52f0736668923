package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/munhub/conference_bot/internal/db"
)

// MainMenu builds the reply keyboard for the user's role.
func MainMenu(role string) tgbotapi.ReplyKeyboardMarkup {
	var rows [][]tgbotapi.KeyboardButton

	rows = append(rows, tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("Обновить меню"),
	))

	switch role {
	case db.RoleOrganizer:
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Мои конференции"),
				tgbotapi.NewKeyboardButton("Заявки участников"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Архив заявок"),
				tgbotapi.NewKeyboardButton("Обращение к тех. специалисту"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Помощь"),
			),
		)

	case db.RoleAdmin:
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Заявки на конференции"),
				tgbotapi.NewKeyboardButton("Статистика"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Все конференции"),
				tgbotapi.NewKeyboardButton("Обращение к тех. специалисту"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Помощь"),
			),
		)

	case db.RoleChiefAdmin:
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Заявки на конференции"),
				tgbotapi.NewKeyboardButton("Посмотреть апелляции"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Все конференции"),
				tgbotapi.NewKeyboardButton("Статистика"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Приостановить бота"),
				tgbotapi.NewKeyboardButton("Возобновить работу бота"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Экспорт данных бота"),
				tgbotapi.NewKeyboardButton("Помощь"),
			),
		)

	case db.RoleChiefTech:
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Очередь обращений"),
				tgbotapi.NewKeyboardButton("Список забаненных"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Все конференции"),
				tgbotapi.NewKeyboardButton("Статистика"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Приостановить бота"),
				tgbotapi.NewKeyboardButton("Возобновить работу бота"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Экспорт данных бота"),
			),
		)

	default: // participant
		rows = append(rows,
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Просмотр конференций"),
				tgbotapi.NewKeyboardButton("Создать конференцию"),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("Обращение к тех. специалисту"),
				tgbotapi.NewKeyboardButton("Помощь"),
			),
		)
	}

	keyboard := tgbotapi.NewReplyKeyboard(rows...)
	keyboard.ResizeKeyboard = true

	return keyboard
}

// CancelKeyboard is attached to every form prompt.
func CancelKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", "cancel_form"),
		),
	)
}

func decisionKeyboard(prefix string, requestID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Одобрить", callbackData(prefix+"_approve", requestID)),
			tgbotapi.NewInlineKeyboardButtonData("Отклонить", callbackData(prefix+"_reject", requestID)),
		),
	)
}

func appealOfferKeyboard(requestID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Подать апелляцию", callbackData("appeal_submit", requestID)),
			tgbotapi.NewInlineKeyboardButtonData("Главное меню", "back_to_menu"),
		),
	)
}
