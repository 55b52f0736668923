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

func (b *BotService) showOwnConferences(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	conferences, err := b.conferences.GetByOrganizer(user.ID)
	if err != nil {
		log.Printf("showOwnConferences: %v", err)
		b.send(chatID, "Не удалось загрузить ваши конференции.")
		return
	}

	if len(conferences) == 0 {
		b.send(chatID, "У вас пока нет конференций.")
		return
	}

	for i := range conferences {
		conf := &conferences[i]

		keyboard := tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Изменить", callbackData("edit_conf", conf.ID)),
				tgbotapi.NewInlineKeyboardButtonData("Рассылка участникам", callbackData("broadcast", conf.ID)),
			),
			tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData("Удалить", callbackData("admin_delete_conf", conf.ID)),
			),
		)

		b.sendWithKeyboard(chatID, formatConference(conf), keyboard)
	}
}

func (b *BotService) showOrganizerApplications(user *db.User, statuses []string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	applications, err := b.applications.GetForOrganizer(user.ID, statuses)
	if err != nil {
		log.Printf("showOrganizerApplications: %v", err)
		b.send(chatID, "Не удалось загрузить заявки.")
		return
	}

	if len(applications) == 0 {
		b.send(chatID, "Заявок нет.")
		return
	}

	for i := range applications {
		view := &applications[i]
		text := formatApplication(view)

		switch view.Status {
		case db.ApplicationPending:
			keyboard := tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Одобрить", callbackData("app_approve", view.ID)),
					tgbotapi.NewInlineKeyboardButtonData("Отклонить", callbackData("app_reject", view.ID)),
				),
			)
			b.sendWithKeyboard(chatID, text, keyboard)

		case db.ApplicationPaymentSent:
			b.send(chatID, text+"\nПроверьте оплату и отправьте ссылку: /verify "+
				fmt.Sprintf("%d", view.ID)+" <ссылка>")
			if view.PaymentScreenshot != nil {
				b.sendPhoto(chatID, *view.PaymentScreenshot, fmt.Sprintf("Скриншот оплаты по заявке %d", view.ID))
			}

		case db.ApplicationConfirmed:
			b.send(chatID, text+"\nОтправьте ссылку: /verify "+fmt.Sprintf("%d", view.ID)+" <ссылка>")

		default:
			b.send(chatID, text)
		}
	}
}

func (b *BotService) approveApplication(user *db.User, applicationID int64) {
	chatID := user.TelegramID

	view, ok := b.loadOwnedApplication(user, applicationID)
	if !ok {
		return
	}

	if err := b.applications.Approve(applicationID); err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка уже обработана.")
			return
		}

		log.Printf("approveApplication: %v", err)
		b.send(chatID, "Не удалось одобрить заявку.")
		return
	}

	b.send(chatID, fmt.Sprintf("Заявка %d одобрена.", applicationID))

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Подтвердить участие", callbackData("confirm_part", applicationID)),
		),
	)

	b.sendWithKeyboard(view.ApplicantTelegramID,
		fmt.Sprintf("Ваша заявка на «%s» одобрена! Подтвердите участие:", view.ConferenceName),
		keyboard)
}

func (b *BotService) startApplicationReject(user *db.User, applicationID int64) {
	chatID := user.TelegramID

	if _, ok := b.loadOwnedApplication(user, applicationID); !ok {
		return
	}

	state := b.states.Set(chatID, StepRejectReason)
	state.ApplicationID = applicationID

	b.sendPrompt(chatID, "Укажите причину отклонения:")
}

func (b *BotService) finishApplicationReject(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	reason := strings.TrimSpace(text)
	if reason == "" {
		b.sendPrompt(chatID, "Причина не может быть пустой. Укажите причину отклонения:")
		return
	}

	applicationID := state.ApplicationID

	view, ok := b.loadOwnedApplication(user, applicationID)
	if !ok {
		b.states.Clear(chatID)
		return
	}

	if err := b.applications.Reject(applicationID, reason); err != nil {
		b.states.Clear(chatID)

		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.sendMenu(chatID, "Эта заявка уже обработана.", user.Role)
			return
		}

		log.Printf("finishApplicationReject: %v", err)
		b.sendMenu(chatID, "Не удалось отклонить заявку.", user.Role)
		return
	}

	b.states.Clear(chatID)
	b.sendMenu(chatID, fmt.Sprintf("Заявка %d отклонена.", applicationID), user.Role)

	b.send(view.ApplicantTelegramID, fmt.Sprintf(
		"Ваша заявка на «%s» отклонена.\nПричина: %s", view.ConferenceName, reason))
}

// confirmParticipation handles the participant's confirmation press: a paid
// conference asks for a payment screenshot, a free one is confirmed at once.
func (b *BotService) confirmParticipation(user *db.User, applicationID int64) {
	chatID := user.TelegramID

	app, err := b.applications.GetByID(applicationID)
	if err != nil {
		log.Printf("confirmParticipation: %v", err)
		b.send(chatID, "Не удалось загрузить заявку.")
		return
	}

	if app == nil || app.UserID != user.ID {
		b.send(chatID, "Заявка не найдена.")
		return
	}

	conf, err := b.conferences.GetByID(app.ConferenceID)
	if err != nil || conf == nil {
		log.Printf("confirmParticipation: conference %d: %v", app.ConferenceID, err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return
	}

	paid := conf.Fee > 0

	if err := b.applications.Confirm(applicationID, paid); err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Участие уже подтверждено.")
			return
		}

		log.Printf("confirmParticipation: %v", err)
		b.send(chatID, "Не удалось подтвердить участие.")
		return
	}

	if !paid {
		b.send(chatID, "Участие подтверждено! Организатор пришлёт вам ссылку на чат комитета.")
		return
	}

	if conf.QRCodePath != nil {
		b.sendPhoto(chatID, *conf.QRCodePath, fmt.Sprintf("Взнос: %.2f руб.", conf.Fee))
	}

	b.send(chatID, fmt.Sprintf(
		"Участие подтверждено! Оплатите взнос %.2f руб. и пришлите скриншот оплаты одним фото.", conf.Fee))
}

// handlePaymentPhoto attaches an idle photo to the oldest application of the
// sender that awaits payment.
func (b *BotService) handlePaymentPhoto(user *db.User, message *tgbotapi.Message) {
	chatID := user.TelegramID

	app, err := b.applications.GetAwaitingPayment(chatID)
	if err != nil {
		log.Printf("handlePaymentPhoto: %v", err)
		b.send(chatID, "Не удалось обработать фото.")
		return
	}

	if app == nil {
		b.sendMenu(chatID, "Сейчас от вас не ожидается скриншот оплаты.", user.Role)
		return
	}

	fileID := message.Photo[len(message.Photo)-1].FileID

	path, err := b.files.SavePhoto(fileID, files.KindPayment)
	if err != nil {
		log.Printf("handlePaymentPhoto: %v", err)
		b.send(chatID, "Не удалось сохранить скриншот. Пришлите его ещё раз.")
		return
	}

	if err := b.applications.AttachPaymentScreenshot(app.ID, path); err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Скриншот по этой заявке уже получен.")
			return
		}

		log.Printf("handlePaymentPhoto: %v", err)
		b.send(chatID, "Не удалось сохранить скриншот.")
		return
	}

	b.send(chatID, "Скриншот получен! Организатор проверит оплату и пришлёт ссылку.")

	conf, err := b.conferences.GetByID(app.ConferenceID)
	if err != nil || conf == nil {
		log.Printf("handlePaymentPhoto: conference %d: %v", app.ConferenceID, err)
		return
	}

	organizer, err := b.users.GetByID(conf.OrganizerID)
	if err != nil || organizer == nil {
		log.Printf("handlePaymentPhoto: organizer %d: %v", conf.OrganizerID, err)
		return
	}

	b.sendPhoto(organizer.TelegramID, path, fmt.Sprintf(
		"Скриншот оплаты по заявке %d («%s»).\nПроверьте и отправьте ссылку: /verify %d <ссылка>",
		app.ID, conf.Name, app.ID))
}

// handleVerifyCommand closes an application: the organizer confirms payment
// and the participant receives the committee chat link.
func (b *BotService) handleVerifyCommand(user *db.User, args string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	parts := strings.Fields(args)
	if len(parts) < 2 {
		b.send(chatID, "Использование: /verify <id заявки> <ссылка>")
		return
	}

	applicationID, err := parseID(parts[0])
	if err != nil {
		b.send(chatID, "ID заявки должен быть числом.")
		return
	}

	link := parts[1]

	view, ok := b.loadOwnedApplication(user, applicationID)
	if !ok {
		return
	}

	if err := b.applications.MarkLinkSent(applicationID); err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка не ожидает ссылку.")
			return
		}

		log.Printf("handleVerifyCommand: %v", err)
		b.send(chatID, "Не удалось завершить заявку.")
		return
	}

	b.send(chatID, fmt.Sprintf("Заявка %d закрыта, ссылка отправлена участнику.", applicationID))
	b.send(view.ApplicantTelegramID, fmt.Sprintf(
		"Оплата по «%s» подтверждена! Ссылка на чат комитета: %s", view.ConferenceName, link))
}

func (b *BotService) startBroadcast(user *db.User, conferenceID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil {
		log.Printf("startBroadcast: %v", err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return
	}

	if conf == nil || conf.OrganizerID != user.ID {
		b.send(chatID, "Это не ваша конференция.")
		return
	}

	state := b.states.Set(chatID, StepBroadcastText)
	state.TargetConfID = conferenceID

	b.sendPrompt(chatID, fmt.Sprintf("Введите текст рассылки участникам «%s»:", conf.Name))
}

func (b *BotService) finishBroadcast(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	text = strings.TrimSpace(text)
	if text == "" {
		b.sendPrompt(chatID, "Текст не может быть пустым. Введите текст рассылки:")
		return
	}

	conferenceID := state.TargetConfID
	b.states.Clear(chatID)

	applications, err := b.applications.GetByConference(conferenceID)
	if err != nil {
		log.Printf("finishBroadcast: %v", err)
		b.sendMenu(chatID, "Не удалось загрузить участников.", user.Role)
		return
	}

	sent := 0
	for i := range applications {
		view := &applications[i]

		if !containsStatus(db.BroadcastStatuses, view.Status) {
			continue
		}

		b.send(view.ApplicantTelegramID, text)
		sent++
	}

	b.sendMenu(chatID, fmt.Sprintf("Рассылка отправлена %d участникам.", sent), user.Role)
}

// loadOwnedApplication loads an application view and checks that the caller
// organizes its conference.
func (b *BotService) loadOwnedApplication(user *db.User, applicationID int64) (*db.ApplicationView, bool) {
	chatID := user.TelegramID

	app, err := b.applications.GetByID(applicationID)
	if err != nil {
		log.Printf("loadOwnedApplication: %v", err)
		b.send(chatID, "Не удалось загрузить заявку.")
		return nil, false
	}

	if app == nil {
		b.send(chatID, "Заявка не найдена.")
		return nil, false
	}

	conf, err := b.conferences.GetByID(app.ConferenceID)
	if err != nil || conf == nil {
		log.Printf("loadOwnedApplication: conference %d: %v", app.ConferenceID, err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return nil, false
	}

	if conf.OrganizerID != user.ID || !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Эта заявка относится не к вашей конференции.")
		return nil, false
	}

	applicant, err := b.users.GetByID(app.UserID)
	if err != nil || applicant == nil {
		log.Printf("loadOwnedApplication: applicant %d: %v", app.UserID, err)
		b.send(chatID, "Не удалось загрузить участника.")
		return nil, false
	}

	view := &db.ApplicationView{
		Application:         *app,
		ConferenceName:      conf.Name,
		ApplicantTelegramID: applicant.TelegramID,
		ApplicantName:       applicant.FullName,
		ApplicantAge:        applicant.Age,
		ApplicantEmail:      applicant.Email,
		Institution:         applicant.Institution,
		Experience:          applicant.Experience,
	}

	return view, true
}

func formatApplication(view *db.ApplicationView) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Заявка %d — «%s»\n", view.ID, view.ConferenceName)

	name := "—"
	if view.ApplicantName != nil && *view.ApplicantName != "" {
		name = *view.ApplicantName
	}
	fmt.Fprintf(&sb, "Участник: %s (ID %d)\n", name, view.ApplicantTelegramID)

	if view.ApplicantAge != nil {
		fmt.Fprintf(&sb, "Возраст: %d\n", *view.ApplicantAge)
	}
	if view.ApplicantEmail != nil {
		fmt.Fprintf(&sb, "Email: %s\n", *view.ApplicantEmail)
	}
	if view.Institution != nil {
		fmt.Fprintf(&sb, "Заведение: %s\n", *view.Institution)
	}
	if view.Committee != nil {
		fmt.Fprintf(&sb, "Комитет: %s\n", *view.Committee)
	}

	fmt.Fprintf(&sb, "Статус: %s", view.Status)

	return sb.String()
}

func containsStatus(statuses []string, status string) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}
