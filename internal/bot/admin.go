package bot

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/AlekSi/pointer"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/db"
)

// --- заявки на создание и изменение конференций ---

func (b *BotService) showPendingRequests(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapReviewRequests) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	creations, err := b.creationRequests.GetPending()
	if err != nil {
		log.Printf("showPendingRequests: %v", err)
		b.send(chatID, "Не удалось загрузить заявки.")
		return
	}

	edits, err := b.editRequests.GetPending()
	if err != nil {
		log.Printf("showPendingRequests: %v", err)
		b.send(chatID, "Не удалось загрузить заявки.")
		return
	}

	if len(creations) == 0 && len(edits) == 0 {
		b.send(chatID, "Новых заявок нет.")
		return
	}

	for i := range creations {
		req := &creations[i]

		text := fmt.Sprintf("Заявка на создание (ID %d) от %s:\n%s",
			req.ID, b.requesterName(req.UserID), formatPayload(req.Data))

		b.sendWithKeyboard(chatID, text, decisionKeyboard("conf_create", req.ID))
	}

	for i := range edits {
		req := &edits[i]

		text := fmt.Sprintf("Заявка на изменение конференции %d (ID заявки %d) от %s:\n%s",
			req.ConferenceID, req.ID, b.requesterName(req.OrganizerID), formatPayload(req.Data))

		b.sendWithKeyboard(chatID, text, decisionKeyboard("conf_edit", req.ID))
	}
}

func (b *BotService) approveCreationRequest(user *db.User, requestID int64, fromAppeal bool) {
	chatID := user.TelegramID

	needed := access.CapReviewRequests
	if fromAppeal {
		needed = access.CapResolveAppeals
	}

	if !b.gate.Allows(user, needed) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	decision, err := b.creationRequests.Approve(requestID, fromAppeal)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка уже обработана.")
			return
		}

		log.Printf("approveCreationRequest: %v", err)
		b.send(chatID, "Не удалось одобрить заявку.")
		return
	}

	b.send(chatID, fmt.Sprintf("Заявка %d одобрена, конференция «%s» создана.",
		decision.RequestID, decision.ConferenceName))

	b.sendMenu(decision.RequesterTelegramID, fmt.Sprintf(
		"Ваша заявка одобрена! Конференция «%s» создана, вы назначены организатором.",
		decision.ConferenceName), db.RoleOrganizer)
}

func (b *BotService) rejectCreationRequest(user *db.User, requestID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapReviewRequests) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	decision, err := b.creationRequests.Reject(requestID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка уже обработана.")
			return
		}

		log.Printf("rejectCreationRequest: %v", err)
		b.send(chatID, "Не удалось отклонить заявку.")
		return
	}

	b.send(chatID, fmt.Sprintf("Заявка %d отклонена.", decision.RequestID))

	b.sendWithKeyboard(decision.RequesterTelegramID,
		"Ваша заявка на создание конференции отклонена. Вы можете подать апелляцию главным администраторам.",
		appealOfferKeyboard(decision.RequestID))
}

// submitAppeal is pressed by the requester on a rejected request.
func (b *BotService) submitAppeal(user *db.User, requestID int64) {
	chatID := user.TelegramID

	req, err := b.creationRequests.GetByID(requestID)
	if err != nil {
		log.Printf("submitAppeal: %v", err)
		b.send(chatID, "Не удалось загрузить заявку.")
		return
	}

	if req == nil || req.UserID != user.ID {
		b.send(chatID, "Заявка не найдена.")
		return
	}

	if err := b.creationRequests.SubmitAppeal(requestID); err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "По этой заявке апелляция уже недоступна.")
			return
		}

		log.Printf("submitAppeal: %v", err)
		b.send(chatID, "Не удалось подать апелляцию.")
		return
	}

	b.sendMenu(chatID, "Апелляция подана. Её рассмотрят главные администраторы.", user.Role)

	text := fmt.Sprintf("Апелляция по заявке %d от %s:\n%s",
		req.ID, user.DisplayName(), formatPayload(req.Data))

	b.notifyChiefAdmins(text, decisionKeyboard("conf_appeal", req.ID))
}

func (b *BotService) showAppeals(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapResolveAppeals) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	appeals, err := b.creationRequests.GetAppealed()
	if err != nil {
		log.Printf("showAppeals: %v", err)
		b.send(chatID, "Не удалось загрузить апелляции.")
		return
	}

	if len(appeals) == 0 {
		b.send(chatID, "Открытых апелляций нет.")
		return
	}

	for i := range appeals {
		req := &appeals[i]

		text := fmt.Sprintf("Апелляция по заявке %d от %s:\n%s",
			req.ID, b.requesterName(req.UserID), formatPayload(req.Data))

		b.sendWithKeyboard(chatID, text, decisionKeyboard("conf_appeal", req.ID))
	}
}

func (b *BotService) rejectAppeal(user *db.User, requestID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapResolveAppeals) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	decision, err := b.creationRequests.RejectAppeal(requestID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта апелляция уже рассмотрена.")
			return
		}

		log.Printf("rejectAppeal: %v", err)
		b.send(chatID, "Не удалось отклонить апелляцию.")
		return
	}

	b.send(chatID, fmt.Sprintf("Апелляция по заявке %d отклонена.", decision.RequestID))
	b.send(decision.RequesterTelegramID,
		"Ваша апелляция рассмотрена и отклонена. Решение окончательное.")
}

func (b *BotService) approveEditRequest(user *db.User, requestID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapReviewRequests) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	decision, err := b.editRequests.Approve(requestID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка уже обработана.")
			return
		}

		log.Printf("approveEditRequest: %v", err)
		b.send(chatID, "Не удалось применить изменения.")
		return
	}

	b.send(chatID, fmt.Sprintf("Изменения по «%s» применены.", decision.ConferenceName))
	b.send(decision.RequesterTelegramID, fmt.Sprintf(
		"Изменения конференции «%s» одобрены и применены.", decision.ConferenceName))
}

func (b *BotService) rejectEditRequest(user *db.User, requestID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapReviewRequests) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	decision, err := b.editRequests.Reject(requestID)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.send(chatID, "Эта заявка уже обработана.")
			return
		}

		log.Printf("rejectEditRequest: %v", err)
		b.send(chatID, "Не удалось отклонить заявку.")
		return
	}

	b.send(chatID, fmt.Sprintf("Заявка на изменение %d отклонена.", decision.RequestID))
	b.send(decision.RequesterTelegramID, fmt.Sprintf(
		"Изменения конференции «%s» отклонены.", decision.ConferenceName))
}

// --- удаление конференции ---

// canDeleteConference: admins and chiefs delete any conference, an
// organizer only their own.
func (b *BotService) canDeleteConference(user *db.User, conf *db.Conference) bool {
	if b.gate.Allows(user, access.CapDeleteConference) {
		return true
	}

	return conf.OrganizerID == user.ID && b.gate.Allows(user, access.CapManageOwnConferences)
}

func (b *BotService) handleDeleteConferenceCommand(user *db.User, args string) {
	chatID := user.TelegramID

	parts := strings.Fields(args)
	if len(parts) == 0 {
		b.send(chatID, "Использование: /delete_conf <id конференции> [причина]")
		return
	}

	conferenceID, err := parseID(parts[0])
	if err != nil {
		b.send(chatID, "Использование: /delete_conf <id конференции> [причина]")
		return
	}

	// Причина в команде минует шаг подтверждения.
	if len(parts) > 1 {
		state := b.states.Get(chatID)
		state.TargetConfID = conferenceID
		b.finishConferenceDelete(user, strings.Join(parts[1:], " "))
		return
	}

	b.askDeleteConfirmation(user, conferenceID)
}

func (b *BotService) askDeleteConfirmation(user *db.User, conferenceID int64) {
	chatID := user.TelegramID

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil {
		log.Printf("askDeleteConfirmation: %v", err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return
	}

	if conf == nil {
		b.send(chatID, "Конференция не найдена.")
		return
	}

	if !b.canDeleteConference(user, conf) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Да, удалить", callbackData("confirm_delete", conferenceID)),
			tgbotapi.NewInlineKeyboardButtonData("Отмена", "back_to_menu"),
		),
	)

	b.sendWithKeyboard(chatID, fmt.Sprintf(
		"Удалить конференцию «%s» (ID %d)? Все заявки участников будут удалены.",
		conf.Name, conf.ID), keyboard)
}

func (b *BotService) startDeleteReason(user *db.User, conferenceID int64) {
	chatID := user.TelegramID

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil || conf == nil {
		log.Printf("startDeleteReason: conference %d: %v", conferenceID, err)
		b.send(chatID, "Конференция не найдена.")
		return
	}

	if !b.canDeleteConference(user, conf) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	state := b.states.Set(chatID, StepDeleteReason)
	state.TargetConfID = conferenceID

	b.sendPrompt(chatID, "Укажите причину удаления:")
}

func (b *BotService) finishConferenceDelete(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	reason := strings.TrimSpace(text)
	if reason == "" {
		b.sendPrompt(chatID, "Причина не может быть пустой. Укажите причину удаления:")
		return
	}

	conferenceID := state.TargetConfID
	b.states.Clear(chatID)

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil {
		log.Printf("finishConferenceDelete: %v", err)
		b.sendMenu(chatID, "Не удалось удалить конференцию.", user.Role)
		return
	}

	if conf == nil {
		b.sendMenu(chatID, "Конференция не найдена.", user.Role)
		return
	}

	if !b.canDeleteConference(user, conf) {
		b.sendMenu(chatID, "Недостаточно прав.", user.Role)
		return
	}

	// Список участников нужен до удаления: каскад снесёт заявки.
	applications, err := b.applications.GetByConference(conferenceID)
	if err != nil {
		log.Printf("finishConferenceDelete: %v", err)
		applications = nil
	}

	result, err := b.conferences.DeleteWithReason(conferenceID, user.TelegramID, reason)
	if err != nil {
		if errors.Is(err, db.ErrAlreadyProcessed) {
			b.sendMenu(chatID, "Конференция не найдена.", user.Role)
			return
		}

		log.Printf("finishConferenceDelete: %v", err)
		b.sendMenu(chatID, "Не удалось удалить конференцию.", user.Role)
		return
	}

	// Файлы конференции и скриншоты оплат больше не нужны.
	stored := []*string{conf.QRCodePath, conf.PosterPath}
	for i := range applications {
		stored = append(stored, applications[i].PaymentScreenshot)
	}
	for _, path := range stored {
		if path == nil {
			continue
		}
		if err := b.files.DeleteFile(*path); err != nil {
			log.Printf("finishConferenceDelete: %v", err)
		}
	}

	b.sendMenu(chatID, fmt.Sprintf("Конференция «%s» удалена.", result.ConferenceName), user.Role)

	if !b.gate.Allows(user, access.CapDeleteConference) {
		b.notifyAdmins(fmt.Sprintf("Организатор %s удалил свою конференцию «%s».\nПричина: %s",
			user.DisplayName(), result.ConferenceName, reason))
	}

	if result.OrganizerTelegramID != chatID {
		organizerText := fmt.Sprintf("Ваша конференция «%s» удалена администрацией.\nПричина: %s",
			result.ConferenceName, reason)
		if result.OrganizerDemoted {
			organizerText += "\nУ вас не осталось конференций, ваша роль снова «участник»."
		}
		b.send(result.OrganizerTelegramID, organizerText)
	} else if result.OrganizerDemoted {
		b.send(chatID, "У вас не осталось конференций, ваша роль снова «участник».")
	}

	for i := range applications {
		b.send(applications[i].ApplicantTelegramID, fmt.Sprintf(
			"Конференция «%s» отменена. Ваша заявка аннулирована.", result.ConferenceName))
	}
}

// --- пауза и экспорт ---

func (b *BotService) startPause(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapPauseBot) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	b.states.Set(chatID, StepPauseReason)
	b.sendPrompt(chatID, "Укажите причину приостановки (или «нет»):")
}

func (b *BotService) finishPause(user *db.User, text string) {
	chatID := user.TelegramID
	b.states.Clear(chatID)

	var reason *string
	if trimmed := strings.TrimSpace(text); !IsSkip(trimmed) && trimmed != "" {
		reason = pointer.ToString(trimmed)
	}

	if err := b.status.SetPaused(true, reason, chatID); err != nil {
		log.Printf("finishPause: %v", err)
		b.sendMenu(chatID, "Не удалось приостановить бота.", user.Role)
		return
	}

	b.sendMenu(chatID, "Бот приостановлен.", user.Role)
}

func (b *BotService) resumeBot(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapPauseBot) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	if err := b.status.SetPaused(false, nil, chatID); err != nil {
		log.Printf("resumeBot: %v", err)
		b.send(chatID, "Не удалось возобновить работу бота.")
		return
	}

	b.sendMenu(chatID, "Бот снова работает.", user.Role)
}

func (b *BotService) showExportMenu(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapExportData) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Участники", "export_participants"),
			tgbotapi.NewInlineKeyboardButtonData("Забаненные", "export_banned"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Обращения", "export_support"),
			tgbotapi.NewInlineKeyboardButtonData("Удалённые конференции", "export_deleted"),
		),
	)

	b.sendWithKeyboard(chatID, "Что выгрузить?", keyboard)
}

func (b *BotService) runExport(user *db.User, data string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapExportData) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	var (
		path string
		err  error
	)

	switch data {
	case "export_participants":
		path, err = b.exporter.Participants()
	case "export_banned":
		path, err = b.exporter.BannedUsers()
	case "export_support":
		path, err = b.exporter.SupportRequests()
	case "export_deleted":
		path, err = b.exporter.DeletedConferences()
	}

	if err != nil {
		log.Printf("runExport: %v", err)
		b.send(chatID, "Не удалось подготовить выгрузку.")
		return
	}

	b.sendDocument(chatID, path)
}

func (b *BotService) requesterName(userID int64) string {
	requester, err := b.users.GetByID(userID)
	if err != nil || requester == nil {
		return fmt.Sprintf("пользователя %d", userID)
	}

	return requester.DisplayName()
}
