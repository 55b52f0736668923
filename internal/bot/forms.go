package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AlekSi/pointer"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/db"
	"github.com/munhub/conference_bot/internal/files"
)

func (b *BotService) handleFormStep(user *db.User, message *tgbotapi.Message, step string) {
	switch step {
	case StepRegFullName:
		b.handleRegFullName(user, message.Text)
	case StepRegAge:
		b.handleRegAge(user, message.Text)
	case StepRegEmail:
		b.handleRegEmail(user, message.Text)
	case StepRegInstitution:
		b.handleRegInstitution(user, message.Text)
	case StepRegExperience:
		b.handleRegExperience(user, message.Text)
	case StepRegCommittee:
		b.handleRegCommittee(user, message.Text)

	case StepConfName:
		b.handleConfName(user, message.Text)
	case StepConfDescription:
		b.handleConfDescription(user, message.Text)
	case StepConfCity:
		b.handleConfCity(user, message.Text)
	case StepConfDateStart:
		b.handleConfDateStart(user, message.Text)
	case StepConfDateEnd:
		b.handleConfDateEnd(user, message.Text)
	case StepConfFee:
		b.handleConfFee(user, message.Text)
	case StepConfQR:
		b.handleConfPhotoStep(user, message, files.KindQRCode)
	case StepConfPoster:
		b.handleConfPhotoStep(user, message, files.KindPoster)

	case StepSupportMessage:
		b.handleSupportMessage(user, message)

	case StepRejectReason:
		b.finishApplicationReject(user, message.Text)
	case StepDeleteReason:
		b.finishConferenceDelete(user, message.Text)
	case StepBanReason:
		b.finishBan(user, message.Text)
	case StepSupportReply:
		b.finishSupportReply(user, message.Text)
	case StepPauseReason:
		b.finishPause(user, message.Text)
	case StepBroadcastText:
		b.finishBroadcast(user, message.Text)

	default:
		b.states.Clear(user.TelegramID)
		b.showMainMenu(user)
	}
}

// --- заявка участника ---

func (b *BotService) startRegistrationForm(user *db.User, conferenceID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapApplyToConference) || user.Role != db.RoleParticipant {
		b.send(chatID, "Заявки на участие подают только участники.")
		return
	}

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil {
		log.Printf("startRegistrationForm: %v", err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return
	}

	if conf == nil || !conf.IsActive {
		b.send(chatID, "Эта конференция больше недоступна.")
		return
	}

	state := b.states.Set(chatID, StepRegFullName)
	state.ConferenceID = conferenceID

	b.sendPrompt(chatID, fmt.Sprintf("Заявка на «%s».\nВведите ваше ФИО:", conf.Name))
}

func (b *BotService) handleRegFullName(user *db.User, text string) {
	chatID := user.TelegramID

	text = strings.TrimSpace(text)
	if text == "" {
		b.sendPrompt(chatID, "ФИО не может быть пустым. Введите ваше ФИО:")
		return
	}

	state := b.states.Set(chatID, StepRegAge)
	state.FullName = text

	b.sendPrompt(chatID, "Введите ваш возраст:")
}

func (b *BotService) handleRegAge(user *db.User, text string) {
	chatID := user.TelegramID

	age, ok := ParseAge(text)
	if !ok {
		b.sendPrompt(chatID, "Возраст должен быть целым числом от 11 до 99. Введите ваш возраст:")
		return
	}

	state := b.states.Set(chatID, StepRegEmail)
	state.Age = age

	b.sendPrompt(chatID, "Введите ваш email:")
}

func (b *BotService) handleRegEmail(user *db.User, text string) {
	chatID := user.TelegramID

	// Формат не проверяем, организатор увидит email как есть.
	text = strings.TrimSpace(text)
	if text == "" {
		b.sendPrompt(chatID, "Поле не может быть пустым. Введите ваш email:")
		return
	}

	state := b.states.Set(chatID, StepRegInstitution)
	state.Email = text

	b.sendPrompt(chatID, "Введите ваше учебное заведение:")
}

func (b *BotService) handleRegInstitution(user *db.User, text string) {
	chatID := user.TelegramID

	text = strings.TrimSpace(text)
	if text == "" {
		b.sendPrompt(chatID, "Поле не может быть пустым. Введите ваше учебное заведение:")
		return
	}

	state := b.states.Set(chatID, StepRegExperience)
	state.Institution = text

	b.sendPrompt(chatID, "Опишите ваш опыт участия в MUN (если опыта нет, напишите «нет»):")
}

func (b *BotService) handleRegExperience(user *db.User, text string) {
	chatID := user.TelegramID

	state := b.states.Set(chatID, StepRegCommittee)
	state.Experience = strings.TrimSpace(text)

	b.sendPrompt(chatID, "Укажите желаемый комитет:")
}

func (b *BotService) handleRegCommittee(user *db.User, text string) {
	chatID := user.TelegramID

	text = strings.TrimSpace(text)
	if text == "" {
		b.sendPrompt(chatID, "Поле не может быть пустым. Укажите желаемый комитет:")
		return
	}

	state := b.states.Get(chatID)

	err := b.users.UpdateProfile(user.ID, state.FullName, state.Age, state.Email, state.Institution, state.Experience)
	if err != nil {
		log.Printf("handleRegCommittee: %v", err)
		b.send(chatID, "Не удалось сохранить анкету. Попробуйте позже.")
		return
	}

	applicationID, err := b.applications.Create(user.ID, state.ConferenceID, text)
	if err != nil {
		log.Printf("handleRegCommittee: %v", err)
		b.send(chatID, "Не удалось отправить заявку. Попробуйте позже.")
		return
	}

	conferenceID := state.ConferenceID
	b.states.Clear(chatID)

	b.sendMenu(chatID, "Заявка отправлена! Организатор рассмотрит её и вы получите уведомление.", user.Role)
	b.notifyOrganizerAboutApplication(conferenceID, applicationID, state, text)
}

func (b *BotService) notifyOrganizerAboutApplication(conferenceID, applicationID int64, state *UserState, committee string) {
	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil || conf == nil {
		log.Printf("notifyOrganizerAboutApplication: conference %d: %v", conferenceID, err)
		return
	}

	organizer, err := b.users.GetByID(conf.OrganizerID)
	if err != nil || organizer == nil {
		log.Printf("notifyOrganizerAboutApplication: organizer %d: %v", conf.OrganizerID, err)
		return
	}

	text := fmt.Sprintf(
		"Новая заявка на «%s» (ID %d):\nФИО: %s\nВозраст: %d\nEmail: %s\nЗаведение: %s\nОпыт: %s\nКомитет: %s",
		conf.Name, applicationID, state.FullName, state.Age, state.Email,
		state.Institution, state.Experience, committee,
	)

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Одобрить", callbackData("app_approve", applicationID)),
			tgbotapi.NewInlineKeyboardButtonData("Отклонить", callbackData("app_reject", applicationID)),
		),
	)

	b.sendWithKeyboard(organizer.TelegramID, text, keyboard)
}

// --- форма конференции (создание и редактирование) ---

func (b *BotService) startConferenceForm(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapRequestConference) {
		b.send(chatID, "Заявку на создание конференции подают только участники.")
		return
	}

	state := b.states.Set(chatID, StepConfName)
	state.Payload = db.ConferencePayload{}
	state.Editing = false

	b.sendPrompt(chatID, "Введите название конференции:")
}

func (b *BotService) startEditForm(user *db.User, conferenceID int64) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapManageOwnConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	conf, err := b.conferences.GetByID(conferenceID)
	if err != nil {
		log.Printf("startEditForm: %v", err)
		b.send(chatID, "Не удалось загрузить конференцию.")
		return
	}

	if conf == nil || conf.OrganizerID != user.ID {
		b.send(chatID, "Это не ваша конференция.")
		return
	}

	state := b.states.Set(chatID, StepConfName)
	state.Payload = db.ConferencePayload{}
	state.Editing = true
	state.EditConfID = conferenceID

	b.sendPrompt(chatID, fmt.Sprintf(
		"Редактирование «%s». На любом шаге напишите «нет», чтобы оставить текущее значение.\nНовое название:",
		conf.Name,
	))
}

func (b *BotService) handleConfName(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	text = strings.TrimSpace(text)

	if state.Editing && IsSkip(text) {
		// оставляем текущее
	} else if text == "" {
		b.sendPrompt(chatID, "Название не может быть пустым. Введите название:")
		return
	} else {
		state.Payload.Name = pointer.ToString(text)
	}

	state.Step = StepConfDescription
	b.sendPrompt(chatID, "Введите описание конференции:")
}

func (b *BotService) handleConfDescription(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	text = strings.TrimSpace(text)

	if state.Editing && IsSkip(text) {
		// оставляем текущее
	} else if text == "" {
		b.sendPrompt(chatID, "Описание не может быть пустым. Введите описание:")
		return
	} else {
		state.Payload.Description = pointer.ToString(text)
	}

	state.Step = StepConfCity
	b.sendPrompt(chatID, "Введите город проведения (или «нет», если конференция онлайн):")
}

func (b *BotService) handleConfCity(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	text = strings.TrimSpace(text)

	switch {
	case state.Editing && IsSkip(text):
		// оставляем текущее
	case !state.Editing && IsSkip(text):
		state.Payload.City = nil
	case text != "":
		state.Payload.City = pointer.ToString(text)
	}

	state.Step = StepConfDateStart
	b.sendPrompt(chatID, "Введите дату начала в формате ГГГГ-ММ-ДД:")
}

func (b *BotService) handleConfDateStart(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	if state.Editing && IsSkip(text) {
		state.Step = StepConfDateEnd
		b.sendPrompt(chatID, "Введите дату окончания в формате ГГГГ-ММ-ДД:")
		return
	}

	date, errMsg := ValidateConferenceDate(text, time.Now())
	if errMsg != "" {
		b.sendPrompt(chatID, errMsg+"\nВведите дату начала:")
		return
	}

	state.Payload.DateStart = pointer.ToString(date)
	state.Step = StepConfDateEnd

	b.sendPrompt(chatID, "Введите дату окончания в формате ГГГГ-ММ-ДД (для однодневной конференции — ту же дату):")
}

func (b *BotService) handleConfDateEnd(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	if state.Editing && IsSkip(text) {
		if errMsg := b.checkEditWindow(state); errMsg != "" {
			b.sendPrompt(chatID, errMsg+"\nВведите дату окончания:")
			return
		}

		state.Step = StepConfFee
		b.sendPrompt(chatID, "Введите размер взноса в рублях (0 — участие бесплатное):")
		return
	}

	date, errMsg := ValidateConferenceDate(text, time.Now())
	if errMsg != "" {
		b.sendPrompt(chatID, errMsg+"\nВведите дату окончания:")
		return
	}

	state.Payload.DateEnd = pointer.ToString(date)

	if errMsg := b.checkEditWindow(state); errMsg != "" {
		state.Payload.DateEnd = nil
		b.sendPrompt(chatID, errMsg+"\nВведите дату окончания:")
		return
	}

	state.Step = StepConfFee
	b.sendPrompt(chatID, "Введите размер взноса в рублях (0 — участие бесплатное):")
}

// checkEditWindow validates start <= end using the stored conference for
// whichever side the user skipped.
func (b *BotService) checkEditWindow(state *UserState) string {
	start := state.Payload.DateStart
	end := state.Payload.DateEnd

	if state.Editing && (start == nil || end == nil) {
		conf, err := b.conferences.GetByID(state.EditConfID)
		if err != nil || conf == nil {
			log.Printf("checkEditWindow: conference %d: %v", state.EditConfID, err)
			return "Не удалось проверить даты. Попробуйте ещё раз."
		}

		if start == nil {
			start = &conf.DateStart
		}
		if end == nil {
			end = &conf.DateEnd
		}
	}

	if start == nil || end == nil {
		return ""
	}

	return ValidateDateWindow(*start, *end)
}

func (b *BotService) handleConfFee(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	if state.Editing && IsSkip(text) {
		state.Step = StepConfQR
		b.sendPrompt(chatID, "Пришлите фото QR-кода для оплаты (или «нет»):")
		return
	}

	fee, ok := ParseFee(text)
	if !ok {
		b.sendPrompt(chatID, "Взнос должен быть неотрицательным числом. Введите размер взноса:")
		return
	}

	state.Payload.Fee = pointer.ToFloat64(fee)

	if fee == 0 && !state.Editing {
		// бесплатной конференции QR не нужен
		state.Step = StepConfPoster
		b.sendPrompt(chatID, "Пришлите афишу конференции (или «нет»):")
		return
	}

	state.Step = StepConfQR
	b.sendPrompt(chatID, "Пришлите фото QR-кода для оплаты (или «нет»):")
}

func (b *BotService) handleConfPhotoStep(user *db.User, message *tgbotapi.Message, kind string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	var path *string

	switch {
	case len(message.Photo) > 0:
		fileID := message.Photo[len(message.Photo)-1].FileID

		saved, err := b.files.SavePhoto(fileID, kind)
		if err != nil {
			log.Printf("handleConfPhotoStep: %v", err)
			b.sendPrompt(chatID, "Не удалось сохранить фото. Пришлите его ещё раз (или «нет»):")
			return
		}

		path = &saved

	case IsSkip(message.Text):
		path = nil

	default:
		b.sendPrompt(chatID, "Пришлите фото или напишите «нет»:")
		return
	}

	if kind == files.KindQRCode {
		if path != nil {
			state.Payload.QRCodePath = path
		}

		state.Step = StepConfPoster
		b.sendPrompt(chatID, "Пришлите афишу конференции (или «нет»):")
		return
	}

	if path != nil {
		state.Payload.PosterPath = path
	}

	b.finishConferenceForm(user, state)
}

func (b *BotService) finishConferenceForm(user *db.User, state *UserState) {
	chatID := user.TelegramID

	if state.Editing {
		requestID, err := b.editRequests.Create(state.EditConfID, user.ID, state.Payload)
		if err != nil {
			log.Printf("finishConferenceForm: %v", err)
			b.send(chatID, "Не удалось отправить заявку на изменение. Попробуйте позже.")
			return
		}

		text := fmt.Sprintf("Заявка на изменение конференции (ID заявки %d) от %s:\n%s",
			requestID, user.DisplayName(), formatPayload(state.Payload))

		b.states.Clear(chatID)
		b.sendMenu(chatID, "Заявка на изменение отправлена на рассмотрение.", user.Role)
		b.notifyAdminsWithKeyboard(text, decisionKeyboard("conf_edit", requestID))
		return
	}

	requestID, err := b.creationRequests.Create(user.ID, state.Payload)
	if err != nil {
		log.Printf("finishConferenceForm: %v", err)
		b.send(chatID, "Не удалось отправить заявку. Попробуйте позже.")
		return
	}

	text := fmt.Sprintf("Заявка на создание конференции (ID заявки %d) от %s:\n%s",
		requestID, user.DisplayName(), formatPayload(state.Payload))

	b.states.Clear(chatID)
	b.sendMenu(chatID, "Заявка на создание конференции отправлена на рассмотрение.", user.Role)
	b.notifyAdminsWithKeyboard(text, decisionKeyboard("conf_create", requestID))
}

func formatPayload(p db.ConferencePayload) string {
	var lines []string

	if p.Name != nil {
		lines = append(lines, "Название: "+*p.Name)
	}
	if p.Description != nil {
		lines = append(lines, "Описание: "+*p.Description)
	}
	if p.City != nil {
		lines = append(lines, "Город: "+*p.City)
	} else if p.Name != nil {
		// новая конференция без города считается онлайн
		lines = append(lines, "Город: Онлайн")
	}
	if p.DateStart != nil && p.DateEnd != nil {
		if *p.DateStart == *p.DateEnd {
			lines = append(lines, "Дата: "+*p.DateStart)
		} else {
			lines = append(lines, "Даты: "+*p.DateStart+" — "+*p.DateEnd)
		}
	} else if p.DateStart != nil {
		lines = append(lines, "Дата начала: "+*p.DateStart)
	} else if p.DateEnd != nil {
		lines = append(lines, "Дата окончания: "+*p.DateEnd)
	}
	if p.Fee != nil {
		lines = append(lines, fmt.Sprintf("Взнос: %.2f руб.", *p.Fee))
	}
	if p.QRCodePath != nil {
		lines = append(lines, "QR-код: приложен")
	}
	if p.PosterPath != nil {
		lines = append(lines, "Афиша: приложена")
	}

	if len(lines) == 0 {
		return "Без изменений."
	}

	return strings.Join(lines, "\n")
}
