package bot

import (
	"fmt"
	"log"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/db"
	"github.com/munhub/conference_bot/internal/export"
	"github.com/munhub/conference_bot/internal/files"
)

type BotService struct {
	botAPI           *tgbotapi.BotAPI
	users            *db.UserRepository
	conferences      *db.ConferenceRepository
	creationRequests *db.CreationRequestRepository
	editRequests     *db.EditRequestRepository
	applications     *db.ApplicationRepository
	support          *db.SupportRepository
	status           *db.BotStatusRepository
	gate             *access.Gate
	states           *StateStore
	files            *files.FileService
	exporter         *export.Exporter
	chiefAdminIDs    []int64
	techLeadID       int64
}

func New(
	botAPI *tgbotapi.BotAPI,
	users *db.UserRepository,
	conferences *db.ConferenceRepository,
	creationRequests *db.CreationRequestRepository,
	editRequests *db.EditRequestRepository,
	applications *db.ApplicationRepository,
	support *db.SupportRepository,
	status *db.BotStatusRepository,
	gate *access.Gate,
	fileService *files.FileService,
	exporter *export.Exporter,
	chiefAdminIDs []int64,
	techLeadID int64,
) *BotService {
	return &BotService{
		botAPI:           botAPI,
		users:            users,
		conferences:      conferences,
		creationRequests: creationRequests,
		editRequests:     editRequests,
		applications:     applications,
		support:          support,
		status:           status,
		gate:             gate,
		states:           NewStateStore(),
		files:            fileService,
		exporter:         exporter,
		chiefAdminIDs:    chiefAdminIDs,
		techLeadID:       techLeadID,
	}
}

func (b *BotService) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.botAPI.GetUpdatesChan(u)

	for update := range updates {
		if update.CallbackQuery != nil {
			b.handleCallback(update.CallbackQuery)
			continue
		}

		if update.Message == nil {
			continue
		}

		b.handleMessage(update.Message)
	}
}

func (b *BotService) handleMessage(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, err := b.users.GetOrCreate(chatID, senderName(message))
	if err != nil {
		log.Printf("handleMessage: %v", err)
		b.send(chatID, "Внутренняя ошибка. Попробуйте позже.")
		return
	}

	// Пока бот на паузе, работают только те, кто может его возобновить.
	if status, err := b.status.Get(); err == nil && status.IsPaused && !b.gate.Allows(user, access.CapPauseBot) {
		text := "Бот временно приостановлен."
		if status.PauseReason != nil && *status.PauseReason != "" {
			text += "\nПричина: " + *status.PauseReason
		}
		b.send(chatID, text)
		return
	}

	if user.IsBanned {
		b.handleBannedUser(user, message)
		return
	}

	if message.IsCommand() {
		b.handleCommand(user, message)
		return
	}

	// Активная форма перехватывает любой ввод, кроме команд.
	if step := b.states.Step(chatID); step != "" {
		b.handleFormStep(user, message, step)
		return
	}

	if len(message.Photo) > 0 {
		b.handlePaymentPhoto(user, message)
		return
	}

	b.handleMenuButton(user, strings.TrimSpace(message.Text))
}

// handleBannedUser leaves a banned user exactly one door: support.
func (b *BotService) handleBannedUser(user *db.User, message *tgbotapi.Message) {
	chatID := user.TelegramID

	if b.states.Step(chatID) == StepSupportMessage {
		b.handleSupportMessage(user, message)
		return
	}

	if strings.TrimSpace(message.Text) == "Обращение к тех. специалисту" {
		b.startSupportForm(chatID)
		return
	}

	text := "Вы заблокированы."
	if user.BanReason != nil && *user.BanReason != "" {
		text += "\nПричина: " + *user.BanReason
	}
	text += "\nВы можете обратиться к тех. специалисту."

	keyboard := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("Обращение к тех. специалисту"),
		),
	)
	keyboard.ResizeKeyboard = true

	b.sendWithKeyboard(chatID, text, keyboard)
}

func (b *BotService) handleCommand(user *db.User, message *tgbotapi.Message) {
	chatID := user.TelegramID

	switch message.Command() {
	case "start", "main_menu", "cancel":
		b.states.Clear(chatID)
		b.showMainMenu(user)

	case "help":
		b.sendHelp(user)

	case "conferences":
		b.listActiveConferences(user)

	case "delete_conf":
		b.handleDeleteConferenceCommand(user, message.CommandArguments())

	case "ban":
		b.handleBanCommand(user, message.CommandArguments())

	case "unban":
		b.handleUnbanCommand(user, message.CommandArguments())

	case "banned_list":
		b.showBannedList(user)

	case "set_role":
		b.handleSetRoleCommand(user, message.CommandArguments())

	case "verify":
		b.handleVerifyCommand(user, message.CommandArguments())

	case "reply_support":
		b.handleReplySupportCommand(user, message.CommandArguments())

	default:
		b.send(chatID, "Неизвестная команда. Используйте /help.")
	}
}

func (b *BotService) handleMenuButton(user *db.User, text string) {
	chatID := user.TelegramID

	switch text {
	case "Обновить меню":
		b.showMainMenu(user)

	case "Помощь":
		b.sendHelp(user)

	case "Просмотр конференций", "Все конференции":
		b.listActiveConferences(user)

	case "Создать конференцию":
		b.startConferenceForm(user)

	case "Обращение к тех. специалисту":
		b.startSupportForm(chatID)

	case "Мои конференции":
		b.showOwnConferences(user)

	case "Заявки участников":
		b.showOrganizerApplications(user, db.CurrentStatuses)

	case "Архив заявок":
		b.showOrganizerApplications(user, db.ArchiveStatuses)

	case "Заявки на конференции":
		b.showPendingRequests(user)

	case "Посмотреть апелляции":
		b.showAppeals(user)

	case "Статистика":
		b.showStats(user)

	case "Приостановить бота":
		b.startPause(user)

	case "Возобновить работу бота":
		b.resumeBot(user)

	case "Экспорт данных бота":
		b.showExportMenu(user)

	case "Очередь обращений":
		b.showSupportQueue(user)

	case "Список забаненных":
		b.showBannedList(user)

	default:
		b.showMainMenu(user)
	}
}

func (b *BotService) handleCallback(query *tgbotapi.CallbackQuery) {
	chatID := query.Message.Chat.ID
	data := query.Data

	b.answerCallback(query.ID)

	user, err := b.users.GetOrCreate(chatID, callbackSenderName(query))
	if err != nil {
		log.Printf("handleCallback: %v", err)
		return
	}

	if status, err := b.status.Get(); err == nil && status.IsPaused && !b.gate.Allows(user, access.CapPauseBot) {
		b.send(chatID, "Бот временно приостановлен.")
		return
	}

	// Кнопки у забаненного остаются только от формы обращения.
	if user.IsBanned {
		if data == "cancel_form" {
			b.states.Clear(chatID)
			b.send(chatID, "Действие отменено.")
		}
		return
	}

	switch {
	case data == "cancel_form":
		b.states.Clear(chatID)
		b.sendMenu(chatID, "Действие отменено.", user.Role)

	case data == "back_to_menu":
		b.states.Clear(chatID)
		b.showMainMenu(user)

	case hasCallbackID(data, "select_conf"):
		id, _ := callbackID(data, "select_conf")
		b.startRegistrationForm(user, id)

	case hasCallbackID(data, "conf_create_approve"):
		id, _ := callbackID(data, "conf_create_approve")
		b.approveCreationRequest(user, id, false)

	case hasCallbackID(data, "conf_create_reject"):
		id, _ := callbackID(data, "conf_create_reject")
		b.rejectCreationRequest(user, id)

	case hasCallbackID(data, "conf_appeal_approve"):
		id, _ := callbackID(data, "conf_appeal_approve")
		b.approveCreationRequest(user, id, true)

	case hasCallbackID(data, "conf_appeal_reject"):
		id, _ := callbackID(data, "conf_appeal_reject")
		b.rejectAppeal(user, id)

	case hasCallbackID(data, "conf_edit_approve"):
		id, _ := callbackID(data, "conf_edit_approve")
		b.approveEditRequest(user, id)

	case hasCallbackID(data, "conf_edit_reject"):
		id, _ := callbackID(data, "conf_edit_reject")
		b.rejectEditRequest(user, id)

	case hasCallbackID(data, "appeal_submit"):
		id, _ := callbackID(data, "appeal_submit")
		b.submitAppeal(user, id)

	case hasCallbackID(data, "app_approve"):
		id, _ := callbackID(data, "app_approve")
		b.approveApplication(user, id)

	case hasCallbackID(data, "app_reject"):
		id, _ := callbackID(data, "app_reject")
		b.startApplicationReject(user, id)

	case hasCallbackID(data, "confirm_part"):
		id, _ := callbackID(data, "confirm_part")
		b.confirmParticipation(user, id)

	case hasCallbackID(data, "edit_conf"):
		id, _ := callbackID(data, "edit_conf")
		b.startEditForm(user, id)

	case hasCallbackID(data, "broadcast"):
		id, _ := callbackID(data, "broadcast")
		b.startBroadcast(user, id)

	case hasCallbackID(data, "admin_delete_conf"):
		id, _ := callbackID(data, "admin_delete_conf")
		b.askDeleteConfirmation(user, id)

	case hasCallbackID(data, "confirm_delete"):
		id, _ := callbackID(data, "confirm_delete")
		b.startDeleteReason(user, id)

	case hasCallbackID(data, "support_answer"):
		id, _ := callbackID(data, "support_answer")
		b.startSupportReply(user, id)

	case data == "export_banned", data == "export_support",
		data == "export_participants", data == "export_deleted":
		b.runExport(user, data)
	}
}

func (b *BotService) showMainMenu(user *db.User) {
	title, ok := db.RoleTitles[user.Role]
	if !ok {
		title = user.Role
	}

	text := fmt.Sprintf("Главное меню.\nВаша роль: %s.", title)
	b.sendMenu(user.TelegramID, text, user.Role)
}

func (b *BotService) sendHelp(user *db.User) {
	lines := []string{
		"Доступные команды:",
		"/main_menu — главное меню",
		"/conferences — список конференций",
		"/help — эта справка",
	}

	if b.gate.Allows(user, access.CapDeleteConference) {
		lines = append(lines, "/delete_conf <id> — удалить конференцию")
	}

	if b.gate.Allows(user, access.CapBanUsers) {
		lines = append(lines,
			"/ban <id или имя> — заблокировать пользователя",
			"/unban <id или имя> — разблокировать пользователя",
			"/banned_list — список заблокированных",
		)
	}

	if b.gate.Allows(user, access.CapSetRoles) {
		lines = append(lines, "/set_role <id или имя> <роль> — назначить роль")
	}

	if user.Role == db.RoleOrganizer {
		lines = append(lines, "/verify <id заявки> <ссылка> — отправить участнику ссылку")
	}

	if b.gate.Allows(user, access.CapViewSupportQueue) {
		lines = append(lines, "/reply_support <id> <ответ> — ответить на обращение")
	}

	b.send(user.TelegramID, strings.Join(lines, "\n"))
}

// listActiveConferences shows the catalogue; participants get an apply
// button under each entry.
func (b *BotService) listActiveConferences(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapViewConferences) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	conferences, err := b.conferences.GetActive()
	if err != nil {
		log.Printf("listActiveConferences: %v", err)
		b.send(chatID, "Не удалось загрузить список конференций.")
		return
	}

	if len(conferences) == 0 {
		b.send(chatID, "Активных конференций пока нет.")
		return
	}

	canApply := user.Role == db.RoleParticipant && b.gate.Allows(user, access.CapApplyToConference)
	canDelete := b.gate.Allows(user, access.CapDeleteConference)

	for i := range conferences {
		conf := &conferences[i]
		text := formatConference(conf)

		switch {
		case canApply:
			keyboard := tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Подать заявку", callbackData("select_conf", conf.ID)),
				),
			)
			b.sendWithKeyboard(chatID, text, keyboard)

		case canDelete:
			keyboard := tgbotapi.NewInlineKeyboardMarkup(
				tgbotapi.NewInlineKeyboardRow(
					tgbotapi.NewInlineKeyboardButtonData("Удалить", callbackData("admin_delete_conf", conf.ID)),
				),
			)
			b.sendWithKeyboard(chatID, text, keyboard)

		default:
			b.send(chatID, text)
		}
	}
}

func (b *BotService) showStats(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapViewStats) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	userCount, err := b.users.Count()
	if err != nil {
		log.Printf("showStats: %v", err)
		b.send(chatID, "Не удалось собрать статистику.")
		return
	}

	confCount, err := b.conferences.CountActive()
	if err != nil {
		log.Printf("showStats: %v", err)
		b.send(chatID, "Не удалось собрать статистику.")
		return
	}

	appCount, err := b.applications.Count()
	if err != nil {
		log.Printf("showStats: %v", err)
		b.send(chatID, "Не удалось собрать статистику.")
		return
	}

	b.send(chatID, fmt.Sprintf(
		"Статистика:\nПользователей: %d\nАктивных конференций: %d\nЗаявок: %d",
		userCount, confCount, appCount,
	))
}

func formatConference(conf *db.Conference) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "📌 %s (ID %d)\n", conf.Name, conf.ID)
	if conf.Description != nil && *conf.Description != "" {
		sb.WriteString(*conf.Description + "\n")
	}
	fmt.Fprintf(&sb, "Город: %s\n", conf.CityOrOnline())
	fmt.Fprintf(&sb, "Даты: %s\n", conf.DateRange())

	if conf.Fee > 0 {
		fmt.Fprintf(&sb, "Взнос: %s руб.", strconv.FormatFloat(conf.Fee, 'f', -1, 64))
	} else {
		sb.WriteString("Участие бесплатное.")
	}

	return sb.String()
}

func hasCallbackID(data, prefix string) bool {
	_, ok := callbackID(data, prefix)
	return ok
}

func senderName(message *tgbotapi.Message) string {
	if message.From == nil {
		return ""
	}

	name := message.From.FirstName
	if message.From.LastName != "" {
		name += " " + message.From.LastName
	}

	return name
}

func callbackSenderName(query *tgbotapi.CallbackQuery) string {
	name := query.From.FirstName
	if query.From.LastName != "" {
		name += " " + query.From.LastName
	}

	return name
}
