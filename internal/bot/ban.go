package bot

import (
	"fmt"
	"log"
	"strings"

	"github.com/AlekSi/pointer"

	"github.com/munhub/conference_bot/internal/access"
	"github.com/munhub/conference_bot/internal/db"
)

func (b *BotService) handleBanCommand(user *db.User, args string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapBanUsers) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	target, targetID := ParseTarget(args)
	if target == "" {
		b.send(chatID, "Использование: /ban <telegram id или имя>")
		return
	}

	victim, err := b.users.FindByTarget(target, targetID)
	if err != nil {
		log.Printf("handleBanCommand: %v", err)
		b.send(chatID, "Не удалось найти пользователя.")
		return
	}

	if victim == nil {
		b.send(chatID, "Пользователь не найден.")
		return
	}

	if victim.TelegramID == chatID {
		b.send(chatID, "Нельзя заблокировать самого себя.")
		return
	}

	if victim.IsBanned {
		b.send(chatID, fmt.Sprintf("%s уже заблокирован.", victim.DisplayName()))
		return
	}

	// Тех. специалист банит без указания причины.
	if b.gate.IsTechLead(chatID) || user.Role == db.RoleChiefTech {
		if err := b.users.SetBan(victim.ID, true, nil); err != nil {
			log.Printf("handleBanCommand: %v", err)
			b.send(chatID, "Не удалось заблокировать пользователя.")
			return
		}

		b.send(chatID, fmt.Sprintf("%s заблокирован.", victim.DisplayName()))
		b.send(victim.TelegramID, "Вы заблокированы.\nВы можете обратиться к тех. специалисту.")
		return
	}

	state := b.states.Set(chatID, StepBanReason)
	state.BanTarget = victim.DisplayName()
	state.BanTargetID = victim.ID

	b.sendPrompt(chatID, fmt.Sprintf("Укажите причину блокировки %s:", victim.DisplayName()))
}

func (b *BotService) finishBan(user *db.User, text string) {
	chatID := user.TelegramID
	state := b.states.Get(chatID)

	reason := strings.TrimSpace(text)
	if reason == "" {
		b.sendPrompt(chatID, "Причина не может быть пустой. Укажите причину блокировки:")
		return
	}

	targetID := state.BanTargetID
	targetName := state.BanTarget
	b.states.Clear(chatID)

	if err := b.users.SetBan(targetID, true, pointer.ToString(reason)); err != nil {
		log.Printf("finishBan: %v", err)
		b.sendMenu(chatID, "Не удалось заблокировать пользователя.", user.Role)
		return
	}

	b.sendMenu(chatID, fmt.Sprintf("%s заблокирован.", targetName), user.Role)

	if victim, err := b.users.GetByID(targetID); err == nil && victim != nil {
		b.send(victim.TelegramID, "Вы заблокированы.\nПричина: "+reason+
			"\nВы можете обратиться к тех. специалисту.")
	}
}

func (b *BotService) handleUnbanCommand(user *db.User, args string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapBanUsers) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	target, targetID := ParseTarget(args)
	if target == "" {
		b.send(chatID, "Использование: /unban <telegram id или имя>")
		return
	}

	victim, err := b.users.FindByTarget(target, targetID)
	if err != nil {
		log.Printf("handleUnbanCommand: %v", err)
		b.send(chatID, "Не удалось найти пользователя.")
		return
	}

	if victim == nil {
		b.send(chatID, "Пользователь не найден.")
		return
	}

	if !victim.IsBanned {
		b.send(chatID, fmt.Sprintf("%s не заблокирован.", victim.DisplayName()))
		return
	}

	if err := b.users.SetBan(victim.ID, false, nil); err != nil {
		log.Printf("handleUnbanCommand: %v", err)
		b.send(chatID, "Не удалось разблокировать пользователя.")
		return
	}

	b.send(chatID, fmt.Sprintf("%s разблокирован.", victim.DisplayName()))
	b.sendMenu(victim.TelegramID, "Вы разблокированы, доступ восстановлен.", victim.Role)
}

func (b *BotService) showBannedList(user *db.User) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapBanUsers) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	banned, err := b.users.GetBanned()
	if err != nil {
		log.Printf("showBannedList: %v", err)
		b.send(chatID, "Не удалось загрузить список.")
		return
	}

	if len(banned) == 0 {
		b.send(chatID, "Заблокированных пользователей нет.")
		return
	}

	var sb strings.Builder
	sb.WriteString("Заблокированные пользователи:\n")

	for i := range banned {
		u := &banned[i]

		reason := "не указана"
		if u.BanReason != nil && *u.BanReason != "" {
			reason = *u.BanReason
		}

		fmt.Fprintf(&sb, "• %s (ID %d) — %s\n", u.DisplayName(), u.TelegramID, reason)
	}

	b.send(chatID, sb.String())

	if b.gate.Allows(user, access.CapExportData) {
		path, err := b.exporter.BannedUsers()
		if err != nil {
			log.Printf("showBannedList: export: %v", err)
			return
		}

		b.sendDocument(chatID, path)
	}
}

func (b *BotService) handleSetRoleCommand(user *db.User, args string) {
	chatID := user.TelegramID

	if !b.gate.Allows(user, access.CapSetRoles) {
		b.send(chatID, "Недостаточно прав.")
		return
	}

	parts := strings.Fields(args)
	if len(parts) != 2 {
		b.send(chatID, "Использование: /set_role <telegram id или имя> <роль>")
		return
	}

	role := strings.ToLower(parts[1])
	if !db.IsValidRole(role) {
		b.send(chatID, "Неизвестная роль. Доступны: participant, organizer, admin, chief_admin, chief_tech.")
		return
	}

	target, targetID := ParseTarget(parts[0])

	subject, err := b.users.FindByTarget(target, targetID)
	if err != nil {
		log.Printf("handleSetRoleCommand: %v", err)
		b.send(chatID, "Не удалось найти пользователя.")
		return
	}

	if subject == nil {
		b.send(chatID, "Пользователь не найден.")
		return
	}

	if err := b.users.SetRole(subject.ID, role); err != nil {
		log.Printf("handleSetRoleCommand: %v", err)
		b.send(chatID, "Не удалось изменить роль.")
		return
	}

	title := db.RoleTitles[role]

	b.send(chatID, fmt.Sprintf("Роль %s изменена: %s.", subject.DisplayName(), title))
	b.sendMenu(subject.TelegramID, fmt.Sprintf("Ваша роль изменена: %s.", title), role)
}
