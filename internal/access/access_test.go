package access

import (
	"testing"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"

	"github.com/munhub/conference_bot/internal/db"
)

const (
	chiefAdminTgID = int64(100)
	techLeadTgID   = int64(200)
)

func newTestGate() *Gate {
	return NewGate([]int64{chiefAdminTgID}, techLeadTgID)
}

func userWith(role string, telegramID int64) *db.User {
	return &db.User{ID: 1, TelegramID: telegramID, Role: role}
}

func TestGate_RoleCapabilities(t *testing.T) {
	gate := newTestGate()

	tests := []struct {
		name string
		user *db.User
		cap  Capability
		want bool
	}{
		{"participant views conferences", userWith(db.RoleParticipant, 1), CapViewConferences, true},
		{"participant requests a conference", userWith(db.RoleParticipant, 1), CapRequestConference, true},
		{"organizer cannot request another conference", userWith(db.RoleOrganizer, 1), CapRequestConference, false},
		{"organizer manages own conferences", userWith(db.RoleOrganizer, 1), CapManageOwnConferences, true},
		{"participant does not manage conferences", userWith(db.RoleParticipant, 1), CapManageOwnConferences, false},
		{"admin reviews requests", userWith(db.RoleAdmin, 1), CapReviewRequests, true},
		{"admin cannot resolve appeals", userWith(db.RoleAdmin, 1), CapResolveAppeals, false},
		{"chief admin role alone does not resolve appeals", userWith(db.RoleChiefAdmin, 1), CapResolveAppeals, false},
		{"allow-listed chief admin resolves appeals", userWith(db.RoleChiefAdmin, chiefAdminTgID), CapResolveAppeals, true},
		{"admin deletes conferences", userWith(db.RoleAdmin, 1), CapDeleteConference, true},
		{"organizer does not delete conferences", userWith(db.RoleOrganizer, 1), CapDeleteConference, false},
		{"chief tech sets roles", userWith(db.RoleChiefTech, 1), CapSetRoles, true},
		{"tech lead id sets roles regardless of role", userWith(db.RoleParticipant, techLeadTgID), CapSetRoles, true},
		{"admin does not set roles", userWith(db.RoleAdmin, 1), CapSetRoles, false},
		{"chief admin pauses the bot", userWith(db.RoleChiefAdmin, chiefAdminTgID), CapPauseBot, true},
		{"chief tech pauses the bot", userWith(db.RoleChiefTech, 1), CapPauseBot, true},
		{"admin does not pause the bot", userWith(db.RoleAdmin, 1), CapPauseBot, false},
		{"chief tech sees the support queue", userWith(db.RoleChiefTech, 1), CapViewSupportQueue, true},
		{"chief admin does not see the support queue", userWith(db.RoleChiefAdmin, chiefAdminTgID), CapViewSupportQueue, false},
		{"chief admin exports data", userWith(db.RoleChiefAdmin, chiefAdminTgID), CapExportData, true},
		{"participant does not export data", userWith(db.RoleParticipant, 1), CapExportData, false},
		{"nil user is always denied", nil, CapViewConferences, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, gate.Allows(tt.user, tt.cap))
		})
	}
}

// A ban strips every capability except contacting support, independent of
// the role or the allow-lists.
func TestGate_BannedUser(t *testing.T) {
	gate := newTestGate()

	roles := []string{db.RoleParticipant, db.RoleOrganizer, db.RoleAdmin, db.RoleChiefAdmin, db.RoleChiefTech}
	caps := []Capability{
		CapViewConferences, CapApplyToConference, CapRequestConference,
		CapManageOwnConferences, CapReviewRequests, CapResolveAppeals,
		CapDeleteConference, CapBanUsers, CapSetRoles, CapPauseBot,
		CapViewSupportQueue, CapExportData, CapViewStats,
	}

	for _, role := range roles {
		user := userWith(role, chiefAdminTgID)
		user.IsBanned = true
		user.BanReason = pointer.ToString("нарушение правил")

		for _, cap := range caps {
			assert.Falsef(t, gate.Allows(user, cap), "role %s capability %d", role, cap)
		}

		assert.True(t, gate.Allows(user, CapContactSupport), "role %s keeps support access", role)
	}
}
