// Package access evaluates capability gates: every operation declares the
// capability it needs and the gate answers from the user's role plus the
// configured identity allow-lists.
package access

import (
	"github.com/munhub/conference_bot/internal/db"
)

type Capability int

const (
	CapViewConferences Capability = iota
	CapApplyToConference
	CapRequestConference
	CapManageOwnConferences
	CapReviewRequests
	CapResolveAppeals
	CapDeleteConference
	CapBanUsers
	CapSetRoles
	CapPauseBot
	CapViewSupportQueue
	CapExportData
	CapViewStats
	CapContactSupport
)

type Gate struct {
	chiefAdminIDs map[int64]bool
	techLeadID    int64
}

func NewGate(chiefAdminIDs []int64, techLeadID int64) *Gate {
	chiefs := make(map[int64]bool, len(chiefAdminIDs))
	for _, id := range chiefAdminIDs {
		chiefs[id] = true
	}

	return &Gate{
		chiefAdminIDs: chiefs,
		techLeadID:    techLeadID,
	}
}

func (g *Gate) IsChiefAdmin(telegramID int64) bool {
	return g.chiefAdminIDs[telegramID]
}

func (g *Gate) IsTechLead(telegramID int64) bool {
	return telegramID == g.techLeadID
}

// Allows reports whether the user may perform an operation requiring cap.
// A banned user passes only the support gate, checked before anything else.
func (g *Gate) Allows(user *db.User, cap Capability) bool {
	if user == nil {
		return false
	}

	if user.IsBanned {
		return cap == CapContactSupport
	}

	switch cap {
	case CapViewConferences, CapApplyToConference, CapContactSupport:
		return true

	case CapRequestConference:
		return user.Role == db.RoleParticipant

	case CapManageOwnConferences:
		return user.Role == db.RoleOrganizer

	case CapReviewRequests:
		return user.Role == db.RoleAdmin || user.Role == db.RoleChiefAdmin ||
			g.IsChiefAdmin(user.TelegramID)

	case CapResolveAppeals:
		return g.IsChiefAdmin(user.TelegramID)

	case CapDeleteConference:
		return user.Role == db.RoleAdmin || user.Role == db.RoleChiefAdmin ||
			user.Role == db.RoleChiefTech

	case CapBanUsers:
		return user.Role == db.RoleAdmin || user.Role == db.RoleChiefAdmin ||
			user.Role == db.RoleChiefTech

	case CapSetRoles:
		return user.Role == db.RoleChiefTech || g.IsTechLead(user.TelegramID)

	case CapPauseBot:
		return g.IsChiefAdmin(user.TelegramID) || user.Role == db.RoleChiefTech

	case CapViewSupportQueue:
		return user.Role == db.RoleChiefTech

	case CapExportData:
		return user.Role == db.RoleChiefTech || g.IsChiefAdmin(user.TelegramID)

	case CapViewStats:
		return user.Role == db.RoleAdmin || user.Role == db.RoleChiefAdmin ||
			user.Role == db.RoleChiefTech

	default:
		return false
	}
}
