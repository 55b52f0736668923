package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	RoleParticipant = "participant"
	RoleOrganizer   = "organizer"
	RoleAdmin       = "admin"
	RoleChiefAdmin  = "chief_admin"
	RoleChiefTech   = "chief_tech"
)

// RoleTitles maps stored role values to what users see in the chat.
var RoleTitles = map[string]string{
	RoleParticipant: "Участник",
	RoleOrganizer:   "Организатор",
	RoleAdmin:       "Админ",
	RoleChiefAdmin:  "Главный Админ",
	RoleChiefTech:   "Глав Тех Специалист",
}

func IsValidRole(role string) bool {
	_, ok := RoleTitles[role]
	return ok
}

type User struct {
	ID          int64     `db:"id"`
	TelegramID  int64     `db:"telegram_id"`
	FullName    *string   `db:"full_name"`
	Role        string    `db:"role"`
	IsBanned    bool      `db:"is_banned"`
	BanReason   *string   `db:"ban_reason"`
	Age         *int      `db:"age"`
	Email       *string   `db:"email"`
	Institution *string   `db:"institution"`
	Experience  *string   `db:"experience"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// DisplayName returns the profile name or the telegram id as a fallback.
func (u *User) DisplayName() string {
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	return fmt.Sprintf("ID %d", u.TelegramID)
}

type UserRepository struct {
	db            *sqlx.DB
	chiefAdminIDs map[int64]bool
	techLeadID    int64
}

func NewUsersRepository(db *sqlx.DB, chiefAdminIDs []int64, techLeadID int64) *UserRepository {
	chiefs := make(map[int64]bool, len(chiefAdminIDs))
	for _, id := range chiefAdminIDs {
		chiefs[id] = true
	}

	return &UserRepository{
		db:            db,
		chiefAdminIDs: chiefs,
		techLeadID:    techLeadID,
	}
}

// GetOrCreate loads the user by telegram id, creating a participant row on
// first contact. Identities on the chief-admin allow-list and the tech lead
// are re-escalated on every load.
func (r *UserRepository) GetOrCreate(telegramID int64, fullName string) (*User, error) {
	var user User

	err := r.db.Get(&user, `
	    SELECT * FROM users
		WHERE telegram_id = $1
	`, telegramID)

	if errors.Is(err, sql.ErrNoRows) {
		err = r.db.Get(&user, `
		    INSERT INTO users (telegram_id, full_name, role)
			VALUES ($1, NULLIF($2, ''), $3)
			ON CONFLICT (telegram_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
			RETURNING *
		`, telegramID, fullName, RoleParticipant)
	}

	if err != nil {
		return nil, fmt.Errorf("UserRepository.GetOrCreate: %w", err)
	}

	role := user.Role
	if r.chiefAdminIDs[telegramID] {
		role = RoleChiefAdmin
	}
	if telegramID == r.techLeadID {
		role = RoleChiefTech
	}

	if role != user.Role {
		if err := r.SetRole(user.ID, role); err != nil {
			return nil, fmt.Errorf("UserRepository.GetOrCreate: %w", err)
		}
		user.Role = role
	}

	return &user, nil
}

func (r *UserRepository) GetByID(userID int64) (*User, error) {
	var user User

	err := r.db.Get(&user, `
	    SELECT * FROM users
		WHERE id = $1
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("UserRepository.GetByID: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) GetByTelegramID(telegramID int64) (*User, error) {
	var user User

	err := r.db.Get(&user, `
	    SELECT * FROM users
		WHERE telegram_id = $1
	`, telegramID)

	if err != nil {
		return nil, fmt.Errorf("UserRepository.GetByTelegramID: %w", err)
	}

	return &user, nil
}

// FindByTarget resolves an operator-supplied target: a numeric string is a
// telegram id, anything else matches against the profile name.
func (r *UserRepository) FindByTarget(target string, targetID int64) (*User, error) {
	var user User
	var err error

	if targetID != 0 {
		err = r.db.Get(&user, `SELECT * FROM users WHERE telegram_id = $1`, targetID)
	} else {
		err = r.db.Get(&user, `SELECT * FROM users WHERE full_name ILIKE $1 LIMIT 1`, "%"+target+"%")
	}

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("UserRepository.FindByTarget: %w", err)
	}

	return &user, nil
}

// UpdateProfile stores the fields collected by the registration form.
func (r *UserRepository) UpdateProfile(userID int64, fullName string, age int, email, institution, experience string) error {
	_, err := r.db.Exec(`
	    UPDATE users
		SET full_name = $1, age = $2, email = $3, institution = $4, experience = $5,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
	`, fullName, age, email, institution, experience, userID)

	if err != nil {
		return fmt.Errorf("UserRepository.UpdateProfile: %w", err)
	}

	return nil
}

func (r *UserRepository) SetRole(userID int64, role string) error {
	_, err := r.db.Exec(`
	    UPDATE users
		SET role = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, role, userID)

	if err != nil {
		return fmt.Errorf("UserRepository.SetRole: %w", err)
	}

	return nil
}

func (r *UserRepository) SetBan(userID int64, banned bool, reason *string) error {
	_, err := r.db.Exec(`
	    UPDATE users
		SET is_banned = $1, ban_reason = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $3
	`, banned, reason, userID)

	if err != nil {
		return fmt.Errorf("UserRepository.SetBan: %w", err)
	}

	return nil
}

func (r *UserRepository) GetBanned() ([]User, error) {
	var users []User

	err := r.db.Select(&users, `
	    SELECT * FROM users
		WHERE is_banned = TRUE
		ORDER BY id
	`)

	if err != nil {
		return nil, fmt.Errorf("UserRepository.GetBanned: %w", err)
	}

	return users, nil
}

// AdminTelegramIDs returns the ids that get notified about new creation
// requests: every stored admin/chief-admin plus the configured allow-list.
func (r *UserRepository) AdminTelegramIDs() ([]int64, error) {
	var ids []int64

	err := r.db.Select(&ids, `
	    SELECT telegram_id FROM users
		WHERE role IN ($1, $2)
	`, RoleAdmin, RoleChiefAdmin)

	if err != nil {
		return nil, fmt.Errorf("UserRepository.AdminTelegramIDs: %w", err)
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	for id := range r.chiefAdminIDs {
		if !seen[id] {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

func (r *UserRepository) Count() (int64, error) {
	var count int64

	err := r.db.Get(&count, `SELECT COUNT(*) FROM users`)
	if err != nil {
		return 0, fmt.Errorf("UserRepository.Count: %w", err)
	}

	return count, nil
}

func (r *UserRepository) GetAll() ([]User, error) {
	var users []User

	err := r.db.Select(&users, `SELECT * FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("UserRepository.GetAll: %w", err)
	}

	return users, nil
}
