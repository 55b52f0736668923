package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	SupportPending  = "pending"
	SupportResolved = "resolved"
)

type SupportRequest struct {
	ID             int64     `db:"id"`
	UserID         int64     `db:"user_id"`
	Message        string    `db:"message"`
	ScreenshotPath *string   `db:"screenshot_path"`
	Status         string    `db:"status"`
	Response       *string   `db:"response"`
	CreatedAt      time.Time `db:"created_at"`
}

type SupportRequestView struct {
	SupportRequest
	UserTelegramID int64   `db:"user_telegram_id"`
	UserName       *string `db:"user_name"`
}

func (v *SupportRequestView) DisplayName() string {
	if v.UserName != nil && *v.UserName != "" {
		return *v.UserName
	}
	return fmt.Sprintf("ID %d", v.UserTelegramID)
}

type SupportRepository struct {
	db *sqlx.DB
}

func NewSupportRepository(db *sqlx.DB) *SupportRepository {
	return &SupportRepository{db: db}
}

func (r *SupportRepository) Create(userID int64, message string, screenshotPath *string) (int64, error) {
	var id int64

	err := r.db.Get(&id, `
	    INSERT INTO support_requests (user_id, message, screenshot_path, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id
	`, userID, message, screenshotPath)

	if err != nil {
		return 0, fmt.Errorf("SupportRepository.Create: %w", err)
	}

	return id, nil
}

func (r *SupportRepository) GetAll() ([]SupportRequestView, error) {
	var reqs []SupportRequestView

	err := r.db.Select(&reqs, `
	    SELECT s.*, u.telegram_id AS user_telegram_id, u.full_name AS user_name
		FROM support_requests s
		JOIN users u ON u.id = s.user_id
		ORDER BY s.id ASC
	`)

	if err != nil {
		return nil, fmt.Errorf("SupportRepository.GetAll: %w", err)
	}

	return reqs, nil
}

// Resolve stores the response and closes the request. A request that is
// already resolved stays untouched and yields ErrAlreadyProcessed; no
// further transition is defined after that.
func (r *SupportRepository) Resolve(requestID int64, response string) (*SupportRequestView, error) {
	var row struct {
		UserID  int64  `db:"user_id"`
		Message string `db:"message"`
	}

	err := r.db.Get(&row, `
	    UPDATE support_requests
		SET status = 'resolved', response = $1
		WHERE id = $2 AND status = 'pending'
		RETURNING user_id, message
	`, response, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("SupportRepository.Resolve: %w", err)
	}

	var view SupportRequestView
	err = r.db.Get(&view, `
	    SELECT s.*, u.telegram_id AS user_telegram_id, u.full_name AS user_name
		FROM support_requests s
		JOIN users u ON u.id = s.user_id
		WHERE s.id = $1
	`, requestID)

	if err != nil {
		return nil, fmt.Errorf("SupportRepository.Resolve: load request: %w", err)
	}

	return &view, nil
}
