package db

import (
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// BotStatus is the single-row maintenance switch. While paused, the bot
// serves only the identities allowed to resume it.
type BotStatus struct {
	ID          int16     `db:"id"`
	IsPaused    bool      `db:"is_paused"`
	PauseReason *string   `db:"pause_reason"`
	PausedBy    *int64    `db:"paused_by"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type BotStatusRepository struct {
	db *sqlx.DB
}

func NewBotStatusRepository(db *sqlx.DB) *BotStatusRepository {
	return &BotStatusRepository{db: db}
}

func (r *BotStatusRepository) Get() (*BotStatus, error) {
	var status BotStatus

	err := r.db.Get(&status, `
	    SELECT * FROM bot_status
		WHERE id = 1
	`)

	if err != nil {
		return nil, fmt.Errorf("BotStatusRepository.Get: %w", err)
	}

	return &status, nil
}

func (r *BotStatusRepository) SetPaused(paused bool, reason *string, byTelegramID int64) error {
	_, err := r.db.Exec(`
	    UPDATE bot_status
		SET is_paused = $1, pause_reason = $2, paused_by = $3, updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
	`, paused, reason, byTelegramID)

	if err != nil {
		return fmt.Errorf("BotStatusRepository.SetPaused: %w", err)
	}

	return nil
}
