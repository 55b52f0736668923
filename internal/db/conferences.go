package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

type Conference struct {
	ID          int64     `db:"id"`
	Name        string    `db:"name"`
	Description *string   `db:"description"`
	City        *string   `db:"city"`
	DateStart   string    `db:"date_start"`
	DateEnd     string    `db:"date_end"`
	Fee         float64   `db:"fee"`
	QRCodePath  *string   `db:"qr_code_path"`
	PosterPath  *string   `db:"poster_path"`
	IsActive    bool      `db:"is_active"`
	OrganizerID int64     `db:"organizer_id"`
	CreatedAt   time.Time `db:"created_at"`
}

// CityOrOnline is the display fallback for conferences without a city.
func (c *Conference) CityOrOnline() string {
	if c.City != nil && *c.City != "" {
		return *c.City
	}
	return "Онлайн"
}

// DateRange renders the window; a single-day conference shows one date.
func (c *Conference) DateRange() string {
	if c.DateStart == c.DateEnd {
		return c.DateStart
	}
	return c.DateStart + " — " + c.DateEnd
}

type DeletedConference struct {
	ID                  int64     `db:"id"`
	ConferenceName      string    `db:"conference_name"`
	OrganizerTelegramID int64     `db:"organizer_telegram_id"`
	DeletedByTelegramID int64     `db:"deleted_by_telegram_id"`
	Reason              string    `db:"reason"`
	DeletedAt           time.Time `db:"deleted_at"`
}

// DeletionResult reports what a conference deletion did, for notifications.
type DeletionResult struct {
	ConferenceName      string
	OrganizerTelegramID int64
	OrganizerDemoted    bool
}

type ConferenceRepository struct {
	db *sqlx.DB
}

func NewConferenceRepository(db *sqlx.DB) *ConferenceRepository {
	return &ConferenceRepository{db: db}
}

func (r *ConferenceRepository) GetByID(conferenceID int64) (*Conference, error) {
	var conf Conference

	err := r.db.Get(&conf, `
	    SELECT * FROM conferences
		WHERE id = $1
	`, conferenceID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.GetByID: %w", err)
	}

	return &conf, nil
}

func (r *ConferenceRepository) GetActive() ([]Conference, error) {
	var confs []Conference

	err := r.db.Select(&confs, `
	    SELECT * FROM conferences
		WHERE is_active = TRUE
		ORDER BY id
	`)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.GetActive: %w", err)
	}

	return confs, nil
}

func (r *ConferenceRepository) GetByOrganizer(organizerID int64) ([]Conference, error) {
	var confs []Conference

	err := r.db.Select(&confs, `
	    SELECT * FROM conferences
		WHERE organizer_id = $1
		ORDER BY id
	`, organizerID)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.GetByOrganizer: %w", err)
	}

	return confs, nil
}

func (r *ConferenceRepository) CountByOrganizer(organizerID int64) (int64, error) {
	var count int64

	err := r.db.Get(&count, `
	    SELECT COUNT(*) FROM conferences
		WHERE organizer_id = $1
	`, organizerID)

	if err != nil {
		return 0, fmt.Errorf("ConferenceRepository.CountByOrganizer: %w", err)
	}

	return count, nil
}

func (r *ConferenceRepository) CountActive() (int64, error) {
	var count int64

	err := r.db.Get(&count, `
	    SELECT COUNT(*) FROM conferences
		WHERE is_active = TRUE
	`)

	if err != nil {
		return 0, fmt.Errorf("ConferenceRepository.CountActive: %w", err)
	}

	return count, nil
}

// DeleteWithReason removes the conference with its applications and pending
// edit requests, writes the audit tombstone and demotes the organizer back
// to participant when this was their last conference. One transaction.
func (r *ConferenceRepository) DeleteWithReason(conferenceID, deletedByTelegramID int64, reason string) (*DeletionResult, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: %w", err)
	}
	defer tx.Rollback()

	var conf Conference
	err = tx.Get(&conf, `
	    SELECT * FROM conferences
		WHERE id = $1
	`, conferenceID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: %w", err)
	}

	var organizerTelegramID int64
	err = tx.Get(&organizerTelegramID, `
	    SELECT telegram_id FROM users
		WHERE id = $1
	`, conf.OrganizerID)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: load organizer: %w", err)
	}

	_, err = tx.Exec(`
	    INSERT INTO deleted_conferences
		(conference_name, organizer_telegram_id, deleted_by_telegram_id, reason)
		VALUES ($1, $2, $3, $4)
	`, conf.Name, organizerTelegramID, deletedByTelegramID, reason)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: tombstone: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM applications WHERE conference_id = $1`, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: applications: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM conference_edit_requests WHERE conference_id = $1`, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: edit requests: %w", err)
	}

	_, err = tx.Exec(`DELETE FROM conferences WHERE id = $1`, conferenceID)
	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: %w", err)
	}

	var remaining int64
	err = tx.Get(&remaining, `
	    SELECT COUNT(*) FROM conferences
		WHERE organizer_id = $1
	`, conf.OrganizerID)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: count remaining: %w", err)
	}

	demoted := false
	if remaining == 0 {
		res, err := tx.Exec(`
		    UPDATE users
			SET role = $1, updated_at = CURRENT_TIMESTAMP
			WHERE id = $2 AND role = $3
		`, RoleParticipant, conf.OrganizerID, RoleOrganizer)

		if err != nil {
			return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: demote organizer: %w", err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: demote organizer: %w", err)
		}
		demoted = affected > 0
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("ConferenceRepository.DeleteWithReason: commit: %w", err)
	}

	return &DeletionResult{
		ConferenceName:      conf.Name,
		OrganizerTelegramID: organizerTelegramID,
		OrganizerDemoted:    demoted,
	}, nil
}

func (r *ConferenceRepository) GetDeleted() ([]DeletedConference, error) {
	var deleted []DeletedConference

	err := r.db.Select(&deleted, `
	    SELECT * FROM deleted_conferences
		ORDER BY id
	`)

	if err != nil {
		return nil, fmt.Errorf("ConferenceRepository.GetDeleted: %w", err)
	}

	return deleted, nil
}
