package db

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// ErrAlreadyProcessed is returned when a decision targets a request whose
// status is no longer the expected one. Concurrent reviewers race on the
// conditional status update; the loser gets this instead of a duplicate
// side effect.
var ErrAlreadyProcessed = errors.New("request not found or already processed")

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)

// ConferencePayload is the proposed conference field set carried by creation
// and edit requests. Every field is optional so an edit request can carry
// only the changes.
type ConferencePayload struct {
	Name        *string  `json:"name,omitempty"`
	Description *string  `json:"description,omitempty"`
	City        *string  `json:"city,omitempty"`
	DateStart   *string  `json:"date_start,omitempty"`
	DateEnd     *string  `json:"date_end,omitempty"`
	Fee         *float64 `json:"fee,omitempty"`
	QRCodePath  *string  `json:"qr_code_path,omitempty"`
	PosterPath  *string  `json:"poster_path,omitempty"`
}

func (p ConferencePayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *ConferencePayload) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, p)
	case string:
		return json.Unmarshal([]byte(v), p)
	default:
		return fmt.Errorf("ConferencePayload.Scan: unsupported type %T", src)
	}
}

// ApplyTo overwrites conference fields present in the payload and leaves the
// rest untouched. Applying the same payload twice yields the same result.
func (p ConferencePayload) ApplyTo(conf *Conference) {
	if p.Name != nil {
		conf.Name = *p.Name
	}
	if p.Description != nil {
		conf.Description = p.Description
	}
	if p.City != nil {
		conf.City = p.City
	}
	if p.DateStart != nil {
		conf.DateStart = *p.DateStart
	}
	if p.DateEnd != nil {
		conf.DateEnd = *p.DateEnd
	}
	if p.Fee != nil {
		conf.Fee = *p.Fee
	}
	if p.QRCodePath != nil {
		conf.QRCodePath = p.QRCodePath
	}
	if p.PosterPath != nil {
		conf.PosterPath = p.PosterPath
	}
}

type ConferenceCreationRequest struct {
	ID             int64             `db:"id"`
	UserID         int64             `db:"user_id"`
	Data           ConferencePayload `db:"data"`
	Status         string            `db:"status"`
	Appeal         bool              `db:"appeal"`
	AppealResolved bool              `db:"appeal_resolved"`
	CreatedAt      time.Time         `db:"created_at"`
}

type ConferenceEditRequest struct {
	ID           int64             `db:"id"`
	ConferenceID int64             `db:"conference_id"`
	OrganizerID  int64             `db:"organizer_id"`
	Data         ConferencePayload `db:"data"`
	Status       string            `db:"status"`
	CreatedAt    time.Time         `db:"created_at"`
}

// Decision carries the identifiers the caller needs to notify the affected
// user after a request transition. Notification stays outside the
// transaction on purpose.
type Decision struct {
	RequestID          int64
	ConferenceID       int64
	ConferenceName     string
	RequesterTelegramID int64
}

type CreationRequestRepository struct {
	db *sqlx.DB
}

func NewCreationRequestRepository(db *sqlx.DB) *CreationRequestRepository {
	return &CreationRequestRepository{db: db}
}

func (r *CreationRequestRepository) Create(userID int64, data ConferencePayload) (int64, error) {
	var id int64

	err := r.db.Get(&id, `
	    INSERT INTO conference_creation_requests (user_id, data, status)
		VALUES ($1, $2, 'pending')
		RETURNING id
	`, userID, data)

	if err != nil {
		return 0, fmt.Errorf("CreationRequestRepository.Create: %w", err)
	}

	return id, nil
}

func (r *CreationRequestRepository) GetByID(requestID int64) (*ConferenceCreationRequest, error) {
	var req ConferenceCreationRequest

	err := r.db.Get(&req, `
	    SELECT * FROM conference_creation_requests
		WHERE id = $1
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.GetByID: %w", err)
	}

	return &req, nil
}

func (r *CreationRequestRepository) GetPending() ([]ConferenceCreationRequest, error) {
	var reqs []ConferenceCreationRequest

	err := r.db.Select(&reqs, `
	    SELECT * FROM conference_creation_requests
		WHERE status = 'pending'
		ORDER BY id ASC
	`)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.GetPending: %w", err)
	}

	return reqs, nil
}

func (r *CreationRequestRepository) GetAppealed() ([]ConferenceCreationRequest, error) {
	var reqs []ConferenceCreationRequest

	err := r.db.Select(&reqs, `
	    SELECT * FROM conference_creation_requests
		WHERE status = 'rejected' AND appeal = TRUE
		ORDER BY id ASC
	`)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.GetAppealed: %w", err)
	}

	return reqs, nil
}

// Approve transitions the request to approved, creates the proposed
// conference and promotes the requester to organizer, all in one
// transaction. fromAppeal selects the appealed-rejected precondition instead
// of pending. A request not in the expected state yields ErrAlreadyProcessed.
func (r *CreationRequestRepository) Approve(requestID int64, fromAppeal bool) (*Decision, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: %w", err)
	}
	defer tx.Rollback()

	cond := `status = 'pending'`
	if fromAppeal {
		cond = `status = 'rejected' AND appeal = TRUE`
	}

	var req ConferenceCreationRequest
	err = tx.Get(&req, `
	    UPDATE conference_creation_requests
		SET status = 'approved'
		WHERE id = $1 AND `+cond+`
		RETURNING *
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: %w", err)
	}

	data := req.Data
	name := ""
	if data.Name != nil {
		name = *data.Name
	}

	fee := 0.0
	if data.Fee != nil {
		fee = *data.Fee
	}

	dateStart, dateEnd := "", ""
	if data.DateStart != nil {
		dateStart = *data.DateStart
	}
	if data.DateEnd != nil {
		dateEnd = *data.DateEnd
	}

	var confID int64
	err = tx.Get(&confID, `
	    INSERT INTO conferences
		(name, description, city, date_start, date_end, fee, qr_code_path, poster_path, organizer_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)
		RETURNING id
	`, name, data.Description, data.City, dateStart, dateEnd, fee, data.QRCodePath, data.PosterPath, req.UserID)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: create conference: %w", err)
	}

	_, err = tx.Exec(`
	    UPDATE users
		SET role = $1, updated_at = CURRENT_TIMESTAMP
		WHERE id = $2
	`, RoleOrganizer, req.UserID)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: promote requester: %w", err)
	}

	var requesterTelegramID int64
	err = tx.Get(&requesterTelegramID, `
	    SELECT telegram_id FROM users
		WHERE id = $1
	`, req.UserID)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: load requester: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Approve: commit: %w", err)
	}

	return &Decision{
		RequestID:           requestID,
		ConferenceID:        confID,
		ConferenceName:      name,
		RequesterTelegramID: requesterTelegramID,
	}, nil
}

// Reject transitions a pending request to rejected. The requester may still
// appeal afterwards.
func (r *CreationRequestRepository) Reject(requestID int64) (*Decision, error) {
	var row struct {
		UserID int64             `db:"user_id"`
		Data   ConferencePayload `db:"data"`
	}

	err := r.db.Get(&row, `
	    UPDATE conference_creation_requests
		SET status = 'rejected'
		WHERE id = $1 AND status = 'pending'
		RETURNING user_id, data
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.Reject: %w", err)
	}

	return r.decisionFor(requestID, row.UserID, row.Data)
}

// SubmitAppeal raises the appeal flag on a rejected request. A request may
// be appealed once: the call yields ErrAlreadyProcessed while an appeal is
// pending or after it was resolved.
func (r *CreationRequestRepository) SubmitAppeal(requestID int64) error {
	res, err := r.db.Exec(`
	    UPDATE conference_creation_requests
		SET appeal = TRUE
		WHERE id = $1 AND status = 'rejected' AND appeal = FALSE AND appeal_resolved = FALSE
	`, requestID)

	if err != nil {
		return fmt.Errorf("CreationRequestRepository.SubmitAppeal: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("CreationRequestRepository.SubmitAppeal: %w", err)
	}

	if affected == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}

// RejectAppeal marks the appeal resolved; the request stays rejected and
// cannot be appealed again.
func (r *CreationRequestRepository) RejectAppeal(requestID int64) (*Decision, error) {
	var row struct {
		UserID int64             `db:"user_id"`
		Data   ConferencePayload `db:"data"`
	}

	err := r.db.Get(&row, `
	    UPDATE conference_creation_requests
		SET appeal = FALSE, appeal_resolved = TRUE
		WHERE id = $1 AND status = 'rejected' AND appeal = TRUE
		RETURNING user_id, data
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository.RejectAppeal: %w", err)
	}

	return r.decisionFor(requestID, row.UserID, row.Data)
}

func (r *CreationRequestRepository) decisionFor(requestID, userID int64, data ConferencePayload) (*Decision, error) {
	var telegramID int64

	err := r.db.Get(&telegramID, `
	    SELECT telegram_id FROM users
		WHERE id = $1
	`, userID)

	if err != nil {
		return nil, fmt.Errorf("CreationRequestRepository: load requester: %w", err)
	}

	name := ""
	if data.Name != nil {
		name = *data.Name
	}

	return &Decision{
		RequestID:           requestID,
		ConferenceName:      name,
		RequesterTelegramID: telegramID,
	}, nil
}

type EditRequestRepository struct {
	db *sqlx.DB
}

func NewEditRequestRepository(db *sqlx.DB) *EditRequestRepository {
	return &EditRequestRepository{db: db}
}

func (r *EditRequestRepository) Create(conferenceID, organizerID int64, data ConferencePayload) (int64, error) {
	var id int64

	err := r.db.Get(&id, `
	    INSERT INTO conference_edit_requests (conference_id, organizer_id, data, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id
	`, conferenceID, organizerID, data)

	if err != nil {
		return 0, fmt.Errorf("EditRequestRepository.Create: %w", err)
	}

	return id, nil
}

func (r *EditRequestRepository) GetPending() ([]ConferenceEditRequest, error) {
	var reqs []ConferenceEditRequest

	err := r.db.Select(&reqs, `
	    SELECT * FROM conference_edit_requests
		WHERE status = 'pending'
		ORDER BY id ASC
	`)

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.GetPending: %w", err)
	}

	return reqs, nil
}

// Approve applies the payload onto the target conference: present fields
// overwrite, absent fields stay. The status update is conditional on
// pending, so a second reviewer gets ErrAlreadyProcessed.
func (r *EditRequestRepository) Approve(requestID int64) (*Decision, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: %w", err)
	}
	defer tx.Rollback()

	var req ConferenceEditRequest
	err = tx.Get(&req, `
	    UPDATE conference_edit_requests
		SET status = 'approved'
		WHERE id = $1 AND status = 'pending'
		RETURNING *
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: %w", err)
	}

	var conf Conference
	err = tx.Get(&conf, `
	    SELECT * FROM conferences
		WHERE id = $1
	`, req.ConferenceID)

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: load conference: %w", err)
	}

	req.Data.ApplyTo(&conf)

	_, err = tx.Exec(`
	    UPDATE conferences
		SET name = $1, description = $2, city = $3, date_start = $4, date_end = $5,
		    fee = $6, qr_code_path = $7, poster_path = $8
		WHERE id = $9
	`, conf.Name, conf.Description, conf.City, conf.DateStart, conf.DateEnd,
		conf.Fee, conf.QRCodePath, conf.PosterPath, conf.ID)

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: apply changes: %w", err)
	}

	var organizerTelegramID int64
	err = tx.Get(&organizerTelegramID, `
	    SELECT telegram_id FROM users
		WHERE id = $1
	`, req.OrganizerID)

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: load organizer: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Approve: commit: %w", err)
	}

	return &Decision{
		RequestID:           requestID,
		ConferenceID:        conf.ID,
		ConferenceName:      conf.Name,
		RequesterTelegramID: organizerTelegramID,
	}, nil
}

func (r *EditRequestRepository) Reject(requestID int64) (*Decision, error) {
	var row struct {
		ConferenceID int64 `db:"conference_id"`
		OrganizerID  int64 `db:"organizer_id"`
	}

	err := r.db.Get(&row, `
	    UPDATE conference_edit_requests
		SET status = 'rejected'
		WHERE id = $1 AND status = 'pending'
		RETURNING conference_id, organizer_id
	`, requestID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAlreadyProcessed
	}

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Reject: %w", err)
	}

	var info struct {
		Name       string `db:"name"`
		TelegramID int64  `db:"telegram_id"`
	}

	err = r.db.Get(&info, `
	    SELECT c.name, u.telegram_id
		FROM conferences c, users u
		WHERE c.id = $1 AND u.id = $2
	`, row.ConferenceID, row.OrganizerID)

	if err != nil {
		return nil, fmt.Errorf("EditRequestRepository.Reject: load context: %w", err)
	}

	return &Decision{
		RequestID:           requestID,
		ConferenceID:        row.ConferenceID,
		ConferenceName:      info.Name,
		RequesterTelegramID: info.TelegramID,
	}, nil
}
