package db

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const (
	ApplicationPending        = "pending"
	ApplicationApproved       = "approved"
	ApplicationRejected       = "rejected"
	ApplicationPaymentPending = "payment_pending"
	ApplicationPaymentSent    = "payment_sent"
	ApplicationConfirmed      = "confirmed"
	ApplicationLinkSent       = "link_sent"
)

// CurrentStatuses are the statuses an organizer still has to act on;
// everything else is archive.
var CurrentStatuses = []string{
	ApplicationPending,
	ApplicationPaymentPending,
	ApplicationPaymentSent,
	ApplicationConfirmed,
}

var ArchiveStatuses = []string{
	ApplicationApproved,
	ApplicationRejected,
	ApplicationLinkSent,
}

// BroadcastStatuses are the applicants an organizer broadcast reaches.
var BroadcastStatuses = []string{
	ApplicationApproved,
	ApplicationPaymentPending,
	ApplicationPaymentSent,
	ApplicationConfirmed,
	ApplicationLinkSent,
}

type Application struct {
	ID                int64     `db:"id"`
	UserID            int64     `db:"user_id"`
	ConferenceID      int64     `db:"conference_id"`
	Committee         *string   `db:"committee"`
	Status            string    `db:"status"`
	PaymentScreenshot *string   `db:"payment_screenshot"`
	RejectReason      *string   `db:"reject_reason"`
	CreatedAt         time.Time `db:"created_at"`
}

// ApplicationView joins the applicant profile and conference name for
// listing and export.
type ApplicationView struct {
	Application
	ConferenceName      string  `db:"conference_name"`
	ApplicantTelegramID int64   `db:"applicant_telegram_id"`
	ApplicantName       *string `db:"applicant_name"`
	ApplicantAge        *int    `db:"applicant_age"`
	ApplicantEmail      *string `db:"applicant_email"`
	Institution         *string `db:"applicant_institution"`
	Experience          *string `db:"applicant_experience"`
}

type ApplicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepository(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(userID, conferenceID int64, committee string) (int64, error) {
	var id int64

	err := r.db.Get(&id, `
	    INSERT INTO applications (user_id, conference_id, committee, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING id
	`, userID, conferenceID, committee)

	if err != nil {
		return 0, fmt.Errorf("ApplicationRepository.Create: %w", err)
	}

	return id, nil
}

func (r *ApplicationRepository) GetByID(applicationID int64) (*Application, error) {
	var app Application

	err := r.db.Get(&app, `
	    SELECT * FROM applications
		WHERE id = $1
	`, applicationID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetByID: %w", err)
	}

	return &app, nil
}

const applicationViewQuery = `
    SELECT a.id, a.user_id, a.conference_id, a.committee, a.status,
	       a.payment_screenshot, a.reject_reason, a.created_at,
	       c.name AS conference_name,
	       u.telegram_id AS applicant_telegram_id,
	       u.full_name AS applicant_name,
	       u.age AS applicant_age,
	       u.email AS applicant_email,
	       u.institution AS applicant_institution,
	       u.experience AS applicant_experience
	FROM applications a
	JOIN conferences c ON c.id = a.conference_id
	JOIN users u ON u.id = a.user_id
`

// GetForOrganizer lists applications to any of the organizer's conferences
// filtered by status, in creation order.
func (r *ApplicationRepository) GetForOrganizer(organizerID int64, statuses []string) ([]ApplicationView, error) {
	query, args, err := sqlx.In(applicationViewQuery+`
	    WHERE c.organizer_id = ? AND a.status IN (?)
		ORDER BY a.id ASC
	`, organizerID, statuses)

	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetForOrganizer: %w", err)
	}

	var apps []ApplicationView
	err = r.db.Select(&apps, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetForOrganizer: %w", err)
	}

	return apps, nil
}

func (r *ApplicationRepository) GetByConference(conferenceID int64) ([]ApplicationView, error) {
	var apps []ApplicationView

	err := r.db.Select(&apps, applicationViewQuery+`
	    WHERE a.conference_id = $1
		ORDER BY a.id ASC
	`, conferenceID)

	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetByConference: %w", err)
	}

	return apps, nil
}

// GetAwaitingPayment returns the participant's oldest application waiting
// for a payment screenshot, or nil.
func (r *ApplicationRepository) GetAwaitingPayment(telegramID int64) (*Application, error) {
	var app Application

	err := r.db.Get(&app, `
	    SELECT a.* FROM applications a
		JOIN users u ON u.id = a.user_id
		WHERE u.telegram_id = $1 AND a.status = 'payment_pending'
		ORDER BY a.id ASC
		LIMIT 1
	`, telegramID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("ApplicationRepository.GetAwaitingPayment: %w", err)
	}

	return &app, nil
}

func (r *ApplicationRepository) Approve(applicationID int64) error {
	return r.transition(applicationID, "ApplicationRepository.Approve", `
	    UPDATE applications
		SET status = 'approved'
		WHERE id = $1 AND status = 'pending'
	`)
}

func (r *ApplicationRepository) Reject(applicationID int64, reason string) error {
	res, err := r.db.Exec(`
	    UPDATE applications
		SET status = 'rejected', reject_reason = $1
		WHERE id = $2 AND status = 'pending'
	`, reason, applicationID)

	if err != nil {
		return fmt.Errorf("ApplicationRepository.Reject: %w", err)
	}

	return checkAffected(res, "ApplicationRepository.Reject")
}

// Confirm moves an approved application to payment_pending for a paid
// conference or straight to confirmed for a free one.
func (r *ApplicationRepository) Confirm(applicationID int64, paid bool) error {
	next := ApplicationConfirmed
	if paid {
		next = ApplicationPaymentPending
	}

	res, err := r.db.Exec(`
	    UPDATE applications
		SET status = $1
		WHERE id = $2 AND status = 'approved'
	`, next, applicationID)

	if err != nil {
		return fmt.Errorf("ApplicationRepository.Confirm: %w", err)
	}

	return checkAffected(res, "ApplicationRepository.Confirm")
}

func (r *ApplicationRepository) AttachPaymentScreenshot(applicationID int64, path string) error {
	res, err := r.db.Exec(`
	    UPDATE applications
		SET status = 'payment_sent', payment_screenshot = $1
		WHERE id = $2 AND status = 'payment_pending'
	`, path, applicationID)

	if err != nil {
		return fmt.Errorf("ApplicationRepository.AttachPaymentScreenshot: %w", err)
	}

	return checkAffected(res, "ApplicationRepository.AttachPaymentScreenshot")
}

// MarkLinkSent closes the application after the organizer has verified
// payment (or free participation) and sent the committee chat link.
func (r *ApplicationRepository) MarkLinkSent(applicationID int64) error {
	res, err := r.db.Exec(`
	    UPDATE applications
		SET status = 'link_sent'
		WHERE id = $1 AND status IN ('payment_sent', 'confirmed')
	`, applicationID)

	if err != nil {
		return fmt.Errorf("ApplicationRepository.MarkLinkSent: %w", err)
	}

	return checkAffected(res, "ApplicationRepository.MarkLinkSent")
}

func (r *ApplicationRepository) Count() (int64, error) {
	var count int64

	err := r.db.Get(&count, `SELECT COUNT(*) FROM applications`)
	if err != nil {
		return 0, fmt.Errorf("ApplicationRepository.Count: %w", err)
	}

	return count, nil
}

func (r *ApplicationRepository) transition(applicationID int64, op, query string) error {
	res, err := r.db.Exec(query, applicationID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return checkAffected(res, op)
}

func checkAffected(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if affected == 0 {
		return ErrAlreadyProcessed
	}

	return nil
}
