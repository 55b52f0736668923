// Package export renders bot data into CSV files for operators.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/munhub/conference_bot/internal/db"
)

type Exporter struct {
	dir          string
	users        *db.UserRepository
	conferences  *db.ConferenceRepository
	applications *db.ApplicationRepository
	support      *db.SupportRepository
}

func NewExporter(dir string, users *db.UserRepository, conferences *db.ConferenceRepository,
	applications *db.ApplicationRepository, support *db.SupportRepository) (*Exporter, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("Exporter: cannot create dir %s: %w", dir, err)
	}

	return &Exporter{
		dir:          dir,
		users:        users,
		conferences:  conferences,
		applications: applications,
		support:      support,
	}, nil
}

// BannedUsers writes the ban list with reasons and returns the file path.
func (e *Exporter) BannedUsers() (string, error) {
	users, err := e.users.GetBanned()
	if err != nil {
		return "", fmt.Errorf("Exporter.BannedUsers: %w", err)
	}

	rows := [][]string{{"telegram_id", "name", "reason"}}
	for i := range users {
		u := &users[i]
		rows = append(rows, []string{
			strconv.FormatInt(u.TelegramID, 10),
			u.DisplayName(),
			derefOr(u.BanReason, ""),
		})
	}

	return e.writeCSV("banned_users", rows)
}

// SupportRequests writes the full support queue, resolved entries included.
func (e *Exporter) SupportRequests() (string, error) {
	requests, err := e.support.GetAll()
	if err != nil {
		return "", fmt.Errorf("Exporter.SupportRequests: %w", err)
	}

	rows := [][]string{{"id", "telegram_id", "name", "message", "status", "response", "created_at"}}
	for i := range requests {
		r := &requests[i]
		rows = append(rows, []string{
			strconv.FormatInt(r.ID, 10),
			strconv.FormatInt(r.UserTelegramID, 10),
			r.DisplayName(),
			r.Message,
			r.Status,
			derefOr(r.Response, ""),
			r.CreatedAt.Format(time.RFC3339),
		})
	}

	return e.writeCSV("support_requests", rows)
}

// Participants writes every application across all active conferences.
func (e *Exporter) Participants() (string, error) {
	conferences, err := e.conferences.GetActive()
	if err != nil {
		return "", fmt.Errorf("Exporter.Participants: %w", err)
	}

	rows := [][]string{{"conference", "telegram_id", "name", "age", "email", "institution", "committee", "status"}}
	for i := range conferences {
		applications, err := e.applications.GetByConference(conferences[i].ID)
		if err != nil {
			return "", fmt.Errorf("Exporter.Participants: %w", err)
		}

		for j := range applications {
			a := &applications[j]
			age := ""
			if a.ApplicantAge != nil {
				age = strconv.Itoa(*a.ApplicantAge)
			}

			rows = append(rows, []string{
				a.ConferenceName,
				strconv.FormatInt(a.ApplicantTelegramID, 10),
				derefOr(a.ApplicantName, ""),
				age,
				derefOr(a.ApplicantEmail, ""),
				derefOr(a.Institution, ""),
				derefOr(a.Committee, ""),
				a.Status,
			})
		}
	}

	return e.writeCSV("participants", rows)
}

// DeletedConferences writes the deletion log.
func (e *Exporter) DeletedConferences() (string, error) {
	deleted, err := e.conferences.GetDeleted()
	if err != nil {
		return "", fmt.Errorf("Exporter.DeletedConferences: %w", err)
	}

	rows := [][]string{{"conference", "organizer_telegram_id", "deleted_by", "reason", "deleted_at"}}
	for i := range deleted {
		d := &deleted[i]
		rows = append(rows, []string{
			d.ConferenceName,
			strconv.FormatInt(d.OrganizerTelegramID, 10),
			strconv.FormatInt(d.DeletedByTelegramID, 10),
			d.Reason,
			d.DeletedAt.Format(time.RFC3339),
		})
	}

	return e.writeCSV("deleted_conferences", rows)
}

func (e *Exporter) writeCSV(name string, rows [][]string) (string, error) {
	path := filepath.Join(e.dir, fmt.Sprintf("%s_%s.csv", name, time.Now().Format("20060102_150405")))

	out, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("Exporter.writeCSV: cannot create file: %w", err)
	}
	defer out.Close()

	w := csv.NewWriter(out)
	if err := w.WriteAll(rows); err != nil {
		return "", fmt.Errorf("Exporter.writeCSV: %w", err)
	}

	return path, nil
}

func derefOr(s *string, fallback string) string {
	if s != nil {
		return *s
	}
	return fallback
}
