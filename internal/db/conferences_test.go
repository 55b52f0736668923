package db

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func conferenceRows(conferenceID, organizerID int64, name string) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "name", "description", "city", "date_start", "date_end", "fee",
			"qr_code_path", "poster_path", "is_active", "organizer_id", "created_at"}).
		AddRow(conferenceID, name, nil, nil, "2026-10-01", "2026-10-01", 0.0,
			nil, nil, true, organizerID, time.Now())
}

func TestConferenceRepository_DeleteWithReason(t *testing.T) {
	expectDeleteCascade := func(mock sqlmock.Sqlmock) {
		mock.ExpectQuery(`SELECT \* FROM conferences`).
			WithArgs(int64(42)).
			WillReturnRows(conferenceRows(42, 3, "MosMUN"))
		mock.ExpectQuery(`SELECT telegram_id FROM users`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(777)))
		mock.ExpectExec(`INSERT INTO deleted_conferences`).
			WithArgs("MosMUN", int64(777), int64(900), "дубликат").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`DELETE FROM applications`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectExec(`DELETE FROM conference_edit_requests`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`DELETE FROM conferences`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	t.Run("last conference demotes the organizer", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		expectDeleteCascade(mock)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conferences`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(RoleParticipant, int64(3), RoleOrganizer).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		repo := NewConferenceRepository(db)
		result, err := repo.DeleteWithReason(42, 900, "дубликат")

		require.NoError(t, err)
		assert.Equal(t, "MosMUN", result.ConferenceName)
		assert.Equal(t, int64(777), result.OrganizerTelegramID)
		assert.True(t, result.OrganizerDemoted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("remaining conferences keep the organizer role", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		expectDeleteCascade(mock)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conferences`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(2)))
		mock.ExpectCommit()

		repo := NewConferenceRepository(db)
		result, err := repo.DeleteWithReason(42, 900, "дубликат")

		require.NoError(t, err)
		assert.False(t, result.OrganizerDemoted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("owner who is no longer organizer is not marked demoted", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		expectDeleteCascade(mock)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM conferences`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(0)))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(RoleParticipant, int64(3), RoleOrganizer).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		repo := NewConferenceRepository(db)
		result, err := repo.DeleteWithReason(42, 900, "дубликат")

		require.NoError(t, err)
		assert.False(t, result.OrganizerDemoted)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing conference is reported as processed", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT \* FROM conferences`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		repo := NewConferenceRepository(db)
		_, err := repo.DeleteWithReason(42, 900, "дубликат")

		require.ErrorIs(t, err, ErrAlreadyProcessed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConference_Display(t *testing.T) {
	conf := Conference{DateStart: "2026-10-01", DateEnd: "2026-10-01"}
	assert.Equal(t, "2026-10-01", conf.DateRange())
	assert.Equal(t, "Онлайн", conf.CityOrOnline())

	conf.DateEnd = "2026-10-03"
	city := "Казань"
	conf.City = &city

	assert.Equal(t, "2026-10-01 — 2026-10-03", conf.DateRange())
	assert.Equal(t, "Казань", conf.CityOrOnline())
}
