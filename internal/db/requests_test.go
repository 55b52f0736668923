package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return sqlx.NewDb(mockDB, "postgres"), mock
}

func creationRequestRows(requestID, userID int64, status string, appeal bool, data string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "data", "status", "appeal", "appeal_resolved", "created_at"}).
		AddRow(requestID, userID, []byte(data), status, appeal, false, time.Now())
}

func TestCreationRequestRepository_Approve(t *testing.T) {
	payload := `{"name":"MosMUN","date_start":"2026-10-01","date_end":"2026-10-03","fee":1500}`

	tests := []struct {
		name       string
		fromAppeal bool
		mock       func(mock sqlmock.Sqlmock)
		wantErr    error
		check      func(t *testing.T, decision *Decision)
	}{
		{
			name: "pending request creates conference and promotes requester",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE conference_creation_requests`).
					WithArgs(int64(7)).
					WillReturnRows(creationRequestRows(7, 3, RequestStatusApproved, false, payload))
				mock.ExpectQuery(`INSERT INTO conferences`).
					WithArgs("MosMUN", nil, nil, "2026-10-01", "2026-10-03", 1500.0, nil, nil, int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
				mock.ExpectExec(`UPDATE users`).
					WithArgs(RoleOrganizer, int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`SELECT telegram_id FROM users`).
					WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(111222333)))
				mock.ExpectCommit()
			},
			check: func(t *testing.T, decision *Decision) {
				assert.Equal(t, int64(7), decision.RequestID)
				assert.Equal(t, int64(42), decision.ConferenceID)
				assert.Equal(t, "MosMUN", decision.ConferenceName)
				assert.Equal(t, int64(111222333), decision.RequesterTelegramID)
			},
		},
		{
			name: "second reviewer sees already processed",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`UPDATE conference_creation_requests`).
					WithArgs(int64(7)).
					WillReturnError(sql.ErrNoRows)
				mock.ExpectRollback()
			},
			wantErr: ErrAlreadyProcessed,
		},
		{
			name:       "appeal approval uses the rejected precondition",
			fromAppeal: true,
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectQuery(`status = 'rejected' AND appeal = TRUE`).
					WithArgs(int64(7)).
					WillReturnRows(creationRequestRows(7, 3, RequestStatusApproved, true, payload))
				mock.ExpectQuery(`INSERT INTO conferences`).
					WithArgs("MosMUN", nil, nil, "2026-10-01", "2026-10-03", 1500.0, nil, nil, int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(43)))
				mock.ExpectExec(`UPDATE users`).
					WithArgs(RoleOrganizer, int64(3)).
					WillReturnResult(sqlmock.NewResult(0, 1))
				mock.ExpectQuery(`SELECT telegram_id FROM users`).
					WithArgs(int64(3)).
					WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(111222333)))
				mock.ExpectCommit()
			},
			check: func(t *testing.T, decision *Decision) {
				assert.Equal(t, int64(43), decision.ConferenceID)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.mock(mock)

			repo := NewCreationRequestRepository(db)
			decision, err := repo.Approve(7, tt.fromAppeal)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				tt.check(t, decision)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreationRequestRepository_Reject(t *testing.T) {
	t.Run("pending request is rejected with requester contact", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`UPDATE conference_creation_requests`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "data"}).
				AddRow(int64(9), []byte(`{"name":"SpbMUN"}`)))
		mock.ExpectQuery(`SELECT telegram_id FROM users`).
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(555)))

		repo := NewCreationRequestRepository(db)
		decision, err := repo.Reject(5)

		require.NoError(t, err)
		assert.Equal(t, "SpbMUN", decision.ConferenceName)
		assert.Equal(t, int64(555), decision.RequesterTelegramID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already decided request is reported as processed", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectQuery(`UPDATE conference_creation_requests`).
			WithArgs(int64(5)).
			WillReturnError(sql.ErrNoRows)

		repo := NewCreationRequestRepository(db)
		_, err := repo.Reject(5)

		require.ErrorIs(t, err, ErrAlreadyProcessed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCreationRequestRepository_SubmitAppeal(t *testing.T) {
	tests := []struct {
		name    string
		rows    int64
		wantErr error
	}{
		{name: "rejected request accepts an appeal", rows: 1},
		{name: "non-rejected request cannot be appealed", rows: 0, wantErr: ErrAlreadyProcessed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)

			mock.ExpectExec(`UPDATE conference_creation_requests`).
				WithArgs(int64(8)).
				WillReturnResult(sqlmock.NewResult(0, tt.rows))

			repo := NewCreationRequestRepository(db)
			err := repo.SubmitAppeal(8)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreationRequestRepository_AppealIsTerminalAfterRejection(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectExec(`appeal = FALSE AND appeal_resolved = FALSE`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SET appeal = FALSE, appeal_resolved = TRUE`).
		WithArgs(int64(8)).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "data"}).
			AddRow(int64(9), []byte(`{"name":"SpbMUN"}`)))
	mock.ExpectQuery(`SELECT telegram_id FROM users`).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(555)))
	// резолюция снимает заявку с апелляционного пути навсегда
	mock.ExpectExec(`appeal = FALSE AND appeal_resolved = FALSE`).
		WithArgs(int64(8)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewCreationRequestRepository(db)

	require.NoError(t, repo.SubmitAppeal(8))

	decision, err := repo.RejectAppeal(8)
	require.NoError(t, err)
	assert.Equal(t, int64(555), decision.RequesterTelegramID)

	require.ErrorIs(t, repo.SubmitAppeal(8), ErrAlreadyProcessed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEditRequestRepository_Approve(t *testing.T) {
	t.Run("partial payload only touches the fields it carries", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE conference_edit_requests`).
			WithArgs(int64(12)).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "conference_id", "organizer_id", "data", "status", "created_at"}).
				AddRow(int64(12), int64(42), int64(3), []byte(`{"city":"Казань","fee":2000}`), RequestStatusApproved, time.Now()))
		mock.ExpectQuery(`SELECT \* FROM conferences`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "name", "description", "city", "date_start", "date_end", "fee",
					"qr_code_path", "poster_path", "is_active", "organizer_id", "created_at"}).
				AddRow(int64(42), "MosMUN", "Большая конференция", nil, "2026-10-01", "2026-10-03",
					1500.0, nil, nil, true, int64(3), time.Now()))
		// untouched fields keep their stored values
		mock.ExpectExec(`UPDATE conferences`).
			WithArgs("MosMUN", "Большая конференция", "Казань", "2026-10-01", "2026-10-03",
				2000.0, nil, nil, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT telegram_id FROM users`).
			WithArgs(int64(3)).
			WillReturnRows(sqlmock.NewRows([]string{"telegram_id"}).AddRow(int64(777)))
		mock.ExpectCommit()

		repo := NewEditRequestRepository(db)
		decision, err := repo.Approve(12)

		require.NoError(t, err)
		assert.Equal(t, int64(42), decision.ConferenceID)
		assert.Equal(t, "MosMUN", decision.ConferenceName)
		assert.Equal(t, int64(777), decision.RequesterTelegramID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("processed request is not applied twice", func(t *testing.T) {
		db, mock := newMockDB(t)

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE conference_edit_requests`).
			WithArgs(int64(12)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		repo := NewEditRequestRepository(db)
		_, err := repo.Approve(12)

		require.ErrorIs(t, err, ErrAlreadyProcessed)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConferencePayload_ApplyTo(t *testing.T) {
	conf := Conference{
		Name:        "MosMUN",
		Description: pointer.ToString("Описание"),
		DateStart:   "2026-10-01",
		DateEnd:     "2026-10-03",
		Fee:         1500,
	}

	payload := ConferencePayload{
		City: pointer.ToString("Казань"),
		Fee:  pointer.ToFloat64(2000),
	}

	payload.ApplyTo(&conf)
	assert.Equal(t, "MosMUN", conf.Name)
	assert.Equal(t, "Казань", *conf.City)
	assert.Equal(t, 2000.0, conf.Fee)
	assert.Equal(t, "2026-10-01", conf.DateStart)

	// applying the same payload again changes nothing
	before := conf
	payload.ApplyTo(&conf)
	assert.Equal(t, before, conf)
}
