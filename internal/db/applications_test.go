package db

import (
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestApplicationRepository_Transitions(t *testing.T) {
	tests := []struct {
		name    string
		run     func(repo *ApplicationRepository) error
		mock    func(mock sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "pending application is approved once",
			run:  func(repo *ApplicationRepository) error { return repo.Approve(5) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs(int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "approving twice reports already processed",
			run:  func(repo *ApplicationRepository) error { return repo.Approve(5) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs(int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrAlreadyProcessed,
		},
		{
			name: "rejecting stores the reason",
			run:  func(repo *ApplicationRepository) error { return repo.Reject(5, "нет мест") },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs("нет мест", int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "confirming a paid conference waits for payment",
			run:  func(repo *ApplicationRepository) error { return repo.Confirm(5, true) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs(ApplicationPaymentPending, int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "confirming a free conference closes payment at once",
			run:  func(repo *ApplicationRepository) error { return repo.Confirm(5, false) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs(ApplicationConfirmed, int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
		{
			name: "screenshot attaches only while payment is pending",
			run: func(repo *ApplicationRepository) error {
				return repo.AttachPaymentScreenshot(5, "doc_files/payments/a.jpg")
			},
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs("doc_files/payments/a.jpg", int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 0))
			},
			wantErr: ErrAlreadyProcessed,
		},
		{
			name: "link is sent after payment check",
			run:  func(repo *ApplicationRepository) error { return repo.MarkLinkSent(5) },
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`UPDATE applications`).
					WithArgs(int64(5)).
					WillReturnResult(sqlmock.NewResult(0, 1))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tt.mock(mock)

			repo := NewApplicationRepository(db)
			err := tt.run(repo)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}
