package export

import (
	"encoding/csv"
	"os"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/munhub/conference_bot/internal/db"
)

func TestExporter_BannedUsers(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	conn := sqlx.NewDb(mockDB, "postgres")
	users := db.NewUsersRepository(conn, nil, 0)

	mock.ExpectQuery(`SELECT \* FROM users`).
		WillReturnRows(sqlmock.NewRows(
			[]string{"id", "telegram_id", "full_name", "role", "is_banned", "ban_reason",
				"age", "email", "institution", "experience", "created_at", "updated_at"}).
			AddRow(int64(1), int64(555), "Иван Петров", db.RoleParticipant, true, "спам",
				nil, nil, nil, nil, time.Now(), time.Now()).
			AddRow(int64(2), int64(556), nil, db.RoleParticipant, true, nil,
				nil, nil, nil, nil, time.Now(), time.Now()))

	exporter, err := NewExporter(t.TempDir(), users, nil, nil, nil)
	require.NoError(t, err)

	path, err := exporter.BannedUsers()
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, rows, 3)
	assert.Equal(t, []string{"telegram_id", "name", "reason"}, rows[0])
	assert.Equal(t, []string{"555", "Иван Петров", "спам"}, rows[1])

	// a user without a profile falls back to the telegram id
	assert.Equal(t, []string{"556", "ID 556", ""}, rows[2])
}
