package db

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func userRows(userID, telegramID int64, name, role string) *sqlmock.Rows {
	return sqlmock.NewRows(
		[]string{"id", "telegram_id", "full_name", "role", "is_banned", "ban_reason",
			"age", "email", "institution", "experience", "created_at", "updated_at"}).
		AddRow(userID, telegramID, name, role, false, nil,
			nil, nil, nil, nil, time.Now(), time.Now())
}

func TestUserRepository_GetOrCreate(t *testing.T) {
	t.Run("known user is returned as is", func(t *testing.T) {
		conn, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(555)).
			WillReturnRows(userRows(1, 555, "Иван Петров", RoleOrganizer))

		repo := NewUsersRepository(conn, []int64{100}, 200)
		user, err := repo.GetOrCreate(555, "Иван Петров")

		require.NoError(t, err)
		assert.Equal(t, RoleOrganizer, user.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("first contact creates a participant", func(t *testing.T) {
		conn, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(555)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery(`INSERT INTO users`).
			WithArgs(int64(555), "Иван Петров", RoleParticipant).
			WillReturnRows(userRows(1, 555, "Иван Петров", RoleParticipant))

		repo := NewUsersRepository(conn, []int64{100}, 200)
		user, err := repo.GetOrCreate(555, "Иван Петров")

		require.NoError(t, err)
		assert.Equal(t, RoleParticipant, user.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("allow-listed chief admin is escalated on load", func(t *testing.T) {
		conn, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(100)).
			WillReturnRows(userRows(2, 100, "Главный Админ", RoleParticipant))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(RoleChiefAdmin, int64(2)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		repo := NewUsersRepository(conn, []int64{100}, 200)
		user, err := repo.GetOrCreate(100, "Главный Админ")

		require.NoError(t, err)
		assert.Equal(t, RoleChiefAdmin, user.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tech lead escalation wins over chief admin", func(t *testing.T) {
		conn, mock := newMockDB(t)

		mock.ExpectQuery(`SELECT \* FROM users`).
			WithArgs(int64(200)).
			WillReturnRows(userRows(3, 200, "Тех Спец", RoleParticipant))
		mock.ExpectExec(`UPDATE users`).
			WithArgs(RoleChiefTech, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))

		// the same identity is on both allow-lists
		repo := NewUsersRepository(conn, []int64{200}, 200)
		user, err := repo.GetOrCreate(200, "Тех Спец")

		require.NoError(t, err)
		assert.Equal(t, RoleChiefTech, user.Role)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestUser_DisplayName(t *testing.T) {
	name := "Иван Петров"

	user := User{TelegramID: 555, FullName: &name}
	assert.Equal(t, "Иван Петров", user.DisplayName())

	user.FullName = nil
	assert.Equal(t, "ID 555", user.DisplayName())
}
