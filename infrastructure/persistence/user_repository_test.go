package persistence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

var userRowColumns = []string{"id", "email", "user_name", "full_name", "password_hash", "role", "is_active", "created_at", "last_login_at"}

func TestUserRepository_GetById(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)
	createdAt := time.Date(2023, 9, 4, 1, 2, 10, 0, time.UTC)

	mock.ExpectPrepare(`SELECT u.id, u.email, u.user_name, .* FROM users AS u\s+WHERE u.id = \$1`).
		ExpectQuery().WithArgs("8c1c5f0e-1b9e-4a41-9d2c-2f7b0d3f6a10").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("8c1c5f0e-1b9e-4a41-9d2c-2f7b0d3f6a10", "tulus@example.com", "lamboktulus1379", "Lambok Tulus Simamora",
				"a252f77af72638ea5a0f9e5fbe5f2b2e", "user", true, createdAt, nil))

	res, err := repository.GetById(context.Background(), "8c1c5f0e-1b9e-4a41-9d2c-2f7b0d3f6a10")
	expected := model.User{
		ID:           "8c1c5f0e-1b9e-4a41-9d2c-2f7b0d3f6a10",
		Email:        "tulus@example.com",
		UserName:     "lamboktulus1379",
		FullName:     "Lambok Tulus Simamora",
		PasswordHash: "a252f77af72638ea5a0f9e5fbe5f2b2e",
		Role:         "user",
		IsActive:     true,
		CreatedAt:    createdAt,
	}

	require.NoError(t, err)
	require.Equal(t, expected, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByUserName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)
	createdAt := time.Date(2023, 9, 4, 1, 2, 10, 0, time.UTC)
	lastLogin := createdAt.Add(48 * time.Hour)

	mock.ExpectPrepare(`SELECT u.id, u.email, u.user_name, .* FROM users AS u\s+WHERE u.user_name = \$1`).
		ExpectQuery().WithArgs("lamboktulus1379").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-1", "tulus@example.com", "lamboktulus1379", "Lambok Tulus Simamora",
				"hash", "admin", false, createdAt, lastLogin))

	res, err := repository.GetByUserName(context.Background(), "lamboktulus1379")

	require.NoError(t, err)
	require.Equal(t, "u-1", res.ID)
	require.False(t, res.IsActive)
	require.NotNil(t, res.LastLoginAt)
	require.Equal(t, lastLogin, *res.LastLoginAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetById_PrepareError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepository(db)

	mock.ExpectPrepare(`SELECT u.id, u.email, u.user_name, .* FROM users AS u\s+WHERE u.id = \$1`).
		WillReturnError(fmt.Errorf("prepare error"))

	res, err := repository.GetById(context.Background(), "u-1")

	require.Error(t, err)
	require.Equal(t, model.User{}, res)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryMSSQL_GetByUserName(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repository := NewUserRepositoryMSSQL(db)
	createdAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT id, email, user_name, .* FROM dbo.\[users\] WHERE user_name = @p1`).
		WithArgs("tulus").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow("u-9", "t@example.com", "tulus", "Tulus", "hash", "user", true, createdAt, nil))

	res, err := repository.GetByUserName(context.Background(), "tulus")

	require.NoError(t, err)
	require.Equal(t, "u-9", res.ID)
	require.True(t, res.IsActive)
	require.Nil(t, res.LastLoginAt)
	require.NoError(t, mock.ExpectationsWereMet())
}
