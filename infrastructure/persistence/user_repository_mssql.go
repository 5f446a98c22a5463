package persistence

import (
	"context"
	"database/sql"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

// UserRepositoryMSSQL is a SQL Server implementation of IUser using database/sql.
type UserRepositoryMSSQL struct{ db *sql.DB }

func NewUserRepositoryMSSQL(db *sql.DB) repository.IUser { return &UserRepositoryMSSQL{db} }

const userColumnsMSSQL = `id, email, user_name, full_name, password_hash, role, is_active, created_at, last_login_at`

func (r *UserRepositoryMSSQL) GetById(ctx context.Context, id string) (model.User, error) {
	var u model.User
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumnsMSSQL+` FROM dbo.[users] WHERE id = @p1`, id)
	if err := scanUser(row, &u); err != nil {
		logger.GetLogger().WithField("error", err).Error("mssql: query user by id failed")
		return u, err
	}
	return u, nil
}

func (r *UserRepositoryMSSQL) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	var u model.User
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumnsMSSQL+` FROM dbo.[users] WHERE user_name = @p1`, userName)
	if err := scanUser(row, &u); err != nil {
		logger.GetLogger().WithField("error", err).Error("mssql: query user by username failed")
		return u, err
	}
	return u, nil
}

func scanUser(row rowScanner, u *model.User) error {
	return row.Scan(&u.ID, &u.Email, &u.UserName, &u.FullName, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.LastLoginAt)
}
