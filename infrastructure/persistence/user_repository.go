package persistence

import (
	"context"
	"database/sql"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
	"social-publisher/infrastructure/logger"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) repository.IUser {
	return &UserRepository{db}
}

func (r *UserRepository) GetById(ctx context.Context, id string) (model.User, error) {
	return r.getOne(ctx, `SELECT u.id, u.email, u.user_name, u.full_name, u.password_hash, u.role, u.is_active, u.created_at, u.last_login_at 
	FROM users AS u 
	WHERE u.id = $1`, id)
}

func (r *UserRepository) GetByUserName(ctx context.Context, userName string) (model.User, error) {
	return r.getOne(ctx, `SELECT u.id, u.email, u.user_name, u.full_name, u.password_hash, u.role, u.is_active, u.created_at, u.last_login_at 
	FROM users AS u 
	WHERE u.user_name = $1`, userName)
}

func (r *UserRepository) getOne(ctx context.Context, query string, arg interface{}) (model.User, error) {
	var user model.User
	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while preparing user query")
		return user, err
	}
	defer stmt.Close()

	err = scanUser(stmt.QueryRowContext(ctx, arg), &user)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while querying user")
		return user, err
	}
	return user, nil
}
