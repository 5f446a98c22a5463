package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"
)

// VideoRepository reads the video catalog through gorm.
type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) repository.IVideo {
	return &VideoRepository{db: db}
}

// GetByRef matches the reference against either the video id or the render task id.
func (r *VideoRepository) GetByRef(ctx context.Context, userID, ref string) (*model.Video, error) {
	var v model.Video
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND (id = ? OR task_id = ?)", userID, ref, ref).
		First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.NewError(model.ErrNotFound, "", "get_video", "video not found")
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}
