package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"social-publisher/domain/model"
)

var postRowColumns = []string{"id", "user_id", "credential_id", "video_id", "video_ref", "platform", "title", "description", "tags",
	"platform_settings", "status", "platform_post_id", "post_url", "metrics", "error_message", "retry_count", "max_retries",
	"scheduled_for", "posted_at", "last_metrics_update", "created_at", "updated_at"}

func TestPostRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &PostRepository{db: db, now: func() time.Time { return fixedNow }}
	p := &model.Post{
		UserID: "user-1", CredentialID: "c1", VideoID: "v1", VideoRef: "v1", Platform: model.PlatformYouTube,
		Title: "Launch", Tags: model.StringList{"go", "video"}, Status: model.PostStatusUploading, MaxRetries: 3,
	}

	mock.ExpectExec(`INSERT INTO social_posts`).
		WithArgs(sqlmock.AnyArg(), "user-1", "c1", "v1", "v1", "youtube", "Launch", "", `["go","video"]`,
			"{}", "uploading", "{}", 0, 3, nil, fixedNow, fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Create(context.Background(), p))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, fixedNow, p.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	mock.ExpectQuery(`SELECT .* FROM social_posts WHERE id=\$1 AND user_id=\$2`).
		WithArgs("p1", "user-1").
		WillReturnRows(sqlmock.NewRows(postRowColumns).AddRow("p1", "user-1", "c1", "v1", "v1", "youtube", "Launch", "desc",
			[]byte(`["go"]`), []byte(`{"privacy_status":"public"}`), "posted", "abc123", "https://www.youtube.com/watch?v=abc123",
			[]byte(`{"views":0}`), nil, 1, 3, nil, fixedNow, nil, fixedNow, fixedNow))

	p, err := repo.GetByID(context.Background(), "user-1", "p1")

	require.NoError(t, err)
	assert.Equal(t, model.PostStatusPosted, p.Status)
	assert.Equal(t, model.StringList{"go"}, p.Tags)
	assert.Equal(t, "public", p.PlatformSettings["privacy_status"])
	require.NotNil(t, p.PlatformPostID)
	assert.Equal(t, "abc123", *p.PlatformPostID)
	assert.Nil(t, p.ErrorMessage)
	assert.Equal(t, 1, p.RetryCount)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_GetByIDOtherUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	mock.ExpectQuery(`SELECT .* FROM social_posts WHERE id=\$1 AND user_id=\$2`).
		WithArgs("p1", "intruder").
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	_, err = repo.GetByID(context.Background(), "intruder", "p1")

	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPostRepository_ClaimScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := &PostRepository{db: db, now: func() time.Time { return fixedNow }}
	mock.ExpectExec(`UPDATE social_posts SET status='pending', updated_at=\$2 WHERE id=\$1 AND status='scheduled'`).
		WithArgs("p1", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE social_posts SET status='pending'`).
		WithArgs("p1", fixedNow).
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.ClaimScheduled(context.Background(), "p1")
	require.NoError(t, err)
	assert.True(t, won)

	won, err = repo.ClaimScheduled(context.Background(), "p1")
	require.NoError(t, err)
	assert.False(t, won)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListDueScheduled(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	due := fixedNow.Add(-time.Minute)
	mock.ExpectQuery(`SELECT .* FROM social_posts WHERE status='scheduled' AND scheduled_for <= \$1 ORDER BY scheduled_for ASC LIMIT \$2`).
		WithArgs(fixedNow, 10).
		WillReturnRows(sqlmock.NewRows(postRowColumns).AddRow("p2", "user-1", "c1", "v1", "v1", "youtube", "Later", "",
			"[]", "{}", "scheduled", nil, nil, "{}", nil, 0, 3, due, nil, nil, fixedNow, fixedNow))

	posts, err := repo.ListDueScheduled(context.Background(), fixedNow, 10)

	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, model.PostStatusScheduled, posts[0].Status)
	require.NotNil(t, posts[0].ScheduledFor)
	assert.Equal(t, due, *posts[0].ScheduledFor)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_UpdateMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepository(db)
	mock.ExpectExec(`UPDATE social_posts SET status=\$2`).WillReturnResult(sqlmock.NewResult(0, 0))

	err = repo.Update(context.Background(), &model.Post{ID: "missing", Status: model.PostStatusFailed})

	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPostRepositoryMSSQL_ListByUser(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewPostRepositoryMSSQL(db)
	mock.ExpectQuery(`SELECT .* FROM dbo.\[social_posts\] WHERE user_id=@p1 ORDER BY created_at DESC OFFSET @p3 ROWS FETCH NEXT @p2 ROWS ONLY`).
		WithArgs("user-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(postRowColumns))

	posts, err := repo.ListByUser(context.Background(), "user-1", 20, 0)

	require.NoError(t, err)
	assert.Empty(t, posts)
	require.NoError(t, mock.ExpectationsWereMet())
}
