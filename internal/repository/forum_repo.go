package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/openclass/lms-api/internal/models"
)

// ForumRepository handles persistence for forum threads and replies.
type ForumRepository interface {
	CreateThread(ctx context.Context, thread *models.ForumThread) error
	GetThread(ctx context.Context, id uint) (models.ForumThread, error)
	GetThreadWithReplies(ctx context.Context, id uint) (models.ForumThread, error)
	ListThreadsByCourse(ctx context.Context, courseID uint, limit, offset int) ([]models.ForumThread, error)
	UpdateThread(ctx context.Context, thread *models.ForumThread) error
	CreateReply(ctx context.Context, reply *models.ForumReply) error
	ListReplies(ctx context.Context, threadID uint, limit, offset int) ([]models.ForumReply, error)
	ListAllReplies(ctx context.Context, threadID uint) ([]models.ForumReply, error)
}

type forumRepository struct {
	db *gorm.DB
}

// NewForumRepository constructs a repository backed by GORM.
func NewForumRepository(db *gorm.DB) ForumRepository {
	return &forumRepository{db: db}
}

func (r *forumRepository) CreateThread(ctx context.Context, thread *models.ForumThread) error {
	return r.db.WithContext(ctx).Create(thread).Error
}

func (r *forumRepository) GetThread(ctx context.Context, id uint) (models.ForumThread, error) {
	var thread models.ForumThread
	if err := r.db.WithContext(ctx).First(&thread, id).Error; err != nil {
		return models.ForumThread{}, err
	}
	return thread, nil
}

func (r *forumRepository) GetThreadWithReplies(ctx context.Context, id uint) (models.ForumThread, error) {
	var thread models.ForumThread
	if err := r.db.WithContext(ctx).
		Preload("Replies", func(db *gorm.DB) *gorm.DB {
			return db.Order("forum_replies.created_at ASC")
		}).
		First(&thread, id).Error; err != nil {
		return models.ForumThread{}, err
	}
	return thread, nil
}

func (r *forumRepository) ListThreadsByCourse(ctx context.Context, courseID uint, limit, offset int) ([]models.ForumThread, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	var threads []models.ForumThread
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("pinned DESC, created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&threads).Error; err != nil {
		return nil, err
	}
	return threads, nil
}

func (r *forumRepository) UpdateThread(ctx context.Context, thread *models.ForumThread) error {
	return r.db.WithContext(ctx).Save(thread).Error
}

func (r *forumRepository) CreateReply(ctx context.Context, reply *models.ForumReply) error {
	return r.db.WithContext(ctx).Create(reply).Error
}

// ListAllReplies returns the full reply list for a thread. Used when the
// complete participant set is needed rather than a page.
func (r *forumRepository) ListAllReplies(ctx context.Context, threadID uint) ([]models.ForumReply, error) {
	var replies []models.ForumReply
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}

func (r *forumRepository) ListReplies(ctx context.Context, threadID uint, limit, offset int) ([]models.ForumReply, error) {
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	var replies []models.ForumReply
	if err := r.db.WithContext(ctx).
		Where("thread_id = ?", threadID).
		Order("created_at ASC").
		Offset(offset).
		Limit(limit).
		Find(&replies).Error; err != nil {
		return nil, err
	}
	return replies, nil
}
