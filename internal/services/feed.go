package services

import (
	"context"
	"errors"

	"github.com/fitconnect/backend/internal/models"
	"github.com/fitconnect/backend/pkg/utils"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedService is read-only aggregation: posts with their counts and the
// viewer's like-state. It never mutates relationship rows; that is
// MembershipService territory.
type FeedService struct {
	DB *gorm.DB
}

func NewFeedService(db *gorm.DB) *FeedService {
	return &FeedService{DB: db}
}

func (f *FeedService) Page(ctx context.Context, viewerID uuid.UUID, p utils.PaginationParams) ([]models.Post, int64, error) {
	var total int64
	if err := f.DB.WithContext(ctx).Model(&models.Post{}).Count(&total).Error; err != nil {
		return nil, 0, asServiceError(err)
	}

	var posts []models.Post
	err := utils.ApplyPagination(
		f.DB.WithContext(ctx).Preload("Author").Order("created_at DESC"), p,
	).Find(&posts).Error
	if err != nil {
		return nil, 0, asServiceError(err)
	}

	if err := f.decorate(ctx, viewerID, posts); err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (f *FeedService) Post(ctx context.Context, viewerID, postID uuid.UUID) (*models.Post, error) {
	var post models.Post
	err := f.DB.WithContext(ctx).
		Preload("Author").
		Preload("Comments", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		Preload("Comments.Author").
		First(&post, "id = ?", postID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, asServiceError(err)
	}

	posts := []models.Post{post}
	if err := f.decorate(ctx, viewerID, posts); err != nil {
		return nil, err
	}

	return &posts[0], nil
}

// decorate fills the derived fields in a single batch per concern instead
// of one query per post.
func (f *FeedService) decorate(ctx context.Context, viewerID uuid.UUID, posts []models.Post) error {
	if len(posts) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
	}

	type pairCount struct {
		PostID uuid.UUID
		Count  int64
	}

	var likeCounts []pairCount
	err := f.DB.WithContext(ctx).Model(&models.PostLike{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&likeCounts).Error
	if err != nil {
		return asServiceError(err)
	}

	var commentCounts []pairCount
	err = f.DB.WithContext(ctx).Model(&models.Comment{}).
		Select("post_id, COUNT(*) as count").
		Where("post_id IN ?", ids).
		Group("post_id").
		Scan(&commentCounts).Error
	if err != nil {
		return asServiceError(err)
	}

	var likedIDs []uuid.UUID
	err = f.DB.WithContext(ctx).Model(&models.PostLike{}).
		Where("user_id = ? AND post_id IN ?", viewerID, ids).
		Pluck("post_id", &likedIDs).Error
	if err != nil {
		return asServiceError(err)
	}

	likes := make(map[uuid.UUID]int64, len(likeCounts))
	for _, row := range likeCounts {
		likes[row.PostID] = row.Count
	}
	comments := make(map[uuid.UUID]int64, len(commentCounts))
	for _, row := range commentCounts {
		comments[row.PostID] = row.Count
	}
	liked := make(map[uuid.UUID]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}

	for i := range posts {
		posts[i].LikeCount = likes[posts[i].ID]
		posts[i].CommentCount = comments[posts[i].ID]
		posts[i].LikedByViewer = liked[posts[i].ID]
	}

	return nil
}
