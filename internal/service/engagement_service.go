package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/repository"
)

type EngagementService struct {
	engagementRepo repository.EngagementRepository
	postRepo       repository.PostRepository
}

func NewEngagementService(engagementRepo repository.EngagementRepository, postRepo repository.PostRepository) *EngagementService {
	return &EngagementService{
		engagementRepo: engagementRepo,
		postRepo:       postRepo,
	}
}

// visiblePost resolves a post the user is allowed to engage with.
// Other people's drafts read as not-found.
func (s *EngagementService) visiblePost(ctx context.Context, postID, userID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if post.IsDraft && post.UserID != userID {
		return nil, models.NewNotFoundError("Post", postID)
	}
	return post, nil
}

// LikePost records a like. Liking an already-liked post is a no-op, so the
// operation is safe to retry.
func (s *EngagementService) LikePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, postID, userID); err != nil {
		return err
	}
	return s.engagementRepo.Like(ctx, userID, postID)
}

func (s *EngagementService) UnlikePost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, postID, userID); err != nil {
		return err
	}
	return s.engagementRepo.Unlike(ctx, userID, postID)
}

func (s *EngagementService) BookmarkPost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, postID, userID); err != nil {
		return err
	}
	return s.engagementRepo.Bookmark(ctx, userID, postID)
}

func (s *EngagementService) UnbookmarkPost(ctx context.Context, userID, postID uint) error {
	if _, err := s.visiblePost(ctx, postID, userID); err != nil {
		return err
	}
	return s.engagementRepo.Unbookmark(ctx, userID, postID)
}

func (s *EngagementService) LikedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.engagementRepo.LikedPostIDs(ctx, userID)
}

func (s *EngagementService) BookmarkedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.engagementRepo.BookmarkedPostIDs(ctx, userID)
}
