package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint, uint) (*models.Post, error)
	listPublishedFn func(context.Context, int, int, uint) ([]*models.Post, error)
	listByUserFn    func(context.Context, uint, bool, int, int, uint) ([]*models.Post, error)
	updateFn        func(context.Context, *models.Post) error
	deleteFn        func(context.Context, uint) error
	incrementViewFn func(context.Context, uint) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id, currentUserID uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id, currentUserID)
}
func (s *postRepoStub) ListPublished(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listPublishedFn(ctx, limit, offset, currentUserID)
}
func (s *postRepoStub) ListByUser(ctx context.Context, userID uint, includeDrafts bool, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.listByUserFn(ctx, userID, includeDrafts, limit, offset, currentUserID)
}
func (s *postRepoStub) Update(ctx context.Context, post *models.Post) error {
	return s.updateFn(ctx, post)
}
func (s *postRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}
func (s *postRepoStub) IncrementViewCount(ctx context.Context, id uint) error {
	return s.incrementViewFn(ctx, id)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:        func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn:       func(_ context.Context, _, _ uint) (*models.Post, error) { return &models.Post{}, nil },
		listPublishedFn: func(_ context.Context, _, _ int, _ uint) ([]*models.Post, error) { return nil, nil },
		listByUserFn: func(_ context.Context, _ uint, _ bool, _, _ int, _ uint) ([]*models.Post, error) {
			return nil, nil
		},
		updateFn:        func(_ context.Context, _ *models.Post) error { return nil },
		deleteFn:        func(_ context.Context, _ uint) error { return nil },
		incrementViewFn: func(_ context.Context, _ uint) error { return nil },
	}
}

// engagementRepoStub is a stub for repository.EngagementRepository.
type engagementRepoStub struct {
	likeFn              func(context.Context, uint, uint) error
	unlikeFn            func(context.Context, uint, uint) error
	isLikedFn           func(context.Context, uint, uint) (bool, error)
	likedPostIDsFn      func(context.Context, uint) ([]uint, error)
	likeCountFn         func(context.Context, uint) (int64, error)
	bookmarkFn          func(context.Context, uint, uint) error
	unbookmarkFn        func(context.Context, uint, uint) error
	isBookmarkedFn      func(context.Context, uint, uint) (bool, error)
	bookmarkedPostIDsFn func(context.Context, uint) ([]uint, error)
}

func (s *engagementRepoStub) Like(ctx context.Context, userID, postID uint) error {
	return s.likeFn(ctx, userID, postID)
}
func (s *engagementRepoStub) Unlike(ctx context.Context, userID, postID uint) error {
	return s.unlikeFn(ctx, userID, postID)
}
func (s *engagementRepoStub) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isLikedFn(ctx, userID, postID)
}
func (s *engagementRepoStub) LikedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.likedPostIDsFn(ctx, userID)
}
func (s *engagementRepoStub) LikeCount(ctx context.Context, postID uint) (int64, error) {
	return s.likeCountFn(ctx, postID)
}
func (s *engagementRepoStub) Bookmark(ctx context.Context, userID, postID uint) error {
	return s.bookmarkFn(ctx, userID, postID)
}
func (s *engagementRepoStub) Unbookmark(ctx context.Context, userID, postID uint) error {
	return s.unbookmarkFn(ctx, userID, postID)
}
func (s *engagementRepoStub) IsBookmarked(ctx context.Context, userID, postID uint) (bool, error) {
	return s.isBookmarkedFn(ctx, userID, postID)
}
func (s *engagementRepoStub) BookmarkedPostIDs(ctx context.Context, userID uint) ([]uint, error) {
	return s.bookmarkedPostIDsFn(ctx, userID)
}

func noopEngagementRepo() *engagementRepoStub {
	return &engagementRepoStub{
		likeFn:              func(_ context.Context, _, _ uint) error { return nil },
		unlikeFn:            func(_ context.Context, _, _ uint) error { return nil },
		isLikedFn:           func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		likedPostIDsFn:      func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
		likeCountFn:         func(_ context.Context, _ uint) (int64, error) { return 0, nil },
		bookmarkFn:          func(_ context.Context, _, _ uint) error { return nil },
		unbookmarkFn:        func(_ context.Context, _, _ uint) error { return nil },
		isBookmarkedFn:      func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		bookmarkedPostIDsFn: func(_ context.Context, _ uint) ([]uint, error) { return nil, nil },
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn      func(context.Context, *models.Comment) error
	getByIDFn     func(context.Context, uint) (*models.Comment, error)
	listByPostFn  func(context.Context, uint) ([]*models.Comment, error)
	listByPostsFn func(context.Context, []uint) ([]*models.Comment, error)
	deleteFn      func(context.Context, uint) error
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostFn(ctx, postID)
}
func (s *commentRepoStub) ListByPosts(ctx context.Context, postIDs []uint) ([]*models.Comment, error) {
	return s.listByPostsFn(ctx, postIDs)
}
func (s *commentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:      func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:     func(_ context.Context, _ uint) (*models.Comment, error) { return &models.Comment{}, nil },
		listByPostFn:  func(_ context.Context, _ uint) ([]*models.Comment, error) { return nil, nil },
		listByPostsFn: func(_ context.Context, _ []uint) ([]*models.Comment, error) { return nil, nil },
		deleteFn:      func(_ context.Context, _ uint) error { return nil },
	}
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

// assertNotFoundError asserts that err is an AppError with code NOT_FOUND.
func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

// assertUnauthorizedError asserts that err is an AppError with code UNAUTHORIZED.
func assertUnauthorizedError(t *testing.T, err error) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, "UNAUTHORIZED", appErr.Code)
}
