// Package service contains the application's business logic between handlers and repositories.
package service

import (
	"context"
	"net/url"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

const (
	maxTitleLen = 300
	maxBodyLen  = 50000
)

type PostService struct {
	postRepo       repository.PostRepository
	engagementRepo repository.EngagementRepository
}

type CreatePostInput struct {
	UserID   uint
	Title    string
	Body     string
	ImageURL string
	IsDraft  bool
}

type ListPostsInput struct {
	Limit         int
	Offset        int
	CurrentUserID uint
}

// UpdatePostInput carries a partial update; nil fields are left untouched.
// Pointers let callers flip IsDraft to false, which a zero-value sentinel
// could not express.
type UpdatePostInput struct {
	UserID   uint
	PostID   uint
	Title    *string
	Body     *string
	ImageURL *string
	IsDraft  *bool
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository, engagementRepo repository.EngagementRepository) *PostService {
	return &PostService{
		postRepo:       postRepo,
		engagementRepo: engagementRepo,
	}
}

func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.Title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if len(in.Title) > maxTitleLen {
		return nil, models.NewValidationError("Title too long (max 300 characters)")
	}
	if in.Body == "" {
		return nil, models.NewValidationError("Body is required")
	}
	if len(in.Body) > maxBodyLen {
		return nil, models.NewValidationError("Body too long (max 50000 characters)")
	}
	if in.ImageURL != "" {
		if _, err := url.ParseRequestURI(in.ImageURL); err != nil && !strings.HasPrefix(in.ImageURL, "/media/") {
			return nil, models.NewValidationError("image_url must be a valid URL")
		}
	}

	post := &models.Post{
		Title:    in.Title,
		Body:     in.Body,
		ImageURL: in.ImageURL,
		IsDraft:  in.IsDraft,
		UserID:   in.UserID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	// Re-read so the response carries the author and computed fields.
	return s.postRepo.GetByID(ctx, post.ID, in.UserID)
}

// ListPublished returns the public listing; drafts never appear here.
// The anonymous first page is served cache-aside, then re-enriched with the
// requesting user's like/bookmark membership so cached objects stay neutral.
func (s *PostService) ListPublished(ctx context.Context, in ListPostsInput) ([]*models.Post, error) {
	var posts []*models.Post
	var err error

	if in.Offset == 0 && in.Limit <= 20 {
		err = cache.Aside(ctx, cache.PostsListKey, &posts, cache.ListTTL, func() error {
			var fetchErr error
			posts, fetchErr = s.postRepo.ListPublished(ctx, in.Limit, in.Offset, 0)
			return fetchErr
		})
		if err != nil {
			return nil, err
		}

		if in.CurrentUserID != 0 && len(posts) > 0 {
			if enrichErr := s.enrichMembership(ctx, posts, in.CurrentUserID); enrichErr != nil {
				middleware.Logger.WarnContext(ctx, "membership enrichment failed", "error", enrichErr)
			}
		}
		return posts, nil
	}

	return s.postRepo.ListPublished(ctx, in.Limit, in.Offset, in.CurrentUserID)
}

// ListByUser returns a user's posts; drafts are included only when the
// requesting user is the author.
func (s *PostService) ListByUser(ctx context.Context, userID uint, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	includeDrafts := userID == currentUserID && currentUserID != 0
	return s.postRepo.ListByUser(ctx, userID, includeDrafts, limit, offset, currentUserID)
}

// GetPost returns a single post. A draft resolves only for its owner;
// everyone else sees not-found, indistinguishable from a missing id.
func (s *PostService) GetPost(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, id, currentUserID)
	if err != nil {
		return nil, err
	}
	if post.IsDraft && post.UserID != currentUserID {
		return nil, models.NewNotFoundError("Post", id)
	}
	return post, nil
}

func (s *PostService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return nil, err
	}

	if post.UserID != in.UserID {
		return nil, models.NewUnauthorizedError("You can only update your own posts")
	}

	if in.Title != nil {
		if *in.Title == "" {
			return nil, models.NewValidationError("Title is required")
		}
		if len(*in.Title) > maxTitleLen {
			return nil, models.NewValidationError("Title too long (max 300 characters)")
		}
		post.Title = *in.Title
	}
	if in.Body != nil {
		if *in.Body == "" {
			return nil, models.NewValidationError("Body is required")
		}
		if len(*in.Body) > maxBodyLen {
			return nil, models.NewValidationError("Body too long (max 50000 characters)")
		}
		post.Body = *in.Body
	}
	if in.ImageURL != nil {
		post.ImageURL = *in.ImageURL
	}
	if in.IsDraft != nil {
		post.IsDraft = *in.IsDraft
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	// Return the server representation, not the merged input.
	return s.postRepo.GetByID(ctx, in.PostID, in.UserID)
}

func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	post, err := s.postRepo.GetByID(ctx, in.PostID, in.UserID)
	if err != nil {
		return err
	}

	if post.UserID != in.UserID {
		return models.NewUnauthorizedError("You can only delete your own posts")
	}

	return s.postRepo.Delete(ctx, in.PostID)
}

// RecordView bumps the view counter atomically server-side.
func (s *PostService) RecordView(ctx context.Context, postID uint, currentUserID uint) error {
	if _, err := s.GetPost(ctx, postID, currentUserID); err != nil {
		return err
	}
	if err := s.postRepo.IncrementViewCount(ctx, postID); err != nil {
		return err
	}
	middleware.PostViews.Inc()
	return nil
}

func (s *PostService) enrichMembership(ctx context.Context, posts []*models.Post, userID uint) error {
	likedIDs, err := s.engagementRepo.LikedPostIDs(ctx, userID)
	if err != nil {
		return err
	}
	bookmarkedIDs, err := s.engagementRepo.BookmarkedPostIDs(ctx, userID)
	if err != nil {
		return err
	}

	liked := make(map[uint]bool, len(likedIDs))
	for _, id := range likedIDs {
		liked[id] = true
	}
	bookmarked := make(map[uint]bool, len(bookmarkedIDs))
	for _, id := range bookmarkedIDs {
		bookmarked[id] = true
	}
	for _, p := range posts {
		p.Liked = liked[p.ID]
		p.Bookmarked = bookmarked[p.ID]
	}
	return nil
}
