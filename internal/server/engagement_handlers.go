package server

import (
	"github.com/gofiber/fiber/v2"
)

// LikePost handles POST /api/posts/:id/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.LikePost(ctx, userID, postID); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// UnlikePost handles DELETE /api/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.UnlikePost(ctx, userID, postID); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// BookmarkPost handles POST /api/posts/:id/bookmark
func (s *Server) BookmarkPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.BookmarkPost(ctx, userID, postID); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// UnbookmarkPost handles DELETE /api/posts/:id/bookmark
func (s *Server) UnbookmarkPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.engagementService.UnbookmarkPost(ctx, userID, postID); err != nil {
		return respondServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusOK)
}

// GetMyLikes handles GET /api/likes/me. Returns the post IDs the signed-in
// user has liked so clients can rebuild membership after sign-in.
func (s *Server) GetMyLikes(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	ids, err := s.engagementService.LikedPostIDs(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if ids == nil {
		ids = []uint{}
	}

	return c.JSON(fiber.Map{"post_ids": ids})
}

// GetMyBookmarks handles GET /api/bookmarks/me
func (s *Server) GetMyBookmarks(c *fiber.Ctx) error {
	ctx := c.UserContext()
	userID := c.Locals("userID").(uint)

	ids, err := s.engagementService.BookmarkedPostIDs(ctx, userID)
	if err != nil {
		return respondServiceError(c, err)
	}
	if ids == nil {
		ids = []uint{}
	}

	return c.JSON(fiber.Map{"post_ids": ids})
}
