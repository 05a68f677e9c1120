package server

import (
	"errors"

	"inkwell/internal/middleware"
	"inkwell/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GenerateContent handles POST /api/generate. The server proxies the prompt
// upstream so the API key never reaches the browser.
func (s *Server) GenerateContent(c *fiber.Ctx) error {
	ctx := c.UserContext()

	var req struct {
		Topic string `json:"topic"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}
	if req.Topic == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Topic is required",
		})
	}

	content, err := s.generateService.Generate(ctx, req.Topic)
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Topic is required",
			})
		}

		middleware.Logger.ErrorContext(ctx, "content generation failed", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":      "Failed to generate content",
			"details":    err.Error(),
			"keyPresent": s.generateService.KeyPresent(),
		})
	}

	return c.JSON(fiber.Map{
		"content": content,
	})
}
