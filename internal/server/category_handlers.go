package server

import (
	"decider/internal/models"

	"github.com/gofiber/fiber/v2"
)

// GetCategories handles GET /api/categories
func (s *Server) GetCategories(c *fiber.Ctx) error {
	categories, err := s.categoryService.List(c.UserContext())
	if err != nil {
		return s.respondError(c, err, "Failed to fetch categories")
	}
	return models.RespondOK(c, "Successfully fetched categories", categories, fiber.Map{"count": len(categories)})
}
