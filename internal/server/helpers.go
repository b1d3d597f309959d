package server

import (
	"log/slog"
	"strconv"

	"decider/internal/middleware"
	"decider/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondError writes the envelope for err. Errors that map to a server
// error are logged here and reach the client only as fallbackMsg.
func (s *Server) respondError(c *fiber.Ctx, err error, fallbackMsg string) error {
	if appErr, ok := models.AsAppError(err); !ok || appErr.Kind == models.KindServerError || appErr.Err != nil {
		middleware.Logger.ErrorContext(c.UserContext(), fallbackMsg,
			slog.String("path", c.Path()),
			slog.String("error", err.Error()),
		)
	}
	return models.RespondWithError(c, err, fallbackMsg)
}

// viewer returns the authenticated viewer id set by AuthRequired.
func viewer(c *fiber.Ctx) uint {
	id, _ := middleware.ViewerID(c)
	return id
}

// parsePositiveID reads a route parameter as a positive integer. Zero is
// returned for anything else.
func parsePositiveID(c *fiber.Ctx, param string) uint {
	id, err := strconv.ParseUint(c.Params(param), 10, 64)
	if err != nil {
		return 0
	}
	return uint(id)
}

// queryList returns every value of a repeated query parameter.
func queryList(c *fiber.Ctx, key string) []string {
	raw := c.Context().QueryArgs().PeekMulti(key)
	values := make([]string, 0, len(raw))
	for _, v := range raw {
		values = append(values, string(v))
	}
	return values
}
