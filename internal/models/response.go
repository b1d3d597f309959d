package models

import (
	"github.com/gofiber/fiber/v2"
)

// Respond writes the uniform response envelope. Extra fields are merged into
// the top level but never replace the envelope keys.
func Respond(c *fiber.Ctx, status, code int, msg string, data any, extra fiber.Map) error {
	body := fiber.Map{
		"status": status,
		"code":   code,
		"msg":    msg,
		"data":   data,
	}
	for k, v := range extra {
		if _, reserved := body[k]; reserved {
			continue
		}
		body[k] = v
	}
	return c.Status(status).JSON(body)
}

// RespondOK writes a 200 envelope.
func RespondOK(c *fiber.Ctx, msg string, data any, extra fiber.Map) error {
	return Respond(c, fiber.StatusOK, CodeOK, msg, data, extra)
}

// RespondCreated writes a 201 envelope.
func RespondCreated(c *fiber.Ctx, msg string, data any) error {
	return Respond(c, fiber.StatusCreated, CodeCreated, msg, data, nil)
}

// RespondWithError writes the envelope for err. AppErrors keep their kind,
// message and field list; anything else becomes an opaque server error
// carrying fallbackMsg and no internal detail.
func RespondWithError(c *fiber.Ctx, err error, fallbackMsg string) error {
	appErr, ok := AsAppError(err)
	if !ok || appErr.Kind == KindServerError {
		msg := fallbackMsg
		if msg == "" {
			msg = KindServerError.Message()
		}
		return Respond(c, KindServerError.Status(), KindServerError.Code(), msg, nil, nil)
	}

	msg := appErr.Message
	if msg == "" {
		msg = appErr.Kind.Message()
	}
	var extra fiber.Map
	if len(appErr.Fields) > 0 {
		extra = fiber.Map{"errors": appErr.Fields}
	}
	return Respond(c, appErr.Kind.Status(), appErr.Kind.Code(), msg, nil, extra)
}
