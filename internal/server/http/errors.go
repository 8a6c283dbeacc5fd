package http

import (
	"errors"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/gofiber/fiber/v2"
)

const (
	MsgInvalidPayload = "invalid JSON payload"
	MsgInternal       = "Internal server error"
)

type errorResponse struct {
	Message string `json:"message"`
}

func writeMessage(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(errorResponse{Message: msg})
}

// clientKinds are answered with 400 and the error's public message.
var clientKinds = []error{common.ErrorValidation, common.ErrorAlreadyExists, common.ErrorNotFound}

func isClientError(err error) bool {
	for _, k := range clientKinds {
		if errors.Is(err, k) {
			return true
		}
	}
	return false
}

// errorHandler renders errors returned by handlers. Service errors of a
// client kind become 400; Fiber errors keep their code; anything else is a
// 500 whose detail only goes to the log.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	if msg, ok := common.PublicMessage(err); ok && isClientError(err) {
		return writeMessage(c, fiber.StatusBadRequest, msg)
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeMessage(c, fe.Code, fe.Message)
	}

	s.logger.Error(c.UserContext(), "request failed", "error", err, "path", c.Path())
	return writeMessage(c, fiber.StatusInternalServerError, MsgInternal)
}
