package http

import (
	"strings"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// MsgForbidden is the body of a RequireSession rejection.
const MsgForbidden = "Forbidden resource"

// RequestLogger logs one http_request line per request with latency, status
// and request id. The id is taken from X-Request-ID or generated, and echoed
// back in the response.
func RequestLogger(logger logging.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID := strings.TrimSpace(c.Get(common.RequestIDHeaderName))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(common.RequestIDHeaderName, requestID)

		// Errors are rendered here so the logged status is the one sent.
		if err := c.Next(); err != nil {
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}

		status := c.Response().StatusCode()
		fields := []any{
			"request_id", requestID,
			"status", status,
			"method", c.Method(),
			"path", c.OriginalURL(),
			"latency", time.Since(start),
			"client_ip", c.IP(),
		}
		if sess, ok := auth.SessionFromContext(c.UserContext()); ok {
			fields = append(fields, "user_id", sess.UserID)
		}

		ctx := c.UserContext()
		switch {
		case status >= 500:
			logger.Error(ctx, "http_request", fields...)
		case status >= 400:
			logger.Warn(ctx, "http_request", fields...)
		default:
			logger.Info(ctx, "http_request", fields...)
		}
		return nil
	}
}

// bearerToken extracts the token of an "Authorization: Bearer <token>" header.
func bearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, common.BearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(common.BearerPrefix):])
	return token, token != ""
}

// Authenticate attaches the verified session of a bearer token to the
// request's user context. It never rejects: a missing or bad token just
// leaves the request unauthenticated.
func Authenticate(tokens SessionVerifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, ok := bearerToken(c.Get(common.AuthorizationHeaderName))
		if !ok {
			return c.Next()
		}

		sess, err := tokens.VerifySession(token)
		if err != nil {
			return c.Next()
		}

		c.SetUserContext(auth.WithSession(c.UserContext(), sess))
		return c.Next()
	}
}

// RequireSession rejects requests without an attached session with 403.
func RequireSession() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := auth.SessionFromContext(c.UserContext()); !ok {
			return writeMessage(c, fiber.StatusForbidden, MsgForbidden)
		}
		return c.Next()
	}
}
