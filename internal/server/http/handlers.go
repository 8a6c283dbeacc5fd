package http

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

type UsersHandler struct {
	users  IdentityService
	logger logging.Logger
}

func NewUsersHandler(users IdentityService, l logging.Logger) *UsersHandler {
	return &UsersHandler{users: users, logger: l}
}

// signUpRequest also accepts the column-style fname / lname keys.
type signUpRequest struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	FName      string `json:"fname"`
	LName      string `json:"lname"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

func (r signUpRequest) toService() services.SignUpRequest {
	req := services.SignUpRequest{
		GivenName:  r.GivenName,
		FamilyName: r.FamilyName,
		Email:      r.Email,
		Password:   r.Password,
	}
	if req.GivenName == "" {
		req.GivenName = r.FName
	}
	if req.FamilyName == "" {
		req.FamilyName = r.LName
	}
	return req
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type profileResponse struct {
	ID         int64  `json:"id"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Email      string `json:"email"`
	Token      string `json:"token,omitempty"`
}

func toResponse(p *services.Profile) profileResponse {
	return profileResponse{
		ID:         p.ID,
		GivenName:  p.GivenName,
		FamilyName: p.FamilyName,
		Email:      p.Email,
		Token:      p.Token,
	}
}

// SignUp handles POST /users.
func (h *UsersHandler) SignUp(c *fiber.Ctx) error {
	var req signUpRequest
	if err := c.BodyParser(&req); err != nil {
		return writeMessage(c, fiber.StatusBadRequest, MsgInvalidPayload)
	}

	p, err := h.users.SignUp(c.UserContext(), req.toService())
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(toResponse(p))
}

// SignIn handles POST /users/signin.
func (h *UsersHandler) SignIn(c *fiber.Ctx) error {
	var req signInRequest
	if err := c.BodyParser(&req); err != nil {
		return writeMessage(c, fiber.StatusBadRequest, MsgInvalidPayload)
	}

	p, err := h.users.SignIn(c.UserContext(), services.SignInRequest{Email: req.Email, Password: req.Password})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toResponse(p))
}

// Me handles GET /users. It must run behind RequireSession.
func (h *UsersHandler) Me(c *fiber.Ctx) error {
	sess, ok := auth.SessionFromContext(c.UserContext())
	if !ok {
		return writeMessage(c, fiber.StatusForbidden, MsgForbidden)
	}

	p, err := h.users.Me(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusOK).JSON(toResponse(p))
}

// HealthHandler serves the readiness probe.
type HealthHandler struct{ db Pinger }

func NewHealthHandler(db Pinger) *HealthHandler { return &HealthHandler{db: db} }

// Health reports 200 when the database answers a ping within a second.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), time.Second)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "not_ready"})
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
