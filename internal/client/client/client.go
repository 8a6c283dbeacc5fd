package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophid/internal/common"
	"github.com/gofiber/fiber/v2"
)

type SignUpRequest struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Email      string `json:"email"`
	Password   string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Profile is the user view returned by every identity call.
type Profile struct {
	ID         int64  `json:"id"`
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
	Email      string `json:"email"`
	Token      string `json:"token,omitempty"`
}

type errorBody struct {
	Message string `json:"message"`
}

type Client struct {
	baseURL string
	timeout time.Duration

	mu    sync.RWMutex
	token string
}

// New returns a Client for the API rooted at baseURL (global prefix
// included).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
	}
}

// SignUp registers an account and starts a session with its token.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, fiber.MethodPost, "/users", req, &p); err != nil {
		return nil, err
	}
	c.setToken(p.Token)
	return &p, nil
}

// SignIn authenticates and starts a session with the returned token.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Profile, error) {
	var p Profile
	if err := c.do(ctx, fiber.MethodPost, "/users/signin", signInRequest{Email: email, Password: password}, &p); err != nil {
		return nil, err
	}
	c.setToken(p.Token)
	return &p, nil
}

// Me fetches the profile of the signed-in user.
func (c *Client) Me(ctx context.Context) (*Profile, error) {
	if c.Token() == "" {
		return nil, ErrNotSignedIn
	}
	var p Profile
	if err := c.do(ctx, fiber.MethodGet, "/users", nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Logout forgets the session token.
func (c *Client) Logout() { c.setToken("") }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setToken(t string) {
	c.mu.Lock()
	c.token = t
	c.mu.Unlock()
}

// do sends one request through a Fiber agent. The agent has no context
// support: ctx is checked up front and its deadline caps the timeout.
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	timeout := c.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); timeout <= 0 || left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return context.DeadlineExceeded
	}

	a := fiber.AcquireAgent()
	req := a.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.baseURL + path)

	if err := a.Parse(); err != nil {
		fiber.ReleaseAgent(a)
		return err
	}

	a.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if in != nil {
		a.JSON(in)
	}
	if t := c.Token(); t != "" {
		a.Set(common.AuthorizationHeaderName, common.BearerPrefix+t)
	}
	a.Timeout(timeout)

	// Bytes releases the agent.
	status, body, errs := a.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrUnavailable, errors.Join(errs...))
	}

	if status >= fiber.StatusMultipleChoices {
		var eb errorBody
		_ = json.Unmarshal(body, &eb)
		return &APIError{Status: status, Message: eb.Message}
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}
