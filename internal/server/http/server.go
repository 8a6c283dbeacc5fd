// Package http exposes the identity API over HTTP using Fiber.
//
// Every request passes through the request logger and the authentication
// middleware; protected routes additionally sit behind RequireSession.
package http

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/dmitrijs2005/gophid/internal/logging"
	"github.com/dmitrijs2005/gophid/internal/server/auth"
	"github.com/dmitrijs2005/gophid/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

// IdentityService is the business logic behind the /users routes.
type IdentityService interface {
	SignUp(ctx context.Context, req services.SignUpRequest) (*services.Profile, error)
	SignIn(ctx context.Context, req services.SignInRequest) (*services.Profile, error)
	Me(ctx context.Context, sess auth.Session) (*services.Profile, error)
}

type SessionVerifier interface {
	VerifySession(token string) (auth.Session, error)
}

// Pinger reports database reachability. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Options struct {
	Address         string
	Prefix          string
	ShutdownTimeout time.Duration
}

type Server struct {
	opts   Options
	app    *fiber.App
	logger logging.Logger
}

func NewServer(opts Options, users IdentityService, tokens SessionVerifier, db Pinger, l logging.Logger) *Server {
	s := &Server{
		opts:   opts,
		logger: l.With("module", "http_server"),
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "gophid",
		DisableStartupMessage: true,
		ErrorHandler:          s.errorHandler,
	})

	s.app.Use(RequestLogger(s.logger))
	s.app.Use(Authenticate(tokens))

	register(s.app.Group(opts.Prefix), NewUsersHandler(users, s.logger), NewHealthHandler(db))

	return s
}

func register(r fiber.Router, users *UsersHandler, health *HealthHandler) {
	r.Get("/health", health.Health)

	u := r.Group("/users")
	u.Post("/", users.SignUp)
	u.Post("/signin", users.SignIn)
	u.Get("/", RequireSession(), users.Me)
}

// App exposes the underlying Fiber app, mainly for app.Test.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then shuts down gracefully within
// Options.ShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.opts.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String(), "prefix", s.opts.Prefix)
		errCh <- s.app.Listener(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info(ctx, "Stopping HTTP server...")

	timeout := s.opts.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownErr := s.app.ShutdownWithTimeout(timeout)

	// Shutdown only closes listeners Fiber has already picked up; if ctx was
	// cancelled before Listener got there, closing ln is what stops it.
	_ = ln.Close()
	err := <-errCh
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}

	if shutdownErr != nil && !errors.Is(shutdownErr, context.DeadlineExceeded) {
		return shutdownErr
	}
	return err
}
