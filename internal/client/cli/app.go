package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophid/internal/client/client"
	"github.com/dmitrijs2005/gophid/internal/client/config"
)

// API is the part of client.Client the commands use.
type API interface {
	SignUp(ctx context.Context, req client.SignUpRequest) (*client.Profile, error)
	SignIn(ctx context.Context, email, password string) (*client.Profile, error)
	Me(ctx context.Context) (*client.Profile, error)
	Logout()
	Token() string
}

type App struct {
	config      *config.Config
	api         API
	checkHealth func(ctx context.Context, addr string) (string, error)
	reader      *bufio.Reader
	out         io.Writer
	email       string
}

func NewApp(c *config.Config) *App {
	return &App{
		config:      c,
		api:         client.New(c.ServerURL, c.RequestTimeout),
		checkHealth: client.CheckHealth,
		reader:      bufio.NewReader(os.Stdin),
		out:         os.Stdout,
	}
}

// Run starts the REPL and blocks until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	fmt.Fprintf(a.out, "Welcome to GophID CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) isLoggedIn() bool {
	return a.api.Token() != ""
}

func (a *App) getStatus() string {
	if !a.isLoggedIn() {
		return ""
	}
	return fmt.Sprintf("(%s)", a.email)
}

// withTimeout bounds one API call by the configured request timeout.
func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) printProfile(p *client.Profile) {
	fmt.Fprintf(a.out, "id:          %d\n", p.ID)
	fmt.Fprintf(a.out, "given name:  %s\n", p.GivenName)
	fmt.Fprintf(a.out, "family name: %s\n", p.FamilyName)
	fmt.Fprintf(a.out, "email:       %s\n", p.Email)
}
