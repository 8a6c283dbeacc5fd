package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophid/internal/client/client"
	"github.com/dmitrijs2005/gophid/internal/common"
)

// getSimpleText and getPassword are indirections used to facilitate testing.
// They point to interactive input helpers and can be swapped in tests.
var getSimpleText = GetSimpleText
var getPassword = GetPassword

// SignUp prompts for the account details, registers and keeps the session.
func (a *App) SignUp(ctx context.Context) error {
	var req client.SignUpRequest
	fields := []struct {
		prompt string
		dst    *string
	}{
		{"Enter given name", &req.GivenName},
		{"Enter family name", &req.FamilyName},
		{"Enter email", &req.Email},
	}
	for _, f := range fields {
		v, err := getSimpleText(a.reader, f.prompt, a.out)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)
	req.Password = string(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.api.SignUp(ctx, req)
	if err != nil {
		return a.report("Sign up failed", err)
	}

	a.email = p.Email
	fmt.Fprintf(a.out, "Welcome, %s! You are signed in.\n", p.GivenName)
	return nil
}

// SignIn prompts for credentials and starts a session.
func (a *App) SignIn(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.reader, a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.api.SignIn(ctx, email, string(password))
	if err != nil {
		return a.report("Sign in failed", err)
	}

	a.email = p.Email
	fmt.Fprintf(a.out, "Signed in as %s\n", p.Email)
	return nil
}

// Me prints the profile of the signed-in user.
func (a *App) Me(ctx context.Context) error {
	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	p, err := a.api.Me(ctx)
	if err != nil {
		return a.report("Cannot load profile", err)
	}
	a.printProfile(p)
	return nil
}

// Logout drops the in-memory session.
func (a *App) Logout(ctx context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "Not signed in")
		return nil
	}
	a.api.Logout()
	a.email = ""
	fmt.Fprintln(a.out, "Signed out")
	return nil
}

// Status prints the serving status reported by the gRPC health endpoint.
func (a *App) Status(ctx context.Context) error {
	if a.config.HealthAddr == "" {
		fmt.Fprintln(a.out, "Health endpoint is not configured")
		return nil
	}

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()

	status, err := a.checkHealth(ctx, a.config.HealthAddr)
	if err != nil {
		return a.report("Health check failed", err)
	}
	fmt.Fprintf(a.out, "Server status: %s\n", status)
	return nil
}

// report prints a one-line explanation of err and returns it.
func (a *App) report(what string, err error) error {
	switch {
	case errors.Is(err, client.ErrNotSignedIn):
		fmt.Fprintf(a.out, "%s: please sign in first\n", what)
	case errors.Is(err, client.ErrForbidden):
		fmt.Fprintf(a.out, "%s: session is not valid, please sign in again\n", what)
	case errors.Is(err, client.ErrUnavailable):
		fmt.Fprintf(a.out, "%s: server unavailable\n", what)
	default:
		fmt.Fprintf(a.out, "%s: %s\n", what, err.Error())
	}
	return err
}
