package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/urfave/cli/v3"
)

// Login runs the browser login and saves the session.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if cmd.Bool("no-browser") {
		r.holder.WithOpener(func(string) error { return nil })
	}

	r.logger.Info("starting login", "api", r.api.BaseURL())
	user, err := r.holder.Login(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", shared.ErrAuthFailed, err)
	}

	r.logger.Info("authentication successful", "user", user.SpotifyUserID)
	return r.writePlain("✓ Logged in as %s\n", user.Name())
}

// Logout ends the session on the backend and removes it locally.
func (r *Runner) Logout(ctx context.Context, cmd *cli.Command) error {
	if r.api.Session() == "" {
		return r.writePlain("Not logged in\n")
	}

	if err := r.holder.Logout(ctx); err != nil {
		r.logger.Warn("backend logout failed; local session removed", "error", err)
	}
	return r.writePlain("✓ Logged out\n")
}

// WhoAmI prints the account owning the saved session.
func (r *Runner) WhoAmI(ctx context.Context, cmd *cli.Command) error {
	user, err := r.holder.Check(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("✗ Not logged in\n")
	} else if err != nil {
		return err
	}

	r.writePlain("✓ Logged in as %s\n", user.Name())
	r.writePlain("Spotify ID: %s\n", user.SpotifyUserID)
	return nil
}

// Health checks that the backend and its database are reachable.
func (r *Runner) Health(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("checking backend health", "api", r.api.BaseURL())

	status, err := r.api.Health(ctx)
	if err != nil {
		var apiErr *services.APIError
		if errors.As(err, &apiErr) {
			return fmt.Errorf("%w: %s", shared.ErrServiceUnavailable, apiErr.Detail)
		}
		return fmt.Errorf("%w: %w", shared.ErrServiceUnavailable, err)
	}

	return r.writePlain("✓ Backend is healthy\nStatus: %s\n", status.Status)
}
