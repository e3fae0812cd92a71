package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/desertthunder/cur8/internal/repositories"
	"github.com/desertthunder/cur8/internal/server"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/tasks"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Serve runs the backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	srv, err := server.New(r.config, db, spotify, r.logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	r.logger.Info("cur8 backend starting", "addr", r.config.Server.Addr(), "environment", r.config.Server.Environment)
	if err := srv.Run(ctx); err != nil {
		return err
	}
	r.logger.Info("cur8 backend stopped")
	return nil
}

// Sync reads a user's Spotify library with their stored token and queues new tracks, printing progress.
func (r *Runner) Sync(ctx context.Context, cmd *cli.Command) error {
	spotifyUserID := cmd.String("user")

	spotify, err := services.NewSpotifyService(r.config.Credentials.Spotify)
	if err != nil {
		return err
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	user, err := repositories.NewUserRepository(db).GetBySpotifyID(ctx, spotifyUserID)
	if err != nil {
		return fmt.Errorf("failed to find user %s: %w", spotifyUserID, err)
	}

	progress := make(chan tasks.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			r.logger.Debug("sync progress", "phase", update.Phase, "step", update.Step, "total", update.Total)
			r.writePlain("  %s\n", update.Message)
		}
	}()

	r.writePlain("Syncing saved tracks for %s...\n", user.Name())
	result, err := tasks.NewCurator(db, spotify, r.logger).Sync(ctx, user.ID, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	return r.writePlainln("✓ %s saved tracks read, %s queued for review",
		humanize.Comma(int64(result.Fetched)), humanize.Comma(int64(result.Added)))
}
