package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/cur8/internal/formatter"
	"github.com/desertthunder/cur8/internal/models"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// Next prints the next pending track.
func (r *Runner) Next(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	track, err := r.api.NextTrack(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}
	if track == nil {
		return r.writePlain("No more tracks to review\n")
	}

	r.writeTrack(track)
	r.writePlainln("Run 'cur8 keep %s' or 'cur8 remove %s'", track.SpotifyTrackID, track.SpotifyTrackID)
	return nil
}

func (r *Runner) writeTrack(track *models.Track) {
	r.writePlainHeader(track.Name)
	if track.Artists != nil {
		r.writePlain("Artists: %s\n", *track.Artists)
	}
	if track.AlbumName != nil {
		r.writePlain("Album: %s\n", *track.AlbumName)
	}
	if d := track.Duration(); d > 0 {
		r.writePlain("Duration: %s\n", formatter.FormatDuration(d))
	}
	if track.PreviewURL != nil {
		r.writePlain("Preview: %s\n", *track.PreviewURL)
	}
	r.writePlain("Spotify ID: %s\n", track.SpotifyTrackID)
}

// Keep records a keep decision for the track argument.
func (r *Runner) Keep(ctx context.Context, cmd *cli.Command) error {
	return r.swipe(ctx, cmd, models.ActionKeep)
}

// Remove records a remove decision, which also removes the track from the Spotify library.
func (r *Runner) Remove(ctx context.Context, cmd *cli.Command) error {
	return r.swipe(ctx, cmd, models.ActionRemove)
}

func (r *Runner) swipe(ctx context.Context, cmd *cli.Command, action models.Action) error {
	id := strings.TrimSpace(cmd.StringArg("track-id"))
	if id == "" {
		return fmt.Errorf("%w: spotify track id", shared.ErrMissingArgument)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	r.logger.Debug("swiping", "track", id, "action", action)
	if err := r.api.Swipe(ctx, id, action); err != nil {
		return err
	}

	if action == models.ActionRemove {
		return r.writePlain("✗ Removed %s from your library\n", id)
	}
	return r.writePlain("✓ Kept %s\n", id)
}

// Saved lists a page of the Spotify library, or exports it with --format.
func (r *Runner) Saved(ctx context.Context, cmd *cli.Command) error {
	limit, offset := cmd.Int("limit"), cmd.Int("offset")
	if limit < 1 || limit > 50 {
		return fmt.Errorf("%w: limit must be between 1 and 50", shared.ErrInvalidArgument)
	}
	if offset < 0 {
		return fmt.Errorf("%w: offset must not be negative", shared.ErrInvalidArgument)
	}
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	page, err := r.api.Saved(ctx, limit, offset)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(page, true)
	}

	if name := cmd.String("format"); name != "" {
		format, err := formatter.ParseFormat(name)
		if err != nil {
			return err
		}
		title := fmt.Sprintf("Liked Songs (%d-%d of %d)", offset+1, offset+len(page.Items), page.Total)
		path, err := formatter.WriteExport(format, cmd.String("output"), title, page.Tracks())
		if err != nil {
			return err
		}
		return r.writePlain("✓ Exported %d tracks to %s\n", len(page.Items), path)
	}

	r.writePlainHeader(fmt.Sprintf("Saved tracks (%s total)", humanize.Comma(int64(page.Total))))
	for i, item := range page.Items {
		track := item.Track.Model()
		added := item.AddedAt
		if at, err := time.Parse(time.RFC3339, item.AddedAt); err == nil {
			added = humanize.Time(at)
		}
		artists := "Unknown artist"
		if track.Artists != nil {
			artists = *track.Artists
		}
		r.writePlain("%3d. %s - %s (added %s)\n", offset+i+1, artists, track.Name, added)
	}
	if page.Next != nil {
		r.writePlainln("More: cur8 saved --offset %d", offset+len(page.Items))
	}
	return nil
}

// Stats prints review counts.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireSession(ctx); err != nil {
		return err
	}

	stats, err := r.api.Stats(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Review stats")
	r.writePlain("Pending: %s\n", humanize.Comma(int64(stats.Pending)))
	r.writePlain("Kept:    %s\n", humanize.Comma(int64(stats.Kept)))
	r.writePlain("Removed: %s\n", humanize.Comma(int64(stats.Removed)))
	r.writePlain("Total:   %s\n", humanize.Comma(int64(stats.Total())))
	return nil
}
