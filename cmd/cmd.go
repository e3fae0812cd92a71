// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// globalFlags are accepted by every command.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("CUR8_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "api-url",
			Usage:   "cur8 backend address (overrides client.api_url)",
			Sources: cli.EnvVars("CUR8_API_URL"),
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable debug logging",
		},
	}
}

// setupCommand handles setup operations for the configuration file and database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Create a configuration file with a fresh session secret",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:   "status",
				Usage:  "Show applied database migrations",
				Action: r.SetupStatus,
			},
		},
	}
}

// serveCommand runs the backend.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the cur8 backend",
		Action: r.Serve,
	}
}

// syncCommand refreshes a user's review queue from their Spotify library.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "sync",
		Usage: "Queue a user's saved tracks for review (backend database)",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "user",
				Aliases:  []string{"u"},
				Usage:    "Spotify user ID",
				Required: true,
			},
		},
		Action: r.Sync,
	}
}

// authCommands handle the terminal session.
func authCommands(r *Runner) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "login",
			Usage: "Log in with Spotify in the browser",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "no-browser",
					Usage: "Print the login URL instead of opening a browser",
				},
			},
			Action: r.Login,
		},
		{
			Name:   "logout",
			Usage:  "End the current session",
			Action: r.Logout,
		},
		{
			Name:   "whoami",
			Usage:  "Show the logged in Spotify account",
			Action: r.WhoAmI,
		},
		{
			Name:   "health",
			Usage:  "Check that the backend and its database are reachable",
			Action: r.Health,
		},
	}
}

// trackCommands handle one-shot review operations.
func trackCommands(r *Runner) []*cli.Command {
	return []*cli.Command{
		{
			Name:  "next",
			Usage: "Show the next track to review",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Output raw JSON",
				},
			},
			Action: r.Next,
		},
		{
			Name:      "keep",
			Usage:     "Keep a track in your library",
			ArgsUsage: "<spotify-track-id>",
			Arguments: []cli.Argument{&cli.StringArg{Name: "track-id"}},
			Action:    r.Keep,
		},
		{
			Name:      "remove",
			Usage:     "Remove a track from your library",
			ArgsUsage: "<spotify-track-id>",
			Arguments: []cli.Argument{&cli.StringArg{Name: "track-id"}},
			Action:    r.Remove,
		},
		{
			Name:  "saved",
			Usage: "List tracks saved in your Spotify library",
			Flags: []cli.Flag{
				&cli.IntFlag{
					Name:  "limit",
					Usage: "Maximum number of tracks to return (1-50)",
					Value: 20,
				},
				&cli.IntFlag{
					Name:  "offset",
					Usage: "Index of the first track",
				},
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Output raw JSON",
				},
				&cli.StringFlag{
					Name:  "format",
					Usage: "Export format (csv, md, txt); writes a file",
				},
				&cli.StringFlag{
					Name:    "output",
					Aliases: []string{"o"},
					Usage:   "Export file path",
				},
			},
			Action: r.Saved,
		},
		{
			Name:  "stats",
			Usage: "Show review counts",
			Flags: []cli.Flag{
				&cli.BoolFlag{
					Name:  "json",
					Usage: "Output raw JSON",
				},
			},
			Action: r.Stats,
		},
	}
}

// swipeCommand returns the top-level TUI command.
func swipeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "swipe",
		Aliases: []string{"tui", "ui"},
		Usage:   "Launch the interactive review screen",
		Action:  r.TUI,
	}
}
