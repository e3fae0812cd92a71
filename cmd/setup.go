package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/cur8/internal/shared"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes a configuration file from the embedded template with a random session secret.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	if err := shared.CreateConfigFile(r.configPath); err != nil {
		return err
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return err
	}

	secret, err := shared.GenerateToken(48)
	if err != nil {
		return err
	}
	config.Server.SessionSecret = secret

	if err := shared.SaveConfig(r.configPath, config); err != nil {
		return err
	}
	r.config = config

	r.logger.Info("config file created", "path", r.configPath)
	r.writePlain("✓ Configuration written to %s\n", r.configPath)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set credentials.spotify.client_id to your Spotify app's client ID\n")
	r.writePlain("2. Register %s as a redirect URI in the Spotify dashboard\n", config.Credentials.Spotify.RedirectURI)
	r.writePlain("3. Run 'cur8 setup database' and then 'cur8 serve'\n")
	return nil
}

// openDatabase opens the configured database and applies pending migrations.
func (r *Runner) openDatabase() (*sql.DB, error) {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	r.logger.Debug("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s\n", r.config.Database.Path)
}

// SetupStatus lists migrations and when they were applied.
func (r *Runner) SetupStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	states, err := shared.MigrationStatus(db)
	if err != nil {
		return err
	}

	r.writePlainHeader(fmt.Sprintf("Migrations (%s)", r.config.Database.Path))
	for _, state := range states {
		if state.Applied {
			r.writePlain("✓ %04d %-28s applied %s\n", state.Version, state.Name, humanize.Time(state.AppliedAt))
		} else {
			r.writePlain("✗ %04d %-28s pending\n", state.Version, state.Name)
		}
	}
	return nil
}
