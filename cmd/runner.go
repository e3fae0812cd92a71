package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cur8/internal/services"
	"github.com/desertthunder/cur8/internal/session"
	"github.com/desertthunder/cur8/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	api        *services.APIClient
	holder     *session.Holder
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	r := &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
	r.connect()
	return r
}

// connect builds the backend client and restores the saved session.
func (r *Runner) connect() {
	r.api = services.NewAPIClient(r.config.Client.APIURL, r.httpClient)
	store := session.NewStore(r.config.Client.SessionPath())
	r.holder = session.NewHolder(r.api, store, r.config.Client.CallbackAddr(), r.logger).
		WithPrompt(r.printLoginURL)
}

// Before loads the configuration named by --config and applies the global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	r.configPath = cmd.String("config")

	config, err := shared.LoadOrDefault(r.configPath)
	if err != nil {
		return ctx, err
	}
	if url := cmd.String("api-url"); url != "" {
		config.Client.APIURL = url
	}
	r.config = config

	level := shared.ParseLogLevel(config.Log.Level)
	if cmd.Bool("verbose") {
		level = log.DebugLevel
	}
	shared.SetLogLevel(r.logger, level)

	r.connect()
	r.logger.Debug("configured", "config", r.configPath, "api", r.api.BaseURL())
	return ctx, nil
}

// SetLogger replaces the logger used by commands.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){setupCommand, serveCommand, syncCommand} {
		commands = append(commands, fn(r))
	}
	commands = append(commands, authCommands(r)...)
	commands = append(commands, trackCommands(r)...)
	commands = append(commands, swipeCommand(r))

	return commands
}

// requireSession validates the saved session before a command that needs one.
func (r *Runner) requireSession(ctx context.Context) error {
	if _, err := r.holder.Check(ctx); err != nil {
		if services.IsUnauthorized(err) {
			return fmt.Errorf("%w: run 'cur8 login' first", shared.ErrNotAuthenticated)
		}
		return err
	}
	return nil
}

func (r *Runner) printLoginURL(authURL string, openErr error) {
	if openErr != nil {
		r.logger.Warn("could not open browser", "error", openErr)
	}
	r.writePlain("Open this URL to log in with Spotify:\n\n  %s\n\n", authURL)
	r.writePlain("Waiting for the browser...\n")
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
