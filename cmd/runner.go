package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/hwi0-02/Stonetify-sub000/internal/player"
	"github.com/hwi0-02/Stonetify-sub000/internal/repositories"
	"github.com/hwi0-02/Stonetify-sub000/internal/services"
	"github.com/hwi0-02/Stonetify-sub000/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Construction is two-phase: NewRunner fills the cheap pieces, bootstrap
// wires the database, stores, and provider once a command knows its config
// path. Tests inject pre-wired stores and providers to skip bootstrap.
type Runner struct {
	config     *shared.Config
	db         *sql.DB
	cipher     *shared.TokenCipher
	tokens     repositories.TokenRepository
	devices    repositories.DeviceRepository
	provider   services.Provider
	refresher  services.Refresher
	history    services.History
	oauth      *oauth2.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Provider   services.Provider
	Refresher  services.Refresher
	History    services.History
	Tokens     repositories.TokenRepository
	Devices    repositories.DeviceRepository
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

	return &Runner{
		config:     opts.Config,
		provider:   opts.Provider,
		refresher:  opts.Refresher,
		history:    opts.History,
		tokens:     opts.Tokens,
		devices:    opts.Devices,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// SetLogger swaps the runner's logger, used when the TUI redirects logs to a file.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database handle when one was opened.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, devicesCommand, playCommand, pauseCommand,
		stopCommand, nextCommand, previousCommand, seekCommand, volumeCommand,
		shuffleCommand, repeatCommand, statusCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// bootstrap loads configuration and wires the token store, device store,
// provider client, and refresh coordinator. Idempotent; commands call it
// at the top of their action. Pre-wired runners (tests) skip wiring.
func (r *Runner) bootstrap(ctx context.Context, cmd *cli.Command) error {
	if r.provider != nil && r.refresher != nil {
		return nil
	}

	configPath := cmd.String("config")
	if configPath == "" {
		configPath = "config.toml"
	}
	if _, err := os.Stat(configPath); err == nil {
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		r.config = config
	}

	key, err := shared.TokenKey()
	if err != nil {
		return err
	}
	cipher, err := shared.NewTokenCipher(key)
	if err != nil {
		return fmt.Errorf("failed to initialize token cipher: %w", err)
	}
	r.cipher = cipher

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	r.db = db

	r.tokens = repositories.NewTokenRepository(db, cipher, nil, r.logger)
	r.devices = repositories.NewDeviceRepository(db, nil)

	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set in %s", shared.ErrMissingCredentials, configPath)
	}
	r.oauth = services.NewOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	r.provider = services.NewSpotifyPlayer(r.httpClient, r.config.Tokens.RateLimit, r.logger)
	r.refresher = services.NewRefreshCoordinator(r.tokens, cipher, r.oauth, r.provider, r.config.Tokens.RotationCeiling, r.logger)
	r.history = services.NewHistoryClient(r.config.History.BaseURL, r.httpClient)

	return nil
}

// resolveUser returns the user a command acts for: the --user flag when
// given, otherwise the most recently authorized account.
func (r *Runner) resolveUser(ctx context.Context, cmd *cli.Command) (string, error) {
	if user := cmd.String("user"); user != "" {
		return user, nil
	}
	user, err := r.tokens.ActiveUser(ctx)
	if err != nil {
		return "", fmt.Errorf("no authorized user, run 'stonetify auth' first: %w", err)
	}
	return user, nil
}

// authorize mints a fresh access token for userID and installs it on the
// provider client. Every CLI invocation starts from the stored refresh
// token; there is no access-token cache between processes.
func (r *Runner) authorize(ctx context.Context, userID string) (*services.RefreshResult, error) {
	result, err := r.refresher.Refresh(ctx, userID)
	if err != nil {
		if shared.RequiresReauth(err) {
			r.writePlainln("⚠ Authorization expired. Run 'stonetify auth' to reconnect.")
		}
		return nil, err
	}
	r.provider.Authorize(result.AccessToken)
	return result, nil
}

// newAdapter builds the playback adapter for one-shot commands and the TUI.
func (r *Runner) newAdapter(userID string) *player.Adapter {
	return player.NewAdapter(userID, r.provider, r.refresher, r.devices, player.AdapterOptions{
		PollInterval: time.Duration(r.config.Player.PollIntervalMS) * time.Millisecond,
		Logger:       r.logger,
	})
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
