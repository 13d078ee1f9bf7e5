package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/arpeggia/recordkeeper/internal/models"
	"github.com/arpeggia/recordkeeper/internal/shared"
	"github.com/arpeggia/recordkeeper/internal/store"
)

// migrator is satisfied by backends with versioned schema migrations.
type migrator interface {
	Migrate(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
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

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		initCommand, migrateCommand, rollbackCommand, pingCommand, infoCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig resolves the effective configuration for a command. An explicit
// --config path must exist; the default path falls back to the in-memory
// config when absent.
func (r *Runner) loadConfig(cmd *cli.Command) (*shared.Config, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err != nil {
		if cmd.IsSet("config") {
			return nil, fmt.Errorf("%w: config file %s not found", shared.ErrConfiguration, path)
		}
		return r.config, nil
	}
	return shared.LoadConfig(path)
}

// open validates config and connects to the selected backend.
func (r *Runner) open(ctx context.Context, cmd *cli.Command) (models.Store, *shared.Config, error) {
	config, err := r.loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	s, err := store.Open(ctx, config, r.logger)
	if err != nil {
		return nil, nil, err
	}
	return s, config, nil
}

// Init writes the embedded starter config to the given path.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	return r.writePlainln("Wrote starter config to %s", path)
}

// Migrate applies pending migrations on backends that carry a schema.
func (r *Runner) Migrate(ctx context.Context, cmd *cli.Command) error {
	s, config, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m, ok := s.(migrator)
	if !ok {
		return r.writePlainln("Backend %q has no schema migrations", config.Backend.Name)
	}

	if err := m.Migrate(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return r.writePlainln("Migrations applied on %q", config.Backend.Name)
}

// Rollback reverts the most recent migration.
func (r *Runner) Rollback(ctx context.Context, cmd *cli.Command) error {
	s, config, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	m, ok := s.(migrator)
	if !ok {
		return r.writePlainln("Backend %q has no schema migrations", config.Backend.Name)
	}

	if err := m.Rollback(ctx); err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return r.writePlainln("Rolled back most recent migration on %q", config.Backend.Name)
}

// Ping verifies connectivity to the configured backend.
func (r *Runner) Ping(ctx context.Context, cmd *cli.Command) error {
	s, config, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	return r.writePlainln("Backend %q is reachable", config.Backend.Name)
}

// Info reports the active backend and its capability flags.
func (r *Runner) Info(ctx context.Context, cmd *cli.Command) error {
	s, config, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	caps := s.Capabilities()

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"backend":      config.Backend.Name,
			"capabilities": caps,
		}, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Backend: %s", config.Backend.Name))
	r.writePlain("Range queries:  %v\n", caps.RangeQueries)
	r.writePlain("Durable:        %v\n", caps.Durable)
	r.writePlain("Transactional:  %v\n", caps.Transactional)
	return nil
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
	text := fmt.Sprintf(format, args...) + "\n"
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
