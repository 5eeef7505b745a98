// Package cli parses the command line and runs the selected command.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"syncdo/internal/commands"
	"syncdo/internal/config"
	"syncdo/internal/exitcode"
	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
)

// ServiceFactory creates a Service from config. tokens yields the current
// session credential for authenticated calls.
type ServiceFactory func(ctx context.Context, cfg *config.Config, tokens oauth2.TokenSource, logger log.FieldLogger) (service.Service, error)

// PersisterFactory selects the durable storage for the session credential.
type PersisterFactory func(cfg *config.Config) (session.Persister, error)

// DefaultPersister stores the token in the config directory, or in Redis
// when session_backend is "redis".
func DefaultPersister(cfg *config.Config) (session.Persister, error) {
	if cfg.SessionBackend == config.SessionBackendRedis {
		return session.DialRedisPersister(cfg.RedisURL, cfg.RedisKey)
	}
	return session.NewFilePersister(cfg.TokenPath()), nil
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithPersister overrides where the session credential is kept.
func WithPersister(f PersisterFactory) Option {
	return func(d *Dispatcher) { d.persister = f }
}

// WithInput sets the reader used for confirmation prompts.
func WithInput(r io.Reader) Option {
	return func(d *Dispatcher) { d.in = r }
}

// Dispatcher handles command-line parsing and dispatch.
type Dispatcher struct {
	registry  *commands.Registry
	factory   ServiceFactory
	persister PersisterFactory
	in        io.Reader
}

// NewDispatcher creates a new dispatcher with the given registry and service factory.
func NewDispatcher(registry *commands.Registry, factory ServiceFactory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry:  registry,
		factory:   factory,
		persister: DefaultPersister,
		in:        os.Stdin,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run parses arguments and dispatches to the appropriate command.
// Returns the exit code.
func (d *Dispatcher) Run(ctx context.Context, args []string, out, errOut io.Writer) int {
	// No args -> list open tasks
	if len(args) == 0 {
		return d.dispatch(ctx, "list", nil, out, errOut)
	}

	cmdName := args[0]

	// Flags require a command
	if strings.HasPrefix(cmdName, "-") {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}

	return d.dispatch(ctx, cmdName, args[1:], out, errOut)
}

func (d *Dispatcher) dispatch(ctx context.Context, cmdName string, args []string, out, errOut io.Writer) int {
	cmd, ok := d.registry.Find(cmdName)
	if !ok {
		fmt.Fprintf(errOut, "error: unknown command: %s\n", cmdName)
		return exitcode.UserError
	}
	return d.dispatchCommand(ctx, cmd, args, out, errOut)
}

func (d *Dispatcher) dispatchCommand(ctx context.Context, cmd commands.Command, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet(cmd.Name(), flag.ContinueOnError)
	fs.SetOutput(io.Discard) // We handle errors ourselves

	// Common flags
	var configDir string
	var quiet bool
	var debug bool

	fs.StringVar(&configDir, "config", "", "")
	fs.BoolVar(&quiet, "quiet", false, "")
	fs.BoolVar(&debug, "debug", false, "")

	cmd.RegisterFlags(fs)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(out, "Usage:\n  %s\n", cmd.Usage())
			return exitcode.Success
		}
		fmt.Fprintf(errOut, "error: %s\n", flagError(err))
		return exitcode.UserError
	}

	// A leftover dash argument should have been parsed as a flag
	positionalArgs := fs.Args()
	if len(positionalArgs) > 0 && strings.HasPrefix(positionalArgs[0], "-") && positionalArgs[0] != "-" {
		fmt.Fprintf(errOut, "error: unknown flag: %s\n", positionalArgs[0])
		return exitcode.UserError
	}

	cfg, err := config.Load(configDir)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	cfg.Quiet = quiet
	cfg.Debug = debug

	logger := newLogger(errOut, debug)
	logger.WithFields(log.Fields{"command": cmd.Name(), "config": cfg.Dir}).Debug("dispatch")

	persister, err := d.persister(cfg)
	if err != nil {
		fmt.Fprintf(errOut, "error: %s\n", err)
		return exitcode.UserError
	}
	if closer, ok := persister.(io.Closer); ok {
		defer closer.Close()
	}

	store := session.NewStore(persister)
	if err := store.Load(ctx); err != nil {
		fmt.Fprintf(errOut, "error: read session: %s\n", err)
		return exitcode.BackendError
	}
	guard := session.NewGuard(store)

	if cmd.NeedsAuth() && !guard.Authenticated() {
		fmt.Fprintln(errOut, "error: not logged in (run: syncdo login)")
		return exitcode.AuthError
	}

	svc, err := d.factory(ctx, cfg, store, logger)
	if err != nil {
		fmt.Fprintf(errOut, "error: backend error: %s\n", err)
		return exitcode.BackendError
	}

	env := &commands.Env{
		Config:  cfg,
		Session: store,
		Guard:   guard,
		Service: svc,
		Tasks:   tasks.NewSyncer(svc, store, logger),
		Log:     logger,
		In:      d.in,
		Out:     out,
		Err:     errOut,
	}
	return cmd.Run(ctx, env, positionalArgs)
}

// flagError rewrites flag package errors into the CLI's wording.
func flagError(err error) string {
	errStr := err.Error()

	// Missing flag value
	if strings.Contains(errStr, "needs a value") || strings.Contains(errStr, "flag needs an argument") {
		parts := strings.Split(errStr, ":")
		flagPart := strings.TrimSpace(parts[len(parts)-1])
		return "flag needs an argument: " + flagPart
	}

	if strings.HasPrefix(errStr, "flag provided but not defined:") {
		return "unknown flag: " + strings.TrimPrefix(errStr, "flag provided but not defined: ")
	}

	return errStr
}

// newLogger discards everything unless debug is set, in which case debug
// records go to errOut.
func newLogger(errOut io.Writer, debug bool) *log.Logger {
	logger := log.New()
	logger.SetFormatter(&log.TextFormatter{DisableTimestamp: true})
	logger.SetOutput(io.Discard)
	if debug {
		logger.SetOutput(errOut)
		logger.SetLevel(log.DebugLevel)
	}
	return logger
}
