// Package commands provides the command interface and implementations.
package commands

import (
	"context"
	"flag"
	"io"

	log "github.com/sirupsen/logrus"

	"syncdo/internal/config"
	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
)

// Env is everything a command may touch. The dispatcher builds one per run.
type Env struct {
	Config  *config.Config
	Session *session.Store
	Guard   *session.Guard
	Service service.Service
	Tasks   *tasks.Syncer
	Log     *log.Logger

	In  io.Reader
	Out io.Writer
	Err io.Writer
}

// Command defines the interface for CLI commands.
type Command interface {
	// Name returns the primary command name.
	Name() string

	// Aliases returns alternative names for the command.
	Aliases() []string

	// Synopsis returns a short description for help output.
	Synopsis() string

	// Usage returns the usage string for help output.
	Usage() string

	// NeedsAuth returns true if the command requires a stored credential.
	// The dispatcher refuses to run such commands without one.
	NeedsAuth() bool

	// RegisterFlags registers command-specific flags.
	RegisterFlags(fs *flag.FlagSet)

	// Run executes the command with positional args and returns the exit code.
	Run(ctx context.Context, env *Env, args []string) int
}
