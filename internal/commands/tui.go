package commands

import (
	"context"
	"flag"
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"

	"syncdo/internal/exitcode"
	"syncdo/internal/tui"
)

func init() {
	Register(&TuiCmd{})
}

// TuiCmd starts the interactive terminal client. Diagnostics go to the log
// file in the config directory while the screen is in use.
type TuiCmd struct{}

func (c *TuiCmd) Name() string      { return "tui" }
func (c *TuiCmd) Aliases() []string { return []string{"ui"} }
func (c *TuiCmd) Synopsis() string  { return "Open the interactive client" }
func (c *TuiCmd) Usage() string     { return "syncdo tui [common flags]" }
func (c *TuiCmd) NeedsAuth() bool   { return false }

func (c *TuiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *TuiCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return reportUsage(env, errUnexpectedArgs(args))
	}
	if err := env.Config.EnsureDir(); err != nil {
		fmt.Fprintf(env.Err, "error: %v\n", err)
		return exitcode.UserError
	}
	f, err := os.OpenFile(env.Config.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		fmt.Fprintf(env.Err, "error: open log: %v\n", err)
		return exitcode.UserError
	}
	defer f.Close()

	env.Log.SetOutput(f)
	env.Log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	if env.Config.Debug {
		env.Log.SetLevel(log.DebugLevel)
	} else {
		env.Log.SetLevel(log.InfoLevel)
	}
	env.Log.Info("starting terminal client")

	err = tui.Run(ctx, tui.Deps{
		Session:  env.Session,
		Guard:    env.Guard,
		Service:  env.Service,
		Tasks:    env.Tasks,
		Log:      env.Log,
		LoginURL: env.Config.FederatedLoginURL,
	})
	if err != nil {
		env.Log.WithError(err).Error("terminal client failed")
		fmt.Fprintf(env.Err, "error: %v\n", err)
		return exitcode.BackendError
	}
	return exitcode.Success
}
