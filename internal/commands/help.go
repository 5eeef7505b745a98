package commands

import (
	"context"
	"flag"
	"fmt"
	"io"
	"strings"

	"syncdo/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "syncdo help [command]" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		cmd, ok := DefaultRegistry.Find(args[0])
		if !ok {
			fmt.Fprintf(env.Err, "error: unknown command: %s\n", args[0])
			return exitcode.UserError
		}
		fmt.Fprintf(env.Out, "Usage:\n  %s\n\n%s\n", cmd.Usage(), cmd.Synopsis())
		if aliases := cmd.Aliases(); len(aliases) > 0 {
			fmt.Fprintf(env.Out, "Aliases: %s\n", strings.Join(aliases, ", "))
		}
		fmt.Fprint(env.Out, commonFlagsText)
		return exitcode.Success
	}
	WriteHelp(env.Out, DefaultRegistry)
	return exitcode.Success
}

// WriteHelp prints the top-level usage for every command in r.
func WriteHelp(w io.Writer, r *Registry) {
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  syncdo                  List open tasks")
	for _, cmd := range r.All() {
		fmt.Fprintf(w, "  %-22s  %s\n", cmd.Name(), cmd.Synopsis())
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, `Run "syncdo help <command>" for command flags.`)
	fmt.Fprint(w, commonFlagsText)
}

const commonFlagsText = `
Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
