package commands

import (
	"context"
	"flag"

	"syncdo/internal/exitcode"
	"syncdo/internal/output"
	"syncdo/internal/tasks"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
// Handles both `syncdo` (no args) and `syncdo list [--history | --tab NAME]`.
type ListCmd struct {
	history bool
	tab     string
}

// SetTab selects a partition by name (for testing).
func (c *ListCmd) SetTab(name string) {
	c.tab = name
}

// SetHistory selects the history partition (for testing).
func (c *ListCmd) SetHistory(history bool) {
	c.history = history
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string     { return "syncdo list [--history | --tab tasks|history]" }
func (c *ListCmd) NeedsAuth() bool   { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.history, "history", false, "")
	fs.BoolVar(&c.history, "H", false, "")
	fs.StringVar(&c.tab, "tab", "", "")
}

func (c *ListCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return reportUsage(env, errUnexpectedArgs(args))
	}

	tab, err := tasks.ParseTab(c.tab)
	if err != nil {
		return reportUsage(env, err)
	}
	if c.history {
		tab = tasks.TabHistory
	}

	if err := env.Tasks.Load(ctx); err != nil {
		return report(env, err)
	}
	output.FormatView(env.Out, env.Tasks.View(tab), env.Config.Quiet)
	return exitcode.Success
}
