package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"strings"

	"syncdo/internal/exitcode"
	"syncdo/internal/tasks"
)

func init() {
	Register(&RmCmd{})
}

// RmCmd implements the rm command. It asks for confirmation unless --yes.
type RmCmd struct {
	yes bool
}

// SetYes pre-confirms the delete (for testing).
func (c *RmCmd) SetYes(yes bool) {
	c.yes = yes
}

func (c *RmCmd) Name() string      { return "rm" }
func (c *RmCmd) Aliases() []string { return []string{"delete"} }
func (c *RmCmd) Synopsis() string  { return "Delete a task" }
func (c *RmCmd) Usage() string     { return "syncdo rm [--yes] <ref>" }
func (c *RmCmd) NeedsAuth() bool   { return true }

func (c *RmCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.yes, "yes", false, "")
	fs.BoolVar(&c.yes, "y", false, "")
}

func (c *RmCmd) Run(ctx context.Context, env *Env, args []string) int {
	task, _, code, ok := lookupTask(ctx, env, args)
	if !ok {
		return code
	}

	var gate tasks.DeleteGate
	gate.Request(task)
	if !c.yes && !confirm(env, fmt.Sprintf("Delete %q? [y/N] ", normalizeOneLine(task.Title))) {
		gate.Cancel()
		if !env.Config.Quiet {
			fmt.Fprintln(env.Out, "cancelled")
		}
		return exitcode.Success
	}

	confirmed, err := gate.Confirm()
	if err != nil {
		return report(env, err)
	}
	if err := env.Tasks.Delete(ctx, confirmed); err != nil {
		return report(env, err)
	}
	return printOK(env)
}

// confirm writes prompt and reads one answer line. Only y or yes agree.
func confirm(env *Env, prompt string) bool {
	if env.In == nil {
		return false
	}
	fmt.Fprint(env.Err, prompt)
	line, err := bufio.NewReader(env.In).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func normalizeOneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
