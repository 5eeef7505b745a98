package commands

import (
	"context"
	"flag"
)

func init() {
	Register(&DoneCmd{})
	Register(&UndoCmd{})
}

// DoneCmd implements the done command.
type DoneCmd struct{}

func (c *DoneCmd) Name() string                   { return "done" }
func (c *DoneCmd) Aliases() []string              { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string               { return "Mark a task completed" }
func (c *DoneCmd) Usage() string                  { return "syncdo done <ref>" }
func (c *DoneCmd) NeedsAuth() bool                { return true }
func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, env *Env, args []string) int {
	return setCompleted(ctx, env, args, true)
}

// UndoCmd moves a completed task back to the active partition.
type UndoCmd struct{}

func (c *UndoCmd) Name() string                   { return "undo" }
func (c *UndoCmd) Aliases() []string              { return []string{"reopen"} }
func (c *UndoCmd) Synopsis() string               { return "Mark a task not completed" }
func (c *UndoCmd) Usage() string                  { return "syncdo undo <ref>" }
func (c *UndoCmd) NeedsAuth() bool                { return true }
func (c *UndoCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *UndoCmd) Run(ctx context.Context, env *Env, args []string) int {
	return setCompleted(ctx, env, args, false)
}

// setCompleted is the shared implementation for done and undo.
func setCompleted(ctx context.Context, env *Env, args []string, completed bool) int {
	task, _, code, ok := lookupTask(ctx, env, args)
	if !ok {
		return code
	}
	if _, err := env.Tasks.SetCompleted(ctx, task.ID, completed); err != nil {
		return report(env, err)
	}
	return printOK(env)
}
