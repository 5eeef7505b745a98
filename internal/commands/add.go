package commands

import (
	"context"
	"flag"
	"strings"

	"syncdo/internal/service"
)

func init() {
	Register(&AddCmd{})
}

// AddCmd implements the add command.
type AddCmd struct {
	description string
	due         string
	priority    string
	noCalendar  bool
}

// SetOptions sets the optional fields (for testing).
func (c *AddCmd) SetOptions(description, due, priority string, noCalendar bool) {
	c.description = description
	c.due = due
	c.priority = priority
	c.noCalendar = noCalendar
}

func (c *AddCmd) Name() string      { return "add" }
func (c *AddCmd) Aliases() []string { return []string{"create"} }
func (c *AddCmd) Synopsis() string  { return "Create a task" }
func (c *AddCmd) Usage() string {
	return "syncdo add [--description <text>] [--due <date>] [--priority low|medium|high] [--no-calendar] <title...>"
}
func (c *AddCmd) NeedsAuth() bool { return true }

func (c *AddCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.description, "description", "", "")
	fs.StringVar(&c.description, "d", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.priority, "p", "", "")
	fs.BoolVar(&c.noCalendar, "no-calendar", false, "")
}

func (c *AddCmd) Run(ctx context.Context, env *Env, args []string) int {
	task := service.NewTask{
		Title:            strings.Join(args, " "),
		Description:      strings.TrimSpace(c.description),
		SyncWithCalendar: !c.noCalendar,
	}

	priority, err := service.ParsePriority(c.priority)
	if err != nil {
		return reportUsage(env, err)
	}
	task.Priority = priority

	if strings.TrimSpace(c.due) != "" {
		due, err := service.ParseTimestamp(c.due)
		if err != nil {
			return reportUsage(env, err)
		}
		task.DueDate = &due
	}

	if _, err := env.Tasks.Create(ctx, task); err != nil {
		return report(env, err)
	}
	return printOK(env)
}
