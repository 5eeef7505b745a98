package commands

import (
	"errors"
	"fmt"
	"strings"

	"syncdo/internal/exitcode"
	"syncdo/internal/service"
	"syncdo/internal/session"
	"syncdo/internal/tasks"
)

const requestFailed = "request failed (run with --debug for details)"

// report prints err on env.Err and maps it to an exit code.
func report(env *Env, err error) int {
	switch {
	case errors.Is(err, tasks.ErrSessionExpired):
		fmt.Fprintln(env.Err, "error: session expired (run: syncdo login)")
		return exitcode.AuthError
	case errors.Is(err, session.ErrNoCredential):
		fmt.Fprintln(env.Err, "error: not logged in (run: syncdo login)")
		return exitcode.AuthError
	case errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidPriority),
		errors.Is(err, service.ErrInvalidDueDate),
		errors.Is(err, tasks.ErrNotFound):
		fmt.Fprintf(env.Err, "error: %v\n", err)
		return exitcode.UserError
	case errors.Is(err, tasks.ErrStaleResponse):
		fmt.Fprintln(env.Err, "error: session changed, try again")
		return exitcode.UserError
	}
	// The cause is already in the log; --debug sends it to stderr.
	fmt.Fprintln(env.Err, "error: "+requestFailed)
	return exitcode.BackendError
}

// reportAuth prints the user-facing text for a failed login or signup.
func reportAuth(env *Env, err error) int {
	fmt.Fprintf(env.Err, "error: %s\n", service.AuthMessage(err))
	var apiErr *service.APIError
	if errors.As(err, &apiErr) || errors.Is(err, service.ErrCredentialsRequired) || errors.Is(err, service.ErrNameRequired) {
		return exitcode.AuthError
	}
	return exitcode.BackendError
}

// printOK prints "ok" unless --quiet.
func printOK(env *Env) int {
	if !env.Config.Quiet {
		fmt.Fprintln(env.Out, "ok")
	}
	return exitcode.Success
}

// reportUsage prints a usage problem and returns exitcode.UserError.
func reportUsage(env *Env, err error) int {
	fmt.Fprintf(env.Err, "error: %v\n", err)
	return exitcode.UserError
}

func errUnexpectedArgs(args []string) error {
	return fmt.Errorf("unexpected arguments: %s", strings.Join(args, " "))
}
