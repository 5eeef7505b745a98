package commands

import (
	"context"
	"flag"
	"fmt"
	"time"

	"syncdo/internal/exitcode"
	"syncdo/internal/session"
)

func init() {
	Register(&LogoutCmd{})
	Register(&WhoamiCmd{})
}

// LogoutCmd implements the logout command.
type LogoutCmd struct{}

func (c *LogoutCmd) Name() string      { return "logout" }
func (c *LogoutCmd) Aliases() []string { return nil }
func (c *LogoutCmd) Synopsis() string  { return "Remove the stored credential" }
func (c *LogoutCmd) Usage() string     { return "syncdo logout [common flags]" }
func (c *LogoutCmd) NeedsAuth() bool   { return false }

func (c *LogoutCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *LogoutCmd) Run(ctx context.Context, env *Env, args []string) int {
	if !env.Guard.Authenticated() {
		if !env.Config.Quiet {
			fmt.Fprintln(env.Out, "not logged in")
		}
		return exitcode.Success
	}

	if err := env.Session.Clear(ctx); err != nil {
		fmt.Fprintf(env.Err, "error: failed to remove token: %v\n", err)
		return exitcode.AuthError
	}
	return printOK(env)
}

// WhoamiCmd prints the identity carried by the stored credential. The token
// is decoded, not verified.
type WhoamiCmd struct{}

func (c *WhoamiCmd) Name() string      { return "whoami" }
func (c *WhoamiCmd) Aliases() []string { return nil }
func (c *WhoamiCmd) Synopsis() string  { return "Show the logged-in account" }
func (c *WhoamiCmd) Usage() string     { return "syncdo whoami [common flags]" }
func (c *WhoamiCmd) NeedsAuth() bool   { return true }

func (c *WhoamiCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *WhoamiCmd) Run(ctx context.Context, env *Env, args []string) int {
	credential, _ := env.Session.Current()
	claims, err := session.ParseClaims(credential)
	if err != nil {
		env.Log.WithError(err).Debug("credential is not a readable token")
		fmt.Fprintln(env.Out, "logged in")
		return exitcode.Success
	}

	email := claims.Email
	if email == "" {
		email = "(unknown)"
	}
	fmt.Fprintf(env.Out, "email:   %s\n", email)
	if claims.Subject != "" {
		fmt.Fprintf(env.Out, "user:    %s\n", claims.Subject)
	}
	if !claims.ExpiresAt.IsZero() {
		state := ""
		if claims.Expired(time.Now()) {
			state = " (expired)"
		}
		fmt.Fprintf(env.Out, "expires: %s%s\n", claims.ExpiresAt.UTC().Format(time.RFC3339), state)
	}
	return exitcode.Success
}
