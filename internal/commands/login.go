package commands

import (
	"context"
	"flag"
	"fmt"

	"syncdo/internal/exitcode"
	"syncdo/internal/service"
	"syncdo/internal/session"
)

func init() {
	Register(&LoginCmd{})
	Register(&SignupCmd{})
}

// LoginCmd implements the login command: email and password, or browser
// sign-in through a local callback server.
type LoginCmd struct {
	email    string
	password string
	browser  bool
}

// SetCredentials sets the login flags (for testing).
func (c *LoginCmd) SetCredentials(email, password string) {
	c.email = email
	c.password = password
}

func (c *LoginCmd) Name() string      { return "login" }
func (c *LoginCmd) Aliases() []string { return nil }
func (c *LoginCmd) Synopsis() string  { return "Log in to SyncDo" }
func (c *LoginCmd) Usage() string {
	return "syncdo login [common flags] (--email <email> --password <password> | --browser)"
}
func (c *LoginCmd) NeedsAuth() bool { return false }

func (c *LoginCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
	fs.BoolVar(&c.browser, "browser", false, "")
}

func (c *LoginCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return reportUsage(env, errUnexpectedArgs(args))
	}
	if env.Guard.Resolve(session.ScreenLogin) == session.ScreenTasks {
		if !env.Config.Quiet {
			fmt.Fprintln(env.Out, "already logged in")
		}
		return exitcode.Success
	}

	if c.browser {
		return c.browserLogin(ctx, env)
	}

	token, err := env.Service.Login(ctx, service.Credentials{Email: c.email, Password: c.password})
	if err != nil {
		env.Log.WithError(err).Debug("login failed")
		return reportAuth(env, err)
	}
	return storeCredential(ctx, env, token)
}

// browserLogin sends the user to the server's federated sign-in and waits for
// the redirect to land on the local callback server.
func (c *LoginCmd) browserLogin(ctx context.Context, env *Env) int {
	server, err := session.NewCallbackServer(env.Guard)
	if err != nil {
		fmt.Fprintf(env.Err, "error: %v\n", err)
		return exitcode.AuthError
	}
	defer server.Close()

	fmt.Fprintln(env.Err, "Open this URL in your browser:")
	fmt.Fprintln(env.Err, env.Config.FederatedLoginURL(server.RedirectURL()))

	screen, err := server.WaitForCallback(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(env.Err, "error: %v\n", err)
		return exitcode.AuthError
	case screen != session.ScreenTasks:
		fmt.Fprintln(env.Err, "error: no token in callback")
		return exitcode.AuthError
	}
	return printOK(env)
}

// SignupCmd implements the signup command.
type SignupCmd struct {
	name     string
	email    string
	password string
}

// SetFields sets the signup flags (for testing).
func (c *SignupCmd) SetFields(name, email, password string) {
	c.name = name
	c.email = email
	c.password = password
}

func (c *SignupCmd) Name() string      { return "signup" }
func (c *SignupCmd) Aliases() []string { return []string{"register"} }
func (c *SignupCmd) Synopsis() string  { return "Create an account and log in" }
func (c *SignupCmd) Usage() string {
	return "syncdo signup [common flags] --name <name> --email <email> --password <password>"
}
func (c *SignupCmd) NeedsAuth() bool { return false }

func (c *SignupCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.name, "name", "", "")
	fs.StringVar(&c.email, "email", "", "")
	fs.StringVar(&c.password, "password", "", "")
}

func (c *SignupCmd) Run(ctx context.Context, env *Env, args []string) int {
	if len(args) > 0 {
		return reportUsage(env, errUnexpectedArgs(args))
	}
	if env.Guard.Resolve(session.ScreenLogin) == session.ScreenTasks {
		fmt.Fprintln(env.Err, "error: already logged in (run: syncdo logout)")
		return exitcode.UserError
	}

	token, err := env.Service.Signup(ctx, service.Signup{Name: c.name, Email: c.email, Password: c.password})
	if err != nil {
		env.Log.WithError(err).Debug("signup failed")
		return reportAuth(env, err)
	}
	return storeCredential(ctx, env, token)
}

func storeCredential(ctx context.Context, env *Env, token string) int {
	if err := env.Session.Set(ctx, token); err != nil {
		fmt.Fprintf(env.Err, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}
	return printOK(env)
}
