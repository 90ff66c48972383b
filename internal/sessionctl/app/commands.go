package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"

	"github.com/aussiebroadwan/sessionkit/pkg/authsdk"
)

// ErrUsage is returned when the command line does not name a valid command.
var ErrUsage = errors.New("usage error")

const usage = `usage: sessionctl [flags] <command> [args]

commands:
  login <email> <password>            log in and store the session
  register <name> <email> <password>  create an account (does not log in)
  logout                              clear the stored session
  revoke                              end the session on the server, then log out
  status                              show whether a session is stored
  whoami                              fetch the profile from the server
  refresh                             trade the refresh token for a new access token
  fetch <method> <url> [body]         call an endpoint with the stored session
`

type command struct {
	args int // required positional arguments
	opt  int // optional trailing arguments
	run  func(app *Application, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":    {args: 2, run: (*Application).login},
	"register": {args: 3, run: (*Application).register},
	"logout":   {run: (*Application).logout},
	"revoke":   {run: (*Application).revoke},
	"status":   {run: (*Application).status},
	"whoami":   {run: (*Application).whoami},
	"refresh":  {run: (*Application).refresh},
	"fetch":    {args: 2, opt: 1, run: (*Application).fetch},
}

// Usage writes the command summary to w.
func Usage(w io.Writer) {
	fmt.Fprint(w, usage)
}

// Run executes one command.
func (app *Application) Run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: no command given", ErrUsage)
	}

	name, rest := args[0], args[1:]
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: unknown command %q", ErrUsage, name)
	}
	if len(rest) < cmd.args || len(rest) > cmd.args+cmd.opt {
		return fmt.Errorf("%w: %s takes %d argument(s), got %d", ErrUsage, name, cmd.args, len(rest))
	}

	app.nav.enter("/" + name)
	app.logger.Debug("running command", "command", name)
	return cmd.run(app, ctx, rest)
}

func (app *Application) login(ctx context.Context, args []string) error {
	resp, err := app.session.Login(ctx, args[0], args[1])
	if err != nil {
		return err
	}

	if resp.User != nil && resp.User.Name != "" {
		fmt.Fprintf(app.out, "logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	} else {
		fmt.Fprintln(app.out, "logged in")
	}
	if resp.RefreshToken == "" {
		fmt.Fprintln(app.out, "warning: server sent no refresh token, the session cannot be renewed")
	}
	return nil
}

func (app *Application) register(ctx context.Context, args []string) error {
	resp, err := app.session.Register(ctx, args[0], args[1], args[2])
	if err != nil {
		return err
	}

	msg := resp.Message
	if msg == "" {
		msg = "account created"
	}
	fmt.Fprintln(app.out, msg)
	return nil
}

func (app *Application) logout(ctx context.Context, _ []string) error {
	app.session.Logout(ctx, true)
	return nil
}

func (app *Application) revoke(ctx context.Context, _ []string) error {
	if err := app.session.Revoke(ctx); err != nil {
		// The local session is gone regardless.
		app.logger.Warn("server did not confirm logout", "error", err)
	}
	return nil
}

func (app *Application) status(ctx context.Context, _ []string) error {
	tw := tabwriter.NewWriter(app.out, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	if !app.session.IsAuthenticated(ctx) {
		fmt.Fprintln(tw, "authenticated:\tno")
		return nil
	}

	fmt.Fprintln(tw, "authenticated:\tyes")
	fmt.Fprintf(tw, "refreshable:\t%s\n", yesNo(app.session.RefreshToken(ctx) != ""))
	if user := app.session.GetUser(ctx); user != nil {
		fmt.Fprintf(tw, "user:\t%s <%s>\n", user.Name, user.Email)
		fmt.Fprintf(tw, "premium:\t%s\n", yesNo(user.IsPremium))
	}
	return nil
}

func (app *Application) whoami(ctx context.Context, _ []string) error {
	user, err := app.session.FetchUser(ctx)
	if err != nil {
		return err
	}
	return writeJSON(app.out, user)
}

func (app *Application) refresh(ctx context.Context, _ []string) error {
	if _, err := app.session.Refresh(ctx); err != nil {
		return err
	}
	fmt.Fprintln(app.out, "access token refreshed")
	return nil
}

func (app *Application) fetch(ctx context.Context, args []string) error {
	opts := &authsdk.RequestOptions{Method: strings.ToUpper(args[0])}
	if len(args) == 3 {
		opts.Body = []byte(args[2])
		opts.Header = http.Header{"Content-Type": {"application/json"}}
	}

	resp, err := app.session.AuthenticatedFetch(ctx, args[1], opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	fmt.Fprintln(app.out, resp.Status)
	var pretty bytes.Buffer
	if json.Indent(&pretty, body, "", "  ") == nil {
		body = pretty.Bytes()
	}
	if len(body) > 0 {
		fmt.Fprintln(app.out, strings.TrimRight(string(body), "\n"))
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
