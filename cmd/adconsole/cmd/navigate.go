package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/adconsole/navigation"
	"github.com/jmcleod/adconsole/session"
)

func newOpenCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "open <path>",
		Short: "Open a console page, e.g. /campaigns/7 or /advertisers?status=active",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			return a.open(cmd, args[0])
		}),
	}
}

// open navigates to path. When a request inside the view tore the session
// down the router is already on the login page, which is rendered too.
func (a *app) open(cmd *cobra.Command, path string) error {
	_, err := a.router.Navigate(cmd.Context(), path)
	if err != nil {
		if cur, ok := a.router.Current(); ok && cur.Route() != nil && cur.Route().Name == navigation.RouteLogin {
			_ = a.loginView(cmd.Context(), cur)
		}
		return reported(err)
	}
	return nil
}

func newRoutesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the console pages",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			printMenu(a.out, a.router.Table())
			return nil
		}),
	}
}

func printMenu(w io.Writer, t *navigation.Table) {
	for _, e := range t.Menu() {
		fmt.Fprintf(w, "%s%-24s %s\n", strings.Repeat("  ", e.Depth), e.Title, mutedStyle.Render(e.Path))
	}
}

func newConsoleCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Browse the console interactively",
		Long: `Start an interactive session. Type a page path to open it, or one of:

  login [username]   log in, then continue to the page that asked for it
  logout             end the session
  whoami             verify the session with the backend
  back               return to the previous page
  routes             list the pages
  exit               leave the console`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			printBanner(a.out)
			return a.repl(cmd, newInput(cmd))
		}),
	}
}

func (a *app) repl(cmd *cobra.Command, in *input) error {
	a.show(a.open(cmd, "/"))
	for {
		prompt := "> "
		if cur, ok := a.router.Current(); ok {
			prompt = cur.FullPath + " > "
		}
		line, err := promptLine(in.Reader, a.out, prompt)
		if err != nil {
			fmt.Fprintln(a.out)
			return nil
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return nil
		case "back":
			_, err := a.router.Back(cmd.Context())
			a.show(reported(err))
		case "routes":
			printMenu(a.out, a.router.Table())
		case "logout":
			a.logout(cmd)
			a.show(a.open(cmd, "/login"))
		case "whoami":
			id, err := a.ctrl.Verify(cmd.Context())
			if err != nil {
				a.show(reported(err))
				continue
			}
			printIdentity(a.out, id, a.store.Snapshot().Permissions)
		case "login":
			username := ""
			if len(fields) > 1 {
				username = fields[1]
			} else if username, err = promptLine(in.Reader, a.errOut, "Username: "); err != nil {
				return nil
			}
			target := a.router.ReturnTarget()
			if err := a.login(cmd, in, username, ""); err != nil {
				a.show(err)
				continue
			}
			a.show(a.open(cmd, target))
		default:
			if strings.HasPrefix(fields[0], "/") {
				a.show(a.open(cmd, fields[0]))
				continue
			}
			fmt.Fprintf(a.errOut, "unknown command %q, type a path like /campaigns or exit\n", fields[0])
		}
	}
}

// show prints err unless the operator has already seen it.
func (a *app) show(err error) {
	var shown reportedError
	if err == nil || errors.As(err, &shown) || errors.Is(err, session.ErrStaleSession) {
		return
	}
	fmt.Fprintln(a.errOut, "Error:", err)
}
