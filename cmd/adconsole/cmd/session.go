package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jmcleod/adconsole/notify"
	"github.com/jmcleod/adconsole/session"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var passwordFile string
	c := &cobra.Command{
		Use:   "login [username]",
		Short: "Log in and keep the session",
		Long: `Log in to the admin backend. The bearer token is sealed with the device
key and reused by later commands until it expires or you log out.

The password is read from --password-file, or prompted for when the flag is
omitted or "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			in := newInput(cmd)
			username := ""
			if len(args) == 1 {
				username = args[0]
			} else {
				var err error
				if username, err = promptLine(in.Reader, a.errOut, "Username: "); err != nil {
					return err
				}
			}
			return a.login(cmd, in, username, passwordFile)
		}),
	}
	c.Flags().StringVar(&passwordFile, "password-file", "", `Path to a file containing the password, or "-" to prompt`)
	return c
}

// login reads the password and exchanges it for a session.
func (a *app) login(cmd *cobra.Command, in *input, username, passwordFile string) error {
	password, err := readPassword(in, a.errOut, passwordFile)
	if err != nil {
		return err
	}
	defer password.Destroy()

	_, err = a.ctrl.Login(cmd.Context(), username, password.String())
	switch {
	case errors.Is(err, session.ErrStaleSession):
		return err
	case err != nil:
		return reportedError{err}
	}
	notify.Success(a.notifier, notify.MsgLoginSucceeded, "")
	snap := a.store.Snapshot()
	fmt.Fprintf(a.out, "Logged in as %s\n", displayName(snap))
	if len(snap.Permissions) > 0 {
		fmt.Fprintf(a.out, "Permissions: %s\n", strings.Join(snap.Permissions, ", "))
	}
	return nil
}

// input is the command's stdin. tty is set when it is the process terminal.
type input struct {
	*bufio.Reader
	fd  int
	tty bool
}

func newInput(cmd *cobra.Command) *input {
	in := &input{Reader: bufio.NewReader(cmd.InOrStdin())}
	if f, ok := cmd.InOrStdin().(*os.File); ok {
		in.fd = int(f.Fd())
		in.tty = term.IsTerminal(in.fd)
	}
	return in
}

// readPassword reads the password from passwordFile, or from the terminal
// with echo disabled when passwordFile is empty or "-". Without a terminal
// it falls back to one line of input.
func readPassword(in *input, prompt io.Writer, passwordFile string) (*memguard.LockedBuffer, error) {
	if passwordFile != "" && passwordFile != "-" {
		data, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", passwordFile, err)
		}
		data = []byte(strings.TrimRight(string(data), "\r\n"))
		return memguard.NewBufferFromBytes(data), nil
	}

	if in.tty {
		fmt.Fprint(prompt, "Password: ")
		data, err := term.ReadPassword(in.fd)
		fmt.Fprintln(prompt)
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
		return memguard.NewBufferFromBytes(data), nil
	}

	line, err := promptLine(in.Reader, prompt, "Password: ")
	if err != nil {
		return nil, err
	}
	return memguard.NewBufferFromBytes([]byte(line)), nil
}

func promptLine(in *bufio.Reader, prompt io.Writer, label string) (string, error) {
	fmt.Fprint(prompt, label)
	line, err := in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			a.logout(cmd)
			return nil
		}),
	}
}

func (a *app) logout(cmd *cobra.Command) {
	a.ctrl.Logout(cmd.Context())
	notify.Success(a.notifier, notify.MsgLoggedOut, "")
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Verify the session with the backend and show the identity",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			id, err := a.ctrl.Verify(cmd.Context())
			if errors.Is(err, session.ErrNotAuthenticated) {
				notify.Error(a.notifier, notify.MsgNotLoggedIn, "")
				return reportedError{err}
			}
			if err != nil {
				return reported(err)
			}
			printIdentity(a.out, id, a.store.Snapshot().Permissions)
			return nil
		}),
	}
}

func newCSRFCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "csrf",
		Short: "Fetch a fresh anti-forgery token",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			if _, err := a.ctrl.RefreshAntiForgeryToken(cmd.Context()); err != nil {
				if errors.Is(err, session.ErrNotAuthenticated) {
					notify.Error(a.notifier, notify.MsgNotLoggedIn, "")
					return reportedError{err}
				}
				return reported(err)
			}
			fmt.Fprintln(a.out, "Anti-forgery token refreshed")
			return nil
		}),
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the local session without contacting the backend",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app, args []string) error {
			snap := a.store.Snapshot()
			printFields(a.out,
				"State", snap.State.String(),
				"Backend", a.gw.BaseURL(),
				"Storage", a.cfg.Storage.Backend,
			)
			if !snap.Authenticated() {
				return nil
			}
			if !snap.RestoredAt.IsZero() {
				printFields(a.out, "Restored", snap.RestoredAt.Format(time.RFC3339))
			}
			if snap.Identity != nil {
				printIdentity(a.out, snap.Identity, snap.Permissions)
			}
			claims, err := session.InspectToken(snap.BearerToken)
			if err != nil {
				a.logger.Debug("bearer token is not a readable JWT", "error", err)
				return nil
			}
			expiry := "none"
			if !claims.ExpiresAt.IsZero() {
				expiry = claims.ExpiresAt.Format(time.RFC3339)
				if claims.Expired(time.Now()) {
					expiry += " (expired)"
				}
			}
			printFields(a.out, "Subject", claims.Subject, "Token expires", expiry)
			return nil
		}),
	}
}

func printIdentity(w io.Writer, id *session.Identity, permissions []string) {
	scope := "all advertisers"
	if id.AdvertiserScopeID != nil {
		scope = "advertiser " + optionalID(id.AdvertiserScopeID)
	}
	printFields(w,
		"User", fmt.Sprintf("%s (id %d)", id.Username, id.ID),
		"Name", id.DisplayName,
		"Email", id.Email,
		"Superuser", fmt.Sprint(id.IsSuperuser),
		"Scope", scope,
		"Permissions", strings.Join(permissions, ", "),
	)
}

func displayName(snap session.Snapshot) string {
	if snap.Identity == nil {
		return "unknown user"
	}
	if snap.Identity.DisplayName != "" {
		return snap.Identity.DisplayName + " (" + snap.Identity.Username + ")"
	}
	return snap.Identity.Username
}
