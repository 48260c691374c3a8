package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/deploymenttheory/go-vmconsole-client/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func loginCommand(h *Handler) *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := h.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			in := bufio.NewReader(cmd.InOrStdin())
			if username == "" {
				if username, err = prompt(cmd.ErrOrStderr(), in, "Username: "); err != nil {
					return err
				}
			}
			password, err := readPassword(cmd, in, "Password: ")
			if err != nil {
				return err
			}
			if username == "" || password == "" {
				return errors.New("username and password are required")
			}

			token, err := a.VMs.Login(ctx, username, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			if token.AccessToken == "" {
				return errors.New("login: backend returned no access token")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username (prompted when empty)")
	return cmd
}

func logoutCommand(h *Handler) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, a, err := h.app(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			if err := a.VMs.Logout(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func whoamiCommand(h *Handler) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored credential's subject and expiry",
		Long: "Show the stored credential's subject and expiry. The token is decoded locally " +
			"without verification; only the backend decides whether it is still accepted.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := h.store()
			if err != nil {
				return err
			}
			token, err := store.Get(cmd.Context())
			if err != nil {
				return err
			}
			if token == "" {
				return errors.New("not logged in")
			}

			out := cmd.OutOrStdout()
			claims, err := session.Inspect(token)
			if errors.Is(err, session.ErrOpaqueCredential) {
				fmt.Fprintln(out, "Logged in (opaque credential)")
				return nil
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "Subject: %s\n", claims.Subject)
			if !claims.ExpiresAt.IsZero() {
				state := "valid"
				if claims.Expired(time.Now()) {
					state = "expired"
				}
				fmt.Fprintf(out, "Expires: %s (%s)\n", claims.ExpiresAt.Local().Format(time.DateTime), state)
			}
			return nil
		},
	}
}

func prompt(w io.Writer, in *bufio.Reader, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// readPassword reads without echo when stdin is a terminal and falls back to a plain line.
func readPassword(cmd *cobra.Command, in *bufio.Reader, label string) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(cmd.ErrOrStderr(), label)
		raw, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(raw), nil
	}
	line, err := prompt(cmd.ErrOrStderr(), in, label)
	return line, err
}
