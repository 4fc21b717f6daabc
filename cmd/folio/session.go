package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/folio/internal/auth"
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in as the portfolio owner",
	Long: `Sign in as the portfolio owner. Edits made while signed in are published.

Examples:
  folio login --email me@example.com
  echo "$PASSWORD" | folio login --email me@example.com --password-stdin`,
	RunE: func(cmd *cobra.Command, args []string) error {
		email, _ := cmd.Flags().GetString("email")
		fromStdin, _ := cmd.Flags().GetBool("password-stdin")
		if email == "" {
			return fmt.Errorf("--email is required")
		}
		if !fromStdin {
			fmt.Fprint(os.Stderr, "Password: ")
		}
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}

		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return login(cmd.Context(), env, email, password)
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out; later edits stay on this device",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return logout(cmd.Context(), env)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in owner as the server sees it",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		return whoami(cmd.Context(), env, cmd.OutOrStdout())
	},
}

var editModeCmd = &cobra.Command{
	Use:       "edit-mode [on|off]",
	Short:     "Show or switch edit mode (owner only)",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newClientEnv()
		if err != nil {
			return err
		}
		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		return setEditMode(env, arg, cmd.OutOrStdout())
	},
}

func init() {
	loginCmd.Flags().String("email", "", "owner email")
	loginCmd.Flags().Bool("password-stdin", false, "read the password from stdin without prompting")
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is required")
	}
	return password, nil
}

func login(ctx context.Context, env *clientEnv, email, password string) error {
	id, err := env.gate.SignIn(ctx, email, password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		return fmt.Errorf("sign-in failed: wrong email or password")
	}
	if err != nil {
		return fmt.Errorf("sign-in failed: %w", err)
	}
	printSuccess("Signed in as %s until %s", id.Email, id.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

func logout(ctx context.Context, env *clientEnv) error {
	if _, ok := env.gate.Identity(); !ok {
		printWarning("Not signed in")
		return env.gate.SignOut(ctx)
	}
	if err := env.gate.SignOut(ctx); err != nil {
		printWarning("Signed out on this device, but %v", err)
		return nil
	}
	printSuccess("Signed out")
	return nil
}

func whoami(ctx context.Context, env *clientEnv, w io.Writer) error {
	if _, ok := env.gate.Identity(); !ok {
		return fmt.Errorf("not signed in")
	}
	id, err := env.remote.Whoami(ctx)
	if errors.Is(err, auth.ErrUnauthorized) {
		env.gate.Forget()
		return fmt.Errorf("the server no longer accepts this session; run folio login")
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s (%s)\n", id.Email, id.OwnerID)
	return nil
}

func setEditMode(env *clientEnv, arg string, w io.Writer) error {
	var on bool
	var err error
	switch arg {
	case "":
		fmt.Fprintln(w, onOff(env.gate.EditMode()))
		return nil
	case "toggle":
		on, err = env.gate.ToggleEditMode()
	default:
		on = arg == "on"
		err = env.gate.SetEditMode(on)
	}
	if errors.Is(err, auth.ErrUnauthorized) {
		return fmt.Errorf("only the signed-in owner can switch edit mode; run folio login")
	}
	if err != nil {
		return err
	}
	printSuccess("Edit mode %s", onOff(on))
	return nil
}
