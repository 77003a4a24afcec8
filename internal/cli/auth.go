package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/existflow/ironnote/internal/api"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage authentication",
	Long:  `Register, log in to and log out of the IronNote server.`,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the server",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out from the server",
	RunE:  runLogout,
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a new account on the server",
	RunE:  runRegister,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and login status",
	RunE:  runStatus,
}

func init() {
	authCmd.AddCommand(loginCmd)
	authCmd.AddCommand(logoutCmd)
	authCmd.AddCommand(registerCmd)
	authCmd.AddCommand(statusCmd)

	loginCmd.Flags().StringP("username", "u", "", "Username (prompted when empty)")
}

// readPassword reads without echo on a terminal and falls back to a plain line
func readPassword(in *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		b, _ := term.ReadPassword(fd)
		fmt.Fprintln(out)
		return string(b)
	}
	line, _ := in.ReadString('\n')
	return strings.TrimRight(line, "\r\n")
}

func readLine(in *bufio.Reader, out io.Writer, prompt string) string {
	fmt.Fprint(out, prompt)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

func authContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), currentConfig().RequestTimeout)
}

func runLogin(cmd *cobra.Command, args []string) error {
	client, err := newClient(currentConfig())
	if err != nil {
		return err
	}
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	username, _ := cmd.Flags().GetString("username")
	if username == "" {
		username = readLine(in, out, "Username: ")
	}
	password := readPassword(in, out, "Password: ")

	ctx, cancel := authContext(cmd)
	defer cancel()

	fmt.Fprintln(out, "🔄 Logging in...")
	if err := client.Login(ctx, username, password); err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Logged in successfully!")
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	client, err := newClient(currentConfig())
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if !client.IsLoggedIn() {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	ctx, cancel := authContext(cmd)
	defer cancel()

	fmt.Fprintln(out, "🔄 Logging out...")
	if err := client.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Logged out successfully.")
	return nil
}

func runRegister(cmd *cobra.Command, args []string) error {
	client, err := newClient(currentConfig())
	if err != nil {
		return err
	}
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	username := readLine(in, out, "Username: ")
	email := readLine(in, out, "Email: ")
	password := readPassword(in, out, "Password: ")
	confirm := readPassword(in, out, "Confirm Password: ")

	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	ctx, cancel := authContext(cmd)
	defer cancel()

	fmt.Fprintln(out, "🔄 Creating account...")
	if err := client.Register(ctx, username, email, password); err != nil {
		return err
	}
	fmt.Fprintln(out, "✅ Account created and logged in!")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg := currentConfig()
	client, err := newClient(cfg)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	ctx, cancel := authContext(cmd)
	defer cancel()

	fmt.Fprintf(out, "Server:  %s\n", client.BaseURL())
	if err := client.Health(ctx); err != nil {
		fmt.Fprintf(out, "Health:  ✗ %v\n", err)
	} else {
		fmt.Fprintln(out, "Health:  ✓ reachable")
	}
	fmt.Fprintf(out, "Cache:   %s\n", cfg.CachePath)

	if !client.IsLoggedIn() {
		fmt.Fprintln(out, "Status:  Not logged in")
		return nil
	}

	s := client.Session()
	user, err := client.Me(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(out, "User:    %s <%s>\n", user.Username, user.Email)
	case api.IsUnauthorized(err):
		fmt.Fprintln(out, "Status:  Session rejected, log in again")
		return nil
	default:
		fmt.Fprintf(out, "User:    %s (offline)\n", s.Username)
	}
	if !s.ExpiresAt.IsZero() {
		fmt.Fprintf(out, "Expires: %s\n", s.ExpiresAt.Local().Format(time.RFC1123))
	}
	fmt.Fprintln(out, "Status:  ✓ Logged in")
	return nil
}
